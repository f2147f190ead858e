// Package cache implements the C9 Cache (spec.md §4.9): a
// fingerprint-keyed, TTL-expiring, LRU-bounded result cache with a
// single-flight guarantee for concurrent identical lookups. The LRU
// shape is grounded on luxfi-consensus's dag/witness/cache.go generic
// LRU; this package is not generic because it only ever stores one
// value type (a resolved match result).
package cache

import (
	"container/list"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/sentrix/idxr-engine/pkg/models"
)

// DefaultTTL and DefaultSize are the §4.9 / §6 defaults
// (cache.ttl_s, cache.size).
const (
	DefaultTTL  = 300 * time.Second
	DefaultSize = 10000
)

type entry struct {
	key      string
	value    models.MatchResult
	expireAt time.Time
}

// Cache is a TTL+LRU result cache keyed by query fingerprint, with a
// single-flight guard against duplicate concurrent computation.
type Cache struct {
	mu       sync.Mutex
	ll       *list.List
	entries  map[string]*list.Element
	cap      int
	ttl      time.Duration
	group    singleflight.Group
}

// New creates a cache with the given capacity and TTL; zero values
// select the §6 defaults.
func New(capEntries int, ttl time.Duration) *Cache {
	if capEntries <= 0 {
		capEntries = DefaultSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		ll:      list.New(),
		entries: make(map[string]*list.Element, capEntries),
		cap:     capEntries,
		ttl:     ttl,
	}
}

// Fingerprint computes a stable digest of a normalized query's
// canonical JSON form (§4.9). Two queries equal under normalization
// share a fingerprint regardless of field ordering, since
// encoding/json serializes struct fields in declaration order for
// identical types.
func Fingerprint(normalized models.IdentityRecord) string {
	b, _ := json.Marshal(normalized)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// Get returns the cached result for key if present and unexpired.
// Expired entries are evicted lazily on this lookup (§4.9).
func (c *Cache) Get(key string) (models.MatchResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return models.MatchResult{}, false
	}
	en := el.Value.(*entry)
	if time.Now().After(en.expireAt) {
		c.removeLocked(el)
		return models.MatchResult{}, false
	}
	c.ll.MoveToFront(el)
	return en.value, true
}

// Put inserts or replaces a cache entry, evicting the least-recently-used
// entry if the cache is at capacity.
func (c *Cache) Put(key string, value models.MatchResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		en := el.Value.(*entry)
		en.value = value
		en.expireAt = time.Now().Add(c.ttl)
		c.ll.MoveToFront(el)
		return
	}

	en := &entry{key: key, value: value, expireAt: time.Now().Add(c.ttl)}
	el := c.ll.PushFront(en)
	c.entries[key] = el
	c.evictLocked()
}

func (c *Cache) evictLocked() {
	for c.ll.Len() > c.cap {
		back := c.ll.Back()
		if back == nil {
			return
		}
		c.removeLocked(back)
	}
}

func (c *Cache) removeLocked(el *list.Element) {
	en := el.Value.(*entry)
	delete(c.entries, en.key)
	c.ll.Remove(el)
}

// GetOrCompute returns the cached value for key, computing it via fn
// exactly once across any number of concurrent callers sharing the
// same key (§4.9's single-flight contract). Cancelling ctx for one
// waiter does not cancel fn for the others: fn runs under a context
// detached from the first caller's cancellation, and singleflight.Group
// shares that invocation to completion.
func (c *Cache) GetOrCompute(ctx context.Context, key string, fn func(context.Context) (models.MatchResult, error)) (models.MatchResult, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		result, err := fn(context.WithoutCancel(ctx))
		if err != nil {
			return models.MatchResult{}, err
		}
		c.Put(key, result)
		return result, nil
	})
	if err != nil {
		return models.MatchResult{}, err
	}
	return v.(models.MatchResult), nil
}

// Len reports the current entry count, including not-yet-lazily-evicted
// expired entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}
