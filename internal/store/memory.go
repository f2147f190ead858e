package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/sentrix/idxr-engine/pkg/models"
)

// MemoryStore is an in-memory CandidateStore, blocked by exact
// taxpayer ID, exact date of birth, and surname prefix — the same
// three cheap keys §4.5 names. It is the reference implementation used
// by tests and by deployments that load the corpus into memory.
type MemoryStore struct {
	mu          sync.RWMutex
	byKey       map[string]models.StoredIdentity
	byTaxpayer  map[string][]string
	byDOB       map[string][]string
	bySurnamePx map[string][]string
	cap         int
}

const surnamePrefixLen = 3

// NewMemoryStore creates an empty store with the given per-lookup cap
// (0 selects DefaultCap).
func NewMemoryStore(cap int) *MemoryStore {
	if cap <= 0 {
		cap = DefaultCap
	}
	return &MemoryStore{
		byKey:       make(map[string]models.StoredIdentity),
		byTaxpayer:  make(map[string][]string),
		byDOB:       make(map[string][]string),
		bySurnamePx: make(map[string][]string),
		cap:         cap,
	}
}

// Put inserts or replaces a stored identity and reindexes its blocking keys.
func (s *MemoryStore) Put(identity models.StoredIdentity) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.byKey[identity.IdentityKey] = identity

	n := identity.Normalized
	if n.TaxpayerID != "" {
		s.byTaxpayer[n.TaxpayerID] = appendUnique(s.byTaxpayer[n.TaxpayerID], identity.IdentityKey)
	}
	if n.DateOfBirth != "" {
		s.byDOB[n.DateOfBirth] = appendUnique(s.byDOB[n.DateOfBirth], identity.IdentityKey)
	}
	if px := surnamePrefix(n.Surname); px != "" {
		s.bySurnamePx[px] = appendUnique(s.bySurnamePx[px], identity.IdentityKey)
	}
}

func surnamePrefix(surname string) string {
	s := strings.ToUpper(surname)
	if len(s) > surnamePrefixLen {
		s = s[:surnamePrefixLen]
	}
	return s
}

func appendUnique(xs []string, x string) []string {
	for _, v := range xs {
		if v == x {
			return xs
		}
	}
	return append(xs, x)
}

// Lookup blocks on taxpayer ID, date of birth, and surname prefix,
// unions the hits, applies the DOB hard pre-filter, and caps the
// result.
func (s *MemoryStore) Lookup(ctx context.Context, query models.IdentityRecord) ([]models.StoredIdentity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool)
	var keys []string

	collect := func(ks []string) {
		for _, k := range ks {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}

	if query.TaxpayerID != "" {
		collect(s.byTaxpayer[query.TaxpayerID])
	}
	if query.DateOfBirth != "" {
		collect(s.byDOB[query.DateOfBirth])
	}
	if px := surnamePrefix(query.Surname); px != "" {
		collect(s.bySurnamePx[px])
	}

	results := make([]models.StoredIdentity, 0, len(keys))
	for _, k := range keys {
		ident := s.byKey[k]
		if !withinDOBWindow(query.DateOfBirth, ident.Normalized.DateOfBirth) {
			continue
		}
		results = append(results, ident)
	}

	sort.Slice(results, func(i, j int) bool { return results[i].IdentityKey < results[j].IdentityKey })

	if len(results) > s.cap {
		results = results[:s.cap]
	}
	return results, nil
}
