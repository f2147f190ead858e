// Package ratelimit implements the C10 Rate / DDoS Gate (spec.md
// §4.10). It redesigns the teacher's per-IP token-bucket limiter
// (internal/api/ratelimit.go) into three concentric sliding-window
// counters (global, per-client, per-endpoint) plus a pattern detector
// that trips a temporary block on abusive traffic shapes — the
// per-peer state map and idle-cleanup loop are kept from the teacher,
// the refill arithmetic is not (a sliding window has no tokens to
// refill).
package ratelimit

import (
	"sync"
	"time"
)

// Spec is a (count, window, burst) triple for one scope (§4.10).
type Spec struct {
	Limit  int
	Window time.Duration
	Burst  int
}

const cleanupIdleDuration = 10 * time.Minute

// blockDuration is how long the pattern detector's temporary block
// lasts once tripped (§4.10).
const blockDuration = 15 * time.Minute

// window holds recent admitted timestamps for one (scope, identity)
// pair, trimmed lazily on each check.
type window struct {
	mu         sync.Mutex
	timestamps []time.Time
	lastSeen   time.Time
}

func (w *window) admit(spec Spec, now time.Time) (bool, time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()

	cutoff := now.Add(-spec.Window)
	kept := w.timestamps[:0]
	for _, ts := range w.timestamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	w.timestamps = kept
	w.lastSeen = now

	if len(w.timestamps)+1 > spec.Limit+spec.Burst {
		oldest := w.timestamps[0]
		retryAfter := spec.Window - now.Sub(oldest)
		if retryAfter < 0 {
			retryAfter = 0
		}
		return false, retryAfter
	}

	w.timestamps = append(w.timestamps, now)
	return true, 0
}

// Decision is the gate's verdict for one request.
type Decision struct {
	Allowed       bool
	LimitScope    string
	RetryAfter    time.Duration
	PatternBlocked bool
}

// Gate is the C10 rate/DDoS gate: sliding-window admission across
// global/client/endpoint scopes, plus a pattern detector and a
// whitelist bypass.
type Gate struct {
	global    Spec
	client    Spec
	endpoint  Spec
	whitelist map[string]bool

	mu           sync.Mutex
	globalWindow *window
	clientWin    map[string]*window
	endpointWin  map[string]*window

	detector *patternDetector
}

// New builds a Gate from the three scope specs and a whitelist of
// peer identifiers that bypass it entirely (§4.10).
func New(global, client, endpoint Spec, whitelist []string) *Gate {
	wl := make(map[string]bool, len(whitelist))
	for _, w := range whitelist {
		wl[w] = true
	}
	g := &Gate{
		global:      global,
		client:      client,
		endpoint:    endpoint,
		whitelist:   wl,
		globalWindow: &window{},
		clientWin:   make(map[string]*window),
		endpointWin: make(map[string]*window),
		detector:    newPatternDetector(),
	}
	go g.cleanupLoop()
	return g
}

// Admit evaluates one request against all three scopes plus the
// pattern detector. peerID identifies the client (authenticated user
// id, else source IP); endpoint names the logical operation.
func (g *Gate) Admit(peerID, endpoint, userAgent string) Decision {
	if g.whitelist[peerID] {
		return Decision{Allowed: true}
	}

	now := time.Now()

	if g.detector.isBlocked(peerID, now) {
		return Decision{Allowed: false, LimitScope: "pattern", RetryAfter: blockDuration}
	}
	g.detector.observe(peerID, userAgent, now)
	if g.detector.trips(peerID, now) {
		return Decision{Allowed: false, LimitScope: "pattern", RetryAfter: blockDuration, PatternBlocked: true}
	}

	if ok, retry := g.globalWindow.admit(g.global, now); !ok {
		return Decision{Allowed: false, LimitScope: "global", RetryAfter: retry}
	}

	clientWin := g.windowFor(&g.clientWin, peerID)
	if ok, retry := clientWin.admit(g.client, now); !ok {
		return Decision{Allowed: false, LimitScope: "client", RetryAfter: retry}
	}

	endpointWin := g.windowFor(&g.endpointWin, endpoint)
	if ok, retry := endpointWin.admit(g.endpoint, now); !ok {
		return Decision{Allowed: false, LimitScope: "endpoint", RetryAfter: retry}
	}

	// The detector is checked a second time after the windows admit the
	// request; the check above has already run for this request.
	if g.detector.trips(peerID, now) {
		return Decision{Allowed: false, LimitScope: "pattern", RetryAfter: blockDuration, PatternBlocked: true}
	}

	return Decision{Allowed: true}
}

func (g *Gate) windowFor(m *map[string]*window, key string) *window {
	g.mu.Lock()
	defer g.mu.Unlock()
	w, ok := (*m)[key]
	if !ok {
		w = &window{}
		(*m)[key] = w
	}
	return w
}

func (g *Gate) cleanupLoop() {
	ticker := time.NewTicker(cleanupIdleDuration)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := time.Now().Add(-cleanupIdleDuration)
		g.mu.Lock()
		for k, w := range g.clientWin {
			w.mu.Lock()
			idle := w.lastSeen.Before(cutoff)
			w.mu.Unlock()
			if idle {
				delete(g.clientWin, k)
			}
		}
		for k, w := range g.endpointWin {
			w.mu.Lock()
			idle := w.lastSeen.Before(cutoff)
			w.mu.Unlock()
			if idle {
				delete(g.endpointWin, k)
			}
		}
		g.mu.Unlock()
		g.detector.cleanup(cutoff)
	}
}
