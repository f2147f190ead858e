// Package store implements the C5 Candidate Store outbound port
// (spec.md §4.5, §6): a read-only accessor over the identity corpus,
// pre-filtered by cheap blocking keys and hard-gated on date-of-birth
// proximity.
package store

import (
	"context"
	"time"

	"github.com/sentrix/idxr-engine/pkg/models"
)

// CandidateStore is the outbound port the Resolver and matchers read
// through. Implementations must honor the two-year DOB pre-filter
// (§4.5) — the Resolver and matchers assume it has already been
// applied and never re-check it.
type CandidateStore interface {
	Lookup(ctx context.Context, query models.IdentityRecord) ([]models.StoredIdentity, error)
}

// DefaultCap bounds the number of candidates a single lookup can
// return, guarding the matchers against pathological blocking keys.
const DefaultCap = 10_000_000

// maxDOBDriftDays is the hard pre-filter: candidates whose date of
// birth differs from the query's by more than two years are never
// returned, regardless of how they were blocked in (§4.5).
const maxDOBDriftDays = 2 * 366

func withinDOBWindow(queryISO, candidateISO string) bool {
	if queryISO == "" || candidateISO == "" {
		return true // no DOB to gate on; other blocking keys decide
	}
	q, err1 := time.Parse("2006-01-02", queryISO)
	c, err2 := time.Parse("2006-01-02", candidateISO)
	if err1 != nil || err2 != nil {
		return true
	}
	diff := q.Sub(c)
	if diff < 0 {
		diff = -diff
	}
	return int(diff.Hours()/24) <= maxDOBDriftDays
}
