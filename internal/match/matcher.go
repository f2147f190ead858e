// Package match implements the C6 Matchers (spec.md §4.6): five
// stateless algorithms, each consuming a normalized query plus a
// candidate slice and producing match candidates. None of them returns
// an error — per the redesign notes (§9), matcher failures are not
// exceptions; an unscoreable candidate is simply omitted, and anything
// worth surfacing travels as a Diagnostic instead of a raised error.
package match

import "github.com/sentrix/idxr-engine/pkg/models"

// Diagnostic records a per-candidate observation that did not rise to
// a match (e.g. "no overlapping fields to score"), so the Resolver can
// explain a no_match result instead of producing one silently.
type Diagnostic struct {
	IdentityKey string
	Matcher     models.MatchType
	Reason      string
}

// Matcher is implemented by M1..M4. M5 (Hybrid) takes a context for its
// Embedder call and is invoked separately. Each is pure and stateless,
// so concurrent fan-out across matchers is safe by construction (§4.6).
type Matcher interface {
	Match(query models.IdentityRecord, candidates []models.StoredIdentity) ([]models.MatchCandidate, []Diagnostic)
}
