package match

import (
	"github.com/sentrix/idxr-engine/internal/similarity"
	"github.com/sentrix/idxr-engine/pkg/models"
)

const fuzzyEmitThreshold = 0.80
const fuzzyConfidenceCap = 0.85

// Fuzzy is M4: the same overlapping field set as M3, but scored with
// edit-distance-oriented similarities — Jaro-Winkler for name fields,
// Levenshtein ratio elsewhere (item D.2 of the supplemented features).
// Global accept threshold 0.80; composite confidence capped at 0.85
// (§4.6).
type Fuzzy struct{}

func (Fuzzy) Match(query models.IdentityRecord, candidates []models.StoredIdentity) ([]models.MatchCandidate, []Diagnostic) {
	var out []models.MatchCandidate
	var diags []Diagnostic

	for _, cand := range candidates {
		terms := overlapTerms(query, cand.Normalized, similarity.JaroWinkler)
		score, matched := weightedOverlap(terms)

		if len(matched) == 0 {
			diags = append(diags, Diagnostic{IdentityKey: cand.IdentityKey, Matcher: models.MatchTypeFuzzy, Reason: "no overlapping fields"})
			continue
		}
		if score < fuzzyEmitThreshold {
			diags = append(diags, Diagnostic{IdentityKey: cand.IdentityKey, Matcher: models.MatchTypeFuzzy, Reason: "combined score below threshold"})
			continue
		}

		conf := score
		if conf > fuzzyConfidenceCap {
			conf = fuzzyConfidenceCap
		}
		out = append(out, models.MatchCandidate{
			IdentityKey:   cand.IdentityKey,
			Confidence:    similarity.Clamp01(conf),
			MatchType:     models.MatchTypeFuzzy,
			MatchedFields: matched,
		})
	}
	return out, diags
}
