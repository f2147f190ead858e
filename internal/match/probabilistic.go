package match

import (
	"github.com/sentrix/idxr-engine/internal/similarity"
	"github.com/sentrix/idxr-engine/pkg/models"
)

const probabilisticEmitThreshold = 0.75

// Probabilistic is M3: weighted combination of overlapping-field
// kernel similarities, emitting when the combined score reaches 0.75
// (§4.6).
type Probabilistic struct{}

func (Probabilistic) Match(query models.IdentityRecord, candidates []models.StoredIdentity) ([]models.MatchCandidate, []Diagnostic) {
	var out []models.MatchCandidate
	var diags []Diagnostic

	for _, cand := range candidates {
		terms := overlapTerms(query, cand.Normalized, similarity.LevenshteinRatio)
		score, matched := weightedOverlap(terms)

		if len(matched) == 0 {
			diags = append(diags, Diagnostic{IdentityKey: cand.IdentityKey, Matcher: models.MatchTypeProbabilistic, Reason: "no overlapping fields"})
			continue
		}
		if score < probabilisticEmitThreshold {
			diags = append(diags, Diagnostic{IdentityKey: cand.IdentityKey, Matcher: models.MatchTypeProbabilistic, Reason: "combined score below threshold"})
			continue
		}

		out = append(out, models.MatchCandidate{
			IdentityKey:   cand.IdentityKey,
			Confidence:    similarity.Clamp01(score),
			MatchType:     models.MatchTypeProbabilistic,
			MatchedFields: matched,
		})
	}
	return out, diags
}
