package match

import (
	"context"
	"fmt"

	"github.com/sentrix/idxr-engine/internal/embed"
	"github.com/sentrix/idxr-engine/internal/similarity"
	"github.com/sentrix/idxr-engine/pkg/models"
)

// hybridWeights are the component weights §4.6 assigns to M5.
const (
	hybridWeightExact         = 0.4
	hybridWeightDeterministic = 0.3
	hybridWeightProbabilistic = 0.2
	hybridWeightSemantic      = 0.1
)

// Hybrid is M5. It does not implement Matcher directly — it needs a
// context for the optional Embedder call — and is invoked by the
// Resolver alongside, not through, the other four matchers.
type Hybrid struct {
	Embedder embed.Embedder
}

// NewHybrid wires an Embedder; embed.NoopEmbedder{} is a valid choice
// when no semantic provider is configured, in which case the semantic
// term always contributes zero (§4.6).
func NewHybrid(embedder embed.Embedder) Hybrid {
	if embedder == nil {
		embedder = embed.NoopEmbedder{}
	}
	return Hybrid{Embedder: embedder}
}

func (h Hybrid) Match(ctx context.Context, query models.IdentityRecord, candidates []models.StoredIdentity) ([]models.MatchCandidate, []Diagnostic) {
	exactOut, _ := Exact{}.Match(query, candidates)
	detOut, _ := NewDeterministic().Match(query, candidates)
	probOut, _ := Probabilistic{}.Match(query, candidates)

	exactByKey := indexByKey(exactOut)
	detByKey := indexByKey(detOut)
	probByKey := indexByKey(probOut)

	queryVec, queryErr := h.Embedder.Embed(ctx, semanticText(query))

	var out []models.MatchCandidate
	var diags []Diagnostic

	for _, cand := range candidates {
		e, hasExact := exactByKey[cand.IdentityKey]
		d, hasDet := detByKey[cand.IdentityKey]
		p, hasProb := probByKey[cand.IdentityKey]

		if !hasExact && !hasDet && !hasProb {
			diags = append(diags, Diagnostic{IdentityKey: cand.IdentityKey, Matcher: models.MatchTypeAIHybrid, Reason: "no surviving component match"})
			continue
		}

		var matched []string
		matched = append(matched, e.MatchedFields...)
		matched = append(matched, d.MatchedFields...)
		matched = append(matched, p.MatchedFields...)

		semantic := 0.0
		if queryErr == nil {
			candVec, err := h.Embedder.Embed(ctx, semanticText(cand.Normalized))
			if err == nil {
				semantic = embed.CosineSimilarity(queryVec, candVec)
			}
		}

		score := hybridWeightExact*e.Confidence +
			hybridWeightDeterministic*d.Confidence +
			hybridWeightProbabilistic*p.Confidence +
			hybridWeightSemantic*semantic

		out = append(out, models.MatchCandidate{
			IdentityKey:   cand.IdentityKey,
			Confidence:    similarity.Clamp01(score),
			MatchType:     models.MatchTypeAIHybrid,
			MatchedFields: dedupeFields(matched),
			Detail: map[string]interface{}{
				"exact": e.Confidence, "deterministic": d.Confidence,
				"probabilistic": p.Confidence, "semantic": semantic,
			},
		})
	}
	return out, diags
}

func indexByKey(cands []models.MatchCandidate) map[string]models.MatchCandidate {
	m := make(map[string]models.MatchCandidate, len(cands))
	for _, c := range cands {
		m[c.IdentityKey] = c
	}
	return m
}

func semanticText(r models.IdentityRecord) string {
	return fmt.Sprintf("%s %s %s %s %s", r.GivenName, r.Surname, r.DateOfBirth, r.Address.StreetName, r.Address.City)
}

func dedupeFields(fields []string) []string {
	seen := make(map[string]bool, len(fields))
	var out []string
	for _, f := range fields {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out
}
