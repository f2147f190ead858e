// Package ensemble implements the C7 Ensemble Scorer (spec.md §4.7):
// it groups per-matcher candidates by identity key, combines them with
// configured matcher-type weights, shapes the result by data quality
// and edge-case flags, and ranks the survivors.
package ensemble

import (
	"sort"

	"github.com/sentrix/idxr-engine/internal/similarity"
	"github.com/sentrix/idxr-engine/pkg/models"
)

// DefaultMinConfidence and DefaultMaxResults are the thresholds §4.7 steps 6 and 8
// apply; Resolve takes them as configurable overrides per §6's
// match.threshold / match.max_results.
const (
	DefaultMinConfidence = 0.6
	DefaultMaxResults    = 10
)

// DefaultWeights are the matcher-type weights combined in step 2.
// §4.6 only pins concrete numbers for M5's internal components and
// M3's field weights; it does not give a default matcher-type weight
// table for the ensemble itself (§4.7's "matcher weights above" is
// ambiguous about which table it means once fuzzy and ai-hybrid
// candidates also appear standalone in a group). Resolved here as an
// explicit default, recorded in DESIGN.md, summing to 1.0 so
// invariant #4 in §8.1 holds; §6 lets a deployment override via
// match.weights.*.
//
// Exact's own formula (§4.6 M1) divides by the fixed denominator of
// three identity fields, so a single-field hit — a fuzzy nickname
// match on name and phone alone, with no date of birth or taxpayer ID
// in the query — reports only ~0.33 confidence no matter how sure
// Probabilistic or Fuzzy are about the same candidate. Weighting Exact
// as heavily as Deterministic let that low single-field score drag a
// well-supported fuzzy match below threshold. Probabilistic and Fuzzy
// carry the most weight here instead: they already fold field-overlap
// and similarity into their own confidence, so they are the more
// reliable signal once Exact can't clear its three-field bar.
var DefaultWeights = map[models.MatchType]float64{
	models.MatchTypeExact:         0.15,
	models.MatchTypeDeterministic: 0.20,
	models.MatchTypeProbabilistic: 0.35,
	models.MatchTypeFuzzy:         0.20,
	models.MatchTypeAIHybrid:      0.10,
}

// Options configures one Resolve-level Ensemble pass.
type Options struct {
	Weights       map[models.MatchType]float64
	MinConfidence float64
	MaxResults    int
}

// Resolve runs §4.7 steps 1-8 over the union of every matcher's
// output for one request.
func Resolve(all []models.MatchCandidate, quality float64, edgeFlags []string, opts Options) []models.MatchCandidate {
	weights := opts.Weights
	if weights == nil {
		weights = DefaultWeights
	}
	minConf := opts.MinConfidence
	if minConf == 0 {
		minConf = DefaultMinConfidence
	}
	maxResults := opts.MaxResults
	if maxResults == 0 {
		maxResults = DefaultMaxResults
	}

	groups := groupByIdentityKey(all)

	out := make([]models.MatchCandidate, 0, len(groups))
	for key, group := range groups {
		var num, den float64
		matched := make(map[string]bool)
		for _, c := range group {
			w := weights[c.MatchType]
			if w == 0 {
				continue
			}
			num += c.Confidence * w
			den += w
			for _, f := range c.MatchedFields {
				matched[f] = true
			}
		}
		if den == 0 {
			continue
		}
		conf := num / den

		// Step 3: quality shaping.
		conf *= 0.7 + 0.3*(quality/100.0)

		// Step 4: edge penalty.
		if len(edgeFlags) > 0 {
			conf *= 0.9
		}

		// Step 5: clamp.
		conf = similarity.Clamp01(conf)
		if conf > 0.99 {
			conf = 0.99
		}

		// Step 6: threshold.
		if conf < minConf {
			continue
		}

		out = append(out, models.MatchCandidate{
			IdentityKey:   key,
			Confidence:    conf,
			MatchType:     models.MatchTypeEnsemble,
			MatchedFields: sortedKeys(matched),
		})
	}

	// Step 7: rank.
	sort.Slice(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		if len(out[i].MatchedFields) != len(out[j].MatchedFields) {
			return len(out[i].MatchedFields) > len(out[j].MatchedFields)
		}
		return out[i].IdentityKey < out[j].IdentityKey
	})

	// Step 8: cap.
	if len(out) > maxResults {
		out = out[:maxResults]
	}
	return out
}

func groupByIdentityKey(all []models.MatchCandidate) map[string][]models.MatchCandidate {
	groups := make(map[string][]models.MatchCandidate)
	for _, c := range all {
		groups[c.IdentityKey] = append(groups[c.IdentityKey], c)
	}
	return groups
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
