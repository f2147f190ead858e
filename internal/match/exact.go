package match

import "github.com/sentrix/idxr-engine/pkg/models"

// Exact is M1: counts exact equality over {taxpayer ID, date of birth,
// full name} and emits confidence = matched-field-count / 3 whenever
// at least one field matches (§4.6).
type Exact struct{}

func (Exact) Match(query models.IdentityRecord, candidates []models.StoredIdentity) ([]models.MatchCandidate, []Diagnostic) {
	var out []models.MatchCandidate
	var diags []Diagnostic

	for _, cand := range candidates {
		c := cand.Normalized
		var matched []string

		if query.TaxpayerID != "" && query.TaxpayerID == c.TaxpayerID {
			matched = append(matched, "taxpayerId")
		}
		if query.DateOfBirth != "" && query.DateOfBirth == c.DateOfBirth {
			matched = append(matched, "dateOfBirth")
		}
		if query.GivenName != "" && query.Surname != "" &&
			query.GivenName == c.GivenName && query.Surname == c.Surname {
			matched = append(matched, "fullName")
		}

		if len(matched) == 0 {
			diags = append(diags, Diagnostic{IdentityKey: cand.IdentityKey, Matcher: models.MatchTypeExact, Reason: "no exact field match"})
			continue
		}

		out = append(out, models.MatchCandidate{
			IdentityKey:   cand.IdentityKey,
			Confidence:    float64(len(matched)) / 3.0,
			MatchType:     models.MatchTypeExact,
			MatchedFields: matched,
		})
	}
	return out, diags
}
