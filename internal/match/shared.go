package match

import (
	"strings"

	"github.com/sentrix/idxr-engine/internal/similarity"
	"github.com/sentrix/idxr-engine/pkg/models"
)

// fieldWeight is one term of the §4.6 weighted-overlap combination
// shared by M3 and M4.
type fieldWeight struct {
	name   string
	weight float64
	sim    float64
	has    bool
}

// weightedOverlap implements `Σ wᵢ·sᵢ / Σ wᵢ` over only the fields
// present on both sides (§4.6). Returns 0, no-fields if nothing
// overlapped.
func weightedOverlap(terms []fieldWeight) (float64, []string) {
	var num, den float64
	var matched []string
	for _, t := range terms {
		if !t.has {
			continue
		}
		num += t.weight * t.sim
		den += t.weight
		matched = append(matched, t.name)
	}
	if den == 0 {
		return 0, nil
	}
	return num / den, matched
}

// taxpayerSuffixSimilarity compares the last four digits of two
// taxpayer IDs — the "taxpayer-suffix" field §4.6 weights, distinct
// from the full-ID exact check M1 performs.
func taxpayerSuffixSimilarity(a, b string) float64 {
	sa, sb := lastFour(a), lastFour(b)
	if sa == "" || sb == "" {
		return 0
	}
	if sa == sb {
		return 1.0
	}
	return 0
}

func norm(s string) string { return strings.TrimSpace(strings.ToLower(s)) }

// overlapTerms builds the shared field-weight table for a query/candidate
// pair. nameRatio selects the distance family for given/surname (plain
// Levenshtein for M3, Jaro-Winkler for M4 per the supplemented fuzzy
// behavior); date of birth, address, phone and email always use the
// kernel's own field functions.
func overlapTerms(query, cand models.IdentityRecord, nameRatio func(a, b string) float64) []fieldWeight {
	return []fieldWeight{
		{"givenName", 0.15, nameRatio(norm(query.GivenName), norm(cand.GivenName)), query.GivenName != "" && cand.GivenName != ""},
		{"surname", 0.20, nameRatio(norm(query.Surname), norm(cand.Surname)), query.Surname != "" && cand.Surname != ""},
		{"dateOfBirth", 0.25, similarity.DateOfBirth(query.DateOfBirth, cand.DateOfBirth), query.DateOfBirth != "" && cand.DateOfBirth != ""},
		{"taxpayerSuffix", 0.15, taxpayerSuffixSimilarity(query.TaxpayerID, cand.TaxpayerID), query.TaxpayerID != "" && cand.TaxpayerID != ""},
		{"address", 0.10, similarity.Address(query.Address, cand.Address), query.Address.PostalCode != "" && cand.Address.PostalCode != ""},
		{"phone", 0.10, similarity.Phone(query.Phone, cand.Phone), query.Phone != "" && cand.Phone != ""},
		{"email", 0.05, similarity.Email(query.Email, cand.Email), query.Email != "" && cand.Email != ""},
	}
}
