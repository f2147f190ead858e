package match

import (
	"github.com/sentrix/idxr-engine/internal/similarity"
	"github.com/sentrix/idxr-engine/pkg/models"
)

// Rule is one entry in the deterministic rule catalogue (§4.6, item D.1
// of the supplemented feature list). Condition inspects the query and
// one candidate; Score is added to the running sum when it fires.
type Rule struct {
	Name      string
	Score     float64
	Condition func(query, candidate models.IdentityRecord) bool
}

// DefaultRules is the R1-R3 catalogue from §4.6. Additional rules can
// be appended without touching Deterministic.Match's control flow.
var DefaultRules = []Rule{
	{
		Name:  "R1",
		Score: 0.8,
		Condition: func(q, c models.IdentityRecord) bool {
			return lastFourMatch(q.TaxpayerID, c.TaxpayerID) && q.DateOfBirth != "" && q.DateOfBirth == c.DateOfBirth
		},
	},
	{
		Name:  "R2",
		Score: 0.75,
		Condition: func(q, c models.IdentityRecord) bool {
			nameSim := similarity.NameSimilarity(q.GivenName, q.Surname, c.GivenName, c.Surname, false)
			addrSim := similarity.Address(q.Address, c.Address)
			return nameSim > 0.95 && addrSim > 0.9
		},
	},
	{
		Name:  "R3",
		Score: 0.7,
		Condition: func(q, c models.IdentityRecord) bool {
			phoneSim := similarity.Phone(q.Phone, c.Phone)
			emailSim := similarity.Email(q.Email, c.Email)
			return phoneSim > 0.9 && emailSim > 0.9
		},
	},
}

const deterministicEmitThreshold = 0.6

// Deterministic is M2: an additive rule catalogue. A candidate is
// emitted only once the sum of fired rule scores reaches 0.6; the
// which-rules-fired detail is carried in MatchCandidate.Detail.
type Deterministic struct {
	Rules []Rule
}

// NewDeterministic builds M2 over DefaultRules.
func NewDeterministic() Deterministic {
	return Deterministic{Rules: DefaultRules}
}

func (d Deterministic) Match(query models.IdentityRecord, candidates []models.StoredIdentity) ([]models.MatchCandidate, []Diagnostic) {
	rules := d.Rules
	if rules == nil {
		rules = DefaultRules
	}

	var out []models.MatchCandidate
	var diags []Diagnostic

	for _, cand := range candidates {
		c := cand.Normalized
		var sum float64
		var fired []string

		for _, r := range rules {
			if r.Condition(query, c) {
				sum += r.Score
				fired = append(fired, r.Name)
			}
		}

		if sum < deterministicEmitThreshold {
			diags = append(diags, Diagnostic{IdentityKey: cand.IdentityKey, Matcher: models.MatchTypeDeterministic, Reason: "rule sum below threshold"})
			continue
		}

		conf := sum
		if conf > 0.99 {
			conf = 0.99
		}
		out = append(out, models.MatchCandidate{
			IdentityKey:   cand.IdentityKey,
			Confidence:    conf,
			MatchType:     models.MatchTypeDeterministic,
			MatchedFields: fired,
			Detail:        map[string]interface{}{"rulesFired": fired},
		})
	}
	return out, diags
}

// lastFourMatch compares taxpayer IDs by their final four digits,
// tolerant of a full 9-digit ID on one side and a 4-digit suffix on
// the other (§3 IdentityRecord.TaxpayerID).
func lastFourMatch(a, b string) bool {
	sa, sb := lastFour(a), lastFour(b)
	return sa != "" && sa == sb
}

func lastFour(s string) string {
	if len(s) < 4 {
		return ""
	}
	return s[len(s)-4:]
}
