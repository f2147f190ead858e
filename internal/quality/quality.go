// Package quality implements the C2 Quality Assessor (spec.md §4.2):
// a weighted completeness/validity score, grounded on the teacher's
// CalibratePrivacyScore (internal/heuristics/privacy_score.go) weighted
// evidence-composition style, adapted from transaction signals to
// identity-field signals.
package quality

import (
	"fmt"

	"github.com/sentrix/idxr-engine/pkg/models"
)

// fieldWeight is the importance weight per field (§4.2). Weights sum to 1.0.
var fieldWeight = map[string]float64{
	"surname":     0.15,
	"givenName":   0.15,
	"dateOfBirth": 0.20,
	"taxpayerId":  0.25,
	"address":     0.15,
	"phone":       0.05,
	"email":       0.05,
}

const (
	criticalPenalty = 20.0 // missing critical field
	importantPenalty = 10.0 // missing important field
)

// criticalFields must be present for a record to be useful to the
// resolver at all; their absence is penalized harder than
// "important" fields.
var criticalFields = map[string]bool{
	"surname": true, "givenName": true, "dateOfBirth": true, "taxpayerId": true,
}

func bucketFor(score float64) models.QualityBucket {
	switch {
	case score >= 95:
		return models.BucketExcellent
	case score >= 85:
		return models.BucketGood
	case score >= 70:
		return models.BucketFair
	default:
		return models.BucketPoor
	}
}

// Assess scores a normalized record (the caller runs the Normalizer
// first and passes its issue list through). depth enables deeper
// cross-field checks at "enhanced"/"comprehensive" levels.
func Assess(normalized models.IdentityRecord, normIssues []string, depth models.ValidationDepth) models.QualityAssessment {
	subscores := map[string]float64{}
	var issues []string
	var recommendations []string

	issueSet := make(map[string]bool, len(normIssues))
	for _, iss := range normIssues {
		issueSet[iss] = true
	}

	scoreField := func(field, value string, critical bool, invalidIssue string) float64 {
		if value == "" {
			issues = append(issues, fmt.Sprintf("%s is missing", field))
			if critical {
				recommendations = append(recommendations, fmt.Sprintf("collect %s — missing critical field", field))
				return 100 - criticalPenalty
			}
			recommendations = append(recommendations, fmt.Sprintf("collect %s to improve match precision", field))
			return 100 - importantPenalty
		}
		if invalidIssue != "" && issueSet[invalidIssue] {
			issues = append(issues, invalidIssue)
			recommendations = append(recommendations, fmt.Sprintf("correct %s — failed format validation", field))
			return 60
		}
		return 100
	}

	subscores["givenName"] = scoreField("givenName", normalized.GivenName, true, "givenName contains invalid characters")
	subscores["surname"] = scoreField("surname", normalized.Surname, true, "surname contains invalid characters")
	subscores["dateOfBirth"] = scoreField("dateOfBirth", normalized.DateOfBirth, true, "")
	subscores["taxpayerId"] = scoreField("taxpayerId", normalized.TaxpayerID, true, "taxpayerId failed structural validation")
	subscores["phone"] = scoreField("phone", normalized.Phone, false, "phone could not be normalized to 10/11 digits")
	subscores["email"] = scoreField("email", normalized.Email, false, "email failed format validation")
	subscores["address"] = scoreAddress(normalized.Address)

	if depth == models.DepthEnhanced || depth == models.DepthComprehensive {
		if crossFieldIssue := crossFieldCheck(normalized); crossFieldIssue != "" {
			issues = append(issues, crossFieldIssue)
			recommendations = append(recommendations, "review record for internally inconsistent fields")
		}
	}

	var weightedSum, weightTotal float64
	for field, w := range fieldWeight {
		weightedSum += w * subscores[field]
		weightTotal += w
	}
	score := weightedSum / weightTotal

	return models.QualityAssessment{
		Score:           score,
		Bucket:          bucketFor(score),
		FieldSubscores:  subscores,
		Issues:          issues,
		Recommendations: recommendations,
	}
}

func scoreAddress(a models.Address) float64 {
	if a.StreetName == "" && a.City == "" && a.PostalCode == "" {
		return 100 - criticalPenalty
	}
	if a.PostalCode == "" || a.StreetName == "" {
		return 100 - importantPenalty
	}
	return 100
}

// crossFieldCheck runs the deeper checks enabled at enhanced/comprehensive
// depth: plausibility between fields rather than per-field format.
func crossFieldCheck(r models.IdentityRecord) string {
	if r.DateOfBirth != "" && len(r.TaxpayerID) == 4 && r.TaxpayerID == "0000" {
		return "taxpayerId suffix is a placeholder value"
	}
	return ""
}
