package similarity

import (
	"math"
	"strings"
	"time"

	"github.com/sentrix/idxr-engine/pkg/models"
)

// NameSimilarity returns max(exact, average edit-distance ratio of
// given and surname) per §4.4. useJaroWinkler selects the distance
// family the fuzzy matcher (M4) prefers for names.
func NameSimilarity(givenA, surnameA, givenB, surnameB string, useJaroWinkler bool) float64 {
	ga, sa := normalizeForCompare(givenA), normalizeForCompare(surnameA)
	gb, sb := normalizeForCompare(givenB), normalizeForCompare(surnameB)

	if ga == gb && sa == sb && ga+sa != "" {
		return 1.0
	}

	ratio := LevenshteinRatio
	if useJaroWinkler {
		ratio = JaroWinkler
	}

	var total float64
	var n int
	if ga != "" || gb != "" {
		total += ratio(ga, gb)
		n++
	}
	if sa != "" || sb != "" {
		total += ratio(sa, sb)
		n++
	}
	if n == 0 {
		return 0
	}
	return total / float64(n)
}

// dobDecaySteps maps a day-difference bound to its similarity value,
// evaluated in ascending order (§4.4).
var dobDecaySteps = []struct {
	maxDays int
	value   float64
}{
	{0, 1.0},
	{7, 0.9},
	{30, 0.7},
	{365, 0.3},
}

// DateOfBirth returns the step-decay similarity of two ISO dates.
func DateOfBirth(isoA, isoB string) float64 {
	if isoA == "" || isoB == "" {
		return 0
	}
	a, errA := time.Parse("2006-01-02", isoA)
	b, errB := time.Parse("2006-01-02", isoB)
	if errA != nil || errB != nil {
		return 0
	}

	diff := a.Sub(b)
	if diff < 0 {
		diff = -diff
	}
	days := int(diff.Hours() / 24)

	for _, step := range dobDecaySteps {
		if days <= step.maxDays {
			return step.value
		}
	}
	return 0
}

// Address returns 0 if postal codes differ; otherwise a weighted
// blend of postal match, street edit-distance, and city equality.
func Address(a, b models.Address) float64 {
	if a.PostalCode == "" || b.PostalCode == "" || a.PostalCode != b.PostalCode {
		return 0
	}

	streetRatio := LevenshteinRatio(normalizeForCompare(a.StreetName), normalizeForCompare(b.StreetName))
	cityMatch := 0.0
	if a.City != "" && normalizeForCompare(a.City) == normalizeForCompare(b.City) {
		cityMatch = 1.0
	}

	return 0.5 + 0.4*streetRatio + 0.1*cityMatch
}

// Phone returns 1.0 for exact matches, 0.8 when the last seven digits
// match (shared area/exchange drift), else 0.
func Phone(a, b string) float64 {
	da, db := digitsOnly(a), digitsOnly(b)
	if da == "" || db == "" {
		return 0
	}
	if da == db {
		return 1.0
	}
	if len(da) >= 7 && len(db) >= 7 && da[len(da)-7:] == db[len(db)-7:] {
		return 0.8
	}
	return 0
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Email returns 1.0 for exact matches, else the edit-distance ratio
// of the local part (before '@').
func Email(a, b string) float64 {
	na, nb := normalizeForCompare(a), normalizeForCompare(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1.0
	}
	return LevenshteinRatio(localPart(na), localPart(nb))
}

func localPart(email string) string {
	if at := strings.Index(email, "@"); at >= 0 {
		return email[:at]
	}
	return email
}

// Clamp01 clamps a score to [0,1], guarding against floating-point
// drift in composite calculations.
func Clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
