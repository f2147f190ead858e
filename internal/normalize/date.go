package normalize

import (
	"fmt"
	"strings"
	"time"
)

// dobInputLayouts is the bounded list of input shapes the normalizer
// accepts, tried in order (§4.1).
var dobInputLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"02 Jan 2006",
	"20060102",
}

const maxAgeYears = 120

// DateOfBirth parses a bounded set of date-of-birth input shapes and
// emits the ISO form. It rejects future dates and ages over 120 years;
// the rejection reason is returned in issues but the best-effort ISO
// value (if parseable at all) is still returned.
func DateOfBirth(raw string, now time.Time) (iso string, issues []string) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", nil
	}

	var parsed time.Time
	var ok bool
	for _, layout := range dobInputLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			parsed = t
			ok = true
			break
		}
	}
	if !ok {
		return "", []string{fmt.Sprintf("unrecognized date format: %q", raw)}
	}

	iso = parsed.Format("2006-01-02")

	if parsed.After(now) {
		issues = append(issues, "date_of_birth in the future")
	}
	age := ageInYears(parsed, now)
	if age > maxAgeYears {
		issues = append(issues, fmt.Sprintf("age %d exceeds maximum plausible age", age))
	}
	return iso, issues
}

// Age computes whole years of age from an already-normalized ISO
// date-of-birth string. ok is false if iso is empty or unparseable.
func Age(iso string, now time.Time) (age int, ok bool) {
	if iso == "" {
		return 0, false
	}
	dob, err := time.Parse("2006-01-02", iso)
	if err != nil {
		return 0, false
	}
	return ageInYears(dob, now), true
}

func ageInYears(dob, now time.Time) int {
	years := now.Year() - dob.Year()
	anniversary := time.Date(now.Year(), dob.Month(), dob.Day(), 0, 0, 0, 0, now.Location())
	if now.Before(anniversary) {
		years--
	}
	return years
}
