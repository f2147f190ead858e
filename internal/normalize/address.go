package normalize

import (
	"regexp"
	"strings"

	"github.com/sentrix/idxr-engine/pkg/models"
)

// streetTypeAbbrev standardizes common street-type suffixes (§4.1).
var streetTypeAbbrev = map[string]string{
	"STREET": "ST", "AVENUE": "AVE", "BOULEVARD": "BLVD", "DRIVE": "DR",
	"LANE": "LN", "ROAD": "RD", "COURT": "CT", "CIRCLE": "CIR",
	"PLACE": "PL", "TERRACE": "TER", "TRAIL": "TRL", "PARKWAY": "PKWY",
	"HIGHWAY": "HWY", "SQUARE": "SQ", "WAY": "WAY",
}

// stateAbbrev abbreviates a handful of commonly spelled-out state
// names; state inputs already given as 2 letters pass through.
var stateAbbrev = map[string]string{
	"ALABAMA": "AL", "ALASKA": "AK", "ARIZONA": "AZ", "ARKANSAS": "AR",
	"CALIFORNIA": "CA", "COLORADO": "CO", "CONNECTICUT": "CT", "DELAWARE": "DE",
	"FLORIDA": "FL", "GEORGIA": "GA", "HAWAII": "HI", "IDAHO": "ID",
	"ILLINOIS": "IL", "INDIANA": "IN", "IOWA": "IA", "KANSAS": "KS",
	"KENTUCKY": "KY", "LOUISIANA": "LA", "MAINE": "ME", "MARYLAND": "MD",
	"MASSACHUSETTS": "MA", "MICHIGAN": "MI", "MINNESOTA": "MN", "MISSISSIPPI": "MS",
	"MISSOURI": "MO", "MONTANA": "MT", "NEBRASKA": "NE", "NEVADA": "NV",
	"NEW HAMPSHIRE": "NH", "NEW JERSEY": "NJ", "NEW MEXICO": "NM", "NEW YORK": "NY",
	"NORTH CAROLINA": "NC", "NORTH DAKOTA": "ND", "OHIO": "OH", "OKLAHOMA": "OK",
	"OREGON": "OR", "PENNSYLVANIA": "PA", "RHODE ISLAND": "RI", "SOUTH CAROLINA": "SC",
	"SOUTH DAKOTA": "SD", "TENNESSEE": "TN", "TEXAS": "TX", "UTAH": "UT",
	"VERMONT": "VT", "VIRGINIA": "VA", "WASHINGTON": "WA", "WEST VIRGINIA": "WV",
	"WISCONSIN": "WI", "WYOMING": "WY",
}

var (
	unitPattern   = regexp.MustCompile(`(?i)\b(APT|UNIT|STE|SUITE|#)\.?\s*\S+`)
	streetHead    = regexp.MustCompile(`^(\d+)\s+(.*)$`)
	postalPattern = regexp.MustCompile(`^\d{5}(-\d{4})?$`)
)

// Address tokenizes and standardizes a structured address. Unit is
// stripped from StreetName for grouping purposes but preserved in its
// own field.
func Address(raw models.Address) (clean models.Address, issues []string) {
	line := collapseWhitespace(strings.ToUpper(strings.TrimSpace(raw.StreetNumber + " " + raw.StreetName)))

	unit := strings.TrimSpace(raw.Unit)
	if m := unitPattern.FindString(line); m != "" && unit == "" {
		unit = m
	}
	line = unitPattern.ReplaceAllString(line, "")
	line = collapseWhitespace(line)

	var number, street string
	if m := streetHead.FindStringSubmatch(line); m != nil {
		number, street = m[1], m[2]
	} else {
		street = line
	}

	street = abbreviateStreetType(street)

	state := strings.ToUpper(strings.TrimSpace(raw.State))
	if full, ok := stateAbbrev[state]; ok {
		state = full
	} else if len(state) != 2 {
		issues = append(issues, "state could not be abbreviated to 2 letters")
	}

	postal := strings.TrimSpace(raw.PostalCode)
	if postal != "" && !postalPattern.MatchString(postal) {
		issues = append(issues, "postal code is not in 5 or 5-4 digit form")
	}

	clean = models.Address{
		StreetNumber: number,
		StreetName:   titleCaseName(street),
		Unit:         unit,
		City:         titleCaseName(collapseWhitespace(raw.City)),
		State:        state,
		PostalCode:   postal,
	}
	return clean, issues
}

func abbreviateStreetType(street string) string {
	words := strings.Fields(street)
	if len(words) == 0 {
		return street
	}
	last := strings.ToUpper(strings.TrimSuffix(words[len(words)-1], "."))
	if abbr, ok := streetTypeAbbrev[last]; ok {
		words[len(words)-1] = abbr
	}
	return strings.Join(words, " ")
}

// HouseholdKey is the normalized-address grouping key used by
// household detection (§4.1, §4.13): street number + standardized
// street name + postal code, explicitly excluding unit.
func HouseholdKey(a models.Address) string {
	return strings.ToUpper(strings.TrimSpace(a.StreetNumber)) + "|" +
		strings.ToUpper(strings.TrimSpace(a.StreetName)) + "|" +
		strings.TrimSpace(a.PostalCode)
}
