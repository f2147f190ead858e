// Package normalize implements the C1 Normalizer: pure, idempotent
// field-level cleaning and canonicalization (spec.md §4.1). It is the
// single source of canonical form — every validation rule lives here,
// consolidating what the teacher repo's original inspiration scattered
// across ad-hoc regexes.
package normalize

import (
	"time"

	"github.com/sentrix/idxr-engine/pkg/models"
)

// Record normalizes every field of an IdentityRecord. It never drops
// a field: fields that fail validation are still emitted, cleaned,
// alongside an issue describing why.
func Record(in models.IdentityRecord, now time.Time) models.NormalizationResult {
	out := in
	var issues []string

	if clean, valid := Name(in.GivenName); !valid {
		out.GivenName = clean
		issues = append(issues, "givenName contains invalid characters")
	} else {
		out.GivenName = clean
	}
	if clean, valid := Name(in.Surname); !valid {
		out.Surname = clean
		issues = append(issues, "surname contains invalid characters")
	} else {
		out.Surname = clean
	}
	if in.MiddleName != "" {
		clean, valid := Name(in.MiddleName)
		out.MiddleName = clean
		if !valid {
			issues = append(issues, "middleName contains invalid characters")
		}
	}

	if in.DateOfBirth != "" {
		iso, dobIssues := DateOfBirth(in.DateOfBirth, now)
		out.DateOfBirth = iso
		issues = append(issues, dobIssues...)
	}

	if in.TaxpayerID != "" {
		clean, valid := TaxpayerID(in.TaxpayerID)
		out.TaxpayerID = clean
		if !valid {
			issues = append(issues, "taxpayerId failed structural validation")
		}
	}

	if in.Phone != "" {
		clean, valid := Phone(in.Phone)
		out.Phone = clean
		if !valid {
			issues = append(issues, "phone could not be normalized to 10/11 digits")
		}
	}

	if in.Email != "" {
		clean, valid, disposable := Email(in.Email)
		out.Email = clean
		if !valid {
			issues = append(issues, "email failed format validation")
		}
		if disposable {
			issues = append(issues, "email domain is a known disposable provider")
		}
	}

	if (models.Address{}) != in.Address {
		clean, addrIssues := Address(in.Address)
		out.Address = clean
		issues = append(issues, addrIssues...)
	}

	return models.NormalizationResult{Record: out, Issues: issues}
}
