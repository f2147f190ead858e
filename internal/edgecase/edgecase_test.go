package edgecase

import (
	"testing"
	"time"

	"github.com/sentrix/idxr-engine/pkg/models"
)

func TestDetectTwinMatch(t *testing.T) {
	now := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	query := models.IdentityRecord{
		GivenName: "John", Surname: "Smith", DateOfBirth: "2010-05-01",
		Address: models.Address{StreetName: "Main St", PostalCode: "80202"},
	}
	candidates := []models.StoredIdentity{
		{Normalized: models.IdentityRecord{
			GivenName: "Jon", Surname: "Smith", DateOfBirth: "2010-05-01",
			Address: models.Address{StreetName: "Main St", PostalCode: "80202"},
		}},
	}

	got := Detect(query, candidates, 0, now)
	if !contains(got.Flags, FlagPotentialTwinMatch) {
		t.Errorf("expected potential_twin_match flag, got %v", got.Flags)
	}
}

func TestDetectAgeFlags(t *testing.T) {
	now := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		dob  string
		want string
	}{
		{"infant", "2026-01-01", FlagInfant},
		{"child", "2015-01-01", FlagChild},
		{"teenager", "2010-01-01", FlagTeenager},
		{"adult", "1990-01-01", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Detect(models.IdentityRecord{DateOfBirth: tt.dob}, nil, 0, now)
			if tt.want == "" {
				if contains(got.Flags, FlagInfant) || contains(got.Flags, FlagChild) || contains(got.Flags, FlagTeenager) {
					t.Errorf("adult should have no age flag, got %v", got.Flags)
				}
				return
			}
			if !contains(got.Flags, tt.want) {
				t.Errorf("expected %s, got %v", tt.want, got.Flags)
			}
		})
	}
}

func TestDetectUnhousedFromHistory(t *testing.T) {
	now := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	got := Detect(models.IdentityRecord{}, nil, 4, now)
	if !contains(got.Flags, FlagUnhoused) {
		t.Errorf("expected high_mobility_or_unhoused flag with 4 historical addresses, got %v", got.Flags)
	}
}

func contains(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
