package similarity

import (
	"testing"

	"github.com/sentrix/idxr-engine/pkg/models"
)

func TestDateOfBirthDecay(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"equal", "1990-01-15", "1990-01-15", 1.0},
		{"within week", "1990-01-15", "1990-01-20", 0.9},
		{"within month", "1990-01-15", "1990-02-10", 0.7},
		{"within year", "1990-01-15", "1990-11-01", 0.3},
		{"far apart", "1990-01-15", "2000-01-15", 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DateOfBirth(tt.a, tt.b)
			if got != tt.want {
				t.Errorf("DateOfBirth(%q,%q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestUnknownVsUnknownIsZero(t *testing.T) {
	if DateOfBirth("", "") != 0 {
		t.Errorf("DateOfBirth(\"\",\"\") should be 0")
	}
	if Phone("", "") != 0 {
		t.Errorf("Phone(\"\",\"\") should be 0")
	}
	if Email("", "") != 0 {
		t.Errorf("Email(\"\",\"\") should be 0")
	}
	if LevenshteinRatio("", "") != 0 {
		t.Errorf("LevenshteinRatio(\"\",\"\") should be 0")
	}
}

func TestAddressRequiresMatchingPostal(t *testing.T) {
	a := models.Address{StreetName: "Main St", City: "Denver", PostalCode: "80202"}
	b := models.Address{StreetName: "Main St", City: "Denver", PostalCode: "80203"}
	if Address(a, b) != 0 {
		t.Errorf("Address() with differing postal codes should be 0")
	}

	c := models.Address{StreetName: "Main St", City: "Denver", PostalCode: "80202"}
	if got := Address(a, c); got != 1.0 {
		t.Errorf("Address() identical = %v, want 1.0", got)
	}
}

func TestPhoneSuffixMatch(t *testing.T) {
	if got := Phone("(303) 555-0100", "(720) 555-0100"); got != 0.8 {
		t.Errorf("Phone() last-7-digit match = %v, want 0.8", got)
	}
}

func TestSoundex(t *testing.T) {
	if Soundex("Robert") != Soundex("Rupert") {
		t.Errorf("Soundex(Robert) should equal Soundex(Rupert)")
	}
	if Soundex("John") == Soundex("Mary") {
		t.Errorf("Soundex(John) should not equal Soundex(Mary)")
	}
}

func TestJaroWinklerNicknameVariant(t *testing.T) {
	got := JaroWinkler("johnny", "john")
	if got < 0.7 {
		t.Errorf("JaroWinkler(johnny,john) = %v, want >= 0.7", got)
	}
}
