package household

import (
	"testing"
	"time"

	"github.com/sentrix/idxr-engine/internal/metrics"
	"github.com/sentrix/idxr-engine/pkg/models"
)

func addr() models.Address {
	return models.Address{StreetNumber: "100", StreetName: "Main St", PostalCode: "80202"}
}

func contains(groups []models.HouseholdGroup, headID string) (models.HouseholdGroup, bool) {
	for _, g := range groups {
		if g.HeadIdentityKey == headID {
			return g, true
		}
	}
	return models.HouseholdGroup{}, false
}

func TestSingleMemberAddressIsNotAGroup(t *testing.T) {
	now := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	candidates := []Candidate{
		{IdentityKey: "a", Record: models.IdentityRecord{Surname: "Smith", DateOfBirth: "1980-01-01", Address: addr()}},
	}
	got := Analyze(candidates, now)
	if len(got) != 0 {
		t.Fatalf("expected no groups for a single-member address, got %d", len(got))
	}
}

func TestRecordsWithNoAddressAreNeverGrouped(t *testing.T) {
	now := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	candidates := []Candidate{
		{IdentityKey: "a", Record: models.IdentityRecord{Surname: "Smith", DateOfBirth: "1980-01-01"}},
		{IdentityKey: "b", Record: models.IdentityRecord{Surname: "Smith", DateOfBirth: "1982-01-01"}},
	}
	got := Analyze(candidates, now)
	if len(got) != 0 {
		t.Fatalf("expected no groups without addresses, got %d", len(got))
	}
}

func TestOldestAdultBecomesHead(t *testing.T) {
	now := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	candidates := []Candidate{
		{IdentityKey: "child", Record: models.IdentityRecord{Surname: "Lee", DateOfBirth: "2015-01-01", Address: addr()}},
		{IdentityKey: "parent", Record: models.IdentityRecord{Surname: "Lee", DateOfBirth: "1985-01-01", Address: addr()}},
	}
	groups := Analyze(candidates, now)
	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
	g := groups[0]
	if g.HeadIdentityKey != "parent" {
		t.Errorf("head = %s, want parent", g.HeadIdentityKey)
	}
	if !g.HasChildren {
		t.Error("expected HasChildren = true")
	}
	for _, m := range g.Members {
		if m.IdentityKey == "child" {
			if m.Relationship != models.RelChild {
				t.Errorf("child relationship = %s, want child", m.Relationship)
			}
			if m.GuardianKey != "parent" {
				t.Errorf("child guardian = %s, want parent", m.GuardianKey)
			}
		}
	}
}

func TestSpouseRequiresBothAdultsWithinFifteenYears(t *testing.T) {
	now := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	candidates := []Candidate{
		{IdentityKey: "a", Record: models.IdentityRecord{Surname: "Ng", DateOfBirth: "1980-01-01", Address: addr()}},
		{IdentityKey: "b", Record: models.IdentityRecord{Surname: "Park", DateOfBirth: "1985-01-01", Address: addr()}},
	}
	groups := Analyze(candidates, now)
	g, ok := contains(groups, "a")
	if !ok {
		t.Fatalf("expected a group headed by a")
	}
	for _, m := range g.Members {
		if m.IdentityKey == "b" && m.Relationship != models.RelSpouse {
			t.Errorf("relationship = %s, want spouse", m.Relationship)
		}
	}
}

func TestAllMinorHouseholdPicksOldestAsHeadRegardless(t *testing.T) {
	now := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	candidates := []Candidate{
		{IdentityKey: "teen", Record: models.IdentityRecord{Surname: "Diaz", DateOfBirth: "2012-01-01", Address: addr()}},
		{IdentityKey: "kid", Record: models.IdentityRecord{Surname: "Diaz", DateOfBirth: "2018-01-01", Address: addr()}},
	}
	groups := Analyze(candidates, now)
	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
	if groups[0].HeadIdentityKey != "teen" {
		t.Errorf("head = %s, want teen (oldest member of an all-minor household)", groups[0].HeadIdentityKey)
	}
}

func TestGrandparentDeltaAtLeastForty(t *testing.T) {
	now := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	candidates := []Candidate{
		{IdentityKey: "grandparent", Record: models.IdentityRecord{Surname: "Ito", DateOfBirth: "1950-01-01", Address: addr()}},
		{IdentityKey: "grandchild", Record: models.IdentityRecord{Surname: "Ito", DateOfBirth: "2010-01-01", Address: addr()}},
	}
	groups := Analyze(candidates, now)
	g, ok := contains(groups, "grandparent")
	if !ok {
		t.Fatalf("expected a group headed by grandparent")
	}
	for _, m := range g.Members {
		if m.IdentityKey == "grandchild" && m.Relationship != models.RelGrandchild {
			t.Errorf("relationship = %s, want grandchild", m.Relationship)
		}
	}
}

// TestAnalyzeAgreesWithGroundTruthPartition checks Analyze's address
// clustering against a labeled partition using the Adjusted Rand Index,
// the same agreement measure internal/shadow uses to compare resolver
// configurations. Two independent addresses must separate completely.
func TestAnalyzeAgreesWithGroundTruthPartition(t *testing.T) {
	now := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	otherAddr := models.Address{StreetNumber: "200", StreetName: "Oak Ave", PostalCode: "80203"}

	candidates := []Candidate{
		{IdentityKey: "a1", Record: models.IdentityRecord{Surname: "Lee", DateOfBirth: "1975-01-01", Address: addr()}},
		{IdentityKey: "a2", Record: models.IdentityRecord{Surname: "Lee", DateOfBirth: "2005-01-01", Address: addr()}},
		{IdentityKey: "b1", Record: models.IdentityRecord{Surname: "Park", DateOfBirth: "1980-01-01", Address: otherAddr}},
		{IdentityKey: "b2", Record: models.IdentityRecord{Surname: "Park", DateOfBirth: "2008-01-01", Address: otherAddr}},
	}
	groups := Analyze(candidates, now)
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}

	predicted := make(metrics.Partition)
	for _, g := range groups {
		label := g.HeadIdentityKey
		predicted[g.HeadIdentityKey] = label
		for _, m := range g.Members {
			predicted[m.IdentityKey] = label
		}
	}

	groundTruth := metrics.Partition{
		"a1": "household-a", "a2": "household-a",
		"b1": "household-b", "b2": "household-b",
	}

	ari := metrics.AdjustedRandIndex(predicted, groundTruth)
	if ari < 0.99 {
		t.Errorf("expected Analyze's grouping to agree perfectly with the address partition, ARI = %f", ari)
	}
}
