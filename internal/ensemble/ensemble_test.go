package ensemble

import (
	"testing"

	"github.com/sentrix/idxr-engine/pkg/models"
)

func TestResolveCombinesByIdentityKey(t *testing.T) {
	candidates := []models.MatchCandidate{
		{IdentityKey: "IDX1", Confidence: 0.9, MatchType: models.MatchTypeExact, MatchedFields: []string{"taxpayerId"}},
		{IdentityKey: "IDX1", Confidence: 0.8, MatchType: models.MatchTypeProbabilistic, MatchedFields: []string{"dateOfBirth"}},
	}

	out := Resolve(candidates, 100, nil, Options{})
	if len(out) != 1 {
		t.Fatalf("Resolve() = %d groups, want 1", len(out))
	}
	if out[0].IdentityKey != "IDX1" {
		t.Errorf("IdentityKey = %v, want IDX1", out[0].IdentityKey)
	}
	if len(out[0].MatchedFields) != 2 {
		t.Errorf("MatchedFields = %v, want union of both", out[0].MatchedFields)
	}
}

func TestResolveAppliesQualityShaping(t *testing.T) {
	candidates := []models.MatchCandidate{
		{IdentityKey: "IDX1", Confidence: 1.0, MatchType: models.MatchTypeExact},
	}

	highQ := Resolve(candidates, 100, nil, Options{MinConfidence: 0})
	lowQ := Resolve(candidates, 0, nil, Options{MinConfidence: 0})

	if len(highQ) != 1 || len(lowQ) != 1 {
		t.Fatalf("expected one survivor at both quality levels")
	}
	if lowQ[0].Confidence >= highQ[0].Confidence {
		t.Errorf("lower quality should shape confidence down: low=%v high=%v", lowQ[0].Confidence, highQ[0].Confidence)
	}
}

func TestResolveAppliesEdgePenalty(t *testing.T) {
	candidates := []models.MatchCandidate{
		{IdentityKey: "IDX1", Confidence: 1.0, MatchType: models.MatchTypeExact},
	}

	clean := Resolve(candidates, 100, nil, Options{MinConfidence: 0})
	flagged := Resolve(candidates, 100, []string{"potential_twin_match"}, Options{MinConfidence: 0})

	if flagged[0].Confidence >= clean[0].Confidence {
		t.Errorf("edge flag should reduce confidence: flagged=%v clean=%v", flagged[0].Confidence, clean[0].Confidence)
	}
}

func TestResolveDropsBelowThreshold(t *testing.T) {
	candidates := []models.MatchCandidate{
		{IdentityKey: "IDX1", Confidence: 0.1, MatchType: models.MatchTypeFuzzy},
	}
	out := Resolve(candidates, 100, nil, Options{})
	if len(out) != 0 {
		t.Errorf("Resolve() = %d, want 0 below threshold", len(out))
	}
}

func TestResolveCapsAndSorts(t *testing.T) {
	var candidates []models.MatchCandidate
	for i := 0; i < 15; i++ {
		candidates = append(candidates, models.MatchCandidate{
			IdentityKey: string(rune('A' + i)),
			Confidence:  0.7 + float64(i)*0.001,
			MatchType:   models.MatchTypeExact,
		})
	}

	out := Resolve(candidates, 100, nil, Options{MinConfidence: 0})
	if len(out) != DefaultMaxResults {
		t.Fatalf("Resolve() = %d, want %d", len(out), DefaultMaxResults)
	}
	for i := 1; i < len(out); i++ {
		if out[i].Confidence > out[i-1].Confidence {
			t.Errorf("results not sorted descending at index %d", i)
		}
	}
}

func TestResolveConfidenceNeverExceedsCap(t *testing.T) {
	candidates := []models.MatchCandidate{
		{IdentityKey: "IDX1", Confidence: 1.0, MatchType: models.MatchTypeExact},
	}
	out := Resolve(candidates, 100, nil, Options{MinConfidence: 0})
	if out[0].Confidence > 0.99 {
		t.Errorf("Confidence = %v, want <= 0.99", out[0].Confidence)
	}
}
