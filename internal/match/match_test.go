package match

import (
	"context"
	"testing"

	"github.com/sentrix/idxr-engine/internal/embed"
	"github.com/sentrix/idxr-engine/pkg/models"
)

func sampleCandidate() models.StoredIdentity {
	return models.StoredIdentity{
		IdentityKey: "IDX001",
		Normalized: models.IdentityRecord{
			GivenName: "john", Surname: "doe", DateOfBirth: "1990-01-15",
			TaxpayerID: "123456789", Phone: "(555) 123-4567", Email: "john.doe@example.com",
			Address: models.Address{StreetName: "main st", City: "springfield", PostalCode: "62701"},
		},
	}
}

func TestExactMatchCounts(t *testing.T) {
	cand := sampleCandidate()
	query := models.IdentityRecord{TaxpayerID: "123456789", DateOfBirth: "1990-01-15"}

	out, _ := Exact{}.Match(query, []models.StoredIdentity{cand})
	if len(out) != 1 {
		t.Fatalf("Match() = %d candidates, want 1", len(out))
	}
	if out[0].Confidence != 2.0/3.0 {
		t.Errorf("Confidence = %v, want 2/3", out[0].Confidence)
	}
}

func TestExactNoFieldsNoEmit(t *testing.T) {
	cand := sampleCandidate()
	query := models.IdentityRecord{TaxpayerID: "999999999"}

	out, diags := Exact{}.Match(query, []models.StoredIdentity{cand})
	if len(out) != 0 {
		t.Errorf("Match() = %d candidates, want 0", len(out))
	}
	if len(diags) != 1 {
		t.Errorf("diagnostics = %d, want 1", len(diags))
	}
}

func TestDeterministicR1Fires(t *testing.T) {
	cand := sampleCandidate()
	query := models.IdentityRecord{TaxpayerID: "000006789", DateOfBirth: "1990-01-15"}

	out, _ := NewDeterministic().Match(query, []models.StoredIdentity{cand})
	if len(out) != 1 {
		t.Fatalf("Match() = %d candidates, want 1", len(out))
	}
	if out[0].Confidence < 0.6 {
		t.Errorf("Confidence = %v, want >= 0.6", out[0].Confidence)
	}
}

func TestDeterministicBelowThresholdNoEmit(t *testing.T) {
	cand := sampleCandidate()
	query := models.IdentityRecord{GivenName: "someone", Surname: "else"}

	out, _ := NewDeterministic().Match(query, []models.StoredIdentity{cand})
	if len(out) != 0 {
		t.Errorf("Match() = %d candidates, want 0", len(out))
	}
}

func TestProbabilisticEmitsAboveThreshold(t *testing.T) {
	cand := sampleCandidate()
	query := models.IdentityRecord{
		GivenName: "john", Surname: "doe", DateOfBirth: "1990-01-15", TaxpayerID: "123456789",
	}

	out, _ := Probabilistic{}.Match(query, []models.StoredIdentity{cand})
	if len(out) != 1 {
		t.Fatalf("Match() = %d candidates, want 1", len(out))
	}
	if out[0].Confidence < 0.75 {
		t.Errorf("Confidence = %v, want >= 0.75", out[0].Confidence)
	}
}

func TestFuzzyConfidenceCapped(t *testing.T) {
	cand := sampleCandidate()
	query := models.IdentityRecord{
		GivenName: "jon", Surname: "doe", DateOfBirth: "1990-01-15", TaxpayerID: "123456789",
		Phone: "(555) 123-4567", Email: "john.doe@example.com",
		Address: models.Address{StreetName: "main st", City: "springfield", PostalCode: "62701"},
	}

	out, _ := Fuzzy{}.Match(query, []models.StoredIdentity{cand})
	if len(out) != 1 {
		t.Fatalf("Match() = %d candidates, want 1", len(out))
	}
	if out[0].Confidence > fuzzyConfidenceCap {
		t.Errorf("Confidence = %v, want <= %v", out[0].Confidence, fuzzyConfidenceCap)
	}
}

func TestHybridDegradesSemanticOnEmbedderError(t *testing.T) {
	cand := sampleCandidate()
	query := models.IdentityRecord{TaxpayerID: "123456789", DateOfBirth: "1990-01-15", GivenName: "john", Surname: "doe"}

	h := NewHybrid(embed.NoopEmbedder{})
	out, _ := h.Match(context.Background(), query, []models.StoredIdentity{cand})
	if len(out) != 1 {
		t.Fatalf("Match() = %d candidates, want 1", len(out))
	}
	if semantic, ok := out[0].Detail["semantic"].(float64); !ok || semantic != 0 {
		t.Errorf("semantic component = %v, want 0 when Embedder unavailable", out[0].Detail["semantic"])
	}
}
