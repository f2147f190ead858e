package config

import (
	"testing"

	"github.com/sentrix/idxr-engine/pkg/models"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.MatchThreshold != 0.85 {
		t.Errorf("MatchThreshold = %v, want 0.85", cfg.MatchThreshold)
	}
	if cfg.PoolWorkers != 4 {
		t.Errorf("PoolWorkers = %v, want 4", cfg.PoolWorkers)
	}
	if cfg.MatchWeights != nil {
		t.Errorf("MatchWeights = %v, want nil (fall back to ensemble defaults)", cfg.MatchWeights)
	}
}

func TestValidateKeysRejectsUnknown(t *testing.T) {
	settings := map[string]interface{}{
		"match": map[string]interface{}{
			"threshold": 0.9,
			"bogus":     "nope",
		},
	}
	if err := validateKeys(settings, ""); err == nil {
		t.Error("validateKeys() = nil, want error for unrecognized match.bogus")
	}
}

func TestValidateKeysAcceptsKnownNesting(t *testing.T) {
	settings := map[string]interface{}{
		"match": map[string]interface{}{
			"weights": map[string]interface{}{
				"exact": 0.4,
			},
		},
		"rate": map[string]interface{}{
			"global": map[string]interface{}{
				"limit": 10,
			},
		},
	}
	if err := validateKeys(settings, ""); err != nil {
		t.Errorf("validateKeys() = %v, want nil", err)
	}
}

func TestValidateWeightSumRejectsOffByTolerance(t *testing.T) {
	bad := map[models.MatchType]float64{models.MatchTypeExact: 0.5, models.MatchTypeFuzzy: 0.2}
	if err := validateWeightSum(bad); err == nil {
		t.Error("validateWeightSum() = nil, want error for sum 0.7")
	}

	good := map[models.MatchType]float64{models.MatchTypeExact: 0.6, models.MatchTypeFuzzy: 0.4}
	if err := validateWeightSum(good); err != nil {
		t.Errorf("validateWeightSum() = %v, want nil for sum 1.0", err)
	}
}
