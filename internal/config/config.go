// Package config loads engine configuration via viper (spec.md §6),
// enumerating the recognized key set and rejecting anything outside
// it — the redesign note's "large config objects with defaults"
// replaced by a closed, validated schema (§9).
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/sentrix/idxr-engine/pkg/models"
)

// Config is the resolved, validated configuration for one engine
// instance.
type Config struct {
	MatchThreshold        float64
	MatchAutoThreshold    float64
	MatchMaxResults       int
	MatchAlgorithms       []string
	MatchWeights          map[models.MatchType]float64
	CacheTTLSeconds        int
	CacheSize              int
	PoolWorkers            int
	PoolQueue              int
	RateGlobal             RateSpec
	RateClient             RateSpec
	RateEndpoint           RateSpec
	RateWhitelist          []string
}

// RateSpec is a (limit, window, burst) tuple for one rate-gate scope (§6).
type RateSpec struct {
	Limit        int
	WindowSecond int
	Burst        int
}

// recognizedKeys enumerates every key §6 names. Anything else found in
// the loaded config is an error, not a silently-ignored extra.
var recognizedKeys = map[string]bool{
	"match.threshold":      true,
	"match.auto_threshold": true,
	"match.max_results":    true,
	"match.algorithms":     true,
	"match.weights":        true,
	"cache.ttl_s":          true,
	"cache.size":           true,
	"pool.workers":         true,
	"pool.queue":           true,
	"rate.global":          true,
	"rate.client":          true,
	"rate.endpoint":        true,
	"rate.whitelist":       true,
}

func defaults() *viper.Viper {
	v := viper.New()
	v.SetDefault("match.threshold", 0.85)
	v.SetDefault("match.auto_threshold", 0.95)
	v.SetDefault("match.max_results", 10)
	v.SetDefault("match.algorithms", []string{"exact", "deterministic", "probabilistic", "fuzzy", "ai-hybrid"})
	v.SetDefault("cache.ttl_s", 300)
	v.SetDefault("cache.size", 10000)
	v.SetDefault("pool.workers", 4)
	v.SetDefault("pool.queue", 256)
	v.SetDefault("rate.global.limit", 10000)
	v.SetDefault("rate.global.window_s", 1)
	v.SetDefault("rate.global.burst", 0)
	v.SetDefault("rate.client.limit", 10)
	v.SetDefault("rate.client.window_s", 1)
	v.SetDefault("rate.client.burst", 0)
	v.SetDefault("rate.endpoint.limit", 1000)
	v.SetDefault("rate.endpoint.window_s", 1)
	v.SetDefault("rate.endpoint.burst", 0)
	return v
}

// Load reads configuration from the given file (if non-empty), layers
// environment variables prefixed IDXR_, and validates every key
// present in the file against recognizedKeys before resolving
// defaults.
func Load(configPath string) (Config, error) {
	v := defaults()
	v.SetEnvPrefix("IDXR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: reading %s: %w", configPath, err)
		}
		if err := validateKeys(v.AllSettings(), ""); err != nil {
			return Config{}, err
		}
	}

	weights := map[models.MatchType]float64{
		models.MatchTypeExact:         v.GetFloat64("match.weights.exact"),
		models.MatchTypeDeterministic: v.GetFloat64("match.weights.deterministic"),
		models.MatchTypeProbabilistic: v.GetFloat64("match.weights.probabilistic"),
		models.MatchTypeFuzzy:         v.GetFloat64("match.weights.fuzzy"),
		models.MatchTypeAIHybrid:      v.GetFloat64("match.weights.ai-hybrid"),
	}
	if allZero(weights) {
		weights = nil // caller falls back to ensemble.DefaultWeights
	} else if err := validateWeightSum(weights); err != nil {
		return Config{}, err
	}

	cfg := Config{
		MatchThreshold:     v.GetFloat64("match.threshold"),
		MatchAutoThreshold: v.GetFloat64("match.auto_threshold"),
		MatchMaxResults:    v.GetInt("match.max_results"),
		MatchAlgorithms:    v.GetStringSlice("match.algorithms"),
		MatchWeights:       weights,
		CacheTTLSeconds:    v.GetInt("cache.ttl_s"),
		CacheSize:          v.GetInt("cache.size"),
		PoolWorkers:        v.GetInt("pool.workers"),
		PoolQueue:          v.GetInt("pool.queue"),
		RateGlobal:         rateSpec(v, "rate.global"),
		RateClient:         rateSpec(v, "rate.client"),
		RateEndpoint:       rateSpec(v, "rate.endpoint"),
		RateWhitelist:      v.GetStringSlice("rate.whitelist"),
	}
	return cfg, nil
}

func rateSpec(v *viper.Viper, prefix string) RateSpec {
	return RateSpec{
		Limit:        v.GetInt(prefix + ".limit"),
		WindowSecond: v.GetInt(prefix + ".window_s"),
		Burst:        v.GetInt(prefix + ".burst"),
	}
}

func allZero(w map[models.MatchType]float64) bool {
	for _, v := range w {
		if v != 0 {
			return false
		}
	}
	return true
}

func validateWeightSum(w map[models.MatchType]float64) error {
	var sum float64
	for _, v := range w {
		sum += v
	}
	if sum < 0.99 || sum > 1.01 {
		return fmt.Errorf("config: match.weights.* must sum to 1.0 +/- 0.01, got %v", sum)
	}
	return nil
}

// validateKeys walks the nested settings map and rejects any
// top.second key pair (e.g. "match.threshold") not present in
// recognizedKeys. A third level (e.g. "match.weights.exact") is
// accepted once its two-level parent is recognized, since weight and
// rate-spec keys fan out per matcher / per scope.
func validateKeys(settings map[string]interface{}, prefix string) error {
	for k, v := range settings {
		full := k
		if prefix != "" {
			full = prefix + "." + k
		}
		depth := strings.Count(full, ".") + 1

		if nested, ok := v.(map[string]interface{}); ok && depth < 2 {
			if err := validateKeys(nested, full); err != nil {
				return err
			}
			continue
		}

		if depth >= 2 {
			parts := strings.SplitN(full, ".", 3)
			twoLevel := parts[0] + "." + parts[1]
			if !recognizedKeys[twoLevel] {
				return fmt.Errorf("config: unrecognized key %q", full)
			}
			continue
		}

		return fmt.Errorf("config: unrecognized key %q", full)
	}
	return nil
}
