package batch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sentrix/idxr-engine/internal/normalize"
	"github.com/sentrix/idxr-engine/internal/quality"
	"github.com/sentrix/idxr-engine/internal/resolver"
	"github.com/sentrix/idxr-engine/pkg/models"
)

// defaultMatchThreshold, defaultDedupeThreshold, and
// defaultMinQuality are the §4.12 per-job-type defaults applied when a
// job's Config omits the corresponding key.
const (
	defaultMatchThreshold  = 0.85
	defaultDedupeThreshold = 0.85
	defaultMinQuality      = 70.0
)

// processor runs one record through the policy for a job's type and
// reports whether the record counts as successful (§4.12, §8.1 #5).
// It never panics out to the caller: every per-job-type branch is
// expected to fail soft into an error-status RecordOutcome, the same
// "matcher catches its own exceptions" shape spec.md §7 requires of C6.
type processor struct {
	resolver *resolver.Resolver
}

func newProcessor(r *resolver.Resolver) *processor {
	return &processor{resolver: r}
}

func (p *processor) process(ctx context.Context, jobType models.JobType, recordID string, rec models.IdentityRecord, cfg map[string]interface{}) (models.RecordOutcome, bool) {
	switch jobType {
	case models.JobTypeIdentityMatching:
		return p.matchRecord(ctx, recordID, rec, cfg)
	case models.JobTypeDeduplication:
		return p.dedupeRecord(ctx, recordID, rec, cfg)
	case models.JobTypeDataValidation:
		return p.validateRecord(recordID, rec, cfg)
	case models.JobTypeDataQuality:
		return p.qualityRecord(recordID, rec, cfg)
	case models.JobTypeHouseholdDetect:
		return p.householdRecord(recordID, rec)
	case models.JobTypeBulkExport:
		return p.exportRecord(recordID, rec, cfg)
	default:
		return errOutcome(recordID, fmt.Sprintf("unrecognized job type %q", jobType)), false
	}
}

func (p *processor) matchRecord(ctx context.Context, recordID string, rec models.IdentityRecord, cfg map[string]interface{}) (models.RecordOutcome, bool) {
	threshold := floatConfig(cfg, "match_threshold", defaultMatchThreshold)
	requireHighConfidence, _ := cfg["require_hybrid_corroboration"].(bool)

	result := p.resolver.Resolve(ctx, rec, models.ResolveOptions{
		MatchThreshold:        threshold,
		MaxMatches:            1,
		RequireHighConfidence: requireHighConfidence,
		CorrelationID:         recordID,
	})
	if result.Status == models.StatusError {
		return errOutcome(recordID, result.Error), false
	}
	if len(result.Matches) == 0 {
		return models.RecordOutcome{RecordID: recordID, Status: "no_match"}, true
	}
	top := result.Matches[0]
	conf := top.Confidence
	return models.RecordOutcome{
		RecordID:   recordID,
		IdentityID: top.IdentityKey,
		Confidence: &conf,
		MatchType:  string(top.MatchType),
		Status:     "matched",
	}, true
}

func (p *processor) dedupeRecord(ctx context.Context, recordID string, rec models.IdentityRecord, cfg map[string]interface{}) (models.RecordOutcome, bool) {
	threshold := floatConfig(cfg, "similarity_threshold", defaultDedupeThreshold)

	result := p.resolver.Resolve(ctx, rec, models.ResolveOptions{
		MatchThreshold: threshold,
		CorrelationID:  recordID,
	})
	if result.Status == models.StatusError {
		return errOutcome(recordID, result.Error), false
	}
	if len(result.Matches) == 0 {
		return models.RecordOutcome{RecordID: recordID, Status: "unique"}, true
	}
	// §4.12: emit the group with its highest-confidence survivor; the
	// Ensemble (C7) has already sorted matches descending (invariant 3).
	survivor := result.Matches[0]
	conf := survivor.Confidence
	dupeKeys := make([]string, 0, len(result.Matches)-1)
	for _, m := range result.Matches[1:] {
		dupeKeys = append(dupeKeys, m.IdentityKey)
	}
	return models.RecordOutcome{
		RecordID:   recordID,
		IdentityID: survivor.IdentityKey,
		Confidence: &conf,
		MatchType:  string(survivor.MatchType),
		Status:     "duplicate_group",
		Details:    map[string]interface{}{"duplicateOf": dupeKeys},
	}, true
}

func (p *processor) validateRecord(recordID string, rec models.IdentityRecord, cfg map[string]interface{}) (models.RecordOutcome, bool) {
	depth := depthConfig(cfg, "validation_depth", models.DepthStandard)
	minQuality := floatConfig(cfg, "min_quality_threshold", defaultMinQuality)

	norm := normalize.Record(rec, time.Now())
	qa := quality.Assess(norm.Record, norm.Issues, depth)

	status := "valid"
	ok := qa.Score >= minQuality
	if !ok {
		status = "invalid"
	}
	return models.RecordOutcome{
		RecordID: recordID,
		Status:   status,
		Details: map[string]interface{}{
			"qualityScore": qa.Score,
			"bucket":       qa.Bucket,
			"issues":       qa.Issues,
		},
	}, ok
}

func (p *processor) qualityRecord(recordID string, rec models.IdentityRecord, cfg map[string]interface{}) (models.RecordOutcome, bool) {
	depth := depthConfig(cfg, "validation_depth", models.DepthStandard)
	now := time.Now()

	before := quality.Assess(rec, nil, depth)
	norm := normalize.Record(rec, now)
	after := quality.Assess(norm.Record, norm.Issues, depth)

	return models.RecordOutcome{
		RecordID: recordID,
		Status:   "rewritten",
		Details: map[string]interface{}{
			"qualityBefore":     before.Score,
			"qualityAfter":      after.Score,
			"completenessDelta": after.Score - before.Score,
			"recommendations":   after.Recommendations,
		},
	}, true
}

func (p *processor) householdRecord(recordID string, rec models.IdentityRecord) (models.RecordOutcome, bool) {
	age, hasAge := normalize.Age(rec.DateOfBirth, time.Now())
	lifeStage := "unknown"
	if hasAge {
		switch {
		case age < 2:
			lifeStage = "infant"
		case age < 13:
			lifeStage = "child"
		case age < 18:
			lifeStage = "teenager"
		case age < 65:
			lifeStage = "adult"
		default:
			lifeStage = "elderly"
		}
	}

	hasFullAddress := rec.Address.StreetNumber != "" && rec.Address.StreetName != "" && rec.Address.PostalCode != ""
	hasContact := rec.Phone != "" || rec.Email != ""

	confidence := 0.0
	if hasFullAddress {
		confidence += 0.6
	}
	if hasAge {
		confidence += 0.25
	}
	if hasContact {
		confidence += 0.15
	}

	return models.RecordOutcome{
		RecordID: recordID,
		Status:   "classified",
		Details: map[string]interface{}{
			"addressClass": classifyAddress(rec.Address),
			"lifeStage":    lifeStage,
			"confidence":   confidence,
		},
	}, true
}

func (p *processor) exportRecord(recordID string, rec models.IdentityRecord, cfg map[string]interface{}) (models.RecordOutcome, bool) {
	anonymized := anonymize(rec)
	fields := renameFields(anonymized, stringMapConfig(cfg, "field_mapping"))

	details := map[string]interface{}{"fields": fields}
	if meta, ok := cfg["include_metadata"].(bool); ok && meta {
		details["metadata"] = rec.Metadata
	}
	return models.RecordOutcome{RecordID: recordID, Status: "exported", Details: details}, true
}

// classifyAddress buckets an address into the four §4.12
// household-detection classes.
func classifyAddress(a models.Address) string {
	street := strings.ToLower(a.StreetName)
	switch {
	case strings.Contains(street, "po box") || strings.Contains(street, "p.o. box"):
		return "po_box"
	case a.Unit != "":
		return "apartment"
	case strings.Contains(street, "rural route") || strings.Contains(street, "rr "):
		return "rural"
	case a.StreetNumber != "":
		return "residential"
	default:
		return "unknown"
	}
}

// anonymize applies the §4.12 bulk-export masking rules.
func anonymize(rec models.IdentityRecord) models.IdentityRecord {
	out := rec
	if len(out.TaxpayerID) >= 4 {
		out.TaxpayerID = "***-**-" + out.TaxpayerID[len(out.TaxpayerID)-4:]
	}
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, out.Phone)
	if len(digits) == 11 && digits[0] == '1' {
		digits = digits[1:]
	}
	if len(digits) >= 3 {
		out.Phone = digits[:3] // area code only, display punctuation stripped
	}
	if at := strings.IndexByte(out.Email, '@'); at >= 0 {
		out.Email = out.Email[at+1:] // domain only
	}
	if out.Address.StreetName != "" || out.Address.StreetNumber != "" {
		out.Address = models.Address{City: out.Address.City, State: out.Address.State}
	}
	return out
}

// renameFields maps the anonymized record onto the requested output
// field names, defaulting to the canonical names when no mapping key
// is configured for a field.
func renameFields(rec models.IdentityRecord, mapping map[string]string) map[string]interface{} {
	canonical := map[string]interface{}{
		"givenName":   rec.GivenName,
		"surname":     rec.Surname,
		"dateOfBirth": rec.DateOfBirth,
		"taxpayerId":  rec.TaxpayerID,
		"phone":       rec.Phone,
		"email":       rec.Email,
		"city":        rec.Address.City,
		"state":       rec.Address.State,
	}
	if len(mapping) == 0 {
		return canonical
	}
	out := make(map[string]interface{}, len(canonical))
	for k, v := range canonical {
		name := k
		if renamed, ok := mapping[k]; ok {
			name = renamed
		}
		out[name] = v
	}
	return out
}

func errOutcome(recordID, msg string) models.RecordOutcome {
	return models.RecordOutcome{RecordID: recordID, Status: "error", Error: msg}
}

func floatConfig(cfg map[string]interface{}, key string, fallback float64) float64 {
	if v, ok := cfg[key]; ok {
		switch n := v.(type) {
		case float64:
			return n
		case int:
			return float64(n)
		}
	}
	return fallback
}

func depthConfig(cfg map[string]interface{}, key string, fallback models.ValidationDepth) models.ValidationDepth {
	if v, ok := cfg[key].(string); ok && v != "" {
		return models.ValidationDepth(v)
	}
	return fallback
}

func stringMapConfig(cfg map[string]interface{}, key string) map[string]string {
	raw, ok := cfg[key].(map[string]string)
	if !ok {
		return nil
	}
	return raw
}
