// Package resolver implements the C8 Resolver (spec.md §4.8): the
// per-request pipeline from raw query to ranked matches. It is pure
// except for the Candidate Store read — cache read/write happens at a
// higher layer (internal/cache), per §4.8's own note.
package resolver

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sentrix/idxr-engine/internal/coreerr"
	"github.com/sentrix/idxr-engine/internal/edgecase"
	"github.com/sentrix/idxr-engine/internal/ensemble"
	"github.com/sentrix/idxr-engine/internal/match"
	"github.com/sentrix/idxr-engine/internal/normalize"
	"github.com/sentrix/idxr-engine/internal/quality"
	"github.com/sentrix/idxr-engine/internal/store"
	"github.com/sentrix/idxr-engine/pkg/models"
)

// autoShortCircuitConfidence is the default for match.auto_threshold
// (§6): an exact match at or above this, with corroboration not
// required, skips the remaining matchers entirely.
const autoShortCircuitConfidence = 0.95

// Resolver wires the Candidate Store, the five matchers, and the
// Ensemble into the §4.8 pipeline.
type Resolver struct {
	Store         store.CandidateStore
	Exact         match.Matcher
	Deterministic match.Matcher
	Probabilistic match.Matcher
	Fuzzy         match.Matcher
	Hybrid        match.Hybrid

	Weights       map[models.MatchType]float64
	AutoThreshold float64
	MinConfidence float64
	MaxResults    int
}

// New builds a Resolver with the default matcher catalogue. weights,
// autoThreshold, minConfidence, and maxResults come from
// internal/config and fall back to their package defaults when zero.
func New(st store.CandidateStore, hybrid match.Hybrid, weights map[models.MatchType]float64, autoThreshold, minConfidence float64, maxResults int) *Resolver {
	if autoThreshold <= 0 {
		autoThreshold = autoShortCircuitConfidence
	}
	if minConfidence <= 0 {
		minConfidence = ensemble.DefaultMinConfidence
	}
	if maxResults <= 0 {
		maxResults = ensemble.DefaultMaxResults
	}
	if weights == nil {
		weights = ensemble.DefaultWeights
	}
	return &Resolver{
		Store:         st,
		Exact:         match.Exact{},
		Deterministic: match.NewDeterministic(),
		Probabilistic: match.Probabilistic{},
		Fuzzy:         match.Fuzzy{},
		Hybrid:        hybrid,
		Weights:       weights,
		AutoThreshold: autoThreshold,
		MinConfidence: minConfidence,
		MaxResults:    maxResults,
	}
}

// Resolve runs one request through normalize → quality → lookup →
// matchers → ensemble (§4.8 steps 1-6).
func (r *Resolver) Resolve(ctx context.Context, query models.IdentityRecord, opts models.ResolveOptions) models.MatchResult {
	start := time.Now()
	now := start

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	norm := normalize.Record(query, now)
	qa := quality.Assess(norm.Record, norm.Issues, models.DepthStandard)

	candidates, err := r.Store.Lookup(ctx, norm.Record)
	if err != nil {
		return models.MatchResult{
			CorrelationID:    opts.CorrelationID,
			Status:           models.StatusError,
			ProcessingTimeMs: elapsedMs(start),
			Error:            coreerr.Wrap(coreerr.DependencyUnavailable, "candidate store lookup failed", err).Error(),
		}
	}

	edge := edgecase.Detect(norm.Record, candidates, 0, now)

	exactCands, _ := r.Exact.Match(norm.Record, candidates)

	all := append([]models.MatchCandidate{}, exactCands...)

	if !shortCircuits(exactCands, r.AutoThreshold, opts.RequireHighConfidence) {
		more, _ := r.runRemainingMatchers(ctx, norm.Record, candidates)
		if ctx.Err() != nil {
			return models.MatchResult{
				CorrelationID:    opts.CorrelationID,
				Status:           models.StatusError,
				ProcessingTimeMs: elapsedMs(start),
				Error:            coreerr.New(coreerr.Timeout, "resolution deadline exceeded").Error(),
			}
		}
		all = append(all, more...)
	}

	threshold := opts.MatchThreshold
	if threshold <= 0 {
		threshold = r.MinConfidence
	}
	maxResults := opts.MaxMatches
	if maxResults <= 0 {
		maxResults = r.MaxResults
	}

	matches := ensemble.Resolve(all, qa.Score, edge.Flags, ensemble.Options{
		Weights:       r.Weights,
		MinConfidence: threshold,
		MaxResults:    maxResults,
	})

	status := models.StatusSuccess
	if len(matches) == 0 {
		status = models.StatusNoMatch
	}

	return models.MatchResult{
		CorrelationID:    opts.CorrelationID,
		Status:           status,
		Matches:          matches,
		ProcessingTimeMs: elapsedMs(start),
		Diagnostics: models.ScoreDiagnostics{
			QualityScore: qa.Score,
			EdgeFlags:    edge.Flags,
		},
	}
}

// runRemainingMatchers fans deterministic, probabilistic, fuzzy, and
// hybrid matching out concurrently and waits for all four. Only the
// hybrid matcher receives ctx; Resolve checks ctx's deadline once they
// have returned.
func (r *Resolver) runRemainingMatchers(ctx context.Context, query models.IdentityRecord, candidates []models.StoredIdentity) ([]models.MatchCandidate, error) {
	g, gctx := errgroup.WithContext(ctx)

	var detCands, probCands, fuzzyCands, hybridCands []models.MatchCandidate

	g.Go(func() error {
		detCands, _ = r.Deterministic.Match(query, candidates)
		return nil
	})
	g.Go(func() error {
		probCands, _ = r.Probabilistic.Match(query, candidates)
		return nil
	})
	g.Go(func() error {
		fuzzyCands, _ = r.Fuzzy.Match(query, candidates)
		return nil
	})
	g.Go(func() error {
		hybridCands, _ = r.Hybrid.Match(gctx, query, candidates)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]models.MatchCandidate, 0, len(detCands)+len(probCands)+len(fuzzyCands)+len(hybridCands))
	out = append(out, detCands...)
	out = append(out, probCands...)
	out = append(out, fuzzyCands...)
	out = append(out, hybridCands...)
	return out, nil
}

// shortCircuits implements §4.8 step 4: an exact match at or above
// autoThreshold, with corroboration not required, skips the rest.
func shortCircuits(exactCands []models.MatchCandidate, autoThreshold float64, requireHighConfidence bool) bool {
	if requireHighConfidence {
		return false
	}
	for _, c := range exactCands {
		if c.Confidence >= autoThreshold {
			return true
		}
	}
	return false
}

func elapsedMs(start time.Time) float64 {
	return float64(time.Since(start)) / float64(time.Millisecond)
}
