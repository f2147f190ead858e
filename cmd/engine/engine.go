package main

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/sentrix/idxr-engine/internal/audit"
	"github.com/sentrix/idxr-engine/internal/batch"
	"github.com/sentrix/idxr-engine/internal/cache"
	"github.com/sentrix/idxr-engine/internal/coreerr"
	"github.com/sentrix/idxr-engine/internal/normalize"
	"github.com/sentrix/idxr-engine/internal/pool"
	"github.com/sentrix/idxr-engine/internal/ratelimit"
	"github.com/sentrix/idxr-engine/internal/resolver"
	"github.com/sentrix/idxr-engine/internal/telemetry"
	"github.com/sentrix/idxr-engine/pkg/models"
)

// Engine wires every C9-C12 orchestration component around the C8
// Resolver into the request flow spec.md §2 describes: Rate Gate →
// Cache → Worker Pool → Resolver. It is the in-process equivalent of
// the inbound Resolve/Batch ports (§6); an external transport layer
// (out of scope here) would call straight through to it.
type Engine struct {
	gate     *ratelimit.Gate
	cache    *cache.Cache
	pool     *pool.Pool
	resolver *resolver.Resolver
	batch    *batch.Manager
	audit    audit.Sink
	metrics  *telemetry.Metrics
}

// NewEngine assembles an Engine from its already-constructed
// components; main wires concrete adapters (Postgres or in-memory
// store, GenAI or noop embedder) and hands them in here.
func NewEngine(gate *ratelimit.Gate, c *cache.Cache, p *pool.Pool, r *resolver.Resolver, b *batch.Manager, a audit.Sink, m *telemetry.Metrics) *Engine {
	return &Engine{gate: gate, cache: c, pool: p, resolver: r, batch: b, audit: a, metrics: m}
}

// RequestMeta carries the caller identity the rate gate needs (§4.10);
// it is the in-process stand-in for whatever the (out-of-scope)
// transport layer would extract from a request.
type RequestMeta struct {
	PeerID    string
	Endpoint  string
	UserAgent string
	Priority  pool.Priority
}

// Resolve runs one request through the full real-time path: rate
// admission, cache lookup (single-flight on miss), worker-pool
// dispatch, and the Resolver itself (§2, §4.8-§4.11).
func (e *Engine) Resolve(ctx context.Context, meta RequestMeta, query models.IdentityRecord, opts models.ResolveOptions) (models.MatchResult, error) {
	if opts.CorrelationID == "" {
		opts.CorrelationID = uuid.NewString()
	}

	decision := e.gate.Admit(meta.PeerID, meta.Endpoint, meta.UserAgent)
	if !decision.Allowed {
		e.metrics.RateLimited.WithLabelValues(decision.LimitScope).Inc()
		e.audit.Record(audit.Event{Kind: "rate_limited", CorrelationID: opts.CorrelationID, Actor: meta.PeerID})
		return models.MatchResult{}, coreerr.New(coreerr.RateLimited, "rate limit exceeded")
	}

	key := cache.Fingerprint(normalize.Record(query, time.Now()).Record)

	deadline := time.Now().Add(30 * time.Second)
	if opts.Timeout > 0 {
		deadline = time.Now().Add(opts.Timeout)
	}

	type outcome struct {
		result models.MatchResult
		err    error
	}
	done := make(chan outcome, 1)

	submitErr := e.pool.Submit(pool.Task{
		Priority: meta.Priority,
		Deadline: deadline,
		Run: func(taskCtx context.Context) (interface{}, error) {
			missed := false
			result, err := e.cache.GetOrCompute(taskCtx, key, func(innerCtx context.Context) (models.MatchResult, error) {
				missed = true
				e.metrics.CacheMisses.Inc()
				return e.resolver.Resolve(innerCtx, query, opts), nil
			})
			if !missed {
				e.metrics.CacheHits.Inc()
			}
			if err == nil {
				e.metrics.ResolveLatency.Observe(result.ProcessingTimeMs)
			}
			return result, err
		},
		Callback: func(result interface{}, err error) {
			if err != nil {
				done <- outcome{err: err}
				return
			}
			done <- outcome{result: result.(models.MatchResult)}
		},
	}, 200*time.Millisecond)
	if submitErr != nil {
		return models.MatchResult{}, submitErr
	}

	select {
	case o := <-done:
		e.audit.Record(audit.Event{Kind: "resolve", CorrelationID: opts.CorrelationID, Actor: meta.PeerID, Payload: map[string]interface{}{"status": string(o.result.Status)}})
		return o.result, o.err
	case <-ctx.Done():
		return models.MatchResult{}, coreerr.New(coreerr.Timeout, "caller context cancelled")
	}
}

// Submit, Status, Pause, Resume, Cancel, Results, and Export pass
// straight through to the Batch Job Manager (C12, §6 "Inbound port —
// Batch"). They are thin on purpose: Engine's job here is wiring, not
// re-implementing the manager's state machine.

func (e *Engine) SubmitBatch(spec batch.Submission) (string, error) { return e.batch.Submit(spec) }

func (e *Engine) BatchStatus(jobID string) (models.BatchJob, error) { return e.batch.Status(jobID) }

func (e *Engine) PauseBatch(jobID string) error { return e.batch.Pause(jobID) }

func (e *Engine) ResumeBatch(jobID string) error { return e.batch.Resume(jobID) }

func (e *Engine) CancelBatch(jobID string) error { return e.batch.Cancel(jobID) }

func (e *Engine) BatchResults(ctx context.Context, jobID string, page, limit int, statusFilter string) ([]models.RecordOutcome, int, error) {
	return e.batch.Results(ctx, jobID, page, limit, statusFilter)
}

func (e *Engine) ExportBatch(ctx context.Context, jobID string, format batch.ExportFormat) ([]byte, error) {
	return e.batch.Export(ctx, jobID, format)
}

// Shutdown joins the worker pool, stops the batch scheduler from
// accepting new jobs, and flushes the audit sink.
func (e *Engine) Shutdown() {
	e.pool.Shutdown()
	e.batch.Shutdown()
	if s, ok := e.audit.(*audit.AsyncLogSink); ok {
		s.Stop()
	}
}
