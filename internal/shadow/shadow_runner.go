// Package shadow runs an experimental Resolver configuration
// side-by-side with the production one, against the same queries,
// without the experimental result ever reaching a caller. It exists
// for evaluating a candidate change to match weights, thresholds, or
// an embedder before promoting it — §9's open questions around tuning
// AutoThreshold/MinConfidence call for exactly this kind of offline
// comparison rather than flipping production and hoping.
package shadow

import (
	"context"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sentrix/idxr-engine/internal/metrics"
	"github.com/sentrix/idxr-engine/internal/resolver"
	"github.com/sentrix/idxr-engine/pkg/models"
)

// Runner compares a production and a shadow Resolver against the same
// query stream. Shadow results are never returned to the caller — only
// the comparison is observed.
type Runner struct {
	pool       *pgxpool.Pool
	snapshotID int64
	production *resolver.Resolver
	shadow     *resolver.Resolver

	mu              sync.Mutex
	seq             int64
	prodPartition   metrics.Partition
	shadowPartition metrics.Partition
}

// Comparison captures the divergence between production and shadow for
// one query.
type Comparison struct {
	CorrelationID     string    `json:"correlationId"`
	ProductionTop     string    `json:"productionTop"`
	ShadowTop         string    `json:"shadowTop"`
	ProductionConf    float64   `json:"productionConfidence"`
	ShadowConf        float64   `json:"shadowConfidence"`
	Diverged          bool      `json:"diverged"`
	SnapshotID        int64     `json:"snapshotId"`
	CreatedAt         time.Time `json:"createdAt"`
}

// NewRunner builds a Runner. pool may be nil, in which case
// comparisons are returned but not persisted — the same
// degrade-without-persisting idiom cmd/engine's mustCandidateStore
// uses for the candidate store itself.
func NewRunner(pool *pgxpool.Pool, snapshotID int64, production, shadow *resolver.Resolver) *Runner {
	return &Runner{pool: pool, snapshotID: snapshotID, production: production, shadow: shadow}
}

// Compare resolves query against both Resolvers and records whether
// their top candidate disagrees. The caller's response must come from
// production's MatchResult; shadow's is only ever logged/persisted.
func (r *Runner) Compare(ctx context.Context, query models.IdentityRecord, opts models.ResolveOptions) (models.MatchResult, Comparison) {
	prod := r.production.Resolve(ctx, query, opts)
	shad := r.shadow.Resolve(ctx, query, opts)

	cmp := Comparison{
		CorrelationID: prod.CorrelationID,
		SnapshotID:    r.snapshotID,
		CreatedAt:     time.Now(),
	}
	if len(prod.Matches) > 0 {
		cmp.ProductionTop = prod.Matches[0].IdentityKey
		cmp.ProductionConf = prod.Matches[0].Confidence
	}
	if len(shad.Matches) > 0 {
		cmp.ShadowTop = shad.Matches[0].IdentityKey
		cmp.ShadowConf = shad.Matches[0].Confidence
	}
	cmp.Diverged = cmp.ProductionTop != cmp.ShadowTop
	r.record(cmp)

	if cmp.Diverged {
		log.Printf("shadow: DIVERGENCE correlationId=%s prod=%s(%.2f) shadow=%s(%.2f)",
			cmp.CorrelationID, cmp.ProductionTop, cmp.ProductionConf, cmp.ShadowTop, cmp.ShadowConf)
	}

	if r.pool != nil {
		if err := r.persist(ctx, cmp); err != nil {
			log.Printf("shadow: failed to persist comparison: %v", err)
		}
	}
	return prod, cmp
}

// record folds one comparison into the running partitions AgreementScore
// grades, keyed by call order rather than CorrelationID — callers are
// free to leave CorrelationID unset, and two queries sharing one would
// otherwise collide and silently drop a comparison.
func (r *Runner) record(cmp Comparison) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.prodPartition == nil {
		r.prodPartition = make(metrics.Partition)
		r.shadowPartition = make(metrics.Partition)
	}
	r.seq++
	key := strconv.FormatInt(r.seq, 10)
	// An empty top candidate is itself a meaningful label: it groups every
	// no_match query together, same as a real identity key would.
	r.prodPartition[key] = cmp.ProductionTop
	r.shadowPartition[key] = cmp.ShadowTop
}

// AgreementScore reports how closely the shadow configuration's grouping
// of queries into resolved identities agrees with production's, across
// every Compare call observed so far this run. ARI near 1 means shadow
// would have resolved the same queries to the same identity groups as
// production; VI near 0 means the same from an information-theoretic
// angle. Both read 0 until at least two comparisons have been recorded.
func (r *Runner) AgreementScore() (ari, vi float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return metrics.AdjustedRandIndex(r.prodPartition, r.shadowPartition),
		metrics.VariationOfInformation(r.prodPartition, r.shadowPartition)
}

func (r *Runner) persist(ctx context.Context, cmp Comparison) error {
	sql := `INSERT INTO shadow_comparisons
		(correlation_id, production_top, shadow_top, production_confidence, shadow_confidence, diverged, snapshot_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.pool.Exec(ctx, sql,
		cmp.CorrelationID, cmp.ProductionTop, cmp.ShadowTop,
		cmp.ProductionConf, cmp.ShadowConf, cmp.Diverged, cmp.SnapshotID, cmp.CreatedAt,
	)
	return err
}

// DriftReport summarizes divergence rate across all comparisons for a
// snapshot.
func (r *Runner) DriftReport(ctx context.Context) (total, diverged int, avgConfidenceDelta float64, err error) {
	sql := `SELECT
		COUNT(*) AS total,
		COUNT(*) FILTER (WHERE diverged) AS diverged,
		COALESCE(AVG(shadow_confidence - production_confidence), 0) AS avg_delta
	FROM shadow_comparisons WHERE snapshot_id = $1`
	row := r.pool.QueryRow(ctx, sql, r.snapshotID)
	err = row.Scan(&total, &diverged, &avgConfidenceDelta)
	return
}
