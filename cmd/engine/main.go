package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sentrix/idxr-engine/internal/audit"
	"github.com/sentrix/idxr-engine/internal/batch"
	"github.com/sentrix/idxr-engine/internal/cache"
	"github.com/sentrix/idxr-engine/internal/config"
	"github.com/sentrix/idxr-engine/internal/embed"
	"github.com/sentrix/idxr-engine/internal/match"
	"github.com/sentrix/idxr-engine/internal/pool"
	"github.com/sentrix/idxr-engine/internal/ratelimit"
	"github.com/sentrix/idxr-engine/internal/resolver"
	"github.com/sentrix/idxr-engine/internal/store"
	"github.com/sentrix/idxr-engine/internal/telemetry"
)

// main boots the identity cross-resolution engine: it loads
// configuration, constructs C1..C12, and blocks until a termination
// signal arrives. There is no HTTP layer here — transport framing is
// explicitly out of scope (spec.md §1) and lives in a separate,
// unwritten service that calls through the Resolve/Batch inbound
// ports this process exposes in-process.
func main() {
	log.Println("Starting IDXR Identity Cross-Resolution Engine...")

	cfg, err := config.Load(getEnvOrDefault("IDXR_CONFIG_FILE", ""))
	if err != nil {
		log.Fatalf("FATAL: config load failed: %v", err)
	}

	candidateStore, closeStore := mustCandidateStore(cfg)
	defer closeStore()

	embedder := mustEmbedder()

	registry := prometheus.NewRegistry()
	metrics := telemetry.New(registry)

	auditSink := audit.NewAsyncLogSink()
	defer auditSink.Stop()

	weights := cfg.MatchWeights
	res := resolver.New(candidateStore, match.NewHybrid(embedder), weights, cfg.MatchAutoThreshold, cfg.MatchThreshold, cfg.MatchMaxResults)

	resultCache := cache.New(cfg.CacheSize, time.Duration(cfg.CacheTTLSeconds)*time.Second)

	gate := ratelimit.New(
		ratelimit.Spec{Limit: cfg.RateGlobal.Limit, Window: time.Duration(cfg.RateGlobal.WindowSecond) * time.Second, Burst: cfg.RateGlobal.Burst},
		ratelimit.Spec{Limit: cfg.RateClient.Limit, Window: time.Duration(cfg.RateClient.WindowSecond) * time.Second, Burst: cfg.RateClient.Burst},
		ratelimit.Spec{Limit: cfg.RateEndpoint.Limit, Window: time.Duration(cfg.RateEndpoint.WindowSecond) * time.Second, Burst: cfg.RateEndpoint.Burst},
		cfg.RateWhitelist,
	)

	workers := pool.New(cfg.PoolWorkers, cfg.PoolQueue)
	batchMgr := batch.New(res, batch.NewMemorySink(), batch.DefaultMaxConcurrent)

	engine := NewEngine(gate, resultCache, workers, res, batchMgr, auditSink, metrics)
	defer engine.Shutdown()

	log.Printf("Engine ready: pool.workers=%d pool.queue=%d cache.size=%d match.threshold=%.2f",
		cfg.PoolWorkers, cfg.PoolQueue, cfg.CacheSize, cfg.MatchThreshold)

	waitForShutdown()
	log.Println("Shutdown signal received, draining in-flight work...")
}

// mustCandidateStore builds a Postgres-backed CandidateStore when
// DATABASE_URL is set, falling back to an empty in-memory store — the
// teacher's "continue without persisting" degrade-don't-crash idiom
// (cmd/engine/main.go's original dbConn handling) applied to the
// corpus accessor instead of the forensics database.
func mustCandidateStore(cfg config.Config) (store.CandidateStore, func()) {
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		pg, err := store.Connect(ctx, dbURL, 0)
		if err != nil {
			log.Printf("Warning: Postgres candidate store unavailable, falling back to empty in-memory store: %v", err)
			return store.NewMemoryStore(0), func() {}
		}
		log.Println("Using Postgres-backed candidate store")
		return pg, func() { pg.Close() }
	}
	log.Println("DATABASE_URL not set, using empty in-memory candidate store")
	return store.NewMemoryStore(0), func() {}
}

// mustEmbedder installs the GenAI embedder when an API key is
// configured, otherwise the noop stub — the hybrid semantic fallback is
// "enabled by default but soft-failing" (DESIGN.md, "Open questions
// resolved", item 2).
func mustEmbedder() embed.Embedder {
	apiKey := os.Getenv("GENAI_API_KEY")
	if apiKey == "" {
		log.Println("GENAI_API_KEY not set, hybrid matcher's semantic component is disabled (pinned at zero)")
		return embed.NoopEmbedder{}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	e, err := embed.NewGenAIEmbedder(ctx, apiKey, "")
	if err != nil {
		log.Printf("Warning: GenAI embedder unavailable, hybrid matcher's semantic component is disabled: %v", err)
		return embed.NoopEmbedder{}
	}
	return e
}

func waitForShutdown() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
}

func getEnvOrDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
