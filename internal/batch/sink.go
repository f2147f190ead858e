package batch

import (
	"context"
	"sync"

	"github.com/sentrix/idxr-engine/pkg/models"
)

// Sink is the outbound port a batch job writes its per-record outcome
// stream to (spec.md §6 "Persisted batch state layout"). Durable
// storage of that stream is an external concern; this package only
// defines the contract and a default in-memory adapter used by tests
// and by deployments that page results straight out of the manager.
type Sink interface {
	Append(ctx context.Context, jobID string, outcome models.RecordOutcome) error
	Read(ctx context.Context, jobID string) ([]models.RecordOutcome, error)
}

// MemorySink buffers each job's outcome stream in memory, append-only,
// in arrival order — the same order the manager processes records in
// (§5 "records complete in submission order for observable counters").
type MemorySink struct {
	mu   sync.RWMutex
	rows map[string][]models.RecordOutcome
}

// NewMemorySink builds an empty Sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{rows: make(map[string][]models.RecordOutcome)}
}

func (s *MemorySink) Append(_ context.Context, jobID string, outcome models.RecordOutcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[jobID] = append(s.rows[jobID], outcome)
	return nil
}

func (s *MemorySink) Read(_ context.Context, jobID string) ([]models.RecordOutcome, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.RecordOutcome, len(s.rows[jobID]))
	copy(out, s.rows[jobID])
	return out, nil
}
