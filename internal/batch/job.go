package batch

import (
	"sync"
	"time"

	"github.com/sentrix/idxr-engine/pkg/models"
)

// flushEvery is how often partial results are considered flushed to
// the sink (§4.12 "partial results are flushed every 100 records") —
// this manager's Sink.Append already persists every record as it is
// produced, so this constant only gates how often the job's estimated
// completion is recomputed (the same every-100 cadence the teacher's
// internal/scanner/block_scanner.go logs progress at).
const flushEvery = 100

// job is the manager's private lifecycle wrapper around a
// models.BatchJob: the public struct plus the synchronization state
// its state machine needs. cond is broadcast on every pause, resume or
// cancel; the run loop itself does not wait on it, it checks the paused
// and cancelled flags at each record boundary and returns.
type job struct {
	mu        sync.Mutex
	cond      *sync.Cond
	public    models.BatchJob
	records   []models.IdentityRecord
	nextIndex int
	paused    bool
	cancelled bool
	startedAt time.Time
}

func newJob(spec Submission, id string, submittedAt time.Time) *job {
	j := &job{
		records: spec.Records,
		public: models.BatchJob{
			ID:            id,
			Name:          spec.Name,
			Type:          spec.Type,
			Priority:      spec.Priority,
			Status:        models.JobQueued,
			Counters:      models.JobCounters{Total: len(spec.Records)},
			SubmittedAt:   submittedAt,
			InputHandle:   spec.InputHandle,
			OutputHandle:  spec.OutputHandle,
			Config:        spec.Config,
		},
	}
	j.cond = sync.NewCond(&j.mu)
	return j
}

// snapshot returns a copy of the public job record, safe to hand to a
// caller without risking a concurrent write.
func (j *job) snapshot() models.BatchJob {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.public
}

// transitionLocked moves the job to a new status. Callers must hold j.mu.
func (j *job) transitionLocked(status models.JobStatus, at time.Time) {
	j.public.Status = status
	switch status {
	case models.JobRunning:
		if j.public.StartedAt == nil {
			t := at
			j.public.StartedAt = &t
		}
	case models.JobCompleted, models.JobFailed, models.JobCancelled:
		t := at
		j.public.FinishedAt = &t
	}
}

// estimateCompletionLocked extrapolates an ETA from the rolling
// processed/elapsed ratio (SPEC_FULL.md §D.5), the same technique the
// original batch_processing_service.py uses.
func (j *job) estimateCompletionLocked(now time.Time) {
	if j.startedAt.IsZero() || j.public.Counters.Processed == 0 {
		return
	}
	elapsed := now.Sub(j.startedAt)
	rate := float64(j.public.Counters.Processed) / elapsed.Seconds()
	if rate <= 0 {
		return
	}
	remaining := j.public.Counters.Total - j.public.Counters.Processed
	if remaining <= 0 {
		j.public.EstimatedCompletion = nil
		return
	}
	eta := now.Add(time.Duration(float64(remaining)/rate) * time.Second)
	j.public.EstimatedCompletion = &eta
}
