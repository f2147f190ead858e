// Package batch implements the C12 Batch Job Manager (spec.md §4.12):
// typed batch jobs with a queued/running/paused/terminal state
// machine, a priority queue bounded by a concurrency cap, paged
// results, and export. Its per-record progress loop (counters guarded by
// each job's mutex) is grounded on the teacher's internal/scanner/block_scanner.go
// (ScanRange's per-record loop, progress logging every 100 records,
// context-cancellable goroutine).
package batch

import (
	"container/heap"
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sentrix/idxr-engine/internal/coreerr"
	"github.com/sentrix/idxr-engine/internal/resolver"
	"github.com/sentrix/idxr-engine/pkg/models"
)

// DefaultMaxConcurrent is the scheduler's concurrency cap (§5 "Resource
// limits": "concurrency cap (default 3 running jobs)").
const DefaultMaxConcurrent = 3

// Submission is the manager's Submit input: the Inbound port's
// job_spec (§6) plus the records to process, since data-source
// connectors are an external concern (spec.md §1) — by the time a
// Submission reaches this package its input has already been read.
type Submission struct {
	Name         string
	Type         models.JobType
	Priority     models.JobPriority
	Records      []models.IdentityRecord
	InputHandle  string
	OutputHandle string
	Config       map[string]interface{}
}

// queueItem is one pending job waiting for a scheduler slot.
type queueItem struct {
	jobID    string
	priority models.JobPriority
	seq      uint64
}

type jobHeap []*queueItem

func (h jobHeap) Len() int { return len(h) }
func (h jobHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority > h[j].priority // urgent first
	}
	return h[i].seq < h[j].seq // FIFO within a priority
}
func (h jobHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *jobHeap) Push(x interface{}) { *h = append(*h, x.(*queueItem)) }
func (h *jobHeap) Pop() interface{} {
	old := *h
	n := len(old)
	it := old[n-1]
	*h = old[:n-1]
	return it
}

// Manager is the C12 scheduler: it owns every submitted job's
// lifecycle, a priority queue of jobs awaiting a free slot, and the
// per-record processor that dispatches on job type.
type Manager struct {
	mu       sync.Mutex
	cond     *sync.Cond
	jobs     map[string]*job
	queue    jobHeap
	nextSeq  uint64
	running  int
	maxConc  int
	shutdown bool

	sink      Sink
	processor *processor
}

// New builds a Manager bounded at maxConcurrent running jobs (0
// selects DefaultMaxConcurrent), dispatching per-record work through r.
func New(r *resolver.Resolver, sink Sink, maxConcurrent int) *Manager {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	if sink == nil {
		sink = NewMemorySink()
	}
	m := &Manager{
		jobs:      make(map[string]*job),
		maxConc:   maxConcurrent,
		sink:      sink,
		processor: newProcessor(r),
	}
	m.cond = sync.NewCond(&m.mu)
	go m.scheduleLoop()
	return m
}

// Submit creates a queued job and returns its id.
func (m *Manager) Submit(spec Submission) (string, error) {
	if len(spec.Records) == 0 {
		return "", coreerr.New(coreerr.InvalidInput, "batch submission has no records")
	}
	id := uuid.NewString()
	j := newJob(spec, id, time.Now())

	m.mu.Lock()
	m.jobs[id] = j
	m.nextSeq++
	heap.Push(&m.queue, &queueItem{jobID: id, priority: spec.Priority, seq: m.nextSeq})
	m.cond.Signal()
	m.mu.Unlock()

	return id, nil
}

// Status returns the current snapshot of a job.
func (m *Manager) Status(jobID string) (models.BatchJob, error) {
	j, err := m.find(jobID)
	if err != nil {
		return models.BatchJob{}, err
	}
	return j.snapshot(), nil
}

// Pause moves a running job to paused. Illegal from any other state.
func (m *Manager) Pause(jobID string) error {
	j, err := m.find(jobID)
	if err != nil {
		return err
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.public.Status != models.JobRunning {
		return coreerr.New(coreerr.Conflict, "job is not running")
	}
	j.paused = true
	j.transitionLocked(models.JobPaused, time.Now())
	j.cond.Broadcast()
	return nil
}

// Resume moves a paused job back to queued (§4.12's state diagram —
// resume re-enters the scheduler queue rather than resuming in place,
// so the concurrency cap is re-checked).
func (m *Manager) Resume(jobID string) error {
	j, err := m.find(jobID)
	if err != nil {
		return err
	}
	j.mu.Lock()
	if j.public.Status != models.JobPaused {
		j.mu.Unlock()
		return coreerr.New(coreerr.Conflict, "job is not paused")
	}
	j.paused = false
	j.transitionLocked(models.JobQueued, time.Now())
	j.cond.Broadcast()
	j.mu.Unlock()

	m.mu.Lock()
	m.nextSeq++
	heap.Push(&m.queue, &queueItem{jobID: jobID, priority: j.public.Priority, seq: m.nextSeq})
	m.cond.Signal()
	m.mu.Unlock()
	return nil
}

// Cancel moves a queued or running job to cancelled. Terminal jobs
// reject cancellation (§4.12: "a job in completed, failed, or
// cancelled is terminal and rejects all mutators").
func (m *Manager) Cancel(jobID string) error {
	j, err := m.find(jobID)
	if err != nil {
		return err
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	switch j.public.Status {
	case models.JobCompleted, models.JobFailed, models.JobCancelled:
		return coreerr.New(coreerr.Conflict, "job is already terminal")
	}
	j.cancelled = true
	j.paused = false
	j.transitionLocked(models.JobCancelled, time.Now())
	j.cond.Broadcast()
	return nil
}

// Results pages a job's recorded outcomes, optionally filtered by
// status (§6 "results(job_id, page, limit, status_filter)").
func (m *Manager) Results(ctx context.Context, jobID string, page, limit int, statusFilter string) ([]models.RecordOutcome, int, error) {
	if _, err := m.find(jobID); err != nil {
		return nil, 0, err
	}
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 50
	}

	all, err := m.sink.Read(ctx, jobID)
	if err != nil {
		return nil, 0, coreerr.Wrap(coreerr.DependencyUnavailable, "reading job output sink", err)
	}
	if statusFilter != "" {
		filtered := all[:0:0]
		for _, r := range all {
			if r.Status == statusFilter {
				filtered = append(filtered, r)
			}
		}
		all = filtered
	}

	total := len(all)
	start := (page - 1) * limit
	if start >= total {
		return []models.RecordOutcome{}, total, nil
	}
	end := start + limit
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

func (m *Manager) find(jobID string) (*job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[jobID]
	if !ok {
		return nil, coreerr.New(coreerr.NotFound, "batch job not found")
	}
	return j, nil
}

// Shutdown stops the scheduler from starting new jobs; jobs already
// running continue to completion.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	m.shutdown = true
	m.cond.Broadcast()
	m.mu.Unlock()
}

// scheduleLoop is the single goroutine that hands queued jobs a
// running slot as capacity frees up, the same shape as
// internal/pool.Pool's dequeue loop but over jobs instead of tasks.
func (m *Manager) scheduleLoop() {
	for {
		m.mu.Lock()
		for !m.shutdown && (len(m.queue) == 0 || m.running >= m.maxConc) {
			m.cond.Wait()
		}
		if m.shutdown && len(m.queue) == 0 {
			m.mu.Unlock()
			return
		}
		if len(m.queue) == 0 || m.running >= m.maxConc {
			m.mu.Unlock()
			continue
		}
		item := heap.Pop(&m.queue).(*queueItem)
		m.running++
		m.mu.Unlock()

		j, err := m.find(item.jobID)
		if err != nil {
			m.jobDone()
			continue
		}

		j.mu.Lock()
		skip := j.public.Status != models.JobQueued
		if !skip {
			j.transitionLocked(models.JobRunning, time.Now())
			j.startedAt = time.Now()
		}
		j.mu.Unlock()

		if skip {
			m.jobDone()
			continue
		}

		go m.run(j)
	}
}

func (m *Manager) jobDone() {
	m.mu.Lock()
	m.running--
	m.cond.Broadcast()
	m.mu.Unlock()
}

// run drives one job's records through the processor starting at
// j.nextIndex, checking pause/cancel at each record boundary the way
// internal/pool's workers check their deadline both before and after
// running a task. A pause releases the scheduler slot entirely — per
// §4.12's state diagram, resume re-enters the queue rather than
// resuming this same goroutine — so run() returns instead of blocking
// in place.
func (m *Manager) run(j *job) {
	defer m.jobDone()
	ctx := context.Background()

	for {
		j.mu.Lock()
		if j.cancelled {
			j.mu.Unlock()
			return
		}
		if j.paused {
			j.mu.Unlock()
			return
		}
		if j.nextIndex >= len(j.records) {
			j.mu.Unlock()
			break
		}
		idx := j.nextIndex
		rec := j.records[idx]
		cfg := j.public.Config
		jobType := j.public.Type
		j.mu.Unlock()

		recordID := recordIDFor(idx, rec)
		outcome, ok := m.processor.process(ctx, jobType, recordID, rec, cfg)
		_ = m.sink.Append(ctx, j.public.ID, outcome)

		j.mu.Lock()
		j.nextIndex++
		j.public.Counters.Processed++
		if ok {
			j.public.Counters.Successful++
		} else {
			j.public.Counters.Failed++
		}
		if j.public.Counters.Processed%flushEvery == 0 {
			j.estimateCompletionLocked(time.Now())
		}
		j.mu.Unlock()
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if j.cancelled || j.paused {
		return
	}
	j.transitionLocked(models.JobCompleted, time.Now())
	j.public.EstimatedCompletion = nil
}

func recordIDFor(index int, rec models.IdentityRecord) string {
	if rec.Metadata != nil {
		if id, ok := rec.Metadata["recordId"]; ok && id != "" {
			return id
		}
	}
	return uuid.NewString()[:8] + "-" + strconv.Itoa(index)
}
