// Package pool implements the C11 Worker Pool (spec.md §4.11): a
// bounded set of workers draining a priority queue of resolution
// requests, each carrying a deadline and a single result callback.
package pool

import (
	"container/heap"
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sentrix/idxr-engine/internal/coreerr"
)

// Priority orders submissions within the queue: critical > high >
// normal > low, FIFO within a priority (§4.11).
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
	PriorityCritical
)

// DefaultWorkers is the pool's default size (§6 pool.workers).
const DefaultWorkers = 4

// Task is one unit of work submitted to the pool. Run is invoked by a
// worker goroutine once the task is dequeued and its deadline has not
// passed; Callback is invoked exactly once with Run's result, or with
// a timeout error if the task never runs. A task Submit rejects is never
// queued, and its Callback is not invoked.
type Task struct {
	Priority Priority
	Deadline time.Time
	Run      func(ctx context.Context) (interface{}, error)
	Callback func(interface{}, error)
}

// item is a queued Task plus the strictly-increasing sequence number
// that breaks priority ties FIFO. poison items carry a nil Run and
// make a worker return instead of executing anything.
type item struct {
	task   Task
	seq    uint64
	poison bool
}

type priorityQueue []*item

func (q priorityQueue) Len() int { return len(q) }
func (q priorityQueue) Less(i, j int) bool {
	if q[i].poison != q[j].poison {
		return q[i].poison // poison pills jump the queue on shutdown
	}
	if q[i].task.Priority != q[j].task.Priority {
		return q[i].task.Priority > q[j].task.Priority
	}
	return q[i].seq < q[j].seq
}
func (q priorityQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *priorityQueue) Push(x interface{}) {
	*q = append(*q, x.(*item))
}
func (q *priorityQueue) Pop() interface{} {
	old := *q
	n := len(old)
	it := old[n-1]
	*q = old[:n-1]
	return it
}

// Pool is the bounded worker pool described in §4.11.
type Pool struct {
	mu         sync.Mutex
	cond       *sync.Cond
	queue      priorityQueue
	nextSeq    uint64
	capacity   int
	numWorkers int
	closed     bool

	wg      sync.WaitGroup
	active  atomic.Int64
	drained atomic.Int64
}

// New starts a pool of numWorkers goroutines draining a queue bounded
// at queueCapacity entries (0 means unbounded).
func New(numWorkers, queueCapacity int) *Pool {
	if numWorkers <= 0 {
		numWorkers = DefaultWorkers
	}
	p := &Pool{capacity: queueCapacity, numWorkers: numWorkers}
	p.cond = sync.NewCond(&p.mu)
	heap.Init(&p.queue)

	for i := 0; i < numWorkers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// Submit enqueues a task, blocking up to admitTimeout for room in the
// queue. Returns queue_full if the timeout elapses first (§4.11).
func (p *Pool) Submit(task Task, admitTimeout time.Duration) error {
	deadline := time.Now().Add(admitTimeout)
	timedOut := make(chan struct{})
	timer := time.AfterFunc(admitTimeout, func() {
		close(timedOut)
		p.cond.Broadcast()
	})
	defer timer.Stop()

	p.mu.Lock()
	defer p.mu.Unlock()

	for p.capacity > 0 && len(p.queue) >= p.capacity && !p.closed {
		select {
		case <-timedOut:
			return coreerr.New(coreerr.QueueFull, "worker pool queue is full")
		default:
		}
		if time.Now().After(deadline) {
			return coreerr.New(coreerr.QueueFull, "worker pool queue is full")
		}
		p.cond.Wait()
	}
	if p.closed {
		return coreerr.New(coreerr.Internal, "worker pool is shut down")
	}

	p.nextSeq++
	heap.Push(&p.queue, &item{task: task, seq: p.nextSeq})
	p.cond.Signal()
	return nil
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		it := p.dequeue()
		if it == nil || it.poison {
			return
		}
		task := it.task

		p.active.Add(1)
		if !task.Deadline.IsZero() && time.Now().After(task.Deadline) {
			p.active.Add(-1)
			p.drained.Add(1)
			invokeOnce(task.Callback, nil, coreerr.New(coreerr.Timeout, "deadline exceeded before task started"))
			continue
		}

		ctx := context.Background()
		cancel := func() {}
		if !task.Deadline.IsZero() {
			ctx, cancel = context.WithDeadline(ctx, task.Deadline)
		}

		result, err := task.Run(ctx)
		cancel()
		p.active.Add(-1)
		p.drained.Add(1)

		if err == nil && !task.Deadline.IsZero() && time.Now().After(task.Deadline) {
			err = coreerr.New(coreerr.Timeout, "deadline exceeded before result could be delivered")
		}
		invokeOnce(task.Callback, result, err)
	}
}

func invokeOnce(cb func(interface{}, error), result interface{}, err error) {
	if cb != nil {
		cb(result, err)
	}
}

func (p *Pool) dequeue() *item {
	p.mu.Lock()
	defer p.mu.Unlock()
	for len(p.queue) == 0 {
		p.cond.Wait()
	}
	it := heap.Pop(&p.queue).(*item)
	p.cond.Broadcast()
	return it
}

// Shutdown enqueues one poison pill per worker ahead of everything
// else still queued, then joins all workers (§4.11). Tasks already
// queued behind the pills are never run; their callbacks are invoked
// with a timeout error so no caller is left waiting forever.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	p.closed = true
	var stranded []*item
	for len(p.queue) > 0 {
		stranded = append(stranded, heap.Pop(&p.queue).(*item))
	}
	for i := 0; i < p.numWorkers; i++ {
		heap.Push(&p.queue, &item{poison: true, seq: p.nextSeq})
		p.nextSeq++
	}
	p.cond.Broadcast()
	p.mu.Unlock()

	p.wg.Wait()

	for _, it := range stranded {
		invokeOnce(it.task.Callback, nil, coreerr.New(coreerr.Timeout, "worker pool shut down before task ran"))
	}
}

// Stats reports the pool's current queue depth and active worker count.
type Stats struct {
	QueueDepth int
	Active     int64
	Completed  int64
}

func (p *Pool) Stats() Stats {
	p.mu.Lock()
	depth := len(p.queue)
	p.mu.Unlock()
	return Stats{QueueDepth: depth, Active: p.active.Load(), Completed: p.drained.Load()}
}
