package pool

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func waitCallbacks(n int, fire func(func(interface{}, error))) []error {
	var mu sync.Mutex
	var errs []error
	var wg sync.WaitGroup
	wg.Add(n)
	fire(func(_ interface{}, err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
		wg.Done()
	})
	wg.Wait()
	return errs
}

func TestPriorityOrderingCriticalFirst(t *testing.T) {
	require := require.New(t)

	p := New(1, 10)
	defer p.Shutdown()

	var mu sync.Mutex
	var order []string
	var wg sync.WaitGroup

	hold := make(chan struct{})
	wg.Add(1)
	require.NoError(p.Submit(Task{
		Priority: PriorityNormal,
		Run: func(ctx context.Context) (interface{}, error) {
			<-hold
			return nil, nil
		},
		Callback: func(interface{}, error) {
			mu.Lock()
			order = append(order, "blocker")
			mu.Unlock()
			wg.Done()
		},
	}, time.Second))

	submit := func(name string, pr Priority) {
		wg.Add(1)
		require.NoError(p.Submit(Task{
			Priority: pr,
			Run:      func(ctx context.Context) (interface{}, error) { return nil, nil },
			Callback: func(interface{}, error) {
				mu.Lock()
				order = append(order, name)
				mu.Unlock()
				wg.Done()
			},
		}, time.Second))
	}

	submit("low", PriorityLow)
	submit("critical", PriorityCritical)
	submit("normal", PriorityNormal)
	submit("high", PriorityHigh)

	close(hold)
	wg.Wait()

	require.Equal([]string{"blocker", "critical", "high", "normal", "low"}, order)
}

func TestFIFOWithinSamePriority(t *testing.T) {
	require := require.New(t)

	p := New(1, 10)
	defer p.Shutdown()

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup

	for i := 0; i < 5; i++ {
		i := i
		wg.Add(1)
		require.NoError(p.Submit(Task{
			Priority: PriorityNormal,
			Run:      func(ctx context.Context) (interface{}, error) { return i, nil },
			Callback: func(result interface{}, err error) {
				mu.Lock()
				order = append(order, result.(int))
				mu.Unlock()
				wg.Done()
			},
		}, time.Second))
	}
	wg.Wait()

	require.Equal([]int{0, 1, 2, 3, 4}, order)
}

func TestDeadlineExceededBeforeRunProducesTimeout(t *testing.T) {
	require := require.New(t)

	p := New(1, 10)
	defer p.Shutdown()

	var called int32
	errs := waitCallbacks(1, func(done func(interface{}, error)) {
		require.NoError(p.Submit(Task{
			Priority: PriorityNormal,
			Deadline: time.Now().Add(-time.Minute),
			Run: func(ctx context.Context) (interface{}, error) {
				atomic.AddInt32(&called, 1)
				return nil, nil
			},
			Callback: done,
		}, time.Second))
	})

	require.Len(errs, 1)
	require.Error(errs[0])
	require.Equal(int32(0), atomic.LoadInt32(&called))
}

func TestQueueFullRejectsOnBoundedWait(t *testing.T) {
	require := require.New(t)

	p := New(1, 1)
	defer p.Shutdown()

	hold := make(chan struct{})
	defer close(hold)

	require.NoError(p.Submit(Task{
		Run:      func(ctx context.Context) (interface{}, error) { <-hold; return nil, nil },
		Callback: func(interface{}, error) {},
	}, time.Second))
	require.NoError(p.Submit(Task{
		Run:      func(ctx context.Context) (interface{}, error) { return nil, nil },
		Callback: func(interface{}, error) {},
	}, time.Second))

	err := p.Submit(Task{
		Run:      func(ctx context.Context) (interface{}, error) { return nil, nil },
		Callback: func(interface{}, error) {},
	}, 50*time.Millisecond)
	require.Error(err)
}

func TestCallbackInvokedExactlyOnce(t *testing.T) {
	require := require.New(t)

	p := New(2, 10)
	defer p.Shutdown()

	var count int32
	errs := waitCallbacks(1, func(done func(interface{}, error)) {
		require.NoError(p.Submit(Task{
			Run: func(ctx context.Context) (interface{}, error) { return "ok", nil },
			Callback: func(result interface{}, err error) {
				atomic.AddInt32(&count, 1)
				done(result, err)
			},
		}, time.Second))
	})

	require.Len(errs, 1)
	require.NoError(errs[0])
	require.Equal(int32(1), atomic.LoadInt32(&count))
}

func TestShutdownDrainsAndJoinsWorkers(t *testing.T) {
	require := require.New(t)

	p := New(2, 10)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		require.NoError(p.Submit(Task{
			Run: func(ctx context.Context) (interface{}, error) {
				time.Sleep(10 * time.Millisecond)
				return nil, nil
			},
			Callback: func(interface{}, error) { wg.Done() },
		}, time.Second))
	}

	done := make(chan struct{})
	go func() {
		p.Shutdown()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Shutdown did not return")
	}
	wg.Wait()

	stats := p.Stats()
	require.Equal(0, stats.QueueDepth)
}

func TestStatsReportsCompletedCount(t *testing.T) {
	require := require.New(t)

	p := New(2, 10)
	defer p.Shutdown()

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		require.NoError(p.Submit(Task{
			Run:      func(ctx context.Context) (interface{}, error) { return nil, nil },
			Callback: func(interface{}, error) { wg.Done() },
		}, time.Second))
	}
	wg.Wait()

	time.Sleep(10 * time.Millisecond)
	require.Equal(int64(3), p.Stats().Completed)
}
