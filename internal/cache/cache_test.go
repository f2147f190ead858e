package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sentrix/idxr-engine/pkg/models"
)

func TestPutThenGetReturnsInsertedValue(t *testing.T) {
	require := require.New(t)

	c := New(10, time.Minute)
	c.Put("k1", models.MatchResult{CorrelationID: "c1"})

	v, ok := c.Get("k1")
	require.True(ok)
	require.Equal("c1", v.CorrelationID)
}

func TestExpiredEntryIsMiss(t *testing.T) {
	require := require.New(t)

	c := New(10, time.Millisecond)
	c.Put("k1", models.MatchResult{CorrelationID: "c1"})
	time.Sleep(5 * time.Millisecond)

	_, ok := c.Get("k1")
	require.False(ok)
	require.Equal(0, c.Len(), "expired entry should be evicted lazily on lookup")
}

func TestEvictsLeastRecentlyUsedAtCapacity(t *testing.T) {
	require := require.New(t)

	c := New(2, time.Minute)
	c.Put("a", models.MatchResult{CorrelationID: "a"})
	c.Put("b", models.MatchResult{CorrelationID: "b"})
	c.Get("a") // a is now most-recently-used
	c.Put("c", models.MatchResult{CorrelationID: "c"})

	_, ok := c.Get("b")
	require.False(ok, "b should have been evicted as least-recently-used")

	_, ok = c.Get("a")
	require.True(ok)
	_, ok = c.Get("c")
	require.True(ok)
}

func TestFingerprintStableAcrossEqualRecords(t *testing.T) {
	require := require.New(t)

	r1 := models.IdentityRecord{GivenName: "John", Surname: "Doe"}
	r2 := models.IdentityRecord{GivenName: "John", Surname: "Doe"}
	require.Equal(Fingerprint(r1), Fingerprint(r2))

	r3 := models.IdentityRecord{GivenName: "Jane", Surname: "Doe"}
	require.NotEqual(Fingerprint(r1), Fingerprint(r3))
}

func TestGetOrComputeSingleFlight(t *testing.T) {
	require := require.New(t)

	c := New(10, time.Minute)
	var calls int32
	var mu sync.Mutex

	compute := func(ctx context.Context) (models.MatchResult, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		time.Sleep(20 * time.Millisecond)
		return models.MatchResult{CorrelationID: "computed"}, nil
	}

	var wg sync.WaitGroup
	results := make([]models.MatchResult, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := c.GetOrCompute(context.Background(), "shared-key", compute)
			require.NoError(err)
			results[i] = r
		}(i)
	}
	wg.Wait()

	require.Equal(int32(1), calls, "concurrent identical fingerprints should compute exactly once")
	for _, r := range results {
		require.Equal("computed", r.CorrelationID)
	}
}
