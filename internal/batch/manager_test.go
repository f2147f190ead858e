package batch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sentrix/idxr-engine/internal/match"
	"github.com/sentrix/idxr-engine/internal/resolver"
	"github.com/sentrix/idxr-engine/internal/store"
	"github.com/sentrix/idxr-engine/pkg/models"
)

func testResolver(t *testing.T) *resolver.Resolver {
	t.Helper()
	st := store.NewMemoryStore(0)
	st.Put(models.StoredIdentity{
		IdentityKey: "IDX0001",
		Record: models.IdentityRecord{
			GivenName: "John", Surname: "Doe", DateOfBirth: "1990-01-15", TaxpayerID: "123456789",
		},
		Normalized: models.IdentityRecord{
			GivenName: "John", Surname: "Doe", DateOfBirth: "1990-01-15", TaxpayerID: "123456789",
		},
		Active: true,
	})
	return resolver.New(st, match.NewHybrid(nil), nil, 0, 0, 0)
}

func waitForStatus(t *testing.T, m *Manager, jobID string, want models.JobStatus, timeout time.Duration) models.BatchJob {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		j, err := m.Status(jobID)
		require.NoError(t, err)
		if j.Status == want {
			return j
		}
		if time.Now().After(deadline) {
			t.Fatalf("job %s did not reach status %s within %s (last status %s)", jobID, want, timeout, j.Status)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func recordsOf(n int) []models.IdentityRecord {
	out := make([]models.IdentityRecord, n)
	for i := range out {
		out[i] = models.IdentityRecord{GivenName: "John", Surname: "Doe", DateOfBirth: "1990-01-15", TaxpayerID: "123456789"}
	}
	return out
}

func TestSubmitRunsToCompletionWithConsistentCounters(t *testing.T) {
	r := require.New(t)
	m := New(testResolver(t), nil, 1)

	id, err := m.Submit(Submission{Name: "job1", Type: models.JobTypeIdentityMatching, Records: recordsOf(25)})
	r.NoError(err)

	final := waitForStatus(t, m, id, models.JobCompleted, time.Second)
	r.Equal(25, final.Counters.Total)
	r.Equal(final.Counters.Successful+final.Counters.Failed, final.Counters.Processed)
	r.LessOrEqual(final.Counters.Processed, final.Counters.Total)
	r.NotNil(final.StartedAt)
	r.NotNil(final.FinishedAt)
}

func TestPauseThenResumeCompletesAllRecords(t *testing.T) {
	r := require.New(t)
	m := New(testResolver(t), nil, 1)

	const n = 200000
	id, err := m.Submit(Submission{Name: "job2", Type: models.JobTypeDataValidation, Records: recordsOf(n)})
	r.NoError(err)

	// Give the scheduler a moment to start, then pause mid-flight.
	time.Sleep(5 * time.Millisecond)
	r.NoError(m.Pause(id))

	paused, err := m.Status(id)
	r.NoError(err)
	r.Equal(models.JobPaused, paused.Status)
	r.Less(paused.Counters.Processed, n, "pause should land before the whole job drains")
	processedAtPause := paused.Counters.Processed

	time.Sleep(50 * time.Millisecond)
	stillPaused, err := m.Status(id)
	r.NoError(err)
	r.Equal(processedAtPause, stillPaused.Counters.Processed, "paused job must not make progress")

	r.NoError(m.Resume(id))
	final := waitForStatus(t, m, id, models.JobCompleted, 10*time.Second)
	r.Equal(n, final.Counters.Total)
	r.Equal(n, final.Counters.Processed)
	r.Equal(final.Counters.Successful+final.Counters.Failed, final.Counters.Processed)
}

func TestCancelIsTerminalAndRejectsFurtherMutation(t *testing.T) {
	r := require.New(t)
	m := New(testResolver(t), nil, 1)

	id, err := m.Submit(Submission{Name: "job3", Type: models.JobTypeIdentityMatching, Records: recordsOf(200000)})
	r.NoError(err)

	time.Sleep(5 * time.Millisecond)
	r.NoError(m.Cancel(id))

	final := waitForStatus(t, m, id, models.JobCancelled, time.Second)
	r.Less(final.Counters.Processed, final.Counters.Total, "cancel should interrupt before all records process")

	r.Error(m.Resume(id))
	r.Error(m.Pause(id))
	r.Error(m.Cancel(id))
}

func TestConcurrencyCapBoundsRunningJobs(t *testing.T) {
	r := require.New(t)
	m := New(testResolver(t), nil, 1)

	var ids []string
	for i := 0; i < 3; i++ {
		id, err := m.Submit(Submission{Name: "job", Type: models.JobTypeDataValidation, Records: recordsOf(200000)})
		r.NoError(err)
		ids = append(ids, id)
	}

	time.Sleep(10 * time.Millisecond)
	running := 0
	for _, id := range ids {
		j, err := m.Status(id)
		r.NoError(err)
		if j.Status == models.JobRunning {
			running++
		}
	}
	r.LessOrEqual(running, 1)

	for _, id := range ids {
		_ = m.Cancel(id)
	}
}

func TestResultsPageAndFilterByStatus(t *testing.T) {
	r := require.New(t)
	m := New(testResolver(t), nil, 1)

	id, err := m.Submit(Submission{Name: "job4", Type: models.JobTypeIdentityMatching, Records: recordsOf(10)})
	r.NoError(err)
	waitForStatus(t, m, id, models.JobCompleted, time.Second)

	page, total, err := m.Results(context.Background(), id, 1, 5, "")
	r.NoError(err)
	r.Equal(10, total)
	r.Len(page, 5)

	matched, total, err := m.Results(context.Background(), id, 1, 50, "matched")
	r.NoError(err)
	r.Equal(10, total)
	for _, row := range matched {
		r.Equal("matched", row.Status)
	}
}

func TestExportJSONAndCSV(t *testing.T) {
	r := require.New(t)
	m := New(testResolver(t), nil, 1)

	id, err := m.Submit(Submission{Name: "job5", Type: models.JobTypeIdentityMatching, Records: recordsOf(3)})
	r.NoError(err)
	waitForStatus(t, m, id, models.JobCompleted, time.Second)

	jsonBytes, err := m.Export(context.Background(), id, ExportJSON)
	r.NoError(err)
	r.Contains(string(jsonBytes), "matched")

	csvBytes, err := m.Export(context.Background(), id, ExportCSV)
	r.NoError(err)
	r.Contains(string(csvBytes), "record_id")
}

func TestSubmitRejectsEmptyRecords(t *testing.T) {
	m := New(testResolver(t), nil, 1)
	_, err := m.Submit(Submission{Name: "empty", Type: models.JobTypeIdentityMatching})
	require.Error(t, err)
}
