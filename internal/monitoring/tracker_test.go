package monitoring

import (
	"context"
	"encoding/json"
	"showservice/internal/model"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestTracker(store *memoryStore) *Tracker {
	tr := NewTracker(store)
	tr.now = func() time.Time { return fixedNow }
	return tr
}

func TestStartBulkImportTracking(t *testing.T) {
	store := newMemoryStore()
	tr := newTestTracker(store)

	tr.StartBulkImportTracking(context.Background(), "imp-1", 1, 0)

	run := tr.GetImportStatus(context.Background(), "imp-1")
	require.NotNil(t, run)
	assert.Equal(t, model.ImportInProgress, run.Status)
	assert.Equal(t, 1, run.StartPage)
	assert.Equal(t, model.UnknownPageCount, run.EstimatedPages)
	assert.Zero(t, run.CompletedPages)
	assert.Zero(t, run.FailedPages)
	assert.Equal(t, fixedNow, run.StartTime)
}

func TestUpdateImportProgress(t *testing.T) {
	store := newMemoryStore()
	tr := newTestTracker(store)
	ctx := context.Background()

	tr.StartBulkImportTracking(ctx, "imp-1", 0, 300)
	tr.UpdateImportProgress(ctx, "imp-1", 0, true)
	tr.UpdateImportProgress(ctx, "imp-1", 1, false)

	run := tr.GetImportStatus(ctx, "imp-1")
	require.NotNil(t, run)
	assert.Equal(t, 1, run.CompletedPages)
	assert.Equal(t, 1, run.FailedPages)
	require.NotNil(t, run.LastProcessedPage)
	assert.Equal(t, 1, *run.LastProcessedPage)
}

func TestUpdateImportProgressMissingRunIsNoop(t *testing.T) {
	store := newMemoryStore()
	tr := newTestTracker(store)

	tr.UpdateImportProgress(context.Background(), "nope", 3, true)

	assert.Zero(t, store.upserts)
	assert.Empty(t, store.runs)
}

func TestUpdateImportProgressConcurrentPages(t *testing.T) {
	store := newMemoryStore()
	tr := newTestTracker(store)
	ctx := context.Background()
	tr.StartBulkImportTracking(ctx, "imp-1", 0, 0)

	var wg sync.WaitGroup
	for page := 0; page < 50; page++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			tr.UpdateImportProgress(ctx, "imp-1", p, p%5 != 0)
		}(page)
	}
	wg.Wait()

	run := tr.GetImportStatus(ctx, "imp-1")
	require.NotNil(t, run)
	assert.Equal(t, 40, run.CompletedPages)
	assert.Equal(t, 10, run.FailedPages)
}

func TestCompleteBulkImport(t *testing.T) {
	store := newMemoryStore()
	tr := newTestTracker(store)
	ctx := context.Background()
	tr.StartBulkImportTracking(ctx, "imp-1", 0, 0)

	tr.CompleteBulkImport(ctx, "imp-1", model.ImportCompleted)

	run := tr.GetImportStatus(ctx, "imp-1")
	require.NotNil(t, run)
	assert.Equal(t, model.ImportCompleted, run.Status)
	require.NotNil(t, run.EndTime)
	assert.Equal(t, fixedNow, *run.EndTime)

	// terminal states are final
	tr.CompleteBulkImport(ctx, "imp-1", model.ImportFailed)
	assert.Equal(t, model.ImportCompleted, tr.GetImportStatus(ctx, "imp-1").Status)

	// non-terminal target is rejected
	tr.StartBulkImportTracking(ctx, "imp-2", 0, 0)
	tr.CompleteBulkImport(ctx, "imp-2", model.ImportPending)
	assert.Equal(t, model.ImportInProgress, tr.GetImportStatus(ctx, "imp-2").Status)

	// missing run does not create one
	tr.CompleteBulkImport(ctx, "missing", model.ImportCompleted)
	assert.Nil(t, tr.GetImportStatus(ctx, "missing"))
}

func TestListRecentImports(t *testing.T) {
	store := newMemoryStore()
	tr := newTestTracker(store)
	ctx := context.Background()

	for i, id := range []string{"imp-a", "imp-b", "imp-c"} {
		started := fixedNow.Add(time.Duration(i) * time.Hour)
		tr.now = func() time.Time { return started }
		tr.StartBulkImportTracking(ctx, id, 0, 0)
	}

	runs := tr.ListRecentImports(ctx, 2)
	require.Len(t, runs, 2)
	assert.Equal(t, "imp-c", runs[0].ImportID)
	assert.Equal(t, "imp-b", runs[1].ImportID)
}

func TestTrackerSwallowsStoreErrors(t *testing.T) {
	store := newMemoryStore()
	store.err = errStoreDown
	tr := newTestTracker(store)
	ctx := context.Background()

	assert.NotPanics(t, func() {
		tr.StartBulkImportTracking(ctx, "imp-1", 0, 0)
		tr.UpdateImportProgress(ctx, "imp-1", 0, true)
		tr.CompleteBulkImport(ctx, "imp-1", model.ImportCompleted)
		tr.TrackRetryAttempt(ctx, model.RetryAttempt{OperationType: model.OperationIndexPage, Identifier: "1"})
		tr.UpdateDataHealth(ctx, "x", 1, nil)
	})
	assert.Nil(t, tr.GetImportStatus(ctx, "imp-1"))
	assert.Empty(t, tr.GetFailedOperations(ctx, model.OperationIndexPage, 24))
	assert.Empty(t, tr.ListRecentImports(ctx, 10))

	report := tr.CheckDataFreshness(ctx, 7)
	assert.Equal(t, errStoreDown.Error(), report.Error)
}

func TestGetFailedOperations(t *testing.T) {
	store := newMemoryStore()
	tr := newTestTracker(store)
	ctx := context.Background()

	page5 := json.RawMessage(`{"page":5}`)
	add := func(id string, n int, age time.Duration, payload json.RawMessage) {
		tr.TrackRetryAttempt(ctx, model.RetryAttempt{
			OperationType: model.OperationIndexPage,
			Identifier:    id,
			AttemptNumber: n,
			MaxAttempts:   3,
			ErrorMessage:  "boom",
			AttemptTime:   fixedNow.Add(-age),
			NextRetryTime: fixedNow.Add(-age).Add(time.Second),
			Payload:       payload,
		})
	}

	add("5", 1, 3*time.Hour, page5)
	add("5", 2, 2*time.Hour, nil)
	add("7", 1, time.Hour, json.RawMessage(`{"page":7}`))
	add("9", 1, 48*time.Hour, json.RawMessage(`{"page":9}`)) // too old
	add("11", 1, time.Hour, json.RawMessage(`{"page":11}`))
	tr.ResolveOperation(ctx, model.OperationIndexPage, "11")

	// retry not yet due
	tr.TrackRetryAttempt(ctx, model.RetryAttempt{
		OperationType: model.OperationIndexPage,
		Identifier:    "13",
		AttemptNumber: 1,
		AttemptTime:   fixedNow,
		NextRetryTime: fixedNow.Add(time.Hour),
	})

	failed := tr.GetFailedOperations(ctx, model.OperationIndexPage, 24)
	require.Len(t, failed, 2)

	assert.Equal(t, "5", failed[0].Identifier)
	assert.Equal(t, 2, failed[0].Attempts)
	assert.JSONEq(t, `{"page":5}`, string(failed[0].Payload))
	assert.Equal(t, "7", failed[1].Identifier)

	assert.Empty(t, tr.GetFailedOperations(ctx, model.OperationShowDetails, 24))
}

func TestTrackRetryAttemptKeepsOneRecordPerAttempt(t *testing.T) {
	store := newMemoryStore()
	tr := newTestTracker(store)
	ctx := context.Background()

	attempt := func(n int, msg string) model.RetryAttempt {
		return model.RetryAttempt{
			OperationType: model.OperationIndexPage,
			Identifier:    "msg-1",
			AttemptNumber: n,
			ErrorMessage:  msg,
			AttemptTime:   fixedNow.Add(-time.Minute),
			NextRetryTime: fixedNow.Add(-time.Minute),
		}
	}

	// a redelivery marker followed by the failure of that same attempt
	tr.TrackRetryAttempt(ctx, attempt(2, "redelivered"))
	tr.TrackRetryAttempt(ctx, attempt(2, "catalog unavailable"))
	tr.TrackRetryAttempt(ctx, attempt(3, "redelivered"))

	require.Len(t, store.attempts, 2)
	assert.Equal(t, 2, store.attempts[0].AttemptNumber)
	assert.Equal(t, "catalog unavailable", store.attempts[0].ErrorMessage)
	assert.Equal(t, 3, store.attempts[1].AttemptNumber)
}

func TestResolveOperationIsAppendOnly(t *testing.T) {
	store := newMemoryStore()
	tr := newTestTracker(store)
	ctx := context.Background()

	failure := model.RetryAttempt{
		OperationType: model.OperationShowDetails,
		Identifier:    "82",
		AttemptNumber: 1,
		ErrorMessage:  "timeout",
		AttemptTime:   fixedNow.Add(-time.Hour),
		NextRetryTime: fixedNow.Add(-time.Hour),
	}
	tr.TrackRetryAttempt(ctx, failure)
	before := *store.attempts[0]

	tr.ResolveOperation(ctx, model.OperationShowDetails, "82")

	assert.Equal(t, before, *store.attempts[0])
	require.Len(t, store.resolutions, 1)
	assert.Equal(t, fixedNow, store.resolutions[0].ResolvedAt)
	assert.Empty(t, tr.GetFailedOperations(ctx, model.OperationShowDetails, 24))

	// a failure after the success counts again
	failure.AttemptNumber = 2
	failure.AttemptTime = fixedNow.Add(time.Second)
	failure.NextRetryTime = fixedNow.Add(time.Second)
	tr.TrackRetryAttempt(ctx, failure)

	n, err := store.CountUnresolvedOperations(ctx, fixedNow.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestUpdateDataHealth(t *testing.T) {
	store := newMemoryStore()
	tr := newTestTracker(store)
	ctx := context.Background()
	threshold := 5.0

	tr.UpdateDataHealth(ctx, "queue_depth", 3, &threshold)
	tr.UpdateDataHealth(ctx, "error_rate", 9, &threshold)
	tr.UpdateDataHealth(ctx, "imported", 1000, nil)

	assert.True(t, store.metrics["queue_depth"].IsHealthy)
	assert.False(t, store.metrics["error_rate"].IsHealthy)
	assert.True(t, store.metrics["imported"].IsHealthy)
	assert.Equal(t, fixedNow, store.metrics["imported"].LastUpdated)
}

func TestCheckDataFreshness(t *testing.T) {
	t.Run("fresh", func(t *testing.T) {
		store := newMemoryStore()
		newest := fixedNow.Add(-48 * time.Hour)
		store.total, store.stale, store.newest = 100, 10, &newest
		tr := newTestTracker(store)

		report := tr.CheckDataFreshness(context.Background(), 7)

		assert.True(t, report.IsFresh)
		assert.InDelta(t, 2.0, report.AgeDays, 0.001)
		assert.Equal(t, int64(100), report.TotalShows)
		assert.Equal(t, int64(10), report.StaleCount)
		assert.Equal(t, fixedNow.AddDate(0, 0, -7), report.CutoffTime)

		metric := store.metrics[MetricDataFreshnessDays]
		require.NotNil(t, metric)
		assert.True(t, metric.IsHealthy)
	})

	t.Run("stale", func(t *testing.T) {
		store := newMemoryStore()
		newest := fixedNow.AddDate(0, 0, -10)
		store.total, store.stale, store.newest = 5, 5, &newest
		tr := newTestTracker(store)

		report := tr.CheckDataFreshness(context.Background(), 7)

		assert.False(t, report.IsFresh)
		assert.False(t, store.metrics[MetricDataFreshnessDays].IsHealthy)
	})

	t.Run("empty catalog", func(t *testing.T) {
		store := newMemoryStore()
		tr := newTestTracker(store)

		report := tr.CheckDataFreshness(context.Background(), 7)

		assert.False(t, report.IsFresh)
		assert.Nil(t, report.NewestShow)
		assert.Empty(t, store.metrics)
	})
}
