package monitoring

import (
	"context"
	"errors"
	"showservice/internal/database"
	"showservice/internal/model"
	"time"

	"github.com/rs/zerolog/log"
)

// MetricDataFreshnessDays is the age in days of the newest imported show
const MetricDataFreshnessDays = "data_freshness_days"

// Store is the persistence the tracker needs
type Store interface {
	UpsertImportRun(ctx context.Context, run *model.ImportRun) error
	IncrementImportProgress(ctx context.Context, importID string, page int, success bool, at time.Time) error
	FinalizeImportRun(ctx context.Context, importID string, status model.ImportStatus, at time.Time) error
	GetImportRun(ctx context.Context, importID string) (*model.ImportRun, error)
	CountImportRunsByStatus(ctx context.Context, status model.ImportStatus) (int64, error)
	ListImportRuns(ctx context.Context, limit int) ([]*model.ImportRun, error)

	UpsertRetryAttempt(ctx context.Context, attempt *model.RetryAttempt) error
	InsertRetryResolution(ctx context.Context, resolution *model.RetryResolution) error
	ListUnresolvedRetryAttempts(ctx context.Context, op model.OperationType, since, due time.Time) ([]*model.RetryAttempt, error)
	CountUnresolvedOperations(ctx context.Context, since time.Time) (int, error)

	UpsertHealthMetric(ctx context.Context, metric *model.HealthMetric) error
	GetHealthMetric(ctx context.Context, name string) (*model.HealthMetric, error)
	ListHealthMetrics(ctx context.Context) ([]*model.HealthMetric, error)

	ShowStats(ctx context.Context, cutoff time.Time) (total int64, stale int64, newest *time.Time, err error)
}

// Tracker records import progress, retry attempts and health metrics.
// Storage failures are logged and swallowed so callers keep running.
type Tracker struct {
	store Store
	now   func() time.Time
}

func NewTracker(store Store) *Tracker {
	return &Tracker{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// StartBulkImportTracking creates (or overwrites) the run record in progress
func (t *Tracker) StartBulkImportTracking(ctx context.Context, importID string, startPage, estimatedPages int) {
	now := t.now()
	if estimatedPages <= 0 {
		estimatedPages = model.UnknownPageCount
	}

	run := &model.ImportRun{
		ImportID:         importID,
		Status:           model.ImportInProgress,
		StartPage:        startPage,
		EstimatedPages:   estimatedPages,
		CompletedPages:   0,
		FailedPages:      0,
		StartTime:        now,
		LastActivityTime: now,
	}

	if err := t.store.UpsertImportRun(ctx, run); err != nil {
		log.Error().Err(err).Str("importID", importID).Msg("Failed to start import tracking")
		return
	}

	log.Info().
		Str("importID", importID).
		Int("startPage", startPage).
		Int("estimatedPages", estimatedPages).
		Msg("Started bulk import tracking")
}

// UpdateImportProgress counts one processed page; unknown runs are left alone
func (t *Tracker) UpdateImportProgress(ctx context.Context, importID string, page int, success bool) {
	if importID == "" {
		log.Debug().Int("page", page).Msg("Page processed outside a tracked import")
		return
	}

	err := t.store.IncrementImportProgress(ctx, importID, page, success, t.now())
	if errors.Is(err, database.ErrNotFound) {
		log.Error().Str("importID", importID).Int("page", page).Msg("Import run not found for progress update")
		return
	}
	if err != nil {
		log.Error().Err(err).Str("importID", importID).Int("page", page).Msg("Failed to update import progress")
		return
	}

	log.Debug().Str("importID", importID).Int("page", page).Bool("success", success).Msg("Updated import progress")
}

// CompleteBulkImport moves a run to its terminal status
func (t *Tracker) CompleteBulkImport(ctx context.Context, importID string, status model.ImportStatus) {
	if importID == "" {
		return
	}
	if !status.IsTerminal() {
		log.Error().Str("importID", importID).Str("status", string(status)).Msg("Refusing to complete import with a non-terminal status")
		return
	}

	err := t.store.FinalizeImportRun(ctx, importID, status, t.now())
	switch {
	case errors.Is(err, database.ErrNotFound):
		log.Error().Str("importID", importID).Msg("Import run not found for completion")
	case errors.Is(err, database.ErrImportFinalized):
		log.Warn().Str("importID", importID).Msg("Import run already finalized")
	case err != nil:
		log.Error().Err(err).Str("importID", importID).Msg("Failed to complete import")
	default:
		log.Info().Str("importID", importID).Str("status", string(status)).Msg("Completed bulk import")
	}
}

// GetImportStatus returns the run, or nil when it does not exist
func (t *Tracker) GetImportStatus(ctx context.Context, importID string) *model.ImportRun {
	run, err := t.store.GetImportRun(ctx, importID)
	if err != nil {
		if !errors.Is(err, database.ErrNotFound) {
			log.Error().Err(err).Str("importID", importID).Msg("Failed to get import status")
		}
		return nil
	}

	return run
}

// ListRecentImports returns the newest runs first. Storage errors yield an empty list.
func (t *Tracker) ListRecentImports(ctx context.Context, limit int) []*model.ImportRun {
	runs, err := t.store.ListImportRuns(ctx, limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list import runs")
		return []*model.ImportRun{}
	}
	return runs
}

// TrackRetryAttempt records one attempt. A second record for the same
// (operation, identifier, attempt number) replaces the first.
func (t *Tracker) TrackRetryAttempt(ctx context.Context, attempt model.RetryAttempt) {
	if attempt.AttemptTime.IsZero() {
		attempt.AttemptTime = t.now()
	}

	if err := t.store.UpsertRetryAttempt(ctx, &attempt); err != nil {
		log.Error().Err(err).
			Str("operationType", string(attempt.OperationType)).
			Str("identifier", attempt.Identifier).
			Int("attempt", attempt.AttemptNumber).
			Msg("Failed to track retry attempt")
	}
}

// ResolveOperation appends a success marker; attempts made up to now stop
// counting as failed
func (t *Tracker) ResolveOperation(ctx context.Context, op model.OperationType, identifier string) {
	resolution := model.RetryResolution{
		OperationType: op,
		Identifier:    identifier,
		ResolvedAt:    t.now(),
	}

	if err := t.store.InsertRetryResolution(ctx, &resolution); err != nil {
		log.Error().Err(err).Str("operationType", string(op)).Str("identifier", identifier).Msg("Failed to resolve retry attempts")
		return
	}

	log.Info().
		Str("operationType", string(op)).
		Str("identifier", identifier).
		Msg("Resolved retried operation")
}

// GetFailedOperations lists operations that failed within maxAgeHours with
// no later success, and whose retry time has come, newest attempt per identifier.
func (t *Tracker) GetFailedOperations(ctx context.Context, op model.OperationType, maxAgeHours int) []model.FailedOperation {
	now := t.now()
	since := now.Add(-time.Duration(maxAgeHours) * time.Hour)

	attempts, err := t.store.ListUnresolvedRetryAttempts(ctx, op, since, now)
	if err != nil {
		log.Error().Err(err).Str("operationType", string(op)).Msg("Failed to get failed operations")
		return []model.FailedOperation{}
	}

	return collapseAttempts(attempts)
}

// collapseAttempts keeps the latest attempt per identifier, in first-seen order
func collapseAttempts(attempts []*model.RetryAttempt) []model.FailedOperation {
	index := map[string]int{}
	failed := []model.FailedOperation{}

	for _, a := range attempts {
		op := model.FailedOperation{
			OperationType: a.OperationType,
			Identifier:    a.Identifier,
			Attempts:      a.AttemptNumber,
			MaxAttempts:   a.MaxAttempts,
			LastError:     a.ErrorMessage,
			LastAttempt:   a.AttemptTime,
			NextRetryTime: a.NextRetryTime,
			Payload:       a.Payload,
		}

		i, seen := index[a.Identifier]
		if !seen {
			index[a.Identifier] = len(failed)
			failed = append(failed, op)
			continue
		}

		if !a.AttemptTime.Before(failed[i].LastAttempt) {
			if op.Payload == nil {
				op.Payload = failed[i].Payload
			}
			if op.Attempts < failed[i].Attempts {
				op.Attempts = failed[i].Attempts
			}
			failed[i] = op
		}
	}

	return failed
}

// UpdateDataHealth upserts a named metric
func (t *Tracker) UpdateDataHealth(ctx context.Context, name string, value float64, threshold *float64) {
	metric := model.NewHealthMetric(name, value, threshold, t.now())

	if err := t.store.UpsertHealthMetric(ctx, &metric); err != nil {
		log.Error().Err(err).Str("metric", name).Msg("Failed to update data health")
		return
	}

	log.Debug().Str("metric", name).Float64("value", value).Bool("healthy", metric.IsHealthy).Msg("Updated data health")
}

// CheckDataFreshness measures the age of the newest imported show
func (t *Tracker) CheckDataFreshness(ctx context.Context, maxAgeDays int) model.FreshnessReport {
	now := t.now()
	cutoff := now.AddDate(0, 0, -maxAgeDays)

	report := model.FreshnessReport{
		LastCheck:  now,
		MaxAgeDays: maxAgeDays,
		CutoffTime: cutoff,
	}

	total, stale, newest, err := t.store.ShowStats(ctx, cutoff)
	if err != nil {
		log.Error().Err(err).Msg("Failed to check data freshness")
		report.Error = err.Error()
		return report
	}

	report.TotalShows = total
	report.StaleCount = stale
	report.NewestShow = newest

	if newest == nil {
		// nothing imported yet
		return report
	}

	report.AgeDays = now.Sub(*newest).Hours() / 24
	report.IsFresh = !newest.Before(cutoff)

	threshold := float64(maxAgeDays)
	t.UpdateDataHealth(ctx, MetricDataFreshnessDays, report.AgeDays, &threshold)

	return report
}
