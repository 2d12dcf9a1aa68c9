package monitoring

import (
	"context"
	"errors"
	"showservice/internal/database"
	"showservice/internal/model"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
)

// FailedOperationsWindow bounds the failed-operation count in the summary
const FailedOperationsWindow = 24 * time.Hour

// Checker pings one external dependency
type Checker func(ctx context.Context) error

// Reporter aggregates tracking state into a single health view
type Reporter struct {
	tracker      *Tracker
	dependencies map[string]Checker
}

func NewReporter(tracker *Tracker, dependencies map[string]Checker) *Reporter {
	if dependencies == nil {
		dependencies = map[string]Checker{}
	}
	return &Reporter{
		tracker:      tracker,
		dependencies: dependencies,
	}
}

// GetHealthSummary never fails; anything it cannot read degrades the summary
func (r *Reporter) GetHealthSummary(ctx context.Context) model.HealthSummary {
	store := r.tracker.store
	now := r.tracker.now()

	summary := model.HealthSummary{
		LastCheck:     now,
		DataFreshness: model.FreshnessUnknown,
		OverallHealth: model.HealthHealthy,
	}
	degraded := false

	active, err := store.CountImportRunsByStatus(ctx, model.ImportInProgress)
	if err != nil {
		log.Error().Err(err).Msg("Failed to count active imports")
		degraded = true
	}
	summary.ActiveImports = active

	failed, err := store.CountUnresolvedOperations(ctx, now.Add(-FailedOperationsWindow))
	if err != nil {
		log.Error().Err(err).Msg("Failed to count failed operations")
		degraded = true
	}
	summary.FailedOperations = failed

	freshness, err := store.GetHealthMetric(ctx, MetricDataFreshnessDays)
	switch {
	case errors.Is(err, database.ErrNotFound):
	case err != nil:
		log.Error().Err(err).Msg("Failed to read freshness metric")
		degraded = true
	case freshness.IsHealthy:
		summary.DataFreshness = model.FreshnessFresh
	default:
		summary.DataFreshness = model.FreshnessStale
		degraded = true
	}

	metrics, err := store.ListHealthMetrics(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list health metrics")
		degraded = true
	}
	for _, m := range metrics {
		if !m.IsHealthy {
			summary.UnhealthyMetrics = append(summary.UnhealthyMetrics, *m)
			degraded = true
		}
	}
	sort.Slice(summary.UnhealthyMetrics, func(i, j int) bool {
		return summary.UnhealthyMetrics[i].Name < summary.UnhealthyMetrics[j].Name
	})

	if len(r.dependencies) > 0 {
		summary.Dependencies = make(map[string]string, len(r.dependencies))
		for name, check := range r.dependencies {
			if err := check(ctx); err != nil {
				summary.Dependencies[name] = err.Error()
				degraded = true
				continue
			}
			summary.Dependencies[name] = "ok"
		}
	}

	if degraded {
		summary.OverallHealth = model.HealthDegraded
	}

	return summary
}
