package model

import "time"

// HealthMetric is keyed by name and upserted by whoever measures it
type HealthMetric struct {
	Name        string    `bson:"_id" json:"name"`
	Value       float64   `bson:"value" json:"value"`
	Threshold   *float64  `bson:"threshold,omitempty" json:"threshold,omitempty"`
	IsHealthy   bool      `bson:"is_healthy" json:"is_healthy"`
	LastUpdated time.Time `bson:"last_updated" json:"last_updated"`
}

// NewHealthMetric derives IsHealthy: healthy without a threshold or when value <= threshold
func NewHealthMetric(name string, value float64, threshold *float64, now time.Time) HealthMetric {
	return HealthMetric{
		Name:        name,
		Value:       value,
		Threshold:   threshold,
		IsHealthy:   threshold == nil || value <= *threshold,
		LastUpdated: now,
	}
}

const (
	HealthHealthy  = "healthy"
	HealthDegraded = "degraded"

	FreshnessFresh   = "fresh"
	FreshnessStale   = "stale"
	FreshnessUnknown = "unknown"
)

// FreshnessReport describes how current the imported catalog is
type FreshnessReport struct {
	LastCheck  time.Time  `json:"last_check"`
	MaxAgeDays int        `json:"max_age_days"`
	CutoffTime time.Time  `json:"cutoff_time"`
	NewestShow *time.Time `json:"newest_show,omitempty"`
	AgeDays    float64    `json:"age_days"`
	IsFresh    bool       `json:"is_fresh"`
	StaleCount int64      `json:"stale_count"`
	TotalShows int64      `json:"total_shows"`
	Error      string     `json:"error,omitempty"`
}

// HealthSummary is the single aggregated view exposed to operators
type HealthSummary struct {
	LastCheck        time.Time         `json:"last_check"`
	ActiveImports    int64             `json:"active_imports"`
	FailedOperations int               `json:"failed_operations"`
	DataFreshness    string            `json:"data_freshness"`
	UnhealthyMetrics []HealthMetric    `json:"unhealthy_metrics,omitempty"`
	OverallHealth    string            `json:"overall_health"`
	Dependencies     map[string]string `json:"dependencies,omitempty"`
}
