package orchestrator

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// UpdateSchedule periodically queues catalog updates and refreshes the freshness metric
type UpdateSchedule struct {
	importer  *ShowImporter
	freshness func(ctx context.Context)
	interval  time.Duration
	since     string
}

// NewUpdateSchedule runs importer.GetUpdates(since) every interval. freshness may be nil.
func NewUpdateSchedule(importer *ShowImporter, interval time.Duration, since string, freshness func(ctx context.Context)) *UpdateSchedule {
	return &UpdateSchedule{
		importer:  importer,
		freshness: freshness,
		interval:  interval,
		since:     since,
	}
}

// Run blocks until ctx is done. A failed sweep is logged and retried on the next tick.
func (u *UpdateSchedule) Run(ctx context.Context) error {
	ticker := time.NewTicker(u.interval)
	defer ticker.Stop()

	log.Info().Dur("interval", u.interval).Str("since", u.since).Msg("Update schedule started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Update schedule stopped")
			return nil
		case <-ticker.C:
			u.tick(ctx)
		}
	}
}

func (u *UpdateSchedule) tick(ctx context.Context) {
	queued, err := u.importer.GetUpdates(ctx, u.since)
	if err != nil {
		log.Error().Err(err).Str("since", u.since).Msg("Scheduled update sweep failed")
	} else {
		log.Info().Int("queued", queued).Msg("Scheduled update sweep finished")
	}

	if u.freshness != nil {
		u.freshness(ctx)
	}
}
