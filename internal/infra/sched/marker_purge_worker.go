package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"kids-content-billing/internal/domain/ports/repository"
)

// MarkerPurgeWorker periodically trims old idempotency markers. Redelivery
// windows on the payment service side are hours, not months, so markers past
// the retention window only cost storage.
type MarkerPurgeWorker struct {
	interval  time.Duration
	retention time.Duration
	events    repository.ProcessedEventRepository
	log       *zerolog.Logger
}

func NewMarkerPurgeWorker(interval, retention time.Duration, events repository.ProcessedEventRepository, logger *zerolog.Logger) *MarkerPurgeWorker {
	compLog := logger.With().Str("component", "MarkerPurgeWorker").Logger()
	if interval <= 0 {
		interval = 6 * time.Hour
	}
	if retention <= 0 {
		retention = 30 * 24 * time.Hour
	}
	return &MarkerPurgeWorker{
		interval:  interval,
		retention: retention,
		events:    events,
		log:       &compLog,
	}
}

func (w *MarkerPurgeWorker) Run(ctx context.Context) error {
	w.log.Info().Msg("Starting marker purge worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping marker purge worker")
			return ctx.Err()
		case <-ticker.C:
			n, err := w.events.PurgeOlderThan(ctx, nil, time.Now().Add(-w.retention))
			if err != nil {
				w.log.Error().Err(err).Msg("marker purge failed")
				continue
			}
			if n > 0 {
				w.log.Info().Int64("count", n).Msg("old idempotency markers purged")
			}
		}
	}
}
