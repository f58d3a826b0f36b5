package repository

import (
	"context"
	"time"

	"kids-content-billing/internal/domain/model"
)

// ProcessedEventRepository is the idempotency-marker store.
type ProcessedEventRepository interface {
	// Record inserts the marker; returns domain.ErrDuplicateEvent when the
	// (eventType, entityID, deliveryID) triple was already recorded.
	Record(ctx context.Context, tx Tx, ev *model.ProcessedEvent) error
	Find(ctx context.Context, tx Tx, eventType model.EventType, entityID, deliveryID string) (*model.ProcessedEvent, error)
	// PurgeOlderThan bounds the retention window; returns rows removed.
	PurgeOlderThan(ctx context.Context, tx Tx, cutoff time.Time) (int64, error)
}
