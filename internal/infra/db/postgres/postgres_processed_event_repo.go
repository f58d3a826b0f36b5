package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"kids-content-billing/internal/domain"
	"kids-content-billing/internal/domain/model"
	"kids-content-billing/internal/domain/ports/repository"
)

var _ repository.ProcessedEventRepository = (*processedEventRepo)(nil)

// processedEventRepo persists idempotency markers. The primary key on
// (event_type, entity_id, delivery_id) makes Record race-safe: the second of
// two concurrent inserts fails with a unique violation.
type processedEventRepo struct{ pool *pgxpool.Pool }

func NewProcessedEventRepo(pool *pgxpool.Pool) *processedEventRepo {
	return &processedEventRepo{pool: pool}
}

func (r *processedEventRepo) Record(ctx context.Context, tx repository.Tx, ev *model.ProcessedEvent) error {
	const q = `
INSERT INTO processed_events (event_type, entity_id, delivery_id, outcome, processed_at)
VALUES ($1,$2,$3,$4,$5);`

	_, err := execSQL(ctx, r.pool, tx, q, ev.EventType, ev.EntityID, ev.DeliveryID, ev.Outcome, ev.ProcessedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateEvent
		}
		return mapExecError(err)
	}
	return nil
}

func (r *processedEventRepo) Find(ctx context.Context, tx repository.Tx, eventType model.EventType, entityID, deliveryID string) (*model.ProcessedEvent, error) {
	const q = `SELECT event_type, entity_id, delivery_id, outcome, processed_at FROM processed_events WHERE event_type=$1 AND entity_id=$2 AND delivery_id=$3;`
	row, err := pickRow(ctx, r.pool, tx, q, eventType, entityID, deliveryID)
	if err != nil {
		return nil, err
	}
	ev := &model.ProcessedEvent{}
	if err := row.Scan(&ev.EventType, &ev.EntityID, &ev.DeliveryID, &ev.Outcome, &ev.ProcessedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return ev, nil
}

func (r *processedEventRepo) PurgeOlderThan(ctx context.Context, tx repository.Tx, cutoff time.Time) (int64, error) {
	const q = `DELETE FROM processed_events WHERE processed_at < $1;`
	tag, err := execSQL(ctx, r.pool, tx, q, cutoff)
	if err != nil {
		return 0, mapExecError(err)
	}
	return tag.RowsAffected(), nil
}
