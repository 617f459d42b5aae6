package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/llevateloexpress/financing-backend/internal/domain"
)

const maxOutboxErrorLength = 1000

// OutboxRepository implements domain.OutboxRepository using PostgreSQL. Rows
// are claimed with SKIP LOCKED so several relays can run side by side.
type OutboxRepository struct {
	pool *pgxpool.Pool
}

// NewOutboxRepository creates a new OutboxRepository
func NewOutboxRepository(pool *pgxpool.Pool) *OutboxRepository {
	return &OutboxRepository{pool: pool}
}

type pendingEvent struct {
	id    string
	event *domain.StatusEvent
}

// ProcessPending claims up to limit unpublished events, runs fn on each and
// marks the successful ones published. Failed events stay pending with their
// attempt count and last error recorded.
func (r *OutboxRepository) ProcessPending(ctx context.Context, limit int, fn domain.StatusEventHandler) (int, error) {
	published := 0
	err := WithTransaction(ctx, r.pool, func(tx pgx.Tx) error {
		pending, err := claimPending(ctx, tx, limit)
		if err != nil {
			return err
		}

		done := make([]string, 0, len(pending))
		for _, p := range pending {
			if err := ctx.Err(); err != nil {
				break
			}
			if fnErr := fn(ctx, p.event); fnErr != nil {
				if err := recordFailure(ctx, tx, p.id, fnErr); err != nil {
					return err
				}
				continue
			}
			done = append(done, p.id)
		}

		if len(done) == 0 {
			return nil
		}
		tag, err := tx.Exec(ctx, `
			UPDATE status_event_outbox
			SET published_at = NOW(), attempts = attempts + 1
			WHERE id = ANY($1::uuid[])`, done)
		if err != nil {
			return fmt.Errorf("mark outbox published: %w", err)
		}
		published = int(tag.RowsAffected())
		return nil
	})
	if err != nil {
		return 0, err
	}
	return published, nil
}

func claimPending(ctx context.Context, tx pgx.Tx, limit int) ([]pendingEvent, error) {
	rows, err := tx.Query(ctx, `
		SELECT id::text, payload
		FROM status_event_outbox
		WHERE published_at IS NULL
		ORDER BY created_at, id
		LIMIT $1
		FOR UPDATE SKIP LOCKED`, limit)
	if err != nil {
		return nil, fmt.Errorf("claim outbox events: %w", err)
	}
	defer rows.Close()

	pending := make([]pendingEvent, 0)
	for rows.Next() {
		var (
			id      string
			payload []byte
		)
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, err
		}
		var event domain.StatusEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			return nil, fmt.Errorf("decode outbox event %s: %w", id, err)
		}
		pending = append(pending, pendingEvent{id: id, event: &event})
	}
	return pending, rows.Err()
}

func recordFailure(ctx context.Context, tx pgx.Tx, id string, cause error) error {
	msg := cause.Error()
	if len(msg) > maxOutboxErrorLength {
		msg = msg[:maxOutboxErrorLength]
	}
	_, err := tx.Exec(ctx, `
		UPDATE status_event_outbox
		SET attempts = attempts + 1, last_error = $2
		WHERE id = $1::uuid`, id, msg)
	if err != nil {
		return fmt.Errorf("record outbox failure: %w", err)
	}
	return nil
}
