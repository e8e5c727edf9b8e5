package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"agendalo/internal/db"
)

type NotificationRepository struct {
	DB *sql.DB
}

func NewNotificationRepository(database *sql.DB) *NotificationRepository {
	return &NotificationRepository{DB: database}
}

func (r *NotificationRepository) Enqueue(ctx context.Context, m *db.QueuedMessage) error {
	query := `
		INSERT INTO message_queue (id, tenant_id, channel, to_address, payload, status, scheduled_at, retries)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0)`
	_, err := q(ctx, r.DB).ExecContext(ctx, query,
		m.ID, m.TenantID, m.Channel, m.ToAddress, m.Payload, m.Status, m.ScheduledAt)
	if err != nil {
		return fmt.Errorf("enqueueing message: %w", err)
	}
	return nil
}

// DequeueBatch claims up to limit due messages for delivery. SKIP LOCKED keeps
// concurrent dispatch runs from double-sending.
func (r *NotificationRepository) DequeueBatch(ctx context.Context, limit int) ([]db.QueuedMessage, error) {
	query := `
		SELECT id, tenant_id, channel, to_address, payload, status, scheduled_at, sent_at, retries
		FROM message_queue
		WHERE status = $1 AND scheduled_at <= now()
		ORDER BY scheduled_at
		LIMIT $2
		FOR UPDATE SKIP LOCKED`
	rows, err := q(ctx, r.DB).QueryContext(ctx, query, db.MessageQueued, limit)
	if err != nil {
		return nil, fmt.Errorf("dequeuing messages: %w", err)
	}
	defer rows.Close()

	var out []db.QueuedMessage
	for rows.Next() {
		var m db.QueuedMessage
		if err := rows.Scan(&m.ID, &m.TenantID, &m.Channel, &m.ToAddress, &m.Payload, &m.Status, &m.ScheduledAt, &m.SentAt, &m.Retries); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *NotificationRepository) MarkSent(ctx context.Context, id uuid.UUID) error {
	_, err := q(ctx, r.DB).ExecContext(ctx,
		`UPDATE message_queue SET status = $2, sent_at = now() WHERE id = $1`,
		id, db.MessageSent)
	return err
}

func (r *NotificationRepository) MarkFailed(ctx context.Context, id uuid.UUID) error {
	_, err := q(ctx, r.DB).ExecContext(ctx,
		`UPDATE message_queue SET status = $2, retries = retries + 1 WHERE id = $1`,
		id, db.MessageFailed)
	return err
}
