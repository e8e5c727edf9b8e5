package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"agendalo/internal/db"
)

type BlockedSlotRepository struct {
	DB *sql.DB
}

func NewBlockedSlotRepository(database *sql.DB) *BlockedSlotRepository {
	return &BlockedSlotRepository{DB: database}
}

func (r *BlockedSlotRepository) Create(ctx context.Context, b *db.BlockedSlot) error {
	query := `
		INSERT INTO blocked_slots (id, tenant_id, member_name, start_at, end_at, reason, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		RETURNING created_at`
	return q(ctx, r.DB).QueryRowContext(ctx, query,
		b.ID, b.TenantID, b.MemberName, b.StartAt, b.EndAt, b.Reason, b.CreatedBy,
	).Scan(&b.CreatedAt)
}

// ListOverlapping returns every block of the tenant intersecting [start,end),
// regardless of member name. Callers split global vs per-member blocks.
func (r *BlockedSlotRepository) ListOverlapping(ctx context.Context, tenantID uuid.UUID, start, end time.Time) ([]db.BlockedSlot, error) {
	query := `
		SELECT id, tenant_id, member_name, start_at, end_at, reason, created_by, created_at
		FROM blocked_slots
		WHERE tenant_id = $1 AND start_at < $2 AND end_at > $3
		ORDER BY start_at`
	rows, err := q(ctx, r.DB).QueryContext(ctx, query, tenantID, end, start)
	if err != nil {
		return nil, fmt.Errorf("listing overlapping blocks: %w", err)
	}
	defer rows.Close()
	return collectBlocks(rows)
}

// ListByDate lists the tenant's blocks, optionally only those starting on day.
func (r *BlockedSlotRepository) ListByDate(ctx context.Context, tenantID uuid.UUID, day *time.Time) ([]db.BlockedSlot, error) {
	query := `
		SELECT id, tenant_id, member_name, start_at, end_at, reason, created_by, created_at
		FROM blocked_slots
		WHERE tenant_id = $1 AND ($2::date IS NULL OR start_at::date = $2::date)
		ORDER BY start_at`
	var dayArg any
	if day != nil {
		dayArg = *day
	}
	rows, err := q(ctx, r.DB).QueryContext(ctx, query, tenantID, dayArg)
	if err != nil {
		return nil, fmt.Errorf("listing blocks: %w", err)
	}
	defer rows.Close()
	return collectBlocks(rows)
}

func (r *BlockedSlotRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	res, err := q(ctx, r.DB).ExecContext(ctx,
		`DELETE FROM blocked_slots WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return fmt.Errorf("deleting block: %w", err)
	}
	return requireAffected(res)
}

func collectBlocks(rows *sql.Rows) ([]db.BlockedSlot, error) {
	var out []db.BlockedSlot
	for rows.Next() {
		var b db.BlockedSlot
		if err := rows.Scan(&b.ID, &b.TenantID, &b.MemberName, &b.StartAt, &b.EndAt, &b.Reason, &b.CreatedBy, &b.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
