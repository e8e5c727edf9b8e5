package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"agendalo/internal/db"
)

type StaffRepository struct {
	DB *sql.DB
}

func NewStaffRepository(database *sql.DB) *StaffRepository {
	return &StaffRepository{DB: database}
}

// GetByEmail returns nil without error when no active staff user matches.
func (r *StaffRepository) GetByEmail(ctx context.Context, email string) (*db.StaffUser, error) {
	var s db.StaffUser
	err := q(ctx, r.DB).QueryRowContext(ctx, `
		SELECT id, tenant_id, email, full_name, phone, password_hash, role, is_active
		FROM staff_users WHERE email = $1 AND is_active`, email,
	).Scan(&s.ID, &s.TenantID, &s.Email, &s.FullName, &s.Phone, &s.PasswordHash, &s.Role, &s.IsActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying staff user: %w", err)
	}
	return &s, nil
}

// ListActive returns the tenant's active staff, the recipients of
// "reservation requested" notifications.
func (r *StaffRepository) ListActive(ctx context.Context, tenantID uuid.UUID) ([]db.StaffUser, error) {
	rows, err := q(ctx, r.DB).QueryContext(ctx, `
		SELECT id, tenant_id, email, full_name, phone, password_hash, role, is_active
		FROM staff_users WHERE tenant_id = $1 AND is_active
		ORDER BY email`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("listing staff: %w", err)
	}
	defer rows.Close()

	var out []db.StaffUser
	for rows.Next() {
		var s db.StaffUser
		if err := rows.Scan(&s.ID, &s.TenantID, &s.Email, &s.FullName, &s.Phone, &s.PasswordHash, &s.Role, &s.IsActive); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
