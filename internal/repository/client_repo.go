package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"agendalo/internal/db"
)

type ClientRepository struct {
	DB *sql.DB
}

func NewClientRepository(database *sql.DB) *ClientRepository {
	return &ClientRepository{DB: database}
}

// FindByEmail returns nil without error when no client matches.
func (r *ClientRepository) FindByEmail(ctx context.Context, tenantID uuid.UUID, email string) (*db.Client, error) {
	if email == "" {
		return nil, nil
	}
	return r.findOne(ctx, `SELECT id, tenant_id, full_name, email, phone, created_at FROM clients WHERE tenant_id = $1 AND email = $2 ORDER BY created_at LIMIT 1`, tenantID, email)
}

func (r *ClientRepository) FindByName(ctx context.Context, tenantID uuid.UUID, fullName string) (*db.Client, error) {
	if fullName == "" {
		return nil, nil
	}
	return r.findOne(ctx, `SELECT id, tenant_id, full_name, email, phone, created_at FROM clients WHERE tenant_id = $1 AND full_name = $2 ORDER BY created_at LIMIT 1`, tenantID, fullName)
}

func (r *ClientRepository) Get(ctx context.Context, tenantID, id uuid.UUID) (*db.Client, error) {
	return r.findOne(ctx, `SELECT id, tenant_id, full_name, email, phone, created_at FROM clients WHERE tenant_id = $1 AND id = $2`, tenantID, id)
}

func (r *ClientRepository) Create(ctx context.Context, c *db.Client) error {
	query := `
		INSERT INTO clients (id, tenant_id, full_name, email, phone, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		RETURNING created_at`
	return q(ctx, r.DB).QueryRowContext(ctx, query, c.ID, c.TenantID, c.FullName, c.Email, c.Phone).Scan(&c.CreatedAt)
}

func (r *ClientRepository) findOne(ctx context.Context, query string, args ...any) (*db.Client, error) {
	var c db.Client
	err := q(ctx, r.DB).QueryRowContext(ctx, query, args...).Scan(&c.ID, &c.TenantID, &c.FullName, &c.Email, &c.Phone, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying client: %w", err)
	}
	return &c, nil
}
