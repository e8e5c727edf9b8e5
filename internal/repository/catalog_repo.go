package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"agendalo/internal/db"
	apperrors "agendalo/internal/errors"
)

// CatalogRepository reads the service/resource catalog. The engine treats it
// as read-only; catalog management happens elsewhere.
type CatalogRepository struct {
	DB *sql.DB
}

func NewCatalogRepository(database *sql.DB) *CatalogRepository {
	return &CatalogRepository{DB: database}
}

// GetService loads a service with its pool members in declaration order.
// A service id belonging to another tenant surfaces as NotFound.
func (r *CatalogRepository) GetService(ctx context.Context, tenantID, serviceID uuid.UUID) (*db.Service, error) {
	var svc db.Service
	err := q(ctx, r.DB).QueryRowContext(ctx, `
		SELECT id, tenant_id, name, resource_mode, duration_min, min_advance_hours, is_active
		FROM services
		WHERE tenant_id = $1 AND id = $2 AND is_active`,
		tenantID, serviceID,
	).Scan(&svc.ID, &svc.TenantID, &svc.Name, &svc.ResourceMode, &svc.DurationMin, &svc.MinAdvanceHours, &svc.IsActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.E(apperrors.KindNotFound, "servicio no encontrado")
		}
		return nil, fmt.Errorf("querying service: %w", err)
	}

	rows, err := q(ctx, r.DB).QueryContext(ctx, `
		SELECT name, category, capacity, position
		FROM pool_members
		WHERE service_id = $1
		ORDER BY position`, serviceID)
	if err != nil {
		return nil, fmt.Errorf("querying pool members: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var m db.PoolMember
		if err := rows.Scan(&m.Name, &m.Category, &m.Capacity, &m.Position); err != nil {
			return nil, err
		}
		svc.PoolMembers = append(svc.PoolMembers, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &svc, nil
}

func (r *CatalogRepository) ListServices(ctx context.Context, tenantID uuid.UUID) ([]db.Service, error) {
	rows, err := q(ctx, r.DB).QueryContext(ctx, `
		SELECT id, tenant_id, name, resource_mode, duration_min, min_advance_hours, is_active
		FROM services
		WHERE tenant_id = $1 AND is_active
		ORDER BY name`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("listing services: %w", err)
	}
	defer rows.Close()

	var out []db.Service
	for rows.Next() {
		var svc db.Service
		if err := rows.Scan(&svc.ID, &svc.TenantID, &svc.Name, &svc.ResourceMode, &svc.DurationMin, &svc.MinAdvanceHours, &svc.IsActive); err != nil {
			return nil, err
		}
		out = append(out, svc)
	}
	return out, rows.Err()
}

func (r *CatalogRepository) GetTenant(ctx context.Context, tenantID uuid.UUID) (*db.Tenant, error) {
	var t db.Tenant
	err := q(ctx, r.DB).QueryRowContext(ctx, `
		SELECT id, name, opening_hours, is_active, created_at, updated_at
		FROM tenants WHERE id = $1 AND is_active`, tenantID,
	).Scan(&t.ID, &t.Name, &t.OpeningHours, &t.IsActive, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.E(apperrors.KindNotFound, "establecimiento no encontrado")
		}
		return nil, fmt.Errorf("querying tenant: %w", err)
	}
	return &t, nil
}
