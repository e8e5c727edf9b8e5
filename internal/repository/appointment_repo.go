package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"agendalo/internal/db"
	apperrors "agendalo/internal/errors"
)

type AppointmentRepository struct {
	DB *sql.DB
}

func NewAppointmentRepository(database *sql.DB) *AppointmentRepository {
	return &AppointmentRepository{DB: database}
}

const appointmentColumns = `id, tenant_id, service_id, client_id, member_name, start_at, end_at, status, notes, created_at, updated_at`

func scanAppointment(row interface{ Scan(...any) error }, a *db.Appointment) error {
	return row.Scan(
		&a.ID, &a.TenantID, &a.ServiceID, &a.ClientID, &a.MemberName,
		&a.StartAt, &a.EndAt, &a.Status, &a.Notes, &a.CreatedAt, &a.UpdatedAt,
	)
}

func (r *AppointmentRepository) Create(ctx context.Context, a *db.Appointment) error {
	query := `
		INSERT INTO appointments
		(id, tenant_id, service_id, client_id, member_name, start_at, end_at, status, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())
		RETURNING created_at, updated_at`
	return q(ctx, r.DB).QueryRowContext(ctx, query,
		a.ID, a.TenantID, a.ServiceID, a.ClientID, a.MemberName,
		a.StartAt, a.EndAt, a.Status, a.Notes,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
}

func (r *AppointmentRepository) Get(ctx context.Context, tenantID, id uuid.UUID) (*db.Appointment, error) {
	var a db.Appointment
	query := fmt.Sprintf(`SELECT %s FROM appointments WHERE tenant_id = $1 AND id = $2`, appointmentColumns)
	err := scanAppointment(q(ctx, r.DB).QueryRowContext(ctx, query, tenantID, id), &a)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.E(apperrors.KindNotFound, "turno no encontrado")
		}
		return nil, fmt.Errorf("querying appointment: %w", err)
	}
	return &a, nil
}

func (r *AppointmentRepository) List(ctx context.Context, tenantID uuid.UUID) ([]db.Appointment, error) {
	query := fmt.Sprintf(`SELECT %s FROM appointments WHERE tenant_id = $1 ORDER BY start_at DESC`, appointmentColumns)
	rows, err := q(ctx, r.DB).QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("listing appointments: %w", err)
	}
	defer rows.Close()

	var out []db.Appointment
	for rows.Next() {
		var a db.Appointment
		if err := scanAppointment(rows, &a); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ListConfirmedOverlapping returns confirmed appointments of the service that
// intersect [start,end), excluding excludeID when it is non-nil.
func (r *AppointmentRepository) ListConfirmedOverlapping(ctx context.Context, tenantID, serviceID uuid.UUID, start, end time.Time, excludeID uuid.UUID) ([]db.Appointment, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM appointments
		WHERE tenant_id = $1 AND service_id = $2 AND status = $3
		  AND start_at < $4 AND end_at > $5
		  AND id <> $6
		ORDER BY start_at`, appointmentColumns)
	rows, err := q(ctx, r.DB).QueryContext(ctx, query,
		tenantID, serviceID, db.AppointmentConfirmed, end, start, excludeID)
	if err != nil {
		return nil, fmt.Errorf("listing overlapping appointments: %w", err)
	}
	defer rows.Close()

	var out []db.Appointment
	for rows.Next() {
		var a db.Appointment
		if err := scanAppointment(rows, &a); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *AppointmentRepository) UpdateStatus(ctx context.Context, tenantID, id uuid.UUID, status string) error {
	res, err := q(ctx, r.DB).ExecContext(ctx,
		`UPDATE appointments SET status = $3, updated_at = now() WHERE tenant_id = $1 AND id = $2`,
		tenantID, id, status)
	if err != nil {
		return fmt.Errorf("updating appointment status: %w", err)
	}
	return requireAffected(res)
}

// ReassignAndConfirm moves the appointment to a new client and confirms it in
// one write. Used by offer acceptance.
func (r *AppointmentRepository) ReassignAndConfirm(ctx context.Context, tenantID, id, clientID uuid.UUID) error {
	res, err := q(ctx, r.DB).ExecContext(ctx,
		`UPDATE appointments SET client_id = $3, status = $4, updated_at = now() WHERE tenant_id = $1 AND id = $2`,
		tenantID, id, clientID, db.AppointmentConfirmed)
	if err != nil {
		return fmt.Errorf("reassigning appointment: %w", err)
	}
	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperrors.E(apperrors.KindNotFound, "registro no encontrado")
	}
	return nil
}
