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

type WaitlistRepository struct {
	DB *sql.DB
}

func NewWaitlistRepository(database *sql.DB) *WaitlistRepository {
	return &WaitlistRepository{DB: database}
}

func (r *WaitlistRepository) CreateWaitlist(ctx context.Context, w *db.Waitlist) error {
	query := `
		INSERT INTO waitlists (id, tenant_id, service_id, desired_date, status, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		RETURNING created_at`
	return q(ctx, r.DB).QueryRowContext(ctx, query, w.ID, w.TenantID, w.ServiceID, w.DesiredDate, w.Status).Scan(&w.CreatedAt)
}

func (r *WaitlistRepository) ListWaitlists(ctx context.Context, tenantID uuid.UUID) ([]db.Waitlist, error) {
	rows, err := q(ctx, r.DB).QueryContext(ctx, `
		SELECT id, tenant_id, service_id, desired_date, status, created_at
		FROM waitlists WHERE tenant_id = $1
		ORDER BY desired_date DESC, created_at DESC`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("listing waitlists: %w", err)
	}
	defer rows.Close()

	var out []db.Waitlist
	for rows.Next() {
		var w db.Waitlist
		if err := rows.Scan(&w.ID, &w.TenantID, &w.ServiceID, &w.DesiredDate, &w.Status, &w.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (r *WaitlistRepository) GetWaitlist(ctx context.Context, tenantID, id uuid.UUID) (*db.Waitlist, error) {
	var w db.Waitlist
	err := q(ctx, r.DB).QueryRowContext(ctx, `
		SELECT id, tenant_id, service_id, desired_date, status, created_at
		FROM waitlists WHERE tenant_id = $1 AND id = $2`, tenantID, id,
	).Scan(&w.ID, &w.TenantID, &w.ServiceID, &w.DesiredDate, &w.Status, &w.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.E(apperrors.KindNotFound, "lista de espera no encontrada")
		}
		return nil, fmt.Errorf("querying waitlist: %w", err)
	}
	return &w, nil
}

// FindActiveByServiceDate returns nil without error when no active waitlist
// exists for the service and calendar date. The calendar date is taken in
// date's own location.
func (r *WaitlistRepository) FindActiveByServiceDate(ctx context.Context, tenantID, serviceID uuid.UUID, date time.Time) (*db.Waitlist, error) {
	var w db.Waitlist
	err := q(ctx, r.DB).QueryRowContext(ctx, `
		SELECT id, tenant_id, service_id, desired_date, status, created_at
		FROM waitlists
		WHERE tenant_id = $1 AND service_id = $2 AND desired_date = $3 AND status = $4
		ORDER BY created_at LIMIT 1`,
		tenantID, serviceID, date.Format("2006-01-02"), db.WaitlistActive,
	).Scan(&w.ID, &w.TenantID, &w.ServiceID, &w.DesiredDate, &w.Status, &w.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying active waitlist: %w", err)
	}
	return &w, nil
}

func (r *WaitlistRepository) CloseWaitlist(ctx context.Context, tenantID, id uuid.UUID) error {
	res, err := q(ctx, r.DB).ExecContext(ctx,
		`UPDATE waitlists SET status = $3 WHERE tenant_id = $1 AND id = $2`,
		tenantID, id, db.WaitlistClosed)
	if err != nil {
		return fmt.Errorf("closing waitlist: %w", err)
	}
	return requireAffected(res)
}

func (r *WaitlistRepository) AddEntry(ctx context.Context, e *db.WaitlistEntry) error {
	query := `
		INSERT INTO waitlist_entries (id, tenant_id, waitlist_id, client_id, priority, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		RETURNING created_at`
	return q(ctx, r.DB).QueryRowContext(ctx, query, e.ID, e.TenantID, e.WaitlistID, e.ClientID, e.Priority).Scan(&e.CreatedAt)
}

// TopEntry picks the entry served first: lowest priority, oldest on ties.
// Returns nil without error for an empty waitlist.
func (r *WaitlistRepository) TopEntry(ctx context.Context, tenantID, waitlistID uuid.UUID) (*db.WaitlistEntry, error) {
	var e db.WaitlistEntry
	err := q(ctx, r.DB).QueryRowContext(ctx, `
		SELECT id, tenant_id, waitlist_id, client_id, priority, created_at
		FROM waitlist_entries
		WHERE tenant_id = $1 AND waitlist_id = $2
		ORDER BY priority, created_at LIMIT 1`,
		tenantID, waitlistID,
	).Scan(&e.ID, &e.TenantID, &e.WaitlistID, &e.ClientID, &e.Priority, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying top waitlist entry: %w", err)
	}
	return &e, nil
}

func (r *WaitlistRepository) GetEntry(ctx context.Context, tenantID, id uuid.UUID) (*db.WaitlistEntry, error) {
	var e db.WaitlistEntry
	err := q(ctx, r.DB).QueryRowContext(ctx, `
		SELECT id, tenant_id, waitlist_id, client_id, priority, created_at
		FROM waitlist_entries WHERE tenant_id = $1 AND id = $2`, tenantID, id,
	).Scan(&e.ID, &e.TenantID, &e.WaitlistID, &e.ClientID, &e.Priority, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.E(apperrors.KindNotFound, "entrada de lista de espera no encontrada")
		}
		return nil, fmt.Errorf("querying waitlist entry: %w", err)
	}
	return &e, nil
}

func (r *WaitlistRepository) CreateOffer(ctx context.Context, o *db.WaitlistOffer) error {
	query := `
		INSERT INTO waitlist_offers (id, tenant_id, appointment_id, entry_id, expires_at, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		RETURNING created_at, updated_at`
	return q(ctx, r.DB).QueryRowContext(ctx, query,
		o.ID, o.TenantID, o.AppointmentID, o.EntryID, o.ExpiresAt, o.Status,
	).Scan(&o.CreatedAt, &o.UpdatedAt)
}

// FindOpenOffer looks up a still-open offer for the exact appointment/entry
// pair; nil without error when none exists.
func (r *WaitlistRepository) FindOpenOffer(ctx context.Context, tenantID, appointmentID, entryID uuid.UUID, now time.Time) (*db.WaitlistOffer, error) {
	var o db.WaitlistOffer
	err := q(ctx, r.DB).QueryRowContext(ctx, `
		SELECT id, tenant_id, appointment_id, entry_id, expires_at, status, created_at, updated_at
		FROM waitlist_offers
		WHERE tenant_id = $1 AND appointment_id = $2 AND entry_id = $3
		  AND status = $4 AND expires_at > $5
		ORDER BY created_at DESC LIMIT 1`,
		tenantID, appointmentID, entryID, db.OfferOffered, now,
	).Scan(&o.ID, &o.TenantID, &o.AppointmentID, &o.EntryID, &o.ExpiresAt, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying open offer: %w", err)
	}
	return &o, nil
}

func (r *WaitlistRepository) GetOffer(ctx context.Context, tenantID, id uuid.UUID) (*db.WaitlistOffer, error) {
	var o db.WaitlistOffer
	err := q(ctx, r.DB).QueryRowContext(ctx, `
		SELECT id, tenant_id, appointment_id, entry_id, expires_at, status, created_at, updated_at
		FROM waitlist_offers WHERE tenant_id = $1 AND id = $2`, tenantID, id,
	).Scan(&o.ID, &o.TenantID, &o.AppointmentID, &o.EntryID, &o.ExpiresAt, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.E(apperrors.KindNotFound, "oferta no encontrada")
		}
		return nil, fmt.Errorf("querying offer: %w", err)
	}
	return &o, nil
}

// ListOffers reports stored rows with lazy expiry applied: an offered row
// whose expires_at passed reads as expired even before any write touches it.
func (r *WaitlistRepository) ListOffers(ctx context.Context, tenantID uuid.UUID, now time.Time) ([]db.WaitlistOffer, error) {
	rows, err := q(ctx, r.DB).QueryContext(ctx, `
		SELECT id, tenant_id, appointment_id, entry_id, expires_at,
		       CASE WHEN status = $2 AND expires_at <= $3 THEN $4 ELSE status END,
		       created_at, updated_at
		FROM waitlist_offers
		WHERE tenant_id = $1
		ORDER BY created_at DESC`,
		tenantID, db.OfferOffered, now, db.OfferExpired)
	if err != nil {
		return nil, fmt.Errorf("listing offers: %w", err)
	}
	defer rows.Close()

	var out []db.WaitlistOffer
	for rows.Next() {
		var o db.WaitlistOffer
		if err := rows.Scan(&o.ID, &o.TenantID, &o.AppointmentID, &o.EntryID, &o.ExpiresAt, &o.Status, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *WaitlistRepository) UpdateOfferStatus(ctx context.Context, tenantID, id uuid.UUID, status string) error {
	res, err := q(ctx, r.DB).ExecContext(ctx,
		`UPDATE waitlist_offers SET status = $3, updated_at = now() WHERE tenant_id = $1 AND id = $2`,
		tenantID, id, status)
	if err != nil {
		return fmt.Errorf("updating offer status: %w", err)
	}
	return requireAffected(res)
}

// ExpireRivals supersedes every other open offer on the appointment.
func (r *WaitlistRepository) ExpireRivals(ctx context.Context, tenantID, appointmentID, exceptID uuid.UUID) error {
	_, err := q(ctx, r.DB).ExecContext(ctx, `
		UPDATE waitlist_offers SET status = $4, updated_at = now()
		WHERE tenant_id = $1 AND appointment_id = $2 AND status = $3 AND id <> $5`,
		tenantID, appointmentID, db.OfferOffered, db.OfferExpired, exceptID)
	if err != nil {
		return fmt.Errorf("expiring rival offers: %w", err)
	}
	return nil
}

// ExpireStale flips stored offered rows whose window passed. Used by the
// scheduled sweep; lazy checks on read stay authoritative regardless.
func (r *WaitlistRepository) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	res, err := q(ctx, r.DB).ExecContext(ctx, `
		UPDATE waitlist_offers SET status = $2, updated_at = now()
		WHERE status = $1 AND expires_at <= $3`,
		db.OfferOffered, db.OfferExpired, now)
	if err != nil {
		return 0, fmt.Errorf("expiring stale offers: %w", err)
	}
	return res.RowsAffected()
}
