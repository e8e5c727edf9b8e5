package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"agendalo/internal/db"
)

// Store interfaces are satisfied by the repository types; services depend on
// them so allocation logic is testable against in-memory fakes.

type TxRunner interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type CatalogStore interface {
	GetService(ctx context.Context, tenantID, serviceID uuid.UUID) (*db.Service, error)
	ListServices(ctx context.Context, tenantID uuid.UUID) ([]db.Service, error)
	GetTenant(ctx context.Context, tenantID uuid.UUID) (*db.Tenant, error)
}

type AppointmentStore interface {
	Create(ctx context.Context, a *db.Appointment) error
	Get(ctx context.Context, tenantID, id uuid.UUID) (*db.Appointment, error)
	List(ctx context.Context, tenantID uuid.UUID) ([]db.Appointment, error)
	ListConfirmedOverlapping(ctx context.Context, tenantID, serviceID uuid.UUID, start, end time.Time, excludeID uuid.UUID) ([]db.Appointment, error)
	UpdateStatus(ctx context.Context, tenantID, id uuid.UUID, status string) error
	ReassignAndConfirm(ctx context.Context, tenantID, id, clientID uuid.UUID) error
}

type BlockStore interface {
	Create(ctx context.Context, b *db.BlockedSlot) error
	ListOverlapping(ctx context.Context, tenantID uuid.UUID, start, end time.Time) ([]db.BlockedSlot, error)
	ListByDate(ctx context.Context, tenantID uuid.UUID, day *time.Time) ([]db.BlockedSlot, error)
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}

type ClientStore interface {
	FindByEmail(ctx context.Context, tenantID uuid.UUID, email string) (*db.Client, error)
	FindByName(ctx context.Context, tenantID uuid.UUID, fullName string) (*db.Client, error)
	Get(ctx context.Context, tenantID, id uuid.UUID) (*db.Client, error)
	Create(ctx context.Context, c *db.Client) error
}

type WaitlistStore interface {
	CreateWaitlist(ctx context.Context, w *db.Waitlist) error
	ListWaitlists(ctx context.Context, tenantID uuid.UUID) ([]db.Waitlist, error)
	GetWaitlist(ctx context.Context, tenantID, id uuid.UUID) (*db.Waitlist, error)
	FindActiveByServiceDate(ctx context.Context, tenantID, serviceID uuid.UUID, date time.Time) (*db.Waitlist, error)
	CloseWaitlist(ctx context.Context, tenantID, id uuid.UUID) error
	AddEntry(ctx context.Context, e *db.WaitlistEntry) error
	TopEntry(ctx context.Context, tenantID, waitlistID uuid.UUID) (*db.WaitlistEntry, error)
	GetEntry(ctx context.Context, tenantID, id uuid.UUID) (*db.WaitlistEntry, error)
	CreateOffer(ctx context.Context, o *db.WaitlistOffer) error
	FindOpenOffer(ctx context.Context, tenantID, appointmentID, entryID uuid.UUID, now time.Time) (*db.WaitlistOffer, error)
	GetOffer(ctx context.Context, tenantID, id uuid.UUID) (*db.WaitlistOffer, error)
	ListOffers(ctx context.Context, tenantID uuid.UUID, now time.Time) ([]db.WaitlistOffer, error)
	UpdateOfferStatus(ctx context.Context, tenantID, id uuid.UUID, status string) error
	ExpireRivals(ctx context.Context, tenantID, appointmentID, exceptID uuid.UUID) error
	ExpireStale(ctx context.Context, now time.Time) (int64, error)
}

type NotificationStore interface {
	Enqueue(ctx context.Context, m *db.QueuedMessage) error
	DequeueBatch(ctx context.Context, limit int) ([]db.QueuedMessage, error)
	MarkSent(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID) error
}

type StaffStore interface {
	GetByEmail(ctx context.Context, email string) (*db.StaffUser, error)
	ListActive(ctx context.Context, tenantID uuid.UUID) ([]db.StaffUser, error)
}
