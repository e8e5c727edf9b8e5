package db

import (
	"time"

	"github.com/google/uuid"
)

// Appointment statuses.
const (
	AppointmentRequested = "requested"
	AppointmentConfirmed = "confirmed"
	AppointmentCancelled = "cancelled"
	AppointmentNoShow    = "no_show"
)

// Service resource modes.
const (
	ResourceModeSingle = "single"
	ResourceModePool   = "resource_pool"
)

// Waitlist statuses.
const (
	WaitlistActive = "active"
	WaitlistClosed = "closed"
)

// Waitlist offer statuses.
const (
	OfferOffered  = "offered"
	OfferAccepted = "accepted"
	OfferExpired  = "expired"
	OfferRejected = "rejected"
)

// Message queue statuses.
const (
	MessageQueued = "queued"
	MessageSent   = "sent"
	MessageFailed = "failed"
)

type Tenant struct {
	ID           uuid.UUID
	Name         string
	OpeningHours string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type StaffUser struct {
	ID           uuid.UUID
	TenantID     uuid.UUID
	Email        string
	FullName     string
	Phone        string
	PasswordHash string
	Role         string
	IsActive     bool
}

type Client struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	FullName  string
	Email     string
	Phone     string
	CreatedAt time.Time
}

// PoolMember is one interchangeable bookable unit of a pool service,
// e.g. a court. Position preserves declaration order for tie-breaks.
type PoolMember struct {
	Name     string
	Category string
	Capacity int
	Position int
}

type Service struct {
	ID              uuid.UUID
	TenantID        uuid.UUID
	Name            string
	ResourceMode    string
	DurationMin     int
	MinAdvanceHours int
	PoolMembers     []PoolMember
	IsActive        bool
}

type Appointment struct {
	ID         uuid.UUID
	TenantID   uuid.UUID
	ServiceID  uuid.UUID
	ClientID   uuid.UUID
	MemberName string
	StartAt    time.Time
	EndAt      time.Time
	Status     string
	Notes      string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type BlockedSlot struct {
	ID         uuid.UUID
	TenantID   uuid.UUID
	MemberName string
	StartAt    time.Time
	EndAt      time.Time
	Reason     string
	CreatedBy  uuid.UUID
	CreatedAt  time.Time
}

type Waitlist struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	ServiceID   uuid.UUID
	DesiredDate time.Time
	Status      string
	CreatedAt   time.Time
}

type WaitlistEntry struct {
	ID         uuid.UUID
	TenantID   uuid.UUID
	WaitlistID uuid.UUID
	ClientID   uuid.UUID
	Priority   int
	CreatedAt  time.Time
}

type WaitlistOffer struct {
	ID            uuid.UUID
	TenantID      uuid.UUID
	AppointmentID uuid.UUID
	EntryID       uuid.UUID
	ExpiresAt     time.Time
	Status        string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type QueuedMessage struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	Channel     string
	ToAddress   string
	Payload     []byte
	Status      string
	ScheduledAt time.Time
	SentAt      *time.Time
	Retries     int
}
