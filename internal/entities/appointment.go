package entities

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentResponse struct {
	ID          uuid.UUID  `json:"id"`
	ServiceID   uuid.UUID  `json:"service_id"`
	ServiceName string     `json:"service_name,omitempty"`
	ClientID    uuid.UUID  `json:"client_id"`
	MemberName  string     `json:"member_name,omitempty"`
	StartAt     time.Time  `json:"start_at"`
	EndAt       time.Time  `json:"end_at"`
	Status      string     `json:"status"`
	Notes       string     `json:"notes,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	OfferID     *uuid.UUID `json:"waitlist_offer_id,omitempty"`
}

type OfferResponse struct {
	ID            uuid.UUID `json:"id"`
	AppointmentID uuid.UUID `json:"appointment_id"`
	EntryID       uuid.UUID `json:"entry_id"`
	ExpiresAt     time.Time `json:"expires_at"`
	Status        string    `json:"status"`
}

type BlockedSlotResponse struct {
	ID         uuid.UUID `json:"id"`
	MemberName string    `json:"member_name,omitempty"`
	StartAt    time.Time `json:"start_at"`
	EndAt      time.Time `json:"end_at"`
	Reason     string    `json:"reason,omitempty"`
}
