package api

import (
	"time"

	"github.com/google/uuid"
)

type availabilityRequest struct {
	ServiceID uuid.UUID `json:"service_id"`
	From      time.Time `json:"from"`
}

type bookRequest struct {
	ServiceID uuid.UUID `json:"service_id"`
	Start     time.Time `json:"start"`
	Resource  string    `json:"resource"`
	Notes     string    `json:"notes"`
}

type waitlistRequest struct {
	ServiceID   uuid.UUID `json:"service_id"`
	DesiredDate time.Time `json:"desired_date"`
}

type waitlistEntryRequest struct {
	ClientID uuid.UUID `json:"client_id"`
	Priority *int      `json:"priority"`
}

type offerFromCancelRequest struct {
	AppointmentID uuid.UUID `json:"appointment_id"`
}

type blockedSlotRequest struct {
	MemberName string    `json:"member_name"`
	StartAt    time.Time `json:"start_at"`
	EndAt      time.Time `json:"end_at"`
	Reason     string    `json:"reason"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
