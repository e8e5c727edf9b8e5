package entities

import (
	"time"

	"github.com/google/uuid"
)

// Slot states as surfaced to callers.
const (
	SlotAvailable = "available"
	SlotBlocked   = "blocked"
	SlotConfirmed = "confirmed"
)

// Slot is a discrete candidate interval of service-duration length.
type Slot struct {
	StartAt time.Time `json:"start_at"`
	EndAt   time.Time `json:"end_at"`
	State   string    `json:"state"`
	Reason  string    `json:"reason,omitempty"`
}

type AvailabilityResponse struct {
	ServiceID   uuid.UUID `json:"service_id"`
	From        time.Time `json:"from"`
	Available   []Slot    `json:"available"`
	Unavailable []Slot    `json:"unavailable"`
}
