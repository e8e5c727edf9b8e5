package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"agendalo/internal/clock"
	"agendalo/internal/db"
)

// Notification channels. The engine only records a hint; the dispatcher
// decides what to do with it.
const (
	channelSMS   = "sms"
	channelEmail = "email"
	channelPush  = "push"
)

// NotifyService enqueues abstract notification requests. Enqueueing is
// fire-and-forget: failures are logged, never surfaced to the caller.
type NotifyService struct {
	store NotificationStore
	staff StaffStore
	clock clock.Clock
	log   zerolog.Logger
}

func NewNotifyService(store NotificationStore, staff StaffStore, clk clock.Clock, log zerolog.Logger) *NotifyService {
	return &NotifyService{store: store, staff: staff, clock: clk, log: log}
}

// StaffRequested tells every active staff member a new reservation awaits
// confirmation.
func (s *NotifyService) StaffRequested(ctx context.Context, appt *db.Appointment, serviceName, clientName string) {
	members, err := s.staff.ListActive(ctx, appt.TenantID)
	if err != nil {
		s.log.Error().Err(err).Msg("listing staff for notification")
		return
	}
	for _, m := range members {
		channel, to := pickChannel(m.Phone, m.Email, "staff:"+m.ID.String())
		s.enqueue(ctx, appt.TenantID, channel, to, map[string]any{
			"type":           "reservation_requested_professional",
			"appointment_id": appt.ID,
			"service":        serviceName,
			"client_name":    clientName,
			"member_name":    appt.MemberName,
			"start_at":       appt.StartAt.Format(time.RFC3339),
			"status":         appt.Status,
			"message":        "Nueva reserva en espera de confirmacion.",
		})
	}
}

func (s *NotifyService) ClientConfirmed(ctx context.Context, appt *db.Appointment, client *db.Client, serviceName string) {
	channel, to := pickChannel(client.Phone, client.Email, "")
	if to == "" {
		return
	}
	s.enqueue(ctx, appt.TenantID, channel, to, map[string]any{
		"type":           "reservation_confirmed_client",
		"appointment_id": appt.ID,
		"service":        serviceName,
		"member_name":    appt.MemberName,
		"start_at":       appt.StartAt.Format(time.RFC3339),
		"status":         appt.Status,
		"message":        "Tu reserva fue confirmada.",
	})
}

func (s *NotifyService) ClientCancelled(ctx context.Context, appt *db.Appointment, client *db.Client, serviceName string) {
	channel, to := pickChannel(client.Phone, client.Email, "")
	if to == "" {
		return
	}
	s.enqueue(ctx, appt.TenantID, channel, to, map[string]any{
		"type":           "reservation_cancelled_client",
		"appointment_id": appt.ID,
		"service":        serviceName,
		"member_name":    appt.MemberName,
		"start_at":       appt.StartAt.Format(time.RFC3339),
		"status":         db.AppointmentCancelled,
		"message":        "Tu reserva fue cancelada por el establecimiento.",
	})
}

func (s *NotifyService) OfferCreated(ctx context.Context, offer *db.WaitlistOffer, client *db.Client, serviceName string, startAt time.Time) {
	channel, to := pickChannel(client.Phone, client.Email, "")
	if to == "" {
		return
	}
	s.enqueue(ctx, offer.TenantID, channel, to, map[string]any{
		"type":           "waitlist_offer_created",
		"offer_id":       offer.ID,
		"appointment_id": offer.AppointmentID,
		"service":        serviceName,
		"start_at":       startAt.Format(time.RFC3339),
		"expires_at":     offer.ExpiresAt.Format(time.RFC3339),
		"message":        "Se libero un turno que esperabas. Tenes tiempo limitado para aceptarlo.",
	})
}

func (s *NotifyService) enqueue(ctx context.Context, tenantID uuid.UUID, channel, to string, payload map[string]any) {
	body, err := json.Marshal(payload)
	if err != nil {
		s.log.Error().Err(err).Msg("encoding notification payload")
		return
	}
	msg := &db.QueuedMessage{
		ID:          uuid.New(),
		TenantID:    tenantID,
		Channel:     channel,
		ToAddress:   to,
		Payload:     body,
		Status:      db.MessageQueued,
		ScheduledAt: s.clock.Now(),
	}
	if err := s.store.Enqueue(ctx, msg); err != nil {
		s.log.Error().Err(err).Str("channel", channel).Msg("enqueueing notification")
	}
}

// pickChannel prefers SMS over email over a push placeholder.
func pickChannel(phone, email, fallback string) (string, string) {
	if p := strings.TrimSpace(phone); p != "" {
		return channelSMS, p
	}
	if e := strings.TrimSpace(email); e != "" {
		return channelEmail, e
	}
	return channelPush, fallback
}
