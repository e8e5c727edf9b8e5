package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"agendalo/internal/auth"
	"agendalo/internal/clock"
	"agendalo/internal/db"
	apperrors "agendalo/internal/errors"
	"agendalo/internal/repository"
)

// Notifier is the abstract notification sink: the engine signals events,
// transport is decided elsewhere.
type Notifier interface {
	StaffRequested(ctx context.Context, appt *db.Appointment, serviceName, clientName string)
	ClientConfirmed(ctx context.Context, appt *db.Appointment, client *db.Client, serviceName string)
	ClientCancelled(ctx context.Context, appt *db.Appointment, client *db.Client, serviceName string)
}

// OfferCreator is the waitlist hook cancellation fires into.
type OfferCreator interface {
	OfferFromCancel(ctx context.Context, tenantID, appointmentID uuid.UUID) (*db.WaitlistOffer, error)
}

// BookingService owns allocation and the appointment state machine.
// Every mutating decision is a check-then-write wrapped in a serializable
// transaction, retried once on benign conflicts.
type BookingService struct {
	tx       TxRunner
	catalog  CatalogStore
	appts    AppointmentStore
	blocks   BlockStore
	clients  ClientStore
	notifier Notifier
	offers   OfferCreator
	clock    clock.Clock
	log      zerolog.Logger
}

func NewBookingService(tx TxRunner, catalog CatalogStore, appts AppointmentStore, blocks BlockStore, clients ClientStore, notifier Notifier, offers OfferCreator, clk clock.Clock, log zerolog.Logger) *BookingService {
	return &BookingService{
		tx:       tx,
		catalog:  catalog,
		appts:    appts,
		blocks:   blocks,
		clients:  clients,
		notifier: notifier,
		offers:   offers,
		clock:    clk,
		log:      log,
	}
}

type BookRequest struct {
	ServiceID  uuid.UUID
	StartAt    time.Time
	MemberName string
	Notes      string
}

// Book validates the requested window, allocates a resource and creates the
// appointment in Requested state.
func (s *BookingService) Book(ctx context.Context, actor auth.Actor, req BookRequest) (*db.Appointment, error) {
	svc, err := s.catalog.GetService(ctx, actor.TenantID, req.ServiceID)
	if err != nil {
		return nil, err
	}

	duration := svc.DurationMin
	if duration < 15 {
		duration = 15
	}
	start := req.StartAt
	end := start.Add(time.Duration(duration) * time.Minute)

	now := s.clock.Now()
	if !start.Before(end) || start.Before(now.Add(time.Duration(svc.MinAdvanceHours)*time.Hour)) {
		return nil, apperrors.E(apperrors.KindInvalidWindow,
			fmt.Sprintf("Debes reservar con al menos %d horas de anticipacion.", svc.MinAdvanceHours))
	}

	client, err := s.resolveClient(ctx, actor)
	if err != nil {
		return nil, err
	}

	var appt *db.Appointment
	err = s.inTx(ctx, func(txCtx context.Context) error {
		member, err := s.tryAllocate(txCtx, svc, start, end, req.MemberName)
		if err != nil {
			return err
		}
		appt = &db.Appointment{
			ID:         uuid.New(),
			TenantID:   actor.TenantID,
			ServiceID:  svc.ID,
			ClientID:   client.ID,
			MemberName: member,
			StartAt:    start,
			EndAt:      end,
			Status:     db.AppointmentRequested,
			Notes:      req.Notes,
		}
		return s.appts.Create(txCtx, appt)
	})
	if err != nil {
		return nil, err
	}

	s.notifier.StaffRequested(ctx, appt, svc.Name, client.FullName)
	return appt, nil
}

// tryAllocate loads current state for the interval and runs the resolver.
// Must execute inside the caller's transaction.
func (s *BookingService) tryAllocate(ctx context.Context, svc *db.Service, start, end time.Time, requested string) (string, error) {
	overlapping, err := s.appts.ListConfirmedOverlapping(ctx, svc.TenantID, svc.ID, start, end, uuid.Nil)
	if err != nil {
		return "", err
	}
	blocks, err := s.blocks.ListOverlapping(ctx, svc.TenantID, start, end)
	if err != nil {
		return "", err
	}
	return resolveMember(svc, requested, overlapping, blocks)
}

// Confirm transitions Requested -> Confirmed after re-running the conflict
// check against other confirmed appointments and current blocks. Confirming
// an already-confirmed appointment is an idempotent no-op.
func (s *BookingService) Confirm(ctx context.Context, actor auth.Actor, appointmentID uuid.UUID) (*db.Appointment, error) {
	var appt *db.Appointment
	var alreadyConfirmed bool
	var svcName string

	err := s.inTx(ctx, func(txCtx context.Context) error {
		alreadyConfirmed = false
		var err error
		appt, err = s.appts.Get(txCtx, actor.TenantID, appointmentID)
		if err != nil {
			return err
		}
		switch appt.Status {
		case db.AppointmentConfirmed:
			alreadyConfirmed = true
			return nil
		case db.AppointmentRequested:
		default:
			return apperrors.E(apperrors.KindIllegalTransition, "No puedes confirmar una reserva cancelada.")
		}

		svc, err := s.catalog.GetService(txCtx, actor.TenantID, appt.ServiceID)
		if err != nil {
			return err
		}
		svcName = svc.Name

		if err := s.recheck(txCtx, svc, appt); err != nil {
			return err
		}
		if err := s.appts.UpdateStatus(txCtx, actor.TenantID, appt.ID, db.AppointmentConfirmed); err != nil {
			return err
		}
		appt.Status = db.AppointmentConfirmed
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !alreadyConfirmed {
		client, err := s.clients.Get(ctx, actor.TenantID, appt.ClientID)
		if err == nil && client != nil {
			s.notifier.ClientConfirmed(ctx, appt, client, svcName)
		}
	}
	return appt, nil
}

// recheck guards the race between two Requested appointments for the same
// resource and interval: only one may become Confirmed.
func (s *BookingService) recheck(ctx context.Context, svc *db.Service, appt *db.Appointment) error {
	overlapping, err := s.appts.ListConfirmedOverlapping(ctx, svc.TenantID, svc.ID, appt.StartAt, appt.EndAt, appt.ID)
	if err != nil {
		return err
	}
	if rivalConfirmed(svc, appt, overlapping) {
		return apperrors.E(apperrors.KindAlreadyConfirmedElsewhere, "Ese horario ya fue confirmado para otra reserva.")
	}

	blocks, err := s.blocks.ListOverlapping(ctx, svc.TenantID, appt.StartAt, appt.EndAt)
	if err != nil {
		return err
	}
	for _, b := range blocks {
		name := strings.TrimSpace(b.MemberName)
		if svc.ResourceMode == db.ResourceModePool && name != "" && name != appt.MemberName {
			continue
		}
		return apperrors.E(apperrors.KindNowBlocked, "Ese horario esta bloqueado por el establecimiento.")
	}
	return nil
}

// Cancel transitions Requested/Confirmed -> Cancelled, notifies the client
// when a staff actor cancelled, and fires the waitlist offer protocol.
func (s *BookingService) Cancel(ctx context.Context, actor auth.Actor, appointmentID uuid.UUID) (*db.Appointment, *db.WaitlistOffer, error) {
	var appt *db.Appointment
	var previous string
	var svcName string

	err := s.inTx(ctx, func(txCtx context.Context) error {
		var err error
		appt, err = s.appts.Get(txCtx, actor.TenantID, appointmentID)
		if err != nil {
			return err
		}
		previous = appt.Status
		if previous != db.AppointmentRequested && previous != db.AppointmentConfirmed {
			return apperrors.E(apperrors.KindIllegalTransition, "La reserva ya no puede cancelarse.")
		}
		if err := s.appts.UpdateStatus(txCtx, actor.TenantID, appt.ID, db.AppointmentCancelled); err != nil {
			return err
		}
		appt.Status = db.AppointmentCancelled

		svc, err := s.catalog.GetService(txCtx, actor.TenantID, appt.ServiceID)
		if err == nil {
			svcName = svc.Name
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	if actor.IsStaff() {
		client, err := s.clients.Get(ctx, actor.TenantID, appt.ClientID)
		if err == nil && client != nil {
			s.notifier.ClientCancelled(ctx, appt, client, svcName)
		}
	}

	// Cancellation succeeds independently of the offer outcome.
	offer, err := s.offers.OfferFromCancel(ctx, actor.TenantID, appt.ID)
	if err != nil {
		s.log.Error().Err(err).Str("appointment_id", appt.ID.String()).Msg("waitlist offer from cancel failed")
		offer = nil
	}
	return appt, offer, nil
}

// MarkNoShow is staff-only and legal only for confirmed, past appointments.
func (s *BookingService) MarkNoShow(ctx context.Context, actor auth.Actor, appointmentID uuid.UUID) (*db.Appointment, error) {
	var appt *db.Appointment
	err := s.inTx(ctx, func(txCtx context.Context) error {
		var err error
		appt, err = s.appts.Get(txCtx, actor.TenantID, appointmentID)
		if err != nil {
			return err
		}
		if appt.Status != db.AppointmentConfirmed {
			return apperrors.E(apperrors.KindIllegalTransition, "Solo una reserva confirmada puede marcarse como ausente.")
		}
		if !appt.StartAt.Before(s.clock.Now()) {
			return apperrors.E(apperrors.KindInvalidWindow, "La reserva todavia no ocurrio.")
		}
		if err := s.appts.UpdateStatus(txCtx, actor.TenantID, appt.ID, db.AppointmentNoShow); err != nil {
			return err
		}
		appt.Status = db.AppointmentNoShow
		return nil
	})
	if err != nil {
		return nil, err
	}
	return appt, nil
}

func (s *BookingService) Get(ctx context.Context, actor auth.Actor, appointmentID uuid.UUID) (*db.Appointment, error) {
	return s.appts.Get(ctx, actor.TenantID, appointmentID)
}

func (s *BookingService) List(ctx context.Context, actor auth.Actor) ([]db.Appointment, error) {
	return s.appts.List(ctx, actor.TenantID)
}

// resolveClient maps the authenticated end user onto a Client record,
// matching by email first, then full name, creating one if absent.
func (s *BookingService) resolveClient(ctx context.Context, actor auth.Actor) (*db.Client, error) {
	client, err := s.clients.FindByEmail(ctx, actor.TenantID, actor.Email)
	if err != nil {
		return nil, err
	}
	if client == nil {
		client, err = s.clients.FindByName(ctx, actor.TenantID, actor.FullName)
		if err != nil {
			return nil, err
		}
	}
	if client != nil {
		return client, nil
	}

	name := actor.FullName
	if name == "" {
		name = "Cliente"
	}
	client = &db.Client{
		ID:       uuid.New(),
		TenantID: actor.TenantID,
		FullName: name,
		Email:    actor.Email,
		Phone:    actor.Phone,
	}
	if err := s.clients.Create(ctx, client); err != nil {
		return nil, err
	}
	return client, nil
}

// inTx runs fn in a serializable transaction, retrying once when the storage
// layer reports a serialization failure. Those indicate benign races; a
// second failure surfaces as ResourceBusy.
func (s *BookingService) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	err := s.tx.WithTx(ctx, fn)
	if err != nil && repository.IsSerializationFailure(err) {
		s.log.Debug().Err(err).Msg("retrying allocation after serialization failure")
		err = s.tx.WithTx(ctx, fn)
		if err != nil && repository.IsSerializationFailure(err) {
			return apperrors.E(apperrors.KindResourceBusy, "No hay disponibilidad para ese horario.")
		}
	}
	return err
}
