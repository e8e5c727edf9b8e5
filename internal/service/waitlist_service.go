package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"agendalo/internal/auth"
	"agendalo/internal/clock"
	"agendalo/internal/db"
	apperrors "agendalo/internal/errors"
	"agendalo/internal/repository"
)

// OfferNotifier signals waitlist events to the notification sink.
type OfferNotifier interface {
	OfferCreated(ctx context.Context, offer *db.WaitlistOffer, client *db.Client, serviceName string, startAt time.Time)
	ClientConfirmed(ctx context.Context, appt *db.Appointment, client *db.Client, serviceName string)
}

// WaitlistService implements the timed offer protocol: matching a freed slot
// to the highest-priority waiting entry, the decaying offer window, and the
// exclusive, atomic acceptance that reassigns the appointment.
type WaitlistService struct {
	tx       TxRunner
	store    WaitlistStore
	appts    AppointmentStore
	catalog  CatalogStore
	clients  ClientStore
	notifier OfferNotifier
	clock    clock.Clock
	offerTTL time.Duration
	log      zerolog.Logger
}

func NewWaitlistService(tx TxRunner, store WaitlistStore, appts AppointmentStore, catalog CatalogStore, clients ClientStore, notifier OfferNotifier, clk clock.Clock, offerTTL time.Duration, log zerolog.Logger) *WaitlistService {
	return &WaitlistService{
		tx:       tx,
		store:    store,
		appts:    appts,
		catalog:  catalog,
		clients:  clients,
		notifier: notifier,
		clock:    clk,
		offerTTL: offerTTL,
		log:      log,
	}
}

func (s *WaitlistService) CreateWaitlist(ctx context.Context, actor auth.Actor, serviceID uuid.UUID, desiredDate time.Time) (*db.Waitlist, error) {
	if _, err := s.catalog.GetService(ctx, actor.TenantID, serviceID); err != nil {
		return nil, err
	}
	w := &db.Waitlist{
		ID:          uuid.New(),
		TenantID:    actor.TenantID,
		ServiceID:   serviceID,
		DesiredDate: desiredDate,
		Status:      db.WaitlistActive,
	}
	if err := s.store.CreateWaitlist(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

func (s *WaitlistService) ListWaitlists(ctx context.Context, actor auth.Actor) ([]db.Waitlist, error) {
	return s.store.ListWaitlists(ctx, actor.TenantID)
}

// AddEntry registers a client's interest. Priority defaults to 100 upstream;
// lower values are served first, creation time breaks ties.
func (s *WaitlistService) AddEntry(ctx context.Context, actor auth.Actor, waitlistID, clientID uuid.UUID, priority int) (*db.WaitlistEntry, error) {
	if _, err := s.store.GetWaitlist(ctx, actor.TenantID, waitlistID); err != nil {
		return nil, err
	}
	client, err := s.clients.Get(ctx, actor.TenantID, clientID)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, apperrors.E(apperrors.KindNotFound, "cliente no encontrado")
	}
	e := &db.WaitlistEntry{
		ID:         uuid.New(),
		TenantID:   actor.TenantID,
		WaitlistID: waitlistID,
		ClientID:   clientID,
		Priority:   priority,
	}
	if err := s.store.AddEntry(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *WaitlistService) ListOffers(ctx context.Context, actor auth.Actor) ([]db.WaitlistOffer, error) {
	return s.store.ListOffers(ctx, actor.TenantID, s.clock.Now())
}

// OfferFromCancel matches the freed slot to the top waiting entry. A missing
// waitlist or empty waitlist is not an error: no offer is made. An existing
// open offer for the same appointment/entry pair is returned as-is.
func (s *WaitlistService) OfferFromCancel(ctx context.Context, tenantID, appointmentID uuid.UUID) (*db.WaitlistOffer, error) {
	appt, err := s.appts.Get(ctx, tenantID, appointmentID)
	if err != nil {
		return nil, err
	}

	waitlist, err := s.store.FindActiveByServiceDate(ctx, tenantID, appt.ServiceID, dateOf(appt.StartAt))
	if err != nil || waitlist == nil {
		return nil, err
	}
	entry, err := s.store.TopEntry(ctx, tenantID, waitlist.ID)
	if err != nil || entry == nil {
		return nil, err
	}

	now := s.clock.Now()
	if existing, err := s.store.FindOpenOffer(ctx, tenantID, appt.ID, entry.ID, now); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}

	offer := &db.WaitlistOffer{
		ID:            uuid.New(),
		TenantID:      tenantID,
		AppointmentID: appt.ID,
		EntryID:       entry.ID,
		ExpiresAt:     now.Add(s.offerTTL),
		Status:        db.OfferOffered,
	}
	if err := s.store.CreateOffer(ctx, offer); err != nil {
		return nil, err
	}

	if client, err := s.clients.Get(ctx, tenantID, entry.ClientID); err == nil && client != nil {
		svcName := ""
		if svc, err := s.catalog.GetService(ctx, tenantID, appt.ServiceID); err == nil {
			svcName = svc.Name
		}
		s.notifier.OfferCreated(ctx, offer, client, svcName, appt.StartAt)
	}
	return offer, nil
}

// Accept atomically reassigns the freed appointment to the entry's client,
// confirms it, closes the waitlist and supersedes every rival open offer.
// Exactly one offer may win per appointment.
func (s *WaitlistService) Accept(ctx context.Context, actor auth.Actor, offerID uuid.UUID) (*db.WaitlistOffer, error) {
	var offer *db.WaitlistOffer
	var appt *db.Appointment
	var entry *db.WaitlistEntry
	var expired bool

	err := s.inTx(ctx, func(txCtx context.Context) error {
		expired = false
		var err error
		offer, err = s.store.GetOffer(txCtx, actor.TenantID, offerID)
		if err != nil {
			return err
		}
		if offer.Status != db.OfferOffered {
			return apperrors.E(apperrors.KindOfferNotOpen, "La oferta no esta disponible para aceptar.")
		}
		if !s.clock.Now().Before(offer.ExpiresAt) {
			expired = true
			offer.Status = db.OfferExpired
			return s.store.UpdateOfferStatus(txCtx, actor.TenantID, offer.ID, db.OfferExpired)
		}

		appt, err = s.appts.Get(txCtx, actor.TenantID, offer.AppointmentID)
		if err != nil {
			return err
		}
		if appt.Status != db.AppointmentCancelled {
			return apperrors.E(apperrors.KindOfferNotOpen, "La reserva ya no esta liberada.")
		}

		// The freed interval may have been retaken by a fresh booking while
		// the offer was open; confirming on top of it would double-book.
		svc, err := s.catalog.GetService(txCtx, actor.TenantID, appt.ServiceID)
		if err != nil {
			return err
		}
		overlapping, err := s.appts.ListConfirmedOverlapping(txCtx, actor.TenantID, appt.ServiceID, appt.StartAt, appt.EndAt, appt.ID)
		if err != nil {
			return err
		}
		if rivalConfirmed(svc, appt, overlapping) {
			return apperrors.E(apperrors.KindOfferNotOpen, "El horario volvio a ocuparse.")
		}

		entry, err = s.store.GetEntry(txCtx, actor.TenantID, offer.EntryID)
		if err != nil {
			return err
		}

		if err := s.appts.ReassignAndConfirm(txCtx, actor.TenantID, appt.ID, entry.ClientID); err != nil {
			return err
		}
		appt.ClientID = entry.ClientID
		appt.Status = db.AppointmentConfirmed

		if err := s.store.UpdateOfferStatus(txCtx, actor.TenantID, offer.ID, db.OfferAccepted); err != nil {
			return err
		}
		offer.Status = db.OfferAccepted

		if err := s.store.CloseWaitlist(txCtx, actor.TenantID, entry.WaitlistID); err != nil {
			return err
		}
		return s.store.ExpireRivals(txCtx, actor.TenantID, appt.ID, offer.ID)
	})
	if err != nil {
		return nil, err
	}
	if expired {
		return offer, apperrors.E(apperrors.KindOfferExpired, "La oferta expiro.")
	}

	if client, err := s.clients.Get(ctx, actor.TenantID, entry.ClientID); err == nil && client != nil {
		svcName := ""
		if svc, err := s.catalog.GetService(ctx, actor.TenantID, appt.ServiceID); err == nil {
			svcName = svc.Name
		}
		s.notifier.ClientConfirmed(ctx, appt, client, svcName)
	}
	return offer, nil
}

// Reject closes the offer without escalating to the next entry; re-offering
// is left to the scheduled sweep or a manual re-trigger.
func (s *WaitlistService) Reject(ctx context.Context, actor auth.Actor, offerID uuid.UUID) (*db.WaitlistOffer, error) {
	var offer *db.WaitlistOffer
	var expired bool

	err := s.inTx(ctx, func(txCtx context.Context) error {
		expired = false
		var err error
		offer, err = s.store.GetOffer(txCtx, actor.TenantID, offerID)
		if err != nil {
			return err
		}
		if offer.Status != db.OfferOffered {
			return apperrors.E(apperrors.KindOfferNotOpen, "La oferta no esta disponible para rechazar.")
		}
		if !s.clock.Now().Before(offer.ExpiresAt) {
			expired = true
			offer.Status = db.OfferExpired
			return s.store.UpdateOfferStatus(txCtx, actor.TenantID, offer.ID, db.OfferExpired)
		}
		offer.Status = db.OfferRejected
		return s.store.UpdateOfferStatus(txCtx, actor.TenantID, offer.ID, db.OfferRejected)
	})
	if err != nil {
		return nil, err
	}
	if expired {
		return offer, apperrors.E(apperrors.KindOfferExpired, "La oferta expiro.")
	}
	return offer, nil
}

// ExpireStaleOffers reconciles stored offered rows whose window passed.
// Lazy expiry on Accept/Reject and reads stays authoritative regardless.
func (s *WaitlistService) ExpireStaleOffers(ctx context.Context) (int64, error) {
	return s.store.ExpireStale(ctx, s.clock.Now())
}

func (s *WaitlistService) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	err := s.tx.WithTx(ctx, fn)
	if err != nil && repository.IsSerializationFailure(err) {
		s.log.Debug().Err(err).Msg("retrying offer transaction after serialization failure")
		err = s.tx.WithTx(ctx, fn)
		if err != nil && repository.IsSerializationFailure(err) {
			return apperrors.E(apperrors.KindResourceBusy, "La operacion no pudo completarse, intenta de nuevo.")
		}
	}
	return err
}

// dateOf truncates an instant to its calendar date.
func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
