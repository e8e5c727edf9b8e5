package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agendalo/internal/auth"
	"agendalo/internal/clock"
	"agendalo/internal/db"
	apperrors "agendalo/internal/errors"
)

var testNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func testActor(tenantID uuid.UUID) auth.Actor {
	return auth.Actor{
		ID:       uuid.New(),
		TenantID: tenantID,
		Role:     auth.RoleClient,
		FullName: "Maria Lopez",
		Email:    "maria@example.com",
	}
}

func singleService(tenantID uuid.UUID) *db.Service {
	return &db.Service{
		ID:           uuid.New(),
		TenantID:     tenantID,
		Name:         "Corte de pelo",
		ResourceMode: db.ResourceModeSingle,
		DurationMin:  60,
		IsActive:     true,
	}
}

func poolService(tenantID uuid.UUID, members ...string) *db.Service {
	svc := &db.Service{
		ID:           uuid.New(),
		TenantID:     tenantID,
		Name:         "Cancha de padel",
		ResourceMode: db.ResourceModePool,
		DurationMin:  60,
		IsActive:     true,
	}
	for i, name := range members {
		svc.PoolMembers = append(svc.PoolMembers, db.PoolMember{Name: name, Capacity: 1, Position: i})
	}
	return svc
}

func newBookingFixture(svc *db.Service) (*BookingService, *fakeAppointments, *fakeBlocks, *fakeNotifier) {
	tenant := &db.Tenant{ID: svc.TenantID, Name: "Estudio Uno", IsActive: true}
	appts := newFakeAppointments()
	blocks := &fakeBlocks{}
	notifier := &fakeNotifier{}
	s := NewBookingService(
		fakeTx{}, newFakeCatalog(tenant, svc), appts, blocks, &fakeClients{},
		notifier, noOffers{}, clock.NewFixed(testNow), zerolog.Nop(),
	)
	return s, appts, blocks, notifier
}

func TestBookCreatesRequestedAppointment(t *testing.T) {
	tenantID := uuid.New()
	svc := singleService(tenantID)
	s, _, _, notifier := newBookingFixture(svc)

	appt, err := s.Book(context.Background(), testActor(tenantID), BookRequest{
		ServiceID: svc.ID,
		StartAt:   testNow.Add(2 * time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, db.AppointmentRequested, appt.Status)
	assert.Equal(t, testNow.Add(3*time.Hour), appt.EndAt)
	assert.Empty(t, appt.MemberName)
	assert.Equal(t, 1, notifier.staffRequested)
}

func TestBookRejectsShortNotice(t *testing.T) {
	tenantID := uuid.New()
	svc := singleService(tenantID)
	svc.MinAdvanceHours = 24
	s, _, _, _ := newBookingFixture(svc)

	_, err := s.Book(context.Background(), testActor(tenantID), BookRequest{
		ServiceID: svc.ID,
		StartAt:   testNow.Add(2 * time.Hour),
	})
	assert.Equal(t, apperrors.KindInvalidWindow, apperrors.KindOf(err))
}

func TestBookSingleResourceBusy(t *testing.T) {
	tenantID := uuid.New()
	svc := singleService(tenantID)
	s, appts, _, _ := newBookingFixture(svc)

	start := testNow.Add(2 * time.Hour)
	require.NoError(t, appts.Create(context.Background(), &db.Appointment{
		ID: uuid.New(), TenantID: tenantID, ServiceID: svc.ID, ClientID: uuid.New(),
		StartAt: start, EndAt: start.Add(time.Hour), Status: db.AppointmentConfirmed,
	}))

	_, err := s.Book(context.Background(), testActor(tenantID), BookRequest{
		ServiceID: svc.ID,
		StartAt:   start.Add(30 * time.Minute),
	})
	assert.Equal(t, apperrors.KindResourceBusy, apperrors.KindOf(err))
}

func TestBookPoolPicksFirstFreeMember(t *testing.T) {
	tenantID := uuid.New()
	svc := poolService(tenantID, "Cancha A", "Cancha B")
	s, appts, _, _ := newBookingFixture(svc)

	start := testNow.Add(2 * time.Hour)
	require.NoError(t, appts.Create(context.Background(), &db.Appointment{
		ID: uuid.New(), TenantID: tenantID, ServiceID: svc.ID, ClientID: uuid.New(),
		MemberName: "Cancha A",
		StartAt:    start, EndAt: start.Add(time.Hour), Status: db.AppointmentConfirmed,
	}))

	appt, err := s.Book(context.Background(), testActor(tenantID), BookRequest{
		ServiceID: svc.ID,
		StartAt:   start,
	})
	require.NoError(t, err)
	assert.Equal(t, "Cancha B", appt.MemberName)
}

func TestBookPoolRequestedMemberUnknown(t *testing.T) {
	tenantID := uuid.New()
	svc := poolService(tenantID, "Cancha A", "Cancha B")
	s, _, _, _ := newBookingFixture(svc)

	_, err := s.Book(context.Background(), testActor(tenantID), BookRequest{
		ServiceID:  svc.ID,
		StartAt:    testNow.Add(2 * time.Hour),
		MemberName: "Cancha Z",
	})
	assert.Equal(t, apperrors.KindResourceNotInPool, apperrors.KindOf(err))
}

func TestBookPoolGlobalBlock(t *testing.T) {
	tenantID := uuid.New()
	svc := poolService(tenantID, "Cancha A", "Cancha B")
	s, _, blocks, _ := newBookingFixture(svc)

	start := testNow.Add(2 * time.Hour)
	blocks.items = append(blocks.items, db.BlockedSlot{
		ID: uuid.New(), TenantID: tenantID,
		StartAt: start, EndAt: start.Add(time.Hour), Reason: "Mantenimiento",
	})

	_, err := s.Book(context.Background(), testActor(tenantID), BookRequest{
		ServiceID: svc.ID,
		StartAt:   start,
	})
	assert.Equal(t, apperrors.KindResourceBlocked, apperrors.KindOf(err))
}

func TestBookPoolSkipsBlockedMember(t *testing.T) {
	tenantID := uuid.New()
	svc := poolService(tenantID, "Cancha A", "Cancha B")
	s, _, blocks, _ := newBookingFixture(svc)

	start := testNow.Add(2 * time.Hour)
	blocks.items = append(blocks.items, db.BlockedSlot{
		ID: uuid.New(), TenantID: tenantID, MemberName: "Cancha A",
		StartAt: start, EndAt: start.Add(time.Hour), Reason: "Pintura",
	})

	appt, err := s.Book(context.Background(), testActor(tenantID), BookRequest{
		ServiceID: svc.ID,
		StartAt:   start,
	})
	require.NoError(t, err)
	assert.Equal(t, "Cancha B", appt.MemberName)
}

func TestBookPoolRequestedMemberBlocked(t *testing.T) {
	tenantID := uuid.New()
	svc := poolService(tenantID, "Cancha A", "Cancha B")
	s, _, blocks, _ := newBookingFixture(svc)

	start := testNow.Add(2 * time.Hour)
	blocks.items = append(blocks.items, db.BlockedSlot{
		ID: uuid.New(), TenantID: tenantID, MemberName: "Cancha A",
		StartAt: start, EndAt: start.Add(time.Hour), Reason: "Pintura",
	})

	_, err := s.Book(context.Background(), testActor(tenantID), BookRequest{
		ServiceID:  svc.ID,
		StartAt:    start,
		MemberName: "Cancha A",
	})
	assert.Equal(t, apperrors.KindResourceBlocked, apperrors.KindOf(err))
}

func TestBookPoolExhausted(t *testing.T) {
	tenantID := uuid.New()
	svc := poolService(tenantID, "Cancha A", "Cancha B")
	s, appts, _, _ := newBookingFixture(svc)

	start := testNow.Add(2 * time.Hour)
	for _, name := range []string{"Cancha A", "Cancha B"} {
		require.NoError(t, appts.Create(context.Background(), &db.Appointment{
			ID: uuid.New(), TenantID: tenantID, ServiceID: svc.ID, ClientID: uuid.New(),
			MemberName: name,
			StartAt:    start, EndAt: start.Add(time.Hour), Status: db.AppointmentConfirmed,
		}))
	}

	_, err := s.Book(context.Background(), testActor(tenantID), BookRequest{
		ServiceID: svc.ID,
		StartAt:   start,
	})
	assert.Equal(t, apperrors.KindNoAvailability, apperrors.KindOf(err))
}

func TestBookRetriesAfterSerializationConflict(t *testing.T) {
	tenantID := uuid.New()
	svc := singleService(tenantID)
	tenant := &db.Tenant{ID: tenantID, Name: "Estudio Uno", IsActive: true}
	tx := &flakyTx{failures: 1}
	s := NewBookingService(
		tx, newFakeCatalog(tenant, svc), newFakeAppointments(), &fakeBlocks{}, &fakeClients{},
		&fakeNotifier{}, noOffers{}, clock.NewFixed(testNow), zerolog.Nop(),
	)

	appt, err := s.Book(context.Background(), testActor(tenantID), BookRequest{
		ServiceID: svc.ID,
		StartAt:   testNow.Add(2 * time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, db.AppointmentRequested, appt.Status)
	assert.Equal(t, 2, tx.calls)
}

func TestBookGivesUpAfterRepeatedConflicts(t *testing.T) {
	tenantID := uuid.New()
	svc := singleService(tenantID)
	tenant := &db.Tenant{ID: tenantID, Name: "Estudio Uno", IsActive: true}
	tx := &flakyTx{failures: 2}
	s := NewBookingService(
		tx, newFakeCatalog(tenant, svc), newFakeAppointments(), &fakeBlocks{}, &fakeClients{},
		&fakeNotifier{}, noOffers{}, clock.NewFixed(testNow), zerolog.Nop(),
	)

	_, err := s.Book(context.Background(), testActor(tenantID), BookRequest{
		ServiceID: svc.ID,
		StartAt:   testNow.Add(2 * time.Hour),
	})
	assert.Equal(t, apperrors.KindResourceBusy, apperrors.KindOf(err))
	assert.Equal(t, 2, tx.calls)
}

func TestConfirmTransitionsRequested(t *testing.T) {
	tenantID := uuid.New()
	svc := singleService(tenantID)
	s, _, _, notifier := newBookingFixture(svc)
	actor := testActor(tenantID)

	appt, err := s.Book(context.Background(), actor, BookRequest{ServiceID: svc.ID, StartAt: testNow.Add(2 * time.Hour)})
	require.NoError(t, err)

	confirmed, err := s.Confirm(context.Background(), actor, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, db.AppointmentConfirmed, confirmed.Status)
	assert.Equal(t, 1, notifier.clientConfirmed)
}

func TestConfirmIsIdempotent(t *testing.T) {
	tenantID := uuid.New()
	svc := singleService(tenantID)
	s, _, _, notifier := newBookingFixture(svc)
	actor := testActor(tenantID)

	appt, err := s.Book(context.Background(), actor, BookRequest{ServiceID: svc.ID, StartAt: testNow.Add(2 * time.Hour)})
	require.NoError(t, err)

	_, err = s.Confirm(context.Background(), actor, appt.ID)
	require.NoError(t, err)
	again, err := s.Confirm(context.Background(), actor, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, db.AppointmentConfirmed, again.Status)
	assert.Equal(t, 1, notifier.clientConfirmed)
}

func TestConfirmLosesRaceToRival(t *testing.T) {
	tenantID := uuid.New()
	svc := singleService(tenantID)
	s, appts, _, _ := newBookingFixture(svc)
	actor := testActor(tenantID)

	start := testNow.Add(2 * time.Hour)
	appt, err := s.Book(context.Background(), actor, BookRequest{ServiceID: svc.ID, StartAt: start})
	require.NoError(t, err)

	// A rival for the same interval got confirmed first.
	require.NoError(t, appts.Create(context.Background(), &db.Appointment{
		ID: uuid.New(), TenantID: tenantID, ServiceID: svc.ID, ClientID: uuid.New(),
		StartAt: start, EndAt: start.Add(time.Hour), Status: db.AppointmentConfirmed,
	}))

	_, err = s.Confirm(context.Background(), actor, appt.ID)
	assert.Equal(t, apperrors.KindAlreadyConfirmedElsewhere, apperrors.KindOf(err))
}

func TestConfirmCancelledFails(t *testing.T) {
	tenantID := uuid.New()
	svc := singleService(tenantID)
	s, _, _, _ := newBookingFixture(svc)
	actor := testActor(tenantID)

	appt, err := s.Book(context.Background(), actor, BookRequest{ServiceID: svc.ID, StartAt: testNow.Add(2 * time.Hour)})
	require.NoError(t, err)
	_, _, err = s.Cancel(context.Background(), actor, appt.ID)
	require.NoError(t, err)

	_, err = s.Confirm(context.Background(), actor, appt.ID)
	assert.Equal(t, apperrors.KindIllegalTransition, apperrors.KindOf(err))
}

func TestConfirmedSlotRejectsRebooking(t *testing.T) {
	tenantID := uuid.New()
	svc := singleService(tenantID)
	s, _, _, _ := newBookingFixture(svc)
	actor := testActor(tenantID)

	start := testNow.Add(2 * time.Hour)
	appt, err := s.Book(context.Background(), actor, BookRequest{ServiceID: svc.ID, StartAt: start})
	require.NoError(t, err)
	_, err = s.Confirm(context.Background(), actor, appt.ID)
	require.NoError(t, err)

	_, err = s.Book(context.Background(), actor, BookRequest{ServiceID: svc.ID, StartAt: start})
	assert.Equal(t, apperrors.KindResourceBusy, apperrors.KindOf(err))
}

func TestCancelRoundTripFreesSlot(t *testing.T) {
	tenantID := uuid.New()
	svc := singleService(tenantID)
	s, _, _, _ := newBookingFixture(svc)
	actor := testActor(tenantID)

	start := testNow.Add(2 * time.Hour)
	appt, err := s.Book(context.Background(), actor, BookRequest{ServiceID: svc.ID, StartAt: start})
	require.NoError(t, err)
	_, err = s.Confirm(context.Background(), actor, appt.ID)
	require.NoError(t, err)

	cancelled, _, err := s.Cancel(context.Background(), actor, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, db.AppointmentCancelled, cancelled.Status)

	again, err := s.Book(context.Background(), actor, BookRequest{ServiceID: svc.ID, StartAt: start})
	require.NoError(t, err)
	assert.Equal(t, db.AppointmentRequested, again.Status)
}

func TestCancelTwiceFails(t *testing.T) {
	tenantID := uuid.New()
	svc := singleService(tenantID)
	s, _, _, _ := newBookingFixture(svc)
	actor := testActor(tenantID)

	appt, err := s.Book(context.Background(), actor, BookRequest{ServiceID: svc.ID, StartAt: testNow.Add(2 * time.Hour)})
	require.NoError(t, err)
	_, _, err = s.Cancel(context.Background(), actor, appt.ID)
	require.NoError(t, err)
	_, _, err = s.Cancel(context.Background(), actor, appt.ID)
	assert.Equal(t, apperrors.KindIllegalTransition, apperrors.KindOf(err))
}

func TestStaffCancelNotifiesClient(t *testing.T) {
	tenantID := uuid.New()
	svc := singleService(tenantID)
	s, _, _, notifier := newBookingFixture(svc)
	client := testActor(tenantID)

	appt, err := s.Book(context.Background(), client, BookRequest{ServiceID: svc.ID, StartAt: testNow.Add(2 * time.Hour)})
	require.NoError(t, err)

	staff := auth.Actor{ID: uuid.New(), TenantID: tenantID, Role: auth.RoleAdmin}
	_, _, err = s.Cancel(context.Background(), staff, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, notifier.clientCancelled)
}

func TestMarkNoShowRequiresPastConfirmed(t *testing.T) {
	tenantID := uuid.New()
	svc := singleService(tenantID)
	s, appts, _, _ := newBookingFixture(svc)
	staff := auth.Actor{ID: uuid.New(), TenantID: tenantID, Role: auth.RoleStaff}

	past := testNow.Add(-3 * time.Hour)
	apptID := uuid.New()
	require.NoError(t, appts.Create(context.Background(), &db.Appointment{
		ID: apptID, TenantID: tenantID, ServiceID: svc.ID, ClientID: uuid.New(),
		StartAt: past, EndAt: past.Add(time.Hour), Status: db.AppointmentConfirmed,
	}))

	appt, err := s.MarkNoShow(context.Background(), staff, apptID)
	require.NoError(t, err)
	assert.Equal(t, db.AppointmentNoShow, appt.Status)

	futureID := uuid.New()
	future := testNow.Add(3 * time.Hour)
	require.NoError(t, appts.Create(context.Background(), &db.Appointment{
		ID: futureID, TenantID: tenantID, ServiceID: svc.ID, ClientID: uuid.New(),
		StartAt: future, EndAt: future.Add(time.Hour), Status: db.AppointmentConfirmed,
	}))
	_, err = s.MarkNoShow(context.Background(), staff, futureID)
	assert.Equal(t, apperrors.KindInvalidWindow, apperrors.KindOf(err))
}

func TestBookResolvesClientByEmail(t *testing.T) {
	tenantID := uuid.New()
	svc := singleService(tenantID)
	tenant := &db.Tenant{ID: tenantID, Name: "Estudio Uno", IsActive: true}
	clients := &fakeClients{}
	existing := &db.Client{ID: uuid.New(), TenantID: tenantID, FullName: "Maria Lopez", Email: "maria@example.com"}
	require.NoError(t, clients.Create(context.Background(), existing))

	s := NewBookingService(
		fakeTx{}, newFakeCatalog(tenant, svc), newFakeAppointments(), &fakeBlocks{}, clients,
		&fakeNotifier{}, noOffers{}, clock.NewFixed(testNow), zerolog.Nop(),
	)

	appt, err := s.Book(context.Background(), testActor(tenantID), BookRequest{ServiceID: svc.ID, StartAt: testNow.Add(2 * time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, existing.ID, appt.ClientID)
	assert.Len(t, clients.items, 1)
}

func TestBookCrossTenantServiceHidden(t *testing.T) {
	tenantID := uuid.New()
	svc := singleService(tenantID)
	s, _, _, _ := newBookingFixture(svc)

	stranger := testActor(uuid.New())
	_, err := s.Book(context.Background(), stranger, BookRequest{ServiceID: svc.ID, StartAt: testNow.Add(2 * time.Hour)})
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}
