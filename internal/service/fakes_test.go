package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"agendalo/internal/db"
	apperrors "agendalo/internal/errors"
	"agendalo/internal/schedule"
)

// In-memory stores backing the service tests. They mimic the repository
// contracts closely enough for the engine logic to be exercised without a
// database.

type fakeTx struct{}

func (fakeTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// flakyTx reports a serialization conflict on the first failures calls and
// then behaves like fakeTx. calls counts every attempt.
type flakyTx struct {
	failures int
	calls    int
}

func (f *flakyTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.calls++
	if f.calls <= f.failures {
		return &pq.Error{Code: "40001"}
	}
	return fn(ctx)
}

type fakeCatalog struct {
	services map[uuid.UUID]*db.Service
	tenant   *db.Tenant
}

func newFakeCatalog(tenant *db.Tenant, services ...*db.Service) *fakeCatalog {
	c := &fakeCatalog{services: map[uuid.UUID]*db.Service{}, tenant: tenant}
	for _, s := range services {
		c.services[s.ID] = s
	}
	return c
}

func (c *fakeCatalog) GetService(_ context.Context, tenantID, serviceID uuid.UUID) (*db.Service, error) {
	s, ok := c.services[serviceID]
	if !ok || s.TenantID != tenantID {
		return nil, apperrors.E(apperrors.KindNotFound, "servicio no encontrado")
	}
	return s, nil
}

func (c *fakeCatalog) ListServices(_ context.Context, tenantID uuid.UUID) ([]db.Service, error) {
	var out []db.Service
	for _, s := range c.services {
		if s.TenantID == tenantID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (c *fakeCatalog) GetTenant(_ context.Context, tenantID uuid.UUID) (*db.Tenant, error) {
	if c.tenant == nil || c.tenant.ID != tenantID {
		return nil, apperrors.E(apperrors.KindNotFound, "negocio no encontrado")
	}
	return c.tenant, nil
}

type fakeAppointments struct {
	mu    sync.Mutex
	items map[uuid.UUID]*db.Appointment
}

func newFakeAppointments() *fakeAppointments {
	return &fakeAppointments{items: map[uuid.UUID]*db.Appointment{}}
}

func (f *fakeAppointments) Create(_ context.Context, a *db.Appointment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *a
	f.items[a.ID] = &cp
	return nil
}

func (f *fakeAppointments) Get(_ context.Context, tenantID, id uuid.UUID) (*db.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.items[id]
	if !ok || a.TenantID != tenantID {
		return nil, apperrors.E(apperrors.KindNotFound, "turno no encontrado")
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAppointments) List(_ context.Context, tenantID uuid.UUID) ([]db.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []db.Appointment
	for _, a := range f.items {
		if a.TenantID == tenantID {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartAt.After(out[j].StartAt) })
	return out, nil
}

func (f *fakeAppointments) ListConfirmedOverlapping(_ context.Context, tenantID, serviceID uuid.UUID, start, end time.Time, excludeID uuid.UUID) ([]db.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []db.Appointment
	for _, a := range f.items {
		if a.TenantID != tenantID || a.ServiceID != serviceID || a.ID == excludeID {
			continue
		}
		if a.Status != db.AppointmentConfirmed {
			continue
		}
		if schedule.Overlaps(a.StartAt, a.EndAt, start, end) {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeAppointments) UpdateStatus(_ context.Context, tenantID, id uuid.UUID, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.items[id]
	if !ok || a.TenantID != tenantID {
		return apperrors.E(apperrors.KindNotFound, "turno no encontrado")
	}
	a.Status = status
	return nil
}

func (f *fakeAppointments) ReassignAndConfirm(_ context.Context, tenantID, id, clientID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.items[id]
	if !ok || a.TenantID != tenantID {
		return apperrors.E(apperrors.KindNotFound, "turno no encontrado")
	}
	a.ClientID = clientID
	a.Status = db.AppointmentConfirmed
	return nil
}

// erroringAppointments fails every overlap lookup with a fixed error.
type erroringAppointments struct {
	*fakeAppointments
	err error
}

func (f *erroringAppointments) ListConfirmedOverlapping(_ context.Context, _, _ uuid.UUID, _, _ time.Time, _ uuid.UUID) ([]db.Appointment, error) {
	return nil, f.err
}

type fakeBlocks struct {
	items []db.BlockedSlot
}

func (f *fakeBlocks) Create(_ context.Context, b *db.BlockedSlot) error {
	f.items = append(f.items, *b)
	return nil
}

func (f *fakeBlocks) ListOverlapping(_ context.Context, tenantID uuid.UUID, start, end time.Time) ([]db.BlockedSlot, error) {
	var out []db.BlockedSlot
	for _, b := range f.items {
		if b.TenantID == tenantID && schedule.Overlaps(b.StartAt, b.EndAt, start, end) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeBlocks) ListByDate(_ context.Context, tenantID uuid.UUID, day *time.Time) ([]db.BlockedSlot, error) {
	var out []db.BlockedSlot
	for _, b := range f.items {
		if b.TenantID != tenantID {
			continue
		}
		if day != nil {
			y1, m1, d1 := b.StartAt.Date()
			y2, m2, d2 := day.Date()
			if y1 != y2 || m1 != m2 || d1 != d2 {
				continue
			}
		}
		out = append(out, b)
	}
	return out, nil
}

func (f *fakeBlocks) Delete(_ context.Context, tenantID, id uuid.UUID) error {
	for i, b := range f.items {
		if b.TenantID == tenantID && b.ID == id {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return nil
		}
	}
	return apperrors.E(apperrors.KindNotFound, "bloqueo no encontrado")
}

type fakeClients struct {
	items []*db.Client
}

func (f *fakeClients) FindByEmail(_ context.Context, tenantID uuid.UUID, email string) (*db.Client, error) {
	if email == "" {
		return nil, nil
	}
	for _, c := range f.items {
		if c.TenantID == tenantID && c.Email == email {
			return c, nil
		}
	}
	return nil, nil
}

func (f *fakeClients) FindByName(_ context.Context, tenantID uuid.UUID, fullName string) (*db.Client, error) {
	if fullName == "" {
		return nil, nil
	}
	for _, c := range f.items {
		if c.TenantID == tenantID && c.FullName == fullName {
			return c, nil
		}
	}
	return nil, nil
}

func (f *fakeClients) Get(_ context.Context, tenantID, id uuid.UUID) (*db.Client, error) {
	for _, c := range f.items {
		if c.TenantID == tenantID && c.ID == id {
			return c, nil
		}
	}
	return nil, nil
}

func (f *fakeClients) Create(_ context.Context, c *db.Client) error {
	cp := *c
	f.items = append(f.items, &cp)
	return nil
}

type fakeWaitlists struct {
	waitlists map[uuid.UUID]*db.Waitlist
	entries   map[uuid.UUID]*db.WaitlistEntry
	offers    map[uuid.UUID]*db.WaitlistOffer
}

func newFakeWaitlists() *fakeWaitlists {
	return &fakeWaitlists{
		waitlists: map[uuid.UUID]*db.Waitlist{},
		entries:   map[uuid.UUID]*db.WaitlistEntry{},
		offers:    map[uuid.UUID]*db.WaitlistOffer{},
	}
}

func (f *fakeWaitlists) CreateWaitlist(_ context.Context, w *db.Waitlist) error {
	cp := *w
	f.waitlists[w.ID] = &cp
	return nil
}

func (f *fakeWaitlists) ListWaitlists(_ context.Context, tenantID uuid.UUID) ([]db.Waitlist, error) {
	var out []db.Waitlist
	for _, w := range f.waitlists {
		if w.TenantID == tenantID {
			out = append(out, *w)
		}
	}
	return out, nil
}

func (f *fakeWaitlists) GetWaitlist(_ context.Context, tenantID, id uuid.UUID) (*db.Waitlist, error) {
	w, ok := f.waitlists[id]
	if !ok || w.TenantID != tenantID {
		return nil, apperrors.E(apperrors.KindNotFound, "lista de espera no encontrada")
	}
	return w, nil
}

func (f *fakeWaitlists) FindActiveByServiceDate(_ context.Context, tenantID, serviceID uuid.UUID, date time.Time) (*db.Waitlist, error) {
	for _, w := range f.waitlists {
		if w.TenantID == tenantID && w.ServiceID == serviceID && w.Status == db.WaitlistActive &&
			w.DesiredDate.Format("2006-01-02") == date.Format("2006-01-02") {
			return w, nil
		}
	}
	return nil, nil
}

func (f *fakeWaitlists) CloseWaitlist(_ context.Context, tenantID, id uuid.UUID) error {
	w, ok := f.waitlists[id]
	if !ok || w.TenantID != tenantID {
		return apperrors.E(apperrors.KindNotFound, "lista de espera no encontrada")
	}
	w.Status = db.WaitlistClosed
	return nil
}

func (f *fakeWaitlists) AddEntry(_ context.Context, e *db.WaitlistEntry) error {
	cp := *e
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	f.entries[e.ID] = &cp
	return nil
}

func (f *fakeWaitlists) TopEntry(_ context.Context, tenantID, waitlistID uuid.UUID) (*db.WaitlistEntry, error) {
	var candidates []*db.WaitlistEntry
	for _, e := range f.entries {
		if e.TenantID == tenantID && e.WaitlistID == waitlistID {
			candidates = append(candidates, e)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Priority != candidates[j].Priority {
			return candidates[i].Priority < candidates[j].Priority
		}
		return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
	})
	return candidates[0], nil
}

func (f *fakeWaitlists) GetEntry(_ context.Context, tenantID, id uuid.UUID) (*db.WaitlistEntry, error) {
	e, ok := f.entries[id]
	if !ok || e.TenantID != tenantID {
		return nil, apperrors.E(apperrors.KindNotFound, "entrada no encontrada")
	}
	return e, nil
}

func (f *fakeWaitlists) CreateOffer(_ context.Context, o *db.WaitlistOffer) error {
	cp := *o
	f.offers[o.ID] = &cp
	return nil
}

func (f *fakeWaitlists) FindOpenOffer(_ context.Context, tenantID, appointmentID, entryID uuid.UUID, now time.Time) (*db.WaitlistOffer, error) {
	for _, o := range f.offers {
		if o.TenantID == tenantID && o.AppointmentID == appointmentID && o.EntryID == entryID &&
			o.Status == db.OfferOffered && now.Before(o.ExpiresAt) {
			cp := *o
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeWaitlists) GetOffer(_ context.Context, tenantID, id uuid.UUID) (*db.WaitlistOffer, error) {
	o, ok := f.offers[id]
	if !ok || o.TenantID != tenantID {
		return nil, apperrors.E(apperrors.KindNotFound, "oferta no encontrada")
	}
	cp := *o
	return &cp, nil
}

func (f *fakeWaitlists) ListOffers(_ context.Context, tenantID uuid.UUID, now time.Time) ([]db.WaitlistOffer, error) {
	var out []db.WaitlistOffer
	for _, o := range f.offers {
		if o.TenantID != tenantID {
			continue
		}
		cp := *o
		if cp.Status == db.OfferOffered && !now.Before(cp.ExpiresAt) {
			cp.Status = db.OfferExpired
		}
		out = append(out, cp)
	}
	return out, nil
}

func (f *fakeWaitlists) UpdateOfferStatus(_ context.Context, tenantID, id uuid.UUID, status string) error {
	o, ok := f.offers[id]
	if !ok || o.TenantID != tenantID {
		return apperrors.E(apperrors.KindNotFound, "oferta no encontrada")
	}
	o.Status = status
	return nil
}

func (f *fakeWaitlists) ExpireRivals(_ context.Context, tenantID, appointmentID, exceptID uuid.UUID) error {
	for _, o := range f.offers {
		if o.TenantID == tenantID && o.AppointmentID == appointmentID && o.ID != exceptID && o.Status == db.OfferOffered {
			o.Status = db.OfferExpired
		}
	}
	return nil
}

func (f *fakeWaitlists) ExpireStale(_ context.Context, now time.Time) (int64, error) {
	var n int64
	for _, o := range f.offers {
		if o.Status == db.OfferOffered && !now.Before(o.ExpiresAt) {
			o.Status = db.OfferExpired
			n++
		}
	}
	return n, nil
}

// fakeNotifier records events; it satisfies both notification interfaces.
type fakeNotifier struct {
	staffRequested  int
	clientConfirmed int
	clientCancelled int
	offersCreated   int
}

func (f *fakeNotifier) StaffRequested(context.Context, *db.Appointment, string, string) {
	f.staffRequested++
}

func (f *fakeNotifier) ClientConfirmed(context.Context, *db.Appointment, *db.Client, string) {
	f.clientConfirmed++
}

func (f *fakeNotifier) ClientCancelled(context.Context, *db.Appointment, *db.Client, string) {
	f.clientCancelled++
}

func (f *fakeNotifier) OfferCreated(context.Context, *db.WaitlistOffer, *db.Client, string, time.Time) {
	f.offersCreated++
}

// noOffers is an OfferCreator that never produces an offer.
type noOffers struct{}

func (noOffers) OfferFromCancel(context.Context, uuid.UUID, uuid.UUID) (*db.WaitlistOffer, error) {
	return nil, nil
}
