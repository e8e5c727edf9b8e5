package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"agendalo/internal/clock"
	"agendalo/internal/config"
	"agendalo/internal/db"
	"agendalo/internal/entities"
	"agendalo/internal/schedule"
)

// AvailabilityService computes the discrete slot snapshot for a service:
// a finite, restartable view of the next bookable intervals, each tagged
// available, blocked or confirmed. Reads are lock-free; the authoritative
// check happens again at allocation time.
type AvailabilityService struct {
	catalog CatalogStore
	appts   AppointmentStore
	blocks  BlockStore
	clock   clock.Clock
	cfg     config.Engine
	log     zerolog.Logger
}

func NewAvailabilityService(catalog CatalogStore, appts AppointmentStore, blocks BlockStore, clk clock.Clock, cfg config.Engine, log zerolog.Logger) *AvailabilityService {
	return &AvailabilityService{catalog: catalog, appts: appts, blocks: blocks, clock: clk, cfg: cfg, log: log}
}

// ComputeSlots walks the lookahead window in service-duration steps and
// classifies every candidate interval against current bookings and blocks.
// The result is a pure function of stored state and the injected clock.
func (s *AvailabilityService) ComputeSlots(ctx context.Context, tenantID, serviceID uuid.UUID, horizonStart time.Time) (*entities.AvailabilityResponse, error) {
	svc, err := s.catalog.GetService(ctx, tenantID, serviceID)
	if err != nil {
		return nil, err
	}
	tenant, err := s.catalog.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	duration := svc.DurationMin
	if duration < 15 {
		duration = 15
	}
	step := time.Duration(duration) * time.Minute

	cursor := now.Add(time.Duration(svc.MinAdvanceHours) * time.Hour)
	if horizonStart.After(cursor) {
		cursor = horizonStart
	}
	cursor = schedule.RoundUp(cursor, duration)

	week := schedule.ParseSchedule(tenant.OpeningHours)

	var slots []entities.Slot
	if week.Empty() {
		// Not every tenant configures structured hours; step from the cursor
		// under a hard iteration ceiling instead.
		slots, err = s.walkUnscheduled(ctx, svc, cursor, step)
	} else {
		slots, err = s.walkSchedule(ctx, svc, week, cursor, step)
	}
	if err != nil {
		return nil, err
	}

	resp := &entities.AvailabilityResponse{
		ServiceID: svc.ID,
		From:      cursor,
	}
	for _, slot := range slots {
		if slot.State == entities.SlotAvailable {
			resp.Available = append(resp.Available, slot)
		} else {
			resp.Unavailable = append(resp.Unavailable, slot)
		}
	}
	return resp, nil
}

func (s *AvailabilityService) walkUnscheduled(ctx context.Context, svc *db.Service, cursor time.Time, step time.Duration) ([]entities.Slot, error) {
	var slots []entities.Slot
	start := cursor
	for i := 0; i < s.cfg.IterationCeiling && len(slots) < s.cfg.MaxSlots; i++ {
		slot, err := s.classify(ctx, svc, start, start.Add(step))
		if err != nil {
			return nil, err
		}
		slots = append(slots, slot)
		start = start.Add(step)
	}
	return slots, nil
}

func (s *AvailabilityService) walkSchedule(ctx context.Context, svc *db.Service, week schedule.Week, cursor time.Time, step time.Duration) ([]entities.Slot, error) {
	var slots []entities.Slot
	iterations := 0
	for dayOffset := 0; dayOffset < s.cfg.LookaheadDays; dayOffset++ {
		day := cursor.AddDate(0, 0, dayOffset)
		if !week.Days[day.Weekday()] {
			continue
		}
		for _, r := range week.Ranges {
			open := time.Date(day.Year(), day.Month(), day.Day(), r.OpenHour, r.OpenMin, 0, 0, cursor.Location())
			close := time.Date(day.Year(), day.Month(), day.Day(), r.CloseHour, r.CloseMin, 0, 0, cursor.Location())
			if r.Overnight() {
				close = close.AddDate(0, 0, 1)
			}
			for start := open; !start.Add(step).After(close); start = start.Add(step) {
				iterations++
				if iterations > s.cfg.IterationCeiling || len(slots) >= s.cfg.MaxSlots {
					return slots, nil
				}
				if start.Before(cursor) {
					continue
				}
				slot, err := s.classify(ctx, svc, start, start.Add(step))
				if err != nil {
					return nil, err
				}
				slots = append(slots, slot)
			}
		}
	}
	return slots, nil
}

func (s *AvailabilityService) classify(ctx context.Context, svc *db.Service, start, end time.Time) (entities.Slot, error) {
	slot := entities.Slot{StartAt: start, EndAt: end}

	overlapping, err := s.appts.ListConfirmedOverlapping(ctx, svc.TenantID, svc.ID, start, end, uuid.Nil)
	if err != nil {
		s.log.Error().Err(err).Time("start", start).Msg("loading overlapping appointments")
		return entities.Slot{}, err
	}
	blocks, err := s.blocks.ListOverlapping(ctx, svc.TenantID, start, end)
	if err != nil {
		s.log.Error().Err(err).Time("start", start).Msg("loading overlapping blocks")
		return entities.Slot{}, err
	}

	slot.State, slot.Reason = classifySlot(svc, overlapping, blocks)
	return slot, nil
}
