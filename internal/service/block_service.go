package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"agendalo/internal/auth"
	"agendalo/internal/db"
	apperrors "agendalo/internal/errors"
)

// BlockService manages staff-declared blocked intervals. A block with an
// empty member name applies to every member of a pooled resource.
type BlockService struct {
	blocks BlockStore
}

func NewBlockService(blocks BlockStore) *BlockService {
	return &BlockService{blocks: blocks}
}

func (s *BlockService) Create(ctx context.Context, actor auth.Actor, memberName string, startAt, endAt time.Time, reason string) (*db.BlockedSlot, error) {
	if !startAt.Before(endAt) {
		return nil, apperrors.E(apperrors.KindInvalidWindow, "El bloqueo debe terminar despues de empezar.")
	}
	b := &db.BlockedSlot{
		ID:         uuid.New(),
		TenantID:   actor.TenantID,
		MemberName: memberName,
		StartAt:    startAt,
		EndAt:      endAt,
		Reason:     reason,
		CreatedBy:  actor.ID,
	}
	if err := s.blocks.Create(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *BlockService) List(ctx context.Context, actor auth.Actor, day *time.Time) ([]db.BlockedSlot, error) {
	return s.blocks.ListByDate(ctx, actor.TenantID, day)
}

func (s *BlockService) Delete(ctx context.Context, actor auth.Actor, id uuid.UUID) error {
	return s.blocks.Delete(ctx, actor.TenantID, id)
}
