package service

import (
	"context"

	"github.com/rs/zerolog"
)

// JobService hosts the scheduled sweeps: reconciling stale offers and
// draining the notification queue. Both run from cron entries in main.
type JobService struct {
	waitlist *WaitlistService
	sender   *SenderService
	log      zerolog.Logger
}

func NewJobService(waitlist *WaitlistService, sender *SenderService, log zerolog.Logger) *JobService {
	return &JobService{waitlist: waitlist, sender: sender, log: log}
}

// ExpireStaleOffers flips stored offered rows whose window has passed.
// Expiry is already enforced lazily on every read and on Accept/Reject; the
// sweep keeps stored rows consistent for reporting.
func (s *JobService) ExpireStaleOffers() {
	n, err := s.waitlist.ExpireStaleOffers(context.Background())
	if err != nil {
		s.log.Error().Err(err).Msg("offer sweep failed")
		return
	}
	if n > 0 {
		s.log.Info().Int64("expired", n).Msg("offer sweep expired stale offers")
	}
}

// DispatchNotifications drains one batch of queued messages.
func (s *JobService) DispatchNotifications() {
	if err := s.sender.DispatchQueued(context.Background()); err != nil {
		s.log.Error().Err(err).Msg("notification dispatch failed")
	}
}
