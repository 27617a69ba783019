package usecase

import (
	"context"
	"sync"

	"itinerary-service/pkg/logger"
)

// SweepScheduler serializes sweep execution: at most one sweep is in flight
// per scheduler, and triggers arriving while a sweep runs are coalesced into
// a single follow-up pass instead of being queued for literal replay.
type SweepScheduler struct {
	service *TripService
	logger  logger.Logger

	mu      sync.Mutex
	pending map[string]struct{}
	notify  chan struct{}
}

// NewSweepScheduler creates a scheduler around the trip service.
func NewSweepScheduler(service *TripService, log logger.Logger) *SweepScheduler {
	return &SweepScheduler{
		service: service,
		logger:  log,
		pending: make(map[string]struct{}),
		notify:  make(chan struct{}, 1),
	}
}

// Trigger requests a sweep for the user. Never blocks; repeated triggers for
// the same user collapse into one pending sweep.
func (s *SweepScheduler) Trigger(userID string) {
	s.mu.Lock()
	s.pending[userID] = struct{}{}
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Run processes triggers until the context is cancelled. Call from a single
// goroutine.
func (s *SweepScheduler) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Sweep scheduler stopped")
			return
		case <-s.notify:
			s.drain(ctx)
		}
	}
}

// drain sweeps every pending user, looping until no trigger arrived while it
// was working.
func (s *SweepScheduler) drain(ctx context.Context) {
	for {
		s.mu.Lock()
		if len(s.pending) == 0 {
			s.mu.Unlock()
			return
		}
		users := make([]string, 0, len(s.pending))
		for u := range s.pending {
			users = append(users, u)
		}
		s.pending = make(map[string]struct{})
		s.mu.Unlock()

		for _, userID := range users {
			if ctx.Err() != nil {
				return
			}
			if _, err := s.service.RunSweep(ctx, userID); err != nil {
				s.logger.Error("Sweep failed", "userId", userID, "error", err)
			}
		}
	}
}
