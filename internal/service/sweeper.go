package service

import (
	"context"
	"time"

	"github.com/agroisync/backend/internal/repository"
	"github.com/sirupsen/logrus"
)

// PlanSweeper periodically marks lapsed plans as expired.
type PlanSweeper struct {
	users    repository.UserRepository
	interval time.Duration
	log      logrus.FieldLogger
	now      func() time.Time
}

// NewPlanSweeper creates a new plan sweeper.
func NewPlanSweeper(users repository.UserRepository, interval time.Duration, log logrus.FieldLogger) *PlanSweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	return &PlanSweeper{
		users:    users,
		interval: interval,
		log:      log.WithField("component", "sweeper"),
		now:      time.Now,
	}
}

// Start runs a sweep immediately and then on every tick until ctx is done.
func (s *PlanSweeper) Start(ctx context.Context) {
	go func() {
		s.Sweep(ctx)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Sweep(ctx)
			}
		}
	}()
}

// Sweep expires every active plan whose expiry has passed.
func (s *PlanSweeper) Sweep(ctx context.Context) int64 {
	n, err := s.users.ExpirePlans(ctx, s.now())
	if err != nil {
		if ctx.Err() == nil {
			s.log.WithError(err).Error("failed to expire plans")
		}
		return 0
	}
	if n > 0 {
		s.log.WithField("count", n).Info("expired lapsed plans")
	}
	return n
}
