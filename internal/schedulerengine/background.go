package schedulerengine

import (
	"context"
	"sync"
	"time"

	"gitlab.com/codegrader.net/internal/config"
	"gitlab.com/codegrader.net/internal/core/ports/primary"
)

// Refresher evicts cached challenge metadata. An empty id means everything.
type Refresher interface {
	Refresh(ctx context.Context, challengeID string) error
}

// Sweeper drops idle rate-limit state and returns how much was removed
type Sweeper interface {
	Sweep() int
}

type SchedulerEngine struct {
	refreshInterval time.Duration
	sweepInterval   time.Duration
	refresher       Refresher
	sweeper         Sweeper
	logger          primary.Logger
	wg              sync.WaitGroup
}

func NewSchedulerEngine(
	refreshCfg *config.CacheRefreshConfig,
	rateCfg *config.RateLimitConfig,
	refresher Refresher,
	sweeper Sweeper,
	logger primary.Logger,
) *SchedulerEngine {
	return &SchedulerEngine{
		refreshInterval: refreshCfg.Interval,
		sweepInterval:   rateCfg.IdleTTL,
		refresher:       refresher,
		sweeper:         sweeper,
		logger:          logger,
	}
}

// Start runs the background loops until ctx is cancelled. A loop with a
// non-positive interval or no collaborator is not started.
func (s *SchedulerEngine) Start(ctx context.Context) {
	if s.refresher != nil && s.refreshInterval > 0 {
		s.every(ctx, s.refreshInterval, s.RefreshChallenges)
	}
	if s.sweeper != nil && s.sweepInterval > 0 {
		s.every(ctx, s.sweepInterval, s.SweepVisitors)
	}
}

// Wait blocks until every loop started by Start has returned
func (s *SchedulerEngine) Wait() {
	s.wg.Wait()
}

func (s *SchedulerEngine) every(ctx context.Context, interval time.Duration, task func(ctx context.Context)) {
	s.wg.Add(1)
	ticker := time.NewTicker(interval)
	go func() {
		defer s.wg.Done()
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				task(ctx)
			}
		}
	}()
}

func (s *SchedulerEngine) RefreshChallenges(ctx context.Context) {
	if err := s.refresher.Refresh(ctx, ""); err != nil {
		s.logger.Error("Failed to refresh challenge cache", "error", err)
		return
	}
	s.logger.Debug("Challenge cache refreshed")
}

func (s *SchedulerEngine) SweepVisitors(_ context.Context) {
	if n := s.sweeper.Sweep(); n > 0 {
		s.logger.Debug("Swept idle rate limit entries", "count", n)
	}
}
