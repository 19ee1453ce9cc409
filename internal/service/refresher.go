package service

import (
	"context"
	"sync"
	"time"

	"github.com/Harshitk-cp/dreamlog/internal/domain"
	"go.uber.org/zap"
)

const defaultRefreshInterval = 6 * time.Hour

// RefresherService periodically re-runs pattern detection for users whose
// dreams were analyzed since the previous sweep. It catches runs whose
// trigger was lost, e.g. when the process stopped mid-flight.
type RefresherService struct {
	dreams   domain.DreamStore
	patterns *PatternService
	logger   *zap.Logger

	interval  time.Duration
	lastSweep time.Time
	stopCh    chan struct{}
	wg        sync.WaitGroup
}

func NewRefresherService(ds domain.DreamStore, ps *PatternService, logger *zap.Logger) *RefresherService {
	return &RefresherService{
		dreams:   ds,
		patterns: ps,
		logger:   logger,
		interval: defaultRefreshInterval,
		stopCh:   make(chan struct{}),
	}
}

func (s *RefresherService) SetInterval(d time.Duration) {
	if d > 0 {
		s.interval = d
	}
}

// Start runs the refresher on a periodic schedule in a background goroutine.
func (s *RefresherService) Start() {
	s.lastSweep = time.Now().Add(-s.interval)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.logger.Info("pattern refresher started", zap.Duration("interval", s.interval))

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
				s.run(ctx)
				cancel()
			case <-s.stopCh:
				s.logger.Info("pattern refresher stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the refresher.
func (s *RefresherService) Stop() {
	close(s.stopCh)
	s.wg.Wait()
}

// run sweeps once and reports how many users were refreshed.
func (s *RefresherService) run(ctx context.Context) int {
	sweepStart := time.Now()

	userIDs, err := s.dreams.ListUsersAnalyzedSince(ctx, s.lastSweep)
	if err != nil {
		s.logger.Error("failed to list users for pattern refresh", zap.Error(err))
		return 0
	}

	refreshed := 0
	for i, userID := range userIDs {
		if ctx.Err() != nil {
			s.logger.Warn("pattern refresh interrupted", zap.Int("remaining", len(userIDs)-i))
			return refreshed
		}
		if _, err := s.patterns.UpdatePatterns(ctx, userID); err != nil {
			s.logger.Warn("failed to refresh patterns",
				zap.String("user_id", userID.String()),
				zap.Error(err))
			continue
		}
		refreshed++
	}

	s.lastSweep = sweepStart
	if refreshed > 0 {
		s.logger.Info("refreshed patterns", zap.Int("users", refreshed))
	}
	return refreshed
}
