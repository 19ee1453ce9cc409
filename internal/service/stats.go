package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Harshitk-cp/dreamlog/internal/domain"
	"github.com/Harshitk-cp/dreamlog/internal/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultStatsCacheTTL  = 2 * time.Minute
	defaultComputeTimeout = 30 * time.Second
	StatsWindowDays       = 14
	StatsTopN             = 10
	// neutralScale is the midpoint of the 1-10 scales, used for days without reports.
	neutralScale = 5.0
)

// StatsService aggregates a user's full dream history for the insights view.
type StatsService struct {
	dreams  domain.DreamStore
	cache   domain.StatsCache
	logger  *zap.Logger
	metrics *metrics.Metrics

	ttl            time.Duration
	computeTimeout time.Duration
	loc            *time.Location
	now            func() time.Time

	group       singleflight.Group
	mu          sync.Mutex
	generations map[uuid.UUID]uint64
}

func NewStatsService(ds domain.DreamStore, cache domain.StatsCache, logger *zap.Logger) *StatsService {
	return &StatsService{
		dreams:         ds,
		cache:          cache,
		logger:         logger,
		ttl:            DefaultStatsCacheTTL,
		computeTimeout: defaultComputeTimeout,
		loc:            time.UTC,
		now:            time.Now,
		generations:    make(map[uuid.UUID]uint64),
	}
}

func (s *StatsService) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}

func (s *StatsService) SetTTL(d time.Duration) {
	s.ttl = d
}

// SetLocation sets the zone that defines calendar days in the trend series.
func (s *StatsService) SetLocation(loc *time.Location) {
	if loc != nil {
		s.loc = loc
	}
}

func (s *StatsService) SetClock(now func() time.Time) {
	s.now = now
}

// ComputeStats reads every dream of the user and aggregates them.
func (s *StatsService) ComputeStats(ctx context.Context, userID uuid.UUID) (*domain.StatsSnapshot, error) {
	dreams, err := s.dreams.Find(ctx, userID, domain.DreamQuery{})
	if err != nil {
		return nil, fmt.Errorf("failed to load dreams: %w", err)
	}
	snapshot := BuildStats(dreams, s.now(), s.loc)
	snapshot.UserID = userID.String()
	return snapshot, nil
}

// GetStats serves a cached snapshot when available. Concurrent misses for the
// same user share one computation, which runs detached from any single caller
// so one cancelled request does not fail the others. Cache errors degrade to
// recomputation.
func (s *StatsService) GetStats(ctx context.Context, userID uuid.UUID) (*domain.StatsSnapshot, error) {
	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, userID)
		if err != nil {
			s.logger.Warn("stats cache read failed", zap.String("user_id", userID.String()), zap.Error(err))
		} else if ok {
			s.metrics.RecordStatsCache(true)
			return cached, nil
		}
	}
	s.metrics.RecordStatsCache(false)

	key := userID.String()
	ch := s.group.DoChan(key, func() (any, error) {
		gen := s.generation(userID)

		computeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.computeTimeout)
		defer cancel()

		snapshot, err := s.ComputeStats(computeCtx, userID)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			s.storeIfCurrent(computeCtx, userID, gen, snapshot)
		}
		return snapshot, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*domain.StatsSnapshot), nil
	}
}

// Invalidate drops the cached snapshot after the user's dreams change. A
// computation already in flight for the user will not write its result back.
func (s *StatsService) Invalidate(ctx context.Context, userID uuid.UUID) {
	s.mu.Lock()
	s.generations[userID]++
	s.mu.Unlock()
	s.group.Forget(userID.String())

	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		s.logger.Warn("stats cache invalidation failed", zap.String("user_id", userID.String()), zap.Error(err))
	}
}

// storeIfCurrent caches snapshot unless the user's dreams changed since gen.
// The check and the write happen under mu so Invalidate cannot slip between them.
func (s *StatsService) storeIfCurrent(ctx context.Context, userID uuid.UUID, gen uint64, snapshot *domain.StatsSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generations[userID] != gen {
		return
	}
	if err := s.cache.Set(ctx, userID, snapshot, s.ttl); err != nil {
		s.logger.Warn("stats cache write failed", zap.String("user_id", userID.String()), zap.Error(err))
	}
}

func (s *StatsService) generation(userID uuid.UUID) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generations[userID]
}

// BuildStats aggregates dreams into a snapshot. The daily series cover the
// StatsWindowDays calendar days in loc ending on now's day, oldest first.
func BuildStats(dreams []domain.Dream, now time.Time, loc *time.Location) *domain.StatsSnapshot {
	if loc == nil {
		loc = time.UTC
	}

	snapshot := &domain.StatsSnapshot{
		TotalDreams: len(dreams),
		TopThemes:   []domain.ThemeFrequency{},
		TopEmotions: []domain.EmotionAverage{},
		GeneratedAt: now,
	}

	var vividSum, vividCount int
	for _, d := range dreams {
		if !d.IsAnalyzed() {
			continue
		}
		snapshot.AnalyzedDreams++
		if d.Analysis.IsNightmare {
			snapshot.Nightmares++
		}
		if d.Analysis.IsLucid {
			snapshot.LucidDreams++
		}
		if d.Analysis.Vividness != nil {
			vividSum += *d.Analysis.Vividness
			vividCount++
		}
	}
	if vividCount > 0 {
		snapshot.AvgVividness = float64(vividSum) / float64(vividCount)
	}

	themes := tallyThemes(dreams)
	sortByCount(themes)
	if len(themes) > StatsTopN {
		themes = themes[:StatsTopN]
	}
	snapshot.TopThemes = append(snapshot.TopThemes, themes...)
	snapshot.TopEmotions = append(snapshot.TopEmotions, TopEmotions(AggregateEmotions(dreams), StatsTopN)...)

	snapshot.DailyActivity, snapshot.MoodTrend = dailySeries(dreams, now, loc)
	return snapshot
}

type dayAccumulator struct {
	count                  int
	moodSum, moodCount     int
	stressSum, stressCount int
}

func dailySeries(dreams []domain.Dream, now time.Time, loc *time.Location) ([]domain.DailyCount, []domain.MoodPoint) {
	local := now.In(loc)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)

	days := make([]string, StatsWindowDays)
	acc := make(map[string]*dayAccumulator, StatsWindowDays)
	for i := 0; i < StatsWindowDays; i++ {
		key := today.AddDate(0, 0, i-(StatsWindowDays-1)).Format(time.DateOnly)
		days[i] = key
		acc[key] = &dayAccumulator{}
	}

	for _, d := range dreams {
		a, ok := acc[d.RecordedAt.In(loc).Format(time.DateOnly)]
		if !ok {
			continue
		}
		a.count++
		if d.MoodRating != nil {
			a.moodSum += *d.MoodRating
			a.moodCount++
		}
		if d.StressLevel != nil {
			a.stressSum += *d.StressLevel
			a.stressCount++
		}
	}

	activity := make([]domain.DailyCount, 0, StatsWindowDays)
	trend := make([]domain.MoodPoint, 0, StatsWindowDays)
	for _, key := range days {
		a := acc[key]
		activity = append(activity, domain.DailyCount{Date: key, Count: a.count})
		trend = append(trend, domain.MoodPoint{
			Date:   key,
			Mood:   meanOrNeutral(a.moodSum, a.moodCount),
			Stress: meanOrNeutral(a.stressSum, a.stressCount),
		})
	}
	return activity, trend
}

func meanOrNeutral(sum, n int) float64 {
	if n == 0 {
		return neutralScale
	}
	return float64(sum) / float64(n)
}
