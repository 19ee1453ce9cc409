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
)

const defaultTriggerTimeout = 30 * time.Second

// PatternRunResult summarizes one detection run for a user.
type PatternRunResult struct {
	UserID   uuid.UUID `json:"user_id"`
	Scanned  int       `json:"scanned"`
	Skipped  bool      `json:"skipped"`
	Detected int       `json:"detected"`
	Upserted int       `json:"upserted"`
	Failed   int       `json:"failed"`
}

// PatternService runs the detectors over a user's recent analyzed dreams and
// upserts the surviving facts. It is the only writer of patterns.
type PatternService struct {
	dreams   domain.DreamStore
	patterns domain.PatternStore
	logger   *zap.Logger
	metrics  *metrics.Metrics

	policy         domain.PatternPolicy
	loc            *time.Location
	now            func() time.Time
	triggerTimeout time.Duration

	wg sync.WaitGroup
}

func NewPatternService(ds domain.DreamStore, ps domain.PatternStore, policy domain.PatternPolicy, logger *zap.Logger) *PatternService {
	return &PatternService{
		dreams:         ds,
		patterns:       ps,
		logger:         logger,
		policy:         policy,
		loc:            time.UTC,
		now:            time.Now,
		triggerTimeout: defaultTriggerTimeout,
	}
}

func (s *PatternService) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}

// SetLocation sets the zone used to derive weekdays from recorded_at.
func (s *PatternService) SetLocation(loc *time.Location) {
	if loc != nil {
		s.loc = loc
	}
}

func (s *PatternService) SetClock(now func() time.Time) {
	s.now = now
}

func (s *PatternService) Policy() domain.PatternPolicy {
	return s.policy
}

// UpdatePatterns detects and persists patterns for one user. A failed read
// aborts the run with an error; a failed upsert is logged and counted and the
// remaining upserts still run.
func (s *PatternService) UpdatePatterns(ctx context.Context, userID uuid.UUID) (*PatternRunResult, error) {
	start := time.Now()
	result := &PatternRunResult{UserID: userID}

	dreams, err := s.dreams.Find(ctx, userID, domain.DreamQuery{
		AnalyzedOnly: true,
		Limit:        s.policy.HistoryLimit,
	})
	if err != nil {
		s.metrics.RecordPatternRun("failed", time.Since(start))
		return nil, fmt.Errorf("failed to load dreams: %w", err)
	}
	dreams = analyzedOnly(dreams)
	result.Scanned = len(dreams)

	if len(dreams) < s.policy.MinDreams {
		result.Skipped = true
		s.metrics.RecordPatternRun("skipped", time.Since(start))
		s.logger.Debug("not enough analyzed dreams for pattern detection",
			zap.String("user_id", userID.String()),
			zap.Int("dreams", len(dreams)),
			zap.Int("required", s.policy.MinDreams))
		return result, nil
	}

	now := s.now()
	facts := s.detect(userID, dreams, now)
	result.Detected = len(facts)

	for _, p := range facts {
		err := s.patterns.Upsert(ctx, p)
		s.metrics.RecordPatternUpsert(string(p.Type), err)
		if err != nil {
			result.Failed++
			s.logger.Warn("failed to upsert pattern",
				zap.String("user_id", userID.String()),
				zap.String("pattern_id", p.ID),
				zap.Error(err))
			continue
		}
		result.Upserted++
	}

	s.metrics.RecordPatternRun("completed", time.Since(start))
	s.logger.Info("pattern detection completed",
		zap.String("user_id", userID.String()),
		zap.Int("scanned", result.Scanned),
		zap.Int("upserted", result.Upserted),
		zap.Int("failed", result.Failed))

	return result, nil
}

// detect turns detector output into pattern facts stamped with now.
func (s *PatternService) detect(userID uuid.UUID, dreams []domain.Dream, now time.Time) []*domain.Pattern {
	var facts []*domain.Pattern

	themes := DetectRecurringThemes(dreams, s.policy.ThemeMinOccurrences)
	if len(themes) > s.policy.ThemeMaxPatterns {
		themes = themes[:s.policy.ThemeMaxPatterns]
	}
	for _, t := range themes {
		facts = append(facts, domain.NewPattern(userID,
			domain.ThemeData{Theme: t.Theme}, t.Confidence, t.Count, now))
	}

	for _, day := range DetectTemporalPatterns(dreams, s.loc, s.policy.TemporalMinBucket) {
		if day.NightmareRate <= s.policy.TemporalNightmareRate {
			continue
		}
		facts = append(facts, domain.NewPattern(userID,
			domain.TemporalData{Day: day.Day, NightmareRate: day.NightmareRate},
			Confidence(day.Nightmares, day.DreamCount), day.DreamCount, now))
	}

	if corr := DetectStressCorrelation(dreams, s.policy); corr != nil {
		facts = append(facts, domain.NewPattern(userID,
			domain.CorrelationData{Correlation: corr.Correlation, Message: corr.Message},
			Confidence(corr.Nightmares, corr.HighStressCount), corr.HighStressCount, now))
	}

	return facts
}

// Trigger runs UpdatePatterns in the background. Callers never block on it
// and never see its errors; failures are logged.
func (s *PatternService) Trigger(userID uuid.UUID) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.triggerTimeout)
		defer cancel()

		if _, err := s.UpdatePatterns(ctx, userID); err != nil {
			s.logger.Error("background pattern detection failed",
				zap.String("user_id", userID.String()),
				zap.Error(err))
		}
	}()
}

// Wait blocks until every triggered run has finished.
func (s *PatternService) Wait() {
	s.wg.Wait()
}

func (s *PatternService) List(ctx context.Context, userID uuid.UUID, patternType *domain.PatternType) ([]domain.Pattern, error) {
	return s.patterns.ListByUser(ctx, userID, patternType)
}
