package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Harshitk-cp/dreamlog/internal/domain"
	"github.com/Harshitk-cp/dreamlog/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrDreamNotFound   = errors.New("dream not found")
	ErrInvalidDream    = errors.New("invalid dream")
	ErrInvalidAnalysis = errors.New("invalid analysis")
)

const maxListLimit = 500

// PatternTrigger starts a detached pattern detection run for a user.
type PatternTrigger interface {
	Trigger(userID uuid.UUID)
}

// DreamService records dreams and the analysis results produced upstream.
// A completed analysis invalidates cached stats and schedules pattern detection.
type DreamService struct {
	store   domain.DreamStore
	stats   *StatsService
	trigger PatternTrigger
	logger  *zap.Logger
}

func NewDreamService(s domain.DreamStore, stats *StatsService, trigger PatternTrigger, logger *zap.Logger) *DreamService {
	return &DreamService{store: s, stats: stats, trigger: trigger, logger: logger}
}

func (s *DreamService) Create(ctx context.Context, d *domain.Dream) error {
	if strings.TrimSpace(d.Content) == "" {
		return fmt.Errorf("%w: content is required", ErrInvalidDream)
	}
	if d.StressLevel != nil && !domain.ValidScale(*d.StressLevel) {
		return fmt.Errorf("%w: stress_level must be between 1 and 10", ErrInvalidDream)
	}
	if d.MoodRating != nil && !domain.ValidScale(*d.MoodRating) {
		return fmt.Errorf("%w: mood_rating must be between 1 and 10", ErrInvalidDream)
	}
	if d.RecordedAt.IsZero() {
		d.RecordedAt = time.Now()
	}
	if d.Analysis == nil {
		d.Analysis = &domain.DreamAnalysis{Status: domain.AnalysisPending}
	}

	if err := s.store.Create(ctx, d); err != nil {
		return err
	}
	if s.stats != nil {
		s.stats.Invalidate(ctx, d.UserID)
	}
	return nil
}

func (s *DreamService) GetByID(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*domain.Dream, error) {
	d, err := s.store.GetByID(ctx, id, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrDreamNotFound
		}
		return nil, err
	}
	return d, nil
}

func (s *DreamService) List(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Dream, error) {
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}
	return s.store.Find(ctx, userID, domain.DreamQuery{Limit: limit})
}

// RecordAnalysis stores an analysis result for a dream. When the analysis is
// done, pattern detection for the owner runs in the background.
func (s *DreamService) RecordAnalysis(ctx context.Context, userID, dreamID uuid.UUID, a *domain.DreamAnalysis) error {
	if err := validateAnalysis(a); err != nil {
		return err
	}

	if err := s.store.UpdateAnalysis(ctx, dreamID, userID, a); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrDreamNotFound
		}
		return err
	}

	if s.stats != nil {
		s.stats.Invalidate(ctx, userID)
	}

	if a.Status == domain.AnalysisDone && s.trigger != nil {
		s.logger.Debug("analysis completed, scheduling pattern detection",
			zap.String("user_id", userID.String()),
			zap.String("dream_id", dreamID.String()))
		s.trigger.Trigger(userID)
	}
	return nil
}

func validateAnalysis(a *domain.DreamAnalysis) error {
	if a == nil {
		return fmt.Errorf("%w: analysis is required", ErrInvalidAnalysis)
	}
	if !domain.ValidAnalysisStatus(string(a.Status)) {
		return fmt.Errorf("%w: unknown analysis_status %q", ErrInvalidAnalysis, a.Status)
	}
	if a.Vividness != nil && !domain.ValidScale(*a.Vividness) {
		return fmt.Errorf("%w: vividness must be between 1 and 10", ErrInvalidAnalysis)
	}
	if a.Emotions == nil {
		a.Emotions = domain.EmotionScores{}
	}
	themes := make([]string, 0, len(a.Themes))
	for _, t := range a.Themes {
		if t = strings.TrimSpace(t); t != "" {
			themes = append(themes, t)
		}
	}
	a.Themes = themes
	return nil
}
