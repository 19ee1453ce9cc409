package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type UserStore interface {
	Create(ctx context.Context, u *User) error
	GetByAPIKeyHash(ctx context.Context, apiKeyHash string) (*User, error)
}

// DreamQuery narrows a dream listing. Results are always ordered by
// recorded_at, newest first.
type DreamQuery struct {
	AnalyzedOnly  bool
	RecordedSince *time.Time
	// Limit of 0 returns every matching dream.
	Limit int
}

type DreamStore interface {
	Create(ctx context.Context, d *Dream) error
	GetByID(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*Dream, error)
	Find(ctx context.Context, userID uuid.UUID, q DreamQuery) ([]Dream, error)
	UpdateAnalysis(ctx context.Context, id uuid.UUID, userID uuid.UUID, a *DreamAnalysis) error
	// ListUsersAnalyzedSince returns users with an analysis completed after since.
	ListUsersAnalyzedSince(ctx context.Context, since time.Time) ([]uuid.UUID, error)
}

type PatternStore interface {
	// Upsert inserts p or, when p.ID already exists, replaces its payload,
	// confidence, occurrence count and last_seen.
	Upsert(ctx context.Context, p *Pattern) error
	ListByUser(ctx context.Context, userID uuid.UUID, patternType *PatternType) ([]Pattern, error)
}

type StatsCache interface {
	Get(ctx context.Context, userID uuid.UUID) (*StatsSnapshot, bool, error)
	Set(ctx context.Context, userID uuid.UUID, s *StatsSnapshot, ttl time.Duration) error
	Invalidate(ctx context.Context, userID uuid.UUID) error
}
