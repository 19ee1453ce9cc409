package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Harshitk-cp/dreamlog/internal/domain"
	"github.com/Harshitk-cp/dreamlog/internal/store"
	"github.com/google/uuid"
)

// mockDreamStore is an in-memory DreamStore honoring DreamQuery ordering and limits.
type mockDreamStore struct {
	mu      sync.Mutex
	dreams  []domain.Dream
	queries []domain.DreamQuery
	findErr error

	analyzedUsers []uuid.UUID
	listErr       error
}

func newMockDreamStore(dreams ...domain.Dream) *mockDreamStore {
	return &mockDreamStore{dreams: dreams}
}

func (m *mockDreamStore) Create(ctx context.Context, d *domain.Dream) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	now := time.Now()
	d.CreatedAt = now
	d.UpdatedAt = now
	m.dreams = append(m.dreams, *d)
	return nil
}

func (m *mockDreamStore) GetByID(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*domain.Dream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.dreams {
		if d.ID == id && d.UserID == userID {
			out := d
			return &out, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *mockDreamStore) Find(ctx context.Context, userID uuid.UUID, q domain.DreamQuery) ([]domain.Dream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, q)
	if m.findErr != nil {
		return nil, m.findErr
	}

	var out []domain.Dream
	for _, d := range m.dreams {
		if d.UserID != userID {
			continue
		}
		if q.AnalyzedOnly && !d.IsAnalyzed() {
			continue
		}
		if q.RecordedSince != nil && d.RecordedAt.Before(*q.RecordedSince) {
			continue
		}
		out = append(out, d)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RecordedAt.After(out[j].RecordedAt)
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (m *mockDreamStore) UpdateAnalysis(ctx context.Context, id uuid.UUID, userID uuid.UUID, a *domain.DreamAnalysis) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.dreams {
		if m.dreams[i].ID == id && m.dreams[i].UserID == userID {
			analysis := *a
			m.dreams[i].Analysis = &analysis
			return nil
		}
	}
	return store.ErrNotFound
}

func (m *mockDreamStore) ListUsersAnalyzedSince(ctx context.Context, since time.Time) ([]uuid.UUID, error) {
	return m.analyzedUsers, m.listErr
}

func (m *mockDreamStore) findCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queries)
}

// mockPatternStore keeps patterns keyed by ID the way the ON CONFLICT upsert does.
type mockPatternStore struct {
	mu       sync.Mutex
	patterns map[string]domain.Pattern
	failType domain.PatternType
	failErr  error
}

func newMockPatternStore() *mockPatternStore {
	return &mockPatternStore{patterns: make(map[string]domain.Pattern)}
}

func (m *mockPatternStore) Upsert(ctx context.Context, p *domain.Pattern) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil && p.Type == m.failType {
		return m.failErr
	}
	stored := *p
	if existing, ok := m.patterns[p.ID]; ok {
		stored.CreatedAt = existing.CreatedAt
	} else {
		stored.CreatedAt = p.LastSeen
	}
	stored.UpdatedAt = p.LastSeen
	m.patterns[p.ID] = stored
	return nil
}

func (m *mockPatternStore) ListByUser(ctx context.Context, userID uuid.UUID, patternType *domain.PatternType) ([]domain.Pattern, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Pattern
	for _, p := range m.patterns {
		if p.UserID != userID {
			continue
		}
		if patternType != nil && p.Type != *patternType {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockPatternStore) get(id string) (domain.Pattern, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.patterns[id]
	return p, ok
}

func (m *mockPatternStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.patterns)
}

type mockStatsCache struct {
	mu          sync.Mutex
	entries     map[uuid.UUID]*domain.StatsSnapshot
	getErr      error
	sets        int
	invalidated int
}

func newMockStatsCache() *mockStatsCache {
	return &mockStatsCache{entries: make(map[uuid.UUID]*domain.StatsSnapshot)}
}

func (m *mockStatsCache) Get(ctx context.Context, userID uuid.UUID) (*domain.StatsSnapshot, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	s, ok := m.entries[userID]
	return s, ok, nil
}

func (m *mockStatsCache) Set(ctx context.Context, userID uuid.UUID, s *domain.StatsSnapshot, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[userID] = s
	m.sets++
	return nil
}

func (m *mockStatsCache) Invalidate(ctx context.Context, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, userID)
	m.invalidated++
	return nil
}

// 2024-01-01 was a Monday.
var monday = time.Date(2024, 1, 1, 23, 0, 0, 0, time.UTC)

func intPtr(v int) *int { return &v }

// analyzedDream builds a dream with a completed analysis.
func analyzedDream(userID uuid.UUID, at time.Time, nightmare bool, themes ...string) domain.Dream {
	return domain.Dream{
		ID:         uuid.New(),
		UserID:     userID,
		Content:    "a dream",
		RecordedAt: at,
		Analysis: &domain.DreamAnalysis{
			Themes:      themes,
			Emotions:    domain.EmotionScores{},
			IsNightmare: nightmare,
			Status:      domain.AnalysisDone,
		},
	}
}

func withStress(d domain.Dream, stress int) domain.Dream {
	d.StressLevel = intPtr(stress)
	return d
}

func pendingDream(userID uuid.UUID, at time.Time, themes ...string) domain.Dream {
	d := analyzedDream(userID, at, false, themes...)
	d.Analysis.Status = domain.AnalysisPending
	return d
}
