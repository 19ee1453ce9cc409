package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Harshitk-cp/dreamlog/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// patternFixture is five analyzed dreams: four Monday dreams with high stress,
// three of them nightmares, plus one calm Wednesday dream.
func patternFixture(user uuid.UUID) []domain.Dream {
	return []domain.Dream{
		withStress(analyzedDream(user, monday, true, "flying"), 8),
		withStress(analyzedDream(user, monday.AddDate(0, 0, 7), true, "flying", "chase"), 9),
		withStress(analyzedDream(user, monday.AddDate(0, 0, 14), true, "flying"), 8),
		withStress(analyzedDream(user, monday.AddDate(0, 0, 21), false, "water"), 8),
		withStress(analyzedDream(user, monday.AddDate(0, 0, 2), false, "water"), 3),
	}
}

func newTestPatternService(ds domain.DreamStore, ps domain.PatternStore, clock *time.Time) *PatternService {
	svc := NewPatternService(ds, ps, domain.DefaultPatternPolicy(), zap.NewNop())
	svc.SetClock(func() time.Time { return *clock })
	return svc
}

func TestUpdatePatterns_DetectsAllKinds(t *testing.T) {
	user := uuid.New()
	ds := newMockDreamStore(patternFixture(user)...)
	ps := newMockPatternStore()
	now := time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC)
	svc := newTestPatternService(ds, ps, &now)

	result, err := svc.UpdatePatterns(context.Background(), user)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Scanned != 5 || result.Skipped {
		t.Errorf("expected 5 dreams scanned without skipping, got %+v", result)
	}
	if result.Detected != 4 || result.Upserted != 4 || result.Failed != 0 {
		t.Errorf("expected 4 detected and upserted, got %+v", result)
	}

	flying, ok := ps.get(user.String() + "-theme-flying")
	if !ok {
		t.Fatal("expected the flying theme pattern to be stored")
	}
	if flying.Type != domain.PatternRecurringTheme {
		t.Errorf("expected type %s, got %s", domain.PatternRecurringTheme, flying.Type)
	}
	if flying.Data != (domain.ThemeData{Theme: "flying"}) {
		t.Errorf("unexpected data %+v", flying.Data)
	}
	if !approxEqual(flying.Confidence, 0.6) || flying.OccurrenceCount != 3 {
		t.Errorf("expected confidence 0.6 over 3 occurrences, got %v over %d", flying.Confidence, flying.OccurrenceCount)
	}
	if !flying.LastSeen.Equal(now) {
		t.Errorf("expected last seen %v, got %v", now, flying.LastSeen)
	}

	water, ok := ps.get(user.String() + "-theme-water")
	if !ok {
		t.Fatal("expected the water theme pattern to be stored")
	}
	if !approxEqual(water.Confidence, 0.4) {
		t.Errorf("expected water confidence 0.4, got %v", water.Confidence)
	}

	if _, ok := ps.get(user.String() + "-theme-chase"); ok {
		t.Error("single-occurrence theme should not be stored")
	}

	temporal, ok := ps.get(user.String() + "-temporal-Monday")
	if !ok {
		t.Fatal("expected the Monday temporal pattern to be stored")
	}
	data, ok := temporal.Data.(domain.TemporalData)
	if !ok {
		t.Fatalf("expected TemporalData, got %T", temporal.Data)
	}
	if !approxEqual(data.NightmareRate, 0.75) || !approxEqual(temporal.Confidence, 0.75) {
		t.Errorf("expected rate and confidence 0.75, got %v and %v", data.NightmareRate, temporal.Confidence)
	}
	if temporal.OccurrenceCount != 4 {
		t.Errorf("expected 4 occurrences, got %d", temporal.OccurrenceCount)
	}

	corr, ok := ps.get(user.String() + "-correlation-stress")
	if !ok {
		t.Fatal("expected the stress correlation to be stored")
	}
	cdata, ok := corr.Data.(domain.CorrelationData)
	if !ok {
		t.Fatalf("expected CorrelationData, got %T", corr.Data)
	}
	if !approxEqual(cdata.Correlation, 0.75) {
		t.Errorf("expected correlation 0.75, got %v", cdata.Correlation)
	}
	if want := "75% of your high-stress nights led to nightmares"; cdata.Message != want {
		t.Errorf("expected message %q, got %q", want, cdata.Message)
	}
	if corr.OccurrenceCount != 4 {
		t.Errorf("expected 4 occurrences, got %d", corr.OccurrenceCount)
	}
}

func TestUpdatePatterns_Idempotent(t *testing.T) {
	user := uuid.New()
	ds := newMockDreamStore(patternFixture(user)...)
	ps := newMockPatternStore()
	first := time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC)
	clock := first
	svc := newTestPatternService(ds, ps, &clock)
	ctx := context.Background()

	if _, err := svc.UpdatePatterns(ctx, user); err != nil {
		t.Fatalf("first run: %v", err)
	}
	before, _ := ps.ListByUser(ctx, user, nil)

	clock = first.Add(time.Hour)
	if _, err := svc.UpdatePatterns(ctx, user); err != nil {
		t.Fatalf("second run: %v", err)
	}
	after, _ := ps.ListByUser(ctx, user, nil)

	if len(after) != len(before) {
		t.Fatalf("expected %d patterns after rerun, got %d", len(before), len(after))
	}
	for i := range before {
		b, a := before[i], after[i]
		if a.ID != b.ID || a.Data != b.Data || a.Confidence != b.Confidence || a.OccurrenceCount != b.OccurrenceCount {
			t.Errorf("pattern %s changed between runs: %+v -> %+v", b.ID, b, a)
		}
		if !a.CreatedAt.Equal(first) {
			t.Errorf("pattern %s: created_at moved to %v", a.ID, a.CreatedAt)
		}
		if !a.LastSeen.Equal(clock) {
			t.Errorf("pattern %s: expected last seen %v, got %v", a.ID, clock, a.LastSeen)
		}
	}
}

func TestUpdatePatterns_SkipsBelowMinimum(t *testing.T) {
	user := uuid.New()
	ds := newMockDreamStore(
		analyzedDream(user, monday, true, "flying"),
		analyzedDream(user, monday.AddDate(0, 0, 7), true, "flying"),
		pendingDream(user, monday.AddDate(0, 0, 14), "flying"),
	)
	ps := newMockPatternStore()
	now := time.Now()
	svc := newTestPatternService(ds, ps, &now)

	result, err := svc.UpdatePatterns(context.Background(), user)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !result.Skipped || result.Scanned != 2 {
		t.Errorf("expected a skipped run over 2 dreams, got %+v", result)
	}
	if ps.count() != 0 {
		t.Errorf("expected no patterns, got %d", ps.count())
	}
	if len(ds.queries) != 1 {
		t.Fatalf("expected 1 query, got %d", len(ds.queries))
	}
	if q := ds.queries[0]; !q.AnalyzedOnly || q.Limit != 100 {
		t.Errorf("expected analyzed-only query limited to 100, got %+v", q)
	}
}

func TestUpdatePatterns_UsesMostRecentHistory(t *testing.T) {
	user := uuid.New()
	ds := newMockDreamStore(patternFixture(user)...)
	ps := newMockPatternStore()
	now := time.Now()
	svc := NewPatternService(ds, ps, domain.PatternPolicy{
		HistoryLimit:          3,
		MinDreams:             3,
		ThemeMinOccurrences:   2,
		ThemeMaxPatterns:      10,
		TemporalMinBucket:     2,
		TemporalNightmareRate: 0.4,
		StressHighLevel:       7,
		StressMinSamples:      3,
		StressMinCorrelation:  0.5,
	}, zap.NewNop())
	svc.SetClock(func() time.Time { return now })

	result, err := svc.UpdatePatterns(context.Background(), user)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Scanned != 3 {
		t.Errorf("expected 3 dreams scanned, got %d", result.Scanned)
	}
	// The three newest are Monday dreams; the Wednesday one falls outside.
	if _, ok := ps.get(user.String() + "-theme-water"); ok {
		t.Error("water should not recur within the three newest dreams")
	}
	if _, ok := ps.get(user.String() + "-theme-flying"); !ok {
		t.Error("expected the flying theme pattern")
	}
}

func TestUpdatePatterns_ThemeCap(t *testing.T) {
	user := uuid.New()
	ds := newMockDreamStore(patternFixture(user)...)
	ps := newMockPatternStore()
	policy := domain.DefaultPatternPolicy()
	policy.ThemeMaxPatterns = 1
	svc := NewPatternService(ds, ps, policy, zap.NewNop())

	if _, err := svc.UpdatePatterns(context.Background(), user); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	themeType := domain.PatternRecurringTheme
	themes, _ := ps.ListByUser(context.Background(), user, &themeType)
	if len(themes) != 1 {
		t.Fatalf("expected 1 theme pattern, got %d", len(themes))
	}
	if themes[0].Data != (domain.ThemeData{Theme: "flying"}) {
		t.Errorf("expected the most frequent theme to survive the cap, got %+v", themes[0].Data)
	}
}

func TestUpdatePatterns_UpsertFailureDoesNotAbort(t *testing.T) {
	user := uuid.New()
	ds := newMockDreamStore(patternFixture(user)...)
	ps := newMockPatternStore()
	ps.failType = domain.PatternTemporal
	ps.failErr = errors.New("connection reset")
	now := time.Now()
	svc := newTestPatternService(ds, ps, &now)

	result, err := svc.UpdatePatterns(context.Background(), user)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Detected != 4 || result.Upserted != 3 || result.Failed != 1 {
		t.Errorf("expected 4 detected, 3 upserted, 1 failed; got %+v", result)
	}
	if _, ok := ps.get(user.String() + "-correlation-stress"); !ok {
		t.Error("upserts after a failure should still run")
	}
}

func TestUpdatePatterns_ReadFailure(t *testing.T) {
	ds := newMockDreamStore()
	readErr := errors.New("db down")
	ds.findErr = readErr
	ps := newMockPatternStore()
	now := time.Now()
	svc := newTestPatternService(ds, ps, &now)

	result, err := svc.UpdatePatterns(context.Background(), uuid.New())

	if result != nil {
		t.Errorf("expected nil result, got %+v", result)
	}
	if !errors.Is(err, readErr) {
		t.Errorf("expected %v, got %v", readErr, err)
	}
	if ps.count() != 0 {
		t.Errorf("expected no patterns, got %d", ps.count())
	}
}

func TestUpdatePatterns_OnlyOwnDreams(t *testing.T) {
	user := uuid.New()
	other := uuid.New()
	ds := newMockDreamStore(patternFixture(other)...)
	ds.dreams = append(ds.dreams, analyzedDream(user, monday, false, "flying"))
	ps := newMockPatternStore()
	now := time.Now()
	svc := newTestPatternService(ds, ps, &now)

	result, err := svc.UpdatePatterns(context.Background(), user)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !result.Skipped || result.Scanned != 1 {
		t.Errorf("expected a skipped run over the user's single dream, got %+v", result)
	}
}

func TestTrigger_RunsInBackground(t *testing.T) {
	user := uuid.New()
	ds := newMockDreamStore(patternFixture(user)...)
	ps := newMockPatternStore()
	now := time.Now()
	svc := newTestPatternService(ds, ps, &now)

	svc.Trigger(user)
	svc.Wait()

	if ps.count() != 4 {
		t.Errorf("expected 4 patterns, got %d", ps.count())
	}
}

func TestTrigger_SwallowsErrors(t *testing.T) {
	ds := newMockDreamStore()
	ds.findErr = errors.New("db down")
	now := time.Now()
	svc := newTestPatternService(ds, newMockPatternStore(), &now)

	svc.Trigger(uuid.New())
	svc.Wait()

	if ds.findCalls() != 1 {
		t.Errorf("expected 1 read, got %d", ds.findCalls())
	}
}
