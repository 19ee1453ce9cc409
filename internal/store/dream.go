package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Harshitk-cp/dreamlog/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dreamColumns = `id, user_id, content, recorded_at, stress_level, mood_rating,
	analysis_status, themes, emotions, is_nightmare, is_lucid, vividness, created_at, updated_at`

type DreamStore struct {
	db *pgxpool.Pool
}

func NewDreamStore(db *pgxpool.Pool) *DreamStore {
	return &DreamStore{db: db}
}

func (s *DreamStore) Create(ctx context.Context, d *domain.Dream) error {
	a := d.Analysis
	if a == nil {
		a = &domain.DreamAnalysis{Status: domain.AnalysisPending}
	}
	emotions, err := json.Marshal(emotionsOrEmpty(a.Emotions))
	if err != nil {
		return fmt.Errorf("encode emotions: %w", err)
	}

	return s.db.QueryRow(ctx,
		`INSERT INTO dreams (user_id, content, recorded_at, stress_level, mood_rating, analysis_status, themes, emotions, is_nightmare, is_lucid, vividness)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING id, created_at, updated_at`,
		d.UserID, d.Content, d.RecordedAt, d.StressLevel, d.MoodRating, a.Status, themesOrEmpty(a.Themes), emotions, a.IsNightmare, a.IsLucid, a.Vividness,
	).Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)
}

func (s *DreamStore) GetByID(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*domain.Dream, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+dreamColumns+` FROM dreams WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	d, err := scanDream(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return d, nil
}

func (s *DreamStore) Find(ctx context.Context, userID uuid.UUID, q domain.DreamQuery) ([]domain.Dream, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + dreamColumns + ` FROM dreams WHERE user_id = $1`)
	args := []any{userID}

	if q.AnalyzedOnly {
		args = append(args, domain.AnalysisDone)
		fmt.Fprintf(&sb, " AND analysis_status = $%d", len(args))
	}
	if q.RecordedSince != nil {
		args = append(args, *q.RecordedSince)
		fmt.Fprintf(&sb, " AND recorded_at >= $%d", len(args))
	}
	sb.WriteString(" ORDER BY recorded_at DESC, id")
	if q.Limit > 0 {
		args = append(args, q.Limit)
		fmt.Fprintf(&sb, " LIMIT $%d", len(args))
	}

	rows, err := s.db.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dreams []domain.Dream
	for rows.Next() {
		d, err := scanDream(rows)
		if err != nil {
			return nil, err
		}
		dreams = append(dreams, *d)
	}
	return dreams, rows.Err()
}

func (s *DreamStore) UpdateAnalysis(ctx context.Context, id uuid.UUID, userID uuid.UUID, a *domain.DreamAnalysis) error {
	emotions, err := json.Marshal(emotionsOrEmpty(a.Emotions))
	if err != nil {
		return fmt.Errorf("encode emotions: %w", err)
	}

	var analyzedAt *time.Time
	if a.Status == domain.AnalysisDone {
		now := time.Now()
		analyzedAt = &now
	}

	tag, err := s.db.Exec(ctx,
		`UPDATE dreams SET analysis_status = $3, themes = $4, emotions = $5, is_nightmare = $6, is_lucid = $7,
		    vividness = $8, analyzed_at = COALESCE($9, analyzed_at), updated_at = NOW()
		 WHERE id = $1 AND user_id = $2`,
		id, userID, a.Status, themesOrEmpty(a.Themes), emotions, a.IsNightmare, a.IsLucid, a.Vividness, analyzedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *DreamStore) ListUsersAnalyzedSince(ctx context.Context, since time.Time) ([]uuid.UUID, error) {
	rows, err := s.db.Query(ctx,
		`SELECT DISTINCT user_id FROM dreams
		 WHERE analysis_status = $1 AND analyzed_at >= $2`,
		domain.AnalysisDone, since,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanDream(row pgx.Row) (*domain.Dream, error) {
	d := &domain.Dream{}
	var (
		status      *string
		themes      []string
		emotionsRaw []byte
		isNightmare bool
		isLucid     bool
		vividness   *int
	)
	err := row.Scan(&d.ID, &d.UserID, &d.Content, &d.RecordedAt, &d.StressLevel, &d.MoodRating,
		&status, &themes, &emotionsRaw, &isNightmare, &isLucid, &vividness, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if status != nil {
		var emotions domain.EmotionScores
		// EmotionScores decoding is lenient and never fails.
		_ = json.Unmarshal(emotionsRaw, &emotions)
		if emotions == nil {
			emotions = domain.EmotionScores{}
		}
		d.Analysis = &domain.DreamAnalysis{
			Themes:      themes,
			Emotions:    emotions,
			IsNightmare: isNightmare,
			IsLucid:     isLucid,
			Vividness:   vividness,
			Status:      domain.AnalysisStatus(*status),
		}
	}
	return d, nil
}

func themesOrEmpty(themes []string) []string {
	if themes == nil {
		return []string{}
	}
	return themes
}

func emotionsOrEmpty(e domain.EmotionScores) domain.EmotionScores {
	if e == nil {
		return domain.EmotionScores{}
	}
	return e
}
