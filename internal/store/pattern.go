package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Harshitk-cp/dreamlog/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PatternStore struct {
	db *pgxpool.Pool
}

func NewPatternStore(db *pgxpool.Pool) *PatternStore {
	return &PatternStore{db: db}
}

// Upsert keys on the deterministic pattern ID, so concurrent runs for the
// same user converge on one row per pattern.
func (s *PatternStore) Upsert(ctx context.Context, p *domain.Pattern) error {
	data, err := json.Marshal(p.Data)
	if err != nil {
		return fmt.Errorf("encode pattern data: %w", err)
	}

	return s.db.QueryRow(ctx,
		`INSERT INTO patterns (id, user_id, pattern_type, pattern_data, confidence, occurrence_count, last_seen)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO UPDATE SET
		    pattern_data = EXCLUDED.pattern_data,
		    confidence = EXCLUDED.confidence,
		    occurrence_count = EXCLUDED.occurrence_count,
		    last_seen = EXCLUDED.last_seen,
		    updated_at = NOW()
		 RETURNING created_at, updated_at`,
		p.ID, p.UserID, p.Type, data, p.Confidence, p.OccurrenceCount, p.LastSeen,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
}

func (s *PatternStore) ListByUser(ctx context.Context, userID uuid.UUID, patternType *domain.PatternType) ([]domain.Pattern, error) {
	query := `SELECT id, user_id, pattern_type, pattern_data, confidence, occurrence_count, last_seen, created_at, updated_at
		 FROM patterns WHERE user_id = $1`
	args := []any{userID}
	if patternType != nil {
		query += ` AND pattern_type = $2`
		args = append(args, *patternType)
	}
	query += ` ORDER BY pattern_type, confidence DESC, occurrence_count DESC, id`

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var patterns []domain.Pattern
	for rows.Next() {
		var p domain.Pattern
		var raw []byte
		if err := rows.Scan(&p.ID, &p.UserID, &p.Type, &raw, &p.Confidence, &p.OccurrenceCount, &p.LastSeen, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		if p.Data, err = domain.DecodePatternData(p.Type, raw); err != nil {
			return nil, err
		}
		patterns = append(patterns, p)
	}
	return patterns, rows.Err()
}
