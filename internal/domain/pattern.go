package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type PatternType string

const (
	PatternRecurringTheme PatternType = "recurring_theme"
	PatternTemporal       PatternType = "temporal"
	PatternCorrelation    PatternType = "correlation"
)

// CorrelationKeyStress is the fixed key of the stress/nightmare correlation.
const CorrelationKeyStress = "stress"

func ValidPatternType(t string) bool {
	switch PatternType(t) {
	case PatternRecurringTheme, PatternTemporal, PatternCorrelation:
		return true
	}
	return false
}

// idSegment is the short form of the type used inside pattern IDs.
func (t PatternType) idSegment() string {
	if t == PatternRecurringTheme {
		return "theme"
	}
	return string(t)
}

// PatternID builds the deterministic key {userID}-{type}-{key}. Repeated
// detection runs resolve to the same ID, so persistence is an upsert.
func PatternID(userID uuid.UUID, t PatternType, key string) string {
	return fmt.Sprintf("%s-%s-%s", userID, t.idSegment(), key)
}

// PatternData is the per-type payload of a Pattern. The set of
// implementations is closed: ThemeData, TemporalData and CorrelationData.
type PatternData interface {
	PatternType() PatternType
	// Key identifies the payload within its type for the user.
	Key() string
}

type ThemeData struct {
	Theme string `json:"theme"`
}

func (ThemeData) PatternType() PatternType { return PatternRecurringTheme }
func (d ThemeData) Key() string            { return d.Theme }

type TemporalData struct {
	Day           string  `json:"day"`
	NightmareRate float64 `json:"nightmare_rate"`
}

func (TemporalData) PatternType() PatternType { return PatternTemporal }
func (d TemporalData) Key() string            { return d.Day }

type CorrelationData struct {
	Correlation float64 `json:"correlation"`
	Message     string  `json:"message"`
}

func (CorrelationData) PatternType() PatternType { return PatternCorrelation }
func (CorrelationData) Key() string              { return CorrelationKeyStress }

// DecodePatternData decodes a stored payload into the variant for t.
func DecodePatternData(t PatternType, raw []byte) (PatternData, error) {
	switch t {
	case PatternRecurringTheme:
		var d ThemeData
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("decode theme pattern: %w", err)
		}
		return d, nil
	case PatternTemporal:
		var d TemporalData
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("decode temporal pattern: %w", err)
		}
		return d, nil
	case PatternCorrelation:
		var d CorrelationData
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("decode correlation pattern: %w", err)
		}
		return d, nil
	default:
		return nil, fmt.Errorf("unknown pattern type %q", t)
	}
}

type Pattern struct {
	ID              string      `json:"id"`
	UserID          uuid.UUID   `json:"user_id"`
	Type            PatternType `json:"pattern_type"`
	Data            PatternData `json:"pattern_data"`
	Confidence      float64     `json:"confidence"`
	OccurrenceCount int         `json:"occurrence_count"`
	LastSeen        time.Time   `json:"last_seen"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// NewPattern derives the type and deterministic ID from data.
func NewPattern(userID uuid.UUID, data PatternData, confidence float64, occurrences int, seen time.Time) *Pattern {
	t := data.PatternType()
	return &Pattern{
		ID:              PatternID(userID, t, data.Key()),
		UserID:          userID,
		Type:            t,
		Data:            data,
		Confidence:      confidence,
		OccurrenceCount: occurrences,
		LastSeen:        seen,
	}
}
