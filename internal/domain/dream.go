package domain

import (
	"encoding/json"
	"math"
	"time"

	"github.com/google/uuid"
)

type AnalysisStatus string

const (
	AnalysisPending AnalysisStatus = "pending"
	AnalysisDone    AnalysisStatus = "done"
	AnalysisFailed  AnalysisStatus = "failed"
)

func ValidAnalysisStatus(s string) bool {
	switch AnalysisStatus(s) {
	case AnalysisPending, AnalysisDone, AnalysisFailed:
		return true
	}
	return false
}

// EmotionScores maps an emotion name to its intensity in [0,1].
// Analysis payloads come from a generative model, so decoding never fails:
// a payload that is not a JSON object yields an empty mapping and
// non-numeric or non-finite entries are dropped.
type EmotionScores map[string]float64

func (e *EmotionScores) UnmarshalJSON(data []byte) error {
	scores := EmotionScores{}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		*e = scores
		return nil
	}
	for name, v := range raw {
		var f *float64
		if err := json.Unmarshal(v, &f); err != nil || f == nil {
			continue
		}
		if math.IsNaN(*f) || math.IsInf(*f, 0) {
			continue
		}
		scores[name] = *f
	}
	*e = scores
	return nil
}

type DreamAnalysis struct {
	Themes      []string       `json:"themes"`
	Emotions    EmotionScores  `json:"emotions"`
	IsNightmare bool           `json:"is_nightmare"`
	IsLucid     bool           `json:"is_lucid"`
	Vividness   *int           `json:"vividness,omitempty"`
	Status      AnalysisStatus `json:"analysis_status"`
}

type Dream struct {
	ID          uuid.UUID      `json:"id"`
	UserID      uuid.UUID      `json:"user_id"`
	Content     string         `json:"content"`
	RecordedAt  time.Time      `json:"recorded_at"`
	StressLevel *int           `json:"stress_level,omitempty"`
	MoodRating  *int           `json:"mood_rating,omitempty"`
	Analysis    *DreamAnalysis `json:"analysis,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// IsAnalyzed reports whether the dream carries a completed analysis.
// Only analyzed dreams feed pattern detection and statistics.
func (d *Dream) IsAnalyzed() bool {
	return d.Analysis != nil && d.Analysis.Status == AnalysisDone
}

// ValidScale reports whether v lies on the 1-10 self-report scale.
func ValidScale(v int) bool {
	return v >= 1 && v <= 10
}
