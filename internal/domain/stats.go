package domain

import "time"

type ThemeFrequency struct {
	Theme string `json:"theme"`
	Count int    `json:"count"`
}

type EmotionAverage struct {
	Emotion string  `json:"emotion"`
	Average float64 `json:"average"`
	Samples int     `json:"samples"`
}

type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type MoodPoint struct {
	Date   string  `json:"date"`
	Mood   float64 `json:"mood"`
	Stress float64 `json:"stress"`
}

// StatsSnapshot is recomputed on demand and only ever cached, never stored.
type StatsSnapshot struct {
	UserID         string           `json:"user_id"`
	TotalDreams    int              `json:"total_dreams"`
	AnalyzedDreams int              `json:"analyzed_dreams"`
	Nightmares     int              `json:"nightmares"`
	LucidDreams    int              `json:"lucid_dreams"`
	AvgVividness   float64          `json:"avg_vividness"`
	TopThemes      []ThemeFrequency `json:"top_themes"`
	TopEmotions    []EmotionAverage `json:"top_emotions"`
	DailyActivity  []DailyCount     `json:"daily_activity"`
	MoodTrend      []MoodPoint      `json:"mood_trend"`
	GeneratedAt    time.Time        `json:"generated_at"`
}
