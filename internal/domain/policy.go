package domain

// PatternPolicy holds the thresholds that decide which detections become
// persisted patterns.
type PatternPolicy struct {
	// HistoryLimit caps how many recent analyzed dreams a run scans.
	HistoryLimit int `json:"history_limit"`
	// MinDreams is the number of analyzed dreams below which a run writes nothing.
	MinDreams int `json:"min_dreams"`

	ThemeMinOccurrences int `json:"theme_min_occurrences"`
	ThemeMaxPatterns    int `json:"theme_max_patterns"`

	TemporalMinBucket int `json:"temporal_min_bucket"`
	// TemporalNightmareRate must be exceeded for a weekday to be persisted.
	TemporalNightmareRate float64 `json:"temporal_nightmare_rate"`

	// StressHighLevel must be exceeded for a dream to count as high stress.
	StressHighLevel      int     `json:"stress_high_level"`
	StressMinSamples     int     `json:"stress_min_samples"`
	StressMinCorrelation float64 `json:"stress_min_correlation"`
}

func DefaultPatternPolicy() PatternPolicy {
	return PatternPolicy{
		HistoryLimit:          100,
		MinDreams:             3,
		ThemeMinOccurrences:   2,
		ThemeMaxPatterns:      10,
		TemporalMinBucket:     2,
		TemporalNightmareRate: 0.4,
		StressHighLevel:       7,
		StressMinSamples:      3,
		StressMinCorrelation:  0.5,
	}
}
