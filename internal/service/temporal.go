package service

import (
	"time"

	"github.com/Harshitk-cp/dreamlog/internal/domain"
)

type DayNightmareRate struct {
	Day           string       `json:"day"`
	Weekday       time.Weekday `json:"weekday"`
	NightmareRate float64      `json:"nightmare_rate"`
	DreamCount    int          `json:"dream_count"`
	Nightmares    int          `json:"nightmares"`
}

// DetectTemporalPatterns buckets analyzed dreams by weekday (Sunday=0) in loc
// and reports the nightmare rate of every bucket holding at least minBucket
// dreams. Results are ordered Sunday through Saturday.
func DetectTemporalPatterns(dreams []domain.Dream, loc *time.Location, minBucket int) []DayNightmareRate {
	if loc == nil {
		loc = time.UTC
	}

	var counts, nightmares [7]int
	for _, d := range dreams {
		if !d.IsAnalyzed() {
			continue
		}
		day := d.RecordedAt.In(loc).Weekday()
		counts[day]++
		if d.Analysis.IsNightmare {
			nightmares[day]++
		}
	}

	out := []DayNightmareRate{}
	for day := time.Sunday; day <= time.Saturday; day++ {
		if counts[day] == 0 || counts[day] < minBucket {
			continue
		}
		out = append(out, DayNightmareRate{
			Day:           day.String(),
			Weekday:       day,
			NightmareRate: float64(nightmares[day]) / float64(counts[day]),
			DreamCount:    counts[day],
			Nightmares:    nightmares[day],
		})
	}
	return out
}
