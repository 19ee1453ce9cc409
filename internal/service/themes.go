package service

import (
	"sort"

	"github.com/Harshitk-cp/dreamlog/internal/domain"
)

type RecurringTheme struct {
	Theme      string  `json:"theme"`
	Count      int     `json:"count"`
	Confidence float64 `json:"confidence"`
}

// analyzedOnly drops dreams without a completed analysis.
func analyzedOnly(dreams []domain.Dream) []domain.Dream {
	out := make([]domain.Dream, 0, len(dreams))
	for _, d := range dreams {
		if d.IsAnalyzed() {
			out = append(out, d)
		}
	}
	return out
}

// tallyThemes counts exact theme strings across analyzed dreams. Themes are
// returned in first-seen order so later stable sorts are reproducible.
func tallyThemes(dreams []domain.Dream) []domain.ThemeFrequency {
	index := make(map[string]int)
	var tally []domain.ThemeFrequency
	for _, d := range dreams {
		if !d.IsAnalyzed() {
			continue
		}
		for _, theme := range d.Analysis.Themes {
			if i, ok := index[theme]; ok {
				tally[i].Count++
				continue
			}
			index[theme] = len(tally)
			tally = append(tally, domain.ThemeFrequency{Theme: theme, Count: 1})
		}
	}
	return tally
}

func sortByCount(tally []domain.ThemeFrequency) {
	sort.SliceStable(tally, func(i, j int) bool {
		return tally[i].Count > tally[j].Count
	})
}

// DetectRecurringThemes ranks themes seen at least minOccurrences times,
// most frequent first. Confidence is the share of input dreams carrying the theme.
func DetectRecurringThemes(dreams []domain.Dream, minOccurrences int) []RecurringTheme {
	analyzed := analyzedOnly(dreams)
	tally := tallyThemes(analyzed)
	sortByCount(tally)

	out := []RecurringTheme{}
	for _, t := range tally {
		if t.Count < minOccurrences {
			continue
		}
		out = append(out, RecurringTheme{
			Theme:      t.Theme,
			Count:      t.Count,
			Confidence: Confidence(t.Count, len(analyzed)),
		})
	}
	return out
}
