package service

import (
	"math"
	"sort"

	"github.com/Harshitk-cp/dreamlog/internal/domain"
)

// AggregateEmotions averages each emotion over the analyzed dreams that
// report it. A dream without an emotion contributes nothing to that
// emotion's mean. Emotions are returned in first-seen order.
func AggregateEmotions(dreams []domain.Dream) []domain.EmotionAverage {
	index := make(map[string]int)
	var sums []float64
	var out []domain.EmotionAverage

	for _, d := range dreams {
		if !d.IsAnalyzed() {
			continue
		}
		// Map order is random; visit names sorted to keep first-seen order stable.
		names := make([]string, 0, len(d.Analysis.Emotions))
		for name := range d.Analysis.Emotions {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			v := d.Analysis.Emotions[name]
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			i, ok := index[name]
			if !ok {
				i = len(out)
				index[name] = i
				out = append(out, domain.EmotionAverage{Emotion: name})
				sums = append(sums, 0)
			}
			sums[i] += v
			out[i].Samples++
		}
	}

	for i := range out {
		out[i].Average = sums[i] / float64(out[i].Samples)
	}
	return out
}

// TopEmotions returns up to n emotions by descending average.
func TopEmotions(averages []domain.EmotionAverage, n int) []domain.EmotionAverage {
	sorted := make([]domain.EmotionAverage, len(averages))
	copy(sorted, averages)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Average > sorted[j].Average
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
