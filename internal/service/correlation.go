package service

import (
	"fmt"
	"math"

	"github.com/Harshitk-cp/dreamlog/internal/domain"
)

type StressCorrelation struct {
	Correlation     float64 `json:"correlation"`
	HighStressCount int     `json:"high_stress_count"`
	Nightmares      int     `json:"nightmares"`
	Message         string  `json:"message"`
}

// DetectStressCorrelation measures how often dreams logged with stress above
// policy.StressHighLevel were nightmares. It returns nil when fewer than
// policy.StressMinSamples such dreams exist or the rate does not exceed
// policy.StressMinCorrelation.
func DetectStressCorrelation(dreams []domain.Dream, policy domain.PatternPolicy) *StressCorrelation {
	var high, nightmares int
	for _, d := range dreams {
		if !d.IsAnalyzed() || d.StressLevel == nil || *d.StressLevel <= policy.StressHighLevel {
			continue
		}
		high++
		if d.Analysis.IsNightmare {
			nightmares++
		}
	}

	if high == 0 || high < policy.StressMinSamples {
		return nil
	}

	correlation := float64(nightmares) / float64(high)
	if correlation <= policy.StressMinCorrelation {
		return nil
	}

	return &StressCorrelation{
		Correlation:     correlation,
		HighStressCount: high,
		Nightmares:      nightmares,
		Message: fmt.Sprintf("%d%% of your high-stress nights led to nightmares",
			int(math.Round(correlation*100))),
	}
}
