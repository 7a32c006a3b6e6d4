// Package scorer turns yesterday's raw NLL/count metrics into a
// composite anomaly z-score and a tiered alert level, comparing against a
// rolling baseline of recent normal days.
package scorer

import (
	"math"

	"github.com/BBBoring2025/annem-guvende/internal/store"
)

// HistoryStats summarizes the NLL distribution of recent normal days
// (alert_level=0, is_learning=0). Ready is false when there is not yet
// enough history to compare against, in which case callers must treat
// nll_z as zero rather than divide by a meaningless std.
type HistoryStats struct {
	Ready   bool
	MeanNLL float64
	StdNLL  float64
	NDays   int
}

// NormalStats loads up to maxDays recent normal-day NLL totals
// (excluding excludeDate) and computes their mean/stdev. Returns
// Ready=false if fewer than minDays qualify.
func NormalStats(s *store.Store, maxDays, minDays int, excludeDate string) (HistoryStats, error) {
	nlls, err := s.NormalDayNLLs(maxDays, excludeDate)
	if err != nil {
		return HistoryStats{}, err
	}
	if len(nlls) < minDays {
		return HistoryStats{Ready: false}, nil
	}

	mean := 0.0
	for _, v := range nlls {
		mean += v
	}
	mean /= float64(len(nlls))

	std := 1.0
	if len(nlls) > 1 {
		var sumSq float64
		for _, v := range nlls {
			d := v - mean
			sumSq += d * d
		}
		std = math.Sqrt(sumSq / float64(len(nlls)-1))
	}
	if std == 0 {
		std = 1.0
	}

	return HistoryStats{Ready: true, MeanNLL: mean, StdNLL: std, NDays: len(nlls)}, nil
}
