// Package trend computes the weekly long-horizon fragility report: a
// plain ordinary-least-squares slope per channel over the last N days,
// with no external statistics library (none in the wider stack either).
package trend

import (
	"fmt"
	"time"

	"github.com/BBBoring2025/annem-guvende/internal/store"
)

// Slope runs simple OLS regression against x = 0..n-1, returning the
// fitted slope of values. Positive means increasing, negative
// decreasing. Returns 0 for fewer than two points or a degenerate
// (all-equal-x) series, which cannot happen here since x is fixed.
func Slope(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0.0
	}

	xMean := float64(n-1) / 2.0
	var yMean float64
	for _, v := range values {
		yMean += v
	}
	yMean /= float64(n)

	var numerator, denominator float64
	for i, v := range values {
		dx := float64(i) - xMean
		numerator += dx * (v - yMean)
		denominator += dx * dx
	}
	if denominator == 0 {
		return 0.0
	}
	return numerator / denominator
}

// DailyCounts returns exactly days values in chronological order for
// channel, ending today, zero-filling any day with no events so the
// regression series has no gaps.
func DailyCounts(s *store.Store, channel string, days int, now time.Time) ([]float64, error) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	firstDay := today.AddDate(0, 0, -(days - 1))

	counts, err := s.DailyEventCounts(channel, firstDay.Format("2006-01-02")+"T00:00:00")
	if err != nil {
		return nil, fmt.Errorf("trend: daily counts: %w", err)
	}

	values := make([]float64, days)
	for i := 0; i < days; i++ {
		date := firstDay.AddDate(0, 0, i).Format("2006-01-02")
		values[i] = float64(counts[date])
	}
	return values, nil
}

// ChannelTrend returns the slope for channel over the trailing window,
// or (0, false) when the window (days) is shorter than minDays. The
// window is zero-filled, so how many days actually hold events is not
// checked.
func ChannelTrend(s *store.Store, channel string, days, minDays int, now time.Time) (float64, bool, error) {
	values, err := DailyCounts(s, channel, days, now)
	if err != nil {
		return 0, false, err
	}
	if len(values) < minDays {
		return 0, false, nil
	}
	return Slope(values), true, nil
}

// Report is the per-channel slope map produced by AnalyzeAll, nil for
// every channel when the window is shorter than minDays.
type Report map[string]*float64

// AnalyzeAll computes the trend for every channel, used by the weekly
// fragility job.
func AnalyzeAll(s *store.Store, channels []string, days, minDays int, now time.Time) (Report, error) {
	report := make(Report, len(channels))
	for _, ch := range channels {
		slope, ok, err := ChannelTrend(s, ch, days, minDays, now)
		if err != nil {
			return nil, err
		}
		if !ok {
			report[ch] = nil
			continue
		}
		v := slope
		report[ch] = &v
	}
	return report, nil
}
