package alerting

import (
	"fmt"
	"strings"

	"github.com/BBBoring2025/annem-guvende/internal/store"
)

const (
	minHistoryDays = 3
	ratioThreshold = 1.5
	lowCountZ      = -2.0
)

// GenerateExplanation builds the human-readable cause behind an alert on
// date, comparing per-channel NLL against the historical normal-day
// average and flagging abnormally low total activity.
func GenerateExplanation(s *store.Store, date string) (string, error) {
	detail, err := s.ScoreDetailForDate(date)
	if err != nil {
		return "", fmt.Errorf("alerting: explanation score detail: %w", err)
	}
	if detail == nil {
		return "No detailed information is available.", nil
	}

	history, err := s.PerChannelHistoryMeans(date, minHistoryDays)
	if err != nil {
		return "", fmt.Errorf("alerting: explanation history: %w", err)
	}
	if history == nil {
		return "Not enough history yet for a detailed analysis.", nil
	}

	type channelNLL struct {
		channel string
		today   float64
		mean    float64
	}
	channels := []channelNLL{
		{"presence", detail.NLLPresence, history.MeanPresence},
		{"fridge", detail.NLLFridge, history.MeanFridge},
		{"bathroom", detail.NLLBathroom, history.MeanBathroom},
		{"door", detail.NLLDoor, history.MeanDoor},
	}

	var lines []string
	for _, c := range channels {
		if c.mean <= 0 {
			continue
		}
		if c.today/c.mean > ratioThreshold {
			lines = append(lines, fmt.Sprintf("%s activity is lower than expected.", channelLabel(c.channel)))
		}
	}

	if detail.CountZ < lowCountZ {
		lines = append(lines, fmt.Sprintf(
			"Total activity is very low (observed %d, expected ~%.0f).",
			detail.ObservedCount, detail.ExpectedCount,
		))
	}

	if len(lines) == 0 {
		return "General activity pattern differs from normal.", nil
	}
	return strings.Join(lines, "\n"), nil
}
