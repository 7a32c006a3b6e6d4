package alerting

import (
	"fmt"
	"sort"
	"strings"
)

// channelLabels maps a semantic channel to the label used in rendered
// messages.
var channelLabels = map[string]string{
	"presence": "Motion sensor",
	"fridge":   "Fridge",
	"bathroom": "Bathroom",
	"door":     "Door",
}

func channelLabel(channel string) string {
	if label, ok := channelLabels[channel]; ok {
		return label
	}
	return channel
}

func statusLine(alertLevel int) string {
	switch alertLevel {
	case 0:
		return "Everything looks normal."
	case 1:
		return "A mild deviation was detected."
	case 2:
		return "A notable anomaly was detected."
	default:
		return "A serious anomaly was detected!"
	}
}

// RenderDailySummary builds the compact 22:00 digest.
func RenderDailySummary(date string, compositeZ float64, alertLevel, trainDays int, ciWidth float64, eventCounts map[string]int) string {
	total := 0
	channels := make([]string, 0, len(eventCounts))
	for ch, n := range eventCounts {
		total += n
		channels = append(channels, ch)
	}
	sort.Strings(channels)

	var lines strings.Builder
	for _, ch := range channels {
		fmt.Fprintf(&lines, "  - %s: %d\n", channelLabel(ch), eventCounts[ch])
	}

	return fmt.Sprintf(
		"Daily Summary - %s\n\n%s\n\nAnomaly score: %.1f\nConfidence interval: +-%.0f%%\nTotal events: %d\n%s\nTraining day: %d",
		date, statusLine(alertLevel), compositeZ, ciWidth*100.0, total, lines.String(), trainDays,
	)
}

// RenderAlert builds a tiered anomaly alert. Returns "" for level <= 0.
func RenderAlert(level int, date string, compositeZ float64, explanation string) string {
	switch level {
	case 1:
		return fmt.Sprintf(
			"Notice - %s\n\nToday's activity pattern differs from normal (score: %.1f).\n\n%s\n\nThere is likely nothing to worry about, but keeping an eye on things is recommended.",
			date, compositeZ, explanation,
		)
	case 2:
		return fmt.Sprintf(
			"Important Warning - %s\n\nA clear activity anomaly was detected (score: %.1f).\n\n%s\n\nPlease call to check in.",
			date, compositeZ, explanation,
		)
	case 3:
		return fmt.Sprintf(
			"EMERGENCY - %s\n\nA serious activity anomaly was detected (score: %.1f)!\n\n%s\n\nContact immediately, or ask a neighbour or relative to check in person!",
			date, compositeZ, explanation,
		)
	default:
		return ""
	}
}

// RenderMorningSilence builds the once-or-twice-per-day morning check.
func RenderMorningSilence(checkTime string) string {
	return fmt.Sprintf(
		"Morning Check\n\nAs of %s no sensor has reported any activity today.\n\nPlease call to check in.",
		checkTime,
	)
}

// RenderExtendedSilence builds the general-rate-limited extended silence
// alert.
func RenderExtendedSilence(message string) string {
	return fmt.Sprintf("Extended Silence\n\n%s\n\nPlease check in.", message)
}

// RenderLearningProgress builds the day-7 milestone notice.
func RenderLearningProgress(date string, trainDays int, ciWidth float64, extra string) string {
	return fmt.Sprintf(
		"Learning Update - %s\n\nThe system is on training day %d. Confidence interval: +-%.0f%%\n\n%s",
		date, trainDays, ciWidth*100.0, extra,
	)
}

// RenderLearningComplete builds the day-14 milestone notice.
func RenderLearningComplete(confidence float64) string {
	return fmt.Sprintf(
		"System Ready!\n\nThe 14-day learning period is complete. Confidence level: %.0f%%\n\nYou will now receive automatic notifications for abnormal activity.",
		confidence,
	)
}

// RenderBatteryWarning builds the low-battery sensor notice.
func RenderBatteryWarning(sensorID string, battery int) string {
	return fmt.Sprintf(
		"Low Battery Warning\n\nSensor %s battery is critically low: %d%%\n\nPlease replace the battery soon.",
		sensorID, battery,
	)
}

// RenderTrendLine builds one bullet of the weekly fragility report for
// a single channel's slope.
func RenderTrendLine(channel string, days int, slope float64, rising bool) string {
	if rising {
		return fmt.Sprintf(
			"Rising trend in %s activity over the last %d days (slope: +%.2f). This can be an early sign of a urinary or digestive issue.",
			strings.ToLower(channelLabel(channel)), days, slope,
		)
	}
	return fmt.Sprintf(
		"Falling trend in overall household activity over the last %d days (slope: %.2f). This can be an early sign of fatigue or low motivation.",
		days, slope,
	)
}

// RenderTrendReport assembles the weekly fragility digest from its
// bullet lines. Returns "" when lines is empty.
func RenderTrendReport(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return "Weekly Fragility Report\n\n" + strings.Join(lines, "\n\n")
}

// RenderEscalation builds the emergency-contact fan-out message for an
// unacknowledged level-3 alert.
func RenderEscalation(timeoutMinutes int, originalMessage string) string {
	return fmt.Sprintf(
		"EMERGENCY ESCALATION\n\nThe primary recipient has not responded to an emergency alert for %d minutes!\n\nOriginal alert:\n%s\n\nPlease check on them in person.",
		timeoutMinutes, originalMessage,
	)
}
