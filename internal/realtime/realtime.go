// Package realtime runs the three stateless checks that fire every 30
// minutes between the daily learning cycles: a morning vital-sign check,
// an extended-silence check, and a bathroom-fall-suspicion check.
package realtime

import (
	"fmt"
	"time"

	"github.com/BBBoring2025/annem-guvende/internal/config"
	"github.com/BBBoring2025/annem-guvende/internal/store"
)

// AlertType identifies which check produced an Alert.
type AlertType string

const (
	MorningSilence  AlertType = "morning_silence"
	ExtendedSilence AlertType = "extended_silence"
	FallSuspicion   AlertType = "fall_suspicion"
)

// Alert is one real-time finding. LastEventTime is empty when not
// applicable.
type Alert struct {
	Type          AlertType
	Level         int
	Message       string
	LastEventTime string
}

const isoLayout = "2006-01-02T15:04:05"

// CheckMorningVitalSign fires once no sensor has produced an event since
// local midnight, checked only from morning_check_hour up to (not
// including) awake_end_hour.
func CheckMorningVitalSign(s *store.Store, cfg *config.Config, now time.Time) (*Alert, error) {
	morningHour := cfg.Alerts.MorningCheckHour
	if now.Hour() < morningHour {
		return nil, nil
	}
	if now.Hour() >= cfg.Model.AwakeEndHour {
		return nil, nil
	}

	todayStart := now.Format("2006-01-02") + "T00:00:00"
	nowStr := now.Format(isoLayout)

	count, err := s.TotalEventsSince(todayStart, nowStr)
	if err != nil {
		return nil, fmt.Errorf("realtime: morning vital sign: %w", err)
	}
	if count > 0 {
		return nil, nil
	}

	return &Alert{
		Type:    MorningSilence,
		Level:   2,
		Message: fmt.Sprintf("No sensor activity since midnight (checked at %s).", now.Format("15:04")),
	}, nil
}

// CheckExtendedSilence fires when nothing has happened for
// silence_threshold_hours inside the awake window.
func CheckExtendedSilence(s *store.Store, cfg *config.Config, now time.Time) (*Alert, error) {
	awakeStart, awakeEnd := cfg.Model.AwakeStartHour, cfg.Model.AwakeEndHour
	if now.Hour() < awakeStart || now.Hour() >= awakeEnd {
		return nil, nil
	}

	todayStart := now.Format("2006-01-02") + "T00:00:00"
	lastTS, err := s.LastEventTimestamp(todayStart)
	if err != nil {
		return nil, fmt.Errorf("realtime: extended silence: %w", err)
	}

	if lastTS == "" {
		// No events yet today. The morning check owns this once it is
		// active; avoid a duplicate alarm before that hour arrives.
		if now.Hour() >= cfg.Alerts.MorningCheckHour {
			return nil, nil
		}
		return nil, nil
	}

	lastEvent, err := time.ParseInLocation(isoLayout, lastTS, now.Location())
	if err != nil {
		return nil, nil
	}

	silence := now.Sub(lastEvent)
	threshold := time.Duration(cfg.Alerts.SilenceThresholdHrs) * time.Hour
	if silence < threshold {
		return nil, nil
	}

	return &Alert{
		Type:          ExtendedSilence,
		Level:         1,
		Message:       fmt.Sprintf("No sensor activity for %.1f hours.", silence.Hours()),
		LastEventTime: lastTS,
	}, nil
}

// CheckFallSuspicion fires when last_bathroom_time has been set for at
// least fall_detection_minutes. The ingestion collaborator is responsible
// for setting last_bathroom_time on a bathroom event and clearing it on
// any other channel's event; this check only reads it and, on firing,
// clears it so the alert cannot repeat for the same episode.
func CheckFallSuspicion(s *store.Store, cfg *config.Config, now time.Time) (*Alert, error) {
	if cfg.Alerts.FallDetectionMinutes <= 0 {
		return nil, nil
	}

	raw, err := s.GetState("last_bathroom_time", "")
	if err != nil {
		return nil, fmt.Errorf("realtime: fall suspicion read state: %w", err)
	}
	if raw == "" {
		return nil, nil
	}

	since, err := time.ParseInLocation(isoLayout, raw, now.Location())
	if err != nil {
		return nil, nil
	}

	elapsed := now.Sub(since)
	threshold := time.Duration(cfg.Alerts.FallDetectionMinutes) * time.Minute
	if elapsed < threshold {
		return nil, nil
	}

	if err := s.SetState("last_bathroom_time", ""); err != nil {
		return nil, fmt.Errorf("realtime: fall suspicion clear state: %w", err)
	}

	return &Alert{
		Type:    FallSuspicion,
		Level:   3,
		Message: fmt.Sprintf("Bathroom entered %.0f minutes ago with no further activity since.", elapsed.Minutes()),
	}, nil
}

// RunAll executes every check and returns the (possibly empty) list of
// alerts that fired.
func RunAll(s *store.Store, cfg *config.Config, now time.Time) ([]Alert, error) {
	var alerts []Alert

	if a, err := CheckMorningVitalSign(s, cfg, now); err != nil {
		return nil, err
	} else if a != nil {
		alerts = append(alerts, *a)
	}

	if a, err := CheckExtendedSilence(s, cfg, now); err != nil {
		return nil, err
	} else if a != nil {
		alerts = append(alerts, *a)
	}

	if a, err := CheckFallSuspicion(s, cfg, now); err != nil {
		return nil, err
	} else if a != nil {
		alerts = append(alerts, *a)
	}

	return alerts, nil
}
