package realtime

import (
	"testing"
	"time"

	"github.com/BBBoring2025/annem-guvende/internal/config"
	"github.com/BBBoring2025/annem-guvende/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return s
}

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse("2006-01-02T15:04:05", s)
	if err != nil {
		t.Fatalf("parse time %s: %v", s, err)
	}
	return ts
}

func TestCheckMorningVitalSign_FiresWhenSilentAfterHour(t *testing.T) {
	s := openTestStore(t)
	defer s.Close()
	cfg := config.Default()

	alert, err := CheckMorningVitalSign(s, cfg, mustTime(t, "2026-01-01T11:05:00"))
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if alert == nil || alert.Type != MorningSilence || alert.Level != 2 {
		t.Fatalf("alert = %+v, want morning_silence level 2", alert)
	}
}

func TestCheckMorningVitalSign_SilentBeforeHour(t *testing.T) {
	s := openTestStore(t)
	defer s.Close()
	cfg := config.Default()

	alert, err := CheckMorningVitalSign(s, cfg, mustTime(t, "2026-01-01T09:00:00"))
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if alert != nil {
		t.Fatalf("expected no alert before morning_check_hour, got %+v", alert)
	}
}

func TestCheckMorningVitalSign_NoAlertWhenEventsExist(t *testing.T) {
	s := openTestStore(t)
	defer s.Close()
	cfg := config.Default()
	if err := s.InsertEvent(store.SensorEvent{Timestamp: "2026-01-01T08:00:00", SensorID: "pir", Channel: "presence"}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	alert, err := CheckMorningVitalSign(s, cfg, mustTime(t, "2026-01-01T11:05:00"))
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if alert != nil {
		t.Fatalf("expected no alert once an event exists, got %+v", alert)
	}
}

func TestCheckExtendedSilence_FiresPastThreshold(t *testing.T) {
	s := openTestStore(t)
	defer s.Close()
	cfg := config.Default()
	if err := s.InsertEvent(store.SensorEvent{Timestamp: "2026-01-01T06:00:00", SensorID: "pir", Channel: "presence"}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	alert, err := CheckExtendedSilence(s, cfg, mustTime(t, "2026-01-01T09:30:00"))
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if alert == nil || alert.Type != ExtendedSilence || alert.Level != 1 {
		t.Fatalf("alert = %+v, want extended_silence level 1", alert)
	}
}

func TestCheckExtendedSilence_NoneOutsideAwakeWindow(t *testing.T) {
	s := openTestStore(t)
	defer s.Close()
	cfg := config.Default()

	alert, err := CheckExtendedSilence(s, cfg, mustTime(t, "2026-01-01T02:00:00"))
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if alert != nil {
		t.Fatalf("expected no alert outside awake window, got %+v", alert)
	}
}

func TestCheckFallSuspicion_FiresAfterThresholdAndClearsState(t *testing.T) {
	s := openTestStore(t)
	defer s.Close()
	cfg := config.Default()
	cfg.Alerts.FallDetectionMinutes = 45

	if err := s.SetState("last_bathroom_time", "2026-01-01T10:00:00"); err != nil {
		t.Fatalf("set state: %v", err)
	}

	alert, err := CheckFallSuspicion(s, cfg, mustTime(t, "2026-01-01T10:50:00"))
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if alert == nil || alert.Type != FallSuspicion || alert.Level != 3 {
		t.Fatalf("alert = %+v, want fall_suspicion level 3", alert)
	}

	raw, err := s.GetState("last_bathroom_time", "unset")
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	if raw != "" {
		t.Fatalf("expected last_bathroom_time cleared after firing, got %q", raw)
	}
}

func TestCheckFallSuspicion_DoesNotFireBeforeThreshold(t *testing.T) {
	s := openTestStore(t)
	defer s.Close()
	cfg := config.Default()
	cfg.Alerts.FallDetectionMinutes = 45

	if err := s.SetState("last_bathroom_time", "2026-01-01T10:00:00"); err != nil {
		t.Fatalf("set state: %v", err)
	}

	alert, err := CheckFallSuspicion(s, cfg, mustTime(t, "2026-01-01T10:20:00"))
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if alert != nil {
		t.Fatalf("expected no alert before threshold elapses, got %+v", alert)
	}
}

func TestCheckFallSuspicion_DisabledWhenZero(t *testing.T) {
	s := openTestStore(t)
	defer s.Close()
	cfg := config.Default()
	cfg.Alerts.FallDetectionMinutes = 0
	if err := s.SetState("last_bathroom_time", "2020-01-01T00:00:00"); err != nil {
		t.Fatalf("set state: %v", err)
	}

	alert, err := CheckFallSuspicion(s, cfg, mustTime(t, "2026-01-01T10:00:00"))
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if alert != nil {
		t.Fatalf("expected disabled fall check to never fire, got %+v", alert)
	}
}
