package slotagg

import (
	"testing"
	"time"

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

func TestSlot_Boundaries(t *testing.T) {
	cases := []struct {
		time string
		want int
	}{
		{"2026-01-01T00:00:00", 0},
		{"2026-01-01T06:00:00", 24},
		{"2026-01-01T12:00:00", 48},
		{"2026-01-01T23:45:00", 95},
		{"2026-01-01T10:37:00", 42},
	}
	for _, tc := range cases {
		dt, err := time.Parse("2006-01-02T15:04:05", tc.time)
		if err != nil {
			t.Fatalf("parse %s: %v", tc.time, err)
		}
		if got := Slot(dt); got != tc.want {
			t.Errorf("Slot(%s) = %d, want %d", tc.time, got, tc.want)
		}
	}
}

func TestTimeRange_SnapsToQuarterHour(t *testing.T) {
	dt, _ := time.Parse("2006-01-02T15:04:05", "2026-02-11T10:37:00")
	start, end := TimeRange(dt)
	if got := start.Format("15:04:05"); got != "10:30:00" {
		t.Errorf("start = %s, want 10:30:00", got)
	}
	if got := end.Format("15:04:05"); got != "10:45:00" {
		t.Errorf("end = %s, want 10:45:00", got)
	}
}

func TestAggregateCurrentSlot_CountsEventsInWindow(t *testing.T) {
	s := openTestStore(t)
	defer s.Close()

	if err := s.InsertEvent(store.SensorEvent{Timestamp: "2026-01-01T10:31:00", SensorID: "pir", Channel: "presence"}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := s.InsertEvent(store.SensorEvent{Timestamp: "2026-01-01T10:44:00", SensorID: "pir", Channel: "presence"}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	// Outside the slot window, must not be counted.
	if err := s.InsertEvent(store.SensorEvent{Timestamp: "2026-01-01T10:46:00", SensorID: "pir", Channel: "presence"}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	now, _ := time.Parse("2006-01-02T15:04:05", "2026-01-01T10:40:00")
	if err := AggregateCurrentSlot(s, []string{"presence", "door"}, now); err != nil {
		t.Fatalf("aggregate: %v", err)
	}

	day, err := s.LoadDaySlots("2026-01-01", []string{"presence", "door"})
	if err != nil {
		t.Fatalf("load day slots: %v", err)
	}
	if day["presence"][42] != 1 {
		t.Fatalf("presence slot 42 active flag = %d, want 1", day["presence"][42])
	}
	if day["door"][42] != 0 {
		t.Fatalf("door slot 42 active flag = %d, want 0 (no events, but channel row still present)", day["door"][42])
	}
}

func TestFillMissingSlots_BackfillsAllSlotsWithoutOverwriting(t *testing.T) {
	s := openTestStore(t)
	defer s.Close()

	if err := s.UpsertSlot("2026-01-01", 10, "presence", true, 3); err != nil {
		t.Fatalf("seed slot: %v", err)
	}

	if err := FillMissingSlots(s, "2026-01-01", []string{"presence"}); err != nil {
		t.Fatalf("fill missing slots: %v", err)
	}

	day, err := s.LoadDaySlots("2026-01-01", []string{"presence"})
	if err != nil {
		t.Fatalf("load day slots: %v", err)
	}
	if len(day["presence"]) != store.SlotsPerDay {
		t.Fatalf("len = %d, want %d", len(day["presence"]), store.SlotsPerDay)
	}
	if day["presence"][10] != 1 {
		t.Fatalf("seeded slot 10 was overwritten: %d", day["presence"][10])
	}
	if day["presence"][11] != 0 {
		t.Fatalf("backfilled slot 11 should be inactive, got %d", day["presence"][11])
	}
}
