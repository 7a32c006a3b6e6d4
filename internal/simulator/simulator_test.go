package simulator

import (
	"testing"

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

func TestGenerateNormalDay_StoresEveryGeneratedEvent(t *testing.T) {
	s := openTestStore(t)
	defer s.Close()

	sim := New(s, 42)
	count, err := sim.GenerateNormalDay("2026-02-01")
	if err != nil {
		t.Fatalf("generate normal day: %v", err)
	}
	if count == 0 {
		t.Fatalf("expected at least one event")
	}

	counts, err := s.CountEventsInRange("2026-02-01T00:00:00", "2026-02-02T00:00:00")
	if err != nil {
		t.Fatalf("count events: %v", err)
	}
	total := 0
	for _, n := range counts {
		total += n
	}
	if total != count {
		t.Fatalf("stored %d events, want %d", total, count)
	}
	if counts["presence"] == 0 {
		t.Fatalf("expected presence events on a normal day")
	}
}

func TestGenerateNormalDay_IsDeterministicForAFixedSeed(t *testing.T) {
	s1 := openTestStore(t)
	defer s1.Close()
	s2 := openTestStore(t)
	defer s2.Close()

	count1, err := New(s1, 7).GenerateNormalDay("2026-02-01")
	if err != nil {
		t.Fatalf("generate 1: %v", err)
	}
	count2, err := New(s2, 7).GenerateNormalDay("2026-02-01")
	if err != nil {
		t.Fatalf("generate 2: %v", err)
	}
	if count1 != count2 {
		t.Fatalf("same seed produced different event counts: %d vs %d", count1, count2)
	}
}

func TestGenerateAnomalyDay_RejectsUnknownType(t *testing.T) {
	s := openTestStore(t)
	defer s.Close()

	sim := New(s, 1)
	if _, err := sim.GenerateAnomalyDay("2026-02-01", AnomalyType("bogus")); err == nil {
		t.Fatalf("expected an error for an invalid anomaly type")
	}
}

func TestGenerateAnomalyDay_NoFridgeOmitsFridgeChannel(t *testing.T) {
	s := openTestStore(t)
	defer s.Close()

	sim := New(s, 3)
	if _, err := sim.GenerateAnomalyDay("2026-02-01", NoFridge); err != nil {
		t.Fatalf("generate anomaly day: %v", err)
	}
	counts, err := s.CountEventsInRange("2026-02-01T00:00:00", "2026-02-02T00:00:00")
	if err != nil {
		t.Fatalf("count events: %v", err)
	}
	if counts["fridge"] != 0 {
		t.Fatalf("expected zero fridge events, got %d", counts["fridge"])
	}
	if counts["presence"] == 0 {
		t.Fatalf("expected other channels to remain populated")
	}
}

func TestGenerateAnomalyDay_LateWakeHasNoEventsBeforeEleven(t *testing.T) {
	s := openTestStore(t)
	defer s.Close()

	sim := New(s, 9)
	if _, err := sim.GenerateAnomalyDay("2026-02-01", LateWake); err != nil {
		t.Fatalf("generate anomaly day: %v", err)
	}
	before, err := s.CountEventsInRange("2026-02-01T00:00:00", "2026-02-01T11:00:00")
	if err != nil {
		t.Fatalf("count events: %v", err)
	}
	for ch, n := range before {
		if n != 0 {
			t.Fatalf("expected no events before 11:00, found %d on channel %s", n, ch)
		}
	}
}

func TestRunPilotSimulation_InjectsAnomalyOnDayEighteen(t *testing.T) {
	s := openTestStore(t)
	defer s.Close()

	sim := New(s, 11)
	result, err := sim.RunPilotSimulation("2026-01-01", 21)
	if err != nil {
		t.Fatalf("run pilot simulation: %v", err)
	}
	if len(result.Dates) != 21 {
		t.Fatalf("dates len = %d, want 21", len(result.Dates))
	}
	if result.AnomalyDate != result.Dates[pilotAnomalyDayIndex] {
		t.Fatalf("anomaly date = %s, want day index %d (%s)", result.AnomalyDate, pilotAnomalyDayIndex, result.Dates[pilotAnomalyDayIndex])
	}
	if result.AnomalyType != LowActivity {
		t.Fatalf("anomaly type = %s, want low_activity", result.AnomalyType)
	}
	if result.TotalEvents == 0 {
		t.Fatalf("expected a nonzero total event count")
	}
}
