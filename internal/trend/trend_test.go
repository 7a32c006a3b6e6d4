package trend

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

func TestSlope_FlatSeriesIsZero(t *testing.T) {
	if got := Slope([]float64{5, 5, 5, 5}); got != 0 {
		t.Fatalf("got %v, want 0", got)
	}
}

func TestSlope_IncreasingSeriesIsPositive(t *testing.T) {
	if got := Slope([]float64{1, 2, 3, 4, 5}); got <= 0 {
		t.Fatalf("got %v, want positive", got)
	}
}

func TestSlope_DecreasingSeriesIsNegative(t *testing.T) {
	if got := Slope([]float64{5, 4, 3, 2, 1}); got >= 0 {
		t.Fatalf("got %v, want negative", got)
	}
}

func TestSlope_TooFewPointsIsZero(t *testing.T) {
	if got := Slope([]float64{7}); got != 0 {
		t.Fatalf("got %v, want 0 for a single point", got)
	}
	if got := Slope(nil); got != 0 {
		t.Fatalf("got %v, want 0 for an empty series", got)
	}
}

func TestDailyCounts_ZeroFillsMissingDays(t *testing.T) {
	s := openTestStore(t)
	defer s.Close()

	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	if err := s.InsertEvent(store.SensorEvent{Timestamp: "2026-01-08T09:00:00", SensorID: "b1", Channel: "bathroom"}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	values, err := DailyCounts(s, "bathroom", 5, now)
	if err != nil {
		t.Fatalf("daily counts: %v", err)
	}
	if len(values) != 5 {
		t.Fatalf("len = %d, want 5", len(values))
	}
	// Window is 2026-01-06..2026-01-10; only the 8th has an event.
	if values[2] != 1 {
		t.Fatalf("values = %v, want index 2 (Jan 8) == 1", values)
	}
	for i, v := range values {
		if i != 2 && v != 0 {
			t.Fatalf("values = %v, want every other day zero-filled", values)
		}
	}
}

func TestChannelTrend_NotReadyWhenWindowShorterThanMinDays(t *testing.T) {
	// DailyCounts always zero-fills to exactly `days` entries, so the
	// min_days gate only bites when the configured window itself is
	// narrower than min_days — mirroring the reference implementation.
	s := openTestStore(t)
	defer s.Close()
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

	_, ok, err := ChannelTrend(s, "bathroom", 5, 14, now)
	if err != nil {
		t.Fatalf("channel trend: %v", err)
	}
	if ok {
		t.Fatalf("expected not-ready when window is shorter than minDays")
	}
}

func TestAnalyzeAll_FlatSlopeForChannelsWithoutEvents(t *testing.T) {
	s := openTestStore(t)
	defer s.Close()
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

	report, err := AnalyzeAll(s, []string{"bathroom", "presence"}, 30, 14, now)
	if err != nil {
		t.Fatalf("analyze all: %v", err)
	}
	if report["bathroom"] == nil || *report["bathroom"] != 0 {
		t.Fatalf("expected a flat zero slope with no events, got %+v", report["bathroom"])
	}
	if report["presence"] == nil || *report["presence"] != 0 {
		t.Fatalf("expected a flat zero slope with no events, got %+v", report["presence"])
	}
}
