// Package slotagg rolls raw sensor_events up into 15-minute slot_summary
// rows, the granularity the daily learner trains a Beta posterior per
// (slot, channel) against.
package slotagg

import (
	"fmt"
	"time"

	"github.com/BBBoring2025/annem-guvende/internal/store"
)

const slotMinutes = 15

// Slot returns the 0-95 slot number for dt: 00:00 -> 0, 06:00 -> 24,
// 12:00 -> 48, 23:45 -> 95.
func Slot(dt time.Time) int {
	return dt.Hour()*4 + dt.Minute()/slotMinutes
}

// TimeRange returns the [start, end) boundary of the 15-minute slot that
// dt falls inside, e.g. 10:37 -> (10:30:00, 10:45:00) on the same date.
func TimeRange(dt time.Time) (time.Time, time.Time) {
	startMinute := (dt.Minute() / slotMinutes) * slotMinutes
	start := time.Date(dt.Year(), dt.Month(), dt.Day(), dt.Hour(), startMinute, 0, 0, dt.Location())
	return start, start.Add(slotMinutes * time.Minute)
}

const isoLayout = "2006-01-02T15:04:05"

// AggregateCurrentSlot counts every event inside the 15-minute slot that
// now falls in and upserts one slot_summary row per channel that either
// had an event or is in the configured channel set. Run every 15 minutes
// by the scheduler, always against the slot that just closed.
func AggregateCurrentSlot(s *store.Store, channels []string, now time.Time) error {
	date := now.Format("2006-01-02")
	slot := Slot(now)
	start, end := TimeRange(now)

	counts, err := s.CountEventsInRange(start.Format(isoLayout), end.Format(isoLayout))
	if err != nil {
		return fmt.Errorf("slotagg: count events: %w", err)
	}

	all := make(map[string]bool, len(channels)+len(counts))
	for _, ch := range channels {
		all[ch] = true
	}
	for ch := range counts {
		all[ch] = true
	}

	for ch := range all {
		count := counts[ch]
		if err := s.UpsertSlot(date, slot, ch, count > 0, count); err != nil {
			return fmt.Errorf("slotagg: upsert slot %d/%s: %w", slot, ch, err)
		}
	}
	return nil
}

// FillMissingSlots backfills active=0/event_count=0 rows for every slot
// and channel on date that has no row yet, run once early the next
// morning so a day with zero events in some slot still has 96 rows per
// channel for the learner to read.
func FillMissingSlots(s *store.Store, date string, channels []string) error {
	if err := s.FillMissingSlots(date, channels); err != nil {
		return fmt.Errorf("slotagg: fill missing slots: %w", err)
	}
	return nil
}
