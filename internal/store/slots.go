package store

import "fmt"

// SlotsPerDay is the number of 15-minute slots in a day (24h * 4).
const SlotsPerDay = 96

// UpsertSlot writes one (date, slot, channel) aggregate, overwriting any
// prior value for the same key.
func (s *Store) UpsertSlot(date string, slot int, channel string, active bool, eventCount int) error {
	activeInt := 0
	if active {
		activeInt = 1
	}
	_, err := s.sql.Exec(
		`INSERT INTO slot_summary (date, slot, channel, active, event_count)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (date, slot, channel) DO UPDATE SET
		   active = excluded.active, event_count = excluded.event_count`,
		date, slot, channel, activeInt, eventCount,
	)
	if err != nil {
		return fmt.Errorf("upsert slot: %w", err)
	}
	return nil
}

// FillMissingSlots inserts active=0/event_count=0 rows for every
// (slot, channel) combination on date that has no row yet. Existing rows
// are left untouched.
func (s *Store) FillMissingSlots(date string, channels []string) error {
	tx, err := s.sql.Begin()
	if err != nil {
		return fmt.Errorf("fill missing slots begin: %w", err)
	}
	stmt, err := tx.Prepare(
		`INSERT OR IGNORE INTO slot_summary (date, slot, channel, active, event_count)
		 VALUES (?, ?, ?, 0, 0)`,
	)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("fill missing slots prepare: %w", err)
	}
	defer stmt.Close()

	for slot := 0; slot < SlotsPerDay; slot++ {
		for _, ch := range channels {
			if _, err := stmt.Exec(date, slot, ch); err != nil {
				tx.Rollback()
				return fmt.Errorf("fill missing slots exec: %w", err)
			}
		}
	}
	return tx.Commit()
}

// LoadDaySlots returns, for each requested channel, a 96-length slice of
// active bits (0/1) for the given date. Channels with no rows at all come
// back as all-zero slices. If the date has no slot_summary rows for any
// channel, it returns a nil map.
func (s *Store) LoadDaySlots(date string, channels []string) (map[string][]int, error) {
	out := make(map[string][]int, len(channels))
	for _, ch := range channels {
		out[ch] = make([]int, SlotsPerDay)
	}

	rows, err := s.sql.Query(
		`SELECT slot, channel, active FROM slot_summary WHERE date = ?`, date,
	)
	if err != nil {
		return nil, fmt.Errorf("load day slots: %w", err)
	}
	defer rows.Close()

	found := false
	for rows.Next() {
		var slot, active int
		var channel string
		if err := rows.Scan(&slot, &channel, &active); err != nil {
			return nil, fmt.Errorf("scan day slot: %w", err)
		}
		found = true
		if slots, ok := out[channel]; ok && slot >= 0 && slot < SlotsPerDay {
			slots[slot] = active
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return out, nil
}
