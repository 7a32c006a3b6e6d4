package store

import "fmt"

// SensorEvent is one raw state-change reading ingested from a sensor.
type SensorEvent struct {
	ID        int64
	Timestamp string
	SensorID  string
	Channel   string
	EventType string
	Value     string
}

// InsertEvent records a single sensor reading. EventType defaults to
// "state_change" when empty, matching the column default.
func (s *Store) InsertEvent(e SensorEvent) error {
	eventType := e.EventType
	if eventType == "" {
		eventType = "state_change"
	}
	_, err := s.sql.Exec(
		`INSERT INTO sensor_events (timestamp, sensor_id, channel, event_type, value)
		 VALUES (?, ?, ?, ?, ?)`,
		e.Timestamp, e.SensorID, e.Channel, eventType, e.Value,
	)
	if err != nil {
		return fmt.Errorf("insert sensor event: %w", err)
	}
	return nil
}

// InsertEventsBatch writes many events in a single transaction, used by
// the simulator to seed a day's worth of readings at once.
func (s *Store) InsertEventsBatch(events []SensorEvent) error {
	if len(events) == 0 {
		return nil
	}
	tx, err := s.sql.Begin()
	if err != nil {
		return fmt.Errorf("insert events batch begin: %w", err)
	}
	stmt, err := tx.Prepare(
		`INSERT INTO sensor_events (timestamp, sensor_id, channel, event_type, value)
		 VALUES (?, ?, ?, ?, ?)`,
	)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("insert events batch prepare: %w", err)
	}
	defer stmt.Close()

	for _, e := range events {
		eventType := e.EventType
		if eventType == "" {
			eventType = "state_change"
		}
		if _, err := stmt.Exec(e.Timestamp, e.SensorID, e.Channel, eventType, e.Value); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert events batch exec: %w", err)
		}
	}
	return tx.Commit()
}

// CountEventsInRange returns the number of events per channel within
// [start, end), grouped by channel.
func (s *Store) CountEventsInRange(start, end string) (map[string]int, error) {
	rows, err := s.sql.Query(
		`SELECT channel, COUNT(*) FROM sensor_events
		 WHERE timestamp >= ? AND timestamp < ? GROUP BY channel`,
		start, end,
	)
	if err != nil {
		return nil, fmt.Errorf("count events in range: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var channel string
		var n int
		if err := rows.Scan(&channel, &n); err != nil {
			return nil, fmt.Errorf("scan event count: %w", err)
		}
		counts[channel] = n
	}
	return counts, rows.Err()
}

// TotalEventsSince counts every event with since <= timestamp < before,
// across channels. Used by the morning vital-sign check.
func (s *Store) TotalEventsSince(since, before string) (int, error) {
	var n int
	err := s.sql.QueryRow(
		`SELECT COUNT(*) FROM sensor_events WHERE timestamp >= ? AND timestamp < ?`,
		since, before,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count events since: %w", err)
	}
	return n, nil
}

// LastEventTimestamp returns the most recent event timestamp at or after
// since, or "" if nothing has been seen.
func (s *Store) LastEventTimestamp(since string) (string, error) {
	var ts *string
	err := s.sql.QueryRow(
		`SELECT MAX(timestamp) FROM sensor_events WHERE timestamp >= ?`, since,
	).Scan(&ts)
	if err != nil {
		return "", fmt.Errorf("last event timestamp: %w", err)
	}
	if ts == nil {
		return "", nil
	}
	return *ts, nil
}

// LastEventTimestampForChannel returns the most recent event timestamp
// for a single channel, or "" if none exists yet.
func (s *Store) LastEventTimestampForChannel(channel string) (string, error) {
	var ts *string
	err := s.sql.QueryRow(
		`SELECT MAX(timestamp) FROM sensor_events WHERE channel = ?`, channel,
	).Scan(&ts)
	if err != nil {
		return "", fmt.Errorf("last event timestamp for channel: %w", err)
	}
	if ts == nil {
		return "", nil
	}
	return *ts, nil
}

// DeleteEventsBefore removes sensor events older than cutoff and returns
// the number of rows removed. Used by nightly retention housekeeping.
func (s *Store) DeleteEventsBefore(cutoff string) (int64, error) {
	res, err := s.sql.Exec(`DELETE FROM sensor_events WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete old events: %w", err)
	}
	return res.RowsAffected()
}
