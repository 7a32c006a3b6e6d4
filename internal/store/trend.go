package store

import "fmt"

// DailyEventCounts returns per-day event counts for one channel since
// sinceDate (inclusive), keyed by "YYYY-MM-DD". Days with zero events
// are simply absent from the map — callers that need a complete
// calendar (e.g. for a regression series) must zero-fill themselves.
func (s *Store) DailyEventCounts(channel, sinceDate string) (map[string]int, error) {
	rows, err := s.sql.Query(
		`SELECT DATE(timestamp) AS d, COUNT(*) AS cnt FROM sensor_events
		 WHERE channel = ? AND timestamp >= ? GROUP BY d`,
		channel, sinceDate,
	)
	if err != nil {
		return nil, fmt.Errorf("daily event counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var date string
		var n int
		if err := rows.Scan(&date, &n); err != nil {
			return nil, fmt.Errorf("scan daily event count: %w", err)
		}
		counts[date] = n
	}
	return counts, rows.Err()
}
