package store

import "fmt"

// GetState reads a system_state value, returning fallback if the key is
// unset.
func (s *Store) GetState(key, fallback string) (string, error) {
	var value string
	err := s.sql.QueryRow(`SELECT value FROM system_state WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if err.Error() == "sql: no rows in result set" {
			return fallback, nil
		}
		return "", fmt.Errorf("get state %s: %w", key, err)
	}
	return value, nil
}

// SetState upserts a system_state value.
func (s *Store) SetState(key, value string) error {
	_, err := s.sql.Exec(
		`INSERT OR REPLACE INTO system_state (key, value, updated_at) VALUES (?, ?, datetime('now'))`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set state %s: %w", key, err)
	}
	return nil
}

// IsVacationMode reports whether system_state overrides the configured
// vacation_mode default. An unset key falls back to configDefault.
func (s *Store) IsVacationMode(configDefault bool) (bool, error) {
	raw, err := s.GetState("vacation_mode", "")
	if err != nil {
		return false, err
	}
	if raw == "" {
		return configDefault, nil
	}
	return raw == "true" || raw == "1" || raw == "yes", nil
}
