// Package store is the embedded ACID persistence layer for the daemon:
// sensor events, 15-minute slot summaries, per-slot Beta posteriors, daily
// anomaly scores, free-form system state, and pending escalation alerts
// all live in one SQLite file, opened once at startup and shared by every
// job.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BBBoring2025/annem-guvende/internal/logger"

	_ "modernc.org/sqlite"
)

// Store wraps the SQLite connection used by every component of the daemon.
type Store struct {
	sql *sql.DB
}

// Open creates the parent directory if needed, opens (or creates) the
// SQLite database at path and runs any pending migrations.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}

	s := &Store{sql: sqlDB}
	if err := s.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate db: %w", err)
	}
	logger.Success("Store", fmt.Sprintf("opened %s", path))
	return s, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	return s.sql.Close()
}

// Begin starts a transaction for callers that need several Store writes
// (e.g. the nightly learner's model/score update) to commit atomically.
func (s *Store) Begin() (*sql.Tx, error) {
	return s.sql.Begin()
}

// Checkpoint runs a WAL truncate checkpoint. Cheap on a Pi compared to
// VACUUM; the nightly maintenance job calls this instead.
func (s *Store) Checkpoint() error {
	_, err := s.sql.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return err
}

func (s *Store) currentVersion() int {
	var version int
	s.sql.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&version)
	return version
}

func (s *Store) migrate() error {
	if _, err := s.sql.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version    INTEGER PRIMARY KEY,
		applied_at TEXT DEFAULT (datetime('now'))
	)`); err != nil {
		return fmt.Errorf("create schema_version: %w", err)
	}

	version := s.currentVersion()

	if version < 1 {
		if _, err := s.sql.Exec(`
			CREATE TABLE IF NOT EXISTS sensor_events (
				id          INTEGER PRIMARY KEY AUTOINCREMENT,
				timestamp   TEXT NOT NULL,
				sensor_id   TEXT NOT NULL,
				channel     TEXT NOT NULL,
				event_type  TEXT NOT NULL DEFAULT 'state_change',
				value       TEXT,
				created_at  TEXT DEFAULT (datetime('now'))
			);
			CREATE INDEX IF NOT EXISTS idx_events_ts ON sensor_events(timestamp);
			CREATE INDEX IF NOT EXISTS idx_events_channel ON sensor_events(channel, timestamp);

			CREATE TABLE IF NOT EXISTS slot_summary (
				date        TEXT NOT NULL,
				slot        INTEGER NOT NULL,
				channel     TEXT NOT NULL,
				active      INTEGER NOT NULL DEFAULT 0,
				event_count INTEGER NOT NULL DEFAULT 0,
				PRIMARY KEY (date, slot, channel)
			);

			CREATE TABLE IF NOT EXISTS daily_scores (
				date              TEXT PRIMARY KEY,
				train_days        INTEGER,
				nll_presence      REAL,
				nll_fridge        REAL,
				nll_bathroom      REAL,
				nll_door          REAL,
				nll_total         REAL,
				expected_count    REAL,
				observed_count    INTEGER,
				count_z           REAL,
				composite_z       REAL,
				alert_level       INTEGER DEFAULT 0,
				aw_accuracy       REAL,
				aw_balanced_acc   REAL,
				aw_active_recall  REAL,
				is_learning       INTEGER DEFAULT 1,
				created_at        TEXT DEFAULT (datetime('now'))
			);

			CREATE TABLE IF NOT EXISTS model_state (
				slot         INTEGER NOT NULL,
				channel      TEXT NOT NULL,
				alpha        REAL NOT NULL DEFAULT 1,
				beta         REAL NOT NULL DEFAULT 1,
				last_updated TEXT,
				PRIMARY KEY (slot, channel)
			);

			INSERT OR IGNORE INTO schema_version (version) VALUES (1);
		`); err != nil {
			return fmt.Errorf("migration v1: %w", err)
		}
		logger.Info("Store", "applied migration v1 (core tables)")
	}

	if version < 2 {
		if _, err := s.sql.Exec(`
			CREATE TABLE IF NOT EXISTS system_state (
				key        TEXT PRIMARY KEY,
				value      TEXT NOT NULL,
				updated_at TEXT DEFAULT (datetime('now'))
			);
			INSERT OR IGNORE INTO schema_version (version) VALUES (2);
		`); err != nil {
			return fmt.Errorf("migration v2: %w", err)
		}
		logger.Info("Store", "applied migration v2 (system state)")
	}

	if version < 3 {
		if _, err := s.sql.Exec(`
			CREATE TABLE IF NOT EXISTS pending_alerts (
				id          INTEGER PRIMARY KEY AUTOINCREMENT,
				alert_level INTEGER NOT NULL,
				message     TEXT NOT NULL,
				timestamp   TEXT NOT NULL,
				status      TEXT NOT NULL DEFAULT 'pending'
			);
			CREATE INDEX IF NOT EXISTS idx_pending_status ON pending_alerts(status, timestamp);

			INSERT OR IGNORE INTO schema_version (version) VALUES (3);
		`); err != nil {
			return fmt.Errorf("migration v3: %w", err)
		}
		logger.Info("Store", "applied migration v3 (pending alerts)")
	}

	return nil
}
