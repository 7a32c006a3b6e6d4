package store

import (
	"database/sql"
	"fmt"
)

// DailyMetrics is the set of per-channel and aggregate metrics the daily
// learner computes before updating the posterior for a given date.
type DailyMetrics struct {
	NLLPresence    float64
	NLLFridge      float64
	NLLBathroom    float64
	NLLDoor        float64
	NLLTotal       float64
	ExpectedCount  float64
	ObservedCount  int
	CountZ         float64
	AwAccuracy     float64
	AwBalancedAcc  float64
	AwActiveRecall float64
}

// DailyScore is one row of the daily_scores table: the learner writes it
// with CompositeZ=0/AlertLevel=0, the scorer updates those two fields the
// same night.
type DailyScore struct {
	Date          string
	TrainDays     int
	Metrics       DailyMetrics
	CompositeZ    float64
	AlertLevel    int
	IsLearning    bool
}

// HasDailyScore reports whether date has already been processed by the
// learner, used as the idempotence guard against double-running a job.
func (s *Store) HasDailyScore(date string) (bool, error) {
	var exists int
	err := s.sql.QueryRow(`SELECT 1 FROM daily_scores WHERE date = ?`, date).Scan(&exists)
	if err != nil {
		if err.Error() == "sql: no rows in result set" {
			return false, nil
		}
		return false, fmt.Errorf("has daily score: %w", err)
	}
	return true, nil
}

// CountDailyScores returns how many days have been fully processed so
// far, used to derive train_days for the next run.
func (s *Store) CountDailyScores() (int, error) {
	var n int
	if err := s.sql.QueryRow(`SELECT COUNT(*) FROM daily_scores`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count daily scores: %w", err)
	}
	return n, nil
}

// CountDailyScoresTx is CountDailyScores scoped to an already-open
// transaction, so the learner's train_days read sees the same snapshot
// it is about to write against.
func (s *Store) CountDailyScoresTx(tx *sql.Tx) (int, error) {
	var n int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM daily_scores`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count daily scores: %w", err)
	}
	return n, nil
}

// InsertDailyScore writes (or overwrites) one day's learner output in its
// own transaction. Use InsertDailyScoreTx when this must commit
// atomically alongside other writes.
func (s *Store) InsertDailyScore(ds DailyScore) error {
	tx, err := s.sql.Begin()
	if err != nil {
		return fmt.Errorf("insert daily score begin: %w", err)
	}
	if err := s.InsertDailyScoreTx(tx, ds); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// InsertDailyScoreTx is InsertDailyScore scoped to an already-open
// transaction, used by the nightly learner so the score row and the
// model_state update it depends on commit together.
func (s *Store) InsertDailyScoreTx(tx *sql.Tx, ds DailyScore) error {
	isLearning := 0
	if ds.IsLearning {
		isLearning = 1
	}
	m := ds.Metrics
	_, err := tx.Exec(
		`INSERT OR REPLACE INTO daily_scores (
			date, train_days,
			nll_presence, nll_fridge, nll_bathroom, nll_door, nll_total,
			expected_count, observed_count, count_z,
			composite_z, alert_level,
			aw_accuracy, aw_balanced_acc, aw_active_recall,
			is_learning
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ds.Date, ds.TrainDays,
		m.NLLPresence, m.NLLFridge, m.NLLBathroom, m.NLLDoor, m.NLLTotal,
		m.ExpectedCount, m.ObservedCount, m.CountZ,
		ds.CompositeZ, ds.AlertLevel,
		m.AwAccuracy, m.AwBalancedAcc, m.AwActiveRecall,
		isLearning,
	)
	if err != nil {
		return fmt.Errorf("insert daily score: %w", err)
	}
	return nil
}

// ScoreRow is what the scorer needs back out of a learner-written row.
type ScoreRow struct {
	NLLTotal   float64
	CountZ     float64
	IsLearning bool
}

// GetScoreForScoring reads the fields the anomaly scorer needs for date.
func (s *Store) GetScoreForScoring(date string) (*ScoreRow, error) {
	var nllTotal, countZ float64
	var isLearning int
	err := s.sql.QueryRow(
		`SELECT nll_total, count_z, is_learning FROM daily_scores WHERE date = ?`, date,
	).Scan(&nllTotal, &countZ, &isLearning)
	if err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		return nil, fmt.Errorf("get score for scoring: %w", err)
	}
	return &ScoreRow{NLLTotal: nllTotal, CountZ: countZ, IsLearning: isLearning == 1}, nil
}

// UpdateCompositeScore writes the scorer's verdict back onto an existing
// daily_scores row.
func (s *Store) UpdateCompositeScore(date string, compositeZ float64, alertLevel int) error {
	_, err := s.sql.Exec(
		`UPDATE daily_scores SET composite_z = ?, alert_level = ? WHERE date = ?`,
		compositeZ, alertLevel, date,
	)
	if err != nil {
		return fmt.Errorf("update composite score: %w", err)
	}
	return nil
}

// NormalDayNLLs returns up to maxDays most recent nll_total values from
// days that scored as normal (alert_level=0, is_learning=0), excluding
// excludeDate. Used by the rolling baseline.
func (s *Store) NormalDayNLLs(maxDays int, excludeDate string) ([]float64, error) {
	rows, err := s.sql.Query(
		`SELECT nll_total FROM daily_scores
		 WHERE alert_level = 0 AND is_learning = 0 AND date != ?
		 ORDER BY date DESC LIMIT ?`,
		excludeDate, maxDays,
	)
	if err != nil {
		return nil, fmt.Errorf("normal day nlls: %w", err)
	}
	defer rows.Close()

	var out []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan normal day nll: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// DailyScoreForDate reads back the composite_z/alert_level/train_days
// triple, used by the alert manager and daily summary job.
type ScoreSummary struct {
	CompositeZ float64
	AlertLevel int
	TrainDays  int
}

func (s *Store) DailyScoreForDate(date string) (*ScoreSummary, error) {
	var sc ScoreSummary
	err := s.sql.QueryRow(
		`SELECT composite_z, alert_level, train_days FROM daily_scores WHERE date = ?`, date,
	).Scan(&sc.CompositeZ, &sc.AlertLevel, &sc.TrainDays)
	if err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		return nil, fmt.Errorf("daily score for date: %w", err)
	}
	return &sc, nil
}

// TrainDaysForDate returns train_days recorded for date, used by the
// learning-milestone check.
func (s *Store) TrainDaysForDate(date string) (int, bool, error) {
	var td int
	err := s.sql.QueryRow(`SELECT train_days FROM daily_scores WHERE date = ?`, date).Scan(&td)
	if err != nil {
		if err.Error() == "sql: no rows in result set" {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("train days for date: %w", err)
	}
	return td, true, nil
}

// PerChannelHistoryMeans averages each channel's NLL over normal days
// (alert_level=0, is_learning=0), excluding excludeDate, returning nil if
// fewer than minDays qualify. Used to build the alert explanation.
type ChannelHistory struct {
	MeanPresence float64
	MeanFridge   float64
	MeanBathroom float64
	MeanDoor     float64
	N            int
}

func (s *Store) PerChannelHistoryMeans(excludeDate string, minDays int) (*ChannelHistory, error) {
	var h ChannelHistory
	err := s.sql.QueryRow(
		`SELECT AVG(nll_presence), AVG(nll_fridge), AVG(nll_bathroom), AVG(nll_door), COUNT(*)
		 FROM daily_scores WHERE alert_level = 0 AND is_learning = 0 AND date != ?`,
		excludeDate,
	).Scan(&h.MeanPresence, &h.MeanFridge, &h.MeanBathroom, &h.MeanDoor, &h.N)
	if err != nil {
		return nil, fmt.Errorf("per channel history means: %w", err)
	}
	if h.N < minDays {
		return nil, nil
	}
	return &h, nil
}

// ScoreDetailForDate returns the raw per-channel NLLs and count
// stats for date, used alongside ChannelHistory to render an explanation.
type ScoreDetail struct {
	NLLPresence   float64
	NLLFridge     float64
	NLLBathroom   float64
	NLLDoor       float64
	CountZ        float64
	ObservedCount int
	ExpectedCount float64
}

func (s *Store) ScoreDetailForDate(date string) (*ScoreDetail, error) {
	var d ScoreDetail
	err := s.sql.QueryRow(
		`SELECT nll_presence, nll_fridge, nll_bathroom, nll_door, count_z, observed_count, expected_count
		 FROM daily_scores WHERE date = ?`, date,
	).Scan(&d.NLLPresence, &d.NLLFridge, &d.NLLBathroom, &d.NLLDoor, &d.CountZ, &d.ObservedCount, &d.ExpectedCount)
	if err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		return nil, fmt.Errorf("score detail for date: %w", err)
	}
	return &d, nil
}
