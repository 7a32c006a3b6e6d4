package store

import (
	"database/sql"
	"fmt"

	"github.com/BBBoring2025/annem-guvende/internal/beta"
)

// LoadModel returns the current posterior for every (channel, slot) cell,
// seeding model_state on first use. Runs in its own transaction; use
// LoadModelTx when this must commit atomically alongside other writes
// (the nightly learner cycle).
func (s *Store) LoadModel(channels []string, priorAlpha, priorBeta float64) (map[string][]beta.Posterior, error) {
	tx, err := s.sql.Begin()
	if err != nil {
		return nil, fmt.Errorf("load model begin: %w", err)
	}
	model, err := s.LoadModelTx(tx, channels, priorAlpha, priorBeta)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	return model, tx.Commit()
}

// LoadModelTx is LoadModel scoped to an already-open transaction.
func (s *Store) LoadModelTx(tx *sql.Tx, channels []string, priorAlpha, priorBeta float64) (map[string][]beta.Posterior, error) {
	rows, err := tx.Query(`SELECT slot, channel, alpha, beta FROM model_state`)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}

	model := make(map[string][]beta.Posterior, len(channels))
	for _, ch := range channels {
		slots := make([]beta.Posterior, SlotsPerDay)
		for i := range slots {
			slots[i] = beta.New(priorAlpha, priorBeta)
		}
		model[ch] = slots
	}

	any := false
	for rows.Next() {
		var slot int
		var channel string
		var alpha, betaVal float64
		if err := rows.Scan(&slot, &channel, &alpha, &betaVal); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan model row: %w", err)
		}
		any = true
		if slots, ok := model[channel]; ok && slot >= 0 && slot < SlotsPerDay {
			slots[slot] = beta.New(alpha, betaVal)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	if any {
		return model, nil
	}

	if err := s.seedModelTx(tx, channels, priorAlpha, priorBeta); err != nil {
		return nil, err
	}
	return model, nil
}

func (s *Store) seedModelTx(tx *sql.Tx, channels []string, priorAlpha, priorBeta float64) error {
	stmt, err := tx.Prepare(
		`INSERT INTO model_state (slot, channel, alpha, beta) VALUES (?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("seed model prepare: %w", err)
	}
	defer stmt.Close()

	for _, ch := range channels {
		for slot := 0; slot < SlotsPerDay; slot++ {
			if _, err := stmt.Exec(slot, ch, priorAlpha, priorBeta); err != nil {
				return fmt.Errorf("seed model exec: %w", err)
			}
		}
	}
	return nil
}

// SaveModel persists the updated posterior for every (channel, slot) cell
// and stamps last_updated with date, in its own transaction. Use
// SaveModelTx when this must commit atomically alongside other writes.
func (s *Store) SaveModel(model map[string][]beta.Posterior, date string) error {
	tx, err := s.sql.Begin()
	if err != nil {
		return fmt.Errorf("save model begin: %w", err)
	}
	if err := s.SaveModelTx(tx, model, date); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// SaveModelTx is SaveModel scoped to an already-open transaction, used by
// the nightly learner so the updated posteriors and the day's score land
// in the same commit.
func (s *Store) SaveModelTx(tx *sql.Tx, model map[string][]beta.Posterior, date string) error {
	stmt, err := tx.Prepare(
		`UPDATE model_state SET alpha = ?, beta = ?, last_updated = ?
		 WHERE slot = ? AND channel = ?`,
	)
	if err != nil {
		return fmt.Errorf("save model prepare: %w", err)
	}
	defer stmt.Close()

	for channel, slots := range model {
		for slot, p := range slots {
			if _, err := stmt.Exec(p.Alpha, p.Beta, date, slot, channel); err != nil {
				return fmt.Errorf("save model exec: %w", err)
			}
		}
	}
	return nil
}

// AllPosteriors flattens model_state into a single slice, used by the
// daily-summary job to compute an average CI width across every cell.
func (s *Store) AllPosteriors() ([]beta.Posterior, error) {
	rows, err := s.sql.Query(`SELECT alpha, beta FROM model_state`)
	if err != nil {
		return nil, fmt.Errorf("all posteriors: %w", err)
	}
	defer rows.Close()

	var out []beta.Posterior
	for rows.Next() {
		var a, b float64
		if err := rows.Scan(&a, &b); err != nil {
			return nil, fmt.Errorf("scan posterior: %w", err)
		}
		out = append(out, beta.New(a, b))
	}
	return out, rows.Err()
}
