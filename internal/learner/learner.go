package learner

import (
	"fmt"
	"time"

	"github.com/BBBoring2025/annem-guvende/internal/config"
	"github.com/BBBoring2025/annem-guvende/internal/logger"
	"github.com/BBBoring2025/annem-guvende/internal/store"
)

// Run executes the nightly learning pipeline for targetDate (default:
// yesterday):
//
//  1. load yesterday's slot_summary
//  2. load (or seed) model_state
//  3. compute pre-update metrics — how surprising was the day under the
//     model as it stood this morning?
//  4. Bayesian-update the posterior with the day's observations
//  5. persist model_state
//  6. write daily_scores with composite_z=0 (the scorer fills it in later
//     the same night)
//
// Steps 2 and 4-6 run inside one transaction: model_state and the day's
// daily_scores row commit together, so a crash between them can never
// leave a bumped posterior with no corresponding score row — which would
// otherwise make the idempotence check below reprocess the same date and
// double-update the posterior on retry.
//
// Idempotent: a date already present in daily_scores is skipped.
func Run(s *store.Store, cfg *config.Config, targetDate string) error {
	if targetDate == "" {
		targetDate = time.Now().AddDate(0, 0, -1).Format("2006-01-02")
	}

	already, err := s.HasDailyScore(targetDate)
	if err != nil {
		return fmt.Errorf("learner: check processed: %w", err)
	}
	if already {
		logger.Info("Learner", fmt.Sprintf("%s already processed, skipping", targetDate))
		return nil
	}

	channels := cfg.Channels()
	awakeStart := cfg.Model.AwakeStartHour * 4
	awakeEnd := cfg.Model.AwakeEndHour * 4

	slotData, err := s.LoadDaySlots(targetDate, channels)
	if err != nil {
		return fmt.Errorf("learner: load slots: %w", err)
	}
	if slotData == nil {
		logger.Warn("Learner", fmt.Sprintf("no slot data for %s", targetDate))
		return nil
	}

	tx, err := s.Begin()
	if err != nil {
		return fmt.Errorf("learner: begin tx: %w", err)
	}

	model, err := s.LoadModelTx(tx, channels, cfg.Model.PriorAlpha, cfg.Model.PriorBeta)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("learner: load model: %w", err)
	}

	metrics := DailyMetrics(slotData, model, awakeStart, awakeEnd, channels)
	updated := UpdatePosteriors(model, slotData, channels)

	if err := s.SaveModelTx(tx, updated, targetDate); err != nil {
		tx.Rollback()
		return fmt.Errorf("learner: save model: %w", err)
	}

	trainDaysSoFar, err := s.CountDailyScoresTx(tx)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("learner: count train days: %w", err)
	}
	trainDays := trainDaysSoFar + 1
	isLearning := trainDays <= cfg.Model.LearningDays

	if err := s.InsertDailyScoreTx(tx, store.DailyScore{
		Date:       targetDate,
		TrainDays:  trainDays,
		Metrics:    metrics,
		CompositeZ: 0.0,
		AlertLevel: 0,
		IsLearning: isLearning,
	}); err != nil {
		tx.Rollback()
		return fmt.Errorf("learner: save daily score: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("learner: commit: %w", err)
	}

	logger.Info("Learner", fmt.Sprintf(
		"%s done: train_days=%d nll_total=%.2f is_learning=%v",
		targetDate, trainDays, metrics.NLLTotal, isLearning))
	return nil
}
