package scorer

import (
	"fmt"
	"math"
	"time"

	"github.com/BBBoring2025/annem-guvende/internal/config"
	"github.com/BBBoring2025/annem-guvende/internal/logger"
	"github.com/BBBoring2025/annem-guvende/internal/store"
)

// Result is one day's scored anomaly verdict.
type Result struct {
	Date       string
	NLLZ       float64
	CountZ     float64
	CountRisk  float64
	CompositeZ float64
	AlertLevel int
}

// ScoreDay reads yesterday's learner-written nll_total/count_z, compares
// against a rolling baseline of normal days, and writes composite_z and
// alert_level back onto the same row.
//
// The z-scores are one-sided on purpose: a day that is quieter than
// normal (low count) or a worse model fit (high NLL) is the only
// direction that signals risk. A day that is unusually busy or unusually
// easy to predict is never penalized.
func ScoreDay(s *store.Store, cfg *config.Config, targetDate string) (*Result, error) {
	if targetDate == "" {
		targetDate = time.Now().AddDate(0, 0, -1).Format("2006-01-02")
	}

	row, err := s.GetScoreForScoring(targetDate)
	if err != nil {
		return nil, fmt.Errorf("scorer: read daily score: %w", err)
	}
	if row == nil {
		logger.Warn("Scorer", fmt.Sprintf("no daily_scores row for %s", targetDate))
		return nil, nil
	}

	history, err := NormalStats(s, 30, cfg.Alerts.MinTrainDays, targetDate)
	if err != nil {
		return nil, fmt.Errorf("scorer: history stats: %w", err)
	}

	nllZ := 0.0
	if history.Ready {
		nllZ = math.Max(0.0, (row.NLLTotal-history.MeanNLL)/history.StdNLL)
	}
	countRisk := math.Max(0.0, -row.CountZ)
	compositeZ := math.Max(nllZ, countRisk)

	alertLevel := AlertLevel(compositeZ, cfg.Alerts)
	if row.IsLearning {
		alertLevel = min(alertLevel, 1)
	}

	if err := s.UpdateCompositeScore(targetDate, compositeZ, alertLevel); err != nil {
		return nil, fmt.Errorf("scorer: update composite score: %w", err)
	}

	result := &Result{
		Date:       targetDate,
		NLLZ:       nllZ,
		CountZ:     row.CountZ,
		CountRisk:  countRisk,
		CompositeZ: compositeZ,
		AlertLevel: alertLevel,
	}

	logger.Info("Scorer", fmt.Sprintf(
		"%s nll_z=%.2f count_risk=%.2f composite_z=%.2f alert_level=%d",
		targetDate, nllZ, countRisk, compositeZ, alertLevel))
	return result, nil
}
