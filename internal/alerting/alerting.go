// Package alerting is the decision engine (C5): it turns a scored day or
// a real-time finding into a rate-limited, explained, possibly
// acknowledgement-gated outbound message. It never talks to the
// messenger's transport directly except through the Notifier interface
// the manager is constructed with.
package alerting

import (
	"fmt"
	"time"

	"github.com/BBBoring2025/annem-guvende/internal/config"
	"github.com/BBBoring2025/annem-guvende/internal/logger"
	"github.com/BBBoring2025/annem-guvende/internal/messenger"
	"github.com/BBBoring2025/annem-guvende/internal/realtime"
	"github.com/BBBoring2025/annem-guvende/internal/store"
	"github.com/BBBoring2025/annem-guvende/internal/trend"
)

// Manager owns the rate limiter and wraps the store + notifier into the
// four scheduled handlers the daily/real-time jobs call into.
type Manager struct {
	s       *store.Store
	n       *messenger.Notifier
	cfg     *config.Config
	limiter *RateLimiter
}

// New builds a Manager bound to s and n. The rate limiter is
// per-process and rebuilds its cache from system_state on first use.
func New(s *store.Store, n *messenger.Notifier, cfg *config.Config) *Manager {
	return &Manager{s: s, n: n, cfg: cfg, limiter: NewRateLimiter(s)}
}

// HandleDailyScore reads date's scored row and, if it cleared the rate
// limiter, generates an explanation and emits the tiered daily alert.
// Called by the 00:20 scoring job immediately after C3 finishes.
func (m *Manager) HandleDailyScore(date string) error {
	summary, err := m.s.DailyScoreForDate(date)
	if err != nil {
		return fmt.Errorf("alerting: handle daily score: %w", err)
	}
	if summary == nil || summary.AlertLevel <= 0 {
		return nil
	}

	if !m.limiter.ShouldSend(summary.AlertLevel, summary.TrainDays, time.Now()) {
		return nil
	}

	explanation, err := GenerateExplanation(m.s, date)
	if err != nil {
		return fmt.Errorf("alerting: handle daily score: %w", err)
	}

	text := RenderAlert(summary.AlertLevel, date, summary.CompositeZ, explanation)
	if text == "" {
		return nil
	}

	if summary.AlertLevel >= 3 {
		return m.emitWithAck(text, summary.AlertLevel)
	}

	m.n.SendToAll(text)
	logger.Info("Alerting", fmt.Sprintf("daily alert sent: date=%s level=%d", date, summary.AlertLevel))
	return nil
}

// HandleRealtimeAlert dispatches one real-time finding according to its
// type: morning_silence uses the per-day cap; every other type goes
// through the general cooldown limiter at an assumed mature train_days,
// and those at level 3 (fall_suspicion) are then sent through the
// ack/escalation path.
func (m *Manager) HandleRealtimeAlert(alert realtime.Alert) error {
	switch alert.Type {
	case realtime.MorningSilence:
		today := time.Now().Format("2006-01-02")
		if !m.limiter.ShouldSendMorning(today) {
			return nil
		}
		text := RenderMorningSilence(time.Now().Format("15:04"))
		m.n.SendToAll(text)
		logger.Info("Alerting", "morning silence alert sent")
		return nil

	default:
		const assumedMatureTrainDays = seriousTrainDays
		if !m.limiter.ShouldSend(alert.Level, assumedMatureTrainDays, time.Now()) {
			return nil
		}
		if alert.Level >= 3 {
			return m.emitWithAck(RenderExtendedSilence(alert.Message), alert.Level)
		}
		m.n.SendToAll(RenderExtendedSilence(alert.Message))
		logger.Info("Alerting", fmt.Sprintf("realtime alert sent: type=%s level=%d", alert.Type, alert.Level))
		return nil
	}
}

// HandleDailySummary sends the 22:00 digest: status, scores, per-channel
// event counts for today, and the average credible-interval width
// across every trained posterior (falling back to a cosmetic estimate
// before any posteriors exist).
func (m *Manager) HandleDailySummary() error {
	today := time.Now().Format("2006-01-02")

	summary, err := m.s.DailyScoreForDate(today)
	if err != nil {
		return fmt.Errorf("alerting: daily summary: %w", err)
	}
	compositeZ, alertLevel, trainDays := 0.0, 0, 0
	if summary != nil {
		compositeZ, alertLevel, trainDays = summary.CompositeZ, summary.AlertLevel, summary.TrainDays
	}

	counts, err := m.s.CountEventsInRange(today+"T00:00:00", today+"T23:59:59")
	if err != nil {
		return fmt.Errorf("alerting: daily summary event counts: %w", err)
	}

	ciWidth, err := m.averageCIWidth(trainDays)
	if err != nil {
		return fmt.Errorf("alerting: daily summary ci width: %w", err)
	}

	text := RenderDailySummary(today, compositeZ, alertLevel, trainDays, ciWidth, counts)
	m.n.SendToAll(text)
	logger.Info("Alerting", fmt.Sprintf("daily summary sent: %s", today))
	return nil
}

func (m *Manager) averageCIWidth(trainDays int) (float64, error) {
	posteriors, err := m.s.AllPosteriors()
	if err != nil {
		return 0, err
	}
	if len(posteriors) == 0 {
		if trainDays < 1 {
			trainDays = 1
		}
		return max(0.05, 1.0/float64(trainDays)), nil
	}
	var sum float64
	for _, p := range posteriors {
		sum += p.CIWidth()
	}
	return sum / float64(len(posteriors)), nil
}

// HandleLearningMilestone sends a one-shot progress notice when
// yesterday's train_days crossed 7 or completed at 14. Called right
// after HandleDailyScore by the 00:20 job.
func (m *Manager) HandleLearningMilestone() error {
	yesterday := time.Now().AddDate(0, 0, -1).Format("2006-01-02")

	trainDays, ok, err := m.s.TrainDaysForDate(yesterday)
	if err != nil {
		return fmt.Errorf("alerting: learning milestone: %w", err)
	}
	if !ok {
		return nil
	}

	switch trainDays {
	case 7:
		text := RenderLearningProgress(yesterday, 7, 1.0/7.0, "First week complete! Basic alerts are now active.")
		m.n.SendToAll(text)
		logger.Info("Alerting", "learning milestone: day 7")
	case 14:
		const mvpConfidence = 85.0
		m.n.SendToAll(RenderLearningComplete(mvpConfidence))
		logger.Info("Alerting", "learning milestone: day 14 complete")
	}
	return nil
}

// HandleWeeklyTrend turns a trend.Report into the Sunday 10:00
// fragility digest, sending nothing when every channel is within its
// configured threshold. Rising bathroom activity and falling overall
// presence are the two channels the original pilot flagged as
// clinically meaningful.
func (m *Manager) HandleWeeklyTrend(report trend.Report) {
	days := m.cfg.System.TrendAnalysisDays
	var lines []string

	if slope := report["bathroom"]; slope != nil && *slope > m.cfg.System.TrendBathroomThreshold {
		lines = append(lines, RenderTrendLine("bathroom", days, *slope, true))
	}
	if slope := report["presence"]; slope != nil && *slope < m.cfg.System.TrendPresenceThreshold {
		lines = append(lines, RenderTrendLine("presence", days, *slope, false))
	}

	text := RenderTrendReport(lines)
	if text == "" {
		logger.Info("Alerting", "weekly trend report: no notable trend")
		return
	}
	m.n.SendToAll(text)
	logger.Info("Alerting", fmt.Sprintf("weekly trend report sent: %d findings", len(lines)))
}

// emitWithAck persists a PendingAlert and sends the message carrying an
// ack_<id> inline button, atomically enough that a crash between the
// two leaves, at worst, a pending alert nobody has been notified of yet
// (which the escalation job will still eventually surface).
func (m *Manager) emitWithAck(text string, level int) error {
	id, err := m.s.CreatePendingAlert(level, text, time.Now().Format("2006-01-02T15:04:05"))
	if err != nil {
		return fmt.Errorf("alerting: create pending alert: %w", err)
	}
	m.n.SendWithAck(m.firstChatID(), text, id)
	logger.Info("Alerting", fmt.Sprintf("emergency alert pending ack: id=%d level=%d", id, level))
	return nil
}

func (m *Manager) firstChatID() string {
	channels := m.cfg.Messenger.ChatIDs
	if len(channels) == 0 {
		return ""
	}
	return channels[0]
}

// RunEscalationCheck implements §4.5.3's escalation job: every
// unacknowledged PendingAlert older than escalation_minutes is faxed out
// to every emergency contact and marked escalated. A missing emergency
// contact list means this is a deliberate no-op, leaving the alert
// pending until someone does ack it.
func RunEscalationCheck(s *store.Store, n *messenger.Notifier, cfg *config.Config, now time.Time) error {
	emergencyIDs := cfg.Messenger.EmergencyChatIDs
	if len(emergencyIDs) == 0 {
		return nil
	}

	timeout := cfg.Messenger.EscalationMinutes
	cutoff := now.Add(-time.Duration(timeout) * time.Minute).Format("2006-01-02T15:04:05")

	expired, err := s.ExpiredPendingAlerts(cutoff)
	if err != nil {
		return fmt.Errorf("alerting: escalation check: %w", err)
	}

	for _, alert := range expired {
		escalated := RenderEscalation(timeout, alert.Message)
		for _, chatID := range emergencyIDs {
			n.Send(chatID, escalated)
		}
		if err := s.SetPendingAlertStatus(alert.ID, store.PendingAlertEscalated); err != nil {
			return fmt.Errorf("alerting: escalate alert %d: %w", alert.ID, err)
		}
		logger.Warn("Alerting", fmt.Sprintf("escalated unacknowledged alert id=%d", alert.ID))
	}
	return nil
}
