package alerting

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BBBoring2025/annem-guvende/internal/config"
	"github.com/BBBoring2025/annem-guvende/internal/messenger"
	"github.com/BBBoring2025/annem-guvende/internal/store"
	"github.com/BBBoring2025/annem-guvende/internal/trend"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(":memory:")
	require.NoError(t, err, "open store")
	return s
}

func TestRateLimiter_CooldownBlocksRepeatWithinSixHours(t *testing.T) {
	s := openTestStore(t)
	defer s.Close()
	r := NewRateLimiter(s)

	t1 := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	assert.True(t, r.ShouldSend(2, 15, t1), "first emission should be permitted")
	assert.False(t, r.ShouldSend(2, 15, t1.Add(3*time.Hour)), "repeat inside cooldown should be denied")
	assert.True(t, r.ShouldSend(2, 15, t1.Add(7*time.Hour)), "repeat past cooldown should be permitted")
}

func TestRateLimiter_SurvivesRestartViaPersistedState(t *testing.T) {
	s := openTestStore(t)
	defer s.Close()

	t1 := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	first := NewRateLimiter(s)
	require.True(t, first.ShouldSend(2, 15, t1), "first emission should be permitted")

	second := NewRateLimiter(s)
	assert.False(t, second.ShouldSend(2, 15, t1.Add(3*time.Hour)),
		"a freshly constructed limiter should still honour the persisted cooldown")
}

func TestRateLimiter_EscalationAlwaysPermitsHigherTier(t *testing.T) {
	s := openTestStore(t)
	defer s.Close()
	r := NewRateLimiter(s)

	t1 := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	require.True(t, r.ShouldSend(1, 15, t1), "initial level-1 emission should be permitted")
	assert.True(t, r.ShouldSend(3, 15, t1.Add(time.Minute)), "escalation to a higher tier should always be permitted")
}

func TestRateLimiter_LearningPhaseBlocksBelowSevenDays(t *testing.T) {
	s := openTestStore(t)
	defer s.Close()
	r := NewRateLimiter(s)

	assert.False(t, r.ShouldSend(1, 5, time.Now()), "train_days < 7 should never send")
}

func TestRateLimiter_MidLearningCapsAboveLevelOne(t *testing.T) {
	s := openTestStore(t)
	defer s.Close()
	r := NewRateLimiter(s)

	assert.False(t, r.ShouldSend(2, 10, time.Now()), "train_days < 15 should cap alerts at level 1")
}

func TestRateLimiter_MorningCountSurvivesRestart(t *testing.T) {
	s := openTestStore(t)
	defer s.Close()

	first := NewRateLimiter(s)
	assert.True(t, first.ShouldSendMorning("2026-01-20"))
	assert.True(t, first.ShouldSendMorning("2026-01-20"))
	require.False(t, first.ShouldSendMorning("2026-01-20"), "third morning alert same day should be capped")

	second := NewRateLimiter(s)
	assert.False(t, second.ShouldSendMorning("2026-01-20"),
		"a freshly constructed limiter should still honour the persisted per-day count")
	assert.True(t, second.ShouldSendMorning("2026-01-21"), "a new date is unaffected by a prior day's count")
}

func TestGenerateExplanation_InsufficientHistoryFallback(t *testing.T) {
	s := openTestStore(t)
	defer s.Close()

	ds := store.DailyScore{Date: "2026-01-20", TrainDays: 20}
	require.NoError(t, s.InsertDailyScore(ds))

	text, err := GenerateExplanation(s, "2026-01-20")
	require.NoError(t, err)
	assert.Equal(t, "Not enough history yet for a detailed analysis.", text)
}

func TestGenerateExplanation_FlagsLowChannelAndTotalActivity(t *testing.T) {
	s := openTestStore(t)
	defer s.Close()

	for i := 0; i < 5; i++ {
		date := "2026-01-0" + string(rune('1'+i))
		ds := store.DailyScore{
			Date: date, TrainDays: 20,
			Metrics: store.DailyMetrics{NLLPresence: 10, NLLFridge: 10, NLLBathroom: 10, NLLDoor: 10},
		}
		require.NoError(t, s.InsertDailyScore(ds), "insert baseline")
	}

	target := store.DailyScore{
		Date: "2026-01-20", TrainDays: 20,
		Metrics: store.DailyMetrics{
			NLLPresence: 20, NLLFridge: 10, NLLBathroom: 10, NLLDoor: 10,
			CountZ: -3.0, ObservedCount: 2, ExpectedCount: 40,
		},
	}
	require.NoError(t, s.InsertDailyScore(target))

	text, err := GenerateExplanation(s, "2026-01-20")
	require.NoError(t, err)
	assert.Contains(t, text, "Motion sensor activity is lower than expected.")
	assert.Contains(t, text, "Total activity is very low")
}

func TestManager_HandleWeeklyTrend_NoOpWithinThresholds(t *testing.T) {
	s := openTestStore(t)
	defer s.Close()
	cfg := config.Default()
	n := messenger.New(cfg.Messenger)
	m := New(s, n, cfg)

	flatBath, flatPres := 0.01, -0.01
	m.HandleWeeklyTrend(trend.Report{"bathroom": &flatBath, "presence": &flatPres})
}

func TestRenderTrendReport_FlagsRisingBathroomUse(t *testing.T) {
	cfg := config.Default()
	rising := cfg.System.TrendBathroomThreshold + 1.0
	report := trend.Report{"bathroom": &rising}

	var lines []string
	if slope := report["bathroom"]; slope != nil && *slope > cfg.System.TrendBathroomThreshold {
		lines = append(lines, RenderTrendLine("bathroom", cfg.System.TrendAnalysisDays, *slope, true))
	}
	text := RenderTrendReport(lines)
	assert.Contains(t, text, "Rising trend in bathroom activity")
}

func TestManager_HandleDailyScore_SkipsWhenAlertLevelZero(t *testing.T) {
	s := openTestStore(t)
	defer s.Close()
	cfg := config.Default()
	n := messenger.New(cfg.Messenger)
	m := New(s, n, cfg)

	require.NoError(t, s.InsertDailyScore(store.DailyScore{Date: "2026-01-20", TrainDays: 20, AlertLevel: 0}))
	assert.NoError(t, m.HandleDailyScore("2026-01-20"))
}

func TestManager_EmitWithAck_CreatesPendingAlert(t *testing.T) {
	s := openTestStore(t)
	defer s.Close()
	cfg := config.Default()
	n := messenger.New(cfg.Messenger)
	m := New(s, n, cfg)

	require.NoError(t, s.InsertDailyScore(store.DailyScore{Date: "2026-01-20", TrainDays: 20, AlertLevel: 3, CompositeZ: 5.0}))
	require.NoError(t, m.HandleDailyScore("2026-01-20"))

	expired, err := s.ExpiredPendingAlerts(time.Now().Add(time.Hour).Format("2006-01-02T15:04:05"))
	require.NoError(t, err)
	assert.Len(t, expired, 1)
}

func TestRunEscalationCheck_NoOpWithoutEmergencyContacts(t *testing.T) {
	s := openTestStore(t)
	defer s.Close()
	cfg := config.Default()
	n := messenger.New(cfg.Messenger)

	id, err := s.CreatePendingAlert(3, "emergency", "2026-01-01T00:00:00")
	require.NoError(t, err)

	now := time.Date(2026, 1, 1, 1, 0, 0, 0, time.UTC)
	require.NoError(t, RunEscalationCheck(s, n, cfg, now))

	expired, err := s.ExpiredPendingAlerts(now.Format("2006-01-02T15:04:05"))
	require.NoError(t, err)
	if assert.Len(t, expired, 1, "expected the alert to remain pending with no emergency contacts configured") {
		assert.Equal(t, id, expired[0].ID)
	}
}

func TestRunEscalationCheck_EscalatesExpiredAlert(t *testing.T) {
	s := openTestStore(t)
	defer s.Close()
	cfg := config.Default()
	cfg.Messenger.EmergencyChatIDs = []string{"999"}
	n := messenger.New(cfg.Messenger)

	id, err := s.CreatePendingAlert(3, "emergency", "2026-01-01T00:00:00")
	require.NoError(t, err)

	now := time.Date(2026, 1, 1, 0, 15, 0, 0, time.UTC)
	require.NoError(t, RunEscalationCheck(s, n, cfg, now))

	expired, err := s.ExpiredPendingAlerts(now.Format("2006-01-02T15:04:05"))
	require.NoError(t, err)
	assert.Empty(t, expired, "expected no remaining pending alerts after escalation")

	assert.Error(t, s.AcknowledgePendingAlert(id), "expected ack of an already-escalated alert to fail")
}
