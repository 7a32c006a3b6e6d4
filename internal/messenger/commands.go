package messenger

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/BBBoring2025/annem-guvende/internal/config"
	"github.com/BBBoring2025/annem-guvende/internal/logger"
	"github.com/BBBoring2025/annem-guvende/internal/store"
)

// ProcessInbound polls for new updates, handles ack_<id> callbacks and
// slash commands from known chats, and persists the new offset. Called
// once a minute by the scheduler.
func ProcessInbound(n *Notifier, s *store.Store, cfg *config.Config) error {
	if !n.Enabled() {
		return nil
	}

	lastOffsetStr, err := s.GetState("telegram_last_offset", "0")
	if err != nil {
		return fmt.Errorf("messenger: read offset: %w", err)
	}
	lastOffset, err := strconv.ParseInt(lastOffsetStr, 10, 64)
	if err != nil {
		lastOffset = 0
	}

	updates, newOffset := n.PollInbound(lastOffset)
	if len(updates) == 0 {
		return nil
	}

	for _, u := range updates {
		if u.CallbackQuery != nil {
			handleCallback(n, s, u)
			continue
		}
		if u.Message == nil {
			continue
		}
		chatID := u.Message.Chat.ID.String()
		if !n.IsKnownChat(chatID) {
			logger.Warn("Messenger", fmt.Sprintf("unknown chat_id %s, ignoring", chatID))
			continue
		}
		handleCommand(n, s, cfg, chatID, u.Message.Text)
	}

	if err := s.SetState("telegram_last_offset", strconv.FormatInt(newOffset, 10)); err != nil {
		return fmt.Errorf("messenger: save offset: %w", err)
	}
	return nil
}

func handleCallback(n *Notifier, s *store.Store, u Update) {
	cb := u.CallbackQuery
	alertID, ok := AckCallbackAlertID(cb.Data)
	if !ok {
		n.AnswerCallback(cb.ID, "Understood.")
		return
	}

	chatID := cb.Message.Chat.ID.String()
	if !n.IsKnownChat(chatID) {
		// Unauthorised senders are ignored but still get the loading
		// spinner cleared.
		n.AnswerCallback(cb.ID, "Understood.")
		return
	}

	if err := s.AcknowledgePendingAlert(alertID); err != nil {
		logger.Warn("Messenger", fmt.Sprintf("ack alert %d: %v", alertID, err))
	}
	n.AnswerCallback(cb.ID, "Understood.")
}

func handleCommand(n *Notifier, s *store.Store, cfg *config.Config, chatID, text string) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return
	}
	command := strings.Fields(text)[0]
	command = strings.ToLower(strings.SplitN(command, "@", 2)[0])

	switch command {
	case "/help", "/start":
		handleHelp(n, chatID)
	case "/status":
		handleStatus(n, s, cfg, chatID)
	case "/today":
		handleToday(n, s, chatID)
	case "/vacation":
		handleVacationOn(n, s, chatID)
	case "/home":
		handleVacationOff(n, s, chatID)
	}
}

func handleHelp(n *Notifier, chatID string) {
	n.Send(chatID, "<b>Annem Guvende - Commands</b>\n\n"+
		"/status - system status\n"+
		"/today - today's event counts\n"+
		"/vacation - pause alerting\n"+
		"/home - resume alerting\n"+
		"/help - this message")
}

func handleStatus(n *Notifier, s *store.Store, cfg *config.Config, chatID string) {
	vacation, _ := s.IsVacationMode(cfg.System.VacationMode)
	vacationText := "off"
	if vacation {
		vacationText = "on"
	}

	trainDays := 0
	phase := "learning"
	if summary, err := s.DailyScoreForDate(time.Now().Format("2006-01-02")); err == nil && summary != nil {
		trainDays = summary.TrainDays
	}
	lastEvent, _ := s.LastEventTimestamp("1970-01-01T00:00:00")
	if lastEvent == "" {
		lastEvent = "none yet"
	}

	n.Send(chatID, fmt.Sprintf(
		"<b>System Status</b>\n\nVacation mode: %s\nTraining day: %d\nPhase: %s\nLast event: %s",
		vacationText, trainDays, phase, lastEvent,
	))
}

func handleToday(n *Notifier, s *store.Store, chatID string) {
	today := time.Now().Format("2006-01-02")
	counts, err := s.CountEventsInRange(today+"T00:00:00", today+"T23:59:59")
	if err != nil || len(counts) == 0 {
		n.Send(chatID, "No events recorded yet today.")
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<b>Today's Events</b> - %s\n\n", today)
	total := 0
	for channel, n := range counts {
		fmt.Fprintf(&b, "  %s: %d\n", channel, n)
		total += n
	}
	fmt.Fprintf(&b, "\nTotal: %d", total)
	n.Send(chatID, b.String())
}

func handleVacationOn(n *Notifier, s *store.Store, chatID string) {
	if err := s.SetState("vacation_mode", "true"); err != nil {
		logger.Error("Messenger", fmt.Sprintf("set vacation mode: %v", err))
		return
	}
	n.Send(chatID, "Vacation mode <b>enabled</b>.\nAlerts are paused. Send /home when you're back.")
}

func handleVacationOff(n *Notifier, s *store.Store, chatID string) {
	if err := s.SetState("vacation_mode", "false"); err != nil {
		logger.Error("Messenger", fmt.Sprintf("set vacation mode: %v", err))
		return
	}
	n.Send(chatID, "Vacation mode <b>disabled</b>.\nBack to normal monitoring.")
}
