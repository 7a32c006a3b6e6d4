// Package messenger is the Telegram-shaped outbound/inbound notification
// channel. A disabled notifier (empty token) silently no-ops on every
// send so the rest of the daemon never has to special-case it.
package messenger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/BBBoring2025/annem-guvende/internal/config"
	"github.com/BBBoring2025/annem-guvende/internal/logger"
)

const apiBase = "https://api.telegram.org"

// Notifier sends and polls messages through the Telegram Bot API.
type Notifier struct {
	http    *http.Client
	token   string
	chatIDs []string
	enabled bool
}

// New builds a Notifier from the messenger config section. An empty
// bot_token yields a disabled notifier.
func New(cfg config.Messenger) *Notifier {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 5,
		IdleConnTimeout:     90 * time.Second,
	}
	n := &Notifier{
		http:    &http.Client{Timeout: 10 * time.Second, Transport: transport},
		token:   cfg.BotToken,
		chatIDs: cfg.ChatIDs,
		enabled: cfg.BotToken != "",
	}
	if !n.enabled {
		logger.Warn("Messenger", "bot_token not configured - notifications disabled")
	}
	return n
}

// Enabled reports whether this notifier will actually deliver anything.
func (n *Notifier) Enabled() bool {
	return n.enabled
}

func (n *Notifier) url(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", apiBase, n.token, method)
}

type inlineKeyboardMarkup struct {
	InlineKeyboard [][]inlineButton `json:"inline_keyboard"`
}

type inlineButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data"`
}

// Send delivers a plain HTML-formatted message to one chat id. Returns
// false on any transport error, non-200 response, or when disabled.
func (n *Notifier) Send(chatID, text string) bool {
	return n.send(chatID, text, nil)
}

// SendWithAck delivers a message with a single inline "I saw it" button
// whose callback payload is ack_<alertID>, used for level-3 escalating
// alerts.
func (n *Notifier) SendWithAck(chatID, text string, alertID int64) bool {
	markup := &inlineKeyboardMarkup{
		InlineKeyboard: [][]inlineButton{{{
			Text:         "I saw it",
			CallbackData: fmt.Sprintf("ack_%d", alertID),
		}}},
	}
	return n.send(chatID, text, markup)
}

func (n *Notifier) send(chatID, text string, markup *inlineKeyboardMarkup) bool {
	if !n.enabled {
		return false
	}

	payload := map[string]any{
		"chat_id":    chatID,
		"text":       text,
		"parse_mode": "HTML",
	}
	if markup != nil {
		payload["reply_markup"] = markup
	}

	body, err := json.Marshal(payload)
	if err != nil {
		logger.Error("Messenger", fmt.Sprintf("encode message: %v", err))
		return false
	}

	resp, err := n.http.Post(n.url("sendMessage"), "application/json", bytes.NewReader(body))
	if err != nil {
		logger.Error("Messenger", fmt.Sprintf("send to %s: %v", chatID, err))
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		logger.Error("Messenger", fmt.Sprintf("telegram status=%d body=%s", resp.StatusCode, b))
		return false
	}
	return true
}

// SendToAll delivers text to every configured chat id, returning a
// per-chat success map.
func (n *Notifier) SendToAll(text string) map[string]bool {
	results := make(map[string]bool, len(n.chatIDs))
	for _, id := range n.chatIDs {
		results[id] = n.Send(id, text)
	}
	return results
}
