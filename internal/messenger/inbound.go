package messenger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// Update is the subset of a Telegram getUpdates result the daemon cares
// about: a plain text message, or a callback_query from an inline button.
type Update struct {
	UpdateID int64 `json:"update_id"`
	Message  *struct {
		Chat struct {
			ID json.Number `json:"id"`
		} `json:"chat"`
		Text string `json:"text"`
	} `json:"message"`
	CallbackQuery *struct {
		ID   string `json:"id"`
		From struct {
			ID json.Number `json:"id"`
		} `json:"from"`
		Message struct {
			Chat struct {
				ID json.Number `json:"id"`
			} `json:"chat"`
		} `json:"message"`
		Data string `json:"data"`
	} `json:"callback_query"`
}

type getUpdatesResponse struct {
	OK     bool     `json:"ok"`
	Result []Update `json:"result"`
}

// PollInbound fetches updates since offset and returns them along with
// the next offset to poll from. Returns the same offset and an empty
// slice when disabled or on any transport error — callers treat that as
// "nothing new", and the next scheduled poll retries.
func (n *Notifier) PollInbound(offset int64) ([]Update, int64) {
	if !n.enabled {
		return nil, offset
	}

	url := n.url("getUpdates") + "?timeout=5&allowed_updates=%5B%22message%22%2C%22callback_query%22%5D"
	if offset > 0 {
		url += fmt.Sprintf("&offset=%d", offset)
	}

	resp, err := n.http.Get(url)
	if err != nil {
		return nil, offset
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, offset
	}

	var parsed getUpdatesResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil || !parsed.OK {
		return nil, offset
	}

	newOffset := offset
	for _, u := range parsed.Result {
		if u.UpdateID >= newOffset {
			newOffset = u.UpdateID + 1
		}
	}
	return parsed.Result, newOffset
}

// IsKnownChat reports whether chatID is one of the configured recipients.
func (n *Notifier) IsKnownChat(chatID string) bool {
	for _, id := range n.chatIDs {
		if id == chatID {
			return true
		}
	}
	return false
}

// AckCallbackAlertID parses an "ack_<id>" callback payload, returning the
// alert id and true on success.
func AckCallbackAlertID(data string) (int64, bool) {
	const prefix = "ack_"
	if !strings.HasPrefix(data, prefix) {
		return 0, false
	}
	var id int64
	if _, err := fmt.Sscanf(data[len(prefix):], "%d", &id); err != nil {
		return 0, false
	}
	return id, true
}

// AnswerCallback clears the loading spinner on an inline button press.
// Telegram requires this call even when the sender is unauthorized, so
// their client stops showing the button as pending.
func (n *Notifier) AnswerCallback(callbackQueryID, text string) {
	if !n.enabled {
		return
	}
	url := n.url("answerCallbackQuery")
	body, _ := json.Marshal(map[string]string{
		"callback_query_id": callbackQueryID,
		"text":              text,
	})
	resp, err := n.http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return
	}
	resp.Body.Close()
}
