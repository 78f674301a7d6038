package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// AllowedUpdates are the update kinds the bot subscribes to.
var AllowedUpdates = []string{"message", "callback_query", "chat_join_request"}

// ChatShared is the service message sent when a user picks a chat from a request_chat button.
type ChatShared struct {
	RequestID int   `json:"request_id"`
	ChatID    int64 `json:"chat_id"`
}

// Update is a tgbotapi.Update plus the fields the library does not decode.
type Update struct {
	tgbotapi.Update
	ChatShared *ChatShared
}

// Kind names the update for logging and metrics.
func (u Update) Kind() string {
	switch {
	case u.ChatJoinRequest != nil:
		return "chat_join_request"
	case u.CallbackQuery != nil:
		return "callback_query"
	case u.ChatShared != nil:
		return "chat_shared"
	case u.Message != nil && u.Message.IsCommand():
		return "command"
	case u.Message != nil:
		return "message"
	default:
		return "other"
	}
}

type extraFields struct {
	Message *struct {
		ChatShared *ChatShared `json:"chat_shared"`
	} `json:"message"`
}

// DecodeUpdate decodes a single update object.
func DecodeUpdate(raw []byte) (Update, error) {
	var u Update
	if err := json.Unmarshal(raw, &u.Update); err != nil {
		return Update{}, fmt.Errorf("failed to decode update: %w", err)
	}

	var extra extraFields
	if err := json.Unmarshal(raw, &extra); err != nil {
		return Update{}, fmt.Errorf("failed to decode update: %w", err)
	}
	if extra.Message != nil {
		u.ChatShared = extra.Message.ChatShared
	}
	return u, nil
}

// DecodeUpdates decodes the result array of getUpdates.
func DecodeUpdates(raw json.RawMessage) ([]Update, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("failed to decode updates: %w", err)
	}

	updates := make([]Update, 0, len(items))
	for _, item := range items {
		u, err := DecodeUpdate(item)
		if err != nil {
			return nil, err
		}
		updates = append(updates, u)
	}
	return updates, nil
}

// Poller long-polls getUpdates.
type Poller struct {
	api        API
	timeout    int
	retryDelay time.Duration
	logger     *logrus.Logger
}

// NewPoller creates a long polling update source
func NewPoller(api API, timeout int, logger *logrus.Logger) *Poller {
	return &Poller{
		api:        api,
		timeout:    timeout,
		retryDelay: 3 * time.Second,
		logger:     logger,
	}
}

// Run polls until ctx is cancelled, sending every update to out.
func (p *Poller) Run(ctx context.Context, out chan<- Update) error {
	offset := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		resp, err := p.api.Request(tgbotapi.UpdateConfig{
			Offset:         offset,
			Timeout:        p.timeout,
			AllowedUpdates: AllowedUpdates,
		})
		if err != nil {
			p.logger.WithError(err).Warn("Failed to get updates, retrying")
			if !p.sleep(ctx) {
				return ctx.Err()
			}
			continue
		}

		updates, err := DecodeUpdates(resp.Result)
		if err != nil {
			p.logger.WithError(err).Error("Failed to decode updates")
			if !p.sleep(ctx) {
				return ctx.Err()
			}
			continue
		}

		for _, u := range updates {
			if u.UpdateID >= offset {
				offset = u.UpdateID + 1
			}
			select {
			case out <- u:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

func (p *Poller) sleep(ctx context.Context) bool {
	t := time.NewTimer(p.retryDelay)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// WebhookHandler decodes updates pushed by Telegram and forwards them to out.
func WebhookHandler(out chan<- Update, logger *logrus.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		u, err := DecodeUpdate(body)
		if err != nil {
			logger.WithError(err).Warn("Rejected webhook payload")
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		select {
		case out <- u:
			w.WriteHeader(http.StatusOK)
		case <-r.Context().Done():
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}
}
