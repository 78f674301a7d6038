package handlers

import (
	"context"

	"github.com/channelactions-tgbot-go/internal/i18n"
	"github.com/channelactions-tgbot-go/internal/models"
	"github.com/channelactions-tgbot-go/internal/services/conversation"
	"github.com/channelactions-tgbot-go/internal/telegram"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// HandleMessage processes non-command private messages: answers to the
// welcome-message prompt and channel posts forwarded to open settings.
func (h *Handler) HandleMessage(ctx context.Context, message *tgbotapi.Message) error {
	if message.From == nil || message.Chat == nil || !message.Chat.IsPrivate() {
		return nil
	}

	chatID := message.Chat.ID
	userID := message.From.ID
	h.trackUser(ctx, userID)
	lang := h.language(ctx, userID)

	if h.conversations.State(userID) == conversation.StateAwaitingWelcomeText {
		return h.handleWelcomeInput(ctx, chatID, userID, message.Text, lang)
	}

	if fwd := message.ForwardFromChat; fwd != nil && fwd.IsChannel() {
		return h.openSettings(ctx, chatID, fwd.ID, userID, lang)
	}

	return nil
}

// handleWelcomeInput consumes the pending welcome-message conversation.
// Non-text messages end it without writing.
func (h *Handler) handleWelcomeInput(ctx context.Context, chatID, userID int64, text, lang string) error {
	result, err := h.conversations.Submit(ctx, userID, text)
	back := h.createBackKeyboard(lang, Action{Kind: ActionSettings, ChatID: result.ChatID})

	if err != nil {
		h.logger.WithError(err).WithField("chat_id", result.ChatID).Error("Failed to save welcome template")
		_, err := h.reply(chatID, h.localizer.Get(lang, i18n.MsgError, nil), back)
		return err
	}

	switch result.Kind {
	case conversation.ResultEmpty:
		_, err = h.reply(chatID, h.localizer.Get(lang, i18n.MsgProvideText, nil), back)
	case conversation.ResultSaved:
		_, err = h.reply(chatID, h.localizer.Get(lang, i18n.MsgWelcomeSet, map[string]interface{}{
			"Message": result.Text,
		}), back)
	}
	return err
}

// HandleChatShared opens settings for the chat picked from the request_chat keyboard
func (h *Handler) HandleChatShared(ctx context.Context, message *tgbotapi.Message, shared *telegram.ChatShared) error {
	if message.From == nil || message.Chat == nil {
		return nil
	}

	userID := message.From.ID
	h.trackUser(ctx, userID)
	lang := h.language(ctx, userID)

	h.logger.WithField("kind", telegram.KindForRequestID(shared.RequestID)).Debug("Chat shared")
	return h.openSettings(ctx, message.Chat.ID, shared.ChatID, userID, lang)
}

func joinRequestFrom(req *tgbotapi.ChatJoinRequest) models.JoinRequest {
	return models.JoinRequest{
		ChatID:    req.Chat.ID,
		ChatTitle: req.Chat.Title,
		UserID:    req.From.ID,
		UserName:  req.From.FirstName,
	}
}
