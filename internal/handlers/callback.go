package handlers

import (
	"context"

	"github.com/channelactions-tgbot-go/internal/i18n"
	"github.com/channelactions-tgbot-go/internal/telegram"
	"github.com/channelactions-tgbot-go/pkg/markdown"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// HandleCallbackQuery processes inline keyboard callbacks
func (h *Handler) HandleCallbackQuery(ctx context.Context, callback *tgbotapi.CallbackQuery) error {
	if callback.From == nil {
		return nil
	}
	userID := callback.From.ID
	h.trackUser(ctx, userID)

	lang := h.language(ctx, userID)

	if !h.allow(userID) {
		h.answerCallback(callback.ID, h.localizer.Get(lang, i18n.MsgRateLimitExceeded, nil))
		return nil
	}

	action, err := ParseAction(callback.Data)
	if err != nil {
		h.logger.WithError(err).WithField("user_id", userID).Warn("Ignoring callback")
		h.answerCallback(callback.ID, "")
		return nil
	}

	h.answerCallback(callback.ID, "")

	// Inline-mode messages carry no chat; nothing to edit
	if callback.Message == nil || callback.Message.Chat == nil {
		return nil
	}
	chatID := callback.Message.Chat.ID
	messageID := callback.Message.MessageID

	h.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"action":  action.Kind,
	}).Debug("Callback received")

	switch action.Kind {
	case ActionHelp:
		keyboard := h.createHelpKeyboard(lang)
		return h.edit(chatID, messageID, h.localizer.Get(lang, i18n.MsgHelp, nil), true, &keyboard)

	case ActionMenu:
		text := h.localizer.Get(lang, i18n.MsgStart, map[string]interface{}{
			"User": markdown.Escape(callback.From.FirstName),
		})
		keyboard := h.createMainMenuKeyboard(lang)
		return h.edit(chatID, messageID, text, true, &keyboard)

	case ActionAdd:
		keyboard := h.createAddToKeyboard(lang, action.Target)
		return h.edit(chatID, messageID, h.localizer.Get(lang, i18n.MsgAddTo, nil), false, &keyboard)

	case ActionSelect:
		return h.handleSelect(chatID, messageID, action.Target, lang)

	case ActionSettings:
		if !h.requireAdmin(ctx, chatID, action.ChatID, userID, lang) {
			return nil
		}
		return h.showSettings(ctx, chatID, messageID, action.ChatID, lang)

	case ActionApprove, ActionDecline:
		if !h.requireAdmin(ctx, chatID, action.ChatID, userID, lang) {
			return nil
		}
		return h.setApproval(ctx, chatID, messageID, action.ChatID, action.Kind == ActionApprove, lang)

	case ActionWelcome:
		if !h.requireAdmin(ctx, chatID, action.ChatID, userID, lang) {
			return nil
		}
		h.conversations.Begin(userID, action.ChatID)
		return h.edit(chatID, messageID, h.localizer.Get(lang, i18n.MsgWelcomePrompt, nil), false, nil)

	case ActionLanguages:
		keyboard := h.createLanguageKeyboard(lang)
		return h.edit(chatID, messageID, h.localizer.Get(lang, i18n.MsgChooseLanguage, nil), false, &keyboard)

	case ActionLanguage:
		return h.setLanguage(ctx, chatID, messageID, userID, action.Lang)
	}

	return nil
}

// handleSelect replaces the menu with a reply keyboard that shares the chosen chat
func (h *Handler) handleSelect(chatID int64, messageID int, kind, lang string) error {
	data := map[string]interface{}{"Kind": kind}
	keyboard := telegram.NewChatRequestKeyboard(h.localizer.Get(lang, i18n.MsgSelectButton, data), kind)

	if _, err := h.reply(chatID, h.localizer.Get(lang, i18n.MsgSelectChat, data), keyboard); err != nil {
		return err
	}

	if err := h.bot.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		h.logger.WithError(err).Debug("Failed to delete menu message")
	}
	return nil
}

func (h *Handler) setLanguage(ctx context.Context, chatID int64, messageID int, userID int64, lang string) error {
	if !h.localizer.Supports(lang) {
		h.logger.WithField("lang", lang).Warn("Unsupported language selected")
		return nil
	}

	if err := h.storage.SetLanguage(ctx, userID, lang); err != nil {
		h.logger.WithError(err).Error("Failed to save language")
		_, err := h.reply(chatID, h.localizer.Get(lang, i18n.MsgError, nil), nil)
		return err
	}

	text := h.localizer.Get(lang, i18n.MsgLanguageSet, map[string]interface{}{
		"Language": lang,
	})
	keyboard := h.createLanguageKeyboard(lang)
	return h.edit(chatID, messageID, text, false, &keyboard)
}
