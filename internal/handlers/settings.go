package handlers

import (
	"context"
	"strconv"

	"github.com/channelactions-tgbot-go/internal/i18n"
	"github.com/channelactions-tgbot-go/internal/telegram"
	"github.com/channelactions-tgbot-go/pkg/markdown"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// requireAdmin checks live that userID administers targetChatID. On failure the
// user is told why in replyChatID and false is returned.
func (h *Handler) requireAdmin(ctx context.Context, replyChatID, targetChatID, userID int64, lang string) bool {
	log := h.logger.WithFields(logrus.Fields{
		"chat_id": targetChatID,
		"user_id": userID,
	})

	status, err := h.bot.MemberStatus(ctx, targetChatID, userID)
	if err != nil {
		log.WithError(err).Info("Could not verify admin status")
		h.notify(replyChatID, h.localizer.Get(lang, i18n.MsgNoPerms, nil))
		return false
	}

	if !telegram.IsAdminStatus(status) {
		log.WithField("status", status).Info("Settings refused to non-admin")
		h.notify(replyChatID, h.localizer.Get(lang, i18n.MsgNotAdmin, nil))
		return false
	}
	return true
}

func (h *Handler) notify(chatID int64, text string) {
	if _, err := h.reply(chatID, text, nil); err != nil {
		h.logger.WithError(err).WithField("chat_id", chatID).Warn("Failed to send notice")
	}
}

// chatTitle falls back to the numeric ID when getChat fails.
func (h *Handler) chatTitle(ctx context.Context, chatID int64) string {
	title, err := h.bot.ChatTitle(ctx, chatID)
	if err != nil || title == "" {
		if err != nil {
			h.logger.WithError(err).WithField("chat_id", chatID).Warn("Failed to get chat title")
		}
		return strconv.FormatInt(chatID, 10)
	}
	return title
}

func (h *Handler) settingsText(ctx context.Context, chatID int64, lang string) (string, error) {
	settings, err := h.storage.Settings(ctx, chatID)
	if err != nil {
		return "", err
	}

	return h.localizer.Get(lang, i18n.MsgChatSettings, map[string]interface{}{
		"Title":         markdown.Escape(h.chatTitle(ctx, chatID)),
		"AutoApprove":   settings.AutoApprove,
		"CustomWelcome": settings.HasTemplate(),
	}), nil
}

// openSettings is the entry into a chat's settings from a shared or forwarded chat.
// The admin check runs here, then the settings view is sent as a new message.
func (h *Handler) openSettings(ctx context.Context, replyChatID, targetChatID, userID int64, lang string) error {
	if !h.requireAdmin(ctx, replyChatID, targetChatID, userID, lang) {
		return nil
	}

	text, err := h.settingsText(ctx, targetChatID, lang)
	if err != nil {
		h.logger.WithError(err).WithField("chat_id", targetChatID).Error("Failed to load chat settings")
		_, err := h.reply(replyChatID, h.localizer.Get(lang, i18n.MsgError, nil), nil)
		return err
	}

	if _, err := h.replyMarkdown(replyChatID, text, h.createSettingsKeyboard(lang, targetChatID)); err != nil {
		return err
	}

	h.removeReplyKeyboard(replyChatID, lang)
	return nil
}

// removeReplyKeyboard clears the chat-request keyboard with a throwaway message.
func (h *Handler) removeReplyKeyboard(chatID int64, lang string) {
	temp, err := h.reply(chatID, h.localizer.Get(lang, i18n.MsgRemovingKeyboard, nil), tgbotapi.NewRemoveKeyboard(true))
	if err != nil {
		h.logger.WithError(err).Debug("Failed to remove reply keyboard")
		return
	}
	if err := h.bot.Request(tgbotapi.NewDeleteMessage(chatID, temp.MessageID)); err != nil {
		h.logger.WithError(err).Debug("Failed to delete temporary message")
	}
}

// showSettings redraws the settings view in place
func (h *Handler) showSettings(ctx context.Context, chatID int64, messageID int, targetChatID int64, lang string) error {
	text, err := h.settingsText(ctx, targetChatID, lang)
	if err != nil {
		h.logger.WithError(err).WithField("chat_id", targetChatID).Error("Failed to load chat settings")
		return h.edit(chatID, messageID, h.localizer.Get(lang, i18n.MsgError, nil), false, nil)
	}

	keyboard := h.createSettingsKeyboard(lang, targetChatID)
	return h.edit(chatID, messageID, text, true, &keyboard)
}

// setApproval stores the approve/decline policy, which also resets the custom welcome
func (h *Handler) setApproval(ctx context.Context, chatID int64, messageID int, targetChatID int64, approve bool, lang string) error {
	if err := h.storage.SetApproval(ctx, targetChatID, approve); err != nil {
		h.logger.WithError(err).WithField("chat_id", targetChatID).Error("Failed to save approval setting")
		return h.edit(chatID, messageID, h.localizer.Get(lang, i18n.MsgError, nil), false, nil)
	}

	id := i18n.MsgDeclineSet
	if approve {
		id = i18n.MsgApproveSet
	}
	text := h.localizer.Get(lang, id, map[string]interface{}{
		"Title": h.chatTitle(ctx, targetChatID),
	})

	keyboard := h.createBackKeyboard(lang, Action{Kind: ActionSettings, ChatID: targetChatID})
	return h.edit(chatID, messageID, text, false, &keyboard)
}
