package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/channelactions-tgbot-go/internal/i18n"
	"github.com/channelactions-tgbot-go/internal/services/broadcast"
	"github.com/channelactions-tgbot-go/pkg/markdown"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// setupPayload is the deep-link start parameter of the add-to-chat links.
const setupPayload = "setup"

// ownerCommands are ignored without a reply for everyone outside the owner set.
var ownerCommands = map[string]bool{
	"stats":     true,
	"broadcast": true,
}

// HandleCommand processes telegram commands
func (h *Handler) HandleCommand(ctx context.Context, message *tgbotapi.Message) error {
	if message.From == nil {
		return nil
	}

	chatID := message.Chat.ID
	userID := message.From.ID
	command := message.Command()
	private := message.Chat.IsPrivate()

	if private {
		h.trackUser(ctx, userID)
	}

	if ownerCommands[command] && !h.config.IsOwner(userID) {
		return nil
	}

	lang := h.language(ctx, userID)

	if !h.allow(userID) {
		if private {
			_, err := h.reply(chatID, h.localizer.Get(lang, i18n.MsgRateLimitExceeded, nil), nil)
			return err
		}
		return nil
	}

	h.metrics.RecordCommandExecuted(command)

	switch command {
	case "start":
		if !private {
			return h.handleGroupStart(chatID, message.CommandArguments(), lang)
		}
		return h.handleStart(chatID, message.From.FirstName, lang)
	case "help":
		if !private {
			return nil
		}
		_, err := h.replyMarkdown(chatID, h.localizer.Get(lang, i18n.MsgHelp, nil), h.createHelpKeyboard(lang))
		return err
	case "stats":
		return h.handleStats(ctx, chatID, lang)
	case "broadcast":
		return h.handleBroadcast(ctx, message, lang)
	case "cancel":
		return h.handleCancel(chatID, userID, lang)
	default:
		return nil
	}
}

// handleStart handles /start in private chats
func (h *Handler) handleStart(chatID int64, firstName, lang string) error {
	text := h.localizer.Get(lang, i18n.MsgStart, map[string]interface{}{
		"User": markdown.Escape(firstName),
	})
	_, err := h.replyMarkdown(chatID, text, h.createMainMenuKeyboard(lang))
	return err
}

// handleGroupStart answers the setup deep link after the bot is added to a group
func (h *Handler) handleGroupStart(chatID int64, args, lang string) error {
	if strings.TrimSpace(args) != setupPayload {
		return nil
	}
	_, err := h.reply(chatID, h.localizer.Get(lang, i18n.MsgContinueInPM, nil), h.createContinueKeyboard(lang))
	return err
}

// handleStats handles /stats for owners
func (h *Handler) handleStats(ctx context.Context, chatID int64, lang string) error {
	status, err := h.reply(chatID, h.localizer.Get(lang, i18n.MsgCalculating, nil), nil)
	if err != nil {
		return err
	}

	users, err := h.storage.CountUsers(ctx)
	if err != nil {
		h.logger.WithError(err).Error("Failed to count users")
	}
	chats, err := h.storage.CountChats(ctx)
	if err != nil {
		h.logger.WithError(err).Error("Failed to count chats")
	}

	text := h.localizer.Get(lang, i18n.MsgStats, map[string]interface{}{
		"Username":  markdown.Escape(h.config.Bot.Username),
		"Users":     users,
		"Chats":     chats,
		"Processed": h.joinRequests.Processed(),
		"Uptime":    formatUptime(time.Since(h.startedAt)),
	})
	return h.edit(chatID, status.MessageID, text, true, nil)
}

// formatUptime renders d as "1d 2h 3m 4s.", omitting leading zero units.
func formatUptime(d time.Duration) string {
	total := int64(d.Seconds())
	days := total / 86400
	hours := total % 86400 / 3600
	minutes := total % 3600 / 60
	seconds := total % 60

	var b strings.Builder
	if days > 0 {
		fmt.Fprintf(&b, "%dd ", days)
	}
	if hours > 0 {
		fmt.Fprintf(&b, "%dh ", hours)
	}
	if minutes > 0 {
		fmt.Fprintf(&b, "%dm ", minutes)
	}
	fmt.Fprintf(&b, "%ds.", seconds)
	return b.String()
}

// handleCancel ends an open welcome-message conversation
func (h *Handler) handleCancel(chatID, userID int64, lang string) error {
	id := i18n.MsgNothingToCancel
	if h.conversations.Cancel(userID) {
		id = i18n.MsgCancelled
	}
	_, err := h.reply(chatID, h.localizer.Get(lang, id, nil), nil)
	return err
}

// handleBroadcast copies the replied-to message to every known user.
// The run continues in the background; the status message is edited as it goes.
func (h *Handler) handleBroadcast(ctx context.Context, message *tgbotapi.Message, lang string) error {
	chatID := message.Chat.ID
	source := message.ReplyToMessage
	if source == nil {
		_, err := h.reply(chatID, h.localizer.Get(lang, i18n.MsgBroadcastReply, nil), nil)
		return err
	}

	if h.broadcasts.Running() {
		_, err := h.reply(chatID, h.localizer.Get(lang, i18n.MsgBroadcastBusy, nil), nil)
		return err
	}

	status, err := h.reply(chatID, h.localizer.Get(lang, i18n.MsgBroadcastWait, nil), nil)
	if err != nil {
		return err
	}

	req := broadcast.Request{
		SourceChatID: chatID,
		MessageID:    source.MessageID,
		ReplyMarkup:  source.ReplyMarkup,
	}

	h.spawn(func() {
		h.runBroadcast(ctx, chatID, status.MessageID, req, lang)
	})
	return nil
}

func (h *Handler) runBroadcast(ctx context.Context, chatID int64, statusID int, req broadcast.Request, lang string) {
	progress := func(ctx context.Context, r broadcast.Report) error {
		return h.bot.EditText(ctx, chatID, statusID, h.localizer.Get(lang, i18n.MsgBroadcastStatus, map[string]interface{}{
			"Sent":    r.Sent,
			"Total":   r.TotalUsers,
			"Blocked": r.Blocked,
		}))
	}

	report, err := h.broadcasts.Run(ctx, req, progress)

	var text string
	switch {
	case errors.Is(err, broadcast.ErrAlreadyRunning):
		text = h.localizer.Get(lang, i18n.MsgBroadcastBusy, nil)
	case err != nil:
		h.logger.WithError(err).WithField("run_id", report.ID).Error("Broadcast failed")
		text = h.localizer.Get(lang, i18n.MsgError, nil)
	default:
		text = h.localizer.Get(lang, i18n.MsgBroadcastDone, map[string]interface{}{
			"Total":   report.TotalUsers,
			"Sent":    report.Sent,
			"Blocked": report.Blocked,
			"Unknown": report.UnknownFailures(),
		})
	}

	if err := h.bot.EditText(context.WithoutCancel(ctx), chatID, statusID, text); err != nil {
		h.logger.WithError(err).WithFields(logrus.Fields{
			"chat_id": chatID,
			"run_id":  report.ID,
		}).Warn("Failed to report broadcast result")
	}
}
