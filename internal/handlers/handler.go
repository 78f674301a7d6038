// Package handlers routes Telegram updates to the bot's services.
package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/channelactions-tgbot-go/internal/config"
	"github.com/channelactions-tgbot-go/internal/middleware"
	"github.com/channelactions-tgbot-go/internal/services/broadcast"
	"github.com/channelactions-tgbot-go/internal/services/conversation"
	"github.com/channelactions-tgbot-go/internal/services/joinrequest"
	"github.com/channelactions-tgbot-go/internal/services/storage"
	"github.com/channelactions-tgbot-go/internal/telegram"
	"github.com/channelactions-tgbot-go/pkg/markdown"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// Bot is the platform surface the handlers talk to. *telegram.Client implements it.
type Bot interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) error
	EditText(ctx context.Context, chatID int64, messageID int, text string) error
	ChatTitle(ctx context.Context, chatID int64) (string, error)
	MemberStatus(ctx context.Context, chatID, userID int64) (string, error)
}

// Translator resolves localized copy. *i18n.Localizer implements it.
type Translator interface {
	Get(lang, messageID string, data map[string]interface{}) string
	Languages() []string
	DefaultLanguage() string
	Supports(lang string) bool
}

// Handler handles every update kind the bot subscribes to
type Handler struct {
	bot           Bot
	config        *config.Config
	storage       *storage.Manager
	joinRequests  *joinrequest.Engine
	conversations *conversation.Manager
	broadcasts    *broadcast.Engine
	rateLimiter   middleware.RateLimiter
	localizer     Translator
	metrics       *middleware.Metrics
	logger        *logrus.Logger
	startedAt     time.Time
	spawn         func(func())
	background    sync.WaitGroup
}

// NewHandler creates a new update handler
func NewHandler(
	bot Bot,
	cfg *config.Config,
	storage *storage.Manager,
	joinRequests *joinrequest.Engine,
	conversations *conversation.Manager,
	broadcasts *broadcast.Engine,
	rateLimiter middleware.RateLimiter,
	localizer Translator,
	metrics *middleware.Metrics,
	logger *logrus.Logger,
) *Handler {
	h := &Handler{
		bot:           bot,
		config:        cfg,
		storage:       storage,
		joinRequests:  joinRequests,
		conversations: conversations,
		broadcasts:    broadcasts,
		rateLimiter:   rateLimiter,
		localizer:     localizer,
		metrics:       metrics,
		logger:        logger,
		startedAt:     time.Now(),
	}
	h.spawn = h.runBackground
	return h
}

func (h *Handler) runBackground(f func()) {
	h.background.Add(1)
	go func() {
		defer h.background.Done()
		f()
	}()
}

// Wait blocks until background work started by handlers, such as broadcast runs, has finished.
func (h *Handler) Wait() {
	h.background.Wait()
}

// HandleUpdate processes a single update to completion.
func (h *Handler) HandleUpdate(ctx context.Context, update telegram.Update) error {
	h.metrics.RecordUpdateReceived(update.Kind())

	var err error
	switch {
	case update.ChatJoinRequest != nil:
		err = h.HandleJoinRequest(ctx, update.ChatJoinRequest)
	case update.CallbackQuery != nil:
		err = h.HandleCallbackQuery(ctx, update.CallbackQuery)
	case update.Message != nil && update.ChatShared != nil:
		err = h.HandleChatShared(ctx, update.Message, update.ChatShared)
	case update.Message != nil && update.Message.IsCommand():
		err = h.HandleCommand(ctx, update.Message)
	case update.Message != nil:
		err = h.HandleMessage(ctx, update.Message)
	default:
		return nil
	}

	if err != nil {
		h.metrics.RecordUpdateProcessed("error")
		return err
	}
	h.metrics.RecordUpdateProcessed("success")
	return nil
}

// HandleJoinRequest applies the chat's policy to a pending join request
func (h *Handler) HandleJoinRequest(ctx context.Context, req *tgbotapi.ChatJoinRequest) error {
	_, err := h.joinRequests.Handle(ctx, joinRequestFrom(req))
	return err
}

// trackUser records userID as a known user. Failures only cost a broadcast recipient.
func (h *Handler) trackUser(ctx context.Context, userID int64) {
	if err := h.storage.TrackUser(ctx, userID); err != nil {
		h.logger.WithError(err).WithField("user_id", userID).Warn("Failed to track user")
	}
}

func (h *Handler) language(ctx context.Context, userID int64) string {
	return h.storage.Language(ctx, userID, h.localizer.DefaultLanguage())
}

// allow applies the per-user rate limit.
func (h *Handler) allow(userID int64) bool {
	return h.rateLimiter == nil || h.rateLimiter.Allow(userID)
}

// reply sends plain text with an optional keyboard.
func (h *Handler) reply(chatID int64, text string, keyboard interface{}) (tgbotapi.Message, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	if keyboard != nil {
		msg.ReplyMarkup = keyboard
	}
	return h.bot.Send(msg)
}

// replyMarkdown sends markdown copy rendered as Telegram HTML.
func (h *Handler) replyMarkdown(chatID int64, text string, keyboard interface{}) (tgbotapi.Message, error) {
	msg := tgbotapi.NewMessage(chatID, markdown.ToTelegramHTML(text))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if keyboard != nil {
		msg.ReplyMarkup = keyboard
	}
	return h.bot.Send(msg)
}

// edit replaces a message's text and keyboard. html marks markdown copy.
func (h *Handler) edit(chatID int64, messageID int, text string, html bool, keyboard *tgbotapi.InlineKeyboardMarkup) error {
	if html {
		text = markdown.ToTelegramHTML(text)
	}

	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	if html {
		edit.ParseMode = tgbotapi.ModeHTML
		edit.DisableWebPagePreview = true
	}
	edit.ReplyMarkup = keyboard

	_, err := h.bot.Send(edit)
	return err
}

func (h *Handler) answerCallback(callbackID, text string) {
	if err := h.bot.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		h.logger.WithError(err).Debug("Failed to answer callback query")
	}
}
