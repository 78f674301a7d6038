// Package telegram adapts tgbotapi to the operations the bot needs.
package telegram

import (
	"context"
	"fmt"

	"github.com/channelactions-tgbot-go/internal/services/cache"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// API is the part of *tgbotapi.BotAPI the bot uses.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetChat(config tgbotapi.ChatInfoConfig) (tgbotapi.Chat, error)
	GetChatMember(config tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error)
	CopyMessage(config tgbotapi.CopyMessageConfig) (tgbotapi.MessageID, error)
}

// Client wraps API with the domain calls of the bot.
type Client struct {
	api    API
	chats  cache.Service
	logger *logrus.Logger
}

// NewClient creates a new platform client
func NewClient(api API, chats cache.Service, logger *logrus.Logger) *Client {
	return &Client{
		api:    api,
		chats:  chats,
		logger: logger,
	}
}

// Send sends a message config as is.
func (c *Client) Send(msg tgbotapi.Chattable) (tgbotapi.Message, error) {
	return c.api.Send(msg)
}

// Request performs a call whose result is not needed.
func (c *Client) Request(req tgbotapi.Chattable) error {
	_, err := c.api.Request(req)
	return err
}

// ApproveJoinRequest approves userID's pending request to join chatID.
func (c *Client) ApproveJoinRequest(ctx context.Context, chatID, userID int64) error {
	_, err := c.api.Request(tgbotapi.ApproveChatJoinRequestConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: chatID},
		UserID:     userID,
	})
	return err
}

// DeclineJoinRequest declines userID's pending request to join chatID.
func (c *Client) DeclineJoinRequest(ctx context.Context, chatID, userID int64) error {
	_, err := c.api.Request(tgbotapi.DeclineChatJoinRequest{
		ChatConfig: tgbotapi.ChatConfig{ChatID: chatID},
		UserID:     userID,
	})
	return err
}

// SendText sends plain text to chatID.
func (c *Client) SendText(ctx context.Context, chatID int64, text string) error {
	_, err := c.api.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

// CopyMessage copies messageID from fromChatID into toChatID, keeping its inline keyboard.
func (c *Client) CopyMessage(ctx context.Context, toChatID, fromChatID int64, messageID int, markup *tgbotapi.InlineKeyboardMarkup) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	copyCfg := tgbotapi.NewCopyMessage(toChatID, fromChatID, messageID)
	if markup != nil {
		copyCfg.ReplyMarkup = markup
	}

	_, err := c.api.CopyMessage(copyCfg)
	return err
}

// EditText replaces the text of a message the bot sent.
func (c *Client) EditText(ctx context.Context, chatID int64, messageID int, text string) error {
	_, err := c.api.Send(tgbotapi.NewEditMessageText(chatID, messageID, text))
	return err
}

// ChatTitle returns the title of chatID, served from the chat cache when possible.
func (c *Client) ChatTitle(ctx context.Context, chatID int64) (string, error) {
	return c.chats.Title(ctx, chatID, c.fetchTitle)
}

func (c *Client) fetchTitle(ctx context.Context, chatID int64) (string, error) {
	chat, err := c.api.GetChat(tgbotapi.ChatInfoConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: chatID},
	})
	if err != nil {
		return "", fmt.Errorf("failed to get chat %d: %w", chatID, err)
	}
	return chat.Title, nil
}

// MemberStatus returns the membership status of userID in chatID
// ("creator", "administrator", "member", ...).
func (c *Client) MemberStatus(ctx context.Context, chatID, userID int64) (string, error) {
	member, err := c.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			ChatID: chatID,
			UserID: userID,
		},
	})
	if err != nil {
		// The bot may have been removed or the chat renamed; refetch the title next time
		c.chats.Forget(chatID)
		return "", err
	}
	return member.Status, nil
}

// IsAdminStatus reports whether a membership status grants chat administration.
func IsAdminStatus(status string) bool {
	return status == "administrator" || status == "creator"
}
