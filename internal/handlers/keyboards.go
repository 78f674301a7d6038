package handlers

import (
	"fmt"

	"github.com/channelactions-tgbot-go/internal/i18n"
	"github.com/channelactions-tgbot-go/internal/telegram"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func button(text string, action Action) tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardButtonData(text, action.Data())
}

func (h *Handler) botLink() string {
	return "https://t.me/" + h.config.Bot.Username
}

// createMainMenuKeyboard creates the /start keyboard
func (h *Handler) createMainMenuKeyboard(lang string) tgbotapi.InlineKeyboardMarkup {
	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(
			button(h.localizer.Get(lang, i18n.BtnHelp, nil), Action{Kind: ActionHelp}),
			button(h.localizer.Get(lang, i18n.BtnLanguage, nil), Action{Kind: ActionLanguages}),
		),
	}
	if h.config.Bot.UpdatesURL != "" {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL(h.localizer.Get(lang, i18n.BtnUpdates, nil), h.config.Bot.UpdatesURL),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func (h *Handler) createHelpKeyboard(lang string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			button(h.localizer.Get(lang, i18n.BtnAddChannel, nil), Action{Kind: ActionAdd, Target: telegram.KindChannel}),
			button(h.localizer.Get(lang, i18n.BtnAddGroup, nil), Action{Kind: ActionAdd, Target: telegram.KindGroup}),
		),
		tgbotapi.NewInlineKeyboardRow(
			button(h.localizer.Get(lang, i18n.BtnMainMenu, nil), Action{Kind: ActionMenu}),
		),
	)
}

// createAddToKeyboard links to the add-as-admin dialog for the given chat kind
func (h *Handler) createAddToKeyboard(lang, kind string) tgbotapi.InlineKeyboardMarkup {
	addURL := fmt.Sprintf("%s?start%s=setup&admin=invite_users+manage_chat", h.botLink(), kind)
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL(h.localizer.Get(lang, i18n.BtnAddTo, map[string]interface{}{"Kind": kind}), addURL),
		),
		tgbotapi.NewInlineKeyboardRow(
			button(h.localizer.Get(lang, i18n.BtnDone, nil), Action{Kind: ActionSelect, Target: kind}),
		),
		tgbotapi.NewInlineKeyboardRow(
			button(h.localizer.Get(lang, i18n.BtnBack, nil), Action{Kind: ActionMenu}),
		),
	)
}

func (h *Handler) createSettingsKeyboard(lang string, chatID int64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			button(h.localizer.Get(lang, i18n.BtnApprove, nil), Action{Kind: ActionApprove, ChatID: chatID}),
		),
		tgbotapi.NewInlineKeyboardRow(
			button(h.localizer.Get(lang, i18n.BtnDecline, nil), Action{Kind: ActionDecline, ChatID: chatID}),
		),
		tgbotapi.NewInlineKeyboardRow(
			button(h.localizer.Get(lang, i18n.BtnWelcome, nil), Action{Kind: ActionWelcome, ChatID: chatID}),
		),
	)
}

func (h *Handler) createBackKeyboard(lang string, back Action) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			button(h.localizer.Get(lang, i18n.BtnBack, nil), back),
		),
	)
}

// createLanguageKeyboard lists languages two per row, marking the current one
func (h *Handler) createLanguageKeyboard(lang string) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton

	for _, code := range h.localizer.Languages() {
		label := code
		if code == lang {
			label += " ✅"
		}
		row = append(row, button(label, Action{Kind: ActionLanguage, Lang: code}))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}

	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		button(h.localizer.Get(lang, i18n.BtnBack, nil), Action{Kind: ActionMenu}),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func (h *Handler) createContinueKeyboard(lang string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL(h.localizer.Get(lang, i18n.BtnContinue, nil), h.botLink()),
		),
	)
}
