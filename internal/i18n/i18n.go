package i18n

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/channelactions-tgbot-go/internal/config"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

// Localizer manages internationalization
type Localizer struct {
	bundle          *i18n.Bundle
	defaultLanguage string
	languages       []string
	localizers      map[string]*i18n.Localizer
}

// NewLocalizer creates a new localizer
func NewLocalizer(cfg *config.I18nConfig) (*Localizer, error) {
	defaultTag, err := language.Parse(cfg.DefaultLanguage)
	if err != nil {
		return nil, fmt.Errorf("invalid default language %q: %w", cfg.DefaultLanguage, err)
	}

	bundle := i18n.NewBundle(defaultTag)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	// Load language files
	for _, lang := range cfg.Languages {
		path := filepath.Join(cfg.Directory, lang+".json")
		if _, err := bundle.LoadMessageFile(path); err != nil {
			return nil, fmt.Errorf("failed to load language file %s: %w", lang, err)
		}
	}

	localizers := make(map[string]*i18n.Localizer)
	for _, lang := range cfg.Languages {
		localizers[lang] = i18n.NewLocalizer(bundle, lang, cfg.DefaultLanguage)
	}
	if _, ok := localizers[cfg.DefaultLanguage]; !ok {
		localizers[cfg.DefaultLanguage] = i18n.NewLocalizer(bundle, cfg.DefaultLanguage)
	}

	return &Localizer{
		bundle:          bundle,
		defaultLanguage: cfg.DefaultLanguage,
		languages:       cfg.Languages,
		localizers:      localizers,
	}, nil
}

// Get returns localized message
func (l *Localizer) Get(lang, messageID string, data map[string]interface{}) string {
	localizer, exists := l.localizers[lang]
	if !exists {
		localizer = l.localizers[l.defaultLanguage]
	}

	msg, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    messageID,
		TemplateData: data,
	})
	// A message found only in the default language comes back with an error.
	if err != nil && msg == "" {
		return messageID // Fallback to message ID
	}

	return msg
}

// Languages returns the configured language codes in configuration order.
func (l *Localizer) Languages() []string {
	return l.languages
}

// DefaultLanguage returns the fallback language code.
func (l *Localizer) DefaultLanguage() string {
	return l.defaultLanguage
}

// Supports reports whether lang has a loaded bundle.
func (l *Localizer) Supports(lang string) bool {
	for _, code := range l.languages {
		if code == lang {
			return true
		}
	}
	return false
}

// Message IDs
const (
	MsgStart             = "start"
	MsgHelp              = "help"
	MsgContinueInPM      = "continue_in_pm"
	MsgAddTo             = "add_to"
	MsgSelectChat        = "select_chat"
	MsgSelectButton      = "select_button"
	MsgRemovingKeyboard  = "removing_keyboard"
	MsgNotAdmin          = "not_admin"
	MsgNoPerms           = "no_perms"
	MsgChatSettings      = "chat_settings"
	MsgApproveSet        = "approve_set"
	MsgDeclineSet        = "decline_set"
	MsgWelcomePrompt     = "welcome_prompt"
	MsgProvideText       = "provide_text"
	MsgWelcomeSet        = "welcome_set"
	MsgCancelled         = "cancelled"
	MsgNothingToCancel   = "nothing_to_cancel"
	MsgChooseLanguage    = "choose_language"
	MsgLanguageSet       = "language_set"
	MsgStats             = "stats"
	MsgCalculating       = "calculating"
	MsgBroadcastReply    = "broadcast_reply_required"
	MsgBroadcastWait     = "broadcast_in_progress"
	MsgBroadcastStatus   = "broadcast_progress"
	MsgBroadcastDone     = "broadcast_completed"
	MsgBroadcastBusy     = "broadcast_already_running"
	MsgRateLimitExceeded = "rate_limit_exceeded"
	MsgError             = "error"

	BtnHelp       = "btn_help"
	BtnLanguage   = "btn_language"
	BtnUpdates    = "btn_updates"
	BtnAddChannel = "btn_add_channel"
	BtnAddGroup   = "btn_add_group"
	BtnAddTo      = "btn_add_to"
	BtnDone       = "btn_done"
	BtnBack       = "btn_back"
	BtnMainMenu   = "btn_main_menu"
	BtnContinue   = "btn_continue"
	BtnApprove    = "btn_approve"
	BtnDecline    = "btn_decline"
	BtnWelcome    = "btn_welcome"
)
