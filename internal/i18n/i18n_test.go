package i18n

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/channelactions-tgbot-go/internal/config"
)

func writeBundle(t *testing.T, dir, lang, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, lang+".json"), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newTestLocalizer(t *testing.T) *Localizer {
	t.Helper()
	dir := t.TempDir()
	writeBundle(t, dir, "en", `{"greeting": "Hello {{.User}}", "only_en": "English only"}`)
	writeBundle(t, dir, "es", `{"greeting": "Hola {{.User}}"}`)

	l, err := NewLocalizer(&config.I18nConfig{
		DefaultLanguage: "en",
		Languages:       []string{"en", "es"},
		Directory:       dir,
	})
	if err != nil {
		t.Fatalf("NewLocalizer: %v", err)
	}
	return l
}

func TestGet(t *testing.T) {
	l := newTestLocalizer(t)

	tests := []struct {
		name string
		lang string
		id   string
		want string
	}{
		{"english", "en", "greeting", "Hello Ann"},
		{"spanish", "es", "greeting", "Hola Ann"},
		{"unknown language falls back", "fr", "greeting", "Hello Ann"},
		{"missing translation falls back", "es", "only_en", "English only"},
		{"missing id returns id", "en", "nope", "nope"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := l.Get(tt.lang, tt.id, map[string]interface{}{"User": "Ann"})
			if got != tt.want {
				t.Errorf("Get(%q, %q) = %q, want %q", tt.lang, tt.id, got, tt.want)
			}
		})
	}
}

func TestLanguages(t *testing.T) {
	l := newTestLocalizer(t)
	if got := l.Languages(); len(got) != 2 || got[0] != "en" || got[1] != "es" {
		t.Fatalf("Languages = %v", got)
	}
	if l.DefaultLanguage() != "en" || !l.Supports("es") || l.Supports("fr") {
		t.Fatal("unexpected language support")
	}
}

func TestMissingBundleFails(t *testing.T) {
	_, err := NewLocalizer(&config.I18nConfig{
		DefaultLanguage: "en",
		Languages:       []string{"en"},
		Directory:       t.TempDir(),
	})
	if err == nil {
		t.Fatal("expected error for missing bundle")
	}
}

func TestShippedBundlesHaveSameKeys(t *testing.T) {
	l, err := NewLocalizer(&config.I18nConfig{
		DefaultLanguage: "en",
		Languages:       []string{"en", "es"},
		Directory:       filepath.Join("..", "..", "configs", "i18n"),
	})
	if err != nil {
		t.Fatalf("NewLocalizer: %v", err)
	}

	ids := []string{
		MsgStart, MsgHelp, MsgContinueInPM, MsgAddTo, MsgSelectChat, MsgSelectButton,
		MsgRemovingKeyboard, MsgNotAdmin, MsgNoPerms, MsgChatSettings, MsgApproveSet,
		MsgDeclineSet, MsgWelcomePrompt, MsgProvideText, MsgWelcomeSet, MsgCancelled,
		MsgNothingToCancel, MsgChooseLanguage, MsgLanguageSet, MsgStats, MsgCalculating,
		MsgBroadcastReply, MsgBroadcastWait, MsgBroadcastStatus, MsgBroadcastDone,
		MsgBroadcastBusy, MsgRateLimitExceeded, MsgError,
		BtnHelp, BtnLanguage, BtnUpdates, BtnAddChannel, BtnAddGroup, BtnAddTo, BtnDone,
		BtnBack, BtnMainMenu, BtnContinue, BtnApprove, BtnDecline, BtnWelcome,
	}
	for _, lang := range l.Languages() {
		for _, id := range ids {
			if got := l.Get(lang, id, nil); got == id {
				t.Errorf("%s: message %q missing", lang, id)
			}
		}
	}
}
