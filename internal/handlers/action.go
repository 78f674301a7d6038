package handlers

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/channelactions-tgbot-go/internal/telegram"
)

// ErrUnknownAction is returned for callback payloads the bot never issued.
var ErrUnknownAction = errors.New("unknown callback action")

// ActionKind tags a callback action.
type ActionKind string

const (
	ActionHelp      ActionKind = "help"
	ActionMenu      ActionKind = "menu"
	ActionAdd       ActionKind = "add"
	ActionSelect    ActionKind = "select"
	ActionSettings  ActionKind = "settings"
	ActionApprove   ActionKind = "approve"
	ActionDecline   ActionKind = "decline"
	ActionWelcome   ActionKind = "welcome"
	ActionLanguages ActionKind = "langs"
	ActionLanguage  ActionKind = "lang"
)

// Action is a decoded callback payload. Only the field matching Kind is set:
// Target for add/select, ChatID for settings/approve/decline/welcome, Lang for lang.
type Action struct {
	Kind   ActionKind
	Target string
	ChatID int64
	Lang   string
}

// Data encodes the action as callback data.
func (a Action) Data() string {
	switch a.Kind {
	case ActionAdd, ActionSelect:
		return string(a.Kind) + ":" + a.Target
	case ActionSettings, ActionApprove, ActionDecline, ActionWelcome:
		return string(a.Kind) + ":" + strconv.FormatInt(a.ChatID, 10)
	case ActionLanguage:
		return string(a.Kind) + ":" + a.Lang
	default:
		return string(a.Kind)
	}
}

// ParseAction decodes callback data produced by Action.Data.
func ParseAction(data string) (Action, error) {
	kind, arg, hasArg := strings.Cut(data, ":")
	action := Action{Kind: ActionKind(kind)}

	switch action.Kind {
	case ActionHelp, ActionMenu, ActionLanguages:
		if hasArg {
			return Action{}, fmt.Errorf("%w: %q", ErrUnknownAction, data)
		}
		return action, nil

	case ActionAdd, ActionSelect:
		if arg != telegram.KindChannel && arg != telegram.KindGroup {
			return Action{}, fmt.Errorf("%w: %q", ErrUnknownAction, data)
		}
		action.Target = arg
		return action, nil

	case ActionSettings, ActionApprove, ActionDecline, ActionWelcome:
		chatID, err := strconv.ParseInt(arg, 10, 64)
		if err != nil || chatID == 0 {
			return Action{}, fmt.Errorf("%w: %q", ErrUnknownAction, data)
		}
		action.ChatID = chatID
		return action, nil

	case ActionLanguage:
		if arg == "" {
			return Action{}, fmt.Errorf("%w: %q", ErrUnknownAction, data)
		}
		action.Lang = arg
		return action, nil
	}

	return Action{}, fmt.Errorf("%w: %q", ErrUnknownAction, data)
}
