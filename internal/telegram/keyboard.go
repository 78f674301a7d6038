package telegram

// Chat kinds offered in the setup flow.
const (
	KindChannel = "channel"
	KindGroup   = "group"
)

// Request IDs echoed back in chat_shared, one per kind.
const (
	RequestIDChannel = 1
	RequestIDGroup   = 2
)

// ChatAdministratorRights lists the rights asked of the bot and of the user.
// All fields are required by the Bot API.
type ChatAdministratorRights struct {
	IsAnonymous         bool `json:"is_anonymous"`
	CanManageChat       bool `json:"can_manage_chat"`
	CanDeleteMessages   bool `json:"can_delete_messages"`
	CanManageVideoChats bool `json:"can_manage_video_chats"`
	CanRestrictMembers  bool `json:"can_restrict_members"`
	CanPromoteMembers   bool `json:"can_promote_members"`
	CanChangeInfo       bool `json:"can_change_info"`
	CanInviteUsers      bool `json:"can_invite_users"`
}

// KeyboardButtonRequestChat asks the client to pick a chat and share it with the bot.
type KeyboardButtonRequestChat struct {
	RequestID               int                      `json:"request_id"`
	ChatIsChannel           bool                     `json:"chat_is_channel"`
	BotIsMember             bool                     `json:"bot_is_member,omitempty"`
	UserAdministratorRights *ChatAdministratorRights `json:"user_administrator_rights,omitempty"`
	BotAdministratorRights  *ChatAdministratorRights `json:"bot_administrator_rights,omitempty"`
}

// RequestChatButton is a reply keyboard button carrying a request_chat.
type RequestChatButton struct {
	Text        string                     `json:"text"`
	RequestChat *KeyboardButtonRequestChat `json:"request_chat,omitempty"`
}

// ReplyKeyboard is a reply keyboard made of request_chat buttons.
// tgbotapi.KeyboardButton has no request_chat field.
type ReplyKeyboard struct {
	Keyboard        [][]RequestChatButton `json:"keyboard"`
	ResizeKeyboard  bool                  `json:"resize_keyboard,omitempty"`
	OneTimeKeyboard bool                  `json:"one_time_keyboard,omitempty"`
}

// RequestIDFor returns the request ID used for kind.
func RequestIDFor(kind string) int {
	if kind == KindChannel {
		return RequestIDChannel
	}
	return RequestIDGroup
}

// KindForRequestID is the inverse of RequestIDFor.
func KindForRequestID(id int) string {
	if id == RequestIDChannel {
		return KindChannel
	}
	return KindGroup
}

// NewChatRequestKeyboard builds a one-time keyboard asking the user to pick a
// chat of the given kind where both the user and the bot can manage invites.
func NewChatRequestKeyboard(text, kind string) ReplyKeyboard {
	rights := &ChatAdministratorRights{
		CanManageChat:  true,
		CanInviteUsers: true,
	}

	return ReplyKeyboard{
		Keyboard: [][]RequestChatButton{{
			{
				Text: text,
				RequestChat: &KeyboardButtonRequestChat{
					RequestID:               RequestIDFor(kind),
					ChatIsChannel:           kind == KindChannel,
					BotIsMember:             true,
					UserAdministratorRights: rights,
					BotAdministratorRights:  rights,
				},
			},
		}},
		ResizeKeyboard:  true,
		OneTimeKeyboard: true,
	}
}
