package models

// User is a known bot user. Only the identifier is kept.
type User struct {
	ID int64 `json:"user_id"`
}

// ChatSettings represents per-chat moderation settings
type ChatSettings struct {
	ChatID          int64  `json:"chat_id"`
	AutoApprove     bool   `json:"status"`
	WelcomeTemplate string `json:"welcome"`
}

// DefaultChatSettings is what a chat without a stored record behaves like.
func DefaultChatSettings(chatID int64) ChatSettings {
	return ChatSettings{
		ChatID:      chatID,
		AutoApprove: true,
	}
}

// HasTemplate reports whether a custom welcome template is configured.
func (s ChatSettings) HasTemplate() bool {
	return s.WelcomeTemplate != ""
}

// UserSettings represents user-specific preferences
type UserSettings struct {
	UserID   int64  `json:"user_id"`
	Language string `json:"language"`
}

// JoinRequest is a pending request to join a moderated chat.
type JoinRequest struct {
	ChatID    int64
	ChatTitle string
	UserID    int64
	UserName  string
}

// Decision is the outcome applied to a join request.
type Decision int

const (
	DecisionApproved Decision = iota
	DecisionDeclined
)

// DecisionFor maps an approval flag to a Decision.
func DecisionFor(approve bool) Decision {
	if approve {
		return DecisionApproved
	}
	return DecisionDeclined
}

func (d Decision) String() string {
	switch d {
	case DecisionApproved:
		return "approved"
	case DecisionDeclined:
		return "declined"
	default:
		return "unknown"
	}
}
