// Package welcome renders the message sent to a user after their join request is handled.
package welcome

import (
	"strings"

	"github.com/channelactions-tgbot-go/internal/models"
)

const (
	DefaultApproved = "Hey {name}, your request to join {chat} has been approved!"
	DefaultDeclined = "Hey {name}, your request to join {chat} has been declined!"

	// Footer is appended to every rendered message.
	Footer = "\n\nSend /start to know more!"
)

// DefaultTemplate returns the built-in wording for a decision.
func DefaultTemplate(d models.Decision) string {
	if d == models.DecisionDeclined {
		return DefaultDeclined
	}
	return DefaultApproved
}

// Render substitutes name and chat title into template. An empty template
// falls back to the default wording for the decision.
//
// Replacement is sequential: {name}, {chat}, then the legacy $name, $chat.
func Render(template, name, chatTitle string, d models.Decision) string {
	if template == "" {
		template = DefaultTemplate(d)
	}

	text := strings.ReplaceAll(template, "{name}", name)
	text = strings.ReplaceAll(text, "{chat}", chatTitle)
	text = strings.ReplaceAll(text, "$name", name)
	text = strings.ReplaceAll(text, "$chat", chatTitle)

	return text + Footer
}
