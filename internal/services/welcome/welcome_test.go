package welcome

import (
	"testing"

	"github.com/channelactions-tgbot-go/internal/models"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name     string
		template string
		decision models.Decision
		want     string
	}{
		{
			name:     "mixed token styles",
			template: "Hi {name} from {chat}! $name again",
			decision: models.DecisionApproved,
			want:     "Hi Ann from Devs! Ann again" + Footer,
		},
		{
			name:     "legacy tokens only",
			template: "$chat welcomes $name",
			decision: models.DecisionApproved,
			want:     "Devs welcomes Ann" + Footer,
		},
		{
			name:     "repeated tokens",
			template: "{name}{name} {chat}{chat}",
			decision: models.DecisionDeclined,
			want:     "AnnAnn DevsDevs" + Footer,
		},
		{
			name:     "default approved",
			decision: models.DecisionApproved,
			want:     "Hey Ann, your request to join Devs has been approved!" + Footer,
		},
		{
			name:     "default declined",
			decision: models.DecisionDeclined,
			want:     "Hey Ann, your request to join Devs has been declined!" + Footer,
		},
		{
			name:     "no tokens",
			template: "Welcome aboard",
			decision: models.DecisionApproved,
			want:     "Welcome aboard" + Footer,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Render(tt.template, "Ann", "Devs", tt.decision)
			if got != tt.want {
				t.Errorf("Render() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRenderIsSequential(t *testing.T) {
	// A name carrying a legacy token is expanded by the later pass.
	got := Render("{name}", "$chat", "Devs", models.DecisionApproved)
	if want := "Devs" + Footer; got != want {
		t.Fatalf("Render() = %q, want %q", got, want)
	}
}
