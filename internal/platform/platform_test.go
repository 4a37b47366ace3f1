package platform

import (
	"testing"

	"github.com/bwmarrin/discordgo"
)

func TestAPIEmoji(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"🎉", "🎉"},
		{"<:pepe:123>", "pepe:123"},
		{"<a:dance:456>", "dance:456"},
		{" ✅ ", "✅"},
		{"<broken>", "<broken>"},
	}
	for _, tt := range tests {
		if got := APIEmoji(tt.in); got != tt.want {
			t.Errorf("APIEmoji(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEmojiString(t *testing.T) {
	if got := EmojiString(discordgo.Emoji{Name: "🎉"}); got != "🎉" {
		t.Errorf("unicode emoji = %q", got)
	}
	if got := EmojiString(discordgo.Emoji{Name: "pepe", ID: "123"}); got != "<:pepe:123>" {
		t.Errorf("custom emoji = %q", got)
	}
	if got := EmojiString(discordgo.Emoji{Name: "dance", ID: "456", Animated: true}); got != "<a:dance:456>" {
		t.Errorf("animated emoji = %q", got)
	}
}
