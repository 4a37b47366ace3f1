package moderation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/bayusegara27/discora-backend/internal/settings"
)

var (
	inviteRegex = regexp.MustCompile(`(?i)(https?://)?(www\.)?(discord\.(gg|io|me|li)|discordapp\.com/invite)/[^\s/]+`)
	linkRegex   = regexp.MustCompile(`(?i)https?://[^\s]+`)
)

// Check runs the rule filters in order (words, invites, links, mentions)
// and returns the reason of the first one that matches.
func Check(cfg settings.AutoMod, content string, mentions int) (string, bool) {
	if cfg.WordFilterEnabled {
		if word, ok := BannedWord(cfg.WordBlacklist, content); ok {
			return fmt.Sprintf("it contained a banned word (%q)", word), true
		}
	}
	if cfg.InviteFilterEnabled && inviteRegex.MatchString(content) {
		return "it contained a Discord invite link", true
	}
	if cfg.LinkFilterEnabled && linkRegex.MatchString(content) {
		return "sending links is not permitted", true
	}
	if cfg.MentionSpamEnabled {
		limit := cfg.MentionSpamLimit
		if limit <= 0 {
			limit = settings.DefaultMentionSpamLimit
		}
		if mentions > limit {
			return fmt.Sprintf("mentioning too many users/roles (%d > %d)", mentions, limit), true
		}
	}
	return "", false
}

// BannedWord finds the first blacklisted word that appears in content as a
// whole word, ignoring case.
func BannedWord(blacklist []string, content string) (string, bool) {
	for _, word := range blacklist {
		w := strings.TrimSpace(word)
		if w == "" {
			continue
		}
		re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(w) + `\b`)
		if err != nil {
			continue
		}
		if re.MatchString(content) {
			return word, true
		}
	}
	return "", false
}
