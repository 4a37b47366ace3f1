package embed

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bayusegara27/discora-backend/internal/models"
	"github.com/bwmarrin/discordgo"
)

const (
	ColorBlurple = 0x5865F2
	ColorGold    = 0xFFD700
	ColorGreen   = 0x32CD32
	ColorRed     = 0xFF0000

	GiveawayEmoji = "🎉"
)

// ParseColor reads "#RRGGBB", "#RGB" or a decimal string, falling back to def.
func ParseColor(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	if strings.HasPrefix(s, "#") {
		hex := s[1:]
		if len(hex) == 3 {
			hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
		}
		if len(hex) != 6 {
			return def
		}
		v, err := strconv.ParseInt(hex, 16, 32)
		if err != nil {
			return def
		}
		return int(v)
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return def
	}
	return v
}

// HexColor renders a color as "#rrggbb".
func HexColor(c int) string {
	return fmt.Sprintf("#%06x", c)
}

// Giveaway is the announcement posted when a giveaway starts.
func Giveaway(g *models.Giveaway) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: fmt.Sprintf("%s GIVEAWAY: %s %s", GiveawayEmoji, g.Prize, GiveawayEmoji),
		Description: fmt.Sprintf("React with %s to enter!\nEnds: <t:%d:R>\nWinners: **%d**",
			GiveawayEmoji, g.EndsAt.Unix(), g.WinnerCount),
		Color:     ColorGold,
		Timestamp: g.EndsAt.UTC().Format(time.RFC3339),
	}
}

// GiveawayEnded turns the announcement into its finished state.
func GiveawayEnded(base *discordgo.MessageEmbed, winnerMentions string) *discordgo.MessageEmbed {
	e := copyOf(base)
	e.Description = "Giveaway ended!\nWinners: " + winnerMentions
	e.Color = ColorGreen
	return e
}

// GiveawayCancelled marks an announcement that ended without winners.
func GiveawayCancelled(base *discordgo.MessageEmbed, reason string) *discordgo.MessageEmbed {
	e := copyOf(base)
	e.Description = reason
	e.Color = ColorRed
	return e
}

func copyOf(base *discordgo.MessageEmbed) *discordgo.MessageEmbed {
	if base == nil {
		return &discordgo.MessageEmbed{}
	}
	cp := *base
	return &cp
}

// RoleMapping is one emoji-to-role entry of a reaction-role panel.
type RoleMapping struct {
	Emoji  string `json:"emoji"`
	RoleID string `json:"roleId"`
}

// ParseRoleMappings decodes the stored mapping list.
func ParseRoleMappings(raw string) ([]RoleMapping, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var roles []RoleMapping
	if err := json.Unmarshal([]byte(raw), &roles); err != nil {
		return nil, fmt.Errorf("invalid role mappings: %w", err)
	}
	return roles, nil
}

// ReactionRolePanel lists every emoji and the role it grants.
func ReactionRolePanel(rr *models.ReactionRole, roles []RoleMapping) *discordgo.MessageEmbed {
	var b strings.Builder
	b.WriteString(rr.EmbedDescription)
	b.WriteString("\n\n")
	for _, r := range roles {
		fmt.Fprintf(&b, "%s - <@&%s>\n", r.Emoji, r.RoleID)
	}
	return &discordgo.MessageEmbed{
		Title:       rr.EmbedTitle,
		Description: strings.TrimSpace(b.String()),
		Color:       ParseColor(rr.EmbedColor, ColorBlurple),
	}
}

// HelpEntry is one built-in command line of the help embed.
type HelpEntry struct {
	Name        string
	Description string
}

func Help(guildName, prefix string, builtIns []HelpEntry, custom []string) *discordgo.MessageEmbed {
	lines := make([]string, 0, len(builtIns))
	for _, c := range builtIns {
		lines = append(lines, fmt.Sprintf("**%s**: %s", c.Name, c.Description))
	}

	customList := "No custom commands set."
	if len(custom) > 0 {
		names := make([]string, len(custom))
		for i, n := range custom {
			names[i] = fmt.Sprintf("`%s%s`", prefix, n)
		}
		customList = strings.Join(names, ", ")
	}

	return &discordgo.MessageEmbed{
		Title: fmt.Sprintf("Commands for %s", guildName),
		Color: ColorBlurple,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Built-in Commands", Value: strings.Join(lines, "\n")},
			{Name: "Custom Commands", Value: customList},
		},
	}
}

var rankEmojis = []string{"🥇", "🥈", "🥉"}

func Leaderboard(guildName string, levels []models.UserLevel) *discordgo.MessageEmbed {
	e := &discordgo.MessageEmbed{
		Title:     fmt.Sprintf("🏆 Leaderboard for %s", guildName),
		Color:     ColorGold,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if len(levels) == 0 {
		e.Description = "No one has earned any XP yet. Start chatting to get on the board!"
		return e
	}

	lines := make([]string, len(levels))
	for i, l := range levels {
		rank := fmt.Sprintf("**#%d**", i+1)
		if i < len(rankEmojis) {
			rank = rankEmojis[i]
		}
		lines[i] = fmt.Sprintf("%s <@%s> - Level **%d** (%s XP)", rank, l.UserID, l.Level, groupThousands(l.XP))
	}
	e.Description = strings.Join(lines, "\n")
	return e
}

// Rank shows a member's standing and progress to the next level.
func Rank(l *models.UserLevel, position int64, nextThreshold int64) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: fmt.Sprintf("Rank for %s", l.Username),
		Color: ColorBlurple,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Rank", Value: fmt.Sprintf("#%d", position), Inline: true},
			{Name: "Level", Value: strconv.Itoa(l.Level), Inline: true},
			{Name: "XP", Value: fmt.Sprintf("%s / %s", groupThousands(l.XP), groupThousands(nextThreshold)), Inline: true},
		},
		Thumbnail: thumbnail(l.UserAvatarURL),
	}
}

func thumbnail(url string) *discordgo.MessageEmbedThumbnail {
	if url == "" {
		return nil
	}
	return &discordgo.MessageEmbedThumbnail{URL: url}
}

// Custom builds the embed of a custom command from its stored JSON.
func Custom(content string) (*discordgo.MessageEmbed, error) {
	var data struct {
		Title       string          `json:"title"`
		Description string          `json:"description"`
		Color       json.RawMessage `json:"color"`
	}
	if err := json.Unmarshal([]byte(content), &data); err != nil {
		return nil, fmt.Errorf("invalid embed content: %w", err)
	}

	color := ColorBlurple
	if len(data.Color) > 0 {
		var s string
		if err := json.Unmarshal(data.Color, &s); err == nil {
			color = ParseColor(s, ColorBlurple)
		} else {
			var n int
			if err := json.Unmarshal(data.Color, &n); err == nil && n >= 0 {
				color = n
			}
		}
	}

	return &discordgo.MessageEmbed{
		Title:       data.Title,
		Description: data.Description,
		Color:       color,
	}, nil
}

func groupThousands(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
