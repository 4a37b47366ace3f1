package settings

import (
	"encoding/json"
	"log"
	"strings"

	"github.com/bayusegara27/discora-backend/internal/models"
)

const (
	DefaultCooldownSeconds  = 60
	DefaultXPMin            = 15
	DefaultXPMax            = 25
	DefaultMentionSpamLimit = 5

	DefaultWelcomeMessage = "Welcome to the server, {user}! Enjoy your stay."
	DefaultGoodbyeMessage = "{user} has left the server."
	DefaultLevelUpMessage = "🎉 GG {user}, you just reached level **{level}**!"
)

// Greeting configures the welcome or goodbye message.
type Greeting struct {
	Enabled   bool   `json:"enabled"`
	ChannelID string `json:"channelId"`
	Message   string `json:"message"`
}

type AutoRole struct {
	Enabled bool   `json:"enabled"`
	RoleID  string `json:"roleId"`
}

type RoleReward struct {
	Level  int    `json:"level"`
	RoleID string `json:"roleId"`
}

type Leveling struct {
	Enabled             bool         `json:"enabled"`
	ChannelID           string       `json:"channelId"`
	Message             string       `json:"message"`
	CooldownSeconds     int          `json:"cooldownSeconds"`
	XPPerMessageMin     int          `json:"xpPerMessageMin"`
	XPPerMessageMax     int          `json:"xpPerMessageMax"`
	BlacklistedChannels []string     `json:"blacklistedChannels"`
	RoleRewards         []RoleReward `json:"roleRewards"`
}

type AutoMod struct {
	Enabled             bool     `json:"enabled"`
	WordFilterEnabled   bool     `json:"wordFilterEnabled"`
	WordBlacklist       []string `json:"wordBlacklist"`
	InviteFilterEnabled bool     `json:"inviteFilterEnabled"`
	LinkFilterEnabled   bool     `json:"linkFilterEnabled"`
	MentionSpamEnabled  bool     `json:"mentionSpamEnabled"`
	MentionSpamLimit    int      `json:"mentionSpamLimit"`
	AIEnabled           bool     `json:"aiEnabled"`
	IgnoreAdmins        bool     `json:"ignoreAdmins"`
}

// GuildSettings is the decoded, defaulted configuration of one guild.
type GuildSettings struct {
	RecordID string
	GuildID  string
	Welcome  Greeting
	Goodbye  Greeting
	AutoRole AutoRole
	Leveling Leveling
	AutoMod  AutoMod
}

// Decode turns a stored settings row into typed settings. A malformed
// category is logged and replaced by its zero value (feature off); it never
// fails the whole record.
func Decode(rec models.GuildSettingsRecord) GuildSettings {
	gs := GuildSettings{RecordID: rec.ID, GuildID: rec.GuildID}

	decodeCategory(rec.GuildID, "welcome", rec.WelcomeSettings, &gs.Welcome)
	decodeCategory(rec.GuildID, "goodbye", rec.GoodbyeSettings, &gs.Goodbye)
	decodeCategory(rec.GuildID, "autoRole", rec.AutoRoleSettings, &gs.AutoRole)
	decodeCategory(rec.GuildID, "leveling", rec.LevelingSettings, &gs.Leveling)
	decodeCategory(rec.GuildID, "autoMod", rec.AutoModSettings, &gs.AutoMod)

	gs.applyDefaults()
	return gs
}

func decodeCategory(guildID, name, raw string, dest any) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		log.Printf("[SETTINGS] Failed to parse %s settings for guild %s: %v", name, guildID, err)
		// Partial decodes are discarded so a bad category reads as disabled.
		switch d := dest.(type) {
		case *Greeting:
			*d = Greeting{}
		case *AutoRole:
			*d = AutoRole{}
		case *Leveling:
			*d = Leveling{}
		case *AutoMod:
			*d = AutoMod{}
		}
	}
}

func (gs *GuildSettings) applyDefaults() {
	if gs.Welcome.Message == "" {
		gs.Welcome.Message = DefaultWelcomeMessage
	}
	if gs.Goodbye.Message == "" {
		gs.Goodbye.Message = DefaultGoodbyeMessage
	}

	lv := &gs.Leveling
	if lv.Message == "" {
		lv.Message = DefaultLevelUpMessage
	}
	if lv.CooldownSeconds <= 0 {
		lv.CooldownSeconds = DefaultCooldownSeconds
	}
	if lv.XPPerMessageMin <= 0 {
		lv.XPPerMessageMin = DefaultXPMin
	}
	if lv.XPPerMessageMax <= 0 {
		lv.XPPerMessageMax = DefaultXPMax
	}
	if lv.XPPerMessageMax < lv.XPPerMessageMin {
		lv.XPPerMessageMin, lv.XPPerMessageMax = lv.XPPerMessageMax, lv.XPPerMessageMin
	}

	if gs.AutoMod.MentionSpamLimit <= 0 {
		gs.AutoMod.MentionSpamLimit = DefaultMentionSpamLimit
	}
}

// IsBlacklisted reports whether XP is disabled in the given channel.
func (l Leveling) IsBlacklisted(channelID string) bool {
	for _, id := range l.BlacklistedChannels {
		if id == channelID {
			return true
		}
	}
	return false
}

// RewardFor returns the role granted on reaching exactly level, if any.
func (l Leveling) RewardFor(level int) (string, bool) {
	for _, r := range l.RoleRewards {
		if r.Level == level && r.RoleID != "" {
			return r.RoleID, true
		}
	}
	return "", false
}
