// Package platform is the chat-platform boundary. Everything the bot does to
// Discord goes through Client so jobs and handlers can be tested against a fake.
package platform

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// Client is the set of chat-platform calls the bot relies on.
type Client interface {
	SendMessage(channelID, content string) (*discordgo.Message, error)
	SendComplex(channelID string, msg *discordgo.MessageSend) (*discordgo.Message, error)
	EditEmbed(channelID, messageID string, embed *discordgo.MessageEmbed) error
	DeleteMessage(channelID, messageID string) error
	Message(channelID, messageID string) (*discordgo.Message, error)
	Channel(channelID string) (*discordgo.Channel, error)

	Guild(guildID string) (*discordgo.Guild, error)
	GuildMembers(guildID string) ([]*discordgo.Member, error)
	GuildChannels(guildID string) ([]*discordgo.Channel, error)
	GuildRoles(guildID string) ([]*discordgo.Role, error)
	Member(guildID, userID string) (*discordgo.Member, error)
	OnlineCount(guildID string) int

	AddRole(guildID, userID, roleID string) error
	RemoveRole(guildID, userID, roleID string) error
	Kick(guildID, userID, reason string) error
	Ban(guildID, userID, reason string) error

	React(channelID, messageID, emoji string) error
	ReactionUsers(channelID, messageID, emoji string) ([]*discordgo.User, error)

	DM(userID, content string) error
	HasPermission(channelID, userID string, permission int64) (bool, error)
}

// APIEmoji converts a stored emoji ("🎉", "<:name:id>" or "<a:name:id>")
// into the form the reaction endpoints expect.
func APIEmoji(emoji string) string {
	e := strings.TrimSpace(emoji)
	if strings.HasPrefix(e, "<") && strings.HasSuffix(e, ">") {
		parts := strings.Split(strings.Trim(e, "<>"), ":")
		if len(parts) == 3 {
			return parts[1] + ":" + parts[2]
		}
	}
	return e
}

// EmojiString renders a reaction emoji the way it is stored in reaction-role
// mappings.
func EmojiString(e discordgo.Emoji) string {
	if e.ID == "" {
		return e.Name
	}
	return e.MessageFormat()
}

// Mention formats a user mention.
func Mention(userID string) string {
	return fmt.Sprintf("<@%s>", userID)
}

// RoleMention formats a role mention.
func RoleMention(roleID string) string {
	return fmt.Sprintf("<@&%s>", roleID)
}
