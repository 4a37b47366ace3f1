package platform

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
)

const (
	membersPageSize   = 1000
	reactionsPageSize = 100
)

// Discord implements Client over a live discordgo session, preferring the
// state cache where discordgo keeps one.
type Discord struct {
	Session *discordgo.Session
}

func NewDiscord(s *discordgo.Session) *Discord {
	return &Discord{Session: s}
}

func (d *Discord) SendMessage(channelID, content string) (*discordgo.Message, error) {
	return d.Session.ChannelMessageSend(channelID, content)
}

func (d *Discord) SendComplex(channelID string, msg *discordgo.MessageSend) (*discordgo.Message, error) {
	return d.Session.ChannelMessageSendComplex(channelID, msg)
}

func (d *Discord) EditEmbed(channelID, messageID string, embed *discordgo.MessageEmbed) error {
	edit := discordgo.NewMessageEdit(channelID, messageID).SetEmbed(embed)
	_, err := d.Session.ChannelMessageEditComplex(edit)
	return err
}

func (d *Discord) DeleteMessage(channelID, messageID string) error {
	return d.Session.ChannelMessageDelete(channelID, messageID)
}

func (d *Discord) Message(channelID, messageID string) (*discordgo.Message, error) {
	return d.Session.ChannelMessage(channelID, messageID)
}

func (d *Discord) Channel(channelID string) (*discordgo.Channel, error) {
	if ch, err := d.Session.State.Channel(channelID); err == nil {
		return ch, nil
	}
	return d.Session.Channel(channelID)
}

func (d *Discord) Guild(guildID string) (*discordgo.Guild, error) {
	if g, err := d.Session.State.Guild(guildID); err == nil {
		return g, nil
	}
	return d.Session.Guild(guildID)
}

// GuildMembers pages through the full member list.
func (d *Discord) GuildMembers(guildID string) ([]*discordgo.Member, error) {
	var all []*discordgo.Member
	after := ""
	for {
		page, err := d.Session.GuildMembers(guildID, after, membersPageSize)
		if err != nil {
			return nil, fmt.Errorf("failed to list members of %s: %w", guildID, err)
		}
		all = append(all, page...)
		if len(page) < membersPageSize {
			return all, nil
		}
		after = page[len(page)-1].User.ID
	}
}

func (d *Discord) GuildChannels(guildID string) ([]*discordgo.Channel, error) {
	return d.Session.GuildChannels(guildID)
}

func (d *Discord) GuildRoles(guildID string) ([]*discordgo.Role, error) {
	return d.Session.GuildRoles(guildID)
}

func (d *Discord) Member(guildID, userID string) (*discordgo.Member, error) {
	if m, err := d.Session.State.Member(guildID, userID); err == nil {
		return m, nil
	}
	return d.Session.GuildMember(guildID, userID)
}

// OnlineCount counts members whose cached presence is online, idle or dnd.
func (d *Discord) OnlineCount(guildID string) int {
	g, err := d.Session.State.Guild(guildID)
	if err != nil {
		return 0
	}
	d.Session.State.RLock()
	defer d.Session.State.RUnlock()

	count := 0
	for _, p := range g.Presences {
		switch p.Status {
		case discordgo.StatusOnline, discordgo.StatusIdle, discordgo.StatusDoNotDisturb:
			count++
		}
	}
	return count
}

func (d *Discord) AddRole(guildID, userID, roleID string) error {
	return d.Session.GuildMemberRoleAdd(guildID, userID, roleID)
}

func (d *Discord) RemoveRole(guildID, userID, roleID string) error {
	return d.Session.GuildMemberRoleRemove(guildID, userID, roleID)
}

func (d *Discord) Kick(guildID, userID, reason string) error {
	return d.Session.GuildMemberDeleteWithReason(guildID, userID, reason)
}

func (d *Discord) Ban(guildID, userID, reason string) error {
	return d.Session.GuildBanCreateWithReason(guildID, userID, reason, 0)
}

func (d *Discord) React(channelID, messageID, emoji string) error {
	return d.Session.MessageReactionAdd(channelID, messageID, APIEmoji(emoji))
}

// ReactionUsers pages through every user who reacted with emoji.
func (d *Discord) ReactionUsers(channelID, messageID, emoji string) ([]*discordgo.User, error) {
	var all []*discordgo.User
	after := ""
	for {
		page, err := d.Session.MessageReactions(channelID, messageID, APIEmoji(emoji), reactionsPageSize, "", after)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < reactionsPageSize {
			return all, nil
		}
		after = page[len(page)-1].ID
	}
}

func (d *Discord) DM(userID, content string) error {
	ch, err := d.Session.UserChannelCreate(userID)
	if err != nil {
		return err
	}
	_, err = d.Session.ChannelMessageSend(ch.ID, content)
	return err
}

// HasPermission reports whether the user holds permission in the channel.
// Administrators hold every permission.
func (d *Discord) HasPermission(channelID, userID string, permission int64) (bool, error) {
	perms, err := d.Session.UserChannelPermissions(userID, channelID)
	if err != nil {
		return false, err
	}
	return perms&discordgo.PermissionAdministrator != 0 || perms&permission == permission, nil
}
