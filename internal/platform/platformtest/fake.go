// Package platformtest provides an in-memory platform.Client for tests.
package platformtest

import (
	"errors"
	"fmt"
	"sync"

	"github.com/bayusegara27/discora-backend/internal/platform"
	"github.com/bwmarrin/discordgo"
)

var ErrNotFound = errors.New("platformtest: not found")

type Sent struct {
	ChannelID string
	Content   string
	Embed     *discordgo.MessageEmbed
	MessageID string
}

type RoleChange struct {
	GuildID, UserID, RoleID string
	Added                   bool
}

type Action struct {
	GuildID, UserID, Reason string
}

type Reaction struct {
	ChannelID, MessageID, Emoji string
}

// Fake records every side effect. Configure lookups by filling the maps and
// inject failures with the *Err hooks before use.
type Fake struct {
	mu sync.Mutex

	Channels map[string]*discordgo.Channel
	Guilds   map[string]*discordgo.Guild
	Members  map[string][]*discordgo.Member
	Roles    map[string][]*discordgo.Role
	Online   map[string]int
	Messages map[string]*discordgo.Message
	// Reactors maps messageID+"|"+emoji to the users who reacted.
	Reactors map[string][]*discordgo.User
	Admins   map[string]bool

	SendErr  func(channelID, content string) error
	RoleErr  func(roleID string) error
	KickErr  func(userID string) error
	DMErr    error
	ReactErr error

	Sent      []Sent
	Edits     []Sent
	Deleted   []string
	RoleLog   []RoleChange
	Kicks     []Action
	Bans      []Action
	Reactions []Reaction
	DMs       []Sent

	nextID int
}

var _ platform.Client = (*Fake)(nil)

func New() *Fake {
	return &Fake{
		Channels: map[string]*discordgo.Channel{},
		Guilds:   map[string]*discordgo.Guild{},
		Members:  map[string][]*discordgo.Member{},
		Roles:    map[string][]*discordgo.Role{},
		Online:   map[string]int{},
		Messages: map[string]*discordgo.Message{},
		Reactors: map[string][]*discordgo.User{},
		Admins:   map[string]bool{},
	}
}

func ReactorKey(messageID, emoji string) string {
	return messageID + "|" + emoji
}

func (f *Fake) SendMessage(channelID, content string) (*discordgo.Message, error) {
	return f.send(channelID, content, nil)
}

func (f *Fake) SendComplex(channelID string, msg *discordgo.MessageSend) (*discordgo.Message, error) {
	var embed *discordgo.MessageEmbed
	if msg.Embed != nil {
		embed = msg.Embed
	} else if len(msg.Embeds) > 0 {
		embed = msg.Embeds[0]
	}
	return f.send(channelID, msg.Content, embed)
}

func (f *Fake) send(channelID, content string, embed *discordgo.MessageEmbed) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.SendErr != nil {
		if err := f.SendErr(channelID, content); err != nil {
			return nil, err
		}
	}
	f.nextID++
	id := fmt.Sprintf("msg-%d", f.nextID)
	f.Sent = append(f.Sent, Sent{ChannelID: channelID, Content: content, Embed: embed, MessageID: id})

	m := &discordgo.Message{ID: id, ChannelID: channelID, Content: content}
	if embed != nil {
		m.Embeds = []*discordgo.MessageEmbed{embed}
	}
	f.Messages[id] = m
	return m, nil
}

func (f *Fake) EditEmbed(channelID, messageID string, embed *discordgo.MessageEmbed) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Edits = append(f.Edits, Sent{ChannelID: channelID, MessageID: messageID, Embed: embed})
	return nil
}

func (f *Fake) DeleteMessage(channelID, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Deleted = append(f.Deleted, messageID)
	return nil
}

func (f *Fake) Message(channelID, messageID string) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := f.Messages[messageID]; ok {
		return m, nil
	}
	return nil, ErrNotFound
}

func (f *Fake) Channel(channelID string) (*discordgo.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ch, ok := f.Channels[channelID]; ok {
		return ch, nil
	}
	return nil, ErrNotFound
}

func (f *Fake) Guild(guildID string) (*discordgo.Guild, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if g, ok := f.Guilds[guildID]; ok {
		return g, nil
	}
	return nil, ErrNotFound
}

func (f *Fake) GuildMembers(guildID string) ([]*discordgo.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Members[guildID], nil
}

func (f *Fake) GuildChannels(guildID string) ([]*discordgo.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*discordgo.Channel
	for _, ch := range f.Channels {
		if ch.GuildID == guildID {
			out = append(out, ch)
		}
	}
	return out, nil
}

func (f *Fake) GuildRoles(guildID string) ([]*discordgo.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Roles[guildID], nil
}

func (f *Fake) Member(guildID, userID string) (*discordgo.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.Members[guildID] {
		if m.User != nil && m.User.ID == userID {
			return m, nil
		}
	}
	return nil, ErrNotFound
}

func (f *Fake) OnlineCount(guildID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Online[guildID]
}

func (f *Fake) AddRole(guildID, userID, roleID string) error {
	return f.roleChange(guildID, userID, roleID, true)
}

func (f *Fake) RemoveRole(guildID, userID, roleID string) error {
	return f.roleChange(guildID, userID, roleID, false)
}

func (f *Fake) roleChange(guildID, userID, roleID string, added bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.RoleErr != nil {
		if err := f.RoleErr(roleID); err != nil {
			return err
		}
	}
	f.RoleLog = append(f.RoleLog, RoleChange{GuildID: guildID, UserID: userID, RoleID: roleID, Added: added})
	return nil
}

func (f *Fake) Kick(guildID, userID, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.KickErr != nil {
		if err := f.KickErr(userID); err != nil {
			return err
		}
	}
	f.Kicks = append(f.Kicks, Action{GuildID: guildID, UserID: userID, Reason: reason})
	return nil
}

func (f *Fake) Ban(guildID, userID, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Bans = append(f.Bans, Action{GuildID: guildID, UserID: userID, Reason: reason})
	return nil
}

func (f *Fake) React(channelID, messageID, emoji string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ReactErr != nil {
		return f.ReactErr
	}
	f.Reactions = append(f.Reactions, Reaction{ChannelID: channelID, MessageID: messageID, Emoji: emoji})
	return nil
}

func (f *Fake) ReactionUsers(channelID, messageID, emoji string) ([]*discordgo.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Reactors[ReactorKey(messageID, emoji)], nil
}

func (f *Fake) DM(userID, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.DMErr != nil {
		return f.DMErr
	}
	f.DMs = append(f.DMs, Sent{ChannelID: userID, Content: content})
	return nil
}

func (f *Fake) HasPermission(channelID, userID string, permission int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Admins[userID], nil
}

// SentTo returns the messages delivered to one channel, in order.
func (f *Fake) SentTo(channelID string) []Sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Sent
	for _, s := range f.Sent {
		if s.ChannelID == channelID {
			out = append(out, s)
		}
	}
	return out
}

// SentCount returns the number of channel messages sent so far.
func (f *Fake) SentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Sent)
}
