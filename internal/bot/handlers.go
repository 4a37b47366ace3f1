package bot

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bayusegara27/discora-backend/internal/audit"
	"github.com/bayusegara27/discora-backend/internal/embed"
	"github.com/bayusegara27/discora-backend/internal/leveling"
	"github.com/bayusegara27/discora-backend/internal/moderation"
	"github.com/bayusegara27/discora-backend/internal/platform"
	"github.com/bwmarrin/discordgo"
)

const deletedContentLimit = 1000

func (b *Bot) ready(s *discordgo.Session, event *discordgo.Ready) {
	log.Printf("Logged in as %s", event.User.String())

	if err := b.Repo.UpsertBotInfo(event.User.Username, event.User.AvatarURL("")); err != nil {
		log.Printf("[Ready] Failed to update bot info: %v", err)
	}
	if err := b.Repo.TouchSystemStatus(time.Now()); err != nil {
		log.Printf("[Ready] Failed to update system status: %v", err)
	}

	b.registerCommands()
	b.updateBotStatus()
}

func (b *Bot) guildCreate(s *discordgo.Session, event *discordgo.GuildCreate) {
	log.Printf("Bot joined server: %s (%s)", event.Guild.Name, event.Guild.ID)
	if err := b.Repo.UpsertServer(event.Guild.ID, event.Guild.Name, event.Guild.IconURL("")); err != nil {
		log.Printf("[DB Sync] Failed to sync server %s: %v", event.Guild.Name, err)
	}
	b.updateBotStatus()
}

func (b *Bot) guildDelete(s *discordgo.Session, event *discordgo.GuildDelete) {
	if event.Unavailable {
		log.Printf("Guild %s became unavailable.", event.ID)
	} else {
		log.Printf("Bot removed from guild: %s.", event.ID)
	}
	b.updateBotStatus()
}

func (b *Bot) messageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	b.handleMessage(b.ctx, m.Message)
}

// handleMessage runs moderation, then leveling and stats, then commands.
// A moderated message goes no further.
func (b *Bot) handleMessage(ctx context.Context, m *discordgo.Message) {
	if m.Author == nil || m.Author.Bot || m.GuildID == "" || m.Content == "" {
		return
	}
	cfg, ok := b.cache.Get(m.GuildID)
	if !ok {
		return
	}
	guildName := b.guildName(m.GuildID)

	removed := b.moderator.Handle(ctx, moderation.Message{
		GuildID:   m.GuildID,
		GuildName: guildName,
		ChannelID: m.ChannelID,
		MessageID: m.ID,
		AuthorID:  m.Author.ID,
		AuthorTag: m.Author.String(),
		Content:   m.Content,
		Mentions:  mentionCount(m),
	}, cfg.AutoMod)
	if removed {
		return
	}

	author := leveling.Author{
		GuildID:   m.GuildID,
		ChannelID: m.ChannelID,
		UserID:    m.Author.ID,
		Username:  m.Author.String(),
		AvatarURL: m.Author.AvatarURL(""),
	}
	if _, err := b.levels.AwardMessage(ctx, author, cfg.Leveling); err != nil {
		log.Printf("[XP] %v", err)
	}
	if err := b.stats.RecordMessage(m.GuildID); err != nil {
		log.Printf("[Stats] Error updating message stats: %v", err)
	}

	if !strings.HasPrefix(m.Content, b.prefix) {
		return
	}
	args := strings.Fields(strings.TrimPrefix(m.Content, b.prefix))
	if len(args) == 0 {
		return
	}
	b.runPrefixCommand(ctx, m, guildName, strings.ToLower(args[0]), args[1:])
}

// mentionCount counts the distinct users and roles a message mentions.
func mentionCount(m *discordgo.Message) int {
	seen := make(map[string]bool)
	for _, u := range m.Mentions {
		if u != nil {
			seen["u:"+u.ID] = true
		}
	}
	for _, id := range m.MentionRoles {
		seen["r:"+id] = true
	}
	return len(seen)
}

func (b *Bot) messageDelete(s *discordgo.Session, m *discordgo.MessageDelete) {
	b.handleMessageDelete(m.GuildID, m.BeforeDelete)
}

// handleMessageDelete audits a deleted message when its content is still
// known from the state cache.
func (b *Bot) handleMessageDelete(guildID string, msg *discordgo.Message) {
	if msg == nil || msg.Author == nil || msg.Author.Bot || msg.Content == "" {
		return
	}
	if guildID == "" {
		guildID = msg.GuildID
	}
	if guildID == "" {
		return
	}

	channelName := msg.ChannelID
	if ch, err := b.client.Channel(msg.ChannelID); err == nil {
		channelName = ch.Name
	}
	log.Printf("[EVENT] Message from %s deleted in #%s (%s).", msg.Author.String(), channelName, guildID)

	content := msg.Content
	if utf8.RuneCountInString(content) > deletedContentLimit {
		content = string([]rune(content)[:deletedContentLimit]) + "..."
	}
	b.audit.Event(guildID, audit.MessageDeleted, audit.UserActor(msg.Author),
		fmt.Sprintf("Message by %s deleted in #%s:\n\"%s\"", msg.Author.String(), channelName, content))
}

func (b *Bot) guildMemberAdd(s *discordgo.Session, m *discordgo.GuildMemberAdd) {
	b.handleMemberJoin(m.Member)
}

func (b *Bot) handleMemberJoin(member *discordgo.Member) {
	if member == nil || member.User == nil {
		return
	}
	guildName := b.guildName(member.GuildID)
	log.Printf("[EVENT] User %s joined guild %s (%s).", member.User.String(), guildName, member.GuildID)

	cfg, ok := b.cache.Get(member.GuildID)
	if !ok {
		return
	}

	if cfg.Welcome.Enabled && cfg.Welcome.ChannelID != "" {
		text := strings.Replace(cfg.Welcome.Message, "{user}", platform.Mention(member.User.ID), 1)
		if err := b.sendGreeting(cfg.Welcome.ChannelID, text); err != nil {
			log.Printf("[Welcome] Failed for guild %s (%s): %v", guildName, member.GuildID, err)
		} else {
			log.Printf("[Welcome] Sent welcome message for %s in %s.", member.User.String(), guildName)
		}
	}

	if cfg.AutoRole.Enabled && cfg.AutoRole.RoleID != "" {
		if err := b.client.AddRole(member.GuildID, member.User.ID, cfg.AutoRole.RoleID); err != nil {
			log.Printf("[AutoRole] Failed for guild %s (%s): %v", guildName, member.GuildID, err)
		} else {
			log.Printf("[AutoRole] Applied role %s to %s in %s.", cfg.AutoRole.RoleID, member.User.String(), guildName)
		}
	}

	b.audit.Event(member.GuildID, audit.UserJoined, audit.UserActor(member.User),
		fmt.Sprintf("User %s joined the server.", member.User.String()))
}

func (b *Bot) guildMemberRemove(s *discordgo.Session, m *discordgo.GuildMemberRemove) {
	b.handleMemberLeave(m.Member)
}

func (b *Bot) handleMemberLeave(member *discordgo.Member) {
	if member == nil || member.User == nil {
		return
	}
	guildName := b.guildName(member.GuildID)
	log.Printf("[EVENT] User %s left guild %s.", member.User.String(), guildName)

	cfg, ok := b.cache.Get(member.GuildID)
	if !ok {
		return
	}

	if cfg.Goodbye.Enabled && cfg.Goodbye.ChannelID != "" {
		text := strings.Replace(cfg.Goodbye.Message, "{user}", fmt.Sprintf("**%s**", member.User.String()), 1)
		if err := b.sendGreeting(cfg.Goodbye.ChannelID, text); err != nil {
			log.Printf("[Goodbye] Failed for guild %s: %v", member.GuildID, err)
		}
	}

	b.audit.Event(member.GuildID, audit.UserLeft, audit.UserActor(member.User),
		fmt.Sprintf("User %s left.", member.User.String()))
}

func (b *Bot) sendGreeting(channelID, text string) error {
	if _, err := b.client.Channel(channelID); err != nil {
		return fmt.Errorf("channel %s not found: %w", channelID, err)
	}
	_, err := b.client.SendMessage(channelID, text)
	return err
}

func (b *Bot) messageReactionAdd(s *discordgo.Session, r *discordgo.MessageReactionAdd) {
	b.handleReaction(r.MessageReaction, true)
}

func (b *Bot) messageReactionRemove(s *discordgo.Session, r *discordgo.MessageReactionRemove) {
	b.handleReaction(r.MessageReaction, false)
}

// handleReaction grants or revokes the role mapped to the reacted emoji on a
// reaction-role panel.
func (b *Bot) handleReaction(r *discordgo.MessageReaction, added bool) {
	if r == nil || r.GuildID == "" {
		return
	}
	rr, err := b.Repo.GetReactionRoleByMessage(r.GuildID, r.MessageID)
	if err != nil {
		log.Printf("[ReactionRole] Error looking up reaction role for message %s: %v", r.MessageID, err)
		return
	}
	if rr == nil {
		return
	}

	roles, err := embed.ParseRoleMappings(rr.Roles)
	if err != nil {
		log.Printf("[ReactionRole] Invalid role mappings on reaction role %s: %v", rr.ID, err)
		return
	}
	emoji := platform.EmojiString(r.Emoji)
	var roleID string
	for _, m := range roles {
		if m.Emoji == emoji {
			roleID = m.RoleID
			break
		}
	}
	if roleID == "" {
		return
	}

	member, err := b.client.Member(r.GuildID, r.UserID)
	if err != nil {
		log.Printf("[ReactionRole] Could not find member %s for reaction role %s: %v", r.UserID, rr.ID, err)
		return
	}
	if member.User == nil || member.User.Bot {
		return
	}

	action, change := "Added", b.client.AddRole
	if !added {
		action, change = "Removed", b.client.RemoveRole
	}
	if err := change(r.GuildID, r.UserID, roleID); err != nil {
		log.Printf("[ReactionRole] Error handling reaction role for user %s in guild %s: %v", member.User.String(), r.GuildID, err)
		return
	}
	log.Printf("[ReactionRole] %s role %s to/from %s in guild %s.", action, roleID, member.User.String(), r.GuildID)
}

func (b *Bot) interactionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	if i.GuildID == "" || i.Member == nil {
		b.respondToInteraction(s, i, reply{content: "This command can only be used in a server.", ephemeral: true})
		return
	}

	data := i.ApplicationCommandData()
	guildName := b.guildName(i.GuildID)
	user := i.Member.User

	switch data.Name {
	case "help":
		b.respondToInteraction(s, i, b.helpReply(i.GuildID, guildName))
		b.logCommand(i.GuildID, "/help", user)
	case "leaderboard":
		b.deferInteraction(s, i, data.Name)
		r, err := b.leaderboardReply(i.GuildID, guildName)
		b.editInteractionResponse(s, i, r)
		if err == nil {
			b.logCommand(i.GuildID, "/leaderboard", user)
		}
	case "rank":
		target := user
		if len(data.Options) > 0 {
			if u := data.Options[0].UserValue(s); u != nil {
				target = u
			}
		}
		b.respondToInteraction(s, i, b.rankReply(i.GuildID, target))
		b.logCommand(i.GuildID, "/rank", user)
	case "reroll":
		if !hasManageGuild(i.Member) {
			b.respondToInteraction(s, i, reply{content: noManageGuildText, ephemeral: true})
			return
		}
		var messageID string
		if len(data.Options) > 0 {
			messageID = data.Options[0].StringValue()
		}
		b.deferInteraction(s, i, data.Name)
		r, executed := b.rerollReply(b.ctx, i.GuildID, messageID)
		b.editInteractionResponse(s, i, r)
		if executed {
			b.logCommand(i.GuildID, "/reroll", user)
		}
	}
}

func hasManageGuild(m *discordgo.Member) bool {
	return m.Permissions&discordgo.PermissionAdministrator != 0 ||
		m.Permissions&discordgo.PermissionManageGuild != 0
}

func (b *Bot) respondToInteraction(s *discordgo.Session, i *discordgo.InteractionCreate, r reply) {
	flags := discordgo.MessageFlags(0)
	if r.ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}

	data := &discordgo.InteractionResponseData{
		Content: r.content,
		Flags:   flags,
	}
	if r.embed != nil {
		data.Embeds = []*discordgo.MessageEmbed{r.embed}
	}
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
	if err != nil {
		log.Printf("Error responding to interaction: %v", err)
	}
}

// deferredCommands lists slash commands answered after a deferral and
// whether the deferred reply is ephemeral. A later edit cannot change it.
var deferredCommands = map[string]bool{
	"leaderboard": false,
	"reroll":      true,
}

func deferredResponse(command string) *discordgo.InteractionResponse {
	resp := &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	}
	if deferredCommands[command] {
		resp.Data = &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral}
	}
	return resp
}

func (b *Bot) deferInteraction(s *discordgo.Session, i *discordgo.InteractionCreate, command string) {
	if err := s.InteractionRespond(i.Interaction, deferredResponse(command)); err != nil {
		log.Printf("Error deferring interaction: %v", err)
	}
}

func (b *Bot) editInteractionResponse(s *discordgo.Session, i *discordgo.InteractionCreate, r reply) {
	edit := &discordgo.WebhookEdit{Content: &r.content}
	if r.embed != nil {
		edit.Embeds = &[]*discordgo.MessageEmbed{r.embed}
	}
	if _, err := s.InteractionResponseEdit(i.Interaction, edit); err != nil {
		log.Printf("Error editing interaction response: %v", err)
	}
}
