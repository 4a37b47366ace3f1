package bot

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/bayusegara27/discora-backend/internal/embed"
	"github.com/bayusegara27/discora-backend/internal/giveaway"
	"github.com/bayusegara27/discora-backend/internal/leveling"
	"github.com/bwmarrin/discordgo"
)

const (
	leaderboardSize   = 10
	noManageGuildText = `You need the "Manage Server" permission to use this command.`
)

// reply is a command response that can go out as a channel message or an
// interaction response.
type reply struct {
	content   string
	embed     *discordgo.MessageEmbed
	ephemeral bool
}

func (b *Bot) registerCommands() {
	commands := []*discordgo.ApplicationCommand{
		{
			Name:        "help",
			Description: "Shows the list of commands for this server",
		},
		{
			Name:        "leaderboard",
			Description: "Displays the server leaderboard",
		},
		{
			Name:        "rank",
			Description: "Shows your level and rank",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user",
					Description: "Member to look up",
					Required:    false,
				},
			},
		},
		{
			Name:        "reroll",
			Description: "Rerolls the winners of an ended giveaway",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "message_id",
					Description: "Message ID of the giveaway announcement",
					Required:    true,
				},
			},
		},
	}

	_, err := b.Session.ApplicationCommandBulkOverwrite(b.Session.State.User.ID, "", commands)
	if err != nil {
		log.Printf("Error registering commands: %v", err)
	}
}

// runPrefixCommand dispatches a prefixed message to a built-in or custom
// command. Unknown names are ignored.
func (b *Bot) runPrefixCommand(ctx context.Context, m *discordgo.Message, guildName, name string, args []string) {
	command := b.prefix + name

	switch name {
	case "help":
		b.send(m.ChannelID, b.helpReply(m.GuildID, guildName))
	case "leaderboard":
		r, err := b.leaderboardReply(m.GuildID, guildName)
		b.send(m.ChannelID, r)
		if err != nil {
			return
		}
	case "rank":
		b.send(m.ChannelID, b.rankReply(m.GuildID, m.Author))
	case "reroll":
		ok, err := b.client.HasPermission(m.ChannelID, m.Author.ID, discordgo.PermissionManageGuild)
		if err != nil {
			log.Printf("[CMD] Failed to check permissions of %s: %v", m.Author.String(), err)
		}
		if !ok {
			b.replyTo(m, noManageGuildText)
			return
		}
		var messageID string
		if len(args) > 0 {
			messageID = args[0]
		}
		r, executed := b.rerollReply(ctx, m.GuildID, messageID)
		b.replyTo(m, r.content)
		if !executed {
			return
		}
	default:
		if !b.runCustomCommand(m, name) {
			return
		}
	}

	b.logCommand(m.GuildID, command, m.Author)
	log.Printf("[CMD] Command '%s' executed by %s in %s.", command, m.Author.String(), guildName)
}

func (b *Bot) runCustomCommand(m *discordgo.Message, name string) bool {
	cmd, ok := b.cache.Command(m.GuildID, name)
	if !ok {
		return false
	}
	if !cmd.IsEmbed {
		b.send(m.ChannelID, reply{content: cmd.Response})
		return true
	}

	e, err := embed.Custom(cmd.EmbedContent)
	if err != nil {
		log.Printf("[CMD] Failed to send embed for command %s%s in guild %s: %v", b.prefix, name, m.GuildID, err)
		b.send(m.ChannelID, reply{content: "Sorry, there was an error displaying this embed command."})
		return true
	}
	b.send(m.ChannelID, reply{embed: e})
	return true
}

func (b *Bot) helpReply(guildID, guildName string) reply {
	builtIns := []embed.HelpEntry{
		{Name: b.prefix + "help", Description: "Shows this list of commands."},
		{Name: b.prefix + "leaderboard", Description: "Displays the server leaderboard."},
		{Name: b.prefix + "rank", Description: "Shows your level and rank."},
		{Name: b.prefix + "reroll <message_id>", Description: "Rerolls a giveaway winner (Admin only)."},
	}
	return reply{embed: embed.Help(guildName, b.prefix, builtIns, b.cache.CommandNames(guildID))}
}

func (b *Bot) leaderboardReply(guildID, guildName string) (reply, error) {
	levels, err := b.Repo.TopUserLevels(guildID, leaderboardSize)
	if err != nil {
		log.Printf("[CMD] Error fetching leaderboard for guild %s: %v", guildID, err)
		return reply{content: "Sorry, I was unable to fetch the leaderboard at this time."}, err
	}
	return reply{embed: embed.Leaderboard(guildName, levels)}, nil
}

func (b *Bot) rankReply(guildID string, user *discordgo.User) reply {
	level, err := b.Repo.GetUserLevel(guildID, user.ID)
	if err != nil {
		log.Printf("[CMD] Error fetching rank of %s in guild %s: %v", user.ID, guildID, err)
		return reply{content: "Sorry, I was unable to fetch that rank at this time.", ephemeral: true}
	}
	if level == nil {
		return reply{content: fmt.Sprintf("%s has not earned any XP yet.", user.String()), ephemeral: true}
	}
	ahead, err := b.Repo.CountUsersAhead(level)
	if err != nil {
		log.Printf("[CMD] Error computing rank of %s in guild %s: %v", user.ID, guildID, err)
		return reply{content: "Sorry, I was unable to fetch that rank at this time.", ephemeral: true}
	}
	return reply{embed: embed.Rank(level, ahead+1, leveling.Threshold(level.Level+1))}
}

// rerollReply rerolls the giveaway announced by messageID. executed is false
// when the request was rejected before any winner was drawn.
func (b *Bot) rerollReply(ctx context.Context, guildID, messageID string) (r reply, executed bool) {
	if messageID == "" {
		return reply{content: "Please provide the message ID of the giveaway to reroll.", ephemeral: true}, false
	}

	g, err := b.giveaways.Reroll(ctx, guildID, messageID)
	switch {
	case errors.Is(err, giveaway.ErrNotFound):
		return reply{content: "Could not find an ended giveaway with that message ID.", ephemeral: true}, false
	case errors.Is(err, giveaway.ErrNotEnded):
		return reply{content: "This giveaway has not ended yet.", ephemeral: true}, false
	case err != nil:
		log.Printf("[CMD] Reroll command error: %v", err)
		return reply{content: "An error occurred while trying to reroll the giveaway.", ephemeral: true}, false
	}
	log.Printf("[CMD] Rerolled giveaway %s in guild %s.", g.ID, guildID)
	return reply{content: fmt.Sprintf("Rerolling giveaway for **%s**...", g.Prize)}, true
}

const commandsExecutedStat = "commands_executed"

func (b *Bot) logCommand(guildID, command string, user *discordgo.User) {
	b.audit.Command(guildID, command, user)
	if err := b.Repo.IncrementStat(commandsExecutedStat); err != nil {
		log.Printf("[CMD] Failed to increment %s: %v", commandsExecutedStat, err)
	}
}

func (b *Bot) send(channelID string, r reply) {
	msg := &discordgo.MessageSend{Content: r.content}
	if r.embed != nil {
		msg.Embeds = []*discordgo.MessageEmbed{r.embed}
	}
	if _, err := b.client.SendComplex(channelID, msg); err != nil {
		log.Printf("[CMD] Failed to send response to channel %s: %v", channelID, err)
	}
}

func (b *Bot) replyTo(m *discordgo.Message, content string) {
	_, err := b.client.SendComplex(m.ChannelID, &discordgo.MessageSend{
		Content:   content,
		Reference: m.Reference(),
	})
	if err != nil {
		log.Printf("[CMD] Failed to reply in channel %s: %v", m.ChannelID, err)
	}
}
