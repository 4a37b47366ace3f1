package jobs

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/bayusegara27/discora-backend/internal/audit"
	"github.com/bayusegara27/discora-backend/internal/embed"
	"github.com/bayusegara27/discora-backend/internal/models"
	"github.com/bayusegara27/discora-backend/internal/platform"
	"github.com/bwmarrin/discordgo"
)

// Store is the persistence used by the queue processors.
type Store interface {
	ListReactionRoleQueue() ([]models.ReactionRoleQueueItem, error)
	GetReactionRole(id string) (*models.ReactionRole, error)
	SetReactionRoleMessage(id, messageID string) error
	DeleteReactionRoleQueueItem(id string) error

	ListGiveawayQueue() ([]models.GiveawayQueueItem, error)
	GetGiveaway(id string) (*models.Giveaway, error)
	SetGiveawayMessage(id, messageID string) error
	SetGiveawayStatus(id, status string) error
	DeleteGiveawayQueueItem(id string) error

	ListModerationQueue() ([]models.ModerationAction, error)
	DeleteModerationAction(id string) error

	ListDueScheduledMessages(now time.Time) ([]models.ScheduledMessage, error)
	UpdateScheduledMessage(id string, fields map[string]any) error
}

// Processors drains the pending-work collections written by the dashboard.
type Processors struct {
	store   Store
	client  platform.Client
	audit   *audit.Logger
	workers int
	now     func() time.Time
}

func NewProcessors(store Store, client platform.Client, auditLog *audit.Logger, workers int) *Processors {
	return &Processors{store: store, client: client, audit: auditLog, workers: workers, now: time.Now}
}

// ProcessReactionRoleQueue posts each queued reaction-role panel and adds
// its emoji reactions.
func (p *Processors) ProcessReactionRoleQueue(ctx context.Context) (Summary, error) {
	items, err := p.store.ListReactionRoleQueue()
	if err != nil {
		return Summary{}, fmt.Errorf("failed to fetch reaction role queue: %w", err)
	}
	if len(items) == 0 {
		return Summary{}, nil
	}
	log.Printf("[CRON: ReactionRoles] Processing %d item(s) from queue.", len(items))

	return Drain(ctx, "CRON: ReactionRoles", p.workers, items,
		func(it models.ReactionRoleQueueItem) string { return it.ID },
		p.activateReactionRole,
		p.store.DeleteReactionRoleQueueItem,
	), nil
}

func (p *Processors) activateReactionRole(ctx context.Context, item models.ReactionRoleQueueItem) error {
	rr, err := p.store.GetReactionRole(item.ReactionRoleID)
	if err != nil {
		return err
	}
	if rr == nil {
		return fmt.Errorf("reaction role %s not found", item.ReactionRoleID)
	}

	if _, err := p.client.Channel(rr.ChannelID); err != nil {
		return fmt.Errorf("channel %s not found: %w", rr.ChannelID, err)
	}
	roles, err := embed.ParseRoleMappings(rr.Roles)
	if err != nil {
		return err
	}
	if len(roles) == 0 {
		return fmt.Errorf("no roles defined for reaction role %s", rr.ID)
	}

	msg, err := p.client.SendComplex(rr.ChannelID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{embed.ReactionRolePanel(rr, roles)},
	})
	if err != nil {
		return fmt.Errorf("failed to post panel: %w", err)
	}
	if err := p.store.SetReactionRoleMessage(rr.ID, msg.ID); err != nil {
		return fmt.Errorf("failed to store panel message id: %w", err)
	}

	for _, r := range roles {
		if err := p.client.React(rr.ChannelID, msg.ID, r.Emoji); err != nil {
			log.Printf("[CRON: ReactionRoles] Failed to add reaction %s to panel %s: %v", r.Emoji, rr.ID, err)
		}
	}
	log.Printf("[CRON: ReactionRoles] Successfully posted reaction role %s to channel %s.", rr.ID, rr.ChannelID)
	return nil
}

// ProcessGiveawayQueue posts the announcement of each queued giveaway. A
// giveaway whose announcement cannot be posted is marked as errored.
func (p *Processors) ProcessGiveawayQueue(ctx context.Context) (Summary, error) {
	items, err := p.store.ListGiveawayQueue()
	if err != nil {
		return Summary{}, fmt.Errorf("failed to fetch giveaway queue: %w", err)
	}
	if len(items) == 0 {
		return Summary{}, nil
	}
	log.Printf("[CRON: Giveaways] Processing %d item(s) from new giveaway queue.", len(items))

	return Drain(ctx, "CRON: Giveaways", p.workers, items,
		func(it models.GiveawayQueueItem) string { return it.ID },
		p.announceGiveaway,
		p.store.DeleteGiveawayQueueItem,
	), nil
}

func (p *Processors) announceGiveaway(ctx context.Context, item models.GiveawayQueueItem) error {
	g, err := p.store.GetGiveaway(item.GiveawayID)
	if err != nil {
		return err
	}
	if g == nil {
		return fmt.Errorf("giveaway %s not found", item.GiveawayID)
	}

	msg, err := p.client.SendComplex(g.ChannelID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{embed.Giveaway(g)},
	})
	if err != nil {
		if serr := p.store.SetGiveawayStatus(g.ID, models.GiveawayError); serr != nil {
			log.Printf("[CRON: Giveaways] Failed to mark giveaway %s as errored: %v", g.ID, serr)
		}
		return fmt.Errorf("failed to announce giveaway %s: %w", g.ID, err)
	}
	if err := p.client.React(g.ChannelID, msg.ID, embed.GiveawayEmoji); err != nil {
		log.Printf("[CRON: Giveaways] Failed to add entry reaction to giveaway %s: %v", g.ID, err)
	}
	return p.store.SetGiveawayMessage(g.ID, msg.ID)
}

var errUnknownAction = errors.New("unknown moderation action")

// ProcessModerationQueue executes queued kicks and bans.
func (p *Processors) ProcessModerationQueue(ctx context.Context) (Summary, error) {
	actions, err := p.store.ListModerationQueue()
	if err != nil {
		return Summary{}, fmt.Errorf("failed to fetch moderation queue: %w", err)
	}
	if len(actions) == 0 {
		return Summary{}, nil
	}
	log.Printf("[CRON: Moderation] Processing %d action(s) from queue.", len(actions))

	return Drain(ctx, "CRON: Moderation", p.workers, actions,
		func(a models.ModerationAction) string { return a.ID },
		p.executeModeration,
		p.store.DeleteModerationAction,
	), nil
}

func (p *Processors) executeModeration(ctx context.Context, action models.ModerationAction) error {
	target, err := p.client.Member(action.GuildID, action.TargetUserID)
	if err != nil {
		return fmt.Errorf("target %s (%s) not found: %w", action.TargetUsername, action.TargetUserID, err)
	}
	initiator, err := p.client.Member(action.GuildID, action.InitiatorID)
	if err != nil {
		return fmt.Errorf("initiator %s not found: %w", action.InitiatorID, err)
	}

	reason := action.Reason
	if reason == "" {
		reason = "No reason provided."
	}
	logReason := action.Reason
	if logReason == "" {
		logReason = "None"
	}

	log.Printf("[CRON: Moderation] Executing '%s' on user %s in guild %s, initiated by %s.",
		action.ActionType, action.TargetUsername, action.GuildID, initiator.User.String())

	switch action.ActionType {
	case models.ActionKick:
		if err := p.client.Kick(action.GuildID, action.TargetUserID, reason); err != nil {
			return err
		}
		p.audit.Event(action.GuildID, audit.UserKicked, audit.UserActor(initiator.User),
			fmt.Sprintf("Kicked user %s. Reason: %s", target.User.String(), logReason))
	case models.ActionBan:
		if err := p.client.Ban(action.GuildID, action.TargetUserID, reason); err != nil {
			return err
		}
		p.audit.Event(action.GuildID, audit.UserBanned, audit.UserActor(initiator.User),
			fmt.Sprintf("Banned user %s. Reason: %s", target.User.String(), logReason))
	default:
		return fmt.Errorf("%w: %q", errUnknownAction, action.ActionType)
	}
	return nil
}
