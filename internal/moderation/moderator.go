package moderation

import (
	"context"
	"fmt"
	"log"

	"github.com/bayusegara27/discora-backend/internal/audit"
	"github.com/bayusegara27/discora-backend/internal/platform"
	"github.com/bayusegara27/discora-backend/internal/settings"
	"github.com/bwmarrin/discordgo"
)

// VerdictFlag is the classifier answer for content that must be removed.
const VerdictFlag = "FLAG"

// Classifier labels message content as "FLAG" or "OK".
type Classifier interface {
	Classify(ctx context.Context, content string) string
}

// Message is the part of a guild message moderation looks at.
type Message struct {
	GuildID   string
	GuildName string
	ChannelID string
	MessageID string
	AuthorID  string
	AuthorTag string
	Content   string
	// Mentions is the number of distinct users and roles mentioned.
	Mentions int
}

type Moderator struct {
	client     platform.Client
	audit      *audit.Logger
	classifier Classifier
}

// NewModerator builds a moderator. classifier may be nil, which disables AI
// moderation.
func NewModerator(client platform.Client, auditLog *audit.Logger, classifier Classifier) *Moderator {
	return &Moderator{client: client, audit: auditLog, classifier: classifier}
}

// Handle applies the rule filters and then the AI classifier. It reports
// whether the message was removed.
func (m *Moderator) Handle(ctx context.Context, msg Message, cfg settings.AutoMod) bool {
	if !(cfg.IgnoreAdmins && m.isAdmin(msg)) {
		if reason, hit := Check(cfg, msg.Content, msg.Mentions); hit {
			log.Printf("[AutoMod] Deleting message from %s in %s. Reason: %s", msg.AuthorTag, msg.GuildName, reason)
			m.remove(msg, "[AutoMod]", fmt.Sprintf("Your message in **%s** was removed because %s.", msg.GuildName, reason))
			m.audit.Event(msg.GuildID, audit.AutoModAction, audit.System("AutoMod"),
				fmt.Sprintf("Deleted message from %s because %s.", msg.AuthorTag, reason))
			return true
		}
	}

	if !cfg.AIEnabled || m.classifier == nil {
		return false
	}
	if m.classifier.Classify(ctx, msg.Content) != VerdictFlag {
		return false
	}
	log.Printf("[AI Mod] Flagged and deleted message from %s in %s.", msg.AuthorTag, msg.GuildName)
	m.remove(msg, "[AI Mod]", fmt.Sprintf("Your message in **%s** was automatically removed for potentially violating server rules.", msg.GuildName))
	m.audit.Event(msg.GuildID, audit.AIModeration, audit.System("AutoMod"),
		fmt.Sprintf("Deleted message from %s for potential violation.\nContent: %q", msg.AuthorTag, msg.Content))
	return true
}

func (m *Moderator) isAdmin(msg Message) bool {
	ok, err := m.client.HasPermission(msg.ChannelID, msg.AuthorID, discordgo.PermissionAdministrator)
	if err != nil {
		log.Printf("[AutoMod] Failed to resolve permissions for %s: %v", msg.AuthorTag, err)
		return false
	}
	return ok
}

func (m *Moderator) remove(msg Message, tag, notice string) {
	if err := m.client.DeleteMessage(msg.ChannelID, msg.MessageID); err != nil {
		log.Printf("%s Failed to delete message %s: %v", tag, msg.MessageID, err)
	}
	if err := m.client.DM(msg.AuthorID, notice); err != nil {
		log.Printf("%s Could not DM user %s about deleted message.", tag, msg.AuthorTag)
	}
}
