package audit

import (
	"log"
	"time"

	"github.com/bayusegara27/discora-backend/internal/models"
	"github.com/bwmarrin/discordgo"
)

const (
	UserJoined       = "USER_JOINED"
	UserLeft         = "USER_LEFT"
	MessageDeleted   = "MESSAGE_DELETED"
	AutoModAction    = "AUTO_MOD_ACTION"
	AIModeration     = "AI_MODERATION"
	UserKicked       = "USER_KICKED"
	UserBanned       = "USER_BANNED"
	GiveawayEnded    = "GIVEAWAY_ENDED"
	GiveawayRerolled = "GIVEAWAY_REROLLED"
)

// Writer persists log entries.
type Writer interface {
	CreateAuditLog(entry *models.AuditLog) error
	CreateCommandLog(entry *models.CommandLog) error
}

// Actor identifies who caused an audit event.
type Actor struct {
	Tag       string
	ID        string
	AvatarURL string
}

// System is an actor for automated events.
func System(name string) Actor {
	return Actor{Tag: name, ID: "system"}
}

// UserActor builds an actor from a platform user.
func UserActor(u *discordgo.User) Actor {
	if u == nil {
		return System("Unknown")
	}
	return Actor{Tag: u.String(), ID: u.ID, AvatarURL: u.AvatarURL("")}
}

// Logger writes audit and command logs. Failures are logged and swallowed.
type Logger struct {
	w   Writer
	now func() time.Time
}

func NewLogger(w Writer) *Logger {
	return &Logger{w: w, now: time.Now}
}

func (l *Logger) Event(guildID, eventType string, actor Actor, content string) {
	entry := &models.AuditLog{
		GuildID:       guildID,
		Type:          eventType,
		User:          actor.Tag,
		UserID:        actor.ID,
		UserAvatarURL: actor.AvatarURL,
		Content:       content,
		Timestamp:     l.now().UTC(),
	}
	if err := l.w.CreateAuditLog(entry); err != nil {
		log.Printf("Failed to log audit event %s for guild %s: %v", eventType, guildID, err)
	}
}

func (l *Logger) Command(guildID, command string, user *discordgo.User) {
	actor := UserActor(user)
	entry := &models.CommandLog{
		GuildID:       guildID,
		Command:       command,
		User:          actor.Tag,
		UserID:        actor.ID,
		UserAvatarURL: actor.AvatarURL,
		Timestamp:     l.now().UTC(),
	}
	if err := l.w.CreateCommandLog(entry); err != nil {
		log.Printf("Failed to log command usage %s for guild %s: %v", command, guildID, err)
	}
}
