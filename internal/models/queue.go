package models

import "time"

type ReactionRole struct {
	ID               string `gorm:"primaryKey;column:id"`
	GuildID          string `gorm:"index:idx_rr_guild_message;column:guild_id"`
	ChannelID        string `gorm:"column:channel_id"`
	MessageID        string `gorm:"index:idx_rr_guild_message;column:message_id"`
	EmbedTitle       string `gorm:"column:embed_title"`
	EmbedDescription string `gorm:"column:embed_description"`
	EmbedColor       string `gorm:"column:embed_color"`
	// Roles is a JSON array of {"emoji": "...", "roleId": "..."}.
	Roles string `gorm:"column:roles"`
}

func (ReactionRole) TableName() string {
	return "reaction_roles"
}

type ReactionRoleQueueItem struct {
	ID             string `gorm:"primaryKey;column:id"`
	ReactionRoleID string `gorm:"column:reaction_role_id"`
}

func (ReactionRoleQueueItem) TableName() string {
	return "reaction_role_queue"
}

const (
	GiveawayRunning = "running"
	GiveawayEnded   = "ended"
	GiveawayError   = "error"
)

type Giveaway struct {
	ID          string    `gorm:"primaryKey;column:id"`
	GuildID     string    `gorm:"index;column:guild_id"`
	ChannelID   string    `gorm:"column:channel_id"`
	MessageID   string    `gorm:"index;column:message_id"`
	Prize       string    `gorm:"column:prize"`
	WinnerCount int       `gorm:"column:winner_count"`
	EndsAt      time.Time `gorm:"index;column:ends_at"`
	Status      string    `gorm:"index;column:status"`
	// Winners is a JSON array of user ids.
	Winners string `gorm:"column:winners"`
}

func (Giveaway) TableName() string {
	return "giveaways"
}

type GiveawayQueueItem struct {
	ID         string `gorm:"primaryKey;column:id"`
	GiveawayID string `gorm:"column:giveaway_id"`
}

func (GiveawayQueueItem) TableName() string {
	return "giveaway_queue"
}

const (
	ActionKick = "kick"
	ActionBan  = "ban"
)

type ModerationAction struct {
	ID             string `gorm:"primaryKey;column:id"`
	GuildID        string `gorm:"column:guild_id"`
	TargetUserID   string `gorm:"column:target_user_id"`
	TargetUsername string `gorm:"column:target_username"`
	InitiatorID    string `gorm:"column:initiator_id"`
	ActionType     string `gorm:"column:action_type"`
	Reason         string `gorm:"column:reason"`
}

func (ModerationAction) TableName() string {
	return "moderation_queue"
}

const (
	ScheduledPending = "pending"
	ScheduledSent    = "sent"
	ScheduledError   = "error"

	RepeatNone    = "none"
	RepeatDaily   = "daily"
	RepeatWeekly  = "weekly"
	RepeatMonthly = "monthly"
)

type ScheduledMessage struct {
	ID        string     `gorm:"primaryKey;column:id"`
	GuildID   string     `gorm:"column:guild_id"`
	ChannelID string     `gorm:"column:channel_id"`
	Content   string     `gorm:"column:content"`
	Status    string     `gorm:"index;column:status"`
	NextRun   time.Time  `gorm:"index;column:next_run"`
	Repeat    string     `gorm:"column:repeat_interval"`
	LastRun   *time.Time `gorm:"column:last_run"`
}

func (ScheduledMessage) TableName() string {
	return "scheduled_messages"
}
