package models

import "time"

type AuditLog struct {
	ID            string    `gorm:"primaryKey;column:id"`
	GuildID       string    `gorm:"index;column:guild_id"`
	Type          string    `gorm:"column:type"`
	User          string    `gorm:"column:user_tag"`
	UserID        string    `gorm:"column:user_id"`
	UserAvatarURL string    `gorm:"column:user_avatar_url"`
	Content       string    `gorm:"column:content"`
	Timestamp     time.Time `gorm:"column:timestamp"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}

type CommandLog struct {
	ID            string    `gorm:"primaryKey;column:id"`
	GuildID       string    `gorm:"index;column:guild_id"`
	Command       string    `gorm:"column:command"`
	User          string    `gorm:"column:user_tag"`
	UserID        string    `gorm:"column:user_id"`
	UserAvatarURL string    `gorm:"column:user_avatar_url"`
	Timestamp     time.Time `gorm:"column:timestamp"`
}

func (CommandLog) TableName() string {
	return "command_logs"
}

// All lists every model managed by migrations.
func All() []any {
	return []any{
		&ServiceStatus{}, &SystemStat{}, &APIHealthStat{}, &BotInfo{}, &SystemStatus{},
		&GuildSettingsRecord{}, &CustomCommand{}, &Server{}, &Member{}, &ServerMetadata{},
		&UserLevel{}, &GuildStats{},
		&ReactionRole{}, &ReactionRoleQueueItem{}, &Giveaway{}, &GiveawayQueueItem{},
		&ModerationAction{}, &ScheduledMessage{},
		&YoutubeSubscription{},
		&AuditLog{}, &CommandLog{},
	}
}
