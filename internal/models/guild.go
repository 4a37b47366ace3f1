package models

import "time"

// GuildSettingsRecord is the stored settings row for a guild. Each category
// is serialized JSON text; internal/settings owns decoding.
type GuildSettingsRecord struct {
	ID               string `gorm:"primaryKey;column:id"`
	GuildID          string `gorm:"uniqueIndex;column:guild_id"`
	WelcomeSettings  string `gorm:"column:welcome_settings"`
	GoodbyeSettings  string `gorm:"column:goodbye_settings"`
	AutoRoleSettings string `gorm:"column:auto_role_settings"`
	LevelingSettings string `gorm:"column:leveling_settings"`
	AutoModSettings  string `gorm:"column:auto_mod_settings"`
}

func (GuildSettingsRecord) TableName() string {
	return "settings"
}

type CustomCommand struct {
	ID           string `gorm:"primaryKey;column:id"`
	GuildID      string `gorm:"index;column:guild_id"`
	Command      string `gorm:"column:command"`
	Response     string `gorm:"column:response"`
	IsEmbed      bool   `gorm:"column:is_embed"`
	EmbedContent string `gorm:"column:embed_content"`
}

func (CustomCommand) TableName() string {
	return "commands"
}

type Server struct {
	ID      string `gorm:"primaryKey;column:id"`
	GuildID string `gorm:"uniqueIndex;column:guild_id"`
	Name    string `gorm:"column:name"`
	IconURL string `gorm:"column:icon_url"`
}

func (Server) TableName() string {
	return "servers"
}

type Member struct {
	ID            string    `gorm:"primaryKey;column:id"`
	GuildID       string    `gorm:"uniqueIndex:idx_member_guild_user;column:guild_id"`
	UserID        string    `gorm:"uniqueIndex:idx_member_guild_user;column:user_id"`
	Username      string    `gorm:"column:username"`
	UserAvatarURL string    `gorm:"column:user_avatar_url"`
	JoinedAt      time.Time `gorm:"column:joined_at"`
}

func (Member) TableName() string {
	return "members"
}

// ServerMetadata stores a JSON snapshot of a guild's channels and roles.
type ServerMetadata struct {
	ID      string `gorm:"primaryKey;column:id"`
	GuildID string `gorm:"uniqueIndex;column:guild_id"`
	Data    string `gorm:"column:data"`
}

func (ServerMetadata) TableName() string {
	return "server_metadata"
}
