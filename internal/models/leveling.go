package models

// StatsDocMarker identifies the singleton stats row of a guild.
const StatsDocMarker = "main_stats"

type UserLevel struct {
	ID            string `gorm:"primaryKey;column:id"`
	GuildID       string `gorm:"uniqueIndex:idx_level_guild_user;column:guild_id"`
	UserID        string `gorm:"uniqueIndex:idx_level_guild_user;column:user_id"`
	Username      string `gorm:"column:username"`
	UserAvatarURL string `gorm:"column:user_avatar_url"`
	Level         int    `gorm:"column:level"`
	XP            int64  `gorm:"column:xp"`
}

func (UserLevel) TableName() string {
	return "user_levels"
}

type GuildStats struct {
	ID               string `gorm:"primaryKey;column:id"`
	DocID            string `gorm:"uniqueIndex:idx_stats_guild_doc;column:doc_id"`
	GuildID          string `gorm:"uniqueIndex:idx_stats_guild_doc;column:guild_id"`
	MemberCount      int    `gorm:"column:member_count"`
	OnlineCount      int    `gorm:"column:online_count"`
	MessagesToday    int    `gorm:"column:messages_today"`
	CommandCount     int    `gorm:"column:command_count"`
	TotalWarnings    int    `gorm:"column:total_warnings"`
	MessagesWeekly   string `gorm:"column:messages_weekly"`
	RoleDistribution string `gorm:"column:role_distribution"`
}

func (GuildStats) TableName() string {
	return "stats"
}
