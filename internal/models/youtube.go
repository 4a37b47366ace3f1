package models

import "time"

type YoutubeSubscription struct {
	ID                      string     `gorm:"primaryKey;column:id"`
	GuildID                 string     `gorm:"index;column:guild_id"`
	YoutubeChannelID        string     `gorm:"column:youtube_channel_id"`
	YoutubeChannelName      string     `gorm:"column:youtube_channel_name"`
	DiscordChannelID        string     `gorm:"column:discord_channel_id"`
	DiscordChannelName      string     `gorm:"column:discord_channel_name"`
	MentionRoleID           string     `gorm:"column:mention_role_id"`
	CustomMessage           string     `gorm:"column:custom_message"`
	LiveMessage             string     `gorm:"column:live_message"`
	AnnouncedVideoIDs       string     `gorm:"column:announced_video_ids"`
	LastVideoTimestamp      *time.Time `gorm:"column:last_video_timestamp"`
	LastAnnouncedVideoID    string     `gorm:"column:last_announced_video_id"`
	LastAnnouncedVideoTitle string     `gorm:"column:last_announced_video_title"`
}

func (YoutubeSubscription) TableName() string {
	return "youtube_subscriptions"
}
