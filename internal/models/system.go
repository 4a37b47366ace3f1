package models

import (
	"time"
)

type ServiceStatus struct {
	ServiceName   string    `gorm:"primaryKey;column:service_name"`
	Status        string    `gorm:"column:status"`
	LastHeartbeat time.Time `gorm:"column:last_heartbeat"`
	Details       string    `gorm:"column:details"`
}

func (ServiceStatus) TableName() string {
	return "service_status"
}

// SystemStat holds key-value pairs for system-wide statistics.
type SystemStat struct {
	StatKey   string    `gorm:"primaryKey;column:stat_key"`
	StatValue int64     `gorm:"column:stat_value"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (SystemStat) TableName() string {
	return "system_stats"
}

// APIHealthStat accumulates outbound call outcomes per external service.
type APIHealthStat struct {
	ServiceName        string `gorm:"primaryKey;column:service_name"`
	TotalRequests      uint64 `gorm:"column:total_requests"`
	SuccessfulRequests uint64 `gorm:"column:successful_requests"`
}

func (APIHealthStat) TableName() string {
	return "api_health_stats"
}

// BotInfo is the single record describing the bot account for the dashboard.
type BotInfo struct {
	ID        string `gorm:"primaryKey;column:id"`
	Name      string `gorm:"column:name"`
	AvatarURL string `gorm:"column:avatar_url"`
}

func (BotInfo) TableName() string {
	return "bot_info"
}

// SystemStatus carries the dashboard-facing "last seen" heartbeat.
type SystemStatus struct {
	ID       string    `gorm:"primaryKey;column:id"`
	LastSeen time.Time `gorm:"column:last_seen"`
}

func (SystemStatus) TableName() string {
	return "system_status"
}
