package database

import (
	"errors"
	"time"

	"github.com/bayusegara27/discora-backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultPageSize bounds whole-collection listings.
const DefaultPageSize = 5000

// Repository handles database operations for every bot collection
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new repository instance
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func newID() string {
	return uuid.NewString()
}

// first loads a single row matching the query. Returns (false, nil) when
// nothing matches.
func (r *Repository) first(dest any, query string, args ...any) (bool, error) {
	err := WithRetry(func() error {
		return r.db.Where(query, args...).First(dest).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// --- Service health ---

func (r *Repository) UpsertServiceStatus(status *models.ServiceStatus) error {
	return WithRetry(func() error {
		// GORM's Save works as an upsert for records with a primary key.
		return r.db.Save(status).Error
	})
}

func (r *Repository) ListServiceStatuses() ([]models.ServiceStatus, error) {
	var statuses []models.ServiceStatus
	err := WithRetry(func() error {
		return r.db.Order("service_name").Find(&statuses).Error
	})
	return statuses, err
}

func (r *Repository) UpdateAPIHealthBulk(serviceName string, totalToAdd, successfulToAdd uint64) error {
	if totalToAdd == 0 && successfulToAdd == 0 {
		return nil
	}

	return WithRetry(func() error {
		row := &models.APIHealthStat{
			ServiceName:        serviceName,
			TotalRequests:      totalToAdd,
			SuccessfulRequests: successfulToAdd,
		}
		return r.db.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "service_name"}},
			DoUpdates: clause.Assignments(map[string]any{
				"total_requests":      gorm.Expr("api_health_stats.total_requests + ?", totalToAdd),
				"successful_requests": gorm.Expr("api_health_stats.successful_requests + ?", successfulToAdd),
			}),
		}).Create(row).Error
	})
}

func (r *Repository) GetAPIHealth(serviceName string) (*models.APIHealthStat, error) {
	var stat models.APIHealthStat
	found, err := r.first(&stat, "service_name = ?", serviceName)
	if err != nil || !found {
		return nil, err
	}
	return &stat, nil
}

// IncrementStat atomically increments a system-wide counter, creating it on first use.
func (r *Repository) IncrementStat(key string) error {
	return WithRetry(func() error {
		return r.db.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "stat_key"}},
			DoUpdates: clause.Assignments(map[string]any{
				"stat_value": gorm.Expr("system_stats.stat_value + 1"),
				"updated_at": time.Now().UTC(),
			}),
		}).Create(&models.SystemStat{StatKey: key, StatValue: 1, UpdatedAt: time.Now().UTC()}).Error
	})
}

// UpsertBotInfo records the bot account shown on the dashboard.
func (r *Repository) UpsertBotInfo(name, avatarURL string) error {
	return WithRetry(func() error {
		return r.db.Save(&models.BotInfo{ID: "main_bot_info", Name: name, AvatarURL: avatarURL}).Error
	})
}

// TouchSystemStatus moves the dashboard heartbeat forward.
func (r *Repository) TouchSystemStatus(now time.Time) error {
	return WithRetry(func() error {
		return r.db.Save(&models.SystemStatus{ID: "main_status", LastSeen: now.UTC()}).Error
	})
}

// --- Settings and custom commands ---

func (r *Repository) ListGuildSettings(limit int) ([]models.GuildSettingsRecord, error) {
	var records []models.GuildSettingsRecord
	err := WithRetry(func() error {
		return r.db.Limit(limit).Find(&records).Error
	})
	return records, err
}

func (r *Repository) ListCustomCommands(limit int) ([]models.CustomCommand, error) {
	var commands []models.CustomCommand
	err := WithRetry(func() error {
		return r.db.Limit(limit).Find(&commands).Error
	})
	return commands, err
}

// --- Servers, members and metadata ---

// UpsertServer creates the server row or refreshes its name and icon.
func (r *Repository) UpsertServer(guildID, name, iconURL string) error {
	return WithRetry(func() error {
		return r.db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "guild_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "icon_url"}),
		}).Create(&models.Server{ID: newID(), GuildID: guildID, Name: name, IconURL: iconURL}).Error
	})
}

// GetMember returns (nil, nil) if the member has never been synced.
func (r *Repository) GetMember(guildID, userID string) (*models.Member, error) {
	var member models.Member
	found, err := r.first(&member, "guild_id = ? AND user_id = ?", guildID, userID)
	if err != nil || !found {
		return nil, err
	}
	return &member, nil
}

func (r *Repository) SaveMember(member *models.Member) error {
	if member.ID == "" {
		member.ID = newID()
	}
	return WithRetry(func() error {
		return r.db.Save(member).Error
	})
}

func (r *Repository) GetServerMetadata(guildID string) (*models.ServerMetadata, error) {
	var meta models.ServerMetadata
	found, err := r.first(&meta, "guild_id = ?", guildID)
	if err != nil || !found {
		return nil, err
	}
	return &meta, nil
}

func (r *Repository) SaveServerMetadata(meta *models.ServerMetadata) error {
	if meta.ID == "" {
		meta.ID = newID()
	}
	return WithRetry(func() error {
		return r.db.Save(meta).Error
	})
}

// --- Leveling ---

// GetOrCreateUserLevel loads the level row for a member, creating a zeroed one
// on first use.
func (r *Repository) GetOrCreateUserLevel(guildID, userID, username, avatarURL string) (*models.UserLevel, error) {
	var level models.UserLevel
	found, err := r.first(&level, "guild_id = ? AND user_id = ?", guildID, userID)
	if err != nil {
		return nil, err
	}
	if found {
		return &level, nil
	}

	level = models.UserLevel{
		ID:            newID(),
		GuildID:       guildID,
		UserID:        userID,
		Username:      username,
		UserAvatarURL: avatarURL,
	}
	if err := r.db.Create(&level).Error; err != nil {
		// Lost a creation race against a concurrent message; read the winner.
		var existing models.UserLevel
		if found, ferr := r.first(&existing, "guild_id = ? AND user_id = ?", guildID, userID); ferr == nil && found {
			return &existing, nil
		}
		return nil, err
	}
	return &level, nil
}

func (r *Repository) GetUserLevel(guildID, userID string) (*models.UserLevel, error) {
	var level models.UserLevel
	found, err := r.first(&level, "guild_id = ? AND user_id = ?", guildID, userID)
	if err != nil || !found {
		return nil, err
	}
	return &level, nil
}

// UpdateUserLevel writes xp, level and the display cache in one update.
func (r *Repository) UpdateUserLevel(level *models.UserLevel) error {
	return WithRetry(func() error {
		return r.db.Model(&models.UserLevel{}).
			Where("id = ?", level.ID).
			Updates(map[string]any{
				"xp":              level.XP,
				"level":           level.Level,
				"username":        level.Username,
				"user_avatar_url": level.UserAvatarURL,
			}).Error
	})
}

// TopUserLevels returns the leaderboard ordered by level then xp.
func (r *Repository) TopUserLevels(guildID string, limit int) ([]models.UserLevel, error) {
	var levels []models.UserLevel
	err := WithRetry(func() error {
		return r.db.Where("guild_id = ?", guildID).
			Order("level DESC").Order("xp DESC").
			Limit(limit).
			Find(&levels).Error
	})
	return levels, err
}

// CountUsersAhead returns how many members of the guild rank above the given record.
func (r *Repository) CountUsersAhead(level *models.UserLevel) (int64, error) {
	var count int64
	err := WithRetry(func() error {
		return r.db.Model(&models.UserLevel{}).
			Where("guild_id = ? AND (level > ? OR (level = ? AND xp > ?))", level.GuildID, level.Level, level.Level, level.XP).
			Count(&count).Error
	})
	return count, err
}

// --- Stats ---

func (r *Repository) GetOrCreateStats(guildID string) (*models.GuildStats, error) {
	var stats models.GuildStats
	found, err := r.first(&stats, "guild_id = ? AND doc_id = ?", guildID, models.StatsDocMarker)
	if err != nil {
		return nil, err
	}
	if found {
		return &stats, nil
	}

	stats = models.GuildStats{
		ID:               newID(),
		DocID:            models.StatsDocMarker,
		GuildID:          guildID,
		MessagesWeekly:   "[]",
		RoleDistribution: "[]",
	}
	if err := r.db.Create(&stats).Error; err != nil {
		var existing models.GuildStats
		if found, ferr := r.first(&existing, "guild_id = ? AND doc_id = ?", guildID, models.StatsDocMarker); ferr == nil && found {
			return &existing, nil
		}
		return nil, err
	}
	return &stats, nil
}

func (r *Repository) ListStats(limit int) ([]models.GuildStats, error) {
	var stats []models.GuildStats
	err := WithRetry(func() error {
		return r.db.Limit(limit).Find(&stats).Error
	})
	return stats, err
}

// UpdateStats writes only the named fields, leaving concurrently maintained
// columns untouched.
func (r *Repository) UpdateStats(id string, fields map[string]any) error {
	return WithRetry(func() error {
		return r.db.Model(&models.GuildStats{}).Where("id = ?", id).Updates(fields).Error
	})
}

// IncrementMessagesToday bumps the daily counter without a read-modify-write.
func (r *Repository) IncrementMessagesToday(id string) error {
	return WithRetry(func() error {
		return r.db.Model(&models.GuildStats{}).
			Where("id = ?", id).
			Update("messages_today", gorm.Expr("messages_today + 1")).Error
	})
}

// ResetMessagesToday zeroes the daily counter of every guild.
func (r *Repository) ResetMessagesToday() error {
	return WithRetry(func() error {
		return r.db.Model(&models.GuildStats{}).
			Where("1 = 1").
			Update("messages_today", 0).Error
	})
}

// --- Reaction roles ---

func (r *Repository) ListReactionRoleQueue() ([]models.ReactionRoleQueueItem, error) {
	var items []models.ReactionRoleQueueItem
	err := WithRetry(func() error {
		return r.db.Find(&items).Error
	})
	return items, err
}

func (r *Repository) DeleteReactionRoleQueueItem(id string) error {
	return WithRetry(func() error {
		return r.db.Delete(&models.ReactionRoleQueueItem{}, "id = ?", id).Error
	})
}

func (r *Repository) GetReactionRole(id string) (*models.ReactionRole, error) {
	var rr models.ReactionRole
	found, err := r.first(&rr, "id = ?", id)
	if err != nil || !found {
		return nil, err
	}
	return &rr, nil
}

func (r *Repository) GetReactionRoleByMessage(guildID, messageID string) (*models.ReactionRole, error) {
	var rr models.ReactionRole
	found, err := r.first(&rr, "guild_id = ? AND message_id = ?", guildID, messageID)
	if err != nil || !found {
		return nil, err
	}
	return &rr, nil
}

func (r *Repository) SetReactionRoleMessage(id, messageID string) error {
	return WithRetry(func() error {
		return r.db.Model(&models.ReactionRole{}).Where("id = ?", id).Update("message_id", messageID).Error
	})
}

// --- Giveaways ---

func (r *Repository) ListGiveawayQueue() ([]models.GiveawayQueueItem, error) {
	var items []models.GiveawayQueueItem
	err := WithRetry(func() error {
		return r.db.Find(&items).Error
	})
	return items, err
}

func (r *Repository) DeleteGiveawayQueueItem(id string) error {
	return WithRetry(func() error {
		return r.db.Delete(&models.GiveawayQueueItem{}, "id = ?", id).Error
	})
}

func (r *Repository) GetGiveaway(id string) (*models.Giveaway, error) {
	var g models.Giveaway
	found, err := r.first(&g, "id = ?", id)
	if err != nil || !found {
		return nil, err
	}
	return &g, nil
}

func (r *Repository) FindGiveawayByMessage(guildID, messageID string) (*models.Giveaway, error) {
	var g models.Giveaway
	found, err := r.first(&g, "guild_id = ? AND message_id = ?", guildID, messageID)
	if err != nil || !found {
		return nil, err
	}
	return &g, nil
}

func (r *Repository) SetGiveawayMessage(id, messageID string) error {
	return WithRetry(func() error {
		return r.db.Model(&models.Giveaway{}).Where("id = ?", id).Update("message_id", messageID).Error
	})
}

// ListDueGiveaways returns running giveaways whose announcement exists and whose end time has passed.
func (r *Repository) ListDueGiveaways(now time.Time) ([]models.Giveaway, error) {
	var giveaways []models.Giveaway
	err := WithRetry(func() error {
		return r.db.Where("status = ? AND ends_at <= ? AND message_id <> ''", models.GiveawayRunning, now.UTC()).
			Find(&giveaways).Error
	})
	return giveaways, err
}

// SetGiveawayResult records the terminal status and the (replacing) winner list.
func (r *Repository) SetGiveawayResult(id, status, winnersJSON string) error {
	return WithRetry(func() error {
		return r.db.Model(&models.Giveaway{}).
			Where("id = ?", id).
			Updates(map[string]any{"status": status, "winners": winnersJSON}).Error
	})
}

func (r *Repository) SetGiveawayStatus(id, status string) error {
	return WithRetry(func() error {
		return r.db.Model(&models.Giveaway{}).Where("id = ?", id).Update("status", status).Error
	})
}

// --- Moderation queue ---

func (r *Repository) ListModerationQueue() ([]models.ModerationAction, error) {
	var actions []models.ModerationAction
	err := WithRetry(func() error {
		return r.db.Find(&actions).Error
	})
	return actions, err
}

func (r *Repository) DeleteModerationAction(id string) error {
	return WithRetry(func() error {
		return r.db.Delete(&models.ModerationAction{}, "id = ?", id).Error
	})
}

// --- Scheduled messages ---

func (r *Repository) ListDueScheduledMessages(now time.Time) ([]models.ScheduledMessage, error) {
	var msgs []models.ScheduledMessage
	err := WithRetry(func() error {
		return r.db.Where("status = ? AND next_run <= ?", models.ScheduledPending, now.UTC()).
			Order("next_run").
			Find(&msgs).Error
	})
	return msgs, err
}

func (r *Repository) GetScheduledMessage(id string) (*models.ScheduledMessage, error) {
	var msg models.ScheduledMessage
	found, err := r.first(&msg, "id = ?", id)
	if err != nil || !found {
		return nil, err
	}
	return &msg, nil
}

func (r *Repository) UpdateScheduledMessage(id string, fields map[string]any) error {
	return WithRetry(func() error {
		return r.db.Model(&models.ScheduledMessage{}).Where("id = ?", id).Updates(fields).Error
	})
}

// --- YouTube ---

func (r *Repository) ListYoutubeSubscriptions(limit int) ([]models.YoutubeSubscription, error) {
	var subs []models.YoutubeSubscription
	err := WithRetry(func() error {
		return r.db.Limit(limit).Find(&subs).Error
	})
	return subs, err
}

func (r *Repository) GetYoutubeSubscription(id string) (*models.YoutubeSubscription, error) {
	var sub models.YoutubeSubscription
	found, err := r.first(&sub, "id = ?", id)
	if err != nil || !found {
		return nil, err
	}
	return &sub, nil
}

func (r *Repository) UpdateYoutubeSubscription(id string, fields map[string]any) error {
	return WithRetry(func() error {
		return r.db.Model(&models.YoutubeSubscription{}).Where("id = ?", id).Updates(fields).Error
	})
}

// --- Logs ---

func (r *Repository) CreateAuditLog(entry *models.AuditLog) error {
	if entry.ID == "" {
		entry.ID = newID()
	}
	return WithRetry(func() error {
		return r.db.Create(entry).Error
	})
}

func (r *Repository) CreateCommandLog(entry *models.CommandLog) error {
	if entry.ID == "" {
		entry.ID = newID()
	}
	return WithRetry(func() error {
		return r.db.Create(entry).Error
	})
}

func (r *Repository) ListAuditLogs(guildID string, limit int) ([]models.AuditLog, error) {
	var logs []models.AuditLog
	err := WithRetry(func() error {
		return r.db.Where("guild_id = ?", guildID).Order("timestamp DESC").Limit(limit).Find(&logs).Error
	})
	return logs, err
}

// Create inserts any model as-is.
func (r *Repository) Create(value any) error {
	return WithRetry(func() error {
		return r.db.Create(value).Error
	})
}
