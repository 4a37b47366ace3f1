package leveling

import (
	"context"
	"fmt"
	"log"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/bayusegara27/discora-backend/internal/cooldown"
	"github.com/bayusegara27/discora-backend/internal/models"
	"github.com/bayusegara27/discora-backend/internal/platform"
	"github.com/bayusegara27/discora-backend/internal/settings"
)

// Threshold is the total XP required to reach level.
func Threshold(level int) int64 {
	l := int64(level)
	return 5*l*l + 50*l + 100
}

// LevelForXP advances from level while xp reaches the next threshold.
// Levels never go down.
func LevelForXP(xp int64, level int) int {
	for xp >= Threshold(level+1) {
		level++
	}
	return level
}

// Store is the persistence the engine needs.
type Store interface {
	GetOrCreateUserLevel(guildID, userID, username, avatarURL string) (*models.UserLevel, error)
	UpdateUserLevel(level *models.UserLevel) error
}

// Author describes the member who sent a message.
type Author struct {
	GuildID   string
	ChannelID string
	UserID    string
	Username  string
	AvatarURL string
}

// Result reports what one message earned.
type Result struct {
	Awarded  bool
	Delta    int64
	TotalXP  int64
	OldLevel int
	NewLevel int
}

func (r Result) LeveledUp() bool {
	return r.NewLevel > r.OldLevel
}

type Engine struct {
	store     Store
	client    platform.Client
	cooldowns cooldown.Store
	intN      func(n int) int
}

func NewEngine(store Store, client platform.Client, cooldowns cooldown.Store) *Engine {
	return &Engine{store: store, client: client, cooldowns: cooldowns, intN: rand.IntN}
}

// WithRand replaces the XP draw source.
func (e *Engine) WithRand(intN func(n int) int) *Engine {
	e.intN = intN
	return e
}

func (e *Engine) drawXP(min, max int) int64 {
	if max <= min {
		return int64(min)
	}
	return int64(min + e.intN(max-min+1))
}

// AwardMessage grants XP for one message when leveling is enabled, the
// channel is not blacklisted and the member's cooldown has elapsed.
func (e *Engine) AwardMessage(ctx context.Context, author Author, cfg settings.Leveling) (Result, error) {
	if !cfg.Enabled || cfg.IsBlacklisted(author.ChannelID) {
		return Result{}, nil
	}

	window := time.Duration(cfg.CooldownSeconds) * time.Second
	ok, err := e.cooldowns.Allow(ctx, cooldown.Key(author.GuildID, author.UserID), window)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return Result{}, nil
	}

	record, err := e.store.GetOrCreateUserLevel(author.GuildID, author.UserID, author.Username, author.AvatarURL)
	if err != nil {
		return Result{}, fmt.Errorf("failed to load level for %s: %w", author.UserID, err)
	}

	delta := e.drawXP(cfg.XPPerMessageMin, cfg.XPPerMessageMax)
	res := Result{
		Awarded:  true,
		Delta:    delta,
		TotalXP:  record.XP + delta,
		OldLevel: record.Level,
	}
	res.NewLevel = LevelForXP(res.TotalXP, record.Level)

	record.XP = res.TotalXP
	record.Level = res.NewLevel
	record.Username = author.Username
	record.UserAvatarURL = author.AvatarURL
	if err := e.store.UpdateUserLevel(record); err != nil {
		return res, fmt.Errorf("failed to update level for %s: %w", author.UserID, err)
	}
	log.Printf("[XP] Awarded %d XP to %s in guild %s. Total: %d", delta, author.Username, author.GuildID, res.TotalXP)

	if res.LeveledUp() {
		log.Printf("[LevelUp] %s reached level %d in guild %s!", author.Username, res.NewLevel, author.GuildID)
		e.announce(author, cfg, res.NewLevel)
		e.grantReward(author, cfg, res.NewLevel)
	}
	return res, nil
}

func (e *Engine) announce(author Author, cfg settings.Leveling, level int) {
	if cfg.ChannelID == "" {
		return
	}
	msg := strings.ReplaceAll(cfg.Message, "{user}", platform.Mention(author.UserID))
	msg = strings.ReplaceAll(msg, "{level}", strconv.Itoa(level))
	if _, err := e.client.SendMessage(cfg.ChannelID, msg); err != nil {
		log.Printf("[LevelUp] Failed to send level up announcement for %s in guild %s: %v", author.Username, author.GuildID, err)
	}
}

func (e *Engine) grantReward(author Author, cfg settings.Leveling, level int) {
	roleID, ok := cfg.RewardFor(level)
	if !ok {
		return
	}
	if err := e.client.AddRole(author.GuildID, author.UserID, roleID); err != nil {
		log.Printf("[LevelUp] Failed to apply role reward %s to %s: %v", roleID, author.Username, err)
		return
	}
	log.Printf("[LevelUp] Awarded role %s to %s for reaching level %d", roleID, author.Username, level)
}
