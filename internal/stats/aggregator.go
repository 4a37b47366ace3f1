package stats

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/bayusegara27/discora-backend/internal/embed"
	"github.com/bayusegara27/discora-backend/internal/jobs"
	"github.com/bayusegara27/discora-backend/internal/models"
	"github.com/bayusegara27/discora-backend/internal/platform"
	"github.com/bwmarrin/discordgo"
)

const listLimit = 5000

// Store is the stats persistence the aggregator needs.
type Store interface {
	GetOrCreateStats(guildID string) (*models.GuildStats, error)
	UpdateStats(id string, fields map[string]any) error
	IncrementMessagesToday(id string) error
	ResetMessagesToday() error
	ListStats(limit int) ([]models.GuildStats, error)
}

// CommandCounter reports the number of custom commands of a guild.
type CommandCounter interface {
	CommandCount(guildID string) int
}

// RoleCount is one entry of the role distribution snapshot.
type RoleCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
	Color string `json:"color"`
}

type Aggregator struct {
	store     Store
	client    platform.Client
	commands  CommandCounter
	retention int
	workers   int
	now       func() time.Time

	// weekly buckets are read-modify-write; serialize them per guild.
	locks sync.Map
}

func NewAggregator(store Store, client platform.Client, commands CommandCounter, retention, workers int) *Aggregator {
	return &Aggregator{
		store:     store,
		client:    client,
		commands:  commands,
		retention: retention,
		workers:   workers,
		now:       time.Now,
	}
}

func (a *Aggregator) guildLock(guildID string) *sync.Mutex {
	mu, _ := a.locks.LoadOrStore(guildID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// RecordMessage counts one message for today and for its calendar-day bucket.
func (a *Aggregator) RecordMessage(guildID string) error {
	mu := a.guildLock(guildID)
	mu.Lock()
	defer mu.Unlock()

	doc, err := a.store.GetOrCreateStats(guildID)
	if err != nil {
		return fmt.Errorf("failed to load stats for guild %s: %w", guildID, err)
	}
	if err := a.store.IncrementMessagesToday(doc.ID); err != nil {
		return fmt.Errorf("failed to increment messages for guild %s: %w", guildID, err)
	}

	weekly := AddMessage(ParseWeekly(doc.MessagesWeekly), DateKey(a.now()))
	weekly = Prune(weekly, a.retention)
	return a.store.UpdateStats(doc.ID, map[string]any{"messages_weekly": EncodeWeekly(weekly)})
}

// RefreshAll recomputes member, presence, command and role figures for every
// guild. Message counters are left to RecordMessage.
func (a *Aggregator) RefreshAll(ctx context.Context, guildIDs []string) jobs.Summary {
	log.Printf("[CRON: Stats] Starting server stats update for %d guilds.", len(guildIDs))
	sum := jobs.ForEach(ctx, "CRON: Stats", a.workers, guildIDs, func(ctx context.Context, guildID string) error {
		return a.refreshGuild(guildID)
	})
	log.Printf("[CRON: Stats] Finished server stats update.")
	return sum
}

func (a *Aggregator) refreshGuild(guildID string) error {
	members, err := a.client.GuildMembers(guildID)
	if err != nil {
		return fmt.Errorf("failed to update stats for guild %s: %w", guildID, err)
	}
	roles, err := a.client.GuildRoles(guildID)
	if err != nil {
		return fmt.Errorf("failed to update stats for guild %s: %w", guildID, err)
	}

	memberCount := len(members)
	if g, err := a.client.Guild(guildID); err == nil && g.MemberCount > memberCount {
		memberCount = g.MemberCount
	}

	dist, err := json.Marshal(RoleDistribution(guildID, roles, members))
	if err != nil {
		return err
	}

	doc, err := a.store.GetOrCreateStats(guildID)
	if err != nil {
		return fmt.Errorf("failed to load stats for guild %s: %w", guildID, err)
	}
	return a.store.UpdateStats(doc.ID, map[string]any{
		"member_count":      memberCount,
		"online_count":      a.client.OnlineCount(guildID),
		"command_count":     a.commands.CommandCount(guildID),
		"role_distribution": string(dist),
	})
}

// RoleDistribution counts members per role, skipping @everyone and empty
// roles, largest first.
func RoleDistribution(guildID string, roles []*discordgo.Role, members []*discordgo.Member) []RoleCount {
	counts := make(map[string]int)
	for _, m := range members {
		for _, id := range m.Roles {
			counts[id]++
		}
	}

	out := make([]RoleCount, 0, len(roles))
	for _, r := range roles {
		if r.ID == guildID || r.Name == "@everyone" || counts[r.ID] == 0 {
			continue
		}
		out = append(out, RoleCount{Name: r.Name, Count: counts[r.ID], Color: embed.HexColor(r.Color)})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

// DailyReset zeroes today's counters and prunes old day buckets.
func (a *Aggregator) DailyReset(ctx context.Context) error {
	log.Println("[CRON: DailyReset] Starting daily stats reset and weekly data prune...")
	if err := a.store.ResetMessagesToday(); err != nil {
		return fmt.Errorf("failed to reset daily counters: %w", err)
	}

	docs, err := a.store.ListStats(listLimit)
	if err != nil {
		return fmt.Errorf("failed to list stats: %w", err)
	}
	jobs.ForEach(ctx, "CRON: DailyReset", a.workers, docs, func(ctx context.Context, doc models.GuildStats) error {
		mu := a.guildLock(doc.GuildID)
		mu.Lock()
		defer mu.Unlock()
		// The listed copy may be stale; re-read under the lock.
		fresh, err := a.store.GetOrCreateStats(doc.GuildID)
		if err != nil {
			return fmt.Errorf("failed to prune stats for guild %s: %w", doc.GuildID, err)
		}
		pruned := Prune(ParseWeekly(fresh.MessagesWeekly), a.retention)
		return a.store.UpdateStats(fresh.ID, map[string]any{"messages_weekly": EncodeWeekly(pruned)})
	})
	log.Printf("[CRON: DailyReset] Reset daily stats and pruned weekly data for %d guilds.", len(docs))
	return nil
}

// NextDailyReset returns the next 00:00 UTC strictly after t.
func NextDailyReset(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day()+1, 0, 0, 0, 0, time.UTC)
}
