package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/bayusegara27/discora-backend/internal/models"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	db, err := Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	t.Cleanup(func() { Close(db) })
	return NewRepository(db)
}

func TestGetOrCreateUserLevel(t *testing.T) {
	repo := newTestRepo(t)

	first, err := repo.GetOrCreateUserLevel("g1", "u1", "alice", "a.png")
	if err != nil {
		t.Fatalf("GetOrCreateUserLevel() error = %v", err)
	}
	if first.XP != 0 || first.Level != 0 {
		t.Errorf("new level record = %+v, want zeroed", first)
	}

	first.XP = 300
	first.Level = 3
	if err := repo.UpdateUserLevel(first); err != nil {
		t.Fatalf("UpdateUserLevel() error = %v", err)
	}

	again, err := repo.GetOrCreateUserLevel("g1", "u1", "alice", "a.png")
	if err != nil {
		t.Fatalf("GetOrCreateUserLevel() error = %v", err)
	}
	if again.ID != first.ID || again.XP != 300 || again.Level != 3 {
		t.Errorf("second lookup = %+v, want id %s xp 300 level 3", again, first.ID)
	}
}

func TestGetUserLevelMissing(t *testing.T) {
	repo := newTestRepo(t)

	level, err := repo.GetUserLevel("g1", "nobody")
	if err != nil {
		t.Fatalf("GetUserLevel() error = %v", err)
	}
	if level != nil {
		t.Errorf("GetUserLevel() = %+v, want nil", level)
	}
}

func TestTopUserLevels(t *testing.T) {
	repo := newTestRepo(t)

	rows := []models.UserLevel{
		{ID: "1", GuildID: "g1", UserID: "a", Level: 2, XP: 250},
		{ID: "2", GuildID: "g1", UserID: "b", Level: 3, XP: 300},
		{ID: "3", GuildID: "g1", UserID: "c", Level: 2, XP: 260},
		{ID: "4", GuildID: "g2", UserID: "d", Level: 9, XP: 999},
	}
	for i := range rows {
		if err := repo.Create(&rows[i]); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	top, err := repo.TopUserLevels("g1", 10)
	if err != nil {
		t.Fatalf("TopUserLevels() error = %v", err)
	}
	want := []string{"b", "c", "a"}
	if len(top) != len(want) {
		t.Fatalf("TopUserLevels() returned %d rows, want %d", len(top), len(want))
	}
	for i, id := range want {
		if top[i].UserID != id {
			t.Errorf("rank %d = %s, want %s", i+1, top[i].UserID, id)
		}
	}

	ahead, err := repo.CountUsersAhead(&rows[0])
	if err != nil {
		t.Fatalf("CountUsersAhead() error = %v", err)
	}
	if ahead != 2 {
		t.Errorf("CountUsersAhead() = %d, want 2", ahead)
	}
}

func TestListDueScheduledMessages(t *testing.T) {
	repo := newTestRepo(t)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	msgs := []models.ScheduledMessage{
		{ID: "due", ChannelID: "c", Status: models.ScheduledPending, NextRun: now.Add(-time.Minute), Repeat: models.RepeatNone},
		{ID: "future", ChannelID: "c", Status: models.ScheduledPending, NextRun: now.Add(time.Hour), Repeat: models.RepeatNone},
		{ID: "sent", ChannelID: "c", Status: models.ScheduledSent, NextRun: now.Add(-time.Hour), Repeat: models.RepeatNone},
	}
	for i := range msgs {
		if err := repo.Create(&msgs[i]); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	due, err := repo.ListDueScheduledMessages(now)
	if err != nil {
		t.Fatalf("ListDueScheduledMessages() error = %v", err)
	}
	if len(due) != 1 || due[0].ID != "due" {
		t.Errorf("ListDueScheduledMessages() = %+v, want only 'due'", due)
	}
}

func TestListDueGiveawaysSkipsUnannounced(t *testing.T) {
	repo := newTestRepo(t)
	now := time.Now().UTC()

	giveaways := []models.Giveaway{
		{ID: "ready", MessageID: "m1", Status: models.GiveawayRunning, EndsAt: now.Add(-time.Minute), Winners: "[]"},
		{ID: "no-message", Status: models.GiveawayRunning, EndsAt: now.Add(-time.Minute), Winners: "[]"},
		{ID: "ended", MessageID: "m2", Status: models.GiveawayEnded, EndsAt: now.Add(-time.Hour), Winners: "[]"},
	}
	for i := range giveaways {
		if err := repo.Create(&giveaways[i]); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	due, err := repo.ListDueGiveaways(now)
	if err != nil {
		t.Fatalf("ListDueGiveaways() error = %v", err)
	}
	if len(due) != 1 || due[0].ID != "ready" {
		t.Errorf("ListDueGiveaways() = %+v, want only 'ready'", due)
	}
}

func TestUpdateAPIHealthBulk(t *testing.T) {
	repo := newTestRepo(t)

	if err := repo.UpdateAPIHealthBulk("youtube", 5, 4); err != nil {
		t.Fatalf("UpdateAPIHealthBulk() error = %v", err)
	}
	if err := repo.UpdateAPIHealthBulk("youtube", 3, 3); err != nil {
		t.Fatalf("UpdateAPIHealthBulk() error = %v", err)
	}

	stat, err := repo.GetAPIHealth("youtube")
	if err != nil || stat == nil {
		t.Fatalf("GetAPIHealth() = %v, %v", stat, err)
	}
	if stat.TotalRequests != 8 || stat.SuccessfulRequests != 7 {
		t.Errorf("health = %d/%d, want 7/8", stat.SuccessfulRequests, stat.TotalRequests)
	}
}

func TestStatsCounters(t *testing.T) {
	repo := newTestRepo(t)

	stats, err := repo.GetOrCreateStats("g1")
	if err != nil {
		t.Fatalf("GetOrCreateStats() error = %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := repo.IncrementMessagesToday(stats.ID); err != nil {
			t.Fatalf("IncrementMessagesToday() error = %v", err)
		}
	}

	again, err := repo.GetOrCreateStats("g1")
	if err != nil {
		t.Fatalf("GetOrCreateStats() error = %v", err)
	}
	if again.ID != stats.ID || again.MessagesToday != 3 {
		t.Errorf("stats = %+v, want same id with messages_today 3", again)
	}

	if err := repo.ResetMessagesToday(); err != nil {
		t.Fatalf("ResetMessagesToday() error = %v", err)
	}
	again, _ = repo.GetOrCreateStats("g1")
	if again.MessagesToday != 0 {
		t.Errorf("messages_today after reset = %d, want 0", again.MessagesToday)
	}
}

func TestUpsertServer(t *testing.T) {
	repo := newTestRepo(t)

	if err := repo.UpsertServer("g1", "Old", ""); err != nil {
		t.Fatalf("UpsertServer() error = %v", err)
	}
	if err := repo.UpsertServer("g1", "New", "icon.png"); err != nil {
		t.Fatalf("UpsertServer() error = %v", err)
	}

	var servers []models.Server
	if err := repo.db.Find(&servers).Error; err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if len(servers) != 1 || servers[0].Name != "New" || servers[0].IconURL != "icon.png" {
		t.Errorf("servers = %+v, want single updated row", servers)
	}
}

func TestIncrementStat(t *testing.T) {
	repo := newTestRepo(t)

	for i := 0; i < 3; i++ {
		if err := repo.IncrementStat("commands_executed"); err != nil {
			t.Fatalf("IncrementStat() error = %v", err)
		}
	}

	var stat models.SystemStat
	if err := repo.db.First(&stat, "stat_key = ?", "commands_executed").Error; err != nil {
		t.Fatalf("load stat: %v", err)
	}
	if stat.StatValue != 3 {
		t.Errorf("stat value = %d, want 3", stat.StatValue)
	}
}
