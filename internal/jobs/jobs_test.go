package jobs

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bayusegara27/discora-backend/internal/audit"
	"github.com/bayusegara27/discora-backend/internal/database"
	"github.com/bayusegara27/discora-backend/internal/embed"
	"github.com/bayusegara27/discora-backend/internal/models"
	"github.com/bayusegara27/discora-backend/internal/platform/platformtest"
	"github.com/bwmarrin/discordgo"
)

func newRepo(t *testing.T) *database.Repository {
	t.Helper()
	db, err := database.Open("sqlite", filepath.Join(t.TempDir(), "jobs.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	t.Cleanup(func() { database.Close(db) })
	return database.NewRepository(db)
}

func mustCreate(t *testing.T, repo *database.Repository, value any) {
	t.Helper()
	if err := repo.Create(value); err != nil {
		t.Fatalf("Create(%T) error = %v", value, err)
	}
}

func TestForEachIsolatesFailures(t *testing.T) {
	var calls atomic.Int64
	sum := ForEach(context.Background(), "test", 3, []int{1, 2, 3, 4, 5}, func(ctx context.Context, n int) error {
		calls.Add(1)
		switch n {
		case 2:
			return errors.New("boom")
		case 4:
			panic("kaboom")
		}
		return nil
	})
	if calls.Load() != 5 {
		t.Errorf("calls = %d, want 5", calls.Load())
	}
	if sum.Succeeded != 3 || sum.Failed != 2 {
		t.Errorf("summary = %+v, want 3 ok / 2 failed", sum)
	}
}

func TestDrainRemovesEveryItem(t *testing.T) {
	var removed []string
	done := make(chan string, 5)
	sum := Drain(context.Background(), "test", 1, []string{"a", "b", "c"},
		func(s string) string { return s },
		func(ctx context.Context, s string) error {
			if s == "b" {
				return errors.New("fail")
			}
			return nil
		},
		func(id string) error {
			done <- id
			return nil
		},
	)
	close(done)
	for id := range done {
		removed = append(removed, id)
	}
	if len(removed) != 3 {
		t.Errorf("removed = %v, want all 3", removed)
	}
	if sum.Succeeded != 2 || sum.Failed != 1 {
		t.Errorf("summary = %+v", sum)
	}
}

func TestModerationQueueDrainsDespiteFailure(t *testing.T) {
	repo := newRepo(t)
	fake := platformtest.New()
	fake.Members["g1"] = []*discordgo.Member{{User: &discordgo.User{ID: "mod", Username: "moderator"}}}
	for i := 1; i <= 5; i++ {
		uid := fmt.Sprintf("u%d", i)
		fake.Members["g1"] = append(fake.Members["g1"], &discordgo.Member{User: &discordgo.User{ID: uid, Username: uid}})
		mustCreate(t, repo, &models.ModerationAction{
			ID:             fmt.Sprintf("a%d", i),
			GuildID:        "g1",
			TargetUserID:   uid,
			TargetUsername: uid,
			InitiatorID:    "mod",
			ActionType:     models.ActionKick,
		})
	}
	fake.KickErr = func(userID string) error {
		if userID == "u3" {
			return errors.New("missing permissions")
		}
		return nil
	}

	p := NewProcessors(repo, fake, audit.NewLogger(repo), 2)
	sum, err := p.ProcessModerationQueue(context.Background())
	if err != nil {
		t.Fatalf("ProcessModerationQueue() error = %v", err)
	}
	if sum.Succeeded != 4 || sum.Failed != 1 {
		t.Errorf("summary = %+v, want 4 ok / 1 failed", sum)
	}

	left, _ := repo.ListModerationQueue()
	if len(left) != 0 {
		t.Errorf("queue has %d items left, want 0", len(left))
	}
	if len(fake.Kicks) != 4 {
		t.Errorf("kicks = %d, want 4", len(fake.Kicks))
	}
	for _, k := range fake.Kicks {
		if k.Reason != "No reason provided." {
			t.Errorf("kick reason = %q", k.Reason)
		}
	}
	logs, _ := repo.ListAuditLogs("g1", 10)
	if len(logs) != 4 || logs[0].Type != audit.UserKicked {
		t.Errorf("audit logs = %+v", logs)
	}
}

func TestModerationQueueBan(t *testing.T) {
	repo := newRepo(t)
	fake := platformtest.New()
	fake.Members["g1"] = []*discordgo.Member{
		{User: &discordgo.User{ID: "mod", Username: "moderator"}},
		{User: &discordgo.User{ID: "u1", Username: "spammer"}},
	}
	mustCreate(t, repo, &models.ModerationAction{
		ID: "a1", GuildID: "g1", TargetUserID: "u1", TargetUsername: "spammer",
		InitiatorID: "mod", ActionType: models.ActionBan, Reason: "spam",
	})

	p := NewProcessors(repo, fake, audit.NewLogger(repo), 1)
	if _, err := p.ProcessModerationQueue(context.Background()); err != nil {
		t.Fatalf("ProcessModerationQueue() error = %v", err)
	}
	if len(fake.Bans) != 1 || fake.Bans[0].Reason != "spam" {
		t.Errorf("bans = %+v", fake.Bans)
	}
	logs, _ := repo.ListAuditLogs("g1", 10)
	if len(logs) != 1 || logs[0].Type != audit.UserBanned || logs[0].UserID != "mod" {
		t.Errorf("audit logs = %+v", logs)
	}
}

func TestReactionRoleQueue(t *testing.T) {
	repo := newRepo(t)
	fake := platformtest.New()
	fake.Channels["c1"] = &discordgo.Channel{ID: "c1", GuildID: "g1"}

	mustCreate(t, repo, &models.ReactionRole{
		ID: "rr1", GuildID: "g1", ChannelID: "c1", EmbedTitle: "Pick",
		Roles: `[{"emoji":"👍","roleId":"r1"},{"emoji":"<:pog:123>","roleId":"r2"}]`,
	})
	mustCreate(t, repo, &models.ReactionRole{ID: "rr2", GuildID: "g1", ChannelID: "c1", Roles: `[]`})
	mustCreate(t, repo, &models.ReactionRoleQueueItem{ID: "q1", ReactionRoleID: "rr1"})
	mustCreate(t, repo, &models.ReactionRoleQueueItem{ID: "q2", ReactionRoleID: "rr2"})
	mustCreate(t, repo, &models.ReactionRoleQueueItem{ID: "q3", ReactionRoleID: "gone"})

	p := NewProcessors(repo, fake, audit.NewLogger(repo), 1)
	sum, err := p.ProcessReactionRoleQueue(context.Background())
	if err != nil {
		t.Fatalf("ProcessReactionRoleQueue() error = %v", err)
	}
	if sum.Succeeded != 1 || sum.Failed != 2 {
		t.Errorf("summary = %+v", sum)
	}
	if len(fake.Sent) != 1 || len(fake.Reactions) != 2 {
		t.Errorf("sent = %d, reactions = %d", len(fake.Sent), len(fake.Reactions))
	}
	rr, _ := repo.GetReactionRole("rr1")
	if rr.MessageID != fake.Sent[0].MessageID {
		t.Errorf("MessageID = %q, want %q", rr.MessageID, fake.Sent[0].MessageID)
	}
	left, _ := repo.ListReactionRoleQueue()
	if len(left) != 0 {
		t.Errorf("queue has %d items left", len(left))
	}
}

func TestGiveawayQueue(t *testing.T) {
	repo := newRepo(t)
	fake := platformtest.New()
	fake.SendErr = func(channelID, content string) error {
		if channelID == "broken" {
			return errors.New("unknown channel")
		}
		return nil
	}
	ends := time.Now().Add(time.Hour).UTC()
	mustCreate(t, repo, &models.Giveaway{ID: "gw1", GuildID: "g1", ChannelID: "c1", Prize: "Nitro", WinnerCount: 1, EndsAt: ends, Status: models.GiveawayRunning, Winners: "[]"})
	mustCreate(t, repo, &models.Giveaway{ID: "gw2", GuildID: "g1", ChannelID: "broken", Prize: "Mug", WinnerCount: 1, EndsAt: ends, Status: models.GiveawayRunning, Winners: "[]"})
	mustCreate(t, repo, &models.GiveawayQueueItem{ID: "q1", GiveawayID: "gw1"})
	mustCreate(t, repo, &models.GiveawayQueueItem{ID: "q2", GiveawayID: "gw2"})

	p := NewProcessors(repo, fake, audit.NewLogger(repo), 1)
	if _, err := p.ProcessGiveawayQueue(context.Background()); err != nil {
		t.Fatalf("ProcessGiveawayQueue() error = %v", err)
	}

	g1, _ := repo.GetGiveaway("gw1")
	if g1.MessageID == "" {
		t.Error("gw1 has no message id")
	}
	if len(fake.Reactions) != 1 || fake.Reactions[0].Emoji != embed.GiveawayEmoji {
		t.Errorf("reactions = %+v", fake.Reactions)
	}
	g2, _ := repo.GetGiveaway("gw2")
	if g2.Status != models.GiveawayError {
		t.Errorf("gw2 status = %q, want error", g2.Status)
	}
	left, _ := repo.ListGiveawayQueue()
	if len(left) != 0 {
		t.Errorf("queue has %d items left", len(left))
	}
}

func TestNextRun(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name   string
		next   time.Time
		repeat string
		want   time.Time
		ok     bool
	}{
		{"none", now.Add(-time.Hour), models.RepeatNone, time.Time{}, false},
		{"unknown", now.Add(-time.Hour), "hourly", time.Time{}, false},
		{"daily on time", now, models.RepeatDaily, now.AddDate(0, 0, 1), true},
		{"daily three days late", now.AddDate(0, 0, -3).Add(time.Hour), models.RepeatDaily, now.Add(time.Hour), true},
		{"weekly", now.AddDate(0, 0, -8), models.RepeatWeekly, now.AddDate(0, 0, 6), true},
		{"monthly", now.AddDate(0, -1, 0), models.RepeatMonthly, now.AddDate(0, 1, 0), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NextRun(tt.next, tt.repeat, now)
			if ok != tt.ok || !got.Equal(tt.want) {
				t.Errorf("NextRun() = %v, %v; want %v, %v", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestScheduledMessagesCatchUpOnce(t *testing.T) {
	repo := newRepo(t)
	fake := platformtest.New()
	fake.Channels["c1"] = &discordgo.Channel{ID: "c1", GuildID: "g1"}

	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	overdue := now.AddDate(0, 0, -3).Add(-30 * time.Minute)
	mustCreate(t, repo, &models.ScheduledMessage{ID: "daily", GuildID: "g1", ChannelID: "c1", Content: "standup", Status: models.ScheduledPending, NextRun: overdue, Repeat: models.RepeatDaily})
	mustCreate(t, repo, &models.ScheduledMessage{ID: "once", GuildID: "g1", ChannelID: "c1", Content: "hello", Status: models.ScheduledPending, NextRun: now.Add(-time.Minute), Repeat: models.RepeatNone})
	mustCreate(t, repo, &models.ScheduledMessage{ID: "orphan", GuildID: "g1", ChannelID: "gone", Content: "x", Status: models.ScheduledPending, NextRun: now.Add(-time.Minute), Repeat: models.RepeatNone})
	mustCreate(t, repo, &models.ScheduledMessage{ID: "later", GuildID: "g1", ChannelID: "c1", Content: "later", Status: models.ScheduledPending, NextRun: now.Add(time.Hour), Repeat: models.RepeatNone})

	p := NewProcessors(repo, fake, audit.NewLogger(repo), 2)
	p.now = func() time.Time { return now }
	sum, err := p.ProcessScheduledMessages(context.Background())
	if err != nil {
		t.Fatalf("ProcessScheduledMessages() error = %v", err)
	}
	if sum.Succeeded != 2 || sum.Failed != 1 {
		t.Errorf("summary = %+v", sum)
	}
	if got := len(fake.SentTo("c1")); got != 2 {
		t.Errorf("sent to c1 = %d, want 2", got)
	}

	daily, _ := repo.GetScheduledMessage("daily")
	if daily.Status != models.ScheduledPending {
		t.Errorf("daily status = %q, want pending", daily.Status)
	}
	if !daily.NextRun.After(now) {
		t.Errorf("daily next run %v not after now", daily.NextRun)
	}
	if want := now.Add(23*time.Hour + 30*time.Minute); !daily.NextRun.Equal(want) {
		t.Errorf("daily next run = %v, want %v", daily.NextRun, want)
	}
	if daily.LastRun == nil || !daily.LastRun.Equal(now) {
		t.Errorf("daily last run = %v", daily.LastRun)
	}

	once, _ := repo.GetScheduledMessage("once")
	if once.Status != models.ScheduledSent {
		t.Errorf("once status = %q, want sent", once.Status)
	}
	orphan, _ := repo.GetScheduledMessage("orphan")
	if orphan.Status != models.ScheduledError {
		t.Errorf("orphan status = %q, want error", orphan.Status)
	}

	// A second pass finds nothing due.
	fake.Sent = nil
	if _, err := p.ProcessScheduledMessages(context.Background()); err != nil {
		t.Fatalf("second pass error = %v", err)
	}
	if len(fake.Sent) != 0 {
		t.Errorf("second pass sent %d messages", len(fake.Sent))
	}
}
