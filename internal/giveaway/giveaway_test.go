package giveaway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"path/filepath"
	"strings"
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
	db, err := database.Open("sqlite", filepath.Join(t.TempDir(), "giveaway.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	t.Cleanup(func() { database.Close(db) })
	return database.NewRepository(db)
}

func TestPickWinners(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))

	tests := []struct {
		name      string
		entrants  int
		count     int
		wantCount int
	}{
		{"capped by entrants", 3, 5, 3},
		{"fewer winners than entrants", 10, 2, 2},
		{"exact", 4, 4, 4},
		{"none", 0, 3, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entrants := make([]string, tt.entrants)
			pool := make(map[string]bool)
			for i := range entrants {
				entrants[i] = fmt.Sprintf("u%d", i)
				pool[entrants[i]] = true
			}
			for run := 0; run < 50; run++ {
				winners := PickWinners(entrants, tt.count, r.IntN)
				if len(winners) != tt.wantCount {
					t.Fatalf("len(winners) = %d, want %d", len(winners), tt.wantCount)
				}
				seen := make(map[string]bool)
				for _, w := range winners {
					if !pool[w] {
						t.Fatalf("winner %s is not an entrant", w)
					}
					if seen[w] {
						t.Fatalf("winner %s drawn twice", w)
					}
					seen[w] = true
				}
			}
		})
	}
}

func TestPickWinnersLeavesInputIntact(t *testing.T) {
	entrants := []string{"a", "b", "c"}
	PickWinners(entrants, 2, func(n int) int { return 0 })
	if strings.Join(entrants, ",") != "a,b,c" {
		t.Errorf("entrants mutated: %v", entrants)
	}
}

type fixture struct {
	repo *database.Repository
	fake *platformtest.Fake
	mgr  *Manager
	now  time.Time
}

func newFixture(t *testing.T) *fixture {
	repo := newRepo(t)
	fake := platformtest.New()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	mgr := NewManager(repo, fake, audit.NewLogger(repo), 2).WithRand(func(n int) int { return 0 })
	mgr.now = func() time.Time { return now }
	return &fixture{repo: repo, fake: fake, mgr: mgr, now: now}
}

func (f *fixture) seed(t *testing.T, g *models.Giveaway, reactors ...*discordgo.User) {
	t.Helper()
	msg, err := f.fake.SendComplex(g.ChannelID, &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{embed.Giveaway(g)}})
	if err != nil {
		t.Fatalf("SendComplex() error = %v", err)
	}
	g.MessageID = msg.ID
	if g.Winners == "" {
		g.Winners = "[]"
	}
	if err := f.repo.Create(g); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	f.fake.Reactors[platformtest.ReactorKey(msg.ID, embed.GiveawayEmoji)] = reactors
	f.fake.Sent = nil
}

func TestCheckDueEndsExpiredGiveaways(t *testing.T) {
	f := newFixture(t)
	f.seed(t, &models.Giveaway{
		ID: "gw1", GuildID: "g1", ChannelID: "c1", Prize: "Nitro", WinnerCount: 2,
		EndsAt: f.now.Add(-time.Minute), Status: models.GiveawayRunning,
	},
		&discordgo.User{ID: "bot", Bot: true},
		&discordgo.User{ID: "u1", Username: "alice"},
		&discordgo.User{ID: "u2", Username: "bob"},
		&discordgo.User{ID: "u3", Username: "carol"},
	)
	f.seed(t, &models.Giveaway{
		ID: "gw2", GuildID: "g1", ChannelID: "c1", Prize: "Later", WinnerCount: 1,
		EndsAt: f.now.Add(time.Hour), Status: models.GiveawayRunning,
	})

	sum, err := f.mgr.CheckDue(context.Background())
	if err != nil {
		t.Fatalf("CheckDue() error = %v", err)
	}
	if sum.Succeeded != 1 {
		t.Errorf("summary = %+v, want 1 ended", sum)
	}

	g, _ := f.repo.GetGiveaway("gw1")
	if g.Status != models.GiveawayEnded {
		t.Errorf("status = %q, want ended", g.Status)
	}
	var winners []string
	if err := json.Unmarshal([]byte(g.Winners), &winners); err != nil {
		t.Fatalf("winners %q: %v", g.Winners, err)
	}
	if len(winners) != 2 {
		t.Fatalf("winners = %v", winners)
	}
	for _, w := range winners {
		if w == "bot" {
			t.Error("bot was drawn as a winner")
		}
	}

	sent := f.fake.SentTo("c1")
	if len(sent) != 1 || !strings.HasPrefix(sent[0].Content, "Congratulations <@") || !strings.Contains(sent[0].Content, "**Nitro**") {
		t.Errorf("announcement = %+v", sent)
	}
	if len(f.fake.Edits) != 1 || f.fake.Edits[0].Embed.Color != embed.ColorGreen {
		t.Errorf("edits = %+v", f.fake.Edits)
	}
	logs, _ := f.repo.ListAuditLogs("g1", 5)
	if len(logs) != 1 || logs[0].Type != audit.GiveawayEnded {
		t.Errorf("audit = %+v", logs)
	}

	later, _ := f.repo.GetGiveaway("gw2")
	if later.Status != models.GiveawayRunning {
		t.Errorf("gw2 status = %q, want running", later.Status)
	}
}

func TestEndWithoutEntrants(t *testing.T) {
	f := newFixture(t)
	f.seed(t, &models.Giveaway{
		ID: "gw1", GuildID: "g1", ChannelID: "c1", Prize: "Mug", WinnerCount: 1,
		EndsAt: f.now.Add(-time.Minute), Status: models.GiveawayRunning,
	}, &discordgo.User{ID: "bot", Bot: true})

	if _, err := f.mgr.CheckDue(context.Background()); err != nil {
		t.Fatalf("CheckDue() error = %v", err)
	}
	g, _ := f.repo.GetGiveaway("gw1")
	if g.Status != models.GiveawayEnded || g.Winners != "[]" {
		t.Errorf("giveaway = %+v", g)
	}
	if len(f.fake.Edits) != 1 || f.fake.Edits[0].Embed.Description != noEntrantsText {
		t.Errorf("edits = %+v", f.fake.Edits)
	}
	if f.fake.SentCount() != 0 {
		t.Errorf("sent %d messages, want 0", f.fake.SentCount())
	}
}

func TestEndFailureMarksError(t *testing.T) {
	f := newFixture(t)
	g := &models.Giveaway{
		ID: "gw1", GuildID: "g1", ChannelID: "c1", MessageID: "deleted", Prize: "Mug", WinnerCount: 1,
		EndsAt: f.now.Add(-time.Minute), Status: models.GiveawayRunning, Winners: "[]",
	}
	if err := f.repo.Create(g); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	sum, _ := f.mgr.CheckDue(context.Background())
	if sum.Failed != 1 {
		t.Errorf("summary = %+v", sum)
	}
	got, _ := f.repo.GetGiveaway("gw1")
	if got.Status != models.GiveawayError {
		t.Errorf("status = %q, want error", got.Status)
	}
	if sent := f.fake.SentTo("c1"); len(sent) != 1 || !strings.Contains(sent[0].Content, "error ending the giveaway") {
		t.Errorf("notice = %+v", sent)
	}
}

func TestReroll(t *testing.T) {
	f := newFixture(t)
	f.seed(t, &models.Giveaway{
		ID: "gw1", GuildID: "g1", ChannelID: "c1", Prize: "Nitro", WinnerCount: 1,
		EndsAt: f.now.Add(-time.Hour), Status: models.GiveawayEnded, Winners: `["u1"]`,
	}, &discordgo.User{ID: "u2", Username: "bob"})
	f.seed(t, &models.Giveaway{
		ID: "gw2", GuildID: "g1", ChannelID: "c1", Prize: "Mug", WinnerCount: 1,
		EndsAt: f.now.Add(time.Hour), Status: models.GiveawayRunning,
	})
	running, _ := f.repo.GetGiveaway("gw2")
	ended, _ := f.repo.GetGiveaway("gw1")

	if _, err := f.mgr.Reroll(context.Background(), "g1", "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Reroll(missing) error = %v, want ErrNotFound", err)
	}
	if _, err := f.mgr.Reroll(context.Background(), "g1", running.MessageID); !errors.Is(err, ErrNotEnded) {
		t.Errorf("Reroll(running) error = %v, want ErrNotEnded", err)
	}
	if g, err := f.mgr.Reroll(context.Background(), "g1", ended.MessageID); err != nil || g.Prize != "Nitro" {
		t.Fatalf("Reroll() = %v, %v", g, err)
	}

	g, _ := f.repo.GetGiveaway("gw1")
	if g.Winners != `["u2"]` {
		t.Errorf("winners = %s, want replaced with [\"u2\"]", g.Winners)
	}
	sent := f.fake.SentTo("c1")
	if len(sent) != 1 || !strings.HasPrefix(sent[0].Content, "A new winner has been rerolled") {
		t.Errorf("announcement = %+v", sent)
	}
	logs, _ := f.repo.ListAuditLogs("g1", 5)
	if len(logs) != 1 || logs[0].Type != audit.GiveawayRerolled {
		t.Errorf("audit = %+v", logs)
	}
}
