package giveaway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/bayusegara27/discora-backend/internal/audit"
	"github.com/bayusegara27/discora-backend/internal/embed"
	"github.com/bayusegara27/discora-backend/internal/jobs"
	"github.com/bayusegara27/discora-backend/internal/models"
	"github.com/bayusegara27/discora-backend/internal/platform"
)

var (
	ErrNotFound = errors.New("giveaway not found")
	ErrNotEnded = errors.New("giveaway has not ended yet")
)

const noEntrantsText = "Giveaway ended. Not enough entrants."

// Store is the persistence the giveaway lifecycle needs.
type Store interface {
	ListDueGiveaways(now time.Time) ([]models.Giveaway, error)
	FindGiveawayByMessage(guildID, messageID string) (*models.Giveaway, error)
	SetGiveawayResult(id, status, winnersJSON string) error
	SetGiveawayStatus(id, status string) error
}

type Manager struct {
	store   Store
	client  platform.Client
	audit   *audit.Logger
	workers int
	now     func() time.Time
	intN    func(n int) int
}

func NewManager(store Store, client platform.Client, auditLog *audit.Logger, workers int) *Manager {
	return &Manager{
		store:   store,
		client:  client,
		audit:   auditLog,
		workers: workers,
		now:     time.Now,
		intN:    rand.IntN,
	}
}

// WithRand replaces the winner draw source.
func (m *Manager) WithRand(intN func(n int) int) *Manager {
	m.intN = intN
	return m
}

// PickWinners draws up to n distinct entrants, popping each pick out of the
// remaining pool.
func PickWinners(entrants []string, n int, intN func(n int) int) []string {
	pool := append([]string(nil), entrants...)
	if n > len(pool) {
		n = len(pool)
	}
	winners := make([]string, 0, n)
	for i := 0; i < n; i++ {
		j := intN(len(pool))
		winners = append(winners, pool[j])
		pool[j] = pool[len(pool)-1]
		pool = pool[:len(pool)-1]
	}
	return winners
}

// CheckDue ends every running giveaway whose end time has passed.
func (m *Manager) CheckDue(ctx context.Context) (jobs.Summary, error) {
	due, err := m.store.ListDueGiveaways(m.now().UTC())
	if err != nil {
		return jobs.Summary{}, fmt.Errorf("failed to fetch due giveaways: %w", err)
	}
	if len(due) == 0 {
		return jobs.Summary{}, nil
	}
	log.Printf("[CRON: Giveaways] Found %d giveaway(s) to end.", len(due))

	return jobs.ForEach(ctx, "CRON: Giveaways", m.workers, due, func(ctx context.Context, g models.Giveaway) error {
		return m.End(ctx, &g, false)
	}), nil
}

// Reroll draws fresh winners for an ended giveaway identified by its
// announcement message.
func (m *Manager) Reroll(ctx context.Context, guildID, messageID string) (*models.Giveaway, error) {
	g, err := m.store.FindGiveawayByMessage(guildID, messageID)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, ErrNotFound
	}
	if g.Status != models.GiveawayEnded {
		return g, ErrNotEnded
	}
	return g, m.End(ctx, g, true)
}

// End collects the entrants of g, draws winners and moves it to ended. With
// reroll set the previous winner list is replaced.
func (m *Manager) End(ctx context.Context, g *models.Giveaway, reroll bool) error {
	if err := m.finish(g, reroll); err != nil {
		log.Printf("[Giveaways] Error ending giveaway %s: %v", g.ID, err)
		if serr := m.store.SetGiveawayStatus(g.ID, models.GiveawayError); serr != nil {
			log.Printf("[Giveaways] Failed to mark giveaway %s as errored: %v", g.ID, serr)
		}
		notice := fmt.Sprintf("There was an error ending the giveaway for **%s**.", g.Prize)
		if _, nerr := m.client.SendMessage(g.ChannelID, notice); nerr != nil {
			log.Printf("[Giveaways] Failed to post error notice for giveaway %s: %v", g.ID, nerr)
		}
		return err
	}
	return nil
}

func (m *Manager) finish(g *models.Giveaway, reroll bool) error {
	msg, err := m.client.Message(g.ChannelID, g.MessageID)
	if err != nil {
		return fmt.Errorf("failed to fetch announcement %s: %w", g.MessageID, err)
	}
	users, err := m.client.ReactionUsers(g.ChannelID, g.MessageID, embed.GiveawayEmoji)
	if err != nil {
		return fmt.Errorf("failed to fetch entrants: %w", err)
	}

	var entrants []string
	tags := make(map[string]string)
	for _, u := range users {
		if u.Bot {
			continue
		}
		entrants = append(entrants, u.ID)
		tags[u.ID] = u.String()
	}

	base := embed.Giveaway(g)
	if len(msg.Embeds) > 0 {
		base = msg.Embeds[0]
	}

	if len(entrants) == 0 {
		if err := m.client.EditEmbed(g.ChannelID, g.MessageID, embed.GiveawayCancelled(base, noEntrantsText)); err != nil {
			return err
		}
		log.Printf("[Giveaways] Giveaway %s ended with no entrants.", g.ID)
		return m.store.SetGiveawayResult(g.ID, models.GiveawayEnded, "[]")
	}

	winners := PickWinners(entrants, g.WinnerCount, m.intN)
	mentions := make([]string, len(winners))
	names := make([]string, len(winners))
	for i, id := range winners {
		mentions[i] = platform.Mention(id)
		names[i] = tags[id]
	}
	mentionText := strings.Join(mentions, ", ")

	var announcement string
	if reroll {
		announcement = fmt.Sprintf("A new winner has been rerolled for the **%s** giveaway! Congratulations %s!", g.Prize, mentionText)
	} else {
		announcement = fmt.Sprintf("Congratulations %s! You won the **%s**!", mentionText, g.Prize)
	}
	if _, err := m.client.SendMessage(g.ChannelID, announcement); err != nil {
		return fmt.Errorf("failed to announce winners: %w", err)
	}
	if err := m.client.EditEmbed(g.ChannelID, g.MessageID, embed.GiveawayEnded(base, mentionText)); err != nil {
		log.Printf("[Giveaways] Failed to update announcement for giveaway %s: %v", g.ID, err)
	}

	encoded, err := json.Marshal(winners)
	if err != nil {
		return err
	}
	if err := m.store.SetGiveawayResult(g.ID, models.GiveawayEnded, string(encoded)); err != nil {
		return fmt.Errorf("failed to store winners: %w", err)
	}

	eventType, verb := audit.GiveawayEnded, "ended"
	if reroll {
		eventType, verb = audit.GiveawayRerolled, "rerolled"
	}
	m.audit.Event(g.GuildID, eventType, audit.System("Giveaway System"),
		fmt.Sprintf("Giveaway for \"%s\" %s. Winners: %s", g.Prize, verb, strings.Join(names, ", ")))
	log.Printf("[Giveaways] Giveaway %s %s with %d winner(s).", g.ID, verb, len(winners))
	return nil
}
