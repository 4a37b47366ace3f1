package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/bayusegara27/discora-backend/internal/models"
)

// NextRun advances next by the repeat period until it lies strictly after
// now. ok is false for messages that do not repeat.
func NextRun(next time.Time, repeat string, now time.Time) (time.Time, bool) {
	var step func(time.Time) time.Time
	switch repeat {
	case models.RepeatDaily:
		step = func(t time.Time) time.Time { return t.AddDate(0, 0, 1) }
	case models.RepeatWeekly:
		step = func(t time.Time) time.Time { return t.AddDate(0, 0, 7) }
	case models.RepeatMonthly:
		step = func(t time.Time) time.Time { return t.AddDate(0, 1, 0) }
	default:
		return time.Time{}, false
	}

	next = step(next)
	for !next.After(now) {
		next = step(next)
	}
	return next, true
}

// ProcessScheduledMessages sends every due message once. Repeating messages
// are re-armed past now so downtime never causes a burst of catch-up sends.
func (p *Processors) ProcessScheduledMessages(ctx context.Context) (Summary, error) {
	now := p.now().UTC()
	msgs, err := p.store.ListDueScheduledMessages(now)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to fetch scheduled messages: %w", err)
	}
	if len(msgs) == 0 {
		return Summary{}, nil
	}
	log.Printf("[CRON: ScheduledMsg] Found %d message(s) to send.", len(msgs))

	return ForEach(ctx, "CRON: ScheduledMsg", p.workers, msgs, func(ctx context.Context, msg models.ScheduledMessage) error {
		return p.dispatchScheduled(msg, now)
	}), nil
}

func (p *Processors) dispatchScheduled(msg models.ScheduledMessage, now time.Time) error {
	if err := p.sendScheduled(msg); err != nil {
		if uerr := p.store.UpdateScheduledMessage(msg.ID, map[string]any{"status": models.ScheduledError}); uerr != nil {
			log.Printf("[CRON: ScheduledMsg] Failed to mark message %s as errored: %v", msg.ID, uerr)
		}
		return fmt.Errorf("failed to send message %s to channel %s: %w", msg.ID, msg.ChannelID, err)
	}

	updates := map[string]any{"last_run": now, "status": models.ScheduledSent}
	if next, ok := NextRun(msg.NextRun, msg.Repeat, now); ok {
		updates["next_run"] = next.UTC()
		updates["status"] = models.ScheduledPending
		log.Printf("[CRON: ScheduledMsg] Rescheduled message %s for %s.", msg.ID, next.UTC().Format(time.RFC3339))
	}
	return p.store.UpdateScheduledMessage(msg.ID, updates)
}

func (p *Processors) sendScheduled(msg models.ScheduledMessage) error {
	if _, err := p.client.Channel(msg.ChannelID); err != nil {
		return fmt.Errorf("channel not found: %w", err)
	}
	_, err := p.client.SendMessage(msg.ChannelID, msg.Content)
	return err
}
