package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/bayusegara27/discora-backend/api"
	"github.com/bayusegara27/discora-backend/internal/jobs"
	"github.com/bayusegara27/discora-backend/internal/models"
	"github.com/bayusegara27/discora-backend/internal/platform"
)

const (
	// HistorySize is how many announced video ids a subscription remembers.
	HistorySize = 20
	listLimit   = 5000

	DefaultUploadMessage = "📢 Hey {mention}! {channelName} just uploaded a new video!\n\n**{videoTitle}**\n{videoUrl}"
	DefaultLiveMessage   = "🔴 Hey {mention}! {channelName} is now LIVE!\n\n**{videoTitle}**\n{videoUrl}"

	watchURL = "https://www.youtube.com/watch?v="
)

// FeedSource fetches channel feeds and classifies videos.
type FeedSource interface {
	FetchFeed(ctx context.Context, channelID string) (*api.Feed, error)
	IsLive(ctx context.Context, videoID string) (bool, error)
}

// Store is the subscription persistence the poller needs.
type Store interface {
	ListYoutubeSubscriptions(limit int) ([]models.YoutubeSubscription, error)
	UpdateYoutubeSubscription(id string, fields map[string]any) error
}

type Poller struct {
	store   Store
	feeds   FeedSource
	client  platform.Client
	workers int
	now     func() time.Time

	running atomic.Bool
}

func NewPoller(store Store, feeds FeedSource, client platform.Client, workers int) *Poller {
	return &Poller{store: store, feeds: feeds, client: client, workers: workers, now: time.Now}
}

// CheckAll polls every subscription once. It returns ran=false without doing
// anything when a previous check is still in progress.
func (p *Poller) CheckAll(ctx context.Context) (sum jobs.Summary, ran bool) {
	if !p.running.CompareAndSwap(false, true) {
		log.Println("[CRON: YouTube] Check already in progress. Skipping.")
		return jobs.Summary{}, false
	}
	defer p.running.Store(false)

	log.Println("[CRON: YouTube] Starting check for new videos...")
	defer log.Println("[CRON: YouTube] Finished checking for new videos.")

	subs, err := p.store.ListYoutubeSubscriptions(listLimit)
	if err != nil {
		log.Printf("[CRON: YouTube] Error fetching subscriptions list: %v", err)
		return jobs.Summary{}, true
	}
	if len(subs) == 0 {
		return jobs.Summary{}, true
	}

	return jobs.ForEach(ctx, "CRON: YouTube", p.workers, subs, p.processSubscription), true
}

func (p *Poller) processSubscription(ctx context.Context, sub models.YoutubeSubscription) error {
	feed, err := p.feeds.FetchFeed(ctx, sub.YoutubeChannelID)
	if err != nil {
		return fmt.Errorf("failed to fetch feed for %s: %w", displayName(sub), err)
	}

	updates := make(map[string]any)
	if sub.YoutubeChannelName == "" && feed.ChannelTitle != "" {
		sub.YoutubeChannelName = feed.ChannelTitle
		updates["youtube_channel_name"] = feed.ChannelTitle
		log.Printf("[YouTube] Fetched YT channel name for %s: %q", sub.YoutubeChannelID, feed.ChannelTitle)
	}
	if sub.DiscordChannelName == "" {
		if ch, err := p.client.Channel(sub.DiscordChannelID); err == nil && ch.Name != "" {
			sub.DiscordChannelName = ch.Name
			updates["discord_channel_name"] = ch.Name
		}
	}

	if len(feed.Entries) > 0 {
		history := ParseHistory(sub.AnnouncedVideoIDs)
		if len(history) == 0 {
			ids := feedIDs(feed.Entries)
			updates["announced_video_ids"] = encodeHistory(ids)
			updates["last_video_timestamp"] = p.now().UTC()
			log.Printf("[YouTube] Initialized subscription for %q. Stored %d latest video IDs.", displayName(sub), len(ids))
		} else if fresh := NewVideos(feed.Entries, history); len(fresh) > 0 {
			log.Printf("[YouTube] Found %d new video(s) for %q.", len(fresh), displayName(sub))
			for i := len(fresh) - 1; i >= 0; i-- {
				p.notify(ctx, sub, fresh[i])
			}

			history = append(history, feedIDs(fresh)...)
			updates["announced_video_ids"] = encodeHistory(TrimHistory(history, HistorySize, feedIDs(feed.Entries)))
			updates["last_video_timestamp"] = p.now().UTC()
			updates["last_announced_video_id"] = fresh[0].VideoID
			updates["last_announced_video_title"] = fresh[0].Title
		}
	}

	if len(updates) == 0 {
		return nil
	}
	if err := p.store.UpdateYoutubeSubscription(sub.ID, updates); err != nil {
		return fmt.Errorf("failed to update subscription %s: %w", sub.ID, err)
	}
	return nil
}

func (p *Poller) notify(ctx context.Context, sub models.YoutubeSubscription, video api.FeedEntry) {
	if _, err := p.client.Channel(sub.DiscordChannelID); err != nil {
		log.Printf("[YouTube] Notification channel %s for sub %s not found: %v", sub.DiscordChannelID, sub.ID, err)
		return
	}

	live, err := p.feeds.IsLive(ctx, video.VideoID)
	if err != nil {
		log.Printf("[YouTube] Error checking live status for video %s: %v", video.VideoID, err)
	}

	tmpl := sub.CustomMessage
	if tmpl == "" {
		tmpl = DefaultUploadMessage
	}
	if live {
		tmpl = sub.LiveMessage
		if tmpl == "" {
			tmpl = DefaultLiveMessage
		}
	}

	if _, err := p.client.SendMessage(sub.DiscordChannelID, Render(tmpl, sub, video)); err != nil {
		log.Printf("[YouTube] Failed to send notification for video %s (sub %s): %v", video.VideoID, sub.ID, err)
		return
	}
	log.Printf("[YouTube] Posted notification for video %q to #%s.", video.Title, sub.DiscordChannelName)
}

// Render fills a notification template.
func Render(tmpl string, sub models.YoutubeSubscription, video api.FeedEntry) string {
	mention := "@everyone"
	if sub.MentionRoleID != "" {
		mention = platform.RoleMention(sub.MentionRoleID)
	}
	return strings.NewReplacer(
		"{mention}", mention,
		"{channelName}", "**"+displayName(sub)+"**",
		"{videoTitle}", video.Title,
		"{videoUrl}", watchURL+video.VideoID,
	).Replace(tmpl)
}

// NewVideos returns the feed entries not yet in history, in feed order.
func NewVideos(entries []api.FeedEntry, history []string) []api.FeedEntry {
	seen := make(map[string]struct{}, len(history))
	for _, id := range history {
		seen[id] = struct{}{}
	}
	var out []api.FeedEntry
	for _, e := range entries {
		if _, ok := seen[e.VideoID]; !ok {
			out = append(out, e)
		}
	}
	return out
}

// TrimHistory keeps the last keep ids, plus any older id still present in
// the current feed so it is never announced again.
func TrimHistory(history []string, keep int, inFeed []string) []string {
	pinned := make(map[string]struct{}, len(inFeed))
	for _, id := range inFeed {
		pinned[id] = struct{}{}
	}
	cut := len(history) - keep
	out := make([]string, 0, min(len(history), keep+len(inFeed)))
	for i, id := range history {
		if _, ok := pinned[id]; ok || i >= cut {
			out = append(out, id)
		}
	}
	return out
}

// ParseHistory decodes the stored id list; malformed text reads as empty.
func ParseHistory(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		log.Printf("[YouTube] Ignoring malformed announced id list: %v", err)
		return nil
	}
	return ids
}

func encodeHistory(ids []string) string {
	b, err := json.Marshal(ids)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func feedIDs(entries []api.FeedEntry) []string {
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.VideoID
	}
	return ids
}

func displayName(sub models.YoutubeSubscription) string {
	if sub.YoutubeChannelName != "" {
		return sub.YoutubeChannelName
	}
	return sub.YoutubeChannelID
}
