package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"sync/atomic"

	"github.com/bayusegara27/discora-backend/internal/jobs"
	"github.com/bayusegara27/discora-backend/internal/models"
	"github.com/bwmarrin/discordgo"
)

type channelMeta struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type roleMeta struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color int    `json:"color"`
}

type guildMetadata struct {
	Channels []channelMeta `json:"channels"`
	Roles    []roleMeta    `json:"roles"`
}

// syncMembers mirrors the human members of every guild into the members
// table and returns the number of rows written.
func (b *Bot) syncMembers(ctx context.Context, guildIDs []string) int {
	log.Printf("[CRON: MemberSync] Starting member sync for %d guilds.", len(guildIDs))
	var written atomic.Int64
	jobs.ForEach(ctx, "CRON: MemberSync", b.workers, guildIDs, func(ctx context.Context, guildID string) error {
		n, err := b.syncGuildMembers(guildID)
		written.Add(int64(n))
		return err
	})
	log.Printf("[CRON: MemberSync] Finished member sync.")
	return int(written.Load())
}

func (b *Bot) syncGuildMembers(guildID string) (int, error) {
	members, err := b.client.GuildMembers(guildID)
	if err != nil {
		return 0, fmt.Errorf("failed to sync members for guild %s: %w", guildID, err)
	}

	written := 0
	for _, m := range members {
		if m.User == nil || m.User.Bot {
			continue
		}
		tag, avatar := m.User.String(), m.User.AvatarURL("")

		existing, err := b.Repo.GetMember(guildID, m.User.ID)
		if err != nil {
			return written, err
		}
		if existing != nil && existing.Username == tag && existing.UserAvatarURL == avatar {
			continue
		}
		if existing == nil {
			existing = &models.Member{GuildID: guildID, UserID: m.User.ID}
		}
		existing.Username = tag
		existing.UserAvatarURL = avatar
		existing.JoinedAt = m.JoinedAt.UTC()
		if err := b.Repo.SaveMember(existing); err != nil {
			return written, fmt.Errorf("failed to save member %s: %w", m.User.ID, err)
		}
		written++
	}
	return written, nil
}

// syncMetadata stores a snapshot of each guild's text channels and roles for
// the dashboard and returns the number of snapshots that changed.
func (b *Bot) syncMetadata(ctx context.Context, guildIDs []string) int {
	var written atomic.Int64
	jobs.ForEach(ctx, "CRON: MetadataSync", b.workers, guildIDs, func(ctx context.Context, guildID string) error {
		changed, err := b.syncGuildMetadata(guildID)
		if changed {
			written.Add(1)
		}
		return err
	})
	return int(written.Load())
}

func (b *Bot) syncGuildMetadata(guildID string) (bool, error) {
	channels, err := b.client.GuildChannels(guildID)
	if err != nil {
		return false, fmt.Errorf("failed to sync metadata for guild %s: %w", guildID, err)
	}
	roles, err := b.client.GuildRoles(guildID)
	if err != nil {
		return false, fmt.Errorf("failed to sync metadata for guild %s: %w", guildID, err)
	}

	data, err := json.Marshal(buildMetadata(channels, roles))
	if err != nil {
		return false, err
	}

	meta, err := b.Repo.GetServerMetadata(guildID)
	if err != nil {
		return false, err
	}
	if meta != nil && meta.Data == string(data) {
		return false, nil
	}
	if meta == nil {
		meta = &models.ServerMetadata{GuildID: guildID}
	}
	meta.Data = string(data)
	if err := b.Repo.SaveServerMetadata(meta); err != nil {
		return false, fmt.Errorf("failed to save metadata for guild %s: %w", guildID, err)
	}
	return true, nil
}

// buildMetadata keeps text and announcement channels sorted by name, and
// every role except @everyone from highest to lowest position.
func buildMetadata(channels []*discordgo.Channel, roles []*discordgo.Role) guildMetadata {
	meta := guildMetadata{Channels: []channelMeta{}, Roles: []roleMeta{}}

	for _, c := range channels {
		if c.Type == discordgo.ChannelTypeGuildText || c.Type == discordgo.ChannelTypeGuildNews {
			meta.Channels = append(meta.Channels, channelMeta{ID: c.ID, Name: c.Name})
		}
	}
	sort.Slice(meta.Channels, func(i, j int) bool {
		a, b := meta.Channels[i], meta.Channels[j]
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID < b.ID
	})

	sorted := append([]*discordgo.Role(nil), roles...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Position > sorted[j].Position })
	for _, r := range sorted {
		if r.Name == "@everyone" {
			continue
		}
		meta.Roles = append(meta.Roles, roleMeta{ID: r.ID, Name: r.Name, Color: r.Color})
	}
	return meta
}
