package api

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	youtubeFeedURL  = "https://www.youtube.com/feeds/videos.xml"
	youtubeWatchURL = "https://www.youtube.com/watch"

	maxWatchPageBytes = 4 << 20
)

// Feed is a parsed channel upload feed.
type Feed struct {
	ChannelTitle string
	Entries      []FeedEntry
}

// FeedEntry is one video of a feed, newest first as published.
type FeedEntry struct {
	VideoID   string
	Title     string
	Published time.Time
}

type atomFeed struct {
	XMLName xml.Name    `xml:"feed"`
	Title   string      `xml:"title"`
	Author  atomAuthor  `xml:"author"`
	Entries []atomEntry `xml:"entry"`
}

type atomAuthor struct {
	Name string `xml:"name"`
}

type atomEntry struct {
	ID        string `xml:"id"`
	VideoID   string `xml:"http://www.youtube.com/xml/schemas/2015 videoId"`
	Title     string `xml:"title"`
	Published string `xml:"published"`
}

// YouTubeClient reads public channel feeds and watch pages.
type YouTubeClient struct {
	*Client
	FeedURL  string
	WatchURL string
}

func NewYouTubeClient(client *Client) *YouTubeClient {
	return &YouTubeClient{Client: client, FeedURL: youtubeFeedURL, WatchURL: youtubeWatchURL}
}

// FetchFeed downloads and parses the upload feed of channelID.
func (c *YouTubeClient) FetchFeed(ctx context.Context, channelID string) (*Feed, error) {
	u := fmt.Sprintf("%s?channel_id=%s", c.FeedURL, url.QueryEscape(channelID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.sendRequest(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed for %s: %w", channelID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed for %s returned status %d", channelID, resp.StatusCode)
	}
	return ParseFeed(resp.Body)
}

// ParseFeed decodes an Atom upload feed. Entries without a video id are
// skipped.
func ParseFeed(r io.Reader) (*Feed, error) {
	var raw atomFeed
	if err := xml.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	feed := &Feed{ChannelTitle: strings.TrimSpace(raw.Title)}
	if feed.ChannelTitle == "" {
		feed.ChannelTitle = strings.TrimSpace(raw.Author.Name)
	}
	for _, e := range raw.Entries {
		id := strings.TrimSpace(e.VideoID)
		if id == "" {
			id = strings.TrimPrefix(strings.TrimSpace(e.ID), "yt:video:")
		}
		if id == "" {
			continue
		}
		entry := FeedEntry{VideoID: id, Title: strings.TrimSpace(e.Title)}
		if t, err := time.Parse(time.RFC3339, strings.TrimSpace(e.Published)); err == nil {
			entry.Published = t
		}
		feed.Entries = append(feed.Entries, entry)
	}
	return feed, nil
}

// IsLive reports whether the watch page of videoID marks it as a live
// broadcast.
func (c *YouTubeClient) IsLive(ctx context.Context, videoID string) (bool, error) {
	if videoID == "" {
		return false, nil
	}
	u := fmt.Sprintf("%s?v=%s", c.WatchURL, url.QueryEscape(videoID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.sendRequest(req)
	if err != nil {
		return false, fmt.Errorf("failed to fetch watch page for %s: %w", videoID, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxWatchPageBytes))
	if err != nil {
		return false, fmt.Errorf("failed to read watch page for %s: %w", videoID, err)
	}
	return IsLivePage(string(body)), nil
}

// IsLivePage checks a watch page for the live markers.
func IsLivePage(html string) bool {
	return strings.Contains(html, `"isLive":true`) || strings.Contains(html, `"isLiveContent":true`)
}
