package provider

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/raphaelgruber/scout/internal/models"
)

// videoNoiseWords name the medium rather than the content.
var videoNoiseWords = []string{"유튜브", "youtube", "동영상", "영상", "비디오", "video", "videos"}

// CleanVideoQuery drops whole tokens that only name the medium, matched
// case-insensitively, and collapses whitespace.
func CleanVideoQuery(q string) string {
	fields := strings.Fields(q)
	kept := fields[:0]
	for _, f := range fields {
		if !isVideoNoise(f) {
			kept = append(kept, f)
		}
	}
	return strings.Join(kept, " ")
}

func isVideoNoise(token string) bool {
	for _, w := range videoNoiseWords {
		if strings.EqualFold(token, w) {
			return true
		}
	}
	return false
}

// VideoProvider queries the YouTube Data API v3 search endpoint.
type VideoProvider struct {
	cfg YouTubeConfig
}

// NewYouTube returns a video provider, or ErrMissingAPIKey.
func NewYouTube(cfg YouTubeConfig) (*VideoProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("youtube: %w", ErrMissingAPIKey)
	}
	cfg = cfg.withDefaults()
	cfg.Client = newHTTPClient(cfg.Client, cfg.Timeout)
	return &VideoProvider{cfg: cfg}, nil
}

func (p *VideoProvider) Name() string { return NameYouTube }

func (p *VideoProvider) Fetch(ctx context.Context, query string, window models.TimeWindow) ([]models.Candidate, error) {
	u, err := url.Parse(p.cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("youtube: parse base url: %w", err)
	}
	q := u.Query()
	q.Set("part", "snippet")
	q.Set("q", CleanVideoQuery(query))
	q.Set("key", p.cfg.APIKey)
	q.Set("type", "video")
	q.Set("maxResults", strconv.Itoa(p.cfg.MaxResults))
	q.Set("regionCode", p.cfg.Region)
	q.Set("relevanceLanguage", p.cfg.Language)
	q.Set("order", "relevance")
	if after := window.PublishedAfter(p.cfg.Now()); !after.IsZero() {
		q.Set("publishedAfter", after.UTC().Format(time.RFC3339))
	}
	u.RawQuery = q.Encode()

	data, _, err := getJSON(ctx, p.cfg.Client, u.String())
	if err != nil {
		return nil, fmt.Errorf("youtube: %w", err)
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("youtube: invalid json response")
	}

	var out []models.Candidate
	gjson.GetBytes(data, "items").ForEach(func(_, item gjson.Result) bool {
		id := item.Get("id.videoId").String()
		if id == "" {
			return true
		}
		snippet := item.Get("snippet")
		c := models.Candidate{
			Platform:  models.PlatformVideo,
			URL:       youtubeWatchURL(id),
			Title:     snippet.Get("title").String(),
			Thumbnail: snippet.Get("thumbnails.high.url").String(),
			Source:    NameYouTube,
		}
		if ts, err := time.Parse(time.RFC3339, snippet.Get("publishedAt").String()); err == nil {
			c.PublishedAt = &ts
		}
		out = append(out, c.InWindow(window))
		return true
	})
	return out, nil
}
