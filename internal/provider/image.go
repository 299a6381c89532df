package provider

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/tidwall/gjson"

	"github.com/raphaelgruber/scout/internal/models"
)

// ImageProvider queries SerpAPI's google_images engine and keeps only hits
// that link to an Instagram post/reel or a YouTube watch page.
type ImageProvider struct {
	cfg     SerpAPIConfig
	maxHits int
}

// NewImages returns an image provider, or ErrMissingAPIKey.
func NewImages(cfg SerpAPIConfig) (*ImageProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("serpapi images: %w", ErrMissingAPIKey)
	}
	cfg = cfg.withDefaults(DefaultFetchTimeout)
	cfg.Client = newHTTPClient(cfg.Client, cfg.Timeout)
	return &ImageProvider{cfg: cfg, maxHits: DefaultMaxImageHits}, nil
}

func (p *ImageProvider) Name() string { return NameImages }

func (p *ImageProvider) Fetch(ctx context.Context, query string, window models.TimeWindow) ([]models.Candidate, error) {
	u, err := url.Parse(p.cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("serpapi images: parse base url: %w", err)
	}
	q := u.Query()
	q.Set("engine", "google_images")
	q.Set("q", query)
	q.Set("api_key", p.cfg.APIKey)
	q.Set("num", strconv.Itoa(DefaultImageNum))
	q.Set("hl", p.cfg.Lang)
	q.Set("gl", p.cfg.Country)
	if window.FilterToken != "" {
		q.Set("tbs", window.FilterToken)
	}
	u.RawQuery = q.Encode()

	data, _, err := getJSON(ctx, p.cfg.Client, u.String())
	if err != nil {
		return nil, fmt.Errorf("serpapi images: %w", err)
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("serpapi images: invalid json response")
	}

	var out []models.Candidate
	gjson.GetBytes(data, "images_results").ForEach(func(_, hit gjson.Result) bool {
		link, platform, ok := CanonicalLink(hit.Get("link").String())
		if !ok {
			return true
		}
		out = append(out, models.Candidate{
			Platform:  platform,
			URL:       link,
			Title:     hit.Get("title").String(),
			Thumbnail: hit.Get("thumbnail").String(),
			Source:    NameImages,
		}.InWindow(window))
		return len(out) < p.maxHits
	})
	return out, nil
}
