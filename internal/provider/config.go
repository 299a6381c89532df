package provider

import (
	"net/http"
	"strings"
	"time"

	"github.com/raphaelgruber/scout/internal/config"
)

const (
	DefaultImageNum       = 50
	DefaultMaxImageHits   = 5
	DefaultVideoResults   = 5
	DefaultWebNum         = 3
	DefaultFetchTimeout   = 30 * time.Second
	DefaultLookupTimeout  = 10 * time.Second
	DefaultWebCacheSize   = 256
	DefaultWebCacheTTL    = 15 * time.Minute
	defaultSerpAPIBaseURL = "https://serpapi.com/search"
	defaultYouTubeBaseURL = "https://www.googleapis.com/youtube/v3/search"
)

// SerpAPIConfig configures both SerpAPI-backed clients.
type SerpAPIConfig struct {
	APIKey  string
	BaseURL string
	Lang    string
	Country string
	Timeout time.Duration
	Client  *http.Client
}

func (c SerpAPIConfig) withDefaults(timeout time.Duration) SerpAPIConfig {
	if c.BaseURL == "" {
		c.BaseURL = defaultSerpAPIBaseURL
	}
	if c.Lang == "" {
		c.Lang = "ko"
	}
	if c.Country == "" {
		c.Country = "kr"
	}
	if c.Timeout <= 0 {
		c.Timeout = timeout
	}
	return c
}

// YouTubeConfig configures the video provider.
type YouTubeConfig struct {
	APIKey     string
	BaseURL    string
	Region     string
	Language   string
	MaxResults int
	Timeout    time.Duration
	Client     *http.Client
	// Now is the clock used for publishedAfter; defaults to time.Now.
	Now func() time.Time
}

func (c YouTubeConfig) withDefaults() YouTubeConfig {
	if c.BaseURL == "" {
		c.BaseURL = defaultYouTubeBaseURL
	}
	if c.Region == "" {
		c.Region = "KR"
	}
	if c.Language == "" {
		c.Language = "ko"
	}
	if c.MaxResults <= 0 {
		c.MaxResults = DefaultVideoResults
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultFetchTimeout
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// SerpAPIFromConfig maps application config onto the SerpAPI client config.
func SerpAPIFromConfig(cfg config.Config) SerpAPIConfig {
	return SerpAPIConfig{
		APIKey:  cfg.SerpAPIKey,
		BaseURL: cfg.SerpAPIBaseURL,
		Lang:    cfg.SearchLang,
		Country: cfg.SearchCountry,
	}
}

// YouTubeFromConfig maps application config onto the video client config.
func YouTubeFromConfig(cfg config.Config) YouTubeConfig {
	return YouTubeConfig{
		APIKey:   cfg.YouTubeAPIKey,
		BaseURL:  cfg.YouTubeBaseURL,
		Region:   strings.ToUpper(cfg.SearchCountry),
		Language: cfg.SearchLang,
	}
}

// FromConfig builds every discovery provider that has credentials, video
// first. Providers without an API key are left out.
func FromConfig(cfg config.Config) []Provider {
	var out []Provider
	if yt, err := NewYouTube(YouTubeFromConfig(cfg)); err == nil {
		out = append(out, yt)
	}
	if img, err := NewImages(SerpAPIFromConfig(cfg)); err == nil {
		out = append(out, img)
	}
	return out
}
