package provider

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/tidwall/gjson"
)

// NoResultsSummary is returned when a lookup finds nothing usable.
const NoResultsSummary = "No search results found."

// WebSearcher runs general SerpAPI web searches and condenses the response
// into a short text summary. Summaries are cached per query.
type WebSearcher struct {
	cfg   SerpAPIConfig
	cache *expirable.LRU[string, string]
}

// WebOption customizes a WebSearcher.
type WebOption func(*webOptions)

type webOptions struct {
	cacheSize int
	cacheTTL  time.Duration
}

// WithCache sets the summary cache size and TTL. A size of zero disables it.
func WithCache(size int, ttl time.Duration) WebOption {
	return func(o *webOptions) {
		o.cacheSize = size
		o.cacheTTL = ttl
	}
}

// NewWebSearcher returns a web searcher, or ErrMissingAPIKey.
func NewWebSearcher(cfg SerpAPIConfig, opts ...WebOption) (*WebSearcher, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("serpapi web: %w", ErrMissingAPIKey)
	}
	o := webOptions{cacheSize: DefaultWebCacheSize, cacheTTL: DefaultWebCacheTTL}
	for _, opt := range opts {
		opt(&o)
	}

	cfg = cfg.withDefaults(DefaultLookupTimeout)
	cfg.Client = newHTTPClient(cfg.Client, cfg.Timeout)

	w := &WebSearcher{cfg: cfg}
	if o.cacheSize > 0 {
		w.cache = expirable.NewLRU[string, string](o.cacheSize, nil, o.cacheTTL)
	}
	return w, nil
}

func (w *WebSearcher) Name() string { return NameWeb }

// Lookup returns a summary of the top web results for query.
func (w *WebSearcher) Lookup(ctx context.Context, query string) (string, error) {
	key := strings.TrimSpace(query)
	if w.cache != nil {
		if summary, ok := w.cache.Get(key); ok {
			return summary, nil
		}
	}

	u, err := url.Parse(w.cfg.BaseURL)
	if err != nil {
		return "", fmt.Errorf("serpapi web: parse base url: %w", err)
	}
	q := u.Query()
	q.Set("q", query)
	q.Set("api_key", w.cfg.APIKey)
	q.Set("num", strconv.Itoa(DefaultWebNum))
	q.Set("hl", w.cfg.Lang)
	q.Set("gl", w.cfg.Country)
	u.RawQuery = q.Encode()

	data, _, err := getJSON(ctx, w.cfg.Client, u.String())
	if err != nil {
		return "", fmt.Errorf("serpapi web: %w", err)
	}
	if !gjson.ValidBytes(data) {
		return "", fmt.Errorf("serpapi web: invalid json response")
	}

	summary := Summarize(data)
	if w.cache != nil {
		w.cache.Add(key, summary)
	}
	return summary, nil
}

// Summarize extracts the most direct answer from a SerpAPI web response:
// answer box, then knowledge graph, then up to three organic snippets.
func Summarize(data []byte) string {
	if ans := gjson.GetBytes(data, "answer_box.answer").String(); ans != "" {
		return "✓ " + ans
	}
	if snip := gjson.GetBytes(data, "answer_box.snippet").String(); snip != "" {
		return "✓ " + snip
	}
	if kg := gjson.GetBytes(data, "knowledge_graph"); kg.IsObject() {
		return fmt.Sprintf("📌 %s\n%s", kg.Get("title").String(), kg.Get("description").String())
	}

	var lines []string
	for _, r := range gjson.GetBytes(data, "organic_results").Array() {
		if len(lines) == 3 {
			break
		}
		lines = append(lines, "• "+r.Get("snippet").String())
	}
	if len(lines) > 0 {
		return strings.Join(lines, "\n")
	}
	return NoResultsSummary
}
