// Package discovery finds a single relevant piece of social or video content
// for a query by fanning out over providers and recency windows.
package discovery

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/raphaelgruber/scout/internal/metrics"
	"github.com/raphaelgruber/scout/internal/models"
	"github.com/raphaelgruber/scout/internal/provider"
	"github.com/raphaelgruber/scout/internal/retry"
)

// DefaultWorkers bounds concurrent provider fetches per Discover call.
const DefaultWorkers = 8

// DefaultDeadline bounds a whole Discover call.
const DefaultDeadline = 45 * time.Second

// RelevanceFilter judges whether a candidate answers the user's question.
type RelevanceFilter interface {
	CheckRelevance(ctx context.Context, question, title string, platform models.Platform, searchTerm string) (bool, error)
}

// Recorder receives operation timings.
type Recorder interface {
	RecordTiming(op string, d time.Duration)
}

// RelevanceErrorPolicy decides what a failed relevance check means.
type RelevanceErrorPolicy int

const (
	// AssumeRelevant accepts the candidate whose check failed.
	AssumeRelevant RelevanceErrorPolicy = iota
	// SkipCandidate moves on to the next candidate.
	SkipCandidate
)

// Options tunes an Engine. Zero values pick the defaults.
type Options struct {
	Windows          []models.TimeWindow
	Workers          int
	Retry            retry.Policy
	Deadline         time.Duration
	OnRelevanceError RelevanceErrorPolicy
	Logger           *slog.Logger
	Metrics          Recorder
}

// Engine runs scatter-gather discovery. It holds no per-call state and is
// safe for concurrent use.
type Engine struct {
	providers []provider.Provider
	relevance RelevanceFilter
	opts      Options
	logger    *slog.Logger
}

// New creates an engine. Provider order matters: earlier providers win ties
// and duplicate URLs. relevance may be nil.
func New(providers []provider.Provider, relevance RelevanceFilter, opts Options) *Engine {
	if len(opts.Windows) == 0 {
		opts.Windows = models.DefaultWindows()
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.Retry.MaxAttempts <= 0 {
		opts.Retry = retry.Default()
	}
	if opts.Deadline <= 0 {
		opts.Deadline = DefaultDeadline
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		providers: providers,
		relevance: relevance,
		opts:      opts,
		logger:    logger,
	}
}

// Discover returns the most recent candidate the relevance filter accepts,
// or nil when nothing qualifies. An error is returned only when ctx itself
// is done.
func (e *Engine) Discover(ctx context.Context, query, question string) (*models.Candidate, error) {
	start := time.Now()
	defer e.record(metrics.OpDiscovery, start)

	dctx, cancel := context.WithTimeout(ctx, e.opts.Deadline)
	defer cancel()

	ranked := e.gather(dctx, query)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.logger.Info("discovery gathered candidates", "query", query, "count", len(ranked))

	if len(ranked) == 0 {
		return nil, nil
	}
	if e.relevance == nil || question == "" {
		first := ranked[0]
		return &first, nil
	}

	for i := range ranked {
		if dctx.Err() != nil {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			e.logger.Warn("discovery deadline reached during validation", "query", query, "checked", i)
			return nil, nil
		}

		c := ranked[i]
		ok, err := e.check(dctx, question, c, query)
		if err != nil {
			e.logger.Warn("relevance check failed", "url", c.URL, "error", err)
			if e.opts.OnRelevanceError == SkipCandidate {
				continue
			}
			ok = true
		}
		if ok {
			e.logger.Info("discovery found candidate",
				"query", query,
				"url", c.URL,
				"window", c.WindowLabel,
				"position", i+1)
			return &c, nil
		}
	}

	e.logger.Info("discovery found no relevant candidate", "query", query, "checked", len(ranked))
	return nil, nil
}

// Candidates runs the fan-out and returns the merged, ranked list without
// relevance validation.
func (e *Engine) Candidates(ctx context.Context, query string) ([]models.Candidate, error) {
	dctx, cancel := context.WithTimeout(ctx, e.opts.Deadline)
	defer cancel()

	ranked := e.gather(dctx, query)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return ranked, nil
}

// gather fetches every (provider, window) pair through a bounded pool.
// Results land in fixed slots so merge order does not depend on which fetch
// finishes first. Failed pairs leave their slot empty.
func (e *Engine) gather(ctx context.Context, query string) []models.Candidate {
	windows := e.opts.Windows
	slots := make([][]models.Candidate, len(e.providers)*len(windows))

	var g errgroup.Group
	g.SetLimit(e.opts.Workers)

	for pi, p := range e.providers {
		for wi, w := range windows {
			slot := pi*len(windows) + wi
			g.Go(func() error {
				policy := e.opts.Retry
				policy.Logger = e.logger
				policy.Operation = p.Name() + " " + w.Label

				start := time.Now()
				found, err := retry.Do(ctx, policy, func(ctx context.Context) ([]models.Candidate, error) {
					return p.Fetch(ctx, query, w)
				})
				e.record(metrics.OpProviderFetch, start)
				if err != nil {
					e.logger.Warn("provider fetch failed",
						"provider", p.Name(),
						"window", w.Label,
						"error", err)
					return nil
				}

				tagged := make([]models.Candidate, len(found))
				for i, c := range found {
					tagged[i] = c.InWindow(w)
				}
				slots[slot] = tagged
				return nil
			})
		}
	}
	_ = g.Wait()

	return MergeCandidates(slots)
}

func (e *Engine) check(ctx context.Context, question string, c models.Candidate, query string) (bool, error) {
	start := time.Now()
	defer e.record(metrics.OpRelevance, start)
	return e.relevance.CheckRelevance(ctx, question, c.Title, c.Platform, query)
}

func (e *Engine) record(op string, start time.Time) {
	if e.opts.Metrics != nil {
		e.opts.Metrics.RecordTiming(op, time.Since(start))
	}
}
