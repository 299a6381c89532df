// Package service contains the search orchestrator: it classifies each user
// turn, picks a search strategy and turns the outcome into context text for
// the reply generator.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/raphaelgruber/scout/internal/metrics"
	"github.com/raphaelgruber/scout/internal/models"
	"github.com/raphaelgruber/scout/internal/retry"
	"github.com/raphaelgruber/scout/internal/session"
)

// Defaults for Options.
const (
	DefaultCooldownTurns = 10
	DefaultHistoryTurns  = 4
)

// Classifier decides the search intent of a turn.
type Classifier interface {
	Classify(ctx context.Context, req models.ClassifyRequest) (models.AnalysisResult, error)
}

// Discoverer finds one relevant social or video candidate, or nil.
type Discoverer interface {
	Discover(ctx context.Context, query, question string) (*models.Candidate, error)
}

// WebLookup returns a text summary of web results for a query.
type WebLookup interface {
	Lookup(ctx context.Context, query string) (string, error)
}

// Recorder receives operation timings.
type Recorder interface {
	RecordTiming(op string, d time.Duration)
}

// Options tunes a SearchOrchestrator.
type Options struct {
	// CooldownTurns is how many recent turns are checked for an earlier
	// social share before making an unsolicited one. Zero disables the check.
	CooldownTurns int
	// HistoryTurns is how many recent turns the classifier sees.
	HistoryTurns int
	// LookupRetry wraps every general web lookup.
	LookupRetry retry.Policy
	Now         func() time.Time
	Logger      *slog.Logger
	Metrics     Recorder
}

// DefaultOptions returns the standard orchestrator settings.
func DefaultOptions() Options {
	return Options{
		CooldownTurns: DefaultCooldownTurns,
		HistoryTurns:  DefaultHistoryTurns,
		LookupRetry:   retry.Default(),
	}
}

// SearchOrchestrator runs one search decision per turn. It keeps the current
// turn's analysis between AnalyzeQuestion and ExecuteSearch and is therefore
// not safe for concurrent turns; callers serialize turns per session.
type SearchOrchestrator struct {
	classifier Classifier
	discovery  Discoverer
	web        WebLookup
	session    session.Store
	opts       Options
	logger     *slog.Logger

	current models.AnalysisResult
}

// NewSearchOrchestrator wires the collaborators. discovery and web may be
// nil when the matching provider is not configured.
func NewSearchOrchestrator(classifier Classifier, discovery Discoverer, web WebLookup, store session.Store, opts Options) *SearchOrchestrator {
	if opts.HistoryTurns <= 0 {
		opts.HistoryTurns = DefaultHistoryTurns
	}
	if opts.LookupRetry.MaxAttempts <= 0 {
		opts.LookupRetry = retry.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if store == nil {
		store = session.NewMemory()
	}
	return &SearchOrchestrator{
		classifier: classifier,
		discovery:  discovery,
		web:        web,
		session:    store,
		opts:       opts,
		logger:     logger,
		current:    models.NoSearch("not analyzed"),
	}
}

// AnalyzeQuestion classifies question and keeps the result for the rest of
// the turn. Failures degrade to NO_SEARCH.
func (o *SearchOrchestrator) AnalyzeQuestion(ctx context.Context, question, personaName string) (result models.AnalysisResult) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("classifier panicked", "panic", r)
			result = models.NoSearch(fmt.Sprintf("classifier panic: %v", r))
		}
		o.current = result
	}()

	if strings.TrimSpace(question) == "" {
		return models.NoSearch("empty message")
	}
	if o.classifier == nil {
		return models.NoSearch("no classifier configured")
	}

	history, err := o.session.RecentTurns(ctx, o.opts.HistoryTurns)
	if err != nil {
		o.logger.Warn("load recent turns failed", "error", err)
	}
	topics, err := o.session.SharedTopics(ctx)
	if err != nil {
		o.logger.Warn("load shared topics failed", "error", err)
	}

	res, err := o.classifier.Classify(ctx, models.ClassifyRequest{
		Question:     question,
		PersonaName:  personaName,
		History:      history,
		SharedTopics: topics,
	})
	if err != nil {
		o.logger.Warn("question classification failed", "error", err)
		return models.NoSearch("classifier error: " + err.Error())
	}
	return res.Normalize()
}

// Analysis returns the current turn's classification.
func (o *SearchOrchestrator) Analysis() models.AnalysisResult {
	return o.current
}

// NeedsSearch reports whether the current turn wants any search.
func (o *SearchOrchestrator) NeedsSearch() bool {
	return o.current.NeedsSearch()
}

// MediaRequested reports whether the user explicitly asked to see media.
func (o *SearchOrchestrator) MediaRequested() bool {
	return o.current.MediaRequested
}

// ExecuteSearch runs the strategy for the analyzed turn. It never fails:
// every error is logged here and becomes an empty result.
func (o *SearchOrchestrator) ExecuteSearch(ctx context.Context, question string) (contextText string, candidate *models.Candidate) {
	r := o.current
	defer func() {
		if p := recover(); p != nil {
			o.logger.Error("search strategy panicked", "intent", r.Intent.String(), "panic", p)
			contextText, candidate = "", nil
		}
	}()

	if !r.NeedsSearch() {
		return "", nil
	}

	unsolicited := r.Intent == models.IntentSocialSearch && !r.MediaRequested
	if unsolicited && o.opts.CooldownTurns > 0 {
		cooled, err := o.session.HasSocialContentInLastNTurns(ctx, o.opts.CooldownTurns)
		if err != nil {
			o.logger.Warn("cooldown check failed, suppressing unsolicited share", "error", err)
			return "", nil
		}
		if cooled {
			o.logger.Info("social share on cooldown", "query", r.Query, "turns", o.opts.CooldownTurns)
			return "", nil
		}
	}

	text, cand, err := o.dispatch(ctx, r, question)
	if err != nil {
		o.logger.Error("search failed", "intent", r.Intent.String(), "query", r.Query, "error", err)
		return "", nil
	}

	if cand != nil && unsolicited {
		if err := o.session.RecordSharedTopic(ctx, r.Query); err != nil {
			o.logger.Warn("record shared topic failed", "query", r.Query, "error", err)
		}
	}
	return text, cand
}

func (o *SearchOrchestrator) dispatch(ctx context.Context, r models.AnalysisResult, question string) (string, *models.Candidate, error) {
	switch r.Intent {
	case models.IntentNoSearch:
		return "", nil, nil

	case models.IntentTermSearch:
		text, err := o.generalLookup(ctx, r.Query)
		if err != nil || text == "" {
			return "", nil, err
		}
		return text + termInstruction(r.Query), nil, nil

	case models.IntentSocialSearch:
		if o.discovery != nil {
			cand, err := o.discovery.Discover(ctx, r.Query, question)
			if err != nil {
				o.logger.Warn("discovery failed, falling back to web lookup", "query", r.Query, "error", err)
			}
			if cand != nil {
				return socialContext(cand, o.opts.Now()), cand, nil
			}
		}
		o.logger.Info("no social content found, falling back to web lookup", "query", r.Query)
		text, err := o.generalLookup(ctx, r.Query)
		return text, nil, err

	case models.IntentGeneralSearch:
		text, err := o.generalLookup(ctx, r.Query)
		return text, nil, err

	default:
		o.logger.Error("unknown search intent", "intent", int(r.Intent))
		return "", nil, nil
	}
}

// generalLookup returns "" without error when no web provider is configured.
func (o *SearchOrchestrator) generalLookup(ctx context.Context, query string) (string, error) {
	if o.web == nil {
		o.logger.Info("web lookup not configured, skipping", "query", query)
		return "", nil
	}

	start := time.Now()
	policy := o.opts.LookupRetry
	policy.Logger = o.logger
	policy.Operation = "web lookup"
	summary, err := retry.Do(ctx, policy, func(ctx context.Context) (string, error) {
		return o.web.Lookup(ctx, query)
	})
	if o.opts.Metrics != nil {
		o.opts.Metrics.RecordTiming(metrics.OpWebLookup, time.Since(start))
	}
	if err != nil {
		return "", fmt.Errorf("web lookup %q: %w", query, err)
	}
	return generalContext(query, summary, o.opts.Now()), nil
}
