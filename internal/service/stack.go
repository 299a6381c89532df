package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/raphaelgruber/scout/internal/config"
	"github.com/raphaelgruber/scout/internal/discovery"
	"github.com/raphaelgruber/scout/internal/llm"
	"github.com/raphaelgruber/scout/internal/metrics"
	"github.com/raphaelgruber/scout/internal/provider"
	"github.com/raphaelgruber/scout/internal/retry"
	"github.com/raphaelgruber/scout/internal/session"
)

// Stack holds the long-lived collaborators built from configuration. One
// Stack serves many sessions; orchestrators are cheap and made per session.
type Stack struct {
	Model      *llm.Model
	Classifier *llm.Classifier
	Relevance  *llm.RelevanceChecker
	Replier    *llm.Replier
	// Engine is nil when no discovery provider has an API key.
	Engine *discovery.Engine
	// Web is nil without a SerpAPI key.
	Web     *provider.WebSearcher
	Metrics *metrics.Collector

	cfg    config.Config
	logger *slog.Logger
}

// NewStack connects the configured LLM and builds the stack around it.
func NewStack(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Stack, error) {
	model, err := llm.NewModel(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init model: %w", err)
	}
	return NewStackWithModel(cfg, model, logger)
}

// NewStackWithModel builds the stack around an existing model.
func NewStackWithModel(cfg config.Config, model *llm.Model, logger *slog.Logger) (*Stack, error) {
	if logger == nil {
		logger = slog.Default()
	}
	collector := metrics.NewCollector()
	model.WithUsage(collector)

	classifier, err := llm.NewClassifier(model, logger)
	if err != nil {
		return nil, fmt.Errorf("init classifier: %w", err)
	}
	relevance, err := llm.NewRelevanceChecker(model, logger)
	if err != nil {
		return nil, fmt.Errorf("init relevance checker: %w", err)
	}
	replier, err := llm.NewReplier(model)
	if err != nil {
		return nil, fmt.Errorf("init replier: %w", err)
	}

	s := &Stack{
		Model:      model,
		Classifier: classifier,
		Relevance:  relevance,
		Replier:    replier,
		Metrics:    collector,
		cfg:        cfg,
		logger:     logger,
	}

	if providers := provider.FromConfig(cfg); len(providers) > 0 {
		s.Engine = discovery.New(providers, relevance, discovery.Options{
			Workers:          cfg.DiscoveryWorkers,
			Retry:            s.retryPolicy(),
			Deadline:         cfg.DiscoveryDeadline,
			OnRelevanceError: relevancePolicy(cfg.RelevanceOnError),
			Logger:           logger,
			Metrics:          collector,
		})
	} else {
		logger.Warn("no discovery provider configured, social searches fall back to web lookup")
	}

	web, err := provider.NewWebSearcher(provider.SerpAPIFromConfig(cfg), provider.WithCache(provider.DefaultWebCacheSize, cfg.WebCacheTTL))
	if err == nil {
		s.Web = web
	} else {
		logger.Warn("web lookup disabled", "error", err)
	}

	return s, nil
}

// Orchestrator returns a fresh orchestrator bound to store.
func (s *Stack) Orchestrator(store session.Store) *SearchOrchestrator {
	var disc Discoverer
	if s.Engine != nil {
		disc = s.Engine
	}
	var web WebLookup
	if s.Web != nil {
		web = s.Web
	}
	return NewSearchOrchestrator(s.Classifier, disc, web, store, Options{
		CooldownTurns: s.cfg.CooldownTurns,
		HistoryTurns:  DefaultHistoryTurns,
		LookupRetry:   s.retryPolicy(),
		Logger:        s.logger,
		Metrics:       s.Metrics,
	})
}

func (s *Stack) retryPolicy() retry.Policy {
	return retry.Policy{MaxAttempts: s.cfg.RetryAttempts, Delay: s.cfg.RetryDelay}
}

func relevancePolicy(name string) discovery.RelevanceErrorPolicy {
	if name == config.RelevanceSkip {
		return discovery.SkipCandidate
	}
	return discovery.AssumeRelevant
}
