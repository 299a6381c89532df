package llm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/raphaelgruber/scout/internal/metrics"
	"github.com/raphaelgruber/scout/internal/models"
)

// RelevanceChecker asks the model whether a candidate fits the question.
type RelevanceChecker struct {
	gen    Generator
	prompt *Prompt
	logger *slog.Logger
}

// NewRelevanceChecker creates a checker backed by gen.
func NewRelevanceChecker(gen Generator, logger *slog.Logger) (*RelevanceChecker, error) {
	p, err := LoadPrompt("relevance")
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RelevanceChecker{gen: gen, prompt: p, logger: logger}, nil
}

// CheckRelevance returns true without asking the model when question, title
// or platform is missing: there is nothing to judge against.
func (r *RelevanceChecker) CheckRelevance(ctx context.Context, question, title string, platform models.Platform, searchTerm string) (bool, error) {
	if question == "" || title == "" || platform == "" {
		return true, nil
	}

	system, user, err := r.prompt.Render(map[string]any{
		"Question":   question,
		"SearchTerm": searchTerm,
		"Platform":   platform.DisplayName(),
		"Title":      title,
	})
	if err != nil {
		return false, err
	}

	text, err := r.gen.GenerateWithSystem(ctx, metrics.OpRelevance, system, user)
	if err != nil {
		return false, fmt.Errorf("relevance: %w", err)
	}

	var out struct {
		IsRelevant bool   `json:"is_relevant"`
		Reason     string `json:"reason"`
	}
	if err := parseJSONResponse(text, &out); err != nil {
		return false, fmt.Errorf("relevance: %w", err)
	}

	r.logger.Debug("relevance checked", "title", title, "relevant", out.IsRelevant, "reason", out.Reason)
	return out.IsRelevant, nil
}
