package llm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/raphaelgruber/scout/internal/metrics"
	"github.com/raphaelgruber/scout/internal/models"
)

// Generator is the subset of Model the agents need.
type Generator interface {
	GenerateWithSystem(ctx context.Context, op, systemPrompt, userPrompt string) (string, error)
}

// Classifier decides the search intent of a chat turn.
type Classifier struct {
	gen    Generator
	prompt *Prompt
	logger *slog.Logger
}

// NewClassifier creates a classifier backed by gen.
func NewClassifier(gen Generator, logger *slog.Logger) (*Classifier, error) {
	p, err := LoadPrompt("classifier")
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{gen: gen, prompt: p, logger: logger}, nil
}

type classifierOutput struct {
	AnalysisType     string  `json:"analysis_type"`
	SearchTerm       *string `json:"search_term"`
	DetectedTerm     *string `json:"detected_term"`
	IsDailyLife      bool    `json:"is_daily_life"`
	IsMediaRequested bool    `json:"is_media_requested"`
	Reason           string  `json:"reason"`
}

// Classify asks the model for a verdict. An empty question is NO_SEARCH
// without a model call. Model and parse failures are returned as errors.
func (c *Classifier) Classify(ctx context.Context, req models.ClassifyRequest) (models.AnalysisResult, error) {
	if req.Question == "" {
		return models.NoSearch("empty message"), nil
	}

	persona := req.PersonaName
	if persona == "" {
		persona = "(unnamed)"
	}
	system, user, err := c.prompt.Render(map[string]any{
		"Persona":      persona,
		"History":      historyLines(req.History),
		"SharedTopics": req.SharedTopics,
		"Question":     req.Question,
	})
	if err != nil {
		return models.AnalysisResult{}, err
	}

	text, err := c.gen.GenerateWithSystem(ctx, metrics.OpClassify, system, user)
	if err != nil {
		return models.AnalysisResult{}, fmt.Errorf("classify: %w", err)
	}

	var out classifierOutput
	if err := parseJSONResponse(text, &out); err != nil {
		return models.AnalysisResult{}, fmt.Errorf("classify: %w", err)
	}

	result := models.AnalysisResult{
		Intent:         models.ParseIntent(out.AnalysisType),
		Query:          deref(out.SearchTerm),
		MediaRequested: out.IsMediaRequested,
		DetectedTerm:   deref(out.DetectedTerm),
		Reason:         out.Reason,
	}.Normalize()

	c.logger.Info("question classified",
		"intent", result.Intent.String(),
		"query", result.Query,
		"detected_term", result.DetectedTerm,
		"daily_life", out.IsDailyLife,
		"media_requested", result.MediaRequested,
		"reason", result.Reason)
	return result, nil
}

func historyLines(turns []models.Turn) []string {
	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		who := "AI"
		if t.Role == models.RoleUser {
			who = "User"
		}
		lines = append(lines, who+": "+t.Content)
	}
	return lines
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
