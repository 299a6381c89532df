package llm

import (
	"context"

	"github.com/raphaelgruber/scout/internal/metrics"
	"github.com/raphaelgruber/scout/internal/models"
)

// ReplyRequest carries everything the persona reply needs for one turn.
type ReplyRequest struct {
	Persona  string
	Question string
	History  []models.Turn
	Context  string
	Shared   *models.Candidate
}

// Replier writes the persona's answer to a turn.
type Replier struct {
	gen    Generator
	prompt *Prompt
}

// NewReplier creates a replier backed by gen.
func NewReplier(gen Generator) (*Replier, error) {
	p, err := LoadPrompt("reply")
	if err != nil {
		return nil, err
	}
	return &Replier{gen: gen, prompt: p}, nil
}

// Reply generates the answer text.
func (r *Replier) Reply(ctx context.Context, req ReplyRequest) (string, error) {
	persona := req.Persona
	if persona == "" {
		persona = "a friendly companion"
	}
	system, user, err := r.prompt.Render(map[string]any{
		"Persona":  persona,
		"Context":  req.Context,
		"Shared":   req.Shared,
		"History":  historyLines(req.History),
		"Question": req.Question,
	})
	if err != nil {
		return "", err
	}
	return r.gen.GenerateWithSystem(ctx, metrics.OpLLMGenerate, system, user)
}
