package tools

import (
	"context"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/raphaelgruber/scout/internal/models"
	"github.com/raphaelgruber/scout/internal/session"
)

// SearchContextInput defines the input schema for the search_context tool.
type SearchContextInput struct {
	Question       string `json:"question" jsonschema:"required,The user's latest chat message"`
	Persona        string `json:"persona,omitempty" jsonschema:"Name of the persona the assistant speaks as"`
	ConversationID string `json:"conversation_id,omitempty" jsonschema:"Conversation to read history from and record this turn in"`
}

// SearchContextResult is the JSON body returned by search_context.
type SearchContextResult struct {
	Intent         string            `json:"intent"`
	Query          string            `json:"query,omitempty"`
	Reason         string            `json:"reason,omitempty"`
	MediaRequested bool              `json:"media_requested"`
	NeedsSearch    bool              `json:"needs_search"`
	Context        string            `json:"context"`
	Candidate      *models.Candidate `json:"candidate"`
}

// NewSearchContextHandler creates the search_context tool handler.
// With a conversation_id the user turn is recorded, and a returned candidate
// is recorded as displayed on an assistant turn so the share cooldown sees it.
func NewSearchContextHandler(deps *Dependencies) mcp.ToolHandlerFor[SearchContextInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input SearchContextInput) (
		*mcp.CallToolResult, any, error,
	) {
		question := strings.TrimSpace(input.Question)
		if question == "" {
			return ErrorResult("Question cannot be empty", "Pass the user's latest message"), nil, nil
		}

		var store session.Store = session.NewMemory()
		if input.ConversationID != "" {
			unlock := deps.lockConversation(input.ConversationID)
			defer unlock()

			s, err := deps.Sessions(ctx, input.ConversationID, input.Persona)
			if err != nil {
				deps.Logger.Error("open conversation failed", "conversation", input.ConversationID, "error", err)
				return ErrorResult("Failed to open conversation", "Session store may be unavailable"), nil, nil
			}
			store = s
		}

		o := deps.NewOrchestrator(store)
		analysis := o.AnalyzeQuestion(ctx, question, input.Persona)
		text, cand := o.ExecuteSearch(ctx, question)

		if input.ConversationID != "" {
			recordTurns(ctx, deps, store, question, cand)
		}

		deps.Logger.Info("search_context completed",
			"intent", analysis.Intent.String(),
			"query", analysis.Query,
			"found", cand != nil,
		)

		res, err := JSONResult(SearchContextResult{
			Intent:         analysis.Intent.String(),
			Query:          analysis.Query,
			Reason:         analysis.Reason,
			MediaRequested: analysis.MediaRequested,
			NeedsSearch:    analysis.NeedsSearch(),
			Context:        text,
			Candidate:      cand,
		})
		return res, nil, err
	}
}

func recordTurns(ctx context.Context, deps *Dependencies, store session.Store, question string, cand *models.Candidate) {
	if err := store.AppendTurn(ctx, models.Turn{Role: models.RoleUser, Content: question}); err != nil {
		deps.Logger.Warn("record user turn failed", "error", err)
	}
	if cand == nil {
		return
	}
	if err := store.AppendTurn(ctx, models.Turn{Role: models.RoleAssistant, Social: cand}); err != nil {
		deps.Logger.Warn("record shared post failed", "url", cand.URL, "error", err)
	}
}
