// Package tools provides MCP tool handlers and registration.
package tools

import (
	"context"
	"log/slog"
	"sync"

	"github.com/raphaelgruber/scout/internal/models"
	"github.com/raphaelgruber/scout/internal/session"
)

// Orchestrator is the per-call search orchestrator a tool drives.
type Orchestrator interface {
	AnalyzeQuestion(ctx context.Context, question, personaName string) models.AnalysisResult
	ExecuteSearch(ctx context.Context, question string) (string, *models.Candidate)
}

// SessionFunc returns the store for a conversation, creating it if needed.
type SessionFunc func(ctx context.Context, conversationID, persona string) (session.Store, error)

// Dependencies holds shared services for tool handlers.
// Passed to handler factories via closure capture.
type Dependencies struct {
	NewOrchestrator func(store session.Store) Orchestrator
	Sessions        SessionFunc
	Logger          *slog.Logger

	turns sync.Map // conversation id -> *sync.Mutex
}

// lockConversation serializes turns on one conversation and returns the
// unlock func.
func (d *Dependencies) lockConversation(id string) func() {
	v, _ := d.turns.LoadOrStore(id, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// MemorySessions serves conversations from an in-process pool.
func MemorySessions(pool *session.Pool) SessionFunc {
	return func(_ context.Context, conversationID, _ string) (session.Store, error) {
		return pool.Get(conversationID), nil
	}
}
