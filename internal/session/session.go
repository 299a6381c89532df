// Package session holds per-conversation chat state: the turn log that the
// classifier reads and the share cooldown is derived from, plus the topics
// already shared.
package session

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/raphaelgruber/scout/internal/models"
)

// Store is the session collaborator the orchestrator consults once per turn.
type Store interface {
	// RecentTurns returns up to n most recent turns, oldest first.
	RecentTurns(ctx context.Context, n int) ([]models.Turn, error)
	// HasSocialContentInLastNTurns reports whether any of the last n turns
	// displayed social content.
	HasSocialContentInLastNTurns(ctx context.Context, n int) (bool, error)
	// RecordSharedTopic remembers a topic that was proactively shared.
	RecordSharedTopic(ctx context.Context, topic string) error
	// SharedTopics lists remembered topics, oldest first.
	SharedTopics(ctx context.Context) ([]string, error)
	// AppendTurn adds a turn to the log.
	AppendTurn(ctx context.Context, turn models.Turn) error
}

// Memory is an in-process Store. It is safe for concurrent use.
type Memory struct {
	mu     sync.RWMutex
	id     string
	turns  []models.Turn
	topics []string
	now    func() time.Time
}

// NewMemory creates an empty in-memory session.
func NewMemory() *Memory {
	return NewMemoryWithID(uuid.NewString())
}

// NewMemoryWithID creates an empty in-memory session with a fixed id.
func NewMemoryWithID(id string) *Memory {
	return &Memory{id: id, now: time.Now}
}

// ID returns the conversation id stamped on appended turns.
func (m *Memory) ID() string {
	return m.id
}

func (m *Memory) RecentTurns(_ context.Context, n int) ([]models.Turn, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(tail(m.turns, n)), nil
}

func (m *Memory) HasSocialContentInLastNTurns(_ context.Context, n int) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.ContainsFunc(tail(m.turns, n), models.Turn.HasSocial), nil
}

func (m *Memory) RecordSharedTopic(_ context.Context, topic string) error {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !slices.Contains(m.topics, topic) {
		m.topics = append(m.topics, topic)
	}
	return nil
}

func (m *Memory) SharedTopics(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.topics), nil
}

func (m *Memory) AppendTurn(_ context.Context, turn models.Turn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if turn.ID == "" {
		turn.ID = uuid.NewString()
	}
	turn.ConversationID = m.id
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = m.now()
	}
	m.turns = append(m.turns, turn)
	return nil
}

// Pool hands out one in-memory session per conversation id. It is safe for
// concurrent use.
type Pool struct {
	mu       sync.Mutex
	sessions map[string]*Memory
}

// NewPool creates an empty pool.
func NewPool() *Pool {
	return &Pool{sessions: make(map[string]*Memory)}
}

// Get returns the session for id, creating it on first use.
func (p *Pool) Get(id string) *Memory {
	p.mu.Lock()
	defer p.mu.Unlock()
	m, ok := p.sessions[id]
	if !ok {
		m = NewMemoryWithID(id)
		p.sessions[id] = m
	}
	return m
}

// Len returns the number of live sessions.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sessions)
}

func tail(turns []models.Turn, n int) []models.Turn {
	if n <= 0 {
		return nil
	}
	if len(turns) > n {
		return turns[len(turns)-n:]
	}
	return turns
}
