package db

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/raphaelgruber/scout/internal/metrics"
	"github.com/raphaelgruber/scout/internal/models"
)

// Recorder receives query timings.
type Recorder interface {
	RecordTiming(op string, d time.Duration)
}

// SessionStore persists one conversation's turns and shared topics. It
// satisfies session.Store.
type SessionStore struct {
	client       *Client
	conversation string
	metrics      Recorder
	now          func() time.Time
}

// StoreOption configures a SessionStore.
type StoreOption func(*SessionStore)

// WithMetrics records the duration of every store query.
func WithMetrics(r Recorder) StoreOption {
	return func(s *SessionStore) { s.metrics = r }
}

// NewSessionStore binds a store to a conversation id. Call EnsureConversation
// before the first turn.
func NewSessionStore(c *Client, conversationID string, opts ...StoreOption) *SessionStore {
	s := &SessionStore{client: c, conversation: conversationID, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ConversationID returns the bound conversation id.
func (s *SessionStore) ConversationID() string {
	return s.conversation
}

// turnRow is the stored form of a turn.
type turnRow struct {
	ID           surrealmodels.RecordID `json:"id"`
	Conversation string                 `json:"conversation"`
	Role         string                 `json:"role"`
	Content      string                 `json:"content"`
	Social       *models.Candidate      `json:"social,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
}

func (r turnRow) toTurn() models.Turn {
	id, err := models.RecordIDString(r.ID)
	if err != nil {
		id = fmt.Sprint(r.ID.ID)
	}
	return models.Turn{
		ID:             id,
		ConversationID: r.Conversation,
		Role:           models.Role(r.Role),
		Content:        r.Content,
		Social:         r.Social,
		CreatedAt:      r.CreatedAt,
	}
}

// EnsureConversation creates the bound conversation if needed and refreshes
// its persona and updated_at.
func (s *SessionStore) EnsureConversation(ctx context.Context, persona string) (*models.Conversation, error) {
	defer s.record(time.Now())

	results, err := surrealdb.Query[[]models.Conversation](ctx, s.client.db, `
		UPSERT type::record("conversation", $id) SET
			persona = $persona,
			updated_at = time::now(),
			created_at = IF created_at THEN created_at ELSE time::now() END
		RETURN AFTER
	`, map[string]any{"id": s.conversation, "persona": persona})
	if err != nil {
		return nil, fmt.Errorf("ensure conversation: %w", wrapQueryError(err))
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("ensure conversation: no result returned")
	}
	return &(*results)[0].Result[0], nil
}

// GetConversation returns the bound conversation or ErrNotFound.
func (s *SessionStore) GetConversation(ctx context.Context) (*models.Conversation, error) {
	defer s.record(time.Now())

	results, err := surrealdb.Query[[]models.Conversation](ctx, s.client.db, `
		SELECT * FROM type::record("conversation", $id)
	`, map[string]any{"id": s.conversation})
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, ErrNotFound
	}
	return &(*results)[0].Result[0], nil
}

// AppendTurn stores a turn. A blank ID gets a fresh uuid and a zero
// CreatedAt is stamped with the store clock.
func (s *SessionStore) AppendTurn(ctx context.Context, turn models.Turn) error {
	defer s.record(time.Now())

	if turn.ID == "" {
		turn.ID = uuid.NewString()
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = s.now()
	}

	_, err := surrealdb.Query[any](ctx, s.client.db, `
		CREATE type::record("turn", $id) SET
			conversation = $conversation,
			role = $role,
			content = $content,
			social = $social,
			created_at = type::datetime($created_at)
	`, map[string]any{
		"id":           turn.ID,
		"conversation": s.conversation,
		"role":         string(turn.Role),
		"content":      turn.Content,
		"social":       turn.Social,
		"created_at":   turn.CreatedAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("append turn: %w", wrapQueryError(err))
	}
	return nil
}

// RecentTurns returns up to n most recent turns, oldest first.
func (s *SessionStore) RecentTurns(ctx context.Context, n int) ([]models.Turn, error) {
	if n <= 0 {
		return nil, nil
	}
	rows, err := s.latest(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("recent turns: %w", err)
	}

	turns := make([]models.Turn, 0, len(rows))
	for _, r := range rows {
		turns = append(turns, r.toTurn())
	}
	slices.Reverse(turns)
	return turns, nil
}

// HasSocialContentInLastNTurns reports whether one of the last n turns is an
// assistant turn that displayed social content.
func (s *SessionStore) HasSocialContentInLastNTurns(ctx context.Context, n int) (bool, error) {
	if n <= 0 {
		return false, nil
	}
	rows, err := s.latest(ctx, n)
	if err != nil {
		return false, fmt.Errorf("social cooldown: %w", err)
	}
	return slices.ContainsFunc(rows, func(r turnRow) bool {
		return r.toTurn().HasSocial()
	}), nil
}

// latest returns the n newest turns, newest first.
func (s *SessionStore) latest(ctx context.Context, n int) ([]turnRow, error) {
	defer s.record(time.Now())

	results, err := surrealdb.Query[[]turnRow](ctx, s.client.db, `
		SELECT * FROM turn
		WHERE conversation = $conversation
		ORDER BY created_at DESC
		LIMIT $limit
	`, map[string]any{"conversation": s.conversation, "limit": n})
	if err != nil {
		return nil, err
	}
	if results == nil || len(*results) == 0 {
		return nil, nil
	}
	return (*results)[0].Result, nil
}

// RecordSharedTopic remembers a topic once per conversation.
func (s *SessionStore) RecordSharedTopic(ctx context.Context, topic string) error {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil
	}
	defer s.record(time.Now())

	_, err := surrealdb.Query[any](ctx, s.client.db, `
		CREATE shared_topic SET
			conversation = $conversation,
			topic = $topic,
			created_at = type::datetime($created_at)
	`, map[string]any{
		"conversation": s.conversation,
		"topic":        topic,
		"created_at":   s.now().UTC().Format(time.RFC3339Nano),
	})
	if err := wrapQueryError(err); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return nil
		}
		return fmt.Errorf("record shared topic: %w", err)
	}
	return nil
}

// SharedTopics lists the conversation's shared topics, oldest first.
func (s *SessionStore) SharedTopics(ctx context.Context) ([]string, error) {
	defer s.record(time.Now())

	results, err := surrealdb.Query[[]struct {
		Topic string `json:"topic"`
	}](ctx, s.client.db, `
		SELECT topic, created_at FROM shared_topic
		WHERE conversation = $conversation
		ORDER BY created_at ASC
	`, map[string]any{"conversation": s.conversation})
	if err != nil {
		return nil, fmt.Errorf("shared topics: %w", err)
	}
	if results == nil || len(*results) == 0 {
		return []string{}, nil
	}

	topics := make([]string, 0, len((*results)[0].Result))
	for _, r := range (*results)[0].Result {
		topics = append(topics, r.Topic)
	}
	return topics, nil
}

func (s *SessionStore) record(start time.Time) {
	if s.metrics != nil {
		s.metrics.RecordTiming(metrics.OpSessionQuery, time.Since(start))
	}
}
