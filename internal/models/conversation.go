package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// Role of a turn author.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Conversation represents a persistent chat session.
type Conversation struct {
	ID        surrealmodels.RecordID `json:"id"`
	Persona   string                 `json:"persona"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// Turn is one message in a conversation. Social is set on assistant turns
// that displayed discovered content; those turns drive the share cooldown.
type Turn struct {
	ID             string     `json:"id,omitempty"`
	ConversationID string     `json:"conversation_id,omitempty"`
	Role           Role       `json:"role"`
	Content        string     `json:"content"`
	Social         *Candidate `json:"social,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// HasSocial reports whether the turn carried displayed social content.
func (t Turn) HasSocial() bool {
	return t.Role == RoleAssistant && t.Social != nil
}
