package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies the author of a conversation message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// ConversationMessage is a single message in a project's chat history
type ConversationMessage struct {
	ID          uuid.UUID
	ProjectID   uuid.UUID
	Role        Role
	Content     string
	ChallengeID *uuid.UUID // set when the message relates to a challenge
	CreatedAt   time.Time
}

// NewMessage creates a conversation message with a fresh ID
func NewMessage(projectID uuid.UUID, role Role, content string) *ConversationMessage {
	return &ConversationMessage{
		ID:        uuid.New(),
		ProjectID: projectID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	}
}
