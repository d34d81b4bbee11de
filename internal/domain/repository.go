package domain

import (
	"context"

	"github.com/google/uuid"
)

// ProjectRepository persists projects and their challenges.
// Writes are upserts; last write wins.
type ProjectRepository interface {
	Upsert(ctx context.Context, project *Project) error
	GetByID(ctx context.Context, id uuid.UUID) (*Project, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Project, error)
	UpsertChallenge(ctx context.Context, challenge *Challenge) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ConversationRepository persists chat history per project
type ConversationRepository interface {
	Append(ctx context.Context, msg *ConversationMessage) error
	ListByProject(ctx context.Context, projectID uuid.UUID, limit int) ([]*ConversationMessage, error)
}

// GitHubRepository persists GitHub account links
type GitHubRepository interface {
	Upsert(ctx context.Context, conn *GitHubConnection) error
	GetByUser(ctx context.Context, userID uuid.UUID) (*GitHubConnection, error)
}
