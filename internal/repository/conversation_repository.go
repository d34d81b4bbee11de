package repository

import (
	"context"

	"github.com/felixgeelhaar/kiln/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ConversationRepository implements domain.ConversationRepository using
// PostgreSQL
type ConversationRepository struct {
	pool *pgxpool.Pool
}

// NewConversationRepository creates a new conversation repository
func NewConversationRepository(pool *pgxpool.Pool) *ConversationRepository {
	return &ConversationRepository{pool: pool}
}

// Append stores a message at the end of a project's history
func (r *ConversationRepository) Append(ctx context.Context, msg *domain.ConversationMessage) error {
	query := `
		INSERT INTO conversation_messages (id, project_id, role, content, challenge_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.pool.Exec(ctx, query,
		msg.ID, msg.ProjectID, msg.Role, msg.Content, msg.ChallengeID, msg.CreatedAt,
	)
	return err
}

// ListByProject retrieves the most recent messages in chronological order
func (r *ConversationRepository) ListByProject(ctx context.Context, projectID uuid.UUID, limit int) ([]*domain.ConversationMessage, error) {
	// Fetch newest first, then reverse so callers get chronological order
	query := `
		SELECT id, project_id, role, content, challenge_id, created_at
		FROM conversation_messages WHERE project_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, projectID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []*domain.ConversationMessage
	for rows.Next() {
		msg := &domain.ConversationMessage{}
		if err := rows.Scan(&msg.ID, &msg.ProjectID, &msg.Role, &msg.Content, &msg.ChallengeID, &msg.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}
