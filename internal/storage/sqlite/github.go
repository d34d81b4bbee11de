package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/felixgeelhaar/kiln/internal/domain"
	"github.com/google/uuid"
)

// GitHubStore implements domain.GitHubRepository on SQLite. One
// connection per user, replaced on relink.
type GitHubStore struct {
	db *DB
}

// NewGitHubStore creates a new GitHub connection store
func NewGitHubStore(db *DB) *GitHubStore {
	return &GitHubStore{db: db}
}

// Upsert writes a connection, replacing any existing link for the user
func (s *GitHubStore) Upsert(ctx context.Context, conn *domain.GitHubConnection) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO github_connections (id, user_id, login, access_token, scope, linked_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			login=excluded.login, access_token=excluded.access_token,
			scope=excluded.scope, linked_at=excluded.linked_at`,
		conn.ID.String(), conn.UserID.String(), conn.Login, conn.AccessToken, conn.Scope, conn.LinkedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert github connection: %w", err)
	}
	return nil
}

// GetByUser retrieves the connection for a user
func (s *GitHubStore) GetByUser(ctx context.Context, userID uuid.UUID) (*domain.GitHubConnection, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, login, access_token, scope, linked_at
		FROM github_connections WHERE user_id = ?`, userID.String())

	conn := &domain.GitHubConnection{}
	var idStr, userStr string
	err := row.Scan(&idStr, &userStr, &conn.Login, &conn.AccessToken, &conn.Scope, &conn.LinkedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrConnectionNotFound
	}
	if err != nil {
		return nil, err
	}

	if conn.ID, err = uuid.Parse(idStr); err != nil {
		return nil, fmt.Errorf("parse connection id: %w", err)
	}
	if conn.UserID, err = uuid.Parse(userStr); err != nil {
		return nil, fmt.Errorf("parse user id: %w", err)
	}
	return conn, nil
}
