package repository

import (
	"context"
	"errors"

	"github.com/felixgeelhaar/kiln/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// GitHubRepository implements domain.GitHubRepository using PostgreSQL
type GitHubRepository struct {
	pool *pgxpool.Pool
}

// NewGitHubRepository creates a new GitHub connection repository
func NewGitHubRepository(pool *pgxpool.Pool) *GitHubRepository {
	return &GitHubRepository{pool: pool}
}

// Upsert stores a connection; relinking overwrites the previous token
func (r *GitHubRepository) Upsert(ctx context.Context, conn *domain.GitHubConnection) error {
	query := `
		INSERT INTO github_connections (id, user_id, login, access_token, scope, linked_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE
		SET login = EXCLUDED.login,
		    access_token = EXCLUDED.access_token,
		    scope = EXCLUDED.scope,
		    linked_at = EXCLUDED.linked_at
	`
	_, err := r.pool.Exec(ctx, query,
		conn.ID, conn.UserID, conn.Login, conn.AccessToken, conn.Scope, conn.LinkedAt,
	)
	return err
}

// GetByUser retrieves the connection for a user
func (r *GitHubRepository) GetByUser(ctx context.Context, userID uuid.UUID) (*domain.GitHubConnection, error) {
	query := `
		SELECT id, user_id, login, access_token, scope, linked_at
		FROM github_connections WHERE user_id = $1
	`
	conn := &domain.GitHubConnection{}
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&conn.ID, &conn.UserID, &conn.Login, &conn.AccessToken, &conn.Scope, &conn.LinkedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrConnectionNotFound
	}
	if err != nil {
		return nil, err
	}
	return conn, nil
}
