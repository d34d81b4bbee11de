// Package repository implements the domain repository interfaces on
// PostgreSQL via pgx. Files, hints and file paths are stored as JSONB
// blobs; writes are ON CONFLICT upserts so the last write wins.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/felixgeelhaar/kiln/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ProjectRepository implements domain.ProjectRepository using PostgreSQL
type ProjectRepository struct {
	pool *pgxpool.Pool
}

// NewProjectRepository creates a new project repository
func NewProjectRepository(pool *pgxpool.Pool) *ProjectRepository {
	return &ProjectRepository{pool: pool}
}

// Upsert writes a project and all of its challenges
func (r *ProjectRepository) Upsert(ctx context.Context, project *domain.Project) error {
	filesJSON, err := json.Marshal(project.Files)
	if err != nil {
		return fmt.Errorf("marshal files: %w", err)
	}

	query := `
		INSERT INTO projects (id, user_id, name, description, files, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name,
		    description = EXCLUDED.description,
		    files = EXCLUDED.files,
		    updated_at = EXCLUDED.updated_at
	`
	_, err = r.pool.Exec(ctx, query,
		project.ID, project.UserID, project.Name, project.Description,
		filesJSON, project.CreatedAt, project.UpdatedAt,
	)
	if err != nil {
		return err
	}

	for _, c := range project.Challenges {
		if err := r.UpsertChallenge(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

// UpsertChallenge writes a single challenge row
func (r *ProjectRepository) UpsertChallenge(ctx context.Context, c *domain.Challenge) error {
	pathsJSON, err := json.Marshal(c.FilePaths)
	if err != nil {
		return fmt.Errorf("marshal file paths: %w", err)
	}
	hintsJSON, err := json.Marshal(c.Hints)
	if err != nil {
		return fmt.Errorf("marshal hints: %w", err)
	}

	query := `
		INSERT INTO challenges
			(id, project_id, title, description, difficulty, type,
			 file_paths, hints, hints_revealed, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE
		SET title = EXCLUDED.title,
		    description = EXCLUDED.description,
		    difficulty = EXCLUDED.difficulty,
		    type = EXCLUDED.type,
		    file_paths = EXCLUDED.file_paths,
		    hints = EXCLUDED.hints,
		    hints_revealed = EXCLUDED.hints_revealed,
		    status = EXCLUDED.status,
		    updated_at = EXCLUDED.updated_at
	`
	_, err = r.pool.Exec(ctx, query,
		c.ID, c.ProjectID, c.Title, c.Description, c.Difficulty, c.Type,
		pathsJSON, hintsJSON, c.HintsRevealed, c.Status, c.CreatedAt, c.UpdatedAt,
	)
	return err
}

// GetByID retrieves a project with its challenges
func (r *ProjectRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Project, error) {
	query := `
		SELECT id, user_id, name, description, files, created_at, updated_at
		FROM projects WHERE id = $1
	`
	project, err := scanProject(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}

	challenges, err := r.listChallenges(ctx, id)
	if err != nil {
		return nil, err
	}
	project.Challenges = challenges

	return project, nil
}

// ListByUser retrieves projects for a user, most recently updated first.
// Challenges are not loaded for list views.
func (r *ProjectRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Project, error) {
	query := `
		SELECT id, user_id, name, description, files, created_at, updated_at
		FROM projects WHERE user_id = $1
		ORDER BY updated_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []*domain.Project
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, project)
	}
	return projects, rows.Err()
}

// Delete removes a project; challenges and messages cascade
func (r *ProjectRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrProjectNotFound
	}
	return nil
}

func (r *ProjectRepository) listChallenges(ctx context.Context, projectID uuid.UUID) ([]*domain.Challenge, error) {
	query := `
		SELECT id, project_id, title, description, difficulty, type,
		       file_paths, hints, hints_revealed, status, created_at, updated_at
		FROM challenges WHERE project_id = $1
		ORDER BY created_at
	`
	rows, err := r.pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var challenges []*domain.Challenge
	for rows.Next() {
		c := &domain.Challenge{}
		var pathsJSON, hintsJSON []byte
		if err := rows.Scan(
			&c.ID, &c.ProjectID, &c.Title, &c.Description, &c.Difficulty, &c.Type,
			&pathsJSON, &hintsJSON, &c.HintsRevealed, &c.Status, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(pathsJSON, &c.FilePaths); err != nil {
			return nil, fmt.Errorf("unmarshal file paths: %w", err)
		}
		if err := json.Unmarshal(hintsJSON, &c.Hints); err != nil {
			return nil, fmt.Errorf("unmarshal hints: %w", err)
		}
		challenges = append(challenges, c)
	}
	return challenges, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (*domain.Project, error) {
	p := &domain.Project{}
	var filesJSON []byte
	err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.Description, &filesJSON, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrProjectNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(filesJSON, &p.Files); err != nil {
		return nil, fmt.Errorf("unmarshal files: %w", err)
	}
	return p, nil
}
