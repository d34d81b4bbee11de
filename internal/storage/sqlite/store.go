package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/felixgeelhaar/kiln/internal/domain"
	"github.com/google/uuid"
)

// Store implements the domain repositories on SQLite for local mode.
// It mirrors the PostgreSQL repositories with upsert semantics.
type Store struct {
	db *DB
}

// NewStore creates a new local store
func NewStore(db *DB) *Store {
	return &Store{db: db}
}

// Upsert writes a project and its challenges
func (s *Store) Upsert(ctx context.Context, project *domain.Project) error {
	filesJSON, err := json.Marshal(project.Files)
	if err != nil {
		return fmt.Errorf("marshal files: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO projects (id, user_id, name, description, files, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name=excluded.name, description=excluded.description,
			files=excluded.files, updated_at=excluded.updated_at`,
		project.ID.String(), project.UserID.String(), project.Name, project.Description,
		string(filesJSON), project.CreatedAt, project.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert project: %w", err)
	}

	for _, c := range project.Challenges {
		if err := s.UpsertChallenge(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

// UpsertChallenge writes a single challenge
func (s *Store) UpsertChallenge(ctx context.Context, c *domain.Challenge) error {
	pathsJSON, err := json.Marshal(c.FilePaths)
	if err != nil {
		return fmt.Errorf("marshal file paths: %w", err)
	}
	hintsJSON, err := json.Marshal(c.Hints)
	if err != nil {
		return fmt.Errorf("marshal hints: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO challenges
			(id, project_id, title, description, difficulty, type,
			 file_paths, hints, hints_revealed, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title=excluded.title, description=excluded.description,
			difficulty=excluded.difficulty, type=excluded.type,
			file_paths=excluded.file_paths, hints=excluded.hints,
			hints_revealed=excluded.hints_revealed, status=excluded.status,
			updated_at=excluded.updated_at`,
		c.ID.String(), c.ProjectID.String(), c.Title, c.Description, string(c.Difficulty), string(c.Type),
		string(pathsJSON), string(hintsJSON), c.HintsRevealed, string(c.Status), c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert challenge: %w", err)
	}
	return nil
}

// GetByID retrieves a project with its challenges
func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (*domain.Project, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, description, files, created_at, updated_at
		FROM projects WHERE id = ?`, id.String())

	p := &domain.Project{}
	var idStr, userStr, filesJSON string
	err := row.Scan(&idStr, &userStr, &p.Name, &p.Description, &filesJSON, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrProjectNotFound
	}
	if err != nil {
		return nil, err
	}

	if p.ID, err = uuid.Parse(idStr); err != nil {
		return nil, fmt.Errorf("parse project id: %w", err)
	}
	if p.UserID, err = uuid.Parse(userStr); err != nil {
		return nil, fmt.Errorf("parse user id: %w", err)
	}
	if err := json.Unmarshal([]byte(filesJSON), &p.Files); err != nil {
		return nil, fmt.Errorf("unmarshal files: %w", err)
	}

	challenges, err := s.listChallenges(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Challenges = challenges

	return p, nil
}

// ListByUser retrieves projects for a user, most recently updated first
func (s *Store) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Project, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, name, description, files, created_at, updated_at
		FROM projects WHERE user_id = ?
		ORDER BY updated_at DESC
		LIMIT ? OFFSET ?`, userID.String(), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []*domain.Project
	for rows.Next() {
		p := &domain.Project{}
		var idStr, userStr, filesJSON string
		if err := rows.Scan(&idStr, &userStr, &p.Name, &p.Description, &filesJSON, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		if p.ID, err = uuid.Parse(idStr); err != nil {
			return nil, err
		}
		if p.UserID, err = uuid.Parse(userStr); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(filesJSON), &p.Files); err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// Delete removes a project; challenges and messages cascade
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id.String())
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrProjectNotFound
	}
	return nil
}

// Append stores a conversation message
func (s *Store) Append(ctx context.Context, msg *domain.ConversationMessage) error {
	var challengeID any
	if msg.ChallengeID != nil {
		challengeID = msg.ChallengeID.String()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversation_messages (id, project_id, role, content, challenge_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		msg.ID.String(), msg.ProjectID.String(), string(msg.Role), msg.Content, challengeID, msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

// ListByProject retrieves the most recent messages in chronological order
func (s *Store) ListByProject(ctx context.Context, projectID uuid.UUID, limit int) ([]*domain.ConversationMessage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_id, role, content, challenge_id, created_at
		FROM conversation_messages WHERE project_id = ?
		ORDER BY created_at DESC
		LIMIT ?`, projectID.String(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []*domain.ConversationMessage
	for rows.Next() {
		msg := &domain.ConversationMessage{}
		var idStr, projStr string
		var challengeStr sql.NullString
		if err := rows.Scan(&idStr, &projStr, &msg.Role, &msg.Content, &challengeStr, &msg.CreatedAt); err != nil {
			return nil, err
		}
		if msg.ID, err = uuid.Parse(idStr); err != nil {
			return nil, err
		}
		if msg.ProjectID, err = uuid.Parse(projStr); err != nil {
			return nil, err
		}
		if challengeStr.Valid {
			cid, err := uuid.Parse(challengeStr.String)
			if err != nil {
				return nil, err
			}
			msg.ChallengeID = &cid
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

func (s *Store) listChallenges(ctx context.Context, projectID uuid.UUID) ([]*domain.Challenge, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_id, title, description, difficulty, type,
		       file_paths, hints, hints_revealed, status, created_at, updated_at
		FROM challenges WHERE project_id = ?
		ORDER BY created_at`, projectID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var challenges []*domain.Challenge
	for rows.Next() {
		c := &domain.Challenge{}
		var idStr, projStr, pathsJSON, hintsJSON string
		if err := rows.Scan(
			&idStr, &projStr, &c.Title, &c.Description, &c.Difficulty, &c.Type,
			&pathsJSON, &hintsJSON, &c.HintsRevealed, &c.Status, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if c.ID, err = uuid.Parse(idStr); err != nil {
			return nil, err
		}
		if c.ProjectID, err = uuid.Parse(projStr); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(pathsJSON), &c.FilePaths); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(hintsJSON), &c.Hints); err != nil {
			return nil, err
		}
		challenges = append(challenges, c)
	}
	return challenges, rows.Err()
}
