package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/felixgeelhaar/kiln/internal/domain"
	"github.com/google/uuid"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "kiln.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewStore(db)
}

func testProject() *domain.Project {
	projectID := uuid.New()
	now := time.Now().UTC().Truncate(time.Second)
	return &domain.Project{
		ID:          projectID,
		UserID:      uuid.New(),
		Name:        "todo-app",
		Description: "a small todo list",
		Files: []domain.ProjectFile{
			{Path: "index.html", Content: "<html></html>"},
		},
		Challenges: []*domain.Challenge{
			{
				ID:         uuid.New(),
				ProjectID:  projectID,
				Title:      "Add delete",
				Difficulty: domain.DifficultyBeginner,
				Type:       domain.TypeFeature,
				FilePaths:  []string{"index.html"},
				Hints:      []string{"one", "two"},
				Status:     domain.StatusNotStarted,
				CreatedAt:  now,
				UpdatedAt:  now,
			},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestStore_UpsertAndGet(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	p := testProject()

	if err := store.Upsert(ctx, p); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	got, err := store.GetByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Name != "todo-app" {
		t.Errorf("Name = %q", got.Name)
	}
	if len(got.Files) != 1 || got.Files[0].Path != "index.html" {
		t.Errorf("Files = %+v", got.Files)
	}
	if len(got.Challenges) != 1 {
		t.Fatalf("len(Challenges) = %d, want 1", len(got.Challenges))
	}
	if got.Challenges[0].Hints[1] != "two" {
		t.Errorf("Hints = %v", got.Challenges[0].Hints)
	}
}

func TestStore_UpsertOverwrites(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	p := testProject()

	if err := store.Upsert(ctx, p); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	p.Name = "todo-app-v2"
	p.Challenges[0].Status = domain.StatusCompleted
	if err := store.Upsert(ctx, p); err != nil {
		t.Fatalf("second Upsert() error = %v", err)
	}

	got, err := store.GetByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Name != "todo-app-v2" {
		t.Errorf("Name = %q, want overwritten name", got.Name)
	}
	if got.Challenges[0].Status != domain.StatusCompleted {
		t.Errorf("challenge Status = %q, want completed", got.Challenges[0].Status)
	}
}

func TestStore_GetMissing(t *testing.T) {
	store := testStore(t)

	_, err := store.GetByID(context.Background(), uuid.New())
	if !errors.Is(err, domain.ErrProjectNotFound) {
		t.Errorf("GetByID(missing) error = %v, want ErrProjectNotFound", err)
	}
}

func TestStore_Conversations(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	p := testProject()

	if err := store.Upsert(ctx, p); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	base := time.Now().UTC().Truncate(time.Second)
	for i, content := range []string{"first", "second", "third"} {
		msg := domain.NewMessage(p.ID, domain.RoleUser, content)
		msg.CreatedAt = base.Add(time.Duration(i) * time.Second)
		if i == 2 {
			cid := p.Challenges[0].ID
			msg.ChallengeID = &cid
		}
		if err := store.Append(ctx, msg); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	messages, err := store.ListByProject(ctx, p.ID, 10)
	if err != nil {
		t.Fatalf("ListByProject() error = %v", err)
	}
	if len(messages) != 3 {
		t.Fatalf("len(messages) = %d, want 3", len(messages))
	}
	if messages[0].Content != "first" || messages[2].Content != "third" {
		t.Error("messages should come back in chronological order")
	}
	if messages[2].ChallengeID == nil || *messages[2].ChallengeID != p.Challenges[0].ID {
		t.Error("challenge reference should round-trip")
	}

	// Limit keeps the most recent messages
	recent, err := store.ListByProject(ctx, p.ID, 2)
	if err != nil {
		t.Fatalf("ListByProject(limit=2) error = %v", err)
	}
	if len(recent) != 2 || recent[0].Content != "second" {
		t.Errorf("limited list = %v, want the two newest chronologically", recent)
	}
}

func TestStore_Delete(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	p := testProject()

	if err := store.Upsert(ctx, p); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if err := store.Delete(ctx, p.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := store.Delete(ctx, p.ID); !errors.Is(err, domain.ErrProjectNotFound) {
		t.Errorf("Delete(missing) error = %v, want ErrProjectNotFound", err)
	}
}
