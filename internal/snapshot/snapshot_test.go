package snapshot

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/felixgeelhaar/kiln/internal/domain"
	"github.com/google/uuid"
)

type memoryProjects struct {
	mu       sync.Mutex
	projects map[uuid.UUID]*domain.Project
}

func (r *memoryProjects) Upsert(_ context.Context, p *domain.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.projects[p.ID] = p
	return nil
}

func (r *memoryProjects) GetByID(_ context.Context, id uuid.UUID) (*domain.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[id]
	if !ok {
		return nil, domain.ErrProjectNotFound
	}
	// copy files so the test can mutate safely
	cp := *p
	cp.Files = append([]domain.ProjectFile(nil), p.Files...)
	return &cp, nil
}

func (r *memoryProjects) ListByUser(_ context.Context, _ uuid.UUID, _, _ int) ([]*domain.Project, error) {
	return nil, nil
}

func (r *memoryProjects) UpsertChallenge(_ context.Context, _ *domain.Challenge) error { return nil }
func (r *memoryProjects) Delete(_ context.Context, _ uuid.UUID) error                  { return nil }

type countingAnalyzer struct {
	calls atomic.Int32
}

func (a *countingAnalyzer) AnalyzeCode(_ context.Context, _ []domain.ProjectFile) (*domain.CodeAnalysis, error) {
	a.calls.Add(1)
	return &domain.CodeAnalysis{Summary: "fine"}, nil
}

func TestHashFiles(t *testing.T) {
	a := []domain.ProjectFile{{Path: "a.js", Content: "one"}}
	b := []domain.ProjectFile{{Path: "a.js", Content: "two"}}

	if hashFiles(a) == hashFiles(b) {
		t.Error("different content must hash differently")
	}
	if hashFiles(a) != hashFiles(a) {
		t.Error("hash must be deterministic")
	}
	// path/content boundary must matter
	c := []domain.ProjectFile{{Path: "a.jso", Content: "ne"}}
	if hashFiles(a) == hashFiles(c) {
		t.Error("path boundary must be part of the hash")
	}
}

func TestPoller_AnalyzesAfterSettle(t *testing.T) {
	repo := &memoryProjects{projects: make(map[uuid.UUID]*domain.Project)}
	project := &domain.Project{
		ID:    uuid.New(),
		Files: []domain.ProjectFile{{Path: "a.js", Content: "v1"}},
	}
	repo.projects[project.ID] = project

	analyzer := &countingAnalyzer{}
	resultCh := make(chan uuid.UUID, 1)
	poller := NewPoller(repo, analyzer, func(id uuid.UUID, _ *domain.CodeAnalysis) {
		resultCh <- id
	}, Config{Interval: 10 * time.Millisecond, Debounce: 20 * time.Millisecond}, nil)

	poller.Watch(project.ID)
	poller.Start(context.Background())
	defer poller.Stop()

	// let the baseline be taken, then change a file
	time.Sleep(25 * time.Millisecond)
	repo.mu.Lock()
	project.Files[0].Content = "v2"
	repo.mu.Unlock()

	select {
	case id := <-resultCh:
		if id != project.ID {
			t.Errorf("result for project %s, want %s", id, project.ID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for analysis")
	}

	if analyzer.calls.Load() != 1 {
		t.Errorf("analyzer calls = %d, want 1", analyzer.calls.Load())
	}
}

func TestPoller_NoChangeNoAnalysis(t *testing.T) {
	repo := &memoryProjects{projects: make(map[uuid.UUID]*domain.Project)}
	project := &domain.Project{
		ID:    uuid.New(),
		Files: []domain.ProjectFile{{Path: "a.js", Content: "v1"}},
	}
	repo.projects[project.ID] = project

	analyzer := &countingAnalyzer{}
	poller := NewPoller(repo, analyzer, nil, Config{Interval: 5 * time.Millisecond, Debounce: 10 * time.Millisecond}, nil)

	poller.Watch(project.ID)
	poller.Start(context.Background())
	time.Sleep(100 * time.Millisecond)
	poller.Stop()

	if analyzer.calls.Load() != 0 {
		t.Errorf("analyzer calls = %d, want 0 for unchanged files", analyzer.calls.Load())
	}
}

func TestPoller_Unwatch(t *testing.T) {
	repo := &memoryProjects{projects: make(map[uuid.UUID]*domain.Project)}
	project := &domain.Project{
		ID:    uuid.New(),
		Files: []domain.ProjectFile{{Path: "a.js", Content: "v1"}},
	}
	repo.projects[project.ID] = project

	analyzer := &countingAnalyzer{}
	poller := NewPoller(repo, analyzer, nil, Config{Interval: 5 * time.Millisecond, Debounce: 10 * time.Millisecond}, nil)

	poller.Watch(project.ID)
	poller.Unwatch(project.ID)
	poller.Start(context.Background())

	time.Sleep(30 * time.Millisecond)
	repo.mu.Lock()
	project.Files[0].Content = "v2"
	repo.mu.Unlock()
	time.Sleep(60 * time.Millisecond)
	poller.Stop()

	if analyzer.calls.Load() != 0 {
		t.Errorf("analyzer calls = %d, want 0 after Unwatch", analyzer.calls.Load())
	}
}
