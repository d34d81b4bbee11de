package generate

import (
	"context"
	"errors"
	"testing"

	"github.com/felixgeelhaar/kiln/internal/domain"
	"github.com/felixgeelhaar/kiln/internal/llm"
	"github.com/felixgeelhaar/kiln/internal/prompt"
	"github.com/google/uuid"
)

type scriptedProvider struct {
	response string
	err      error
	lastReq  *llm.Request
	calls    int
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Generate(_ context.Context, req *llm.Request) (*llm.Response, error) {
	p.calls++
	p.lastReq = req
	if p.err != nil {
		return nil, p.err
	}
	return &llm.Response{Content: p.response, FinishReason: "stop"}, nil
}

type memoryRepo struct {
	projects map[uuid.UUID]*domain.Project
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{projects: make(map[uuid.UUID]*domain.Project)}
}

func (r *memoryRepo) Upsert(_ context.Context, p *domain.Project) error {
	r.projects[p.ID] = p
	return nil
}

func (r *memoryRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Project, error) {
	p, ok := r.projects[id]
	if !ok {
		return nil, domain.ErrProjectNotFound
	}
	return p, nil
}

func (r *memoryRepo) ListByUser(_ context.Context, userID uuid.UUID, _, _ int) ([]*domain.Project, error) {
	var out []*domain.Project
	for _, p := range r.projects {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memoryRepo) UpsertChallenge(_ context.Context, c *domain.Challenge) error {
	p, ok := r.projects[c.ProjectID]
	if !ok {
		return domain.ErrProjectNotFound
	}
	for i, existing := range p.Challenges {
		if existing.ID == c.ID {
			p.Challenges[i] = c
			return nil
		}
	}
	p.Challenges = append(p.Challenges, c)
	return nil
}

func (r *memoryRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := r.projects[id]; !ok {
		return domain.ErrProjectNotFound
	}
	delete(r.projects, id)
	return nil
}

func newTestService(p llm.Provider, repo domain.ProjectRepository) *Service {
	registry := llm.NewRegistry()
	registry.Register(p.Name(), p)
	return NewService(registry, prompt.NewBuilder(), repo, Config{}, nil)
}

const appResponse = "```json\n" + `{
	"projectName": "pixel-pad",
	"description": "a tiny drawing app",
	"files": [
		{"path": "index.html", "content": "<canvas></canvas>"},
		{"path": "app.js", "content": "// draw"}
	],
	"challenges": [
		{
			"title": "Add an eraser",
			"description": "let users erase strokes",
			"difficulty": "easy",
			"type": "feature",
			"filePaths": ["app.js", "ghost.js"],
			"hints": ["look at the brush code", "invert the composite op"]
		}
	]
}` + "\n```"

func TestGenerateApp(t *testing.T) {
	provider := &scriptedProvider{response: appResponse}
	repo := newMemoryRepo()
	svc := newTestService(provider, repo)

	userID := uuid.New()
	project, err := svc.GenerateApp(context.Background(), userID, "a drawing app")
	if err != nil {
		t.Fatalf("GenerateApp() error = %v", err)
	}

	if project.Name != "pixel-pad" {
		t.Errorf("Name = %q", project.Name)
	}
	if len(project.Files) != 2 {
		t.Errorf("len(Files) = %d, want 2", len(project.Files))
	}
	if len(project.Challenges) != 1 {
		t.Fatalf("len(Challenges) = %d, want 1", len(project.Challenges))
	}

	c := project.Challenges[0]
	if c.Difficulty != domain.DifficultyBeginner {
		t.Errorf("Difficulty = %q, want easy normalized to beginner", c.Difficulty)
	}
	if c.Status != domain.StatusNotStarted {
		t.Errorf("Status = %q, want not_started", c.Status)
	}
	// ghost.js does not exist in the generated files
	if len(c.FilePaths) != 1 || c.FilePaths[0] != "app.js" {
		t.Errorf("FilePaths = %v, want invented paths dropped", c.FilePaths)
	}

	if _, err := repo.GetByID(context.Background(), project.ID); err != nil {
		t.Errorf("project was not persisted: %v", err)
	}

	if provider.lastReq.System == "" {
		t.Error("request should carry a system prompt")
	}
}

func TestGenerateApp_MalformedOutput(t *testing.T) {
	provider := &scriptedProvider{response: "Sure! I'd be happy to help with that."}
	svc := newTestService(provider, newMemoryRepo())

	_, err := svc.GenerateApp(context.Background(), uuid.New(), "anything")
	if !errors.Is(err, ErrMalformedOutput) {
		t.Errorf("error = %v, want ErrMalformedOutput", err)
	}
}

func TestGenerateApp_ProviderError(t *testing.T) {
	provider := &scriptedProvider{err: errors.New("API error (status 500): boom")}
	svc := newTestService(provider, newMemoryRepo())

	_, err := svc.GenerateApp(context.Background(), uuid.New(), "anything")
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, ErrMalformedOutput) {
		t.Error("provider failures must not be reported as malformed output")
	}
}

func TestGenerateChallenge(t *testing.T) {
	provider := &scriptedProvider{response: `{
		"title": "Cache the results",
		"description": "add a memo layer",
		"difficulty": "advanced",
		"type": "implementation",
		"filePaths": ["app.js"],
		"hints": ["think about keys"]
	}`}
	repo := newMemoryRepo()
	svc := newTestService(provider, repo)

	project := &domain.Project{
		ID:     uuid.New(),
		UserID: uuid.New(),
		Name:   "pixel-pad",
		Files:  []domain.ProjectFile{{Path: "app.js", Content: "// draw"}},
	}
	if err := repo.Upsert(context.Background(), project); err != nil {
		t.Fatal(err)
	}

	c, err := svc.GenerateChallenge(context.Background(), project.ID, "performance", domain.DifficultyAdvanced)
	if err != nil {
		t.Fatalf("GenerateChallenge() error = %v", err)
	}
	if c.Title != "Cache the results" {
		t.Errorf("Title = %q", c.Title)
	}
	if c.ProjectID != project.ID {
		t.Error("challenge should belong to the project")
	}
	if len(project.Challenges) != 1 {
		t.Errorf("challenge was not persisted onto the project")
	}
}

func TestGenerateChallenge_ProjectMissing(t *testing.T) {
	svc := newTestService(&scriptedProvider{response: "{}"}, newMemoryRepo())

	_, err := svc.GenerateChallenge(context.Background(), uuid.New(), "x", domain.DifficultyBeginner)
	if !errors.Is(err, domain.ErrProjectNotFound) {
		t.Errorf("error = %v, want ErrProjectNotFound", err)
	}
}

func TestModifyApp(t *testing.T) {
	provider := &scriptedProvider{response: `{
		"files": [
			{"path": "app.js", "content": "// draw v2"},
			{"path": "style.css", "content": "canvas { border: 1px solid }"}
		],
		"summary": "Added a border and reworked drawing."
	}`}
	repo := newMemoryRepo()
	svc := newTestService(provider, repo)

	project := &domain.Project{
		ID:     uuid.New(),
		UserID: uuid.New(),
		Name:   "pixel-pad",
		Files:  []domain.ProjectFile{{Path: "app.js", Content: "// draw"}},
	}
	if err := repo.Upsert(context.Background(), project); err != nil {
		t.Fatal(err)
	}

	updated, summary, err := svc.ModifyApp(context.Background(), project.ID, "add a border")
	if err != nil {
		t.Fatalf("ModifyApp() error = %v", err)
	}
	if summary == "" {
		t.Error("expected a change summary")
	}
	if f := updated.File("app.js"); f == nil || f.Content != "// draw v2" {
		t.Error("existing file should be overwritten")
	}
	if updated.File("style.css") == nil {
		t.Error("new file should be added")
	}
}

func TestAnalyzeCode(t *testing.T) {
	provider := &scriptedProvider{response: "```json\n" + `{
		"summary": "Solid start.",
		"issues": [
			{"path": "app.js", "line": 3, "severity": "error", "message": "undefined variable"}
		],
		"suggestions": ["name your functions"]
	}` + "\n```"}
	svc := newTestService(provider, newMemoryRepo())

	analysis, err := svc.AnalyzeCode(context.Background(), []domain.ProjectFile{{Path: "app.js", Content: "x"}})
	if err != nil {
		t.Fatalf("AnalyzeCode() error = %v", err)
	}
	if !analysis.HasErrors() {
		t.Error("HasErrors() = false, want true")
	}
	if len(analysis.Suggestions) != 1 {
		t.Errorf("Suggestions = %v", analysis.Suggestions)
	}
}
