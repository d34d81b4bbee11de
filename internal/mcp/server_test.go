package mcp

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/kiln/internal/chat"
	"github.com/felixgeelhaar/kiln/internal/domain"
	"github.com/felixgeelhaar/kiln/internal/generate"
	"github.com/felixgeelhaar/kiln/internal/llm"
	"github.com/felixgeelhaar/kiln/internal/prompt"
)

type scriptedProvider struct {
	response string
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Generate(_ context.Context, _ *llm.Request) (*llm.Response, error) {
	return &llm.Response{Content: p.response, FinishReason: "stop"}, nil
}

type memoryProjects struct {
	projects map[uuid.UUID]*domain.Project
}

func (r *memoryProjects) Upsert(_ context.Context, p *domain.Project) error {
	r.projects[p.ID] = p
	return nil
}

func (r *memoryProjects) GetByID(_ context.Context, id uuid.UUID) (*domain.Project, error) {
	p, ok := r.projects[id]
	if !ok {
		return nil, domain.ErrProjectNotFound
	}
	return p, nil
}

func (r *memoryProjects) ListByUser(_ context.Context, _ uuid.UUID, _, _ int) ([]*domain.Project, error) {
	return nil, nil
}

func (r *memoryProjects) UpsertChallenge(_ context.Context, c *domain.Challenge) error {
	p, ok := r.projects[c.ProjectID]
	if !ok {
		return domain.ErrProjectNotFound
	}
	p.Challenges = append(p.Challenges, c)
	return nil
}

func (r *memoryProjects) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.projects, id)
	return nil
}

type memoryConversations struct {
	messages []*domain.ConversationMessage
}

func (r *memoryConversations) Append(_ context.Context, msg *domain.ConversationMessage) error {
	r.messages = append(r.messages, msg)
	return nil
}

func (r *memoryConversations) ListByProject(_ context.Context, _ uuid.UUID, _ int) ([]*domain.ConversationMessage, error) {
	return nil, nil
}

func setupTestServer(t *testing.T, response string) (*Server, *domain.Project) {
	t.Helper()

	provider := &scriptedProvider{response: response}
	registry := llm.NewRegistry()
	registry.Register(provider.Name(), provider)

	projects := &memoryProjects{projects: make(map[uuid.UUID]*domain.Project)}
	prompts := prompt.NewBuilder()
	generator := generate.NewService(registry, prompts, projects, generate.Config{}, nil)
	chatSvc := chat.NewService(registry, prompts, generator, projects, &memoryConversations{}, chat.Config{}, nil)

	projectID := uuid.New()
	now := time.Now()
	project := &domain.Project{
		ID:    projectID,
		Name:  "pixel-pad",
		Files: []domain.ProjectFile{{Path: "app.js", Content: "// draw"}},
		Challenges: []*domain.Challenge{
			{
				ID: uuid.New(), ProjectID: projectID, Title: "Add an eraser",
				Description: "Let users erase strokes.",
				Status:      domain.StatusInProgress,
				CreatedAt:   now, UpdatedAt: now,
			},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	projects.projects[projectID] = project

	srv := NewServer(Config{Generator: generator, Chat: chatSvc, Projects: projects})
	return srv, project
}

func TestNewServer(t *testing.T) {
	srv, _ := setupTestServer(t, "")

	if srv.mcpServer == nil {
		t.Fatal("expected non-nil MCP server")
	}
	if srv.GetMCPServer() == nil {
		t.Fatal("expected non-nil underlying MCP server")
	}
}

func TestHandleGenerateApp(t *testing.T) {
	srv, _ := setupTestServer(t, `{
		"projectName": "todo-list",
		"description": "a list app",
		"files": [{"path": "index.html", "content": "<html></html>"}],
		"challenges": [{"title": "Add filters", "description": "filter by done", "difficulty": "easy", "type": "feature"}]
	}`)

	out, err := srv.handleGenerateApp(context.Background(), GenerateAppInput{
		UserID: uuid.New().String(),
		Idea:   "a todo list",
	})
	if err != nil {
		t.Fatalf("handleGenerateApp() error = %v", err)
	}
	if out.Name != "todo-list" {
		t.Errorf("Name = %q", out.Name)
	}
	if len(out.Files) != 1 || out.Files[0] != "index.html" {
		t.Errorf("Files = %v", out.Files)
	}
	if len(out.Challenges) != 1 {
		t.Errorf("Challenges = %v", out.Challenges)
	}
}

func TestHandleGenerateApp_InvalidUserID(t *testing.T) {
	srv, _ := setupTestServer(t, "")

	if _, err := srv.handleGenerateApp(context.Background(), GenerateAppInput{UserID: "nope", Idea: "x"}); err == nil {
		t.Fatal("expected error for invalid user id")
	}
}

func TestHandleChat_Completion(t *testing.T) {
	srv, project := setupTestServer(t, "should not be called")

	out, err := srv.handleChat(context.Background(), ChatInput{
		ProjectID: project.ID.String(),
		Message:   "I'm done with this one!",
	})
	if err != nil {
		t.Fatalf("handleChat() error = %v", err)
	}
	if out.CompletedChallenge != "Add an eraser" {
		t.Errorf("CompletedChallenge = %q", out.CompletedChallenge)
	}
	if out.Message == "" {
		t.Error("expected guidance text")
	}
}

func TestHandleOverview(t *testing.T) {
	srv, project := setupTestServer(t, "")

	out, err := srv.handleOverview(context.Background(), OverviewInput{ProjectID: project.ID.String()})
	if err != nil {
		t.Fatalf("handleOverview() error = %v", err)
	}
	if !strings.Contains(out.Overview, "0/1 challenges completed") {
		t.Errorf("Overview = %q", out.Overview)
	}
	if out.Total != 1 {
		t.Errorf("Total = %d", out.Total)
	}
}

func TestHandleAnalyze(t *testing.T) {
	srv, project := setupTestServer(t, `{
		"summary": "one bug",
		"issues": [{"path": "app.js", "severity": "error", "message": "undefined variable"}],
		"suggestions": ["declare it"]
	}`)

	out, err := srv.handleAnalyze(context.Background(), AnalyzeInput{ProjectID: project.ID.String()})
	if err != nil {
		t.Fatalf("handleAnalyze() error = %v", err)
	}
	if !out.HasErrors {
		t.Error("expected HasErrors")
	}
	if out.Issues != 1 {
		t.Errorf("Issues = %d", out.Issues)
	}
}

func TestHandleOverview_ProjectMissing(t *testing.T) {
	srv, _ := setupTestServer(t, "")

	if _, err := srv.handleOverview(context.Background(), OverviewInput{ProjectID: uuid.New().String()}); err == nil {
		t.Fatal("expected error for unknown project")
	}
}
