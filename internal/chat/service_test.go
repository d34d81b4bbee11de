package chat

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/felixgeelhaar/kiln/internal/domain"
	"github.com/felixgeelhaar/kiln/internal/generate"
	"github.com/felixgeelhaar/kiln/internal/llm"
	"github.com/felixgeelhaar/kiln/internal/prompt"
	"github.com/google/uuid"
)

type scriptedProvider struct {
	response string
	lastReq  *llm.Request
	calls    int
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Generate(_ context.Context, req *llm.Request) (*llm.Response, error) {
	p.calls++
	p.lastReq = req
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

func (r *memoryProjects) ListByUser(_ context.Context, userID uuid.UUID, _, _ int) ([]*domain.Project, error) {
	var out []*domain.Project
	for _, p := range r.projects {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memoryProjects) UpsertChallenge(_ context.Context, c *domain.Challenge) error {
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

func (r *memoryConversations) ListByProject(_ context.Context, projectID uuid.UUID, limit int) ([]*domain.ConversationMessage, error) {
	var out []*domain.ConversationMessage
	for _, m := range r.messages {
		if m.ProjectID == projectID {
			out = append(out, m)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

type fixture struct {
	svc           *Service
	provider      *scriptedProvider
	projects      *memoryProjects
	conversations *memoryConversations
	project       *domain.Project
}

func newFixture(t *testing.T, response string) *fixture {
	t.Helper()

	provider := &scriptedProvider{response: response}
	registry := llm.NewRegistry()
	registry.Register(provider.Name(), provider)

	projects := &memoryProjects{projects: make(map[uuid.UUID]*domain.Project)}
	conversations := &memoryConversations{}
	prompts := prompt.NewBuilder()
	generator := generate.NewService(registry, prompts, projects, generate.Config{}, nil)

	projectID := uuid.New()
	now := time.Now()
	project := &domain.Project{
		ID:     projectID,
		UserID: uuid.New(),
		Name:   "pixel-pad",
		Files:  []domain.ProjectFile{{Path: "app.js", Content: "// draw"}},
		Challenges: []*domain.Challenge{
			{
				ID: uuid.New(), ProjectID: projectID, Title: "Add an eraser",
				Description: "Let users erase strokes. Then celebrate.",
				Hints:       []string{"look at the brush"},
				Status:      domain.StatusInProgress,
				CreatedAt:   now, UpdatedAt: now,
			},
			{
				ID: uuid.New(), ProjectID: projectID, Title: "Add undo",
				Description: "Keep a stroke history.",
				Status:      domain.StatusNotStarted,
				CreatedAt:   now, UpdatedAt: now,
			},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	projects.projects[projectID] = project

	svc := NewService(registry, prompts, generator, projects, conversations, Config{}, nil)
	return &fixture{svc: svc, provider: provider, projects: projects, conversations: conversations, project: project}
}

func TestSend_PlainChat(t *testing.T) {
	f := newFixture(t, "An event loop processes queued callbacks.")

	reply, err := f.svc.Send(context.Background(), f.project.ID, "how does the event loop work?")
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if reply.Intent != IntentChat {
		t.Errorf("Intent = %q", reply.Intent)
	}
	if reply.Message != "An event loop processes queued callbacks." {
		t.Errorf("Message = %q", reply.Message)
	}
	if f.provider.calls != 1 {
		t.Errorf("provider calls = %d, want 1", f.provider.calls)
	}
	// user message + assistant reply
	if len(f.conversations.messages) != 2 {
		t.Errorf("stored messages = %d, want 2", len(f.conversations.messages))
	}
	if !strings.Contains(f.provider.lastReq.System, "pixel-pad") {
		t.Error("system prompt should carry project context")
	}
}

func TestSend_CompletionSkipsLLM(t *testing.T) {
	f := newFixture(t, "should not be called")

	reply, err := f.svc.Send(context.Background(), f.project.ID, "I'm done with this one!")
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if reply.Completed == nil || reply.Completed.Title != "Add an eraser" {
		t.Fatalf("Completed = %+v, want the active challenge", reply.Completed)
	}
	if f.provider.calls != 0 {
		t.Errorf("provider calls = %d, completion must not hit the LLM", f.provider.calls)
	}
	if f.project.Challenges[0].Status != domain.StatusCompleted {
		t.Error("active challenge should be completed")
	}
	if f.project.Challenges[1].Status != domain.StatusInProgress {
		t.Error("next challenge should be activated")
	}
	if reply.Message == "" {
		t.Error("completion should produce guidance text")
	}
}

func TestSend_CompletionAdvancesOnce(t *testing.T) {
	f := newFixture(t, "unused")

	if _, err := f.svc.Send(context.Background(), f.project.ID, "finished!"); err != nil {
		t.Fatal(err)
	}
	if got := f.project.CompletedCount(); got != 1 {
		t.Errorf("CompletedCount = %d after one completion message, want 1", got)
	}
}

func TestSend_Hint(t *testing.T) {
	f := newFixture(t, "unused")

	reply, err := f.svc.Send(context.Background(), f.project.ID, "I'm stuck, any hint?")
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if reply.Intent != IntentHint {
		t.Errorf("Intent = %q", reply.Intent)
	}
	if !strings.Contains(reply.Message, "look at the brush") {
		t.Errorf("Message = %q, want the first hint", reply.Message)
	}
	if f.project.Challenges[0].HintsRevealed != 1 {
		t.Errorf("HintsRevealed = %d, want 1", f.project.Challenges[0].HintsRevealed)
	}

	// hints run out
	reply, err = f.svc.Send(context.Background(), f.project.ID, "another hint please")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(reply.Message, "every hint") {
		t.Errorf("Message = %q, want exhaustion notice", reply.Message)
	}
}

func TestSend_NewChallenge(t *testing.T) {
	f := newFixture(t, `{
		"title": "Add keyboard shortcuts",
		"description": "bind keys to tools",
		"difficulty": "intermediate",
		"type": "feature",
		"filePaths": ["app.js"],
		"hints": ["keydown events"]
	}`)

	reply, err := f.svc.Send(context.Background(), f.project.ID, "give me a new challenge about shortcuts")
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if reply.Intent != IntentChallenge {
		t.Errorf("Intent = %q", reply.Intent)
	}
	if reply.Challenge == nil || reply.Challenge.Title != "Add keyboard shortcuts" {
		t.Fatalf("Challenge = %+v", reply.Challenge)
	}
	if len(f.project.Challenges) != 3 {
		t.Errorf("project has %d challenges, want new one persisted", len(f.project.Challenges))
	}
}

func TestSend_Modify(t *testing.T) {
	f := newFixture(t, `{
		"files": [{"path": "app.js", "content": "// draw with grid"}],
		"summary": "Added a background grid."
	}`)

	reply, err := f.svc.Send(context.Background(), f.project.ID, "can you add a grid background?")
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if reply.Intent != IntentModify {
		t.Errorf("Intent = %q", reply.Intent)
	}
	if reply.Message != "Added a background grid." {
		t.Errorf("Message = %q", reply.Message)
	}
	if f.project.File("app.js").Content != "// draw with grid" {
		t.Error("file change should be applied")
	}
}

func TestSend_ProjectMissing(t *testing.T) {
	f := newFixture(t, "unused")

	if _, err := f.svc.Send(context.Background(), uuid.New(), "hello"); err == nil {
		t.Fatal("expected error for unknown project")
	}
}
