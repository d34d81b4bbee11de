package guide

import (
	"errors"
	"math/rand"
	"strings"
	"testing"

	"github.com/felixgeelhaar/kiln/internal/domain"
	"github.com/google/uuid"
)

func threeChallengeProject() *domain.Project {
	return &domain.Project{
		ID:   uuid.New(),
		Name: "todo-app",
		Challenges: []*domain.Challenge{
			{ID: uuid.New(), Title: "Add delete", Description: "Add a delete button. It should remove an item.", Status: domain.StatusInProgress, Hints: []string{"look at render", "bind a click handler"}},
			{ID: uuid.New(), Title: "Persist items", Description: "Store items across reloads.", Status: domain.StatusNotStarted},
			{ID: uuid.New(), Title: "Filter view", Description: "Add a filter.", Status: domain.StatusNotStarted},
		},
	}
}

func fixedGuide(p *domain.Project) *ChallengeGuide {
	return NewChallengeGuideWithRand(p, rand.New(rand.NewSource(1)))
}

func TestProcessUserMessage_CompletesExactlyOne(t *testing.T) {
	p := threeChallengeProject()
	g := fixedGuide(p)

	res := g.ProcessUserMessage("Ok I'm done with this one, it works!")
	if res.Completed == nil {
		t.Fatal("ProcessUserMessage() should complete the active challenge")
	}
	if res.Completed.Title != "Add delete" {
		t.Errorf("Completed = %q, want the active challenge", res.Completed.Title)
	}
	if p.CompletedCount() != 1 {
		t.Errorf("CompletedCount() = %d, want 1 (exactly one per message)", p.CompletedCount())
	}
	if p.Challenges[1].Status != domain.StatusInProgress {
		t.Error("next challenge should become active")
	}
	if res.Response == "" {
		t.Error("Response should carry guidance text")
	}
}

func TestProcessUserMessage_NoPhrase(t *testing.T) {
	p := threeChallengeProject()
	g := fixedGuide(p)

	res := g.ProcessUserMessage("how do I remove an element from a list?")
	if res.Completed != nil {
		t.Error("plain question must not complete a challenge")
	}
	if res.Response != "" {
		t.Error("plain question should produce no guide response")
	}
	if p.CompletedCount() != 0 {
		t.Errorf("CompletedCount() = %d, want 0", p.CompletedCount())
	}
}

func TestProcessUserMessage_NeverPastLastChallenge(t *testing.T) {
	p := threeChallengeProject()
	g := fixedGuide(p)

	for i := 0; i < 5; i++ {
		g.ProcessUserMessage("finished")
	}

	if p.CompletedCount() != 3 {
		t.Errorf("CompletedCount() = %d, want 3 (never past the last)", p.CompletedCount())
	}

	// One more completion message on a fully completed project
	res := g.ProcessUserMessage("finished")
	if res.Completed != nil {
		t.Error("completed project must not complete anything further")
	}
	if res.Response == "" {
		t.Error("guide should still respond on a completed project")
	}
}

func TestProcessUserMessage_CaseInsensitive(t *testing.T) {
	p := threeChallengeProject()
	g := fixedGuide(p)

	res := g.ProcessUserMessage("FINISHED!")
	if res.Completed == nil {
		t.Error("completion phrases should match case-insensitively")
	}
}

func TestRevealHint(t *testing.T) {
	p := threeChallengeProject()
	g := fixedGuide(p)
	id := p.Challenges[0].ID.String()

	first, err := g.RevealHint(id)
	if err != nil {
		t.Fatalf("RevealHint() error = %v", err)
	}
	if !strings.Contains(first, "look at render") {
		t.Errorf("first hint = %q, want the first hint in order", first)
	}

	if _, err := g.RevealHint(id); err != nil {
		t.Fatalf("RevealHint() second error = %v", err)
	}

	_, err = g.RevealHint(id)
	if !errors.Is(err, domain.ErrNoHintsLeft) {
		t.Errorf("RevealHint() exhausted error = %v, want ErrNoHintsLeft", err)
	}

	_, err = g.RevealHint(uuid.New().String())
	if !errors.Is(err, domain.ErrChallengeNotFound) {
		t.Errorf("RevealHint() unknown id error = %v, want ErrChallengeNotFound", err)
	}
}

func TestProjectOverview(t *testing.T) {
	p := threeChallengeProject()
	g := fixedGuide(p)

	overview := g.ProjectOverview()
	if !strings.HasPrefix(overview, "0/3 challenges completed") {
		t.Errorf("ProjectOverview() = %q, want 0/3 prefix", overview)
	}

	g.ProcessUserMessage("solved it")
	overview = g.ProjectOverview()
	if !strings.HasPrefix(overview, "1/3 challenges completed") {
		t.Errorf("ProjectOverview() after completion = %q, want 1/3 prefix", overview)
	}
	if !strings.Contains(overview, "[x] Add delete") {
		t.Errorf("ProjectOverview() should mark completed challenges, got %q", overview)
	}
}
