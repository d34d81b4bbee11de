package guide

import (
	"errors"
	"strings"
	"testing"

	"github.com/felixgeelhaar/kiln/internal/domain"
)

func testModules() []*domain.LearningModule {
	return []*domain.LearningModule{
		{
			ID:    "go-basics/slices",
			Title: "Slices",
			Steps: []domain.LearningStep{
				{Title: "What is a slice", Explanation: "A slice is a view over an array."},
				{Title: "Append", Explanation: "Append may reallocate.", CodeSnippet: "s = append(s, 1)"},
			},
		},
		{
			ID:    "go-basics/maps",
			Title: "Maps",
			Steps: []domain.LearningStep{
				{Title: "Map basics", Explanation: "Maps are reference types.", SelfCheck: []string{"What does a nil map read return?"}},
			},
		},
	}
}

func TestTeachingGuide_NextStep(t *testing.T) {
	g := NewTeachingGuide(testModules())

	step := g.CurrentStep()
	if step == nil || step.Title != "What is a slice" {
		t.Fatalf("CurrentStep() = %v, want first step", step)
	}

	step = g.NextStep()
	if step == nil || step.Title != "Append" {
		t.Fatalf("NextStep() = %v, want second step", step)
	}

	// Last step of the module: NextStep returns nil and stays put
	if got := g.NextStep(); got != nil {
		t.Errorf("NextStep() on last step = %v, want nil", got)
	}
	if g.CurrentStep().Title != "Append" {
		t.Error("NextStep() past the end must not move the pointer")
	}
}

func TestTeachingGuide_PrevStep(t *testing.T) {
	g := NewTeachingGuide(testModules())

	if got := g.PrevStep(); got != nil {
		t.Errorf("PrevStep() on first step = %v, want nil", got)
	}

	g.NextStep()
	step := g.PrevStep()
	if step == nil || step.Title != "What is a slice" {
		t.Errorf("PrevStep() = %v, want first step", step)
	}
}

func TestTeachingGuide_SelectModule(t *testing.T) {
	g := NewTeachingGuide(testModules())
	g.NextStep()

	if err := g.SelectModule("go-basics/maps"); err != nil {
		t.Fatalf("SelectModule() error = %v", err)
	}
	if g.CurrentModule().Title != "Maps" {
		t.Errorf("CurrentModule() = %q, want Maps", g.CurrentModule().Title)
	}
	if g.CurrentStep().Title != "Map basics" {
		t.Error("SelectModule() should reset the step pointer")
	}

	err := g.SelectModule("missing/module")
	if !errors.Is(err, domain.ErrModuleNotFound) {
		t.Errorf("SelectModule(missing) error = %v, want ErrModuleNotFound", err)
	}
}

func TestTeachingGuide_Empty(t *testing.T) {
	g := NewTeachingGuide(nil)

	if g.CurrentModule() != nil {
		t.Error("CurrentModule() on empty guide should be nil")
	}
	if g.CurrentStep() != nil {
		t.Error("CurrentStep() on empty guide should be nil")
	}
	if g.NextStep() != nil {
		t.Error("NextStep() on empty guide should be nil")
	}
	if g.Progress() != "no module selected" {
		t.Errorf("Progress() = %q", g.Progress())
	}
}

func TestTeachingGuide_RenderStep(t *testing.T) {
	g := NewTeachingGuide(testModules())
	g.SelectModule("go-basics/maps")

	out := g.RenderStep()
	if !strings.Contains(out, "Map basics") {
		t.Error("RenderStep() should include the step title")
	}
	if !strings.Contains(out, "What does a nil map read return?") {
		t.Error("RenderStep() should include self-check questions")
	}

	if g.Progress() != "step 1 of 1" {
		t.Errorf("Progress() = %q, want step 1 of 1", g.Progress())
	}
}
