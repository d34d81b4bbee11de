package guide

import (
	"fmt"
	"strings"

	"github.com/felixgeelhaar/kiln/internal/domain"
)

// TeachingGuide steps a learner through static teaching content one
// module at a time. The step pointer is scoped to the selected module.
type TeachingGuide struct {
	modules   []*domain.LearningModule
	moduleIdx int
	stepIdx   int
}

// NewTeachingGuide creates a guide over an ordered list of modules
func NewTeachingGuide(modules []*domain.LearningModule) *TeachingGuide {
	return &TeachingGuide{modules: modules}
}

// Modules returns all loaded modules
func (g *TeachingGuide) Modules() []*domain.LearningModule {
	return g.modules
}

// CurrentModule returns the selected module, or nil when none are loaded
func (g *TeachingGuide) CurrentModule() *domain.LearningModule {
	if g.moduleIdx < 0 || g.moduleIdx >= len(g.modules) {
		return nil
	}
	return g.modules[g.moduleIdx]
}

// SelectModule switches to the module with the given ID and resets the
// step pointer
func (g *TeachingGuide) SelectModule(id string) error {
	for i, m := range g.modules {
		if m.ID == id {
			g.moduleIdx = i
			g.stepIdx = 0
			return nil
		}
	}
	return domain.ErrModuleNotFound
}

// CurrentStep returns the step the learner is on, or nil
func (g *TeachingGuide) CurrentStep() *domain.LearningStep {
	m := g.CurrentModule()
	if m == nil {
		return nil
	}
	return m.Step(g.stepIdx)
}

// NextStep advances within the current module and returns the new step.
// Returns nil when already on the last step of the module.
func (g *TeachingGuide) NextStep() *domain.LearningStep {
	m := g.CurrentModule()
	if m == nil {
		return nil
	}
	if g.stepIdx+1 >= m.StepCount() {
		return nil
	}
	g.stepIdx++
	return m.Step(g.stepIdx)
}

// PrevStep moves back within the current module and returns the new step.
// Returns nil when already on the first step.
func (g *TeachingGuide) PrevStep() *domain.LearningStep {
	if g.CurrentModule() == nil || g.stepIdx == 0 {
		return nil
	}
	g.stepIdx--
	return g.CurrentModule().Step(g.stepIdx)
}

// Progress reports the position within the current module, e.g. "step 2 of 5"
func (g *TeachingGuide) Progress() string {
	m := g.CurrentModule()
	if m == nil {
		return "no module selected"
	}
	return fmt.Sprintf("step %d of %d", g.stepIdx+1, m.StepCount())
}

// RenderStep formats a step for display in chat
func (g *TeachingGuide) RenderStep() string {
	step := g.CurrentStep()
	if step == nil {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## %s\n\n%s\n", step.Title, step.Explanation))
	if step.CodeSnippet != "" {
		sb.WriteString(fmt.Sprintf("\n```\n%s\n```\n", step.CodeSnippet))
	}
	if step.Challenge != "" {
		sb.WriteString(fmt.Sprintf("\nTry it: %s\n", step.Challenge))
	}
	if len(step.SelfCheck) > 0 {
		sb.WriteString("\nCheck yourself:\n")
		for _, q := range step.SelfCheck {
			sb.WriteString(fmt.Sprintf("- %s\n", q))
		}
	}
	return sb.String()
}
