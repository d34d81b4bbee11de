package domain

// LearningModule groups ordered teaching steps around a single topic
type LearningModule struct {
	ID          string // slug: "go-basics/error-handling"
	Title       string
	Description string
	Concepts    []string
	Steps       []LearningStep
}

// LearningStep is one unit of teaching content within a module
type LearningStep struct {
	Title       string
	Explanation string
	CodeSnippet string
	Challenge   string   // optional practice prompt
	SelfCheck   []string // self-check questions
}

// StepCount returns the number of steps in the module
func (m *LearningModule) StepCount() int {
	return len(m.Steps)
}

// Step returns the step at the given index, or nil when out of range
func (m *LearningModule) Step(i int) *LearningStep {
	if i < 0 || i >= len(m.Steps) {
		return nil
	}
	return &m.Steps[i]
}
