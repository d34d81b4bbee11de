package domain

import (
	"time"

	"github.com/google/uuid"
)

// Challenge represents a generated coding challenge within a project
type Challenge struct {
	ID            uuid.UUID
	ProjectID     uuid.UUID
	Title         string
	Description   string
	Difficulty    Difficulty
	Type          ChallengeType
	FilePaths     []string // project files the challenge touches
	Hints         []string // ordered, revealed one at a time
	HintsRevealed int
	Status        ChallengeStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Difficulty represents challenge difficulty level
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

// ParseDifficulty normalizes difficulty strings from generated content.
// Generated output sometimes uses easy/medium/hard instead of the
// canonical names.
func ParseDifficulty(s string) Difficulty {
	switch s {
	case "easy", "beginner":
		return DifficultyBeginner
	case "medium", "intermediate":
		return DifficultyIntermediate
	case "hard", "advanced":
		return DifficultyAdvanced
	default:
		return DifficultyIntermediate
	}
}

// ChallengeType categorizes what kind of work a challenge asks for
type ChallengeType string

const (
	TypeImplementation ChallengeType = "implementation"
	TypeBugfix         ChallengeType = "bugfix"
	TypeFeature        ChallengeType = "feature"
)

// ChallengeStatus tracks per-challenge completion state.
// Each challenge carries its own status so challenges can be completed
// out of order.
type ChallengeStatus string

const (
	StatusNotStarted ChallengeStatus = "not_started"
	StatusInProgress ChallengeStatus = "in_progress"
	StatusCompleted  ChallengeStatus = "completed"
)

// Start marks the challenge as in progress. Completed challenges stay
// completed.
func (c *Challenge) Start() {
	if c.Status == StatusCompleted {
		return
	}
	c.Status = StatusInProgress
	c.UpdatedAt = time.Now()
}

// Complete marks the challenge as completed
func (c *Challenge) Complete() {
	c.Status = StatusCompleted
	c.UpdatedAt = time.Now()
}

// Completed reports whether the challenge is done
func (c *Challenge) Completed() bool {
	return c.Status == StatusCompleted
}

// RevealHint reveals the next hint and returns it. Returns empty string
// when all hints have been revealed.
func (c *Challenge) RevealHint() string {
	if c.HintsRevealed >= len(c.Hints) {
		return ""
	}
	hint := c.Hints[c.HintsRevealed]
	c.HintsRevealed++
	c.UpdatedAt = time.Now()
	return hint
}

// RemainingHints returns how many hints have not been revealed yet
func (c *Challenge) RemainingHints() int {
	if c.HintsRevealed >= len(c.Hints) {
		return 0
	}
	return len(c.Hints) - c.HintsRevealed
}
