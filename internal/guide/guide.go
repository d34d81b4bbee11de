// Package guide drives the conversational guidance around a project's
// challenges. Each challenge tracks its own status, so completion can
// happen in any order; the guide only suggests what to work on next.
package guide

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/felixgeelhaar/kiln/internal/domain"
)

// completionPhrases mark a user message as "I finished the challenge".
// Matching is case-insensitive substring containment.
var completionPhrases = []string{
	"i'm done",
	"im done",
	"i am done",
	"finished",
	"completed it",
	"solved it",
	"it works",
	"done with this",
	"next challenge",
}

// ChallengeGuide walks a learner through a project's challenges
type ChallengeGuide struct {
	project *domain.Project
	picker  *picker
}

// NewChallengeGuide creates a guide for a project
func NewChallengeGuide(project *domain.Project) *ChallengeGuide {
	return &ChallengeGuide{
		project: project,
		picker:  newPicker(nil),
	}
}

// NewChallengeGuideWithRand creates a guide with a deterministic random
// source, used by tests
func NewChallengeGuideWithRand(project *domain.Project, rng *rand.Rand) *ChallengeGuide {
	return &ChallengeGuide{
		project: project,
		picker:  newPicker(rng),
	}
}

// Result describes what a user message triggered
type Result struct {
	Response  string            // guidance text, empty when nothing matched
	Completed *domain.Challenge // challenge completed by this message, if any
}

// ProcessUserMessage inspects a user message for completion phrases.
// When one matches, the active challenge is marked completed and the
// next not-started challenge becomes active. A message never completes
// more than one challenge, and completion never runs past the last one.
func (g *ChallengeGuide) ProcessUserMessage(message string) Result {
	if !containsCompletionPhrase(message) {
		return Result{}
	}

	active := g.project.ActiveChallenge()
	if active == nil {
		return Result{Response: g.picker.pick(allDoneTemplates)}
	}

	active.Complete()

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(g.picker.pick(congratsTemplates), active.Title))

	next := g.project.ActiveChallenge()
	if next == nil {
		sb.WriteString(" ")
		sb.WriteString(g.picker.pick(allDoneTemplates))
	} else {
		next.Start()
		sb.WriteString(" ")
		sb.WriteString(fmt.Sprintf(g.picker.pick(nextChallengeTemplates), next.Title, firstSentence(next.Description)))
	}

	return Result{Response: sb.String(), Completed: active}
}

// RevealHint reveals the next hint for a challenge
func (g *ChallengeGuide) RevealHint(challengeID string) (string, error) {
	for _, c := range g.project.Challenges {
		if c.ID.String() == challengeID {
			hint := c.RevealHint()
			if hint == "" {
				return "", domain.ErrNoHintsLeft
			}
			return fmt.Sprintf(g.picker.pick(hintLeadIns), hint), nil
		}
	}
	return "", domain.ErrChallengeNotFound
}

// ProjectOverview summarizes progress across all challenges
func (g *ChallengeGuide) ProjectOverview() string {
	var sb strings.Builder
	sb.WriteString(g.project.Overview())
	sb.WriteString("\n")
	for _, c := range g.project.Challenges {
		marker := "[ ]"
		switch c.Status {
		case domain.StatusCompleted:
			marker = "[x]"
		case domain.StatusInProgress:
			marker = "[~]"
		}
		sb.WriteString(fmt.Sprintf("%s %s (%s)\n", marker, c.Title, c.Difficulty))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func containsCompletionPhrase(message string) bool {
	lower := strings.ToLower(message)
	for _, phrase := range completionPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

func firstSentence(text string) string {
	if i := strings.IndexAny(text, ".!?"); i >= 0 {
		return text[:i+1]
	}
	return text
}
