package guide

import "math/rand"

// Canned guidance phrasings. One is picked at random per event so the
// guide does not sound like a broken record.

var congratsTemplates = []string{
	"Nice work! %q is done.",
	"Challenge %q completed, well earned.",
	"That's %q finished. Solid progress.",
	"You closed out %q. Keep the momentum going.",
}

var nextChallengeTemplates = []string{
	"Next up: %q. %s",
	"Ready for the next one? %q: %s",
	"Your next challenge is %q. %s",
}

var allDoneTemplates = []string{
	"That was the last challenge. Everything is completed, impressive!",
	"All challenges completed. Time to generate a new project?",
	"Nothing left to solve here. You finished every challenge.",
}

var hintLeadIns = []string{
	"Here's a hint: %s",
	"Try this angle: %s",
	"A nudge in the right direction: %s",
}

// picker selects a template; tests inject a deterministic source
type picker struct {
	rng *rand.Rand
}

func newPicker(rng *rand.Rand) *picker {
	return &picker{rng: rng}
}

func (p *picker) pick(templates []string) string {
	if len(templates) == 0 {
		return ""
	}
	if p.rng == nil {
		return templates[rand.Intn(len(templates))]
	}
	return templates[p.rng.Intn(len(templates))]
}
