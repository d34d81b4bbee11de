// Package chat handles conversational requests against a project: plain
// mentoring chat, challenge generation, app modification and hints, all
// behind a single message endpoint.
package chat

import "strings"

// Intent classifies what a chat message is asking for
type Intent string

const (
	IntentChat      Intent = "chat"      // plain conversation
	IntentChallenge Intent = "challenge" // wants a new challenge generated
	IntentModify    Intent = "modify"    // wants the app changed
	IntentHint      Intent = "hint"      // wants a hint for the active challenge
)

var challengeKeywords = []string{
	"new challenge",
	"another challenge",
	"give me a challenge",
	"more challenges",
	"harder challenge",
	"something harder",
}

var modifyKeywords = []string{
	"change the app",
	"modify the app",
	"update the app",
	"add a feature",
	"add to the app",
	"can you add",
	"can you change",
	"can you remove",
	"make the app",
}

var hintKeywords = []string{
	"hint",
	"i'm stuck",
	"im stuck",
	"i am stuck",
	"give me a clue",
}

// Route classifies a user message. Completion phrases are handled by the
// guide before routing, so they never reach here.
func Route(message string) Intent {
	lower := strings.ToLower(message)

	for _, kw := range hintKeywords {
		if strings.Contains(lower, kw) {
			return IntentHint
		}
	}
	for _, kw := range challengeKeywords {
		if strings.Contains(lower, kw) {
			return IntentChallenge
		}
	}
	for _, kw := range modifyKeywords {
		if strings.Contains(lower, kw) {
			return IntentModify
		}
	}
	return IntentChat
}
