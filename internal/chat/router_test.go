package chat

import "testing"

func TestRoute(t *testing.T) {
	tests := []struct {
		message string
		want    Intent
	}{
		{"how does the event loop work?", IntentChat},
		{"Give me a new challenge", IntentChallenge},
		{"something harder please", IntentChallenge},
		{"can you add a dark mode toggle?", IntentModify},
		{"please change the app to use fetch", IntentModify},
		{"I'm stuck on this one", IntentHint},
		{"any hint?", IntentHint},
		// hint wins when keywords overlap
		{"I'm stuck, can you change the app?", IntentHint},
		{"", IntentChat},
	}

	for _, tt := range tests {
		if got := Route(tt.message); got != tt.want {
			t.Errorf("Route(%q) = %q, want %q", tt.message, got, tt.want)
		}
	}
}
