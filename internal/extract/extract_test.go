package extract

import (
	"errors"
	"testing"
)

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestJSON_FencedBlock(t *testing.T) {
	text := "Here is your app:\n```json\n{\"name\": \"todo\", \"count\": 3}\n```\nEnjoy!"

	var p payload
	if err := JSON(text, &p); err != nil {
		t.Fatalf("JSON() error = %v", err)
	}
	if p.Name != "todo" || p.Count != 3 {
		t.Errorf("JSON() = %+v, want {todo 3}", p)
	}
}

func TestJSON_FencedBlockWithoutLanguage(t *testing.T) {
	text := "```\n{\"name\": \"blog\", \"count\": 1}\n```"

	var p payload
	if err := JSON(text, &p); err != nil {
		t.Fatalf("JSON() error = %v", err)
	}
	if p.Name != "blog" {
		t.Errorf("Name = %q, want blog", p.Name)
	}
}

func TestJSON_WholeTextFallback(t *testing.T) {
	var p payload
	if err := JSON(`{"name": "plain", "count": 9}`, &p); err != nil {
		t.Fatalf("JSON() error = %v", err)
	}
	if p.Name != "plain" || p.Count != 9 {
		t.Errorf("JSON() = %+v, want {plain 9}", p)
	}
}

func TestJSON_EmbeddedObject(t *testing.T) {
	text := `Sure! The result is {"name": "embedded", "count": 2} as requested.`

	var p payload
	if err := JSON(text, &p); err != nil {
		t.Fatalf("JSON() error = %v", err)
	}
	if p.Name != "embedded" {
		t.Errorf("Name = %q, want embedded", p.Name)
	}
}

func TestJSON_BracesInsideStrings(t *testing.T) {
	text := `prefix {"name": "braces } inside", "count": 5} suffix`

	var p payload
	if err := JSON(text, &p); err != nil {
		t.Fatalf("JSON() error = %v", err)
	}
	if p.Name != "braces } inside" {
		t.Errorf("Name = %q, want string with embedded brace", p.Name)
	}
}

func TestJSON_FencePreferredOverLooseObject(t *testing.T) {
	text := "{\"name\": \"wrong\", \"count\": 0}\n```json\n{\"name\": \"fenced\", \"count\": 1}\n```"

	var p payload
	if err := JSON(text, &p); err != nil {
		t.Fatalf("JSON() error = %v", err)
	}
	if p.Name != "fenced" {
		t.Errorf("Name = %q, want fenced (fence should win)", p.Name)
	}
}

func TestJSON_NoJSON(t *testing.T) {
	tests := []string{
		"I could not generate an app this time.",
		"```json\nnot actually json\n```",
		"",
	}

	for _, text := range tests {
		var p payload
		err := JSON(text, &p)
		if !errors.Is(err, ErrNoJSON) {
			t.Errorf("JSON(%q) error = %v, want ErrNoJSON", text, err)
		}
	}
}

func TestRaw(t *testing.T) {
	raw, err := Raw("```json\n[1, 2, 3]\n```")
	if err != nil {
		t.Fatalf("Raw() error = %v", err)
	}
	if raw != "[1, 2, 3]" {
		t.Errorf("Raw() = %q, want [1, 2, 3]", raw)
	}
}
