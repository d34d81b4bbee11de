// Package extract pulls structured JSON out of free-text LLM responses.
// Models are asked for strict JSON but routinely wrap it in markdown
// fences or prose, so extraction degrades gracefully: fenced ```json
// block first, any fenced block next, then the first balanced object,
// and finally the whole text.
package extract

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

// ErrNoJSON indicates the response contained nothing parseable as JSON.
var ErrNoJSON = errors.New("no JSON found in response")

var (
	jsonFenceRe = regexp.MustCompile("(?s)```json\\s*(.*?)```")
	anyFenceRe  = regexp.MustCompile("(?s)```(?:[a-zA-Z0-9_-]*)\\s*(.*?)```")
)

// JSON unmarshals the JSON payload embedded in text into v.
func JSON(text string, v any) error {
	raw, err := Raw(text)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return errors.Join(ErrNoJSON, err)
	}
	return nil
}

// Raw returns the JSON payload embedded in text without unmarshaling it.
func Raw(text string) (string, error) {
	for _, candidate := range candidates(text) {
		if json.Valid([]byte(candidate)) {
			return candidate, nil
		}
	}
	return "", ErrNoJSON
}

// candidates yields extraction attempts in order of preference.
func candidates(text string) []string {
	var out []string

	if m := jsonFenceRe.FindStringSubmatch(text); m != nil {
		out = append(out, strings.TrimSpace(m[1]))
	}
	if m := anyFenceRe.FindStringSubmatch(text); m != nil {
		out = append(out, strings.TrimSpace(m[1]))
	}
	if span := balancedObject(text); span != "" {
		out = append(out, span)
	}
	out = append(out, strings.TrimSpace(text))

	return out
}

// balancedObject returns the first top-level {...} span in text,
// respecting string literals and escapes.
func balancedObject(text string) string {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if escaped {
			escaped = false
			continue
		}
		switch ch {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return text[start : i+1]
				}
			}
		}
	}
	return ""
}
