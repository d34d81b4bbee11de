package envgate

import (
	"errors"
	"testing"
)

func TestGate(t *testing.T) {
	gate := New([]string{"WORKSPACE_THEME", "EDITOR_FONT"})

	// allowed but unset
	v, err := gate.Get("WORKSPACE_THEME")
	if err != nil || v != "" {
		t.Errorf("Get(unset) = %q, %v", v, err)
	}

	if err := gate.Set("WORKSPACE_THEME", "dark"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	v, err = gate.Get("WORKSPACE_THEME")
	if err != nil || v != "dark" {
		t.Errorf("Get() = %q, %v, want dark", v, err)
	}

	// not on the allow list
	if _, err := gate.Get("DATABASE_URL"); !errors.Is(err, ErrKeyNotAllowed) {
		t.Errorf("Get(denied) error = %v, want ErrKeyNotAllowed", err)
	}
	if err := gate.Set("API_KEY", "secret"); !errors.Is(err, ErrKeyNotAllowed) {
		t.Errorf("Set(denied) error = %v, want ErrKeyNotAllowed", err)
	}
}

func TestGate_Keys(t *testing.T) {
	gate := New([]string{"B_KEY", "A_KEY"})

	keys := gate.Keys()
	if len(keys) != 2 || keys[0] != "A_KEY" || keys[1] != "B_KEY" {
		t.Errorf("Keys() = %v, want sorted allow list", keys)
	}
}
