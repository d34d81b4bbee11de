// Package envgate exposes a small allow-listed slice of configuration
// to workspace clients. Anything not on the list is invisible, so API
// keys and database credentials can never leak through the endpoint.
package envgate

import (
	"errors"
	"sort"
	"sync"
)

var ErrKeyNotAllowed = errors.New("key is not on the allow list")

// Gate guards access to a fixed set of configuration keys
type Gate struct {
	mu      sync.RWMutex
	allowed map[string]struct{}
	values  map[string]string
}

// New creates a gate exposing only the given keys
func New(allowedKeys []string) *Gate {
	allowed := make(map[string]struct{}, len(allowedKeys))
	for _, key := range allowedKeys {
		allowed[key] = struct{}{}
	}
	return &Gate{
		allowed: allowed,
		values:  make(map[string]string),
	}
}

// Get returns the value for an allowed key. Allowed but unset keys
// return an empty value with ok true.
func (g *Gate) Get(key string) (string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if _, ok := g.allowed[key]; !ok {
		return "", ErrKeyNotAllowed
	}
	return g.values[key], nil
}

// Set stores a value for an allowed key
func (g *Gate) Set(key, value string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.allowed[key]; !ok {
		return ErrKeyNotAllowed
	}
	g.values[key] = value
	return nil
}

// Keys returns the allow list in sorted order
func (g *Gate) Keys() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	keys := make([]string, 0, len(g.allowed))
	for key := range g.allowed {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
