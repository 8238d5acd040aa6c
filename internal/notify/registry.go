package notify

import (
	"errors"
	"strings"
	"sync"
)

// ErrEmptyToken is returned when registering a blank token.
var ErrEmptyToken = errors.New("notify: empty token")

// Registry is the set of push targets, deduplicated by value and kept in
// registration order. Targets live for the process lifetime.
type Registry struct {
	mu     sync.RWMutex
	tokens []string
	seen   map[string]struct{}
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{seen: make(map[string]struct{})}
}

// Register adds token and reports whether it was new.
func (r *Registry) Register(token string) (bool, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return false, ErrEmptyToken
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.seen[token]; ok {
		return false, nil
	}
	r.seen[token] = struct{}{}
	r.tokens = append(r.tokens, token)
	return true, nil
}

// Tokens returns a copy of the registered tokens in registration order.
func (r *Registry) Tokens() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.tokens...)
}

// Len returns the number of registered tokens.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tokens)
}
