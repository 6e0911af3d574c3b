// Package user tracks the logged-in usernames of the process.
package user

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ryanbastic/go-shticell/internal/sheeterr"
)

// Session is one logged-in user.
type Session struct {
	Username string    `json:"username"`
	Since    time.Time `json:"since"`
}

// Registry is the set of logged-in users. Add is an atomic
// check-and-insert, so two concurrent logins of the same name cannot both
// succeed.
type Registry struct {
	mu    sync.RWMutex
	users map[string]Session
	now   func() time.Time
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{users: make(map[string]Session), now: time.Now}
}

// Add logs username in. Names are compared exactly after trimming spaces.
func (r *Registry) Add(username string) (Session, error) {
	name := strings.TrimSpace(username)
	if name == "" {
		return Session{}, sheeterr.New(sheeterr.InvalidDefinition, "username must not be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[name]; ok {
		return Session{}, sheeterr.New(sheeterr.UserAlreadyExists, "user %q is already logged in", name)
	}
	s := Session{Username: name, Since: r.now().UTC()}
	r.users[name] = s
	return s, nil
}

// Remove logs username out.
func (r *Registry) Remove(username string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[username]; !ok {
		return sheeterr.New(sheeterr.UserNotFound, "user %q is not logged in", username)
	}
	delete(r.users, username)
	return nil
}

// Exists reports whether username is logged in.
func (r *Registry) Exists(username string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.users[username]
	return ok
}

// Require returns NotLoggedIn unless username is logged in.
func (r *Registry) Require(username string) error {
	if username == "" || !r.Exists(username) {
		return sheeterr.New(sheeterr.NotLoggedIn, "user %q is not logged in", username)
	}
	return nil
}

// List returns every session sorted by username.
func (r *Registry) List() []Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Session, 0, len(r.users))
	for _, s := range r.users {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out
}

// Len is the number of logged-in users.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}
