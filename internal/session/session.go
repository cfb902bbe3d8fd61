// Package session supplies the current principal's identity. The engine
// consumes it as an opaque accessor; sign-in, sign-up and session lifecycle
// belong to the authentication provider, not this core.
package session

import "sync"

// Accessor exposes the authenticated principal, if any, and notifies on
// changes (login, logout, identity switch).
type Accessor interface {
	// Principal returns the principal's email and whether one is present.
	Principal() (string, bool)
	// OnChange registers fn to run on every principal change. The returned
	// function unsubscribes.
	OnChange(fn func(email string, ok bool)) (unsubscribe func())
}

// Static is an Accessor with an explicitly settable principal, used by the
// CLI (identity from configuration) and by tests.
type Static struct {
	mu        sync.Mutex
	email     string
	present   bool
	nextSubID int
	subs      map[int]func(string, bool)
}

// NewStatic returns an accessor with no principal set.
func NewStatic() *Static {
	return &Static{subs: make(map[int]func(string, bool))}
}

func (s *Static) Principal() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.email, s.present
}

func (s *Static) OnChange(fn func(string, bool)) func() {
	s.mu.Lock()
	s.nextSubID++
	id := s.nextSubID
	s.subs[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// SignIn sets the principal and notifies subscribers.
func (s *Static) SignIn(email string) { s.set(email, true) }

// SignOut clears the principal and notifies subscribers.
func (s *Static) SignOut() { s.set("", false) }

func (s *Static) set(email string, present bool) {
	s.mu.Lock()
	s.email = email
	s.present = present
	fns := make([]func(string, bool), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(email, present)
	}
}
