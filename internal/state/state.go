// Package state holds the process-wide reactive store the UI layer reads
// from. Every mutation replaces slices with fresh values (copy-on-write)
// so a reader never observes a torn intermediate state; subscribers are
// notified synchronously after each update. The store is created at
// process start and lives for the whole process.
package state

import (
	"sync"

	"github.com/kraimerman/groupsharelinksQA/internal/model"
)

// Snapshot is an immutable view of the client state.
type Snapshot struct {
	Principal     string
	Profile       *model.UserProfile
	Groups        []*model.Group
	ActiveGroupID string
	Loading       bool
	// Err is the single shared error slot, last-error-wins. It is display
	// state for the UI, not an error log.
	Err error
}

type Store struct {
	mu        sync.Mutex
	snap      Snapshot
	nextSubID int
	subs      map[int]func(Snapshot)
}

// New returns a store in the initial loading state.
func New() *Store {
	return &Store{
		snap: Snapshot{Loading: true},
		subs: make(map[int]func(Snapshot)),
	}
}

// Snapshot returns the current state. Groups are deep-copied so callers
// can never mutate the store's view.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneSnapshot(s.snap)
}

// Update applies fn to a copy of the current snapshot, installs the result
// and notifies every subscriber with it.
func (s *Store) Update(fn func(*Snapshot)) {
	s.mu.Lock()
	next := cloneSnapshot(s.snap)
	fn(&next)
	s.snap = next
	fns := make([]func(Snapshot), 0, len(s.subs))
	for _, sub := range s.subs {
		fns = append(fns, sub)
	}
	s.mu.Unlock()

	for _, sub := range fns {
		sub(cloneSnapshot(next))
	}
}

// Subscribe registers fn for every subsequent update. The returned
// function unsubscribes.
func (s *Store) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
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

// Group returns the cached group by id, or nil.
func (s *Store) Group(id string) *model.Group {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range s.snap.Groups {
		if g.ID == id {
			return g.Clone()
		}
	}
	return nil
}

func cloneSnapshot(in Snapshot) Snapshot {
	out := in
	if in.Profile != nil {
		p := *in.Profile
		out.Profile = &p
	}
	if in.Groups != nil {
		out.Groups = make([]*model.Group, len(in.Groups))
		for i, g := range in.Groups {
			out.Groups[i] = g.Clone()
		}
	}
	return out
}
