// Package engine implements the client-side synchronization core: every
// mutation performs fetch-current, compute-next, validate, write-remote,
// then mirrors the identical transformation into the reactive store. The
// remote write always precedes the local mirror, so a crash mid-operation
// can never show local state the remote never had.
//
// The read-modify-write sequences are not wrapped in a store-level
// transaction; two clients mutating the same link concurrently can lose
// one update when the second whole-array write lands. That is an accepted
// trade-off for a low-contention collaborative tool (the redis backend
// narrows the window with an adapter-level compare-and-swap).
package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kraimerman/groupsharelinksQA/internal/docstore"
	"github.com/kraimerman/groupsharelinksQA/internal/model"
	"github.com/kraimerman/groupsharelinksQA/internal/session"
	"github.com/kraimerman/groupsharelinksQA/internal/state"
)

type Engine struct {
	store   docstore.Store
	session session.Accessor
	state   *state.Store
	log     zerolog.Logger

	now   func() int64
	newID func() string
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock overrides the millisecond clock (tests).
func WithClock(now func() int64) Option { return func(e *Engine) { e.now = now } }

// WithIDSource overrides client-side id generation (tests).
func WithIDSource(newID func() string) Option { return func(e *Engine) { e.newID = newID } }

// New binds the engine to its collaborators.
func New(store docstore.Store, sess session.Accessor, st *state.Store, log zerolog.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:   store,
		session: sess,
		state:   st,
		log:     log,
		now:     func() int64 { return time.Now().UnixMilli() },
		newID:   func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// State exposes the reactive store for read accessors and subscriptions.
func (e *Engine) State() *state.Store { return e.state }

// principal returns the current principal or ErrUnauthenticated.
func (e *Engine) principal() (string, error) {
	email, ok := e.session.Principal()
	if !ok || email == "" {
		return "", model.ErrUnauthenticated
	}
	return email, nil
}

// wrapStore classifies an adapter error: taxonomy sentinels pass through,
// anything else becomes an AdapterFailure.
func wrapStore(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, model.ErrNotFound) {
		return err
	}
	return fmt.Errorf("%w: %v", model.ErrStore, err)
}

// fail logs the failure, records it in the shared error slot
// (last-error-wins) and returns it. No partial remote write has happened
// by the time fail is called.
func (e *Engine) fail(op string, err error) error {
	e.log.Error().Err(err).Str("op", op).Msg("operation failed")
	opFailures.WithLabelValues(op).Inc()
	e.state.Update(func(s *state.Snapshot) { s.Err = err })
	return err
}

// done counts a completed operation. The success mirror that the caller
// already applied is responsible for clearing the error slot.
func (e *Engine) done(op string) {
	opTotal.WithLabelValues(op).Inc()
}
