package engine

import (
	"context"
	"errors"

	"github.com/kraimerman/groupsharelinksQA/internal/model"
	"github.com/kraimerman/groupsharelinksQA/internal/state"
)

// Start wires the engine to principal changes and hydrates for the current
// principal, if any. The returned function detaches the subscription.
func (e *Engine) Start(ctx context.Context) func() {
	unsub := e.session.OnChange(func(email string, ok bool) {
		if !ok {
			e.clear()
			return
		}
		if err := e.Hydrate(ctx); err != nil {
			e.log.Error().Err(err).Str("principal", email).Msg("hydration failed")
		}
	})
	if _, ok := e.session.Principal(); ok {
		if err := e.Hydrate(ctx); err != nil {
			e.log.Error().Err(err).Msg("initial hydration failed")
		}
	} else {
		e.clear()
	}
	return unsub
}

// Hydrate loads the current principal's profile and group list from the
// remote store into the reactive store. A missing profile document is
// tolerated (nil profile, not an error); a missing principal is not.
func (e *Engine) Hydrate(ctx context.Context) error {
	const op = "hydrate"
	email, err := e.principal()
	if err != nil {
		return e.fail(op, err)
	}

	profile, err := e.store.Users().Get(ctx, email)
	if err != nil {
		if !errors.Is(err, model.ErrNotFound) {
			return e.fail(op, wrapStore(err))
		}
		profile = nil
	}

	groups, err := e.store.Groups().ListByMember(ctx, email)
	if err != nil {
		return e.fail(op, wrapStore(err))
	}

	e.state.Update(func(s *state.Snapshot) {
		s.Principal = email
		s.Profile = profile
		s.Groups = groups
		s.Loading = false
		s.Err = nil
	})
	e.log.Info().Str("principal", email).Int("groups", len(groups)).Msg("hydrated")
	e.done(op)
	return nil
}

// clear resets the reactive store on logout or absent session. There are
// no queued writes to drain; every write here is request/response.
func (e *Engine) clear() {
	e.state.Update(func(s *state.Snapshot) {
		s.Principal = ""
		s.Profile = nil
		s.Groups = nil
		s.ActiveGroupID = ""
		s.Loading = false
		s.Err = nil
	})
}

// SetActiveGroup records the active selection; purely local state.
func (e *Engine) SetActiveGroup(groupID string) {
	e.state.Update(func(s *state.Snapshot) { s.ActiveGroupID = groupID })
}
