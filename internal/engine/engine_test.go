package engine

import (
	"context"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/kraimerman/groupsharelinksQA/internal/docstore"
	"github.com/kraimerman/groupsharelinksQA/internal/docstore/memstore"
	"github.com/kraimerman/groupsharelinksQA/internal/model"
	"github.com/kraimerman/groupsharelinksQA/internal/session"
	"github.com/kraimerman/groupsharelinksQA/internal/state"
)

const (
	ownerEmail  = "a@x.com"
	memberEmail = "b@x.com"
	otherEmail  = "c@x.com"
)

type fixture struct {
	eng   *Engine
	store *memstore.Store
	sess  *session.Static
	state *state.Store
}

// newFixture seeds three profiles, signs in the owner and hydrates.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	ms := memstore.New()
	for i, u := range []*model.UserProfile{
		{Email: ownerEmail, Nickname: "alice", CreatedAt: 1},
		{Email: memberEmail, Nickname: "bob", CreatedAt: 2},
		{Email: otherEmail, Nickname: "carol", CreatedAt: 3},
	} {
		require.NoError(t, ms.Users().Put(ctx, u), "seed user %d", i)
	}

	sess := session.NewStatic()
	sess.SignIn(ownerEmail)

	st := state.New()
	var tick int64 = 1700000000000
	var seq int
	eng := New(ms, sess, st, zerolog.Nop(),
		WithClock(func() int64 { tick++; return tick }),
		WithIDSource(func() string { seq++; return fmt.Sprintf("id-%d", seq) }),
	)
	require.NoError(t, eng.Hydrate(ctx))
	return &fixture{eng: eng, store: ms, sess: sess, state: st}
}

// createGroup is a helper that creates a group with the given extra members.
func (f *fixture) createGroup(t *testing.T, name string, extra ...string) *model.Group {
	t.Helper()
	ctx := context.Background()
	g, err := f.eng.CreateGroup(ctx, name)
	require.NoError(t, err)
	if len(extra) > 0 {
		_, err = f.eng.AddMembers(ctx, g.ID, extra)
		require.NoError(t, err)
	}
	return g
}

// signInAs switches identity and re-hydrates.
func (f *fixture) signInAs(t *testing.T, email string) {
	t.Helper()
	f.sess.SignIn(email)
	require.NoError(t, f.eng.Hydrate(context.Background()))
}

// remoteGroup reads the group straight from the store, bypassing the cache.
func (f *fixture) remoteGroup(t *testing.T, id string) *model.Group {
	t.Helper()
	g, err := f.store.Groups().Get(context.Background(), id)
	require.NoError(t, err)
	return g
}

// decorators for fault injection

type failingUsers struct {
	docstore.Users
}

func (f failingUsers) SearchPrefix(ctx context.Context, field docstore.Field, prefix string, limit int) ([]*model.UserProfile, error) {
	return nil, fmt.Errorf("adapter down")
}

type searchFailStore struct {
	docstore.Store
}

func (s searchFailStore) Users() docstore.Users { return failingUsers{s.Store.Users()} }

type countingGroups struct {
	docstore.Groups
	setLinksCalls *int
}

func (c countingGroups) SetLinks(ctx context.Context, id string, links []model.Link) error {
	*c.setLinksCalls++
	return c.Groups.SetLinks(ctx, id, links)
}

type countingStore struct {
	docstore.Store
	setLinksCalls int
}

func (s *countingStore) Groups() docstore.Groups {
	return countingGroups{s.Store.Groups(), &s.setLinksCalls}
}
