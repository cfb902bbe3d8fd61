package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rs/zerolog"

	"github.com/kraimerman/groupsharelinksQA/internal/model"
	"github.com/kraimerman/groupsharelinksQA/internal/state"
)

func TestCreateGroup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	g, err := f.eng.CreateGroup(ctx, "  reading club  ")
	require.NoError(t, err)
	assert.Equal(t, "reading club", g.Name)
	assert.Equal(t, ownerEmail, g.CreatedBy)
	assert.Equal(t, []string{ownerEmail}, g.MemberEmails)
	assert.NotEmpty(t, g.Avatar)
	assert.NotEmpty(t, g.ID)

	snap := f.state.Snapshot()
	assert.Equal(t, g.ID, snap.ActiveGroupID, "new group becomes the active selection")
	require.Len(t, snap.Groups, 1)
	assert.True(t, snap.Groups[0].HasMember(ownerEmail), "owner always in member set")

	remote := f.remoteGroup(t, g.ID)
	assert.Equal(t, g.MemberEmails, remote.MemberEmails)
}

func TestCreateGroupUnauthenticated(t *testing.T) {
	f := newFixture(t)
	f.sess.SignOut()

	_, err := f.eng.CreateGroup(context.Background(), "nope")
	assert.ErrorIs(t, err, model.ErrUnauthenticated)
	assert.ErrorIs(t, f.state.Snapshot().Err, model.ErrUnauthenticated, "failure lands in the error slot")
}

func TestRenameGroup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := f.createGroup(t, "old", memberEmail)

	// Same trimmed name is a no-op, not an error.
	require.NoError(t, f.eng.RenameGroup(ctx, g.ID, "  old  "))
	assert.Equal(t, "old", f.remoteGroup(t, g.ID).Name)

	require.NoError(t, f.eng.RenameGroup(ctx, g.ID, "new"))
	assert.Equal(t, "new", f.remoteGroup(t, g.ID).Name)
	assert.Equal(t, "new", f.state.Group(g.ID).Name)
	assert.Equal(t, g.Avatar, f.remoteGroup(t, g.ID).Avatar, "avatar not regenerated on rename")

	// Non-owner may not rename.
	f.signInAs(t, memberEmail)
	err := f.eng.RenameGroup(ctx, g.ID, "hijacked")
	assert.ErrorIs(t, err, model.ErrForbidden)
	assert.Equal(t, "new", f.remoteGroup(t, g.ID).Name)
}

func TestAddMember(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := f.createGroup(t, "g")

	require.NoError(t, f.eng.AddMember(ctx, g.ID, memberEmail))
	assert.True(t, f.remoteGroup(t, g.ID).HasMember(memberEmail))
	assert.True(t, f.state.Group(g.ID).HasMember(memberEmail))

	err := f.eng.AddMember(ctx, g.ID, "ghost@x.com")
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.False(t, f.remoteGroup(t, g.ID).HasMember("ghost@x.com"))
}

func TestAddMembersFiltersMalformed(t *testing.T) {
	f := newFixture(t)
	g := f.createGroup(t, "g")

	added, err := f.eng.AddMembers(context.Background(), g.ID, []string{"not-an-email", memberEmail})
	require.NoError(t, err, "malformed entries are dropped, not fatal")
	assert.Equal(t, []string{memberEmail}, added)
}

func TestAddMembersNoValidInput(t *testing.T) {
	f := newFixture(t)
	g := f.createGroup(t, "g")

	_, err := f.eng.AddMembers(context.Background(), g.ID, []string{"bad", ""})
	assert.ErrorIs(t, err, model.ErrNoValidInput)
}

func TestAddMembersAllOrNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := f.createGroup(t, "g")

	before := f.remoteGroup(t, g.ID).MemberEmails
	_, err := f.eng.AddMembers(ctx, g.ID, []string{memberEmail, "ghost@x.com", "phantom@x.com"})
	require.ErrorIs(t, err, model.ErrNotFound)
	assert.Contains(t, err.Error(), "ghost@x.com")
	assert.Contains(t, err.Error(), "phantom@x.com")
	assert.Equal(t, before, f.remoteGroup(t, g.ID).MemberEmails,
		"one missing user aborts the whole batch")
}

func TestAddMembersAllAlreadyMembers(t *testing.T) {
	f := newFixture(t)
	g := f.createGroup(t, "g", memberEmail)

	_, err := f.eng.AddMembers(context.Background(), g.ID, []string{memberEmail, ownerEmail})
	assert.ErrorIs(t, err, model.ErrAllAlreadyMembers)
}

func TestAddMembersSubset(t *testing.T) {
	f := newFixture(t)
	g := f.createGroup(t, "g", memberEmail)

	added, err := f.eng.AddMembers(context.Background(), g.ID, []string{memberEmail, otherEmail})
	require.NoError(t, err)
	assert.Equal(t, []string{otherEmail}, added, "only the subset not already present is added")
	assert.ElementsMatch(t, []string{ownerEmail, memberEmail, otherEmail},
		f.remoteGroup(t, g.ID).MemberEmails)
}

func TestRemoveMember(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := f.createGroup(t, "g", memberEmail)

	require.NoError(t, f.eng.RemoveMember(ctx, g.ID, memberEmail))
	assert.False(t, f.remoteGroup(t, g.ID).HasMember(memberEmail))
	assert.False(t, f.state.Group(g.ID).HasMember(memberEmail))
}

func TestRemoveMemberSelfRemoval(t *testing.T) {
	f := newFixture(t)
	g := f.createGroup(t, "g", memberEmail)

	err := f.eng.RemoveMember(context.Background(), g.ID, ownerEmail)
	assert.ErrorIs(t, err, model.ErrSelfRemoval)
	assert.ElementsMatch(t, []string{ownerEmail, memberEmail},
		f.remoteGroup(t, g.ID).MemberEmails, "member set unchanged")
}

func TestRemoveMemberForbidden(t *testing.T) {
	f := newFixture(t)
	g := f.createGroup(t, "g", memberEmail)

	f.signInAs(t, memberEmail)
	err := f.eng.RemoveMember(context.Background(), g.ID, ownerEmail)
	assert.ErrorIs(t, err, model.ErrForbidden)
}

func TestSearchUsers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.Nil(t, f.eng.SearchUsers(ctx, " a "), "terms shorter than two chars return nothing")

	res := f.eng.SearchUsers(ctx, "b@")
	require.Len(t, res, 1)
	assert.Equal(t, memberEmail, res[0].Email)

	res = f.eng.SearchUsers(ctx, "al")
	require.Len(t, res, 1)
	assert.Equal(t, "alice", res[0].Nickname)

	// A user matched by both prefix queries appears once, first hit wins.
	require.NoError(t, f.store.Users().Put(ctx,
		&model.UserProfile{Email: "dup@x.com", Nickname: "dup@x.com", CreatedAt: 4}))
	res = f.eng.SearchUsers(ctx, "dup")
	require.Len(t, res, 1)
	assert.Equal(t, "dup@x.com", res[0].Email)
}

func TestSearchUsersDegradesToEmpty(t *testing.T) {
	f := newFixture(t)
	broken := New(searchFailStore{f.store}, f.sess, state.New(), zerolog.Nop())

	res := broken.SearchUsers(context.Background(), "alice")
	assert.Nil(t, res, "adapter failure degrades to empty, never an error")
}
