package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraimerman/groupsharelinksQA/internal/model"
)

func str(s string) *string { return &s }

func TestShareLinkRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := f.createGroup(t, "g")

	l, err := f.eng.ShareLink(ctx, g.ID, "  https://go.dev  ", "  Go  ", "  the language  ")
	require.NoError(t, err)

	remote := f.remoteGroup(t, g.ID)
	require.Len(t, remote.Links, 1)
	got := remote.Links[0]
	assert.Equal(t, l.ID, got.ID)
	assert.Equal(t, "https://go.dev", got.URL)
	assert.Equal(t, "Go", got.Title)
	assert.Equal(t, "the language", got.Description)
	assert.Equal(t, ownerEmail, got.Author)
	assert.Equal(t, "alice", got.AuthorNickname, "nickname snapshotted at creation")
	assert.NotZero(t, got.Timestamp)
	assert.Empty(t, got.Votes.Up)
	assert.Empty(t, got.Votes.Down)
	assert.Empty(t, got.Comments)

	cached := f.state.Group(g.ID)
	require.Len(t, cached.Links, 1)
	assert.Equal(t, got.ID, cached.Links[0].ID)
}

func TestShareLinkRequiresProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := f.createGroup(t, "g")

	// carol has a session but no hydrated profile.
	f.sess.SignIn("nobody@x.com")
	require.NoError(t, f.eng.Hydrate(ctx))
	_, err := f.eng.ShareLink(ctx, g.ID, "https://go.dev", "Go", "")
	assert.ErrorIs(t, err, model.ErrUnauthenticated)
}

func TestShareLinkInvalid(t *testing.T) {
	f := newFixture(t)
	g := f.createGroup(t, "g")

	_, err := f.eng.ShareLink(context.Background(), g.ID, "   ", "Go", "")
	assert.ErrorIs(t, err, model.ErrInvalidRecord)
	assert.Empty(t, f.remoteGroup(t, g.ID).Links, "invalid link never reaches the store")
}

func TestUpdateLink(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := f.createGroup(t, "g", memberEmail)
	l, err := f.eng.ShareLink(ctx, g.ID, "https://go.dev", "Go", "")
	require.NoError(t, err)

	require.NoError(t, f.eng.UpdateLink(ctx, g.ID, l.ID, LinkUpdate{
		Title:       str("Go language"),
		Description: str("updated"),
	}))

	got := f.remoteGroup(t, g.ID).Links[0]
	assert.Equal(t, "Go language", got.Title)
	assert.Equal(t, "updated", got.Description)
	assert.Equal(t, "https://go.dev", got.URL, "unset fields untouched")
	assert.Equal(t, l.Timestamp, got.Timestamp, "identity fields untouched")
}

func TestUpdateLinkForbiddenForNonAuthor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := f.createGroup(t, "g", memberEmail)
	l, err := f.eng.ShareLink(ctx, g.ID, "https://go.dev", "Go", "")
	require.NoError(t, err)

	before := f.remoteGroup(t, g.ID)

	f.signInAs(t, memberEmail)
	err = f.eng.UpdateLink(ctx, g.ID, l.ID, LinkUpdate{Title: str("defaced")})
	require.ErrorIs(t, err, model.ErrForbidden)

	after := f.remoteGroup(t, g.ID)
	assert.Equal(t, before, after, "rejected update must not write anything")
}

func TestUpdateLinkInvalidMerge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := f.createGroup(t, "g")
	l, err := f.eng.ShareLink(ctx, g.ID, "https://go.dev", "Go", "")
	require.NoError(t, err)

	err = f.eng.UpdateLink(ctx, g.ID, l.ID, LinkUpdate{URL: str("   ")})
	require.ErrorIs(t, err, model.ErrInvalidRecord)
	assert.Equal(t, "https://go.dev", f.remoteGroup(t, g.ID).Links[0].URL)
}

func TestUpdateLinkNotFound(t *testing.T) {
	f := newFixture(t)
	g := f.createGroup(t, "g")

	err := f.eng.UpdateLink(context.Background(), g.ID, "no-such-link", LinkUpdate{Title: str("x")})
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestToggleVoteIsIdempotentToggle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := f.createGroup(t, "g", memberEmail)
	l, err := f.eng.ShareLink(ctx, g.ID, "https://go.dev", "Go", "")
	require.NoError(t, err)

	f.signInAs(t, memberEmail)

	// First down-vote records the voter.
	require.NoError(t, f.eng.ToggleVote(ctx, g.ID, l.ID, VoteDown))
	votes := f.remoteGroup(t, g.ID).Links[0].Votes
	assert.Equal(t, []string{memberEmail}, votes.Down)
	assert.Empty(t, votes.Up)

	// Second down-vote retracts it.
	require.NoError(t, f.eng.ToggleVote(ctx, g.ID, l.ID, VoteDown))
	votes = f.remoteGroup(t, g.ID).Links[0].Votes
	assert.Empty(t, votes.Down)
	assert.Empty(t, votes.Up)
}

func TestToggleVoteSwitchesDirection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := f.createGroup(t, "g", memberEmail)
	l, err := f.eng.ShareLink(ctx, g.ID, "https://go.dev", "Go", "")
	require.NoError(t, err)

	f.signInAs(t, memberEmail)
	require.NoError(t, f.eng.ToggleVote(ctx, g.ID, l.ID, VoteDown))
	require.NoError(t, f.eng.ToggleVote(ctx, g.ID, l.ID, VoteUp))

	votes := f.remoteGroup(t, g.ID).Links[0].Votes
	assert.Equal(t, []string{memberEmail}, votes.Up, "voter moved in one call")
	assert.Empty(t, votes.Down, "never in both sets")
}

func TestToggleVoteBadDirection(t *testing.T) {
	f := newFixture(t)
	g := f.createGroup(t, "g")
	l, err := f.eng.ShareLink(context.Background(), g.ID, "https://go.dev", "Go", "")
	require.NoError(t, err)

	err = f.eng.ToggleVote(context.Background(), g.ID, l.ID, VoteDirection("sideways"))
	assert.ErrorIs(t, err, model.ErrInvalidRecord)
}

func TestAddComment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := f.createGroup(t, "g", memberEmail)
	l, err := f.eng.ShareLink(ctx, g.ID, "https://go.dev", "Go", "")
	require.NoError(t, err)

	f.signInAs(t, memberEmail)
	require.NoError(t, f.eng.AddComment(ctx, g.ID, l.ID, "  nice find  "))

	comments := f.remoteGroup(t, g.ID).Links[0].Comments
	require.Len(t, comments, 1)
	assert.Equal(t, "nice find", comments[0].Content)
	assert.Equal(t, memberEmail, comments[0].Author)
	assert.Equal(t, "bob", comments[0].AuthorNickname)
	assert.NotEmpty(t, comments[0].ID)

	cached := f.state.Group(g.ID)
	require.Len(t, cached.Links[0].Comments, 1)
}

func TestAddCommentRejectsBlank(t *testing.T) {
	f := newFixture(t)
	g := f.createGroup(t, "g")
	l, err := f.eng.ShareLink(context.Background(), g.ID, "https://go.dev", "Go", "")
	require.NoError(t, err)

	err = f.eng.AddComment(context.Background(), g.ID, l.ID, "   ")
	assert.ErrorIs(t, err, model.ErrInvalidRecord)
	assert.Empty(t, f.remoteGroup(t, g.ID).Links[0].Comments)
}
