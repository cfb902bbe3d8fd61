package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/kraimerman/groupsharelinksQA/internal/model"
	"github.com/kraimerman/groupsharelinksQA/internal/state"
	"github.com/kraimerman/groupsharelinksQA/internal/validate"
)

// VoteDirection selects which vote set ToggleVote operates on.
type VoteDirection string

const (
	VoteUp   VoteDirection = "up"
	VoteDown VoteDirection = "down"
)

func (d VoteDirection) opposite() VoteDirection {
	if d == VoteUp {
		return VoteDown
	}
	return VoteUp
}

// LinkUpdate is a partial field merge for UpdateLink. Only content fields
// are updatable; identity, votes and comments never change through this
// path.
type LinkUpdate struct {
	Title       *string
	URL         *string
	Description *string
}

// mutateLink is the shared write path for every link mutation: fetch the
// parent group fresh (never from cache, to shrink the lost-update window),
// locate the link by id, apply fn to a deep copy, rewrite the whole array
// remotely, then replay the same array onto the cached group. The fetched
// array is never mutated before the copy is taken, so a failing step can
// not leave a half-mutated document anywhere.
func (e *Engine) mutateLink(ctx context.Context, op, groupID, linkID string, fn func(l model.Link) (model.Link, error)) error {
	g, err := e.store.Groups().Get(ctx, groupID)
	if err != nil {
		return e.fail(op, wrapStore(err))
	}

	idx := -1
	for i := range g.Links {
		if g.Links[i].ID == linkID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return e.fail(op, fmt.Errorf("link %s: %w", linkID, model.ErrNotFound))
	}

	next, err := fn(g.Links[idx].Clone())
	if err != nil {
		return e.fail(op, err)
	}

	links := model.CloneLinks(g.Links)
	links[idx] = next

	if err := e.store.Groups().SetLinks(ctx, groupID, links); err != nil {
		return e.fail(op, wrapStore(err))
	}

	e.mirrorLinks(groupID, links)
	e.done(op)
	return nil
}

// ShareLink creates a link in the group, authored by the current
// principal. The author's email and nickname are snapshotted now, never
// looked up later. The link is appended via the store's array-union
// primitive rather than a whole-array rewrite.
func (e *Engine) ShareLink(ctx context.Context, groupID, linkURL, title, description string) (*model.Link, error) {
	const op = "share_link"
	author, err := e.principal()
	if err != nil {
		return nil, e.fail(op, err)
	}
	snap := e.state.Snapshot()
	if snap.Profile == nil {
		return nil, e.fail(op, fmt.Errorf("no profile for %s: %w", author, model.ErrUnauthenticated))
	}

	link := model.Link{
		ID:             e.newID(),
		URL:            strings.TrimSpace(linkURL),
		Title:          strings.TrimSpace(title),
		Description:    strings.TrimSpace(description),
		Author:         author,
		AuthorNickname: snap.Profile.Nickname,
		Timestamp:      e.now(),
		Votes:          model.VoteRecord{Up: []string{}, Down: []string{}},
		Comments:       []model.Comment{},
	}
	if !validate.Link(&link) {
		return nil, e.fail(op, fmt.Errorf("link %q: %w", title, model.ErrInvalidRecord))
	}

	if err := e.store.Groups().AppendLink(ctx, groupID, link); err != nil {
		return nil, e.fail(op, wrapStore(err))
	}

	e.state.Update(func(s *state.Snapshot) {
		for _, cached := range s.Groups {
			if cached.ID == groupID {
				cached.Links = append(cached.Links, link.Clone())
			}
		}
		s.Err = nil
	})
	e.log.Info().Str("group", groupID).Str("link", link.ID).Msg("link shared")
	e.done(op)
	return &link, nil
}

// UpdateLink merges upd into the link. Author-only: nobody else may edit a
// link, including the group owner. The merged record is re-validated
// before any write.
func (e *Engine) UpdateLink(ctx context.Context, groupID, linkID string, upd LinkUpdate) error {
	const op = "update_link"
	caller, err := e.principal()
	if err != nil {
		return e.fail(op, err)
	}

	return e.mutateLink(ctx, op, groupID, linkID, func(l model.Link) (model.Link, error) {
		if l.Author != caller {
			return l, fmt.Errorf("only the link author can edit it: %w", model.ErrForbidden)
		}
		if upd.Title != nil {
			l.Title = strings.TrimSpace(*upd.Title)
		}
		if upd.URL != nil {
			l.URL = strings.TrimSpace(*upd.URL)
		}
		if upd.Description != nil {
			l.Description = strings.TrimSpace(*upd.Description)
		}
		if !validate.Link(&l) {
			return l, fmt.Errorf("link %s: %w", linkID, model.ErrInvalidRecord)
		}
		return l, nil
	})
}

// ToggleVote casts, switches or retracts the caller's vote. Directions are
// mutually exclusive: the caller is first removed from the opposite set,
// then membership in the requested set is toggled. The caller's net state
// is always exactly one of none, up or down; this procedure is the only
// enforcement of that invariant.
func (e *Engine) ToggleVote(ctx context.Context, groupID, linkID string, dir VoteDirection) error {
	const op = "toggle_vote"
	caller, err := e.principal()
	if err != nil {
		return e.fail(op, err)
	}
	if dir != VoteUp && dir != VoteDown {
		return e.fail(op, fmt.Errorf("vote direction %q: %w", dir, model.ErrInvalidRecord))
	}

	return e.mutateLink(ctx, op, groupID, linkID, func(l model.Link) (model.Link, error) {
		opp := voteSet(&l, dir.opposite())
		*opp = remove(*opp, caller)

		set := voteSet(&l, dir)
		if contains(*set, caller) {
			*set = remove(*set, caller)
		} else {
			*set = append(*set, caller)
		}
		return l, nil
	})
}

// AddComment appends an immutable comment authored by the current
// principal, with the nickname snapshotted at creation. Blank content is a
// precondition violation rejected before any I/O.
func (e *Engine) AddComment(ctx context.Context, groupID, linkID, content string) error {
	const op = "add_comment"
	author, err := e.principal()
	if err != nil {
		return e.fail(op, err)
	}
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return e.fail(op, fmt.Errorf("empty comment: %w", model.ErrInvalidRecord))
	}
	snap := e.state.Snapshot()
	if snap.Profile == nil {
		return e.fail(op, fmt.Errorf("no profile for %s: %w", author, model.ErrUnauthenticated))
	}

	comment := model.Comment{
		ID:             e.newID(),
		Content:        trimmed,
		Author:         author,
		AuthorNickname: snap.Profile.Nickname,
		Timestamp:      e.now(),
	}

	return e.mutateLink(ctx, op, groupID, linkID, func(l model.Link) (model.Link, error) {
		l.Comments = append(l.Comments, comment)
		return l, nil
	})
}

func (e *Engine) mirrorLinks(groupID string, links []model.Link) {
	e.state.Update(func(s *state.Snapshot) {
		for _, cached := range s.Groups {
			if cached.ID == groupID {
				cached.Links = model.CloneLinks(links)
			}
		}
		s.Err = nil
	})
}

func voteSet(l *model.Link, dir VoteDirection) *[]string {
	if dir == VoteUp {
		return &l.Votes.Up
	}
	return &l.Votes.Down
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func remove(set []string, v string) []string {
	out := set[:0]
	for _, s := range set {
		if s != v {
			out = append(out, s)
		}
	}
	return out
}
