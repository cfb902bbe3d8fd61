package engine

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/kraimerman/groupsharelinksQA/internal/docstore"
	"github.com/kraimerman/groupsharelinksQA/internal/model"
	"github.com/kraimerman/groupsharelinksQA/internal/state"
	"github.com/kraimerman/groupsharelinksQA/internal/validate"
)

// avatarURL derives the group avatar deterministically from the name at
// creation time. Renames do not regenerate it.
func avatarURL(name string) string {
	return "https://ui-avatars.com/api/?name=" + url.QueryEscape(name) + "&background=random"
}

// CreateGroup creates a group owned by the current principal, with the
// principal as sole member, and makes it the active selection.
func (e *Engine) CreateGroup(ctx context.Context, name string) (*model.Group, error) {
	const op = "create_group"
	owner, err := e.principal()
	if err != nil {
		return nil, e.fail(op, err)
	}

	trimmed := strings.TrimSpace(name)
	g := &model.Group{
		Name:         trimmed,
		Avatar:       avatarURL(trimmed),
		CreatedBy:    owner,
		MemberEmails: []string{owner},
		Links:        []model.Link{},
		CreatedAt:    e.now(),
	}
	if !validate.Group(g) {
		return nil, e.fail(op, fmt.Errorf("group %q: %w", name, model.ErrInvalidRecord))
	}

	id, err := e.store.Groups().Insert(ctx, g)
	if err != nil {
		return nil, e.fail(op, wrapStore(err))
	}
	g.ID = id

	e.state.Update(func(s *state.Snapshot) {
		s.Groups = append(s.Groups, g)
		s.ActiveGroupID = id
		s.Err = nil
	})
	e.log.Info().Str("group", id).Str("owner", owner).Msg("group created")
	e.done(op)
	return g.Clone(), nil
}

// RenameGroup changes the group name. Owner-only; renaming to the current
// name is a no-op, not an error. The avatar is left as derived at creation.
func (e *Engine) RenameGroup(ctx context.Context, groupID, newName string) error {
	const op = "rename_group"
	caller, err := e.principal()
	if err != nil {
		return e.fail(op, err)
	}

	g, err := e.store.Groups().Get(ctx, groupID)
	if err != nil {
		return e.fail(op, wrapStore(err))
	}
	if g.CreatedBy != caller {
		return e.fail(op, fmt.Errorf("only the owner can rename a group: %w", model.ErrForbidden))
	}

	trimmed := strings.TrimSpace(newName)
	if trimmed == g.Name {
		return nil
	}
	if trimmed == "" {
		return e.fail(op, fmt.Errorf("group name empty: %w", model.ErrInvalidRecord))
	}

	if err := e.store.Groups().SetName(ctx, groupID, trimmed); err != nil {
		return e.fail(op, wrapStore(err))
	}

	e.state.Update(func(s *state.Snapshot) {
		for _, cached := range s.Groups {
			if cached.ID == groupID {
				cached.Name = trimmed
			}
		}
		s.Err = nil
	})
	e.done(op)
	return nil
}

// AddMember adds one user to the group's member set after verifying the
// user exists.
func (e *Engine) AddMember(ctx context.Context, groupID, email string) error {
	const op = "add_member"
	if _, err := e.principal(); err != nil {
		return e.fail(op, err)
	}

	if _, err := e.store.Users().Get(ctx, email); err != nil {
		return e.fail(op, wrapStore(err))
	}
	if err := e.store.Groups().AddMembers(ctx, groupID, []string{email}); err != nil {
		return e.fail(op, wrapStore(err))
	}

	e.mirrorAddMembers(groupID, []string{email})
	e.log.Info().Str("group", groupID).Str("member", email).Msg("member added")
	e.done(op)
	return nil
}

// AddMembers is the bulk variant: malformed entries are silently dropped,
// existence of every remaining candidate is verified concurrently, and the
// batch is all-or-nothing — one missing user aborts the whole add. Returns
// the members actually added.
func (e *Engine) AddMembers(ctx context.Context, groupID string, emails []string) ([]string, error) {
	const op = "add_members"
	if _, err := e.principal(); err != nil {
		return nil, e.fail(op, err)
	}

	var valid []string
	for _, email := range emails {
		if email != "" && strings.Contains(email, "@") {
			valid = append(valid, email)
		}
	}
	if len(valid) == 0 {
		return nil, e.fail(op, fmt.Errorf("no valid email addresses provided: %w", model.ErrNoValidInput))
	}

	exists := make([]bool, len(valid))
	eg, checkCtx := errgroup.WithContext(ctx)
	for i, email := range valid {
		eg.Go(func() error {
			_, err := e.store.Users().Get(checkCtx, email)
			if errors.Is(err, model.ErrNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			exists[i] = true
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, e.fail(op, wrapStore(err))
	}

	var missing []string
	for i, email := range valid {
		if !exists[i] {
			missing = append(missing, email)
		}
	}
	if len(missing) > 0 {
		return nil, e.fail(op, fmt.Errorf("users not found: %s: %w", strings.Join(missing, ", "), model.ErrNotFound))
	}

	g, err := e.store.Groups().Get(ctx, groupID)
	if err != nil {
		return nil, e.fail(op, wrapStore(err))
	}
	var newMembers []string
	for _, email := range valid {
		if !g.HasMember(email) {
			newMembers = append(newMembers, email)
		}
	}
	if len(newMembers) == 0 {
		return nil, e.fail(op, model.ErrAllAlreadyMembers)
	}

	if err := e.store.Groups().AddMembers(ctx, groupID, newMembers); err != nil {
		return nil, e.fail(op, wrapStore(err))
	}

	e.mirrorAddMembers(groupID, newMembers)
	e.log.Info().Str("group", groupID).Int("added", len(newMembers)).Msg("members added")
	e.done(op)
	return newMembers, nil
}

// RemoveMember removes a user from the member set. Owner-only, and the
// owner can never remove themself — leaving a group does not exist in this
// design, so the member set never drops below one.
func (e *Engine) RemoveMember(ctx context.Context, groupID, email string) error {
	const op = "remove_member"
	caller, err := e.principal()
	if err != nil {
		return e.fail(op, err)
	}

	g, err := e.store.Groups().Get(ctx, groupID)
	if err != nil {
		return e.fail(op, wrapStore(err))
	}
	if g.CreatedBy != caller {
		return e.fail(op, fmt.Errorf("only the owner can remove members: %w", model.ErrForbidden))
	}
	if email == g.CreatedBy {
		return e.fail(op, model.ErrSelfRemoval)
	}

	if err := e.store.Groups().RemoveMember(ctx, groupID, email); err != nil {
		return e.fail(op, wrapStore(err))
	}

	e.state.Update(func(s *state.Snapshot) {
		for _, cached := range s.Groups {
			if cached.ID != groupID {
				continue
			}
			kept := cached.MemberEmails[:0]
			for _, m := range cached.MemberEmails {
				if m != email {
					kept = append(kept, m)
				}
			}
			cached.MemberEmails = kept
		}
		s.Err = nil
	})
	e.log.Info().Str("group", groupID).Str("member", email).Msg("member removed")
	e.done(op)
	return nil
}

// searchLimit caps each prefix query; search populates a picker, nothing
// more.
const searchLimit = 20

// SearchUsers looks up profiles by email or nickname prefix. Terms shorter
// than two characters return nothing (avoids broad scans), and any adapter
// failure degrades to an empty result: search is advisory and never
// surfaces errors.
func (e *Engine) SearchUsers(ctx context.Context, term string) []*model.UserProfile {
	const op = "search_users"
	trimmed := strings.TrimSpace(term)
	if len(trimmed) < 2 {
		return nil
	}

	byEmail, err := e.store.Users().SearchPrefix(ctx, docstore.FieldEmail, trimmed, searchLimit)
	if err != nil {
		e.log.Warn().Err(err).Str("term", trimmed).Msg("email prefix search failed")
		return nil
	}
	byNick, err := e.store.Users().SearchPrefix(ctx, docstore.FieldNickname, trimmed, searchLimit)
	if err != nil {
		e.log.Warn().Err(err).Str("term", trimmed).Msg("nickname prefix search failed")
		return nil
	}

	seen := make(map[string]bool, len(byEmail)+len(byNick))
	var out []*model.UserProfile
	for _, p := range append(byEmail, byNick...) {
		if !seen[p.Email] {
			seen[p.Email] = true
			out = append(out, p)
		}
	}
	e.done(op)
	return out
}

func (e *Engine) mirrorAddMembers(groupID string, emails []string) {
	e.state.Update(func(s *state.Snapshot) {
		for _, cached := range s.Groups {
			if cached.ID != groupID {
				continue
			}
			for _, email := range emails {
				if !cached.HasMember(email) {
					cached.MemberEmails = append(cached.MemberEmails, email)
				}
			}
		}
		s.Err = nil
	})
}
