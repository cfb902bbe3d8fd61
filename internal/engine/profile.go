package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/kraimerman/groupsharelinksQA/internal/model"
	"github.com/kraimerman/groupsharelinksQA/internal/state"
)

// UpdateProfile renames the principal and fans the new nickname out to
// every snapshot of it: the profile document first, then every link and
// comment the principal authored, in every group they belong to. Groups
// with nothing authored by the caller are skipped entirely so the cascade
// never issues needless writes. The rewrite is eventually consistent with
// concurrent link creation; a racing writer may still carry the old
// nickname snapshot (last write wins, by decision).
func (e *Engine) UpdateProfile(ctx context.Context, nickname string) error {
	const op = "update_profile"
	email, err := e.principal()
	if err != nil {
		return e.fail(op, err)
	}
	snap := e.state.Snapshot()
	if snap.Profile == nil {
		return e.fail(op, fmt.Errorf("no profile for %s: %w", email, model.ErrUnauthenticated))
	}

	trimmed := strings.TrimSpace(nickname)
	if trimmed == "" {
		return e.fail(op, fmt.Errorf("nickname empty: %w", model.ErrInvalidRecord))
	}
	if trimmed == snap.Profile.Nickname {
		return nil
	}

	if err := e.store.Users().SetNickname(ctx, email, trimmed); err != nil {
		return e.fail(op, wrapStore(err))
	}

	groups, err := e.store.Groups().ListByMember(ctx, email)
	if err != nil {
		return e.fail(op, wrapStore(err))
	}

	rewritten := 0
	for _, g := range groups {
		links, changed := restampLinks(g.Links, email, trimmed)
		if !changed {
			continue
		}
		if err := e.store.Groups().SetLinks(ctx, g.ID, links); err != nil {
			return e.fail(op, wrapStore(err))
		}
		g.Links = links
		rewritten++
	}

	profile := *snap.Profile
	profile.Nickname = trimmed
	e.state.Update(func(s *state.Snapshot) {
		s.Profile = &profile
		s.Groups = groups
		s.Err = nil
	})
	e.log.Info().Str("principal", email).Int("groups_rewritten", rewritten).Msg("profile renamed")
	e.done(op)
	return nil
}

// CreateProfile writes the profile document for a newly registered user.
// The authentication provider owns the credential side of sign-up; this
// core only persists the profile record it will later hydrate from.
func (e *Engine) CreateProfile(ctx context.Context, email, nickname string) (*model.UserProfile, error) {
	const op = "create_profile"
	trimmedEmail := strings.TrimSpace(email)
	trimmedNick := strings.TrimSpace(nickname)
	if trimmedEmail == "" || !strings.Contains(trimmedEmail, "@") || trimmedNick == "" {
		return nil, e.fail(op, fmt.Errorf("profile %q/%q: %w", email, nickname, model.ErrInvalidRecord))
	}

	profile := &model.UserProfile{Email: trimmedEmail, Nickname: trimmedNick, CreatedAt: e.now()}
	if err := e.store.Users().Put(ctx, profile); err != nil {
		return nil, e.fail(op, wrapStore(err))
	}

	if current, ok := e.session.Principal(); ok && current == trimmedEmail {
		e.state.Update(func(s *state.Snapshot) {
			p := *profile
			s.Profile = &p
			s.Err = nil
		})
	}
	e.log.Info().Str("principal", trimmedEmail).Msg("profile created")
	e.done(op)
	return profile, nil
}

// restampLinks returns a copy of links with every author-nickname snapshot
// belonging to email replaced, and whether anything changed. Comments are
// restamped regardless of who authored the containing link.
func restampLinks(links []model.Link, email, nickname string) ([]model.Link, bool) {
	out := model.CloneLinks(links)
	changed := false
	for i := range out {
		if out[i].Author == email && out[i].AuthorNickname != nickname {
			out[i].AuthorNickname = nickname
			changed = true
		}
		for j := range out[i].Comments {
			c := &out[i].Comments[j]
			if c.Author == email && c.AuthorNickname != nickname {
				c.AuthorNickname = nickname
				changed = true
			}
		}
	}
	return out, changed
}
