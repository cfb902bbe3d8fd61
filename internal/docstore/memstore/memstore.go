// Package memstore is an in-process docstore.Store used by engine tests
// and as the CLI default. It reproduces the remote store's copy semantics:
// documents handed out are always independent deep copies.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/kraimerman/groupsharelinksQA/internal/docstore"
	"github.com/kraimerman/groupsharelinksQA/internal/model"
)

type Store struct {
	mu     sync.Mutex
	users  map[string]*model.UserProfile
	groups map[string]*model.Group
	nextID int
}

// New returns an empty store.
func New() *Store {
	return &Store{
		users:  make(map[string]*model.UserProfile),
		groups: make(map[string]*model.Group),
	}
}

func (s *Store) Users() docstore.Users   { return (*users)(s) }
func (s *Store) Groups() docstore.Groups { return (*groups)(s) }

type users Store

func (u *users) Get(ctx context.Context, email string) (*model.UserProfile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	p, ok := u.users[email]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", email, model.ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

func (u *users) Put(ctx context.Context, p *model.UserProfile) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	cp := *p
	u.users[p.Email] = &cp
	return nil
}

func (u *users) SetNickname(ctx context.Context, email, nickname string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	p, ok := u.users[email]
	if !ok {
		return fmt.Errorf("user %s: %w", email, model.ErrNotFound)
	}
	p.Nickname = nickname
	return nil
}

func (u *users) SearchPrefix(ctx context.Context, field docstore.Field, prefix string, limit int) ([]*model.UserProfile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	var out []*model.UserProfile
	for _, p := range u.users {
		v := p.Email
		if field == docstore.FieldNickname {
			v = p.Nickname
		}
		if strings.HasPrefix(v, prefix) {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if field == docstore.FieldNickname {
			return out[i].Nickname < out[j].Nickname
		}
		return out[i].Email < out[j].Email
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type groups Store

func (g *groups) Insert(ctx context.Context, grp *model.Group) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nextID++
	id := fmt.Sprintf("g-%06d", g.nextID)
	cp := grp.Clone()
	cp.ID = id
	g.groups[id] = cp
	return id, nil
}

func (g *groups) Get(ctx context.Context, id string) (*model.Group, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	grp, ok := g.groups[id]
	if !ok {
		return nil, fmt.Errorf("group %s: %w", id, model.ErrNotFound)
	}
	return grp.Clone(), nil
}

func (g *groups) ListByMember(ctx context.Context, email string) ([]*model.Group, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []*model.Group
	for _, grp := range g.groups {
		if grp.HasMember(email) {
			out = append(out, grp.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (g *groups) SetName(ctx context.Context, id, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	grp, ok := g.groups[id]
	if !ok {
		return fmt.Errorf("group %s: %w", id, model.ErrNotFound)
	}
	grp.Name = name
	return nil
}

func (g *groups) AddMembers(ctx context.Context, id string, emails []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	grp, ok := g.groups[id]
	if !ok {
		return fmt.Errorf("group %s: %w", id, model.ErrNotFound)
	}
	for _, e := range emails {
		if !grp.HasMember(e) {
			grp.MemberEmails = append(grp.MemberEmails, e)
		}
	}
	return nil
}

func (g *groups) RemoveMember(ctx context.Context, id, email string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	grp, ok := g.groups[id]
	if !ok {
		return fmt.Errorf("group %s: %w", id, model.ErrNotFound)
	}
	kept := grp.MemberEmails[:0]
	for _, m := range grp.MemberEmails {
		if m != email {
			kept = append(kept, m)
		}
	}
	grp.MemberEmails = kept
	return nil
}

func (g *groups) AppendLink(ctx context.Context, id string, link model.Link) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	grp, ok := g.groups[id]
	if !ok {
		return fmt.Errorf("group %s: %w", id, model.ErrNotFound)
	}
	grp.Links = append(grp.Links, link.Clone())
	return nil
}

func (g *groups) SetLinks(ctx context.Context, id string, links []model.Link) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	grp, ok := g.groups[id]
	if !ok {
		return fmt.Errorf("group %s: %w", id, model.ErrNotFound)
	}
	grp.Links = model.CloneLinks(links)
	return nil
}
