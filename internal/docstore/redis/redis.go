// Package redis provides a Redis-backed docstore.Store. Each document is a
// JSON value; prefix search runs over sorted-set indexes with ZRANGEBYLEX
// and the membership query over per-user index sets.
//
// Unlike the other backends this one upgrades read-modify-write updates to
// an optimistic compare-and-swap: the group key is WATCHed and the write
// retried on conflict. This is the documented strengthening of the
// accepted lost-update race, applied at the adapter level only.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/kraimerman/groupsharelinksQA/internal/docstore"
	"github.com/kraimerman/groupsharelinksQA/internal/model"
)

var _ docstore.Store = (*Store)(nil)

// casRetries bounds optimistic-lock retries before surfacing the conflict.
const casRetries = 5

type Store struct {
	client *redis.Client
}

// Open parses a redis URL, connects and verifies connectivity.
func Open(url string) (*Store, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return &Store{client: client}, nil
}

// NewWithClient wraps an existing client (tests use miniredis here).
func NewWithClient(client *redis.Client) *Store { return &Store{client: client} }

func (s *Store) Close() error { return s.client.Close() }

func userKey(email string) string    { return "user:" + email }
func groupKey(id string) string      { return "group:" + id }
func memberKey(email string) string  { return "groups:member:" + email }
func nickEntry(nick, email string) string { return nick + "|" + email }

const (
	emailIndex = "users:by:email"
	nickIndex  = "users:by:nick"
)

func (s *Store) Users() docstore.Users   { return &users{c: s.client} }
func (s *Store) Groups() docstore.Groups { return &groups{c: s.client} }

type users struct{ c *redis.Client }

func (u *users) Get(ctx context.Context, email string) (*model.UserProfile, error) {
	raw, err := u.c.Get(ctx, userKey(email)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("user %s: %w", email, model.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	var p model.UserProfile
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	return &p, nil
}

func (u *users) Put(ctx context.Context, p *model.UserProfile) error {
	key := userKey(p.Email)
	return u.c.Watch(ctx, func(tx *redis.Tx) error {
		old, err := tx.Get(ctx, key).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		b, err := json.Marshal(p)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if old != "" {
				var prev model.UserProfile
				if json.Unmarshal([]byte(old), &prev) == nil && prev.Nickname != p.Nickname {
					pipe.ZRem(ctx, nickIndex, nickEntry(prev.Nickname, p.Email))
				}
			}
			pipe.Set(ctx, key, b, 0)
			pipe.ZAdd(ctx, emailIndex, redis.Z{Member: p.Email})
			pipe.ZAdd(ctx, nickIndex, redis.Z{Member: nickEntry(p.Nickname, p.Email)})
			return nil
		})
		return err
	}, key)
}

func (u *users) SetNickname(ctx context.Context, email, nickname string) error {
	p, err := u.Get(ctx, email)
	if err != nil {
		return err
	}
	p.Nickname = nickname
	return u.Put(ctx, p)
}

func (u *users) SearchPrefix(ctx context.Context, field docstore.Field, prefix string, limit int) ([]*model.UserProfile, error) {
	index := emailIndex
	if field == docstore.FieldNickname {
		index = nickIndex
	}
	entries, err := u.c.ZRangeByLex(ctx, index, &redis.ZRangeBy{
		Min: "[" + prefix, Max: "[" + prefix + "\xff",
		Offset: 0, Count: int64(limit),
	}).Result()
	if err != nil {
		return nil, err
	}
	var out []*model.UserProfile
	for _, e := range entries {
		email := e
		if field == docstore.FieldNickname {
			i := strings.LastIndex(e, "|")
			if i < 0 {
				continue
			}
			email = e[i+1:]
		}
		p, err := u.Get(ctx, email)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				continue // index entry outlived the document
			}
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

type groups struct{ c *redis.Client }

func (g *groups) Insert(ctx context.Context, grp *model.Group) (string, error) {
	id := uuid.New().String()
	cp := grp.Clone()
	cp.ID = id
	b, err := json.Marshal(cp)
	if err != nil {
		return "", err
	}
	_, err = g.c.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, groupKey(id), b, 0)
		for _, m := range cp.MemberEmails {
			pipe.SAdd(ctx, memberKey(m), id)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (g *groups) Get(ctx context.Context, id string) (*model.Group, error) {
	raw, err := g.c.Get(ctx, groupKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("group %s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	var grp model.Group
	if err := json.Unmarshal([]byte(raw), &grp); err != nil {
		return nil, fmt.Errorf("decode group: %w", err)
	}
	if grp.Links == nil {
		grp.Links = []model.Link{}
	}
	return &grp, nil
}

func (g *groups) ListByMember(ctx context.Context, email string) ([]*model.Group, error) {
	ids, err := g.c.SMembers(ctx, memberKey(email)).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)
	var out []*model.Group
	for _, id := range ids {
		grp, err := g.Get(ctx, id)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, grp)
	}
	return out, nil
}

// update applies fn to the group document under WATCH, retrying a bounded
// number of times when a concurrent writer invalidates the read. fn may
// queue index maintenance on the pipeline within the same transaction.
func (g *groups) update(ctx context.Context, id string, fn func(grp *model.Group, pipe redis.Pipeliner) error) error {
	key := groupKey(id)
	txn := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			return fmt.Errorf("group %s: %w", id, model.ErrNotFound)
		}
		if err != nil {
			return err
		}
		var grp model.Group
		if err := json.Unmarshal([]byte(raw), &grp); err != nil {
			return fmt.Errorf("decode group: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if err := fn(&grp, pipe); err != nil {
				return err
			}
			b, err := json.Marshal(&grp)
			if err != nil {
				return err
			}
			pipe.Set(ctx, key, b, 0)
			return nil
		})
		return err
	}

	var err error
	for i := 0; i < casRetries; i++ {
		err = g.c.Watch(ctx, txn, key)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return fmt.Errorf("group %s: concurrent update conflict: %w", id, err)
}

func (g *groups) SetName(ctx context.Context, id, name string) error {
	return g.update(ctx, id, func(grp *model.Group, pipe redis.Pipeliner) error {
		grp.Name = name
		return nil
	})
}

func (g *groups) AddMembers(ctx context.Context, id string, emails []string) error {
	return g.update(ctx, id, func(grp *model.Group, pipe redis.Pipeliner) error {
		for _, e := range emails {
			if !grp.HasMember(e) {
				grp.MemberEmails = append(grp.MemberEmails, e)
			}
			pipe.SAdd(ctx, memberKey(e), id)
		}
		return nil
	})
}

func (g *groups) RemoveMember(ctx context.Context, id, email string) error {
	return g.update(ctx, id, func(grp *model.Group, pipe redis.Pipeliner) error {
		kept := grp.MemberEmails[:0]
		for _, m := range grp.MemberEmails {
			if m != email {
				kept = append(kept, m)
			}
		}
		grp.MemberEmails = kept
		pipe.SRem(ctx, memberKey(email), id)
		return nil
	})
}

func (g *groups) AppendLink(ctx context.Context, id string, link model.Link) error {
	return g.update(ctx, id, func(grp *model.Group, pipe redis.Pipeliner) error {
		grp.Links = append(grp.Links, link.Clone())
		return nil
	})
}

func (g *groups) SetLinks(ctx context.Context, id string, links []model.Link) error {
	return g.update(ctx, id, func(grp *model.Group, pipe redis.Pipeliner) error {
		grp.Links = model.CloneLinks(links)
		return nil
	})
}
