// Package reststore provides a docstore.Store over an HTTP document API,
// for deployments where the group database sits behind a thin REST
// gateway rather than a direct driver connection.
//
// Transient failures (network errors, 5xx, 429) are retried with
// exponential backoff inside the adapter; 4xx responses fail immediately.
// Operations above this layer never retry.
package reststore

import (
	"context"
	"fmt"
	"net/http"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"

	"github.com/kraimerman/groupsharelinksQA/internal/docstore"
	"github.com/kraimerman/groupsharelinksQA/internal/model"
)

var _ docstore.Store = (*Store)(nil)

type Store struct {
	client *resty.Client
}

// New constructs a store talking to the document API at baseURL.
func New(baseURL string) *Store {
	c := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json").
		SetTimeout(30 * time.Second)
	return &Store{client: c}
}

func (s *Store) Users() docstore.Users   { return &users{c: s.client} }
func (s *Store) Groups() docstore.Groups { return &groups{c: s.client} }

// retryable reports whether the round trip should be attempted again.
// 4xx (except 408/429) are permanent; everything else may be transient.
func retryable(resp *resty.Response, err error) bool {
	if err != nil {
		return true
	}
	code := resp.StatusCode()
	if code == http.StatusRequestTimeout || code == http.StatusTooManyRequests {
		return true
	}
	return code >= 500
}

// do executes the request with bounded exponential backoff on transient
// failures and maps terminal statuses onto the error taxonomy.
func do(ctx context.Context, op string, fn func() (*resty.Response, error), okCodes ...int) (*resty.Response, error) {
	var resp *resty.Response
	attempt := func() error {
		var err error
		resp, err = fn()
		if err != nil {
			return err
		}
		if retryable(resp, nil) {
			return fmt.Errorf("%s: status %d", op, resp.StatusCode())
		}
		return nil
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = 100 * time.Millisecond
	exp.MaxInterval = 2 * time.Second
	bo := backoff.WithContext(backoff.WithMaxRetries(exp, 3), ctx)
	if err := backoff.Retry(attempt, bo); err != nil {
		return nil, err
	}

	if resp.StatusCode() == http.StatusNotFound {
		return nil, fmt.Errorf("%s: %w", op, model.ErrNotFound)
	}
	for _, c := range okCodes {
		if resp.StatusCode() == c {
			return resp, nil
		}
	}
	return nil, fmt.Errorf("%s: status %d", op, resp.StatusCode())
}

type users struct{ c *resty.Client }

func (u *users) Get(ctx context.Context, email string) (*model.UserProfile, error) {
	var p model.UserProfile
	_, err := do(ctx, "get user", func() (*resty.Response, error) {
		return u.c.R().SetContext(ctx).SetResult(&p).Get("/api/users/" + email)
	}, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (u *users) Put(ctx context.Context, p *model.UserProfile) error {
	_, err := do(ctx, "put user", func() (*resty.Response, error) {
		return u.c.R().SetContext(ctx).SetBody(p).Put("/api/users/" + p.Email)
	}, http.StatusOK, http.StatusCreated)
	return err
}

func (u *users) SetNickname(ctx context.Context, email, nickname string) error {
	_, err := do(ctx, "set nickname", func() (*resty.Response, error) {
		return u.c.R().SetContext(ctx).
			SetBody(map[string]string{"nickname": nickname}).
			Patch("/api/users/" + email)
	}, http.StatusOK, http.StatusNoContent)
	return err
}

type listUsersResponse struct {
	Users []*model.UserProfile `json:"users"`
	Count int                  `json:"count"`
}

func (u *users) SearchPrefix(ctx context.Context, field docstore.Field, prefix string, limit int) ([]*model.UserProfile, error) {
	var lr listUsersResponse
	_, err := do(ctx, "search users", func() (*resty.Response, error) {
		return u.c.R().SetContext(ctx).
			SetQueryParams(map[string]string{
				"field":  string(field),
				"prefix": prefix,
				"limit":  fmt.Sprintf("%d", limit),
			}).
			SetResult(&lr).
			Get("/api/users")
	}, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return lr.Users, nil
}

type groups struct{ c *resty.Client }

func (g *groups) Insert(ctx context.Context, grp *model.Group) (string, error) {
	var created model.Group
	_, err := do(ctx, "insert group", func() (*resty.Response, error) {
		return g.c.R().SetContext(ctx).SetBody(grp).SetResult(&created).Post("/api/groups")
	}, http.StatusCreated)
	if err != nil {
		return "", err
	}
	if created.ID == "" {
		return "", fmt.Errorf("insert group: server returned no id")
	}
	return created.ID, nil
}

func (g *groups) Get(ctx context.Context, id string) (*model.Group, error) {
	var grp model.Group
	_, err := do(ctx, "get group", func() (*resty.Response, error) {
		return g.c.R().SetContext(ctx).SetResult(&grp).Get("/api/groups/" + id)
	}, http.StatusOK)
	if err != nil {
		return nil, err
	}
	if grp.Links == nil {
		grp.Links = []model.Link{}
	}
	return &grp, nil
}

type listGroupsResponse struct {
	Groups []*model.Group `json:"groups"`
	Count  int            `json:"count"`
}

func (g *groups) ListByMember(ctx context.Context, email string) ([]*model.Group, error) {
	var lr listGroupsResponse
	_, err := do(ctx, "list groups", func() (*resty.Response, error) {
		return g.c.R().SetContext(ctx).
			SetQueryParam("member", email).
			SetResult(&lr).
			Get("/api/groups")
	}, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return lr.Groups, nil
}

func (g *groups) SetName(ctx context.Context, id, name string) error {
	_, err := do(ctx, "set group name", func() (*resty.Response, error) {
		return g.c.R().SetContext(ctx).
			SetBody(map[string]string{"name": name}).
			Patch("/api/groups/" + id)
	}, http.StatusOK, http.StatusNoContent)
	return err
}

func (g *groups) AddMembers(ctx context.Context, id string, emails []string) error {
	_, err := do(ctx, "add members", func() (*resty.Response, error) {
		return g.c.R().SetContext(ctx).
			SetBody(map[string][]string{"emails": emails}).
			Post("/api/groups/" + id + "/members")
	}, http.StatusOK, http.StatusNoContent)
	return err
}

func (g *groups) RemoveMember(ctx context.Context, id, email string) error {
	_, err := do(ctx, "remove member", func() (*resty.Response, error) {
		return g.c.R().SetContext(ctx).Delete("/api/groups/" + id + "/members/" + email)
	}, http.StatusOK, http.StatusNoContent)
	return err
}

func (g *groups) AppendLink(ctx context.Context, id string, link model.Link) error {
	_, err := do(ctx, "append link", func() (*resty.Response, error) {
		return g.c.R().SetContext(ctx).SetBody(link).Post("/api/groups/" + id + "/links")
	}, http.StatusOK, http.StatusCreated)
	return err
}

func (g *groups) SetLinks(ctx context.Context, id string, links []model.Link) error {
	_, err := do(ctx, "set links", func() (*resty.Response, error) {
		return g.c.R().SetContext(ctx).
			SetBody(map[string][]model.Link{"links": links}).
			Put("/api/groups/" + id + "/links")
	}, http.StatusOK, http.StatusNoContent)
	return err
}
