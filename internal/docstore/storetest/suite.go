// Package storetest exercises a compliance suite against a docstore.Store
// implementation. Backends should provide a clean, isolated store from
// makeStore.
package storetest

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/kraimerman/groupsharelinksQA/internal/docstore"
	"github.com/kraimerman/groupsharelinksQA/internal/model"
)

// Run exercises every adapter primitive against a fresh store.
func Run(t *testing.T, makeStore func(t *testing.T) docstore.Store) {
	t.Helper()

	s := makeStore(t)
	ctx := context.Background()

	alice := "alice-" + uuid.New().String()[:8] + "@example.test"
	bob := "bob-" + uuid.New().String()[:8] + "@example.test"

	// Users: absent read, upsert, point read, nickname merge.
	if _, err := s.Users().Get(ctx, alice); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("Get absent user: want ErrNotFound, got %v", err)
	}
	for _, u := range []*model.UserProfile{
		{Email: alice, Nickname: "alice", CreatedAt: 1700000000000},
		{Email: bob, Nickname: "bob", CreatedAt: 1700000000001},
	} {
		if err := s.Users().Put(ctx, u); err != nil {
			t.Fatalf("Put %s: %v", u.Email, err)
		}
	}
	got, err := s.Users().Get(ctx, alice)
	if err != nil || got.Nickname != "alice" {
		t.Fatalf("Get user: got=%+v err=%v", got, err)
	}
	if err := s.Users().SetNickname(ctx, alice, "alicia"); err != nil {
		t.Fatalf("SetNickname: %v", err)
	}
	if got, _ = s.Users().Get(ctx, alice); got.Nickname != "alicia" {
		t.Fatalf("SetNickname not persisted: %+v", got)
	}

	// Prefix search on both fields.
	res, err := s.Users().SearchPrefix(ctx, docstore.FieldEmail, "alice-", 10)
	if err != nil || len(res) != 1 || res[0].Email != alice {
		t.Fatalf("SearchPrefix email: res=%v err=%v", res, err)
	}
	res, err = s.Users().SearchPrefix(ctx, docstore.FieldNickname, "alic", 10)
	if err != nil || len(res) != 1 {
		t.Fatalf("SearchPrefix nickname: res=%v err=%v", res, err)
	}

	// Groups: insert allocates id.
	grp := &model.Group{
		Name:         "reading-club",
		Avatar:       "https://ui-avatars.com/api/?name=reading-club",
		CreatedBy:    alice,
		MemberEmails: []string{alice},
		Links:        []model.Link{},
		CreatedAt:    1700000000002,
	}
	id, err := s.Groups().Insert(ctx, grp)
	if err != nil || id == "" {
		t.Fatalf("Insert: id=%q err=%v", id, err)
	}
	fetched, err := s.Groups().Get(ctx, id)
	if err != nil || fetched.Name != "reading-club" || len(fetched.MemberEmails) != 1 {
		t.Fatalf("Get group: got=%+v err=%v", fetched, err)
	}
	if _, err := s.Groups().Get(ctx, "does-not-exist"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("Get absent group: want ErrNotFound, got %v", err)
	}

	// Membership query.
	lst, err := s.Groups().ListByMember(ctx, alice)
	if err != nil || len(lst) != 1 || lst[0].ID != id {
		t.Fatalf("ListByMember: n=%d err=%v", len(lst), err)
	}
	if lst, err = s.Groups().ListByMember(ctx, bob); err != nil || len(lst) != 0 {
		t.Fatalf("ListByMember non-member: n=%d err=%v", len(lst), err)
	}

	// Set-union is idempotent for existing values.
	if err := s.Groups().AddMembers(ctx, id, []string{bob, alice}); err != nil {
		t.Fatalf("AddMembers: %v", err)
	}
	fetched, _ = s.Groups().Get(ctx, id)
	if len(fetched.MemberEmails) != 2 {
		t.Fatalf("AddMembers union: members=%v", fetched.MemberEmails)
	}

	// Field update.
	if err := s.Groups().SetName(ctx, id, "book-club"); err != nil {
		t.Fatalf("SetName: %v", err)
	}
	if fetched, _ = s.Groups().Get(ctx, id); fetched.Name != "book-club" {
		t.Fatalf("SetName not persisted: %+v", fetched)
	}

	// Link append and whole-array rewrite.
	link := model.Link{
		ID: uuid.New().String(), URL: "https://go.dev", Title: "go",
		Author: alice, AuthorNickname: "alicia", Timestamp: 1700000000003,
		Votes: model.VoteRecord{Up: []string{}, Down: []string{}}, Comments: []model.Comment{},
	}
	if err := s.Groups().AppendLink(ctx, id, link); err != nil {
		t.Fatalf("AppendLink: %v", err)
	}
	fetched, _ = s.Groups().Get(ctx, id)
	if len(fetched.Links) != 1 || fetched.Links[0].ID != link.ID {
		t.Fatalf("AppendLink: links=%+v", fetched.Links)
	}
	if fetched.Links[0].Votes.Up == nil || fetched.Links[0].Comments == nil {
		t.Fatalf("AppendLink dropped empty collections: %+v", fetched.Links[0])
	}

	mutated := model.CloneLinks(fetched.Links)
	mutated[0].Votes.Up = append(mutated[0].Votes.Up, bob)
	mutated[0].Comments = append(mutated[0].Comments, model.Comment{
		ID: uuid.New().String(), Content: "nice", Author: bob, AuthorNickname: "bob", Timestamp: 1700000000004,
	})
	if err := s.Groups().SetLinks(ctx, id, mutated); err != nil {
		t.Fatalf("SetLinks: %v", err)
	}
	fetched, _ = s.Groups().Get(ctx, id)
	if len(fetched.Links[0].Votes.Up) != 1 || len(fetched.Links[0].Comments) != 1 {
		t.Fatalf("SetLinks rewrite: %+v", fetched.Links[0])
	}

	// Set-removal.
	if err := s.Groups().RemoveMember(ctx, id, bob); err != nil {
		t.Fatalf("RemoveMember: %v", err)
	}
	fetched, _ = s.Groups().Get(ctx, id)
	if len(fetched.MemberEmails) != 1 || fetched.MemberEmails[0] != alice {
		t.Fatalf("RemoveMember: members=%v", fetched.MemberEmails)
	}

	// Returned documents are copies: mutating one must not leak back.
	fetched.Links[0].Title = "tampered"
	again, _ := s.Groups().Get(ctx, id)
	if again.Links[0].Title == "tampered" {
		t.Fatal("Get returned a shared document, want an independent copy")
	}
}
