package validate

import (
	"testing"

	"github.com/kraimerman/groupsharelinksQA/internal/model"
)

func validGroup() *model.Group {
	return &model.Group{
		Name:         "gophers",
		Avatar:       "https://ui-avatars.com/api/?name=gophers",
		CreatedBy:    "a@x.com",
		MemberEmails: []string{"a@x.com"},
		Links:        []model.Link{},
		CreatedAt:    1700000000000,
	}
}

func validLink() *model.Link {
	return &model.Link{
		ID:             "l1",
		URL:            "https://go.dev",
		Title:          "The Go Programming Language",
		Author:         "a@x.com",
		AuthorNickname: "alice",
		Timestamp:      1700000000000,
		Votes:          model.VoteRecord{Up: []string{}, Down: []string{}},
		Comments:       []model.Comment{},
	}
}

func TestGroup(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*model.Group)
		want   bool
	}{
		{"valid", func(g *model.Group) {}, true},
		{"blank name", func(g *model.Group) { g.Name = "  " }, false},
		{"blank owner", func(g *model.Group) { g.CreatedBy = "" }, false},
		{"blank avatar", func(g *model.Group) { g.Avatar = "" }, false},
		{"empty members", func(g *model.Group) { g.MemberEmails = nil }, false},
		{"nil links", func(g *model.Group) { g.Links = nil }, false},
		{"zero timestamp", func(g *model.Group) { g.CreatedAt = 0 }, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := validGroup()
			tc.mutate(g)
			if got := Group(g); got != tc.want {
				t.Fatalf("Group() = %v, want %v", got, tc.want)
			}
		})
	}
	if Group(nil) {
		t.Fatal("Group(nil) should be false")
	}
}

func TestLink(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*model.Link)
		want   bool
	}{
		{"valid", func(l *model.Link) {}, true},
		{"blank url", func(l *model.Link) { l.URL = " " }, false},
		{"blank title", func(l *model.Link) { l.Title = "" }, false},
		{"blank author", func(l *model.Link) { l.Author = "" }, false},
		{"nil up votes", func(l *model.Link) { l.Votes.Up = nil }, false},
		{"nil down votes", func(l *model.Link) { l.Votes.Down = nil }, false},
		{"nil comments", func(l *model.Link) { l.Comments = nil }, false},
		{"zero timestamp", func(l *model.Link) { l.Timestamp = 0 }, false},
		{"empty description ok", func(l *model.Link) { l.Description = "" }, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			l := validLink()
			tc.mutate(l)
			if got := Link(l); got != tc.want {
				t.Fatalf("Link() = %v, want %v", got, tc.want)
			}
		})
	}
	if Link(nil) {
		t.Fatal("Link(nil) should be false")
	}
}
