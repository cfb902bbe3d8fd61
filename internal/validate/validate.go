// Package validate holds the pure structural predicates that gate every
// write before it reaches the document store. A failing predicate surfaces
// as a rejected operation, never a partial write.
package validate

import (
	"strings"

	"github.com/kraimerman/groupsharelinksQA/internal/model"
)

// Group reports whether g is structurally sound: non-blank name, owner and
// avatar, a non-empty member set, a non-nil link list, and a real creation
// timestamp.
func Group(g *model.Group) bool {
	if g == nil {
		return false
	}
	if strings.TrimSpace(g.Name) == "" || strings.TrimSpace(g.CreatedBy) == "" || strings.TrimSpace(g.Avatar) == "" {
		return false
	}
	if len(g.MemberEmails) == 0 {
		return false
	}
	if g.Links == nil {
		return false
	}
	return g.CreatedAt > 0
}

// Link reports whether l is structurally sound: non-blank url, title and
// author, both vote sets present, a non-nil comment list, and a real
// timestamp. Vote sets must be non-nil so the persisted document always
// carries both arrays.
func Link(l *model.Link) bool {
	if l == nil {
		return false
	}
	if strings.TrimSpace(l.URL) == "" || strings.TrimSpace(l.Title) == "" || strings.TrimSpace(l.Author) == "" {
		return false
	}
	if l.Votes.Up == nil || l.Votes.Down == nil {
		return false
	}
	if l.Comments == nil {
		return false
	}
	return l.Timestamp > 0
}
