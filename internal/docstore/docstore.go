// Package docstore defines the document-store adapter the synchronization
// engine writes through. The remote database is modeled as two collections:
// `users` keyed by email, `groups` keyed by a store-allocated id. The only
// primitives assumed are point reads, equality/prefix queries, field-level
// merge updates, set-union/set-removal on array fields, and whole-field
// replacement; there is no transaction spanning more than one document.
//
// Implementations live under internal/docstore/<driver>/ and must pass the
// storetest compliance suite.
package docstore

import (
	"context"

	"github.com/kraimerman/groupsharelinksQA/internal/model"
)

// Field selects which user attribute a prefix search scans.
type Field string

const (
	FieldEmail    Field = "email"
	FieldNickname Field = "nickname"
)

// Store exposes the two collections.
type Store interface {
	Users() Users
	Groups() Groups
}

// Users is the `users` collection, keyed by email.
type Users interface {
	// Get returns the profile or model.ErrNotFound when absent.
	Get(ctx context.Context, email string) (*model.UserProfile, error)
	// Put upserts the whole profile document.
	Put(ctx context.Context, u *model.UserProfile) error
	// SetNickname performs a field-level merge update of the nickname.
	SetNickname(ctx context.Context, email, nickname string) error
	// SearchPrefix returns up to limit profiles whose field starts with
	// prefix, ordered by that field.
	SearchPrefix(ctx context.Context, field Field, prefix string, limit int) ([]*model.UserProfile, error)
}

// Groups is the `groups` collection. Every returned document is an
// independent copy; callers may mutate results freely.
type Groups interface {
	// Insert stores a new group and returns the allocated id.
	Insert(ctx context.Context, g *model.Group) (string, error)
	// Get performs a fresh point read; model.ErrNotFound when absent.
	Get(ctx context.Context, id string) (*model.Group, error)
	// ListByMember returns every group whose member set contains email.
	ListByMember(ctx context.Context, email string) ([]*model.Group, error)
	// SetName updates only the name field.
	SetName(ctx context.Context, id, name string) error
	// AddMembers performs a set-union on the member set: values already
	// present are not duplicated.
	AddMembers(ctx context.Context, id string, emails []string) error
	// RemoveMember performs a set-removal on the member set.
	RemoveMember(ctx context.Context, id, email string) error
	// AppendLink appends one link to the link list without rewriting the
	// rest of the array.
	AppendLink(ctx context.Context, id string, link model.Link) error
	// SetLinks replaces the whole link list in one update.
	SetLinks(ctx context.Context, id string, links []model.Link) error
}
