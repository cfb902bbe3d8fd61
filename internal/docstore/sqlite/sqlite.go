// Package sqlite provides a SQLite-backed docstore.Store using the pure Go
// modernc driver. Documents are stored as rows with the nested member set
// and link list serialized as JSON columns; per-document atomicity comes
// from wrapping each read-modify-write in a transaction.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // pure Go SQLite driver (no CGO)

	"github.com/kraimerman/groupsharelinksQA/internal/docstore"
	"github.com/kraimerman/groupsharelinksQA/internal/model"
)

var _ docstore.Store = (*Store)(nil)

type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and ensures the schema.
// Use ":memory:" for an ephemeral store.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// NewWithDB wraps an existing connection, ensuring the schema. Used by
// tests that share an in-memory database.
func NewWithDB(db *sql.DB) (*Store, error) {
	if err := ensureSchema(db); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func ensureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
            email TEXT PRIMARY KEY,
            nickname TEXT NOT NULL,
            created_at INTEGER NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS groups (
            id TEXT PRIMARY KEY,
            name TEXT NOT NULL,
            avatar TEXT NOT NULL,
            created_by TEXT NOT NULL,
            member_emails TEXT NOT NULL,
            links TEXT NOT NULL,
            created_at INTEGER NOT NULL
        )`,
		`CREATE INDEX IF NOT EXISTS idx_users_nickname ON users(nickname)`,
	}
	for _, q := range stmts {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func (s *Store) Users() docstore.Users   { return &users{db: s.db} }
func (s *Store) Groups() docstore.Groups { return &groups{db: s.db} }

type users struct{ db *sql.DB }

func (u *users) Get(ctx context.Context, email string) (*model.UserProfile, error) {
	var out model.UserProfile
	row := u.db.QueryRowContext(ctx,
		`SELECT email, nickname, created_at FROM users WHERE email = ?`, email)
	if err := row.Scan(&out.Email, &out.Nickname, &out.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", email, model.ErrNotFound)
		}
		return nil, err
	}
	return &out, nil
}

func (u *users) Put(ctx context.Context, p *model.UserProfile) error {
	_, err := u.db.ExecContext(ctx, `
        INSERT INTO users (email, nickname, created_at) VALUES (?, ?, ?)
        ON CONFLICT(email) DO UPDATE SET nickname = excluded.nickname
    `, p.Email, p.Nickname, p.CreatedAt)
	return err
}

func (u *users) SetNickname(ctx context.Context, email, nickname string) error {
	res, err := u.db.ExecContext(ctx,
		`UPDATE users SET nickname = ? WHERE email = ?`, nickname, email)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("user %s: %w", email, model.ErrNotFound)
	}
	return nil
}

func (u *users) SearchPrefix(ctx context.Context, field docstore.Field, prefix string, limit int) ([]*model.UserProfile, error) {
	col := "email"
	if field == docstore.FieldNickname {
		col = "nickname"
	}
	// Prefix-range scan over the indexed column; char(1114111) is the
	// highest code point, the upper bound of the prefix range.
	q := fmt.Sprintf(`
        SELECT email, nickname, created_at FROM users
        WHERE %s >= ? AND %s < ? || char(1114111)
        ORDER BY %s LIMIT ?`, col, col, col)
	rows, err := u.db.QueryContext(ctx, q, prefix, prefix, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*model.UserProfile
	for rows.Next() {
		var p model.UserProfile
		if err := rows.Scan(&p.Email, &p.Nickname, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

type groups struct{ db *sql.DB }

func scanGroup(scan func(dest ...any) error) (*model.Group, error) {
	var g model.Group
	var members, links []byte
	if err := scan(&g.ID, &g.Name, &g.Avatar, &g.CreatedBy, &members, &links, &g.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(members, &g.MemberEmails); err != nil {
		return nil, fmt.Errorf("decode member set: %w", err)
	}
	if err := json.Unmarshal(links, &g.Links); err != nil {
		return nil, fmt.Errorf("decode links: %w", err)
	}
	if g.Links == nil {
		g.Links = []model.Link{}
	}
	return &g, nil
}

const groupCols = `id, name, avatar, created_by, member_emails, links, created_at`

func (g *groups) Insert(ctx context.Context, grp *model.Group) (string, error) {
	id := uuid.New().String()
	members, err := json.Marshal(grp.MemberEmails)
	if err != nil {
		return "", err
	}
	links, err := json.Marshal(grp.Links)
	if err != nil {
		return "", err
	}
	_, err = g.db.ExecContext(ctx, `
        INSERT INTO groups (`+groupCols+`) VALUES (?, ?, ?, ?, ?, ?, ?)
    `, id, grp.Name, grp.Avatar, grp.CreatedBy, members, links, grp.CreatedAt)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (g *groups) Get(ctx context.Context, id string) (*model.Group, error) {
	row := g.db.QueryRowContext(ctx,
		`SELECT `+groupCols+` FROM groups WHERE id = ?`, id)
	grp, err := scanGroup(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("group %s: %w", id, model.ErrNotFound)
		}
		return nil, err
	}
	return grp, nil
}

func (g *groups) ListByMember(ctx context.Context, email string) ([]*model.Group, error) {
	rows, err := g.db.QueryContext(ctx, `
        SELECT `+groupCols+` FROM groups
        WHERE EXISTS (SELECT 1 FROM json_each(groups.member_emails) WHERE json_each.value = ?)
        ORDER BY id
    `, email)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*model.Group
	for rows.Next() {
		grp, err := scanGroup(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, grp)
	}
	return out, rows.Err()
}

func (g *groups) SetName(ctx context.Context, id, name string) error {
	res, err := g.db.ExecContext(ctx,
		`UPDATE groups SET name = ? WHERE id = ?`, name, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("group %s: %w", id, model.ErrNotFound)
	}
	return nil
}

// withGroupTx runs a read-modify-write of a single group row inside a
// transaction, which is the SQLite equivalent of a single-document update.
func (g *groups) withGroupTx(ctx context.Context, id string, fn func(grp *model.Group) error) error {
	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `SELECT `+groupCols+` FROM groups WHERE id = ?`, id)
	grp, err := scanGroup(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("group %s: %w", id, model.ErrNotFound)
		}
		return err
	}
	if err := fn(grp); err != nil {
		return err
	}

	members, err := json.Marshal(grp.MemberEmails)
	if err != nil {
		return err
	}
	links, err := json.Marshal(grp.Links)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE groups SET member_emails = ?, links = ? WHERE id = ?`, members, links, id); err != nil {
		return err
	}
	return tx.Commit()
}

func (g *groups) AddMembers(ctx context.Context, id string, emails []string) error {
	return g.withGroupTx(ctx, id, func(grp *model.Group) error {
		for _, e := range emails {
			if !grp.HasMember(e) {
				grp.MemberEmails = append(grp.MemberEmails, e)
			}
		}
		return nil
	})
}

func (g *groups) RemoveMember(ctx context.Context, id, email string) error {
	return g.withGroupTx(ctx, id, func(grp *model.Group) error {
		kept := grp.MemberEmails[:0]
		for _, m := range grp.MemberEmails {
			if m != email {
				kept = append(kept, m)
			}
		}
		grp.MemberEmails = kept
		return nil
	})
}

func (g *groups) AppendLink(ctx context.Context, id string, link model.Link) error {
	return g.withGroupTx(ctx, id, func(grp *model.Group) error {
		grp.Links = append(grp.Links, link)
		return nil
	})
}

func (g *groups) SetLinks(ctx context.Context, id string, links []model.Link) error {
	return g.withGroupTx(ctx, id, func(grp *model.Group) error {
		grp.Links = links
		return nil
	})
}
