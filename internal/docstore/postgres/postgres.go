// Package postgres provides a Postgres-backed docstore.Store via the pgx
// stdlib driver. The member set is a TEXT[] column so set-union and
// set-removal run server-side in one statement; the link list is a JSONB
// column replaced whole, matching the remote store contract.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kraimerman/groupsharelinksQA/internal/docstore"
	"github.com/kraimerman/groupsharelinksQA/internal/model"
)

var _ docstore.Store = (*Store)(nil)

type Store struct{ db *sql.DB }

// Open connects and verifies connectivity.
func Open(dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is empty")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// NewWithDB wraps an existing connection.
func NewWithDB(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

// EnsureSchema creates the two collections if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
            email TEXT PRIMARY KEY,
            nickname TEXT NOT NULL,
            created_at BIGINT NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS groups (
            id TEXT PRIMARY KEY,
            name TEXT NOT NULL,
            avatar TEXT NOT NULL,
            created_by TEXT NOT NULL,
            member_emails TEXT[] NOT NULL,
            links JSONB NOT NULL DEFAULT '[]',
            created_at BIGINT NOT NULL
        )`,
		`CREATE INDEX IF NOT EXISTS idx_users_nickname ON users(nickname)`,
		`CREATE INDEX IF NOT EXISTS idx_groups_members ON groups USING GIN(member_emails)`,
	}
	for _, q := range stmts {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
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
		`SELECT email, nickname, created_at FROM users WHERE email = $1`, email)
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
        INSERT INTO users (email, nickname, created_at) VALUES ($1, $2, $3)
        ON CONFLICT (email) DO UPDATE SET nickname = EXCLUDED.nickname
    `, p.Email, p.Nickname, p.CreatedAt)
	return err
}

func (u *users) SetNickname(ctx context.Context, email, nickname string) error {
	res, err := u.db.ExecContext(ctx,
		`UPDATE users SET nickname = $1 WHERE email = $2`, nickname, email)
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
	q := fmt.Sprintf(`
        SELECT email, nickname, created_at FROM users
        WHERE %s >= $1 AND %s < $1 || chr(1114111)
        ORDER BY %s LIMIT $2`, col, col, col)
	rows, err := u.db.QueryContext(ctx, q, prefix, limit)
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

// Member arrays cross the driver as JSON text because database/sql cannot
// scan TEXT[] directly; the SQL converts at the boundary.
const groupCols = `id, name, avatar, created_by, array_to_json(member_emails)::text, links::text, created_at`

func scanGroup(scan func(dest ...any) error) (*model.Group, error) {
	var g model.Group
	var members, links string
	if err := scan(&g.ID, &g.Name, &g.Avatar, &g.CreatedBy, &members, &links, &g.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(members), &g.MemberEmails); err != nil {
		return nil, fmt.Errorf("decode member set: %w", err)
	}
	if err := json.Unmarshal([]byte(links), &g.Links); err != nil {
		return nil, fmt.Errorf("decode links: %w", err)
	}
	if g.Links == nil {
		g.Links = []model.Link{}
	}
	return &g, nil
}

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
        INSERT INTO groups (id, name, avatar, created_by, member_emails, links, created_at)
        VALUES ($1, $2, $3, $4, ARRAY(SELECT json_array_elements_text($5::json)), $6::jsonb, $7)
    `, id, grp.Name, grp.Avatar, grp.CreatedBy, string(members), string(links), grp.CreatedAt)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (g *groups) Get(ctx context.Context, id string) (*model.Group, error) {
	row := g.db.QueryRowContext(ctx,
		`SELECT `+groupCols+` FROM groups WHERE id = $1`, id)
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
	rows, err := g.db.QueryContext(ctx,
		`SELECT `+groupCols+` FROM groups WHERE $1 = ANY(member_emails) ORDER BY id`, email)
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
	return g.exec(ctx, id, `UPDATE groups SET name = $2 WHERE id = $1`, name)
}

func (g *groups) AddMembers(ctx context.Context, id string, emails []string) error {
	vals, err := json.Marshal(emails)
	if err != nil {
		return err
	}
	// Server-side set-union: append only the values not already present.
	return g.exec(ctx, id, `
        UPDATE groups SET member_emails = member_emails ||
            ARRAY(SELECT e FROM json_array_elements_text($2::json) AS e
                  WHERE NOT (e = ANY(member_emails)))
        WHERE id = $1`, string(vals))
}

func (g *groups) RemoveMember(ctx context.Context, id, email string) error {
	return g.exec(ctx, id,
		`UPDATE groups SET member_emails = array_remove(member_emails, $2) WHERE id = $1`, email)
}

func (g *groups) AppendLink(ctx context.Context, id string, link model.Link) error {
	b, err := json.Marshal(link)
	if err != nil {
		return err
	}
	return g.exec(ctx, id,
		`UPDATE groups SET links = links || jsonb_build_array($2::jsonb) WHERE id = $1`, string(b))
}

func (g *groups) SetLinks(ctx context.Context, id string, links []model.Link) error {
	b, err := json.Marshal(links)
	if err != nil {
		return err
	}
	return g.exec(ctx, id,
		`UPDATE groups SET links = $2::jsonb WHERE id = $1`, string(b))
}

func (g *groups) exec(ctx context.Context, id, query string, args ...any) error {
	res, err := g.db.ExecContext(ctx, query, append([]any{id}, args...)...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("group %s: %w", id, model.ErrNotFound)
	}
	return nil
}
