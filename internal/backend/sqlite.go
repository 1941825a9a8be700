// Neonblog - Content publishing platform
// Copyright 2026 The Neonblog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/neonblog/neonblog

package backend

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/neonblog/neonblog/internal/metrics"
)

// schema mirrors the hosted backend's tables. Timestamps default to
// RFC3339 UTC so rows look the same regardless of which implementation
// produced them.
const schema = `
CREATE TABLE IF NOT EXISTS profiles (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	avatar_url TEXT
);

CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at    TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now'))
);

CREATE TABLE IF NOT EXISTS categories (
	id   TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	slug TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS posts (
	id           TEXT PRIMARY KEY,
	title        TEXT NOT NULL,
	content      TEXT NOT NULL DEFAULT '',
	excerpt      TEXT NOT NULL DEFAULT '',
	author_id    TEXT REFERENCES profiles(id),
	category_id  TEXT REFERENCES categories(id),
	status       TEXT NOT NULL DEFAULT 'draft' CHECK (status IN ('draft','published')),
	published_at TEXT,
	created_at   TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now')),
	updated_at   TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now')),
	slug         TEXT UNIQUE,
	reading_time INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS comments (
	id         TEXT PRIMARY KEY,
	post_id    TEXT NOT NULL REFERENCES posts(id),
	user_id    TEXT REFERENCES profiles(id),
	content    TEXT NOT NULL,
	created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now'))
);

CREATE INDEX IF NOT EXISTS idx_posts_slug ON posts(slug);
CREATE INDEX IF NOT EXISTS idx_posts_category ON posts(category_id);
CREATE INDEX IF NOT EXISTS idx_comments_post ON comments(post_id);
`

// identPattern restricts collection and column names that get
// interpolated into SQL.
var identPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// SQLite implements DataService over an embedded database, presenting
// the same row shapes as the REST backend.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (and if needed creates) the database at path.
// Use ":memory:" for an ephemeral database in tests.
func OpenSQLite(path string) (*SQLite, error) {
	dsn := path + "?_foreign_keys=on"
	if path == ":memory:" {
		// A named shared cache keeps the schema visible across pooled
		// conns without bleeding into other in-memory instances.
		dsn = fmt.Sprintf("file:mem-%s?mode=memory&cache=shared&_foreign_keys=on", uuid.New().String())
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Close releases the database handle.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func checkIdent(name string) error {
	if !identPattern.MatchString(name) {
		return fmt.Errorf("backend: invalid identifier %q", name)
	}
	return nil
}

func (q Query) checkIdents() error {
	if err := checkIdent(q.Collection); err != nil {
		return err
	}
	for _, f := range q.Filters {
		if err := checkIdent(f.Column); err != nil {
			return err
		}
	}
	if q.Order != nil {
		if err := checkIdent(q.Order.Column); err != nil {
			return err
		}
	}
	for _, e := range q.Embeds {
		if err := checkIdent(e.Alias); err != nil {
			return err
		}
		if err := checkIdent(e.Column); err != nil {
			return err
		}
		for _, f := range e.Fields {
			if err := checkIdent(f); err != nil {
				return err
			}
		}
	}
	return nil
}

func (q Query) whereClause() (string, []any) {
	if len(q.Filters) == 0 {
		return "", nil
	}
	conds := make([]string, len(q.Filters))
	args := make([]any, len(q.Filters))
	for i, f := range q.Filters {
		conds[i] = f.Column + " = ?"
		args[i] = f.Value
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// Select queries rows from a collection.
func (s *SQLite) Select(ctx context.Context, q Query) (_ []Row, count int64, err error) {
	start := time.Now()
	defer func() { metrics.RecordBackendRequest(q.Collection, "select", err, time.Since(start)) }()

	if err := q.checkIdents(); err != nil {
		return nil, -1, err
	}

	where, args := q.whereClause()

	count = -1
	if q.ExactCount {
		row := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+q.Collection+where, args...)
		if err := row.Scan(&count); err != nil {
			return nil, -1, fmt.Errorf("count %s: %w", q.Collection, err)
		}
	}
	if q.CountOnly {
		return nil, count, nil
	}

	stmt := "SELECT * FROM " + q.Collection + where
	if q.Order != nil {
		dir := "ASC"
		if q.Order.Descending {
			dir = "DESC"
		}
		stmt += " ORDER BY " + q.Order.Column + " " + dir
	}

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, -1, fmt.Errorf("select %s: %w", q.Collection, err)
	}
	defer rows.Close()

	result, err := scanRows(rows)
	if err != nil {
		return nil, -1, err
	}

	for _, r := range result {
		if err := s.resolveEmbeds(ctx, q.Embeds, r); err != nil {
			return nil, -1, err
		}
	}
	return result, count, nil
}

// SelectOne queries exactly one row; zero matches yield ErrNoRows.
func (s *SQLite) SelectOne(ctx context.Context, q Query) (_ Row, err error) {
	start := time.Now()
	defer func() { metrics.RecordBackendRequest(q.Collection, "select_one", err, time.Since(start)) }()

	single := q
	single.ExactCount = false
	single.CountOnly = false

	rows, _, err := s.Select(ctx, single)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNoRows
	}
	return rows[0], nil
}

// resolveEmbeds attaches foreign rows under their aliases, nil when the
// foreign key is null or dangling.
func (s *SQLite) resolveEmbeds(ctx context.Context, embeds []Embed, row Row) error {
	for _, e := range embeds {
		fk, ok := row[e.Column]
		if !ok || fk == nil {
			row[e.Alias] = nil
			continue
		}

		cols := strings.Join(e.Fields, ", ")
		foreign := s.db.QueryRowContext(ctx, "SELECT "+cols+" FROM "+e.Alias+" WHERE id = ?", fk)

		values := make([]any, len(e.Fields))
		ptrs := make([]any, len(e.Fields))
		for i := range values {
			ptrs[i] = &values[i]
		}

		if err := foreign.Scan(ptrs...); err != nil {
			if err == sql.ErrNoRows {
				row[e.Alias] = nil
				continue
			}
			return fmt.Errorf("embed %s: %w", e.Alias, err)
		}

		nested := Row{}
		for i, f := range e.Fields {
			nested[f] = normalizeValue(values[i])
		}
		row[e.Alias] = nested
	}
	return nil
}

// Insert adds rows and returns them as stored (defaults applied).
func (s *SQLite) Insert(ctx context.Context, collection string, rows []Row) (_ []Row, err error) {
	start := time.Now()
	defer func() { metrics.RecordBackendRequest(collection, "insert", err, time.Since(start)) }()

	if err := checkIdent(collection); err != nil {
		return nil, err
	}

	stored := make([]Row, 0, len(rows))
	for _, row := range rows {
		id, _ := row["id"].(string)
		if id == "" {
			id = uuid.New().String()
		}

		cols := []string{"id"}
		args := []any{id}
		for _, col := range sortedColumns(row) {
			if col == "id" {
				continue
			}
			if err := checkIdent(col); err != nil {
				return nil, err
			}
			cols = append(cols, col)
			args = append(args, row[col])
		}

		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
		stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", collection, strings.Join(cols, ", "), placeholders)
		if _, err := s.db.ExecContext(ctx, stmt, args...); err != nil {
			return nil, fmt.Errorf("insert into %s: %w", collection, err)
		}

		fresh, err := s.SelectOne(ctx, NewQuery(collection).WithFilter("id", id))
		if err != nil {
			return nil, fmt.Errorf("read back inserted row: %w", err)
		}
		stored = append(stored, fresh)
	}
	return stored, nil
}

// Update patches the fields of the row matched by id. For posts it also
// refreshes updated_at, mirroring the hosted schema's trigger.
func (s *SQLite) Update(ctx context.Context, collection, id string, fields Row) (err error) {
	start := time.Now()
	defer func() { metrics.RecordBackendRequest(collection, "update", err, time.Since(start)) }()

	if err := checkIdent(collection); err != nil {
		return err
	}
	if len(fields) == 0 {
		return nil
	}

	sets := []string{}
	args := []any{}
	for _, col := range sortedColumns(fields) {
		if err := checkIdent(col); err != nil {
			return err
		}
		sets = append(sets, col+" = ?")
		args = append(args, fields[col])
	}
	if collection == "posts" {
		if _, ok := fields["updated_at"]; !ok {
			sets = append(sets, "updated_at = ?")
			args = append(args, time.Now().UTC().Format(time.RFC3339))
		}
	}
	args = append(args, id)

	stmt := fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", collection, strings.Join(sets, ", "))
	if _, err := s.db.ExecContext(ctx, stmt, args...); err != nil {
		return fmt.Errorf("update %s: %w", collection, err)
	}
	return nil
}

// Delete removes the row matched by id.
func (s *SQLite) Delete(ctx context.Context, collection, id string) (err error) {
	start := time.Now()
	defer func() { metrics.RecordBackendRequest(collection, "delete", err, time.Since(start)) }()

	if err := checkIdent(collection); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM "+collection+" WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete from %s: %w", collection, err)
	}
	return nil
}

func sortedColumns(row Row) []string {
	cols := make([]string, 0, len(row))
	for col := range row {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	return cols
}

func scanRows(rows *sql.Rows) ([]Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}

	var result []Row
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}

		row := Row{}
		for i, col := range cols {
			row[col] = normalizeValue(values[i])
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return result, nil
}

// normalizeValue makes driver values JSON-shaped, matching what the
// REST backend returns.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case []byte:
		return string(val)
	case time.Time:
		return val.UTC().Format(time.RFC3339)
	default:
		return v
	}
}
