// Neonblog - Content publishing platform
// Copyright 2026 The Neonblog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/neonblog/neonblog

package backend

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *SQLite {
	t.Helper()

	s, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite() error: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedPost(t *testing.T, s *SQLite, row Row) Row {
	t.Helper()

	stored, err := s.Insert(context.Background(), "posts", []Row{row})
	if err != nil {
		t.Fatalf("Insert(posts) error: %v", err)
	}
	return stored[0]
}

func TestSQLiteInsertAppliesDefaults(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	stored := seedPost(t, s, Row{"title": "First", "content": "body", "slug": "first"})

	if id, _ := stored["id"].(string); id == "" {
		t.Error("inserted row has no generated id")
	}
	if got := stored["status"]; got != "draft" {
		t.Errorf("status = %v, want draft", got)
	}
	if created, _ := stored["created_at"].(string); created == "" {
		t.Error("created_at default not applied")
	} else if _, err := time.Parse(time.RFC3339, created); err != nil {
		t.Errorf("created_at %q is not RFC3339: %v", created, err)
	}
}

func TestSQLiteSelectFiltersAndOrders(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	seedPost(t, s, Row{"title": "Old", "slug": "old", "status": "published", "created_at": "2026-01-01T00:00:00Z"})
	seedPost(t, s, Row{"title": "New", "slug": "new", "status": "published", "created_at": "2026-02-01T00:00:00Z"})
	seedPost(t, s, Row{"title": "Hidden", "slug": "hidden", "status": "draft", "created_at": "2026-03-01T00:00:00Z"})

	rows, count, err := s.Select(ctx, NewQuery("posts").
		WithFilter("status", "published").
		OrderedBy("created_at", true).
		Counted())
	if err != nil {
		t.Fatalf("Select() error: %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0]["title"] != "New" || rows[1]["title"] != "Old" {
		t.Errorf("unexpected order: %v, %v", rows[0]["title"], rows[1]["title"])
	}
}

func TestSQLiteCountOnly(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	seedPost(t, s, Row{"title": "A", "slug": "a", "status": "published"})
	seedPost(t, s, Row{"title": "B", "slug": "b", "status": "draft"})

	rows, count, err := s.Select(context.Background(), NewQuery("posts").
		WithFilter("status", "published").
		CountedOnly())
	if err != nil {
		t.Fatalf("Select() error: %v", err)
	}
	if rows != nil {
		t.Errorf("count-only query returned rows: %v", rows)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
}

func TestSQLiteSelectOneNoRows(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)

	_, err := s.SelectOne(context.Background(), NewQuery("posts").WithFilter("slug", "missing"))
	if !errors.Is(err, ErrNoRows) {
		t.Errorf("SelectOne() error = %v, want ErrNoRows", err)
	}
}

func TestSQLiteEmbeds(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Insert(ctx, "profiles", []Row{{"id": "u1", "name": "Ada", "avatar_url": "https://example.com/a.png"}}); err != nil {
		t.Fatalf("Insert(profiles) error: %v", err)
	}
	if _, err := s.Insert(ctx, "categories", []Row{{"id": "c1", "name": "Go", "slug": "go"}}); err != nil {
		t.Fatalf("Insert(categories) error: %v", err)
	}
	seedPost(t, s, Row{"title": "Joined", "slug": "joined", "author_id": "u1", "category_id": "c1"})
	seedPost(t, s, Row{"title": "Orphan", "slug": "orphan"})

	rows, _, err := s.Select(ctx, NewQuery("posts").
		WithEmbed("profiles", "author_id", "name", "avatar_url").
		WithEmbed("categories", "category_id", "name", "slug").
		OrderedBy("title", false))
	if err != nil {
		t.Fatalf("Select() error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}

	joined := rows[0]
	author, ok := joined["profiles"].(Row)
	if !ok {
		t.Fatalf("profiles embed = %T, want Row", joined["profiles"])
	}
	if author["name"] != "Ada" {
		t.Errorf("author name = %v, want Ada", author["name"])
	}
	category, ok := joined["categories"].(Row)
	if !ok {
		t.Fatalf("categories embed = %T, want Row", joined["categories"])
	}
	if category["slug"] != "go" {
		t.Errorf("category slug = %v, want go", category["slug"])
	}

	orphan := rows[1]
	if orphan["profiles"] != nil {
		t.Errorf("orphan profiles embed = %v, want nil", orphan["profiles"])
	}
	if orphan["categories"] != nil {
		t.Errorf("orphan categories embed = %v, want nil", orphan["categories"])
	}
}

func TestSQLiteUpdateTouchesPostTimestamp(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	stored := seedPost(t, s, Row{"title": "Before", "slug": "before", "updated_at": "2020-01-01T00:00:00Z"})
	id := stored["id"].(string)

	if err := s.Update(ctx, "posts", id, Row{"title": "After"}); err != nil {
		t.Fatalf("Update() error: %v", err)
	}

	fresh, err := s.SelectOne(ctx, NewQuery("posts").WithFilter("id", id))
	if err != nil {
		t.Fatalf("SelectOne() error: %v", err)
	}
	if fresh["title"] != "After" {
		t.Errorf("title = %v, want After", fresh["title"])
	}
	if fresh["updated_at"] == "2020-01-01T00:00:00Z" {
		t.Error("updated_at was not refreshed on update")
	}
}

func TestSQLiteDelete(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	stored := seedPost(t, s, Row{"title": "Gone", "slug": "gone"})
	id := stored["id"].(string)

	if err := s.Delete(ctx, "posts", id); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if _, err := s.SelectOne(ctx, NewQuery("posts").WithFilter("id", id)); !errors.Is(err, ErrNoRows) {
		t.Errorf("SelectOne() after delete = %v, want ErrNoRows", err)
	}
}

func TestSQLiteRejectsBadIdentifiers(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	if _, _, err := s.Select(ctx, NewQuery("posts; DROP TABLE posts")); err == nil {
		t.Error("Select() accepted a malformed collection name")
	}
	if _, _, err := s.Select(ctx, NewQuery("posts").WithFilter("id = '' OR 1=1 --", "x")); err == nil {
		t.Error("Select() accepted a malformed filter column")
	}
	if err := s.Update(ctx, "posts", "p1", Row{"title' = ''": "x"}); err == nil {
		t.Error("Update() accepted a malformed field name")
	}
}

func TestSQLiteAuthRoundTrip(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	auth := NewSQLiteAuth(s, "0123456789abcdef0123456789abcdef", time.Hour)

	if err := auth.EnsureUser(ctx, "admin@example.com", "hunter22", "Admin"); err != nil {
		t.Fatalf("EnsureUser() error: %v", err)
	}

	identity, token, err := auth.SignIn(ctx, "admin@example.com", "hunter22")
	if err != nil {
		t.Fatalf("SignIn() error: %v", err)
	}
	if identity.Email != "admin@example.com" {
		t.Errorf("identity email = %q", identity.Email)
	}
	if token == "" {
		t.Fatal("SignIn() returned empty token")
	}

	current, err := auth.CurrentUser(ctx, token)
	if err != nil {
		t.Fatalf("CurrentUser() error: %v", err)
	}
	if current.ID != identity.ID {
		t.Errorf("CurrentUser id = %q, want %q", current.ID, identity.ID)
	}

	// EnsureUser on an existing account resets the password.
	if err := auth.EnsureUser(ctx, "admin@example.com", "changed", "Admin"); err != nil {
		t.Fatalf("EnsureUser() reset error: %v", err)
	}
	if _, _, err := auth.SignIn(ctx, "admin@example.com", "hunter22"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("SignIn() with stale password = %v, want ErrInvalidCredentials", err)
	}
	if _, _, err := auth.SignIn(ctx, "admin@example.com", "changed"); err != nil {
		t.Errorf("SignIn() with new password error: %v", err)
	}
}

func TestSQLiteAuthRejections(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	auth := NewSQLiteAuth(s, "0123456789abcdef0123456789abcdef", time.Hour)

	if err := auth.EnsureUser(ctx, "admin@example.com", "hunter22", "Admin"); err != nil {
		t.Fatalf("EnsureUser() error: %v", err)
	}

	if _, _, err := auth.SignIn(ctx, "nobody@example.com", "hunter22"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown email: got %v, want ErrInvalidCredentials", err)
	}
	if _, _, err := auth.SignIn(ctx, "admin@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password: got %v, want ErrInvalidCredentials", err)
	}
	if _, err := auth.CurrentUser(ctx, "not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("malformed token: got %v, want ErrInvalidToken", err)
	}

	expired := NewSQLiteAuth(s, "0123456789abcdef0123456789abcdef", -time.Minute)
	_, token, err := expired.SignIn(ctx, "admin@example.com", "hunter22")
	if err != nil {
		t.Fatalf("SignIn() error: %v", err)
	}
	if _, err := auth.CurrentUser(ctx, token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expired token: got %v, want ErrInvalidToken", err)
	}
}
