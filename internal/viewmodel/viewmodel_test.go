// Neonblog - Content publishing platform
// Copyright 2026 The Neonblog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/neonblog/neonblog

package viewmodel

import (
	"testing"
	"time"

	"github.com/neonblog/neonblog/internal/backend"
)

func TestMapPostFallbacks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		row        backend.Row
		wantAuthor string
		wantAvatar string
		wantCat    string
	}{
		{
			name:       "no embeds",
			row:        backend.Row{"id": "p1", "title": "Bare"},
			wantAuthor: "Unknown Author",
			wantAvatar: "https://via.placeholder.com/100",
			wantCat:    "Uncategorized",
		},
		{
			name: "null embeds",
			row: backend.Row{
				"id": "p1", "title": "Nulls",
				"profiles": nil, "categories": nil,
			},
			wantAuthor: "Unknown Author",
			wantAvatar: "https://via.placeholder.com/100",
			wantCat:    "Uncategorized",
		},
		{
			name: "author without avatar",
			row: backend.Row{
				"id": "p1", "title": "Partial",
				"profiles": map[string]any{"name": "Ada", "avatar_url": nil},
			},
			wantAuthor: "Ada",
			wantAvatar: "https://via.placeholder.com/100",
			wantCat:    "Uncategorized",
		},
		{
			name: "full embeds",
			row: backend.Row{
				"id": "p1", "title": "Full",
				"profiles":   map[string]any{"name": "Ada", "avatar_url": "https://example.com/a.png"},
				"categories": map[string]any{"name": "Go", "slug": "go"},
			},
			wantAuthor: "Ada",
			wantAvatar: "https://example.com/a.png",
			wantCat:    "Go",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := MapPost(tt.row)
			if p.AuthorName != tt.wantAuthor {
				t.Errorf("AuthorName = %q, want %q", p.AuthorName, tt.wantAuthor)
			}
			if p.AuthorAvatar != tt.wantAvatar {
				t.Errorf("AuthorAvatar = %q, want %q", p.AuthorAvatar, tt.wantAvatar)
			}
			if p.CategoryName != tt.wantCat {
				t.Errorf("CategoryName = %q, want %q", p.CategoryName, tt.wantCat)
			}
		})
	}
}

func TestMapPostFields(t *testing.T) {
	t.Parallel()

	p := MapPost(backend.Row{
		"id":           "p1",
		"title":        "Hello",
		"content":      "body",
		"excerpt":      "summary",
		"slug":         "hello",
		"status":       "published",
		"category_id":  "c1",
		"reading_time": int64(4),
		"published_at": "2026-03-01T10:00:00Z",
		"created_at":   "2026-02-28T09:30:00Z",
		"categories":   map[string]any{"name": "Go", "slug": "go"},
	})

	if p.ID != "p1" || p.Title != "Hello" || p.Slug != "hello" || p.Status != "published" {
		t.Errorf("core fields: %+v", p)
	}
	if p.ReadingTime != 4 {
		t.Errorf("ReadingTime = %d, want 4", p.ReadingTime)
	}
	if p.CategorySlug != "go" {
		t.Errorf("CategorySlug = %q, want go", p.CategorySlug)
	}
	want := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	if !p.PublishedAt.Equal(want) {
		t.Errorf("PublishedAt = %v, want %v", p.PublishedAt, want)
	}
}

func TestMapPostLenientTimestamps(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		value any
		zero  bool
	}{
		{"rfc3339", "2026-03-01T10:00:00Z", false},
		{"rfc3339 nano", "2026-03-01T10:00:00.123456789Z", false},
		{"postgres no zone", "2026-03-01T10:00:00.123456", false},
		{"space separated", "2026-03-01 10:00:00", false},
		{"null", nil, true},
		{"empty", "", true},
		{"garbage", "not a time", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := MapPost(backend.Row{"created_at": tt.value})
			if got := p.CreatedAt.IsZero(); got != tt.zero {
				t.Errorf("CreatedAt.IsZero() = %v, want %v (input %v)", got, tt.zero, tt.value)
			}
		})
	}
}

func TestMapComment(t *testing.T) {
	t.Parallel()

	c := MapComment(backend.Row{
		"id":      "c1",
		"post_id": "p1",
		"content": "nice post",
	})
	if c.UserName != "Unknown User" {
		t.Errorf("UserName = %q, want Unknown User", c.UserName)
	}
	if c.UserAvatar != "https://via.placeholder.com/100" {
		t.Errorf("UserAvatar = %q", c.UserAvatar)
	}

	c = MapComment(backend.Row{
		"id": "c2", "post_id": "p1", "content": "hi",
		"profiles": map[string]any{"name": "Bea", "avatar_url": "https://example.com/b.png"},
	})
	if c.UserName != "Bea" || c.UserAvatar != "https://example.com/b.png" {
		t.Errorf("mapped comment = %+v", c)
	}
}

func TestMapCategory(t *testing.T) {
	t.Parallel()

	c := MapCategory(backend.Row{"id": "c1", "name": "Go", "slug": "go"})
	if c.Name != "Go" || c.Slug != "go" {
		t.Errorf("category = %+v", c)
	}

	c = MapCategory(backend.Row{"id": "c2", "slug": "x"})
	if c.Name != "Uncategorized" {
		t.Errorf("Name = %q, want Uncategorized", c.Name)
	}
}

func TestMapPostsPreservesOrder(t *testing.T) {
	t.Parallel()

	posts := MapPosts([]backend.Row{
		{"id": "p1", "title": "First"},
		{"id": "p2", "title": "Second"},
	})
	if len(posts) != 2 || posts[0].ID != "p1" || posts[1].ID != "p2" {
		t.Errorf("posts = %+v", posts)
	}
}
