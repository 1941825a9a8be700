// Neonblog - Content publishing platform
// Copyright 2026 The Neonblog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/neonblog/neonblog

// Package viewmodel maps raw backend rows into the shapes pages
// render. Mapping is total: missing joins and malformed fields degrade
// to fallbacks, never to an error.
package viewmodel

import (
	"time"

	"github.com/neonblog/neonblog/internal/backend"
)

// Fallbacks used when a joined row or field is absent.
const (
	FallbackAuthorName   = "Unknown Author"
	FallbackCommentUser  = "Unknown User"
	FallbackCategoryName = "Uncategorized"
	FallbackAvatarURL    = "https://via.placeholder.com/100"
)

// Post is a blog post ready for rendering.
type Post struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	Excerpt      string    `json:"excerpt"`
	Slug         string    `json:"slug"`
	Status       string    `json:"status"`
	AuthorName   string    `json:"author_name"`
	AuthorAvatar string    `json:"author_avatar"`
	CategoryID   string    `json:"category_id,omitempty"`
	CategoryName string    `json:"category_name"`
	CategorySlug string    `json:"category_slug,omitempty"`
	ReadingTime  int       `json:"reading_time"`
	PublishedAt  time.Time `json:"published_at"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Comment is a post comment ready for rendering.
type Comment struct {
	ID         string    `json:"id"`
	PostID     string    `json:"post_id"`
	Content    string    `json:"content"`
	UserName   string    `json:"user_name"`
	UserAvatar string    `json:"user_avatar"`
	CreatedAt  time.Time `json:"created_at"`
}

// Category is a category ready for rendering.
type Category struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	PostCount int64  `json:"post_count"`
}

// MapPost builds a Post from a posts row with optional profiles and
// categories embeds.
func MapPost(row backend.Row) Post {
	p := Post{
		ID:           str(row["id"]),
		Title:        str(row["title"]),
		Content:      str(row["content"]),
		Excerpt:      str(row["excerpt"]),
		Slug:         str(row["slug"]),
		Status:       str(row["status"]),
		AuthorName:   FallbackAuthorName,
		AuthorAvatar: FallbackAvatarURL,
		CategoryID:   str(row["category_id"]),
		CategoryName: FallbackCategoryName,
		ReadingTime:  intVal(row["reading_time"]),
		PublishedAt:  timeVal(row["published_at"]),
		CreatedAt:    timeVal(row["created_at"]),
		UpdatedAt:    timeVal(row["updated_at"]),
	}

	if author := embedded(row["profiles"]); author != nil {
		if name := str(author["name"]); name != "" {
			p.AuthorName = name
		}
		if avatar := str(author["avatar_url"]); avatar != "" {
			p.AuthorAvatar = avatar
		}
	}
	if category := embedded(row["categories"]); category != nil {
		if name := str(category["name"]); name != "" {
			p.CategoryName = name
		}
		p.CategorySlug = str(category["slug"])
	}
	return p
}

// MapPosts maps a result set, preserving order.
func MapPosts(rows []backend.Row) []Post {
	posts := make([]Post, len(rows))
	for i, row := range rows {
		posts[i] = MapPost(row)
	}
	return posts
}

// MapComment builds a Comment from a comments row with an optional
// profiles embed.
func MapComment(row backend.Row) Comment {
	c := Comment{
		ID:         str(row["id"]),
		PostID:     str(row["post_id"]),
		Content:    str(row["content"]),
		UserName:   FallbackCommentUser,
		UserAvatar: FallbackAvatarURL,
		CreatedAt:  timeVal(row["created_at"]),
	}

	if user := embedded(row["profiles"]); user != nil {
		if name := str(user["name"]); name != "" {
			c.UserName = name
		}
		if avatar := str(user["avatar_url"]); avatar != "" {
			c.UserAvatar = avatar
		}
	}
	return c
}

// MapComments maps a result set, preserving order.
func MapComments(rows []backend.Row) []Comment {
	comments := make([]Comment, len(rows))
	for i, row := range rows {
		comments[i] = MapComment(row)
	}
	return comments
}

// MapCategory builds a Category from a categories row.
func MapCategory(row backend.Row) Category {
	name := str(row["name"])
	if name == "" {
		name = FallbackCategoryName
	}
	return Category{
		ID:   str(row["id"]),
		Name: name,
		Slug: str(row["slug"]),
	}
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func intVal(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

// timestampLayouts cover the backends' wire formats.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05",
}

func timeVal(v any) time.Time {
	s, ok := v.(string)
	if !ok || s == "" {
		return time.Time{}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func embedded(v any) backend.Row {
	row, _ := v.(map[string]any)
	return row
}
