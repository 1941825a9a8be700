// Neonblog - Content publishing platform
// Copyright 2026 The Neonblog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/neonblog/neonblog

package pages

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/neonblog/neonblog/internal/backend"
	"github.com/neonblog/neonblog/internal/logging"
	"github.com/neonblog/neonblog/internal/validation"
	"github.com/neonblog/neonblog/internal/viewmodel"
)

// Editor is the admin post editor controller.
type Editor struct {
	data backend.DataService
}

// NewEditor builds the editor controller.
func NewEditor(data backend.DataService) *Editor {
	return &Editor{data: data}
}

// Load fetches the post bound to an edit session. Zero rows is
// ErrNotFound.
func (e *Editor) Load(ctx context.Context, id string) (viewmodel.Post, error) {
	row, err := e.data.SelectOne(ctx, backend.NewQuery("posts").WithFilter("id", id))
	if errors.Is(err, backend.ErrNoRows) {
		return viewmodel.Post{}, ErrNotFound
	}
	if err != nil {
		return viewmodel.Post{}, fetchErr("post", err)
	}
	return viewmodel.MapPost(row), nil
}

// SaveRequest carries a post save. ID is the bound identifier: empty
// means the editor holds an unsaved post.
type SaveRequest struct {
	ID         string `json:"id"`
	Title      string `json:"title" validate:"required,min=1,max=200"`
	Content    string `json:"content" validate:"required"`
	Excerpt    string `json:"excerpt" validate:"max=500"`
	CategoryID string `json:"category_id"`
	Status     string `json:"status" validate:"required,oneof=draft published"`
}

// Save persists a post. Whether this is an insert or an update is
// decided by exactly one rule: insert when no identifier is bound,
// update otherwise. Publishing stamps published_at with the current
// time; saving as draft clears it. Returns the saved post's id.
func (e *Editor) Save(ctx context.Context, req SaveRequest) (string, error) {
	if err := validation.Struct(req); err != nil {
		return "", err
	}

	fields := backend.Row{
		"title":        req.Title,
		"content":      req.Content,
		"excerpt":      req.Excerpt,
		"status":       req.Status,
		"reading_time": estimateReadingTime(req.Content),
	}
	if req.CategoryID != "" {
		fields["category_id"] = req.CategoryID
	}
	if req.Status == "published" {
		fields["published_at"] = time.Now().UTC().Format(time.RFC3339)
	} else {
		fields["published_at"] = nil
	}

	if req.ID == "" {
		fields["slug"] = Slugify(req.Title)

		stored, err := e.data.Insert(ctx, "posts", []backend.Row{fields})
		if err != nil {
			return "", fetchErr("create post", err)
		}
		if len(stored) == 0 {
			return "", fetchErr("create post", errors.New("insert returned no representation"))
		}
		id, _ := stored[0]["id"].(string)
		logging.Ctx(ctx).Info().Str("post_id", id).Msg("post created")
		return id, nil
	}

	// The slug is fixed at creation; updates never touch it.
	if err := e.data.Update(ctx, "posts", req.ID, fields); err != nil {
		return "", fetchErr("update post", err)
	}
	logging.Ctx(ctx).Info().Str("post_id", req.ID).Msg("post updated")
	return req.ID, nil
}

// Delete removes a post. The caller must pass the explicit
// confirmation; without it nothing is touched. There is no soft
// delete.
func (e *Editor) Delete(ctx context.Context, id string, confirmed bool) error {
	if !confirmed {
		return ErrConfirmationRequired
	}
	if err := e.data.Delete(ctx, "posts", id); err != nil {
		return fetchErr("delete post", err)
	}
	logging.Ctx(ctx).Info().Str("post_id", id).Msg("post deleted")
	return nil
}

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives a URL-safe slug from a title.
func Slugify(title string) string {
	slug := strings.ToLower(title)
	slug = nonSlugChars.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

// estimateReadingTime is minutes at ~200 words per minute, minimum 1.
func estimateReadingTime(content string) int {
	words := len(strings.Fields(content))
	minutes := (words + 199) / 200
	if minutes < 1 {
		minutes = 1
	}
	return minutes
}
