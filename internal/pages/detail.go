// Neonblog - Content publishing platform
// Copyright 2026 The Neonblog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/neonblog/neonblog

package pages

import (
	"context"
	"errors"

	"github.com/neonblog/neonblog/internal/backend"
	"github.com/neonblog/neonblog/internal/session"
	"github.com/neonblog/neonblog/internal/validation"
	"github.com/neonblog/neonblog/internal/viewmodel"
)

// DetailView is the single-post page payload.
type DetailView struct {
	Post     viewmodel.Post      `json:"post"`
	Comments []viewmodel.Comment `json:"comments"`
}

// Detail is the public single-post controller.
type Detail struct {
	data backend.DataService
}

// NewDetail builds the detail controller.
func NewDetail(data backend.DataService) *Detail {
	return &Detail{data: data}
}

// Load fetches the post by slug plus its comments. Zero rows for the
// slug is ErrNotFound, which the handler turns into a redirect.
func (d *Detail) Load(ctx context.Context, slug string) (DetailView, error) {
	view := DetailView{}

	postRow, err := d.data.SelectOne(ctx, backend.NewQuery("posts").
		WithFilter("slug", slug).
		WithEmbed("profiles", "author_id", "name", "avatar_url").
		WithEmbed("categories", "category_id", "name", "slug"))
	if errors.Is(err, backend.ErrNoRows) {
		return view, ErrNotFound
	}
	if err != nil {
		return view, fetchErr("post", err)
	}

	view.Post = viewmodel.MapPost(postRow)

	comments, err := d.loadComments(ctx, view.Post.ID)
	if err != nil {
		return view, err
	}
	view.Comments = comments
	return view, nil
}

// loadComments fetches the full comment list, ascending by creation
// time.
func (d *Detail) loadComments(ctx context.Context, postID string) ([]viewmodel.Comment, error) {
	rows, _, err := d.data.Select(ctx, backend.NewQuery("comments").
		WithFilter("post_id", postID).
		WithEmbed("profiles", "user_id", "name", "avatar_url").
		OrderedBy("created_at", false))
	if err != nil {
		return nil, fetchErr("comments", err)
	}
	return viewmodel.MapComments(rows), nil
}

// ResolveID maps a post slug to its identifier. Zero rows is
// ErrNotFound.
func (d *Detail) ResolveID(ctx context.Context, slug string) (string, error) {
	row, err := d.data.SelectOne(ctx, backend.NewQuery("posts").WithFilter("slug", slug))
	if errors.Is(err, backend.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fetchErr("post", err)
	}
	id, _ := row["id"].(string)
	return id, nil
}

// CommentRequest is a comment submission.
type CommentRequest struct {
	Content string `json:"content" validate:"required,min=1,max=4000"`
}

// AddComment inserts a comment for the signed-in user and then
// re-fetches the full comment list, so the caller always sees the
// committed server order. A nil session aborts with ErrUnauthorized
// before anything else happens. When the insert lands but the refetch
// fails, the error is the refetch's; the insert is not rolled back.
func (d *Detail) AddComment(ctx context.Context, sess *session.Session, postID string, req CommentRequest) ([]viewmodel.Comment, error) {
	if sess == nil {
		return nil, ErrUnauthorized
	}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	_, err := d.data.Insert(ctx, "comments", []backend.Row{{
		"post_id": postID,
		"user_id": sess.UserID,
		"content": req.Content,
	}})
	if err != nil {
		return nil, fetchErr("add comment", err)
	}

	return d.loadComments(ctx, postID)
}
