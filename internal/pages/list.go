// Neonblog - Content publishing platform
// Copyright 2026 The Neonblog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/neonblog/neonblog

package pages

import (
	"context"

	"github.com/neonblog/neonblog/internal/backend"
	"github.com/neonblog/neonblog/internal/logging"
	"github.com/neonblog/neonblog/internal/viewmodel"
)

// ListView is the blog list page payload.
type ListView struct {
	Posts      []viewmodel.Post     `json:"posts"`
	Categories []viewmodel.Category `json:"categories"`

	// ActiveCategory is the resolved category slug, empty when the
	// list is unfiltered (including when an unknown slug was dropped).
	ActiveCategory string `json:"active_category,omitempty"`

	TotalPosts int64 `json:"total_posts"`
}

// List is the public blog list controller.
type List struct {
	data backend.DataService
}

// NewList builds the list controller.
func NewList(data backend.DataService) *List {
	return &List{data: data}
}

// Load fetches the categories and the posts, optionally filtered by a
// category slug. Posts are listed regardless of status. The slug is
// resolved to the category's identifier before the posts query; an
// unknown slug drops the filter silently and the full list is returned.
func (l *List) Load(ctx context.Context, categorySlug string) (ListView, error) {
	view := ListView{}

	catRows, _, err := l.data.Select(ctx, backend.NewQuery("categories").OrderedBy("name", false))
	if err != nil {
		return view, fetchErr("categories", err)
	}

	categoryID := ""
	for _, row := range catRows {
		category := viewmodel.MapCategory(row)

		_, count, err := l.data.Select(ctx, backend.NewQuery("posts").
			WithFilter("category_id", category.ID).
			CountedOnly())
		if err != nil {
			return view, fetchErr("category counts", err)
		}
		category.PostCount = count
		view.Categories = append(view.Categories, category)

		if categorySlug != "" && category.Slug == categorySlug {
			categoryID = category.ID
			view.ActiveCategory = categorySlug
		}
	}

	if categorySlug != "" && categoryID == "" {
		logging.Ctx(ctx).Debug().
			Str("category", categorySlug).
			Msg("unknown category slug, filter dropped")
	}

	postsQuery := backend.NewQuery("posts").
		WithEmbed("profiles", "author_id", "name", "avatar_url").
		WithEmbed("categories", "category_id", "name", "slug").
		OrderedBy("created_at", true).
		Counted()
	if categoryID != "" {
		postsQuery = postsQuery.WithFilter("category_id", categoryID)
	}

	postRows, total, err := l.data.Select(ctx, postsQuery)
	if err != nil {
		return view, fetchErr("posts", err)
	}

	view.Posts = viewmodel.MapPosts(postRows)
	view.TotalPosts = total
	return view, nil
}
