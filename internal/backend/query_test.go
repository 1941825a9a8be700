// Neonblog - Content publishing platform
// Copyright 2026 The Neonblog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/neonblog/neonblog

package backend

import (
	"testing"
)

func TestQuerySelectList(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		q    Query
		want string
	}{
		{
			name: "no embeds",
			q:    NewQuery("posts"),
			want: "*",
		},
		{
			name: "single embed",
			q: NewQuery("posts").
				WithEmbed("profiles", "author_id", "name", "avatar_url"),
			want: "*,profiles:author_id(name,avatar_url)",
		},
		{
			name: "multiple embeds",
			q: NewQuery("posts").
				WithEmbed("profiles", "author_id", "name", "avatar_url").
				WithEmbed("categories", "category_id", "name", "slug"),
			want: "*,profiles:author_id(name,avatar_url),categories:category_id(name,slug)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := tt.q.selectList(); got != tt.want {
				t.Errorf("selectList() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestQueryEncodeParams(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		q    Query
		want string
	}{
		{
			name: "bare",
			q:    NewQuery("posts"),
			want: "select=%2A",
		},
		{
			name: "filter and order",
			q: NewQuery("posts").
				WithFilter("status", "published").
				OrderedBy("created_at", true),
			want: "order=created_at.desc&select=%2A&status=eq.published",
		},
		{
			name: "ascending order",
			q:    NewQuery("comments").WithFilter("post_id", "p1").OrderedBy("created_at", false),
			want: "order=created_at.asc&post_id=eq.p1&select=%2A",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := tt.q.encodeParams().Encode(); got != tt.want {
				t.Errorf("encodeParams() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestQueryChainingDoesNotShareSlices(t *testing.T) {
	t.Parallel()

	base := NewQuery("posts").WithFilter("status", "published")
	a := base.WithFilter("category_id", "c1")
	b := base.WithFilter("category_id", "c2")

	if len(base.Filters) != 1 {
		t.Fatalf("base mutated: %d filters", len(base.Filters))
	}
	if a.Filters[1].Value != "c1" || b.Filters[1].Value != "c2" {
		t.Errorf("derived queries share filter storage: %v / %v", a.Filters, b.Filters)
	}
}
