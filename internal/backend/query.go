// Neonblog - Content publishing platform
// Copyright 2026 The Neonblog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/neonblog/neonblog

package backend

import (
	"fmt"
	"strings"
)

// Filter is an equality condition on a column.
type Filter struct {
	Column string
	Value  any
}

// Order sorts results by a single column.
type Order struct {
	Column     string
	Descending bool
}

// Embed nests a foreign row under Alias, joined through the local
// foreign-key Column. Alias names the foreign collection; Fields lists
// the foreign columns to include.
type Embed struct {
	Alias  string
	Column string
	Fields []string
}

// Query describes one read against a collection. Build it with NewQuery
// and the chaining helpers:
//
//	q := backend.NewQuery("posts").
//		WithEmbed("profiles", "author_id", "name", "avatar_url").
//		WithEmbed("categories", "category_id", "name").
//		WithFilter("category_id", id).
//		OrderedBy("created_at", true)
type Query struct {
	Collection string
	Filters    []Filter
	Order      *Order
	Embeds     []Embed

	// ExactCount requests the exact total match count alongside the rows.
	ExactCount bool

	// CountOnly skips row transfer entirely; only the count comes back.
	// Implies ExactCount.
	CountOnly bool
}

// NewQuery starts a query against the named collection.
func NewQuery(collection string) Query {
	return Query{Collection: collection}
}

// WithFilter adds an equality filter.
func (q Query) WithFilter(column string, value any) Query {
	q.Filters = append(append([]Filter(nil), q.Filters...), Filter{Column: column, Value: value})
	return q
}

// WithEmbed adds an embedded relation.
func (q Query) WithEmbed(alias, column string, fields ...string) Query {
	q.Embeds = append(append([]Embed(nil), q.Embeds...), Embed{Alias: alias, Column: column, Fields: fields})
	return q
}

// OrderedBy sets the ordering column and direction.
func (q Query) OrderedBy(column string, descending bool) Query {
	q.Order = &Order{Column: column, Descending: descending}
	return q
}

// Counted requests an exact match count alongside the rows.
func (q Query) Counted() Query {
	q.ExactCount = true
	return q
}

// CountedOnly requests only the exact match count, no rows.
func (q Query) CountedOnly() Query {
	q.ExactCount = true
	q.CountOnly = true
	return q
}

// selectList renders the PostgREST select parameter: "*" plus any
// embeds, e.g. "*,profiles:author_id(name,avatar_url)".
func (q Query) selectList() string {
	parts := []string{"*"}
	for _, e := range q.Embeds {
		parts = append(parts, fmt.Sprintf("%s:%s(%s)", e.Alias, e.Column, strings.Join(e.Fields, ",")))
	}
	return strings.Join(parts, ",")
}
