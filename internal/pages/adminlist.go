// Neonblog - Content publishing platform
// Copyright 2026 The Neonblog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/neonblog/neonblog

package pages

import (
	"context"

	"github.com/neonblog/neonblog/internal/backend"
	"github.com/neonblog/neonblog/internal/viewmodel"
)

// AdminList is the admin post-list controller. Unlike the public list
// it shows every post regardless of status, without embeds.
type AdminList struct {
	data backend.DataService
}

// NewAdminList builds the admin list controller.
func NewAdminList(data backend.DataService) *AdminList {
	return &AdminList{data: data}
}

// Load fetches all posts, newest first.
func (a *AdminList) Load(ctx context.Context) ([]viewmodel.Post, error) {
	rows, _, err := a.data.Select(ctx, backend.NewQuery("posts").OrderedBy("created_at", true))
	if err != nil {
		return nil, fetchErr("posts", err)
	}
	return viewmodel.MapPosts(rows), nil
}
