// Neonblog - Content publishing platform
// Copyright 2026 The Neonblog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/neonblog/neonblog

package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/neonblog/neonblog/internal/backend"
	"github.com/neonblog/neonblog/internal/fetch"
	"github.com/neonblog/neonblog/internal/guard"
	"github.com/neonblog/neonblog/internal/pages"
	"github.com/neonblog/neonblog/internal/session"
	"github.com/neonblog/neonblog/internal/validation"
	"github.com/neonblog/neonblog/internal/viewmodel"
)

// BlogPath is where a missing post silently redirects.
const BlogPath = "/blog"

// AdminPostsPath is where a missing admin post silently redirects.
const AdminPostsPath = "/admin/posts"

// Handlers holds the page controllers and the session gateway.
type Handlers struct {
	list      *pages.List
	detail    *pages.Detail
	editor    *pages.Editor
	adminList *pages.AdminList
	gateway   *session.Gateway

	cookieName   string
	cookieSecure bool
}

// HandlersConfig wires a Handlers.
type HandlersConfig struct {
	Data         backend.DataService
	Gateway      *session.Gateway
	CookieName   string
	CookieSecure bool
}

// NewHandlers builds the handler set over one data service.
func NewHandlers(cfg HandlersConfig) *Handlers {
	return &Handlers{
		list:         pages.NewList(cfg.Data),
		detail:       pages.NewDetail(cfg.Data),
		editor:       pages.NewEditor(cfg.Data),
		adminList:    pages.NewAdminList(cfg.Data),
		gateway:      cfg.Gateway,
		cookieName:   cfg.CookieName,
		cookieSecure: cfg.CookieSecure,
	}
}

// runFetch hosts one controller load inside a per-request fetch
// machine and collapses the snapshot back to a value or error.
func runFetch[T any](ctx context.Context, fn fetch.LoadFunc[T]) (T, error) {
	var zero T

	m := fetch.New[T]()
	defer m.Close()

	snap, err := m.Run(ctx, fn)
	if err != nil {
		return zero, err
	}
	if snap.State == fetch.StateFailed {
		return zero, snap.Err
	}
	return snap.Value, nil
}

// Landing handles GET /.
func (h *Handlers) Landing(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]string{
		"service": "neonblog",
		"status":  "ok",
	})
}

// BlogList handles GET /blog and GET /blog/category/{category}.
func (h *Handlers) BlogList(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	category := chi.URLParam(r, "category")

	view, err := runFetch(r.Context(), func(ctx context.Context) (pages.ListView, error) {
		return h.list.Load(ctx, category)
	})
	if err != nil {
		h.writeFailure(rw, err)
		return
	}
	rw.Success(view)
}

// BlogDetail handles GET /blog/{slug}. A missing slug redirects to the
// list, it does not render an error.
func (h *Handlers) BlogDetail(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	slug := chi.URLParam(r, "slug")

	view, err := runFetch(r.Context(), func(ctx context.Context) (pages.DetailView, error) {
		return h.detail.Load(ctx, slug)
	})
	if errors.Is(err, pages.ErrNotFound) {
		http.Redirect(w, r, BlogPath, http.StatusSeeOther)
		return
	}
	if err != nil {
		h.writeFailure(rw, err)
		return
	}
	rw.Success(view)
}

// AddComment handles POST /blog/{slug}/comments. Anonymous submission
// is a blocking 401; it never silently no-ops.
func (h *Handlers) AddComment(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	slug := chi.URLParam(r, "slug")

	var req pages.CommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rw.BadRequest("malformed request body")
		return
	}

	sess := h.currentSession(r)

	comments, err := runFetch(r.Context(), func(ctx context.Context) ([]viewmodel.Comment, error) {
		postID, err := h.detail.ResolveID(ctx, slug)
		if err != nil {
			return nil, err
		}
		return h.detail.AddComment(ctx, sess, postID, req)
	})
	if errors.Is(err, pages.ErrNotFound) {
		http.Redirect(w, r, BlogPath, http.StatusSeeOther)
		return
	}
	if err != nil {
		h.writeFailure(rw, err)
		return
	}
	rw.Created(map[string]any{"comments": comments})
}

// loginRequest is the sign-in payload.
type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginStatus handles GET /admin/login.
func (h *Handlers) LoginStatus(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	sess := h.currentSession(r)
	rw.Success(map[string]bool{"signed_in": sess != nil})
}

// Login handles POST /admin/login.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rw.BadRequest("malformed request body")
		return
	}
	if err := validation.Struct(req); err != nil {
		rw.ValidationError(err.Error(), err.Details())
		return
	}

	sess, err := h.gateway.SignIn(r.Context(), req.Email, req.Password)
	if errors.Is(err, backend.ErrInvalidCredentials) {
		rw.Unauthorized("invalid email or password")
		return
	}
	if err != nil {
		h.writeFailure(rw, err)
		return
	}

	http.SetCookie(w, h.sessionCookie(sess.ID, 0))
	rw.Success(map[string]string{
		"user_id": sess.UserID,
		"email":   sess.Email,
	})
}

// Logout handles POST /admin/logout.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	if sess := guard.SessionFromContext(r.Context()); sess != nil {
		if err := h.gateway.SignOut(r.Context(), sess.ID); err != nil {
			rw.InternalError(err)
			return
		}
	}

	http.SetCookie(w, h.sessionCookie("", -1))
	rw.NoContent()
}

// AdminPosts handles GET /admin/posts.
func (h *Handlers) AdminPosts(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	posts, err := runFetch(r.Context(), func(ctx context.Context) ([]viewmodel.Post, error) {
		return h.adminList.Load(ctx)
	})
	if err != nil {
		h.writeFailure(rw, err)
		return
	}
	rw.Success(map[string]any{"posts": posts})
}

// AdminNewPost handles GET /admin/posts/new: a blank editor payload.
func (h *Handlers) AdminNewPost(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]any{
		"post": viewmodel.Post{Status: "draft"},
	})
}

// AdminGetPost handles GET /admin/posts/{id}. An unknown id redirects
// back to the admin list.
func (h *Handlers) AdminGetPost(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id := chi.URLParam(r, "id")

	post, err := runFetch(r.Context(), func(ctx context.Context) (viewmodel.Post, error) {
		return h.editor.Load(ctx, id)
	})
	if errors.Is(err, pages.ErrNotFound) {
		http.Redirect(w, r, AdminPostsPath, http.StatusSeeOther)
		return
	}
	if err != nil {
		h.writeFailure(rw, err)
		return
	}
	rw.Success(map[string]any{"post": post})
}

// CreatePost handles POST /admin/posts.
func (h *Handlers) CreatePost(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req pages.SaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rw.BadRequest("malformed request body")
		return
	}
	req.ID = ""

	id, err := h.editor.Save(r.Context(), req)
	if err != nil {
		h.writeFailure(rw, err)
		return
	}
	rw.Created(map[string]string{"id": id})
}

// UpdatePost handles PUT /admin/posts/{id}.
func (h *Handlers) UpdatePost(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req pages.SaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rw.BadRequest("malformed request body")
		return
	}
	req.ID = chi.URLParam(r, "id")

	id, err := h.editor.Save(r.Context(), req)
	if err != nil {
		h.writeFailure(rw, err)
		return
	}
	rw.Success(map[string]string{"id": id})
}

// DeletePost handles DELETE /admin/posts/{id}. The explicit
// confirm=true parameter stands in for the interactive confirmation.
func (h *Handlers) DeletePost(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id := chi.URLParam(r, "id")
	confirmed := r.URL.Query().Get("confirm") == "true"

	err := h.editor.Delete(r.Context(), id, confirmed)
	if errors.Is(err, pages.ErrConfirmationRequired) {
		rw.BadRequest("deletion requires confirm=true")
		return
	}
	if err != nil {
		h.writeFailure(rw, err)
		return
	}
	rw.NoContent()
}

// Health handles GET /health.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]string{"status": "healthy"})
}

// currentSession resolves the optional session cookie, nil when absent
// or invalid.
func (h *Handlers) currentSession(r *http.Request) *session.Session {
	cookie, err := r.Cookie(h.cookieName)
	if err != nil {
		return nil
	}
	sess, err := h.gateway.Current(r.Context(), cookie.Value)
	if err != nil {
		return nil
	}
	return sess
}

// sessionCookie builds the session cookie; maxAge < 0 clears it.
func (h *Handlers) sessionCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     h.cookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}

// writeFailure maps controller errors onto the envelope.
func (h *Handlers) writeFailure(rw *ResponseWriter, err error) {
	var reqErr *validation.RequestError
	if errors.As(err, &reqErr) {
		rw.ValidationError(reqErr.Error(), reqErr.Details())
		return
	}
	if errors.Is(err, pages.ErrUnauthorized) {
		rw.Unauthorized("sign in to perform this action")
		return
	}

	var fetchFailed *pages.FetchError
	if errors.As(err, &fetchFailed) {
		rw.FetchFailed(err)
		return
	}
	rw.InternalError(err)
}
