// Neonblog - Content publishing platform
// Copyright 2026 The Neonblog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/neonblog/neonblog

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/neonblog/neonblog/internal/config"
	"github.com/neonblog/neonblog/internal/guard"
	"github.com/neonblog/neonblog/internal/middleware"
)

// NewRouter assembles the full routing surface.
func NewRouter(h *Handlers, g *guard.Guard, cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.Prometheus)
	if len(cfg.Security.CORSOrigins) > 0 {
		r.Use(middleware.CORS(cfg.Security.CORSOrigins))
	}

	r.Get("/health", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/", h.Landing)
	r.Get("/blog", h.BlogList)
	r.Get("/blog/category/{category}", h.BlogList)
	r.Get("/blog/{slug}", h.BlogDetail)
	r.Post("/blog/{slug}/comments", h.AddComment)

	r.Route("/admin", func(r chi.Router) {
		r.Get("/login", h.LoginStatus)
		r.With(middleware.LoginRateLimit(cfg.Security.LoginRateLimit, cfg.Security.LoginRateWindow)).
			Post("/login", h.Login)

		r.Group(func(r chi.Router) {
			r.Use(g.RequireSession)

			r.Post("/logout", h.Logout)
			r.Get("/posts", h.AdminPosts)
			r.Post("/posts", h.CreatePost)
			r.Get("/posts/new", h.AdminNewPost)
			r.Get("/posts/{id}", h.AdminGetPost)
			r.Put("/posts/{id}", h.UpdatePost)
			r.Delete("/posts/{id}", h.DeletePost)
		})
	})

	return r
}
