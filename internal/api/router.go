// Colligo - Social Feed Assembly and Engagement Caching
// Copyright 2026 Colligo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/colligo-dev/colligo

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/colligo-dev/colligo/internal/auth"
	"github.com/colligo-dev/colligo/internal/config"
	"github.com/colligo-dev/colligo/internal/middleware"
)

// NewRouter assembles the HTTP routes. jwtManager may be nil when the auth
// mode is none.
func NewRouter(handler *Handler, security *config.SecurityConfig, jwtManager *auth.JWTManager) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	// Health endpoints stay open for orchestrator probes.
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Get("/", handler.Health)
		r.Get("/live", handler.HealthLive)
		r.Get("/ready", handler.HealthReady)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.PrometheusMetrics)
		r.Use(auth.Middleware(security, jwtManager))

		r.Get("/feed", handler.Feed)

		r.Route("/posts", func(r chi.Router) {
			r.Post("/", handler.CreatePost)
			r.Get("/{id}", handler.GetPost)
			r.Delete("/{id}", handler.DeletePost)
			r.Post("/{id}/like", handler.ToggleLike)
		})

		r.Get("/users/{id}/posts", handler.AuthorPosts)

		r.Post("/admin/reconcile", handler.TriggerReconcile)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
