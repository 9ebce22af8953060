// Reelist - Movie Review Platform
// Copyright 2026 Reelist Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelist/reelist

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/reelist/reelist/internal/auth"
	"github.com/reelist/reelist/internal/config"
	"github.com/reelist/reelist/internal/middleware"
)

// NewRouter assembles the HTTP surface. The /api/v1 review routes sit
// behind bearer tokens; the /admin routes behind session cookies and CSRF
// verification. Login endpoints get a tighter rate limit on top of the
// brute-force guard.
func NewRouter(h *Handler, manager *auth.Manager, tokens *auth.TokenService, cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(30 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Security.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	loginLimit := httprate.LimitByIP(cfg.Security.RateLimitReqs, cfg.Security.RateLimitWindow)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", h.Health)

		r.With(loginLimit).Post("/auth/token", h.TokenLogin)

		r.Route("/reviews", func(r chi.Router) {
			r.Get("/", h.ListReviews)

			r.Group(func(r chi.Router) {
				r.Use(auth.RequireBearer(tokens))
				r.Post("/", h.CreateReview)
			})
		})
	})

	r.Route("/admin", func(r chi.Router) {
		r.With(loginLimit).Post("/login", h.AdminLogin)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireSession(manager, cfg.Security.SessionCookieName))
			r.Get("/csrf", h.CSRFToken)

			r.Group(func(r chi.Router) {
				r.Use(auth.RequireCSRF(manager))
				r.Post("/logout", h.AdminLogout)
				r.Get("/reviews/flagged", h.ListFlaggedReviews)
				r.Post("/reviews/{id}/approve", h.ApproveReview)
				r.Post("/reviews/{id}/reject", h.RejectReview)
			})
		})
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
