// Reelist - Movie Review Platform
// Copyright 2026 Reelist Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelist/reelist

package api

import (
	"net/http"

	"github.com/reelist/reelist/internal/auth"
	"github.com/reelist/reelist/internal/config"
	"github.com/reelist/reelist/internal/store"
	"github.com/reelist/reelist/internal/threat"
)

// Handler holds the dependencies shared by all HTTP handlers.
type Handler struct {
	manager *auth.Manager
	tokens  *auth.TokenService
	reviews store.ReviewStore
	filter  *threat.Filter

	cookieName   string
	cookieSecure bool
}

// NewHandler creates a Handler wired to the trust boundary components and
// the review store.
func NewHandler(manager *auth.Manager, tokens *auth.TokenService, reviews store.ReviewStore, filter *threat.Filter, cfg *config.SecurityConfig) *Handler {
	return &Handler{
		manager:      manager,
		tokens:       tokens,
		reviews:      reviews,
		filter:       filter,
		cookieName:   cfg.SessionCookieName,
		cookieSecure: cfg.CookieSecure,
	}
}

// Health handles GET /api/v1/health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respond(w, r, http.StatusOK, map[string]string{"status": "ok"})
}
