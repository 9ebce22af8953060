// Reelist - Movie Review Platform
// Copyright 2026 Reelist Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelist/reelist

package api

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/reelist/reelist/internal/auth"
	"github.com/reelist/reelist/internal/logging"
	"github.com/reelist/reelist/internal/threat"
	"github.com/reelist/reelist/internal/validation"
)

// tokenRequest is the payload for the API token endpoint.
type tokenRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Password string `json:"password" validate:"required,max=256"`
}

// tokenResponse carries an issued bearer token.
type tokenResponse struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
}

// loginRequest is the payload for the admin login endpoint.
type loginRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Password string `json:"password" validate:"required,max=256"`
}

// TokenLogin handles POST /api/v1/auth/token: credential verification
// through the brute-force guard, then bearer token issuance.
func (h *Handler) TokenLogin(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	// Authentication-adjacent input screens with the block policy.
	if h.filter.Scan(req.Username).Suspect() {
		threatDetectionsTotal.WithLabelValues(threat.PolicyBlock.String()).Inc()
		logging.Ctx(r.Context()).Warn().
			Str("endpoint", r.URL.Path).
			Str("policy", threat.PolicyBlock.String()).
			Msg("Threat pattern in login input")
		respondError(w, r, http.StatusBadRequest, ErrCodeThreatDetected, "Request rejected", nil)
		return
	}

	user, err := h.manager.Authenticate(r.Context(), clientAddress(r), req.Username, req.Password)
	if err != nil {
		h.respondAuthFailure(w, r, err)
		return
	}

	token, err := h.tokens.Issue(user.ID, user.Username, user.Email)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Token issuance failed")
		respondError(w, r, http.StatusInternalServerError, ErrCodeInternalError, "Internal error", nil)
		return
	}

	respond(w, r, http.StatusOK, &tokenResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresAt: time.Now().Add(h.tokens.TTL()).UTC(),
	})
}

// AdminLogin handles POST /admin/login: the session flow. On success the
// session cookie carries a freshly generated identifier and any prior CSRF
// token is gone with the old session.
func (h *Handler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	if h.filter.Scan(req.Username).Suspect() {
		threatDetectionsTotal.WithLabelValues(threat.PolicyBlock.String()).Inc()
		logging.Ctx(r.Context()).Warn().
			Str("endpoint", r.URL.Path).
			Str("policy", threat.PolicyBlock.String()).
			Msg("Threat pattern in login input")
		respondError(w, r, http.StatusBadRequest, ErrCodeThreatDetected, "Request rejected", nil)
		return
	}

	session, err := h.manager.Login(r.Context(), clientAddress(r), req.Username, req.Password)
	if err != nil {
		h.respondAuthFailure(w, r, err)
		return
	}

	http.SetCookie(w, h.sessionCookie(session.ID, session.ExpiresAt))

	respond(w, r, http.StatusOK, map[string]interface{}{
		"username":   session.Username,
		"expires_at": session.ExpiresAt.UTC(),
	})
}

// AdminLogout handles POST /admin/logout. CSRF-protected; terminates the
// session and instructs the client to drop the cookie.
func (h *Handler) AdminLogout(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFromContext(r.Context())
	if session == nil {
		respondError(w, r, http.StatusUnauthorized, ErrCodeUnauthorized, "Authentication required", nil)
		return
	}

	if err := h.manager.Logout(r.Context(), session.ID); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Logout failed")
		respondError(w, r, http.StatusInternalServerError, ErrCodeInternalError, "Internal error", nil)
		return
	}

	// Expire the cookie client-side.
	cookie := h.sessionCookie("", time.Unix(0, 0))
	cookie.MaxAge = -1
	http.SetCookie(w, cookie)

	respond(w, r, http.StatusOK, map[string]string{"status": "logged_out"})
}

// CSRFToken handles GET /admin/csrf: returns the session's current CSRF
// token, minting one on first access.
func (h *Handler) CSRFToken(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFromContext(r.Context())
	if session == nil {
		respondError(w, r, http.StatusUnauthorized, ErrCodeUnauthorized, "Authentication required", nil)
		return
	}

	token, err := h.manager.CSRFToken(r.Context(), session.ID)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("CSRF token retrieval failed")
		respondError(w, r, http.StatusUnauthorized, ErrCodeUnauthorized, "Authentication required", nil)
		return
	}

	respond(w, r, http.StatusOK, map[string]string{"csrf_token": token})
}

// respondAuthFailure maps an authentication error to the wire. Lockout is
// the only distinguishable rejection; every credential failure produces the
// identical generic message.
func (h *Handler) respondAuthFailure(w http.ResponseWriter, r *http.Request, err error) {
	var lockedErr *auth.LockedOutError
	if errors.As(err, &lockedErr) {
		w.Header().Set("Retry-After", fmt.Sprintf("%d", int(lockedErr.Remaining.Seconds())))
		respondError(w, r, http.StatusTooManyRequests, ErrCodeLockedOut,
			"Too many failed attempts, try again later", nil)
		return
	}

	respondError(w, r, http.StatusUnauthorized, ErrCodeUnauthorized, "Invalid credentials", nil)
}

// decodeAndValidate decodes a JSON body into dst and validates it,
// responding on failure.
func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "Malformed request body", nil)
		return false
	}

	if verr := validation.Struct(dst); verr != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeValidationFailed, verr.Error(), verr.Fields)
		return false
	}

	return true
}

// sessionCookie builds the admin session cookie.
func (h *Handler) sessionCookie(value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     h.cookieName,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		Secure:   h.cookieSecure,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	}
}

// clientAddress returns the client IP without the port. Chi's RealIP
// middleware has already resolved X-Forwarded-For upstream.
func clientAddress(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
