// Reelist - Movie Review Platform
// Copyright 2026 Reelist Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelist/reelist

package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/reelist/reelist/internal/logging"
)

type contextKey string

const (
	claimsContextKey  contextKey = "auth_claims"
	sessionContextKey contextKey = "auth_session"
)

// ClaimsFromContext returns the bearer token claims attached by
// RequireBearer, or nil.
func ClaimsFromContext(ctx context.Context) *Claims {
	if claims, ok := ctx.Value(claimsContextKey).(*Claims); ok {
		return claims
	}
	return nil
}

// SessionFromContext returns the admin session attached by RequireSession,
// or nil.
func SessionFromContext(ctx context.Context) *Session {
	if session, ok := ctx.Value(sessionContextKey).(*Session); ok {
		return session
	}
	return nil
}

// RequireBearer returns middleware that verifies the Authorization bearer
// token and attaches its claims to the request context. Every verification
// failure produces the same 401 response.
func RequireBearer(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := bearerToken(r)
			if tokenString == "" {
				writeUnauthorized(w)
				return
			}

			claims, err := tokens.Verify(tokenString)
			if err != nil {
				tokenVerifyFailuresTotal.Inc()
				logging.Ctx(r.Context()).Warn().
					Str("endpoint", r.URL.Path).
					Msg("Bearer token rejected")
				writeUnauthorized(w)
				return
			}

			ctx := context.WithValue(r.Context(), claimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireSession returns middleware that loads the admin session named by
// the cookie and attaches it to the request context. Missing, expired or
// unreadable sessions are unauthenticated.
func RequireSession(manager *Manager, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(cookieName)
			if err != nil || cookie.Value == "" {
				writeUnauthorized(w)
				return
			}

			session, err := manager.Session(r.Context(), cookie.Value)
			if err != nil {
				writeUnauthorized(w)
				return
			}

			ctx := context.WithValue(r.Context(), sessionContextKey, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireCSRF returns middleware that validates the CSRF token on
// state-changing admin requests. Safe methods pass through. The candidate
// token is read from the X-CSRF-Token header or the csrf_token form field
// and compared against the session's current token; sessions without a
// token fail closed. Must run after RequireSession.
func RequireCSRF(manager *Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
				next.ServeHTTP(w, r)
				return
			}

			session := SessionFromContext(r.Context())
			if session == nil {
				writeUnauthorized(w)
				return
			}

			candidate := r.Header.Get("X-CSRF-Token")
			if candidate == "" {
				//nolint:errcheck // best effort form parsing
				r.ParseForm()
				candidate = r.FormValue("csrf_token")
			}

			if !manager.CSRFVerify(r.Context(), session.ID, candidate) {
				logging.Ctx(r.Context()).Warn().
					Str("endpoint", r.URL.Path).
					Msg("CSRF verification failed")
				writeForbidden(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// bearerToken extracts the token from the Authorization header, or "".
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}

func writeUnauthorized(w http.ResponseWriter) {
	writeAuthError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
}

func writeForbidden(w http.ResponseWriter) {
	writeAuthError(w, http.StatusForbidden, "FORBIDDEN", "CSRF validation failed")
}

func writeAuthError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	//nolint:errcheck // error response
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error":   map[string]string{"code": code, "message": message},
	})
}
