// Reelist - Movie Review Platform
// Copyright 2026 Reelist Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelist/reelist

package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
)

// csrfTokenBytes is the entropy of a CSRF token before encoding.
const csrfTokenBytes = 32

// generateCSRFToken returns a cryptographically random token,
// base64url-encoded without padding.
func generateCSRFToken() (string, error) {
	buf := make([]byte, csrfTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// CSRFToken returns the session's current CSRF token, minting one lazily on
// first access. Repeated calls within a session return the same value.
func (m *Manager) CSRFToken(ctx context.Context, sessionID string) (string, error) {
	storeCtx, cancel := context.WithTimeout(ctx, m.storeTimeout)
	defer cancel()

	session, err := m.sessions.Get(storeCtx, sessionID)
	if err != nil {
		return "", err
	}

	if session.CSRFToken != "" {
		return session.CSRFToken, nil
	}

	token, err := generateCSRFToken()
	if err != nil {
		return "", fmt.Errorf("generate csrf token: %w", err)
	}

	session.CSRFToken = token
	if err := m.sessions.Update(storeCtx, session); err != nil {
		return "", fmt.Errorf("store csrf token: %w", err)
	}

	return token, nil
}

// CSRFVerify reports whether candidate matches the session's current CSRF
// token, using a constant-time comparison. A session that has never been
// issued a token fails every verification (fail closed), as does any store
// or session error.
func (m *Manager) CSRFVerify(ctx context.Context, sessionID, candidate string) bool {
	storeCtx, cancel := context.WithTimeout(ctx, m.storeTimeout)
	defer cancel()

	session, err := m.sessions.Get(storeCtx, sessionID)
	if err != nil {
		return false
	}

	if session.CSRFToken == "" || candidate == "" {
		return false
	}

	return subtle.ConstantTimeCompare([]byte(session.CSRFToken), []byte(candidate)) == 1
}
