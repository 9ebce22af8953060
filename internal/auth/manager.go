// Reelist - Movie Review Platform
// Copyright 2026 Reelist Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelist/reelist

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/reelist/reelist/internal/logging"
	"github.com/reelist/reelist/internal/models"
	"github.com/reelist/reelist/internal/store"
)

// ErrInvalidCredentials is returned for every credential failure. The same
// error covers "no such user" and "wrong password" so responses cannot be
// used to enumerate accounts.
var ErrInvalidCredentials = errors.New("invalid credentials")

// LockedOutError reports a lockout rejection with retry-after semantics.
// Unlike credential failures it is distinguishable to the caller, since it
// leaks nothing about credential validity.
type LockedOutError struct {
	Remaining time.Duration
}

func (e *LockedOutError) Error() string {
	return fmt.Sprintf("%v: retry in %v", ErrLockedOut, e.Remaining.Round(time.Second))
}

func (e *LockedOutError) Unwrap() error { return ErrLockedOut }

// Manager orchestrates the admin login flow and the CSRF token lifecycle.
//
// Login walks the session state machine: lockout check first (a locked
// address is rejected before any hashing work, avoiding wasted cycles and
// timing signals), then credential verification, then session
// establishment with a regenerated identifier.
type Manager struct {
	users    store.UserStore
	hasher   *PasswordHasher
	guard    *Guard
	sessions SessionStore

	sessionTTL   time.Duration
	storeTimeout time.Duration
}

// NewManager creates a session trust manager.
func NewManager(users store.UserStore, hasher *PasswordHasher, guard *Guard, sessions SessionStore, sessionTTL, storeTimeout time.Duration) *Manager {
	return &Manager{
		users:        users,
		hasher:       hasher,
		guard:        guard,
		sessions:     sessions,
		sessionTTL:   sessionTTL,
		storeTimeout: storeTimeout,
	}
}

// Authenticate runs the shared credential flow: lockout check, user lookup,
// password verification, counter bookkeeping. It is used by both the admin
// login (which then establishes a session) and the API token endpoint
// (which then issues a bearer token).
//
// Returns *LockedOutError when the address is locked, ErrInvalidCredentials
// for unknown users and wrong passwords alike.
func (m *Manager) Authenticate(ctx context.Context, address, username, password string) (*models.User, error) {
	storeCtx, cancel := context.WithTimeout(ctx, m.storeTimeout)
	defer cancel()

	locked, remaining, err := m.guard.Check(storeCtx, address)
	if err != nil {
		// Fail closed: counter store trouble is reported as locked.
		logging.Ctx(ctx).Error().Err(err).Msg("Lockout check failed")
		return nil, &LockedOutError{Remaining: remaining}
	}
	if locked {
		loginAttemptsTotal.WithLabelValues("locked").Inc()
		logging.Ctx(ctx).Warn().
			Str("subject", SubjectKey(address)).
			Msg("Login rejected: address locked out")
		return nil, &LockedOutError{Remaining: remaining}
	}

	user, err := m.users.GetByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, store.ErrUserNotFound) {
			logging.Ctx(ctx).Error().Err(err).Msg("User lookup failed")
		}
		return nil, m.fail(ctx, address)
	}

	if !m.hasher.Verify(password, user.PasswordHash) {
		return nil, m.fail(ctx, address)
	}

	clearCtx, cancelClear := context.WithTimeout(ctx, m.storeTimeout)
	defer cancelClear()
	if err := m.guard.Clear(clearCtx, address); err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("Failed to clear lockout counter")
	}

	loginAttemptsTotal.WithLabelValues("success").Inc()
	return user, nil
}

// fail records a failed attempt and returns the generic credential error.
// The failure is logged with the address digest and timestamp, never the
// attempted password.
func (m *Manager) fail(ctx context.Context, address string) error {
	storeCtx, cancel := context.WithTimeout(ctx, m.storeTimeout)
	defer cancel()

	if err := m.guard.RecordFailure(storeCtx, address); err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("Failed to record login failure")
	}

	loginAttemptsTotal.WithLabelValues("failure").Inc()
	logging.Ctx(ctx).Warn().
		Str("subject", SubjectKey(address)).
		Time("at", time.Now()).
		Msg("Login failed")

	return ErrInvalidCredentials
}

// Login authenticates an admin and establishes a fresh session.
// The session identifier is newly generated (fixation mitigation) and the
// session starts with no CSRF token; the first CSRFToken call mints one.
func (m *Manager) Login(ctx context.Context, address, username, password string) (*Session, error) {
	user, err := m.Authenticate(ctx, address, username, password)
	if err != nil {
		return nil, err
	}

	id, err := NewSessionID()
	if err != nil {
		return nil, fmt.Errorf("generate session id: %w", err)
	}

	now := time.Now()
	session := &Session{
		ID:        id,
		UserID:    user.ID,
		Username:  user.Username,
		Email:     user.Email,
		CreatedAt: now,
		ExpiresAt: now.Add(m.sessionTTL),
	}

	storeCtx, cancel := context.WithTimeout(ctx, m.storeTimeout)
	defer cancel()
	if err := m.sessions.Create(storeCtx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	logging.Ctx(ctx).Info().
		Str("username", user.Username).
		Msg("Admin session established")

	return session, nil
}

// Logout terminates a session: all attributes are discarded with the store
// entry and the caller instructs the client to drop the cookie.
func (m *Manager) Logout(ctx context.Context, sessionID string) error {
	storeCtx, cancel := context.WithTimeout(ctx, m.storeTimeout)
	defer cancel()

	if err := m.sessions.Delete(storeCtx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Session loads a live session by ID. Store errors and expired or missing
// sessions are unauthenticated.
func (m *Manager) Session(ctx context.Context, sessionID string) (*Session, error) {
	storeCtx, cancel := context.WithTimeout(ctx, m.storeTimeout)
	defer cancel()

	return m.sessions.Get(storeCtx, sessionID)
}
