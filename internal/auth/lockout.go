// Reelist - Movie Review Platform
// Copyright 2026 Reelist Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelist/reelist

package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/reelist/reelist/internal/config"
	"github.com/reelist/reelist/internal/logging"
)

var (
	// ErrCounterNotFound is returned when no failure counter exists for a
	// subject.
	ErrCounterNotFound = errors.New("lockout counter not found")

	// ErrLockedOut is returned when authentication is blocked because the
	// address exceeded the failure threshold inside the window.
	ErrLockedOut = errors.New("too many failed attempts")
)

// Counter tracks failed authentication attempts for one subject key.
// The subject is a non-reversible digest of the client address, never the
// raw address.
type Counter struct {
	Subject     string    `json:"subject"`
	Failures    int       `json:"failures"`
	LastFailure time.Time `json:"last_failure"`
}

// CounterStore persists lockout counters. Implementations must be safe for
// concurrent use; the Guard serializes read-increment-write cycles per key
// on top of it.
type CounterStore interface {
	// Get retrieves a counter by subject key.
	// Returns ErrCounterNotFound if absent.
	Get(ctx context.Context, subject string) (*Counter, error)

	// Save persists a counter.
	Save(ctx context.Context, counter *Counter) error

	// Delete removes a counter. Absent counters are not an error.
	Delete(ctx context.Context, subject string) error
}

// Guard enforces brute-force lockout per client address.
//
// The window is a lazy sliding span: a counter whose last failure is older
// than the window counts as zero regardless of its stored value, so no
// background sweep is needed for correctness. An address is locked when
// Failures >= MaxAttempts and the window has not elapsed.
//
// Store errors fail closed: an unreadable counter is reported as locked.
type Guard struct {
	store       CounterStore
	maxAttempts int
	window      time.Duration
	enabled     bool

	// now is the clock, injectable for window tests.
	now func() time.Time

	// keyLocks serializes the read-increment-write cycle per subject so
	// parallel failures from one address cannot lose updates and slip past
	// the threshold. Different subjects never contend.
	mu       sync.Mutex
	keyLocks map[string]*sync.Mutex
}

// NewGuard creates a brute-force guard over the given counter store.
func NewGuard(store CounterStore, cfg *config.LockoutConfig) *Guard {
	return &Guard{
		store:       store,
		maxAttempts: cfg.MaxAttempts,
		window:      cfg.Window,
		enabled:     cfg.Enabled,
		now:         time.Now,
		keyLocks:    make(map[string]*sync.Mutex),
	}
}

// SubjectKey derives the non-reversible store key for a client address.
// Raw addresses are never persisted.
func SubjectKey(address string) string {
	sum := sha256.Sum256([]byte(address))
	return hex.EncodeToString(sum[:])
}

// Check reports whether the address is currently locked out and, if so,
// how long until the window elapses.
func (g *Guard) Check(ctx context.Context, address string) (locked bool, remaining time.Duration, err error) {
	if !g.enabled {
		return false, 0, nil
	}

	subject := SubjectKey(address)

	counter, err := g.store.Get(ctx, subject)
	if err != nil {
		if errors.Is(err, ErrCounterNotFound) {
			return false, 0, nil
		}
		// Fail closed: an unreadable counter store must not admit logins.
		return true, g.window, fmt.Errorf("read counter: %w", err)
	}

	return g.evaluate(counter)
}

// evaluate applies the window semantics to a counter.
func (g *Guard) evaluate(counter *Counter) (bool, time.Duration, error) {
	elapsed := g.now().Sub(counter.LastFailure)
	if elapsed > g.window {
		// Window elapsed: stored count is stale and treated as zero.
		return false, 0, nil
	}

	if counter.Failures >= g.maxAttempts {
		return true, g.window - elapsed, nil
	}

	return false, 0, nil
}

// RecordFailure increments the failure counter for the address and stamps
// the failure time. A counter whose window has elapsed restarts from one.
func (g *Guard) RecordFailure(ctx context.Context, address string) error {
	if !g.enabled {
		return nil
	}

	subject := SubjectKey(address)

	lock := g.lockFor(subject)
	lock.Lock()
	defer lock.Unlock()

	counter, err := g.store.Get(ctx, subject)
	if err != nil && !errors.Is(err, ErrCounterNotFound) {
		return fmt.Errorf("read counter: %w", err)
	}

	now := g.now()
	if counter == nil || now.Sub(counter.LastFailure) > g.window {
		counter = &Counter{Subject: subject}
	}

	counter.Failures++
	counter.LastFailure = now

	if err := g.store.Save(ctx, counter); err != nil {
		return fmt.Errorf("save counter: %w", err)
	}

	if counter.Failures >= g.maxAttempts {
		lockoutsTotal.Inc()
		logging.Warn().
			Str("subject", subject).
			Int("failures", counter.Failures).
			Dur("window", g.window).
			Msg("Address locked out")
	}

	return nil
}

// Clear resets the failure counter for the address. Called on successful
// authentication.
func (g *Guard) Clear(ctx context.Context, address string) error {
	if !g.enabled {
		return nil
	}

	subject := SubjectKey(address)

	lock := g.lockFor(subject)
	lock.Lock()
	defer lock.Unlock()

	if err := g.store.Delete(ctx, subject); err != nil && !errors.Is(err, ErrCounterNotFound) {
		return fmt.Errorf("clear counter: %w", err)
	}

	return nil
}

// Window returns the configured lockout window.
func (g *Guard) Window() time.Duration {
	return g.window
}

// lockFor returns the per-subject mutex, creating it on first use.
func (g *Guard) lockFor(subject string) *sync.Mutex {
	g.mu.Lock()
	defer g.mu.Unlock()

	lock, ok := g.keyLocks[subject]
	if !ok {
		lock = &sync.Mutex{}
		g.keyLocks[subject] = lock
	}
	return lock
}

// MemoryCounterStore implements CounterStore in memory. Suitable for
// development and tests; production uses BadgerCounterStore.
type MemoryCounterStore struct {
	mu       sync.RWMutex
	counters map[string]*Counter
}

// NewMemoryCounterStore creates an in-memory counter store.
func NewMemoryCounterStore() *MemoryCounterStore {
	return &MemoryCounterStore{counters: make(map[string]*Counter)}
}

// Get retrieves a counter.
func (s *MemoryCounterStore) Get(ctx context.Context, subject string) (*Counter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counter, ok := s.counters[subject]
	if !ok {
		return nil, ErrCounterNotFound
	}

	copied := *counter
	return &copied, nil
}

// Save persists a counter.
func (s *MemoryCounterStore) Save(ctx context.Context, counter *Counter) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *counter
	s.counters[counter.Subject] = &copied
	return nil
}

// Delete removes a counter.
func (s *MemoryCounterStore) Delete(ctx context.Context, subject string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.counters, subject)
	return nil
}
