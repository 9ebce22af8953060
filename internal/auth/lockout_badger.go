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

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

const counterKeyPrefix = "lockout:"

// BadgerCounterStore implements CounterStore on BadgerDB with TTL-expired
// entries. Entries older than the lockout window are equivalent to a zero
// counter, so the entry TTL equals the window and the database garbage
// collects stale counters without a sweep.
type BadgerCounterStore struct {
	db  *badger.DB
	ttl time.Duration
}

// NewBadgerCounterStore creates a BadgerDB-backed counter store whose
// entries expire after the given lockout window.
func NewBadgerCounterStore(db *badger.DB, window time.Duration) *BadgerCounterStore {
	return &BadgerCounterStore{db: db, ttl: window}
}

// Get retrieves a counter by subject key.
func (s *BadgerCounterStore) Get(ctx context.Context, subject string) (*Counter, error) {
	var counter Counter

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(counterKeyPrefix + subject))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrCounterNotFound
		}
		if err != nil {
			return fmt.Errorf("get counter: %w", err)
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &counter)
		})
	})
	if err != nil {
		return nil, err
	}

	return &counter, nil
}

// Save persists a counter with the window TTL.
func (s *BadgerCounterStore) Save(ctx context.Context, counter *Counter) error {
	data, err := json.Marshal(counter)
	if err != nil {
		return fmt.Errorf("marshal counter: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(counterKeyPrefix+counter.Subject), data).WithTTL(s.ttl)
		return txn.SetEntry(entry)
	})
}

// Delete removes a counter.
func (s *BadgerCounterStore) Delete(ctx context.Context, subject string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(counterKeyPrefix + subject))
	})
}
