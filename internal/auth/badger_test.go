// Reelist - Movie Review Platform
// Copyright 2026 Reelist Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelist/reelist

package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
)

func openTestBadger(t *testing.T) *badger.DB {
	t.Helper()

	opts := badger.DefaultOptions(t.TempDir()).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		t.Fatalf("badger.Open: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("db.Close: %v", err)
		}
	})
	return db
}

func TestBadgerSessionStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewBadgerSessionStore(openTestBadger(t))

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Get missing = %v, want ErrSessionNotFound", err)
	}

	session := testSession("sess-1", time.Hour)
	if err := store.Create(ctx, session); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := store.Get(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Username != "admin" || got.UserID != 1 {
		t.Errorf("got %+v, want admin/1", got)
	}

	got.CSRFToken = "tok"
	if err := store.Update(ctx, got); err != nil {
		t.Fatalf("Update: %v", err)
	}

	updated, err := store.Get(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if updated.CSRFToken != "tok" {
		t.Errorf("CSRFToken = %q, want %q", updated.CSRFToken, "tok")
	}

	if err := store.Delete(ctx, "sess-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(ctx, "sess-1"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Get after Delete = %v, want ErrSessionNotFound", err)
	}
}

func TestBadgerSessionStoreRejectsExpiredWrite(t *testing.T) {
	ctx := context.Background()
	store := NewBadgerSessionStore(openTestBadger(t))

	err := store.Create(ctx, testSession("sess-old", -time.Minute))
	if !errors.Is(err, ErrSessionExpired) {
		t.Errorf("Create expired = %v, want ErrSessionExpired", err)
	}
}

func TestBadgerSessionStoreUpdateMissing(t *testing.T) {
	ctx := context.Background()
	store := NewBadgerSessionStore(openTestBadger(t))

	err := store.Update(ctx, testSession("ghost", time.Hour))
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Update missing = %v, want ErrSessionNotFound", err)
	}
}

func TestBadgerSessionStoreCleanupExpired(t *testing.T) {
	ctx := context.Background()
	store := NewBadgerSessionStore(openTestBadger(t))

	// Short-but-live TTL at write time; expired by the time of the sweep.
	soon := testSession("soon", 50*time.Millisecond)
	if err := store.Create(ctx, soon); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := store.Create(ctx, testSession("live", time.Hour)); err != nil {
		t.Fatalf("Create: %v", err)
	}

	time.Sleep(100 * time.Millisecond)

	// Badger's TTL may have already reclaimed the entry; either way no
	// expired session remains and the live one survives.
	if _, err := store.CleanupExpired(ctx); err != nil {
		t.Fatalf("CleanupExpired: %v", err)
	}

	if _, err := store.Get(ctx, "soon"); err == nil {
		t.Error("expired session still readable")
	}
	if _, err := store.Get(ctx, "live"); err != nil {
		t.Errorf("live session removed: %v", err)
	}
}

func TestBadgerCounterStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewBadgerCounterStore(openTestBadger(t), 15*time.Minute)

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, ErrCounterNotFound) {
		t.Errorf("Get missing = %v, want ErrCounterNotFound", err)
	}

	counter := &Counter{Subject: "abc", Failures: 3, LastFailure: time.Now().UTC()}
	if err := store.Save(ctx, counter); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.Get(ctx, "abc")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Failures != 3 {
		t.Errorf("Failures = %d, want 3", got.Failures)
	}

	if err := store.Delete(ctx, "abc"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(ctx, "abc"); !errors.Is(err, ErrCounterNotFound) {
		t.Errorf("Get after Delete = %v, want ErrCounterNotFound", err)
	}
}

func TestBadgerCounterStoreTTL(t *testing.T) {
	ctx := context.Background()
	store := NewBadgerCounterStore(openTestBadger(t), 50*time.Millisecond)

	counter := &Counter{Subject: "abc", Failures: 5, LastFailure: time.Now().UTC()}
	if err := store.Save(ctx, counter); err != nil {
		t.Fatalf("Save: %v", err)
	}

	time.Sleep(100 * time.Millisecond)

	if _, err := store.Get(ctx, "abc"); !errors.Is(err, ErrCounterNotFound) {
		t.Errorf("Get after TTL = %v, want ErrCounterNotFound", err)
	}
}

func TestGuardWithBadgerStore(t *testing.T) {
	ctx := context.Background()
	store := NewBadgerCounterStore(openTestBadger(t), 15*time.Minute)
	guard := newTestGuard(store)

	const addr = "203.0.113.7"

	for i := 0; i < 5; i++ {
		if err := guard.RecordFailure(ctx, addr); err != nil {
			t.Fatalf("RecordFailure: %v", err)
		}
	}

	locked, _, err := guard.Check(ctx, addr)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !locked {
		t.Fatal("not locked after 5 failures on badger store")
	}

	if err := guard.Clear(ctx, addr); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	locked, _, err = guard.Check(ctx, addr)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if locked {
		t.Error("locked after Clear")
	}
}
