// Reelist - Movie Review Platform
// Copyright 2026 Reelist Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelist/reelist

// Package store defines the persistence seams for users and reviews.
//
// The relational layer (schema, SQL, migrations) is an external
// collaborator behind these interfaces; the in-memory implementations make
// the trust boundary exercisable end to end in tests and development.
package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/reelist/reelist/internal/models"
)

var (
	// ErrUserNotFound is returned when no user matches the query.
	ErrUserNotFound = errors.New("user not found")

	// ErrReviewNotFound is returned when no review matches the query.
	ErrReviewNotFound = errors.New("review not found")
)

// UserStore persists user accounts.
type UserStore interface {
	// GetByUsername retrieves a user by username.
	// Returns ErrUserNotFound if absent.
	GetByUsername(ctx context.Context, username string) (*models.User, error)

	// Create stores a new user and assigns its ID.
	Create(ctx context.Context, user *models.User) error
}

// ReviewStore persists reviews.
type ReviewStore interface {
	// Create stores a new review.
	Create(ctx context.Context, review *models.Review) error

	// Get retrieves a review by ID.
	// Returns ErrReviewNotFound if absent.
	Get(ctx context.Context, id string) (*models.Review, error)

	// List returns reviews with the given status, newest first, using
	// offset pagination. Total is the full count for the status.
	List(ctx context.Context, status models.ReviewStatus, offset, limit int) (reviews []*models.Review, total int, err error)

	// SetStatus updates a review's moderation status.
	// Returns ErrReviewNotFound if absent.
	SetStatus(ctx context.Context, id string, status models.ReviewStatus) error
}

// MemoryUserStore is an in-memory UserStore.
type MemoryUserStore struct {
	mu     sync.RWMutex
	users  map[string]*models.User
	nextID int64
}

// NewMemoryUserStore creates an empty in-memory user store.
func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{users: make(map[string]*models.User), nextID: 1}
}

// GetByUsername retrieves a user by username.
func (s *MemoryUserStore) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[username]
	if !ok {
		return nil, ErrUserNotFound
	}

	copied := *user
	return &copied, nil
}

// Create stores a new user and assigns its ID.
func (s *MemoryUserStore) Create(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.Username]; ok {
		return errors.New("username already exists")
	}

	user.ID = s.nextID
	s.nextID++
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}

	copied := *user
	s.users[user.Username] = &copied
	return nil
}

// MemoryReviewStore is an in-memory ReviewStore.
type MemoryReviewStore struct {
	mu      sync.RWMutex
	reviews map[string]*models.Review
}

// NewMemoryReviewStore creates an empty in-memory review store.
func NewMemoryReviewStore() *MemoryReviewStore {
	return &MemoryReviewStore{reviews: make(map[string]*models.Review)}
}

// Create stores a new review.
func (s *MemoryReviewStore) Create(ctx context.Context, review *models.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *review
	s.reviews[review.ID] = &copied
	return nil
}

// Get retrieves a review by ID.
func (s *MemoryReviewStore) Get(ctx context.Context, id string) (*models.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	review, ok := s.reviews[id]
	if !ok {
		return nil, ErrReviewNotFound
	}

	copied := *review
	return &copied, nil
}

// List returns reviews with the given status, newest first.
func (s *MemoryReviewStore) List(ctx context.Context, status models.ReviewStatus, offset, limit int) ([]*models.Review, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*models.Review
	for _, review := range s.reviews {
		if review.Status == status {
			copied := *review
			matched = append(matched, &copied)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	if offset >= total {
		return nil, total, nil
	}

	end := offset + limit
	if end > total {
		end = total
	}

	return matched[offset:end], total, nil
}

// SetStatus updates a review's moderation status.
func (s *MemoryReviewStore) SetStatus(ctx context.Context, id string, status models.ReviewStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	review, ok := s.reviews[id]
	if !ok {
		return ErrReviewNotFound
	}

	review.Status = status
	return nil
}
