// Reelist - Movie Review Platform
// Copyright 2026 Reelist Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelist/reelist

// Package models defines the domain types shared across Reelist packages.
package models

import "time"

// User is a registered account. PasswordHash is a bcrypt digest; the
// plaintext password never leaves the login handler.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	IsAdmin      bool      `json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
}

// ReviewStatus is the moderation state of a review.
type ReviewStatus string

const (
	// ReviewPublished is visible to everyone.
	ReviewPublished ReviewStatus = "published"

	// ReviewFlagged was accepted but matched a threat pattern and awaits
	// moderation.
	ReviewFlagged ReviewStatus = "flagged"

	// ReviewRejected was removed by a moderator.
	ReviewRejected ReviewStatus = "rejected"
)

// Review is a user-submitted movie review.
type Review struct {
	ID        string       `json:"id"`
	MovieID   int64        `json:"movie_id"`
	UserID    int64        `json:"user_id"`
	Author    string       `json:"author"`
	Title     string       `json:"title"`
	Body      string       `json:"body"`
	Rating    int          `json:"rating"`
	Status    ReviewStatus `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
}

// Movie is a catalog entry. Catalog management lives in the relational
// collaborator; the type exists for review listings.
type Movie struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Year     int    `json:"year"`
	Director string `json:"director"`
}
