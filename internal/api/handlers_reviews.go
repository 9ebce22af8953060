// Reelist - Movie Review Platform
// Copyright 2026 Reelist Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelist/reelist

package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/reelist/reelist/internal/auth"
	"github.com/reelist/reelist/internal/logging"
	"github.com/reelist/reelist/internal/models"
	"github.com/reelist/reelist/internal/store"
	"github.com/reelist/reelist/internal/threat"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// createReviewRequest is the payload for review submission.
type createReviewRequest struct {
	MovieID int64  `json:"movie_id" validate:"required,gt=0"`
	Title   string `json:"title" validate:"required,max=200"`
	Body    string `json:"body" validate:"required,max=10000"`
	Rating  int    `json:"rating" validate:"gte=1,lte=10"`
}

// reviewResponse is the wire representation of a review.
type reviewResponse struct {
	ID        string    `json:"id"`
	MovieID   int64     `json:"movie_id"`
	Author    string    `json:"author"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Rating    int       `json:"rating"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateReview handles POST /api/v1/reviews. Bearer-protected. Content runs
// through the threat filter with the flag policy: suspect reviews are
// accepted but held for moderation instead of being published.
func (h *Handler) CreateReview(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())
	if claims == nil {
		respondError(w, r, http.StatusUnauthorized, ErrCodeUnauthorized, "Authentication required", nil)
		return
	}

	var req createReviewRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	status := models.ReviewPublished
	verdict := h.filter.Scan(req.Title + "\n" + req.Body)
	if verdict.Suspect() {
		status = models.ReviewFlagged
		threatDetectionsTotal.WithLabelValues(threat.PolicyFlag.String()).Inc()
		logging.Ctx(r.Context()).Warn().
			Str("policy", threat.PolicyFlag.String()).
			Bool("sql_suspect", verdict.SQLSuspect).
			Bool("xss_suspect", verdict.XSSSuspect).
			Int64("user_id", claims.UserID).
			Msg("Review content flagged for moderation")
	}

	review := &models.Review{
		ID:        uuid.NewString(),
		MovieID:   req.MovieID,
		UserID:    claims.UserID,
		Author:    claims.Username,
		Title:     req.Title,
		Body:      req.Body,
		Rating:    req.Rating,
		Status:    status,
		CreatedAt: time.Now().UTC(),
	}

	if err := h.reviews.Create(r.Context(), review); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Review creation failed")
		respondError(w, r, http.StatusInternalServerError, ErrCodeInternalError, "Internal error", nil)
		return
	}

	respond(w, r, http.StatusCreated, toReviewResponse(review))
}

// ListReviews handles GET /api/v1/reviews: published reviews, newest first.
func (h *Handler) ListReviews(w http.ResponseWriter, r *http.Request) {
	h.listByStatus(w, r, models.ReviewPublished)
}

// ListFlaggedReviews handles GET /admin/reviews/flagged: the moderation
// queue for the admin panel.
func (h *Handler) ListFlaggedReviews(w http.ResponseWriter, r *http.Request) {
	h.listByStatus(w, r, models.ReviewFlagged)
}

func (h *Handler) listByStatus(w http.ResponseWriter, r *http.Request, status models.ReviewStatus) {
	offset, limit := paginationParams(r)

	reviews, total, err := h.reviews.List(r.Context(), status, offset, limit)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Review listing failed")
		respondError(w, r, http.StatusInternalServerError, ErrCodeInternalError, "Internal error", nil)
		return
	}

	payload := make([]*reviewResponse, len(reviews))
	for i, review := range reviews {
		payload[i] = toReviewResponse(review)
	}

	respondMeta(w, r, http.StatusOK, payload, &Pagination{
		Total:   total,
		Count:   len(payload),
		Offset:  offset,
		Limit:   limit,
		HasMore: offset+len(payload) < total,
	})
}

// ApproveReview handles POST /admin/reviews/{id}/approve: publishes a
// flagged review.
func (h *Handler) ApproveReview(w http.ResponseWriter, r *http.Request) {
	h.moderate(w, r, models.ReviewPublished)
}

// RejectReview handles POST /admin/reviews/{id}/reject: rejects a flagged
// review.
func (h *Handler) RejectReview(w http.ResponseWriter, r *http.Request) {
	h.moderate(w, r, models.ReviewRejected)
}

func (h *Handler) moderate(w http.ResponseWriter, r *http.Request, status models.ReviewStatus) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "Missing review id", nil)
		return
	}

	if err := h.reviews.SetStatus(r.Context(), id, status); err != nil {
		if errors.Is(err, store.ErrReviewNotFound) {
			respondError(w, r, http.StatusNotFound, ErrCodeNotFound, "Review not found", nil)
			return
		}
		logging.Ctx(r.Context()).Error().Err(err).Str("review_id", id).Msg("Review moderation failed")
		respondError(w, r, http.StatusInternalServerError, ErrCodeInternalError, "Internal error", nil)
		return
	}

	logging.Ctx(r.Context()).Info().
		Str("review_id", id).
		Str("status", string(status)).
		Msg("Review moderated")

	respond(w, r, http.StatusOK, map[string]string{"id": id, "status": string(status)})
}

func toReviewResponse(review *models.Review) *reviewResponse {
	return &reviewResponse{
		ID:        review.ID,
		MovieID:   review.MovieID,
		Author:    review.Author,
		Title:     review.Title,
		Body:      review.Body,
		Rating:    review.Rating,
		Status:    string(review.Status),
		CreatedAt: review.CreatedAt,
	}
}

// paginationParams parses offset/limit query parameters with clamped
// defaults.
func paginationParams(r *http.Request) (offset, limit int) {
	limit = defaultPageLimit

	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	return offset, limit
}
