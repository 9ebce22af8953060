// Reelist - Movie Review Platform
// Copyright 2026 Reelist Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelist/reelist

// Package api provides the HTTP surface of Reelist: routing, the
// standardized response envelope, and the auth, review and moderation
// handlers.
package api

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/reelist/reelist/internal/logging"
)

// Response is the standardized envelope for all API endpoints.
type Response struct {
	// Success indicates whether the request was successful.
	Success bool `json:"success"`

	// Data contains the response payload (null on error).
	Data interface{} `json:"data,omitempty"`

	// Error contains error details (null on success).
	Error *Error `json:"error,omitempty"`

	// Meta contains optional response metadata.
	Meta *Meta `json:"meta,omitempty"`
}

// Error is a machine-readable error payload.
type Error struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
}

// Meta carries response metadata.
type Meta struct {
	Timestamp  time.Time   `json:"timestamp"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// Pagination describes an offset-paginated list response.
type Pagination struct {
	Total   int  `json:"total"`
	Count   int  `json:"count"`
	Offset  int  `json:"offset"`
	Limit   int  `json:"limit"`
	HasMore bool `json:"has_more"`
}

// Error codes for API responses.
const (
	ErrCodeBadRequest       = "BAD_REQUEST"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeForbidden        = "FORBIDDEN"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeLockedOut        = "LOCKED_OUT"
	ErrCodeValidationFailed = "VALIDATION_FAILED"
	ErrCodeThreatDetected   = "REQUEST_REJECTED"
	ErrCodeInternalError    = "INTERNAL_ERROR"
)

// respond writes a success envelope.
func respond(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	respondMeta(w, r, status, data, nil)
}

// respondMeta writes a success envelope with metadata.
func respondMeta(w http.ResponseWriter, r *http.Request, status int, data interface{}, pagination *Pagination) {
	writeJSON(w, r, status, &Response{
		Success: true,
		Data:    data,
		Meta: &Meta{
			Timestamp:  time.Now().UTC(),
			Pagination: pagination,
		},
	})
}

// respondError writes an error envelope. Messages must stay generic for
// authentication failures; details are for validation feedback only.
func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string, details interface{}) {
	writeJSON(w, r, status, &Response{
		Success: false,
		Error: &Error{
			Code:      code,
			Message:   message,
			Details:   details,
			RequestID: logging.RequestIDFromContext(r.Context()),
		},
	})
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Failed to encode response")
	}
}
