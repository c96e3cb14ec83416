// Colligo - Social Feed Assembly and Engagement Caching
// Copyright 2026 Colligo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/colligo-dev/colligo

// Package api provides the HTTP surface of the feed and engagement service.
package api

import (
	"net/http"
	"time"

	json "github.com/goccy/go-json"

	"github.com/colligo-dev/colligo/internal/logging"
	"github.com/colligo-dev/colligo/internal/models"
	"github.com/colligo-dev/colligo/internal/validation"
)

// Error codes used in API responses.
const (
	ErrCodeValidation  = "VALIDATION_ERROR"
	ErrCodeNotFound    = "NOT_FOUND"
	ErrCodeConflict    = "CONFLICT"
	ErrCodeInternal    = "INTERNAL_ERROR"
	ErrCodeUnavailable = "SERVICE_UNAVAILABLE"
)

// responseWriter builds responses in the standard envelope and tracks query
// time from its creation.
type responseWriter struct {
	w     http.ResponseWriter
	r     *http.Request
	start time.Time
}

func newResponseWriter(w http.ResponseWriter, r *http.Request) *responseWriter {
	return &responseWriter{w: w, r: r, start: time.Now()}
}

func (rw *responseWriter) metadata(cached bool) models.Metadata {
	return models.Metadata{
		Timestamp:   time.Now().UTC(),
		QueryTimeMS: time.Since(rw.start).Milliseconds(),
		Cached:      cached,
	}
}

// Success writes a 200 response with the payload.
func (rw *responseWriter) Success(data interface{}) {
	rw.writeJSON(http.StatusOK, models.APIResponse{
		Status:   "success",
		Data:     data,
		Metadata: rw.metadata(false),
	})
}

// SuccessCached writes a 200 response marking the payload as cache-served.
func (rw *responseWriter) SuccessCached(data interface{}, cached bool) {
	rw.writeJSON(http.StatusOK, models.APIResponse{
		Status:   "success",
		Data:     data,
		Metadata: rw.metadata(cached),
	})
}

// Created writes a 201 response with the payload.
func (rw *responseWriter) Created(data interface{}) {
	rw.writeJSON(http.StatusCreated, models.APIResponse{
		Status:   "success",
		Data:     data,
		Metadata: rw.metadata(false),
	})
}

// Error writes an error response with the given status and code.
func (rw *responseWriter) Error(status int, code, message string) {
	rw.writeJSON(status, models.APIResponse{
		Status:   "error",
		Metadata: rw.metadata(false),
		Error:    &models.APIError{Code: code, Message: message},
	})
}

// ValidationError writes a 400 response carrying per-field details.
func (rw *responseWriter) ValidationError(verr *validation.RequestValidationError) {
	apiErr := verr.ToAPIError()
	rw.writeJSON(http.StatusBadRequest, models.APIResponse{
		Status:   "error",
		Metadata: rw.metadata(false),
		Error: &models.APIError{
			Code:    apiErr.Code,
			Message: apiErr.Message,
			Details: apiErr.Details,
		},
	})
}

func (rw *responseWriter) NotFound(message string) {
	rw.Error(http.StatusNotFound, ErrCodeNotFound, message)
}

func (rw *responseWriter) BadRequest(message string) {
	rw.Error(http.StatusBadRequest, ErrCodeValidation, message)
}

func (rw *responseWriter) InternalError(message string) {
	rw.Error(http.StatusInternalServerError, ErrCodeInternal, message)
}

func (rw *responseWriter) writeJSON(status int, body models.APIResponse) {
	rw.w.Header().Set("Content-Type", "application/json; charset=utf-8")
	rw.w.WriteHeader(status)
	if err := json.NewEncoder(rw.w).Encode(body); err != nil {
		logging.Ctx(rw.r.Context()).Error().Err(err).Msg("encode response failed")
	}
}
