package handler

import (
	"presenter-studio/internal/models"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Code    string        `json:"code"`
	Message string        `json:"message"`
	Details *errorDetails `json:"details,omitempty"`
}

type errorDetails struct {
	Reason       string `json:"reason,omitempty"`
	SegmentIndex *int   `json:"segment_index,omitempty"`
	Words        int    `json:"words,omitempty"`
	MaxWords     int    `json:"max_words,omitempty"`
	Retryable    bool   `json:"retryable"`
}

// Error codes.
const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeValidation       = "validation_failed"
	ErrCodePresenterUnknown = "presenter_not_found"
	ErrCodeSessionNotFound  = "session_not_found"
	ErrCodeInvalidState     = "invalid_state"
	ErrCodeSessionBusy      = "session_busy"
	ErrCodeRejected         = "provider_rejected"
	ErrCodeThrottled        = "provider_throttled"
	ErrCodeTimeout          = "provider_timeout"
	ErrCodeStorage          = "storage_failed"
	ErrCodeAssembly         = "assembly_failed"
	ErrCodeInternal         = "internal_error"
)

type presentersResponse struct {
	Version    string                    `json:"version"`
	Presenters []models.PresenterProfile `json:"presenters"`
}

type sessionsResponse struct {
	Sessions []*models.Session `json:"sessions"`
}

// segmentResponse pairs the outcome of one segment call with its record.
type segmentResponse struct {
	SessionID string                `json:"session_id"`
	Segment   *models.SegmentRecord `json:"segment"`
}
