package models

import (
	"context"
	"errors"
	"fmt"
)

// Pipeline error taxonomy. Callers match with errors.Is.
var (
	ErrValidation     = errors.New("validation error")
	ErrThrottled      = errors.New("provider throttled")
	ErrTimeout        = errors.New("provider timeout")
	ErrRejected       = errors.New("provider rejected")
	ErrDownloadFailed = errors.New("download failed")
	ErrStorage        = errors.New("storage error")
	ErrAssembly       = errors.New("assembly error")

	ErrSessionNotFound   = errors.New("session not found")
	ErrInvalidState      = errors.New("invalid session state")
	ErrSessionBusy       = errors.New("session is busy")
	ErrPresenterNotFound = errors.New("presenter not found")
	ErrIndexOutOfRange   = errors.New("segment index out of range")
)

// ErrorKind is the serializable class of a pipeline error.
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindThrottled  ErrorKind = "throttled"
	KindTimeout    ErrorKind = "timeout"
	KindRejected   ErrorKind = "rejected"
	KindIO         ErrorKind = "io"
	KindAssembly   ErrorKind = "assembly"
	KindState      ErrorKind = "state"
	KindInternal   ErrorKind = "internal"
)

// KindOf classifies err into the pipeline taxonomy.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation), errors.Is(err, ErrPresenterNotFound), errors.Is(err, ErrIndexOutOfRange):
		return KindValidation
	case errors.Is(err, ErrThrottled):
		return KindThrottled
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, ErrRejected):
		return KindRejected
	case errors.Is(err, ErrDownloadFailed), errors.Is(err, ErrStorage):
		return KindIO
	case errors.Is(err, ErrAssembly):
		return KindAssembly
	case errors.Is(err, ErrInvalidState), errors.Is(err, ErrSessionBusy), errors.Is(err, ErrSessionNotFound):
		return KindState
	default:
		return KindInternal
	}
}

// Retryable reports whether an error of this kind may succeed when the same
// phase is invoked again with unchanged input.
func (k ErrorKind) Retryable() bool {
	switch k {
	case KindThrottled, KindTimeout, KindIO, KindAssembly:
		return true
	default:
		return false
	}
}

// IsRetryable is a shortcut for KindOf(err).Retryable().
func IsRetryable(err error) bool {
	return KindOf(err).Retryable()
}

// SegmentError ties an error to one segment (or reference image) position so
// the caller can retry that position only.
type SegmentError struct {
	Index int
	Err   error
}

func (e *SegmentError) Error() string {
	return fmt.Sprintf("segment %d: %v", e.Index, e.Err)
}

func (e *SegmentError) Unwrap() error {
	return e.Err
}
