package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"presenter-studio/internal/models"
	"presenter-studio/internal/script"
)

func handleServiceError(c *gin.Context, err error) {
	statusCode, errResp := errorResponse(err)
	if statusCode == http.StatusInternalServerError && errResp.Code == ErrCodeInternal {
		zap.L().Error("Unhandled internal error in handleServiceError", zap.Error(err))
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(statusCode, errResp)
}

// handlePartialFailure reports err while still returning the state the call
// left behind, so the client knows what to retry.
func handlePartialFailure(c *gin.Context, err error, state any) {
	statusCode, errResp := errorResponse(err)
	_ = c.Error(err)
	c.AbortWithStatusJSON(statusCode, gin.H{
		"code":    errResp.Code,
		"message": errResp.Message,
		"details": errResp.Details,
		"state":   state,
	})
}

func errorResponse(err error) (int, ErrorResponse) {
	var statusCode int
	var errResp ErrorResponse

	switch {
	case errors.Is(err, models.ErrPresenterNotFound):
		statusCode = http.StatusBadRequest
		errResp = ErrorResponse{Code: ErrCodePresenterUnknown, Message: err.Error()}
	case errors.Is(err, models.ErrValidation), errors.Is(err, models.ErrIndexOutOfRange):
		statusCode = http.StatusBadRequest
		errResp = ErrorResponse{Code: ErrCodeValidation, Message: err.Error()}
	case errors.Is(err, models.ErrSessionNotFound):
		statusCode = http.StatusNotFound
		errResp = ErrorResponse{Code: ErrCodeSessionNotFound, Message: "Session not found"}
	case errors.Is(err, models.ErrSessionBusy):
		statusCode = http.StatusConflict
		errResp = ErrorResponse{Code: ErrCodeSessionBusy, Message: "Another operation is running on this session"}
	case errors.Is(err, models.ErrInvalidState):
		statusCode = http.StatusConflict
		errResp = ErrorResponse{Code: ErrCodeInvalidState, Message: err.Error()}
	case errors.Is(err, models.ErrRejected):
		statusCode = http.StatusUnprocessableEntity
		errResp = ErrorResponse{Code: ErrCodeRejected, Message: err.Error()}
	case errors.Is(err, models.ErrThrottled):
		statusCode = http.StatusTooManyRequests
		errResp = ErrorResponse{Code: ErrCodeThrottled, Message: err.Error()}
	case errors.Is(err, models.ErrTimeout), errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		statusCode = http.StatusGatewayTimeout
		errResp = ErrorResponse{Code: ErrCodeTimeout, Message: err.Error()}
	case errors.Is(err, models.ErrDownloadFailed), errors.Is(err, models.ErrStorage):
		statusCode = http.StatusBadGateway
		errResp = ErrorResponse{Code: ErrCodeStorage, Message: err.Error()}
	case errors.Is(err, models.ErrAssembly):
		statusCode = http.StatusInternalServerError
		errResp = ErrorResponse{Code: ErrCodeAssembly, Message: err.Error()}
	default:
		statusCode = http.StatusInternalServerError
		errResp = ErrorResponse{Code: ErrCodeInternal, Message: "An unexpected internal error occurred"}
	}

	errResp.Details = detailsOf(err)
	return statusCode, errResp
}

func detailsOf(err error) *errorDetails {
	d := &errorDetails{Retryable: models.IsRetryable(err)}

	var verr *script.ValidationError
	if errors.As(err, &verr) {
		d.Reason = string(verr.Reason)
		d.Words = verr.Words
		d.MaxWords = verr.MaxWords
		if verr.SegmentIndex >= 0 {
			idx := verr.SegmentIndex
			d.SegmentIndex = &idx
		}
		return d
	}
	var serr *models.SegmentError
	if errors.As(err, &serr) {
		idx := serr.Index
		d.SegmentIndex = &idx
	}
	return d
}
