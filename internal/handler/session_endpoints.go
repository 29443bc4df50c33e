package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"presenter-studio/internal/models"
	"presenter-studio/internal/session"
)

func (h *SessionHandler) listPresenters(c *gin.Context) {
	c.JSON(http.StatusOK, presentersResponse{
		Version:    h.presenters.Version(),
		Presenters: h.presenters.List(),
	})
}

func (h *SessionHandler) prepare(c *gin.Context) {
	var req session.PrepareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Code: ErrCodeBadRequest, Message: "Invalid request data: " + err.Error()})
		return
	}

	sess, err := h.sessions.Prepare(c.Request.Context(), req)
	if err != nil {
		if sess != nil {
			h.logger.Warn("Session prepared with failures",
				zap.String("session_id", sess.ID),
				zap.Error(err),
			)
			handlePartialFailure(c, err, sess)
			return
		}
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sess)
}

func (h *SessionHandler) listSessions(c *gin.Context) {
	sessions, err := h.sessions.List(c.Request.Context())
	if err != nil {
		handleServiceError(c, err)
		return
	}
	if sessions == nil {
		sessions = []*models.Session{}
	}
	c.JSON(http.StatusOK, sessionsResponse{Sessions: sessions})
}

func (h *SessionHandler) getSession(c *gin.Context) {
	sess, err := h.sessions.Get(c.Request.Context(), c.Param("session_id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (h *SessionHandler) retryReference(c *gin.Context) {
	index, ok := indexParam(c)
	if !ok {
		return
	}
	sess, err := h.sessions.RetryReference(c.Request.Context(), c.Param("session_id"), index)
	if err != nil {
		if sess != nil {
			handlePartialFailure(c, err, sess)
			return
		}
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (h *SessionHandler) generateSegment(c *gin.Context) {
	index, ok := indexParam(c)
	if !ok {
		return
	}
	id := c.Param("session_id")
	rec, err := h.sessions.GenerateSegment(c.Request.Context(), id, index)
	if err != nil {
		if rec != nil {
			handlePartialFailure(c, err, segmentResponse{SessionID: id, Segment: rec})
			return
		}
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, segmentResponse{SessionID: id, Segment: rec})
}

func (h *SessionHandler) generateAll(c *gin.Context) {
	sess, err := h.sessions.GenerateAll(c.Request.Context(), c.Param("session_id"))
	if err != nil {
		if sess != nil {
			handlePartialFailure(c, err, sess)
			return
		}
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (h *SessionHandler) finalize(c *gin.Context) {
	sess, err := h.sessions.Finalize(c.Request.Context(), c.Param("session_id"))
	if err != nil {
		if sess != nil {
			handlePartialFailure(c, err, sess)
			return
		}
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (h *SessionHandler) enhance(c *gin.Context) {
	var spec models.EnhancementSpec
	if err := c.ShouldBindJSON(&spec); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Code: ErrCodeBadRequest, Message: "Invalid request data: " + err.Error()})
		return
	}

	report, err := h.sessions.Enhance(c.Request.Context(), c.Param("session_id"), spec)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func indexParam(c *gin.Context) (int, bool) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Code: ErrCodeBadRequest, Message: "Index must be a non-negative integer"})
		return 0, false
	}
	return index, true
}
