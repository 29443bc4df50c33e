// Package handler exposes session phases over HTTP.
package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"presenter-studio/internal/models"
	"presenter-studio/internal/session"
)

// SessionService is the part of session.Manager the HTTP layer uses.
type SessionService interface {
	Prepare(ctx context.Context, req session.PrepareRequest) (*models.Session, error)
	RetryReference(ctx context.Context, id string, index int) (*models.Session, error)
	GenerateSegment(ctx context.Context, id string, index int) (*models.SegmentRecord, error)
	GenerateAll(ctx context.Context, id string) (*models.Session, error)
	Finalize(ctx context.Context, id string) (*models.Session, error)
	Enhance(ctx context.Context, id string, spec models.EnhancementSpec) (*models.EnhancementReport, error)
	Get(ctx context.Context, id string) (*models.Session, error)
	List(ctx context.Context) ([]*models.Session, error)
}

// PresenterCatalogue lists the configured presenters.
type PresenterCatalogue interface {
	List() []models.PresenterProfile
	Version() string
}

type SessionHandler struct {
	sessions   SessionService
	presenters PresenterCatalogue
	logger     *zap.Logger
}

func NewSessionHandler(sessions SessionService, presenters PresenterCatalogue, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{
		sessions:   sessions,
		presenters: presenters,
		logger:     logger.Named("handler"),
	}
}

func (h *SessionHandler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/v1")
	{
		api.GET("/presenters", h.listPresenters)

		api.POST("/sessions", h.prepare)
		api.GET("/sessions", h.listSessions)
		api.GET("/sessions/:session_id", h.getSession)
		api.POST("/sessions/:session_id/references/:index", h.retryReference)
		api.POST("/sessions/:session_id/segments", h.generateAll)
		api.POST("/sessions/:session_id/segments/:index", h.generateSegment)
		api.POST("/sessions/:session_id/finalize", h.finalize)
		api.POST("/sessions/:session_id/enhancements", h.enhance)
	}
}
