package handler

import (
	"context"
	"net/http"

	"github.com/SergeiKhy/linkshort-web/internal/models"
	"github.com/SergeiKhy/linkshort-web/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// LinkBackend is the authenticated link API.
type LinkBackend interface {
	ListLinks(ctx context.Context, auth http.Header) ([]models.Link, error)
	GetLink(ctx context.Context, auth http.Header, id string) (*models.Link, error)
	CreateLink(ctx context.Context, auth http.Header, input *models.CreateLinkInput) (*models.Link, error)
	UpdateLink(ctx context.Context, auth http.Header, id string, input *models.UpdateLinkInput) (*models.Link, error)
	DeleteLink(ctx context.Context, auth http.Header, id string) error
	LinkAnalytics(ctx context.Context, auth http.Header, id string) ([]byte, error)
	Overview(ctx context.Context, auth http.Header) ([]byte, error)
}

type LinkHandler struct {
	backend  LinkBackend
	sessions service.SessionManager
	logger   *zap.Logger
}

func NewLinkHandler(backend LinkBackend, sessions service.SessionManager, logger *zap.Logger) *LinkHandler {
	return &LinkHandler{
		backend:  backend,
		sessions: sessions,
		logger:   logger,
	}
}

func (h *LinkHandler) List(c *gin.Context) {
	links, err := h.backend.ListLinks(c.Request.Context(), h.sessions.AuthHeader())
	if err != nil {
		backendError(c, h.logger, err, "Failed to load links")
		return
	}
	c.JSON(http.StatusOK, filterLinks(links, searchQuery(c.Query("q"))))
}

func (h *LinkHandler) Get(c *gin.Context) {
	link, err := h.backend.GetLink(c.Request.Context(), h.sessions.AuthHeader(), c.Param("id"))
	if err != nil {
		backendError(c, h.logger, err, "Link not found")
		return
	}
	c.JSON(http.StatusOK, link)
}

func (h *LinkHandler) Create(c *gin.Context) {
	var req models.CreateLinkInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request body", zap.Error(err))
		badRequest(c, err)
		return
	}

	link, err := h.backend.CreateLink(c.Request.Context(), h.sessions.AuthHeader(), &req)
	if err != nil {
		backendError(c, h.logger, err, "Failed to create link")
		return
	}

	h.logger.Info("Link created", zap.String("short_code", link.ShortCode))
	c.JSON(http.StatusCreated, link)
}

func (h *LinkHandler) Update(c *gin.Context) {
	var req models.UpdateLinkInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	link, err := h.backend.UpdateLink(c.Request.Context(), h.sessions.AuthHeader(), c.Param("id"), &req)
	if err != nil {
		backendError(c, h.logger, err, "Failed to update link")
		return
	}
	c.JSON(http.StatusOK, link)
}

func (h *LinkHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	if err := h.backend.DeleteLink(c.Request.Context(), h.sessions.AuthHeader(), id); err != nil {
		backendError(c, h.logger, err, "Failed to delete link")
		return
	}

	h.logger.Info("Link deleted", zap.String("id", id))
	c.JSON(http.StatusOK, MessageResponse{Message: "Link deleted"})
}

// Analytics renders the projected analytics of one link.
func (h *LinkHandler) Analytics(c *gin.Context) {
	raw, err := h.backend.LinkAnalytics(c.Request.Context(), h.sessions.AuthHeader(), c.Param("id"))
	if err != nil {
		backendError(c, h.logger, err, "Failed to load analytics")
		return
	}
	c.JSON(http.StatusOK, service.ProjectAnalytics(raw))
}

func (h *LinkHandler) Overview(c *gin.Context) {
	raw, err := h.backend.Overview(c.Request.Context(), h.sessions.AuthHeader())
	if err != nil {
		backendError(c, h.logger, err, "Failed to load overview")
		return
	}
	c.JSON(http.StatusOK, service.ProjectOverview(raw))
}
