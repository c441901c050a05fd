package handler

import (
	"context"
	"net/http"

	"github.com/SergeiKhy/linkshort-web/internal/models"
	"github.com/SergeiKhy/linkshort-web/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AdminBackend interface {
	AdminStats(ctx context.Context, auth http.Header) (*models.AdminStats, error)
	AdminUsers(ctx context.Context, auth http.Header) ([]models.User, error)
	ToggleUserStatus(ctx context.Context, auth http.Header, id string) (*models.UserStatus, error)
	DeleteUser(ctx context.Context, auth http.Header, id string) error
}

type AdminHandler struct {
	backend  AdminBackend
	sessions service.SessionManager
	logger   *zap.Logger
}

func NewAdminHandler(backend AdminBackend, sessions service.SessionManager, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{backend: backend, sessions: sessions, logger: logger}
}

func (h *AdminHandler) Stats(c *gin.Context) {
	stats, err := h.backend.AdminStats(c.Request.Context(), h.sessions.AuthHeader())
	if err != nil {
		backendError(c, h.logger, err, "Failed to load statistics")
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *AdminHandler) Users(c *gin.Context) {
	users, err := h.backend.AdminUsers(c.Request.Context(), h.sessions.AuthHeader())
	if err != nil {
		backendError(c, h.logger, err, "Failed to load users")
		return
	}
	c.JSON(http.StatusOK, filterUsers(users, searchQuery(c.Query("q"))))
}

func (h *AdminHandler) ToggleStatus(c *gin.Context) {
	id := c.Param("id")
	status, err := h.backend.ToggleUserStatus(c.Request.Context(), h.sessions.AuthHeader(), id)
	if err != nil {
		backendError(c, h.logger, err, "Failed to update user")
		return
	}

	h.logger.Info("User status changed", zap.String("id", id), zap.Bool("active", status.IsActive))
	c.JSON(http.StatusOK, status)
}

func (h *AdminHandler) DeleteUser(c *gin.Context) {
	id := c.Param("id")
	if err := h.backend.DeleteUser(c.Request.Context(), h.sessions.AuthHeader(), id); err != nil {
		backendError(c, h.logger, err, "Failed to delete user")
		return
	}

	h.logger.Info("User deleted", zap.String("id", id))
	c.JSON(http.StatusOK, MessageResponse{Message: "User deleted"})
}
