package handler

import (
	"errors"
	"net/http"

	"github.com/SergeiKhy/linkshort-web/internal/api"
	"github.com/SergeiKhy/linkshort-web/internal/models"
	"github.com/SergeiKhy/linkshort-web/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type SessionHandler struct {
	sessions service.SessionManager
	logger   *zap.Logger
}

func NewSessionHandler(sessions service.SessionManager, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{sessions: sessions, logger: logger}
}

type SessionResponse struct {
	Authenticated bool `json:"authenticated"`
	IsAdmin       bool `json:"is_admin"`
	models.Session
}

func newSessionResponse(state models.Session) SessionResponse {
	return SessionResponse{
		Authenticated: state.Authenticated(),
		IsAdmin:       state.IsAdmin(),
		Session:       state,
	}
}

// Get reports the current session without waiting for it to settle.
func (h *SessionHandler) Get(c *gin.Context) {
	c.JSON(http.StatusOK, newSessionResponse(h.sessions.Snapshot()))
}

func (h *SessionHandler) Login(c *gin.Context) {
	var req models.LoginInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if _, err := h.sessions.Login(c.Request.Context(), req.Username, req.Password); err != nil {
		h.authFailed(c, err)
		return
	}

	c.JSON(http.StatusOK, newSessionResponse(h.sessions.Snapshot()))
}

func (h *SessionHandler) Register(c *gin.Context) {
	var req models.RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if _, err := h.sessions.Register(c.Request.Context(), req.Username, req.Email, req.Password); err != nil {
		h.authFailed(c, err)
		return
	}

	c.JSON(http.StatusCreated, newSessionResponse(h.sessions.Snapshot()))
}

func (h *SessionHandler) Logout(c *gin.Context) {
	h.sessions.Logout(c.Request.Context())
	c.JSON(http.StatusOK, MessageResponse{Message: "Logged out"})
}

func (h *SessionHandler) Recheck(c *gin.Context) {
	if err := h.sessions.Recheck(c.Request.Context()); err != nil {
		h.authFailed(c, err)
		return
	}
	c.JSON(http.StatusOK, newSessionResponse(h.sessions.Snapshot()))
}

func (h *SessionHandler) authFailed(c *gin.Context, err error) {
	var authErr *service.AuthError

	switch {
	case errors.Is(err, service.ErrAuthInFlight):
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "auth_in_flight",
			Message: "Another request is in progress",
		})
	case errors.Is(err, service.ErrSessionLoading):
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error:   "session_loading",
			Message: "Session is still loading",
		})
	case errors.As(err, &authErr):
		status := api.StatusCode(err)
		if status < 400 || status >= 500 {
			status = http.StatusBadGateway
		}
		c.JSON(status, ErrorResponse{
			Error:   "auth_failed",
			Message: authErr.Message,
		})
	default:
		h.logger.Warn("Session request failed", zap.Error(err))
		c.Status(499)
	}
}
