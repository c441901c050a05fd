package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/SergeiKhy/linkshort-web/internal/api"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   "invalid_request",
		Message: err.Error(),
	})
}

// backendError translates a failed backend call into a response.
// fallback is shown when the backend sent no detail.
func backendError(c *gin.Context, logger *zap.Logger, err error, fallback string) {
	status := api.StatusCode(err)
	message := api.Detail(err)
	if message == "" {
		message = fallback
	}

	switch {
	case errors.Is(err, context.Canceled):
		c.Status(499)
		return
	case status == http.StatusUnauthorized:
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: message})
	case status == http.StatusForbidden:
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "forbidden", Message: message})
	case status == http.StatusNotFound:
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "not_found", Message: message})
	case status == http.StatusConflict:
		c.JSON(http.StatusConflict, ErrorResponse{Error: "conflict", Message: message})
	case status >= 400 && status < 500:
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_request", Message: message})
	default:
		logger.Error("Backend request failed",
			zap.String("path", c.FullPath()),
			zap.Int("status", status),
			zap.Error(err),
		)
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: "backend_error", Message: fallback})
	}
}
