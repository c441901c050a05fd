package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/SergeiKhy/linkshort-web/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const visitCookie = "linkshort_visit"

// RedirectHandler serves public short link visits.
type RedirectHandler struct {
	visits   *service.VisitRegistry
	visitTTL time.Duration
	logger   *zap.Logger
}

func NewRedirectHandler(visits *service.VisitRegistry, visitTTL time.Duration, logger *zap.Logger) *RedirectHandler {
	return &RedirectHandler{visits: visits, visitTTL: visitTTL, logger: logger}
}

type PasswordRequest struct {
	Password string `json:"password" form:"password"`
}

// Visit looks a short code up and either redirects or asks for a password.
func (h *RedirectHandler) Visit(c *gin.Context) {
	code := c.Param("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_code",
			Message: "Short code is required",
		})
		return
	}

	id, resolver, ok := h.start(c, code)
	if !ok {
		return
	}
	h.respond(c, id, resolver.Attempt(), http.StatusOK)
}

// Submit checks a password for the visit named by the cookie. A missing or
// settled visit is restarted first.
func (h *RedirectHandler) Submit(c *gin.Context) {
	code := c.Param("code")

	var req PasswordRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, err)
		return
	}

	id, _ := c.Cookie(visitCookie)
	resolver, ok := h.visits.Get(id, code)
	if !ok || resolver.Attempt().Stage != service.StagePasswordRequired {
		if ok {
			h.visits.Finish(id)
		}
		id, resolver, ok = h.start(c, code)
		if !ok {
			return
		}
		if attempt := resolver.Attempt(); attempt.Stage != service.StagePasswordRequired {
			h.respond(c, id, attempt, http.StatusOK)
			return
		}
	}

	nav, err := resolver.Submit(c.Request.Context(), req.Password)
	switch {
	case errors.Is(err, service.ErrEmptyPassword):
		h.respond(c, id, resolver.Attempt(), http.StatusBadRequest)
		return
	case err != nil:
		h.visits.Finish(id)
		h.aborted(c, err)
		return
	}

	if !nav.Empty() {
		h.visits.Finish(id)
		h.clearCookie(c, code)
		c.Redirect(http.StatusSeeOther, nav.URL)
		return
	}

	h.respond(c, id, resolver.Attempt(), http.StatusUnauthorized)
}

// start registers a visit and runs its lookup. On a navigation the redirect
// is already written and ok is false.
func (h *RedirectHandler) start(c *gin.Context, code string) (string, *service.RedirectResolver, bool) {
	id, resolver := h.visits.Start(code)

	nav, err := resolver.Visit(c.Request.Context())
	if err != nil {
		h.visits.Finish(id)
		h.aborted(c, err)
		return "", nil, false
	}

	if !nav.Empty() {
		h.visits.Finish(id)
		c.Redirect(http.StatusFound, nav.URL)
		return "", nil, false
	}

	return id, resolver, true
}

// respond renders a non-navigating attempt. Only a visit waiting for a
// password is kept.
func (h *RedirectHandler) respond(c *gin.Context, id string, attempt service.AccessAttempt, pending int) {
	switch attempt.Stage {
	case service.StagePasswordRequired:
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(visitCookie, id, int(h.visitTTL/time.Second), "/r/"+attempt.ShortCode, "", false, true)
		c.JSON(pending, attempt)
		return
	case service.StageNotFound:
		c.JSON(http.StatusNotFound, attempt)
	case service.StageGone:
		c.JSON(http.StatusGone, attempt)
	default:
		c.JSON(http.StatusBadGateway, attempt)
	}

	h.visits.Finish(id)
	h.clearCookie(c, attempt.ShortCode)
}

func (h *RedirectHandler) clearCookie(c *gin.Context, code string) {
	c.SetCookie(visitCookie, "", -1, "/r/"+code, "", false, true)
}

func (h *RedirectHandler) aborted(c *gin.Context, err error) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		c.Status(499)
		return
	}
	h.logger.Error("Short link visit failed", zap.Error(err))
	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: service.GenericErrorMessage,
	})
}
