package handler

import (
	"time"

	"github.com/SergeiKhy/linkshort-web/internal/middleware"
	"github.com/SergeiKhy/linkshort-web/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Backend is everything the shell forwards to the REST API.
type Backend interface {
	LinkBackend
	AdminBackend
}

type RouterDeps struct {
	Backend     Backend
	Sessions    service.SessionManager
	Visits      *service.VisitRegistry
	VisitTTL    time.Duration
	QR          *service.QRExporter
	PublicBase  string
	RateLimiter *middleware.RateLimiter
	// Gatherer backs /metrics; the route is skipped when nil.
	Gatherer prometheus.Gatherer
	Logger   *zap.Logger
}

// NewRouter builds the owner's router. Everything except /health and the
// short link visits is limited to loopback peers.
func NewRouter(deps RouterDeps) *gin.Engine {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	router := newEngine(logger)

	sessionHandler := NewSessionHandler(deps.Sessions, logger)
	linkHandler := NewLinkHandler(deps.Backend, deps.Sessions, logger)
	adminHandler := NewAdminHandler(deps.Backend, deps.Sessions, logger)
	qrHandler := NewQRHandler(deps.QR, deps.PublicBase, logger)

	router.GET("/health", HealthCheck)

	owner := router.Group("/", middleware.LocalOnly())
	if deps.Gatherer != nil {
		owner.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	session := owner.Group("/session")
	{
		session.GET("", sessionHandler.Get)
		session.POST("/login", sessionHandler.Login)
		session.POST("/register", sessionHandler.Register)
		session.POST("/logout", sessionHandler.Logout)
		session.POST("/recheck", sessionHandler.Recheck)
	}

	protected := owner.Group("/", middleware.RequireSession(deps.Sessions))
	{
		protected.GET("/links", linkHandler.List)
		protected.POST("/links", linkHandler.Create)
		protected.GET("/links/:id", linkHandler.Get)
		protected.PUT("/links/:id", linkHandler.Update)
		protected.DELETE("/links/:id", linkHandler.Delete)
		protected.GET("/links/:id/analytics", linkHandler.Analytics)
		protected.GET("/analytics/overview", linkHandler.Overview)
		protected.GET("/qr/:code", qrHandler.Download)
	}

	admin := protected.Group("/admin", middleware.RequireAdmin())
	{
		admin.GET("/stats", adminHandler.Stats)
		admin.GET("/users", adminHandler.Users)
		admin.PUT("/users/:id/toggle-status", adminHandler.ToggleStatus)
		admin.DELETE("/users/:id", adminHandler.DeleteUser)
	}

	registerVisits(router, deps, logger)
	return router
}

// NewPublicRouter serves only /health and the short link visits. It never
// touches the session.
func NewPublicRouter(deps RouterDeps) *gin.Engine {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	router := newEngine(logger)
	router.GET("/health", HealthCheck)
	registerVisits(router, deps, logger)
	return router
}

func newEngine(logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("Request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		)
	})
	return router
}

// registerVisits mounts the public short link routes under /r.
func registerVisits(router *gin.Engine, deps RouterDeps, logger *zap.Logger) {
	redirectHandler := NewRedirectHandler(deps.Visits, deps.VisitTTL, logger)

	public := router.Group("/r")
	if deps.RateLimiter != nil {
		public.Use(deps.RateLimiter.Middleware())
	}
	public.GET("/:code", redirectHandler.Visit)
	if deps.RateLimiter != nil {
		public.POST("/:code", deps.RateLimiter.MiddlewareWithKey(middleware.ShortCodeKey), redirectHandler.Submit)
	} else {
		public.POST("/:code", redirectHandler.Submit)
	}
}
