package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SergeiKhy/linkshort-web/internal/api"
	"github.com/SergeiKhy/linkshort-web/internal/config"
	"github.com/SergeiKhy/linkshort-web/internal/handler"
	"github.com/SergeiKhy/linkshort-web/internal/metrics"
	"github.com/SergeiKhy/linkshort-web/internal/middleware"
	"github.com/SergeiKhy/linkshort-web/internal/repository"
	"github.com/SergeiKhy/linkshort-web/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	gin.SetMode(gin.ReleaseMode)

	store, closeStore, err := openTokenStore(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to open token store", zap.String("driver", cfg.TokenStore.Driver), zap.Error(err))
	}
	defer closeStore()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	client := api.NewClient(cfg.API.BaseURL, &http.Client{}, logger)

	sessions := service.NewSessionManager(client, store, logger, m)

	// Restore the persisted session in the background; protected routes wait for it.
	bootCtx, cancelBoot := context.WithCancel(context.Background())
	defer cancelBoot()
	go func() {
		if err := sessions.Bootstrap(bootCtx); err != nil {
			logger.Warn("Session bootstrap aborted", zap.Error(err))
		}
	}()

	visits := service.NewVisitRegistry(client, cfg.App.VisitTTL, logger, m)
	defer visits.Close()

	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		BurstSize:         cfg.RateLimit.BurstSize,
		CleanupInterval:   time.Minute,
	})
	defer rateLimiter.Stop()

	deps := handler.RouterDeps{
		Backend:     client,
		Sessions:    sessions,
		Visits:      visits,
		VisitTTL:    cfg.App.VisitTTL,
		QR:          service.NewQRExporter(cfg.QR.Size, logger, m),
		PublicBase:  cfg.API.PublicBaseURL,
		RateLimiter: rateLimiter,
		Gatherer:    reg,
		Logger:      logger,
	}

	servers := []*http.Server{
		newServer(net.JoinHostPort(cfg.App.Bind, cfg.App.Port), handler.NewRouter(deps)),
		newServer(net.JoinHostPort(cfg.App.PublicBind, cfg.App.PublicPort), handler.NewPublicRouter(deps)),
	}

	for _, srv := range servers {
		go func(srv *http.Server) {
			logger.Info("Server starting",
				zap.String("addr", srv.Addr),
				zap.String("backend", cfg.API.BaseURL),
			)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Fatal("Failed to start server", zap.String("addr", srv.Addr), zap.Error(err))
			}
		}(srv)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, srv := range servers {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Fatal("Server forced to shutdown", zap.String("addr", srv.Addr), zap.Error(err))
		}
	}

	logger.Info("Server exited")
}

func newServer(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// openTokenStore connects the configured token backend. The returned func
// releases its connections.
func openTokenStore(cfg *config.Config, logger *zap.Logger) (repository.TokenStore, func(), error) {
	switch cfg.TokenStore.Driver {
	case config.TokenStoreRedis:
		rdb, err := repository.NewRedisClient(cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Connected to Redis")
		return repository.NewRedisTokenStore(rdb.Client, ""), func() { rdb.Close() }, nil

	case config.TokenStorePostgres:
		db, err := repository.NewPostgresDB(cfg.DB)
		if err != nil {
			return nil, nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := repository.EnsureSchema(ctx, db); err != nil {
			db.Close()
			return nil, nil, err
		}
		logger.Info("Connected to PostgreSQL")
		return repository.NewPostgresTokenStore(db), db.Close, nil

	default:
		return repository.NewFileTokenStore(cfg.TokenStore.File), func() {}, nil
	}
}
