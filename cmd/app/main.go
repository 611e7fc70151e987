package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mo-amir99/lms-access-gateway/internal/bootstrap"
	"github.com/mo-amir99/lms-access-gateway/internal/features/capability"
	"github.com/mo-amir99/lms-access-gateway/internal/http/routes"
	"github.com/mo-amir99/lms-access-gateway/pkg/cache"
	"github.com/mo-amir99/lms-access-gateway/pkg/config"
	"github.com/mo-amir99/lms-access-gateway/pkg/database"
	"github.com/mo-amir99/lms-access-gateway/pkg/health"
	"github.com/mo-amir99/lms-access-gateway/pkg/jobs"
	"github.com/mo-amir99/lms-access-gateway/pkg/logger"
	"github.com/mo-amir99/lms-access-gateway/pkg/metrics"
	"github.com/mo-amir99/lms-access-gateway/pkg/middleware"
	"github.com/mo-amir99/lms-access-gateway/pkg/request"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	appLogger, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Connect(ctx, cfg.Database, appLogger)
	if err != nil {
		appLogger.Error("database connection failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	defer func() {
		if err := database.Close(db, appLogger); err != nil {
			appLogger.Error("database close failed", slog.String("error", err.Error()))
		}
	}()

	if err := bootstrap.ApplyDatabaseMigrations(ctx, db, cfg, appLogger); err != nil {
		appLogger.Error("migrations failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := bootstrap.EnsureBootstrapAdmin(ctx, db, cfg.BootstrapAdminID, appLogger); err != nil {
		appLogger.Error("ensure bootstrap admin failed", slog.String("error", err.Error()))
	}

	redisClient, err := cache.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		appLogger.Error("redis connection failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer redisClient.Close()

	if !redisClient.Enabled() {
		appLogger.Warn("REDIS_ADDR not set; capability revocation is disabled")
	}

	ttl := cfg.SignedURL.TTL()
	previousTTL, err := capability.NewRedisRevocations(redisClient, ttl).RecordTTL(ctx)
	switch {
	case err != nil:
		appLogger.Error("record capability ttl failed", slog.String("error", err.Error()))
	case previousTTL > ttl:
		appLogger.Warn("capability ttl lowered; revocations assume the previous ttl until it lapses",
			slog.Duration("previous", previousTTL),
			slog.Duration("current", ttl),
		)
	}

	scheduler := jobs.NewScheduler(appLogger)
	if sqlDB, err := db.DB(); err == nil {
		scheduler.AddJob(jobs.PoolStats(sqlDB), 30*time.Second)
	}
	scheduler.AddJob(jobs.Probe("database", health.DatabasePinger(db)), time.Minute)
	if redisClient.Enabled() {
		scheduler.AddJob(jobs.Probe("redis", redisClient), time.Minute)
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	router := gin.New()

	router.Use(middleware.Recovery(appLogger))
	router.Use(middleware.CORS(cfg.AllowedOrigins))
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(appLogger))
	router.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	router.Use(middleware.CacheControl("/api"))
	router.Use(middleware.RequestSizeLimit(10 * 1024 * 1024)) // 10MB limit
	router.Use(metrics.Middleware())
	router.Use(request.Handler(appLogger))

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit.MaxRequests, cfg.RateLimit.Window)
	go rateLimiter.Run(ctx)
	router.Use(rateLimiter.Middleware())

	routes.Register(router, cfg, db, redisClient, appLogger)

	srv := &http.Server{
		Addr:              cfg.ServerAddress(),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1MB
	}

	go func() {
		appLogger.Info("server starting",
			slog.String("addr", cfg.ServerAddress()),
			slog.String("env", cfg.Env),
			slog.String("log_level", cfg.LogLevel),
			slog.String("access_policy", cfg.Access.Policy),
		)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("server listen failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("server shutdown failed", slog.String("error", err.Error()))
	} else {
		appLogger.Info("server stopped gracefully")
	}
}
