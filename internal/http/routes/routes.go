package routes

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/mo-amir99/lms-access-gateway/internal/features/access"
	"github.com/mo-amir99/lms-access-gateway/internal/features/capability"
	"github.com/mo-amir99/lms-access-gateway/internal/features/profile"
	"github.com/mo-amir99/lms-access-gateway/internal/features/section"
	"github.com/mo-amir99/lms-access-gateway/internal/features/subject"
	"github.com/mo-amir99/lms-access-gateway/internal/middleware"
	"github.com/mo-amir99/lms-access-gateway/internal/utils/jwt"
	"github.com/mo-amir99/lms-access-gateway/pkg/cache"
	"github.com/mo-amir99/lms-access-gateway/pkg/config"
	"github.com/mo-amir99/lms-access-gateway/pkg/health"
)

// Register wires all feature routes onto the engine.
func Register(engine *gin.Engine, cfg *config.Config, db *gorm.DB, redis cache.Client, logger *slog.Logger) {
	// Health check endpoints (no /api prefix for Kubernetes probes)
	healthHandler := health.NewHandler(db, map[string]health.Pinger{
		"database": health.DatabasePinger(db),
		"redis":    redis,
	}, logger)
	engine.GET("/health", healthHandler.Health)
	engine.GET("/ready", healthHandler.Ready)
	engine.GET("/version", healthHandler.Version)

	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if !cfg.IsProduction() {
		engine.GET("/debug/db-stats", healthHandler.DBStats)
	}

	api := engine.Group("/api")

	store := access.NewGormStore(db)
	authMiddleware := middleware.NewAuthMiddleware(
		jwt.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer),
		store,
		logger,
	)
	authenticated := authMiddleware.Authenticate()
	adminOnly := authMiddleware.RequireAdmin()

	checker := access.NewChecker(store, cfg.Access.Policy, logger)
	access.RegisterRoutes(api, access.NewHandler(checker, logger), authenticated)

	signer := capability.NewSigner(cfg.SignedURL.Secret, cfg.SignedURL.TTL())
	revocations := capability.NewRedisRevocations(redis, signer.TTL())
	capabilities := capability.NewService(checker, signer, revocations, logger)
	capability.RegisterRoutes(api, capability.NewHandler(capabilities, logger), authenticated, adminOnly)

	section.RegisterRoutes(api, section.NewHandler(db, capabilities, logger), authenticated, adminOnly)
	subject.RegisterRoutes(api, subject.NewHandler(db, logger), authenticated)
	profile.RegisterRoutes(api, profile.NewHandler(db, logger), authenticated, adminOnly)
}
