// Package routes handles the setup and configuration of API routes
package routes

import (
	"database/sql"
	_ "credcore/docs" // Import swagger docs
	"credcore/internal/api/handlers"
	"credcore/internal/api/middleware"
	"credcore/internal/auth"
	"credcore/internal/config"
	"credcore/internal/credential"
	"credcore/internal/email"
	"credcore/internal/ratelimit"
	"credcore/internal/repository/postgres"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// SetupRoutes configures all API routes and their handlers
func SetupRoutes(cfg *config.Config, db *sql.DB, limiter ratelimit.Limiter, logger *zap.Logger) *gin.Engine {
	// Create router
	r := gin.Default()

	// Routes without rate limiting
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Apply rate limiting to all other routes
	r.Use(middleware.NewRateLimiter(cfg).Middleware())

	// Initialize repositories
	userRepo := postgres.NewUserRepository(db)
	historyRepo := postgres.NewPasswordHistoryRepository(db)
	auditRepo := postgres.NewAuditEventRepository(db)
	refreshTokenRepo := postgres.NewRefreshTokenRepository(db)
	loginAttemptRepo := postgres.NewLoginAttemptRepository(db)

	// Initialize services
	authService := auth.NewService(cfg, refreshTokenRepo)
	emailService := email.NewService(cfg.Email)
	credService := credential.NewService(
		cfg,
		userRepo,
		historyRepo,
		loginAttemptRepo,
		auditRepo,
		authService,
		auth.DefaultPasswordPolicy,
		logger,
	)
	resetLifecycle := credential.NewResetLifecycle(
		cfg,
		userRepo,
		historyRepo,
		auditRepo,
		authService,
		auth.DefaultPasswordPolicy,
		limiter,
		emailService,
		logger,
	)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(authService, userRepo)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(db)
	authHandler := handlers.NewAuthHandler(credService, resetLifecycle, authService, userRepo)
	auditHandler := handlers.NewAuditHandler(auditRepo)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		// Health check (no authentication required)
		v1.GET("/health", healthHandler.Health)

		// Auth routes
		authRoutes := v1.Group("/auth")
		{
			authRoutes.POST("/register", authHandler.Register)
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/refresh", authHandler.Refresh)
			authRoutes.POST("/reset-password", authHandler.RequestPasswordReset)
			authRoutes.GET("/reset-password/verify/:token", authHandler.VerifyResetToken)
			authRoutes.POST("/reset-password/complete", authHandler.CompletePasswordReset)
			authRoutes.POST("/change-password", authMiddleware.AuthRequired(), authHandler.ChangePassword)
			authRoutes.DELETE("/account", authMiddleware.AuthRequired(), authHandler.DeleteAccount)
		}

		// Audit routes (admin only)
		audit := v1.Group("/audit")
		audit.Use(authMiddleware.AuthRequired(), authMiddleware.AdminRequired())
		{
			audit.GET("", auditHandler.List)
			audit.GET("/security", auditHandler.Security)
			audit.GET("/:id", auditHandler.Get)
		}
	}

	return r
}
