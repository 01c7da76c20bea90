// Package server provides the HTTP server implementation
package server

// @title           Credcore API
// @version         1.0
// @description     Credential lifecycle API with global rate limiting.
//
// @description.markdown
// All API endpoints are subject to rate limiting:
// * Rate limits are applied per IP address
// * Password reset requests carry an additional per-email quota
//
// When rate limit is exceeded:
// * Status code 429 (Too Many Requests) is returned
// * Headers:
//   - X-RateLimit-Limit: Maximum requests allowed
//   - X-RateLimit-Reset: Unix timestamp when the rate limit resets
//   - Retry-After: Seconds to wait before retrying
//
// @host            localhost:8080
// @BasePath        /api/v1
//
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Bearer token authentication
//
// @response 429 {object} models.ErrorResponse "Rate limit exceeded"

import (
	"database/sql"
	"fmt"
	"strconv"
	"credcore/internal/api/routes"
	"credcore/internal/config"
	"credcore/internal/ratelimit"

	"go.uber.org/zap"
)

// Server represents the HTTP server
type Server struct {
	cfg     *config.Config
	db      *sql.DB
	limiter ratelimit.Limiter
	logger  *zap.Logger
}

// New creates a new server instance
func New(cfg *config.Config, db *sql.DB, limiter ratelimit.Limiter, logger *zap.Logger) *Server {
	return &Server{
		cfg:     cfg,
		db:      db,
		limiter: limiter,
		logger:  logger,
	}
}

// Start starts the HTTP server
func (s *Server) Start() error {
	router := routes.SetupRoutes(s.cfg, s.db, s.limiter, s.logger)

	port, err := strconv.Atoi(s.cfg.API.Port)
	if err != nil {
		return fmt.Errorf("invalid port number: %w", err)
	}

	addr := fmt.Sprintf(":%d", port)
	s.logger.Info("starting server", zap.String("addr", addr))
	return router.Run(addr)
}
