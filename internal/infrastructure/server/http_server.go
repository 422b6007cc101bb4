// Package server assembles the gin engine and owns the HTTP lifecycle.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/aurumdesk/aurumdesk/internal/infrastructure/config"
)

// NewRouter builds the engine with the shared middleware stack: panic
// recovery, structured request logging, CORS, a per-request trace id,
// health and metrics endpoints.
func NewRouter(logger *zap.Logger, cfg config.ServerConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(ginzap.RecoveryWithZap(logger, true))
	router.Use(ginzap.Ginzap(logger, time.RFC3339, true))
	router.Use(traceIDMiddleware())

	corsCfg := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsCfg.AllowAllOrigins = true
	}
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization", "Aurum-Signature")
	router.Use(cors.New(corsCfg))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}

func traceIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader("X-Trace-ID")
		if traceID == "" {
			traceID = uuid.New().String()
		}
		c.Set("trace_id", traceID)
		c.Header("X-Trace-ID", traceID)
		c.Next()
	}
}

// HTTPServer wraps http.Server with a graceful shutdown.
type HTTPServer struct {
	server *http.Server
	cfg    config.ServerConfig
	logger *zap.Logger
}

// NewHTTPServer creates the server over the assembled router.
func NewHTTPServer(router *gin.Engine, cfg config.ServerConfig, logger *zap.Logger) *HTTPServer {
	return &HTTPServer{
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:      router,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		cfg:    cfg,
		logger: logger,
	}
}

// Start blocks serving requests until the listener fails or Shutdown is
// called.
func (s *HTTPServer) Start() error {
	s.logger.Info("http server listening", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests within the configured timeout.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}
