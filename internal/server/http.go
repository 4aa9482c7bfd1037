package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	assistantservice "github.com/duongdat/filehub-backend/internal/assistant/service"
	"github.com/duongdat/filehub-backend/internal/auth"
	"github.com/duongdat/filehub-backend/internal/auth/middleware"
	authservice "github.com/duongdat/filehub-backend/internal/auth/service"
	"github.com/duongdat/filehub-backend/internal/conf"
	fileservice "github.com/duongdat/filehub-backend/internal/file/service"
	orgservice "github.com/duongdat/filehub-backend/internal/org/service"
	"github.com/duongdat/filehub-backend/internal/pkg/logger"
)

type HTTPServer struct {
	server *http.Server
	logger *logger.Logger
}

func NewHTTPServer(
	config *conf.Config,
	log *logger.Logger,
	jwtManager *auth.JWTManager,
	authService *authservice.AuthService,
	fileService *fileservice.FileService,
	orgService *orgservice.OrgService,
	assistantService *assistantservice.AssistantService,
) *HTTPServer {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS())
	router.Use(LoggerMiddleware(log))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	api := router.Group("/api/v1")
	authService.RegisterPublicRoutes(api)

	protected := api.Group("")
	protected.Use(middleware.JWTAuth(jwtManager, log))
	authService.RegisterProtectedRoutes(protected)
	fileService.RegisterRoutes(protected)
	orgService.RegisterRoutes(protected)
	assistantService.RegisterRoutes(protected)

	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)

	return &HTTPServer{
		server: &http.Server{
			Addr:    addr,
			Handler: router,
		},
		logger: log,
	}
}

func (s *HTTPServer) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}

func (s *HTTPServer) Stop(ctx context.Context) error {
	s.logger.Info("stopping HTTP server")
	return s.server.Shutdown(ctx)
}

func LoggerMiddleware(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)

		log.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("ip", c.ClientIP()),
		)
	}
}
