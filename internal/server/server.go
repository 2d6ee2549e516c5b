package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"oneclick-video/config"
	"oneclick-video/internal/handler"
	"oneclick-video/internal/middleware"
	"oneclick-video/internal/transport/httpdto"
	"oneclick-video/pkg/logger"

	"github.com/gin-gonic/gin"
)

type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	config     *config.Config
	logger     *logger.Logger
}

var (
	ReleaseMode = "release"
	DebugMode   = "debug"
	TestMode    = "test"
)

type Handlers struct {
	Upload *handler.UploadHandler
}

// HealthCheck reports whether one dependency is usable.
type HealthCheck func(ctx context.Context) error

type RouteOptions struct {
	// InitiateLimiter throttles POST /initiate per client IP. Nil disables it.
	InitiateLimiter middleware.InitiateLimiter
	HealthChecks    map[string]HealthCheck
}

func New(cfg *config.Config, l *logger.Logger) *Server {
	if cfg.AppMode == ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	} else if cfg.AppMode == TestMode {
		gin.SetMode(gin.TestMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%s", cfg.AppPort),
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
		},
		engine: engine,
		config: cfg,
		logger: l,
	}
}

// Engine exposes the router, mainly for httptest.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) SetupRoutes(handlers *Handlers, opts RouteOptions) {
	s.engine.Use(middleware.RequestIDMiddleware())
	s.engine.Use(middleware.CORSMiddleware(s.config.CORSOrigins))
	s.engine.Use(middleware.LoggingMiddleware(s.logger))
	s.engine.Use(middleware.ErrorHandler(s.logger))

	s.engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"message": "pong"}))
	})

	s.engine.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		names := make([]string, 0, len(opts.HealthChecks))
		for name := range opts.HealthChecks {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if err := opts.HealthChecks[name](ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, httpdto.NewErrorResponse(fmt.Sprintf("%s: %s", name, err.Error()), "UNHEALTHY"))
				return
			}
		}
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"status": "healthy"}))
	})

	initiate := []gin.HandlerFunc{handlers.Upload.Initiate}
	if opts.InitiateLimiter != nil {
		initiate = append([]gin.HandlerFunc{middleware.InitiateRateLimitMiddleware(opts.InitiateLimiter, s.logger)}, initiate...)
	}

	uploads := s.engine.Group("/api/v1/uploads")
	{
		uploads.POST("/initiate", initiate...)
		uploads.POST("/presigned-url", handlers.Upload.PresignedURL)
		uploads.POST("/complete", handlers.Upload.Complete)
		uploads.POST("/abort", handlers.Upload.Abort)
		uploads.GET("", handlers.Upload.List)
		uploads.GET("/:asset_id", handlers.Upload.GetByID)
		uploads.GET("/:asset_id/download", handlers.Upload.Download)
		uploads.DELETE("/:asset_id", handlers.Upload.Delete)
	}
}

func (s *Server) Start() error {
	go func() {
		if s.logger != nil {
			s.logger.Infof("Starting the server on port %s...", s.config.AppPort)
		}
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if s.logger != nil {
				s.logger.Errorf("Error in starting the server: %s", err)
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	<-quit

	if s.logger != nil {
		s.logger.Infof("Quitting signal received.. Shutting down after 5 seconds")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		if s.logger != nil {
			s.logger.Infof("Error in the graceful shutdown of the server: %s", err)
		}
		return err
	}

	if s.logger != nil {
		s.logger.Infof("Server stopped gracefully")
	}

	return nil
}
