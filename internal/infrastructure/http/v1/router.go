// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"ledgertree/internal/infrastructure/http/v1/handlers"
	"ledgertree/internal/infrastructure/http/v1/middleware"
	"ledgertree/pkg/logger"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	// Logger for request logging
	Logger *logger.Logger

	// Reports runs catalog reports
	Reports handlers.ReportRunner

	// DB and Cache are checked by the readiness probe. Cache may be nil.
	DB    handlers.Pinger
	Cache handlers.Pinger

	// Version is reported by /health/info
	Version string

	// Debug switches gin to debug mode
	Debug bool
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Default()
	}

	router := gin.New()

	// Order matters: ErrorHandler must run inside Logger so the logged
	// status is the final one.
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	if cfg.DB != nil {
		healthHandler := handlers.NewHealthHandler(cfg.DB, cfg.Cache, cfg.Version)
		health := router.Group("/health")
		{
			health.GET("/live", healthHandler.Live)
			health.GET("/ready", healthHandler.Ready)
			health.GET("/info", healthHandler.Info)
		}
	}

	v1 := router.Group("/api/v1")
	{
		reportHandler := handlers.NewReportsHandler(handlers.NewBaseHandler(), cfg.Reports)
		RegisterReportRoutes(v1.Group("/reports"), reportHandler)
	}

	return router
}
