package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/speedsheet/api/handler"
	"github.com/use-agent/speedsheet/api/middleware"
	"github.com/use-agent/speedsheet/artifact"
	"github.com/use-agent/speedsheet/bundle"
	"github.com/use-agent/speedsheet/cache"
	"github.com/use-agent/speedsheet/capture"
	"github.com/use-agent/speedsheet/config"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger → CORS
//	API:     Auth (if enabled) → RateLimit
//
// Ping and health endpoints are intentionally outside auth so monitoring
// probes always work. Everything mounts under /api, which is the prefix the
// client's base URL carries.
func NewRouter(capt capture.Capturer, bnd bundle.Bundler, store *artifact.Store, cc *cache.Cache, cfg *config.Config, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())
	r.Use(middleware.CORS())

	root := r.Group("/api")

	// Ping and health, no auth required.
	root.GET("/", handler.Ping())
	root.GET("/health", handler.Health(capt, cfg.Capture.MaxConcurrent, startTime))

	// Protected group, auth + rate limit.
	protected := root.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(cfg.RateLimit))

	// Batch processing
	protected.POST("/process-speedtest", handler.ProcessSpeedtest(capt, bnd, store, cc, cfg))

	// Artifact download
	protected.GET("/download/:fileName", handler.Download(store))

	return r
}
