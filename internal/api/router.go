package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/csheth/sanctuary/internal/api/middleware"
	"github.com/csheth/sanctuary/internal/session"
)

// RouterConfig holds configuration for the router
type RouterConfig struct {
	AllowOrigins []string
	// MaxUploadBytes bounds multipart parsing held in memory.
	MaxUploadBytes int64
}

// SetupRouter wires the JSON API, the browser pages and the health check.
func SetupRouter(sessions *session.Service, logger *zap.Logger, cfg RouterConfig) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.CORS(cfg.AllowOrigins))
	if cfg.MaxUploadBytes > 0 {
		r.MaxMultipartMemory = cfg.MaxUploadBytes
	}
	r.SetHTMLTemplate(loadTemplates())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	NewHandler(sessions, logger).RegisterRoutes(r.Group("/api"))
	NewPages(sessions, logger).RegisterRoutes(r)

	return r
}
