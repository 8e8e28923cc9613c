package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/gbid-catalog/internal/http/handlers"
	httpMW "github.com/yungbote/gbid-catalog/internal/http/middleware"
	"github.com/yungbote/gbid-catalog/internal/http/response"
	"github.com/yungbote/gbid-catalog/internal/observability"
	"github.com/yungbote/gbid-catalog/internal/platform/logger"
)

type RouterConfig struct {
	Log              *logger.Logger
	Metrics          *observability.Metrics
	CORSAllowOrigins []string
	// DisableMetricsRoute drops GET /metrics when a separate listener serves it.
	DisableMetricsRoute bool
	// TracingServiceName enables per-request server spans when set.
	TracingServiceName string

	AuthHandler    *httpH.AuthHandler
	AuthMiddleware *httpMW.AuthMiddleware
	CatalogHandler *httpH.CatalogHandler
	BatchHandler   *httpH.BatchHandler

	HealthHandler *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Recovery())
	if cfg.TracingServiceName != "" {
		r.Use(otelgin.Middleware(cfg.TracingServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSAllowOrigins))

	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, response.ErrorEnvelope{
			Error: response.APIError{Message: "Method not allowed", Code: "method_not_allowed"},
		})
	})

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil && !cfg.DisableMetricsRoute {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	api := r.Group("/api")
	{
		// Auth (public)
		if cfg.AuthHandler != nil {
			api.POST("/login", cfg.AuthHandler.Login)
		}
	}

	protected := api.Group("/")
	{
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		// Records
		if cfg.CatalogHandler != nil {
			protected.POST("/upload", cfg.CatalogHandler.Upload)
			protected.POST("/search", cfg.CatalogHandler.Search)
			protected.POST("/update", cfg.CatalogHandler.Update)
			protected.POST("/delete", cfg.CatalogHandler.Delete)
			protected.POST("/export", cfg.CatalogHandler.Export)
		}

		// Batches
		if cfg.BatchHandler != nil {
			protected.POST("/batch/csv", cfg.BatchHandler.CSV)
			protected.POST("/batch/bulk", cfg.BatchHandler.Bulk)
			protected.POST("/batch/delete", cfg.BatchHandler.Delete)
			protected.POST("/batch/update", cfg.BatchHandler.Update)
		}
	}

	return r
}
