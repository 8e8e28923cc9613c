package app

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/gbid-catalog/internal/http"
	"github.com/yungbote/gbid-catalog/internal/observability"
	"github.com/yungbote/gbid-catalog/internal/platform/logger"
)

func wireRouter(log *logger.Logger, cfg Config, metrics *observability.Metrics, handlers Handlers, middleware Middleware) *gin.Engine {
	if cfg.LogMode == "prod" || cfg.LogMode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	rc := http.RouterConfig{
		Log:                 log,
		Metrics:             metrics,
		CORSAllowOrigins:    cfg.CORSAllowOrigins,
		DisableMetricsRoute: cfg.MetricsAddr != "",
		HealthHandler:       handlers.Health,
		AuthHandler:         handlers.Auth,
		AuthMiddleware:      middleware.Auth,
		CatalogHandler:      handlers.Catalog,
		BatchHandler:        handlers.Batch,
	}
	if cfg.OtelEnabled {
		rc.TracingServiceName = cfg.ServiceName
	}
	return http.NewRouter(rc)
}
