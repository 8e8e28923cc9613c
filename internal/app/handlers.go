package app

import (
	"context"

	httpH "github.com/yungbote/gbid-catalog/internal/http/handlers"
	"github.com/yungbote/gbid-catalog/internal/platform/logger"
)

type Handlers struct {
	Health  *httpH.HealthHandler
	Auth    *httpH.AuthHandler
	Catalog *httpH.CatalogHandler
	Batch   *httpH.BatchHandler
}

// Batch runs stop only when ctx (the process lifetime) ends.
func wireHandlers(ctx context.Context, log *logger.Logger, services Services) Handlers {
	log.Info("Wiring handlers...")
	h := Handlers{
		Health:  httpH.NewHealthHandler(),
		Catalog: httpH.NewCatalogHandler(log, services.Catalog),
		Batch:   httpH.NewBatchHandler(log, services.Batch).BindLifetime(ctx),
	}
	if services.AdminAuth != nil && services.AdminAuth.Enabled() {
		h.Auth = httpH.NewAuthHandler(services.AdminAuth)
	}
	return h
}
