package app

import (
	"github.com/yungbote/gbid-catalog/internal/modules/catalog"
	"github.com/yungbote/gbid-catalog/internal/modules/catalog/batch"
	"github.com/yungbote/gbid-catalog/internal/observability"
	"github.com/yungbote/gbid-catalog/internal/platform/apierr"
	"github.com/yungbote/gbid-catalog/internal/platform/httpx"
	"github.com/yungbote/gbid-catalog/internal/platform/logger"
	"github.com/yungbote/gbid-catalog/internal/services"
)

type Services struct {
	Catalog   catalog.Usecases
	Batch     *batch.Runner
	AdminAuth services.AdminAuthService
}

func wireServices(log *logger.Logger, cfg Config, clients Clients, metrics *observability.Metrics) Services {
	log.Info("Wiring services...")

	cat := catalog.New(catalog.UsecasesDeps{
		Log:       log,
		AI:        clients.OpenAI,
		Vec:       clients.Vector,
		Namespace: cfg.PineconeNamespace,
		TopK:      cfg.SearchTopK,
		WritePolicy: httpx.Policy{
			Attempts:       cfg.UpsertMaxAttempts,
			Delay:          cfg.UpsertRetryDelay,
			AttemptTimeout: cfg.UpsertAttemptTimeout,
			Retryable:      apierr.Retryable,
		},
		Metrics: metrics,
	})

	runner := batch.NewRunner(cat, batch.Options{
		Log:       log,
		BulkPause: cfg.BulkPause,
		Metrics:   metrics,
	})

	adminAuth := services.NewAdminAuthService(log, cfg.AdminPasswordHash, cfg.AdminJWTSecret, cfg.AdminTokenTTL)
	if !adminAuth.Enabled() {
		log.Warn("Admin auth disabled; catalog API is open")
	}

	return Services{
		Catalog:   cat,
		Batch:     runner,
		AdminAuth: adminAuth,
	}
}
