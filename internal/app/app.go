package app

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/gbid-catalog/internal/http"
	"github.com/yungbote/gbid-catalog/internal/observability"
	"github.com/yungbote/gbid-catalog/internal/platform/logger"
)

type App struct {
	Log      *logger.Logger
	Router   *gin.Engine
	Cfg      Config
	Metrics  *observability.Metrics
	Clients  Clients
	Services Services

	server       *http.Server
	otelShutdown func(context.Context) error
}

func New(ctx context.Context) (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading configuration...")
	cfg, err := LoadConfig(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		if cfg.Strict {
			log.Sync()
			return nil, err
		}
		log.Warn("Configuration incomplete; record operations will fail until it is fixed", "error", err)
	}

	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		Enabled:     cfg.OtelEnabled,
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
	})

	var metrics *observability.Metrics
	if cfg.MetricsEnabled {
		metrics = observability.Init(log)
	}

	clientset, err := wireClients(ctx, log, cfg, metrics)
	if err != nil {
		_ = otelShutdown(context.Background())
		log.Sync()
		return nil, err
	}

	serviceset := wireServices(log, cfg, clientset, metrics)
	handlerset := wireHandlers(ctx, log, serviceset)
	middleware := wireMiddleware(log, serviceset)
	router := wireRouter(log, cfg, metrics, handlerset, middleware)

	return &App{
		Log:          log,
		Router:       router,
		Cfg:          cfg,
		Metrics:      metrics,
		Clients:      clientset,
		Services:     serviceset,
		server:       http.NewServer(log, router, cfg.ShutdownTimeout),
		otelShutdown: otelShutdown,
	}, nil
}

// Run serves the API, and the metrics listener when METRICS_ADDR is set,
// until ctx is cancelled or either listener fails.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.server == nil {
		return fmt.Errorf("app not initialized")
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.server.Run(gctx, a.Cfg.HTTPAddr)
	})
	if a.Metrics != nil && a.Cfg.MetricsAddr != "" {
		g.Go(func() error {
			return a.Metrics.StartServer(gctx, a.Log, a.Cfg.MetricsAddr)
		})
	}
	return g.Wait()
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), a.Cfg.ShutdownTimeout)
		defer cancel()
		if err := a.otelShutdown(ctx); err != nil && a.Log != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
