package observability

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yungbote/gbid-catalog/internal/platform/envutil"
	"github.com/yungbote/gbid-catalog/internal/platform/logger"
)

// Metrics holds the service's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	reg *prometheus.Registry

	apiRequests *prometheus.CounterVec
	apiLatency  *prometheus.HistogramVec
	apiInflight prometheus.Gauge

	catalogOps     *prometheus.CounterVec
	catalogLatency *prometheus.HistogramVec
	orphaned       prometheus.Counter

	vectorOps       *prometheus.CounterVec
	vectorLatency   *prometheus.HistogramVec
	vectorProvider  *prometheus.GaugeVec
	vectorBootstrap *prometheus.CounterVec

	embedRequests *prometheus.CounterVec
	embedLatency  *prometheus.HistogramVec

	batchItems *prometheus.CounterVec
	batchRuns  *prometheus.CounterVec
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool {
	return envutil.Bool("METRICS_ENABLED", false)
}

// Current returns the process-wide metrics set by Init, or nil.
func Current() *Metrics {
	return instance
}

// Init builds the process-wide metrics once.
func Init(log *logger.Logger) *Metrics {
	initOnce.Do(func() {
		instance = New()
		if log != nil {
			log.Info("Prometheus metrics initialized")
		}
	})
	return instance
}

// New builds a Metrics on its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		reg: reg,
		apiRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gbid_api_requests_total",
			Help: "HTTP requests served, by method, route and status",
		}, []string{"method", "route", "status"}),
		apiLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gbid_api_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		apiInflight: f.NewGauge(prometheus.GaugeOpts{
			Name: "gbid_api_inflight_requests",
			Help: "HTTP requests currently being served",
		}),
		catalogOps: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gbid_catalog_operations_total",
			Help: "Catalog record operations, by operation and outcome",
		}, []string{"operation", "status"}),
		catalogLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gbid_catalog_operation_duration_seconds",
			Help:    "Catalog record operation latency including upstream calls and retries",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"operation"}),
		orphaned: f.NewCounter(prometheus.CounterOpts{
			Name: "gbid_catalog_orphaned_records_total",
			Help: "Renames whose previous id could not be deleted",
		}),
		vectorOps: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gbid_vector_store_operations_total",
			Help: "Vector store calls, by provider, operation and outcome",
		}, []string{"provider", "operation", "status"}),
		vectorLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gbid_vector_store_operation_duration_seconds",
			Help:    "Vector store call latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider", "operation"}),
		vectorProvider: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "gbid_vector_store_provider_active",
			Help: "1 for the vector store provider in use, 0 otherwise",
		}, []string{"provider"}),
		vectorBootstrap: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gbid_vector_store_bootstrap_total",
			Help: "Vector store provider bootstrap attempts, by provider, outcome and error code",
		}, []string{"provider", "status", "code"}),
		embedRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gbid_embedding_requests_total",
			Help: "Embedding requests, by model and outcome",
		}, []string{"model", "status"}),
		embedLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gbid_embedding_request_duration_seconds",
			Help:    "Embedding request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"model"}),
		batchItems: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gbid_batch_items_total",
			Help: "Batch items processed, by batch kind and outcome",
		}, []string{"kind", "outcome"}),
		batchRuns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gbid_batch_runs_total",
			Help: "Completed batch runs, by batch kind",
		}, []string{"kind"}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.reg
}

// Handler serves the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// StartServer serves /metrics on addr until ctx is done.
func (m *Metrics) StartServer(ctx context.Context, log *logger.Logger, addr string) error {
	if m == nil || addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if log != nil {
		log.Info("Metrics server listening", "addr", addr)
	}
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.apiRequests.WithLabelValues(method, route, status).Inc()
	m.apiLatency.WithLabelValues(method, route).Observe(dur.Seconds())
}

func (m *Metrics) APIInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) APIInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func (m *Metrics) ObserveCatalogOperation(operation, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.catalogOps.WithLabelValues(operation, status).Inc()
	m.catalogLatency.WithLabelValues(operation).Observe(dur.Seconds())
}

func (m *Metrics) IncOrphanedRecord() {
	if m == nil {
		return
	}
	m.orphaned.Inc()
}

func (m *Metrics) ObserveVectorStoreOperation(provider, operation, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.vectorOps.WithLabelValues(provider, operation, status).Inc()
	m.vectorLatency.WithLabelValues(provider, operation).Observe(dur.Seconds())
}

// SetVectorStoreProviderActive marks provider ("pinecone", "qdrant" or
// "disabled") as the active one.
func (m *Metrics) SetVectorStoreProviderActive(provider string) {
	if m == nil {
		return
	}
	for _, p := range []string{"pinecone", "qdrant", "disabled"} {
		v := 0.0
		if p == provider {
			v = 1
		}
		m.vectorProvider.WithLabelValues(p).Set(v)
	}
}

func (m *Metrics) ObserveVectorStoreProviderBootstrap(provider, status, code string) {
	if m == nil {
		return
	}
	m.vectorBootstrap.WithLabelValues(provider, status, code).Inc()
}

func (m *Metrics) ObserveEmbedding(model, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.embedRequests.WithLabelValues(model, status).Inc()
	m.embedLatency.WithLabelValues(model).Observe(dur.Seconds())
}

// ObserveBatch records the outcome counts of one finished batch run.
func (m *Metrics) ObserveBatch(kind string, succeeded, failed, skipped int) {
	if m == nil {
		return
	}
	m.batchRuns.WithLabelValues(kind).Inc()
	m.batchItems.WithLabelValues(kind, "succeeded").Add(float64(succeeded))
	m.batchItems.WithLabelValues(kind, "failed").Add(float64(failed))
	m.batchItems.WithLabelValues(kind, "skipped").Add(float64(skipped))
}
