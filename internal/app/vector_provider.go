package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	neturl "net/url"
	"strings"

	"github.com/yungbote/gbid-catalog/internal/observability"
	"github.com/yungbote/gbid-catalog/internal/platform/apierr"
	"github.com/yungbote/gbid-catalog/internal/platform/logger"
	"github.com/yungbote/gbid-catalog/internal/platform/pinecone"
	"github.com/yungbote/gbid-catalog/internal/platform/qdrant"
)

var (
	newPineconeClient      = pinecone.New
	newPineconeVectorStore = pinecone.NewVectorStore
	newQdrantVectorStore   = qdrant.NewVectorStore
)

type VectorProviderBootstrapErrorCode string

const (
	VectorProviderBootstrapErrorInvalidProvider      VectorProviderBootstrapErrorCode = "invalid_provider"
	VectorProviderBootstrapErrorMissingQdrantURL     VectorProviderBootstrapErrorCode = "missing_qdrant_url"
	VectorProviderBootstrapErrorInvalidQdrantURL     VectorProviderBootstrapErrorCode = "invalid_qdrant_url"
	VectorProviderBootstrapErrorMissingQdrantColl    VectorProviderBootstrapErrorCode = "missing_qdrant_collection"
	VectorProviderBootstrapErrorMissingQdrantVector  VectorProviderBootstrapErrorCode = "missing_qdrant_vector_dim"
	VectorProviderBootstrapErrorInvalidQdrantVector  VectorProviderBootstrapErrorCode = "invalid_qdrant_vector_dim"
	VectorProviderBootstrapErrorQdrantConfigFailed   VectorProviderBootstrapErrorCode = "qdrant_config_failed"
	VectorProviderBootstrapErrorConnectFailed        VectorProviderBootstrapErrorCode = "connect_failed"
	VectorProviderBootstrapErrorProviderInitFailed   VectorProviderBootstrapErrorCode = "provider_init_failed"
	VectorProviderBootstrapCodeDisabledMissingAPIKey VectorProviderBootstrapErrorCode = "disabled_missing_api_key"
)

type VectorProviderBootstrapError struct {
	Code     VectorProviderBootstrapErrorCode
	Provider string
	Cause    error
}

func (e *VectorProviderBootstrapError) Error() string {
	if e == nil {
		return "vector provider bootstrap failed"
	}
	return fmt.Sprintf(
		"vector provider bootstrap failed (code=%s provider=%q): %v",
		e.Code,
		e.Provider,
		e.Cause,
	)
}

func (e *VectorProviderBootstrapError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// resolveVectorStore builds the configured provider's store wrapped with
// metrics. A nil store with a nil error means the provider is disabled for
// lack of credentials; record operations then report not_configured.
func resolveVectorStore(ctx context.Context, log *logger.Logger, cfg Config, metrics *observability.Metrics) (pinecone.VectorStore, error) {
	vpc, err := resolveVectorProviderConfig(cfg)
	if err != nil {
		var cfgErr *VectorProviderConfigError
		code := VectorProviderBootstrapErrorInvalidProvider
		if errors.As(err, &cfgErr) && cfgErr.Code != VectorProviderConfigErrorInvalidProvider {
			code = vectorProviderBootstrapErrorCode(classifyVectorProviderBootstrapError(string(cfgErr.Provider), cfgErr.Cause))
		}
		metrics.ObserveVectorStoreProviderBootstrap(cfg.VectorProvider, "error", string(code))
		log.Error("Vector store provider selection failed",
			"provider", cfg.VectorProvider,
			"error_code", code,
			"error", err,
		)
		return nil, &VectorProviderBootstrapError{Code: code, Provider: cfg.VectorProvider, Cause: err}
	}

	provider := string(vpc.Provider)
	metrics.SetVectorStoreProviderActive(provider)

	switch vpc.Provider {
	case VectorProviderQdrant:
		log.Info(
			"Selecting vector store provider",
			"provider", provider,
			"qdrant_url", vpc.Qdrant.URL,
			"qdrant_collection", vpc.Qdrant.Collection,
			"qdrant_namespace_prefix", vpc.Qdrant.NamespacePrefix,
			"qdrant_vector_dim", vpc.Qdrant.VectorDim,
		)

		vs, err := newQdrantVectorStore(ctx, log, vpc.Qdrant)
		if err != nil {
			return nil, bootstrapFailed(log, metrics, provider, err)
		}
		metrics.ObserveVectorStoreProviderBootstrap(provider, "success", "none")
		return instrumentVectorStore(provider, vs, metrics), nil

	default:
		log.Info(
			"Selecting vector store provider",
			"provider", provider,
			"pinecone_index", cfg.PineconeIndex,
			"pinecone_host_set", strings.TrimSpace(cfg.PineconeHost) != "",
		)

		if strings.TrimSpace(cfg.PineconeAPIKey) == "" {
			log.Warn("PINECONE_API_KEY not set; vector store disabled")
			metrics.SetVectorStoreProviderActive("disabled")
			metrics.ObserveVectorStoreProviderBootstrap(
				provider,
				"degraded",
				string(VectorProviderBootstrapCodeDisabledMissingAPIKey),
			)
			return nil, nil
		}

		pc, err := newPineconeClient(log, pinecone.Config{
			APIKey:     strings.TrimSpace(cfg.PineconeAPIKey),
			APIVersion: strings.TrimSpace(cfg.PineconeAPIVersion),
		})
		if err != nil {
			return nil, bootstrapFailed(log, metrics, provider, err)
		}

		vs, err := newPineconeVectorStore(ctx, log, pc, pinecone.StoreConfig{
			IndexName: strings.TrimSpace(cfg.PineconeIndex),
			IndexHost: strings.TrimSpace(cfg.PineconeHost),
		})
		if err != nil {
			return nil, bootstrapFailed(log, metrics, provider, err)
		}

		metrics.ObserveVectorStoreProviderBootstrap(provider, "success", "none")
		return instrumentVectorStore(provider, vs, metrics), nil
	}
}

func bootstrapFailed(log *logger.Logger, metrics *observability.Metrics, provider string, err error) error {
	classified := classifyVectorProviderBootstrapError(provider, err)
	code := vectorProviderBootstrapErrorCode(classified)
	metrics.ObserveVectorStoreProviderBootstrap(provider, "error", string(code))
	log.Error(
		"Vector store provider bootstrap failed",
		"provider", provider,
		"error_code", code,
		"error", classified,
	)
	return classified
}

func classifyVectorProviderBootstrapError(provider string, err error) error {
	wrap := func(code VectorProviderBootstrapErrorCode) error {
		return &VectorProviderBootstrapError{Code: code, Provider: provider, Cause: err}
	}

	var urlErr *neturl.Error
	if errors.As(err, &urlErr) {
		return wrap(VectorProviderBootstrapErrorConnectFailed)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return wrap(VectorProviderBootstrapErrorConnectFailed)
	}
	if apierr.IsKind(err, apierr.KindNetwork) {
		return wrap(VectorProviderBootstrapErrorConnectFailed)
	}
	errLower := strings.ToLower(err.Error())
	if strings.Contains(errLower, "ready check failed") || strings.Contains(errLower, "connection refused") {
		return wrap(VectorProviderBootstrapErrorConnectFailed)
	}

	var cfgErr *qdrant.ConfigError
	if errors.As(err, &cfgErr) {
		switch cfgErr.Code {
		case qdrant.ConfigErrorMissingURL:
			return wrap(VectorProviderBootstrapErrorMissingQdrantURL)
		case qdrant.ConfigErrorInvalidURL:
			return wrap(VectorProviderBootstrapErrorInvalidQdrantURL)
		case qdrant.ConfigErrorMissingCollection:
			return wrap(VectorProviderBootstrapErrorMissingQdrantColl)
		case qdrant.ConfigErrorMissingVectorDim:
			return wrap(VectorProviderBootstrapErrorMissingQdrantVector)
		case qdrant.ConfigErrorInvalidVectorDim:
			return wrap(VectorProviderBootstrapErrorInvalidQdrantVector)
		default:
			return wrap(VectorProviderBootstrapErrorQdrantConfigFailed)
		}
	}

	return wrap(VectorProviderBootstrapErrorProviderInitFailed)
}

func vectorProviderBootstrapErrorCode(err error) VectorProviderBootstrapErrorCode {
	var bootstrapErr *VectorProviderBootstrapError
	if errors.As(err, &bootstrapErr) {
		if bootstrapErr.Code != "" {
			return bootstrapErr.Code
		}
	}
	return VectorProviderBootstrapErrorConnectFailed
}
