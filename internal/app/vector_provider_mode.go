package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/yungbote/gbid-catalog/internal/platform/qdrant"
)

type VectorProvider string

const (
	VectorProviderPinecone VectorProvider = "pinecone"
	VectorProviderQdrant   VectorProvider = "qdrant"
)

type VectorProviderConfigErrorCode string

const (
	VectorProviderConfigErrorInvalidProvider      VectorProviderConfigErrorCode = "invalid_provider"
	VectorProviderConfigErrorMissingQdrantURL     VectorProviderConfigErrorCode = "missing_qdrant_url"
	VectorProviderConfigErrorInvalidQdrantURL     VectorProviderConfigErrorCode = "invalid_qdrant_url"
	VectorProviderConfigErrorMissingQdrantColl    VectorProviderConfigErrorCode = "missing_qdrant_collection"
	VectorProviderConfigErrorMissingQdrantVector  VectorProviderConfigErrorCode = "missing_qdrant_vector_dim"
	VectorProviderConfigErrorInvalidQdrantVector  VectorProviderConfigErrorCode = "invalid_qdrant_vector_dim"
	VectorProviderConfigErrorUnknownQdrantFailure VectorProviderConfigErrorCode = "qdrant_config_error"
)

type VectorProviderConfigError struct {
	Code     VectorProviderConfigErrorCode
	Provider VectorProvider
	Cause    error
}

func (e *VectorProviderConfigError) Error() string {
	if e == nil {
		return "invalid vector provider config"
	}
	return fmt.Sprintf(
		"invalid vector provider config (code=%s provider=%q): %v",
		e.Code,
		e.Provider,
		e.Cause,
	)
}

func (e *VectorProviderConfigError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// VectorProviderConfig is the provider-specific slice of Config.
type VectorProviderConfig struct {
	Provider  VectorProvider
	Namespace string
	Qdrant    qdrant.Config
}

func resolveVectorProviderConfig(cfg Config) (VectorProviderConfig, error) {
	provider := VectorProvider(strings.ToLower(strings.TrimSpace(cfg.VectorProvider)))
	switch provider {
	case VectorProviderQdrant:
		qcfg := qdrant.Config{
			URL:             strings.TrimSpace(cfg.QdrantURL),
			Collection:      strings.TrimSpace(cfg.QdrantCollection),
			NamespacePrefix: strings.TrimSpace(cfg.QdrantNamespacePrefix),
			VectorDim:       cfg.QdrantVectorDim,
			APIKey:          strings.TrimSpace(cfg.QdrantAPIKey),
		}
		if err := qdrant.ValidateConfig(qcfg, cfg.QdrantVectorDim != 0); err != nil {
			return VectorProviderConfig{}, mapVectorProviderConfigError(err)
		}
		return VectorProviderConfig{
			Provider:  VectorProviderQdrant,
			Namespace: strings.TrimSpace(cfg.PineconeNamespace),
			Qdrant:    qcfg,
		}, nil
	case VectorProviderPinecone:
		return VectorProviderConfig{
			Provider:  VectorProviderPinecone,
			Namespace: strings.TrimSpace(cfg.PineconeNamespace),
		}, nil
	default:
		return VectorProviderConfig{}, &VectorProviderConfigError{
			Code:     VectorProviderConfigErrorInvalidProvider,
			Provider: provider,
			Cause:    fmt.Errorf("unsupported vector provider %q", provider),
		}
	}
}

func mapVectorProviderConfigError(err error) error {
	var qerr *qdrant.ConfigError
	if errors.As(err, &qerr) {
		code := VectorProviderConfigErrorUnknownQdrantFailure
		switch qerr.Code {
		case qdrant.ConfigErrorMissingURL:
			code = VectorProviderConfigErrorMissingQdrantURL
		case qdrant.ConfigErrorInvalidURL:
			code = VectorProviderConfigErrorInvalidQdrantURL
		case qdrant.ConfigErrorMissingCollection:
			code = VectorProviderConfigErrorMissingQdrantColl
		case qdrant.ConfigErrorMissingVectorDim:
			code = VectorProviderConfigErrorMissingQdrantVector
		case qdrant.ConfigErrorInvalidVectorDim:
			code = VectorProviderConfigErrorInvalidQdrantVector
		}
		return &VectorProviderConfigError{
			Code:     code,
			Provider: VectorProviderQdrant,
			Cause:    err,
		}
	}
	return &VectorProviderConfigError{
		Code:     VectorProviderConfigErrorUnknownQdrantFailure,
		Provider: VectorProviderQdrant,
		Cause:    err,
	}
}
