package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/gbid-catalog/internal/platform/apierr"
	"github.com/yungbote/gbid-catalog/internal/platform/envutil"
	"github.com/yungbote/gbid-catalog/internal/platform/logger"
	"github.com/yungbote/gbid-catalog/internal/platform/openai"
	"github.com/yungbote/gbid-catalog/internal/platform/pinecone"
)

// Config is the whole runtime configuration. It is built once by LoadConfig
// from defaults, an optional YAML file (GBID_CONFIG_PATH), and environment
// variables, in that order of precedence.
type Config struct {
	LogMode          string        `yaml:"log_mode"`
	HTTPAddr         string        `yaml:"http_addr"`
	ShutdownTimeout  time.Duration `yaml:"http_shutdown_timeout"`
	CORSAllowOrigins []string      `yaml:"cors_allow_origins"`

	OpenAIAPIKey     string        `yaml:"openai_api_key"`
	OpenAIBaseURL    string        `yaml:"openai_base_url"`
	OpenAIEmbedModel string        `yaml:"openai_embed_model"`
	OpenAITimeout    time.Duration `yaml:"openai_timeout"`
	OpenAIMaxRPS     float64       `yaml:"openai_max_rps"`

	VectorProvider string `yaml:"vector_provider"`

	PineconeAPIKey     string `yaml:"pinecone_api_key"`
	PineconeHost       string `yaml:"pinecone_host"`
	PineconeIndex      string `yaml:"pinecone_index"`
	PineconeNamespace  string `yaml:"pinecone_namespace"`
	PineconeAPIVersion string `yaml:"pinecone_api_version"`

	QdrantURL             string `yaml:"qdrant_url"`
	QdrantCollection      string `yaml:"qdrant_collection"`
	QdrantNamespacePrefix string `yaml:"qdrant_namespace_prefix"`
	QdrantVectorDim       int    `yaml:"qdrant_vector_dim"`
	QdrantAPIKey          string `yaml:"qdrant_api_key"`

	SearchTopK           int           `yaml:"search_top_k"`
	UpsertMaxAttempts    int           `yaml:"upsert_max_attempts"`
	UpsertRetryDelay     time.Duration `yaml:"upsert_retry_delay"`
	UpsertAttemptTimeout time.Duration `yaml:"upsert_attempt_timeout"`
	BulkPause            time.Duration `yaml:"bulk_pause"`

	AdminPasswordHash string        `yaml:"admin_password_hash"`
	AdminJWTSecret    string        `yaml:"admin_jwt_secret"`
	AdminTokenTTL     time.Duration `yaml:"admin_token_ttl"`

	MetricsEnabled bool   `yaml:"metrics_enabled"`
	MetricsAddr    string `yaml:"metrics_addr"`
	OtelEnabled    bool   `yaml:"otel_enabled"`
	ServiceName    string `yaml:"service_name"`
	Environment    string `yaml:"environment"`

	// Strict refuses to start with missing credentials. Otherwise the service
	// boots and every record operation reports not_configured.
	Strict bool `yaml:"config_strict"`
}

func defaultConfig() Config {
	return Config{
		LogMode:               "development",
		HTTPAddr:              ":8080",
		ShutdownTimeout:       15 * time.Second,
		CORSAllowOrigins:      []string{"*"},
		OpenAIBaseURL:         openai.DefaultBaseURL,
		OpenAIEmbedModel:      openai.DefaultEmbedModel,
		OpenAITimeout:         60 * time.Second,
		VectorProvider:        string(VectorProviderPinecone),
		PineconeAPIVersion:    pinecone.DefaultAPIVersion,
		QdrantNamespacePrefix: "gbid",
		SearchTopK:            50,
		UpsertMaxAttempts:     3,
		UpsertRetryDelay:      2 * time.Second,
		UpsertAttemptTimeout:  30 * time.Second,
		BulkPause:             500 * time.Millisecond,
		AdminTokenTTL:         12 * time.Hour,
		ServiceName:           "gbid-catalog",
		Environment:           "development",
		Strict:                true,
	}
}

// LoadConfig resolves the configuration. Only an unreadable or malformed
// config file is an error; missing credentials are reported by Validate.
func LoadConfig(log *logger.Logger) (Config, error) {
	cfg := defaultConfig()

	if path := envutil.String("GBID_CONFIG_PATH", ""); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
		if log != nil {
			log.Info("Loaded config file", "path", path)
		}
	}

	applyEnv(&cfg)
	cfg.VectorProvider = strings.ToLower(strings.TrimSpace(cfg.VectorProvider))
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.LogMode = envutil.String("LOG_MODE", cfg.LogMode)
	if port := envutil.String("PORT", ""); port != "" {
		cfg.HTTPAddr = ":" + strings.TrimPrefix(port, ":")
	}
	cfg.HTTPAddr = envutil.String("HTTP_ADDR", cfg.HTTPAddr)
	cfg.ShutdownTimeout = envutil.Duration("HTTP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	cfg.CORSAllowOrigins = envutil.List("CORS_ALLOW_ORIGINS", cfg.CORSAllowOrigins)

	cfg.OpenAIAPIKey = envutil.String("OPENAI_API_KEY", cfg.OpenAIAPIKey)
	cfg.OpenAIBaseURL = envutil.String("OPENAI_BASE_URL", cfg.OpenAIBaseURL)
	cfg.OpenAIEmbedModel = envutil.String("OPENAI_EMBED_MODEL", cfg.OpenAIEmbedModel)
	cfg.OpenAITimeout = envutil.Duration("OPENAI_TIMEOUT_SECONDS", cfg.OpenAITimeout)
	cfg.OpenAIMaxRPS = envutil.Float("OPENAI_MAX_RPS", cfg.OpenAIMaxRPS)

	cfg.VectorProvider = envutil.String("VECTOR_PROVIDER", cfg.VectorProvider)

	cfg.PineconeAPIKey = envutil.String("PINECONE_API_KEY", cfg.PineconeAPIKey)
	cfg.PineconeHost = envutil.String("PINECONE_HOST", cfg.PineconeHost)
	cfg.PineconeIndex = envutil.String("PINECONE_INDEX", cfg.PineconeIndex)
	cfg.PineconeNamespace = envutil.String("PINECONE_NAMESPACE", cfg.PineconeNamespace)
	cfg.PineconeAPIVersion = envutil.String("PINECONE_API_VERSION", cfg.PineconeAPIVersion)

	cfg.QdrantURL = envutil.String("QDRANT_URL", cfg.QdrantURL)
	cfg.QdrantCollection = envutil.String("QDRANT_COLLECTION", cfg.QdrantCollection)
	cfg.QdrantNamespacePrefix = envutil.String("QDRANT_NAMESPACE_PREFIX", cfg.QdrantNamespacePrefix)
	cfg.QdrantVectorDim = envutil.Int("QDRANT_VECTOR_DIM", cfg.QdrantVectorDim)
	cfg.QdrantAPIKey = envutil.String("QDRANT_API_KEY", cfg.QdrantAPIKey)

	cfg.SearchTopK = envutil.Int("SEARCH_TOP_K", cfg.SearchTopK)
	cfg.UpsertMaxAttempts = envutil.Int("UPSERT_MAX_ATTEMPTS", cfg.UpsertMaxAttempts)
	cfg.UpsertRetryDelay = envutil.Duration("UPSERT_RETRY_DELAY", cfg.UpsertRetryDelay)
	cfg.UpsertAttemptTimeout = envutil.Duration("UPSERT_ATTEMPT_TIMEOUT", cfg.UpsertAttemptTimeout)
	cfg.BulkPause = envutil.Duration("BULK_PAUSE", cfg.BulkPause)

	cfg.AdminPasswordHash = envutil.String("ADMIN_PASSWORD_HASH", cfg.AdminPasswordHash)
	cfg.AdminJWTSecret = envutil.String("ADMIN_JWT_SECRET", cfg.AdminJWTSecret)
	cfg.AdminTokenTTL = envutil.Duration("ADMIN_TOKEN_TTL", cfg.AdminTokenTTL)

	cfg.MetricsEnabled = envutil.Bool("METRICS_ENABLED", cfg.MetricsEnabled)
	cfg.MetricsAddr = envutil.String("METRICS_ADDR", cfg.MetricsAddr)
	cfg.OtelEnabled = envutil.Bool("OTEL_ENABLED", cfg.OtelEnabled)
	cfg.ServiceName = envutil.String("OTEL_SERVICE_NAME", cfg.ServiceName)
	cfg.Environment = envutil.String("APP_ENV", cfg.Environment)

	cfg.Strict = envutil.Bool("CONFIG_STRICT", cfg.Strict)
}

// Validate reports every missing or inconsistent setting at once as a
// not_configured error.
func (c Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.OpenAIAPIKey) == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}

	switch VectorProvider(c.VectorProvider) {
	case VectorProviderPinecone:
		if strings.TrimSpace(c.PineconeAPIKey) == "" {
			missing = append(missing, "PINECONE_API_KEY")
		}
		if strings.TrimSpace(c.PineconeHost) == "" && strings.TrimSpace(c.PineconeIndex) == "" {
			missing = append(missing, "PINECONE_HOST or PINECONE_INDEX")
		}
	case VectorProviderQdrant:
		if strings.TrimSpace(c.QdrantURL) == "" {
			missing = append(missing, "QDRANT_URL")
		}
		if strings.TrimSpace(c.QdrantCollection) == "" {
			missing = append(missing, "QDRANT_COLLECTION")
		}
		if c.QdrantVectorDim <= 0 {
			missing = append(missing, "QDRANT_VECTOR_DIM")
		}
	default:
		missing = append(missing, fmt.Sprintf("VECTOR_PROVIDER (unsupported %q)", c.VectorProvider))
	}

	if (c.AdminPasswordHash == "") != (c.AdminJWTSecret == "") {
		missing = append(missing, "ADMIN_PASSWORD_HASH and ADMIN_JWT_SECRET together")
	}

	if len(missing) == 0 {
		return nil
	}
	return apierr.NotConfigured("missing configuration: " + strings.Join(missing, ", "))
}
