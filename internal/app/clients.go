package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/gbid-catalog/internal/observability"
	"github.com/yungbote/gbid-catalog/internal/platform/logger"
	"github.com/yungbote/gbid-catalog/internal/platform/openai"
	"github.com/yungbote/gbid-catalog/internal/platform/pinecone"
)

var newOpenAIClient = openai.NewClient

// Clients are the upstream services. Either may be nil when the service runs
// degraded (CONFIG_STRICT=false with missing credentials).
type Clients struct {
	OpenAI openai.Client
	Vector pinecone.VectorStore
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config, metrics *observability.Metrics) (Clients, error) {
	log.Info("Wiring clients...")

	var out Clients

	// Openai
	if strings.TrimSpace(cfg.OpenAIAPIKey) == "" {
		log.Warn("OPENAI_API_KEY not set; embeddings disabled")
	} else {
		ai, err := newOpenAIClient(log, openai.Config{
			APIKey:     cfg.OpenAIAPIKey,
			BaseURL:    cfg.OpenAIBaseURL,
			EmbedModel: cfg.OpenAIEmbedModel,
			Timeout:    cfg.OpenAITimeout,
			MaxRPS:     cfg.OpenAIMaxRPS,
		})
		if err != nil {
			return Clients{}, fmt.Errorf("init openai client: %w", err)
		}
		out.OpenAI = instrumentEmbedder(ai, metrics)
	}

	// Vector store
	vs, err := resolveVectorStore(ctx, log, cfg, metrics)
	if err != nil {
		if cfg.Strict {
			return Clients{}, fmt.Errorf("init vector store: %w", err)
		}
		log.Warn("Vector store unavailable; continuing degraded", "error", err)
	}
	out.Vector = vs

	return out, nil
}
