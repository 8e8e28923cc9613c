package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"

	"github.com/yungbote/gbid-catalog/internal/platform/apierr"
	"github.com/yungbote/gbid-catalog/internal/platform/ctxutil"
	"github.com/yungbote/gbid-catalog/internal/platform/logger"
)

const (
	DefaultBaseURL    = "https://api.openai.com"
	DefaultEmbedModel = "text-embedding-3-large"
)

var tracer = otel.Tracer("github.com/yungbote/gbid-catalog/internal/platform/openai")

// Client is the embeddings surface of the OpenAI API.
type Client interface {
	// Embed returns one vector per input, in input order.
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
	Model() string
}

type Config struct {
	APIKey     string
	BaseURL    string
	EmbedModel string
	Timeout    time.Duration
	// MaxRPS caps embedding requests per second; 0 disables pacing.
	MaxRPS float64
}

type client struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	embedModel string
	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewClient(log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, apierr.NotConfigured("OpenAI API key not configured")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := strings.TrimSpace(cfg.EmbedModel)
	if model == "" {
		model = DefaultEmbedModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	c := &client{
		log:        log.With("service", "OpenAIClient"),
		baseURL:    baseURL,
		apiKey:     apiKey,
		embedModel: model,
		httpClient: &http.Client{Timeout: timeout},
	}
	if cfg.MaxRPS > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.MaxRPS), 1)
	}
	return c, nil
}

func (c *client) Model() string { return c.embedModel }

type embeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingsResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

func (c *client) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	const op = "embed"
	if len(inputs) == 0 {
		return [][]float32{}, nil
	}
	ctx = ctxutil.Default(ctx)

	ctx, span := tracer.Start(ctx, "openai.embeddings")
	defer span.End()
	span.SetAttributes(
		attribute.String("openai.model", c.embedModel),
		attribute.Int("openai.inputs", len(inputs)),
	)

	// Inputs go out verbatim; the API rejects empty strings.
	clean := make([]string, len(inputs))
	for i := range inputs {
		s := inputs[i]
		if strings.TrimSpace(s) == "" {
			s = " "
		}
		clean[i] = s
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			span.RecordError(err)
			return nil, apierr.Network(op, err)
		}
	}

	var resp embeddingsResponse
	if err := c.do(ctx, op, http.MethodPost, "/v1/embeddings", embeddingsRequest{Model: c.embedModel, Input: clean}, &resp); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	out := make([][]float32, len(clean))
	for pos, d := range resp.Data {
		idx := d.Index
		if idx < 0 || idx >= len(out) || out[idx] != nil {
			// Some OpenAI-compatible servers omit indices; fall back to position.
			idx = pos
		}
		if idx >= len(out) {
			continue
		}
		vec := make([]float32, len(d.Embedding))
		for i, f := range d.Embedding {
			vec[i] = float32(f)
		}
		out[idx] = vec
	}
	for i := range out {
		if len(out[i]) == 0 {
			err := &apierr.Error{
				Kind: apierr.KindEmbedding,
				Op:   op,
				Msg:  fmt.Sprintf("response missing embedding for input %d (requested=%d returned=%d model=%s)", i, len(clean), len(resp.Data), c.embedModel),
			}
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
	}
	return out, nil
}

func (c *client) do(ctx context.Context, op, method, path string, body any, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return apierr.Wrap(apierr.KindEmbedding, op, fmt.Errorf("encode request: %w", err))
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return apierr.Wrap(apierr.KindEmbedding, op, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	if rid := ctxutil.RequestID(ctx); rid != "" {
		req.Header.Set("X-Client-Request-Id", rid)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apierr.Network(op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return apierr.Network(op, fmt.Errorf("read response: %w", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.Warn("OpenAI request failed",
			"path", path,
			"status", resp.StatusCode,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return apierr.Embedding(op, resp.StatusCode, string(raw))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return apierr.Wrap(apierr.KindEmbedding, op, fmt.Errorf("decode response: %w", err))
	}
	return nil
}
