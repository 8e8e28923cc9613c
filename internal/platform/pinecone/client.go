package pinecone

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

	"github.com/yungbote/gbid-catalog/internal/platform/apierr"
	"github.com/yungbote/gbid-catalog/internal/platform/ctxutil"
	"github.com/yungbote/gbid-catalog/internal/platform/logger"
)

const (
	DefaultAPIVersion      = "2025-10"
	DefaultControlPlaneURL = "https://api.pinecone.io"
)

var tracer = otel.Tracer("github.com/yungbote/gbid-catalog/internal/platform/pinecone")

// Client is a thin HTTP client for the Pinecone control and data planes.
type Client interface {
	DescribeIndex(ctx context.Context, indexName string) (*IndexDescription, error)
	UpsertVectors(ctx context.Context, host string, req UpsertRequest) (*UpsertResponse, error)
	Query(ctx context.Context, host string, req QueryRequest) (*QueryResponse, error)
	DeleteVectors(ctx context.Context, host string, req DeleteRequest) (*DeleteResponse, error)
}

type Config struct {
	APIKey          string
	APIVersion      string
	ControlPlaneURL string
	Timeout         time.Duration
}

type client struct {
	log  *logger.Logger
	cfg  Config
	http *http.Client
}

func New(log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, apierr.NotConfigured("PINECONE_API_KEY not set")
	}
	if strings.TrimSpace(cfg.APIVersion) == "" {
		cfg.APIVersion = DefaultAPIVersion
	}
	if strings.TrimSpace(cfg.ControlPlaneURL) == "" {
		cfg.ControlPlaneURL = DefaultControlPlaneURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &client{
		log:  log.With("client", "PineconeClient"),
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// -------------------- Control plane --------------------

type IndexDescription struct {
	Name      string `json:"name"`
	Host      string `json:"host"`
	Dimension int    `json:"dimension"`
	Metric    string `json:"metric"`
	Status    struct {
		Ready bool   `json:"ready"`
		State string `json:"state"`
	} `json:"status"`
}

func (c *client) DescribeIndex(ctx context.Context, indexName string) (*IndexDescription, error) {
	indexName = strings.TrimSpace(indexName)
	if indexName == "" {
		return nil, apierr.Validation("index name required")
	}
	u := strings.TrimRight(c.cfg.ControlPlaneURL, "/") + "/indexes/" + indexName
	out, err := doJSON[IndexDescription](c, ctx, "describe_index", http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(out.Host) == "" {
		return nil, &apierr.Error{Kind: apierr.KindStore, Op: "describe_index", Msg: "returned empty host"}
	}
	return out, nil
}

// -------------------- Data plane --------------------

type Vector struct {
	ID       string         `json:"id"`
	Values   []float32      `json:"values"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type UpsertRequest struct {
	Vectors   []Vector `json:"vectors"`
	Namespace string   `json:"namespace,omitempty"`
}

type UpsertResponse struct {
	UpsertedCount int64 `json:"upsertedCount"`
}

func (c *client) UpsertVectors(ctx context.Context, host string, req UpsertRequest) (*UpsertResponse, error) {
	if len(req.Vectors) == 0 {
		return &UpsertResponse{UpsertedCount: 0}, nil
	}
	base, err := normalizeHost(host)
	if err != nil {
		return nil, err
	}
	return doJSON[UpsertResponse](c, ctx, "upsert", http.MethodPost, base+"/vectors/upsert", req)
}

type QueryRequest struct {
	Namespace       string         `json:"namespace,omitempty"`
	Vector          []float32      `json:"vector"`
	TopK            int            `json:"topK"`
	Filter          map[string]any `json:"filter,omitempty"`
	IncludeValues   bool           `json:"includeValues"`
	IncludeMetadata bool           `json:"includeMetadata"`
}

type QueryMatch struct {
	ID       string         `json:"id"`
	Score    float64        `json:"score"`
	Values   []float32      `json:"values,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type QueryResponse struct {
	Matches   []QueryMatch `json:"matches"`
	Namespace string       `json:"namespace"`
}

func (c *client) Query(ctx context.Context, host string, req QueryRequest) (*QueryResponse, error) {
	if req.TopK <= 0 {
		req.TopK = 10
	}
	if len(req.Vector) == 0 {
		return nil, apierr.Validation("query vector required")
	}
	base, err := normalizeHost(host)
	if err != nil {
		return nil, err
	}
	return doJSON[QueryResponse](c, ctx, "query", http.MethodPost, base+"/query", req)
}

type DeleteRequest struct {
	IDs       []string `json:"ids"`
	Namespace string   `json:"namespace,omitempty"`
}

type DeleteResponse struct{}

func (c *client) DeleteVectors(ctx context.Context, host string, req DeleteRequest) (*DeleteResponse, error) {
	if len(req.IDs) == 0 {
		return &DeleteResponse{}, nil
	}
	base, err := normalizeHost(host)
	if err != nil {
		return nil, err
	}
	return doJSON[DeleteResponse](c, ctx, "delete", http.MethodPost, base+"/vectors/delete", req)
}

// -------------------- helpers --------------------

// normalizeHost accepts "index-abc.svc.pinecone.io" as well as a full URL.
func normalizeHost(host string) (string, error) {
	host = strings.TrimRight(strings.TrimSpace(host), "/")
	if host == "" {
		return "", apierr.NotConfigured("PINECONE_HOST not set")
	}
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "https://" + host
	}
	return host, nil
}

func doJSON[T any](c *client, ctx context.Context, op, method, url string, body any) (*T, error) {
	ctx, span := tracer.Start(ctxutil.Default(ctx), "pinecone."+op)
	defer span.End()
	span.SetAttributes(attribute.String("http.method", method), attribute.String("pinecone.op", op))

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, apierr.Wrap(apierr.KindStore, op, fmt.Errorf("encode request: %w", err))
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindStore, op, err)
	}
	req.Header.Set("Api-Key", c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Pinecone-Api-Version", c.cfg.APIVersion)

	resp, err := c.http.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport")
		return nil, apierr.Network(op, err)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apierr.Network(op, fmt.Errorf("read response: %w", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		span.SetStatus(codes.Error, resp.Status)
		c.log.Warn("Pinecone request failed", "op", op, "status", resp.StatusCode)
		return nil, apierr.Store(op, resp.StatusCode, string(raw))
	}

	var out T
	if len(bytes.TrimSpace(raw)) == 0 {
		return &out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, apierr.Wrap(apierr.KindStore, op, fmt.Errorf("decode response: %w", err))
	}
	return &out, nil
}
