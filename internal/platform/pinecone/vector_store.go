package pinecone

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/gbid-catalog/internal/platform/apierr"
	"github.com/yungbote/gbid-catalog/internal/platform/logger"
)

type VectorStore interface {
	Upsert(ctx context.Context, namespace string, vectors []Vector) error
	// QueryMatches returns matches ordered by the store, with their metadata.
	QueryMatches(ctx context.Context, namespace string, q []float32, topK int) ([]VectorMatch, error)
	DeleteIDs(ctx context.Context, namespace string, ids []string) error
}

type VectorMatch struct {
	ID       string
	Score    float64
	Metadata map[string]any
}

type StoreConfig struct {
	IndexName string
	IndexHost string
}

type vectorStore struct {
	log       *logger.Logger
	pc        Client
	indexName string
	indexHost string
}

func NewVectorStore(ctx context.Context, log *logger.Logger, pc Client, cfg StoreConfig) (VectorStore, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if pc == nil {
		return nil, fmt.Errorf("pinecone client required")
	}

	indexName := strings.TrimSpace(cfg.IndexName)
	host := strings.TrimSpace(cfg.IndexHost)
	if host == "" && indexName == "" {
		return nil, apierr.NotConfigured("PINECONE_HOST or PINECONE_INDEX must be set")
	}

	// Without a host, resolve it once through describe_index.
	if host == "" {
		desc, err := pc.DescribeIndex(ctx, indexName)
		if err != nil {
			return nil, fmt.Errorf("pinecone describe_index failed: %w", err)
		}
		host = strings.TrimSpace(desc.Host)
		log.Warn("PINECONE_HOST not set; resolved via describe_index",
			"index_name", indexName,
			"index_host", host,
		)
	}

	return &vectorStore{
		log:       log.With("service", "PineconeVectorStore"),
		pc:        pc,
		indexName: indexName,
		indexHost: host,
	}, nil
}

func (s *vectorStore) Upsert(ctx context.Context, namespace string, vectors []Vector) error {
	if s == nil || s.pc == nil {
		return apierr.NotConfigured("vector store unavailable")
	}
	_, err := s.pc.UpsertVectors(ctx, s.indexHost, UpsertRequest{
		Namespace: strings.TrimSpace(namespace),
		Vectors:   vectors,
	})
	return err
}

func (s *vectorStore) QueryMatches(ctx context.Context, namespace string, q []float32, topK int) ([]VectorMatch, error) {
	if s == nil || s.pc == nil {
		return nil, apierr.NotConfigured("vector store unavailable")
	}
	resp, err := s.pc.Query(ctx, s.indexHost, QueryRequest{
		Namespace:       strings.TrimSpace(namespace),
		Vector:          q,
		TopK:            topK,
		IncludeValues:   false,
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, err
	}
	out := make([]VectorMatch, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		if strings.TrimSpace(m.ID) == "" {
			continue
		}
		out = append(out, VectorMatch{ID: m.ID, Score: m.Score, Metadata: m.Metadata})
	}
	return out, nil
}

func (s *vectorStore) DeleteIDs(ctx context.Context, namespace string, ids []string) error {
	if s == nil || s.pc == nil {
		return apierr.NotConfigured("vector store unavailable")
	}
	if len(ids) == 0 {
		return nil
	}
	_, err := s.pc.DeleteVectors(ctx, s.indexHost, DeleteRequest{
		Namespace: strings.TrimSpace(namespace),
		IDs:       ids,
	})
	return err
}
