package app

import (
	"context"
	"time"

	"github.com/yungbote/gbid-catalog/internal/observability"
	"github.com/yungbote/gbid-catalog/internal/platform/openai"
	"github.com/yungbote/gbid-catalog/internal/platform/pinecone"
)

type instrumentedVectorStore struct {
	provider string
	inner    pinecone.VectorStore
	metrics  *observability.Metrics
}

func instrumentVectorStore(provider string, inner pinecone.VectorStore, metrics *observability.Metrics) pinecone.VectorStore {
	if inner == nil {
		return nil
	}
	if metrics == nil {
		return inner
	}
	return &instrumentedVectorStore{
		provider: provider,
		inner:    inner,
		metrics:  metrics,
	}
}

func (s *instrumentedVectorStore) Upsert(ctx context.Context, namespace string, vectors []pinecone.Vector) error {
	start := time.Now()
	err := s.inner.Upsert(ctx, namespace, vectors)
	s.observe("upsert", err, time.Since(start))
	return err
}

func (s *instrumentedVectorStore) QueryMatches(ctx context.Context, namespace string, q []float32, topK int) ([]pinecone.VectorMatch, error) {
	start := time.Now()
	out, err := s.inner.QueryMatches(ctx, namespace, q, topK)
	s.observe("query_matches", err, time.Since(start))
	return out, err
}

func (s *instrumentedVectorStore) DeleteIDs(ctx context.Context, namespace string, ids []string) error {
	start := time.Now()
	err := s.inner.DeleteIDs(ctx, namespace, ids)
	s.observe("delete_ids", err, time.Since(start))
	return err
}

func (s *instrumentedVectorStore) observe(operation string, err error, dur time.Duration) {
	if s == nil || s.metrics == nil {
		return
	}
	s.metrics.ObserveVectorStoreOperation(s.provider, operation, outcome(err), dur)
}

type instrumentedEmbedder struct {
	inner   openai.Client
	metrics *observability.Metrics
}

func instrumentEmbedder(inner openai.Client, metrics *observability.Metrics) openai.Client {
	if inner == nil {
		return nil
	}
	if metrics == nil {
		return inner
	}
	return &instrumentedEmbedder{inner: inner, metrics: metrics}
}

func (e *instrumentedEmbedder) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	start := time.Now()
	out, err := e.inner.Embed(ctx, inputs)
	e.metrics.ObserveEmbedding(e.inner.Model(), outcome(err), time.Since(start))
	return out, err
}

func (e *instrumentedEmbedder) Model() string { return e.inner.Model() }

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
