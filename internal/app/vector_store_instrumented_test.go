package app

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/yungbote/gbid-catalog/internal/observability"
	"github.com/yungbote/gbid-catalog/internal/platform/pinecone"
)

func TestInstrumentVectorStorePassThrough(t *testing.T) {
	inner := &fakeInstrumentedInner{}
	vs := instrumentVectorStore("qdrant", inner, observability.New())
	if vs == nil {
		t.Fatalf("instrumentVectorStore: expected non-nil wrapper")
	}

	err := vs.Upsert(context.Background(), "ns", []pinecone.Vector{{ID: "v1", Values: []float32{1, 2, 3}}})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	matches, err := vs.QueryMatches(context.Background(), "ns", []float32{1, 2, 3}, 3)
	if err != nil {
		t.Fatalf("QueryMatches: %v", err)
	}
	if len(matches) != 1 || matches[0].ID != "v1" {
		t.Fatalf("QueryMatches: got=%+v", matches)
	}
	err = vs.DeleteIDs(context.Background(), "ns", []string{"v1"})
	if err != nil {
		t.Fatalf("DeleteIDs: %v", err)
	}

	if inner.upsertCalls != 1 || inner.queryMatchesCalls != 1 || inner.deleteCalls != 1 {
		t.Fatalf(
			"unexpected call counts: upsert=%d query_matches=%d delete=%d",
			inner.upsertCalls,
			inner.queryMatchesCalls,
			inner.deleteCalls,
		)
	}
}

func TestInstrumentVectorStoreErrorPassThrough(t *testing.T) {
	want := errors.New("delete failed")
	inner := &fakeInstrumentedInner{deleteErr: want}
	vs := instrumentVectorStore("qdrant", inner, observability.New())

	err := vs.DeleteIDs(context.Background(), "ns", []string{"v1"})
	if !errors.Is(err, want) {
		t.Fatalf("DeleteIDs: expected wrapped error %v, got=%v", want, err)
	}
}

func TestInstrumentVectorStoreWithoutMetricsReturnsInner(t *testing.T) {
	inner := &fakeInstrumentedInner{}
	if vs := instrumentVectorStore("pinecone", inner, nil); vs != inner {
		t.Fatalf("expected inner store when metrics are disabled")
	}
	if vs := instrumentVectorStore("pinecone", nil, observability.New()); vs != nil {
		t.Fatalf("expected nil for nil inner store")
	}
}

func TestInstrumentEmbedderRecordsOutcome(t *testing.T) {
	m := observability.New()
	emb := instrumentEmbedder(&fakeEmbedder{err: errors.New("429")}, m)
	if _, embedErr := emb.Embed(context.Background(), []string{"x"}); embedErr == nil {
		t.Fatalf("expected error")
	}
	if emb.Model() != "fake-embed" {
		t.Fatalf("model: got=%q", emb.Model())
	}
	got, err := testutil.GatherAndCount(m.Registry(), "gbid_embedding_requests_total")
	if err != nil {
		t.Fatalf("GatherAndCount: %v", err)
	}
	if got != 1 {
		t.Fatalf("embedding series: want=1 got=%d", got)
	}
}

type fakeInstrumentedInner struct {
	upsertCalls       int
	queryMatchesCalls int
	deleteCalls       int

	deleteErr error
}

func (f *fakeInstrumentedInner) Upsert(_ context.Context, _ string, _ []pinecone.Vector) error {
	f.upsertCalls++
	return nil
}

func (f *fakeInstrumentedInner) QueryMatches(_ context.Context, _ string, _ []float32, _ int) ([]pinecone.VectorMatch, error) {
	f.queryMatchesCalls++
	return []pinecone.VectorMatch{{ID: "v1", Score: 0.9}}, nil
}

func (f *fakeInstrumentedInner) DeleteIDs(_ context.Context, _ string, _ []string) error {
	f.deleteCalls++
	return f.deleteErr
}

type fakeEmbedder struct {
	err error
}

func (f *fakeEmbedder) Embed(_ context.Context, inputs []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(inputs))
	for i := range inputs {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func (f *fakeEmbedder) Model() string { return "fake-embed" }
