package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/yungbote/gbid-catalog/internal/platform/apierr"
	"github.com/yungbote/gbid-catalog/internal/platform/logger"
	"github.com/yungbote/gbid-catalog/internal/platform/pinecone"
)

func TestVectorStoreUpsertRequestShape(t *testing.T) {
	var captured map[string]any
	s := newTestVectorStore(t, func(r *http.Request) (*http.Response, error) {
		if r.Method != http.MethodPut {
			t.Fatalf("method: want=%s got=%s", http.MethodPut, r.Method)
		}
		if r.URL.Path != "/collections/gbid_catalog/points" {
			t.Fatalf("path: want=%q got=%q", "/collections/gbid_catalog/points", r.URL.Path)
		}
		if r.URL.RawQuery != "wait=true" {
			t.Fatalf("query: want=%q got=%q", "wait=true", r.URL.RawQuery)
		}
		if r.Header.Get("api-key") != "qd-key" {
			t.Fatalf("api-key header: got=%q", r.Header.Get("api-key"))
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		return okResponse(t, map[string]any{"status": "acknowledged"}), nil
	})

	meta := map[string]any{"name": "RIGID COUPLINGS", "gbid": "88254013"}
	err := s.Upsert(context.Background(), "catalog", []pinecone.Vector{
		{ID: "88254013", Values: []float32{1, 2, 3}, Metadata: meta},
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	points, ok := captured["points"].([]any)
	if !ok || len(points) != 1 {
		t.Fatalf("points: got=%v", captured["points"])
	}
	first := points[0].(map[string]any)
	if first["id"] != s.pointID("gbid:catalog", "88254013") {
		t.Fatalf("point id mismatch: got=%v", first["id"])
	}
	payload := first["payload"].(map[string]any)
	if payload[payloadNamespaceKey] != "gbid:catalog" || payload[payloadVectorIDKey] != "88254013" {
		t.Fatalf("payload bookkeeping keys: got=%v", payload)
	}
	if payload["name"] != "RIGID COUPLINGS" {
		t.Fatalf("payload metadata not carried: got=%v", payload)
	}
	if _, exists := meta[payloadNamespaceKey]; exists {
		t.Fatalf("input metadata mutated")
	}
}

func TestVectorStoreUpsertSameIDSamePoint(t *testing.T) {
	s := newTestVectorStore(t, nil)
	if s.pointID("gbid", "a") != s.pointID("gbid", "a") {
		t.Fatalf("point ids must be deterministic")
	}
	if s.pointID("gbid", "a") == s.pointID("gbid", "b") {
		t.Fatalf("distinct ids must map to distinct points")
	}
}

func TestVectorStoreUpsertDimensionMismatch(t *testing.T) {
	s := newTestVectorStore(t, func(r *http.Request) (*http.Response, error) {
		t.Fatalf("no request expected")
		return nil, nil
	})
	err := s.Upsert(context.Background(), "", []pinecone.Vector{{ID: "a", Values: []float32{1}}})
	if !apierr.IsKind(err, apierr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestVectorStoreQueryMatchesKeepsOrderAndStripsInternalKeys(t *testing.T) {
	var captured map[string]any
	s := newTestVectorStore(t, func(r *http.Request) (*http.Response, error) {
		if r.URL.Path != "/collections/gbid_catalog/points/search" {
			t.Fatalf("path: got=%q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		return okResponse(t, []map[string]any{
			{"id": "p-b", "score": 0.9, "payload": map[string]any{payloadVectorIDKey: "vec-b", payloadNamespaceKey: "gbid", "name": "B"}},
			{"id": "p-a", "score": 0.4, "payload": map[string]any{payloadVectorIDKey: "vec-a", payloadNamespaceKey: "gbid", "name": "A"}},
		}), nil
	})

	matches, err := s.QueryMatches(context.Background(), "", []float32{1, 2, 3}, 50)
	if err != nil {
		t.Fatalf("QueryMatches: %v", err)
	}
	if len(matches) != 2 || matches[0].ID != "vec-b" || matches[1].ID != "vec-a" {
		t.Fatalf("matches: got=%+v", matches)
	}
	if matches[0].Metadata["name"] != "B" {
		t.Fatalf("metadata: got=%v", matches[0].Metadata)
	}
	if _, ok := matches[0].Metadata[payloadVectorIDKey]; ok {
		t.Fatalf("internal payload key leaked into metadata")
	}
	if captured["limit"] != float64(50) || captured["with_payload"] != true {
		t.Fatalf("search params: got=%v", captured)
	}
	filter := captured["filter"].(map[string]any)
	must := filter["must"].([]any)
	cond := must[0].(map[string]any)
	if cond["key"] != payloadNamespaceKey || cond["match"].(map[string]any)["value"] != "gbid" {
		t.Fatalf("namespace filter: got=%v", cond)
	}
}

func TestVectorStoreDeleteIDsDedupes(t *testing.T) {
	var captured map[string]any
	s := newTestVectorStore(t, func(r *http.Request) (*http.Response, error) {
		if r.URL.Path != "/collections/gbid_catalog/points/delete" {
			t.Fatalf("path: got=%q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		return okResponse(t, map[string]any{"status": "acknowledged"}), nil
	})

	if err := s.DeleteIDs(context.Background(), "", []string{"vec-1", "vec-1", " ", "vec-2"}); err != nil {
		t.Fatalf("DeleteIDs: %v", err)
	}
	points := captured["points"].([]any)
	if len(points) != 2 {
		t.Fatalf("points length: want=2 got=%d", len(points))
	}
	if points[0] != s.pointID("gbid", "vec-1") || points[1] != s.pointID("gbid", "vec-2") {
		t.Fatalf("point ids: got=%v", points)
	}
}

func TestVectorStoreHTTPErrorIsStoreError(t *testing.T) {
	s := newTestVectorStore(t, func(r *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusNotFound,
			Status:     "404 Not Found",
			Header:     make(http.Header),
			Body:       io.NopCloser(bytes.NewReader([]byte(`{"status":{"error":"Not found: Collection"}}`))),
		}, nil
	})
	err := s.DeleteIDs(context.Background(), "", []string{"x"})
	var e *apierr.Error
	if !errors.As(err, &e) || e.Kind != apierr.KindStore || e.Status != http.StatusNotFound {
		t.Fatalf("expected store error with status 404, got %v", err)
	}
}

func TestVectorStoreTransportErrorIsNetworkError(t *testing.T) {
	s := newTestVectorStore(t, func(r *http.Request) (*http.Response, error) {
		return nil, errors.New("dial tcp: connection refused")
	})
	_, err := s.QueryMatches(context.Background(), "", []float32{1, 2, 3}, 5)
	if !apierr.IsKind(err, apierr.KindNetwork) {
		t.Fatalf("expected network error, got %v", err)
	}
}

func TestVerifyReadyRejectsDimensionMismatch(t *testing.T) {
	s := newTestVectorStore(t, func(r *http.Request) (*http.Response, error) {
		return okResponse(t, map[string]any{
			"config": map[string]any{"params": map[string]any{"vectors": map[string]any{"size": 1536, "distance": "Cosine"}}},
		}), nil
	})
	if err := s.verifyReady(context.Background()); !apierr.IsKind(err, apierr.KindNotConfigured) {
		t.Fatalf("expected not configured, got %v", err)
	}
}

func TestParseEnvelopeStatus(t *testing.T) {
	if got := parseEnvelopeStatus(json.RawMessage(`"ok"`)); got != "" {
		t.Fatalf("ok status: got=%q", got)
	}
	if got := parseEnvelopeStatus(json.RawMessage(`{"error":"bad vector"}`)); got != "bad vector" {
		t.Fatalf("error status: got=%q", got)
	}
}

func newTestVectorStore(t *testing.T, roundTrip func(*http.Request) (*http.Response, error)) *vectorStore {
	t.Helper()
	var hc *http.Client
	if roundTrip != nil {
		hc = &http.Client{Transport: roundTripFunc(roundTrip)}
	}
	return newVectorStore(logger.NewNop(), Config{
		URL:        "http://qdrant.local",
		Collection: "gbid_catalog",
		VectorDim:  3,
		APIKey:     "qd-key",
	}, hc)
}

func okResponse(t *testing.T, result any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(map[string]any{
		"result": result,
		"status": "ok",
		"time":   0.001,
	})
	if err != nil {
		t.Fatalf("marshal response: %v", err)
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     make(http.Header),
		Body:       io.NopCloser(bytes.NewReader(raw)),
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}
