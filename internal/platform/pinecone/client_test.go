package pinecone

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
)

func TestQueryRequestShape(t *testing.T) {
	var captured map[string]any
	c := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		if r.Method != http.MethodPost {
			t.Fatalf("method: want=POST got=%s", r.Method)
		}
		if r.URL.String() != "https://gbid-abc.svc.pinecone.io/query" {
			t.Fatalf("url: got=%s", r.URL.String())
		}
		if r.Header.Get("Api-Key") != "pc-key" {
			t.Fatalf("Api-Key header: got=%q", r.Header.Get("Api-Key"))
		}
		if r.Header.Get("X-Pinecone-Api-Version") != DefaultAPIVersion {
			t.Fatalf("api version header: got=%q", r.Header.Get("X-Pinecone-Api-Version"))
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		return jsonResponse(t, http.StatusOK, map[string]any{
			"matches": []any{
				map[string]any{"id": "88254013", "score": 0.91, "metadata": map[string]any{"name": "RIGID COUPLINGS"}},
			},
		}), nil
	})

	resp, err := c.Query(context.Background(), "gbid-abc.svc.pinecone.io", QueryRequest{
		Vector:          []float32{1, 2},
		TopK:            50,
		IncludeMetadata: true,
	})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if captured["topK"] != float64(50) {
		t.Fatalf("topK: got=%v", captured["topK"])
	}
	if captured["includeMetadata"] != true {
		t.Fatalf("includeMetadata: got=%v", captured["includeMetadata"])
	}
	if v, ok := captured["includeValues"]; !ok || v != false {
		t.Fatalf("includeValues must be sent as false: got=%v present=%v", v, ok)
	}
	if len(resp.Matches) != 1 || resp.Matches[0].Metadata["name"] != "RIGID COUPLINGS" {
		t.Fatalf("matches: got=%+v", resp.Matches)
	}
}

func TestDeleteNonSuccessIsStoreError(t *testing.T) {
	c := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		if r.URL.Path != "/vectors/delete" {
			t.Fatalf("path: got=%s", r.URL.Path)
		}
		return jsonResponse(t, http.StatusForbidden, map[string]any{"message": "forbidden"}), nil
	})

	_, err := c.DeleteVectors(context.Background(), "https://gbid-abc.svc.pinecone.io/", DeleteRequest{IDs: []string{"x"}})
	var e *apierr.Error
	if !errors.As(err, &e) || e.Kind != apierr.KindStore {
		t.Fatalf("expected store error, got %v", err)
	}
	if e.Status != http.StatusForbidden || e.Op != "delete" {
		t.Fatalf("unexpected error fields: %+v", e)
	}
}

func TestTransportFailureIsNetworkError(t *testing.T) {
	c := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		return nil, errors.New("connection reset by peer")
	})
	_, err := c.UpsertVectors(context.Background(), "host", UpsertRequest{Vectors: []Vector{{ID: "a", Values: []float32{1}}}})
	if !apierr.IsKind(err, apierr.KindNetwork) {
		t.Fatalf("expected network error, got %v", err)
	}
}

func TestUpsertEmptyIsNoop(t *testing.T) {
	c := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		t.Fatalf("no request expected")
		return nil, nil
	})
	resp, err := c.UpsertVectors(context.Background(), "host", UpsertRequest{})
	if err != nil || resp.UpsertedCount != 0 {
		t.Fatalf("unexpected: %v %v", resp, err)
	}
}

func TestDescribeIndexUsesControlPlane(t *testing.T) {
	c := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		if r.URL.String() != DefaultControlPlaneURL+"/indexes/gbid" {
			t.Fatalf("url: got=%s", r.URL.String())
		}
		return jsonResponse(t, http.StatusOK, map[string]any{"name": "gbid", "host": "gbid-abc.svc.pinecone.io"}), nil
	})
	desc, err := c.DescribeIndex(context.Background(), "gbid")
	if err != nil {
		t.Fatalf("DescribeIndex: %v", err)
	}
	if desc.Host != "gbid-abc.svc.pinecone.io" {
		t.Fatalf("host: got=%s", desc.Host)
	}
}

func TestNormalizeHost(t *testing.T) {
	cases := map[string]string{
		"gbid.svc.pinecone.io":          "https://gbid.svc.pinecone.io",
		"https://gbid.svc.pinecone.io/": "https://gbid.svc.pinecone.io",
		"http://localhost:5080":         "http://localhost:5080",
	}
	for in, want := range cases {
		got, err := normalizeHost(in)
		if err != nil || got != want {
			t.Fatalf("normalizeHost(%q)=%q,%v want %q", in, got, err, want)
		}
	}
	if _, err := normalizeHost(" "); !apierr.IsKind(err, apierr.KindNotConfigured) {
		t.Fatalf("expected not configured for empty host, got %v", err)
	}
}

func newTestClient(t *testing.T, roundTrip func(*http.Request) (*http.Response, error)) *client {
	t.Helper()
	return &client{
		log:  logger.NewNop(),
		cfg:  Config{APIKey: "pc-key", APIVersion: DefaultAPIVersion, ControlPlaneURL: DefaultControlPlaneURL},
		http: &http.Client{Transport: roundTripFunc(roundTrip)},
	}
}

func jsonResponse(t *testing.T, status int, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal response: %v", err)
	}
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Header:     make(http.Header),
		Body:       io.NopCloser(bytes.NewReader(raw)),
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}
