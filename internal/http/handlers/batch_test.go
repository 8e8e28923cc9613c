package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/gbid-catalog/internal/modules/catalog/batch"
	"github.com/yungbote/gbid-catalog/internal/platform/logger"
)

func newBatchRouter(cat *fakeCatalog) *gin.Engine {
	gin.SetMode(gin.TestMode)
	runner := batch.NewRunner(cat, batch.Options{Log: logger.NewNop(), BulkPause: time.Nanosecond})
	h := NewBatchHandler(logger.NewNop(), runner)
	r := gin.New()
	r.POST("/api/batch/csv", h.CSV)
	r.POST("/api/batch/bulk", h.Bulk)
	r.POST("/api/batch/delete", h.Delete)
	r.POST("/api/batch/update", h.Update)
	return r
}

type batchBody struct {
	Success bool          `json:"success"`
	Log     []batch.Entry `json:"log"`
	Summary batch.Summary `json:"summary"`
}

func decodeBatch(t *testing.T, rec *httptest.ResponseRecorder) batchBody {
	t.Helper()
	var out batchBody
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

const sampleCSV = "Name,GBID,GBID Template,Properties\n" +
	"Elbow,E-1,,90 deg\n" +
	",E-2,,\n" +
	"Tee,,TEE-{size},\n"

func TestBatchCSVRawBody(t *testing.T) {
	cat := newFakeCatalog()
	r := newBatchRouter(cat)

	req := httptest.NewRequest(http.MethodPost, "/api/batch/csv", strings.NewReader(sampleCSV))
	req.Header.Set("Content-Type", "text/csv")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: want=200 got=%d body=%s", rec.Code, rec.Body.String())
	}
	body := decodeBatch(t, rec)
	want := batch.Summary{Total: 3, Succeeded: 2, Skipped: 1}
	if body.Summary != want {
		t.Fatalf("summary: want=%+v got=%+v", want, body.Summary)
	}
	if _, ok := cat.records["TEE-{size}"]; !ok {
		t.Fatalf("expected template-keyed record to be stored")
	}
	if len(body.Log) == 0 || body.Log[0].Message != "Processing CSV file..." {
		t.Fatalf("log: got=%+v", body.Log)
	}
}

func TestBatchCSVMultipart(t *testing.T) {
	cat := newFakeCatalog()
	r := newBatchRouter(cat)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "items.csv")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	_, _ = fw.Write([]byte(sampleCSV))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/batch/csv", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: want=200 got=%d body=%s", rec.Code, rec.Body.String())
	}
	if got := decodeBatch(t, rec).Summary.Succeeded; got != 2 {
		t.Fatalf("succeeded: want=2 got=%d", got)
	}
}

func TestBatchCSVEmptyIs400(t *testing.T) {
	r := newBatchRouter(newFakeCatalog())
	req := httptest.NewRequest(http.MethodPost, "/api/batch/csv", strings.NewReader(""))
	req.Header.Set("Content-Type", "text/csv")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: want=400 got=%d", rec.Code)
	}
}

func TestBatchBulk(t *testing.T) {
	cat := newFakeCatalog()
	r := newBatchRouter(cat)

	rec := postJSON(t, r, "/api/batch/bulk", map[string]any{
		"text":       "RIGID COUPLINGS:\n1/2\": 88254013\n3/4\": 88254014\nnot a pair",
		"properties": "steel",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status: want=200 got=%d body=%s", rec.Code, rec.Body.String())
	}
	body := decodeBatch(t, rec)
	if body.Summary.Succeeded != 2 || body.Summary.Skipped != 1 {
		t.Fatalf("summary: got=%+v", body.Summary)
	}
	if got := cat.records["88254013"].Properties; got != `1/2"; steel` {
		t.Fatalf("properties: got=%q", got)
	}
}

func TestBatchBulkSurvivesClientDisconnect(t *testing.T) {
	cat := newFakeCatalog()
	r := newBatchRouter(cat)

	raw, _ := json.Marshal(map[string]any{"text": "VALVES:\n1: A\n2: B\n3: C\n"})
	gone, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/batch/bulk", bytes.NewReader(raw)).WithContext(gone)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	for _, id := range []string{"A", "B", "C"} {
		if _, ok := cat.records[id]; !ok {
			t.Fatalf("record %s not stored after client disconnect; stored=%v", id, cat.order)
		}
	}
	body := decodeBatch(t, rec)
	if body.Summary.Succeeded != 3 {
		t.Fatalf("succeeded: want=3 got=%d", body.Summary.Succeeded)
	}
}

func TestBatchStopsWhenLifetimeEnds(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cat := newFakeCatalog()
	runner := batch.NewRunner(cat, batch.Options{Log: logger.NewNop(), BulkPause: time.Nanosecond})
	lifetime, cancel := context.WithCancel(context.Background())
	cancel()
	h := NewBatchHandler(logger.NewNop(), runner).BindLifetime(lifetime)
	r := gin.New()
	r.POST("/api/batch/delete", h.Delete)

	rec := postJSON(t, r, "/api/batch/delete", map[string]any{"ids": []string{"A", "B"}})
	body := decodeBatch(t, rec)
	if body.Summary.Succeeded != 0 || body.Summary.Failed != 0 {
		t.Fatalf("summary: want no processed items, got=%+v", body.Summary)
	}
	last := body.Log[len(body.Log)-2]
	if !strings.Contains(last.Message, "batch stopped") {
		t.Fatalf("log: want stop entry, got=%+v", body.Log)
	}
}

func TestBatchBulkRequiresText(t *testing.T) {
	r := newBatchRouter(newFakeCatalog())
	rec := postJSON(t, r, "/api/batch/bulk", map[string]any{"text": "  "})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: want=400 got=%d", rec.Code)
	}
}

func TestBatchUpdate(t *testing.T) {
	cat := newFakeCatalog()
	cat.warning = "could not remove OLD"
	r := newBatchRouter(cat)

	rec := postJSON(t, r, "/api/batch/update", map[string]any{
		"items": []any{
			map[string]any{"originalGbid": "OLD", "data": map[string]any{"name": "Cap", "gbid": "NEW"}},
			map[string]any{"originalGbid": "X", "data": map[string]any{"name": "Cap"}},
		},
	})
	body := decodeBatch(t, rec)
	want := batch.Summary{Total: 2, Succeeded: 1, Failed: 1, Warnings: 1}
	if body.Summary != want {
		t.Fatalf("summary: want=%+v got=%+v", want, body.Summary)
	}
}

func TestBatchDeleteStreamsEvents(t *testing.T) {
	cat := newFakeCatalog()
	r := newBatchRouter(cat)

	raw, _ := json.Marshal(map[string]any{"ids": []string{"A", "B"}})
	req := httptest.NewRequest(http.MethodPost, "/api/batch/delete", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: want=200 got=%d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("content-type: got=%q", ct)
	}
	out := rec.Body.String()
	if got := strings.Count(out, "event:log"); got != 6 {
		t.Fatalf("log events: want=6 got=%d\n%s", got, out)
	}
	summaryAt := strings.Index(out, "event:summary")
	if summaryAt < 0 || summaryAt < strings.LastIndex(out, "event:log") {
		t.Fatalf("summary event must come last:\n%s", out)
	}
	if !strings.Contains(out, "Batch delete complete") {
		t.Fatalf("missing completion line:\n%s", out)
	}
}

func TestBatchDeleteRequiresIDs(t *testing.T) {
	r := newBatchRouter(newFakeCatalog())
	rec := postJSON(t, r, "/api/batch/delete", map[string]any{"ids": []string{}})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: want=400 got=%d", rec.Code)
	}
}
