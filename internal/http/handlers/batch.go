package handlers

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/gbid-catalog/internal/http/response"
	"github.com/yungbote/gbid-catalog/internal/modules/catalog/batch"
	"github.com/yungbote/gbid-catalog/internal/modules/catalog/ingest"
	"github.com/yungbote/gbid-catalog/internal/platform/apierr"
	"github.com/yungbote/gbid-catalog/internal/platform/logger"
)

// BatchHandler runs multi-record jobs. Clients that send
// "Accept: text/event-stream" receive each log entry as an SSE "log" event
// followed by a "summary" event; everyone else gets one JSON body at the end.
//
// A run is detached from the request: a client that disconnects does not stop
// it. Only the lifetime context (process shutdown) does.
type BatchHandler struct {
	log      *logger.Logger
	runner   *batch.Runner
	lifetime context.Context
}

func NewBatchHandler(log *logger.Logger, runner *batch.Runner) *BatchHandler {
	if log == nil {
		log = logger.NewNop()
	}
	return &BatchHandler{log: log.With("handler", "BatchHandler"), runner: runner}
}

// BindLifetime makes runs stop when ctx ends.
func (h *BatchHandler) BindLifetime(ctx context.Context) *BatchHandler {
	h.lifetime = ctx
	return h
}

// runContext keeps the request's values (trace and request ids) but not its
// cancellation.
func (h *BatchHandler) runContext(c *gin.Context) (context.Context, context.CancelFunc) {
	ctx := context.WithoutCancel(c.Request.Context())
	if h.lifetime == nil {
		return ctx, func() {}
	}
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(h.lifetime, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// POST /api/batch/csv
func (h *BatchHandler) CSV(c *gin.Context) {
	src, closeFn, err := csvSource(c)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	defer closeFn()

	rows, err := ingest.ReadCSV(src)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	h.respond(c, func(ctx context.Context, sink batch.Sink) batch.Result {
		return h.runner.RunTable(ctx, rows, sink)
	})
}

// POST /api/batch/bulk
func (h *BatchHandler) Bulk(c *gin.Context) {
	var req struct {
		Text string `json:"text"`
		ingest.BulkShared
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		response.RespondAPIError(c, apierr.Validation("Bulk text is required"))
		return
	}
	h.respond(c, func(ctx context.Context, sink batch.Sink) batch.Result {
		return h.runner.RunBulk(ctx, req.Text, req.BulkShared, sink)
	})
}

// POST /api/batch/delete
func (h *BatchHandler) Delete(c *gin.Context) {
	var req struct {
		IDs []string `json:"ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if len(req.IDs) == 0 {
		response.RespondAPIError(c, apierr.Validation("At least one GBID is required"))
		return
	}
	h.respond(c, func(ctx context.Context, sink batch.Sink) batch.Result {
		return h.runner.RunDelete(ctx, req.IDs, sink)
	})
}

// POST /api/batch/update
func (h *BatchHandler) Update(c *gin.Context) {
	var req struct {
		Items []batch.Edit `json:"items"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if len(req.Items) == 0 {
		response.RespondAPIError(c, apierr.Validation("At least one item is required"))
		return
	}
	h.respond(c, func(ctx context.Context, sink batch.Sink) batch.Result {
		return h.runner.RunUpdate(ctx, req.Items, sink)
	})
}

func (h *BatchHandler) respond(c *gin.Context, run func(ctx context.Context, sink batch.Sink) batch.Result) {
	ctx, cancel := h.runContext(c)
	defer cancel()

	if !wantsEventStream(c) {
		res := run(ctx, nil)
		response.RespondOK(c, gin.H{
			"success": true,
			"log":     res.Log,
			"summary": res.Summary,
		})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	// The runner calls the sink on this goroutine, so writes never interleave.
	res := run(ctx, func(e batch.Entry) {
		c.SSEvent("log", e)
		c.Writer.Flush()
	})
	c.SSEvent("summary", res.Summary)
	c.Writer.Flush()
}

func wantsEventStream(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept"), "text/event-stream")
}

// csvSource returns the uploaded "file" part of a multipart form, or the raw
// request body otherwise.
func csvSource(c *gin.Context) (io.Reader, func(), error) {
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fh, err := c.FormFile("file")
		if err != nil {
			return nil, nil, apierr.Validation("CSV file is required")
		}
		f, err := fh.Open()
		if err != nil {
			return nil, nil, apierr.Wrap(apierr.KindValidation, "csv_open", err)
		}
		return f, func() { _ = f.Close() }, nil
	}
	if c.Request.Body == nil {
		return nil, nil, apierr.Validation("No data found in CSV file")
	}
	return c.Request.Body, func() {}, nil
}
