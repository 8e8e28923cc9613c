package batch

import (
	"context"
	"strings"
	"time"

	"github.com/yungbote/gbid-catalog/internal/modules/catalog"
	"github.com/yungbote/gbid-catalog/internal/modules/catalog/ingest"
	"github.com/yungbote/gbid-catalog/internal/observability"
	"github.com/yungbote/gbid-catalog/internal/platform/apierr"
	"github.com/yungbote/gbid-catalog/internal/platform/httpx"
	"github.com/yungbote/gbid-catalog/internal/platform/logger"
)

const DefaultBulkPause = 500 * time.Millisecond

// Catalog is the record API a batch drives, one item at a time.
type Catalog interface {
	Upsert(ctx context.Context, in catalog.Input) (catalog.UpsertResult, error)
	Update(ctx context.Context, originalID string, in catalog.Input) (catalog.UpdateResult, error)
	Delete(ctx context.Context, id string) error
}

type Options struct {
	Log *logger.Logger
	// BulkPause is slept after each successful bulk upload. Zero uses the default.
	BulkPause time.Duration
	Metrics   *observability.Metrics
}

type Runner struct {
	log       *logger.Logger
	cat       Catalog
	bulkPause time.Duration
	metrics   *observability.Metrics
	now       func() time.Time
	sleep     func(context.Context, time.Duration) error
}

type Summary struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
	Warnings  int `json:"warnings"`
}

type Result struct {
	Log     []Entry `json:"log"`
	Summary Summary `json:"summary"`
}

// Edit is one row of a batch update.
type Edit struct {
	OriginalGBID string        `json:"originalGbid"`
	Data         catalog.Input `json:"data"`
}

func NewRunner(cat Catalog, opts Options) *Runner {
	log := opts.Log
	if log == nil {
		log = logger.NewNop()
	}
	pause := opts.BulkPause
	if pause <= 0 {
		pause = DefaultBulkPause
	}
	return &Runner{
		log:       log.With("service", "BatchRunner"),
		cat:       cat,
		bulkPause: pause,
		metrics:   opts.Metrics,
		now:       time.Now,
		sleep:     httpx.Sleep,
	}
}

// RunUpload uploads items in order. A failed item is logged and the run continues.
func (r *Runner) RunUpload(ctx context.Context, items []catalog.Input, sink Sink) Result {
	run := r.newRun(sink)
	var sum Summary
	sum.Total = len(items)

	run.Info("Found %d items to upload", len(items))
	for i, in := range items {
		if r.cancelled(ctx, run) {
			break
		}
		r.upload(ctx, run, &sum, i+1, len(items), in)
	}
	run.Info("Batch upload complete")
	return r.finish("upload", run, sum)
}

// RunTable validates spreadsheet rows and uploads each usable one. Rows are
// reported in their original order, skipped rows included.
func (r *Runner) RunTable(ctx context.Context, rows []ingest.Row, sink Sink) Result {
	run := r.newRun(sink)
	run.Info("Processing CSV file...")

	parsed, err := ingest.ParseRows(rows)
	if err != nil {
		run.Error("Error: %v", err)
		return r.finish("csv", run, Summary{})
	}

	sum := Summary{Total: parsed.Total}
	skipped := make(map[int]ingest.SkippedRow, len(parsed.Skipped))
	for _, s := range parsed.Skipped {
		skipped[s.Row] = s
	}
	items := make(map[int]catalog.Input, len(parsed.Items))
	for _, it := range parsed.Items {
		items[it.Row] = it.Input
	}

	run.Info("Found %d items to upload", parsed.Total)
	for row := 1; row <= parsed.Total; row++ {
		if r.cancelled(ctx, run) {
			break
		}
		if s, ok := skipped[row]; ok {
			run.Warn("%s", s.Message())
			sum.Skipped++
			continue
		}
		r.upload(ctx, run, &sum, row, parsed.Total, items[row])
	}
	run.Info("Batch upload complete")
	return r.finish("csv", run, sum)
}

// RunBulk parses bulk text and uploads one record per (name, size, id)
// triple, pausing after each success.
func (r *Runner) RunBulk(ctx context.Context, text string, shared ingest.BulkShared, sink Sink) Result {
	run := r.newRun(sink)
	parsed := ingest.ParseBulkText(text)

	var sum Summary
	for _, s := range parsed.Skipped {
		run.Warn("Skipping line %d (%s): %s", s.Line, s.Reason, s.Text)
		sum.Skipped++
	}

	inputs := parsed.Inputs(shared)
	sum.Total = len(inputs)
	run.Info("Found %d items to upload", len(inputs))
	for i, in := range inputs {
		if r.cancelled(ctx, run) {
			break
		}
		if !r.upload(ctx, run, &sum, i+1, len(inputs), in) {
			continue
		}
		// A cancelled pause is reported by cancelled() on the next item.
		_ = r.sleep(ctx, r.bulkPause)
	}
	run.Info("Bulk upload complete")
	return r.finish("bulk", run, sum)
}

// RunDelete deletes ids in order. Blank ids are skipped.
func (r *Runner) RunDelete(ctx context.Context, ids []string, sink Sink) Result {
	run := r.newRun(sink)
	sum := Summary{Total: len(ids)}

	run.Info("Found %d items to delete", len(ids))
	for i, id := range ids {
		if r.cancelled(ctx, run) {
			break
		}
		id = strings.TrimSpace(id)
		if id == "" {
			run.Warn("Skipping item %d: missing GBID", i+1)
			sum.Skipped++
			continue
		}
		run.Info("Deleting %d/%d: %s...", i+1, len(ids), id)
		if err := r.cat.Delete(ctx, id); err != nil {
			run.Error("Error deleting %s: %s", id, apierr.Describe(err))
			sum.Failed++
			continue
		}
		run.Success("Success: %s deleted", id)
		sum.Succeeded++
	}
	run.Info("Batch delete complete")
	return r.finish("delete", run, sum)
}

// RunUpdate applies edits in order. A rename whose old id could not be
// removed counts as a success with a warning.
func (r *Runner) RunUpdate(ctx context.Context, edits []Edit, sink Sink) Result {
	run := r.newRun(sink)
	sum := Summary{Total: len(edits)}

	run.Info("Found %d items to update", len(edits))
	for i, e := range edits {
		if r.cancelled(ctx, run) {
			break
		}
		name := strings.TrimSpace(e.Data.Name)
		run.Info("Updating %d/%d: %s (%s)...", i+1, len(edits), name, strings.TrimSpace(e.OriginalGBID))
		res, err := r.cat.Update(ctx, e.OriginalGBID, e.Data)
		if err != nil {
			run.Error("Error updating %s: %s", name, apierr.Describe(err))
			sum.Failed++
			continue
		}
		run.Success("Success: %s (%s) updated", name, res.ID)
		sum.Succeeded++
		if res.Warning != "" {
			run.Warn("Warning: %s", res.Warning)
			sum.Warnings++
		}
	}
	run.Info("Batch update complete")
	return r.finish("update", run, sum)
}

func (r *Runner) upload(ctx context.Context, run *RunLog, sum *Summary, pos, total int, in catalog.Input) bool {
	in = in.Normalized()
	run.Info("Uploading %d/%d: %s...", pos, total, in.Label())
	res, err := r.cat.Upsert(ctx, in)
	if err != nil {
		run.Error("Error uploading %s: %s", in.Name, apierr.Describe(err))
		sum.Failed++
		return false
	}
	run.Success("Success: %s (%s) uploaded", in.Name, res.ID)
	sum.Succeeded++
	return true
}

// cancelled reports whether ctx has ended. Handlers detach runs from the
// request, so in practice this is process shutdown.
func (r *Runner) cancelled(ctx context.Context, run *RunLog) bool {
	if err := ctx.Err(); err != nil {
		run.Error("Error: batch stopped: %v", err)
		return true
	}
	return false
}

func (r *Runner) newRun(sink Sink) *RunLog {
	run := NewRunLog(sink)
	run.now = r.now
	return run
}

func (r *Runner) finish(kind string, run *RunLog, sum Summary) Result {
	r.metrics.ObserveBatch(kind, sum.Succeeded, sum.Failed, sum.Skipped)
	r.log.Info("Batch finished",
		"kind", kind,
		"total", sum.Total,
		"succeeded", sum.Succeeded,
		"failed", sum.Failed,
		"skipped", sum.Skipped,
	)
	return Result{Log: run.Entries(), Summary: sum}
}
