package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/gbid-catalog/internal/http/response"
	"github.com/yungbote/gbid-catalog/internal/modules/catalog"
	"github.com/yungbote/gbid-catalog/internal/modules/catalog/ingest"
	"github.com/yungbote/gbid-catalog/internal/platform/apierr"
	"github.com/yungbote/gbid-catalog/internal/platform/logger"
)

// CatalogUsecases is the record-level surface the HTTP layer needs.
type CatalogUsecases interface {
	Upsert(ctx context.Context, in catalog.Input) (catalog.UpsertResult, error)
	Search(ctx context.Context, query string) ([]catalog.SearchResult, error)
	Update(ctx context.Context, originalID string, in catalog.Input) (catalog.UpdateResult, error)
	Delete(ctx context.Context, id string) error
}

type CatalogHandler struct {
	log *logger.Logger
	cat CatalogUsecases
	now func() time.Time
}

func NewCatalogHandler(log *logger.Logger, cat CatalogUsecases) *CatalogHandler {
	if log == nil {
		log = logger.NewNop()
	}
	return &CatalogHandler{
		log: log.With("handler", "CatalogHandler"),
		cat: cat,
		now: time.Now,
	}
}

// POST /api/upload
func (h *CatalogHandler) Upload(c *gin.Context) {
	var req struct {
		Type string         `json:"type"`
		Data *catalog.Input `json:"data"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if req.Type != "single" {
		response.RespondError(c, http.StatusBadRequest, "invalid_upload_type", errors.New("Invalid upload type"))
		return
	}
	var in catalog.Input
	if req.Data != nil {
		in = req.Data.Normalized()
	}

	res, err := h.cat.Upsert(c.Request.Context(), in)
	if err != nil {
		h.log.Warn("Upload failed", "name", in.Name, "error", err)
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"success": true,
		"message": fmt.Sprintf("Successfully uploaded %s (%s)", in.Name, res.ID),
		"id":      res.ID,
	})
}

// POST /api/search
func (h *CatalogHandler) Search(c *gin.Context) {
	var req struct {
		Query  string `json:"query"`
		Dedupe *bool  `json:"dedupe"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	results, err := h.cat.Search(c.Request.Context(), req.Query)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	if dedupeRequested(req.Dedupe) {
		results = catalog.Dedupe(results)
	}
	if results == nil {
		results = []catalog.SearchResult{}
	}
	response.RespondOK(c, gin.H{
		"success": true,
		"results": results,
		"total":   len(results),
	})
}

// POST /api/update
func (h *CatalogHandler) Update(c *gin.Context) {
	var req struct {
		OriginalGBID string         `json:"originalGbid"`
		Data         *catalog.Input `json:"data"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if req.Data == nil {
		response.RespondAPIError(c, apierr.Validation("Original GBID and data are required"))
		return
	}

	res, err := h.cat.Update(c.Request.Context(), req.OriginalGBID, *req.Data)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	body := gin.H{
		"success": true,
		"message": fmt.Sprintf("Successfully updated %s (%s)", strings.TrimSpace(req.Data.Name), res.ID),
		"id":      res.ID,
	}
	if res.Warning != "" {
		body["warning"] = res.Warning
	}
	response.RespondOK(c, body)
}

// POST /api/delete
func (h *CatalogHandler) Delete(c *gin.Context) {
	var req struct {
		GBID string `json:"gbid"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	id := strings.TrimSpace(req.GBID)
	if err := h.cat.Delete(c.Request.Context(), id); err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"success": true,
		"message": fmt.Sprintf("Successfully deleted item with GBID: %s", id),
	})
}

// POST /api/export
//
// Exports the posted results, or runs query and exports its hits.
func (h *CatalogHandler) Export(c *gin.Context) {
	var req struct {
		Results []catalog.SearchResult `json:"results"`
		Query   string                 `json:"query"`
		Dedupe  *bool                  `json:"dedupe"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	results := req.Results
	if len(results) == 0 {
		if strings.TrimSpace(req.Query) == "" {
			response.RespondAPIError(c, apierr.Validation("No results to export"))
			return
		}
		found, err := h.cat.Search(c.Request.Context(), req.Query)
		if err != nil {
			response.RespondAPIError(c, err)
			return
		}
		results = found
	}
	if dedupeRequested(req.Dedupe) {
		results = catalog.Dedupe(results)
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, ingest.ExportFilename(h.now())))
	c.Status(http.StatusOK)
	if err := ingest.WriteExportCSV(c.Writer, results); err != nil {
		h.log.Warn("Export write failed", "error", err)
	}
}

// dedupeRequested defaults to true; callers opt out with "dedupe": false.
func dedupeRequested(v *bool) bool {
	return v == nil || *v
}
