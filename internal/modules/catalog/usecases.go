package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/yungbote/gbid-catalog/internal/observability"
	"github.com/yungbote/gbid-catalog/internal/platform/apierr"
	"github.com/yungbote/gbid-catalog/internal/platform/httpx"
	"github.com/yungbote/gbid-catalog/internal/platform/logger"
	"github.com/yungbote/gbid-catalog/internal/platform/openai"
	"github.com/yungbote/gbid-catalog/internal/platform/pinecone"
)

const DefaultTopK = 50

type UsecasesDeps struct {
	Log *logger.Logger

	// AI and Vec may be nil when the process booted without credentials;
	// every operation then fails with a not-configured error.
	AI  openai.Client
	Vec pinecone.VectorStore

	Namespace   string
	TopK        int
	WritePolicy httpx.Policy

	Metrics *observability.Metrics
}

type Usecases struct {
	deps UsecasesDeps
}

func New(deps UsecasesDeps) Usecases {
	if deps.Log == nil {
		deps.Log = logger.NewNop()
	}
	deps.Log = deps.Log.With("service", "CatalogUsecases")
	if deps.TopK <= 0 {
		deps.TopK = DefaultTopK
	}
	if deps.WritePolicy.Attempts <= 0 {
		deps.WritePolicy = httpx.DefaultWritePolicy()
	}
	if deps.WritePolicy.Retryable == nil {
		deps.WritePolicy.Retryable = apierr.Retryable
	}
	return Usecases{deps: deps}
}

type UpsertResult struct {
	ID string `json:"id"`
}

type UpdateResult struct {
	ID         string `json:"id"`
	PreviousID string `json:"previousId,omitempty"`
	// Warning is set when the record was written under a new id but the
	// old id could not be removed.
	Warning string `json:"warning,omitempty"`
}

// Upsert embeds in and writes it under its resolved id, replacing any record
// already stored there.
func (u Usecases) Upsert(ctx context.Context, in Input) (UpsertResult, error) {
	start := time.Now()
	in = in.Normalized()
	if err := validateInput(in); err != nil {
		u.observe("upsert", err, start)
		return UpsertResult{}, err
	}
	id, err := u.write(ctx, in)
	u.observe("upsert", err, start)
	if err != nil {
		return UpsertResult{}, err
	}
	u.deps.Log.Info("Record upserted", "id", id, "name", in.Name)
	return UpsertResult{ID: id}, nil
}

// Search returns the nearest records to query in store order.
func (u Usecases) Search(ctx context.Context, query string) ([]SearchResult, error) {
	start := time.Now()
	out, err := u.search(ctx, query)
	u.observe("search", err, start)
	return out, err
}

func (u Usecases) search(ctx context.Context, query string) ([]SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apierr.Validation("Search query is required")
	}
	if err := u.requireClients(); err != nil {
		return nil, err
	}

	vec, err := u.embed(ctx, query)
	if err != nil {
		return nil, err
	}
	matches, err := u.deps.Vec.QueryMatches(ctx, u.deps.Namespace, vec, u.deps.TopK)
	if err != nil {
		return nil, err
	}

	out := make([]SearchResult, 0, len(matches))
	for _, m := range matches {
		out = append(out, SearchResult{
			ID:     m.ID,
			Record: RecordFromMetadata(m.Metadata),
			Score:  m.Score,
		})
	}
	u.deps.Log.Debug("Search complete", "query_len", len(query), "matches", len(out))
	return out, nil
}

// Update re-embeds in and writes it under its resolved id. When that id
// differs from originalID the old record is removed; a failed removal is
// reported in UpdateResult.Warning rather than as an error.
func (u Usecases) Update(ctx context.Context, originalID string, in Input) (UpdateResult, error) {
	start := time.Now()
	res, err := u.update(ctx, originalID, in)
	u.observe("update", err, start)
	return res, err
}

func (u Usecases) update(ctx context.Context, originalID string, in Input) (UpdateResult, error) {
	originalID = strings.TrimSpace(originalID)
	if originalID == "" {
		return UpdateResult{}, apierr.Validation("Original GBID and data are required")
	}
	in = in.Normalized()
	if err := validateInput(in); err != nil {
		return UpdateResult{}, err
	}

	id, err := u.write(ctx, in)
	if err != nil {
		return UpdateResult{}, err
	}
	res := UpdateResult{ID: id}
	if id == originalID {
		u.deps.Log.Info("Record updated", "id", id)
		return res, nil
	}

	res.PreviousID = originalID
	if err := u.deps.Vec.DeleteIDs(ctx, u.deps.Namespace, []string{originalID}); err != nil {
		res.Warning = fmt.Sprintf("updated %s but could not remove previous record %s: %v", id, originalID, err)
		u.deps.Log.Warn("Previous record not removed after rename",
			"id", id,
			"previous_id", originalID,
			"error", err,
		)
		u.deps.Metrics.IncOrphanedRecord()
		return res, nil
	}
	u.deps.Log.Info("Record updated", "id", id, "previous_id", originalID)
	return res, nil
}

// Delete removes id from the store. Deleting an unknown id is not an error.
func (u Usecases) Delete(ctx context.Context, id string) error {
	start := time.Now()
	err := u.delete(ctx, id)
	u.observe("delete", err, start)
	return err
}

func (u Usecases) delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return apierr.Validation("GBID is required")
	}
	if u.deps.Vec == nil {
		return apierr.NotConfigured("vector store not configured")
	}
	if err := u.deps.Vec.DeleteIDs(ctx, u.deps.Namespace, []string{id}); err != nil {
		return err
	}
	u.deps.Log.Info("Record deleted", "id", id)
	return nil
}

// write embeds in and upserts it, retrying only the store call. Every attempt
// sends the same payload, so a retried write still leaves one record.
func (u Usecases) write(ctx context.Context, in Input) (string, error) {
	if err := u.requireClients(); err != nil {
		return "", err
	}
	id := in.ID()
	vec, err := u.embed(ctx, EmbeddingText(in))
	if err != nil {
		return "", err
	}
	vectors := []pinecone.Vector{{ID: id, Values: vec, Metadata: Metadata(in)}}
	err = httpx.Do(ctx, u.deps.Log, u.deps.WritePolicy, "upsert", func(ctx context.Context) error {
		return u.deps.Vec.Upsert(ctx, u.deps.Namespace, vectors)
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (u Usecases) embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := u.deps.AI.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 || len(vecs[0]) == 0 {
		return nil, &apierr.Error{Kind: apierr.KindEmbedding, Op: "embed", Msg: "no embedding returned"}
	}
	return vecs[0], nil
}

func (u Usecases) requireClients() error {
	if u.deps.AI == nil {
		return apierr.NotConfigured("OpenAI API key not configured")
	}
	if u.deps.Vec == nil {
		return apierr.NotConfigured("vector store not configured")
	}
	return nil
}

func (u Usecases) observe(op string, err error, start time.Time) {
	status := "success"
	if err != nil {
		status = string(apierr.KindOf(err))
		if status == "" {
			status = "error"
		}
	}
	u.deps.Metrics.ObserveCatalogOperation(op, status, time.Since(start))
}

func validateInput(in Input) error {
	if in.Name == "" || (in.GBID == "" && in.GBIDTemplate == "") {
		return apierr.Validation("Name and at least one of GBID or GBID Template are required")
	}
	return nil
}
