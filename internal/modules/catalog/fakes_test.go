package catalog

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/yungbote/gbid-catalog/internal/platform/apierr"
	"github.com/yungbote/gbid-catalog/internal/platform/pinecone"
)

// fakeAI embeds text as letter frequencies, so identical text gives
// identical vectors and similar text scores close.
type fakeAI struct {
	inputs []string
	err    error
}

func (f *fakeAI) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, 0, len(inputs))
	for _, in := range inputs {
		f.inputs = append(f.inputs, in)
		vec := make([]float32, 27)
		for _, r := range strings.ToLower(in) {
			if r >= 'a' && r <= 'z' {
				vec[r-'a']++
			} else if r >= '0' && r <= '9' {
				vec[26]++
			}
		}
		out = append(out, vec)
	}
	return out, nil
}

func (f *fakeAI) Model() string { return "fake-embed" }

type storedVector struct {
	values   []float32
	metadata map[string]any
}

type memStore struct {
	mu      sync.Mutex
	records map[string]storedVector

	upsertCalls int
	// failUpserts makes the first N upsert calls fail after recording the write.
	failUpserts int
	upsertErr   error
	deleteErr   error
	deleted     []string
}

func newMemStore() *memStore {
	return &memStore{records: map[string]storedVector{}}
}

func (s *memStore) Upsert(ctx context.Context, namespace string, vectors []pinecone.Vector) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upsertCalls++
	if s.upsertErr != nil {
		return s.upsertErr
	}
	for _, v := range vectors {
		s.records[v.ID] = storedVector{values: v.Values, metadata: v.Metadata}
	}
	if s.upsertCalls <= s.failUpserts {
		return apierr.Store("upsert", 503, "Service Unavailable")
	}
	return nil
}

func (s *memStore) QueryMatches(ctx context.Context, namespace string, q []float32, topK int) ([]pinecone.VectorMatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]pinecone.VectorMatch, 0, len(s.records))
	for id, rec := range s.records {
		out = append(out, pinecone.VectorMatch{ID: id, Score: cosine(q, rec.values), Metadata: rec.metadata})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score == out[j].Score {
			return out[i].ID < out[j].ID
		}
		return out[i].Score > out[j].Score
	})
	if len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

func (s *memStore) DeleteIDs(ctx context.Context, namespace string, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleteErr != nil {
		return s.deleteErr
	}
	for _, id := range ids {
		s.deleted = append(s.deleted, id)
		delete(s.records, id)
	}
	return nil
}

func (s *memStore) has(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.records[id]
	return ok
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
