package retrieval

import (
	"context"
	"sync"

	"github.com/kailas-cloud/ragchat/internal/domain"
	"github.com/kailas-cloud/ragchat/internal/domain/document"
	"github.com/kailas-cloud/ragchat/internal/domain/search/result"
)

type mockCorpus struct {
	fetchAllFn func(ctx context.Context, tenantID string) ([]document.Document, error)
}

func (m *mockCorpus) FetchAll(ctx context.Context, tenantID string) ([]document.Document, error) {
	return m.fetchAllFn(ctx, tenantID)
}

type mockSearcher struct {
	mu       sync.Mutex
	tenants  []string
	searchFn func(ctx context.Context, tenantID string, vector []float32, k int) ([]result.Result, error)
}

func (m *mockSearcher) Search(ctx context.Context, tenantID string, vector []float32, k int) ([]result.Result, error) {
	m.mu.Lock()
	m.tenants = append(m.tenants, tenantID)
	m.mu.Unlock()
	return m.searchFn(ctx, tenantID, vector, k)
}

type mockEmbedder struct {
	embedFn func(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	return m.embedFn(ctx, text)
}

type mockCompleter struct {
	completeFn func(ctx context.Context, req domain.CompletionRequest) (domain.Completion, error)
}

func (m *mockCompleter) Complete(ctx context.Context, req domain.CompletionRequest) (domain.Completion, error) {
	return m.completeFn(ctx, req)
}

// textEmbedder encodes the query as a one-element vector index into a lookup table.
func textEmbedder(queries ...string) *mockEmbedder {
	idx := make(map[string]float32, len(queries))
	for i, q := range queries {
		idx[q] = float32(i)
	}
	return &mockEmbedder{embedFn: func(_ context.Context, text string) (domain.EmbeddingResult, error) {
		return domain.EmbeddingResult{Embedding: []float32{idx[text]}}, nil
	}}
}

func doc(id, content string) document.Document {
	return document.Reconstruct(id, "tenant-a", content, nil)
}

func hit(id string, score float64) result.Result {
	return result.New(doc(id, "content "+id), score)
}

func keys(rs []result.Result) []string {
	out := make([]string, len(rs))
	for i := range rs {
		out[i] = rs[i].Key()
	}
	return out
}
