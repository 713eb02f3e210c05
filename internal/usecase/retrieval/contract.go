package retrieval

import (
	"context"

	"github.com/kailas-cloud/ragchat/internal/domain/document"
	"github.com/kailas-cloud/ragchat/internal/domain/search/result"
)

// CorpusReader loads every document of a tenant.
type CorpusReader interface {
	FetchAll(ctx context.Context, tenantID string) ([]document.Document, error)
}

// VectorSearcher runs tenant-filtered nearest-neighbour search.
// Scores are cosine similarities in [0, 1].
type VectorSearcher interface {
	Search(ctx context.Context, tenantID string, vector []float32, k int) ([]result.Result, error)
}
