// Package tenantdoc reads tenant-scoped documents from the search index.
package tenantdoc

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragchat/internal/db"
	"github.com/kailas-cloud/ragchat/internal/domain"
	"github.com/kailas-cloud/ragchat/internal/domain/document"
	"github.com/kailas-cloud/ragchat/internal/domain/search/filter"
	"github.com/kailas-cloud/ragchat/internal/domain/search/result"
	"github.com/kailas-cloud/ragchat/internal/logger"
)

const (
	defaultPageSize  = 500
	defaultMaxCorpus = 10000

	// titleWeight favours title hits in FT.SEARCH scoring.
	titleWeight = 2.0
)

var returnFields = []string{
	domain.FieldTenantID,
	domain.FieldTitle,
	domain.FieldSummary,
	domain.FieldContent,
}

// store is the consumer interface for tenant document reads (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchList(ctx context.Context, q *db.ListQuery) (*db.SearchResult, error)
	IndexExists(ctx context.Context, name string) (bool, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
}

// Config describes the document index.
type Config struct {
	IndexName string
	// DocPrefix is the key prefix of document hashes covered by the index.
	DocPrefix string
	VectorDim int
	HNSWM     int
	HNSWEF    int
	// MaxCorpus caps FetchAll. PageSize is the FT.SEARCH LIMIT per page.
	MaxCorpus int
	PageSize  int
}

// Repo implements the tenant store over FT.SEARCH.
type Repo struct {
	store store
	cfg   Config
}

// New creates a tenant document repository.
func New(s store, cfg Config) *Repo {
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}
	if cfg.MaxCorpus <= 0 {
		cfg.MaxCorpus = defaultMaxCorpus
	}
	return &Repo{store: s, cfg: cfg}
}

// Search runs a tenant-filtered KNN query. Scores are cosine similarities in [0,1];
// thresholding is left to the caller.
func (r *Repo) Search(ctx context.Context, tenantID string, vector []float32, k int) ([]result.Result, error) {
	scope, err := filter.ForTenant(tenantID)
	if err != nil {
		return nil, fmt.Errorf("tenant filter: %w", err)
	}

	sr, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    r.cfg.IndexName,
		Filters:      scope,
		Vector:       vector,
		K:            k,
		ReturnFields: returnFields,
	})
	if err != nil {
		return nil, fmt.Errorf("search knn %s: %w", r.cfg.IndexName, err)
	}
	if sr == nil {
		return nil, nil
	}

	results := make([]result.Result, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		doc, ok := r.toDocument(ctx, tenantID, entry)
		if !ok {
			continue
		}
		results = append(results, result.New(doc, entry.Score))
	}
	return results, nil
}

// FetchAll loads every document of a tenant page by page, up to MaxCorpus documents.
func (r *Repo) FetchAll(ctx context.Context, tenantID string) ([]document.Document, error) {
	scope, err := filter.ForTenant(tenantID)
	if err != nil {
		return nil, fmt.Errorf("tenant filter: %w", err)
	}

	var docs []document.Document
	for offset := 0; offset < r.cfg.MaxCorpus; offset += r.cfg.PageSize {
		limit := min(r.cfg.PageSize, r.cfg.MaxCorpus-offset)
		sr, err := r.store.SearchList(ctx, &db.ListQuery{
			IndexName:    r.cfg.IndexName,
			Filters:      scope,
			Offset:       offset,
			Limit:        limit,
			ReturnFields: returnFields,
		})
		if err != nil {
			return nil, fmt.Errorf("fetch corpus %s offset %d: %w", r.cfg.IndexName, offset, err)
		}
		if sr == nil || len(sr.Entries) == 0 {
			break
		}

		for _, entry := range sr.Entries {
			if doc, ok := r.toDocument(ctx, tenantID, entry); ok {
				docs = append(docs, doc)
			}
		}

		if offset+len(sr.Entries) >= sr.Total {
			break
		}
	}

	if len(docs) >= r.cfg.MaxCorpus {
		logger.FromContext(ctx).Warn("Tenant corpus truncated",
			zap.String("tenant_id", tenantID),
			zap.Int("max_corpus", r.cfg.MaxCorpus),
		)
	}
	return docs, nil
}

// EnsureIndex creates the document index when it does not exist. Reports whether it was created.
func (r *Repo) EnsureIndex(ctx context.Context) (bool, error) {
	exists, err := r.store.IndexExists(ctx, r.cfg.IndexName)
	if err != nil {
		return false, fmt.Errorf("check index %s: %w", r.cfg.IndexName, err)
	}
	if exists {
		return false, nil
	}

	def, err := db.NewIndex(r.cfg.IndexName).
		Prefix(r.cfg.DocPrefix).
		Tag(domain.FieldTenantID).
		WeightedText(domain.FieldTitle, titleWeight).
		Text(domain.FieldSummary, domain.FieldContent).
		Vector(domain.FieldVector, db.HNSWParams{
			Dim:            r.cfg.VectorDim,
			Distance:       db.DistanceCosine,
			M:              r.cfg.HNSWM,
			EFConstruction: r.cfg.HNSWEF,
		}).
		Build()
	if err != nil {
		return false, fmt.Errorf("build index definition: %w", err)
	}

	if err := r.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return false, nil
		}
		return false, fmt.Errorf("create index %s: %w", r.cfg.IndexName, err)
	}
	return true, nil
}

// toDocument hydrates a search entry. Entries owned by another tenant or without content are dropped.
func (r *Repo) toDocument(ctx context.Context, tenantID string, entry db.SearchEntry) (document.Document, bool) {
	owner := entry.Fields[domain.FieldTenantID]
	if owner != tenantID {
		logger.FromContext(ctx).Warn("Dropped document outside tenant scope",
			zap.String("key", entry.Key),
			zap.String("tenant_id", tenantID),
		)
		return document.Document{}, false
	}

	content := entry.Fields[domain.FieldContent]
	if content == "" {
		return document.Document{}, false
	}

	var meta map[string]string
	for _, f := range []string{domain.FieldTitle, domain.FieldSummary} {
		if v := entry.Fields[f]; v != "" {
			if meta == nil {
				meta = make(map[string]string, 2)
			}
			meta[f] = v
		}
	}

	return document.Reconstruct(entry.Key, owner, content, meta), true
}
