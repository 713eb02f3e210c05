package retrieval

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/ragchat/internal/domain/search/result"
	"github.com/kailas-cloud/ragchat/internal/logger"
	"github.com/kailas-cloud/ragchat/internal/metrics"
)

// FusionConfig weights the retrievers in the hybrid ranking.
type FusionConfig struct {
	LexicalWeight  float64
	SemanticWeight float64
	RRFConstant    float64
}

func (c FusionConfig) withDefaults() FusionConfig {
	if c.LexicalWeight == 0 && c.SemanticWeight == 0 {
		c.LexicalWeight = DefaultLexicalWeight
		c.SemanticWeight = DefaultSemanticWeight
	}
	if c.RRFConstant <= 0 {
		c.RRFConstant = DefaultRRFConstant
	}
	return c
}

// Hybrid combines lexical and expanded semantic retrieval through weighted RRF.
type Hybrid struct {
	lexical  *Lexical
	semantic *Semantic
	fusion   FusionConfig
}

// NewHybrid creates a hybrid retriever.
func NewHybrid(lexical *Lexical, semantic *Semantic, fusion FusionConfig) *Hybrid {
	return &Hybrid{lexical: lexical, semantic: semantic, fusion: fusion.withDefaults()}
}

// Retrieve runs both retrievers in parallel and fuses their rankings.
// A failing retriever contributes nothing; Retrieve itself never fails.
func (h *Hybrid) Retrieve(ctx context.Context, tenantID, query string) []result.Result {
	var lexical, semantic []result.Result

	var g errgroup.Group
	g.Go(func() error {
		lexical = h.lexical.Retrieve(ctx, tenantID, query)
		return nil
	})
	g.Go(func() error {
		semantic = h.Semantic(ctx, tenantID, query)
		return nil
	})
	_ = g.Wait()

	fused := Fuse(h.fusion.RRFConstant,
		Ranking{Results: lexical, Weight: h.fusion.LexicalWeight},
		Ranking{Results: semantic, Weight: h.fusion.SemanticWeight},
	)
	metrics.RetrievalResults.WithLabelValues("hybrid").Observe(float64(len(fused)))
	return fused
}

// Semantic runs expanded semantic retrieval, degrading to no results on failure.
func (h *Hybrid) Semantic(ctx context.Context, tenantID, query string) []result.Result {
	hits, err := h.semantic.Expanded(ctx, tenantID, query)
	if err != nil {
		metrics.RetrievalFailuresTotal.WithLabelValues("semantic").Inc()
		logger.FromContext(ctx).Warn("Semantic retrieval failed",
			zap.String("tenant_id", tenantID),
			zap.Error(err),
		)
		return nil
	}
	metrics.RetrievalResults.WithLabelValues("semantic").Observe(float64(len(hits)))
	return hits
}

// Direct runs direct semantic retrieval on the raw question.
func (h *Hybrid) Direct(ctx context.Context, tenantID, query string) ([]result.Result, error) {
	return h.semantic.Direct(ctx, tenantID, query)
}
