// Package embedding decorates query embedders for the retrieval pipeline.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragchat/internal/domain"
	"github.com/kailas-cloud/ragchat/internal/logger"
)

// InstrumentedEmbedder logs every embedding call with the request-scoped logger.
// Request counts and token usage are recorded by the OpenAI transport, not here.
type InstrumentedEmbedder struct {
	inner  domain.Embedder
	fields []zap.Field
}

// NewInstrumentedEmbedder wraps inner. provider and model are attached to every log line.
func NewInstrumentedEmbedder(inner domain.Embedder, provider, model string) *InstrumentedEmbedder {
	return &InstrumentedEmbedder{
		inner:  inner,
		fields: []zap.Field{zap.String("provider", provider), zap.String("model", model)},
	}
}

// Embed delegates to the inner embedder.
// A cancelled request is not a provider failure and is logged below error level.
func (p *InstrumentedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	log := logger.FromContext(ctx).With(p.fields...)
	start := time.Now()

	result, err := p.inner.Embed(ctx, text)
	elapsed := zap.Duration("duration", time.Since(start))

	switch {
	case errors.Is(err, context.Canceled):
		log.Info("Embedding request cancelled", elapsed)
		return domain.EmbeddingResult{}, fmt.Errorf("embed query: %w", err)
	case err != nil:
		log.Error("Embedding request failed", elapsed, zap.Int("text_len", len(text)), zap.Error(err))
		return domain.EmbeddingResult{}, fmt.Errorf("embed query: %w", err)
	}

	// The cache reports zero tokens on a hit.
	log.Debug("Embedding request completed",
		elapsed,
		zap.Int("dimensions", len(result.Embedding)),
		zap.Int("total_tokens", result.TotalTokens),
		zap.Bool("cached", result.TotalTokens == 0),
	)
	return result, nil
}
