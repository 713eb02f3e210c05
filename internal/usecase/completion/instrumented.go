// Package completion decorates the completion provider with budget enforcement and logging.
package completion

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragchat/internal/domain"
	"github.com/kailas-cloud/ragchat/internal/logger"
	"github.com/kailas-cloud/ragchat/internal/metrics"
)

// BudgetChecker is the local interface for budget enforcement.
type BudgetChecker interface {
	Check(ctx context.Context) error
	Record(tokens int64)
	RemainingDaily() int64
	RemainingMonthly() int64
}

// InstrumentedCompleter wraps a Completer with budget enforcement and logging.
// Transport metrics (requests, duration, tokens) are recorded in transport/openai.
type InstrumentedCompleter struct {
	inner    domain.Completer
	provider string
	model    string
	budget   BudgetChecker
}

// NewInstrumentedCompleter wraps a completer. budget may be nil (unlimited).
func NewInstrumentedCompleter(
	inner domain.Completer, provider, model string, budget BudgetChecker,
) *InstrumentedCompleter {
	return &InstrumentedCompleter{
		inner:    inner,
		provider: provider,
		model:    model,
		budget:   budget,
	}
}

// Complete checks the budget, delegates to the inner completer and records usage.
func (p *InstrumentedCompleter) Complete(
	ctx context.Context, req domain.CompletionRequest,
) (domain.Completion, error) {
	log := logger.FromContext(ctx)

	if p.budget != nil {
		if err := p.budget.Check(ctx); err != nil {
			log.Error("Completion budget exceeded",
				zap.String("provider", p.provider),
				zap.String("model", p.model),
				zap.Error(err),
			)
			return domain.Completion{}, fmt.Errorf("budget check: %w", err)
		}
	}

	start := time.Now()
	out, err := p.inner.Complete(ctx, req)
	duration := time.Since(start)

	if err != nil {
		log.Error("Completion request failed",
			zap.String("provider", p.provider),
			zap.String("model", p.model),
			zap.Bool("structured", req.Structured != nil),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return domain.Completion{}, fmt.Errorf("complete: %w", err)
	}

	if p.budget != nil && out.TotalTokens > 0 {
		p.budget.Record(int64(out.TotalTokens))
		remaining := metrics.CompletionBudgetTokensRemaining
		remaining.WithLabelValues(p.provider, "daily").Set(float64(p.budget.RemainingDaily()))
		remaining.WithLabelValues(p.provider, "monthly").Set(float64(p.budget.RemainingMonthly()))
	}

	log.Debug("Completion request completed",
		zap.String("provider", p.provider),
		zap.String("model", p.model),
		zap.Bool("structured", req.Structured != nil),
		zap.Int("messages", len(req.Messages)),
		zap.Duration("duration", duration),
		zap.Int("prompt_tokens", out.PromptTokens),
		zap.Int("completion_tokens", out.CompletionTokens),
	)

	return out, nil
}
