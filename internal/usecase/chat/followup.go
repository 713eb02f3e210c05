package chat

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragchat/internal/domain"
	"github.com/kailas-cloud/ragchat/internal/domain/conversation"
	"github.com/kailas-cloud/ragchat/internal/domain/prompt"
	"github.com/kailas-cloud/ragchat/internal/logger"
	"github.com/kailas-cloud/ragchat/internal/metrics"
)

// DefaultMaxQuestions caps the suggestions returned per answer.
const DefaultMaxQuestions = 5

// FollowUpConfig tunes follow-up generation.
type FollowUpConfig struct {
	MaxQuestions int
	// Structured requests json_schema output. Disable for providers without it.
	Structured bool
}

// FollowUpGenerator suggests next questions from the raw question, history and context.
type FollowUpGenerator struct {
	retriever DirectRetriever
	assembler *Assembler
	completer domain.Completer
	cfg       FollowUpConfig
}

// NewFollowUpGenerator creates a follow-up generator.
func NewFollowUpGenerator(
	retriever DirectRetriever, assembler *Assembler, completer domain.Completer, cfg FollowUpConfig,
) *FollowUpGenerator {
	if cfg.MaxQuestions <= 0 {
		cfg.MaxQuestions = DefaultMaxQuestions
	}
	return &FollowUpGenerator{retriever: retriever, assembler: assembler, completer: completer, cfg: cfg}
}

// Generate never fails: any error is logged, counted and yields no questions.
func (g *FollowUpGenerator) Generate(
	ctx context.Context, tmpl prompt.Template, tenantID string, history []conversation.Turn, question string,
) []string {
	questions, reason, err := g.generate(ctx, tmpl, tenantID, history, question)
	if err != nil {
		metrics.FollowUpFailuresTotal.WithLabelValues(reason).Inc()
		logger.FromContext(ctx).Warn("Follow-up generation failed",
			zap.String("reason", reason),
			zap.Error(err),
		)
		return []string{}
	}
	return questions
}

func (g *FollowUpGenerator) generate(
	ctx context.Context, tmpl prompt.Template, tenantID string, history []conversation.Turn, question string,
) ([]string, string, error) {
	hits, err := g.retriever.Direct(ctx, tenantID, question)
	if err != nil {
		return nil, "retrieval", fmt.Errorf("retrieve context: %w", err)
	}

	msg, err := prompt.Render(tmpl, prompt.Vars{
		ChatHistory:        conversation.Tagged(history),
		CurrentQuestion:    question,
		Context:            g.assembler.Assemble(hits),
		FormatInstructions: formatInstructions(),
	})
	if err != nil {
		return nil, "prompt", fmt.Errorf("follow-up prompt: %w", err)
	}

	req := domain.CompletionRequest{Messages: []domain.Message{domain.UserMessage(msg)}}
	if g.cfg.Structured {
		req.Structured = &domain.StructuredOutput{
			Name:   "follow_up_questions",
			Schema: followUpSchema(),
			Strict: true,
		}
	}

	out, err := g.completer.Complete(ctx, req)
	if err != nil {
		return nil, "completion", fmt.Errorf("generate follow-ups: %w", err)
	}

	questions, err := parseFollowUps(out.Text, g.cfg.MaxQuestions)
	switch {
	case errors.Is(err, ErrFollowUpMalformed):
		return nil, "malformed", err
	case err != nil:
		return nil, "schema", err
	}
	return questions, "", nil
}
