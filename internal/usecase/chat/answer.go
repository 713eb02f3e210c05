package chat

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragchat/internal/domain"
	"github.com/kailas-cloud/ragchat/internal/domain/assistant"
	"github.com/kailas-cloud/ragchat/internal/domain/conversation"
	"github.com/kailas-cloud/ragchat/internal/domain/prompt"
	"github.com/kailas-cloud/ragchat/internal/logger"
)

// AnswerGenerator produces a grounded answer for the current question.
type AnswerGenerator struct {
	condenser *Condenser
	retriever HybridRetriever
	assembler *Assembler
	completer domain.Completer
}

// NewAnswerGenerator creates an answer generator.
func NewAnswerGenerator(
	condenser *Condenser, retriever HybridRetriever, assembler *Assembler, completer domain.Completer,
) *AnswerGenerator {
	return &AnswerGenerator{condenser: condenser, retriever: retriever, assembler: assembler, completer: completer}
}

// Generate condenses the question, retrieves context for the standalone query and
// asks the completion service for an answer.
func (g *AnswerGenerator) Generate(
	ctx context.Context, a assistant.Assistant, tenantID string, history []conversation.Turn, question string,
) (string, error) {
	query, err := g.condenser.Condense(ctx, a.Prompts.Standalone, history, question)
	if err != nil {
		return "", err
	}

	hits := g.retriever.Retrieve(ctx, tenantID, query)
	ctxText := g.assembler.Assemble(hits)

	logger.FromContext(ctx).Debug("Context assembled",
		zap.String("state", stateFor(history).String()),
		zap.Int("documents", len(hits)),
		zap.Int("context_bytes", len(ctxText)),
	)

	system, err := prompt.Render(a.Prompts.Answer, prompt.Vars{
		Question: question,
		Context:  ctxText,
	})
	if err != nil {
		return "", fmt.Errorf("answer prompt: %w", err)
	}

	out, err := g.completer.Complete(ctx, domain.CompletionRequest{
		Messages: answerMessages(system, history, question),
	})
	if err != nil {
		return "", fmt.Errorf("generate answer: %w", err)
	}
	return postprocess(out.Text), nil
}

func answerMessages(system string, history []conversation.Turn, question string) []domain.Message {
	msgs := make([]domain.Message, 0, 2+2*len(history))
	msgs = append(msgs, domain.SystemMessage(system))
	for _, t := range history {
		msgs = append(msgs,
			domain.Message{Role: domain.RoleUser, Content: t.Question},
			domain.Message{Role: domain.RoleAssistant, Content: t.Answer},
		)
	}
	return append(msgs, domain.UserMessage(question))
}
