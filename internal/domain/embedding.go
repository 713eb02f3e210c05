package domain

import (
	"context"
	"fmt"
	"strings"
)

// Embedder turns text into a vector. Implementations are stacked as decorators:
// provider, then cache, then instrumentation, then the query instruction.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// EmbeddingResult carries the embedding vector and token usage through the decorator chain.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// InstructionEmbedder prefixes the text with a retrieval instruction.
// bge-style models expect the prefix on queries only; stored passages are embedded without it.
type InstructionEmbedder struct {
	inner       Embedder
	instruction string
}

// NewInstructionEmbedder creates a decorator that prepends instruction text.
func NewInstructionEmbedder(inner Embedder, instruction string) *InstructionEmbedder {
	return &InstructionEmbedder{inner: inner, instruction: instruction}
}

// Embed trims the text, prepends the instruction once and delegates to the inner embedder.
func (e *InstructionEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	input := strings.TrimSpace(text)
	if e.instruction != "" && !strings.HasPrefix(input, e.instruction) {
		input = e.instruction + input
	}
	result, err := e.inner.Embed(ctx, input)
	if err != nil {
		return EmbeddingResult{}, fmt.Errorf("instruction embed: %w", err)
	}
	return result, nil
}
