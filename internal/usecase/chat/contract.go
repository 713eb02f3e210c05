package chat

import (
	"context"

	"github.com/kailas-cloud/ragchat/internal/domain/assistant"
	"github.com/kailas-cloud/ragchat/internal/domain/conversation"
	"github.com/kailas-cloud/ragchat/internal/domain/search/result"
)

// HybridRetriever returns the fused lexical and semantic ranking. It never fails.
type HybridRetriever interface {
	Retrieve(ctx context.Context, tenantID, query string) []result.Result
}

// DirectRetriever runs a single semantic query.
type DirectRetriever interface {
	Direct(ctx context.Context, tenantID, query string) ([]result.Result, error)
}

// Memory is the bounded per-session history.
type Memory interface {
	Read(ctx context.Context, sessionID string) ([]conversation.Turn, error)
	Append(ctx context.Context, sessionID, tenantID, question, answer string) error
}

// Directory resolves a tenant token into its assistant profile.
type Directory interface {
	Resolve(ctx context.Context, token string) (assistant.Assistant, error)
}
