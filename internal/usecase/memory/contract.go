package memory

import (
	"context"
	"time"

	"github.com/kailas-cloud/ragchat/internal/domain/assistant"
	"github.com/kailas-cloud/ragchat/internal/domain/conversation"
)

// Repository defines the storage contract for session histories.
type Repository interface {
	Append(ctx context.Context, sessionID, tenantID string, turn conversation.Turn) error
	Turns(ctx context.Context, sessionID string) ([]conversation.Turn, error)
	History(ctx context.Context, sessionID string) (conversation.History, error)
	Len(ctx context.Context, sessionID string) (int, error)
	KeepNewest(ctx context.Context, sessionID string, n int) error
	Touch(ctx context.Context, sessionID string, ttl time.Duration) error
	Sessions(ctx context.Context) ([]string, error)
	Tenant(ctx context.Context, sessionID string) (string, error)
	Delete(ctx context.Context, sessionID string) error
}

// Directory resolves tenant tokens; used to detect orphaned sessions.
type Directory interface {
	Resolve(ctx context.Context, token string) (assistant.Assistant, error)
}
