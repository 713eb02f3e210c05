// Package history persists bounded per-session conversation turns in Redis lists.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragchat/internal/domain"
	"github.com/kailas-cloud/ragchat/internal/domain/conversation"
	"github.com/kailas-cloud/ragchat/internal/logger"
)

const (
	fieldTenantID  = "tenant_id"
	fieldCreatedAt = "created_at"
)

// store is the consumer interface for session storage (ISP).
type store interface {
	RPush(ctx context.Context, key string, values ...[]byte) error
	LRange(ctx context.Context, key string, start, stop int64) ([][]byte, error)
	LTrim(ctx context.Context, key string, start, stop int64) error
	LLen(ctx context.Context, key string) (int64, error)
	HSet(ctx context.Context, key string, fields map[string]string) error
	HSetNX(ctx context.Context, key, field, value string) (bool, error)
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Del(ctx context.Context, keys ...string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
}

// Repo stores each session as a turns list ({prefix}session:{id}:turns, JSON per turn)
// and a metadata hash ({prefix}session:{id}:meta with tenant_id and created_at).
type Repo struct {
	store  store
	prefix string
}

// New creates a history repository.
func New(s store, keyPrefix string) *Repo {
	if keyPrefix == "" {
		keyPrefix = domain.DefaultKeyPrefix
	}
	return &Repo{store: s, prefix: keyPrefix + "session:"}
}

func (r *Repo) turnsKey(sessionID string) string { return r.prefix + sessionID + ":turns" }
func (r *Repo) metaKey(sessionID string) string  { return r.prefix + sessionID + ":meta" }

// Append pushes a turn and upserts the session metadata. created_at is written only once.
func (r *Repo) Append(ctx context.Context, sessionID, tenantID string, turn conversation.Turn) error {
	data, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("marshal turn: %w", err)
	}
	if err := r.store.RPush(ctx, r.turnsKey(sessionID), data); err != nil {
		return fmt.Errorf("push turn %s: %w", sessionID, err)
	}

	meta := r.metaKey(sessionID)
	if err := r.store.HSet(ctx, meta, map[string]string{fieldTenantID: tenantID}); err != nil {
		return fmt.Errorf("set session tenant %s: %w", sessionID, err)
	}
	if _, err := r.store.HSetNX(ctx, meta, fieldCreatedAt, turn.Timestamp.UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("set session created_at %s: %w", sessionID, err)
	}
	return nil
}

// Turns returns the stored turns in insertion order. Undecodable entries are skipped.
func (r *Repo) Turns(ctx context.Context, sessionID string) ([]conversation.Turn, error) {
	raw, err := r.store.LRange(ctx, r.turnsKey(sessionID), 0, -1)
	if err != nil {
		return nil, fmt.Errorf("read turns %s: %w", sessionID, err)
	}

	turns := make([]conversation.Turn, 0, len(raw))
	for i, item := range raw {
		var t conversation.Turn
		if err := json.Unmarshal(item, &t); err != nil {
			logger.FromContext(ctx).Warn("Skipped undecodable turn",
				zap.String("session_id", sessionID),
				zap.Int("index", i),
				zap.Error(err),
			)
			continue
		}
		turns = append(turns, t)
	}
	return turns, nil
}

// History returns the turns together with the session metadata.
func (r *Repo) History(ctx context.Context, sessionID string) (conversation.History, error) {
	turns, err := r.Turns(ctx, sessionID)
	if err != nil {
		return conversation.History{}, err
	}
	meta, err := r.store.HGetAll(ctx, r.metaKey(sessionID))
	if err != nil {
		return conversation.History{}, fmt.Errorf("read session meta %s: %w", sessionID, err)
	}

	h := conversation.History{
		SessionID: sessionID,
		TenantID:  meta[fieldTenantID],
		Turns:     turns,
	}
	if ts := meta[fieldCreatedAt]; ts != "" {
		if created, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			h.CreatedAt = created
		}
	}
	return h, nil
}

// Len returns the number of stored turns.
func (r *Repo) Len(ctx context.Context, sessionID string) (int, error) {
	n, err := r.store.LLen(ctx, r.turnsKey(sessionID))
	if err != nil {
		return 0, fmt.Errorf("count turns %s: %w", sessionID, err)
	}
	return int(n), nil
}

// KeepNewest trims the turns list to its newest n entries. n <= 0 removes every turn.
func (r *Repo) KeepNewest(ctx context.Context, sessionID string, n int) error {
	key := r.turnsKey(sessionID)
	if n <= 0 {
		if err := r.store.Del(ctx, key); err != nil {
			return fmt.Errorf("clear turns %s: %w", sessionID, err)
		}
		return nil
	}
	if err := r.store.LTrim(ctx, key, int64(-n), -1); err != nil {
		return fmt.Errorf("trim turns %s: %w", sessionID, err)
	}
	return nil
}

// Touch refreshes the expiry of both session keys.
func (r *Repo) Touch(ctx context.Context, sessionID string, ttl time.Duration) error {
	for _, key := range []string{r.turnsKey(sessionID), r.metaKey(sessionID)} {
		if err := r.store.Expire(ctx, key, ttl, false); err != nil {
			return fmt.Errorf("expire %s: %w", key, err)
		}
	}
	return nil
}

// Sessions lists the ids of all sessions that have metadata.
func (r *Repo) Sessions(ctx context.Context) ([]string, error) {
	keys, err := r.store.Scan(ctx, r.prefix+"*:meta")
	if err != nil {
		return nil, fmt.Errorf("scan sessions: %w", err)
	}

	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		id := strings.TrimSuffix(strings.TrimPrefix(k, r.prefix), ":meta")
		if id == "" || id == k {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Tenant returns the tenant recorded for a session, or "" when unknown.
func (r *Repo) Tenant(ctx context.Context, sessionID string) (string, error) {
	meta, err := r.store.HGetAll(ctx, r.metaKey(sessionID))
	if err != nil {
		return "", fmt.Errorf("read session meta %s: %w", sessionID, err)
	}
	return meta[fieldTenantID], nil
}

// Delete removes the session turns and metadata.
func (r *Repo) Delete(ctx context.Context, sessionID string) error {
	if err := r.store.Del(ctx, r.turnsKey(sessionID), r.metaKey(sessionID)); err != nil {
		return fmt.Errorf("delete session %s: %w", sessionID, err)
	}
	return nil
}
