package budget

import (
	"context"
	"time"

	"github.com/kailas-cloud/ragchat/internal/db"
)

type mockKV struct {
	getFn    func(ctx context.Context, key string) ([]byte, error)
	incrByFn func(ctx context.Context, key string, val int64) error
	expireFn func(ctx context.Context, key string, ttl time.Duration, nx bool) error
}

func (m *mockKV) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockKV) IncrBy(ctx context.Context, key string, val int64) error {
	if m.incrByFn != nil {
		return m.incrByFn(ctx, key, val)
	}
	return nil
}

func (m *mockKV) Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error {
	if m.expireFn != nil {
		return m.expireFn(ctx, key, ttl, nx)
	}
	return nil
}
