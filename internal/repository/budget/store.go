// Package budget persists completion token counters so limits survive restarts.
package budget

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/ragchat/internal/db"
)

// Period segments of a counter key: {prefix}budget:{provider}:{period}:{date}.
const (
	periodDaily   = "daily"
	periodMonthly = "monthly"
)

type kv interface {
	Get(ctx context.Context, key string) ([]byte, error)
	IncrBy(ctx context.Context, key string, val int64) error
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
}

// Store keeps one Redis integer per provider and period.
type Store struct {
	kv   kv
	ttls map[string]time.Duration
}

// New creates a budget store. A counter lives past its period so a late reader still sees it:
// 48h for daily and 62 days for monthly are sensible. A zero TTL keeps the counter forever.
func New(s kv, dailyTTL, monthlyTTL time.Duration) *Store {
	return &Store{
		kv: s,
		ttls: map[string]time.Duration{
			periodDaily:   dailyTTL,
			periodMonthly: monthlyTTL,
		},
	}
}

// IncrBy adds val to the counter. The expiry is set only by the first increment of a period.
func (s *Store) IncrBy(ctx context.Context, key string, val int64) error {
	if err := s.kv.IncrBy(ctx, key, val); err != nil {
		return fmt.Errorf("increment budget %s: %w", key, err)
	}

	ttl := s.ttlFor(key)
	if ttl <= 0 {
		return nil
	}
	if err := s.kv.Expire(ctx, key, ttl, true); err != nil {
		return fmt.Errorf("expire budget %s: %w", key, err)
	}
	return nil
}

// Get reads the counter. A key that does not exist yet is a fresh period and reads as 0.
func (s *Store) Get(ctx context.Context, key string) (int64, error) {
	data, err := s.kv.Get(ctx, key)
	if errors.Is(err, db.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read budget %s: %w", key, err)
	}

	val, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse budget %s: %w", key, err)
	}
	return val, nil
}

// ttlFor finds the period segment in the key. Unknown layouts get the longest TTL.
func (s *Store) ttlFor(key string) time.Duration {
	segments := strings.Split(key, ":")
	for i := len(segments) - 1; i >= 0; i-- {
		if ttl, ok := s.ttls[segments[i]]; ok {
			return ttl
		}
	}
	return s.ttls[periodMonthly]
}
