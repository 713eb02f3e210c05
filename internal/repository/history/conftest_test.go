package history

import (
	"context"
	"path"
	"sync"
	"testing"
	"time"
)

// memStore is an in-memory stand-in for the Redis list and hash commands.
type memStore struct {
	mu      sync.Mutex
	lists   map[string][][]byte
	hashes  map[string]map[string]string
	expires map[string]time.Duration

	rpushErr  error
	lrangeErr error
	hgetErr   error
	delErr    error
}

func newMemStore() *memStore {
	return &memStore{
		lists:   map[string][][]byte{},
		hashes:  map[string]map[string]string{},
		expires: map[string]time.Duration{},
	}
}

func (m *memStore) RPush(_ context.Context, key string, values ...[]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rpushErr != nil {
		return m.rpushErr
	}
	m.lists[key] = append(m.lists[key], values...)
	return nil
}

func (m *memStore) LRange(_ context.Context, key string, start, stop int64) ([][]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lrangeErr != nil {
		return nil, m.lrangeErr
	}
	l := m.lists[key]
	s, e := normRange(int64(len(l)), start, stop)
	if s > e {
		return nil, nil
	}
	return append([][]byte(nil), l[s:e+1]...), nil
}

func (m *memStore) LTrim(_ context.Context, key string, start, stop int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l := m.lists[key]
	s, e := normRange(int64(len(l)), start, stop)
	if s > e {
		delete(m.lists, key)
		return nil
	}
	m.lists[key] = append([][]byte(nil), l[s:e+1]...)
	return nil
}

func (m *memStore) LLen(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.lists[key])), nil
}

func (m *memStore) HSet(_ context.Context, key string, fields map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	h := m.hashes[key]
	if h == nil {
		h = map[string]string{}
		m.hashes[key] = h
	}
	for k, v := range fields {
		h[k] = v
	}
	return nil
}

func (m *memStore) HSetNX(_ context.Context, key, field, value string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h := m.hashes[key]
	if h == nil {
		h = map[string]string{}
		m.hashes[key] = h
	}
	if _, ok := h[field]; ok {
		return false, nil
	}
	h[field] = value
	return true, nil
}

func (m *memStore) HGetAll(_ context.Context, key string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.hgetErr != nil {
		return nil, m.hgetErr
	}
	out := map[string]string{}
	for k, v := range m.hashes[key] {
		out[k] = v
	}
	return out, nil
}

func (m *memStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.delErr != nil {
		return m.delErr
	}
	for _, k := range keys {
		delete(m.lists, k)
		delete(m.hashes, k)
	}
	return nil
}

func (m *memStore) Scan(_ context.Context, pattern string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for k := range m.hashes {
		if ok, _ := path.Match(pattern, k); ok {
			keys = append(keys, k)
		}
	}
	for k := range m.lists {
		if ok, _ := path.Match(pattern, k); ok {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (m *memStore) Expire(_ context.Context, key string, ttl time.Duration, _ bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expires[key] = ttl
	return nil
}

// normRange resolves Redis-style inclusive indexes (negative counts from the tail).
func normRange(n, start, stop int64) (int64, int64) {
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	return start, stop
}

func newTestRepo(t *testing.T) (*Repo, *memStore) {
	t.Helper()
	ms := newMemStore()
	return New(ms, "test:"), ms
}
