package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kailas-cloud/ragchat/internal/domain"
	"github.com/kailas-cloud/ragchat/internal/domain/assistant"
	"github.com/kailas-cloud/ragchat/internal/domain/conversation"
)

// memRepo is an in-memory Repository.
type memRepo struct {
	mu        sync.Mutex
	turns     map[string][]conversation.Turn
	tenants   map[string]string
	createdAt map[string]time.Time
	ttls      map[string]time.Duration

	appendErr   error
	turnsErr    error
	sessionsErr error
	deleteErr   map[string]error
	tenantErr   map[string]error
}

func newMemRepo() *memRepo {
	return &memRepo{
		turns:     make(map[string][]conversation.Turn),
		tenants:   make(map[string]string),
		createdAt: make(map[string]time.Time),
		ttls:      make(map[string]time.Duration),
		deleteErr: make(map[string]error),
		tenantErr: make(map[string]error),
	}
}

func (r *memRepo) Append(_ context.Context, sessionID, tenantID string, turn conversation.Turn) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.appendErr != nil {
		return r.appendErr
	}
	r.turns[sessionID] = append(r.turns[sessionID], turn)
	r.tenants[sessionID] = tenantID
	if _, ok := r.createdAt[sessionID]; !ok {
		r.createdAt[sessionID] = turn.Timestamp
	}
	return nil
}

func (r *memRepo) Turns(_ context.Context, sessionID string) ([]conversation.Turn, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.turnsErr != nil {
		return nil, r.turnsErr
	}
	out := make([]conversation.Turn, len(r.turns[sessionID]))
	copy(out, r.turns[sessionID])
	return out, nil
}

func (r *memRepo) History(ctx context.Context, sessionID string) (conversation.History, error) {
	turns, err := r.Turns(ctx, sessionID)
	if err != nil {
		return conversation.History{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return conversation.History{
		SessionID: sessionID,
		TenantID:  r.tenants[sessionID],
		Turns:     turns,
		CreatedAt: r.createdAt[sessionID],
	}, nil
}

func (r *memRepo) Len(_ context.Context, sessionID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.turns[sessionID]), nil
}

func (r *memRepo) KeepNewest(_ context.Context, sessionID string, n int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := r.turns[sessionID]
	if n <= 0 {
		delete(r.turns, sessionID)
		return nil
	}
	if len(t) > n {
		r.turns[sessionID] = append([]conversation.Turn(nil), t[len(t)-n:]...)
	}
	return nil
}

func (r *memRepo) Touch(_ context.Context, sessionID string, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ttls[sessionID] = ttl
	return nil
}

func (r *memRepo) Sessions(_ context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sessionsErr != nil {
		return nil, r.sessionsErr
	}
	out := make([]string, 0, len(r.tenants))
	for id := range r.tenants {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

func (r *memRepo) Tenant(_ context.Context, sessionID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.tenantErr[sessionID]; err != nil {
		return "", err
	}
	return r.tenants[sessionID], nil
}

func (r *memRepo) Delete(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.deleteErr[sessionID]; err != nil {
		return err
	}
	delete(r.turns, sessionID)
	delete(r.tenants, sessionID)
	delete(r.createdAt, sessionID)
	return nil
}

func (r *memRepo) has(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.tenants[sessionID]
	return ok
}

// mockDirectory resolves tokens from a fixed table and counts lookups.
type mockDirectory struct {
	mu      sync.Mutex
	known   map[string]bool
	errs    map[string]error
	lookups map[string]int
}

func newMockDirectory(known ...string) *mockDirectory {
	d := &mockDirectory{
		known:   make(map[string]bool),
		errs:    make(map[string]error),
		lookups: make(map[string]int),
	}
	for _, k := range known {
		d.known[k] = true
	}
	return d
}

func (d *mockDirectory) Resolve(_ context.Context, token string) (assistant.Assistant, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lookups[token]++
	if err := d.errs[token]; err != nil {
		return assistant.Assistant{}, err
	}
	if !d.known[token] {
		return assistant.Assistant{}, domain.ErrAssistantUnavailable
	}
	return assistant.Assistant{Token: token, Active: true}, nil
}
