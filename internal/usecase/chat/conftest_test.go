package chat

import (
	"context"
	"strings"
	"sync"

	"github.com/kailas-cloud/ragchat/internal/domain"
	"github.com/kailas-cloud/ragchat/internal/domain/assistant"
	"github.com/kailas-cloud/ragchat/internal/domain/conversation"
	"github.com/kailas-cloud/ragchat/internal/domain/document"
	"github.com/kailas-cloud/ragchat/internal/domain/search/result"
)

type mockCompleter struct {
	mu         sync.Mutex
	requests   []domain.CompletionRequest
	completeFn func(ctx context.Context, req domain.CompletionRequest) (domain.Completion, error)
}

func (m *mockCompleter) Complete(ctx context.Context, req domain.CompletionRequest) (domain.Completion, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	return m.completeFn(ctx, req)
}

func (m *mockCompleter) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

func replyWith(text string) *mockCompleter {
	return &mockCompleter{completeFn: func(context.Context, domain.CompletionRequest) (domain.Completion, error) {
		return domain.Completion{Text: text}, nil
	}}
}

type mockRetriever struct {
	mu         sync.Mutex
	queries    []string
	retrieveFn func(ctx context.Context, tenantID, query string) []result.Result
	directFn   func(ctx context.Context, tenantID, query string) ([]result.Result, error)
}

func (m *mockRetriever) Retrieve(ctx context.Context, tenantID, query string) []result.Result {
	m.mu.Lock()
	m.queries = append(m.queries, query)
	m.mu.Unlock()
	if m.retrieveFn == nil {
		return nil
	}
	return m.retrieveFn(ctx, tenantID, query)
}

func (m *mockRetriever) Direct(ctx context.Context, tenantID, query string) ([]result.Result, error) {
	if m.directFn == nil {
		return nil, nil
	}
	return m.directFn(ctx, tenantID, query)
}

type mockMemory struct {
	mu       sync.Mutex
	readFn   func(ctx context.Context, sessionID string) ([]conversation.Turn, error)
	appendFn func(ctx context.Context, sessionID, tenantID, question, answer string) error
	appended []conversation.Turn
}

func (m *mockMemory) Read(ctx context.Context, sessionID string) ([]conversation.Turn, error) {
	if m.readFn == nil {
		return nil, nil
	}
	return m.readFn(ctx, sessionID)
}

func (m *mockMemory) Append(ctx context.Context, sessionID, tenantID, question, answer string) error {
	m.mu.Lock()
	m.appended = append(m.appended, conversation.Turn{Question: question, Answer: answer})
	m.mu.Unlock()
	if m.appendFn == nil {
		return nil
	}
	return m.appendFn(ctx, sessionID, tenantID, question, answer)
}

type mockDirectory struct {
	resolveFn func(ctx context.Context, token string) (assistant.Assistant, error)
}

func (m *mockDirectory) Resolve(ctx context.Context, token string) (assistant.Assistant, error) {
	return m.resolveFn(ctx, token)
}

func activeDirectory() *mockDirectory {
	return &mockDirectory{resolveFn: func(_ context.Context, token string) (assistant.Assistant, error) {
		return assistant.Assistant{Token: token, Name: "bot", Active: true}, nil
	}}
}

func hit(id, content string) result.Result {
	return result.New(document.Reconstruct(id, "tenant-a", content, nil), 0.5)
}

func isFollowUp(req domain.CompletionRequest) bool {
	return req.Structured != nil || strings.Contains(req.Messages[0].Content, "JSON schema")
}

// wordCount is a deterministic token counter for tests.
func wordCount(text string) int {
	return len(strings.Fields(text))
}
