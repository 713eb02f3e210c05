package chi

import (
	"context"
	"sync"

	chatuc "github.com/kailas-cloud/ragchat/internal/usecase/chat"
	healthuc "github.com/kailas-cloud/ragchat/internal/usecase/health"
)

type mockChat struct {
	mu       sync.Mutex
	requests []chatuc.Request
	chatFn   func(ctx context.Context, req chatuc.Request) (chatuc.Response, error)
}

func (m *mockChat) Chat(ctx context.Context, req chatuc.Request) (chatuc.Response, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	if m.chatFn != nil {
		return m.chatFn(ctx, req)
	}
	return chatuc.Response{Answer: "ok", Questions: []string{}}, nil
}

func (m *mockChat) calls() []chatuc.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]chatuc.Request(nil), m.requests...)
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(context.Context) healthuc.Report {
	return m.report
}
