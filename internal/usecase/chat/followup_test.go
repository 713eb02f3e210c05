package chat

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kailas-cloud/ragchat/internal/domain"
	"github.com/kailas-cloud/ragchat/internal/domain/assistant"
	"github.com/kailas-cloud/ragchat/internal/domain/conversation"
	"github.com/kailas-cloud/ragchat/internal/domain/prompt"
	"github.com/kailas-cloud/ragchat/internal/domain/search/result"
	"github.com/kailas-cloud/ragchat/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterChatMetrics()
	m.Run()
}

func TestFollowUp_Success(t *testing.T) {
	var directQuery string
	retriever := &mockRetriever{directFn: func(_ context.Context, _, query string) ([]result.Result, error) {
		directQuery = query
		return []result.Result{hit("1", "Refunds take 5 days.")}, nil
	}}
	completer := replyWith(`{"questions": ["How do I request a refund?", "Can I cancel?"]}`)
	g := NewFollowUpGenerator(retriever, NewAssembler(0, nil), completer, FollowUpConfig{Structured: true})

	history := []conversation.Turn{{Question: "hi", Answer: "hello"}}
	got := g.Generate(context.Background(), "{chat_history}|{current_question}|{context}|{format_instructions}",
		"tenant-a", history, "refund time?")

	if !reflect.DeepEqual(got, []string{"How do I request a refund?", "Can I cancel?"}) {
		t.Errorf("questions = %q", got)
	}
	if directQuery != "refund time?" {
		t.Errorf("context retrieved with %q, want raw question", directQuery)
	}

	req := completer.requests[0]
	if req.Structured == nil || !req.Structured.Strict {
		t.Fatalf("expected strict structured output, got %+v", req.Structured)
	}
	msg := req.Messages[0].Content
	if !strings.HasPrefix(msg, "<Question>hi <Answer>hello|refund time?|Refunds take 5 days.|") {
		t.Errorf("prompt = %q", msg)
	}
}

func TestFollowUp_StructuredDisabled(t *testing.T) {
	completer := replyWith(`{"questions": []}`)
	g := NewFollowUpGenerator(&mockRetriever{}, NewAssembler(0, nil), completer, FollowUpConfig{})

	g.Generate(context.Background(), assistant.DefaultFollowUpPrompt, "tenant-a", nil, "q")
	if completer.requests[0].Structured != nil {
		t.Error("structured output must be off")
	}
}

func TestFollowUp_DefaultMaxQuestions(t *testing.T) {
	completer := replyWith(`{"questions": ["1","2","3","4","5","6","7"]}`)
	g := NewFollowUpGenerator(&mockRetriever{}, NewAssembler(0, nil), completer, FollowUpConfig{})

	got := g.Generate(context.Background(), assistant.DefaultFollowUpPrompt, "tenant-a", nil, "q")
	if len(got) != DefaultMaxQuestions {
		t.Errorf("expected %d questions, got %d", DefaultMaxQuestions, len(got))
	}
}

func TestFollowUp_FailuresYieldEmpty(t *testing.T) {
	tests := []struct {
		name      string
		retriever *mockRetriever
		completer *mockCompleter
		tmpl      string
		reason    string
	}{
		{
			name: "retrieval",
			retriever: &mockRetriever{directFn: func(context.Context, string, string) ([]result.Result, error) {
				return nil, errors.New("index gone")
			}},
			completer: replyWith(`{"questions": ["a"]}`),
			reason:    "retrieval",
		},
		{
			name:      "prompt",
			retriever: &mockRetriever{},
			completer: replyWith(`{"questions": ["a"]}`),
			tmpl:      "{bogus}",
			reason:    "prompt",
		},
		{
			name:      "completion",
			retriever: &mockRetriever{},
			completer: &mockCompleter{completeFn: func(context.Context, domain.CompletionRequest) (domain.Completion, error) {
				return domain.Completion{}, domain.ErrCompletionProviderError
			}},
			reason: "completion",
		},
		{
			name:      "malformed",
			retriever: &mockRetriever{},
			completer: replyWith("Sure! Here are some questions: 1. a"),
			reason:    "malformed",
		},
		{
			name:      "schema",
			retriever: &mockRetriever{},
			completer: replyWith(`{"suggestions": ["a"]}`),
			reason:    "schema",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl := assistant.DefaultFollowUpPrompt
			if tt.tmpl != "" {
				tmpl = prompt.Template(tt.tmpl)
			}
			g := NewFollowUpGenerator(tt.retriever, NewAssembler(0, nil), tt.completer, FollowUpConfig{})

			before := testutil.ToFloat64(metrics.FollowUpFailuresTotal.WithLabelValues(tt.reason))
			got := g.Generate(context.Background(), tmpl, "tenant-a", nil, "q")
			if got == nil || len(got) != 0 {
				t.Errorf("expected empty non-nil questions, got %#v", got)
			}
			if d := testutil.ToFloat64(metrics.FollowUpFailuresTotal.WithLabelValues(tt.reason)) - before; d != 1 {
				t.Errorf("expected %s counter +1, got %v", tt.reason, d)
			}
		})
	}
}
