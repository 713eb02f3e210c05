// Package chat answers questions against a tenant knowledge base with bounded memory.
package chat

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/ragchat/internal/domain/conversation"
	"github.com/kailas-cloud/ragchat/internal/logger"
	"github.com/kailas-cloud/ragchat/internal/metrics"
)

// Request is one user question within a session.
type Request struct {
	Question  string
	SessionID string
	Token     string
}

// Response is the answer plus suggested follow-up questions. Questions is never nil.
type Response struct {
	Answer    string
	Questions []string
}

// Service runs the chat pipeline.
type Service struct {
	directory Directory
	memory    Memory
	answers   *AnswerGenerator
	followups *FollowUpGenerator
}

// New creates a chat service.
func New(directory Directory, memory Memory, answers *AnswerGenerator, followups *FollowUpGenerator) *Service {
	return &Service{directory: directory, memory: memory, answers: answers, followups: followups}
}

// Chat resolves the tenant, answers the question and records the turn.
// Follow-up failures never fail the request; memory failures are logged.
func (s *Service) Chat(ctx context.Context, req Request) (Response, error) {
	a, err := s.directory.Resolve(ctx, req.Token)
	if err != nil {
		return Response{}, fmt.Errorf("resolve assistant: %w", err)
	}
	a = a.WithDefaults()
	tenantID := req.Token
	log := logger.FromContext(ctx).With(zap.String("session_id", req.SessionID))

	history, err := s.memory.Read(ctx, req.SessionID)
	if err != nil {
		metrics.MemoryErrorsTotal.WithLabelValues("read").Inc()
		log.Warn("History unavailable, answering without it", zap.Error(err))
		history = []conversation.Turn{}
	}

	var (
		answer    string
		questions []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		answer, err = s.answers.Generate(gctx, a, tenantID, history, req.Question)
		return err
	})
	g.Go(func() error {
		questions = s.followups.Generate(gctx, a.Prompts.FollowUp, tenantID, history, req.Question)
		return nil
	})
	if err := g.Wait(); err != nil {
		return Response{}, err
	}

	if err := ctx.Err(); err != nil {
		return Response{}, fmt.Errorf("request aborted: %w", err)
	}

	if err := s.memory.Append(ctx, req.SessionID, tenantID, req.Question, answer); err != nil {
		metrics.MemoryErrorsTotal.WithLabelValues("append").Inc()
		log.Error("Failed to record turn", zap.Error(err))
	}

	if questions == nil {
		questions = []string{}
	}
	return Response{Answer: answer, Questions: questions}, nil
}
