// Package chi exposes the chat API over HTTP using the chi router.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragchat/internal/domain"
	"github.com/kailas-cloud/ragchat/internal/logger"
	chatuc "github.com/kailas-cloud/ragchat/internal/usecase/chat"
	healthuc "github.com/kailas-cloud/ragchat/internal/usecase/health"
)

// Error codes returned in ErrorResponse.Code.
const (
	CodeBadRequest           = "bad_request"
	CodeValidationFailed     = "validation_failed"
	CodeUnauthorized         = "unauthorized"
	CodeAssistantUnavailable = "assistant_unavailable"
	CodeDirectoryUnavailable = "directory_unavailable"
	CodeCompletionFailed     = "completion_failed"
	CodeCompletionTimeout    = "completion_timeout"
	CodeQuotaExceeded        = "quota_exceeded"
	CodeRequestCancelled     = "request_cancelled"
	CodeNotFound             = "not_found"
	CodeMethodNotAllowed     = "method_not_allowed"
	CodeInternalError        = "internal_error"
)

// statusClientClosedRequest is the nginx convention for a client that went away.
const statusClientClosedRequest = 499

const maxBodyBytes = 1 << 20

type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// ChatRequest is the POST /chat body.
type ChatRequest struct {
	Question  string `json:"question" validate:"required,notblank,max=8192"`
	SessionID string `json:"session_id" validate:"required,notblank,max=256"`
	BotToken  string `json:"bot_token" validate:"required,notblank,max=256"`
}

// ChatResponse is the POST /chat reply. Questions is always an array.
type ChatResponse struct {
	Answer    string   `json:"answer"`
	Questions []string `json:"questions"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// HealthResponse is the GET /health body.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// ChatService answers one chat request.
type ChatService interface {
	Chat(ctx context.Context, req chatuc.Request) (chatuc.Response, error)
}

// HealthService reports dependency health.
type HealthService interface {
	Check(ctx context.Context) healthuc.Report
}

// Server holds the HTTP handlers of the chat API.
type Server struct {
	chat          ChatService
	health        HealthService
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(chat ChatService, health HealthService, logger *zap.Logger) *Server {
	s := &Server{
		chat:   chat,
		health: health,
		logger: logger,
	}
	// Order matters: a deadline wraps the provider sentinel, so it is checked first.
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrAssistantUnavailable, http.StatusForbidden, CodeAssistantUnavailable),
		sentinelHandler(domain.ErrDirectoryUnavailable, http.StatusServiceUnavailable, CodeDirectoryUnavailable),
		sentinelHandler(domain.ErrCompletionQuotaExceeded, http.StatusTooManyRequests, CodeQuotaExceeded),
		sentinelHandler(context.DeadlineExceeded, http.StatusGatewayTimeout, CodeCompletionTimeout),
		sentinelHandler(context.Canceled, statusClientClosedRequest, CodeRequestCancelled),
		sentinelHandler(domain.ErrCompletionProviderError, http.StatusBadGateway, CodeCompletionFailed),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, CodeCompletionFailed),
		sentinelHandler(domain.ErrInvalidRequest, http.StatusBadRequest, CodeValidationFailed),
	}
	return s
}

// Chat handles POST /chat.
func (s *Server) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := validateRequest(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
		return
	}

	resp, err := s.chat.Chat(r.Context(), chatuc.Request{
		Question:  req.Question,
		SessionID: req.SessionID,
		Token:     req.BotToken,
	})
	if err != nil {
		s.handleDomainError(r.Context(), w, err)
		return
	}

	questions := resp.Questions
	if questions == nil {
		questions = []string{}
	}
	writeJSON(w, http.StatusOK, ChatResponse{Answer: resp.Answer, Questions: questions})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "completion timed out"
	case errors.Is(err, context.Canceled):
		return "request cancelled"
	}
	sentinels := []error{
		domain.ErrAssistantUnavailable,
		domain.ErrDirectoryUnavailable,
		domain.ErrCompletionQuotaExceeded,
		domain.ErrCompletionProviderError,
		domain.ErrEmbeddingProviderError,
		domain.ErrInvalidRequest,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(ctx context.Context, w http.ResponseWriter, err error) {
	log := logger.FromContextOr(ctx, s.logger)
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
