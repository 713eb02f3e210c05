// Package health aggregates dependency checks for the health endpoint.
package health

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/ragchat/internal/logger"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
	// Unhealthy indicates every component failed.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Component names reported by Check.
const (
	ComponentDatabase   = "database"
	ComponentCompletion = "completion"
	ComponentEmbedding  = "embedding"
)

const defaultCheckTimeout = 5 * time.Second

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	db         Pinger
	completion Prober
	embedding  Prober
	timeout    time.Duration
}

// New creates a Service. completion and embedding can be nil.
func New(db Pinger, completion, embedding Prober) *Service {
	return &Service{db: db, completion: completion, embedding: embedding, timeout: defaultCheckTimeout}
}

// Check probes all components concurrently, each bounded by its own timeout,
// so one slow provider does not delay the others.
func (s *Service) Check(ctx context.Context) Report {
	probes := map[string]func(context.Context) error{ComponentDatabase: s.db.Ping}
	if s.completion != nil {
		probes[ComponentCompletion] = s.completion.HealthCheck
	}
	if s.embedding != nil {
		probes[ComponentEmbedding] = s.embedding.HealthCheck
	}

	var (
		mu     sync.Mutex
		g      errgroup.Group
		checks = make(map[string]CheckResult, len(probes))
	)
	for name, probe := range probes {
		g.Go(func() error {
			res := s.run(ctx, name, probe)
			mu.Lock()
			checks[name] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, v := range checks {
		if v == CheckError {
			failed++
		}
	}

	status := Healthy
	switch {
	case failed == len(checks):
		status = Unhealthy
	case failed > 0:
		status = Degraded
	}

	return Report{Status: status, Checks: checks}
}

func (s *Service) run(ctx context.Context, name string, check func(context.Context) error) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := check(ctx); err != nil {
		logger.FromContext(ctx).Warn("Health check failed", zap.String("component", name), zap.Error(err))
		return CheckError
	}
	return CheckOK
}
