// Package memory keeps a bounded, per-session conversation history.
package memory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragchat/internal/domain"
	"github.com/kailas-cloud/ragchat/internal/domain/conversation"
	"github.com/kailas-cloud/ragchat/internal/logger"
	"github.com/kailas-cloud/ragchat/internal/metrics"
)

// Service is the conversation memory. Operations on one session are serialized in-process.
type Service struct {
	repo      Repository
	directory Directory
	maxTurns  int
	ttl       time.Duration
	locks     stripedLock
	now       func() time.Time
}

// New creates a memory service. maxTurns <= 0 uses conversation.DefaultMaxTurns;
// ttl 0 keeps sessions until purged. directory may be nil when PurgeOrphans is unused.
func New(repo Repository, directory Directory, maxTurns int, ttl time.Duration) *Service {
	if maxTurns <= 0 {
		maxTurns = conversation.DefaultMaxTurns
	}
	return &Service{
		repo:      repo,
		directory: directory,
		maxTurns:  maxTurns,
		ttl:       ttl,
		now:       time.Now,
	}
}

// MaxTurns returns the per-session cap.
func (s *Service) MaxTurns() int { return s.maxTurns }

// Read returns the session turns in insertion order.
func (s *Service) Read(ctx context.Context, sessionID string) ([]conversation.Turn, error) {
	unlock := s.locks.lock(sessionID)
	defer unlock()

	turns, err := s.repo.Turns(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	return turns, nil
}

// Session returns the turns together with the owning tenant and creation time.
func (s *Service) Session(ctx context.Context, sessionID string) (conversation.History, error) {
	unlock := s.locks.lock(sessionID)
	defer unlock()

	h, err := s.repo.History(ctx, sessionID)
	if err != nil {
		return conversation.History{}, fmt.Errorf("read session: %w", err)
	}
	return h, nil
}

// Append stores a new turn after evicting the oldest ones, so the session never exceeds the cap.
func (s *Service) Append(ctx context.Context, sessionID, tenantID, question, answer string) error {
	unlock := s.locks.lock(sessionID)
	defer unlock()

	if err := s.enforceCap(ctx, sessionID); err != nil {
		return err
	}

	turn := conversation.Turn{
		Question:  question,
		Answer:    answer,
		Timestamp: s.now().UTC(),
	}
	if err := s.repo.Append(ctx, sessionID, tenantID, turn); err != nil {
		return fmt.Errorf("append turn: %w", err)
	}

	if s.ttl > 0 {
		if err := s.repo.Touch(ctx, sessionID, s.ttl); err != nil {
			return fmt.Errorf("refresh ttl: %w", err)
		}
	}
	return nil
}

// EnforceCap evicts the oldest turns until at most maxTurns-1 remain, leaving room for one append.
func (s *Service) EnforceCap(ctx context.Context, sessionID string) error {
	unlock := s.locks.lock(sessionID)
	defer unlock()

	return s.enforceCap(ctx, sessionID)
}

func (s *Service) enforceCap(ctx context.Context, sessionID string) error {
	keep := s.maxTurns - 1
	n, err := s.repo.Len(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("count turns: %w", err)
	}
	if n <= keep {
		return nil
	}
	if err := s.repo.KeepNewest(ctx, sessionID, keep); err != nil {
		return fmt.Errorf("evict turns: %w", err)
	}
	logger.FromContext(ctx).Debug("Evicted oldest turns",
		zap.String("session_id", sessionID),
		zap.Int("evicted", n-keep),
	)
	return nil
}

// PurgeOrphans deletes sessions whose tenant the directory no longer knows.
// Each tenant is resolved once per run. Directory failures skip the session.
func (s *Service) PurgeOrphans(ctx context.Context) (int, error) {
	if s.directory == nil {
		return 0, errors.New("purge orphans: no directory configured")
	}
	log := logger.FromContext(ctx)

	sessions, err := s.repo.Sessions(ctx)
	if err != nil {
		metrics.MemoryErrorsTotal.WithLabelValues("purge").Inc()
		return 0, fmt.Errorf("list sessions: %w", err)
	}

	orphan := make(map[string]bool)
	removed := 0

	for _, sessionID := range sessions {
		if err := ctx.Err(); err != nil {
			return removed, fmt.Errorf("purge interrupted: %w", err)
		}

		tenantID, err := s.repo.Tenant(ctx, sessionID)
		if err != nil {
			log.Warn("Skipped session: tenant lookup failed", zap.String("session_id", sessionID), zap.Error(err))
			continue
		}

		gone, known := orphan[tenantID]
		if !known {
			gone, err = s.isOrphan(ctx, tenantID)
			if err != nil {
				log.Warn("Skipped session: directory unavailable",
					zap.String("session_id", sessionID),
					zap.String("tenant_id", tenantID),
					zap.Error(err),
				)
				continue
			}
			orphan[tenantID] = gone
		}
		if !gone {
			continue
		}

		if err := s.deleteSession(ctx, sessionID); err != nil {
			metrics.MemoryErrorsTotal.WithLabelValues("purge").Inc()
			log.Warn("Failed to delete orphaned session", zap.String("session_id", sessionID), zap.Error(err))
			continue
		}
		removed++
		metrics.MemoryOrphansPurgedTotal.Inc()
	}

	log.Info("Orphaned sessions purged", zap.Int("scanned", len(sessions)), zap.Int("removed", removed))
	return removed, nil
}

// isOrphan reports whether a tenant is definitively gone. Other directory errors are returned.
func (s *Service) isOrphan(ctx context.Context, tenantID string) (bool, error) {
	if tenantID == "" {
		return true, nil
	}
	_, err := s.directory.Resolve(ctx, tenantID)
	switch {
	case err == nil:
		return false, nil
	case errors.Is(err, domain.ErrAssistantUnavailable):
		return true, nil
	default:
		return false, err
	}
}

func (s *Service) deleteSession(ctx context.Context, sessionID string) error {
	unlock := s.locks.lock(sessionID)
	defer unlock()

	if err := s.repo.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
