package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/michalprusek/spheroseg-sub010/internal/auth/domain"
	autherror "github.com/michalprusek/spheroseg-sub010/internal/errors"
)

// CleanupService deletes refresh-token rows that are already terminal
// (expired, or revoked) and older than the grace window. Active rows are
// never touched, whatever the batch limit.
type CleanupService struct {
	store domain.RefreshTokenStore
	clock domain.Clock
	log   logrus.FieldLogger
	grace time.Duration
	limit int
}

func NewCleanupService(store domain.RefreshTokenStore, clock domain.Clock, log logrus.FieldLogger, grace time.Duration, limit int) *CleanupService {
	return &CleanupService{store: store, clock: clock, log: log, grace: grace, limit: limit}
}

// CleanupExpiredTokens removes one bounded batch and returns the count.
// Meant to be invoked periodically by a scheduler.
func (s *CleanupService) CleanupExpiredTokens(ctx context.Context) (int64, error) {
	cutoff := s.clock.Now().Add(-s.grace)

	deleted, err := s.store.DeleteExpiredOrRevoked(ctx, cutoff, s.limit)
	if err != nil {
		return 0, fmt.Errorf("%w: cleanup refresh tokens: %v", autherror.ErrStorage, err)
	}

	if deleted > 0 {
		s.log.WithFields(logrus.Fields{"deleted": deleted}).Info("cleaned up terminal refresh tokens")
	}

	return deleted, nil
}

// Run blocks, invoking cleanup on the given interval until the context is
// cancelled.
func (s *CleanupService) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.CleanupExpiredTokens(ctx); err != nil {
				s.log.WithError(err).Error("refresh token cleanup failed")
			}
		}
	}
}
