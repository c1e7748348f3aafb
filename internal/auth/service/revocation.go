package service

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/michalprusek/spheroseg-sub010/internal/auth/domain"
	autherror "github.com/michalprusek/spheroseg-sub010/internal/errors"
)

// RevocationService handles bulk revocation: logout everywhere, password
// change, and the defensive sweep after a detected replay.
type RevocationService struct {
	store domain.RefreshTokenStore
	clock domain.Clock
	log   logrus.FieldLogger
}

func NewRevocationService(store domain.RefreshTokenStore, clock domain.Clock, log logrus.FieldLogger) *RevocationService {
	return &RevocationService{store: store, clock: clock, log: log}
}

// RevokeAllUserTokens revokes every active refresh token of a user in a
// single bulk update, minus the exclusions in the filter.
func (s *RevocationService) RevokeAllUserTokens(ctx context.Context, userID string, filter domain.RevokeFilter) (int64, error) {
	now := s.clock.Now()

	revoked, err := s.store.RevokeAllForUser(ctx, userID, filter, now)
	if err != nil {
		return 0, fmt.Errorf("%w: revoke user tokens: %v", autherror.ErrStorage, err)
	}

	s.log.WithFields(logrus.Fields{
		"user_id": userID,
		"revoked": revoked,
	}).Info("revoked refresh tokens for user")

	return revoked, nil
}

// RevokeFamily revokes a whole lineage, typically in response to a replayed
// token.
func (s *RevocationService) RevokeFamily(ctx context.Context, familyID string) error {
	if err := s.store.RevokeFamily(ctx, familyID, s.clock.Now()); err != nil {
		return fmt.Errorf("%w: revoke family: %v", autherror.ErrStorage, err)
	}

	return nil
}
