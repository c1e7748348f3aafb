package service

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/michalprusek/spheroseg-sub010/internal/auth/domain"
	"github.com/michalprusek/spheroseg-sub010/internal/auth/dto"
	autherror "github.com/michalprusek/spheroseg-sub010/internal/errors"
)

// VerifiedRefresh pairs the verified claims of a refresh token with its
// store record.
type VerifiedRefresh struct {
	Claims *RefreshTokenClaims
	Record *domain.RefreshTokenRecord
}

// RefreshVerifyOptions carries the client context for strict device
// checking. StrictDeviceCheck off means the hash is recorded but not
// enforced, which tolerates clients behind rotating proxies.
type RefreshVerifyOptions struct {
	UserAgent         string
	IPAddress         string
	StrictDeviceCheck bool
}

// VerifyRefreshToken validates a refresh token end to end: signature and
// claims first, then the persisted record. A token that verifies
// cryptographically but hits a revoked record is the replay signal callers
// must treat as theft.
func (ts *TokenService) VerifyRefreshToken(ctx context.Context, tokenString string, opts RefreshVerifyOptions) (*VerifiedRefresh, error) {
	claims, err := ts.verifyRefreshSignature(tokenString)
	if err != nil {
		return nil, err
	}

	now := ts.clock.Now()

	// The store is keyed by token id, so the jti claim is the lookup key.
	record, err := ts.store.FindActiveByTokenID(ctx, claims.ID, now)
	if err != nil {
		return nil, fmt.Errorf("%w: find refresh token: %v", autherror.ErrStorage, err)
	}
	if record == nil {
		return nil, autherror.ErrRefreshTokenNotFound
	}

	if record.Revoked {
		return nil, autherror.ErrRefreshTokenRevoked
	}

	if record.UserID != claims.UserID {
		return nil, autherror.ErrUserMismatch
	}

	if record.FamilyID != claims.FamilyID {
		return nil, autherror.ErrFamilyMismatch
	}

	if opts.StrictDeviceCheck {
		expected := deviceHash(ts.deviceHashSecret, claims.UserID, opts.UserAgent, opts.IPAddress, record.FamilyID)
		if expected != claims.DeviceID && expected != record.DeviceID {
			return nil, autherror.ErrDeviceMismatch
		}
	}

	active, err := ts.store.CountActiveInFamily(ctx, record.FamilyID, now)
	if err != nil {
		return nil, fmt.Errorf("%w: count family: %v", autherror.ErrStorage, err)
	}
	if active > ts.familySizeWarning {
		ts.log.WithFields(logrus.Fields{
			"user_id":   record.UserID,
			"family_id": record.FamilyID,
			"active":    active,
		}).Warn("refresh token family unusually large")
	}

	return &VerifiedRefresh{Claims: claims, Record: record}, nil
}

// RotateRefreshToken exchanges a refresh token for a new pair. The old
// record is revoked through a compare-and-swap, so of two concurrent calls
// presenting the same token exactly one wins; the loser gets
// ErrConcurrentRotation and must not retry with the same token.
//
// When the family has accumulated too many active tokens the lineage is
// treated as stolen: the whole family is revoked and the new token starts a
// fresh one.
func (ts *TokenService) RotateRefreshToken(ctx context.Context, oldToken string, meta RefreshTokenInput) (*dto.TokenResponse, error) {
	verified, err := ts.VerifyRefreshToken(ctx, oldToken, RefreshVerifyOptions{
		UserAgent: meta.UserAgent,
		IPAddress: meta.IPAddress,
	})
	if err != nil {
		return nil, err
	}

	old := verified.Record
	now := ts.clock.Now()

	won, err := ts.store.ConditionalRevoke(ctx, old.TokenID, now)
	if err != nil {
		return nil, fmt.Errorf("%w: revoke old token: %v", autherror.ErrStorage, err)
	}
	if !won {
		return nil, autherror.ErrConcurrentRotation
	}

	familyID := old.FamilyID

	active, err := ts.store.CountActiveInFamily(ctx, old.FamilyID, now)
	if err != nil {
		return nil, fmt.Errorf("%w: count family: %v", autherror.ErrStorage, err)
	}
	if active >= ts.maxTokensPerFamily {
		ts.log.WithFields(logrus.Fields{
			"user_id":   old.UserID,
			"family_id": old.FamilyID,
			"active":    active,
		}).Warn("refresh token family over limit, revoking lineage")

		if err := ts.store.RevokeFamily(ctx, old.FamilyID, now); err != nil {
			return nil, fmt.Errorf("%w: revoke family: %v", autherror.ErrStorage, err)
		}

		// Fresh lineage for the replacement token.
		familyID = ""
	}

	return ts.CreateTokenResponse(ctx, verified.Claims.UserID, verified.Claims.Email, RefreshTokenInput{
		FamilyID:  familyID,
		UserAgent: meta.UserAgent,
		IPAddress: meta.IPAddress,
	})
}
