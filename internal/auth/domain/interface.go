package domain

import (
	"context"
	"time"
)

type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (*User, error)
	Create(ctx context.Context, user *User) error
}

// RefreshTokenStore is the persistent table of refresh-token records.
//
// ConditionalRevoke is the race-safe primitive behind rotation: it revokes
// the record only if it is still active and reports whether this call did
// the revoking. Two concurrent rotations of one token see exactly one true.
type RefreshTokenStore interface {
	Insert(ctx context.Context, rec *RefreshTokenRecord) error
	FindActiveByTokenID(ctx context.Context, tokenID string, now time.Time) (*RefreshTokenRecord, error)
	ConditionalRevoke(ctx context.Context, tokenID string, now time.Time) (bool, error)
	RevokeFamily(ctx context.Context, familyID string, now time.Time) error
	RevokeAllForUser(ctx context.Context, userID string, filter RevokeFilter, now time.Time) (int64, error)
	CountActiveInFamily(ctx context.Context, familyID string, now time.Time) (int, error)
	ListActiveForUser(ctx context.Context, userID string, now time.Time) ([]RefreshTokenRecord, error)
	DeleteExpiredOrRevoked(ctx context.Context, olderThan time.Time, limit int) (int64, error)
}
