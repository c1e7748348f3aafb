package errors

import (
	"errors"
)

// Verification and rotation failures are sentinel values so callers can
// branch with errors.Is instead of string matching.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailAlreadyInUse  = errors.New("email already in use")

	ErrTokenExpired     = errors.New("token expired")
	ErrTokenNotYetValid = errors.New("token not yet valid")
	ErrTokenInvalid     = errors.New("invalid token")
	ErrWrongTokenType   = errors.New("wrong token type")
	ErrTokenMalformed   = errors.New("malformed token")

	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	ErrRefreshTokenRevoked  = errors.New("refresh token revoked")
	ErrUserMismatch         = errors.New("token user mismatch")
	ErrFamilyMismatch       = errors.New("token family mismatch")
	ErrDeviceMismatch       = errors.New("device mismatch")
	ErrConcurrentRotation   = errors.New("refresh token already rotated")

	ErrStorage = errors.New("token storage failure")
)
