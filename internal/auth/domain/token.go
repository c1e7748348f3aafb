package domain

import "time"

// RefreshTokenRecord is the persisted side of a refresh token. The signed
// JWT carries the same token id (jti), family id and device hash; the record
// is what makes the token revocable.
type RefreshTokenRecord struct {
	TokenID   string
	FamilyID  string
	DeviceID  string
	UserID    string
	UserAgent string
	IPAddress string
	CreatedAt time.Time
	ExpiresAt time.Time
	Revoked   bool
	RevokedAt *time.Time
}

// RevokeFilter narrows a bulk revocation. Zero values mean no exclusion.
type RevokeFilter struct {
	ExceptFamilyID string
	ExceptDeviceID string
	OlderThan      time.Time
}

// Clock supplies the current time. Injected so expiry behaviour is testable
// without sleeping.
type Clock interface {
	Now() time.Time
}
