package dto

import "time"

type SessionOutput struct {
	TokenID   string    `json:"token_id"`
	FamilyID  string    `json:"family_id"`
	DeviceID  string    `json:"device_id"`
	IPAddress string    `json:"ip_address"`
	UserAgent string    `json:"user_agent"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
