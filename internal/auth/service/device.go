package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"unicode/utf8"

	authconstant "github.com/michalprusek/spheroseg-sub010/pkg/constant"
)

// deviceHash derives a bounded, one-way device id from the client context.
// Raw user agent and IP never need to leave the record; the hash alone is
// compared. When no IP is available the family id keeps the hash stable
// across rotations of the same lineage.
func deviceHash(secret, userID, userAgent, ipAddress, familyID string) string {
	scope := ipAddress
	if scope == "" {
		scope = familyID
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(userID))
	mac.Write([]byte{'\n'})
	mac.Write([]byte(truncate(userAgent, authconstant.MaxUserAgentLength)))
	mac.Write([]byte{'\n'})
	mac.Write([]byte(scope))

	sum := hex.EncodeToString(mac.Sum(nil))

	return sum[:authconstant.DeviceIDLength]
}

// truncate bounds s to max bytes without splitting a rune; the result has to
// stay valid UTF-8 because it is stored in a text column.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}

	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}

	return s[:cut]
}
