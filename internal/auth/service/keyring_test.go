package service

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	authconstant "github.com/michalprusek/spheroseg-sub010/pkg/constant"
)

func TestKeyring_StaticOnly(t *testing.T) {
	k := NewKeyring("static-secret", nil, "")

	key, kid := k.SigningKey()
	assert.Equal(t, []byte("static-secret"), key)
	assert.Empty(t, kid)

	key, matched := k.VerificationKey("anything")
	assert.Equal(t, []byte("static-secret"), key)
	assert.False(t, matched)
}

func TestKeyring_KidLookupWinsOverStatic(t *testing.T) {
	k := NewKeyring("static-secret", map[string]string{
		"k1": "first-key",
		"k2": "second-key",
	}, "k2")

	key, kid := k.SigningKey()
	assert.Equal(t, []byte("second-key"), key)
	assert.Equal(t, "k2", kid)

	key, matched := k.VerificationKey("k1")
	assert.True(t, matched)
	assert.Equal(t, []byte("first-key"), key)

	key, matched = k.VerificationKey("unknown")
	assert.False(t, matched)
	assert.Equal(t, []byte("static-secret"), key)

	key, matched = k.VerificationKey("")
	assert.False(t, matched)
	assert.Equal(t, []byte("static-secret"), key)
}

func TestKeyring_UnknownSigningKeyIDFallsBack(t *testing.T) {
	k := NewKeyring("static-secret", map[string]string{"k1": "first-key"}, "missing")

	key, kid := k.SigningKey()
	assert.Equal(t, []byte("static-secret"), key)
	assert.Empty(t, kid)
}

func TestDeviceHash_Properties(t *testing.T) {
	h1 := deviceHash("secret", "user-1", "Mozilla/5.0", "203.0.113.7", "fam-1")
	h2 := deviceHash("secret", "user-1", "Mozilla/5.0", "203.0.113.7", "fam-1")
	assert.Equal(t, h1, h2, "hash must be deterministic")
	assert.Len(t, h1, 32)

	// Any input change produces a different id.
	assert.NotEqual(t, h1, deviceHash("secret", "user-2", "Mozilla/5.0", "203.0.113.7", "fam-1"))
	assert.NotEqual(t, h1, deviceHash("secret", "user-1", "curl/8.0", "203.0.113.7", "fam-1"))
	assert.NotEqual(t, h1, deviceHash("secret", "user-1", "Mozilla/5.0", "198.51.100.1", "fam-1"))
	assert.NotEqual(t, h1, deviceHash("other", "user-1", "Mozilla/5.0", "203.0.113.7", "fam-1"))
}

func TestDeviceHash_FamilyScopeWhenNoIP(t *testing.T) {
	withFam := deviceHash("secret", "user-1", "Mozilla/5.0", "", "fam-1")
	sameFam := deviceHash("secret", "user-1", "Mozilla/5.0", "", "fam-1")
	otherFam := deviceHash("secret", "user-1", "Mozilla/5.0", "", "fam-2")

	assert.Equal(t, withFam, sameFam)
	assert.NotEqual(t, withFam, otherFam)
}

func TestTruncate_RuneBoundary(t *testing.T) {
	// A multibyte rune straddling the byte limit must not be split: the
	// stored user agent has to stay valid UTF-8.
	ua := strings.Repeat("a", authconstant.MaxUserAgentLength-1) + "čeština"

	got := truncate(ua, authconstant.MaxUserAgentLength)

	assert.True(t, utf8.ValidString(got))
	assert.LessOrEqual(t, len(got), authconstant.MaxUserAgentLength)
	assert.Equal(t, strings.Repeat("a", authconstant.MaxUserAgentLength-1), got)

	// Short strings and exact fits pass through untouched.
	assert.Equal(t, "curl/8.0", truncate("curl/8.0", authconstant.MaxUserAgentLength))
	exact := strings.Repeat("č", authconstant.MaxUserAgentLength/2)
	assert.Equal(t, exact, truncate(exact, authconstant.MaxUserAgentLength))
}

func TestDeviceHash_LongUserAgentBounded(t *testing.T) {
	long := make([]byte, 4096)
	for i := range long {
		long[i] = 'a'
	}

	h := deviceHash("secret", "user-1", string(long), "203.0.113.7", "fam-1")
	assert.Len(t, h, 32)
}
