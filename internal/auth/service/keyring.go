package service

// Keyring resolves HMAC signing and verification keys. Verification walks an
// ordered chain of resolvers: a kid-indexed lookup first, then the static
// secret. The first resolver that produces a key wins, so a token carrying
// an unknown or empty kid still verifies against the static secret.
type Keyring struct {
	static       []byte
	signingKeyID string
	resolvers    []keyResolver
}

type keyResolver func(kid string) ([]byte, bool)

func NewKeyring(staticSecret string, verifyKeys map[string]string, signingKeyID string) *Keyring {
	k := &Keyring{
		static: []byte(staticSecret),
	}

	indexed := make(map[string][]byte, len(verifyKeys))
	for kid, secret := range verifyKeys {
		indexed[kid] = []byte(secret)
	}

	if _, ok := indexed[signingKeyID]; ok {
		k.signingKeyID = signingKeyID
	}

	k.resolvers = []keyResolver{
		func(kid string) ([]byte, bool) {
			if kid == "" {
				return nil, false
			}
			key, ok := indexed[kid]
			return key, ok
		},
		func(string) ([]byte, bool) {
			return k.static, true
		},
	}

	return k
}

// SigningKey returns the preferred signing key and its kid. The kid is empty
// when signing with the static secret.
func (k *Keyring) SigningKey() ([]byte, string) {
	if k.signingKeyID == "" {
		return k.static, ""
	}

	key, _ := k.VerificationKey(k.signingKeyID)
	return key, k.signingKeyID
}

// VerificationKey resolves the key for the given kid header value. The
// boolean reports whether a kid-specific key matched; the static fallback
// always yields a key.
func (k *Keyring) VerificationKey(kid string) ([]byte, bool) {
	for i, resolve := range k.resolvers {
		if key, ok := resolve(kid); ok {
			return key, i == 0
		}
	}

	return k.static, false
}
