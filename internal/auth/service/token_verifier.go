package service

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	autherror "github.com/michalprusek/spheroseg-sub010/internal/errors"
	authconstant "github.com/michalprusek/spheroseg-sub010/pkg/constant"
)

// VerifyOptions tunes access-token verification. ValidateFingerprint is the
// strict structural check: tokens minted before the fingerprint claim
// existed are rejected.
type VerifyOptions struct {
	ValidateFingerprint bool
}

// VerifyAccessToken checks signature, issuer, audience and expiry of an
// access token. It never touches the store; access tokens are not
// individually revocable.
func (ts *TokenService) VerifyAccessToken(tokenString string, opts VerifyOptions) (*AccessTokenClaims, error) {
	claims := &AccessTokenClaims{}
	if err := ts.parse(tokenString, ts.accessKeys, claims); err != nil {
		return nil, err
	}

	if claims.TokenType != authconstant.TokenTypeAccess {
		return nil, autherror.ErrWrongTokenType
	}

	if opts.ValidateFingerprint && claims.Fingerprint == "" {
		return nil, fmt.Errorf("%w: missing fingerprint claim", autherror.ErrTokenMalformed)
	}

	return claims, nil
}

// DecodeRefreshClaims runs only the stateless half of refresh verification.
// The HTTP layer uses it when it needs the claimed identity of a token whose
// record-side verification already failed, e.g. to sweep sessions after a
// replay.
func (ts *TokenService) DecodeRefreshClaims(tokenString string) (*RefreshTokenClaims, error) {
	return ts.verifyRefreshSignature(tokenString)
}

// verifyRefreshSignature does the stateless part of refresh verification:
// signature, issuer, audience, expiry, type, and required custom claims.
func (ts *TokenService) verifyRefreshSignature(tokenString string) (*RefreshTokenClaims, error) {
	claims := &RefreshTokenClaims{}
	if err := ts.parse(tokenString, ts.refreshKeys, claims); err != nil {
		return nil, err
	}

	if claims.TokenType != authconstant.TokenTypeRefresh {
		return nil, autherror.ErrWrongTokenType
	}

	if claims.ID == "" || claims.FamilyID == "" || claims.DeviceID == "" {
		return nil, fmt.Errorf("%w: missing jti, fid or device claim", autherror.ErrTokenMalformed)
	}

	return claims, nil
}

func (ts *TokenService) parse(tokenString string, keys *Keyring, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(token *jwt.Token) (interface{}, error) {
			kid, _ := token.Header["kid"].(string)
			key, _ := keys.VerificationKey(kid)
			return key, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(authconstant.TokenIssuer),
		jwt.WithAudience(authconstant.TokenAudience),
		jwt.WithTimeFunc(ts.clock.Now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return mapJWTError(err)
	}

	if !token.Valid {
		return autherror.ErrTokenInvalid
	}

	return nil
}

// mapJWTError collapses library failures into the three stateless kinds the
// callers branch on.
func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return autherror.ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return autherror.ErrTokenNotYetValid
	default:
		return fmt.Errorf("%w: %v", autherror.ErrTokenInvalid, err)
	}
}
