package service

//go:generate mockgen -destination=../../mocks/mock_refresh_token_store.go -package=mocks github.com/michalprusek/spheroseg-sub010/internal/auth/domain RefreshTokenStore,UserRepository,Clock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/michalprusek/spheroseg-sub010/config"
	"github.com/michalprusek/spheroseg-sub010/internal/auth/domain"
	"github.com/michalprusek/spheroseg-sub010/internal/auth/dto"
	autherror "github.com/michalprusek/spheroseg-sub010/internal/errors"
	authconstant "github.com/michalprusek/spheroseg-sub010/pkg/constant"
)

// AccessTokenClaims is the stateless access-token payload. The fingerprint
// is random per token and never persisted.
type AccessTokenClaims struct {
	jwt.RegisteredClaims
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	TokenType   string `json:"type"`
	Fingerprint string `json:"fingerprint,omitempty"`
	Version     int    `json:"version"`
}

// RefreshTokenClaims is the signed half of a refresh token; every claim here
// has a matching column on the persisted record.
type RefreshTokenClaims struct {
	jwt.RegisteredClaims
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	TokenType string `json:"type"`
	FamilyID  string `json:"fid"`
	DeviceID  string `json:"device"`
}

type TokenService struct {
	accessKeys  *Keyring
	refreshKeys *Keyring

	store domain.RefreshTokenStore
	clock domain.Clock
	log   logrus.FieldLogger

	accessTTL  time.Duration
	refreshTTL time.Duration

	deviceHashSecret   string
	maxTokensPerFamily int
	familySizeWarning  int
}

func NewTokenService(cfg *config.Config, store domain.RefreshTokenStore, clock domain.Clock, log logrus.FieldLogger) *TokenService {
	maxPerFamily := cfg.MaxTokensPerFamily
	if maxPerFamily <= 0 {
		maxPerFamily = authconstant.DefaultMaxTokensPerFamily
	}

	warning := cfg.FamilySizeWarning
	if warning <= 0 {
		warning = authconstant.DefaultFamilySizeWarning
	}

	return &TokenService{
		accessKeys:         NewKeyring(cfg.AccessTokenSecret, cfg.VerifyKeys, cfg.SigningKeyID),
		refreshKeys:        NewKeyring(cfg.RefreshTokenSecret, cfg.VerifyKeys, cfg.SigningKeyID),
		store:              store,
		clock:              clock,
		log:                log,
		accessTTL:          cfg.AccessTokenTTL(),
		refreshTTL:         cfg.RefreshTokenTTL(),
		deviceHashSecret:   cfg.DeviceHashSecret,
		maxTokensPerFamily: maxPerFamily,
		familySizeWarning:  warning,
	}
}

// IssueAccessToken mints a signed access token. Nothing is persisted: the
// token dies at its expiry and cannot be revoked earlier.
func (ts *TokenService) IssueAccessToken(userID, email string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = ts.accessTTL
	}

	fingerprint, err := randomHex(16)
	if err != nil {
		return "", fmt.Errorf("generate fingerprint: %w", err)
	}

	now := ts.clock.Now()
	claims := AccessTokenClaims{
		UserID:      userID,
		Email:       email,
		TokenType:   authconstant.TokenTypeAccess,
		Fingerprint: fingerprint,
		Version:     authconstant.AccessTokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    authconstant.TokenIssuer,
			Audience:  jwt.ClaimStrings{authconstant.TokenAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	return ts.sign(ts.accessKeys, claims)
}

// RefreshTokenInput carries the optional parts of refresh-token issuance.
// An empty FamilyID starts a fresh lineage, which is what login does.
type RefreshTokenInput struct {
	FamilyID  string
	UserAgent string
	IPAddress string
}

// IssueRefreshToken mints a signed refresh token and persists its record.
// Issuance is all-or-nothing: when the insert fails no token is returned, so
// a stateless refresh token without a backing record can never exist.
func (ts *TokenService) IssueRefreshToken(ctx context.Context, userID, email string, ttl time.Duration, in RefreshTokenInput) (string, *domain.RefreshTokenRecord, error) {
	if ttl <= 0 {
		ttl = ts.refreshTTL
	}

	tokenID := uuid.NewString()
	familyID := in.FamilyID
	if familyID == "" {
		familyID = uuid.NewString()
	}

	userAgent := truncate(in.UserAgent, authconstant.MaxUserAgentLength)
	ipAddress := truncate(in.IPAddress, authconstant.MaxIPLength)
	deviceID := deviceHash(ts.deviceHashSecret, userID, userAgent, ipAddress, familyID)

	now := ts.clock.Now()
	claims := RefreshTokenClaims{
		UserID:    userID,
		Email:     email,
		TokenType: authconstant.TokenTypeRefresh,
		FamilyID:  familyID,
		DeviceID:  deviceID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tokenID,
			Issuer:    authconstant.TokenIssuer,
			Audience:  jwt.ClaimStrings{authconstant.TokenAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := ts.sign(ts.refreshKeys, claims)
	if err != nil {
		return "", nil, err
	}

	record := &domain.RefreshTokenRecord{
		TokenID:   tokenID,
		FamilyID:  familyID,
		DeviceID:  deviceID,
		UserID:    userID,
		UserAgent: userAgent,
		IPAddress: ipAddress,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	if err := ts.store.Insert(ctx, record); err != nil {
		return "", nil, fmt.Errorf("%w: insert refresh token: %v", autherror.ErrStorage, err)
	}

	return signed, record, nil
}

// CreateTokenResponse composes the access/refresh pair returned after a
// successful login or rotation.
func (ts *TokenService) CreateTokenResponse(ctx context.Context, userID, email string, in RefreshTokenInput) (*dto.TokenResponse, error) {
	accessToken, err := ts.IssueAccessToken(userID, email, ts.accessTTL)
	if err != nil {
		return nil, err
	}

	refreshToken, _, err := ts.IssueRefreshToken(ctx, userID, email, ts.refreshTTL, in)
	if err != nil {
		return nil, err
	}

	return &dto.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(ts.accessTTL.Seconds()),
		TokenType:    authconstant.DefaultTokenType,
	}, nil
}

func (ts *TokenService) AccessTokenTTL() time.Duration {
	return ts.accessTTL
}

func (ts *TokenService) RefreshTokenTTL() time.Duration {
	return ts.refreshTTL
}

func (ts *TokenService) sign(keys *Keyring, claims jwt.Claims) (string, error) {
	key, kid := keys.SigningKey()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	if kid != "" {
		token.Header["kid"] = kid
	}

	signed, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signed, nil
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}

	return hex.EncodeToString(buf), nil
}
