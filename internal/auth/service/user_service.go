package service

//go:generate mockgen -destination=../../mocks/mock_token_issuer.go -package=mocks github.com/michalprusek/spheroseg-sub010/internal/auth/service TokenIssuer

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/michalprusek/spheroseg-sub010/internal/auth/domain"
	"github.com/michalprusek/spheroseg-sub010/internal/auth/dto"
	autherror "github.com/michalprusek/spheroseg-sub010/internal/errors"
)

// TokenIssuer is the slice of TokenService the login flow needs.
type TokenIssuer interface {
	CreateTokenResponse(ctx context.Context, userID, email string, in RefreshTokenInput) (*dto.TokenResponse, error)
}

type UserService struct {
	repo   domain.UserRepository
	tokens TokenIssuer
	store  domain.RefreshTokenStore
	clock  domain.Clock
}

func NewUserService(repo domain.UserRepository, tokens TokenIssuer, store domain.RefreshTokenStore, clock domain.Clock) *UserService {
	return &UserService{repo: repo, tokens: tokens, store: store, clock: clock}
}

func (s *UserService) Register(ctx context.Context, input dto.RegisterInput) (*domain.User, error) {
	existing, err := s.repo.GetByEmail(ctx, input.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, autherror.ErrEmailAlreadyInUse
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        input.Email,
		PasswordHash: string(hashed),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// Login verifies credentials and, on success, issues a token pair starting a
// fresh refresh-token family for this client.
func (s *UserService) Login(ctx context.Context, input dto.LoginInput) (*dto.TokenResponse, error) {
	user, err := s.repo.GetByEmail(ctx, input.Email)
	if err != nil {
		return nil, err
	}

	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)) != nil {
		return nil, autherror.ErrInvalidCredentials
	}

	return s.tokens.CreateTokenResponse(ctx, user.ID, user.Email, RefreshTokenInput{
		UserAgent: input.UserAgent,
		IPAddress: input.IPAddress,
	})
}

// ListSessions returns the user's active refresh-token records, one per
// logged-in client under normal rotation.
func (s *UserService) ListSessions(ctx context.Context, userID string) ([]dto.SessionOutput, error) {
	records, err := s.store.ListActiveForUser(ctx, userID, s.clock.Now())
	if err != nil {
		return nil, err
	}

	sessions := make([]dto.SessionOutput, 0, len(records))
	for _, rec := range records {
		sessions = append(sessions, dto.SessionOutput{
			TokenID:   rec.TokenID,
			FamilyID:  rec.FamilyID,
			DeviceID:  rec.DeviceID,
			IPAddress: rec.IPAddress,
			UserAgent: rec.UserAgent,
			CreatedAt: rec.CreatedAt,
			ExpiresAt: rec.ExpiresAt,
		})
	}

	return sessions, nil
}
