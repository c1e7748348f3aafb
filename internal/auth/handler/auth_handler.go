package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/michalprusek/spheroseg-sub010/internal/auth/domain"
	"github.com/michalprusek/spheroseg-sub010/internal/auth/dto"
	"github.com/michalprusek/spheroseg-sub010/internal/auth/service"
	autherror "github.com/michalprusek/spheroseg-sub010/internal/errors"
)

type AuthHandler struct {
	users    *service.UserService
	tokens   *service.TokenService
	revoker  *service.RevocationService
	log      logrus.FieldLogger
	validate *validator.Validate
}

func NewAuthHandler(users *service.UserService, tokens *service.TokenService, revoker *service.RevocationService, log logrus.FieldLogger) *AuthHandler {
	return &AuthHandler{
		users:    users,
		tokens:   tokens,
		revoker:  revoker,
		log:      log,
		validate: validator.New(),
	}
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var input dto.RegisterInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid input"})
	}
	if err := h.validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid input"})
	}

	user, err := h.users.Register(c.Context(), input)
	if err != nil {
		if errors.Is(err, autherror.ErrEmailAlreadyInUse) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "email already in use"})
		}
		h.log.WithError(err).Error("registration failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":    user.ID,
		"email": user.Email,
	})
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var input dto.LoginInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid input"})
	}
	if err := h.validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid input"})
	}

	input.IPAddress = c.IP()
	input.UserAgent = string(c.Request().Header.UserAgent())

	tokenPair, err := h.users.Login(c.Context(), input)
	if err != nil {
		if errors.Is(err, autherror.ErrInvalidCredentials) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid credentials"})
		}
		h.log.WithError(err).Error("login failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}

	return c.Status(fiber.StatusOK).JSON(tokenPair)
}

// Refresh rotates the presented refresh token. A revoked token is a replay
// signal: every token of the user is defensively revoked and the client is
// told to log in again.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var input dto.RefreshInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid input"})
	}
	if err := h.validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid input"})
	}

	input.IPAddress = c.IP()
	input.UserAgent = string(c.Request().Header.UserAgent())

	tokenPair, err := h.tokens.RotateRefreshToken(c.Context(), input.RefreshToken, service.RefreshTokenInput{
		UserAgent: input.UserAgent,
		IPAddress: input.IPAddress,
	})
	if err != nil {
		return h.refreshError(c, input.RefreshToken, err)
	}

	return c.Status(fiber.StatusOK).JSON(tokenPair)
}

func (h *AuthHandler) refreshError(c *fiber.Ctx, token string, err error) error {
	switch {
	case errors.Is(err, autherror.ErrRefreshTokenRevoked):
		// The token was already rotated or revoked and is being replayed.
		// Sweep the user's sessions before answering.
		if claims, decodeErr := h.tokens.DecodeRefreshClaims(token); decodeErr == nil {
			if _, revokeErr := h.revoker.RevokeAllUserTokens(c.Context(), claims.UserID, domain.RevokeFilter{}); revokeErr != nil {
				h.log.WithError(revokeErr).WithField("user_id", claims.UserID).
					Error("defensive revocation after replay failed")
			}
		}

		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "session no longer valid",
			"code":  "REAUTH_REQUIRED",
		})

	case errors.Is(err, autherror.ErrConcurrentRotation):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "refresh already in progress",
			"code":  "CONCURRENT_ROTATION",
		})

	case errors.Is(err, autherror.ErrTokenExpired):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "refresh token expired",
			"code":  "REAUTH_REQUIRED",
		})

	case errors.Is(err, autherror.ErrStorage):
		h.log.WithError(err).Error("refresh failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})

	default:
		// Malformed, invalid, mismatched or unknown tokens all collapse to a
		// generic 401; details stay in the logs.
		h.log.WithError(err).Debug("refresh token rejected")
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid refresh token"})
	}
}

// Logout revokes the lineage of the presented refresh token.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	var input dto.RefreshInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid input"})
	}

	claims, err := h.tokens.DecodeRefreshClaims(input.RefreshToken)
	if err != nil {
		// Nothing to revoke for a token that does not verify.
		return c.SendStatus(fiber.StatusNoContent)
	}

	if err := h.revoker.RevokeFamily(c.Context(), claims.FamilyID); err != nil {
		h.log.WithError(err).WithField("family_id", claims.FamilyID).Error("logout revocation failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// LogoutEverywhere bulk-revokes every refresh token of the authenticated
// user.
func (h *AuthHandler) LogoutEverywhere(c *fiber.Ctx) error {
	claims, ok := c.Locals(AccessClaimsKey).(*service.AccessTokenClaims)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	revoked, err := h.revoker.RevokeAllUserTokens(c.Context(), claims.UserID, domain.RevokeFilter{})
	if err != nil {
		h.log.WithError(err).WithField("user_id", claims.UserID).Error("logout everywhere failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"revoked": revoked})
}

// Sessions lists the caller's active refresh-token records.
func (h *AuthHandler) Sessions(c *fiber.Ctx) error {
	claims, ok := c.Locals(AccessClaimsKey).(*service.AccessTokenClaims)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	sessions, err := h.users.ListSessions(c.Context(), claims.UserID)
	if err != nil {
		h.log.WithError(err).WithField("user_id", claims.UserID).Error("listing sessions failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}

	return c.Status(fiber.StatusOK).JSON(sessions)
}
