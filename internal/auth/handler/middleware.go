package handler

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/michalprusek/spheroseg-sub010/internal/auth/service"
	autherror "github.com/michalprusek/spheroseg-sub010/internal/errors"
)

// AccessClaimsKey is where RequireAuth stores the verified access-token
// claims on the request context.
const AccessClaimsKey = "access_claims"

// RequireAuth verifies the Bearer access token on every request. An expired
// token gets a machine-readable code so clients know to call refresh; every
// other failure is a generic 401.
func RequireAuth(tokens *service.TokenService, strict bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing access token"})
		}

		claims, err := tokens.VerifyAccessToken(token, service.VerifyOptions{ValidateFingerprint: strict})
		if err != nil {
			if errors.Is(err, autherror.ErrTokenExpired) {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "access token expired",
					"code":  "TOKEN_EXPIRED",
				})
			}

			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
		}

		c.Locals(AccessClaimsKey, claims)

		return c.Next()
	}
}
