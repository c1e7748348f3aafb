package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/michalprusek/spheroseg-sub010/internal/auth/service"
)

func RegisterRoutes(app *fiber.App, h *AuthHandler, tokens *service.TokenService, strictMode bool) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	v1 := app.Group("/api/v1")
	v1.Post("/register", h.Register)
	v1.Post("/login", h.Login)
	v1.Post("/refresh", h.Refresh)
	v1.Delete("/session", h.Logout)

	protected := v1.Group("", RequireAuth(tokens, strictMode))
	protected.Get("/sessions", h.Sessions)
	protected.Delete("/sessions", h.LogoutEverywhere)
}
