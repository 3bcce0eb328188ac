package server

import (
	"log/slog"

	"femcircle/internal/cache"
	"femcircle/internal/middleware"
	"femcircle/internal/models"

	"github.com/gofiber/fiber/v2"
)

// Register handles POST /api/auth/register and signs the new member in.
func (s *Server) Register(c *fiber.Ctx) error {
	var req models.RegistrationInput
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.accounts.Register(c.UserContext(), req)
	if err != nil {
		return respondServiceError(c, err)
	}

	token, err := s.startSession(c, user)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"token": token,
		"user":  user,
	})
}

// Login handles POST /api/auth/login. The login field takes a username or email.
func (s *Server) Login(c *fiber.Ctx) error {
	var req models.SignInInput
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.accounts.SignIn(c.UserContext(), req)
	if err != nil {
		return respondServiceError(c, err)
	}

	token, err := s.startSession(c, user)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	return c.JSON(fiber.Map{
		"token": token,
		"user":  user,
	})
}

// Logout handles POST /api/auth/logout. The token is revoked until it expires.
func (s *Server) Logout(c *fiber.Ctx) error {
	ctx := c.UserContext()
	if claims, ok := c.Locals(localSession).(*middleware.SessionClaims); ok {
		if err := cache.RevokeSession(ctx, claims.JTI, claims.ExpiresAt); err != nil {
			middleware.Logger.WarnContext(ctx, "failed to revoke session", slog.String("error", err.Error()))
		}
	}
	s.clearSession(c)
	return c.JSON(fiber.Map{"message": "Signed out"})
}

// GetMe handles GET /api/auth/me
func (s *Server) GetMe(c *fiber.Ctx) error {
	userID, _ := c.Locals(localUserID).(uint)
	user, err := s.accounts.CurrentUser(c.UserContext(), userID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(user)
}
