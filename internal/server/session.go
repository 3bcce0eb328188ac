package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"femcircle/internal/cache"
	"femcircle/internal/middleware"
	"femcircle/internal/models"

	"github.com/gofiber/fiber/v2"
)

const (
	localUserID   = "userID"
	localUsername = "username"
	localIsAdmin  = "isAdmin"
	localSession  = "session"
)

// AuthRequired rejects requests without a valid, unrevoked session whose
// member still exists and is not blocked.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := s.authenticate(c)
		if err != nil {
			return models.RespondWithError(c, models.StatusFor(err), err)
		}
		if user.IsBlocked {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("This account has been blocked"))
		}
		return c.Next()
	}
}

// OptionalSession attaches the member when a valid session is present and
// otherwise lets the request through anonymously.
func (s *Server) OptionalSession() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, err := s.authenticate(c); err != nil && models.StatusFor(err) >= 500 {
			return models.RespondWithError(c, fiber.StatusInternalServerError, err)
		}
		return c.Next()
	}
}

// AdminRequired returns middleware that rejects non-admin users with 403.
// Must be placed after AuthRequired so that the member is in locals.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if admin, _ := c.Locals(localIsAdmin).(bool); !admin {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Admin access required"))
		}
		return c.Next()
	}
}

// authenticate resolves the session token to a member and stores it in locals.
// Admin status and username are read from the store, not the token.
func (s *Server) authenticate(c *fiber.Ctx) (*models.User, error) {
	token, err := middleware.ExtractSessionToken(c, s.config.SessionCookieName)
	if err != nil {
		if errors.Is(err, middleware.ErrNoSessionToken) {
			return nil, models.NewUnauthorizedError("Authorization required")
		}
		return nil, models.NewUnauthorizedError("Invalid or expired token")
	}

	claims, err := middleware.ParseSessionToken(s.config.JWTSecret, token)
	if err != nil {
		return nil, models.NewUnauthorizedError("Invalid or expired token")
	}

	ctx := c.UserContext()
	revoked, err := cache.IsSessionRevoked(ctx, claims.JTI)
	if err != nil {
		// Redis trouble must not lock everyone out.
		middleware.Logger.WarnContext(ctx, "session revocation check failed", slog.String("error", err.Error()))
	}
	if revoked {
		return nil, models.NewUnauthorizedError("Token has been revoked")
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		if models.StatusFor(err) == fiber.StatusNotFound {
			return nil, models.NewUnauthorizedError("Session user no longer exists")
		}
		return nil, err
	}

	c.Locals(localUserID, user.ID)
	c.Locals(localUsername, user.Username)
	c.Locals(localIsAdmin, user.IsAdmin)
	c.Locals(localSession, claims)
	c.SetUserContext(context.WithValue(ctx, middleware.UserIDKey, user.ID))
	return user, nil
}

// actingUsername is the signed-in member's username, or "" when anonymous.
func actingUsername(c *fiber.Ctx) string {
	username, _ := c.Locals(localUsername).(string)
	return username
}

// startSession issues a session token for user and sets it as an HttpOnly cookie.
func (s *Server) startSession(c *fiber.Ctx, user *models.User) (string, error) {
	token, claims, err := middleware.IssueSessionToken(s.config.JWTSecret, middleware.SessionClaims{
		UserID:   user.ID,
		Username: user.Username,
		FullName: user.FullName,
		IsAdmin:  user.IsAdmin,
	}, s.config.SessionTTL())
	if err != nil {
		return "", err
	}

	c.Cookie(&fiber.Cookie{
		Name:     s.config.SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  claims.ExpiresAt,
		HTTPOnly: true,
		Secure:   s.config.SessionCookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return token, nil
}

func (s *Server) clearSession(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     s.config.SessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   s.config.SessionCookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}
