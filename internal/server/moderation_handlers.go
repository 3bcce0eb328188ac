package server

import (
	"femcircle/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetAdminDashboard handles GET /api/admin/dashboard
func (s *Server) GetAdminDashboard(c *fiber.Ctx) error {
	dash, err := s.moderation.GetDashboard(c.UserContext())
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(dash)
}

// GetAdminUsers handles GET /api/admin/users
func (s *Server) GetAdminUsers(c *fiber.Ctx) error {
	users, err := s.moderation.GetUsers(c.UserContext())
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(users)
}

// GetPendingListings handles GET /api/admin/listings/pending
func (s *Server) GetPendingListings(c *fiber.Ctx) error {
	listings, err := s.moderation.GetPendingListings(c.UserContext())
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(listings)
}

// ApproveListing handles POST /api/admin/listings/:id/approve
func (s *Server) ApproveListing(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	ok, err := s.moderation.ApproveListing(c.UserContext(), id)
	if err == nil && !ok {
		return models.RespondWithError(c, fiber.StatusNotFound, models.NewNotFoundError("Listing", id))
	}
	return respondOutcome(c, ok, err, "Listing approved")
}

// RejectListing handles POST /api/admin/listings/:id/reject
func (s *Server) RejectListing(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	ok, err := s.moderation.RejectListing(c.UserContext(), id)
	if err == nil && !ok {
		return models.RespondWithError(c, fiber.StatusNotFound, models.NewNotFoundError("Listing", id))
	}
	return respondOutcome(c, ok, err, "Listing rejected")
}

// ToggleUserVerification handles POST /api/admin/users/:id/toggle-verification
func (s *Server) ToggleUserVerification(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	ok, err := s.moderation.ToggleUserVerification(c.UserContext(), id)
	if err == nil && !ok {
		return models.RespondWithError(c, fiber.StatusNotFound, models.NewNotFoundError("User", id))
	}
	return respondOutcome(c, ok, err, "Verification toggled")
}

// ToggleUserBlocked handles POST /api/admin/users/:id/toggle-block
// Admins cannot block themselves; that answers 403. Unknown users answer 404.
func (s *Server) ToggleUserBlocked(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	adminID, _ := c.Locals(localUserID).(uint)
	ok, err := s.moderation.ToggleUserBlocked(c.UserContext(), id, adminID)
	if err == nil && !ok && id != adminID {
		return models.RespondWithError(c, fiber.StatusNotFound, models.NewNotFoundError("User", id))
	}
	return respondOutcome(c, ok, err, "Block toggled")
}
