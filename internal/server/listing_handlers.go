package server

import (
	"strconv"

	"femcircle/internal/models"
	"femcircle/internal/validation"

	"github.com/gofiber/fiber/v2"
)

const defaultSearchLimit = 24

// SearchListings handles GET /api/listings
// Query: q, category, type, min_price, max_price, sort, limit, offset.
func (s *Server) SearchListings(c *fiber.Ctx) error {
	search := models.ListingSearch{
		Query:    c.Query("q"),
		Category: c.Query("category"),
		Sort:     models.ParseListingSort(c.Query("sort")),
		Limit:    c.QueryInt("limit", defaultSearchLimit),
		Offset:   c.QueryInt("offset", 0),
	}
	if raw := c.Query("type"); raw != "" {
		t, ok := models.ParseListingType(raw)
		if !ok {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("type must be Sell, Exchange or Donate"))
		}
		search.ListingType = &t
	}

	var err error
	if search.MinPrice, err = queryFloat(c, "min_price"); err != nil {
		return nil
	}
	if search.MaxPrice, err = queryFloat(c, "max_price"); err != nil {
		return nil
	}
	if search.Limit == 0 {
		search.Limit = defaultSearchLimit
	}
	if search.Limit > validation.MaxSearchLimit {
		search.Limit = validation.MaxSearchLimit
	}

	page, err := s.listings.Search(c.UserContext(), search)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(page)
}

// queryFloat parses an optional numeric query parameter, writing a 400 on
// malformed input.
func queryFloat(c *fiber.Ctx, name string) (*float64, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+name))
		return nil, errResponseWritten
	}
	return &v, nil
}

// GetListing handles GET /api/listings/:id
func (s *Server) GetListing(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	details, found, err := s.listings.GetDetails(c.UserContext(), id)
	if err != nil {
		return respondServiceError(c, err)
	}
	if !found {
		return models.RespondWithError(c, fiber.StatusNotFound, models.NewNotFoundError("Listing", id))
	}
	return c.JSON(details)
}

// CreateListing handles POST /api/listings
func (s *Server) CreateListing(c *fiber.Ctx) error {
	var req models.ListingInput
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	product, err := s.listings.Create(c.UserContext(), req, actingUsername(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(product)
}

// GetListingForEdit handles GET /api/listings/:id/edit
func (s *Server) GetListingForEdit(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	product, ok, err := s.listings.GetForEdit(c.UserContext(), id, actingUsername(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	if !ok {
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewForbiddenError("Operation not permitted"))
	}
	return c.JSON(product)
}

// UpdateListing handles PUT /api/listings/:id
func (s *Server) UpdateListing(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req models.ListingInput
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	ok, err := s.listings.Update(c.UserContext(), id, req, actingUsername(c))
	return respondOutcome(c, ok, err, "Listing updated")
}

// DeleteListing handles DELETE /api/listings/:id
func (s *Server) DeleteListing(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	ok, err := s.listings.Delete(c.UserContext(), id, actingUsername(c))
	return respondOutcome(c, ok, err, "Listing deleted")
}

// BookListing handles POST /api/listings/:id/book
func (s *Server) BookListing(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	ok, err := s.listings.Book(c.UserContext(), id, actingUsername(c))
	return respondOutcome(c, ok, err, "Listing booked")
}

// ApproveBooking handles POST /api/listings/:id/booking/approve
func (s *Server) ApproveBooking(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	ok, err := s.listings.ApproveBooking(c.UserContext(), id, actingUsername(c))
	return respondOutcome(c, ok, err, "Booking approved")
}

// RejectBooking handles POST /api/listings/:id/booking/reject
func (s *Server) RejectBooking(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	ok, err := s.listings.RejectBooking(c.UserContext(), id, actingUsername(c))
	return respondOutcome(c, ok, err, "Booking rejected")
}

// UndoBooking handles POST /api/listings/:id/booking/undo
func (s *Server) UndoBooking(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	ok, err := s.listings.UndoBooking(c.UserContext(), id, actingUsername(c))
	return respondOutcome(c, ok, err, "Sale undone")
}

// GetMyActivity handles GET /api/me/activity
func (s *Server) GetMyActivity(c *fiber.Ctx) error {
	dash, found, err := s.listings.GetMyActivity(c.UserContext(), actingUsername(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	if !found {
		return models.RespondWithError(c, fiber.StatusNotFound,
			models.NewNotFoundError("User", actingUsername(c)))
	}
	return c.JSON(dash)
}
