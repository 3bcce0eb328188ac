package validation

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"femcircle/internal/models"
)

// Listing bounds.
const (
	MaxPrice    = 1_000_000
	MinQuantity = 1
	MaxQuantity = 500
	// MaxSearchLimit caps a single page of search results.
	MaxSearchLimit = 100
)

// NormalizeListing trims text fields and forces a Donate price to zero.
func NormalizeListing(in models.ListingInput) models.ListingInput {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Category = strings.TrimSpace(in.Category)
	in.ItemCondition = strings.TrimSpace(in.ItemCondition)
	in.City = strings.TrimSpace(in.City)
	in.ImageURL = trimOptional(in.ImageURL)
	if t, ok := models.ParseListingType(string(in.ListingType)); ok {
		in.ListingType = t
	}
	if in.ListingType == models.ListingTypeDonate {
		zero := 0.0
		in.Price = &zero
	}
	return in
}

// ValidateListing checks a listing form. A Donate listing with a positive
// price is rejected here; NormalizeListing zeroes it instead.
func ValidateListing(in models.ListingInput) error {
	if err := requiredText("title", in.Title, 120); err != nil {
		return err
	}
	if err := requiredText("description", in.Description, 3000); err != nil {
		return err
	}
	if err := requiredText("category", in.Category, 60); err != nil {
		return err
	}
	if err := requiredText("item condition", in.ItemCondition, 40); err != nil {
		return err
	}
	if err := requiredText("city", in.City, 80); err != nil {
		return err
	}

	listingType, ok := models.ParseListingType(string(in.ListingType))
	if !ok {
		return fmt.Errorf("listing type must be Sell, Exchange or Donate")
	}
	if in.Quantity < MinQuantity || in.Quantity > MaxQuantity {
		return fmt.Errorf("quantity must be between %d and %d", MinQuantity, MaxQuantity)
	}
	if in.Price != nil && (*in.Price < 0 || *in.Price > MaxPrice) {
		return fmt.Errorf("price must be between 0 and %d", MaxPrice)
	}
	switch listingType {
	case models.ListingTypeSell:
		if in.Price == nil || *in.Price <= 0 {
			return fmt.Errorf("a price greater than 0 is required for Sell listings")
		}
	case models.ListingTypeDonate:
		if in.Price != nil && *in.Price > 0 {
			return fmt.Errorf("donated items cannot have a price")
		}
	}
	if in.ImageURL != nil {
		if err := ValidateImageURL(*in.ImageURL); err != nil {
			return err
		}
	}
	return nil
}

// ValidateImageURL accepts absolute http(s) URLs up to 600 characters.
func ValidateImageURL(raw string) error {
	if len(raw) > 600 {
		return fmt.Errorf("image URL must not exceed 600 characters")
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("image URL must be an absolute http or https URL")
	}
	return nil
}

// ValidateSearch checks price bounds and paging.
func ValidateSearch(s models.ListingSearch) error {
	if s.MinPrice != nil && *s.MinPrice < 0 {
		return fmt.Errorf("minimum price must not be negative")
	}
	if s.MaxPrice != nil && *s.MaxPrice < 0 {
		return fmt.Errorf("maximum price must not be negative")
	}
	if s.MinPrice != nil && s.MaxPrice != nil && *s.MinPrice > *s.MaxPrice {
		return fmt.Errorf("minimum price cannot exceed maximum price")
	}
	if s.Limit < 0 || s.Limit > MaxSearchLimit {
		return fmt.Errorf("limit must be between 0 and %d", MaxSearchLimit)
	}
	if s.Offset < 0 {
		return fmt.Errorf("offset must not be negative")
	}
	return nil
}

func requiredText(field, value string, max int) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s is required", field)
	}
	if utf8.RuneCountInString(value) > max {
		return fmt.Errorf("%s must not exceed %d characters", field, max)
	}
	return nil
}
