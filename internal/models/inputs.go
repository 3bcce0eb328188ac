package models

// RegistrationInput is the sign-up form.
type RegistrationInput struct {
	FullName        string  `json:"full_name"`
	Username        string  `json:"username"`
	Email           string  `json:"email"`
	Password        string  `json:"password"`
	ConfirmPassword string  `json:"confirm_password"`
	Phone           *string `json:"phone,omitempty"`
	City            *string `json:"city,omitempty"`
	AcceptTerms     bool    `json:"accept_terms"`
}

// SignInInput accepts either a username or an email as Login.
type SignInInput struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// ListingInput carries the seller-editable fields of a listing.
type ListingInput struct {
	Title         string      `json:"title"`
	Description   string      `json:"description"`
	Category      string      `json:"category"`
	ListingType   ListingType `json:"listing_type"`
	Price         *float64    `json:"price"`
	ItemCondition string      `json:"item_condition"`
	Quantity      int         `json:"quantity"`
	City          string      `json:"city"`
	ImageURL      *string     `json:"image_url,omitempty"`
}

// ApplyTo overwrites the mutable fields of p. Booking, approval and sale
// columns are left alone.
func (in ListingInput) ApplyTo(p *Product) {
	p.Title = in.Title
	p.Description = in.Description
	p.Category = in.Category
	p.ListingType = in.ListingType
	p.Price = in.Price
	p.ItemCondition = in.ItemCondition
	p.Quantity = in.Quantity
	p.City = in.City
	p.ImageURL = in.ImageURL
}
