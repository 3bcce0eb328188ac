package models

import (
	"strings"
	"time"
)

// ListingSort orders search results.
type ListingSort string

const (
	SortLatest    ListingSort = "latest"
	SortPriceAsc  ListingSort = "price_asc"
	SortPriceDesc ListingSort = "price_desc"
)

// ParseListingSort falls back to SortLatest for unknown keys.
func ParseListingSort(raw string) ListingSort {
	switch ListingSort(strings.ToLower(strings.TrimSpace(raw))) {
	case SortPriceAsc:
		return SortPriceAsc
	case SortPriceDesc:
		return SortPriceDesc
	default:
		return SortLatest
	}
}

// ListingSearch filters the public browse.
type ListingSearch struct {
	Query       string       `json:"query"`
	Category    string       `json:"category"`
	ListingType *ListingType `json:"listing_type,omitempty"`
	MinPrice    *float64     `json:"min_price,omitempty"`
	MaxPrice    *float64     `json:"max_price,omitempty"`
	Sort        ListingSort  `json:"sort"`
	// Limit of zero returns every match.
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// ListingSummary is one row of the public browse.
type ListingSummary struct {
	ID                uint        `json:"id"`
	Title             string      `json:"title"`
	Category          string      `json:"category"`
	ListingType       ListingType `json:"listing_type"`
	Price             *float64    `json:"price"`
	ItemCondition     string      `json:"item_condition"`
	SellerDisplayName string      `json:"seller_display_name"`
	City              string      `json:"city"`
	ImageURL          *string     `json:"image_url,omitempty"`
	PostedAt          time.Time   `json:"posted_at"`
}

// ListingPage is a page of search results plus the total match count.
type ListingPage struct {
	Items      []ListingSummary `json:"items"`
	TotalCount int64            `json:"total_count"`
}

// ListingDetails is the full view of a single listing.
type ListingDetails struct {
	ListingSummary
	Description    string       `json:"description"`
	Quantity       int          `json:"quantity"`
	SellerUsername string       `json:"seller_username"`
	BuyerUsername  string       `json:"buyer_username,omitempty"`
	State          ListingState `json:"state"`
	SoldAt         *time.Time   `json:"sold_at,omitempty"`
}

// NewListingSummary projects a listing with its seller preloaded.
func NewListingSummary(p *Product) ListingSummary {
	return ListingSummary{
		ID:                p.ID,
		Title:             p.Title,
		Category:          p.Category,
		ListingType:       p.ListingType,
		Price:             p.Price,
		ItemCondition:     p.ItemCondition,
		SellerDisplayName: p.Seller.DisplayName(),
		City:              p.City,
		ImageURL:          p.ImageURL,
		PostedAt:          p.CreatedAt,
	}
}

// NewListingDetails projects a listing with seller and buyer preloaded.
func NewListingDetails(p *Product) ListingDetails {
	d := ListingDetails{
		ListingSummary: NewListingSummary(p),
		Description:    p.Description,
		Quantity:       p.Quantity,
		State:          p.State(),
		SoldAt:         p.SoldAt,
	}
	if p.Seller != nil {
		d.SellerUsername = p.Seller.Username
	}
	if p.BoughtBy != nil {
		d.BuyerUsername = p.BoughtBy.Username
	}
	return d
}

// ActivityItem is a listing as shown on a member's activity page.
type ActivityItem struct {
	ID                uint        `json:"id"`
	Title             string      `json:"title"`
	Category          string      `json:"category"`
	ListingType       ListingType `json:"listing_type"`
	Price             *float64    `json:"price"`
	ItemCondition     string      `json:"item_condition"`
	City              string      `json:"city"`
	SellerDisplayName string      `json:"seller_display_name"`
	SellerUsername    string      `json:"seller_username"`
	BuyerUsername     string      `json:"buyer_username,omitempty"`
	IsApproved        bool        `json:"is_approved"`
	IsSold            bool        `json:"is_sold"`
	CreatedAt         time.Time   `json:"created_at"`
	SoldAt            *time.Time  `json:"sold_at,omitempty"`
}

// NewActivityItem projects a listing with seller and buyer preloaded.
func NewActivityItem(p *Product) ActivityItem {
	item := ActivityItem{
		ID:                p.ID,
		Title:             p.Title,
		Category:          p.Category,
		ListingType:       p.ListingType,
		Price:             p.Price,
		ItemCondition:     p.ItemCondition,
		City:              p.City,
		SellerDisplayName: p.Seller.DisplayName(),
		IsApproved:        p.IsApproved,
		IsSold:            p.IsSold,
		CreatedAt:         p.CreatedAt,
		SoldAt:            p.SoldAt,
	}
	if p.Seller != nil {
		item.SellerUsername = p.Seller.Username
	}
	if p.BoughtBy != nil {
		item.BuyerUsername = p.BoughtBy.Username
	}
	return item
}

// ActivityDashboard groups a member's listings and purchases.
type ActivityDashboard struct {
	UserDisplayName string         `json:"user_display_name"`
	ActiveListings  []ActivityItem `json:"active_listings"`
	PendingListings []ActivityItem `json:"pending_listings"`
	SoldListings    []ActivityItem `json:"sold_listings"`
	BoughtItems     []ActivityItem `json:"bought_items"`
}

// AdminListingSummary is the moderation view of a listing.
type AdminListingSummary struct {
	ID             uint        `json:"id"`
	Title          string      `json:"title"`
	Category       string      `json:"category"`
	ListingType    ListingType `json:"listing_type"`
	SellerUsername string      `json:"seller_username"`
	IsApproved     bool        `json:"is_approved"`
	CreatedAt      time.Time   `json:"created_at"`
}

// NewAdminListingSummary projects a listing with its seller preloaded.
func NewAdminListingSummary(p *Product) AdminListingSummary {
	s := AdminListingSummary{
		ID:          p.ID,
		Title:       p.Title,
		Category:    p.Category,
		ListingType: p.ListingType,
		IsApproved:  p.IsApproved,
		CreatedAt:   p.CreatedAt,
	}
	if p.Seller != nil {
		s.SellerUsername = p.Seller.Username
	}
	return s
}

// AdminDashboard summarizes marketplace health for moderators.
type AdminDashboard struct {
	TotalUsers             int64                 `json:"total_users"`
	ActiveListings         int64                 `json:"active_listings"`
	PendingModerationCount int64                 `json:"pending_moderation_count"`
	CompletedOrders        int64                 `json:"completed_orders"`
	RecentListings         []AdminListingSummary `json:"recent_listings"`
	NewlyRegisteredUsers   []AdminUserSummary    `json:"newly_registered_users"`
}
