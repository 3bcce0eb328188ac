package models

import (
	"strings"
	"time"
)

// ListingType is how a listing changes hands.
type ListingType string

const (
	ListingTypeSell     ListingType = "Sell"
	ListingTypeExchange ListingType = "Exchange"
	ListingTypeDonate   ListingType = "Donate"
)

// ParseListingType matches a listing type case-insensitively.
func ParseListingType(raw string) (ListingType, bool) {
	for _, t := range []ListingType{ListingTypeSell, ListingTypeExchange, ListingTypeDonate} {
		if strings.EqualFold(strings.TrimSpace(raw), string(t)) {
			return t, true
		}
	}
	return "", false
}

// ListingState is derived from the approval, booking and sold columns.
type ListingState string

const (
	ListingStateUnapproved     ListingState = "unapproved"
	ListingStateAvailable      ListingState = "available"
	ListingStatePendingBooking ListingState = "pending_booking"
	ListingStateSold           ListingState = "sold"
)

// Product is a marketplace listing.
type Product struct {
	ID             uint        `gorm:"primaryKey" json:"id"`
	Title          string      `gorm:"size:120;not null" json:"title"`
	Description    string      `gorm:"size:3000;not null" json:"description"`
	Category       string      `gorm:"size:60;not null;index" json:"category"`
	ListingType    ListingType `gorm:"size:16;not null" json:"listing_type"`
	Price          *float64    `gorm:"type:numeric(18,2)" json:"price"`
	ItemCondition  string      `gorm:"size:40;not null" json:"item_condition"`
	Quantity       int         `gorm:"not null;default:1" json:"quantity"`
	City           string      `gorm:"size:80;not null" json:"city"`
	ImageURL       *string     `gorm:"size:600" json:"image_url,omitempty"`
	IsApproved     bool        `gorm:"not null;default:false;index" json:"is_approved"`
	IsSold         bool        `gorm:"not null;default:false;index" json:"is_sold"`
	SoldAt         *time.Time  `json:"sold_at,omitempty"`
	CreatedAt      time.Time   `gorm:"not null;index" json:"created_at"`
	SellerID       uint        `gorm:"not null;index" json:"seller_id"`
	Seller         *User       `gorm:"foreignKey:SellerID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"seller,omitempty"`
	BoughtByUserID *uint       `gorm:"index" json:"bought_by_user_id,omitempty"`
	BoughtBy       *User       `gorm:"foreignKey:BoughtByUserID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"bought_by,omitempty"`
}

// State reports where the listing sits in the moderation and booking lifecycle.
func (p *Product) State() ListingState {
	switch {
	case p.IsSold:
		return ListingStateSold
	case p.BoughtByUserID != nil:
		return ListingStatePendingBooking
	case !p.IsApproved:
		return ListingStateUnapproved
	default:
		return ListingStateAvailable
	}
}

// IsPubliclyVisible is true for approved, unsold, unbooked listings.
func (p *Product) IsPubliclyVisible() bool {
	return p.IsApproved && !p.IsSold && p.BoughtByUserID == nil
}

// EffectivePrice treats a missing price as zero.
func (p *Product) EffectivePrice() float64 {
	if p.Price == nil {
		return 0
	}
	return *p.Price
}
