// Package seed provides database seeding utilities for development and testing.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"femcircle/internal/middleware"
	"femcircle/internal/models"
	"femcircle/internal/repository"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Demo account passwords.
const (
	AdminPassword  = "Admin@123"
	MemberPassword = "Member@123"
)

// Options configuration for the seeder
type Options struct {
	// FillerListings is the number of generated listings added after the
	// fixed demo set.
	FillerListings int
	// PasswordCost overrides the bcrypt cost. Zero means bcrypt.DefaultCost.
	PasswordCost int
	// RandSeed makes filler content reproducible when non-zero.
	RandSeed int64
	Now      func() time.Time
}

// Result reports what a seeding run created.
type Result struct {
	Users    int
	Listings int
}

// Seeder writes demo data through the repositories, so it works against any
// store the API runs on.
type Seeder struct {
	users    repository.UserRepository
	products repository.ProductRepository
	opts     Options
}

// NewSeeder creates a seeder bound to the given repositories.
func NewSeeder(users repository.UserRepository, products repository.ProductRepository, opts Options) *Seeder {
	if opts.PasswordCost == 0 {
		opts.PasswordCost = bcrypt.DefaultCost
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Seeder{users: users, products: products, opts: opts}
}

type demoUser struct {
	fullName, username, city string
	phone                    *string
	admin                    bool
	age                      time.Duration
}

func strPtr(s string) *string { return &s }

var demoUsers = []demoUser{
	{fullName: "FemCircle Admin", username: "admin", city: "Mumbai", admin: true, age: 60 * 24 * time.Hour},
	{fullName: "Priya Sharma", username: "priya", city: "Pune", phone: strPtr("9999999999"), age: 20 * 24 * time.Hour},
	{fullName: "Ananya Rao", username: "ananya", city: "Hyderabad", phone: strPtr("8888888888"), age: 8 * 24 * time.Hour},
}

// Demo seeds the fixed demo accounts when the user table is empty and the
// demo listings (plus filler) when there are no listings. Running it twice
// is a no-op.
func (s *Seeder) Demo(ctx context.Context) (*Result, error) {
	res := &Result{}

	count, err := s.users.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	if count == 0 {
		n, err := s.createUsers(ctx)
		if err != nil {
			return nil, err
		}
		res.Users = n
	}

	existing, err := s.products.ListRecent(ctx, 1)
	if err != nil {
		return nil, fmt.Errorf("list listings: %w", err)
	}
	if len(existing) == 0 {
		n, err := s.createListings(ctx)
		if err != nil {
			return nil, err
		}
		res.Listings = n
	}

	middleware.Logger.InfoContext(ctx, "demo data seeded",
		slog.Int("users", res.Users), slog.Int("listings", res.Listings))
	return res, nil
}

func (s *Seeder) hash(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), s.opts.PasswordCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

func (s *Seeder) createUsers(ctx context.Context) (int, error) {
	adminHash, err := s.hash(AdminPassword)
	if err != nil {
		return 0, err
	}
	memberHash, err := s.hash(MemberPassword)
	if err != nil {
		return 0, err
	}

	now := s.opts.Now().UTC()
	for _, d := range demoUsers {
		u := &models.User{
			FullName:     d.fullName,
			Username:     d.username,
			Email:        d.username + "@femcircle.local",
			PasswordHash: memberHash,
			Phone:        d.phone,
			City:         strPtr(d.city),
			IsVerified:   true,
			IsAdmin:      d.admin,
			RegisteredAt: now.Add(-d.age),
		}
		if d.admin {
			u.PasswordHash = adminHash
		}
		if err := s.users.Create(ctx, u); err != nil {
			return 0, fmt.Errorf("create user %s: %w", d.username, err)
		}
	}
	return len(demoUsers), nil
}

func (s *Seeder) createListings(ctx context.Context) (int, error) {
	priya, err := s.users.GetByUsername(ctx, "priya")
	if err != nil {
		return 0, fmt.Errorf("lookup priya: %w", err)
	}
	ananya, err := s.users.GetByUsername(ctx, "ananya")
	if err != nil {
		return 0, fmt.Errorf("lookup ananya: %w", err)
	}
	// Demo members were removed or renamed; leave listings alone.
	if priya == nil || ananya == nil {
		return 0, nil
	}

	now := s.opts.Now().UTC()
	kurtiPrice, donatePrice := 650.0, 0.0
	listings := []*models.Product{
		{
			Title:         "Handcrafted Cotton Kurti",
			Description:   "Lightly used festive kurti in excellent condition.",
			Category:      "Clothing",
			ListingType:   models.ListingTypeSell,
			Price:         &kurtiPrice,
			ItemCondition: "Like New",
			Quantity:      1,
			City:          "Pune",
			ImageURL:      strPtr("https://images.unsplash.com/photo-1610030469678-8f49c9b0839d?auto=format&fit=crop&w=900&q=80"),
			SellerID:      priya.ID,
			IsApproved:    true,
			CreatedAt:     now.Add(-3 * 24 * time.Hour),
		},
		{
			Title:         "Study Desk Organizer Set",
			Description:   "Wooden organizer set, ideal for home office and study corner.",
			Category:      "Home Decor",
			ListingType:   models.ListingTypeExchange,
			ItemCondition: "Good",
			Quantity:      1,
			City:          "Hyderabad",
			SellerID:      ananya.ID,
			IsApproved:    true,
			CreatedAt:     now.Add(-2 * 24 * time.Hour),
		},
		{
			Title:         "Books for Donation - Career Prep",
			Description:   "Set of exam prep books available for donation.",
			Category:      "Books",
			ListingType:   models.ListingTypeDonate,
			Price:         &donatePrice,
			ItemCondition: "Good",
			Quantity:      4,
			City:          "Mumbai",
			SellerID:      priya.ID,
			CreatedAt:     now.Add(-24 * time.Hour),
		},
	}

	if s.opts.FillerListings > 0 {
		f := NewFactory(s.opts.RandSeed, now)
		sellers := []*models.User{priya, ananya}
		for i := 0; i < s.opts.FillerListings; i++ {
			listings = append(listings, f.BuildListing(sellers[i%len(sellers)]))
		}
	}

	for _, p := range listings {
		if err := s.products.Create(ctx, p); err != nil {
			return 0, fmt.Errorf("create listing %q: %w", p.Title, err)
		}
	}
	return len(listings), nil
}

// Reset deletes every listing and user. Listings go first because they
// reference users.
func Reset(ctx context.Context, db *gorm.DB) error {
	middleware.Logger.WarnContext(ctx, "clearing listings and users")
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.Product{}).Error; err != nil {
			return fmt.Errorf("clear listings: %w", err)
		}
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.User{}).Error; err != nil {
			return fmt.Errorf("clear users: %w", err)
		}
		return nil
	})
}
