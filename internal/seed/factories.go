package seed

import (
	"fmt"
	"math"
	"time"

	"femcircle/internal/models"

	"github.com/brianvoe/gofakeit/v6"
)

var (
	fillerCategories = []string{"Clothing", "Books", "Home Decor", "Kitchen", "Kids", "Electronics", "Accessories", "Fitness"}
	fillerConditions = []string{"New", "Like New", "Good", "Fair"}
	fillerCities     = []string{"Mumbai", "Pune", "Hyderabad", "Bengaluru", "Chennai", "Delhi", "Kolkata", "Jaipur"}
	fillerItems      = map[string][]string{
		"Clothing":    {"Silk Saree", "Cotton Kurti", "Denim Jacket", "Woollen Shawl"},
		"Books":       {"Novel Collection", "Cookbook", "Exam Prep Set", "Poetry Anthology"},
		"Home Decor":  {"Brass Diya Set", "Wall Hanging", "Table Lamp", "Cushion Covers"},
		"Kitchen":     {"Pressure Cooker", "Spice Box", "Mixer Grinder", "Cast Iron Tawa"},
		"Kids":        {"Wooden Puzzle", "School Bag", "Story Books", "Baby Carrier"},
		"Electronics": {"Bluetooth Speaker", "E-reader", "Hair Dryer", "Desk Fan"},
		"Accessories": {"Jhumka Earrings", "Leather Handbag", "Bangle Set", "Silk Scarf"},
		"Fitness":     {"Yoga Mat", "Dumbbell Pair", "Skipping Rope", "Resistance Bands"},
	}
)

// Factory builds listings with generated content. It never persists.
type Factory struct {
	faker *gofakeit.Faker
	now   time.Time
}

// NewFactory creates a factory. A zero seed picks a random one.
func NewFactory(seed int64, now time.Time) *Factory {
	return &Factory{faker: gofakeit.New(seed), now: now}
}

// BuildListing returns an unsaved listing for seller with a plausible title,
// price and age. Roughly two thirds are approved.
func (f *Factory) BuildListing(seller *models.User, overrides ...func(*models.Product)) *models.Product {
	category := f.faker.RandomString(fillerCategories)
	item := f.faker.RandomString(fillerItems[category])

	p := &models.Product{
		Title:         fmt.Sprintf("%s %s", f.faker.RandomString([]string{"Gently Used", "Handmade", "Vintage", "Barely Used", "Classic"}), item),
		Description:   f.faker.Sentence(12),
		Category:      category,
		ItemCondition: f.faker.RandomString(fillerConditions),
		Quantity:      f.faker.Number(1, 3),
		City:          f.faker.RandomString(fillerCities),
		SellerID:      seller.ID,
		IsApproved:    f.faker.Number(1, 3) > 1,
	}

	switch n := f.faker.Number(1, 10); {
	case n <= 6:
		p.ListingType = models.ListingTypeSell
		price := math.Round(f.faker.Price(100, 5000))
		p.Price = &price
	case n <= 8:
		p.ListingType = models.ListingTypeExchange
	default:
		p.ListingType = models.ListingTypeDonate
		zero := 0.0
		p.Price = &zero
	}

	// realistic created_at spread over the last month
	p.CreatedAt = f.now.Add(-time.Duration(f.faker.Number(1, 30*24)) * time.Hour)
	if f.faker.Bool() {
		p.ImageURL = strPtr(fmt.Sprintf("https://picsum.photos/seed/%s/800/800", f.faker.UUID()))
	}

	for _, override := range overrides {
		override(p)
	}
	return p
}
