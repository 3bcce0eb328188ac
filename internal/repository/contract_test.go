package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"femcircle/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type repoPair struct {
	users    UserRepository
	products ProductRepository
}

func newSQLitePair(t *testing.T) repoPair {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?_foreign_keys=on"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Product{}))
	return repoPair{users: NewUserRepository(db), products: NewProductRepository(db)}
}

func newMemoryPair(*testing.T) repoPair {
	s := NewMemoryStore()
	return repoPair{users: s.Users(), products: s.Products()}
}

// forEachStore runs fn against every ProductRepository implementation.
func forEachStore(t *testing.T, fn func(t *testing.T, r repoPair)) {
	stores := map[string]func(*testing.T) repoPair{
		"sqlite": newSQLitePair,
		"memory": newMemoryPair,
	}
	for name, open := range stores {
		open := open
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			fn(t, open(t))
		})
	}
}

var base = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func mustUser(t *testing.T, r repoPair, username string, admin bool) *models.User {
	t.Helper()
	u := &models.User{
		FullName:     username + " Full",
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "hash",
		IsVerified:   true,
		IsAdmin:      admin,
		RegisteredAt: base,
	}
	require.NoError(t, r.users.Create(context.Background(), u))
	return u
}

func mustListing(t *testing.T, r repoPair, seller *models.User, mutate func(*models.Product)) *models.Product {
	t.Helper()
	price := 100.0
	p := &models.Product{
		Title:         "Cotton Kurti",
		Description:   "Hand block printed",
		Category:      "Clothing",
		ListingType:   models.ListingTypeSell,
		Price:         &price,
		ItemCondition: "Good",
		Quantity:      1,
		City:          "Pune",
		IsApproved:    true,
		CreatedAt:     base,
		SellerID:      seller.ID,
	}
	if mutate != nil {
		mutate(p)
	}
	require.NoError(t, r.products.Create(context.Background(), p))
	return p
}

func fresh(t *testing.T, r repoPair, id uint) *models.Product {
	t.Helper()
	p, err := r.products.GetByID(context.Background(), id)
	require.NoError(t, err)
	return p
}

func TestStore_UserLookups(t *testing.T) {
	forEachStore(t, func(t *testing.T, r repoPair) {
		ctx := context.Background()

		none, err := r.users.FirstAdminOrLowest(ctx)
		require.NoError(t, err)
		assert.Nil(t, none)

		priya := mustUser(t, r, "priya", false)
		admin := mustUser(t, r, "admin", true)

		got, err := r.users.GetByUsername(ctx, "PRIYA")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, priya.ID, got.ID)

		got, err = r.users.GetByLogin(ctx, "Admin@Example.com")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, admin.ID, got.ID)

		got, err = r.users.FirstAdminOrLowest(ctx)
		require.NoError(t, err)
		assert.Equal(t, admin.ID, got.ID, "admin wins over lower id")

		err = r.users.Create(ctx, &models.User{Username: "Priya", Email: "other@example.com", FullName: "x", PasswordHash: "h", RegisteredAt: base})
		assert.ErrorIs(t, err, models.ErrDuplicateUsername)
		err = r.users.Create(ctx, &models.User{Username: "other", Email: "PRIYA@example.com", FullName: "x", PasswordHash: "h", RegisteredAt: base})
		assert.ErrorIs(t, err, models.ErrDuplicateEmail)

		ok, err := r.users.ToggleVerified(ctx, priya.ID)
		require.NoError(t, err)
		assert.True(t, ok)
		got, err = r.users.GetByID(ctx, priya.ID)
		require.NoError(t, err)
		assert.False(t, got.IsVerified)

		ok, err = r.users.ToggleBlocked(ctx, 9999)
		require.NoError(t, err)
		assert.False(t, ok)

		n, err := r.users.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		admins, err := r.users.ListAdmins(ctx)
		require.NoError(t, err)
		require.Len(t, admins, 1)
		assert.Equal(t, "admin", admins[0].Username)
	})
}

func TestStore_BookingLifecycle(t *testing.T) {
	forEachStore(t, func(t *testing.T, r repoPair) {
		ctx := context.Background()
		seller := mustUser(t, r, "priya", false)
		buyer := mustUser(t, r, "ananya", false)
		p := mustListing(t, r, seller, nil)

		ok, err := r.products.Book(ctx, p.ID, seller.ID)
		require.NoError(t, err)
		assert.False(t, ok, "seller cannot book own listing")

		ok, err = r.products.ApproveBooking(ctx, p.ID, time.Now())
		require.NoError(t, err)
		assert.False(t, ok, "nothing to approve yet")

		ok, err = r.products.Book(ctx, p.ID, buyer.ID)
		require.NoError(t, err)
		assert.True(t, ok)
		got := fresh(t, r, p.ID)
		assert.Equal(t, models.ListingStatePendingBooking, got.State())
		require.NotNil(t, got.BoughtBy)
		assert.Equal(t, "ananya", got.BoughtBy.Username)

		ok, err = r.products.RejectBooking(ctx, p.ID)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, models.ListingStateAvailable, fresh(t, r, p.ID).State())

		ok, err = r.products.Book(ctx, p.ID, buyer.ID)
		require.NoError(t, err)
		require.True(t, ok)
		soldAt := time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC)
		ok, err = r.products.ApproveBooking(ctx, p.ID, soldAt)
		require.NoError(t, err)
		assert.True(t, ok)
		got = fresh(t, r, p.ID)
		assert.Equal(t, models.ListingStateSold, got.State())
		require.NotNil(t, got.SoldAt)
		assert.True(t, got.SoldAt.Equal(soldAt))

		ok, err = r.products.RejectBooking(ctx, p.ID)
		require.NoError(t, err)
		assert.False(t, ok, "sold listings cannot be rejected")

		ok, err = r.products.Update(ctx, p.ID, models.ListingInput{Title: "New", ListingType: models.ListingTypeSell})
		require.NoError(t, err)
		assert.False(t, ok, "sold listings are frozen")

		ok, err = r.products.UndoBooking(ctx, p.ID)
		require.NoError(t, err)
		assert.True(t, ok)
		got = fresh(t, r, p.ID)
		assert.Equal(t, models.ListingStateAvailable, got.State())
		assert.Nil(t, got.SoldAt)
		assert.Nil(t, got.BoughtByUserID)

		ok, err = r.products.UndoBooking(ctx, p.ID)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestStore_BookRequiresApproval(t *testing.T) {
	forEachStore(t, func(t *testing.T, r repoPair) {
		ctx := context.Background()
		seller := mustUser(t, r, "priya", false)
		buyer := mustUser(t, r, "ananya", false)
		p := mustListing(t, r, seller, func(p *models.Product) { p.IsApproved = false })

		ok, err := r.products.Book(ctx, p.ID, buyer.ID)
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = r.products.Approve(ctx, p.ID)
		require.NoError(t, err)
		assert.True(t, ok)
		ok, err = r.products.Approve(ctx, p.ID)
		require.NoError(t, err)
		assert.True(t, ok, "approve is idempotent")

		ok, err = r.products.Approve(ctx, 424242)
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = r.products.Book(ctx, p.ID, buyer.ID)
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

func TestStore_ConcurrentBookSingleWinner(t *testing.T) {
	forEachStore(t, func(t *testing.T, r repoPair) {
		ctx := context.Background()
		seller := mustUser(t, r, "seller", false)
		p := mustListing(t, r, seller, nil)

		const buyers = 8
		ids := make([]uint, buyers)
		for i := range ids {
			ids[i] = mustUser(t, r, "buyer"+string(rune('a'+i)), false).ID
		}

		var wins atomic.Int32
		var wg sync.WaitGroup
		for _, id := range ids {
			wg.Add(1)
			go func(buyerID uint) {
				defer wg.Done()
				ok, err := r.products.Book(ctx, p.ID, buyerID)
				assert.NoError(t, err)
				if ok {
					wins.Add(1)
				}
			}(id)
		}
		wg.Wait()

		assert.Equal(t, int32(1), wins.Load())
		assert.NotNil(t, fresh(t, r, p.ID).BoughtByUserID)
	})
}

func TestStore_Search(t *testing.T) {
	forEachStore(t, func(t *testing.T, r repoPair) {
		ctx := context.Background()
		priya := mustUser(t, r, "priya", false)
		buyer := mustUser(t, r, "ananya", false)

		kurti := mustListing(t, r, priya, func(p *models.Product) {
			p.Title, p.Category = "Handcrafted Cotton Kurti", "Clothing"
			p.CreatedAt = base.Add(1 * time.Hour)
		})
		desk := mustListing(t, r, priya, func(p *models.Product) {
			p.Title, p.Description, p.Category = "Study Desk Organizer", "Bamboo set", "Home Decor"
			p.ListingType, p.Price = models.ListingTypeExchange, nil
			p.CreatedAt = base.Add(2 * time.Hour)
		})
		books := mustListing(t, r, priya, func(p *models.Product) {
			zero := 0.0
			p.Title, p.Description, p.Category = "Career books", "For 100% free", "Books"
			p.ListingType, p.Price = models.ListingTypeDonate, &zero
			p.CreatedAt = base.Add(3 * time.Hour)
		})
		expensive := mustListing(t, r, priya, func(p *models.Product) {
			price := 900.0
			p.Title, p.Price = "Silk saree", &price
			p.CreatedAt = base.Add(4 * time.Hour)
		})
		mustListing(t, r, priya, func(p *models.Product) { p.IsApproved = false; p.Title = "Hidden kurti" })
		booked := mustListing(t, r, priya, func(p *models.Product) { p.Title = "Booked kurti" })
		ok, err := r.products.Book(ctx, booked.ID, buyer.ID)
		require.NoError(t, err)
		require.True(t, ok)

		ids := func(ps []models.Product) []uint {
			out := make([]uint, 0, len(ps))
			for _, p := range ps {
				out = append(out, p.ID)
			}
			return out
		}
		price := func(v float64) *float64 { return &v }
		exchange := models.ListingTypeExchange

		tests := []struct {
			name   string
			search models.ListingSearch
			want   []uint
			total  int64
		}{
			{"latest", models.ListingSearch{}, []uint{expensive.ID, books.ID, desk.ID, kurti.ID}, 4},
			{"query title", models.ListingSearch{Query: "KURTI"}, []uint{kurti.ID}, 1},
			{"query description", models.ListingSearch{Query: "bamboo"}, []uint{desk.ID}, 1},
			{"literal percent", models.ListingSearch{Query: "100%"}, []uint{books.ID}, 1},
			{"category substring", models.ListingSearch{Category: "decor"}, []uint{desk.ID}, 1},
			{"type", models.ListingSearch{ListingType: &exchange}, []uint{desk.ID}, 1},
			{"null price counts as zero", models.ListingSearch{MaxPrice: price(0)}, []uint{books.ID, desk.ID}, 2},
			{"min price", models.ListingSearch{MinPrice: price(100)}, []uint{expensive.ID, kurti.ID}, 2},
			{"price asc ties newest first", models.ListingSearch{Sort: models.SortPriceAsc}, []uint{books.ID, desk.ID, kurti.ID, expensive.ID}, 4},
			{"price desc", models.ListingSearch{Sort: models.SortPriceDesc}, []uint{expensive.ID, kurti.ID, books.ID, desk.ID}, 4},
			{"paged", models.ListingSearch{Limit: 2, Offset: 1}, []uint{books.ID, desk.ID}, 4},
		}

		for _, tt := range tests {
			got, total, err := r.products.Search(ctx, tt.search)
			require.NoError(t, err, tt.name)
			assert.Equal(t, tt.want, ids(got), tt.name)
			assert.Equal(t, tt.total, total, tt.name)
		}

		got, _, err := r.products.Search(ctx, models.ListingSearch{Query: "kurti"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		require.NotNil(t, got[0].Seller)
		assert.Equal(t, "priya", got[0].Seller.Username)
	})
}

func TestStore_ListingsAndCounts(t *testing.T) {
	forEachStore(t, func(t *testing.T, r repoPair) {
		ctx := context.Background()
		priya := mustUser(t, r, "priya", false)
		ananya := mustUser(t, r, "ananya", false)

		active := mustListing(t, r, priya, func(p *models.Product) { p.CreatedAt = base.Add(time.Hour) })
		pending := mustListing(t, r, priya, func(p *models.Product) { p.IsApproved = false; p.CreatedAt = base.Add(2 * time.Hour) })
		sold := mustListing(t, r, ananya, func(p *models.Product) { p.CreatedAt = base.Add(3 * time.Hour) })
		ok, err := r.products.Book(ctx, sold.ID, priya.ID)
		require.NoError(t, err)
		require.True(t, ok)
		ok, err = r.products.ApproveBooking(ctx, sold.ID, time.Now())
		require.NoError(t, err)
		require.True(t, ok)

		counts, err := r.products.Counts(ctx)
		require.NoError(t, err)
		assert.Equal(t, ListingCounts{Active: 1, PendingModeration: 1, Sold: 1}, counts)

		pendingList, err := r.products.ListPending(ctx)
		require.NoError(t, err)
		require.Len(t, pendingList, 1)
		assert.Equal(t, pending.ID, pendingList[0].ID)

		recent, err := r.products.ListRecent(ctx, 2)
		require.NoError(t, err)
		require.Len(t, recent, 2)
		assert.Equal(t, sold.ID, recent[0].ID)

		mine, err := r.products.ListBySeller(ctx, priya.ID)
		require.NoError(t, err)
		assert.Len(t, mine, 2)

		bought, err := r.products.ListByBuyer(ctx, priya.ID)
		require.NoError(t, err)
		require.Len(t, bought, 1)
		require.NotNil(t, bought[0].Seller)
		assert.Equal(t, "ananya", bought[0].Seller.Username)

		ok, err = r.products.Delete(ctx, active.ID)
		require.NoError(t, err)
		assert.True(t, ok)
		ok, err = r.products.Delete(ctx, active.ID)
		require.NoError(t, err)
		assert.False(t, ok)

		_, err = r.products.GetByID(ctx, active.ID)
		assert.Equal(t, 404, models.StatusFor(err))
	})
}

func TestStore_UpdateOverwritesEditableFields(t *testing.T) {
	forEachStore(t, func(t *testing.T, r repoPair) {
		ctx := context.Background()
		priya := mustUser(t, r, "priya", false)
		buyer := mustUser(t, r, "ananya", false)
		p := mustListing(t, r, priya, nil)
		ok, err := r.products.Book(ctx, p.ID, buyer.ID)
		require.NoError(t, err)
		require.True(t, ok)

		img := "https://cdn.example.com/kurti.jpg"
		ok, err = r.products.Update(ctx, p.ID, models.ListingInput{
			Title:         "Kurti (blue)",
			Description:   "Updated",
			Category:      "Clothing",
			ListingType:   models.ListingTypeExchange,
			ItemCondition: "Like New",
			Quantity:      2,
			City:          "Mumbai",
			ImageURL:      &img,
		})
		require.NoError(t, err)
		assert.True(t, ok, "booked but unsold listings stay editable")

		got := fresh(t, r, p.ID)
		assert.Equal(t, "Kurti (blue)", got.Title)
		assert.Equal(t, models.ListingTypeExchange, got.ListingType)
		assert.Nil(t, got.Price)
		assert.Equal(t, 2, got.Quantity)
		require.NotNil(t, got.ImageURL)
		assert.Equal(t, img, *got.ImageURL)
		assert.True(t, got.IsApproved, "approval untouched")
		require.NotNil(t, got.BoughtByUserID, "booking untouched")
		assert.Equal(t, buyer.ID, *got.BoughtByUserID)
	})
}
