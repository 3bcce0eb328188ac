package service

import (
	"context"
	"testing"
	"time"

	"femcircle/internal/models"
	"femcircle/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type userRepoStub struct {
	getByIDFn            func(context.Context, uint) (*models.User, error)
	getByUsernameFn      func(context.Context, string) (*models.User, error)
	getByEmailFn         func(context.Context, string) (*models.User, error)
	getByLoginFn         func(context.Context, string) (*models.User, error)
	firstAdminOrLowestFn func(context.Context) (*models.User, error)
	createFn             func(context.Context, *models.User) error
	updateFn             func(context.Context, *models.User) error
	listFn               func(context.Context, int, int) ([]models.User, error)
	listAdminsFn         func(context.Context) ([]models.User, error)
	countFn              func(context.Context) (int64, error)
	toggleVerifiedFn     func(context.Context, uint) (bool, error)
	toggleBlockedFn      func(context.Context, uint) (bool, error)
	setAdminFn           func(context.Context, uint, bool) (bool, error)
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getByUsernameFn(ctx, username)
}
func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getByEmailFn(ctx, email)
}
func (s *userRepoStub) GetByLogin(ctx context.Context, login string) (*models.User, error) {
	return s.getByLoginFn(ctx, login)
}
func (s *userRepoStub) FirstAdminOrLowest(ctx context.Context) (*models.User, error) {
	return s.firstAdminOrLowestFn(ctx)
}
func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}
func (s *userRepoStub) Update(ctx context.Context, user *models.User) error {
	return s.updateFn(ctx, user)
}
func (s *userRepoStub) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	return s.listFn(ctx, limit, offset)
}
func (s *userRepoStub) ListAdmins(ctx context.Context) ([]models.User, error) {
	return s.listAdminsFn(ctx)
}
func (s *userRepoStub) Count(ctx context.Context) (int64, error) {
	return s.countFn(ctx)
}
func (s *userRepoStub) ToggleVerified(ctx context.Context, id uint) (bool, error) {
	return s.toggleVerifiedFn(ctx, id)
}
func (s *userRepoStub) ToggleBlocked(ctx context.Context, id uint) (bool, error) {
	return s.toggleBlockedFn(ctx, id)
}
func (s *userRepoStub) SetAdmin(ctx context.Context, id uint, isAdmin bool) (bool, error) {
	return s.setAdminFn(ctx, id, isAdmin)
}

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		getByIDFn:            func(_ context.Context, id uint) (*models.User, error) { return &models.User{ID: id}, nil },
		getByUsernameFn:      func(context.Context, string) (*models.User, error) { return nil, nil },
		getByEmailFn:         func(context.Context, string) (*models.User, error) { return nil, nil },
		getByLoginFn:         func(context.Context, string) (*models.User, error) { return nil, nil },
		firstAdminOrLowestFn: func(context.Context) (*models.User, error) { return nil, nil },
		createFn:             func(context.Context, *models.User) error { return nil },
		updateFn:             func(context.Context, *models.User) error { return nil },
		listFn:               func(context.Context, int, int) ([]models.User, error) { return nil, nil },
		listAdminsFn:         func(context.Context) ([]models.User, error) { return nil, nil },
		countFn:              func(context.Context) (int64, error) { return 0, nil },
		toggleVerifiedFn:     func(context.Context, uint) (bool, error) { return true, nil },
		toggleBlockedFn:      func(context.Context, uint) (bool, error) { return true, nil },
		setAdminFn:           func(context.Context, uint, bool) (bool, error) { return true, nil },
	}
}

// productRepoStub forwards to an embedded repository unless a func field is set.
type productRepoStub struct {
	repository.ProductRepository

	getByIDFn        func(context.Context, uint) (*models.Product, error)
	approveFn        func(context.Context, uint) (bool, error)
	deleteFn         func(context.Context, uint) (bool, error)
	countsFn         func(context.Context) (repository.ListingCounts, error)
	listRecentFn     func(context.Context, int) ([]models.Product, error)
	approveBookingFn func(context.Context, uint, time.Time) (bool, error)
}

func (s *productRepoStub) GetByID(ctx context.Context, id uint) (*models.Product, error) {
	if s.getByIDFn != nil {
		return s.getByIDFn(ctx, id)
	}
	return s.ProductRepository.GetByID(ctx, id)
}
func (s *productRepoStub) Approve(ctx context.Context, id uint) (bool, error) {
	if s.approveFn != nil {
		return s.approveFn(ctx, id)
	}
	return s.ProductRepository.Approve(ctx, id)
}
func (s *productRepoStub) Delete(ctx context.Context, id uint) (bool, error) {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, id)
	}
	return s.ProductRepository.Delete(ctx, id)
}
func (s *productRepoStub) Counts(ctx context.Context) (repository.ListingCounts, error) {
	if s.countsFn != nil {
		return s.countsFn(ctx)
	}
	return s.ProductRepository.Counts(ctx)
}
func (s *productRepoStub) ListRecent(ctx context.Context, limit int) ([]models.Product, error) {
	if s.listRecentFn != nil {
		return s.listRecentFn(ctx, limit)
	}
	return s.ProductRepository.ListRecent(ctx, limit)
}
func (s *productRepoStub) ApproveBooking(ctx context.Context, id uint, soldAt time.Time) (bool, error) {
	if s.approveBookingFn != nil {
		return s.approveBookingFn(ctx, id, soldAt)
	}
	return s.ProductRepository.ApproveBooking(ctx, id, soldAt)
}

func assertValidationError(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	assert.ErrorIs(t, err, &models.AppError{Code: models.CodeValidation})
}

// market is a memory-backed fixture with a seller, a buyer and an admin.
type market struct {
	store  *repository.MemoryStore
	users  repository.UserRepository
	items  repository.ProductRepository
	seller *models.User
	buyer  *models.User
	admin  *models.User
}

var fixedNow = time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC)

func newMarket(t *testing.T) *market {
	t.Helper()
	store := repository.NewMemoryStore()
	m := &market{store: store, users: store.Users(), items: store.Products()}
	m.admin = m.addUser(t, "admin", true)
	m.seller = m.addUser(t, "priya", false)
	m.buyer = m.addUser(t, "ananya", false)
	return m
}

func (m *market) addUser(t *testing.T, username string, admin bool) *models.User {
	t.Helper()
	u := &models.User{
		FullName:     username + " Test",
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "x",
		IsVerified:   true,
		IsAdmin:      admin,
		RegisteredAt: fixedNow,
	}
	require.NoError(t, m.users.Create(context.Background(), u))
	return u
}

func (m *market) service(opts ListingOptions) *ListingService {
	if opts.Now == nil {
		opts.Now = func() time.Time { return fixedNow }
	}
	return NewListingService(m.users, m.items, opts)
}

// addListing stores a listing for seller in the given approval state.
func (m *market) addListing(t *testing.T, seller *models.User, approved bool) *models.Product {
	t.Helper()
	price := 250.0
	p := &models.Product{
		Title:         "Cotton kurta",
		Description:   "Worn twice",
		Category:      "Clothing",
		ListingType:   models.ListingTypeSell,
		Price:         &price,
		ItemCondition: "Like new",
		Quantity:      1,
		City:          "Pune",
		IsApproved:    approved,
		CreatedAt:     fixedNow,
		SellerID:      seller.ID,
	}
	require.NoError(t, m.items.Create(context.Background(), p))
	return p
}

func sellInput() models.ListingInput {
	price := 400.0
	return models.ListingInput{
		Title:         "Silk saree",
		Description:   "Handwoven, maroon with gold border",
		Category:      "Clothing",
		ListingType:   models.ListingTypeSell,
		Price:         &price,
		ItemCondition: "Good",
		Quantity:      1,
		City:          "Chennai",
	}
}
