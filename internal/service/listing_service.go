package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"femcircle/internal/cache"
	"femcircle/internal/featureflags"
	"femcircle/internal/middleware"
	"femcircle/internal/models"
	"femcircle/internal/observability"
	"femcircle/internal/repository"
	"femcircle/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

// Listing operations as reported in metrics and logs.
const (
	OpCreate         = "create"
	OpUpdate         = "update"
	OpDelete         = "delete"
	OpBook           = "book"
	OpApproveBooking = "approve_booking"
	OpRejectBooking  = "reject_booking"
	OpUndoBooking    = "undo_booking"
	OpApproveListing = "approve_listing"
	OpRejectListing  = "reject_listing"
)

// ListingOptions configures a ListingService.
type ListingOptions struct {
	// OwnerFallback attributes listings from anonymous or unknown submitters
	// to the first admin, else the oldest account.
	OwnerFallback bool
	Flags         *featureflags.Manager
	Now           func() time.Time
}

// ListingService runs the listing lifecycle: CRUD, search, booking and sale.
type ListingService struct {
	userRepo      repository.UserRepository
	productRepo   repository.ProductRepository
	ownerFallback bool
	flags         *featureflags.Manager
	now           func() time.Time
}

// NewListingService returns a ListingService over the given repositories.
func NewListingService(userRepo repository.UserRepository, productRepo repository.ProductRepository, opts ListingOptions) *ListingService {
	now := opts.Now
	if now == nil {
		now = nowUTC
	}
	return &ListingService{
		userRepo:      userRepo,
		productRepo:   productRepo,
		ownerFallback: opts.OwnerFallback,
		flags:         opts.Flags,
		now:           now,
	}
}

// resolveUser returns the member named by username, or nil for blank or
// unknown names.
func (s *ListingService) resolveUser(ctx context.Context, username string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, nil
	}
	return s.userRepo.GetByUsername(ctx, username)
}

// CanManage reports whether actingUsername is the listing's seller or an admin.
func (s *ListingService) CanManage(ctx context.Context, product *models.Product, actingUsername string) (bool, error) {
	actingUsername = strings.TrimSpace(actingUsername)
	if product == nil || actingUsername == "" {
		return false, nil
	}
	if product.Seller != nil && strings.EqualFold(product.Seller.Username, actingUsername) {
		return true, nil
	}
	actor, err := s.resolveUser(ctx, actingUsername)
	if err != nil {
		return false, err
	}
	if actor == nil {
		return false, nil
	}
	return actor.ID == product.SellerID || actor.IsAdmin, nil
}

func (s *ListingService) ownerFallbackEnabled() bool {
	return s.ownerFallback || s.flags.EnabledGlobally(featureflags.ListingOwnerFallback)
}

// Create stores a new listing. Admin sellers are auto-approved; everyone else
// waits for moderation.
func (s *ListingService) Create(ctx context.Context, input models.ListingInput, actingUsername string) (*models.Product, error) {
	span, ctx := observability.NewSpan(ctx, "ListingService.Create")
	defer span.End()

	input = validation.NormalizeListing(input)
	if err := validation.ValidateListing(input); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	seller, err := s.resolveUser(ctx, actingUsername)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	autoApprove := false
	switch {
	case seller != nil && seller.IsBlocked:
		return nil, models.NewForbiddenError("This account has been blocked")
	case seller != nil:
		autoApprove = seller.IsAdmin
	case !s.ownerFallbackEnabled():
		return nil, models.NewUnauthorizedError("Sign in to post a listing")
	default:
		seller, err = s.userRepo.FirstAdminOrLowest(ctx)
		if err != nil {
			span.SetError(err)
			return nil, err
		}
		if seller == nil {
			return nil, models.NewInternalError(errors.New("no user available to own the listing"))
		}
		middleware.Logger.WarnContext(ctx, "listing attributed through owner fallback",
			slog.String("acting_username", strings.TrimSpace(actingUsername)),
			slog.Uint64("seller_id", uint64(seller.ID)),
		)
	}

	product := &models.Product{
		IsApproved: autoApprove,
		CreatedAt:  s.now(),
		SellerID:   seller.ID,
	}
	input.ApplyTo(product)
	err = s.productRepo.Create(ctx, product)
	observability.RecordTransition(OpCreate, err == nil, err)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	product.Seller = seller

	middleware.Logger.InfoContext(ctx, "listing created",
		slog.Uint64("listing_id", uint64(product.ID)),
		slog.Uint64("seller_id", uint64(seller.ID)),
		slog.Bool("approved", product.IsApproved),
	)
	return product, nil
}

// load returns the listing, or nil when it does not exist.
func (s *ListingService) load(ctx context.Context, id uint) (*models.Product, error) {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		if models.StatusFor(err) == 404 {
			return nil, nil
		}
		return nil, err
	}
	return product, nil
}

// loadManaged returns the listing when it exists and actingUsername may manage it.
func (s *ListingService) loadManaged(ctx context.Context, id uint, actingUsername string) (*models.Product, error) {
	product, err := s.load(ctx, id)
	if err != nil || product == nil {
		return nil, err
	}
	ok, err := s.CanManage(ctx, product, actingUsername)
	if err != nil || !ok {
		return nil, err
	}
	return product, nil
}

// GetForEdit returns the listing for its seller or an admin.
func (s *ListingService) GetForEdit(ctx context.Context, id uint, actingUsername string) (*models.Product, bool, error) {
	product, err := s.loadManaged(ctx, id, actingUsername)
	if err != nil || product == nil {
		return nil, false, err
	}
	return product, true, nil
}

// Update overwrites the editable fields. Sold listings are frozen.
func (s *ListingService) Update(ctx context.Context, id uint, input models.ListingInput, actingUsername string) (bool, error) {
	product, err := s.loadManaged(ctx, id, actingUsername)
	if err != nil || product == nil || product.IsSold {
		return false, err
	}

	input = validation.NormalizeListing(input)
	if err := validation.ValidateListing(input); err != nil {
		return false, models.NewValidationError(err.Error())
	}

	ok, err := s.productRepo.Update(ctx, id, input)
	return s.finish(ctx, OpUpdate, id, ok, err)
}

// Delete removes the listing whatever its booking state.
func (s *ListingService) Delete(ctx context.Context, id uint, actingUsername string) (bool, error) {
	product, err := s.loadManaged(ctx, id, actingUsername)
	if err != nil || product == nil {
		return false, err
	}
	ok, err := s.productRepo.Delete(ctx, id)
	return s.finish(ctx, OpDelete, id, ok, err)
}

// GetDetails returns any listing by id through the cache.
func (s *ListingService) GetDetails(ctx context.Context, id uint) (*models.ListingDetails, bool, error) {
	var details models.ListingDetails
	err := cache.Aside(ctx, cache.ListingKey(id), &details, cache.ListingTTL, func() error {
		product, err := s.productRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		details = models.NewListingDetails(product)
		return nil
	})
	if err != nil {
		if models.StatusFor(err) == 404 {
			return nil, false, nil
		}
		return nil, false, err
	}
	return &details, true, nil
}

// Book reserves an available listing for buyerUsername. Two concurrent
// bookings of the same listing cannot both succeed.
func (s *ListingService) Book(ctx context.Context, id uint, buyerUsername string) (bool, error) {
	buyer, err := s.resolveUser(ctx, buyerUsername)
	if err != nil {
		return s.finish(ctx, OpBook, id, false, err)
	}
	if buyer == nil || buyer.IsBlocked {
		return s.finish(ctx, OpBook, id, false, nil)
	}
	ok, err := s.productRepo.Book(ctx, id, buyer.ID)
	return s.finish(ctx, OpBook, id, ok, err, slog.Uint64("buyer_id", uint64(buyer.ID)))
}

// ApproveBooking marks a booked listing as sold.
func (s *ListingService) ApproveBooking(ctx context.Context, id uint, actingUsername string) (bool, error) {
	return s.managedTransition(ctx, OpApproveBooking, id, actingUsername, func(ctx context.Context) (bool, error) {
		return s.productRepo.ApproveBooking(ctx, id, s.now())
	})
}

// RejectBooking releases a booked listing back to the market.
func (s *ListingService) RejectBooking(ctx context.Context, id uint, actingUsername string) (bool, error) {
	return s.managedTransition(ctx, OpRejectBooking, id, actingUsername, func(ctx context.Context) (bool, error) {
		return s.productRepo.RejectBooking(ctx, id)
	})
}

// UndoBooking reverts a sale back to available.
func (s *ListingService) UndoBooking(ctx context.Context, id uint, actingUsername string) (bool, error) {
	return s.managedTransition(ctx, OpUndoBooking, id, actingUsername, func(ctx context.Context) (bool, error) {
		return s.productRepo.UndoBooking(ctx, id)
	})
}

func (s *ListingService) managedTransition(ctx context.Context, op string, id uint, actingUsername string, apply func(context.Context) (bool, error)) (bool, error) {
	span, ctx := observability.NewSpan(ctx, "ListingService."+op)
	defer span.End()
	span.AddAttributes(attribute.Int64("listing.id", int64(id)))

	product, err := s.loadManaged(ctx, id, actingUsername)
	if err != nil || product == nil {
		if err != nil {
			span.SetError(err)
		}
		return s.finish(ctx, op, id, false, err)
	}
	ok, err := apply(ctx)
	if err != nil {
		span.SetError(err)
	}
	return s.finish(ctx, op, id, ok, err)
}

// finish records the outcome of a listing operation.
func (s *ListingService) finish(ctx context.Context, op string, id uint, ok bool, err error, attrs ...slog.Attr) (bool, error) {
	observability.RecordTransition(op, ok, err)
	if err != nil {
		return false, err
	}
	if ok {
		args := []any{slog.String("operation", op), slog.Uint64("listing_id", uint64(id))}
		for _, a := range attrs {
			args = append(args, a)
		}
		middleware.Logger.InfoContext(ctx, "listing transition applied", args...)
	}
	return ok, nil
}

// Search filters the public browse.
func (s *ListingService) Search(ctx context.Context, search models.ListingSearch) (*models.ListingPage, error) {
	if err := validation.ValidateSearch(search); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	search.Sort = models.ParseListingSort(string(search.Sort))

	products, total, err := s.productRepo.Search(ctx, search)
	if err != nil {
		return nil, err
	}
	page := &models.ListingPage{Items: make([]models.ListingSummary, 0, len(products)), TotalCount: total}
	for i := range products {
		page.Items = append(page.Items, models.NewListingSummary(&products[i]))
	}
	return page, nil
}

// GetMyActivity groups the acting member's listings and purchases. False
// means the member is anonymous or unknown.
func (s *ListingService) GetMyActivity(ctx context.Context, actingUsername string) (*models.ActivityDashboard, bool, error) {
	user, err := s.resolveUser(ctx, actingUsername)
	if err != nil || user == nil {
		return nil, false, err
	}

	selling, err := s.productRepo.ListBySeller(ctx, user.ID)
	if err != nil {
		return nil, false, err
	}
	bought, err := s.productRepo.ListByBuyer(ctx, user.ID)
	if err != nil {
		return nil, false, err
	}

	dash := &models.ActivityDashboard{
		UserDisplayName: user.DisplayName(),
		ActiveListings:  []models.ActivityItem{},
		PendingListings: []models.ActivityItem{},
		SoldListings:    []models.ActivityItem{},
		BoughtItems:     make([]models.ActivityItem, 0, len(bought)),
	}
	for i := range selling {
		p := &selling[i]
		item := models.NewActivityItem(p)
		switch p.State() {
		case models.ListingStateSold:
			dash.SoldListings = append(dash.SoldListings, item)
		case models.ListingStateAvailable:
			dash.ActiveListings = append(dash.ActiveListings, item)
		default:
			dash.PendingListings = append(dash.PendingListings, item)
		}
	}
	for i := range bought {
		dash.BoughtItems = append(dash.BoughtItems, models.NewActivityItem(&bought[i]))
	}
	return dash, true, nil
}
