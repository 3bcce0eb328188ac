package service

import (
	"context"
	"log/slog"

	"femcircle/internal/middleware"
	"femcircle/internal/models"
	"femcircle/internal/observability"
	"femcircle/internal/repository"
)

// dashboardRecentLimit caps the recent listings and newest members on the dashboard.
const dashboardRecentLimit = 10

// ModerationService provides the admin console: dashboard, listing approval
// and member verification or blocking.
type ModerationService struct {
	userRepo    repository.UserRepository
	productRepo repository.ProductRepository
}

// NewModerationService returns a new ModerationService.
func NewModerationService(userRepo repository.UserRepository, productRepo repository.ProductRepository) *ModerationService {
	return &ModerationService{userRepo: userRepo, productRepo: productRepo}
}

// GetDashboard summarizes users, listings and completed orders.
func (s *ModerationService) GetDashboard(ctx context.Context) (*models.AdminDashboard, error) {
	totalUsers, err := s.userRepo.Count(ctx)
	if err != nil {
		return nil, err
	}
	counts, err := s.productRepo.Counts(ctx)
	if err != nil {
		return nil, err
	}
	recent, err := s.productRepo.ListRecent(ctx, dashboardRecentLimit)
	if err != nil {
		return nil, err
	}
	newest, err := s.userRepo.List(ctx, dashboardRecentLimit, 0)
	if err != nil {
		return nil, err
	}

	dash := &models.AdminDashboard{
		TotalUsers:             totalUsers,
		ActiveListings:         counts.Active,
		PendingModerationCount: counts.PendingModeration,
		CompletedOrders:        counts.Sold,
		RecentListings:         adminListings(recent),
		NewlyRegisteredUsers:   adminUsers(newest),
	}
	return dash, nil
}

// GetUsers lists every member, newest first.
func (s *ModerationService) GetUsers(ctx context.Context) ([]models.AdminUserSummary, error) {
	users, err := s.userRepo.List(ctx, 0, 0)
	if err != nil {
		return nil, err
	}
	return adminUsers(users), nil
}

// GetPendingListings lists unapproved listings, newest first.
func (s *ModerationService) GetPendingListings(ctx context.Context) ([]models.AdminListingSummary, error) {
	products, err := s.productRepo.ListPending(ctx)
	if err != nil {
		return nil, err
	}
	return adminListings(products), nil
}

// ApproveListing publishes a listing. Approving twice is a no-op success.
func (s *ModerationService) ApproveListing(ctx context.Context, id uint) (bool, error) {
	ok, err := s.productRepo.Approve(ctx, id)
	observability.RecordTransition(OpApproveListing, ok, err)
	if ok {
		middleware.Logger.InfoContext(ctx, "listing approved", slog.Uint64("listing_id", uint64(id)))
	}
	return ok, err
}

// RejectListing deletes a listing outright.
func (s *ModerationService) RejectListing(ctx context.Context, id uint) (bool, error) {
	ok, err := s.productRepo.Delete(ctx, id)
	observability.RecordTransition(OpRejectListing, ok, err)
	if ok {
		middleware.Logger.InfoContext(ctx, "listing rejected", slog.Uint64("listing_id", uint64(id)))
	}
	return ok, err
}

// ToggleUserVerification flips a member's verified badge.
func (s *ModerationService) ToggleUserVerification(ctx context.Context, userID uint) (bool, error) {
	ok, err := s.userRepo.ToggleVerified(ctx, userID)
	if ok {
		middleware.Logger.InfoContext(ctx, "user verification toggled", slog.Uint64("target_user_id", uint64(userID)))
	}
	return ok, err
}

// ToggleUserBlocked flips a member's blocked flag. Admins cannot block themselves.
func (s *ModerationService) ToggleUserBlocked(ctx context.Context, userID, actingAdminID uint) (bool, error) {
	if userID == actingAdminID {
		return false, nil
	}
	ok, err := s.userRepo.ToggleBlocked(ctx, userID)
	if ok {
		middleware.Logger.InfoContext(ctx, "user block toggled",
			slog.Uint64("target_user_id", uint64(userID)),
			slog.Uint64("admin_id", uint64(actingAdminID)),
		)
	}
	return ok, err
}

func adminListings(products []models.Product) []models.AdminListingSummary {
	out := make([]models.AdminListingSummary, 0, len(products))
	for i := range products {
		out = append(out, models.NewAdminListingSummary(&products[i]))
	}
	return out
}

func adminUsers(users []models.User) []models.AdminUserSummary {
	out := make([]models.AdminUserSummary, 0, len(users))
	for _, u := range users {
		out = append(out, models.NewAdminUserSummary(u))
	}
	return out
}
