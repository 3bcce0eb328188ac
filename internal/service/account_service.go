// Package service holds the marketplace's business rules on top of the repositories.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"femcircle/internal/middleware"
	"femcircle/internal/models"
	"femcircle/internal/observability"
	"femcircle/internal/repository"
	"femcircle/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

var errInvalidCredentials = models.NewUnauthorizedError("Invalid credentials")

// AccountService registers members and checks their credentials.
type AccountService struct {
	userRepo repository.UserRepository
	hashCost int
}

// NewAccountService returns an AccountService hashing at bcrypt.DefaultCost.
func NewAccountService(userRepo repository.UserRepository) *AccountService {
	return &AccountService{userRepo: userRepo, hashCost: bcrypt.DefaultCost}
}

// Register validates the form and creates a verified, unblocked, non-admin member.
func (s *AccountService) Register(ctx context.Context, in models.RegistrationInput) (*models.User, error) {
	user, err := s.register(ctx, in)
	outcome := observability.OutcomeApplied
	switch {
	case errors.Is(err, models.ErrDuplicateUsername), errors.Is(err, models.ErrDuplicateEmail),
		errors.Is(err, &models.AppError{Code: models.CodeValidation}):
		outcome = observability.OutcomeRejected
	case err != nil:
		outcome = observability.OutcomeError
	}
	observability.Registrations.WithLabelValues(outcome).Inc()
	return user, err
}

func (s *AccountService) register(ctx context.Context, in models.RegistrationInput) (*models.User, error) {
	if err := validation.ValidateRegistration(&in); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	existing, err := s.userRepo.GetByUsername(ctx, in.Username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.ErrDuplicateUsername
	}
	existing, err = s.userRepo.GetByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.ErrDuplicateEmail
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.hashCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		FullName:     in.FullName,
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: string(hash),
		Phone:        in.Phone,
		City:         in.City,
		IsVerified:   true,
		RegisteredAt: nowUTC(),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	middleware.Logger.InfoContext(ctx, "member registered",
		slog.Uint64("user_id", uint64(user.ID)),
		slog.String("username", user.Username),
	)
	return user, nil
}

// SignIn accepts a username or email. Blocked members are refused even with
// the right password, and hashes below bcrypt.DefaultCost are upgraded.
func (s *AccountService) SignIn(ctx context.Context, in models.SignInInput) (*models.User, error) {
	user, err := s.signIn(ctx, in)
	outcome := observability.OutcomeApplied
	if err != nil {
		outcome = observability.OutcomeRejected
		if models.StatusFor(err) >= 500 {
			outcome = observability.OutcomeError
		}
	}
	observability.SignIns.WithLabelValues(outcome).Inc()
	return user, err
}

func (s *AccountService) signIn(ctx context.Context, in models.SignInInput) (*models.User, error) {
	login := strings.TrimSpace(in.Login)
	if login == "" || in.Password == "" {
		return nil, models.NewValidationError("Username or email and password are required")
	}

	user, err := s.userRepo.GetByLogin(ctx, login)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return nil, errInvalidCredentials
	}
	if user.IsBlocked {
		middleware.Logger.WarnContext(ctx, "blocked member tried to sign in", slog.Uint64("user_id", uint64(user.ID)))
		return nil, models.NewForbiddenError("This account has been blocked")
	}

	if cost, costErr := bcrypt.Cost([]byte(user.PasswordHash)); costErr == nil && cost < s.hashCost {
		s.rehash(ctx, user, in.Password)
	}
	return user, nil
}

// rehash upgrades a weak hash. Failure is logged and the sign-in still succeeds.
func (s *AccountService) rehash(ctx context.Context, user *models.User, password string) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err == nil {
		user.PasswordHash = string(hash)
		err = s.userRepo.Update(ctx, user)
	}
	if err != nil {
		middleware.Logger.WarnContext(ctx, "password rehash failed",
			slog.Uint64("user_id", uint64(user.ID)),
			slog.String("error", err.Error()),
		)
	}
}

// CurrentUser loads the member behind a session.
func (s *AccountService) CurrentUser(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// SetAdmin grants or revokes admin rights. False means no such user.
func (s *AccountService) SetAdmin(ctx context.Context, id uint, isAdmin bool) (bool, error) {
	ok, err := s.userRepo.SetAdmin(ctx, id, isAdmin)
	if err == nil && ok {
		middleware.Logger.InfoContext(ctx, "admin rights changed",
			slog.Uint64("user_id", uint64(id)),
			slog.Bool("is_admin", isAdmin),
		)
	}
	return ok, err
}

// ListAdmins returns every admin by id.
func (s *AccountService) ListAdmins(ctx context.Context) ([]models.User, error) {
	return s.userRepo.ListAdmins(ctx)
}
