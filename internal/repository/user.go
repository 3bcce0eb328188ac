// Package repository implements the data access layer for the application.
package repository

import (
	"context"
	"errors"
	"strings"

	"femcircle/internal/cache"
	"femcircle/internal/models"
	"femcircle/internal/observability"

	"gorm.io/gorm"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	// GetByUsername, GetByEmail and GetByLogin return (nil, nil) when nobody matches.
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByLogin(ctx context.Context, login string) (*models.User, error)
	// FirstAdminOrLowest returns the admin with the lowest id, else the user
	// with the lowest id, else (nil, nil).
	FirstAdminOrLowest(ctx context.Context) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	List(ctx context.Context, limit, offset int) ([]models.User, error)
	ListAdmins(ctx context.Context) ([]models.User, error)
	Count(ctx context.Context) (int64, error)
	ToggleVerified(ctx context.Context, id uint) (bool, error)
	ToggleBlocked(ctx context.Context, id uint) (bool, error)
	SetAdmin(ctx context.Context, id uint, isAdmin bool) (bool, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	ctx, span := observability.GetTraceLayer().TraceRepositoryMethod(ctx, "GetByID", "users")
	defer span.End()

	var user models.User
	err := cache.Aside(ctx, cache.UserKey(id), &user, cache.UserTTL, func() error {
		if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("User", id)
			}
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.firstWhere(ctx, "LOWER(username) = ?", strings.ToLower(strings.TrimSpace(username)))
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.firstWhere(ctx, "LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email)))
}

func (r *userRepository) GetByLogin(ctx context.Context, login string) (*models.User, error) {
	l := strings.ToLower(strings.TrimSpace(login))
	if l == "" {
		return nil, nil
	}
	return r.firstWhere(ctx, "LOWER(username) = ? OR LOWER(email) = ?", l, l)
}

func (r *userRepository) firstWhere(ctx context.Context, query string, args ...interface{}) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where(query, args...).Order("id ASC").First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) FirstAdminOrLowest(ctx context.Context) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Order("is_admin DESC").
		Order("id ASC").
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return r.duplicateFor(ctx, user, err)
		}
		return models.NewInternalError(err)
	}
	return nil
}

// duplicateFor maps a unique violation to the matching sentinel, looking the
// user up again when the driver error does not name the index.
func (r *userRepository) duplicateFor(ctx context.Context, user *models.User, err error) error {
	if dup := duplicateUserError(err); dup != nil {
		return dup
	}
	if existing, lookupErr := r.GetByUsername(ctx, user.Username); lookupErr == nil && existing != nil {
		return models.ErrDuplicateUsername
	}
	if existing, lookupErr := r.GetByEmail(ctx, user.Email); lookupErr == nil && existing != nil {
		return models.ErrDuplicateEmail
	}
	return models.NewConflictError("User already exists")
}

func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Save(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return r.duplicateFor(ctx, user, err)
		}
		return models.NewInternalError(err)
	}
	cache.InvalidateUser(ctx, user.ID)
	return nil
}

func (r *userRepository) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	var users []models.User
	q := r.db.WithContext(ctx).Order("registered_at DESC, id DESC").Offset(offset)
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

func (r *userRepository) ListAdmins(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).Where("is_admin = ?", true).Order("id ASC").Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

func (r *userRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).Count(&n).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return n, nil
}

func (r *userRepository) ToggleVerified(ctx context.Context, id uint) (bool, error) {
	return r.updateFlag(ctx, id, "is_verified", gorm.Expr("NOT is_verified"))
}

func (r *userRepository) ToggleBlocked(ctx context.Context, id uint) (bool, error) {
	return r.updateFlag(ctx, id, "is_blocked", gorm.Expr("NOT is_blocked"))
}

func (r *userRepository) SetAdmin(ctx context.Context, id uint, isAdmin bool) (bool, error) {
	return r.updateFlag(ctx, id, "is_admin", isAdmin)
}

// updateFlag writes one column in a single statement; false means no such user.
func (r *userRepository) updateFlag(ctx context.Context, id uint, column string, value interface{}) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).UpdateColumn(column, value)
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	cache.InvalidateUser(ctx, id)
	return true, nil
}
