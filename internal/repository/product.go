package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"femcircle/internal/cache"
	"femcircle/internal/models"
	"femcircle/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// publicVisible selects approved, unsold, unbooked listings.
const publicVisible = "is_approved = ? AND is_sold = ? AND bought_by_user_id IS NULL"

// ListingCounts feeds the admin dashboard.
type ListingCounts struct {
	Active            int64
	PendingModeration int64
	Sold              int64
}

// ProductRepository defines persistence operations for listings.
//
// The booking transitions are single conditional UPDATEs. They return false
// when the guard did not match, meaning nothing changed.
type ProductRepository interface {
	Create(ctx context.Context, product *models.Product) error
	GetByID(ctx context.Context, id uint) (*models.Product, error)
	// Update overwrites the seller-editable fields of an unsold listing.
	Update(ctx context.Context, id uint, input models.ListingInput) (bool, error)
	Delete(ctx context.Context, id uint) (bool, error)
	Search(ctx context.Context, search models.ListingSearch) ([]models.Product, int64, error)
	ListPending(ctx context.Context) ([]models.Product, error)
	ListRecent(ctx context.Context, limit int) ([]models.Product, error)
	ListBySeller(ctx context.Context, sellerID uint) ([]models.Product, error)
	ListByBuyer(ctx context.Context, buyerID uint) ([]models.Product, error)
	Counts(ctx context.Context) (ListingCounts, error)

	Approve(ctx context.Context, id uint) (bool, error)
	Book(ctx context.Context, id, buyerID uint) (bool, error)
	ApproveBooking(ctx context.Context, id uint, soldAt time.Time) (bool, error)
	RejectBooking(ctx context.Context, id uint) (bool, error)
	UndoBooking(ctx context.Context, id uint) (bool, error)
}

type productRepository struct {
	db *gorm.DB
}

// NewProductRepository returns a gorm-backed ProductRepository.
func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) withParties(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Seller").Preload("BoughtBy")
}

func (r *productRepository) Create(ctx context.Context, product *models.Product) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(product).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *productRepository) GetByID(ctx context.Context, id uint) (*models.Product, error) {
	ctx, span := observability.GetTraceLayer().TraceRepositoryMethod(ctx, "GetByID", "products")
	defer span.End()

	var product models.Product
	if err := r.withParties(ctx).First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Listing", id)
		}
		span.RecordError(err)
		return nil, models.NewInternalError(err)
	}
	return &product, nil
}

func (r *productRepository) Update(ctx context.Context, id uint, input models.ListingInput) (bool, error) {
	return r.transition(ctx, "Update", id, map[string]interface{}{
		"title":          input.Title,
		"description":    input.Description,
		"category":       input.Category,
		"listing_type":   string(input.ListingType),
		"price":          input.Price,
		"item_condition": input.ItemCondition,
		"quantity":       input.Quantity,
		"city":           input.City,
		"image_url":      input.ImageURL,
	}, "is_sold = ?", false)
}

func (r *productRepository) Delete(ctx context.Context, id uint) (bool, error) {
	res := r.db.WithContext(ctx).Delete(&models.Product{}, id)
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	cache.InvalidateListing(ctx, id)
	return true, nil
}

func (r *productRepository) Search(ctx context.Context, search models.ListingSearch) ([]models.Product, int64, error) {
	ctx, span := observability.GetTraceLayer().TraceRepositoryMethod(ctx, "Search", "products")
	defer span.End()

	q := r.db.WithContext(ctx).Model(&models.Product{}).Where(publicVisible, true, false)
	if term := strings.TrimSpace(search.Query); term != "" {
		like := containsPattern(term)
		q = q.Where(`(LOWER(title) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\')`, like, like)
	}
	if category := strings.TrimSpace(search.Category); category != "" {
		q = q.Where(`LOWER(category) LIKE ? ESCAPE '\'`, containsPattern(category))
	}
	if search.ListingType != nil {
		q = q.Where("listing_type = ?", string(*search.ListingType))
	}
	if search.MinPrice != nil {
		q = q.Where("COALESCE(price, 0) >= ?", *search.MinPrice)
	}
	if search.MaxPrice != nil {
		q = q.Where("COALESCE(price, 0) <= ?", *search.MaxPrice)
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		span.RecordError(err)
		return nil, 0, models.NewInternalError(err)
	}

	var products []models.Product
	q = q.Preload("Seller").Order(searchOrder(search.Sort)).Offset(search.Offset)
	if search.Limit > 0 {
		q = q.Limit(search.Limit)
	}
	if err := q.Find(&products).Error; err != nil {
		span.RecordError(err)
		return nil, 0, models.NewInternalError(err)
	}
	return products, total, nil
}

func searchOrder(sort models.ListingSort) string {
	switch sort {
	case models.SortPriceAsc:
		return "COALESCE(price, 0) ASC, created_at DESC, id DESC"
	case models.SortPriceDesc:
		return "COALESCE(price, 0) DESC, created_at DESC, id DESC"
	default:
		return "created_at DESC, id DESC"
	}
}

// containsPattern builds a case-insensitive LIKE pattern with the wildcards
// in term escaped.
func containsPattern(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(term)) + "%"
}

func (r *productRepository) ListPending(ctx context.Context) ([]models.Product, error) {
	return r.list(ctx, 0, "is_approved = ?", false)
}

func (r *productRepository) ListRecent(ctx context.Context, limit int) ([]models.Product, error) {
	return r.list(ctx, limit, "")
}

func (r *productRepository) ListBySeller(ctx context.Context, sellerID uint) ([]models.Product, error) {
	return r.list(ctx, 0, "seller_id = ?", sellerID)
}

func (r *productRepository) ListByBuyer(ctx context.Context, buyerID uint) ([]models.Product, error) {
	return r.list(ctx, 0, "bought_by_user_id = ?", buyerID)
}

func (r *productRepository) list(ctx context.Context, limit int, where string, args ...interface{}) ([]models.Product, error) {
	q := r.withParties(ctx).Order("created_at DESC, id DESC")
	if where != "" {
		q = q.Where(where, args...)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var products []models.Product
	if err := q.Find(&products).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return products, nil
}

func (r *productRepository) Counts(ctx context.Context) (ListingCounts, error) {
	var counts ListingCounts
	base := r.db.WithContext(ctx).Model(&models.Product{})
	steps := []struct {
		dest  *int64
		query string
		args  []interface{}
	}{
		{&counts.Active, publicVisible, []interface{}{true, false}},
		{&counts.PendingModeration, "is_approved = ?", []interface{}{false}},
		{&counts.Sold, "is_sold = ?", []interface{}{true}},
	}
	for _, s := range steps {
		if err := base.Session(&gorm.Session{}).Where(s.query, s.args...).Count(s.dest).Error; err != nil {
			return ListingCounts{}, models.NewInternalError(err)
		}
	}
	return counts, nil
}

func (r *productRepository) Approve(ctx context.Context, id uint) (bool, error) {
	return r.transition(ctx, "Approve", id, map[string]interface{}{"is_approved": true}, "")
}

func (r *productRepository) Book(ctx context.Context, id, buyerID uint) (bool, error) {
	return r.transition(ctx, "Book", id,
		map[string]interface{}{"bought_by_user_id": buyerID},
		"is_approved = ? AND is_sold = ? AND bought_by_user_id IS NULL AND seller_id <> ?", true, false, buyerID)
}

func (r *productRepository) ApproveBooking(ctx context.Context, id uint, soldAt time.Time) (bool, error) {
	return r.transition(ctx, "ApproveBooking", id,
		map[string]interface{}{"is_sold": true, "sold_at": soldAt.UTC()},
		"bought_by_user_id IS NOT NULL AND is_sold = ?", false)
}

func (r *productRepository) RejectBooking(ctx context.Context, id uint) (bool, error) {
	return r.transition(ctx, "RejectBooking", id,
		map[string]interface{}{"bought_by_user_id": nil, "sold_at": nil, "is_sold": false},
		"bought_by_user_id IS NOT NULL AND is_sold = ?", false)
}

func (r *productRepository) UndoBooking(ctx context.Context, id uint) (bool, error) {
	return r.transition(ctx, "UndoBooking", id,
		map[string]interface{}{"bought_by_user_id": nil, "sold_at": nil, "is_sold": false},
		"is_sold = ?", true)
}

// transition runs UPDATE products SET ... WHERE id = ? AND <guard> and reports
// whether a row matched.
func (r *productRepository) transition(ctx context.Context, op string, id uint, set map[string]interface{}, guard string, args ...interface{}) (bool, error) {
	ctx, span := observability.GetTraceLayer().TraceRepositoryMethod(ctx, op, "products")
	defer span.End()

	q := r.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id)
	if guard != "" {
		q = q.Where(guard, args...)
	}
	res := q.UpdateColumns(set)
	if res.Error != nil {
		span.RecordError(res.Error)
		return false, models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	cache.InvalidateListing(ctx, id)
	return true, nil
}
