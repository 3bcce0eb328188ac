package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"femcircle/internal/cache"
	"femcircle/internal/models"
)

// MemoryStore keeps users and listings in process memory behind one mutex.
// It backs tests and honors the same conditional-update contract as the
// gorm repositories.
type MemoryStore struct {
	mu            sync.Mutex
	users         map[uint]models.User
	products      map[uint]models.Product
	nextUserID    uint
	nextProductID uint
	now           func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[uint]models.User),
		products: make(map[uint]models.Product),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Users returns the store's UserRepository view.
func (s *MemoryStore) Users() UserRepository { return &memoryUsers{s} }

// Products returns the store's ProductRepository view.
func (s *MemoryStore) Products() ProductRepository { return &memoryProducts{s} }

type memoryUsers struct{ s *MemoryStore }

func (r *memoryUsers) GetByID(_ context.Context, id uint) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, models.NewNotFoundError("User", id)
	}
	return &u, nil
}

func (r *memoryUsers) GetByUsername(_ context.Context, username string) (*models.User, error) {
	return r.find(func(u models.User) bool { return strings.EqualFold(u.Username, strings.TrimSpace(username)) }), nil
}

func (r *memoryUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	return r.find(func(u models.User) bool { return strings.EqualFold(u.Email, strings.TrimSpace(email)) }), nil
}

func (r *memoryUsers) GetByLogin(_ context.Context, login string) (*models.User, error) {
	l := strings.TrimSpace(login)
	if l == "" {
		return nil, nil
	}
	return r.find(func(u models.User) bool {
		return strings.EqualFold(u.Username, l) || strings.EqualFold(u.Email, l)
	}), nil
}

func (r *memoryUsers) find(match func(models.User) bool) *models.User {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.sortedUsers() {
		if match(u) {
			return &u
		}
	}
	return nil
}

func (r *memoryUsers) FirstAdminOrLowest(_ context.Context) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	users := r.s.sortedUsers()
	if len(users) == 0 {
		return nil, nil
	}
	for _, u := range users {
		if u.IsAdmin {
			return &u, nil
		}
	}
	return &users[0], nil
}

func (r *memoryUsers) Create(_ context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.checkUnique(*user); err != nil {
		return err
	}
	r.s.nextUserID++
	user.ID = r.s.nextUserID
	if user.RegisteredAt.IsZero() {
		user.RegisteredAt = r.s.now()
	}
	r.s.users[user.ID] = *user
	return nil
}

func (r *memoryUsers) Update(_ context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[user.ID]; !ok {
		return models.NewNotFoundError("User", user.ID)
	}
	if err := r.s.checkUnique(*user); err != nil {
		return err
	}
	r.s.users[user.ID] = *user
	return nil
}

func (r *memoryUsers) List(_ context.Context, limit, offset int) ([]models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	users := r.s.sortedUsers()
	sort.SliceStable(users, func(i, j int) bool {
		if users[i].RegisteredAt.Equal(users[j].RegisteredAt) {
			return users[i].ID > users[j].ID
		}
		return users[i].RegisteredAt.After(users[j].RegisteredAt)
	})
	return page(users, limit, offset), nil
}

func (r *memoryUsers) ListAdmins(_ context.Context) ([]models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var admins []models.User
	for _, u := range r.s.sortedUsers() {
		if u.IsAdmin {
			admins = append(admins, u)
		}
	}
	return admins, nil
}

func (r *memoryUsers) Count(_ context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return int64(len(r.s.users)), nil
}

func (r *memoryUsers) ToggleVerified(_ context.Context, id uint) (bool, error) {
	return r.mutate(id, func(u *models.User) { u.IsVerified = !u.IsVerified }), nil
}

func (r *memoryUsers) ToggleBlocked(_ context.Context, id uint) (bool, error) {
	return r.mutate(id, func(u *models.User) { u.IsBlocked = !u.IsBlocked }), nil
}

func (r *memoryUsers) SetAdmin(_ context.Context, id uint, isAdmin bool) (bool, error) {
	return r.mutate(id, func(u *models.User) { u.IsAdmin = isAdmin }), nil
}

func (r *memoryUsers) mutate(id uint, fn func(*models.User)) bool {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return false
	}
	fn(&u)
	r.s.users[id] = u
	return true
}

// checkUnique mirrors the case-insensitive unique indexes. Callers hold mu.
func (s *MemoryStore) checkUnique(user models.User) error {
	for _, u := range s.users {
		if u.ID == user.ID {
			continue
		}
		if strings.EqualFold(u.Username, user.Username) {
			return models.ErrDuplicateUsername
		}
		if strings.EqualFold(u.Email, user.Email) {
			return models.ErrDuplicateEmail
		}
	}
	return nil
}

// sortedUsers returns copies ordered by id. Callers hold mu.
func (s *MemoryStore) sortedUsers() []models.User {
	users := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users
}

type memoryProducts struct{ s *MemoryStore }

func (r *memoryProducts) Create(_ context.Context, product *models.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[product.SellerID]; !ok {
		return models.NewInternalError(models.NewNotFoundError("User", product.SellerID))
	}
	r.s.nextProductID++
	product.ID = r.s.nextProductID
	if product.CreatedAt.IsZero() {
		product.CreatedAt = r.s.now()
	}
	stored := *product
	stored.Seller, stored.BoughtBy = nil, nil
	r.s.products[product.ID] = stored
	return nil
}

func (r *memoryProducts) GetByID(_ context.Context, id uint) (*models.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[id]
	if !ok {
		return nil, models.NewNotFoundError("Listing", id)
	}
	out := r.s.withParties(p)
	return &out, nil
}

func (r *memoryProducts) Update(ctx context.Context, id uint, input models.ListingInput) (bool, error) {
	return r.transition(ctx, id, func(p *models.Product) bool { return !p.IsSold }, func(p *models.Product) {
		input.ApplyTo(p)
	}), nil
}

func (r *memoryProducts) Delete(ctx context.Context, id uint) (bool, error) {
	r.s.mu.Lock()
	_, ok := r.s.products[id]
	delete(r.s.products, id)
	r.s.mu.Unlock()
	if ok {
		cache.InvalidateListing(ctx, id)
	}
	return ok, nil
}

func (r *memoryProducts) Search(_ context.Context, search models.ListingSearch) ([]models.Product, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	query := strings.ToLower(strings.TrimSpace(search.Query))
	category := strings.ToLower(strings.TrimSpace(search.Category))
	var matches []models.Product
	for _, p := range r.s.products {
		if !p.IsPubliclyVisible() {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(p.Title), query) &&
			!strings.Contains(strings.ToLower(p.Description), query) {
			continue
		}
		if category != "" && !strings.Contains(strings.ToLower(p.Category), category) {
			continue
		}
		if search.ListingType != nil && p.ListingType != *search.ListingType {
			continue
		}
		if search.MinPrice != nil && p.EffectivePrice() < *search.MinPrice {
			continue
		}
		if search.MaxPrice != nil && p.EffectivePrice() > *search.MaxPrice {
			continue
		}
		matches = append(matches, r.s.withParties(p))
	}

	sort.Slice(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		switch search.Sort {
		case models.SortPriceAsc:
			if a.EffectivePrice() != b.EffectivePrice() {
				return a.EffectivePrice() < b.EffectivePrice()
			}
		case models.SortPriceDesc:
			if a.EffectivePrice() != b.EffectivePrice() {
				return a.EffectivePrice() > b.EffectivePrice()
			}
		}
		return newerFirst(a, b)
	})
	return page(matches, search.Limit, search.Offset), int64(len(matches)), nil
}

func (r *memoryProducts) ListPending(_ context.Context) ([]models.Product, error) {
	return r.list(0, func(p models.Product) bool { return !p.IsApproved }), nil
}

func (r *memoryProducts) ListRecent(_ context.Context, limit int) ([]models.Product, error) {
	return r.list(limit, func(models.Product) bool { return true }), nil
}

func (r *memoryProducts) ListBySeller(_ context.Context, sellerID uint) ([]models.Product, error) {
	return r.list(0, func(p models.Product) bool { return p.SellerID == sellerID }), nil
}

func (r *memoryProducts) ListByBuyer(_ context.Context, buyerID uint) ([]models.Product, error) {
	return r.list(0, func(p models.Product) bool {
		return p.BoughtByUserID != nil && *p.BoughtByUserID == buyerID
	}), nil
}

func (r *memoryProducts) list(limit int, keep func(models.Product) bool) []models.Product {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Product
	for _, p := range r.s.products {
		if keep(p) {
			out = append(out, r.s.withParties(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return newerFirst(out[i], out[j]) })
	return page(out, limit, 0)
}

func (r *memoryProducts) Counts(_ context.Context) (ListingCounts, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var c ListingCounts
	for _, p := range r.s.products {
		if p.IsPubliclyVisible() {
			c.Active++
		}
		if !p.IsApproved {
			c.PendingModeration++
		}
		if p.IsSold {
			c.Sold++
		}
	}
	return c, nil
}

func (r *memoryProducts) Approve(ctx context.Context, id uint) (bool, error) {
	return r.transition(ctx, id, func(*models.Product) bool { return true }, func(p *models.Product) {
		p.IsApproved = true
	}), nil
}

func (r *memoryProducts) Book(ctx context.Context, id, buyerID uint) (bool, error) {
	return r.transition(ctx, id, func(p *models.Product) bool {
		return p.IsApproved && !p.IsSold && p.BoughtByUserID == nil && p.SellerID != buyerID
	}, func(p *models.Product) {
		buyer := buyerID
		p.BoughtByUserID = &buyer
	}), nil
}

func (r *memoryProducts) ApproveBooking(ctx context.Context, id uint, soldAt time.Time) (bool, error) {
	return r.transition(ctx, id, func(p *models.Product) bool {
		return p.BoughtByUserID != nil && !p.IsSold
	}, func(p *models.Product) {
		at := soldAt.UTC()
		p.IsSold = true
		p.SoldAt = &at
	}), nil
}

func (r *memoryProducts) RejectBooking(ctx context.Context, id uint) (bool, error) {
	return r.transition(ctx, id, func(p *models.Product) bool {
		return p.BoughtByUserID != nil && !p.IsSold
	}, clearSale), nil
}

func (r *memoryProducts) UndoBooking(ctx context.Context, id uint) (bool, error) {
	return r.transition(ctx, id, func(p *models.Product) bool { return p.IsSold }, clearSale), nil
}

func clearSale(p *models.Product) {
	p.BoughtByUserID = nil
	p.SoldAt = nil
	p.IsSold = false
}

// transition applies fn under the store lock when guard holds.
func (r *memoryProducts) transition(ctx context.Context, id uint, guard func(*models.Product) bool, fn func(*models.Product)) bool {
	r.s.mu.Lock()
	p, ok := r.s.products[id]
	if ok && guard(&p) {
		fn(&p)
		r.s.products[id] = p
	} else {
		ok = false
	}
	r.s.mu.Unlock()
	if ok {
		cache.InvalidateListing(ctx, id)
	}
	return ok
}

// withParties attaches copies of the seller and buyer. Callers hold mu.
func (s *MemoryStore) withParties(p models.Product) models.Product {
	if u, ok := s.users[p.SellerID]; ok {
		p.Seller = &u
	}
	if p.BoughtByUserID != nil {
		if u, ok := s.users[*p.BoughtByUserID]; ok {
			p.BoughtBy = &u
		}
	}
	return p
}

func newerFirst(a, b models.Product) bool {
	if a.CreatedAt.Equal(b.CreatedAt) {
		return a.ID > b.ID
	}
	return a.CreatedAt.After(b.CreatedAt)
}

func page[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
