package cart

import (
	"context"
	"fmt"
	"time"

	"github.com/kingofthenorth124/paymarket/internal/catalog"
	"github.com/kingofthenorth124/paymarket/pkg/utils"

	"github.com/google/uuid"
)

// Service tracks what a user intends to buy before committing to an order.
//
// Concurrency: AddItem is a read-then-write merge, so cart mutations are
// serialized per owner with a keyed mutex.
type Service struct {
	repo    Repository
	catalog catalog.Lookup
	owner   *utils.KeyedMutex
	clock   func() time.Time
}

func NewService(repo Repository, cat catalog.Lookup) *Service {
	return &Service{
		repo:    repo,
		catalog: cat,
		owner:   utils.NewKeyedMutex(),
		clock:   time.Now,
	}
}

// AddItem puts quantity units of a product into the owner's cart, merging
// with an existing line for the same product.
func (s *Service) AddItem(ctx context.Context, ownerID, productID string, quantity int) (Item, error) {
	if quantity < 1 {
		return Item{}, ErrInvalidQuantity
	}

	if _, ok, err := s.catalog.GetProduct(ctx, productID); err != nil {
		return Item{}, err
	} else if !ok {
		return Item{}, fmt.Errorf("%w: %s", catalog.ErrProductNotFound, productID)
	}

	unlock := s.owner.Lock(ownerID)
	defer unlock()

	now := s.clock().UTC()

	existing, ok, err := s.repo.FindByProduct(ctx, ownerID, productID)
	if err != nil {
		return Item{}, err
	}
	if ok {
		existing.Quantity += quantity
		existing.UpdatedAt = now
		if err := s.repo.UpsertItem(ctx, existing); err != nil {
			return Item{}, err
		}
		return existing, nil
	}

	item := Item{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		ProductID: productID,
		Quantity:  quantity,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.UpsertItem(ctx, item); err != nil {
		return Item{}, err
	}
	return item, nil
}

// SetQuantity replaces the quantity of an existing line.
func (s *Service) SetQuantity(ctx context.Context, itemID, ownerID string, quantity int) (Item, error) {
	if quantity < 1 {
		return Item{}, ErrInvalidQuantity
	}

	unlock := s.owner.Lock(ownerID)
	defer unlock()

	item, err := s.getOwned(ctx, itemID, ownerID)
	if err != nil {
		return Item{}, err
	}

	item.Quantity = quantity
	item.UpdatedAt = s.clock().UTC()
	if err := s.repo.UpsertItem(ctx, item); err != nil {
		return Item{}, err
	}
	return item, nil
}

// RemoveItem deletes a line. Removing an absent item is an error, not a no-op.
func (s *Service) RemoveItem(ctx context.Context, itemID, ownerID string) error {
	unlock := s.owner.Lock(ownerID)
	defer unlock()

	if _, err := s.getOwned(ctx, itemID, ownerID); err != nil {
		return err
	}
	return s.repo.DeleteItem(ctx, itemID)
}

// Items lists the owner's cart lines.
func (s *Service) Items(ctx context.Context, ownerID string) ([]Item, error) {
	return s.repo.ListItems(ctx, ownerID)
}

// Clear removes every line for the owner. No-op on an empty cart.
func (s *Service) Clear(ctx context.Context, ownerID string) error {
	unlock := s.owner.Lock(ownerID)
	defer unlock()
	return s.repo.Clear(ctx, ownerID)
}

// Subtotal prices the cart against the catalog. A line whose product no
// longer resolves is a hard failure naming the missing id; it never silently
// contributes zero.
func (s *Service) Subtotal(ctx context.Context, ownerID string) (int64, error) {
	items, err := s.repo.ListItems(ctx, ownerID)
	if err != nil {
		return 0, err
	}

	var sum int64
	for _, item := range items {
		p, ok, err := s.catalog.GetProduct(ctx, item.ProductID)
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, fmt.Errorf("%w: %s", catalog.ErrProductNotFound, item.ProductID)
		}
		sum += p.PriceMinor * int64(item.Quantity)
	}
	return sum, nil
}

func (s *Service) getOwned(ctx context.Context, itemID, ownerID string) (Item, error) {
	item, ok, err := s.repo.GetItem(ctx, itemID)
	if err != nil {
		return Item{}, err
	}
	if !ok {
		return Item{}, ErrNotFound
	}
	if item.OwnerID != ownerID {
		return Item{}, ErrForbidden
	}
	return item, nil
}
