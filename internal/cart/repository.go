package cart

import "context"

// Repository is the persistence contract for cart lines.
// GetItem is unscoped so the service can distinguish a missing item
// (ErrNotFound) from one owned by somebody else (ErrForbidden).
type Repository interface {
	ListItems(ctx context.Context, ownerID string) ([]Item, error)
	GetItem(ctx context.Context, itemID string) (Item, bool, error)
	FindByProduct(ctx context.Context, ownerID, productID string) (Item, bool, error)
	UpsertItem(ctx context.Context, item Item) error
	DeleteItem(ctx context.Context, itemID string) error
	Clear(ctx context.Context, ownerID string) error
}
