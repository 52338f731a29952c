package cart

import (
	"errors"
	"time"
)

// Item is one pending cart line. There is at most one row per
// (owner, product) pair; adding an already-present product merges by
// incrementing the quantity.
type Item struct {
	ID        string `json:"id" db:"id"`
	OwnerID   string `json:"owner_id" db:"owner_id"`
	ProductID string `json:"product_id" db:"product_id"`
	Quantity  int    `json:"quantity" db:"quantity"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

var (
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	ErrNotFound        = errors.New("cart item not found")
	ErrForbidden       = errors.New("access denied")
)
