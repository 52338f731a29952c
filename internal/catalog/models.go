package catalog

import (
	"context"
	"errors"
	"time"
)

// Product is a catalog entry. Prices are in minor units (cents).
type Product struct {
	ID          string `json:"id" db:"id"`
	Name        string `json:"name" db:"name"`
	Description string `json:"description,omitempty" db:"description"`
	PriceMinor  int64  `json:"price_minor" db:"price_minor"`
	Category    string `json:"category,omitempty" db:"category"`
	ImageURL    string `json:"image_url,omitempty" db:"image_url"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

var ErrProductNotFound = errors.New("product not found")

// Lookup is the read-only catalog contract consumed by cart and checkout.
// The catalog itself is an external collaborator; the core only resolves
// products by id.
type Lookup interface {
	GetProduct(ctx context.Context, id string) (Product, bool, error)
}

// Repository extends Lookup with the listing used by the storefront API and
// the write path used by the admin API.
type Repository interface {
	Lookup
	ListProducts(ctx context.Context) ([]Product, error)
	SaveProduct(ctx context.Context, p Product) error
}
