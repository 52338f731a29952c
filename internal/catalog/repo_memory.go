package catalog

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo is an in-memory catalog for tests and the memory store backend.
type MemoryRepo struct {
	mu       sync.RWMutex
	products map[string]Product
	order    []string
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{products: map[string]Product{}}
}

// NewSeededRepo returns a MemoryRepo preloaded with demo products.
func NewSeededRepo() *MemoryRepo {
	r := NewMemoryRepo()
	now := time.Now().UTC()
	for _, p := range []Product{
		{ID: "prod-headphones", Name: "Wireless Headphones", Description: "Over-ear, noise cancelling", PriceMinor: 12999, Category: "electronics"},
		{ID: "prod-smartwatch", Name: "Smart Watch", Description: "Fitness tracking, 7-day battery", PriceMinor: 19999, Category: "electronics"},
		{ID: "prod-backpack", Name: "Laptop Backpack", Description: "Water resistant, fits 15 inch", PriceMinor: 5499, Category: "accessories"},
		{ID: "prod-bottle", Name: "Insulated Bottle", Description: "750ml stainless steel", PriceMinor: 2499, Category: "home"},
		{ID: "prod-deskmat", Name: "Desk Mat", Description: "900x400mm, stitched edges", PriceMinor: 1999, Category: "home"},
	} {
		p.CreatedAt = now
		r.Put(p)
	}
	return r
}

func (r *MemoryRepo) Put(p Product) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.products[p.ID]; !exists {
		r.order = append(r.order, p.ID)
	}
	r.products[p.ID] = p
}

func (r *MemoryRepo) SaveProduct(ctx context.Context, p Product) error {
	_ = ctx
	r.Put(p)
	return nil
}

func (r *MemoryRepo) GetProduct(ctx context.Context, id string) (Product, bool, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.products[id]
	return p, ok, nil
}

func (r *MemoryRepo) ListProducts(ctx context.Context) ([]Product, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Product, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.products[id])
	}
	return out, nil
}
