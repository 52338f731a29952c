package cart

import (
	"context"
	"sync"
)

// MemoryRepo is the in-process cart store used by the memory backend and tests.
type MemoryRepo struct {
	mu    sync.Mutex
	items map[string]Item // keyed by item id
	order []string
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{items: map[string]Item{}}
}

func (r *MemoryRepo) ListItems(ctx context.Context, ownerID string) ([]Item, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Item, 0)
	for _, id := range r.order {
		item, ok := r.items[id]
		if ok && item.OwnerID == ownerID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (r *MemoryRepo) GetItem(ctx context.Context, itemID string) (Item, bool, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[itemID]
	return item, ok, nil
}

func (r *MemoryRepo) FindByProduct(ctx context.Context, ownerID, productID string) (Item, bool, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range r.order {
		item, ok := r.items[id]
		if ok && item.OwnerID == ownerID && item.ProductID == productID {
			return item, true, nil
		}
	}
	return Item{}, false, nil
}

func (r *MemoryRepo) UpsertItem(ctx context.Context, item Item) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.items[item.ID]; !exists {
		r.order = append(r.order, item.ID)
	}
	r.items[item.ID] = item
	return nil
}

func (r *MemoryRepo) DeleteItem(ctx context.Context, itemID string) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, itemID)
	r.compactOrder()
	return nil
}

func (r *MemoryRepo) Clear(ctx context.Context, ownerID string) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, item := range r.items {
		if item.OwnerID == ownerID {
			delete(r.items, id)
		}
	}
	r.compactOrder()
	return nil
}

// compactOrder drops deleted ids so the slice does not grow for the life of
// the process. Callers must hold the mutex.
func (r *MemoryRepo) compactOrder() {
	kept := make([]string, 0, len(r.items))
	for _, id := range r.order {
		if _, ok := r.items[id]; ok {
			kept = append(kept, id)
		}
	}
	r.order = kept
}
