package order

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is the in-process order store used by the memory backend and tests.
type MemoryRepo struct {
	mu     sync.Mutex
	orders map[string]Order
	seq    []string // insertion order
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{orders: map[string]Order{}}
}

func (r *MemoryRepo) Create(ctx context.Context, o Order) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[o.ID] = o
	r.seq = append(r.seq, o.ID)
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, id string) (Order, bool, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	return o, ok, nil
}

func (r *MemoryRepo) List(ctx context.Context, ownerID string) ([]Order, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Order, 0)
	for _, id := range r.seq {
		o := r.orders[id]
		if o.OwnerID == ownerID {
			out = append(out, o)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *MemoryRepo) UpdateStatusFrom(ctx context.Context, id string, from, to Status, updatedAt time.Time) (bool, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	o.UpdatedAt = updatedAt
	r.orders[id] = o
	return true, nil
}

func (r *MemoryRepo) FindByGatewayRef(ctx context.Context, reference string) (Order, bool, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range r.seq {
		o := r.orders[id]
		if o.GatewayRef == reference {
			return o, true, nil
		}
	}
	return Order{}, false, nil
}

func (r *MemoryRepo) ListPendingGatewayBefore(ctx context.Context, cutoff time.Time) ([]Order, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Order, 0)
	for _, id := range r.seq {
		o := r.orders[id]
		if o.PaymentMethod == PaymentGateway && o.Status == StatusPending && o.CreatedAt.Before(cutoff) {
			out = append(out, o)
		}
	}
	return out, nil
}
