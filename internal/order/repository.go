package order

import (
	"context"
	"time"
)

// Repository is the persistence contract for orders: append plus
// status-only mutation. Item snapshots are immutable once written.
//
// UpdateStatusFrom applies the transition only while the order is still in
// the expected status and reports whether it did. The conditional write is
// what keeps cancelled terminal when the expiry sweep and a gateway callback
// race over the same order.
type Repository interface {
	Create(ctx context.Context, o Order) error
	Get(ctx context.Context, id string) (Order, bool, error)
	List(ctx context.Context, ownerID string) ([]Order, error)
	UpdateStatusFrom(ctx context.Context, id string, from, to Status, updatedAt time.Time) (bool, error)
	FindByGatewayRef(ctx context.Context, reference string) (Order, bool, error)
	ListPendingGatewayBefore(ctx context.Context, cutoff time.Time) ([]Order, error)
}
