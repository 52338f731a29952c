package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kingofthenorth124/paymarket/internal/ledger"

	"github.com/google/uuid"
)

// LedgerWriter is the slice of the ledger the order lifecycle needs:
// refund credits for cancelled wallet orders and purchase records for
// gateway-settled ones.
type LedgerWriter interface {
	Credit(ctx context.Context, ownerID string, req ledger.ChangeRequest) (ledger.Wallet, ledger.Transaction, error)
	Record(ctx context.Context, ownerID string, req ledger.ChangeRequest) (ledger.Transaction, error)
}

// CartClearer empties a user's cart once a gateway payment confirms.
type CartClearer interface {
	Clear(ctx context.Context, ownerID string) error
}

// Service tracks order status transitions and reconciles refunds back into
// the ledger.
type Service struct {
	repo   Repository
	ledger LedgerWriter
	carts  CartClearer
	clock  func() time.Time
}

func NewService(repo Repository, lw LedgerWriter, carts CartClearer) *Service {
	return &Service{
		repo:   repo,
		ledger: lw,
		carts:  carts,
		clock:  time.Now,
	}
}

// Create persists a new order built by checkout. The id and timestamps are
// assigned here.
func (s *Service) Create(ctx context.Context, o Order) (Order, error) {
	if o.OwnerID == "" {
		return Order{}, errors.New("order: owner id required")
	}
	if len(o.Items) == 0 {
		return Order{}, errors.New("order: item snapshot required")
	}
	switch o.Status {
	case StatusPending, StatusProcessing:
	default:
		return Order{}, fmt.Errorf("order: cannot create in status %q", o.Status)
	}
	switch o.PaymentMethod {
	case PaymentWallet, PaymentGateway:
	default:
		return Order{}, fmt.Errorf("order: unknown payment method %q", o.PaymentMethod)
	}

	now := s.clock().UTC()
	o.ID = uuid.NewString()
	o.CreatedAt = now
	o.UpdatedAt = now
	if err := s.repo.Create(ctx, o); err != nil {
		return Order{}, err
	}
	return o, nil
}

// Get returns a single order, enforcing ownership.
func (s *Service) Get(ctx context.Context, id, ownerID string) (Order, error) {
	o, ok, err := s.repo.Get(ctx, id)
	if err != nil {
		return Order{}, err
	}
	if !ok {
		return Order{}, ErrNotFound
	}
	if o.OwnerID != ownerID {
		return Order{}, ErrForbidden
	}
	return o, nil
}

// List returns the owner's orders, newest first.
func (s *Service) List(ctx context.Context, ownerID string) ([]Order, error) {
	return s.repo.List(ctx, ownerID)
}

// Cancel transitions an order to cancelled. Only pending and processing
// orders can be cancelled; cancelled is terminal, so a second call fails with
// ErrInvalidState. Wallet-paid orders get their total credited back as a
// refund; gateway-paid orders never debited the wallet, and their refunds are
// the gateway's to settle, so no wallet credit is issued.
func (s *Service) Cancel(ctx context.Context, id, ownerID string) (Order, error) {
	o, err := s.Get(ctx, id, ownerID)
	if err != nil {
		return Order{}, err
	}
	if o.Status != StatusPending && o.Status != StatusProcessing {
		return Order{}, fmt.Errorf("%w: cannot cancel %s order", ErrInvalidState, o.Status)
	}

	// Credit before flipping the status. If the credit fails the order stays
	// active and the caller can retry; the reference is derived from the
	// order id, so a retried cancellation can never credit twice.
	if o.PaymentMethod == PaymentWallet {
		_, _, err := s.ledger.Credit(ctx, ownerID, ledger.ChangeRequest{
			AmountMinor: o.TotalMinor,
			Type:        ledger.TransactionRefund,
			Description: "Order cancellation refund",
			Reference:   "refund-" + o.ID,
		})
		if err != nil {
			return Order{}, err
		}
	}

	now := s.clock().UTC()
	ok, err := s.repo.UpdateStatusFrom(ctx, o.ID, o.Status, StatusCancelled, now)
	if err != nil {
		return Order{}, err
	}
	if !ok {
		// A concurrent transition won; if it was another cancellation the
		// idempotent reference already settled the refund.
		return Order{}, fmt.Errorf("%w: order %s changed state", ErrInvalidState, o.ID)
	}
	o.Status = StatusCancelled
	o.UpdatedAt = now

	return o, nil
}

// ConfirmGatewayPayment handles the gateway callback: the matching order must
// still be pending. It advances to processing, records the purchase in the
// ledger and clears the cart that was kept alive for resubmission.
func (s *Service) ConfirmGatewayPayment(ctx context.Context, reference string) (Order, error) {
	if reference == "" {
		return Order{}, errors.New("order: payment reference required")
	}

	o, ok, err := s.repo.FindByGatewayRef(ctx, reference)
	if err != nil {
		return Order{}, err
	}
	if !ok {
		return Order{}, ErrNotFound
	}
	if o.PaymentMethod != PaymentGateway || o.Status != StatusPending {
		return Order{}, fmt.Errorf("%w: order %s is %s", ErrInvalidState, o.ID, o.Status)
	}

	now := s.clock().UTC()
	// Conditional transition: the expiry sweep may have cancelled the order
	// after the read above, and cancelled is terminal.
	ok, err = s.repo.UpdateStatusFrom(ctx, o.ID, StatusPending, StatusProcessing, now)
	if err != nil {
		return Order{}, err
	}
	if !ok {
		return Order{}, fmt.Errorf("%w: order %s changed state", ErrInvalidState, o.ID)
	}
	o.Status = StatusProcessing
	o.UpdatedAt = now

	// The money settled at the gateway; the ledger carries the entry without
	// a balance change. Reference reuse makes callback retries harmless.
	if _, err := s.ledger.Record(ctx, o.OwnerID, ledger.ChangeRequest{
		AmountMinor: o.TotalMinor,
		Type:        ledger.TransactionPurchase,
		Description: "Order payment via gateway",
		Reference:   reference,
	}); err != nil {
		return Order{}, err
	}

	if err := s.carts.Clear(ctx, o.OwnerID); err != nil {
		return Order{}, err
	}

	return o, nil
}

// ExpirePending cancels gateway orders whose callback never arrived. Orders
// created before cutoff and still pending are moved to cancelled; no wallet
// credit is involved since no wallet money ever moved.
func (s *Service) ExpirePending(ctx context.Context, cutoff time.Time) (int, error) {
	stale, err := s.repo.ListPendingGatewayBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	expired := 0
	now := s.clock().UTC()
	for _, o := range stale {
		// A callback may confirm the order between the listing and this
		// write; such orders are skipped, not counted.
		ok, err := s.repo.UpdateStatusFrom(ctx, o.ID, StatusPending, StatusCancelled, now)
		if err != nil {
			return expired, err
		}
		if ok {
			expired++
		}
	}
	return expired, nil
}
