package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/kingofthenorth124/paymarket/internal/cart"
	"github.com/kingofthenorth124/paymarket/internal/catalog"
	"github.com/kingofthenorth124/paymarket/internal/gateway"
	"github.com/kingofthenorth124/paymarket/internal/ledger"
	"github.com/kingofthenorth124/paymarket/internal/order"
	"github.com/kingofthenorth124/paymarket/pkg/utils"
)

// CouponWelcome is the only recognized discount code: exactly 10% off the
// subtotal, matched case-sensitively.
const CouponWelcome = "WELCOME"

const welcomeDiscountPercent = 10

var (
	ErrEmptyCart     = errors.New("cart is empty")
	ErrInvalidMethod = errors.New("invalid payment method")
)

// Service is the transactional boundary that converts a priced cart into a
// paid order.
//
// A checkout attempt runs validate -> price -> pay -> commit. Any failure
// before commit leaves no trace: no order, no transaction, no cart change.
//
// Concurrency: checkouts are serialized per owner so two concurrent attempts
// cannot both spend the same cart; the ledger additionally serializes its own
// mutations per owner.
type Service struct {
	carts    *cart.Service
	catalog  catalog.Lookup
	ledger   *ledger.Service
	orders   *order.Service
	provider gateway.Provider

	shippingFeeMinor int64

	owner *utils.KeyedMutex
}

func NewService(carts *cart.Service, cat catalog.Lookup, led *ledger.Service, orders *order.Service, provider gateway.Provider, shippingFeeMinor int64) *Service {
	return &Service{
		carts:            carts,
		catalog:          cat,
		ledger:           led,
		orders:           orders,
		provider:         provider,
		shippingFeeMinor: shippingFeeMinor,
		owner:            utils.NewKeyedMutex(),
	}
}

// Request is the caller-facing checkout shape.
type Request struct {
	Method          order.PaymentMethod `json:"method"`
	CouponCode      string              `json:"coupon_code,omitempty"`
	ShippingAddress string              `json:"shipping_address,omitempty"`
}

// Result carries the created order; RedirectURL is set for gateway payments
// only.
type Result struct {
	Order       order.Order `json:"order"`
	RedirectURL string      `json:"redirect_url,omitempty"`
}

// Quote is the priced breakdown of a cart.
type Quote struct {
	Items         []order.Item `json:"items"`
	SubtotalMinor int64        `json:"subtotal_minor"`
	DiscountMinor int64        `json:"discount_minor"`
	ShippingMinor int64        `json:"shipping_minor"`
	TotalMinor    int64        `json:"total_minor"`
}

// Checkout turns the owner's cart into an order paid by the requested method.
//
// Wallet payments debit the ledger immediately; insufficient funds abort the
// whole attempt with the cart untouched. Gateway payments create a pending
// order and hand back a redirect URL; the debit record, status advance and
// cart clear all wait for the confirmation callback, so the cart survives
// until the payment actually confirms and the buyer can resubmit if it never
// does.
func (s *Service) Checkout(ctx context.Context, ownerID string, req Request) (Result, error) {
	if req.Method != order.PaymentWallet && req.Method != order.PaymentGateway {
		return Result{}, fmt.Errorf("%w: %q", ErrInvalidMethod, req.Method)
	}

	unlock := s.owner.Lock(ownerID)
	defer unlock()

	quote, err := s.priceCart(ctx, ownerID, req.CouponCode)
	if err != nil {
		return Result{}, err
	}

	switch req.Method {
	case order.PaymentWallet:
		return s.payWithWallet(ctx, ownerID, req, quote)
	default:
		return s.payWithGateway(ctx, ownerID, req, quote)
	}
}

// PriceCart returns the quote for the owner's current cart without paying.
func (s *Service) PriceCart(ctx context.Context, ownerID, couponCode string) (Quote, error) {
	return s.priceCart(ctx, ownerID, couponCode)
}

func (s *Service) priceCart(ctx context.Context, ownerID, couponCode string) (Quote, error) {
	items, err := s.carts.Items(ctx, ownerID)
	if err != nil {
		return Quote{}, err
	}
	if len(items) == 0 {
		return Quote{}, ErrEmptyCart
	}

	var subtotal int64
	snapshot := make([]order.Item, 0, len(items))
	for _, item := range items {
		p, ok, err := s.catalog.GetProduct(ctx, item.ProductID)
		if err != nil {
			return Quote{}, err
		}
		if !ok {
			return Quote{}, fmt.Errorf("%w: %s", catalog.ErrProductNotFound, item.ProductID)
		}
		lineTotal := p.PriceMinor * int64(item.Quantity)
		subtotal += lineTotal
		snapshot = append(snapshot, order.Item{
			ProductID:  p.ID,
			Name:       p.Name,
			PriceMinor: p.PriceMinor,
			Quantity:   item.Quantity,
			TotalMinor: lineTotal,
		})
	}

	var discount int64
	if couponCode == CouponWelcome {
		discount = subtotal * welcomeDiscountPercent / 100
	}

	return Quote{
		Items:         snapshot,
		SubtotalMinor: subtotal,
		DiscountMinor: discount,
		ShippingMinor: s.shippingFeeMinor,
		TotalMinor:    subtotal + s.shippingFeeMinor - discount,
	}, nil
}

func (s *Service) payWithWallet(ctx context.Context, ownerID string, req Request, quote Quote) (Result, error) {
	// Debit first: if funds are short this fails before any order exists and
	// the cart stays as it was.
	if _, _, err := s.ledger.Debit(ctx, ownerID, ledger.ChangeRequest{
		AmountMinor: quote.TotalMinor,
		Type:        ledger.TransactionPurchase,
		Description: "Order payment",
	}); err != nil {
		return Result{}, err
	}

	o, err := s.orders.Create(ctx, order.Order{
		OwnerID:         ownerID,
		TotalMinor:      quote.TotalMinor,
		Status:          order.StatusProcessing,
		PaymentMethod:   order.PaymentWallet,
		Items:           quote.Items,
		ShippingAddress: req.ShippingAddress,
	})
	if err != nil {
		return Result{}, err
	}

	if err := s.carts.Clear(ctx, ownerID); err != nil {
		return Result{}, err
	}

	return Result{Order: o}, nil
}

func (s *Service) payWithGateway(ctx context.Context, ownerID string, req Request, quote Quote) (Result, error) {
	init, err := s.provider.Initialize(ctx, gateway.InitRequest{
		OwnerID:     ownerID,
		AmountMinor: quote.TotalMinor,
	})
	if err != nil {
		return Result{}, err
	}

	o, err := s.orders.Create(ctx, order.Order{
		OwnerID:         ownerID,
		TotalMinor:      quote.TotalMinor,
		Status:          order.StatusPending,
		PaymentMethod:   order.PaymentGateway,
		Items:           quote.Items,
		ShippingAddress: req.ShippingAddress,
		GatewayRef:      init.Reference,
	})
	if err != nil {
		return Result{}, err
	}

	return Result{Order: o, RedirectURL: init.RedirectURL}, nil
}
