package checkout

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kingofthenorth124/paymarket/internal/cart"
	"github.com/kingofthenorth124/paymarket/internal/catalog"
	"github.com/kingofthenorth124/paymarket/internal/gateway"
	"github.com/kingofthenorth124/paymarket/internal/ledger"
	"github.com/kingofthenorth124/paymarket/internal/order"
)

type fixture struct {
	catalog *catalog.MemoryRepo
	cartsRp *cart.MemoryRepo
	carts   *cart.Service
	ledger  *ledger.Service
	orders  *order.Service
	svc     *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cat := catalog.NewMemoryRepo()
	cat.Put(catalog.Product{ID: "prod-mug", Name: "Mug", PriceMinor: 1_000})
	cat.Put(catalog.Product{ID: "prod-shirt", Name: "Shirt", PriceMinor: 2_000})

	cartsRp := cart.NewMemoryRepo()
	carts := cart.NewService(cartsRp, cat)
	led := ledger.NewService(ledger.NewMemoryRepo())
	orders := order.NewService(order.NewMemoryRepo(), led, carts)
	provider := gateway.NewSimulatedProvider("http://localhost:8080")

	return &fixture{
		catalog: cat,
		cartsRp: cartsRp,
		carts:   carts,
		ledger:  led,
		orders:  orders,
		svc:     NewService(carts, cat, led, orders, provider, 1_000),
	}
}

func (f *fixture) fillCart(t *testing.T, ownerID string) {
	t.Helper()
	ctx := context.Background()
	if _, err := f.carts.AddItem(ctx, ownerID, "prod-mug", 1); err != nil {
		t.Fatalf("add mug: %v", err)
	}
	if _, err := f.carts.AddItem(ctx, ownerID, "prod-shirt", 1); err != nil {
		t.Fatalf("add shirt: %v", err)
	}
}

func TestPriceCart_CouponAndShipping(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fillCart(t, "user-1")

	q, err := f.svc.PriceCart(ctx, "user-1", "WELCOME")
	if err != nil {
		t.Fatalf("price: %v", err)
	}
	if q.SubtotalMinor != 3_000 {
		t.Fatalf("subtotal = %d, want 3000", q.SubtotalMinor)
	}
	if q.DiscountMinor != 300 {
		t.Fatalf("discount = %d, want 300", q.DiscountMinor)
	}
	if q.TotalMinor != 3_700 {
		t.Fatalf("total = %d, want 3700", q.TotalMinor)
	}

	// Coupon match is exact, lowercase earns nothing.
	q, err = f.svc.PriceCart(ctx, "user-1", "welcome")
	if err != nil {
		t.Fatalf("price: %v", err)
	}
	if q.DiscountMinor != 0 || q.TotalMinor != 4_000 {
		t.Fatalf("lowercase coupon: discount = %d total = %d, want 0 and 4000", q.DiscountMinor, q.TotalMinor)
	}
}

func TestCheckout_EmptyCart(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Checkout(context.Background(), "user-1", Request{Method: order.PaymentWallet})
	if !errors.Is(err, ErrEmptyCart) {
		t.Fatalf("err = %v, want ErrEmptyCart", err)
	}
}

func TestCheckout_UnknownMethod(t *testing.T) {
	f := newFixture(t)
	f.fillCart(t, "user-1")

	_, err := f.svc.Checkout(context.Background(), "user-1", Request{Method: "cheque"})
	if !errors.Is(err, ErrInvalidMethod) {
		t.Fatalf("err = %v, want ErrInvalidMethod", err)
	}
}

func TestCheckout_WalletInsufficientLeavesNoTrace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fillCart(t, "user-1")

	if _, _, err := f.ledger.Deposit(ctx, "user-1", 2_000); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	_, err := f.svc.Checkout(ctx, "user-1", Request{Method: order.PaymentWallet, CouponCode: "WELCOME"})
	if !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("err = %v, want ErrInsufficientFunds", err)
	}

	items, err := f.carts.Items(ctx, "user-1")
	if err != nil {
		t.Fatalf("items: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("cart has %d items after failed checkout, want 2", len(items))
	}

	orders, err := f.orders.List(ctx, "user-1")
	if err != nil {
		t.Fatalf("list orders: %v", err)
	}
	if len(orders) != 0 {
		t.Fatalf("found %d orders after failed checkout, want 0", len(orders))
	}

	w, err := f.ledger.GetOrCreateWallet(ctx, "user-1")
	if err != nil {
		t.Fatalf("wallet: %v", err)
	}
	if w.BalanceMinor != 2_000 {
		t.Fatalf("balance = %d after failed checkout, want 2000", w.BalanceMinor)
	}
}

func TestCheckout_WalletSuccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fillCart(t, "user-1")

	if _, _, err := f.ledger.Deposit(ctx, "user-1", 5_000); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	res, err := f.svc.Checkout(ctx, "user-1", Request{
		Method:          order.PaymentWallet,
		CouponCode:      "WELCOME",
		ShippingAddress: "1 Main St",
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if res.Order.Status != order.StatusProcessing {
		t.Fatalf("status = %q, want processing", res.Order.Status)
	}
	if res.Order.TotalMinor != 3_700 {
		t.Fatalf("total = %d, want 3700", res.Order.TotalMinor)
	}
	if len(res.Order.Items) != 2 {
		t.Fatalf("order snapshot has %d items, want 2", len(res.Order.Items))
	}
	if res.RedirectURL != "" {
		t.Fatalf("wallet payment returned redirect %q", res.RedirectURL)
	}

	w, err := f.ledger.GetOrCreateWallet(ctx, "user-1")
	if err != nil {
		t.Fatalf("wallet: %v", err)
	}
	if w.BalanceMinor != 1_300 {
		t.Fatalf("balance = %d, want 1300", w.BalanceMinor)
	}

	items, err := f.carts.Items(ctx, "user-1")
	if err != nil {
		t.Fatalf("items: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("cart has %d items after checkout, want 0", len(items))
	}

	txs, err := f.ledger.ListTransactions(ctx, "user-1")
	if err != nil {
		t.Fatalf("transactions: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("got %d transactions, want deposit and purchase", len(txs))
	}
	if txs[0].Type != ledger.TransactionPurchase || txs[0].AmountMinor != 3_700 {
		t.Fatalf("newest transaction = %+v, want purchase of 3700", txs[0])
	}
}

func TestCheckout_GatewayDefersCommit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fillCart(t, "user-1")

	res, err := f.svc.Checkout(ctx, "user-1", Request{Method: order.PaymentGateway})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if res.Order.Status != order.StatusPending {
		t.Fatalf("status = %q, want pending", res.Order.Status)
	}
	if res.Order.GatewayRef == "" {
		t.Fatal("gateway order has no reference")
	}
	if !strings.Contains(res.RedirectURL, res.Order.GatewayRef) {
		t.Fatalf("redirect %q does not carry reference %q", res.RedirectURL, res.Order.GatewayRef)
	}

	// The cart must survive until the payment confirms.
	items, err := f.carts.Items(ctx, "user-1")
	if err != nil {
		t.Fatalf("items: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("cart has %d items before confirmation, want 2", len(items))
	}

	confirmed, err := f.orders.ConfirmGatewayPayment(ctx, res.Order.GatewayRef)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if confirmed.Status != order.StatusProcessing {
		t.Fatalf("status = %q after confirmation, want processing", confirmed.Status)
	}

	items, err = f.carts.Items(ctx, "user-1")
	if err != nil {
		t.Fatalf("items: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("cart has %d items after confirmation, want 0", len(items))
	}

	// Gateway money never touched the wallet, only the statement.
	w, err := f.ledger.GetOrCreateWallet(ctx, "user-1")
	if err != nil {
		t.Fatalf("wallet: %v", err)
	}
	if w.BalanceMinor != 0 {
		t.Fatalf("balance = %d, want 0", w.BalanceMinor)
	}
	txs, err := f.ledger.ListTransactions(ctx, "user-1")
	if err != nil {
		t.Fatalf("transactions: %v", err)
	}
	if len(txs) != 1 || txs[0].Type != ledger.TransactionPurchase {
		t.Fatalf("transactions = %+v, want one purchase record", txs)
	}
}

func TestCheckout_UnresolvableProductFailsHard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fillCart(t, "user-1")

	// Simulate a product that was removed from the catalog after being carted.
	item, err := f.carts.AddItem(ctx, "user-1", "prod-mug", 1)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	item.ProductID = "prod-gone"
	if err := f.cartsRp.UpsertItem(ctx, item); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	_, err = f.svc.Checkout(ctx, "user-1", Request{Method: order.PaymentWallet})
	if !errors.Is(err, catalog.ErrProductNotFound) {
		t.Fatalf("err = %v, want ErrProductNotFound", err)
	}
	if !strings.Contains(err.Error(), "prod-gone") {
		t.Fatalf("error %q does not name the missing product", err)
	}
}
