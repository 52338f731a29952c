package ledger

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

func newTestService() (*Service, *MemoryRepo) {
	repo := NewMemoryRepo()
	svc := NewService(repo)
	return svc, repo
}

func mustInvariant(t *testing.T, w Wallet) {
	t.Helper()
	if w.BalanceMinor != w.TotalIncomeMinor-w.TotalExpensesMinor {
		t.Fatalf("invariant broken: balance=%d income=%d expenses=%d", w.BalanceMinor, w.TotalIncomeMinor, w.TotalExpensesMinor)
	}
	if w.BalanceMinor < 0 {
		t.Fatalf("negative balance: %d", w.BalanceMinor)
	}
}

func TestGetOrCreateWallet_LazyCreation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	w, err := svc.GetOrCreateWallet(ctx, "u1")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if w.BalanceMinor != 0 || w.TotalIncomeMinor != 0 || w.TotalExpensesMinor != 0 {
		t.Fatalf("expected zeroed wallet, got %+v", w)
	}
	if !strings.HasPrefix(w.Address, "0x") {
		t.Fatalf("expected 0x address, got %q", w.Address)
	}

	again, err := svc.GetOrCreateWallet(ctx, "u1")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if again.ID != w.ID {
		t.Fatalf("expected same wallet on second access")
	}
}

func TestCredit_RejectsNonPositiveAmount(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	for _, amt := range []int64{0, -1} {
		_, _, err := svc.Credit(ctx, "u1", ChangeRequest{AmountMinor: amt, Type: TransactionDeposit})
		if !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("amount %d: expected ErrInvalidAmount, got %v", amt, err)
		}
	}
}

func TestDebit_InsufficientFundsLeavesNoTrace(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	if _, _, err := svc.Credit(ctx, "u1", ChangeRequest{AmountMinor: 2000, Type: TransactionDeposit, Description: "seed"}); err != nil {
		t.Fatalf("seed credit: %v", err)
	}

	_, _, err := svc.Debit(ctx, "u1", ChangeRequest{AmountMinor: 3700, Type: TransactionPurchase})
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	w, _, _ := repo.GetWallet(ctx, "u1")
	if w.BalanceMinor != 2000 {
		t.Fatalf("balance mutated on failed debit: %d", w.BalanceMinor)
	}
	txs, _ := repo.ListTransactions(ctx, "u1")
	if len(txs) != 1 {
		t.Fatalf("expected only the seed transaction, got %d", len(txs))
	}
	mustInvariant(t, w)
}

func TestDepositWithdraw_RoundTrip(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	w, tx, err := svc.Deposit(ctx, "u1", 5000)
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if tx.Type != TransactionDeposit || tx.AmountMinor != 5000 {
		t.Fatalf("unexpected deposit tx: %+v", tx)
	}
	if tx.Description != "Wallet deposit" {
		t.Fatalf("unexpected description: %q", tx.Description)
	}
	mustInvariant(t, w)

	w, tx, err = svc.Withdraw(ctx, "u1", 5000, "0xabcdef1234567890")
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if tx.Type != TransactionWithdraw {
		t.Fatalf("unexpected withdraw tx: %+v", tx)
	}
	if !strings.HasPrefix(tx.Description, "Withdrawal to 0xabcdef") {
		t.Fatalf("unexpected description: %q", tx.Description)
	}
	if w.BalanceMinor != 0 {
		t.Fatalf("expected balance back to 0, got %d", w.BalanceMinor)
	}
	if w.TotalIncomeMinor != 5000 || w.TotalExpensesMinor != 5000 {
		t.Fatalf("expected both totals at 5000, got %+v", w)
	}
	mustInvariant(t, w)
}

func TestDeposit_EnforcesBounds(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if _, _, err := svc.Deposit(ctx, "u1", 999); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount below minimum, got %v", err)
	}
	if _, _, err := svc.Deposit(ctx, "u1", 1_000_001); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount above maximum, got %v", err)
	}
}

func TestWithdraw_RequiresAddress(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if _, _, err := svc.Deposit(ctx, "u1", 5000); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if _, _, err := svc.Withdraw(ctx, "u1", 1000, ""); !errors.Is(err, ErrAddressRequired) {
		t.Fatalf("expected ErrAddressRequired, got %v", err)
	}
}

func TestCredit_RefundRestoresExpenses(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if _, _, err := svc.Deposit(ctx, "u1", 5000); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if _, _, err := svc.Debit(ctx, "u1", ChangeRequest{AmountMinor: 3700, Type: TransactionPurchase, Description: "Order payment"}); err != nil {
		t.Fatalf("debit: %v", err)
	}

	w, tx, err := svc.Credit(ctx, "u1", ChangeRequest{
		AmountMinor: 3700,
		Type:        TransactionRefund,
		Description: "Order cancellation refund",
		Reference:   "refund-order-1",
	})
	if err != nil {
		t.Fatalf("refund: %v", err)
	}
	if tx.Type != TransactionRefund {
		t.Fatalf("unexpected tx type: %v", tx.Type)
	}
	if w.BalanceMinor != 5000 {
		t.Fatalf("expected balance restored to 5000, got %d", w.BalanceMinor)
	}
	if w.TotalExpensesMinor != 0 {
		t.Fatalf("expected expenses restored to 0, got %d", w.TotalExpensesMinor)
	}
	if w.TotalIncomeMinor != 5000 {
		t.Fatalf("refund must not count as income, got %d", w.TotalIncomeMinor)
	}
	mustInvariant(t, w)
}

func TestCredit_IdempotentOnReference(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	req := ChangeRequest{AmountMinor: 2500, Type: TransactionDeposit, Reference: "ref-1"}
	if _, _, err := svc.Credit(ctx, "u1", req); err != nil {
		t.Fatalf("first credit: %v", err)
	}
	w, tx, err := svc.Credit(ctx, "u1", req)
	if err != nil {
		t.Fatalf("replayed credit: %v", err)
	}
	if w.BalanceMinor != 2500 {
		t.Fatalf("replay must not mutate balance, got %d", w.BalanceMinor)
	}
	if tx.Reference != "ref-1" {
		t.Fatalf("expected original entry back, got %+v", tx)
	}
	txs, _ := svc.ListTransactions(ctx, "u1")
	if len(txs) != 1 {
		t.Fatalf("expected single ledger entry, got %d", len(txs))
	}
}

func TestRecord_AppendsWithoutBalanceChange(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	tx, err := svc.Record(ctx, "u1", ChangeRequest{
		AmountMinor: 3700,
		Type:        TransactionPurchase,
		Description: "Order payment via gateway",
		Reference:   "gw-ref-1",
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if tx.Status != StatusCompleted {
		t.Fatalf("unexpected status: %v", tx.Status)
	}

	w, err := svc.GetOrCreateWallet(ctx, "u1")
	if err != nil {
		t.Fatalf("wallet: %v", err)
	}
	if w.BalanceMinor != 0 || w.TotalExpensesMinor != 0 {
		t.Fatalf("record must not touch wallet, got %+v", w)
	}

	// Replaying the callback reference appends nothing new.
	if _, err := svc.Record(ctx, "u1", ChangeRequest{AmountMinor: 3700, Type: TransactionPurchase, Reference: "gw-ref-1"}); err != nil {
		t.Fatalf("replay: %v", err)
	}
	txs, _ := svc.ListTransactions(ctx, "u1")
	if len(txs) != 1 {
		t.Fatalf("expected single entry after replay, got %d", len(txs))
	}
}

func TestListTransactions_NewestFirst(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	base := time.Unix(1700000000, 0).UTC()
	step := 0
	svc.clock = func() time.Time {
		step++
		return base.Add(time.Duration(step) * time.Second)
	}

	for i, amt := range []int64{1000, 2000, 3000} {
		req := ChangeRequest{AmountMinor: amt, Type: TransactionDeposit, Reference: refFor(i)}
		if _, _, err := svc.Credit(ctx, "u1", req); err != nil {
			t.Fatalf("credit %d: %v", i, err)
		}
	}

	txs, err := svc.ListTransactions(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(txs) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(txs))
	}
	if txs[0].AmountMinor != 3000 || txs[2].AmountMinor != 1000 {
		t.Fatalf("expected newest first, got %v %v %v", txs[0].AmountMinor, txs[1].AmountMinor, txs[2].AmountMinor)
	}
}

func refFor(i int) string {
	return string(rune('a' + i))
}

func TestGetTransaction_EnforcesOwnership(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, tx, err := svc.Deposit(ctx, "u1", 2000)
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}

	if _, err := svc.GetTransaction(ctx, tx.ID, "u2"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if _, err := svc.GetTransaction(ctx, "missing", "u1"); !errors.Is(err, ErrTransactionNotFound) {
		t.Fatalf("expected ErrTransactionNotFound, got %v", err)
	}
	got, err := svc.GetTransaction(ctx, tx.ID, "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != tx.ID {
		t.Fatalf("unexpected entry: %+v", got)
	}
}

func TestDebit_ConcurrentAttemptsNeverOverdraw(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	const balance = 10_000
	const workers = 10
	attempt := int64(balance/workers + 1) // 1001: at most 9 can succeed

	if _, _, err := svc.Credit(ctx, "u1", ChangeRequest{AmountMinor: balance, Type: TransactionDeposit}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := svc.Debit(ctx, "u1", ChangeRequest{AmountMinor: attempt, Type: TransactionPurchase})
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			} else if !errors.Is(err, ErrInsufficientFunds) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if max := balance / int(attempt); successes > max {
		t.Fatalf("too many successful debits: %d > %d", successes, max)
	}

	w, _, _ := repo.GetWallet(ctx, "u1")
	mustInvariant(t, w)
	if w.BalanceMinor != int64(balance)-int64(successes)*attempt {
		t.Fatalf("balance %d does not match %d successful debits", w.BalanceMinor, successes)
	}
}
