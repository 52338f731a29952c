package ledger

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/kingofthenorth124/paymarket/pkg/utils"

	"github.com/google/uuid"
)

// Deposit/withdrawal bounds, in minor units.
const (
	MinDepositMinor  = 1_000     // $10
	MaxDepositMinor  = 1_000_000 // $10,000
	MinWithdrawMinor = 1_000     // $10
)

// Service is the single authority for wallet balances and transaction history.
//
// Every Credit/Debit produces exactly one Transaction; Record appends a
// Transaction without touching the wallet (used for gateway-settled
// purchases, where the money never moved through the wallet).
//
// Concurrency: each money operation is a multi-step read-then-write sequence,
// so the service serializes all mutations per owner with a keyed mutex. There
// is no cross-owner contention.
type Service struct {
	repo  Repository
	owner *utils.KeyedMutex
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{
		repo:  repo,
		owner: utils.NewKeyedMutex(),
		clock: time.Now,
	}
}

// ChangeRequest describes one wallet-affecting operation.
type ChangeRequest struct {
	AmountMinor int64
	Type        TransactionType
	Description string

	// Reference is the idempotency token; generated when empty.
	Reference string
}

// GetOrCreateWallet returns the owner's wallet, creating it lazily with a
// zero balance and a fresh address on first access.
func (s *Service) GetOrCreateWallet(ctx context.Context, ownerID string) (Wallet, error) {
	if ownerID == "" {
		return Wallet{}, errors.New("ledger: owner id required")
	}

	unlock := s.owner.Lock(ownerID)
	defer unlock()
	return s.getOrCreateLocked(ctx, ownerID)
}

// Credit increases the balance and appends a Transaction atomically.
// A refund reverses the earlier debit: it restores TotalExpenses rather than
// growing TotalIncome, so both wallet totals return to their pre-purchase
// values. Every other credit kind counts as income.
func (s *Service) Credit(ctx context.Context, ownerID string, req ChangeRequest) (Wallet, Transaction, error) {
	if err := validateChange(ownerID, req); err != nil {
		return Wallet{}, Transaction{}, err
	}

	unlock := s.owner.Lock(ownerID)
	defer unlock()

	w, err := s.getOrCreateLocked(ctx, ownerID)
	if err != nil {
		return Wallet{}, Transaction{}, err
	}

	if req.Reference != "" {
		if existing, ok, err := s.repo.FindByReference(ctx, ownerID, req.Reference); err != nil {
			return Wallet{}, Transaction{}, err
		} else if ok {
			return w, existing, nil
		}
	}

	now := s.clock().UTC()
	w.BalanceMinor += req.AmountMinor
	if req.Type == TransactionRefund {
		w.TotalExpensesMinor -= req.AmountMinor
	} else {
		w.TotalIncomeMinor += req.AmountMinor
	}
	w.UpdatedAt = now

	t := s.newTransaction(ownerID, req, now)
	if err := s.repo.ApplyChange(ctx, w, t); err != nil {
		return Wallet{}, Transaction{}, err
	}
	return w, t, nil
}

// Debit decreases the balance and appends a Transaction atomically.
// Fails with ErrInsufficientFunds when the balance cannot cover the amount;
// nothing is written in that case.
func (s *Service) Debit(ctx context.Context, ownerID string, req ChangeRequest) (Wallet, Transaction, error) {
	if err := validateChange(ownerID, req); err != nil {
		return Wallet{}, Transaction{}, err
	}

	unlock := s.owner.Lock(ownerID)
	defer unlock()

	w, err := s.getOrCreateLocked(ctx, ownerID)
	if err != nil {
		return Wallet{}, Transaction{}, err
	}

	if req.Reference != "" {
		if existing, ok, err := s.repo.FindByReference(ctx, ownerID, req.Reference); err != nil {
			return Wallet{}, Transaction{}, err
		} else if ok {
			return w, existing, nil
		}
	}

	if w.BalanceMinor < req.AmountMinor {
		return Wallet{}, Transaction{}, ErrInsufficientFunds
	}

	now := s.clock().UTC()
	w.BalanceMinor -= req.AmountMinor
	w.TotalExpensesMinor += req.AmountMinor
	w.UpdatedAt = now

	t := s.newTransaction(ownerID, req, now)
	if err := s.repo.ApplyChange(ctx, w, t); err != nil {
		return Wallet{}, Transaction{}, err
	}
	return w, t, nil
}

// Record appends a Transaction without mutating the wallet. Used when the
// money settled outside the wallet (gateway payments) but the ledger must
// still carry the entry. Idempotent on reference.
func (s *Service) Record(ctx context.Context, ownerID string, req ChangeRequest) (Transaction, error) {
	if err := validateChange(ownerID, req); err != nil {
		return Transaction{}, err
	}

	unlock := s.owner.Lock(ownerID)
	defer unlock()

	if _, err := s.getOrCreateLocked(ctx, ownerID); err != nil {
		return Transaction{}, err
	}

	if req.Reference != "" {
		if existing, ok, err := s.repo.FindByReference(ctx, ownerID, req.Reference); err != nil {
			return Transaction{}, err
		} else if ok {
			return existing, nil
		}
	}

	t := s.newTransaction(ownerID, req, s.clock().UTC())
	if err := s.repo.AppendTransaction(ctx, t); err != nil {
		return Transaction{}, err
	}
	return t, nil
}

// Deposit tops up the wallet from an external source.
func (s *Service) Deposit(ctx context.Context, ownerID string, amountMinor int64) (Wallet, Transaction, error) {
	if amountMinor < MinDepositMinor {
		return Wallet{}, Transaction{}, fmt.Errorf("%w: minimum deposit is %d", ErrInvalidAmount, MinDepositMinor)
	}
	if amountMinor > MaxDepositMinor {
		return Wallet{}, Transaction{}, fmt.Errorf("%w: maximum deposit is %d", ErrInvalidAmount, MaxDepositMinor)
	}
	return s.Credit(ctx, ownerID, ChangeRequest{
		AmountMinor: amountMinor,
		Type:        TransactionDeposit,
		Description: "Wallet deposit",
	})
}

// Withdraw sends funds to an external address.
func (s *Service) Withdraw(ctx context.Context, ownerID string, amountMinor int64, address string) (Wallet, Transaction, error) {
	if amountMinor < MinWithdrawMinor {
		return Wallet{}, Transaction{}, fmt.Errorf("%w: minimum withdrawal is %d", ErrInvalidAmount, MinWithdrawMinor)
	}
	if address == "" {
		return Wallet{}, Transaction{}, ErrAddressRequired
	}
	short := address
	if len(short) > 8 {
		short = short[:8]
	}
	return s.Debit(ctx, ownerID, ChangeRequest{
		AmountMinor: amountMinor,
		Type:        TransactionWithdraw,
		Description: fmt.Sprintf("Withdrawal to %s...", short),
	})
}

// ListTransactions returns the owner's full history, newest first.
func (s *Service) ListTransactions(ctx context.Context, ownerID string) ([]Transaction, error) {
	return s.repo.ListTransactions(ctx, ownerID)
}

// GetTransaction returns a single entry, enforcing ownership.
func (s *Service) GetTransaction(ctx context.Context, id, ownerID string) (Transaction, error) {
	t, ok, err := s.repo.GetTransaction(ctx, id)
	if err != nil {
		return Transaction{}, err
	}
	if !ok {
		return Transaction{}, ErrTransactionNotFound
	}
	if t.OwnerID != ownerID {
		return Transaction{}, ErrForbidden
	}
	return t, nil
}

func (s *Service) getOrCreateLocked(ctx context.Context, ownerID string) (Wallet, error) {
	w, ok, err := s.repo.GetWallet(ctx, ownerID)
	if err != nil {
		return Wallet{}, err
	}
	if ok {
		return w, nil
	}

	now := s.clock().UTC()
	w = Wallet{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Address:   newAddress(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateWallet(ctx, w); err != nil {
		return Wallet{}, err
	}
	return w, nil
}

func (s *Service) newTransaction(ownerID string, req ChangeRequest, now time.Time) Transaction {
	ref := req.Reference
	if ref == "" {
		ref = uuid.NewString()
	}
	return Transaction{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Type:        req.Type,
		AmountMinor: req.AmountMinor,
		Description: req.Description,
		Status:      StatusCompleted,
		Reference:   ref,
		CreatedAt:   now,
	}
}

func validateChange(ownerID string, req ChangeRequest) error {
	if ownerID == "" {
		return errors.New("ledger: owner id required")
	}
	if req.AmountMinor <= 0 {
		return ErrInvalidAmount
	}
	switch req.Type {
	case TransactionDeposit, TransactionWithdraw, TransactionPurchase, TransactionRefund:
	default:
		return fmt.Errorf("%w: unknown transaction type %q", ErrInvalidAmount, req.Type)
	}
	return nil
}

func newAddress() string {
	var b [12]byte
	_, _ = rand.Read(b[:])
	return "0x" + hex.EncodeToString(b[:])
}
