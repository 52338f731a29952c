package ledger

import (
	"errors"
	"time"
)

// Wallet is a user's stored-value balance plus running income/expense totals.
//
// Money invariants:
// - BalanceMinor == TotalIncomeMinor - TotalExpensesMinor at every observable point
// - BalanceMinor >= 0 always; debits that would break this are rejected
// - No balance change without a corresponding Transaction append
//
// Wallets are created lazily on first access, one per owner, never deleted.
// All amounts are in minor units (cents).
type Wallet struct {
	ID      string `json:"id" db:"id"`
	OwnerID string `json:"owner_id" db:"owner_id"`

	BalanceMinor       int64 `json:"balance_minor" db:"balance_minor"`
	TotalIncomeMinor   int64 `json:"total_income_minor" db:"total_income_minor"`
	TotalExpensesMinor int64 `json:"total_expenses_minor" db:"total_expenses_minor"`

	// Address is the wallet's deposit address, generated at creation.
	Address string `json:"address" db:"address"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Transaction is an immutable append-only ledger entry.
// Entries are never updated or deleted once written.
type Transaction struct {
	ID      string `json:"id" db:"id"`
	OwnerID string `json:"owner_id" db:"owner_id"`

	Type TransactionType `json:"type" db:"type"`

	// AmountMinor is always positive; Type determines the direction.
	AmountMinor int64  `json:"amount_minor" db:"amount_minor"`
	Description string `json:"description" db:"description"`

	Status TransactionStatus `json:"status" db:"status"`

	// Reference is a unique idempotency token. Replaying an operation with an
	// already-seen reference returns the original entry without re-applying.
	Reference string `json:"reference" db:"reference"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type TransactionType string

const (
	TransactionDeposit  TransactionType = "deposit"
	TransactionWithdraw TransactionType = "withdraw"
	TransactionPurchase TransactionType = "purchase"
	TransactionRefund   TransactionType = "refund"
)

type TransactionStatus string

const (
	StatusCompleted TransactionStatus = "completed"
	StatusPending   TransactionStatus = "pending"
	StatusFailed    TransactionStatus = "failed"
)

var (
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrAddressRequired     = errors.New("destination address required")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrForbidden           = errors.New("access denied")
)
