package ledger

import "context"

// Repository is the persistence contract for wallets and transactions.
//
// Transactions are append-only; no Update/Delete methods exist by design.
// ApplyChange must persist the wallet update and the transaction append
// atomically: either both are visible or neither is.
type Repository interface {
	GetWallet(ctx context.Context, ownerID string) (Wallet, bool, error)
	CreateWallet(ctx context.Context, w Wallet) error

	ApplyChange(ctx context.Context, w Wallet, t Transaction) error
	AppendTransaction(ctx context.Context, t Transaction) error

	FindByReference(ctx context.Context, ownerID, reference string) (Transaction, bool, error)
	ListTransactions(ctx context.Context, ownerID string) ([]Transaction, error)
	GetTransaction(ctx context.Context, id string) (Transaction, bool, error)
}
