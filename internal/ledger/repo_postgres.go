package ledger

import (
	"context"
	"database/sql"
	"errors"

	"github.com/kingofthenorth124/paymarket/pkg/utils"
)

// PostgresRepo persists wallets and transactions in Postgres.
//
// Assumed tables:
// - wallets (one row per owner, UNIQUE (owner_id))
// - transactions (append-only, UNIQUE (owner_id, reference), bigserial seq
//   for stable ordering among equal timestamps)
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) GetWallet(ctx context.Context, ownerID string) (Wallet, bool, error) {
	const q = `
SELECT id, owner_id, balance_minor, total_income_minor, total_expenses_minor, address, created_at, updated_at
FROM wallets
WHERE owner_id = $1
`
	var w Wallet
	if err := r.db.QueryRowContext(ctx, q, ownerID).Scan(
		&w.ID,
		&w.OwnerID,
		&w.BalanceMinor,
		&w.TotalIncomeMinor,
		&w.TotalExpensesMinor,
		&w.Address,
		&w.CreatedAt,
		&w.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Wallet{}, false, nil
		}
		return Wallet{}, false, err
	}
	return w, true, nil
}

func (r *PostgresRepo) CreateWallet(ctx context.Context, w Wallet) error {
	const q = `
INSERT INTO wallets (
  id, owner_id, balance_minor, total_income_minor, total_expenses_minor, address, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8
)
`
	_, err := r.db.ExecContext(ctx, q,
		w.ID,
		w.OwnerID,
		w.BalanceMinor,
		w.TotalIncomeMinor,
		w.TotalExpensesMinor,
		w.Address,
		w.CreatedAt,
		w.UpdatedAt,
	)
	return err
}

func (r *PostgresRepo) ApplyChange(ctx context.Context, w Wallet, t Transaction) error {
	return utils.WithTx(ctx, r.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		// Lock the wallet row to serialize with any other writer that reaches
		// the database for the same owner.
		const lockQ = `SELECT id FROM wallets WHERE owner_id = $1 FOR UPDATE`
		var id string
		if err := tx.QueryRowContext(ctx, lockQ, w.OwnerID).Scan(&id); err != nil {
			return err
		}

		const updateQ = `
UPDATE wallets
SET balance_minor = $2, total_income_minor = $3, total_expenses_minor = $4, updated_at = $5
WHERE owner_id = $1
`
		if _, err := tx.ExecContext(ctx, updateQ,
			w.OwnerID,
			w.BalanceMinor,
			w.TotalIncomeMinor,
			w.TotalExpensesMinor,
			w.UpdatedAt,
		); err != nil {
			return err
		}

		return insertTransaction(ctx, tx, t)
	})
}

func (r *PostgresRepo) AppendTransaction(ctx context.Context, t Transaction) error {
	return utils.WithTx(ctx, r.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		return insertTransaction(ctx, tx, t)
	})
}

func insertTransaction(ctx context.Context, tx *sql.Tx, t Transaction) error {
	const q = `
INSERT INTO transactions (
  id, owner_id, type, amount_minor, description, status, reference, created_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8
)
`
	_, err := tx.ExecContext(ctx, q,
		t.ID,
		t.OwnerID,
		t.Type,
		t.AmountMinor,
		t.Description,
		t.Status,
		t.Reference,
		t.CreatedAt,
	)
	return err
}

func (r *PostgresRepo) FindByReference(ctx context.Context, ownerID, reference string) (Transaction, bool, error) {
	const q = `
SELECT id, owner_id, type, amount_minor, description, status, reference, created_at
FROM transactions
WHERE owner_id = $1 AND reference = $2
LIMIT 1
`
	t, err := scanTransaction(r.db.QueryRowContext(ctx, q, ownerID, reference))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Transaction{}, false, nil
		}
		return Transaction{}, false, err
	}
	return t, true, nil
}

func (r *PostgresRepo) ListTransactions(ctx context.Context, ownerID string) ([]Transaction, error) {
	const q = `
SELECT id, owner_id, type, amount_minor, description, status, reference, created_at
FROM transactions
WHERE owner_id = $1
ORDER BY created_at DESC, seq ASC
`
	rows, err := r.db.QueryContext(ctx, q, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) GetTransaction(ctx context.Context, id string) (Transaction, bool, error) {
	const q = `
SELECT id, owner_id, type, amount_minor, description, status, reference, created_at
FROM transactions
WHERE id = $1
`
	t, err := scanTransaction(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Transaction{}, false, nil
		}
		return Transaction{}, false, err
	}
	return t, true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (Transaction, error) {
	var t Transaction
	err := row.Scan(
		&t.ID,
		&t.OwnerID,
		&t.Type,
		&t.AmountMinor,
		&t.Description,
		&t.Status,
		&t.Reference,
		&t.CreatedAt,
	)
	return t, err
}
