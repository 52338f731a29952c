package order

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// PostgresRepo persists orders in Postgres.
//
// Assumed table: orders, with the item snapshot stored as JSONB and a
// nullable unique gateway_ref. Rows are inserted once; only status and
// updated_at change afterwards.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

const orderColumns = `id, owner_id, total_minor, status, payment_method, items, shipping_address, gateway_ref, created_at, updated_at`

func (r *PostgresRepo) Create(ctx context.Context, o Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO orders (` + orderColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
`
	_, err = r.db.ExecContext(ctx, q,
		o.ID,
		o.OwnerID,
		o.TotalMinor,
		o.Status,
		o.PaymentMethod,
		items,
		o.ShippingAddress,
		nullable(o.GatewayRef),
		o.CreatedAt,
		o.UpdatedAt,
	)
	return err
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (Order, bool, error) {
	const q = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	return r.queryOne(ctx, q, id)
}

func (r *PostgresRepo) List(ctx context.Context, ownerID string) ([]Order, error) {
	const q = `
SELECT ` + orderColumns + `
FROM orders
WHERE owner_id = $1
ORDER BY created_at DESC
`
	return r.queryMany(ctx, q, ownerID)
}

func (r *PostgresRepo) UpdateStatusFrom(ctx context.Context, id string, from, to Status, updatedAt time.Time) (bool, error) {
	const q = `UPDATE orders SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2`
	res, err := r.db.ExecContext(ctx, q, id, from, to, updatedAt)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *PostgresRepo) FindByGatewayRef(ctx context.Context, reference string) (Order, bool, error) {
	const q = `SELECT ` + orderColumns + ` FROM orders WHERE gateway_ref = $1`
	return r.queryOne(ctx, q, reference)
}

func (r *PostgresRepo) ListPendingGatewayBefore(ctx context.Context, cutoff time.Time) ([]Order, error) {
	const q = `
SELECT ` + orderColumns + `
FROM orders
WHERE payment_method = $1 AND status = $2 AND created_at < $3
`
	return r.queryMany(ctx, q, PaymentGateway, StatusPending, cutoff)
}

func (r *PostgresRepo) queryOne(ctx context.Context, q string, args ...any) (Order, bool, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx, q, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Order{}, false, nil
		}
		return Order{}, false, err
	}
	return o, true, nil
}

func (r *PostgresRepo) queryMany(ctx context.Context, q string, args ...any) ([]Order, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (Order, error) {
	var o Order
	var items []byte
	var gatewayRef sql.NullString
	err := row.Scan(
		&o.ID,
		&o.OwnerID,
		&o.TotalMinor,
		&o.Status,
		&o.PaymentMethod,
		&items,
		&o.ShippingAddress,
		&gatewayRef,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return Order{}, err
	}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return Order{}, err
	}
	o.GatewayRef = gatewayRef.String
	return o, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
