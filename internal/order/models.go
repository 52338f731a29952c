package order

import (
	"errors"
	"time"
)

// Order is created at checkout with a computed total and an immutable item
// snapshot, decoupled from live catalog data. Status is the only field that
// changes after creation.
//
// Transitions: pending -> processing -> cancelled, pending -> cancelled.
// cancelled is terminal.
type Order struct {
	ID      string `json:"id" db:"id"`
	OwnerID string `json:"owner_id" db:"owner_id"`

	TotalMinor    int64         `json:"total_minor" db:"total_minor"`
	Status        Status        `json:"status" db:"status"`
	PaymentMethod PaymentMethod `json:"payment_method" db:"payment_method"`

	Items           []Item `json:"items" db:"items"`
	ShippingAddress string `json:"shipping_address,omitempty" db:"shipping_address"`

	// GatewayRef is the gateway's payment reference for gateway-paid orders;
	// empty for wallet-paid ones.
	GatewayRef string `json:"gateway_ref,omitempty" db:"gateway_ref"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Item is one snapshotted order line.
type Item struct {
	ProductID  string `json:"product_id"`
	Name       string `json:"name"`
	PriceMinor int64  `json:"price_minor"`
	Quantity   int    `json:"quantity"`
	TotalMinor int64  `json:"total_minor"`
}

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCancelled  Status = "cancelled"
)

type PaymentMethod string

const (
	PaymentWallet  PaymentMethod = "wallet"
	PaymentGateway PaymentMethod = "gateway"
)

var (
	ErrNotFound     = errors.New("order not found")
	ErrForbidden    = errors.New("access denied")
	ErrInvalidState = errors.New("invalid order state")
)
