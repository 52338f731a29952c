package gateway

import "context"

// Provider is the provider-agnostic payment gateway contract used by
// checkout.
//
// Rules:
// - No gateway SDK calls outside gateway adapters.
// - Business logic only ever sees the opaque reference and redirect URL.
type Provider interface {
	Name() string

	// Initialize starts a hosted payment for the given amount and returns
	// the redirect URL the buyer must visit plus the reference the gateway
	// will echo back on its confirmation callback.
	Initialize(ctx context.Context, req InitRequest) (InitResult, error)
}

// InitRequest describes the payment to initialize.
type InitRequest struct {
	OwnerID     string `json:"owner_id"`
	AmountMinor int64  `json:"amount_minor"`

	// Email is optional context for the hosted payment page.
	Email string `json:"email,omitempty"`
}

// InitResult carries what checkout needs to hand back to the caller.
type InitResult struct {
	// Reference is the opaque, unique payment reference.
	Reference string `json:"reference"`

	// RedirectURL is where the buyer completes the payment.
	RedirectURL string `json:"redirect_url"`
}
