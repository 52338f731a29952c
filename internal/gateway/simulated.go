package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/google/uuid"
)

// SimulatedProvider stands in for a real hosted-payment gateway. It mints a
// unique reference and points the buyer at this service's own callback
// endpoint, where visiting the URL plays the role of completing the payment.
type SimulatedProvider struct {
	callbackBaseURL string
}

func NewSimulatedProvider(callbackBaseURL string) *SimulatedProvider {
	return &SimulatedProvider{callbackBaseURL: callbackBaseURL}
}

func (p *SimulatedProvider) Name() string { return "simulated" }

func (p *SimulatedProvider) Initialize(ctx context.Context, req InitRequest) (InitResult, error) {
	_ = ctx
	if req.OwnerID == "" {
		return InitResult{}, errors.New("gateway: owner id required")
	}
	if req.AmountMinor <= 0 {
		return InitResult{}, errors.New("gateway: amount must be positive")
	}

	ref := uuid.NewString()
	return InitResult{
		Reference:   ref,
		RedirectURL: fmt.Sprintf("%s/v1/payments/callback?reference=%s", p.callbackBaseURL, url.QueryEscape(ref)),
	}, nil
}
