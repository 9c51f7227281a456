package server

import (
	"context"

	"github.com/x402dev/x402-go"
	x402http "github.com/x402dev/x402-go/http"
)

// Facilitator verifies and settles payments for gated tools. The
// production implementation is *x402http.FacilitatorClient; tests swap
// in stubs.
type Facilitator interface {
	Verify(ctx context.Context, payment *x402.PaymentPayload, requirement *x402.PaymentRequirement) (*x402http.VerifyResponse, error)
	Settle(ctx context.Context, payment *x402.PaymentPayload, requirement *x402.PaymentRequirement) (*x402.SettlementResponse, error)
}

var _ Facilitator = (*x402http.FacilitatorClient)(nil)
