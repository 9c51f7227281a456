package server

import (
	"fmt"

	"github.com/x402dev/x402-go"
	"github.com/x402dev/x402-go/mcp"
)

// RequireUSDC builds a payment requirement for a tool priced in USDC,
// resolved against the network's token registry. Amount is the
// human-readable USDC amount, e.g. "0.01".
func RequireUSDC(network, payTo, amount, description string) (x402.PaymentRequirement, error) {
	requirement, err := x402.NewUSDCPaymentRequirement(x402.USDCRequirementConfig{
		Network:           network,
		Amount:            amount,
		RecipientAddress:  payTo,
		Description:       description,
		MaxTimeoutSeconds: 60,
	})
	if err != nil {
		return x402.PaymentRequirement{}, fmt.Errorf("invalid requirement: %w", err)
	}
	return requirement, nil
}

// SetToolResource stamps a requirement with the canonical resource URL
// for the named tool.
func SetToolResource(requirement *x402.PaymentRequirement, toolName string) {
	if requirement != nil && toolName != "" {
		requirement.Resource = mcp.ToolResource(toolName)
	}
}
