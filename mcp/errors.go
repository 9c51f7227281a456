package mcp

import "errors"

// MCP-specific sentinels. Failures shared with the HTTP transport use
// the root x402 errors so callers match them uniformly with errors.Is.

var (
	// ErrNoPaymentRequirements indicates a 402 JSON-RPC error whose data
	// block offers no payment requirements.
	ErrNoPaymentRequirements = errors.New("mcp: no payment requirements in 402 error")

	// ErrPaymentRejected indicates the server rejected the payment on the
	// paid retry.
	ErrPaymentRejected = errors.New("mcp: payment rejected")
)
