// Package mcp carries the x402 payment protocol over MCP (Model Context
// Protocol) JSON-RPC. Payments travel in request metadata instead of HTTP
// headers: the client attaches the signed payment under
// params._meta["x402/payment"], and the server returns the settlement
// receipt under result._meta["x402/payment-response"]. A payment demand
// is a JSON-RPC error with code 402 whose data block mirrors the HTTP
// 402 body.
package mcp

import "github.com/x402dev/x402-go"

// Metadata keys for payment data in MCP messages.
const (
	// MetaKeyPayment holds the signed payment in request params._meta.
	MetaKeyPayment = "x402/payment"

	// MetaKeyPaymentResponse holds the settlement receipt in result._meta.
	MetaKeyPaymentResponse = "x402/payment-response"
)

// PaymentRequiredCode is the JSON-RPC error code signaling that payment
// is required, mirroring the HTTP 402 status.
const PaymentRequiredCode = 402

// PaymentRequiredData is the data block of a 402 JSON-RPC error. It has
// the same shape as the HTTP 402 response body.
type PaymentRequiredData struct {
	X402Version int                       `json:"x402Version"`
	Error       string                    `json:"error"`
	Accepts     []x402.PaymentRequirement `json:"accepts"`
}

// ToolResource returns the canonical resource URL for a paid MCP tool.
func ToolResource(toolName string) string {
	return "mcp://tools/" + toolName
}
