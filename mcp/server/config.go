package server

import (
	"log/slog"

	"github.com/x402dev/x402-go"
	x402http "github.com/x402dev/x402-go/http"
)

// Config configures payment gating for an MCP server.
type Config struct {
	// FacilitatorConfig configures the facilitator used for verification
	// and settlement. Nil uses the default public facilitator.
	FacilitatorConfig *x402http.FacilitatorConfig

	// VerifyOnly skips settlement after a successful tool call. The
	// receipt injected into result._meta then has Success=false,
	// marking the settlement as skipped rather than failed.
	VerifyOnly bool

	// PaymentTools maps tool names to their accepted payment options.
	// Tools absent from the map are free.
	PaymentTools map[string][]x402.PaymentRequirement

	// Logger receives payment flow logs. Defaults to slog.Default().
	Logger *slog.Logger
}

// AddPaymentTool registers the payment options for a tool.
func (c *Config) AddPaymentTool(toolName string, requirements ...x402.PaymentRequirement) {
	if c.PaymentTools == nil {
		c.PaymentTools = make(map[string][]x402.PaymentRequirement)
	}
	c.PaymentTools[toolName] = requirements
}

// RequiresPayment reports whether a tool is payment gated.
func (c *Config) RequiresPayment(toolName string) bool {
	return len(c.PaymentTools[toolName]) > 0
}
