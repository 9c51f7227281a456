package x402

import "time"

// PaymentEventType identifies the lifecycle stage of a payment attempt.
type PaymentEventType string

const (
	// PaymentEventAttempt is emitted just before a signed payment is sent.
	PaymentEventAttempt PaymentEventType = "attempt"

	// PaymentEventSuccess is emitted after a payment settles successfully.
	PaymentEventSuccess PaymentEventType = "success"

	// PaymentEventFailure is emitted when signing or the paid retry fails.
	PaymentEventFailure PaymentEventType = "failure"
)

// PaymentEvent carries observability data about a payment attempt.
// Events are delivered synchronously on the requesting goroutine, so
// callbacks should return quickly.
type PaymentEvent struct {
	// Type is the lifecycle stage this event reports.
	Type PaymentEventType

	// Timestamp is when the event occurred.
	Timestamp time.Time

	// Method is the transport that triggered the payment ("HTTP" or "MCP").
	Method string

	// URL is the resource the payment was made for.
	URL string

	// Network is the blockchain network used for the payment.
	Network string

	// Scheme is the payment scheme used.
	Scheme string

	// Amount is the payment amount in atomic units.
	Amount string

	// Asset is the token contract address.
	Asset string

	// Recipient is the pay-to address.
	Recipient string

	// Transaction is the settlement transaction hash, when known.
	Transaction string

	// Payer is the settled payer address, when known.
	Payer string

	// Error is the failure cause for failure events.
	Error error

	// Duration is the elapsed time since the payment attempt started.
	Duration time.Duration
}

// PaymentCallback receives payment lifecycle events.
type PaymentCallback func(PaymentEvent)
