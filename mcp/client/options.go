package client

import (
	"math/big"

	"github.com/x402dev/x402-go"
)

type config struct {
	signers  []x402.Signer
	selector x402.PaymentSelector
	maxValue *big.Int

	onAttempt x402.PaymentCallback
	onSuccess x402.PaymentCallback
	onFailure x402.PaymentCallback
}

// Option configures a Transport.
type Option func(*config)

// WithSigner adds a payment signer. Signers are consulted in the order
// they are added, subject to their priorities.
func WithSigner(signer x402.Signer) Option {
	return func(c *config) {
		c.signers = append(c.signers, signer)
	}
}

// WithSelector replaces the default payment selection strategy.
func WithSelector(selector x402.PaymentSelector) Option {
	return func(c *config) {
		c.selector = selector
	}
}

// WithMaxValue caps the per-payment amount in atomic units. Inclusive.
// Ignored when a custom selector is set.
func WithMaxValue(maxValue *big.Int) Option {
	return func(c *config) {
		c.maxValue = maxValue
	}
}

// WithPaymentHandler registers one callback for every payment lifecycle
// event.
func WithPaymentHandler(callback x402.PaymentCallback) Option {
	return func(c *config) {
		c.onAttempt = callback
		c.onSuccess = callback
		c.onFailure = callback
	}
}

// WithPaymentCallbacks registers separate callbacks per lifecycle stage.
// Any of them may be nil.
func WithPaymentCallbacks(attempt, success, failure x402.PaymentCallback) Option {
	return func(c *config) {
		c.onAttempt = attempt
		c.onSuccess = success
		c.onFailure = failure
	}
}
