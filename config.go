package x402

import (
	"fmt"
	"time"
)

// TimeoutConfig controls the per-phase deadlines used when talking to a
// facilitator. Verification is a cheap signature check; settlement waits
// for a transaction to land on chain, so it gets a much longer budget.
type TimeoutConfig struct {
	// VerifyTimeout bounds a single facilitator verify call.
	VerifyTimeout time.Duration

	// SettleTimeout bounds a single facilitator settle call.
	SettleTimeout time.Duration

	// RequestTimeout bounds an entire client payment round trip,
	// including the retried request.
	RequestTimeout time.Duration
}

// DefaultTimeouts are the timeouts used when none are configured.
var DefaultTimeouts = TimeoutConfig{
	VerifyTimeout:  5 * time.Second,
	SettleTimeout:  60 * time.Second,
	RequestTimeout: 120 * time.Second,
}

// Validate checks that the configured timeouts are internally consistent.
func (c TimeoutConfig) Validate() error {
	if c.VerifyTimeout <= 0 {
		return fmt.Errorf("%w: verify timeout must be positive, got %v", ErrInvalidConfig, c.VerifyTimeout)
	}
	if c.SettleTimeout <= 0 {
		return fmt.Errorf("%w: settle timeout must be positive, got %v", ErrInvalidConfig, c.SettleTimeout)
	}
	if c.SettleTimeout < c.VerifyTimeout {
		return fmt.Errorf("%w: settle timeout %v is shorter than verify timeout %v", ErrInvalidConfig, c.SettleTimeout, c.VerifyTimeout)
	}
	return nil
}

// WithVerifyTimeout returns a copy of the config with the verify timeout set.
func (c TimeoutConfig) WithVerifyTimeout(d time.Duration) TimeoutConfig {
	c.VerifyTimeout = d
	return c
}

// WithSettleTimeout returns a copy of the config with the settle timeout set.
func (c TimeoutConfig) WithSettleTimeout(d time.Duration) TimeoutConfig {
	c.SettleTimeout = d
	return c
}

// WithRequestTimeout returns a copy of the config with the request timeout set.
func (c TimeoutConfig) WithRequestTimeout(d time.Duration) TimeoutConfig {
	c.RequestTimeout = d
	return c
}
