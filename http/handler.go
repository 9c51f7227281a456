package http

import (
	"net/http"

	"github.com/x402dev/x402-go"
)

// HandlerOption configures RequirePayment.
type HandlerOption func(*Config)

// WithPrice sets the resource price.
func WithPrice(price x402.Price) HandlerOption {
	return func(c *Config) {
		c.Price = price
	}
}

// WithPayTo sets the payment recipient address.
func WithPayTo(payTo string) HandlerOption {
	return func(c *Config) {
		c.PayTo = payTo
	}
}

// WithNetwork sets the settlement network.
func WithNetwork(network string) HandlerOption {
	return func(c *Config) {
		c.Network = network
	}
}

// WithFacilitator sets the facilitator configuration.
func WithFacilitator(config *FacilitatorConfig) HandlerOption {
	return func(c *Config) {
		c.FacilitatorConfig = config
	}
}

// RequirePayment gates a single handler behind payment. It is sugar over
// NewPaymentMiddleware for routes mounted individually:
//
//	protected, err := x402http.RequirePayment(handler,
//		x402http.WithPrice(x402.Money("$0.01")),
//		x402http.WithPayTo(address))
func RequirePayment(handler http.Handler, opts ...HandlerOption) (http.Handler, error) {
	var config Config
	for _, opt := range opts {
		opt(&config)
	}

	middleware, err := NewPaymentMiddleware(config)
	if err != nil {
		return nil, err
	}
	return middleware(handler), nil
}
