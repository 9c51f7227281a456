package http

import (
	"math/big"
	"net/http"

	"github.com/x402dev/x402-go"
)

// Client is an http.Client that pays for 402 responses automatically via
// an X402Transport.
type Client struct {
	*http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client) error

// NewClient creates a payment-enabled HTTP client.
func NewClient(opts ...ClientOption) (*Client, error) {
	client := &Client{
		Client: &http.Client{Transport: http.DefaultTransport},
	}

	for _, opt := range opts {
		if err := opt(client); err != nil {
			return nil, err
		}
	}

	return client, nil
}

// WithHTTPClient sets the underlying HTTP client. Its transport becomes
// the base the payment transport wraps.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) error {
		c.Client = httpClient
		if c.Transport == nil {
			c.Transport = http.DefaultTransport
		}
		return nil
	}
}

// WithSigner adds a payment signer. Multiple signers may be added; the
// selector ranks them by priority.
func WithSigner(signer x402.Signer) ClientOption {
	return func(c *Client) error {
		transport := c.transport()
		transport.Signers = append(transport.Signers, signer)
		return nil
	}
}

// WithSelector sets a custom payment selector.
func WithSelector(selector x402.PaymentSelector) ClientOption {
	return func(c *Client) error {
		c.transport().Selector = selector
		return nil
	}
}

// WithMaxValue caps the per-payment amount in atomic units. The cap is
// inclusive and applies to the default selector.
func WithMaxValue(max *big.Int) ClientOption {
	return func(c *Client) error {
		c.transport().MaxValue = max
		return nil
	}
}

// WithPaymentCallbacks sets payment lifecycle callbacks. Pass nil for any
// callback to leave it unset.
func WithPaymentCallbacks(onAttempt, onSuccess, onFailure x402.PaymentCallback) ClientOption {
	return func(c *Client) error {
		transport := c.transport()
		if onAttempt != nil {
			transport.OnPaymentAttempt = onAttempt
		}
		if onSuccess != nil {
			transport.OnPaymentSuccess = onSuccess
		}
		if onFailure != nil {
			transport.OnPaymentFailure = onFailure
		}
		return nil
	}
}

// transport returns the client's X402Transport, wrapping the current
// transport on first use.
func (c *Client) transport() *X402Transport {
	if transport, ok := c.Transport.(*X402Transport); ok {
		return transport
	}
	transport := &X402Transport{Base: c.Transport}
	c.Transport = transport
	return transport
}
