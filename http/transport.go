package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"time"

	"github.com/x402dev/x402-go"
	"github.com/x402dev/x402-go/encoding"
)

// retryKeyType keys the retry marker in the request context. Carrying the
// marker on the context instead of transport state keeps RoundTrip free of
// shared mutable fields and scopes the marker to one request chain.
type retryKeyType struct{}

var retryKey retryKeyType

// X402Transport is an http.RoundTripper that pays for 402 responses: it
// decodes the payment requirements, signs a payment with one of the
// configured signers, and retries the request once with the X-PAYMENT
// header attached.
type X402Transport struct {
	// Base is the underlying RoundTripper. Defaults to http.DefaultTransport.
	Base http.RoundTripper

	// Signers are the available payment signers.
	Signers []x402.Signer

	// Selector picks the requirement and signer. Defaults to
	// x402.DefaultPaymentSelector.
	Selector x402.PaymentSelector

	// MaxValue caps the per-payment amount in atomic units when the
	// default selector is used. Inclusive.
	MaxValue *big.Int

	// OnPaymentAttempt is called just before the paid retry is sent.
	OnPaymentAttempt x402.PaymentCallback

	// OnPaymentSuccess is called when the retry carries a successful
	// settlement receipt.
	OnPaymentSuccess x402.PaymentCallback

	// OnPaymentFailure is called when signing or the paid retry fails.
	OnPaymentFailure x402.PaymentCallback
}

// RoundTrip implements http.RoundTripper. The caller's request is never
// mutated; every propagated failure is a *x402.PaymentError.
func (t *X402Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	resp, err := base.RoundTrip(req.Clone(req.Context()))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusPaymentRequired {
		return resp, nil
	}

	// A 402 on the paid retry is final: one payment per request chain.
	if req.Context().Value(retryKey) != nil {
		return resp, nil
	}

	requirements, err := decodeRequirementsResponse(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, x402.NewPaymentError(x402.ErrCodeNetworkError, "failed to parse payment requirements", err)
	}
	if requirements.X402Version != x402.X402Version {
		return nil, x402.NewPaymentError(x402.ErrCodeUnsupportedVersion,
			fmt.Sprintf("server requires protocol version %d", requirements.X402Version),
			x402.ErrUnsupportedVersion)
	}

	selector := t.Selector
	if selector == nil {
		selector = &x402.DefaultPaymentSelector{MaxValue: t.MaxValue}
	}

	startTime := time.Now()

	payment, requirement, err := selector.SelectAndSign(requirements.Accepts, t.Signers)
	if err != nil {
		t.failure(req, err, time.Since(startTime))
		return nil, asPaymentError(err, x402.ErrCodeNoValidSigner, "payment selection failed")
	}

	header, err := encoding.EncodePayment(payment)
	if err != nil {
		t.failure(req, err, time.Since(startTime))
		return nil, x402.NewPaymentError(x402.ErrCodeSigningFailed, "failed to encode payment header", err)
	}

	if t.OnPaymentAttempt != nil {
		t.OnPaymentAttempt(x402.PaymentEvent{
			Type:      x402.PaymentEventAttempt,
			Timestamp: startTime,
			Method:    "HTTP",
			URL:       req.URL.String(),
			Network:   payment.Network,
			Scheme:    payment.Scheme,
			Amount:    requirement.MaxAmountRequired,
			Asset:     requirement.Asset,
			Recipient: requirement.PayTo,
		})
	}

	retry := req.Clone(context.WithValue(req.Context(), retryKey, true))
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			t.failure(req, err, time.Since(startTime))
			return nil, x402.NewPaymentError(x402.ErrCodeNetworkError, "failed to rewind request body for retry", err)
		}
		retry.Body = body
	}
	retry.Header.Set("X-PAYMENT", header)
	retry.Header.Set("Access-Control-Expose-Headers", "X-PAYMENT-RESPONSE")

	respRetry, err := base.RoundTrip(retry)
	duration := time.Since(startTime)
	if err != nil {
		t.failure(req, err, duration)
		return nil, x402.NewPaymentError(x402.ErrCodeNetworkError, "paid retry failed", err)
	}

	if t.OnPaymentSuccess != nil {
		if settlement, err := ParseSettlementFromResponse(respRetry); err == nil && settlement.Success {
			t.OnPaymentSuccess(x402.PaymentEvent{
				Type:        x402.PaymentEventSuccess,
				Timestamp:   time.Now(),
				Method:      "HTTP",
				URL:         req.URL.String(),
				Network:     requirement.Network,
				Scheme:      requirement.Scheme,
				Amount:      requirement.MaxAmountRequired,
				Asset:       requirement.Asset,
				Recipient:   requirement.PayTo,
				Transaction: settlement.Transaction,
				Payer:       settlement.Payer,
				Duration:    duration,
			})
		}
	}

	return respRetry, nil
}

func (t *X402Transport) failure(req *http.Request, err error, duration time.Duration) {
	if t.OnPaymentFailure == nil {
		return
	}
	t.OnPaymentFailure(x402.PaymentEvent{
		Type:      x402.PaymentEventFailure,
		Timestamp: time.Now(),
		Method:    "HTTP",
		URL:       req.URL.String(),
		Error:     err,
		Duration:  duration,
	})
}

// decodeRequirementsResponse parses a 402 response body.
func decodeRequirementsResponse(body io.Reader) (*x402.PaymentRequirementsResponse, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read 402 response body: %w", err)
	}

	var requirements x402.PaymentRequirementsResponse
	if err := json.Unmarshal(data, &requirements); err != nil {
		return nil, fmt.Errorf("failed to parse 402 response body: %w", err)
	}
	// An empty accepts list is left for the selector, which reports it as
	// an unsupported scheme after exhausting its candidates.
	return &requirements, nil
}

// asPaymentError ensures err is a *x402.PaymentError, wrapping it with the
// given code when it is not one already.
func asPaymentError(err error, code x402.ErrorCode, message string) error {
	if _, ok := err.(*x402.PaymentError); ok {
		return err
	}
	return x402.NewPaymentError(code, message, err)
}

// ParseSettlementFromResponse decodes the X-PAYMENT-RESPONSE receipt from
// a paid response. Returns ErrMalformedHeader-derived errors for garbage
// and a plain error when the header is absent.
func ParseSettlementFromResponse(resp *http.Response) (*x402.SettlementResponse, error) {
	header := resp.Header.Get("X-PAYMENT-RESPONSE")
	if header == "" {
		return nil, fmt.Errorf("no X-PAYMENT-RESPONSE header in response")
	}
	return encoding.DecodeSettlement(header)
}
