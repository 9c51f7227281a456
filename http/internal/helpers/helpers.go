// Package helpers holds the pieces of the payment middleware shared by
// the stdlib, Gin, chi, and PocketBase adapters: header parsing, the JSON
// 402 body, and the settlement receipt header.
package helpers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/x402dev/x402-go"
	"github.com/x402dev/x402-go/encoding"
)

// ParsePaymentHeader decodes an X-PAYMENT header value. An empty value is
// treated the same as a missing header.
//
// Returns an x402.ErrMalformedHeader-derived error for framing problems
// and x402.ErrUnsupportedVersion for a version other than 1.
func ParsePaymentHeader(headerValue string) (*x402.PaymentPayload, error) {
	if headerValue == "" {
		return nil, fmt.Errorf("%w: empty X-PAYMENT header", x402.ErrMalformedHeader)
	}

	payment, err := encoding.DecodePayment(headerValue)
	if err != nil {
		return nil, err
	}
	if payment.X402Version != x402.X402Version {
		return nil, fmt.Errorf("%w: %d", x402.ErrUnsupportedVersion, payment.X402Version)
	}
	return payment, nil
}

// PaymentRequiredResponse builds the JSON body of a 402 response.
func PaymentRequiredResponse(message string, requirements []x402.PaymentRequirement) x402.PaymentRequirementsResponse {
	return x402.PaymentRequirementsResponse{
		X402Version: x402.X402Version,
		Error:       message,
		Accepts:     requirements,
	}
}

// WriteJSONPaymentRequired emits a 402 with the JSON requirements body.
func WriteJSONPaymentRequired(w http.ResponseWriter, message string, requirements []x402.PaymentRequirement) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusPaymentRequired)
	// The status line is already committed; an encode failure here can
	// only truncate the body.
	_ = json.NewEncoder(w).Encode(PaymentRequiredResponse(message, requirements))
}

// SetPaymentResponseHeader attaches the settlement receipt as the
// X-PAYMENT-RESPONSE header. Must run before the response commits.
func SetPaymentResponseHeader(h http.Header, settlement *x402.SettlementResponse) error {
	encoded, err := encoding.EncodeSettlement(settlement)
	if err != nil {
		return err
	}
	h.Set("X-PAYMENT-RESPONSE", encoded)
	return nil
}
