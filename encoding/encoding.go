// Package encoding implements the base64-framed JSON codec used by the
// x402 wire headers, plus the hex rendering of 32-byte values (nonces)
// so that no other package hand-rolls it.
package encoding

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/x402dev/x402-go"
)

// EncodePayment renders a PaymentPayload as the X-PAYMENT header value:
// camelCase JSON, then standard base64 with padding.
func EncodePayment(payment *x402.PaymentPayload) (string, error) {
	data, err := json.Marshal(payment)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payment: %w", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// DecodePayment inverts EncodePayment. A value that is not valid base64
// or does not decode to valid JSON fails with x402.ErrMalformedHeader.
func DecodePayment(encoded string) (*x402.PaymentPayload, error) {
	var payment x402.PaymentPayload
	if err := decodeFrame(encoded, &payment); err != nil {
		return nil, err
	}
	return &payment, nil
}

// EncodeSettlement renders a SettlementResponse as the X-PAYMENT-RESPONSE
// header value.
func EncodeSettlement(settlement *x402.SettlementResponse) (string, error) {
	data, err := json.Marshal(settlement)
	if err != nil {
		return "", fmt.Errorf("failed to marshal settlement: %w", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// DecodeSettlement inverts EncodeSettlement.
func DecodeSettlement(encoded string) (*x402.SettlementResponse, error) {
	var settlement x402.SettlementResponse
	if err := decodeFrame(encoded, &settlement); err != nil {
		return nil, err
	}
	return &settlement, nil
}

// EncodeRequirements renders a full 402 response body as a base64 frame.
// Used where the requirements travel in a header or JSON-RPC error rather
// than an HTTP body.
func EncodeRequirements(requirements *x402.PaymentRequirementsResponse) (string, error) {
	data, err := json.Marshal(requirements)
	if err != nil {
		return "", fmt.Errorf("failed to marshal requirements: %w", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// DecodeRequirements inverts EncodeRequirements.
func DecodeRequirements(encoded string) (*x402.PaymentRequirementsResponse, error) {
	var requirements x402.PaymentRequirementsResponse
	if err := decodeFrame(encoded, &requirements); err != nil {
		return nil, err
	}
	return &requirements, nil
}

// decodeFrame unwraps base64 then JSON into v, mapping both failure modes
// to ErrMalformedHeader.
func decodeFrame(encoded string, v interface{}) error {
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return fmt.Errorf("%w: invalid base64: %v", x402.ErrMalformedHeader, err)
	}
	if err := json.Unmarshal(decoded, v); err != nil {
		return fmt.Errorf("%w: invalid JSON: %v", x402.ErrMalformedHeader, err)
	}
	return nil
}

// EncodeBytes32 renders a 32-byte value as 0x-prefixed lowercase hex,
// the on-wire form of an EIP-3009 nonce.
func EncodeBytes32(b [32]byte) string {
	return "0x" + hex.EncodeToString(b[:])
}

// DecodeBytes32 parses a 0x-prefixed 64-digit hex string into 32 bytes.
func DecodeBytes32(s string) ([32]byte, error) {
	var out [32]byte
	if !strings.HasPrefix(s, "0x") {
		return out, fmt.Errorf("%w: bytes32 value must be 0x-prefixed", x402.ErrMalformedHeader)
	}
	raw, err := hex.DecodeString(s[2:])
	if err != nil {
		return out, fmt.Errorf("%w: invalid hex: %v", x402.ErrMalformedHeader, err)
	}
	if len(raw) != 32 {
		return out, fmt.Errorf("%w: expected 32 bytes, got %d", x402.ErrMalformedHeader, len(raw))
	}
	copy(out[:], raw)
	return out, nil
}
