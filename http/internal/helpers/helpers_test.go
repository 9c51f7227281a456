package helpers

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/x402dev/x402-go"
	"github.com/x402dev/x402-go/encoding"
)

func validHeader(t *testing.T, version int) string {
	t.Helper()
	payload := x402.PaymentPayload{
		X402Version: version,
		Scheme:      x402.SchemeExact,
		Network:     x402.NetworkBSCMainnet,
		Payload: &x402.EVMPayload{
			Signature: "0x" + strings.Repeat("ab", 65),
			Authorization: x402.EVMAuthorization{
				From:        "0x1111111111111111111111111111111111111111",
				To:          "0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb0",
				Value:       "10000",
				ValidAfter:  "0",
				ValidBefore: "99999999999",
				Nonce:       "0x" + strings.Repeat("11", 32),
			},
		},
	}
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("failed to marshal payload: %v", err)
	}
	return base64.StdEncoding.EncodeToString(data)
}

func TestParsePaymentHeaderValid(t *testing.T) {
	payment, err := ParsePaymentHeader(validHeader(t, 1))
	if err != nil {
		t.Fatalf("ParsePaymentHeader failed: %v", err)
	}
	if payment.Network != x402.NetworkBSCMainnet || payment.Scheme != x402.SchemeExact {
		t.Errorf("unexpected payment %+v", payment)
	}
	if payment.Payload.Authorization.Value != "10000" {
		t.Errorf("authorization not decoded: %+v", payment.Payload)
	}
}

func TestParsePaymentHeaderMalformed(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"empty header", ""},
		{"invalid base64", "!!! garbage !!!"},
		{"base64 of invalid JSON", base64.StdEncoding.EncodeToString([]byte("nope"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParsePaymentHeader(tt.header); !errors.Is(err, x402.ErrMalformedHeader) {
				t.Errorf("expected ErrMalformedHeader, got %v", err)
			}
		})
	}
}

func TestParsePaymentHeaderVersion(t *testing.T) {
	_, err := ParsePaymentHeader(validHeader(t, 2))
	if !errors.Is(err, x402.ErrUnsupportedVersion) {
		t.Errorf("expected ErrUnsupportedVersion, got %v", err)
	}
}

func TestWriteJSONPaymentRequired(t *testing.T) {
	requirements := []x402.PaymentRequirement{{
		Scheme:            x402.SchemeExact,
		Network:           x402.NetworkBSCMainnet,
		MaxAmountRequired: "10000",
		Asset:             "0x036CbD53842c5426634e7929541eC2318f3dCF7e",
		PayTo:             "0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb0",
	}}

	rec := httptest.NewRecorder()
	WriteJSONPaymentRequired(rec, "No X-PAYMENT header provided", requirements)

	if rec.Code != http.StatusPaymentRequired {
		t.Errorf("expected 402, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected application/json, got %q", ct)
	}

	var body x402.PaymentRequirementsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.X402Version != 1 {
		t.Errorf("expected x402Version 1, got %d", body.X402Version)
	}
	if body.Error != "No X-PAYMENT header provided" {
		t.Errorf("unexpected error %q", body.Error)
	}
	if len(body.Accepts) != 1 || body.Accepts[0].MaxAmountRequired != "10000" {
		t.Errorf("unexpected accepts %+v", body.Accepts)
	}
}

func TestSetPaymentResponseHeader(t *testing.T) {
	header := http.Header{}
	settlement := &x402.SettlementResponse{
		Success:     true,
		Transaction: "0xabc",
		Network:     x402.NetworkBSCMainnet,
		Payer:       "0x1111111111111111111111111111111111111111",
	}

	if err := SetPaymentResponseHeader(header, settlement); err != nil {
		t.Fatalf("SetPaymentResponseHeader failed: %v", err)
	}

	decoded, err := encoding.DecodeSettlement(header.Get("X-PAYMENT-RESPONSE"))
	if err != nil {
		t.Fatalf("failed to decode header: %v", err)
	}
	if *decoded != *settlement {
		t.Errorf("round trip mismatch: got %+v, want %+v", decoded, settlement)
	}
}
