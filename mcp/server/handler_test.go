package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/x402dev/x402-go"
	x402http "github.com/x402dev/x402-go/http"
	"github.com/x402dev/x402-go/mcp"
)

const (
	testPayTo = "0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb0"
	testUSDC  = "0x036CbD53842c5426634e7929541eC2318f3dCF7e"
)

// fakeFacilitator scripts verify and settle outcomes.
type fakeFacilitator struct {
	rejectVerify  bool
	invalidReason string
	rejectSettle  bool
	errorReason   string
	verifyCalls   int
	settleCalls   int
}

func (f *fakeFacilitator) server(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/verify":
			f.verifyCalls++
			json.NewEncoder(w).Encode(x402http.VerifyResponse{
				IsValid:       !f.rejectVerify,
				InvalidReason: f.invalidReason,
				Payer:         "0x1111111111111111111111111111111111111111",
			})
		case "/settle":
			f.settleCalls++
			json.NewEncoder(w).Encode(x402.SettlementResponse{
				Success:     !f.rejectSettle,
				ErrorReason: f.errorReason,
				Network:     x402.NetworkBSCMainnet,
				Transaction: "0xabc",
			})
		}
	}))
}

// toolHandler is a stand-in MCP server that answers every call with a
// fixed JSON-RPC response.
func toolHandler(t *testing.T, body string) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, body)
	})
}

func testRequirement() x402.PaymentRequirement {
	return x402.PaymentRequirement{
		Scheme:            x402.SchemeExact,
		Network:           x402.NetworkBSCMainnet,
		MaxAmountRequired: "10000",
		Asset:             testUSDC,
		PayTo:             testPayTo,
		MaxTimeoutSeconds: 60,
	}
}

func newHandler(t *testing.T, facilitatorURL, toolBody string, verifyOnly bool) *X402Handler {
	t.Helper()
	handler, err := NewX402Handler(toolHandler(t, toolBody), &Config{
		FacilitatorConfig: &x402http.FacilitatorConfig{URL: facilitatorURL},
		VerifyOnly:        verifyOnly,
		PaymentTools: map[string][]x402.PaymentRequirement{
			"premium": {testRequirement()},
		},
	})
	if err != nil {
		t.Fatalf("NewX402Handler failed: %v", err)
	}
	return handler
}

const successBody = `{"jsonrpc":"2.0","id":1,"result":{"content":[{"type":"text","text":"done"}]}}`

func toolCallBody(t *testing.T, tool string, payment *x402.PaymentPayload) string {
	t.Helper()
	params := map[string]interface{}{
		"name":      tool,
		"arguments": map[string]interface{}{},
	}
	if payment != nil {
		params["_meta"] = map[string]interface{}{mcp.MetaKeyPayment: payment}
	}
	body, err := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "tools/call",
		"params":  params,
	})
	if err != nil {
		t.Fatalf("failed to build request body: %v", err)
	}
	return string(body)
}

func testPayment(network string) *x402.PaymentPayload {
	return &x402.PaymentPayload{
		X402Version: x402.X402Version,
		Scheme:      x402.SchemeExact,
		Network:     network,
		Payload: &x402.EVMPayload{
			Signature: "0x" + strings.Repeat("ab", 65),
			Authorization: x402.EVMAuthorization{
				From:        "0x1111111111111111111111111111111111111111",
				To:          testPayTo,
				Value:       "10000",
				ValidAfter:  "0",
				ValidBefore: "99999999999",
				Nonce:       "0x" + strings.Repeat("11", 32),
			},
		},
	}
}

func post(handler http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/mcp", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

type rpcError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type rpcEnvelope struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) rpcEnvelope {
	t.Helper()
	var envelope rpcEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
	return envelope
}

func TestHandlerPassthrough(t *testing.T) {
	facilitator := &fakeFacilitator{}
	server := facilitator.server(t)
	defer server.Close()

	handler := newHandler(t, server.URL, successBody, false)

	t.Run("non-POST", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/mcp", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("expected passthrough 200, got %d", rec.Code)
		}
	})

	t.Run("non tools/call", func(t *testing.T) {
		rec := post(handler, `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)
		envelope := decodeEnvelope(t, rec)
		if envelope.Error != nil {
			t.Errorf("free method must pass through, got error %+v", envelope.Error)
		}
	})

	t.Run("free tool", func(t *testing.T) {
		rec := post(handler, toolCallBody(t, "free-tool", nil))
		envelope := decodeEnvelope(t, rec)
		if envelope.Error != nil {
			t.Errorf("free tool must pass through, got error %+v", envelope.Error)
		}
	})

	if facilitator.verifyCalls != 0 || facilitator.settleCalls != 0 {
		t.Errorf("facilitator must not be called for free traffic: %d verify, %d settle",
			facilitator.verifyCalls, facilitator.settleCalls)
	}
}

func TestHandlerPaymentRequired(t *testing.T) {
	facilitator := &fakeFacilitator{}
	server := facilitator.server(t)
	defer server.Close()

	handler := newHandler(t, server.URL, successBody, false)
	rec := post(handler, toolCallBody(t, "premium", nil))

	envelope := decodeEnvelope(t, rec)
	if envelope.Error == nil || envelope.Error.Code != 402 {
		t.Fatalf("expected JSON-RPC 402, got %+v", envelope.Error)
	}

	var demand mcp.PaymentRequiredData
	if err := json.Unmarshal(envelope.Error.Data, &demand); err != nil {
		t.Fatalf("failed to decode 402 data: %v", err)
	}
	if demand.X402Version != 1 {
		t.Errorf("expected x402Version 1, got %d", demand.X402Version)
	}
	if len(demand.Accepts) != 1 {
		t.Fatalf("expected 1 requirement, got %d", len(demand.Accepts))
	}
	if demand.Accepts[0].Resource != "mcp://tools/premium" {
		t.Errorf("expected tool resource URL, got %q", demand.Accepts[0].Resource)
	}
	if demand.Accepts[0].MaxAmountRequired != "10000" {
		t.Errorf("unexpected amount %q", demand.Accepts[0].MaxAmountRequired)
	}
}

func TestHandlerPaidCall(t *testing.T) {
	facilitator := &fakeFacilitator{}
	server := facilitator.server(t)
	defer server.Close()

	handler := newHandler(t, server.URL, successBody, false)
	rec := post(handler, toolCallBody(t, "premium", testPayment(x402.NetworkBSCMainnet)))

	envelope := decodeEnvelope(t, rec)
	if envelope.Error != nil {
		t.Fatalf("expected success, got error %+v", envelope.Error)
	}
	if facilitator.verifyCalls != 1 || facilitator.settleCalls != 1 {
		t.Errorf("expected 1 verify and 1 settle, got %d/%d", facilitator.verifyCalls, facilitator.settleCalls)
	}

	var result struct {
		Meta map[string]json.RawMessage `json:"_meta"`
	}
	if err := json.Unmarshal(envelope.Result, &result); err != nil {
		t.Fatalf("failed to decode result: %v", err)
	}
	var settlement x402.SettlementResponse
	if err := json.Unmarshal(result.Meta[mcp.MetaKeyPaymentResponse], &settlement); err != nil {
		t.Fatalf("failed to decode receipt: %v", err)
	}
	if !settlement.Success || settlement.Transaction != "0xabc" {
		t.Errorf("unexpected receipt %+v", settlement)
	}
}

func TestHandlerInvalidPayment(t *testing.T) {
	facilitator := &fakeFacilitator{rejectVerify: true, invalidReason: "expired"}
	server := facilitator.server(t)
	defer server.Close()

	handler := newHandler(t, server.URL, successBody, false)
	rec := post(handler, toolCallBody(t, "premium", testPayment(x402.NetworkBSCMainnet)))

	envelope := decodeEnvelope(t, rec)
	if envelope.Error == nil || envelope.Error.Code != 402 {
		t.Fatalf("expected 402, got %+v", envelope.Error)
	}
	if envelope.Error.Message != "Payment invalid: expired" {
		t.Errorf("unexpected message %q", envelope.Error.Message)
	}
	if facilitator.settleCalls != 0 {
		t.Error("settle must not run after failed verification")
	}
}

func TestHandlerMismatchedPayment(t *testing.T) {
	facilitator := &fakeFacilitator{}
	server := facilitator.server(t)
	defer server.Close()

	handler := newHandler(t, server.URL, successBody, false)
	rec := post(handler, toolCallBody(t, "premium", testPayment(x402.NetworkBase)))

	envelope := decodeEnvelope(t, rec)
	if envelope.Error == nil || envelope.Error.Code != 402 {
		t.Fatalf("expected 402 for mismatched network, got %+v", envelope.Error)
	}
	if facilitator.verifyCalls != 0 {
		t.Error("verify must not run for a payment matching no requirement")
	}
}

func TestHandlerToolFailureSkipsSettlement(t *testing.T) {
	facilitator := &fakeFacilitator{}
	server := facilitator.server(t)
	defer server.Close()

	failBody := `{"jsonrpc":"2.0","id":1,"error":{"code":-32000,"message":"tool exploded"}}`
	handler := newHandler(t, server.URL, failBody, false)
	rec := post(handler, toolCallBody(t, "premium", testPayment(x402.NetworkBSCMainnet)))

	envelope := decodeEnvelope(t, rec)
	if envelope.Error == nil || envelope.Error.Message != "tool exploded" {
		t.Fatalf("expected tool error to pass through, got %+v", envelope.Error)
	}
	if facilitator.settleCalls != 0 {
		t.Error("failed tool call must not settle the payment")
	}
}

func TestHandlerSettleFailure(t *testing.T) {
	facilitator := &fakeFacilitator{rejectSettle: true, errorReason: "nsf"}
	server := facilitator.server(t)
	defer server.Close()

	handler := newHandler(t, server.URL, successBody, false)
	rec := post(handler, toolCallBody(t, "premium", testPayment(x402.NetworkBSCMainnet)))

	envelope := decodeEnvelope(t, rec)
	if envelope.Error == nil || envelope.Error.Code != -32603 {
		t.Fatalf("expected settlement error, got %+v", envelope.Error)
	}
	if envelope.Error.Message != "Settlement failed: nsf" {
		t.Errorf("unexpected message %q", envelope.Error.Message)
	}

	var data map[string]x402.SettlementResponse
	if err := json.Unmarshal(envelope.Error.Data, &data); err != nil {
		t.Fatalf("failed to decode error data: %v", err)
	}
	receipt := data[mcp.MetaKeyPaymentResponse]
	if receipt.Success || receipt.ErrorReason != "nsf" {
		t.Errorf("unexpected failure receipt %+v", receipt)
	}
}

func TestHandlerVerifyOnly(t *testing.T) {
	facilitator := &fakeFacilitator{}
	server := facilitator.server(t)
	defer server.Close()

	handler := newHandler(t, server.URL, successBody, true)
	rec := post(handler, toolCallBody(t, "premium", testPayment(x402.NetworkBSCMainnet)))

	envelope := decodeEnvelope(t, rec)
	if envelope.Error != nil {
		t.Fatalf("expected success, got %+v", envelope.Error)
	}
	if facilitator.settleCalls != 0 {
		t.Errorf("verify-only mode must not settle, got %d calls", facilitator.settleCalls)
	}

	// The receipt marks settlement as skipped.
	var result struct {
		Meta map[string]json.RawMessage `json:"_meta"`
	}
	if err := json.Unmarshal(envelope.Result, &result); err != nil {
		t.Fatalf("failed to decode result: %v", err)
	}
	var settlement x402.SettlementResponse
	if err := json.Unmarshal(result.Meta[mcp.MetaKeyPaymentResponse], &settlement); err != nil {
		t.Fatalf("failed to decode receipt: %v", err)
	}
	if settlement.Success {
		t.Error("skipped settlement must not report success")
	}
	if settlement.Payer == "" {
		t.Error("skipped settlement should still carry the verified payer")
	}
}

func TestHandlerMalformedRequest(t *testing.T) {
	facilitator := &fakeFacilitator{}
	server := facilitator.server(t)
	defer server.Close()

	handler := newHandler(t, server.URL, successBody, false)
	rec := post(handler, "{not json")

	envelope := decodeEnvelope(t, rec)
	if envelope.Error == nil || envelope.Error.Code != -32700 {
		t.Errorf("expected parse error, got %+v", envelope.Error)
	}
}
