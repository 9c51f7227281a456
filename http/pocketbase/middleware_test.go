package pocketbase

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/hook"

	"github.com/x402dev/x402-go"
	"github.com/x402dev/x402-go/encoding"
	x402http "github.com/x402dev/x402-go/http"
)

const testPayTo = "0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb0"

type fakeFacilitator struct {
	rejectSettle bool
	settleCalls  int
}

func (f *fakeFacilitator) server(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/verify":
			json.NewEncoder(w).Encode(x402http.VerifyResponse{
				IsValid: true,
				Payer:   "0x1111111111111111111111111111111111111111",
			})
		case "/settle":
			f.settleCalls++
			json.NewEncoder(w).Encode(x402.SettlementResponse{
				Success:     !f.rejectSettle,
				Network:     x402.NetworkBSCMainnet,
				Transaction: "0xabc",
			})
		}
	}))
}

func paymentHeader(t *testing.T) string {
	t.Helper()
	header, err := encoding.EncodePayment(&x402.PaymentPayload{
		X402Version: x402.X402Version,
		Scheme:      x402.SchemeExact,
		Network:     x402.NetworkBSCMainnet,
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
	})
	if err != nil {
		t.Fatalf("failed to encode payment header: %v", err)
	}
	return header
}

// trigger runs the middleware hook chain the way PocketBase's router
// does, with handler bound as the final route handler.
func trigger(t *testing.T, facilitatorURL string, req *http.Request, handler func(*core.RequestEvent) error) (*httptest.ResponseRecorder, error) {
	t.Helper()

	mw, err := Middleware(x402http.Config{
		Price:             x402.Money("$0.01"),
		PayTo:             testPayTo,
		Path:              "/premium",
		FacilitatorConfig: &x402http.FacilitatorConfig{URL: facilitatorURL},
	})
	if err != nil {
		t.Fatalf("Middleware failed: %v", err)
	}

	rec := httptest.NewRecorder()
	event := &core.RequestEvent{}
	event.Request = req
	event.Response = rec

	chain := &hook.Hook[*core.RequestEvent]{}
	chain.Bind(mw)
	return rec, chain.Trigger(event, handler)
}

func TestMiddlewareConstruction(t *testing.T) {
	handler, err := Middleware(x402http.Config{
		Price: x402.Money("$0.01"),
		PayTo: testPayTo,
	})
	if err != nil {
		t.Fatalf("Middleware failed: %v", err)
	}
	if handler.Id != "x402" {
		t.Errorf("expected hook id x402, got %q", handler.Id)
	}
	if handler.Func == nil {
		t.Fatal("expected hook func to be set")
	}
}

func TestMiddlewareConfigErrors(t *testing.T) {
	tests := []struct {
		name   string
		config x402http.Config
	}{
		{"missing payTo", x402http.Config{Price: x402.Money("$0.01")}},
		{"bad network", x402http.Config{Price: x402.Money("$0.01"), PayTo: testPayTo, Network: "solana"}},
		{"bad path", x402http.Config{Price: x402.Money("$0.01"), PayTo: testPayTo, Path: 3.14}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Middleware(tt.config); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestMiddlewareNoPayment(t *testing.T) {
	fn, err := MiddlewareFunc(x402http.Config{
		Price: x402.Money("$0.01"),
		PayTo: testPayTo,
	})
	if err != nil {
		t.Fatalf("MiddlewareFunc failed: %v", err)
	}

	rec := httptest.NewRecorder()
	event := &core.RequestEvent{}
	event.Request = httptest.NewRequest("GET", "/premium", nil)
	event.Response = rec

	// No payment means the 402 is written directly and the hook chain is
	// never advanced, so a bare event is enough here.
	if err := fn(event); err != nil {
		t.Fatalf("middleware returned error: %v", err)
	}

	if rec.Code != http.StatusPaymentRequired {
		t.Fatalf("expected 402, got %d", rec.Code)
	}
	var body x402.PaymentRequirementsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode 402 body: %v", err)
	}
	if body.Error != "No X-PAYMENT header provided" {
		t.Errorf("unexpected error %q", body.Error)
	}
	if len(body.Accepts) != 1 || body.Accepts[0].PayTo != testPayTo {
		t.Errorf("unexpected accepts %+v", body.Accepts)
	}
}

func TestMiddlewareInvalidHeader(t *testing.T) {
	fn, err := MiddlewareFunc(x402http.Config{
		Price: x402.Money("$0.01"),
		PayTo: testPayTo,
	})
	if err != nil {
		t.Fatalf("MiddlewareFunc failed: %v", err)
	}

	rec := httptest.NewRecorder()
	event := &core.RequestEvent{}
	event.Request = httptest.NewRequest("GET", "/premium", nil)
	event.Request.Header.Set("X-PAYMENT", "garbage")
	event.Response = rec

	if err := fn(event); err != nil {
		t.Fatalf("middleware returned error: %v", err)
	}

	var body x402.PaymentRequirementsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode 402 body: %v", err)
	}
	if body.Error != "Invalid payment header format" {
		t.Errorf("unexpected error %q", body.Error)
	}
}

func TestMiddlewarePaidRequest(t *testing.T) {
	facilitator := &fakeFacilitator{}
	server := facilitator.server(t)
	defer server.Close()

	req := httptest.NewRequest("GET", "/premium", nil)
	req.Header.Set("X-PAYMENT", paymentHeader(t))

	handlerRan := false
	rec, err := trigger(t, server.URL, req, func(e *core.RequestEvent) error {
		handlerRan = true
		if facilitator.settleCalls != 0 {
			t.Error("settlement ran before the handler")
		}
		verify, ok := e.Get(PaymentStoreKey).(*x402http.VerifyResponse)
		if !ok || verify.Payer == "" {
			t.Error("verify response missing from event store")
		}
		return e.JSON(http.StatusOK, map[string]string{"data": "premium"})
	})
	if err != nil {
		t.Fatalf("hook chain returned error: %v", err)
	}

	if !handlerRan {
		t.Fatal("handler did not run for a paid request")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if facilitator.settleCalls != 1 {
		t.Errorf("expected one settle call, got %d", facilitator.settleCalls)
	}
	if rec.Header().Get("X-PAYMENT-RESPONSE") == "" {
		t.Error("expected payment receipt header on the committed response")
	}
}

func TestMiddlewareHandlerErrorSkipsSettle(t *testing.T) {
	facilitator := &fakeFacilitator{}
	server := facilitator.server(t)
	defer server.Close()

	req := httptest.NewRequest("GET", "/premium", nil)
	req.Header.Set("X-PAYMENT", paymentHeader(t))

	handlerErr := errors.New("handler failed")
	_, err := trigger(t, server.URL, req, func(e *core.RequestEvent) error {
		return handlerErr
	})
	if !errors.Is(err, handlerErr) {
		t.Fatalf("expected handler error to propagate, got %v", err)
	}

	if facilitator.settleCalls != 0 {
		t.Errorf("expected no settle calls for a failed handler, got %d", facilitator.settleCalls)
	}
}

func TestMiddlewareNonSuccessSkipsSettle(t *testing.T) {
	facilitator := &fakeFacilitator{}
	server := facilitator.server(t)
	defer server.Close()

	req := httptest.NewRequest("GET", "/premium", nil)
	req.Header.Set("X-PAYMENT", paymentHeader(t))

	rec, err := trigger(t, server.URL, req, func(e *core.RequestEvent) error {
		return e.JSON(http.StatusNotFound, map[string]string{"error": "missing"})
	})
	if err != nil {
		t.Fatalf("hook chain returned error: %v", err)
	}

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 to pass through, got %d", rec.Code)
	}
	if facilitator.settleCalls != 0 {
		t.Errorf("expected no settle calls for a non-2xx response, got %d", facilitator.settleCalls)
	}
	if rec.Header().Get("X-PAYMENT-RESPONSE") != "" {
		t.Error("unexpected payment receipt header on an unsettled response")
	}
}

func TestMiddlewareSettleFailure(t *testing.T) {
	facilitator := &fakeFacilitator{rejectSettle: true}
	server := facilitator.server(t)
	defer server.Close()

	req := httptest.NewRequest("GET", "/premium", nil)
	req.Header.Set("X-PAYMENT", paymentHeader(t))

	rec, err := trigger(t, server.URL, req, func(e *core.RequestEvent) error {
		return e.JSON(http.StatusOK, map[string]string{"data": "premium"})
	})
	if err != nil {
		t.Fatalf("hook chain returned error: %v", err)
	}

	// The response is held until settlement, so a rejected settle replaces
	// the handler's output with the 402 challenge.
	if rec.Code != http.StatusPaymentRequired {
		t.Fatalf("expected 402 after rejected settle, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "premium") {
		t.Error("handler output leaked past a rejected settle")
	}
	var body x402.PaymentRequirementsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode 402 body: %v", err)
	}
	if !strings.HasPrefix(body.Error, "Settle failed") {
		t.Errorf("unexpected error %q", body.Error)
	}
	if facilitator.settleCalls != 1 {
		t.Errorf("expected one settle call, got %d", facilitator.settleCalls)
	}
}
