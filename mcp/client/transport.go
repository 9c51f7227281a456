// Package client wraps an mcp-go transport with x402 payment handling:
// a JSON-RPC error with code 402 is answered by signing a payment with
// the configured signers and retrying the call once with the payment
// attached to params._meta.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/client/transport"
	mcpproto "github.com/mark3labs/mcp-go/mcp"

	"github.com/x402dev/x402-go"
	"github.com/x402dev/x402-go/mcp"
)

// Transport is a payment-aware wrapper around an mcp-go transport. It
// implements transport.Interface and is safe for concurrent use once
// configured.
type Transport struct {
	base     transport.Interface
	signers  []x402.Signer
	selector x402.PaymentSelector

	onAttempt x402.PaymentCallback
	onSuccess x402.PaymentCallback
	onFailure x402.PaymentCallback
}

// NewTransport wraps an existing mcp-go transport with payment handling.
func NewTransport(base transport.Interface, opts ...Option) *Transport {
	t := &Transport{base: base}

	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	t.signers = cfg.signers
	t.selector = cfg.selector
	if t.selector == nil {
		t.selector = &x402.DefaultPaymentSelector{MaxValue: cfg.maxValue}
	}
	t.onAttempt = cfg.onAttempt
	t.onSuccess = cfg.onSuccess
	t.onFailure = cfg.onFailure

	return t
}

// NewHTTPTransport creates a payment-aware transport speaking streamable
// HTTP to the given MCP server URL.
func NewHTTPTransport(serverURL string, opts ...Option) (*Transport, error) {
	base, err := transport.NewStreamableHTTP(serverURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create base transport: %w", err)
	}
	return NewTransport(base, opts...), nil
}

// Start starts the underlying MCP connection.
func (t *Transport) Start(ctx context.Context) error {
	return t.base.Start(ctx)
}

// SendRequest implements transport.Interface. A 402 error response
// triggers at most one paid retry; a second 402 is returned to the
// caller untouched.
func (t *Transport) SendRequest(ctx context.Context, req transport.JSONRPCRequest) (*transport.JSONRPCResponse, error) {
	resp, err := t.base.SendRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.Error == nil || resp.Error.Code != mcp.PaymentRequiredCode {
		return resp, nil
	}

	requirements, err := extractRequirements(resp.Error.Data)
	if err != nil {
		return resp, err
	}

	startTime := time.Now()
	resource := toolResourceOf(req)

	payment, requirement, err := t.selector.SelectAndSign(requirements, t.signers)
	if err != nil {
		t.failure(resource, err, time.Since(startTime))
		return resp, err
	}

	if t.onAttempt != nil {
		t.onAttempt(x402.PaymentEvent{
			Type:      x402.PaymentEventAttempt,
			Timestamp: startTime,
			Method:    "MCP",
			URL:       resource,
			Network:   payment.Network,
			Scheme:    payment.Scheme,
			Amount:    requirement.MaxAmountRequired,
			Asset:     requirement.Asset,
			Recipient: requirement.PayTo,
		})
	}

	retry, err := withPaymentMeta(req, payment)
	if err != nil {
		t.failure(resource, err, time.Since(startTime))
		return resp, err
	}

	paidResp, err := t.base.SendRequest(ctx, retry)
	duration := time.Since(startTime)
	if err != nil {
		t.failure(resource, err, duration)
		return nil, err
	}

	if paidResp.Error != nil {
		t.failure(resource, fmt.Errorf("%w: %s", mcp.ErrPaymentRejected, paidResp.Error.Message), duration)
		return paidResp, nil
	}

	if t.onSuccess != nil {
		event := x402.PaymentEvent{
			Type:      x402.PaymentEventSuccess,
			Timestamp: time.Now(),
			Method:    "MCP",
			URL:       resource,
			Network:   requirement.Network,
			Scheme:    requirement.Scheme,
			Amount:    requirement.MaxAmountRequired,
			Asset:     requirement.Asset,
			Recipient: requirement.PayTo,
			Duration:  duration,
		}
		if settlement, err := ParseSettlementFromResult(paidResp.Result); err == nil {
			event.Transaction = settlement.Transaction
			event.Payer = settlement.Payer
		}
		t.onSuccess(event)
	}

	return paidResp, nil
}

// SendNotification forwards a notification to the server.
func (t *Transport) SendNotification(ctx context.Context, notif mcpproto.JSONRPCNotification) error {
	return t.base.SendNotification(ctx, notif)
}

// SetNotificationHandler sets the handler for server notifications.
func (t *Transport) SetNotificationHandler(handler func(mcpproto.JSONRPCNotification)) {
	t.base.SetNotificationHandler(handler)
}

// Close closes the underlying transport.
func (t *Transport) Close() error {
	return t.base.Close()
}

// GetSessionId returns the MCP session ID.
func (t *Transport) GetSessionId() string {
	return t.base.GetSessionId()
}

func (t *Transport) failure(resource string, err error, duration time.Duration) {
	if t.onFailure == nil {
		return
	}
	t.onFailure(x402.PaymentEvent{
		Type:      x402.PaymentEventFailure,
		Timestamp: time.Now(),
		Method:    "MCP",
		URL:       resource,
		Error:     err,
		Duration:  duration,
	})
}

// extractRequirements parses the data block of a 402 JSON-RPC error.
func extractRequirements(data interface{}) ([]x402.PaymentRequirement, error) {
	if data == nil {
		return nil, mcp.ErrNoPaymentRequirements
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal 402 error data: %w", err)
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, mcp.ErrNoPaymentRequirements
	}

	var demand mcp.PaymentRequiredData
	if err := json.Unmarshal(raw, &demand); err != nil {
		return nil, fmt.Errorf("failed to parse payment requirements: %w", err)
	}
	if demand.X402Version != x402.X402Version {
		return nil, fmt.Errorf("%w: %d", x402.ErrUnsupportedVersion, demand.X402Version)
	}
	if len(demand.Accepts) == 0 {
		return nil, mcp.ErrNoPaymentRequirements
	}
	return demand.Accepts, nil
}

// withPaymentMeta returns a copy of req with the signed payment placed
// under params._meta["x402/payment"]. The original request is not
// mutated.
func withPaymentMeta(req transport.JSONRPCRequest, payment *x402.PaymentPayload) (transport.JSONRPCRequest, error) {
	params := make(map[string]interface{})
	if req.Params != nil {
		raw, err := json.Marshal(req.Params)
		if err != nil {
			return req, fmt.Errorf("failed to marshal request params: %w", err)
		}
		if err := json.Unmarshal(raw, &params); err != nil {
			return req, fmt.Errorf("failed to convert request params: %w", err)
		}
	}

	meta, ok := params["_meta"].(map[string]interface{})
	if !ok {
		meta = make(map[string]interface{})
	}
	meta[mcp.MetaKeyPayment] = payment
	params["_meta"] = meta

	retry := req
	retry.Params = params
	return retry, nil
}

// toolResourceOf derives the resource URL a payment event reports. For
// tools/call requests this is mcp://tools/<name>; anything else falls
// back to the JSON-RPC method.
func toolResourceOf(req transport.JSONRPCRequest) string {
	if req.Method != "tools/call" {
		return req.Method
	}

	raw, err := json.Marshal(req.Params)
	if err != nil {
		return req.Method
	}
	var params struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &params); err != nil || params.Name == "" {
		return req.Method
	}
	return mcp.ToolResource(params.Name)
}

// ParseSettlementFromResult decodes the settlement receipt from a paid
// result's _meta block.
func ParseSettlementFromResult(result json.RawMessage) (*x402.SettlementResponse, error) {
	if len(result) == 0 {
		return nil, fmt.Errorf("no result to parse settlement from")
	}

	var envelope struct {
		Meta map[string]json.RawMessage `json:"_meta"`
	}
	if err := json.Unmarshal(result, &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse result: %w", err)
	}

	raw, ok := envelope.Meta[mcp.MetaKeyPaymentResponse]
	if !ok {
		return nil, fmt.Errorf("no %s in result meta", mcp.MetaKeyPaymentResponse)
	}

	var settlement x402.SettlementResponse
	if err := json.Unmarshal(raw, &settlement); err != nil {
		return nil, fmt.Errorf("failed to parse settlement receipt: %w", err)
	}
	return &settlement, nil
}
