// Package server gates MCP tools behind x402 payments. It intercepts
// tools/call JSON-RPC requests at the HTTP layer, demands payment with a
// 402 JSON-RPC error, verifies attached payments with a facilitator, and
// settles after the tool ran successfully.
package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/x402dev/x402-go"
	x402http "github.com/x402dev/x402-go/http"
	"github.com/x402dev/x402-go/mcp"
)

// X402Handler wraps an MCP server's HTTP handler with payment gating.
type X402Handler struct {
	mcpHandler  http.Handler
	config      *Config
	facilitator Facilitator
	logger      *slog.Logger
}

// NewX402Handler wraps an MCP HTTP handler. A nil config gates nothing
// and uses the default public facilitator.
func NewX402Handler(mcpHandler http.Handler, config *Config) (*X402Handler, error) {
	if config == nil {
		config = &Config{}
	}

	facilitator, err := x402http.NewFacilitatorClient(config.FacilitatorConfig)
	if err != nil {
		return nil, err
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &X402Handler{
		mcpHandler:  mcpHandler,
		config:      config,
		facilitator: facilitator,
		logger:      logger,
	}, nil
}

// jsonrpcRequest is the envelope of an incoming JSON-RPC call.
type jsonrpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
	ID      interface{}     `json:"id"`
}

// ServeHTTP implements http.Handler. Only POST tools/call requests for
// gated tools are intercepted; everything else passes through.
func (h *X402Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.mcpHandler.ServeHTTP(w, r)
		return
	}

	bodyBytes, err := io.ReadAll(r.Body)
	if err != nil {
		h.writeError(w, nil, -32700, "Parse error", nil)
		return
	}
	r.Body = io.NopCloser(bytes.NewReader(bodyBytes))

	var req jsonrpcRequest
	if err := json.Unmarshal(bodyBytes, &req); err != nil {
		h.writeError(w, nil, -32700, "Parse error", nil)
		return
	}
	if req.Method != "tools/call" {
		h.mcpHandler.ServeHTTP(w, r)
		return
	}

	var toolParams struct {
		Name string                     `json:"name"`
		Meta map[string]json.RawMessage `json:"_meta"`
	}
	if err := json.Unmarshal(req.Params, &toolParams); err != nil {
		h.writeError(w, req.ID, -32602, "Invalid params", nil)
		return
	}
	logger := h.logger.With("requestID", req.ID, "tool", toolParams.Name)

	requirements, gated := h.toolRequirements(toolParams.Name)
	if !gated {
		h.mcpHandler.ServeHTTP(w, r)
		return
	}

	payment := extractPayment(toolParams.Meta)
	if payment == nil {
		logger.Info("payment required for tool call")
		h.writeError(w, req.ID, mcp.PaymentRequiredCode, "Payment required", mcp.PaymentRequiredData{
			X402Version: x402.X402Version,
			Error:       "Payment required to access this resource",
			Accepts:     requirements,
		})
		return
	}

	requirement, err := x402.FindMatchingRequirement(*payment, requirements)
	if err != nil {
		logger.Warn("payment matches no requirement", "error", err)
		h.writeError(w, req.ID, mcp.PaymentRequiredCode, fmt.Sprintf("Payment invalid: %v", err), nil)
		return
	}

	verify, err := h.facilitator.Verify(r.Context(), payment, requirement)
	if err != nil {
		logger.Error("payment verification failed", "error", err)
		h.writeError(w, req.ID, -32603, fmt.Sprintf("Verification failed: %v", err), nil)
		return
	}
	if !verify.IsValid {
		logger.Info("payment rejected", "reason", verify.InvalidReason)
		h.writeError(w, req.ID, mcp.PaymentRequiredCode, fmt.Sprintf("Payment invalid: %s", verify.InvalidReason), nil)
		return
	}

	h.forwardAndSettle(w, r, bodyBytes, req.ID, payment, requirement, verify, logger)
}

// toolRequirements returns the payment options for a tool with the
// resource field defaulted, or gated=false for free tools. The config
// is never mutated.
func (h *X402Handler) toolRequirements(toolName string) ([]x402.PaymentRequirement, bool) {
	requirements := h.config.PaymentTools[toolName]
	if len(requirements) == 0 {
		return nil, false
	}

	out := make([]x402.PaymentRequirement, len(requirements))
	copy(out, requirements)
	for i := range out {
		if out[i].Resource == "" {
			out[i].Resource = mcp.ToolResource(toolName)
		}
	}
	return out, true
}

// extractPayment decodes params._meta["x402/payment"]. Returns nil when
// absent or undecodable; the caller answers both with a 402.
func extractPayment(meta map[string]json.RawMessage) *x402.PaymentPayload {
	raw, ok := meta[mcp.MetaKeyPayment]
	if !ok {
		return nil
	}
	var payment x402.PaymentPayload
	if err := json.Unmarshal(raw, &payment); err != nil {
		return nil
	}
	return &payment
}

// forwardAndSettle runs the tool through a buffered recorder so the
// payment is settled before any bytes reach the client. A failed tool
// call or a failed settlement never produces a receipt.
func (h *X402Handler) forwardAndSettle(w http.ResponseWriter, r *http.Request, requestBody []byte, requestID interface{}, payment *x402.PaymentPayload, requirement *x402.PaymentRequirement, verify *x402http.VerifyResponse, logger *slog.Logger) {
	recorder := &responseRecorder{
		headerMap:  make(http.Header),
		statusCode: http.StatusOK,
	}

	r.Body = io.NopCloser(bytes.NewReader(requestBody))
	h.mcpHandler.ServeHTTP(recorder, r)

	var resp struct {
		JSONRPC string          `json:"jsonrpc"`
		Result  json.RawMessage `json:"result,omitempty"`
		Error   json.RawMessage `json:"error,omitempty"`
		ID      interface{}     `json:"id"`
	}
	if err := json.Unmarshal(recorder.body.Bytes(), &resp); err != nil {
		logger.Error("unparseable tool response, skipping settlement", "error", err)
		recorder.copyTo(w)
		return
	}
	if len(resp.Error) > 0 {
		logger.Info("tool call failed, payment not settled")
		recorder.copyTo(w)
		return
	}

	var settlement *x402.SettlementResponse
	if h.config.VerifyOnly {
		settlement = &x402.SettlementResponse{
			Success: false,
			Network: payment.Network,
			Payer:   verify.Payer,
		}
	} else {
		var err error
		settlement, err = h.facilitator.Settle(r.Context(), payment, requirement)
		if err != nil || !settlement.Success {
			reason := "unknown reason"
			if err != nil {
				reason = err.Error()
			} else if settlement.ErrorReason != "" {
				reason = settlement.ErrorReason
			}
			logger.Error("settlement failed", "reason", reason)
			h.writeError(w, requestID, -32603, fmt.Sprintf("Settlement failed: %v", reason), map[string]interface{}{
				mcp.MetaKeyPaymentResponse: x402.SettlementResponse{
					Success:     false,
					Network:     payment.Network,
					Payer:       verify.Payer,
					ErrorReason: reason,
				},
			})
			return
		}
		logger.Info("payment settled", "transaction", settlement.Transaction)
	}

	resp.Result = injectReceipt(resp.Result, settlement)

	responseBytes, err := json.Marshal(resp)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	for k, v := range recorder.headerMap {
		w.Header()[k] = v
	}
	w.Header().Set("Content-Length", fmt.Sprint(len(responseBytes)))
	w.WriteHeader(recorder.statusCode)
	_, _ = w.Write(responseBytes)
}

// injectReceipt places the settlement receipt under result._meta.
// Returns the result unchanged when it cannot be reshaped.
func injectReceipt(result json.RawMessage, settlement *x402.SettlementResponse) json.RawMessage {
	if len(result) == 0 {
		return result
	}

	var envelope map[string]interface{}
	if err := json.Unmarshal(result, &envelope); err != nil {
		return result
	}

	meta, ok := envelope["_meta"].(map[string]interface{})
	if !ok {
		meta = make(map[string]interface{})
	}
	meta[mcp.MetaKeyPaymentResponse] = settlement
	envelope["_meta"] = meta

	modified, err := json.Marshal(envelope)
	if err != nil {
		return result
	}
	return modified
}

// writeError writes a JSON-RPC error response. JSON-RPC errors travel
// over HTTP 200.
func (h *X402Handler) writeError(w http.ResponseWriter, id interface{}, code int, message string, data interface{}) {
	errObj := map[string]interface{}{
		"code":    code,
		"message": message,
	}
	if data != nil {
		errObj["data"] = data
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      id,
		"error":   errObj,
	})
}

// responseRecorder buffers the MCP handler's response so settlement can
// run before anything is flushed to the client.
type responseRecorder struct {
	headerMap  http.Header
	body       bytes.Buffer
	statusCode int
}

func (r *responseRecorder) Header() http.Header {
	return r.headerMap
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	return r.body.Write(b)
}

func (r *responseRecorder) WriteHeader(statusCode int) {
	r.statusCode = statusCode
}

func (r *responseRecorder) copyTo(w http.ResponseWriter) {
	for k, v := range r.headerMap {
		w.Header()[k] = v
	}
	w.WriteHeader(r.statusCode)
	_, _ = w.Write(r.body.Bytes())
}
