package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/x402dev/x402-go"
)

// DefaultFacilitatorURL is the facilitator used when none is configured.
const DefaultFacilitatorURL = "https://x402.org/facilitator"

// FacilitatorHeaders carries the per-operation auth headers a provider
// produces for one facilitator call.
type FacilitatorHeaders struct {
	Verify map[string]string
	Settle map[string]string
	List   map[string]string
}

// HeaderProvider mints fresh auth headers for facilitator calls. Called
// once per operation, so short-lived credentials (JWTs) stay valid.
type HeaderProvider func(ctx context.Context) (FacilitatorHeaders, error)

// FacilitatorConfig configures a FacilitatorClient.
type FacilitatorConfig struct {
	// URL is the facilitator base URL. Defaults to DefaultFacilitatorURL.
	URL string

	// CreateHeaders supplies per-operation auth headers. Optional.
	CreateHeaders HeaderProvider

	// HTTPClient is the underlying client. Defaults to http.DefaultClient.
	HTTPClient *http.Client

	// Timeouts bound the verify and settle calls. Zero value means
	// x402.DefaultTimeouts.
	Timeouts x402.TimeoutConfig
}

// FacilitatorClient talks to an x402 facilitator: verify, settle, the
// discovery listing, and the supported-kinds probe. It performs no
// internal retries.
type FacilitatorClient struct {
	baseURL       string
	client        *http.Client
	createHeaders HeaderProvider
	timeouts      x402.TimeoutConfig
}

// NewFacilitatorClient validates the config and builds a client. A nil
// config uses the default public facilitator.
func NewFacilitatorClient(config *FacilitatorConfig) (*FacilitatorClient, error) {
	if config == nil {
		config = &FacilitatorConfig{}
	}

	baseURL := config.URL
	if baseURL == "" {
		baseURL = DefaultFacilitatorURL
	}
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		return nil, fmt.Errorf("%w: facilitator URL must start with http:// or https://, got %q", x402.ErrInvalidConfig, baseURL)
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	timeouts := config.Timeouts
	if timeouts == (x402.TimeoutConfig{}) {
		timeouts = x402.DefaultTimeouts
	}
	if err := timeouts.Validate(); err != nil {
		return nil, err
	}

	client := config.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	return &FacilitatorClient{
		baseURL:       baseURL,
		client:        client,
		createHeaders: config.CreateHeaders,
		timeouts:      timeouts,
	}, nil
}

// URL returns the facilitator base URL the client talks to.
func (c *FacilitatorClient) URL() string {
	return c.baseURL
}

// facilitatorRequest is the body shape of /verify and /settle calls.
type facilitatorRequest struct {
	X402Version         int                     `json:"x402Version"`
	PaymentPayload      *x402.PaymentPayload    `json:"paymentPayload"`
	PaymentRequirements *facilitatorRequirement `json:"paymentRequirements"`
}

// facilitatorRequirement mirrors x402.PaymentRequirement with empty
// optionals omitted: some facilitators reject explicit nulls and empty
// strings in fields they do not know.
type facilitatorRequirement struct {
	Scheme            string                 `json:"scheme"`
	Network           string                 `json:"network"`
	MaxAmountRequired string                 `json:"maxAmountRequired"`
	Asset             string                 `json:"asset"`
	PayTo             string                 `json:"payTo"`
	Resource          string                 `json:"resource,omitempty"`
	Description       string                 `json:"description,omitempty"`
	MimeType          string                 `json:"mimeType,omitempty"`
	MaxTimeoutSeconds int                    `json:"maxTimeoutSeconds,omitempty"`
	Extra             map[string]interface{} `json:"extra,omitempty"`
	OutputSchema      *x402.OutputSchema     `json:"outputSchema,omitempty"`
}

func toFacilitatorRequirement(r *x402.PaymentRequirement) *facilitatorRequirement {
	return &facilitatorRequirement{
		Scheme:            r.Scheme,
		Network:           r.Network,
		MaxAmountRequired: r.MaxAmountRequired,
		Asset:             r.Asset,
		PayTo:             r.PayTo,
		Resource:          r.Resource,
		Description:       r.Description,
		MimeType:          r.MimeType,
		MaxTimeoutSeconds: r.MaxTimeoutSeconds,
		Extra:             r.Extra,
		OutputSchema:      r.OutputSchema,
	}
}

// VerifyResponse is the facilitator's verdict on a payment authorization.
type VerifyResponse struct {
	IsValid       bool   `json:"isValid"`
	InvalidReason string `json:"invalidReason,omitempty"`
	Payer         string `json:"payer"`
}

// SupportedKind is one scheme/network pair a facilitator can settle.
type SupportedKind struct {
	X402Version int                    `json:"x402Version"`
	Scheme      string                 `json:"scheme"`
	Network     string                 `json:"network"`
	Extra       map[string]interface{} `json:"extra,omitempty"`
}

// SupportedResponse is the facilitator /supported listing.
type SupportedResponse struct {
	Kinds []SupportedKind `json:"kinds"`
}

// FacilitatorListError reports a non-200 discovery listing response,
// carrying the status and body for diagnosis.
type FacilitatorListError struct {
	StatusCode int
	Body       string
}

func (e *FacilitatorListError) Error() string {
	return fmt.Sprintf("facilitator discovery list failed: status %d: %s", e.StatusCode, e.Body)
}

// Verify asks the facilitator to check a payment authorization without
// executing it.
func (c *FacilitatorClient) Verify(ctx context.Context, payment *x402.PaymentPayload, requirement *x402.PaymentRequirement) (*VerifyResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeouts.VerifyTimeout)
	defer cancel()

	headers, err := c.headers(ctx)
	if err != nil {
		return nil, err
	}

	var verifyResp VerifyResponse
	if err := c.post(ctx, "/verify", payment, requirement, headers.Verify, &verifyResp); err != nil {
		return nil, err
	}
	return &verifyResp, nil
}

// Settle asks the facilitator to execute a verified payment on chain.
func (c *FacilitatorClient) Settle(ctx context.Context, payment *x402.PaymentPayload, requirement *x402.PaymentRequirement) (*x402.SettlementResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeouts.SettleTimeout)
	defer cancel()

	headers, err := c.headers(ctx)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(facilitatorRequest{
		X402Version:         x402.X402Version,
		PaymentPayload:      payment,
		PaymentRequirements: toFacilitatorRequirement(requirement),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal settle request: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, "/settle", bytes.NewReader(data), headers.Settle)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", x402.ErrFacilitatorUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", x402.ErrSettlementFailed, resp.StatusCode)
	}

	var settlement x402.SettlementResponse
	if err := json.NewDecoder(resp.Body).Decode(&settlement); err != nil {
		return nil, fmt.Errorf("failed to decode settle response: %w", err)
	}
	return &settlement, nil
}

// List fetches one page of the facilitator's discovery listing: paid
// resources across the network with their accepted payment options.
func (c *FacilitatorClient) List(ctx context.Context, request *x402.ListDiscoveryResourcesRequest) (*x402.ListDiscoveryResourcesResponse, error) {
	headers, err := c.headers(ctx)
	if err != nil {
		return nil, err
	}

	path := "/discovery/resources"
	if request != nil {
		params := url.Values{}
		if request.Type != "" {
			params.Set("type", request.Type)
		}
		if request.Limit != 0 {
			params.Set("limit", strconv.Itoa(request.Limit))
		}
		if request.Offset != 0 {
			params.Set("offset", strconv.Itoa(request.Offset))
		}
		if encoded := params.Encode(); encoded != "" {
			path += "?" + encoded
		}
	}

	resp, err := c.do(ctx, http.MethodGet, path, nil, headers.List)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", x402.ErrFacilitatorUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &FacilitatorListError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var listing x402.ListDiscoveryResourcesResponse
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, fmt.Errorf("failed to decode discovery response: %w", err)
	}
	return &listing, nil
}

// Supported queries the scheme/network pairs the facilitator can settle.
func (c *FacilitatorClient) Supported(ctx context.Context) (*SupportedResponse, error) {
	headers, err := c.headers(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := c.do(ctx, http.MethodGet, "/supported", nil, headers.List)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", x402.ErrFacilitatorUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("supported endpoint failed: status %d", resp.StatusCode)
	}

	var supported SupportedResponse
	if err := json.NewDecoder(resp.Body).Decode(&supported); err != nil {
		return nil, fmt.Errorf("failed to decode supported response: %w", err)
	}
	return &supported, nil
}

func (c *FacilitatorClient) post(ctx context.Context, path string, payment *x402.PaymentPayload, requirement *x402.PaymentRequirement, auth map[string]string, out interface{}) error {
	data, err := json.Marshal(facilitatorRequest{
		X402Version:         x402.X402Version,
		PaymentPayload:      payment,
		PaymentRequirements: toFacilitatorRequirement(requirement),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, path, bytes.NewReader(data), auth)
	if err != nil {
		return fmt.Errorf("%w: %v", x402.ErrFacilitatorUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", x402.ErrVerificationFailed, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *FacilitatorClient) do(ctx context.Context, method, path string, body io.Reader, auth map[string]string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range auth {
		req.Header.Set(k, v)
	}
	return c.client.Do(req)
}

func (c *FacilitatorClient) headers(ctx context.Context) (FacilitatorHeaders, error) {
	if c.createHeaders == nil {
		return FacilitatorHeaders{}, nil
	}
	headers, err := c.createHeaders(ctx)
	if err != nil {
		return FacilitatorHeaders{}, fmt.Errorf("failed to create facilitator auth headers: %w", err)
	}
	return headers, nil
}
