package x402

import "time"

// X402Version is the protocol version carried by every payment envelope
// and 402 response body.
const X402Version = 1

// SchemeExact is the only payment scheme currently defined by the protocol:
// the client authorizes a transfer of exactly the advertised amount.
const SchemeExact = "exact"

type InputSchemaType string

const (
	InputSchemaTypeHTTP InputSchemaType = "http"
)

type InputSchemaBodyType string

const (
	InputSchemaBodyTypeJSON              InputSchemaBodyType = "json"
	InputSchemaBodyTypeFormData          InputSchemaBodyType = "form-data"
	InputSchemaBodyTypeMultipartFormData InputSchemaBodyType = "multipart-form-data"
	InputSchemaBodyTypeText              InputSchemaBodyType = "text"
	InputSchemaBodyTypeBinary            InputSchemaBodyType = "binary"
)

// FieldDef defines the schema for a single field in the request or response.
type FieldDef struct {
	Type        string              `json:"type,omitempty"`
	Required    bool                `json:"required,omitempty"`
	Description string              `json:"description,omitempty"`
	Enum        []string            `json:"enum,omitempty"`
	Properties  map[string]FieldDef `json:"properties,omitempty"`
}

// InputSchema defines the expected structure of the client request.
// Type, Method, and Discoverable are filled in by the middleware; the
// remaining fields describe the request shape for discovery services.
type InputSchema struct {
	Type         InputSchemaType     `json:"type"`
	Method       string              `json:"method"`
	Discoverable bool                `json:"discoverable"`
	BodyType     InputSchemaBodyType `json:"bodyType,omitempty"`
	QueryParams  map[string]FieldDef `json:"queryParams,omitempty"`
	BodyFields   map[string]FieldDef `json:"bodyFields,omitempty"`
	HeaderFields map[string]FieldDef `json:"headerFields,omitempty"`
}

// OutputSchema defines the expected structure of the gated exchange:
// the request under Input, the response under Output.
type OutputSchema struct {
	Input  InputSchema         `json:"input"`
	Output map[string]FieldDef `json:"output,omitempty"`
}

// PaymentRequirement represents a single payment option from a 402 response.
type PaymentRequirement struct {
	// Scheme is the payment scheme identifier (e.g., "exact").
	Scheme string `json:"scheme"`

	// Network is the blockchain network identifier (e.g., "base").
	Network string `json:"network"`

	// MaxAmountRequired is the payment amount in atomic units, transported
	// as a decimal string.
	MaxAmountRequired string `json:"maxAmountRequired"`

	// Asset is the token contract address.
	Asset string `json:"asset"`

	// PayTo is the recipient address for the payment.
	PayTo string `json:"payTo"`

	// Resource is the URL of the protected resource.
	Resource string `json:"resource"`

	// Description is an optional human-readable payment description.
	Description string `json:"description"`

	// MimeType is the content type of the protected resource.
	MimeType string `json:"mimeType"`

	// MaxTimeoutSeconds is the validity period for the payment authorization.
	MaxTimeoutSeconds int `json:"maxTimeoutSeconds"`

	// Extra contains scheme-specific additional data. For "exact" on EVM
	// chains this is the EIP-712 domain: {"name": ..., "version": ...}.
	Extra map[string]interface{} `json:"extra,omitempty"`

	// OutputSchema describes the gated request/response for discovery.
	OutputSchema *OutputSchema `json:"outputSchema,omitempty"`
}

// PaymentRequirementsResponse represents the complete 402 response body.
type PaymentRequirementsResponse struct {
	// X402Version is the protocol version (currently 1).
	X402Version int `json:"x402Version"`

	// Error is a human-readable error message.
	Error string `json:"error"`

	// Accepts is an array of payment options the server will accept.
	Accepts []PaymentRequirement `json:"accepts"`
}

// PaymentPayload represents a signed payment sent to the server in the
// X-PAYMENT header, base64-encoded.
type PaymentPayload struct {
	// X402Version is the protocol version (currently 1).
	X402Version int `json:"x402Version"`

	// Scheme is the payment scheme identifier (e.g., "exact").
	Scheme string `json:"scheme"`

	// Network is the blockchain network identifier.
	Network string `json:"network"`

	// Payload contains the signed payment data for the scheme.
	Payload *EVMPayload `json:"payload"`
}

// EVMPayload represents an EVM payment with EIP-3009 authorization.
type EVMPayload struct {
	// Signature is the 0x-prefixed hex-encoded ECDSA signature.
	Signature string `json:"signature"`

	// Authorization contains the EIP-3009 transferWithAuthorization parameters.
	Authorization EVMAuthorization `json:"authorization"`
}

// EVMAuthorization represents EIP-3009 transferWithAuthorization parameters.
type EVMAuthorization struct {
	// From is the payer's address.
	From string `json:"from"`

	// To is the recipient's address.
	To string `json:"to"`

	// Value is the payment amount in atomic units.
	Value string `json:"value"`

	// ValidAfter is the unix timestamp after which the authorization is valid.
	ValidAfter string `json:"validAfter"`

	// ValidBefore is the unix timestamp before which the authorization is valid.
	ValidBefore string `json:"validBefore"`

	// Nonce is a unique 32-byte value, transported as 0x-prefixed hex,
	// preventing authorization replay.
	Nonce string `json:"nonce"`
}

// SettlementResponse represents the server's response after payment
// settlement, carried base64-encoded in the X-PAYMENT-RESPONSE header.
type SettlementResponse struct {
	// Success indicates whether the payment was successfully settled.
	Success bool `json:"success"`

	// ErrorReason provides details if the payment failed.
	ErrorReason string `json:"errorReason,omitempty"`

	// Transaction is the blockchain transaction hash.
	Transaction string `json:"transaction,omitempty"`

	// Network is the blockchain network where the payment was settled.
	Network string `json:"network"`

	// Payer is the address that made the payment.
	Payer string `json:"payer"`
}

// TokenConfig represents configuration for a token a signer may spend.
type TokenConfig struct {
	// Address is the token contract address.
	Address string

	// Symbol is the token symbol (e.g., "USDC").
	Symbol string

	// Decimals is the number of decimal places for the token.
	Decimals int

	// Priority is the token's priority level within the signer.
	// Lower numbers indicate higher priority (1 > 2 > 3).
	// Default is 0 if not set.
	Priority int

	// Name is an optional human-readable token name.
	Name string
}

// EIP712Domain carries the token's signing-domain parameters as recorded
// in the chain registry: the values returned by the contract's name() and
// version() functions.
type EIP712Domain struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// TokenAsset identifies a token by address together with the data needed
// to sign transfers of it.
type TokenAsset struct {
	Address  string       `json:"address"`
	Decimals int          `json:"decimals"`
	EIP712   EIP712Domain `json:"eip712"`
}

// DiscoveredResource is one entry from the facilitator's discovery listing:
// a paid resource somewhere on the network together with its accepted
// payment options.
type DiscoveredResource struct {
	Resource    string                 `json:"resource"`
	Type        string                 `json:"type"`
	X402Version int                    `json:"x402Version"`
	Accepts     []PaymentRequirement   `json:"accepts"`
	LastUpdated time.Time              `json:"lastUpdated"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// ListDiscoveryResourcesRequest carries the filter and pagination
// parameters for the discovery listing. Zero values are omitted from the
// query string.
type ListDiscoveryResourcesRequest struct {
	Type   string `json:"type,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// DiscoveryResourcesPagination reports the window the facilitator returned.
type DiscoveryResourcesPagination struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Total  int `json:"total"`
}

// ListDiscoveryResourcesResponse is the facilitator's discovery listing page.
type ListDiscoveryResourcesResponse struct {
	X402Version int                          `json:"x402Version"`
	Items       []DiscoveredResource         `json:"items"`
	Pagination  DiscoveryResourcesPagination `json:"pagination"`
}
