// Package http implements the HTTP surfaces of the x402 protocol: the
// paying client transport, the facilitator client, and payment-gating
// middleware with a browser paywall.
package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/x402dev/x402-go"
	"github.com/x402dev/x402-go/http/internal/helpers"
)

// Wire error strings for the 402 challenge body. These are protocol
// surface: clients and tests match on them verbatim.
const (
	errNoPaymentHeader       = "No X-PAYMENT header provided"
	errInvalidPaymentHeader  = "Invalid payment header format"
	errNoMatchingRequirement = "No matching payment requirements found"
	errSettleFailed          = "Settle failed"
	unknownErrorReason       = "Unknown error"
)

// Config configures payment gating for a set of paths.
type Config struct {
	// Price is what the gated resource costs. Required.
	Price x402.Price

	// PayTo is the recipient address. Required.
	PayTo string

	// Path selects which request paths are gated: a string or []string of
	// path patterns (exact, glob, or "regex:"-prefixed). Defaults to "*".
	Path interface{}

	// Description is a human-readable description of the resource.
	Description string

	// MimeType is the content type of the gated resource.
	MimeType string

	// MaxDeadlineSeconds is the payment authorization validity window
	// advertised to clients. Defaults to 60.
	MaxDeadlineSeconds int

	// InputSchema describes the gated request shape for discovery.
	InputSchema *x402.InputSchema

	// OutputSchema describes the gated response shape for discovery.
	OutputSchema map[string]x402.FieldDef

	// Discoverable controls whether the resource appears in facilitator
	// discovery listings. Defaults to true.
	Discoverable *bool

	// FacilitatorConfig selects and authenticates the facilitator.
	// Defaults to the public facilitator.
	FacilitatorConfig *FacilitatorConfig

	// Network is the settlement network. Defaults to "bsc-mainnet".
	Network string

	// Resource overrides the advertised resource URL. When empty the URL
	// is reconstructed per request.
	Resource string

	// PaywallConfig customizes the browser paywall page.
	PaywallConfig *PaywallConfig

	// CustomPaywallHTML replaces the built-in paywall page entirely.
	CustomPaywallHTML string

	// Logger receives middleware diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
}

// Middleware is the compiled form of a Config: price resolved, paths
// compiled, facilitator connected. The framework adapters build their
// request handling on its methods.
type Middleware struct {
	cfg          Config
	pattern      *x402.PathPattern
	facilitator  *FacilitatorClient
	amount       string
	asset        x402.TokenAsset
	network      string
	maxDeadline  int
	discoverable bool
	logger       *slog.Logger
}

// PaymentRequiredError is a failed payment check: Reason is the exact
// message that goes onto the wire in the 402 body.
type PaymentRequiredError struct {
	Reason string
}

func (e *PaymentRequiredError) Error() string {
	return e.Reason
}

// NewMiddleware validates and compiles a Config. All configuration
// problems surface here, never at request time.
func NewMiddleware(config Config) (*Middleware, error) {
	network := config.Network
	if network == "" {
		network = x402.NetworkBSCMainnet
	}
	if _, err := x402.GetChainID(network); err != nil {
		return nil, fmt.Errorf("%w: %v", x402.ErrInvalidConfig, err)
	}

	if err := x402.ValidateAddress(config.PayTo); err != nil {
		return nil, fmt.Errorf("%w: payTo: %v", x402.ErrInvalidConfig, err)
	}

	amount, asset, err := x402.ProcessPriceToAtomicAmount(config.Price, network)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", x402.ErrInvalidConfig, err)
	}

	patterns, err := pathPatterns(config.Path)
	if err != nil {
		return nil, err
	}
	pattern, err := x402.CompilePathPattern(patterns...)
	if err != nil {
		return nil, err
	}

	facilitator, err := NewFacilitatorClient(config.FacilitatorConfig)
	if err != nil {
		return nil, err
	}

	maxDeadline := config.MaxDeadlineSeconds
	if maxDeadline == 0 {
		maxDeadline = 60
	}
	discoverable := true
	if config.Discoverable != nil {
		discoverable = *config.Discoverable
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Middleware{
		cfg:          config,
		pattern:      pattern,
		facilitator:  facilitator,
		amount:       amount,
		asset:        asset,
		network:      network,
		maxDeadline:  maxDeadline,
		discoverable: discoverable,
		logger:       logger,
	}, nil
}

func pathPatterns(path interface{}) ([]string, error) {
	switch p := path.(type) {
	case nil:
		return []string{"*"}, nil
	case string:
		return []string{p}, nil
	case []string:
		return p, nil
	default:
		return nil, fmt.Errorf("%w: path must be a string or []string, got %T", x402.ErrInvalidConfig, path)
	}
}

// NewPaymentMiddleware compiles the config into net/http middleware.
// Settlement is deferred to the moment the downstream handler commits a
// 2xx response, so a failed settle can still turn into a 402.
func NewPaymentMiddleware(config Config) (func(http.Handler) http.Handler, error) {
	m, err := NewMiddleware(config)
	if err != nil {
		return nil, err
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !m.Matches(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			requirements := m.BuildRequirements(r)

			payment, requirement, verify, perr := m.ProcessPayment(r, requirements)
			if perr != nil {
				m.RespondPaymentRequired(w, r, perr.Reason, requirements)
				return
			}

			r = r.WithContext(NewPaymentContext(r.Context(), requirement, verify))

			interceptor := &settlementInterceptor{
				w: w,
				settle: func() bool {
					settlement, serr := m.SettlePayment(r.Context(), payment, requirement)
					if serr != nil {
						m.RespondPaymentRequired(w, r, serr.Reason, requirements)
						return false
					}
					if err := helpers.SetPaymentResponseHeader(w.Header(), settlement); err != nil {
						m.logger.Warn("failed to attach payment response header", "error", err)
					}
					return true
				},
				onSkip: func(status int) {
					m.logger.Warn("handler returned non-success status, skipping settlement", "status", status)
				},
			}
			next.ServeHTTP(interceptor, r)
		})
	}, nil
}

// Matches reports whether a request path is gated by this middleware.
func (m *Middleware) Matches(path string) bool {
	return m.pattern.Match(path)
}

// BuildRequirements assembles the payment requirements advertised for one
// request. The resource URL and request method are folded in per request.
func (m *Middleware) BuildRequirements(r *http.Request) []x402.PaymentRequirement {
	input := x402.InputSchema{
		Type:         x402.InputSchemaTypeHTTP,
		Method:       strings.ToUpper(r.Method),
		Discoverable: m.discoverable,
	}
	if s := m.cfg.InputSchema; s != nil {
		input.BodyType = s.BodyType
		input.QueryParams = s.QueryParams
		input.BodyFields = s.BodyFields
		input.HeaderFields = s.HeaderFields
	}

	var extra map[string]interface{}
	if m.asset.EIP712.Name != "" {
		extra = map[string]interface{}{
			"name":    m.asset.EIP712.Name,
			"version": m.asset.EIP712.Version,
		}
	}

	return []x402.PaymentRequirement{{
		Scheme:            x402.SchemeExact,
		Network:           m.network,
		MaxAmountRequired: m.amount,
		Asset:             m.asset.Address,
		PayTo:             m.cfg.PayTo,
		Resource:          m.resourceURL(r),
		Description:       m.cfg.Description,
		MimeType:          m.cfg.MimeType,
		MaxTimeoutSeconds: m.maxDeadline,
		Extra:             extra,
		OutputSchema: &x402.OutputSchema{
			Input:  input,
			Output: m.cfg.OutputSchema,
		},
	}}
}

// resourceURL reconstructs the absolute URL of the gated resource,
// honoring reverse-proxy headers.
func (m *Middleware) resourceURL(r *http.Request) string {
	if m.cfg.Resource != "" {
		return m.cfg.Resource
	}

	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}

	uri := r.Header.Get("X-Original-URI")
	if uri == "" {
		uri = r.URL.RequestURI()
	}
	return scheme + "://" + r.Host + uri
}

// ProcessPayment runs the pre-handler half of the payment check: header
// extraction, decoding, requirement matching, and facilitator
// verification. A non-nil *PaymentRequiredError carries the exact wire
// message for the 402.
func (m *Middleware) ProcessPayment(r *http.Request, requirements []x402.PaymentRequirement) (*x402.PaymentPayload, *x402.PaymentRequirement, *VerifyResponse, *PaymentRequiredError) {
	header := r.Header.Get("X-PAYMENT")
	if header == "" {
		return nil, nil, nil, &PaymentRequiredError{Reason: errNoPaymentHeader}
	}

	payment, err := helpers.ParsePaymentHeader(header)
	if err != nil {
		m.logger.Warn("invalid payment header", "error", err, "remote", r.RemoteAddr)
		return nil, nil, nil, &PaymentRequiredError{Reason: errInvalidPaymentHeader}
	}

	requirement, err := x402.FindMatchingRequirement(*payment, requirements)
	if err != nil {
		return nil, nil, nil, &PaymentRequiredError{Reason: errNoMatchingRequirement}
	}

	verify, err := m.facilitator.Verify(r.Context(), payment, requirement)
	if err != nil {
		m.logger.Error("facilitator verify failed", "error", err)
		return nil, nil, nil, &PaymentRequiredError{Reason: "Invalid payment: " + unknownErrorReason}
	}
	if !verify.IsValid {
		reason := verify.InvalidReason
		if reason == "" {
			reason = unknownErrorReason
		}
		return nil, nil, nil, &PaymentRequiredError{Reason: "Invalid payment: " + reason}
	}

	return payment, requirement, verify, nil
}

// SettlePayment executes the payment through the facilitator. A non-nil
// *PaymentRequiredError carries the exact wire message for the 402.
func (m *Middleware) SettlePayment(ctx context.Context, payment *x402.PaymentPayload, requirement *x402.PaymentRequirement) (*x402.SettlementResponse, *PaymentRequiredError) {
	settlement, err := m.facilitator.Settle(ctx, payment, requirement)
	if err != nil {
		m.logger.Error("facilitator settle failed", "error", err)
		return nil, &PaymentRequiredError{Reason: errSettleFailed}
	}
	if !settlement.Success {
		reason := settlement.ErrorReason
		if reason == "" {
			reason = unknownErrorReason
		}
		m.logger.Warn("settlement rejected", "reason", reason)
		return nil, &PaymentRequiredError{Reason: errSettleFailed + ": " + reason}
	}
	return settlement, nil
}

// RespondPaymentRequired emits the 402 challenge, negotiating between the
// JSON body and the browser paywall.
func (m *Middleware) RespondPaymentRequired(w http.ResponseWriter, r *http.Request, message string, requirements []x402.PaymentRequirement) {
	if IsBrowserRequest(r.Header.Get("Accept"), r.Header.Get("User-Agent")) {
		html := m.cfg.CustomPaywallHTML
		if html == "" {
			html = GetPaywallHTML(message, requirements, m.cfg.PaywallConfig)
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(html))
		return
	}
	helpers.WriteJSONPaymentRequired(w, message, requirements)
}

// Logger returns the middleware's logger, for adapters.
func (m *Middleware) Logger() *slog.Logger {
	return m.logger
}

// SetPaymentResponseHeader attaches a settlement receipt as the
// X-PAYMENT-RESPONSE header. It must run before the response commits.
func SetPaymentResponseHeader(h http.Header, settlement *x402.SettlementResponse) error {
	return helpers.SetPaymentResponseHeader(h, settlement)
}

// Context plumbing for downstream handlers.

type paymentDetailsKeyType struct{}
type verifyResponseKeyType struct{}

var (
	paymentDetailsKey paymentDetailsKeyType
	verifyResponseKey verifyResponseKeyType
)

// NewPaymentContext records a verified payment's requirement and verify
// response on the context for downstream handlers.
func NewPaymentContext(ctx context.Context, requirement *x402.PaymentRequirement, verify *VerifyResponse) context.Context {
	ctx = context.WithValue(ctx, paymentDetailsKey, requirement)
	return context.WithValue(ctx, verifyResponseKey, verify)
}

// PaymentDetailsFromContext returns the requirement the caller paid for.
func PaymentDetailsFromContext(ctx context.Context) (*x402.PaymentRequirement, bool) {
	requirement, ok := ctx.Value(paymentDetailsKey).(*x402.PaymentRequirement)
	return requirement, ok
}

// VerifyResponseFromContext returns the facilitator's verify verdict,
// including the payer address.
func VerifyResponseFromContext(ctx context.Context) (*VerifyResponse, bool) {
	verify, ok := ctx.Value(verifyResponseKey).(*VerifyResponse)
	return verify, ok
}
