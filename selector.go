package x402

import (
	"math/big"
	"sort"
	"strings"
)

// PaymentSelector chooses a payment requirement from a 402 response and a
// signer able to satisfy it, and produces the signed payment.
type PaymentSelector interface {
	// SelectAndSign walks the offered requirements, picks one a configured
	// signer can satisfy, and returns the signed payment together with the
	// requirement it satisfies.
	SelectAndSign(requirements []PaymentRequirement, signers []Signer) (*PaymentPayload, *PaymentRequirement, error)
}

// DefaultPaymentSelector implements the standard payment selection algorithm.
//
// Requirements are considered in the order the server offered them. Entries
// are skipped when they fail the configured network or scheme filter, or
// when their scheme is not "exact". For each considered entry, capable
// signers are ranked by:
//  1. Signer priority (lower number = higher priority)
//  2. Token priority within the signer
//  3. Configuration order (for ties)
//
// A configured MaxValue cap is enforced before any signing: a considered
// requirement above the cap aborts selection entirely rather than falling
// through to a cheaper option.
type DefaultPaymentSelector struct {
	// NetworkFilter restricts selection to a single network when non-empty.
	NetworkFilter string

	// SchemeFilter restricts selection to a single scheme when non-empty.
	SchemeFilter string

	// MaxValue caps the per-payment amount in atomic units when non-nil.
	// The cap is inclusive: a requirement equal to MaxValue is accepted.
	MaxValue *big.Int
}

// NewDefaultPaymentSelector creates a DefaultPaymentSelector with no
// filters and no spending cap.
func NewDefaultPaymentSelector() *DefaultPaymentSelector {
	return &DefaultPaymentSelector{}
}

// SelectAndSign implements PaymentSelector.
func (s *DefaultPaymentSelector) SelectAndSign(requirements []PaymentRequirement, signers []Signer) (*PaymentPayload, *PaymentRequirement, error) {
	if len(signers) == 0 {
		return nil, nil, NewPaymentError(ErrCodeNoValidSigner, "no signers configured", ErrNoValidSigner)
	}

	sawExact := false
	for i := range requirements {
		req := &requirements[i]

		if s.NetworkFilter != "" && req.Network != s.NetworkFilter {
			continue
		}
		if s.SchemeFilter != "" && req.Scheme != s.SchemeFilter {
			continue
		}
		if req.Scheme != SchemeExact {
			continue
		}
		sawExact = true

		requiredAmount := new(big.Int)
		if _, ok := requiredAmount.SetString(req.MaxAmountRequired, 10); !ok {
			return nil, nil, NewPaymentError(ErrCodeInvalidRequirements, "invalid amount in requirements", ErrInvalidRequirements).
				WithDetails("amount", req.MaxAmountRequired)
		}

		// The cap aborts selection outright so a mispriced offer cannot be
		// silently skipped in favor of a later one.
		if s.MaxValue != nil && requiredAmount.Cmp(s.MaxValue) > 0 {
			return nil, nil, NewPaymentError(ErrCodeAmountExceeded, "payment amount exceeds configured maximum", ErrAmountExceeded).
				WithDetails("amount", req.MaxAmountRequired).
				WithDetails("maxValue", s.MaxValue.String())
		}

		selectedSigner := selectSigner(req, requiredAmount, signers)
		if selectedSigner == nil {
			continue
		}

		payment, err := selectedSigner.Sign(req)
		if err != nil {
			return nil, nil, NewPaymentError(ErrCodeSigningFailed, "failed to sign payment", err)
		}
		return payment, req, nil
	}

	if !sawExact {
		return nil, nil, NewPaymentError(ErrCodeUnsupportedScheme, "no requirement uses a supported scheme", ErrUnsupportedScheme)
	}
	return nil, nil, NewPaymentError(ErrCodeNoValidSigner, "no signer can satisfy requirements", ErrNoValidSigner)
}

// selectSigner ranks the signers able to satisfy req and returns the best,
// or nil if none qualify.
func selectSigner(req *PaymentRequirement, requiredAmount *big.Int, signers []Signer) Signer {
	var candidates []signerCandidate
	for _, signer := range signers {
		if !signer.CanSign(req) {
			continue
		}

		// Per-signer spending limit.
		maxAmount := signer.GetMaxAmount()
		if maxAmount != nil && requiredAmount.Cmp(maxAmount) > 0 {
			continue
		}

		// Find the matching token's priority within the signer.
		tokenPriority := 0
		for _, token := range signer.GetTokens() {
			if strings.EqualFold(token.Address, req.Asset) {
				tokenPriority = token.Priority
				break
			}
		}

		candidates = append(candidates, signerCandidate{
			signer:         signer,
			signerPriority: signer.GetPriority(),
			tokenPriority:  tokenPriority,
		})
	}

	if len(candidates) == 0 {
		return nil
	}

	// Lower priority numbers come first; stable sort preserves
	// configuration order for ties.
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].signerPriority != candidates[j].signerPriority {
			return candidates[i].signerPriority < candidates[j].signerPriority
		}
		return candidates[i].tokenPriority < candidates[j].tokenPriority
	})

	return candidates[0].signer
}

// signerCandidate is a signer that can satisfy the payment requirement.
type signerCandidate struct {
	signer         Signer
	signerPriority int
	tokenPriority  int
}
