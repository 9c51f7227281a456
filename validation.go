package x402

import (
	"fmt"
	"regexp"
)

var (
	// evmAddressRegex matches Ethereum-style addresses (0x followed by 40 hex chars).
	evmAddressRegex = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)

	// hexBytes32Regex matches a 32-byte value as 0x-prefixed hex.
	hexBytes32Regex = regexp.MustCompile(`^0x[a-fA-F0-9]{64}$`)
)

// ValidateAddress validates an EVM address: 0x followed by 40 hex characters.
func ValidateAddress(address string) error {
	if address == "" {
		return fmt.Errorf("address cannot be empty")
	}
	if !evmAddressRegex.MatchString(address) {
		return fmt.Errorf("invalid address format: %s (expected 0x followed by 40 hex characters)", address)
	}
	return nil
}

// ValidateAmount validates that an amount string is a non-negative base-10
// integer. Zero is allowed: free-with-signature flows advertise a zero price.
func ValidateAmount(amount string) error {
	if amount == "" {
		return fmt.Errorf("amount cannot be empty")
	}
	if _, err := ParseAtomicAmount(amount); err != nil {
		return err
	}
	return nil
}

// Validate performs structural validation of a payment requirement:
// amount, network, addresses, scheme, timeout, and the EIP-712 domain
// parameters when present.
func (r *PaymentRequirement) Validate() error {
	if err := ValidateAmount(r.MaxAmountRequired); err != nil {
		return fmt.Errorf("invalid requirement: %w", err)
	}

	if r.Network == "" {
		return fmt.Errorf("invalid requirement: network cannot be empty")
	}
	if _, err := GetChainID(r.Network); err != nil {
		return fmt.Errorf("invalid requirement: %w", err)
	}

	if err := ValidateAddress(r.PayTo); err != nil {
		return fmt.Errorf("invalid requirement: payTo: %w", err)
	}
	if err := ValidateAddress(r.Asset); err != nil {
		return fmt.Errorf("invalid requirement: asset: %w", err)
	}

	if r.Scheme == "" {
		return fmt.Errorf("invalid requirement: scheme cannot be empty")
	}

	if r.MaxTimeoutSeconds < 0 {
		return fmt.Errorf("invalid requirement: timeout cannot be negative: %d", r.MaxTimeoutSeconds)
	}

	if r.Extra != nil {
		if name, ok := r.Extra["name"].(string); ok && name == "" {
			return fmt.Errorf("invalid requirement: EIP-712 domain name cannot be empty")
		}
		if version, ok := r.Extra["version"].(string); ok && version == "" {
			return fmt.Errorf("invalid requirement: EIP-712 domain version cannot be empty")
		}
	}

	return nil
}

// Validate performs structural validation of a payment payload.
func (p *PaymentPayload) Validate() error {
	if p.X402Version != X402Version {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, p.X402Version)
	}
	if p.Scheme == "" {
		return fmt.Errorf("scheme cannot be empty")
	}
	if p.Network == "" {
		return fmt.Errorf("network cannot be empty")
	}
	if _, err := GetChainID(p.Network); err != nil {
		return err
	}
	if p.Payload == nil {
		return fmt.Errorf("payload cannot be nil")
	}
	return p.Payload.Validate()
}

// Validate checks an EVM payload's signature framing and authorization.
func (p *EVMPayload) Validate() error {
	if p.Signature == "" {
		return fmt.Errorf("%w: empty signature", ErrInvalidSignature)
	}
	if len(p.Signature) < 2 || p.Signature[:2] != "0x" {
		return fmt.Errorf("%w: signature must be 0x-prefixed hex", ErrInvalidSignature)
	}
	return p.Authorization.Validate()
}

// Validate checks the EIP-3009 authorization fields: addresses, integer
// value and timestamps, and the 32-byte nonce encoding.
func (a *EVMAuthorization) Validate() error {
	if err := ValidateAddress(a.From); err != nil {
		return fmt.Errorf("%w: from: %v", ErrInvalidAuthorization, err)
	}
	if err := ValidateAddress(a.To); err != nil {
		return fmt.Errorf("%w: to: %v", ErrInvalidAuthorization, err)
	}
	if err := ValidateAmount(a.Value); err != nil {
		return fmt.Errorf("%w: value: %v", ErrInvalidAuthorization, err)
	}
	validAfter, err := ParseAtomicAmount(a.ValidAfter)
	if err != nil {
		return fmt.Errorf("%w: validAfter: %v", ErrInvalidAuthorization, err)
	}
	validBefore, err := ParseAtomicAmount(a.ValidBefore)
	if err != nil {
		return fmt.Errorf("%w: validBefore: %v", ErrInvalidAuthorization, err)
	}
	if validBefore.Cmp(validAfter) < 0 {
		return fmt.Errorf("%w: validBefore precedes validAfter", ErrInvalidAuthorization)
	}
	if !hexBytes32Regex.MatchString(a.Nonce) {
		return fmt.Errorf("%w: nonce must be 32 bytes of 0x-prefixed hex", ErrInvalidNonce)
	}
	return nil
}

// Validate checks a token asset used for pricing.
func (t *TokenAsset) Validate() error {
	if err := ValidateAddress(t.Address); err != nil {
		return err
	}
	if t.Decimals < 0 || t.Decimals > 255 {
		return fmt.Errorf("decimals must be in [0, 255], got %d", t.Decimals)
	}
	return nil
}

// FindMatchingRequirement finds the payment requirement that matches the
// provided payment's scheme and network.
//
// Returns ErrUnsupportedScheme if no requirement matches.
func FindMatchingRequirement(payment PaymentPayload, requirements []PaymentRequirement) (*PaymentRequirement, error) {
	for i := range requirements {
		if requirements[i].Scheme == payment.Scheme && requirements[i].Network == payment.Network {
			return &requirements[i], nil
		}
	}
	return nil, fmt.Errorf("%w: no requirement for scheme %q on network %q", ErrUnsupportedScheme, payment.Scheme, payment.Network)
}
