// Package evm implements the x402 payment signer for EVM-compatible
// chains: EIP-3009 transfer authorizations signed as EIP-712 typed data.
package evm

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/x402dev/x402-go"
	"github.com/x402dev/x402-go/encoding"
)

// Signer implements x402.Signer. It holds one private key and signs
// transfer authorizations for the tokens it is configured to spend on a
// single network. Immutable after construction and safe for concurrent
// use; the only shared state it touches is the process CSPRNG.
type Signer struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
	network    string
	chainID    *big.Int
	tokens     []x402.TokenConfig
	priority   int
	maxAmount  *big.Int
}

// SignerOption configures a Signer.
type SignerOption func(*Signer) error

// NewSigner creates an EVM signer. A key source (WithPrivateKey,
// WithKeystore, or WithMnemonic) and a supported network are required;
// configuration problems surface here, never at signing time. When no
// token is configured the network's default settlement token is used.
func NewSigner(opts ...SignerOption) (*Signer, error) {
	s := &Signer{}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	if s.privateKey == nil {
		return nil, fmt.Errorf("%w: no key configured", x402.ErrInvalidKey)
	}
	if s.network == "" {
		return nil, fmt.Errorf("%w: no network configured", x402.ErrInvalidNetwork)
	}

	chainID, err := x402.GetChainID(s.network)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", x402.ErrInvalidNetwork, s.network)
	}
	id, ok := new(big.Int).SetString(chainID, 10)
	if !ok {
		return nil, fmt.Errorf("%w: chain id %q", x402.ErrInvalidNetwork, chainID)
	}
	s.chainID = id

	if len(s.tokens) == 0 {
		cfg, err := x402.NewUSDCTokenConfig(s.network, 0)
		if err != nil {
			return nil, fmt.Errorf("%w: no token configured and no default for %q", x402.ErrNoTokens, s.network)
		}
		s.tokens = []x402.TokenConfig{cfg}
	}

	s.address = crypto.PubkeyToAddress(s.privateKey.PublicKey)
	return s, nil
}

// WithPrivateKey sets the signing key from a hex string, 0x prefix optional.
func WithPrivateKey(hexKey string) SignerOption {
	return func(s *Signer) error {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
		if err != nil {
			return fmt.Errorf("%w: %v", x402.ErrInvalidKey, err)
		}
		s.privateKey = key
		return nil
	}
}

// WithNetwork sets the network the signer pays on.
func WithNetwork(network string) SignerOption {
	return func(s *Signer) error {
		s.network = network
		return nil
	}
}

// WithToken adds a token the signer may spend.
func WithToken(token x402.TokenConfig) SignerOption {
	return func(s *Signer) error {
		if err := x402.ValidateAddress(token.Address); err != nil {
			return fmt.Errorf("%w: %v", x402.ErrInvalidToken, err)
		}
		s.tokens = append(s.tokens, token)
		return nil
	}
}

// WithPriority sets the signer's priority for selection among multiple
// signers. Lower numbers win.
func WithPriority(priority int) SignerOption {
	return func(s *Signer) error {
		s.priority = priority
		return nil
	}
}

// WithMaxAmountPerCall caps the atomic-unit amount of a single payment.
func WithMaxAmountPerCall(amount *big.Int) SignerOption {
	return func(s *Signer) error {
		if amount == nil || amount.Sign() < 0 {
			return fmt.Errorf("%w: max amount must be non-negative", x402.ErrInvalidAmount)
		}
		s.maxAmount = new(big.Int).Set(amount)
		return nil
	}
}

// Network implements x402.Signer.
func (s *Signer) Network() string {
	return s.network
}

// Scheme implements x402.Signer.
func (s *Signer) Scheme() string {
	return x402.SchemeExact
}

// Address returns the address derived from the signing key.
func (s *Signer) Address() common.Address {
	return s.address
}

// CanSign implements x402.Signer: the requirement must be for this
// signer's network, use the exact scheme, name a configured token, and
// fit under the per-call cap when one is set.
func (s *Signer) CanSign(requirement *x402.PaymentRequirement) bool {
	if requirement.Network != s.network || requirement.Scheme != x402.SchemeExact {
		return false
	}
	if !s.knowsToken(requirement.Asset) {
		return false
	}
	if s.maxAmount != nil {
		amount, err := x402.ParseAtomicAmount(requirement.MaxAmountRequired)
		if err != nil || amount.Cmp(s.maxAmount) > 0 {
			return false
		}
	}
	return true
}

// Sign implements x402.Signer. It builds a fresh EIP-3009 authorization
// for the requirement's full amount, signs it as EIP-712 typed data, and
// assembles the payment envelope.
func (s *Signer) Sign(requirement *x402.PaymentRequirement) (*x402.PaymentPayload, error) {
	if requirement.Scheme != x402.SchemeExact {
		return nil, fmt.Errorf("%w: %q", x402.ErrUnsupportedScheme, requirement.Scheme)
	}
	if requirement.Network != s.network {
		return nil, fmt.Errorf("%w: signer is on %q, requirement is for %q", x402.ErrNoValidSigner, s.network, requirement.Network)
	}
	if !s.knowsToken(requirement.Asset) {
		return nil, fmt.Errorf("%w: unknown asset %s", x402.ErrNoValidSigner, requirement.Asset)
	}

	amount, err := x402.ParseAtomicAmount(requirement.MaxAmountRequired)
	if err != nil {
		return nil, err
	}
	if s.maxAmount != nil && amount.Cmp(s.maxAmount) > 0 {
		return nil, fmt.Errorf("%w: %s > %s", x402.ErrAmountExceeded, amount, s.maxAmount)
	}

	auth, err := CreateAuthorization(
		s.address,
		common.HexToAddress(requirement.PayTo),
		amount,
		requirement.MaxTimeoutSeconds,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", x402.ErrSigningFailed, err)
	}

	domain, err := s.signingDomain(requirement)
	if err != nil {
		return nil, err
	}

	signature, err := SignTransferAuthorization(s.privateKey, auth, domain)
	if err != nil {
		return nil, err
	}

	return &x402.PaymentPayload{
		X402Version: x402.X402Version,
		Scheme:      x402.SchemeExact,
		Network:     s.network,
		Payload: &x402.EVMPayload{
			Signature: signature,
			Authorization: x402.EVMAuthorization{
				From:        auth.From.Hex(),
				To:          auth.To.Hex(),
				Value:       auth.Value.String(),
				ValidAfter:  auth.ValidAfter.String(),
				ValidBefore: auth.ValidBefore.String(),
				Nonce:       encoding.EncodeBytes32(auth.Nonce),
			},
		},
	}, nil
}

// GetPriority implements x402.Signer.
func (s *Signer) GetPriority() int {
	return s.priority
}

// GetTokens implements x402.Signer.
func (s *Signer) GetTokens() []x402.TokenConfig {
	return s.tokens
}

// GetMaxAmount implements x402.Signer.
func (s *Signer) GetMaxAmount() *big.Int {
	return s.maxAmount
}

func (s *Signer) knowsToken(asset string) bool {
	for _, token := range s.tokens {
		if strings.EqualFold(token.Address, asset) {
			return true
		}
	}
	return false
}

// signingDomain resolves the EIP-712 domain for a requirement. The
// server advertises the token's name and version in the requirement's
// extra block; the chain registry is the fallback for known tokens.
func (s *Signer) signingDomain(requirement *x402.PaymentRequirement) (Domain, error) {
	domain := Domain{
		ChainID:           s.chainID,
		VerifyingContract: common.HexToAddress(requirement.Asset),
	}

	if requirement.Extra != nil {
		name, _ := requirement.Extra["name"].(string)
		version, _ := requirement.Extra["version"].(string)
		if name != "" && version != "" {
			domain.Name = name
			domain.Version = version
			return domain, nil
		}
	}

	token, err := x402.TokenByAddress(s.network, requirement.Asset)
	if err != nil {
		return Domain{}, fmt.Errorf("%w: no EIP-712 domain for asset %s: %v", x402.ErrSigningFailed, requirement.Asset, err)
	}
	domain.Name = token.Name
	domain.Version = token.Version
	return domain, nil
}
