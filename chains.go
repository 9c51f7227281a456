package x402

import (
	"fmt"
	"sort"
	"strings"
)

// Network identifiers for the supported chains. The set is closed:
// GetChainID rejects anything else except a raw decimal chain ID.
const (
	NetworkBase          = "base"
	NetworkBSCMainnet    = "bsc-mainnet"
	NetworkAvalancheFuji = "avalanche-fuji"
	NetworkAvalanche     = "avalanche"
)

// networkChainIDs maps each supported network identifier to its decimal
// chain ID. "bsc-mainnet" maps to chain 84532, a testnet: deployed
// facilitators depend on that mapping, so it is mirrored here. Never infer
// chain parameters from the network name.
var networkChainIDs = map[string]string{
	NetworkBase:          "8453",
	NetworkBSCMainnet:    "84532",
	NetworkAvalancheFuji: "43113",
	NetworkAvalanche:     "43114",
}

// KnownToken is one row of the token registry: a settlement token the
// module knows how to price and sign for on a given chain.
type KnownToken struct {
	// HumanName is the registry key (e.g., "usdc").
	HumanName string

	// Address is the token contract address.
	Address string

	// Name is the value of the contract's name() function, used as the
	// EIP-712 domain name.
	Name string

	// Version is the value of the contract's version() function, used as
	// the EIP-712 domain version.
	Version string

	// Decimals is the number of decimal places for the token.
	Decimals int
}

// Asset converts the registry row into the TokenAsset used for pricing
// and signing.
func (t KnownToken) Asset() TokenAsset {
	return TokenAsset{
		Address:  t.Address,
		Decimals: t.Decimals,
		EIP712: EIP712Domain{
			Name:    t.Name,
			Version: t.Version,
		},
	}
}

// knownTokens is keyed by decimal chain ID. The first entry for a chain is
// its default settlement token. Addresses and EIP-712 domain parameters
// were read from the deployed contracts.
var knownTokens = map[string][]KnownToken{
	"8453": {
		{HumanName: "usdc", Address: "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913", Name: "USD Coin", Version: "2", Decimals: 6},
	},
	"84532": {
		{HumanName: "usdc", Address: "0x036CbD53842c5426634e7929541eC2318f3dCF7e", Name: "USDC", Version: "2", Decimals: 6},
	},
	"43113": {
		{HumanName: "usdc", Address: "0x5425890298aed601595a70AB815c96711a31Bc65", Name: "USD Coin", Version: "2", Decimals: 6},
	},
	"43114": {
		{HumanName: "usdc", Address: "0xB97EF9Ef8734C71904D8002F8b6Bc66Dd9c48a6E", Name: "USDC", Version: "2", Decimals: 6},
	},
}

// GetChainID resolves a network identifier to its decimal chain ID.
// A string that is already a decimal chain ID passes through unchanged.
func GetChainID(network string) (string, error) {
	if id, ok := networkChainIDs[network]; ok {
		return id, nil
	}
	if isDecimal(network) {
		return network, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedNetwork, network)
}

// IsSupportedNetwork reports whether network is one of the closed set of
// named networks. Raw chain IDs are not considered supported names.
func IsSupportedNetwork(network string) bool {
	_, ok := networkChainIDs[network]
	return ok
}

// SupportedNetworks returns the accepted network identifiers in sorted order.
func SupportedNetworks() []string {
	names := make([]string, 0, len(networkChainIDs))
	for name := range networkChainIDs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultToken returns the default settlement token for a network,
// currently USDC on every supported chain.
func DefaultToken(network string) (KnownToken, error) {
	chainID, err := GetChainID(network)
	if err != nil {
		return KnownToken{}, err
	}
	tokens := knownTokens[chainID]
	if len(tokens) == 0 {
		return KnownToken{}, fmt.Errorf("%w %q (chain %s)", ErrUnknownToken, network, chainID)
	}
	return tokens[0], nil
}

// TokenByAddress looks up a registry entry by contract address. The
// comparison is case-insensitive: EVM addresses carry a checksum in their
// letter casing that must not affect identity.
func TokenByAddress(network, address string) (KnownToken, error) {
	chainID, err := GetChainID(network)
	if err != nil {
		return KnownToken{}, err
	}
	for _, tok := range knownTokens[chainID] {
		if strings.EqualFold(tok.Address, address) {
			return tok, nil
		}
	}
	return KnownToken{}, fmt.Errorf("%w %q: no token %s", ErrUnknownToken, network, address)
}

// TokenByName looks up a registry entry by its human name (e.g., "usdc").
func TokenByName(network, humanName string) (KnownToken, error) {
	chainID, err := GetChainID(network)
	if err != nil {
		return KnownToken{}, err
	}
	for _, tok := range knownTokens[chainID] {
		if strings.EqualFold(tok.HumanName, humanName) {
			return tok, nil
		}
	}
	return KnownToken{}, fmt.Errorf("%w %q: no token named %q", ErrUnknownToken, network, humanName)
}

func isDecimal(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// NewUSDCTokenConfig creates a TokenConfig for USDC on the given network
// with the specified priority. This is a convenience helper for USDC; for
// other tokens, construct TokenConfig directly.
func NewUSDCTokenConfig(network string, priority int) (TokenConfig, error) {
	tok, err := DefaultToken(network)
	if err != nil {
		return TokenConfig{}, err
	}
	return TokenConfig{
		Address:  tok.Address,
		Symbol:   "USDC",
		Decimals: tok.Decimals,
		Priority: priority,
		Name:     tok.Name,
	}, nil
}

// USDCRequirementConfig is the configuration for creating a USDC
// PaymentRequirement. This is a convenience helper for USDC payments. For
// other tokens, construct PaymentRequirement directly.
type USDCRequirementConfig struct {
	// Network is the network identifier (required).
	Network string

	// Amount is the human-readable USDC amount (e.g., "1.5" = 1.5 USDC).
	// Zero amounts ("0" or "0.0") are allowed for free-with-signature
	// authorization flows.
	Amount string

	// RecipientAddress is the payment recipient address (required).
	RecipientAddress string

	// Resource is the URL of the protected resource (optional).
	Resource string

	// Description is a human-readable payment description (optional).
	Description string

	// Scheme is the payment scheme (optional, defaults to "exact").
	Scheme string

	// MaxTimeoutSeconds is the maximum payment timeout (optional, defaults to 300).
	MaxTimeoutSeconds int

	// MimeType is the response MIME type (optional, defaults to "application/json").
	MimeType string
}

// NewUSDCPaymentRequirement creates a PaymentRequirement for USDC from the
// given configuration. It validates inputs, converts the amount to atomic
// units using exact decimal arithmetic, applies defaults for optional
// fields, and populates the EIP-712 domain parameters from the registry.
func NewUSDCPaymentRequirement(config USDCRequirementConfig) (PaymentRequirement, error) {
	if config.RecipientAddress == "" {
		return PaymentRequirement{}, fmt.Errorf("recipientAddress: cannot be empty")
	}
	if config.Amount == "" {
		return PaymentRequirement{}, fmt.Errorf("amount: cannot be empty")
	}

	atomic, asset, err := ProcessPriceToAtomicAmount(Money(config.Amount), config.Network)
	if err != nil {
		return PaymentRequirement{}, fmt.Errorf("amount: %w", err)
	}

	scheme := config.Scheme
	if scheme == "" {
		scheme = SchemeExact
	}
	maxTimeout := config.MaxTimeoutSeconds
	if maxTimeout == 0 {
		maxTimeout = 300
	}
	mimeType := config.MimeType
	if mimeType == "" {
		mimeType = "application/json"
	}

	return PaymentRequirement{
		Scheme:            scheme,
		Network:           config.Network,
		MaxAmountRequired: atomic,
		Asset:             asset.Address,
		PayTo:             config.RecipientAddress,
		Resource:          config.Resource,
		Description:       config.Description,
		MimeType:          mimeType,
		MaxTimeoutSeconds: maxTimeout,
		Extra: map[string]interface{}{
			"name":    asset.EIP712.Name,
			"version": asset.EIP712.Version,
		},
	}, nil
}
