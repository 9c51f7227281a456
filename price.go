package x402

import (
	"fmt"
	"math/big"
	"strings"
)

// Price is a payment price: either a USD Money value resolved against the
// network's default settlement token, or an explicit TokenAmount already
// denominated in a token's atomic units.
type Price interface {
	isPrice()
}

// Money is a USD price string, with or without a leading dollar sign
// (e.g., "$1.00" or "0.001").
type Money string

func (Money) isPrice() {}

// TokenAmount prices a resource in an explicit token: an atomic-unit
// amount plus the asset to pay it in.
type TokenAmount struct {
	// Amount is the payment amount in atomic units.
	Amount string `json:"amount"`

	// Asset identifies the token and its signing domain.
	Asset TokenAsset `json:"asset"`
}

func (TokenAmount) isPrice() {}

// ProcessPriceToAtomicAmount resolves a Price into the atomic-unit amount
// and asset used to build a payment requirement.
//
// A Money price is parsed as a decimal USD value and converted against the
// network's default token using exact rational arithmetic, so "$0.001" on
// a 6-decimal token yields "1000" with no floating-point rounding. Value
// below one atomic unit is truncated. A TokenAmount passes through after
// its amount is checked to be a non-negative integer.
func ProcessPriceToAtomicAmount(price Price, network string) (string, TokenAsset, error) {
	switch p := price.(type) {
	case Money:
		return resolveMoney(string(p), network)
	case TokenAmount:
		if _, err := ParseAtomicAmount(p.Amount); err != nil {
			return "", TokenAsset{}, fmt.Errorf("%w: token amount: %v", ErrInvalidPrice, err)
		}
		return p.Amount, p.Asset, nil
	case nil:
		return "", TokenAsset{}, fmt.Errorf("%w: nil price", ErrInvalidPrice)
	default:
		return "", TokenAsset{}, fmt.Errorf("%w: unsupported price type %T", ErrInvalidPrice, price)
	}
}

func resolveMoney(raw, network string) (string, TokenAsset, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "$")
	s = strings.TrimSpace(s)
	if s == "" {
		return "", TokenAsset{}, fmt.Errorf("%w: empty money value", ErrInvalidPrice)
	}

	value := new(big.Rat)
	if _, ok := value.SetString(s); !ok {
		return "", TokenAsset{}, fmt.Errorf("%w: %q", ErrInvalidPrice, raw)
	}
	if value.Sign() < 0 {
		return "", TokenAsset{}, fmt.Errorf("%w: negative money value %q", ErrInvalidPrice, raw)
	}

	tok, err := DefaultToken(network)
	if err != nil {
		return "", TokenAsset{}, err
	}

	scale := new(big.Rat).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(tok.Decimals)), nil))
	value.Mul(value, scale)

	// Truncate anything below one atomic unit.
	atomic := new(big.Int).Quo(value.Num(), value.Denom())
	return atomic.String(), tok.Asset(), nil
}

// ParseAtomicAmount parses an atomic-unit amount string, which must be a
// non-negative base-10 integer.
func ParseAtomicAmount(amount string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(amount, 10)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, amount)
	}
	if v.Sign() < 0 {
		return nil, fmt.Errorf("%w: negative amount %q", ErrInvalidAmount, amount)
	}
	return v, nil
}

// AmountToBigInt converts a decimal amount string to *big.Int in atomic units.
// For example, "1.5" with 6 decimals becomes 1500000.
// Returns ErrInvalidAmount if the amount is negative, decimals is negative,
// or the result is not a whole number of atomic units.
func AmountToBigInt(amount string, decimals int) (*big.Int, error) {
	if decimals < 0 {
		return nil, ErrInvalidAmount
	}

	value := new(big.Rat)
	if _, ok := value.SetString(amount); !ok {
		return nil, ErrInvalidAmount
	}
	if value.Sign() < 0 {
		return nil, ErrInvalidAmount
	}

	scale := new(big.Rat).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
	value.Mul(value, scale)

	if value.Denom().Cmp(big.NewInt(1)) != 0 {
		return nil, ErrInvalidAmount
	}
	return new(big.Int).Set(value.Num()), nil
}

// BigIntToAmount converts a *big.Int in atomic units to a decimal string.
// For example, 1500000 with 6 decimals becomes "1.500000".
func BigIntToAmount(value *big.Int, decimals int) string {
	if value == nil {
		return "0"
	}

	rat := new(big.Rat).SetInt(value)
	scale := new(big.Rat).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
	rat.Quo(rat, scale)

	return rat.FloatString(decimals)
}
