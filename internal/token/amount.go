package token

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// Common errors
var (
	ErrNegativeAmount  = errors.New("token: negative amount")
	ErrTooManyDecimals = errors.New("token: too many decimal places for token")
)

// ParseAmount converts a decimal string into smallest-unit integer form by
// shifting it by the token's decimal count. This is a BOUNDARY function for
// parsing user input.
func ParseAmount(s string, decimals uint8) (*big.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("token: invalid decimal string: %w", err)
	}
	return ParseDecimal(d, decimals)
}

// ParseDecimal converts a decimal value into smallest-unit integer form.
func ParseDecimal(d decimal.Decimal, decimals uint8) (*big.Int, error) {
	if d.IsNegative() {
		return nil, ErrNegativeAmount
	}

	scaled := d.Shift(int32(decimals))

	// Reject input with more fractional digits than the token carries
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, ErrTooManyDecimals
	}

	return scaled.BigInt(), nil
}

// FormatAmount converts a smallest-unit integer into its decimal string form,
// the inverse of ParseAmount.
func FormatAmount(raw *big.Int, decimals uint8) string {
	if raw == nil {
		return "0"
	}
	return decimal.NewFromBigInt(raw, -int32(decimals)).String()
}

// ToDecimal converts a smallest-unit integer into a decimal value for
// display or percentage math. Not for amount arithmetic.
func ToDecimal(raw *big.Int, decimals uint8) decimal.Decimal {
	if raw == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(raw, -int32(decimals))
}
