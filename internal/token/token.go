// Package token provides a type-safe model for ERC-20 tokens and the chain's
// native coin. Amounts use big.Int in smallest units; decimal.Decimal is only
// used at boundaries (parsing, display).
package token

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// NativeAddress is the sentinel address representing the chain's native coin.
// Any address equal to it under case-insensitive comparison is native.
var NativeAddress = common.HexToAddress("0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE")

// IsNativeAddress reports whether addr denotes the native coin.
func IsNativeAddress(addr common.Address) bool {
	return addr == NativeAddress
}

// Token represents the metadata of an on-chain asset. Immutable after
// construction. The address is the identity; the symbol is display metadata.
type Token struct {
	address  common.Address
	symbol   string
	name     string
	decimals uint8
}

// New creates a new Token with the given parameters.
func New(address common.Address, symbol string, decimals uint8) *Token {
	if symbol == "" {
		panic("token: empty symbol")
	}
	return &Token{
		address:  address,
		symbol:   symbol,
		decimals: decimals,
	}
}

// NewWithName creates a new Token with a human-readable name.
func NewWithName(address common.Address, symbol, name string, decimals uint8) *Token {
	t := New(address, symbol, decimals)
	t.name = name
	return t
}

// Address returns the contract address (the native sentinel for the native coin).
func (t *Token) Address() common.Address {
	return t.address
}

// Symbol returns the ticker symbol (e.g., "ETH", "USDC").
func (t *Token) Symbol() string {
	return t.symbol
}

// Name returns the human-readable name (e.g., "USD Coin").
func (t *Token) Name() string {
	if t.name == "" {
		return t.symbol
	}
	return t.name
}

// Decimals returns the number of decimal places.
func (t *Token) Decimals() uint8 {
	return t.decimals
}

// IsNative returns true if this is the chain's native coin.
func (t *Token) IsNative() bool {
	return IsNativeAddress(t.address)
}

// HexLower returns the lowercase hex address with 0x prefix, the canonical
// form used in responses and for comparisons.
func (t *Token) HexLower() string {
	return strings.ToLower(t.address.Hex())
}

// String returns a human-readable representation.
func (t *Token) String() string {
	return t.symbol
}

// Equals compares two Tokens by address.
func (t *Token) Equals(other *Token) bool {
	if t == nil || other == nil {
		return t == other
	}
	return t.address == other.address
}
