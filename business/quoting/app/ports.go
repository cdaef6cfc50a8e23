// Package app contains application services and port definitions for the
// quoting context.
package app

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/dex-aggregator/business/quoting/domain"
	"github.com/fd1az/dex-aggregator/internal/token"
)

// Typed chain-reader errors. Implementations wrap transport failures in
// apperror and reduce zero-address and revert results to these sentinels so
// adapters can distinguish "no pool" from "node trouble" with errors.Is.
var (
	// ErrNotFound means the factory returned the zero address.
	ErrNotFound = errors.New("chain: not found")
	// ErrReverted means the call executed and reverted.
	ErrReverted = errors.New("chain: execution reverted")
)

// ERC20Metadata is the on-chain metadata of a token contract.
type ERC20Metadata struct {
	Name     string
	Symbol   string
	Decimals uint8
}

// Slot0 is the observable state of a V3 pool's slot0.
type Slot0 struct {
	SqrtPriceX96 *big.Int
	Tick         *big.Int
}

// V3PoolState bundles the immutable parameters of a V3 pool.
type V3PoolState struct {
	Token0      common.Address
	Token1      common.Address
	Fee         int
	TickSpacing int
}

// V3QuoteResult is the quoter's answer for a simulated swap.
// SqrtPriceX96After and GasEstimate are nil when the deployed quoter exposes
// only the output amount.
type V3QuoteResult struct {
	AmountOut         *big.Int
	SqrtPriceX96After *big.Int
	GasEstimate       *big.Int
}

// ChainReader is the typed read capability adapters depend on. Every call is a
// pure read, deterministic for a given chain state, and safe for concurrent
// use.
type ChainReader interface {
	// ERC-20
	ERC20Metadata(ctx context.Context, addr common.Address) (ERC20Metadata, error)
	Allowance(ctx context.Context, tokenAddr, owner, spender common.Address) (*big.Int, error)

	// V2 factory and pair
	V2GetPair(ctx context.Context, factory, tokenA, tokenB common.Address) (common.Address, error)
	V2Reserves(ctx context.Context, pair common.Address) (reserve0, reserve1 *big.Int, err error)
	V2Token0(ctx context.Context, pair common.Address) (common.Address, error)
	V2Token1(ctx context.Context, pair common.Address) (common.Address, error)
	V2TotalSupply(ctx context.Context, pair common.Address) (*big.Int, error)

	// V2 router views
	V2AmountsOut(ctx context.Context, router common.Address, amountIn *big.Int, path []common.Address) ([]*big.Int, error)
	V2AmountsIn(ctx context.Context, router common.Address, amountOut *big.Int, path []common.Address) ([]*big.Int, error)

	// V3 factory, pool and quoter
	V3GetPool(ctx context.Context, factory, tokenA, tokenB common.Address, feeTier int) (common.Address, error)
	V3Slot0(ctx context.Context, pool common.Address) (Slot0, error)
	V3Liquidity(ctx context.Context, pool common.Address) (*big.Int, error)
	V3PoolState(ctx context.Context, pool common.Address) (V3PoolState, error)
	V3QuoteExactInputSingle(ctx context.Context, quoter, tokenIn, tokenOut common.Address, feeTier int, amountIn, sqrtPriceLimitX96 *big.Int) (V3QuoteResult, error)
}

// VenueAdapter is the uniform capability every liquidity venue exposes.
// QuoteAll returns an empty slice when no pool carries the pair; it only
// fails on transport-level trouble.
type VenueAdapter interface {
	QuoteAll(ctx context.Context, tokenIn, tokenOut *token.Token, amountIn *big.Int) ([]domain.VenueQuote, error)
	// PoolExists reports whether a pool serves the pair. feeTier is ignored
	// by V2 venues; 0 means "any tier" for V3.
	PoolExists(ctx context.Context, tokenIn, tokenOut common.Address, feeTier int) (bool, error)
	TokenInfo(ctx context.Context, addr common.Address) (*token.Token, error)
	Name() string
	Version() domain.Protocol
}

// V2SwapFunc selects the V2 router function for a swap.
type V2SwapFunc string

const (
	SwapExactETHForTokens    V2SwapFunc = "swapExactETHForTokens"
	SwapExactTokensForETH    V2SwapFunc = "swapExactTokensForETH"
	SwapExactTokensForTokens V2SwapFunc = "swapExactTokensForTokens"
)

// V3ExactInputSingleParams mirrors the V3 swap router's tuple argument.
type V3ExactInputSingleParams struct {
	TokenIn           common.Address
	TokenOut          common.Address
	Fee               int
	Recipient         common.Address
	Deadline          *big.Int
	AmountIn          *big.Int
	AmountOutMinimum  *big.Int
	SqrtPriceLimitX96 *big.Int
}

// TxEncoder produces router calldata for a chosen route.
type TxEncoder interface {
	EncodeV2Swap(fn V2SwapFunc, amountIn, amountOutMin *big.Int, path []common.Address, recipient common.Address, deadline *big.Int) ([]byte, error)
	EncodeV3ExactInputSingle(params V3ExactInputSingleParams) ([]byte, error)
}
