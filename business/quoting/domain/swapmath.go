// Package domain contains the core domain types for the quoting context.
// All on-chain amounts are big.Int in smallest units; decimal.Decimal is
// used only for price-impact and savings percentages.
package domain

import (
	"errors"
	"math"
	"math/big"

	"github.com/shopspring/decimal"
)

// Common errors
var (
	ErrInsufficientLiquidity = errors.New("domain: insufficient liquidity")
	ErrInvalidAmount         = errors.New("domain: amount must be positive")
)

// Constant-product fee parameters (Uniswap V2, 0.3% fee embedded).
var (
	feeNumerator   = big.NewInt(997)
	feeDenominator = big.NewInt(1000)
	bpsDenominator = big.NewInt(10000)
)

// q96 is 2^96, the fixed-point scale of sqrtPriceX96.
var q96 = new(big.Int).Lsh(big.NewInt(1), 96)

// V2AmountOut computes the output amount of a constant-product swap with the
// 0.3% fee embedded:
//
//	amountInWithFee = amountIn * 997
//	amountOut = amountInWithFee * reserveOut / (reserveIn * 1000 + amountInWithFee)
func V2AmountOut(amountIn, reserveIn, reserveOut *big.Int) (*big.Int, error) {
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	if reserveIn == nil || reserveOut == nil || reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return nil, ErrInsufficientLiquidity
	}

	amountInWithFee := new(big.Int).Mul(amountIn, feeNumerator)
	numerator := new(big.Int).Mul(amountInWithFee, reserveOut)
	denominator := new(big.Int).Mul(reserveIn, feeDenominator)
	denominator.Add(denominator, amountInWithFee)

	return numerator.Div(numerator, denominator), nil
}

// V2PriceImpact computes the percent deviation of the execution price from the
// pool mid price. Reserves and amounts are renormalized by their token
// decimals so both prices are expressed in output units per input unit.
func V2PriceImpact(amountIn, amountOut, reserveIn, reserveOut *big.Int, decimalsIn, decimalsOut uint8) decimal.Decimal {
	if amountIn == nil || amountIn.Sign() == 0 || reserveIn == nil || reserveIn.Sign() == 0 {
		return decimal.Zero
	}

	mid := decimal.NewFromBigInt(reserveOut, -int32(decimalsOut)).
		Div(decimal.NewFromBigInt(reserveIn, -int32(decimalsIn)))
	if mid.IsZero() {
		return decimal.Zero
	}

	exec := decimal.NewFromBigInt(amountOut, -int32(decimalsOut)).
		Div(decimal.NewFromBigInt(amountIn, -int32(decimalsIn)))

	return exec.Sub(mid).Abs().Div(mid).Mul(decimal.NewFromInt(100))
}

// SqrtPriceX96ToPrice converts a pool's sqrtPriceX96 into the instantaneous
// price of token0 in token1, adjusted for token decimals:
//
//	price = (sqrtPriceX96 / 2^96)^2 * 10^(decimals0 - decimals1)
func SqrtPriceX96ToPrice(sqrtPriceX96 *big.Int, decimals0, decimals1 uint8) decimal.Decimal {
	if sqrtPriceX96 == nil || sqrtPriceX96.Sign() <= 0 {
		return decimal.Zero
	}

	sqrt := decimal.NewFromBigInt(sqrtPriceX96, 0).Div(decimal.NewFromBigInt(q96, 0))
	raw := sqrt.Mul(sqrt)

	shift := int32(decimals0) - int32(decimals1)
	return raw.Shift(shift)
}

// PriceToSqrtPriceX96 is the inverse of SqrtPriceX96ToPrice.
func PriceToSqrtPriceX96(price decimal.Decimal, decimals0, decimals1 uint8) *big.Int {
	if price.Sign() <= 0 {
		return big.NewInt(0)
	}

	shift := int32(decimals1) - int32(decimals0)
	raw, _ := price.Shift(shift).Float64()

	sqrt := new(big.Float).SetFloat64(math.Sqrt(raw))
	sqrt.Mul(sqrt, new(big.Float).SetInt(q96))

	out, _ := sqrt.Int(nil)
	return out
}

// V3PriceImpact computes price impact from the pre- and post-swap
// sqrtPriceX96: priceRatio = (after/before)^2, impact = |priceRatio - 1| * 100.
// The form is symmetric in swap direction.
func V3PriceImpact(sqrtPriceBefore, sqrtPriceAfter *big.Int) decimal.Decimal {
	if sqrtPriceBefore == nil || sqrtPriceBefore.Sign() == 0 || sqrtPriceAfter == nil {
		return decimal.Zero
	}

	ratio := decimal.NewFromBigInt(sqrtPriceAfter, 0).Div(decimal.NewFromBigInt(sqrtPriceBefore, 0))
	priceRatio := ratio.Mul(ratio)

	return priceRatio.Sub(decimal.NewFromInt(1)).Abs().Mul(decimal.NewFromInt(100))
}

// ReconstructSqrtPriceAfter estimates the post-swap sqrtPriceX96 from the
// execution/mid price ratio when the quoter reports only the output amount:
//
//	after = before * sqrt(|execPrice / midPrice|)
//
// This is a heuristic fallback; prefer a quoter that returns
// sqrtPriceX96After directly.
func ReconstructSqrtPriceAfter(sqrtPriceBefore *big.Int, execPrice, midPrice decimal.Decimal) *big.Int {
	if sqrtPriceBefore == nil || sqrtPriceBefore.Sign() == 0 || midPrice.IsZero() {
		return new(big.Int)
	}

	ratio, _ := execPrice.Div(midPrice).Abs().Float64()

	after := new(big.Float).SetInt(sqrtPriceBefore)
	after.Mul(after, new(big.Float).SetFloat64(math.Sqrt(ratio)))

	out, _ := after.Int(nil)
	return out
}

// SlippageBps converts a slippage percentage into basis points, flooring
// fractional bps.
func SlippageBps(slippagePercent decimal.Decimal) int64 {
	return slippagePercent.Mul(decimal.NewFromInt(100)).IntPart()
}

// MinAmountOut applies a slippage tolerance to an expected output:
//
//	amountOut * (10000 - bps) / 10000
func MinAmountOut(amountOut *big.Int, slippagePercent decimal.Decimal) *big.Int {
	if amountOut == nil {
		return new(big.Int)
	}

	bps := SlippageBps(slippagePercent)
	factor := new(big.Int).Sub(bpsDenominator, big.NewInt(bps))

	out := new(big.Int).Mul(amountOut, factor)
	return out.Div(out, bpsDenominator)
}

// MaxAmountIn applies a slippage tolerance to an expected input, symmetric to
// MinAmountOut with 10000 + bps.
func MaxAmountIn(amountIn *big.Int, slippagePercent decimal.Decimal) *big.Int {
	if amountIn == nil {
		return new(big.Int)
	}

	bps := SlippageBps(slippagePercent)
	factor := new(big.Int).Add(bpsDenominator, big.NewInt(bps))

	out := new(big.Int).Mul(amountIn, factor)
	return out.Div(out, bpsDenominator)
}
