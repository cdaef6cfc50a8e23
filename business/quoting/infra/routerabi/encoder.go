// Package routerabi encodes swap calldata for the canonical Uniswap V2 router
// and V3 swap-router interfaces.
package routerabi

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/dex-aggregator/business/quoting/app"
)

// V2SwapRouterABI covers the three exact-input swap entrypoints.
const V2SwapRouterABI = `[
	{"inputs":[{"name":"amountOutMin","type":"uint256"},{"name":"path","type":"address[]"},{"name":"to","type":"address"},{"name":"deadline","type":"uint256"}],"name":"swapExactETHForTokens","outputs":[{"name":"amounts","type":"uint256[]"}],"stateMutability":"payable","type":"function"},
	{"inputs":[{"name":"amountIn","type":"uint256"},{"name":"amountOutMin","type":"uint256"},{"name":"path","type":"address[]"},{"name":"to","type":"address"},{"name":"deadline","type":"uint256"}],"name":"swapExactTokensForETH","outputs":[{"name":"amounts","type":"uint256[]"}],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[{"name":"amountIn","type":"uint256"},{"name":"amountOutMin","type":"uint256"},{"name":"path","type":"address[]"},{"name":"to","type":"address"},{"name":"deadline","type":"uint256"}],"name":"swapExactTokensForTokens","outputs":[{"name":"amounts","type":"uint256[]"}],"stateMutability":"nonpayable","type":"function"}
]`

// V3SwapRouterABI covers exactInputSingle in its tuple form.
const V3SwapRouterABI = `[
	{
		"inputs": [
			{
				"components": [
					{"internalType": "address", "name": "tokenIn", "type": "address"},
					{"internalType": "address", "name": "tokenOut", "type": "address"},
					{"internalType": "uint24", "name": "fee", "type": "uint24"},
					{"internalType": "address", "name": "recipient", "type": "address"},
					{"internalType": "uint256", "name": "deadline", "type": "uint256"},
					{"internalType": "uint256", "name": "amountIn", "type": "uint256"},
					{"internalType": "uint256", "name": "amountOutMinimum", "type": "uint256"},
					{"internalType": "uint160", "name": "sqrtPriceLimitX96", "type": "uint160"}
				],
				"internalType": "struct ISwapRouter.ExactInputSingleParams",
				"name": "params",
				"type": "tuple"
			}
		],
		"name": "exactInputSingle",
		"outputs": [{"internalType": "uint256", "name": "amountOut", "type": "uint256"}],
		"stateMutability": "payable",
		"type": "function"
	}
]`

// exactInputSingleParams matches the ABI tuple field order and types.
type exactInputSingleParams struct {
	TokenIn           common.Address
	TokenOut          common.Address
	Fee               *big.Int // uint24
	Recipient         common.Address
	Deadline          *big.Int
	AmountIn          *big.Int
	AmountOutMinimum  *big.Int
	SqrtPriceLimitX96 *big.Int // uint160
}

// Ensure Encoder implements the port.
var _ app.TxEncoder = (*Encoder)(nil)

// Encoder packs swap calls against the parsed router ABIs. Stateless and safe
// for concurrent use.
type Encoder struct {
	v2 abi.ABI
	v3 abi.ABI
}

// NewEncoder parses the router ABIs once.
func NewEncoder() (*Encoder, error) {
	v2, err := abi.JSON(strings.NewReader(V2SwapRouterABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse V2 router ABI: %w", err)
	}
	v3, err := abi.JSON(strings.NewReader(V3SwapRouterABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse V3 router ABI: %w", err)
	}
	return &Encoder{v2: v2, v3: v3}, nil
}

// EncodeV2Swap packs one of the V2 router's exact-input swaps.
// swapExactETHForTokens carries the input amount as transaction value, so it
// omits the amountIn argument.
func (e *Encoder) EncodeV2Swap(fn app.V2SwapFunc, amountIn, amountOutMin *big.Int, path []common.Address, recipient common.Address, deadline *big.Int) ([]byte, error) {
	switch fn {
	case app.SwapExactETHForTokens:
		return e.v2.Pack(string(fn), amountOutMin, path, recipient, deadline)
	case app.SwapExactTokensForETH, app.SwapExactTokensForTokens:
		return e.v2.Pack(string(fn), amountIn, amountOutMin, path, recipient, deadline)
	default:
		return nil, fmt.Errorf("unknown V2 swap function %q", fn)
	}
}

// EncodeV3ExactInputSingle packs the V3 swap router's exactInputSingle call.
func (e *Encoder) EncodeV3ExactInputSingle(p app.V3ExactInputSingleParams) ([]byte, error) {
	limit := p.SqrtPriceLimitX96
	if limit == nil {
		limit = big.NewInt(0)
	}

	return e.v3.Pack("exactInputSingle", exactInputSingleParams{
		TokenIn:           p.TokenIn,
		TokenOut:          p.TokenOut,
		Fee:               big.NewInt(int64(p.Fee)),
		Recipient:         p.Recipient,
		Deadline:          p.Deadline,
		AmountIn:          p.AmountIn,
		AmountOutMinimum:  p.AmountOutMinimum,
		SqrtPriceLimitX96: limit,
	})
}
