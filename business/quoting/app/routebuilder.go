package app

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/fd1az/dex-aggregator/business/quoting/domain"
	"github.com/fd1az/dex-aggregator/internal/apperror"
	"github.com/fd1az/dex-aggregator/internal/token"
)

// swapDeadline is how far in the future the on-chain deadline is set.
const swapDeadline = 1800 * time.Second

// Approval describes the pre-flight allowance state for one route. It is
// per-route: sibling routes may target different routers and each is checked
// independently.
type Approval struct {
	Needed  bool
	Message string
	Token   common.Address
	Spender common.Address
	Amount  *big.Int
}

// RouteArtifact is the ready-to-send transaction for one quote. From is a
// placeholder the caller overwrites before signing.
type RouteArtifact struct {
	Router       common.Address
	Calldata     []byte
	Value        *big.Int
	From         common.Address
	MinAmountOut *big.Int
	Deadline     *big.Int
	Approval     Approval
}

// BuildRoute encodes router calldata for a quote, applies the slippage bound
// and runs the per-route approval pre-check. userAddr may be nil; the check
// then conservatively reports that approval is needed.
func (a *Aggregator) BuildRoute(ctx context.Context, q domain.VenueQuote, tokenIn, tokenOut *token.Token, amountIn *big.Int, slippage decimal.Decimal, userAddr *common.Address) (*RouteArtifact, error) {
	minOut := domain.MinAmountOut(q.AmountOut, slippage)
	deadline := big.NewInt(time.Now().Add(swapDeadline).Unix())

	// Recipient placeholder: the caller fills in the real address before signing.
	recipient := common.Address{}

	router := a.RouterFor(q.Protocol)
	if router == (common.Address{}) {
		return nil, apperror.Internal(apperror.CodeRouterNotSet, string(q.Protocol), nil)
	}

	nativeIn := tokenIn.IsNative()
	value := big.NewInt(0)
	if nativeIn {
		value = new(big.Int).Set(amountIn)
	}

	var (
		calldata []byte
		err      error
	)

	switch q.Protocol {
	case domain.ProtocolV3:
		calldata, err = a.encoder.EncodeV3ExactInputSingle(V3ExactInputSingleParams{
			TokenIn:           tokenIn.Address(),
			TokenOut:          tokenOut.Address(),
			Fee:               q.FeeTier,
			Recipient:         recipient,
			Deadline:          deadline,
			AmountIn:          amountIn,
			AmountOutMinimum:  minOut,
			SqrtPriceLimitX96: big.NewInt(0),
		})

	default:
		fn := SwapExactTokensForTokens
		switch {
		case nativeIn:
			fn = SwapExactETHForTokens
		case tokenOut.IsNative():
			fn = SwapExactTokensForETH
		}

		path := []common.Address{tokenIn.Address(), tokenOut.Address()}
		calldata, err = a.encoder.EncodeV2Swap(fn, amountIn, minOut, path, recipient, deadline)
	}
	if err != nil {
		return nil, apperror.Internal(apperror.CodeEncodingFailed, string(q.Protocol), err)
	}

	return &RouteArtifact{
		Router:       router,
		Calldata:     calldata,
		Value:        value,
		From:         common.Address{},
		MinAmountOut: minOut,
		Deadline:     deadline,
		Approval:     a.checkApproval(ctx, tokenIn, router, amountIn, userAddr),
	}, nil
}

// checkApproval runs the allowance pre-check for one route. Native input
// never needs approval; without a user address the answer is conservative;
// a failed allowance read falls back to "needed".
func (a *Aggregator) checkApproval(ctx context.Context, tokenIn *token.Token, router common.Address, amountIn *big.Int, userAddr *common.Address) Approval {
	if tokenIn.IsNative() {
		return Approval{
			Needed:  false,
			Message: "Native token requires no approval",
		}
	}

	needed := Approval{
		Needed:  true,
		Message: "Approve the router to spend " + tokenIn.Symbol() + " before swapping",
		Token:   tokenIn.Address(),
		Spender: router,
		Amount:  new(big.Int).Set(amountIn),
	}

	if userAddr == nil {
		return needed
	}

	allowance, err := a.reader.Allowance(ctx, tokenIn.Address(), *userAddr, router)
	if err != nil {
		a.logger.Warn("allowance read failed, assuming approval needed",
			zap.String("token", tokenIn.Symbol()),
			zap.String("spender", router.Hex()),
			zap.Error(err),
		)
		return needed
	}

	if allowance.Cmp(amountIn) < 0 {
		return needed
	}

	return Approval{
		Needed:  false,
		Message: "Sufficient allowance already granted",
	}
}
