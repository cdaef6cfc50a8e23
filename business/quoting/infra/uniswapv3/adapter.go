// Package uniswapv3 implements the VenueAdapter interface for
// concentrated-liquidity (Uniswap V3 style) venues.
package uniswapv3

import (
	"context"
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fd1az/dex-aggregator/business/quoting/app"
	"github.com/fd1az/dex-aggregator/business/quoting/domain"
	"github.com/fd1az/dex-aggregator/internal/token"
)

const tracerName = "uniswapv3"

// defaultGasEstimate is reported when the quoter gives no gas signal.
const defaultGasEstimate = 150_000

// Ensure Adapter implements VenueAdapter.
var _ app.VenueAdapter = (*Adapter)(nil)

// Config holds the venue's on-chain addresses.
type Config struct {
	Name    string
	Factory common.Address
	Quoter  common.Address
}

// Adapter quotes swaps against one V3 factory, fanning out across the
// canonical fee tiers. Each live pool contributes one quote.
type Adapter struct {
	cfg    Config
	reader app.ChainReader
	logger *zap.Logger
	tracer trace.Tracer
}

// NewAdapter creates a V3 venue adapter.
func NewAdapter(cfg Config, reader app.ChainReader, log *zap.Logger) *Adapter {
	return &Adapter{
		cfg:    cfg,
		reader: reader,
		logger: log,
		tracer: otel.Tracer(tracerName),
	}
}

// Name returns the configured venue name.
func (a *Adapter) Name() string {
	return a.cfg.Name
}

// Version returns the protocol tag.
func (a *Adapter) Version() domain.Protocol {
	return domain.ProtocolV3
}

// QuoteAll queries every fee tier concurrently and returns one quote per live
// pool. Per-tier failures are logged and reduced to "no quote for this tier";
// QuoteAll itself never returns an error, even when every tier fails.
func (a *Adapter) QuoteAll(ctx context.Context, tokenIn, tokenOut *token.Token, amountIn *big.Int) ([]domain.VenueQuote, error) {
	ctx, span := a.tracer.Start(ctx, "uniswapv3.quote_all",
		trace.WithAttributes(
			attribute.String("venue", a.cfg.Name),
			attribute.String("token_in", tokenIn.HexLower()),
			attribute.String("token_out", tokenOut.HexLower()),
		),
	)
	defer span.End()

	type tierResult struct {
		quote *domain.VenueQuote
		err   error
	}

	results := make([]tierResult, len(domain.FeeTiers))

	var wg sync.WaitGroup
	for i, fee := range domain.FeeTiers {
		wg.Add(1)
		go func(i, fee int) {
			defer wg.Done()
			q, err := a.quoteTier(ctx, tokenIn, tokenOut, amountIn, fee)
			results[i] = tierResult{quote: q, err: err}
		}(i, fee)
	}
	wg.Wait()

	var quotes []domain.VenueQuote
	for i, res := range results {
		if res.err != nil {
			span.AddEvent("fee_tier_failed",
				trace.WithAttributes(
					attribute.Int("fee_tier", domain.FeeTiers[i]),
					attribute.String("error", res.err.Error()),
				),
			)
			a.logger.Debug("v3 tier quote failed",
				zap.String("venue", a.cfg.Name),
				zap.Int("fee_tier", domain.FeeTiers[i]),
				zap.Error(res.err),
			)
			continue
		}
		if res.quote != nil {
			quotes = append(quotes, *res.quote)
		}
	}

	span.SetAttributes(attribute.Int("quotes", len(quotes)))
	span.SetStatus(codes.Ok, "quoted")

	return quotes, nil
}

// quoteTier produces the quote for one fee tier. A nil quote with nil error
// means the tier has no pool, no in-range liquidity, or a zero output.
func (a *Adapter) quoteTier(ctx context.Context, tokenIn, tokenOut *token.Token, amountIn *big.Int, fee int) (*domain.VenueQuote, error) {
	pool, err := a.reader.V3GetPool(ctx, a.cfg.Factory, tokenIn.Address(), tokenOut.Address(), fee)
	if err != nil {
		if errors.Is(err, app.ErrNotFound) || errors.Is(err, app.ErrReverted) {
			return nil, nil
		}
		return nil, err
	}

	slot0, err := a.reader.V3Slot0(ctx, pool)
	if err != nil {
		return nil, err
	}

	liquidity, err := a.reader.V3Liquidity(ctx, pool)
	if err != nil {
		return nil, err
	}
	if liquidity.Sign() == 0 {
		return nil, nil
	}

	result, err := a.reader.V3QuoteExactInputSingle(ctx, a.cfg.Quoter, tokenIn.Address(), tokenOut.Address(), fee, amountIn, big.NewInt(0))
	if err != nil {
		return nil, err
	}
	if result.AmountOut == nil || result.AmountOut.Sign() <= 0 {
		return nil, nil
	}

	sqrtAfter := result.SqrtPriceX96After
	if sqrtAfter == nil || sqrtAfter.Sign() == 0 {
		sqrtAfter = a.reconstructSqrtAfter(ctx, pool, slot0.SqrtPriceX96, tokenIn, tokenOut, amountIn, result.AmountOut)
	}

	impact := domain.V3PriceImpact(slot0.SqrtPriceX96, sqrtAfter)

	gas := uint64(defaultGasEstimate)
	if result.GasEstimate != nil && result.GasEstimate.Sign() > 0 {
		gas = result.GasEstimate.Uint64()
	}

	return &domain.VenueQuote{
		Venue:       a.cfg.Name,
		Protocol:    domain.ProtocolV3,
		AmountOut:   result.AmountOut,
		PriceImpact: impact,
		GasEstimate: gas,
		FeeTier:     fee,
		Pool:        pool,
		Warning:     domain.WarnFor(impact),
	}, nil
}

// reconstructSqrtAfter derives the post-swap sqrt price from the
// execution/mid price ratio when the quoter reports only amountOut. The
// heuristic path; quoters that report sqrtPriceX96After bypass it.
func (a *Adapter) reconstructSqrtAfter(ctx context.Context, pool common.Address, sqrtBefore *big.Int, tokenIn, tokenOut *token.Token, amountIn, amountOut *big.Int) *big.Int {
	state, err := a.reader.V3PoolState(ctx, pool)
	if err != nil {
		a.logger.Debug("pool state read failed during sqrt reconstruction",
			zap.String("pool", pool.Hex()),
			zap.Error(err),
		)
		return sqrtBefore
	}

	// slot0 prices token0 in token1; express the mid price in output units
	// per input unit so it is comparable to the execution price.
	zeroForOne := state.Token0 == tokenIn.Address()

	var mid decimal.Decimal
	if zeroForOne {
		mid = domain.SqrtPriceX96ToPrice(sqrtBefore, tokenIn.Decimals(), tokenOut.Decimals())
	} else {
		p := domain.SqrtPriceX96ToPrice(sqrtBefore, tokenOut.Decimals(), tokenIn.Decimals())
		if p.IsZero() {
			return sqrtBefore
		}
		mid = decimal.NewFromInt(1).Div(p)
	}
	if mid.IsZero() {
		return sqrtBefore
	}

	exec := token.ToDecimal(amountOut, tokenOut.Decimals()).
		Div(token.ToDecimal(amountIn, tokenIn.Decimals()))

	return domain.ReconstructSqrtPriceAfter(sqrtBefore, exec, mid)
}

// PoolExists reports whether any pool serves the pair. With feeTier 0 every
// canonical tier is probed; otherwise only the given tier.
func (a *Adapter) PoolExists(ctx context.Context, tokenIn, tokenOut common.Address, feeTier int) (bool, error) {
	tiers := domain.FeeTiers
	if feeTier != 0 {
		tiers = []int{feeTier}
	}

	for _, fee := range tiers {
		_, err := a.reader.V3GetPool(ctx, a.cfg.Factory, tokenIn, tokenOut, fee)
		if errors.Is(err, app.ErrNotFound) {
			continue
		}
		if err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

// TokenInfo resolves ERC-20 metadata through the chain reader.
func (a *Adapter) TokenInfo(ctx context.Context, addr common.Address) (*token.Token, error) {
	meta, err := a.reader.ERC20Metadata(ctx, addr)
	if err != nil {
		return nil, err
	}
	return token.NewWithName(addr, meta.Symbol, meta.Name, meta.Decimals), nil
}
