// Package uniswapv2 implements the VenueAdapter interface for constant-product
// (Uniswap V2 style) venues.
package uniswapv2

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fd1az/dex-aggregator/business/quoting/app"
	"github.com/fd1az/dex-aggregator/business/quoting/domain"
	"github.com/fd1az/dex-aggregator/internal/token"
)

const tracerName = "uniswapv2"

// defaultGasEstimate is used for V2 swaps; the pair contract gives no better
// signal on the read path.
const defaultGasEstimate = 120_000

// Ensure Adapter implements VenueAdapter.
var _ app.VenueAdapter = (*Adapter)(nil)

// Config holds the venue's on-chain addresses.
type Config struct {
	Name    string
	Factory common.Address
	Router  common.Address
}

// Adapter quotes swaps against one V2 factory. A pair carries at most one
// pool, so QuoteAll returns at most one quote.
type Adapter struct {
	cfg    Config
	reader app.ChainReader
	logger *zap.Logger
	tracer trace.Tracer
}

// NewAdapter creates a V2 venue adapter.
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
	return domain.ProtocolV2
}

// QuoteAll produces the single constant-product quote for the pair, or an
// empty slice when the factory knows no pair or its reserves are drained.
// Transport failures propagate.
func (a *Adapter) QuoteAll(ctx context.Context, tokenIn, tokenOut *token.Token, amountIn *big.Int) ([]domain.VenueQuote, error) {
	ctx, span := a.tracer.Start(ctx, "uniswapv2.quote_all",
		trace.WithAttributes(
			attribute.String("venue", a.cfg.Name),
			attribute.String("token_in", tokenIn.HexLower()),
			attribute.String("token_out", tokenOut.HexLower()),
		),
	)
	defer span.End()

	pair, err := a.reader.V2GetPair(ctx, a.cfg.Factory, tokenIn.Address(), tokenOut.Address())
	if err != nil {
		if errors.Is(err, app.ErrNotFound) || errors.Is(err, app.ErrReverted) {
			span.SetStatus(codes.Ok, "no pair")
			return nil, nil
		}
		span.SetStatus(codes.Error, "getPair failed")
		return nil, err
	}

	reserve0, reserve1, err := a.reader.V2Reserves(ctx, pair)
	if err != nil {
		if errors.Is(err, app.ErrReverted) {
			span.SetStatus(codes.Ok, "reserves unavailable")
			return nil, nil
		}
		span.SetStatus(codes.Error, "getReserves failed")
		return nil, err
	}

	token0, err := a.reader.V2Token0(ctx, pair)
	if err != nil {
		if errors.Is(err, app.ErrReverted) {
			return nil, nil
		}
		span.SetStatus(codes.Error, "token0 failed")
		return nil, err
	}

	// Orient reserves: token0 comparison is case-insensitive by construction
	// since both sides are canonical 20-byte addresses.
	reserveIn, reserveOut := reserve0, reserve1
	if token0 != tokenIn.Address() {
		reserveIn, reserveOut = reserve1, reserve0
	}

	amountOut, err := domain.V2AmountOut(amountIn, reserveIn, reserveOut)
	if err != nil {
		// Zero reserves mean a drained pool, not a failed venue.
		span.SetStatus(codes.Ok, "insufficient liquidity")
		a.logger.Debug("v2 pool drained",
			zap.String("venue", a.cfg.Name),
			zap.String("pair", pair.Hex()),
		)
		return nil, nil
	}

	impact := domain.V2PriceImpact(amountIn, amountOut, reserveIn, reserveOut, tokenIn.Decimals(), tokenOut.Decimals())

	span.SetAttributes(
		attribute.String("amount_out", amountOut.String()),
		attribute.String("pool", pair.Hex()),
	)
	span.SetStatus(codes.Ok, "quoted")

	return []domain.VenueQuote{{
		Venue:       a.cfg.Name,
		Protocol:    domain.ProtocolV2,
		AmountOut:   amountOut,
		PriceImpact: impact,
		GasEstimate: defaultGasEstimate,
		Pool:        pair,
		Warning:     domain.WarnFor(impact),
	}}, nil
}

// PoolExists reports whether the factory carries a pair for the two tokens.
// The feeTier argument is ignored; V2 has a single fee.
func (a *Adapter) PoolExists(ctx context.Context, tokenIn, tokenOut common.Address, _ int) (bool, error) {
	_, err := a.reader.V2GetPair(ctx, a.cfg.Factory, tokenIn, tokenOut)
	if errors.Is(err, app.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// TokenInfo resolves ERC-20 metadata through the chain reader.
func (a *Adapter) TokenInfo(ctx context.Context, addr common.Address) (*token.Token, error) {
	meta, err := a.reader.ERC20Metadata(ctx, addr)
	if err != nil {
		return nil, err
	}
	return token.NewWithName(addr, meta.Symbol, meta.Name, meta.Decimals), nil
}
