package app

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fd1az/dex-aggregator/business/quoting/domain"
	"github.com/fd1az/dex-aggregator/internal/apperror"
	"github.com/fd1az/dex-aggregator/internal/token"
)

const (
	tracerName = "quoting"
	meterName  = "quoting"

	// metadataTTL bounds how long chain-resolved token metadata is reused.
	metadataTTL = 5 * time.Minute
)

// Routers holds the swap-router targets calldata is addressed to, one per
// protocol. Different routes may require independent approvals because they
// target different routers.
type Routers struct {
	V2 common.Address
	V3 common.Address
}

// AggregateResult is the aggregator's answer for one request: resolved token
// metadata plus the ranked quote set.
type AggregateResult struct {
	TokenIn  *token.Token
	TokenOut *token.Token
	AmountIn *big.Int
	Quote    domain.AggregatedQuote
}

// aggregatorMetrics holds OTEL metric instruments.
type aggregatorMetrics struct {
	aggregatesTotal  metric.Int64Counter
	aggregateLatency metric.Float64Histogram
	venueErrors      metric.Int64Counter
}

type cachedMetadata struct {
	tok     *token.Token
	expires time.Time
}

// Aggregator orchestrates quote fan-out across a fixed set of venue adapters,
// ranks the merged result and builds per-route transaction artifacts. It is
// constructed once at boot and safe for concurrent use; the only mutable state
// is the token metadata memo.
type Aggregator struct {
	adapters []VenueAdapter
	reader   ChainReader
	registry *token.Registry
	encoder  TxEncoder
	routers  Routers

	logger  *zap.Logger
	tracer  trace.Tracer
	metrics *aggregatorMetrics

	mu       sync.RWMutex
	metaMemo map[common.Address]cachedMetadata
}

// NewAggregator creates a new Aggregator over a fixed adapter list.
func NewAggregator(adapters []VenueAdapter, reader ChainReader, registry *token.Registry, encoder TxEncoder, routers Routers, log *zap.Logger) (*Aggregator, error) {
	a := &Aggregator{
		adapters: adapters,
		reader:   reader,
		registry: registry,
		encoder:  encoder,
		routers:  routers,
		logger:   log,
		tracer:   otel.Tracer(tracerName),
		metaMemo: make(map[common.Address]cachedMetadata),
	}

	if err := a.initMetrics(); err != nil {
		return nil, err
	}

	return a, nil
}

func (a *Aggregator) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	a.metrics = &aggregatorMetrics{}

	a.metrics.aggregatesTotal, err = meter.Int64Counter(
		"aggregator_quotes_total",
		metric.WithDescription("Total aggregate quote requests"),
	)
	if err != nil {
		return err
	}

	a.metrics.aggregateLatency, err = meter.Float64Histogram(
		"aggregator_quote_latency_ms",
		metric.WithDescription("Aggregate quote latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	a.metrics.venueErrors, err = meter.Int64Counter(
		"aggregator_venue_errors_total",
		metric.WithDescription("Venue quote failures absorbed during aggregation"),
	)
	if err != nil {
		return err
	}

	return nil
}

// Adapters returns the configured venue adapters.
func (a *Aggregator) Adapters() []VenueAdapter {
	return a.adapters
}

// RouterFor returns the swap-router target for a quote's protocol.
func (a *Aggregator) RouterFor(p domain.Protocol) common.Address {
	if p == domain.ProtocolV3 {
		return a.routers.V3
	}
	return a.routers.V2
}

// Aggregate fans out to every adapter in parallel, merges surviving quotes and
// ranks them. A single failing venue is absorbed; the call fails only when no
// quote survives or token metadata cannot be resolved.
func (a *Aggregator) Aggregate(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *big.Int) (*AggregateResult, error) {
	ctx, span := a.tracer.Start(ctx, "aggregator.aggregate",
		trace.WithAttributes(
			attribute.String("token_in", tokenIn.Hex()),
			attribute.String("token_out", tokenOut.Hex()),
			attribute.String("amount_in", amountIn.String()),
		),
	)
	defer span.End()

	start := time.Now()
	a.metrics.aggregatesTotal.Add(ctx, 1)
	defer func() {
		a.metrics.aggregateLatency.Record(ctx, float64(time.Since(start).Milliseconds()))
	}()

	in, err := a.ResolveToken(ctx, tokenIn)
	if err != nil {
		span.SetStatus(codes.Error, "token_in unresolved")
		return nil, err
	}
	out, err := a.ResolveToken(ctx, tokenOut)
	if err != nil {
		span.SetStatus(codes.Error, "token_out unresolved")
		return nil, err
	}

	quotes := a.fanOut(ctx, in, out, amountIn)
	if len(quotes) == 0 {
		span.SetStatus(codes.Error, "no liquidity")
		return nil, apperror.New(apperror.CodeNoLiquidity,
			apperror.WithContext(in.Symbol()+"-"+out.Symbol()))
	}

	agg := domain.Aggregate(quotes)

	span.SetAttributes(
		attribute.Int("quotes", len(agg.Quotes)),
		attribute.String("best_venue", agg.Best.Venue),
		attribute.String("best_amount_out", agg.Best.AmountOut.String()),
	)
	span.SetStatus(codes.Ok, "aggregated")

	a.logger.Debug("aggregated quotes",
		zap.String("pair", in.Symbol()+"-"+out.Symbol()),
		zap.Int("quotes", len(agg.Quotes)),
		zap.String("best_venue", agg.Best.Venue),
	)

	return &AggregateResult{
		TokenIn:  in,
		TokenOut: out,
		AmountIn: amountIn,
		Quote:    agg,
	}, nil
}

// fanOut launches one QuoteAll per adapter and joins them. Adapter failures
// contribute an empty result.
func (a *Aggregator) fanOut(ctx context.Context, in, out *token.Token, amountIn *big.Int) []domain.VenueQuote {
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		quotes []domain.VenueQuote
	)

	for _, adapter := range a.adapters {
		wg.Add(1)
		go func(ad VenueAdapter) {
			defer wg.Done()

			got, err := ad.QuoteAll(ctx, in, out, amountIn)
			if err != nil {
				a.metrics.venueErrors.Add(ctx, 1,
					metric.WithAttributes(attribute.String("venue", ad.Name())))
				a.logger.Warn("venue quote failed",
					zap.String("venue", ad.Name()),
					zap.Error(err),
				)
				return
			}

			mu.Lock()
			quotes = append(quotes, got...)
			mu.Unlock()
		}(adapter)
	}
	wg.Wait()

	return quotes
}

// ResolveToken resolves token metadata: native sentinel, then registry, then
// the memoized chain lookup. Failure is terminal for the request.
func (a *Aggregator) ResolveToken(ctx context.Context, addr common.Address) (*token.Token, error) {
	if token.IsNativeAddress(addr) {
		if t, ok := a.registry.GetByAddress(addr); ok {
			return t, nil
		}
		return token.ETH, nil
	}

	if t, ok := a.registry.GetByAddress(addr); ok {
		return t, nil
	}

	a.mu.RLock()
	cached, ok := a.metaMemo[addr]
	a.mu.RUnlock()
	if ok && time.Now().Before(cached.expires) {
		return cached.tok, nil
	}

	meta, err := a.reader.ERC20Metadata(ctx, addr)
	if err != nil {
		// Stale-on-error: an expired memo entry beats failing the request.
		if ok {
			return cached.tok, nil
		}
		return nil, apperror.Validation(apperror.CodeUnknownToken, addr.Hex())
	}

	t := token.NewWithName(addr, meta.Symbol, meta.Name, meta.Decimals)

	a.mu.Lock()
	a.metaMemo[addr] = cachedMetadata{tok: t, expires: time.Now().Add(metadataTTL)}
	a.mu.Unlock()

	return t, nil
}
