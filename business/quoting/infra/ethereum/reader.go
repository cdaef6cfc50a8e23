// Package ethereum implements the quoting ChainReader over a go-ethereum
// client. Raw eth_call dispatch runs behind a circuit breaker and a per-read
// timeout; results are decoded into the typed shapes the adapters consume.
package ethereum

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	geth "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/fd1az/dex-aggregator/business/quoting/app"
	"github.com/fd1az/dex-aggregator/internal/apperror"
)

// readTimeout bounds a single eth_call; the request-level deadline carried by
// the context takes precedence when shorter.
const readTimeout = 30 * time.Second

// Ensure Reader implements the port.
var _ app.ChainReader = (*Reader)(nil)

// ContractCaller is the slice of the eth client the reader needs.
type ContractCaller interface {
	CallContract(ctx context.Context, msg geth.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// QuoteExactInputSingleParams mirrors the QuoterV2 tuple argument.
type QuoteExactInputSingleParams struct {
	TokenIn           common.Address
	TokenOut          common.Address
	AmountIn          *big.Int
	Fee               *big.Int // uint24
	SqrtPriceLimitX96 *big.Int // uint160, 0 for no limit
}

// Reader dispatches typed read calls against the standard V2/V3 and ERC-20
// interfaces. Safe for concurrent use.
type Reader struct {
	client ContractCaller
	logger *zap.Logger
	cb     *gobreaker.CircuitBreaker[[]byte]

	erc20     abi.ABI
	v2Factory abi.ABI
	v2Pair    abi.ABI
	v2Router  abi.ABI
	v3Factory abi.ABI
	v3Pool    abi.ABI
	quoterV2  abi.ABI
	quoterV1  abi.ABI
}

// NewReader creates a Reader over the given contract caller.
func NewReader(client ContractCaller, log *zap.Logger) (*Reader, error) {
	r := &Reader{
		client: client,
		logger: log,
	}

	for _, entry := range []struct {
		dst *abi.ABI
		src string
	}{
		{&r.erc20, ERC20ABI},
		{&r.v2Factory, V2FactoryABI},
		{&r.v2Pair, V2PairABI},
		{&r.v2Router, V2RouterABI},
		{&r.v3Factory, V3FactoryABI},
		{&r.v3Pool, V3PoolABI},
		{&r.quoterV2, QuoterV2ABI},
		{&r.quoterV1, QuoterV1ABI},
	} {
		parsed, err := abi.JSON(strings.NewReader(entry.src))
		if err != nil {
			return nil, fmt.Errorf("failed to parse ABI: %w", err)
		}
		*entry.dst = parsed
	}

	r.cb = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:    "eth-call",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return r, nil
}

// call dispatches one eth_call through the circuit breaker with the per-read
// timeout applied.
func (r *Reader) call(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	out, err := r.cb.Execute(func() ([]byte, error) {
		res, err := r.client.CallContract(ctx, geth.CallMsg{To: &to, Data: data}, nil)
		if err != nil && isRevert(err) {
			// A revert is a contract answer, not node trouble; don't trip the
			// breaker on it.
			return nil, nil
		}
		return res, err
	})
	if err != nil {
		return nil, r.classify(ctx, err)
	}
	if out == nil {
		return nil, app.ErrReverted
	}
	return out, nil
}

func isRevert(err error) bool {
	return err != nil && strings.Contains(err.Error(), "execution reverted")
}

// classify maps raw dispatch errors onto the typed taxonomy.
func (r *Reader) classify(ctx context.Context, err error) error {
	switch {
	case err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests:
		return apperror.External(apperror.CodeCircuitOpen, "eth-call", err)
	case ctx.Err() != nil:
		return apperror.Timeout(apperror.CodeServiceTimeout, "eth-call", err)
	default:
		return apperror.External(apperror.CodeContractCallFailed, "eth-call", err)
	}
}

// read packs a method call, dispatches it and unpacks the outputs.
func (r *Reader) read(ctx context.Context, contract abi.ABI, to common.Address, method string, args ...interface{}) ([]interface{}, error) {
	data, err := contract.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", method, err)
	}

	out, err := r.call(ctx, to, data)
	if err != nil {
		return nil, err
	}

	values, err := contract.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", method, err)
	}
	return values, nil
}

// ---------------------------------------------------------------------------
// ERC-20
// ---------------------------------------------------------------------------

// ERC20Metadata reads name, symbol and decimals from a token contract.
func (r *Reader) ERC20Metadata(ctx context.Context, addr common.Address) (app.ERC20Metadata, error) {
	var meta app.ERC20Metadata

	values, err := r.read(ctx, r.erc20, addr, "name")
	if err != nil {
		return meta, err
	}
	meta.Name, _ = values[0].(string)

	values, err = r.read(ctx, r.erc20, addr, "symbol")
	if err != nil {
		return meta, err
	}
	meta.Symbol, _ = values[0].(string)

	values, err = r.read(ctx, r.erc20, addr, "decimals")
	if err != nil {
		return meta, err
	}
	dec, ok := values[0].(uint8)
	if !ok {
		return meta, fmt.Errorf("unexpected decimals type %T", values[0])
	}
	meta.Decimals = dec

	return meta, nil
}

// Allowance reads the ERC-20 spending grant from owner to spender.
func (r *Reader) Allowance(ctx context.Context, tokenAddr, owner, spender common.Address) (*big.Int, error) {
	values, err := r.read(ctx, r.erc20, tokenAddr, "allowance", owner, spender)
	if err != nil {
		return nil, err
	}
	return asBigInt(values[0])
}

// ---------------------------------------------------------------------------
// V2 factory and pair
// ---------------------------------------------------------------------------

// V2GetPair resolves the pair address for two tokens. Returns ErrNotFound
// when the factory knows no such pair.
func (r *Reader) V2GetPair(ctx context.Context, factory, tokenA, tokenB common.Address) (common.Address, error) {
	values, err := r.read(ctx, r.v2Factory, factory, "getPair", tokenA, tokenB)
	if err != nil {
		return common.Address{}, err
	}

	pair, err := asAddress(values[0])
	if err != nil {
		return common.Address{}, err
	}
	if pair == (common.Address{}) {
		return common.Address{}, app.ErrNotFound
	}
	return pair, nil
}

// V2Reserves reads both reserves of a pair.
func (r *Reader) V2Reserves(ctx context.Context, pair common.Address) (*big.Int, *big.Int, error) {
	values, err := r.read(ctx, r.v2Pair, pair, "getReserves")
	if err != nil {
		return nil, nil, err
	}
	if len(values) < 2 {
		return nil, nil, fmt.Errorf("unexpected getReserves output length: %d", len(values))
	}

	reserve0, err := asBigInt(values[0])
	if err != nil {
		return nil, nil, err
	}
	reserve1, err := asBigInt(values[1])
	if err != nil {
		return nil, nil, err
	}
	return reserve0, reserve1, nil
}

// V2Token0 reads the pair's token0.
func (r *Reader) V2Token0(ctx context.Context, pair common.Address) (common.Address, error) {
	values, err := r.read(ctx, r.v2Pair, pair, "token0")
	if err != nil {
		return common.Address{}, err
	}
	return asAddress(values[0])
}

// V2Token1 reads the pair's token1.
func (r *Reader) V2Token1(ctx context.Context, pair common.Address) (common.Address, error) {
	values, err := r.read(ctx, r.v2Pair, pair, "token1")
	if err != nil {
		return common.Address{}, err
	}
	return asAddress(values[0])
}

// V2TotalSupply reads the pair's LP token supply.
func (r *Reader) V2TotalSupply(ctx context.Context, pair common.Address) (*big.Int, error) {
	values, err := r.read(ctx, r.v2Pair, pair, "totalSupply")
	if err != nil {
		return nil, err
	}
	return asBigInt(values[0])
}

// V2AmountsOut asks the router to quote a path forward.
func (r *Reader) V2AmountsOut(ctx context.Context, router common.Address, amountIn *big.Int, path []common.Address) ([]*big.Int, error) {
	values, err := r.read(ctx, r.v2Router, router, "getAmountsOut", amountIn, path)
	if err != nil {
		return nil, err
	}
	return asBigIntSlice(values[0])
}

// V2AmountsIn asks the router to quote a path backward.
func (r *Reader) V2AmountsIn(ctx context.Context, router common.Address, amountOut *big.Int, path []common.Address) ([]*big.Int, error) {
	values, err := r.read(ctx, r.v2Router, router, "getAmountsIn", amountOut, path)
	if err != nil {
		return nil, err
	}
	return asBigIntSlice(values[0])
}

// ---------------------------------------------------------------------------
// V3 factory, pool and quoter
// ---------------------------------------------------------------------------

// V3GetPool resolves the pool address for a pair at a fee tier. Returns
// ErrNotFound when no pool was deployed for the tier.
func (r *Reader) V3GetPool(ctx context.Context, factory, tokenA, tokenB common.Address, feeTier int) (common.Address, error) {
	values, err := r.read(ctx, r.v3Factory, factory, "getPool", tokenA, tokenB, big.NewInt(int64(feeTier)))
	if err != nil {
		return common.Address{}, err
	}

	pool, err := asAddress(values[0])
	if err != nil {
		return common.Address{}, err
	}
	if pool == (common.Address{}) {
		return common.Address{}, app.ErrNotFound
	}
	return pool, nil
}

// V3Slot0 reads a pool's current sqrt price and tick.
func (r *Reader) V3Slot0(ctx context.Context, pool common.Address) (app.Slot0, error) {
	values, err := r.read(ctx, r.v3Pool, pool, "slot0")
	if err != nil {
		return app.Slot0{}, err
	}
	if len(values) < 2 {
		return app.Slot0{}, fmt.Errorf("unexpected slot0 output length: %d", len(values))
	}

	sqrtPrice, err := asBigInt(values[0])
	if err != nil {
		return app.Slot0{}, err
	}
	tick, err := asBigInt(values[1])
	if err != nil {
		return app.Slot0{}, err
	}
	return app.Slot0{SqrtPriceX96: sqrtPrice, Tick: tick}, nil
}

// V3Liquidity reads a pool's in-range liquidity.
func (r *Reader) V3Liquidity(ctx context.Context, pool common.Address) (*big.Int, error) {
	values, err := r.read(ctx, r.v3Pool, pool, "liquidity")
	if err != nil {
		return nil, err
	}
	return asBigInt(values[0])
}

// V3PoolState reads the pool's immutable parameters.
func (r *Reader) V3PoolState(ctx context.Context, pool common.Address) (app.V3PoolState, error) {
	var state app.V3PoolState

	values, err := r.read(ctx, r.v3Pool, pool, "token0")
	if err != nil {
		return state, err
	}
	if state.Token0, err = asAddress(values[0]); err != nil {
		return state, err
	}

	values, err = r.read(ctx, r.v3Pool, pool, "token1")
	if err != nil {
		return state, err
	}
	if state.Token1, err = asAddress(values[0]); err != nil {
		return state, err
	}

	values, err = r.read(ctx, r.v3Pool, pool, "fee")
	if err != nil {
		return state, err
	}
	fee, err := asBigInt(values[0])
	if err != nil {
		return state, err
	}
	state.Fee = int(fee.Int64())

	values, err = r.read(ctx, r.v3Pool, pool, "tickSpacing")
	if err != nil {
		return state, err
	}
	spacing, err := asBigInt(values[0])
	if err != nil {
		return state, err
	}
	state.TickSpacing = int(spacing.Int64())

	return state, nil
}

// V3QuoteExactInputSingle simulates a single-pool swap through the quoter.
// The QuoterV2 interface is tried first; when the deployed quoter only speaks
// the original signature, the result carries just the output amount.
func (r *Reader) V3QuoteExactInputSingle(ctx context.Context, quoter, tokenIn, tokenOut common.Address, feeTier int, amountIn, sqrtPriceLimitX96 *big.Int) (app.V3QuoteResult, error) {
	if sqrtPriceLimitX96 == nil {
		sqrtPriceLimitX96 = big.NewInt(0)
	}

	result, err := r.quoteV2(ctx, quoter, tokenIn, tokenOut, feeTier, amountIn, sqrtPriceLimitX96)
	if err == nil {
		return result, nil
	}
	if !errors.Is(err, app.ErrReverted) && !strings.Contains(err.Error(), "failed to decode") {
		return app.V3QuoteResult{}, err
	}

	r.logger.Debug("quoterV2 unavailable, falling back to quoterV1",
		zap.String("quoter", quoter.Hex()),
	)
	return r.quoteV1(ctx, quoter, tokenIn, tokenOut, feeTier, amountIn, sqrtPriceLimitX96)
}

func (r *Reader) quoteV2(ctx context.Context, quoter, tokenIn, tokenOut common.Address, feeTier int, amountIn, limit *big.Int) (app.V3QuoteResult, error) {
	values, err := r.read(ctx, r.quoterV2, quoter, "quoteExactInputSingle", QuoteExactInputSingleParams{
		TokenIn:           tokenIn,
		TokenOut:          tokenOut,
		AmountIn:          amountIn,
		Fee:               big.NewInt(int64(feeTier)),
		SqrtPriceLimitX96: limit,
	})
	if err != nil {
		return app.V3QuoteResult{}, err
	}
	if len(values) < 4 {
		return app.V3QuoteResult{}, fmt.Errorf("unexpected quoter output length: %d", len(values))
	}

	amountOut, err := asBigInt(values[0])
	if err != nil {
		return app.V3QuoteResult{}, err
	}
	sqrtAfter, err := asBigInt(values[1])
	if err != nil {
		return app.V3QuoteResult{}, err
	}
	gasEstimate, err := asBigInt(values[3])
	if err != nil {
		return app.V3QuoteResult{}, err
	}

	return app.V3QuoteResult{
		AmountOut:         amountOut,
		SqrtPriceX96After: sqrtAfter,
		GasEstimate:       gasEstimate,
	}, nil
}

func (r *Reader) quoteV1(ctx context.Context, quoter, tokenIn, tokenOut common.Address, feeTier int, amountIn, limit *big.Int) (app.V3QuoteResult, error) {
	values, err := r.read(ctx, r.quoterV1, quoter, "quoteExactInputSingle",
		tokenIn, tokenOut, big.NewInt(int64(feeTier)), amountIn, limit)
	if err != nil {
		return app.V3QuoteResult{}, err
	}

	amountOut, err := asBigInt(values[0])
	if err != nil {
		return app.V3QuoteResult{}, err
	}
	return app.V3QuoteResult{AmountOut: amountOut}, nil
}

// ---------------------------------------------------------------------------
// decoding helpers
// ---------------------------------------------------------------------------

func asAddress(v interface{}) (common.Address, error) {
	addr, ok := v.(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("unexpected address type %T", v)
	}
	return addr, nil
}

func asBigInt(v interface{}) (*big.Int, error) {
	n, ok := v.(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected integer type %T", v)
	}
	return n, nil
}

func asBigIntSlice(v interface{}) ([]*big.Int, error) {
	ns, ok := v.([]*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected integer slice type %T", v)
	}
	return ns, nil
}
