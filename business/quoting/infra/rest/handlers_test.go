package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fd1az/dex-aggregator/business/quoting/app"
	"github.com/fd1az/dex-aggregator/business/quoting/domain"
	"github.com/fd1az/dex-aggregator/internal/apperror"
	"github.com/fd1az/dex-aggregator/internal/token"
)

// fakeAggregator serves canned aggregation results to the handlers.
type fakeAggregator struct {
	result *app.AggregateResult
	err    error
}

func (f *fakeAggregator) ResolveToken(ctx context.Context, addr common.Address) (*token.Token, error) {
	if token.IsNativeAddress(addr) {
		return token.ETH, nil
	}
	if t, ok := token.DefaultRegistry().GetByAddress(addr); ok {
		return t, nil
	}
	return nil, apperror.Validation(apperror.CodeUnknownToken, addr.Hex())
}

func (f *fakeAggregator) Aggregate(ctx context.Context, in, out common.Address, amountIn *big.Int) (*app.AggregateResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	res := *f.result
	res.AmountIn = amountIn
	return &res, nil
}

func (f *fakeAggregator) BuildRoute(ctx context.Context, q domain.VenueQuote, in, out *token.Token, amountIn *big.Int, slippage decimal.Decimal, user *common.Address) (*app.RouteArtifact, error) {
	value := big.NewInt(0)
	approval := app.Approval{Needed: true, Message: "approve first", Token: in.Address(), Spender: common.HexToAddress("0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D"), Amount: amountIn}
	if in.IsNative() {
		value = new(big.Int).Set(amountIn)
		approval = app.Approval{Needed: false, Message: "native"}
	}

	return &app.RouteArtifact{
		Router:       common.HexToAddress("0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D"),
		Calldata:     []byte{0x7f, 0xf3, 0x6a, 0xb5},
		Value:        value,
		MinAmountOut: domain.MinAmountOut(q.AmountOut, slippage),
		Deadline:     big.NewInt(1_700_000_000),
		Approval:     approval,
	}, nil
}

func fixtureResult() *app.AggregateResult {
	best := domain.VenueQuote{
		Venue:       "Uniswap",
		Protocol:    domain.ProtocolV3,
		AmountOut:   big.NewInt(1_002_000_000),
		PriceImpact: decimal.RequireFromString("0.12"),
		GasEstimate: 150_000,
		FeeTier:     3000,
		Pool:        common.HexToAddress("0x8ad599c3A0ff1De082011EFDDc58f1908eb6e6D8"),
		Warning:     domain.Warning{Level: domain.WarningLow},
	}
	second := domain.VenueQuote{
		Venue:       "Uniswap",
		Protocol:    domain.ProtocolV2,
		AmountOut:   big.NewInt(1_000_000_000),
		PriceImpact: decimal.RequireFromString("0.3"),
		GasEstimate: 120_000,
		Pool:        common.HexToAddress("0xB4e16d0168e52d35CaCD2c6185b44281Ec28C9Dc"),
		Warning:     domain.Warning{Level: domain.WarningLow},
	}

	return &app.AggregateResult{
		TokenIn:  token.ETH,
		TokenOut: token.USDC,
		Quote:    domain.Aggregate([]domain.VenueQuote{second, best}),
	}
}

func newTestServer(agg aggregatorPort) *Server {
	return NewServer(Config{Port: 0}, agg, zap.NewNop())
}

func postQuote(t *testing.T, srv *Server, path string, body map[string]interface{}) *httptest.ResponseRecorder {
	t.Helper()

	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/aggregator"+path, bytes.NewReader(raw))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHandleQuote_Success(t *testing.T) {
	srv := newTestServer(&fakeAggregator{result: fixtureResult()})

	rec := postQuote(t, srv, "/quote", map[string]interface{}{
		"tokenIn":  "0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE",
		"tokenOut": "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48",
		"amountIn": "0.001",
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Success bool          `json:"success"`
		Data    quoteResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success)

	data := resp.Data
	assert.Equal(t, "0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee", data.TokenIn.Address)
	assert.Equal(t, "ETH", data.TokenIn.Symbol)
	assert.Equal(t, "1000000000000000", data.TokenIn.AmountWei)
	assert.Equal(t, "USDC", data.TokenOut.Symbol)

	// Best route is the V3 3000 tier and every quote carries a transaction.
	assert.Equal(t, "V3", data.BestRoute.Dex)
	assert.Equal(t, 3000, data.BestRoute.FeeTier)
	assert.Equal(t, "1002000000", data.BestRoute.AmountOutWei)
	assert.Len(t, data.AllQuotes, 2)
	for _, q := range data.AllQuotes {
		assert.NotEmpty(t, q.Transaction.Data)
		assert.Equal(t, "0x7a250d5630b4cf539739df2c5dacb4c659f2488d", q.Transaction.To)
	}

	// Native input: value carries the amount, no approval.
	assert.Equal(t, "1000000000000000", data.BestRoute.Transaction.Value)
	assert.False(t, data.BestRoute.Approval.Needed)

	// savings = (1002000000 - 1000000000) / 1000000000 * 100
	assert.Equal(t, "0.2", data.Savings.Percentage)
	assert.Equal(t, "2000000", data.Savings.AmountWei)

	// default slippage 0.5% -> floor(1002000000 * 9950 / 10000)
	assert.Equal(t, "0.5%", data.Slippage)
	assert.Equal(t, "996990000", data.MinimumAmountOutWei)

	assert.Contains(t, data.Recommendation, "V3")
}

func TestHandleQuote_MixedCaseEqualsLowercase(t *testing.T) {
	srv := newTestServer(&fakeAggregator{result: fixtureResult()})

	checksum := postQuote(t, srv, "/quote", map[string]interface{}{
		"tokenIn":  "0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE",
		"tokenOut": "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48",
		"amountIn": "0.001",
	})
	lower := postQuote(t, srv, "/quote", map[string]interface{}{
		"tokenIn":  "0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee",
		"tokenOut": "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48",
		"amountIn": "0.001",
	})

	require.Equal(t, http.StatusOK, checksum.Code)
	require.Equal(t, http.StatusOK, lower.Code)
	assert.JSONEq(t, checksum.Body.String(), lower.Body.String())
}

func TestHandleQuote_Validation(t *testing.T) {
	srv := newTestServer(&fakeAggregator{result: fixtureResult()})

	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{name: "missing_token_in", body: map[string]interface{}{"tokenOut": "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", "amountIn": "1"}},
		{name: "missing_amount", body: map[string]interface{}{"tokenIn": "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2", "tokenOut": "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"}},
		{name: "bad_address", body: map[string]interface{}{"tokenIn": "not-an-address", "tokenOut": "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", "amountIn": "1"}},
		{name: "bad_amount", body: map[string]interface{}{"tokenIn": "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2", "tokenOut": "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", "amountIn": "one"}},
		{name: "zero_amount", body: map[string]interface{}{"tokenIn": "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2", "tokenOut": "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", "amountIn": "0"}},
		{name: "slippage_too_high", body: map[string]interface{}{"tokenIn": "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2", "tokenOut": "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", "amountIn": "1", "slippage": 101}},
		{name: "negative_slippage", body: map[string]interface{}{"tokenIn": "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2", "tokenOut": "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", "amountIn": "1", "slippage": -1}},
		{name: "bad_user_address", body: map[string]interface{}{"tokenIn": "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2", "tokenOut": "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", "amountIn": "1", "userAddress": "0x123"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postQuote(t, srv, "/quote", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var resp envelope
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestHandleQuote_NoLiquidity(t *testing.T) {
	srv := newTestServer(&fakeAggregator{
		err: apperror.New(apperror.CodeNoLiquidity, apperror.WithContext("WETH-USDC")),
	})

	rec := postQuote(t, srv, "/quote", map[string]interface{}{
		"tokenIn":  "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2",
		"tokenOut": "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48",
		"amountIn": "1",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "No liquidity")
}

func TestHandleBuildTx(t *testing.T) {
	srv := newTestServer(&fakeAggregator{result: fixtureResult()})

	rec := postQuote(t, srv, "/build-tx", map[string]interface{}{
		"tokenIn":  "0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE",
		"tokenOut": "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48",
		"amountIn": "0.001",
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Success bool            `json:"success"`
		Data    buildTxResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success)

	assert.Equal(t, "0x7a250d5630b4cf539739df2c5dacb4c659f2488d", resp.Data.To)
	assert.Equal(t, "0x7ff36ab5", resp.Data.Data)
	assert.Equal(t, "1000000000000000", resp.Data.Value)
	assert.False(t, resp.Data.ApprovalNeeded)
	assert.Equal(t, "V3", resp.Data.Route.Dex)
	assert.Equal(t, 3000, resp.Data.Route.FeeTier)
}

func TestHandleQuote_MalformedBody(t *testing.T) {
	srv := newTestServer(&fakeAggregator{result: fixtureResult()})

	req := httptest.NewRequest(http.MethodPost, "/api/aggregator/quote", bytes.NewReader([]byte("{")))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
