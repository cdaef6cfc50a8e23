package rest

import (
	"encoding/hex"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/fd1az/dex-aggregator/business/quoting/app"
	"github.com/fd1az/dex-aggregator/business/quoting/domain"
	"github.com/fd1az/dex-aggregator/internal/token"
)

// quoteRequest is the body of POST /quote and POST /build-tx.
type quoteRequest struct {
	TokenIn     string   `json:"tokenIn"`
	TokenOut    string   `json:"tokenOut"`
	AmountIn    string   `json:"amountIn"`
	Slippage    *float64 `json:"slippage,omitempty"`
	UserAddress string   `json:"userAddress,omitempty"`
}

// envelope is the uniform response wrapper.
type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

type tokenSide struct {
	Address   string `json:"address"`
	Symbol    string `json:"symbol"`
	Amount    string `json:"amount"`
	AmountWei string `json:"amountWei"`
}

type transactionBody struct {
	To    string `json:"to"`
	Data  string `json:"data"`
	Value string `json:"value"`
	From  string `json:"from"`
}

type approvalBody struct {
	Needed  bool   `json:"needed"`
	Message string `json:"message"`
	Token   string `json:"token,omitempty"`
	Spender string `json:"spender,omitempty"`
	Amount  string `json:"amount,omitempty"`
}

type warningBody struct {
	Level       string `json:"level"`
	ShouldBlock bool   `json:"shouldBlock"`
}

type routeBody struct {
	Dex          string          `json:"dex"`
	DexName      string          `json:"dexName"`
	FeeTier      int             `json:"feeTier,omitempty"`
	AmountOut    string          `json:"amountOut"`
	AmountOutWei string          `json:"amountOutWei"`
	PriceImpact  string          `json:"priceImpact"`
	GasEstimate  uint64          `json:"gasEstimate"`
	PoolAddress  string          `json:"poolAddress"`
	Warning      warningBody     `json:"warning"`
	Transaction  transactionBody `json:"transaction"`
	Approval     approvalBody    `json:"approval"`
}

type savingsBody struct {
	Percentage string `json:"percentage"`
	Amount     string `json:"amount"`
	AmountWei  string `json:"amountWei"`
}

type quoteResponse struct {
	TokenIn             tokenSide   `json:"tokenIn"`
	TokenOut            tokenSide   `json:"tokenOut"`
	BestRoute           routeBody   `json:"bestRoute"`
	AllQuotes           []routeBody `json:"allQuotes"`
	Savings             savingsBody `json:"savings"`
	Slippage            string      `json:"slippage"`
	MinimumAmountOut    string      `json:"minimumAmountOut"`
	MinimumAmountOutWei string      `json:"minimumAmountOutWei"`
	Recommendation      string      `json:"recommendation"`
}

type buildTxResponse struct {
	To             string `json:"to"`
	Data           string `json:"data"`
	Value          string `json:"value"`
	ApprovalNeeded bool   `json:"approvalNeeded"`
	Route          struct {
		Dex         string `json:"dex"`
		DexName     string `json:"dexName"`
		FeeTier     int    `json:"feeTier,omitempty"`
		AmountOut   string `json:"amountOut"`
		PriceImpact string `json:"priceImpact"`
	} `json:"route"`
}

// hexLower renders an address in the canonical lowercase response form.
func hexLower(addr common.Address) string {
	return strings.ToLower(addr.Hex())
}

func hexBytes(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}

// newRouteBody shapes one quote plus its route artifact.
func newRouteBody(q domain.VenueQuote, art *app.RouteArtifact, out *token.Token) routeBody {
	body := routeBody{
		Dex:          string(q.Protocol),
		DexName:      q.Venue,
		AmountOut:    token.FormatAmount(q.AmountOut, out.Decimals()),
		AmountOutWei: q.AmountOut.String(),
		PriceImpact:  q.PriceImpact.Round(2).String(),
		GasEstimate:  q.GasEstimate,
		PoolAddress:  hexLower(q.Pool),
		Warning: warningBody{
			Level:       string(q.Warning.Level),
			ShouldBlock: q.Warning.ShouldBlock,
		},
		Transaction: transactionBody{
			To:    hexLower(art.Router),
			Data:  hexBytes(art.Calldata),
			Value: art.Value.String(),
			From:  hexLower(art.From),
		},
		Approval: approvalBody{
			Needed:  art.Approval.Needed,
			Message: art.Approval.Message,
		},
	}

	if q.Protocol == domain.ProtocolV3 {
		body.FeeTier = q.FeeTier
	}

	if art.Approval.Needed && art.Approval.Amount != nil {
		body.Approval.Token = hexLower(art.Approval.Token)
		body.Approval.Spender = hexLower(art.Approval.Spender)
		body.Approval.Amount = art.Approval.Amount.String()
	}

	return body
}

func formatSlippage(slippage decimal.Decimal) string {
	return slippage.String() + "%"
}
