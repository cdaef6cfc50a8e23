package rest

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/fd1az/dex-aggregator/business/quoting/app"
	"github.com/fd1az/dex-aggregator/business/quoting/domain"
	"github.com/fd1az/dex-aggregator/internal/apperror"
	"github.com/fd1az/dex-aggregator/internal/token"
)

// defaultSlippagePercent applies when the request omits slippage.
const defaultSlippagePercent = 0.5

// parsedQuoteRequest is a validated request with addresses and amounts in
// engine form.
type parsedQuoteRequest struct {
	tokenIn  common.Address
	tokenOut common.Address
	amount   string
	slippage decimal.Decimal
	user     *common.Address
}

// parseQuoteRequest validates the request body without touching the chain.
func parseQuoteRequest(r *http.Request) (*parsedQuoteRequest, error) {
	var body quoteRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return nil, apperror.Validation(apperror.CodeInvalidFormat, "request body")
	}

	if body.TokenIn == "" {
		return nil, apperror.Validation(apperror.CodeRequiredField, "tokenIn")
	}
	if body.TokenOut == "" {
		return nil, apperror.Validation(apperror.CodeRequiredField, "tokenOut")
	}
	if body.AmountIn == "" {
		return nil, apperror.Validation(apperror.CodeRequiredField, "amountIn")
	}
	if !common.IsHexAddress(body.TokenIn) {
		return nil, apperror.Validation(apperror.CodeInvalidAddress, "tokenIn")
	}
	if !common.IsHexAddress(body.TokenOut) {
		return nil, apperror.Validation(apperror.CodeInvalidAddress, "tokenOut")
	}

	slippage := decimal.NewFromFloat(defaultSlippagePercent)
	if body.Slippage != nil {
		if *body.Slippage < 0 || *body.Slippage > 100 {
			return nil, apperror.Validation(apperror.CodeInvalidSlippage, "slippage")
		}
		slippage = decimal.NewFromFloat(*body.Slippage)
	}

	parsed := &parsedQuoteRequest{
		tokenIn:  common.HexToAddress(body.TokenIn),
		tokenOut: common.HexToAddress(body.TokenOut),
		amount:   body.AmountIn,
		slippage: slippage,
	}

	if body.UserAddress != "" {
		if !common.IsHexAddress(body.UserAddress) {
			return nil, apperror.Validation(apperror.CodeInvalidAddress, "userAddress")
		}
		user := common.HexToAddress(body.UserAddress)
		parsed.user = &user
	}

	return parsed, nil
}

// amountInWei resolves the input token's decimals and shifts the decimal
// amount into integer units.
func (s *Server) amountInWei(r *http.Request, req *parsedQuoteRequest) (*token.Token, *big.Int, error) {
	in, err := s.agg.ResolveToken(r.Context(), req.tokenIn)
	if err != nil {
		return nil, nil, err
	}

	amount, err := token.ParseAmount(req.amount, in.Decimals())
	if err != nil {
		return nil, nil, apperror.Validation(apperror.CodeInvalidAmount, req.amount)
	}
	if amount.Sign() <= 0 {
		return nil, nil, apperror.Validation(apperror.CodeInvalidAmount, req.amount)
	}

	return in, amount, nil
}

// handleQuote serves POST /quote: aggregate, rank, and attach a route
// artifact to every surviving quote.
func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	req, err := parseQuoteRequest(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	in, amount, err := s.amountInWei(r, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.agg.Aggregate(r.Context(), req.tokenIn, req.tokenOut, amount)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	out := result.TokenOut
	best := result.Quote.Best

	routes := make([]routeBody, 0, len(result.Quote.Quotes))
	var bestBody routeBody
	for i, q := range result.Quote.Quotes {
		art, err := s.agg.BuildRoute(r.Context(), q, in, out, amount, req.slippage, req.user)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		body := newRouteBody(q, art, out)
		routes = append(routes, body)
		if i == 0 {
			bestBody = body
		}
	}

	minOut := domain.MinAmountOut(best.AmountOut, req.slippage)

	resp := quoteResponse{
		TokenIn: tokenSide{
			Address:   in.HexLower(),
			Symbol:    in.Symbol(),
			Amount:    token.FormatAmount(amount, in.Decimals()),
			AmountWei: amount.String(),
		},
		TokenOut: tokenSide{
			Address:   out.HexLower(),
			Symbol:    out.Symbol(),
			Amount:    token.FormatAmount(best.AmountOut, out.Decimals()),
			AmountWei: best.AmountOut.String(),
		},
		BestRoute: bestBody,
		AllQuotes: routes,
		Savings: savingsBody{
			Percentage: result.Quote.Savings.Percentage.String(),
			Amount:     token.FormatAmount(result.Quote.Savings.Amount, out.Decimals()),
			AmountWei:  result.Quote.Savings.Amount.String(),
		},
		Slippage:            formatSlippage(req.slippage),
		MinimumAmountOut:    token.FormatAmount(minOut, out.Decimals()),
		MinimumAmountOutWei: minOut.String(),
		Recommendation:      result.Quote.Recommendation,
	}

	s.writeJSON(w, http.StatusOK, envelope{Success: true, Data: resp})
}

// handleBuildTx serves POST /build-tx: same inputs as /quote, but returns
// only the best route's transaction for clients that rank out-of-band.
func (s *Server) handleBuildTx(w http.ResponseWriter, r *http.Request) {
	req, err := parseQuoteRequest(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	in, amount, err := s.amountInWei(r, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.agg.Aggregate(r.Context(), req.tokenIn, req.tokenOut, amount)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	best := result.Quote.Best
	art, err := s.agg.BuildRoute(r.Context(), best, in, result.TokenOut, amount, req.slippage, req.user)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := buildTxResponse{
		To:             hexLower(art.Router),
		Data:           hexBytes(art.Calldata),
		Value:          art.Value.String(),
		ApprovalNeeded: art.Approval.Needed,
	}
	resp.Route.Dex = string(best.Protocol)
	resp.Route.DexName = best.Venue
	if best.Protocol == domain.ProtocolV3 {
		resp.Route.FeeTier = best.FeeTier
	}
	resp.Route.AmountOut = token.FormatAmount(best.AmountOut, result.TokenOut.Decimals())
	resp.Route.PriceImpact = best.PriceImpact.Round(2).String()

	s.writeJSON(w, http.StatusOK, envelope{Success: true, Data: resp})
}

// writeError maps engine errors onto the response envelope. The request
// deadline shows up as context cancellation and maps to 504.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(r.Context().Err(), context.DeadlineExceeded) {
		err = apperror.Timeout(apperror.CodeServiceTimeout, r.URL.Path, err)
	}

	status := apperror.StatusCode(err)
	message := err.Error()

	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
		if appErr.Context != "" && status < http.StatusInternalServerError {
			message = appErr.Message + ": " + appErr.Context
		}
		if status >= http.StatusInternalServerError {
			s.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Any("error", appErr.ToLog()))
		}
	} else {
		s.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		message = "internal server error"
	}

	s.writeJSON(w, status, envelope{Success: false, Error: message})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

// aggregatorPort is the slice of the aggregator the handlers use.
type aggregatorPort interface {
	ResolveToken(ctx context.Context, addr common.Address) (*token.Token, error)
	Aggregate(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *big.Int) (*app.AggregateResult, error)
	BuildRoute(ctx context.Context, q domain.VenueQuote, tokenIn, tokenOut *token.Token, amountIn *big.Int, slippage decimal.Decimal, userAddr *common.Address) (*app.RouteArtifact, error)
}
