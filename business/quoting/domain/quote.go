package domain

import (
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Protocol tags the AMM family a venue speaks.
type Protocol string

const (
	ProtocolV2 Protocol = "V2"
	ProtocolV3 Protocol = "V3"
)

// FeeTiers is the canonical Uniswap V3 fee tier set, in hundredths of a bip.
var FeeTiers = []int{100, 500, 3000, 10000}

// TickSpacing returns the minimum tick increment for a fee tier.
func TickSpacing(feeTier int) int {
	switch feeTier {
	case 100:
		return 1
	case 500:
		return 10
	case 3000:
		return 60
	case 10000:
		return 200
	default:
		return 0
	}
}

// FeeTierPercent returns the fee tier as a percentage string (e.g., "0.30%").
func FeeTierPercent(feeTier int) string {
	return fmt.Sprintf("%.2f%%", float64(feeTier)/10000.0)
}

// VenueQuote is a single venue's answer for a swap: the expected output, its
// price impact, and the pool it came from. AmountOut is always positive;
// FeeTier is set only for V3 quotes.
type VenueQuote struct {
	Venue       string
	Protocol    Protocol
	AmountOut   *big.Int
	PriceImpact decimal.Decimal // percent, >= 0
	GasEstimate uint64
	FeeTier     int // 0 for V2
	Pool        common.Address
	Warning     Warning
}

// Savings quantifies how much better the best quote is than the worst.
type Savings struct {
	Percentage decimal.Decimal // two decimals
	Amount     *big.Int        // output units
}

// AggregatedQuote is the merged, ranked result across all venues.
type AggregatedQuote struct {
	Quotes         []VenueQuote // ranked, best first
	Best           VenueQuote
	Savings        Savings
	Recommendation string
}

// Rank sorts quotes into the total order used for ranking: amountOut
// descending, ties broken by lower price impact, then lower fee tier, then
// venue name.
func Rank(quotes []VenueQuote) {
	sort.SliceStable(quotes, func(i, j int) bool {
		a, b := quotes[i], quotes[j]

		if c := a.AmountOut.Cmp(b.AmountOut); c != 0 {
			return c > 0
		}
		if !a.PriceImpact.Equal(b.PriceImpact) {
			return a.PriceImpact.LessThan(b.PriceImpact)
		}
		if a.FeeTier != b.FeeTier {
			return a.FeeTier < b.FeeTier
		}
		return a.Venue < b.Venue
	})
}

// Aggregate ranks the surviving quotes and derives best quote, savings and a
// recommendation. The quote slice must be non-empty.
func Aggregate(quotes []VenueQuote) AggregatedQuote {
	Rank(quotes)

	best := quotes[0]
	worst := quotes[0].AmountOut
	for _, q := range quotes[1:] {
		if q.AmountOut.Cmp(worst) < 0 {
			worst = q.AmountOut
		}
	}

	savings := Savings{Percentage: decimal.Zero, Amount: new(big.Int)}
	if len(quotes) > 1 && worst.Sign() > 0 {
		abs := new(big.Int).Sub(best.AmountOut, worst)
		pct := decimal.NewFromBigInt(abs, 0).
			Div(decimal.NewFromBigInt(worst, 0)).
			Mul(decimal.NewFromInt(100)).
			Round(2)
		savings = Savings{Percentage: pct, Amount: abs}
	}

	return AggregatedQuote{
		Quotes:         quotes,
		Best:           best,
		Savings:        savings,
		Recommendation: recommendation(best, savings),
	}
}

func recommendation(best VenueQuote, savings Savings) string {
	var sb strings.Builder
	sb.WriteString("Use ")
	sb.WriteString(best.Venue)
	if best.Protocol == ProtocolV3 {
		sb.WriteString(fmt.Sprintf(" V3 (%s fee tier)", FeeTierPercent(best.FeeTier)))
	} else {
		sb.WriteString(" V2")
	}
	if savings.Percentage.IsPositive() {
		sb.WriteString(fmt.Sprintf(" for %s%% better price", savings.Percentage.String()))
	} else {
		sb.WriteString(" for the best available price")
	}
	return sb.String()
}
