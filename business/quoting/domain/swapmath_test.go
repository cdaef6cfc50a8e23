package domain

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
)

func bigFromString(t *testing.T, s string) *big.Int {
	t.Helper()
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		t.Fatalf("invalid big int fixture: %s", s)
	}
	return n
}

// expectedV2Out recomputes the constant-product identity independently.
func expectedV2Out(amountIn, reserveIn, reserveOut *big.Int) *big.Int {
	withFee := new(big.Int).Mul(amountIn, big.NewInt(997))
	num := new(big.Int).Mul(withFee, reserveOut)
	den := new(big.Int).Mul(reserveIn, big.NewInt(1000))
	den.Add(den, withFee)
	return num.Div(num, den)
}

func TestV2AmountOut(t *testing.T) {
	tests := []struct {
		name       string
		amountIn   string
		reserveIn  string
		reserveOut string
		wantErr    error
	}{
		{
			name:       "weth_native_pool",
			amountIn:   "1000000000000000", // 0.001 WETH
			reserveIn:  "2620000000000000",
			reserveOut: "4168985000000000000",
		},
		{
			name:       "small_trade_deep_pool",
			amountIn:   "1000000000000000000", // 1 token
			reserveIn:  "5000000000000000000000",
			reserveOut: "10000000000000000000000",
		},
		{
			name:       "six_decimals_output",
			amountIn:   "2000000000000000000",
			reserveIn:  "1000000000000000000000",
			reserveOut: "3400000000000", // USDC-style
		},
		{
			name:      "zero_amount",
			amountIn:  "0",
			reserveIn: "1", reserveOut: "1",
			wantErr: ErrInvalidAmount,
		},
		{
			name:      "zero_reserve_in",
			amountIn:  "1000",
			reserveIn: "0", reserveOut: "1000000",
			wantErr: ErrInsufficientLiquidity,
		},
		{
			name:      "zero_reserve_out",
			amountIn:  "1000",
			reserveIn: "1000000", reserveOut: "0",
			wantErr: ErrInsufficientLiquidity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			amountIn := bigFromString(t, tt.amountIn)
			reserveIn := bigFromString(t, tt.reserveIn)
			reserveOut := bigFromString(t, tt.reserveOut)

			got, err := V2AmountOut(amountIn, reserveIn, reserveOut)
			if tt.wantErr != nil {
				if err != tt.wantErr {
					t.Fatalf("V2AmountOut error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("V2AmountOut failed: %v", err)
			}

			want := expectedV2Out(amountIn, reserveIn, reserveOut)
			if got.Cmp(want) != 0 {
				t.Errorf("V2AmountOut = %s, want %s", got, want)
			}
			if got.Cmp(reserveOut) >= 0 {
				t.Errorf("V2AmountOut = %s, must be < reserveOut %s", got, reserveOut)
			}
		})
	}
}

func TestV2AmountOut_MonotonicInAmountIn(t *testing.T) {
	reserveIn := bigFromString(t, "2620000000000000")
	reserveOut := bigFromString(t, "4168985000000000000")

	prev := big.NewInt(0)
	for _, amount := range []string{
		"1000000000000",
		"10000000000000",
		"100000000000000",
		"1000000000000000",
		"10000000000000000",
	} {
		out, err := V2AmountOut(bigFromString(t, amount), reserveIn, reserveOut)
		if err != nil {
			t.Fatalf("V2AmountOut(%s) failed: %v", amount, err)
		}
		if out.Cmp(prev) <= 0 {
			t.Errorf("amountOut not increasing: %s after %s", out, prev)
		}
		prev = out
	}
}

func TestV2PriceImpact(t *testing.T) {
	reserveIn := bigFromString(t, "2620000000000000")
	reserveOut := bigFromString(t, "4168985000000000000")

	amountIn := bigFromString(t, "1000000000000000")
	amountOut, err := V2AmountOut(amountIn, reserveIn, reserveOut)
	if err != nil {
		t.Fatalf("V2AmountOut failed: %v", err)
	}

	impact := V2PriceImpact(amountIn, amountOut, reserveIn, reserveOut, 18, 18)
	if impact.IsNegative() {
		t.Fatalf("impact must be non-negative, got %s", impact)
	}

	// Swapping ~38% of the input reserve is a violently impactful trade.
	if impact.LessThan(decimal.NewFromInt(15)) {
		t.Errorf("impact = %s, want extreme (>= 15)", impact)
	}
	if w := WarnFor(impact); w.Level != WarningExtreme || !w.ShouldBlock {
		t.Errorf("warning = %+v, want extreme/shouldBlock", w)
	}
}

func TestV2PriceImpact_MonotonicInAmountIn(t *testing.T) {
	reserveIn := bigFromString(t, "2620000000000000000000")
	reserveOut := bigFromString(t, "4168985000000000000000000")

	prev := decimal.NewFromInt(-1)
	for _, amount := range []string{
		"1000000000000000000",
		"10000000000000000000",
		"100000000000000000000",
		"1000000000000000000000",
	} {
		amountIn := bigFromString(t, amount)
		amountOut, err := V2AmountOut(amountIn, reserveIn, reserveOut)
		if err != nil {
			t.Fatalf("V2AmountOut(%s) failed: %v", amount, err)
		}

		impact := V2PriceImpact(amountIn, amountOut, reserveIn, reserveOut, 18, 18)
		if impact.LessThan(prev) {
			t.Errorf("impact not non-decreasing: %s after %s", impact, prev)
		}
		prev = impact
	}
}

func TestSqrtPriceX96Conversions(t *testing.T) {
	tests := []struct {
		name      string
		price     string
		decimals0 uint8
		decimals1 uint8
	}{
		{name: "unit_price_same_decimals", price: "1", decimals0: 18, decimals1: 18},
		{name: "eth_usdc_style", price: "3400.25", decimals0: 18, decimals1: 6},
		{name: "fractional_price", price: "0.00042", decimals0: 18, decimals1: 18},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			price := decimal.RequireFromString(tt.price)

			sqrt := PriceToSqrtPriceX96(price, tt.decimals0, tt.decimals1)
			if sqrt.Sign() <= 0 {
				t.Fatalf("sqrtPriceX96 must be positive, got %s", sqrt)
			}

			back := SqrtPriceX96ToPrice(sqrt, tt.decimals0, tt.decimals1)

			// float64 sqrt bounds the round-trip precision
			diff := back.Sub(price).Abs().Div(price)
			if diff.GreaterThan(decimal.RequireFromString("0.000001")) {
				t.Errorf("round trip drifted: %s -> %s (rel diff %s)", price, back, diff)
			}
		})
	}
}

func TestV3PriceImpact(t *testing.T) {
	tests := []struct {
		name   string
		before string
		after  string
		want   string // percent
	}{
		{
			name:   "no_move",
			before: "79228162514264337593543950336", // 2^96, price 1
			after:  "79228162514264337593543950336",
			want:   "0",
		},
		{
			name:   "one_percent_price_drop",
			before: "100000000000000000000000000000",
			// sqrt(0.99) scaled: after^2/before^2 = 0.99
			after: "99498743710661995473447982100",
			want:  "1",
		},
		{
			name:   "price_doubles",
			before: "79228162514264337593543950336",
			after:  "112045541949572279837463876454", // sqrt(2) * 2^96
			want:   "100",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			impact := V3PriceImpact(bigFromString(t, tt.before), bigFromString(t, tt.after))
			want := decimal.RequireFromString(tt.want)

			diff := impact.Sub(want).Abs()
			if diff.GreaterThan(decimal.RequireFromString("0.0001")) {
				t.Errorf("V3PriceImpact = %s, want ~%s", impact, want)
			}
		})
	}
}

func TestSlippageBounds(t *testing.T) {
	amount := bigFromString(t, "1149173000000000000")

	tests := []struct {
		name     string
		slippage string
		wantMin  string
	}{
		{name: "default_half_percent", slippage: "0.5", wantMin: "1143427135000000000"}, // * 9950 / 10000
		{name: "zero_is_identity", slippage: "0", wantMin: "1149173000000000000"},
		{name: "one_percent", slippage: "1", wantMin: "1137681270000000000"},
		{name: "fractional_bps_floored", slippage: "0.119", wantMin: "1147908909700000000"}, // 11 bps
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MinAmountOut(amount, decimal.RequireFromString(tt.slippage))
			want := bigFromString(t, tt.wantMin)
			if got.Cmp(want) != 0 {
				t.Errorf("MinAmountOut = %s, want %s", got, want)
			}
			if got.Cmp(amount) > 0 {
				t.Errorf("MinAmountOut = %s exceeds amountOut %s", got, amount)
			}
		})
	}
}

func TestSlippageLaws(t *testing.T) {
	amount := bigFromString(t, "123456789012345678")

	// slip(a, 0) = a
	if got := MinAmountOut(amount, decimal.Zero); got.Cmp(amount) != 0 {
		t.Errorf("slip(a, 0) = %s, want %s", got, amount)
	}

	// slip(slip(a, p), 0) = slip(a, p)
	p := decimal.RequireFromString("2.5")
	once := MinAmountOut(amount, p)
	again := MinAmountOut(once, decimal.Zero)
	if again.Cmp(once) != 0 {
		t.Errorf("slip(slip(a, p), 0) = %s, want %s", again, once)
	}
}

func TestMaxAmountIn(t *testing.T) {
	amount := bigFromString(t, "1000000")

	got := MaxAmountIn(amount, decimal.RequireFromString("0.5"))
	want := bigFromString(t, "1005000") // * 10050 / 10000
	if got.Cmp(want) != 0 {
		t.Errorf("MaxAmountIn = %s, want %s", got, want)
	}
}
