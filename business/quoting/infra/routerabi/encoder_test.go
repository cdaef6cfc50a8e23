package routerabi

import (
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/dex-aggregator/business/quoting/app"
)

var (
	weth = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	usdc = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
)

func newTestEncoder(t *testing.T) *Encoder {
	t.Helper()
	e, err := NewEncoder()
	if err != nil {
		t.Fatalf("NewEncoder failed: %v", err)
	}
	return e
}

func TestEncodeV2Swap_Selectors(t *testing.T) {
	e := newTestEncoder(t)

	amountIn := big.NewInt(1_000_000)
	minOut := big.NewInt(990_000)
	path := []common.Address{weth, usdc}
	deadline := big.NewInt(1_700_000_000)

	// Canonical V2 router selectors.
	tests := []struct {
		fn       app.V2SwapFunc
		selector string
	}{
		{app.SwapExactETHForTokens, "7ff36ab5"},
		{app.SwapExactTokensForETH, "18cbafe5"},
		{app.SwapExactTokensForTokens, "38ed1739"},
	}

	for _, tt := range tests {
		t.Run(string(tt.fn), func(t *testing.T) {
			data, err := e.EncodeV2Swap(tt.fn, amountIn, minOut, path, common.Address{}, deadline)
			if err != nil {
				t.Fatalf("EncodeV2Swap failed: %v", err)
			}
			if got := hex.EncodeToString(data[:4]); got != tt.selector {
				t.Errorf("selector = %s, want %s", got, tt.selector)
			}
			// Every argument is head-encoded or offset: length is 4 + n*32.
			if (len(data)-4)%32 != 0 {
				t.Errorf("calldata length %d not word-aligned", len(data))
			}
		})
	}
}

func TestEncodeV2Swap_UnknownFunction(t *testing.T) {
	e := newTestEncoder(t)

	_, err := e.EncodeV2Swap("swapTokensForExactTokens", big.NewInt(1), big.NewInt(1), nil, common.Address{}, big.NewInt(1))
	if err == nil {
		t.Fatal("EncodeV2Swap succeeded for unsupported function")
	}
}

func TestEncodeV3ExactInputSingle(t *testing.T) {
	e := newTestEncoder(t)

	data, err := e.EncodeV3ExactInputSingle(app.V3ExactInputSingleParams{
		TokenIn:          weth,
		TokenOut:         usdc,
		Fee:              3000,
		Recipient:        common.Address{},
		Deadline:         big.NewInt(1_700_000_000),
		AmountIn:         big.NewInt(1_000_000),
		AmountOutMinimum: big.NewInt(990_000),
	})
	if err != nil {
		t.Fatalf("EncodeV3ExactInputSingle failed: %v", err)
	}

	// Canonical exactInputSingle selector.
	if got := hex.EncodeToString(data[:4]); got != "414bf389" {
		t.Errorf("selector = %s, want 414bf389", got)
	}

	// Static tuple of 8 fields: 4 + 8*32 bytes.
	if len(data) != 4+8*32 {
		t.Errorf("calldata length = %d, want %d", len(data), 4+8*32)
	}
}
