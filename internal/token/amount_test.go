package token

import (
	"math/big"
	"testing"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		decimals uint8
		want     string
		wantErr  bool
	}{
		{name: "one_ether", input: "1", decimals: 18, want: "1000000000000000000"},
		{name: "fractional_ether", input: "0.001", decimals: 18, want: "1000000000000000"},
		{name: "usdc_amount", input: "3400.25", decimals: 6, want: "3400250000"},
		{name: "zero", input: "0", decimals: 18, want: "0"},
		{name: "zero_decimals", input: "42", decimals: 0, want: "42"},
		{name: "max_precision", input: "0.000000000000000001", decimals: 18, want: "1"},
		{name: "too_many_decimals", input: "0.0000001", decimals: 6, wantErr: true},
		{name: "negative", input: "-1", decimals: 18, wantErr: true},
		{name: "not_a_number", input: "one", decimals: 18, wantErr: true},
		{name: "empty", input: "", decimals: 18, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.input, tt.decimals)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseAmount(%q) succeeded, want error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAmount(%q) failed: %v", tt.input, err)
			}

			want, _ := new(big.Int).SetString(tt.want, 10)
			if got.Cmp(want) != 0 {
				t.Errorf("ParseAmount(%q) = %s, want %s", tt.input, got, want)
			}
		})
	}
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		decimals uint8
		want     string
	}{
		{name: "one_ether", raw: "1000000000000000000", decimals: 18, want: "1"},
		{name: "fractional", raw: "1000000000000000", decimals: 18, want: "0.001"},
		{name: "usdc", raw: "3400250000", decimals: 6, want: "3400.25"},
		{name: "zero", raw: "0", decimals: 18, want: "0"},
		{name: "nil_is_zero", raw: "", decimals: 18, want: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var raw *big.Int
			if tt.raw != "" {
				raw, _ = new(big.Int).SetString(tt.raw, 10)
			}
			if got := FormatAmount(raw, tt.decimals); got != tt.want {
				t.Errorf("FormatAmount(%s) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

// Parse then format must round-trip for strings without superfluous zeros.
func TestParseFormatRoundTrip(t *testing.T) {
	cases := []struct {
		s        string
		decimals uint8
	}{
		{"1", 18},
		{"0.001", 18},
		{"1.149173", 18},
		{"3400.25", 6},
		{"0.000000000000000001", 18},
		{"42", 0},
	}

	for _, c := range cases {
		raw, err := ParseAmount(c.s, c.decimals)
		if err != nil {
			t.Fatalf("ParseAmount(%q) failed: %v", c.s, err)
		}
		if got := FormatAmount(raw, c.decimals); got != c.s {
			t.Errorf("round trip %q -> %q", c.s, got)
		}
	}
}
