package config

import (
	"strings"
	"testing"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("RPC_URL", "https://eth.example.org")
	t.Setenv("FACTORY_ADDRESS", "0x5C69bEe701ef814a2B6a3EDD4B1652CB9cc5aA6f")
	t.Setenv("ROUTER_ADDRESS", "0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D")
	t.Setenv("V3_FACTORY_ADDRESS", "0x1F98431c8aD98523631AE4a59f267346ea31F984")
	t.Setenv("V3_QUOTER_ADDRESS", "0x61fFE014bA17989E743c5F6cB21bF9697530B21e")
	t.Setenv("V3_SWAP_ROUTER_ADDRESS", "0x68b3465833fb72A70ecDF485E0e4C7bD8665Fc45")
}

func TestLoadFromEnv(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("PORT", "8080")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Server.Port)
	}
	if !cfg.UniswapV2.Enabled() || !cfg.UniswapV3.Enabled() {
		t.Error("both venues must be enabled")
	}
	if cfg.UniswapV2.FactoryAddressHex().Hex() != "0x5C69bEe701ef814a2B6a3EDD4B1652CB9cc5aA6f" {
		t.Errorf("v2 factory = %s", cfg.UniswapV2.FactoryAddressHex().Hex())
	}
}

func TestLoadDefaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 3000 {
		t.Errorf("default port = %d, want 3000", cfg.Server.Port)
	}
	if cfg.App.Name != "dex-aggregator" {
		t.Errorf("default app name = %s", cfg.App.Name)
	}
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			Ethereum: EthereumConfig{RPCURL: "https://eth.example.org"},
			UniswapV2: UniswapV2Config{
				FactoryAddress: "0x5C69bEe701ef814a2B6a3EDD4B1652CB9cc5aA6f",
				RouterAddress:  "0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D",
			},
		}
	}

	t.Run("v2_only_is_valid", func(t *testing.T) {
		cfg := base()
		if err := cfg.Validate(); err != nil {
			t.Errorf("Validate failed: %v", err)
		}
	})

	t.Run("missing_rpc_url", func(t *testing.T) {
		cfg := base()
		cfg.Ethereum.RPCURL = ""
		if err := cfg.Validate(); err == nil {
			t.Error("Validate succeeded without rpc_url")
		}
	})

	t.Run("no_venue_configured", func(t *testing.T) {
		cfg := base()
		cfg.UniswapV2 = UniswapV2Config{}
		err := cfg.Validate()
		if err == nil || !strings.Contains(err.Error(), "at least one venue") {
			t.Errorf("Validate = %v, want venue error", err)
		}
	})

	t.Run("half_configured_v2", func(t *testing.T) {
		cfg := base()
		cfg.UniswapV2.RouterAddress = ""
		if err := cfg.Validate(); err == nil {
			t.Error("Validate succeeded with half-configured v2")
		}
	})

	t.Run("half_configured_v3", func(t *testing.T) {
		cfg := base()
		cfg.UniswapV3.FactoryAddress = "0x1F98431c8aD98523631AE4a59f267346ea31F984"
		if err := cfg.Validate(); err == nil {
			t.Error("Validate succeeded with half-configured v3")
		}
	})

	t.Run("invalid_address", func(t *testing.T) {
		cfg := base()
		cfg.UniswapV2.FactoryAddress = "0x123"
		if err := cfg.Validate(); err == nil {
			t.Error("Validate succeeded with malformed address")
		}
	})
}
