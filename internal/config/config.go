// Package config provides configuration loading and validation.
package config

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Ethereum  EthereumConfig  `mapstructure:"ethereum"`
	UniswapV2 UniswapV2Config `mapstructure:"uniswap_v2"`
	UniswapV3 UniswapV3Config `mapstructure:"uniswap_v3"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Port               int `mapstructure:"port"`
	RateLimitPerMinute int `mapstructure:"rate_limit_per_minute"`
}

// EthereumConfig holds Ethereum node configuration.
type EthereumConfig struct {
	RPCURL  string `mapstructure:"rpc_url"`
	ChainID uint64 `mapstructure:"chain_id"`
}

// UniswapV2Config holds the V2 venue's contract addresses. The venue is
// enabled only when both addresses are present.
type UniswapV2Config struct {
	Name           string `mapstructure:"name"`
	FactoryAddress string `mapstructure:"factory_address"`
	RouterAddress  string `mapstructure:"router_address"`
}

// Enabled reports whether the V2 venue is configured.
func (c *UniswapV2Config) Enabled() bool {
	return c.FactoryAddress != "" && c.RouterAddress != ""
}

// FactoryAddressHex returns the factory address as common.Address.
func (c *UniswapV2Config) FactoryAddressHex() common.Address {
	return common.HexToAddress(c.FactoryAddress)
}

// RouterAddressHex returns the router address as common.Address.
func (c *UniswapV2Config) RouterAddressHex() common.Address {
	return common.HexToAddress(c.RouterAddress)
}

// UniswapV3Config holds the V3 venue's contract addresses. The venue is
// enabled only when factory, quoter and swap router are all present.
type UniswapV3Config struct {
	Name              string `mapstructure:"name"`
	FactoryAddress    string `mapstructure:"factory_address"`
	QuoterAddress     string `mapstructure:"quoter_address"`
	SwapRouterAddress string `mapstructure:"swap_router_address"`
	AggregatorAddress string `mapstructure:"aggregator_address"`
}

// Enabled reports whether the V3 venue is configured.
func (c *UniswapV3Config) Enabled() bool {
	return c.FactoryAddress != "" && c.QuoterAddress != "" && c.SwapRouterAddress != ""
}

// FactoryAddressHex returns the factory address as common.Address.
func (c *UniswapV3Config) FactoryAddressHex() common.Address {
	return common.HexToAddress(c.FactoryAddress)
}

// QuoterAddressHex returns the quoter address as common.Address.
func (c *UniswapV3Config) QuoterAddressHex() common.Address {
	return common.HexToAddress(c.QuoterAddress)
}

// SwapRouterAddressHex returns the swap router address as common.Address.
func (c *UniswapV3Config) SwapRouterAddressHex() common.Address {
	return common.HexToAddress(c.SwapRouterAddress)
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables
	v.SetEnvPrefix("AGG")
	v.AutomaticEnv()

	// Bind env vars to config keys
	bindEnvVars(v)

	// Set defaults
	setDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	// App
	v.BindEnv("app.name", "AGG_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "AGG_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "AGG_LOG_LEVEL", "LOG_LEVEL")

	// Server
	v.BindEnv("server.port", "AGG_PORT", "PORT")
	v.BindEnv("server.rate_limit_per_minute", "AGG_RATE_LIMIT_PER_MINUTE")

	// Ethereum
	v.BindEnv("ethereum.rpc_url", "AGG_RPC_URL", "RPC_URL")
	v.BindEnv("ethereum.chain_id", "AGG_CHAIN_ID", "CHAIN_ID")

	// Uniswap V2
	v.BindEnv("uniswap_v2.factory_address", "AGG_FACTORY_ADDRESS", "FACTORY_ADDRESS")
	v.BindEnv("uniswap_v2.router_address", "AGG_ROUTER_ADDRESS", "ROUTER_ADDRESS")

	// Uniswap V3
	v.BindEnv("uniswap_v3.factory_address", "AGG_V3_FACTORY_ADDRESS", "V3_FACTORY_ADDRESS")
	v.BindEnv("uniswap_v3.quoter_address", "AGG_V3_QUOTER_ADDRESS", "V3_QUOTER_ADDRESS")
	v.BindEnv("uniswap_v3.swap_router_address", "AGG_V3_SWAP_ROUTER_ADDRESS", "V3_SWAP_ROUTER_ADDRESS")
	v.BindEnv("uniswap_v3.aggregator_address", "AGG_AGGREGATOR_CONTRACT_ADDRESS", "AGGREGATOR_CONTRACT_ADDRESS")

	// Telemetry
	v.BindEnv("telemetry.enabled", "AGG_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "AGG_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.otlp_endpoint", "AGG_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "dex-aggregator")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	// Server defaults
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.rate_limit_per_minute", 600)

	// Ethereum defaults
	v.SetDefault("ethereum.chain_id", 1)

	// Venue name defaults
	v.SetDefault("uniswap_v2.name", "Uniswap")
	v.SetDefault("uniswap_v3.name", "Uniswap")

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "dex-aggregator")
	v.SetDefault("telemetry.prometheus_port", 9090)
}

// Validate validates the configuration. At least one venue must be fully
// configured; a half-configured venue is an error rather than silently
// disabled.
func (c *Config) Validate() error {
	if c.Ethereum.RPCURL == "" {
		return fmt.Errorf("ethereum.rpc_url is required")
	}

	v2Partial := c.UniswapV2.FactoryAddress != "" || c.UniswapV2.RouterAddress != ""
	if v2Partial && !c.UniswapV2.Enabled() {
		return fmt.Errorf("uniswap_v2 requires both factory_address and router_address")
	}

	v3Partial := c.UniswapV3.FactoryAddress != "" || c.UniswapV3.QuoterAddress != "" || c.UniswapV3.SwapRouterAddress != ""
	if v3Partial && !c.UniswapV3.Enabled() {
		return fmt.Errorf("uniswap_v3 requires factory_address, quoter_address and swap_router_address")
	}

	if !c.UniswapV2.Enabled() && !c.UniswapV3.Enabled() {
		return fmt.Errorf("at least one venue must be configured")
	}

	for name, addr := range map[string]string{
		"uniswap_v2.factory_address":     c.UniswapV2.FactoryAddress,
		"uniswap_v2.router_address":      c.UniswapV2.RouterAddress,
		"uniswap_v3.factory_address":     c.UniswapV3.FactoryAddress,
		"uniswap_v3.quoter_address":      c.UniswapV3.QuoterAddress,
		"uniswap_v3.swap_router_address": c.UniswapV3.SwapRouterAddress,
		"uniswap_v3.aggregator_address":  c.UniswapV3.AggregatorAddress,
	} {
		if addr != "" && !common.IsHexAddress(addr) {
			return fmt.Errorf("invalid %s: %s", name, addr)
		}
	}

	return nil
}
