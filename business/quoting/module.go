// Package quoting wires the quoting bounded context: chain reader, venue
// adapters, calldata encoder and aggregator, built once at boot from
// configuration.
package quoting

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/fd1az/dex-aggregator/business/quoting/app"
	"github.com/fd1az/dex-aggregator/business/quoting/infra/ethereum"
	"github.com/fd1az/dex-aggregator/business/quoting/infra/routerabi"
	"github.com/fd1az/dex-aggregator/business/quoting/infra/uniswapv2"
	"github.com/fd1az/dex-aggregator/business/quoting/infra/uniswapv3"
	"github.com/fd1az/dex-aggregator/internal/config"
	"github.com/fd1az/dex-aggregator/internal/token"
)

// New constructs the aggregator with one adapter per configured venue. The
// adapter list is fixed at startup; there is no runtime registration.
func New(cfg *config.Config, client ethereum.ContractCaller, registry *token.Registry, log *zap.Logger) (*app.Aggregator, error) {
	reader, err := ethereum.NewReader(client, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create chain reader: %w", err)
	}

	encoder, err := routerabi.NewEncoder()
	if err != nil {
		return nil, fmt.Errorf("failed to create tx encoder: %w", err)
	}

	var adapters []app.VenueAdapter
	var routers app.Routers

	if cfg.UniswapV2.Enabled() {
		adapters = append(adapters, uniswapv2.NewAdapter(uniswapv2.Config{
			Name:    cfg.UniswapV2.Name,
			Factory: cfg.UniswapV2.FactoryAddressHex(),
			Router:  cfg.UniswapV2.RouterAddressHex(),
		}, reader, log))
		routers.V2 = cfg.UniswapV2.RouterAddressHex()
	}

	if cfg.UniswapV3.Enabled() {
		adapters = append(adapters, uniswapv3.NewAdapter(uniswapv3.Config{
			Name:    cfg.UniswapV3.Name,
			Factory: cfg.UniswapV3.FactoryAddressHex(),
			Quoter:  cfg.UniswapV3.QuoterAddressHex(),
		}, reader, log))
		routers.V3 = cfg.UniswapV3.SwapRouterAddressHex()
	}

	if len(adapters) == 0 {
		return nil, fmt.Errorf("no venue configured")
	}

	return app.NewAggregator(adapters, reader, registry, encoder, routers, log)
}
