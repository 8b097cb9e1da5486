package main

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/hedeqiang/web3-ethereum-defi/internal/config"
	"github.com/hedeqiang/web3-ethereum-defi/internal/guard"
	"github.com/hedeqiang/web3-ethereum-defi/internal/helpers"
)

// buildGuard constructs a guard and seeds every whitelist from the
// config file. Each seed is audited with a note naming its origin so
// the trail starts from a reconstructible state.
func buildGuard(cfg *config.Config, sink guard.AuditSink, reader guard.BalanceReader) (*guard.Guard, error) {
	custody := common.Address{}
	if cfg.CUSTODY_WALLET != "" {
		addr, err := helpers.ValidateAddress(cfg.CUSTODY_WALLET)
		if err != nil {
			return nil, fmt.Errorf("CUSTODY_WALLET: %w", err)
		}
		custody = addr
	}

	g := guard.New(sink, reader, custody)
	const note = "seeded from config"

	seedList := func(name string, items []string, apply func(common.Address, string) error) error {
		for _, raw := range items {
			addr, err := helpers.ValidateAddress(raw)
			if err != nil {
				return fmt.Errorf("%s entry %q: %w", name, raw, err)
			}
			if err := apply(addr, note); err != nil {
				return fmt.Errorf("%s entry %q: %w", name, raw, err)
			}
		}
		return nil
	}

	if err := seedList("ALLOWED_SENDERS", cfg.ALLOWED_SENDERS, g.WhitelistSender); err != nil {
		return nil, err
	}
	if err := seedList("ALLOWED_ASSETS", cfg.ALLOWED_ASSETS, g.WhitelistAsset); err != nil {
		return nil, err
	}
	if err := seedList("ALLOWED_RECEIVERS", cfg.ALLOWED_RECEIVERS, g.WhitelistReceiver); err != nil {
		return nil, err
	}
	if err := seedList("UNISWAP_V2_ROUTERS", cfg.UNISWAP_V2_ROUTERS, g.WhitelistUniswapV2Router); err != nil {
		return nil, err
	}
	if err := seedList("UNISWAP_V3_ROUTERS", cfg.UNISWAP_V3_ROUTERS, g.WhitelistUniswapV3Router); err != nil {
		return nil, err
	}
	if err := seedList("AGGREGATORS", cfg.AGGREGATORS, g.WhitelistAggregator); err != nil {
		return nil, err
	}
	if err := seedList("ERC4626_VAULTS", cfg.ERC4626_VAULTS, g.WhitelistERC4626Vault); err != nil {
		return nil, err
	}
	if err := seedList("COW_SETTLEMENTS", cfg.COW_SETTLEMENTS, g.WhitelistCowSettlement); err != nil {
		return nil, err
	}

	for _, gr := range cfg.GMX_ROUTERS {
		router, err := helpers.ValidateAddress(gr.ROUTER)
		if err != nil {
			return nil, fmt.Errorf("GMX_ROUTERS router %q: %w", gr.ROUTER, err)
		}
		if err := g.WhitelistGmxRouter(router, note); err != nil {
			return nil, err
		}
		if gr.ORDER_VAULT != "" {
			vault, err := helpers.ValidateAddress(gr.ORDER_VAULT)
			if err != nil {
				return nil, fmt.Errorf("GMX_ROUTERS order vault %q: %w", gr.ORDER_VAULT, err)
			}
			if err := g.ConfigureGmxOrderVault(router, vault, note); err != nil {
				return nil, err
			}
		}
	}

	if cfg.COREWRITER_ADDRESS != "" {
		addr, err := helpers.ValidateAddress(cfg.COREWRITER_ADDRESS)
		if err != nil {
			return nil, fmt.Errorf("COREWRITER_ADDRESS: %w", err)
		}
		if err := g.WhitelistCoreWriter(addr, note); err != nil {
			return nil, err
		}
	}

	for _, raw := range cfg.CALL_SITES {
		target, sel, err := helpers.ParseCallSite(raw)
		if err != nil {
			return nil, fmt.Errorf("CALL_SITES entry %q: %w", raw, err)
		}
		if err := g.SetCallSite(guard.CallSite{Target: target, Selector: sel}, true, note); err != nil {
			return nil, err
		}
	}

	return g, nil
}
