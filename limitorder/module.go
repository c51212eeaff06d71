// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package limitorder

import (
	"fmt"
	"math/big"

	"github.com/luxfi/geth/common"
	log "github.com/luxfi/log"

	"github.com/luxfi/limitbook/contract"
	"github.com/luxfi/limitbook/dex"
	"github.com/luxfi/limitbook/modules"
	"github.com/luxfi/limitbook/precompileconfig"
)

var _ contract.Configurator = (*configurator)(nil)
var _ contract.StatefulPrecompiledContract = (*BookPrecompile)(nil)
var _ dex.Hook = (*Book)(nil)

// ConfigKey is the key used in json config files to specify this precompile config.
const ConfigKey = "limitOrderConfig"

// BookHookAddr is the hook address the book registers under. Its
// leading permission bytes declare exactly the two notifications the
// book consumes; every other notification type is disabled.
var BookHookAddr = dex.HookAddress(HookCapabilities, 0x9020)

// DefaultBook is the singleton engine wired against the pool manager
// singleton.
var DefaultBook = NewBook(dex.Precompile.PoolManager(), log.Root())

// Precompile is the singleton order book precompile (LP-9020).
var Precompile = NewBookPrecompile(DefaultBook)

// Module is the precompile module for the order book.
var Module = modules.Module{
	ConfigKey:    ConfigKey,
	Address:      BookAddr,
	Contract:     Precompile,
	Configurator: &configurator{},
}

type configurator struct{}

func init() {
	if err := modules.RegisterModule(Module); err != nil {
		panic(err)
	}
	if err := dex.Precompile.PoolManager().Hooks().RegisterHook(BookHookAddr, HookCapabilities, DefaultBook); err != nil {
		panic(err)
	}
}

func (*configurator) MakeConfig() precompileconfig.Config {
	return new(Config)
}

// Configure creates the custody accounts and initializes any pools
// listed in the upgrade config, each wired to the book's hook address.
func (*configurator) Configure(
	chainConfig precompileconfig.ChainConfig,
	cfg precompileconfig.Config,
	state contract.StateDB,
	blockContext contract.ConfigurationBlockContext,
) error {
	config, ok := cfg.(*Config)
	if !ok {
		return fmt.Errorf("expected config type %T, got %T", &Config{}, cfg)
	}

	for _, addr := range []common.Address{BookAddr, ClaimLedgerAddr} {
		if !state.Exist(addr) {
			state.CreateAccount(addr)
		}
	}

	pm := dex.Precompile.PoolManager()
	for _, pool := range config.InitialPools {
		key := dex.PoolKey{
			Currency0:   dex.Currency{Address: pool.Currency0},
			Currency1:   dex.Currency{Address: pool.Currency1},
			Fee:         pool.Fee,
			TickSpacing: pool.TickSpacing,
			Hooks:       BookHookAddr,
		}
		sqrtPrice, ok := new(big.Int).SetString(pool.SqrtPriceX96, 10)
		if !ok {
			return fmt.Errorf("initial pool: bad sqrt price %q", pool.SqrtPriceX96)
		}
		if _, err := pm.Initialize(state, key, sqrtPrice); err != nil {
			return fmt.Errorf("initial pool: %w", err)
		}
	}
	return nil
}

// InitialPool describes a pool to create at activation time.
type InitialPool struct {
	Currency0    common.Address `json:"currency0"`
	Currency1    common.Address `json:"currency1"`
	Fee          uint32         `json:"fee"`
	TickSpacing  int32          `json:"tickSpacing"`
	SqrtPriceX96 string         `json:"sqrtPriceX96"`
}

// Config implements the precompileconfig.Config interface for the
// order book.
type Config struct {
	Upgrade      precompileconfig.Upgrade `json:"upgrade,omitempty"`
	InitialPools []InitialPool            `json:"initialPools,omitempty"`
}

func (c *Config) Key() string {
	return ConfigKey
}

func (c *Config) Timestamp() *uint64 {
	return c.Upgrade.Timestamp()
}

func (c *Config) IsDisabled() bool {
	return c.Upgrade.Disable
}

func (c *Config) Equal(cfg precompileconfig.Config) bool {
	other, ok := cfg.(*Config)
	if !ok {
		return false
	}
	if !c.Upgrade.Equal(&other.Upgrade) {
		return false
	}
	if len(c.InitialPools) != len(other.InitialPools) {
		return false
	}
	for i := range c.InitialPools {
		if c.InitialPools[i] != other.InitialPools[i] {
			return false
		}
	}
	return true
}

func (c *Config) Verify(precompileconfig.ChainConfig) error {
	for _, pool := range c.InitialPools {
		if pool.TickSpacing <= 0 {
			return fmt.Errorf("initial pool: tick spacing %d not positive", pool.TickSpacing)
		}
		if _, ok := new(big.Int).SetString(pool.SqrtPriceX96, 10); !ok {
			return fmt.Errorf("initial pool: bad sqrt price %q", pool.SqrtPriceX96)
		}
	}
	return nil
}
