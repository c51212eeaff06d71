// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package dex

import (
	"fmt"

	"github.com/luxfi/geth/common"
	log "github.com/luxfi/log"

	"github.com/luxfi/limitbook/contract"
	"github.com/luxfi/limitbook/modules"
	"github.com/luxfi/limitbook/precompileconfig"
)

var _ contract.Configurator = (*configurator)(nil)
var _ contract.StatefulPrecompiledContract = (*PoolPrecompile)(nil)

// ConfigKey is the key used in json config files to specify this precompile config.
const ConfigKey = "poolManagerConfig"

// Precompile is the singleton pool manager instance (LP-9010).
var Precompile = NewPoolPrecompile(NewPoolManager(log.Root()))

// Module is the precompile module for the pool manager.
var Module = modules.Module{
	ConfigKey:    ConfigKey,
	Address:      common.HexToAddress(LXPoolAddress),
	Contract:     Precompile,
	Configurator: &configurator{},
}

type configurator struct{}

func init() {
	if err := modules.RegisterModule(Module); err != nil {
		panic(err)
	}
}

func (*configurator) MakeConfig() precompileconfig.Config {
	return new(Config)
}

func (*configurator) Configure(
	chainConfig precompileconfig.ChainConfig,
	cfg precompileconfig.Config,
	state contract.StateDB,
	blockContext contract.ConfigurationBlockContext,
) error {
	if _, ok := cfg.(*Config); !ok {
		return fmt.Errorf("expected config type %T, got %T", &Config{}, cfg)
	}
	if !state.Exist(PoolManagerAddr) {
		state.CreateAccount(PoolManagerAddr)
	}
	return nil
}

// Config implements the precompileconfig.Config interface for the pool
// manager.
type Config struct {
	Upgrade precompileconfig.Upgrade `json:"upgrade,omitempty"`
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
	return c.Upgrade.Equal(&other.Upgrade)
}

func (c *Config) Verify(precompileconfig.ChainConfig) error {
	return nil
}
