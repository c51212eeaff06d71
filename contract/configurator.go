// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package contract

import (
	"github.com/luxfi/limitbook/precompileconfig"
)

// ConfigurationBlockContext is the block context available while a precompile
// is being configured during an upgrade.
type ConfigurationBlockContext interface {
	Number() uint64
	Timestamp() uint64
}

// Configurator installs a precompile's upgrade config into state.
type Configurator interface {
	MakeConfig() precompileconfig.Config
	Configure(
		chainConfig precompileconfig.ChainConfig,
		cfg precompileconfig.Config,
		state StateDB,
		blockContext ConfigurationBlockContext,
	) error
}
