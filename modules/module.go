// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package modules

import (
	"bytes"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/limitbook/contract"
)

// Module wires a stateful precompile to its address and upgrade config.
type Module struct {
	// ConfigKey is the key used in json config files to specify this
	// precompile config.
	ConfigKey string
	// Address is where the precompile is accessible.
	Address common.Address
	// Contract is the precompile implementation.
	Contract contract.StatefulPrecompiledContract
	// Configurator installs the precompile's upgrade config.
	Configurator contract.Configurator
}

type moduleArray []Module

func (m moduleArray) Len() int      { return len(m) }
func (m moduleArray) Swap(i, j int) { m[i], m[j] = m[j], m[i] }
func (m moduleArray) Less(i, j int) bool {
	return bytes.Compare(m[i].Address.Bytes(), m[j].Address.Bytes()) < 0
}
