// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package contract defines the interfaces shared by all stateful precompiles
// in this suite: the EVM state surface they mutate, the accessible execution
// context, and the contract entrypoint itself.
package contract

import (
	"errors"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/core/tracing"
	ethtypes "github.com/luxfi/geth/core/types"
)

// Shared precompile errors.
var (
	ErrOutOfGas     = errors.New("out of gas")
	ErrReadOnly     = errors.New("cannot write in read-only mode")
	ErrInvalidInput = errors.New("invalid input")
)

// StateDB is the subset of EVM state a stateful precompile may read and write.
type StateDB interface {
	GetState(addr common.Address, key common.Hash) common.Hash
	SetState(addr common.Address, key common.Hash, value common.Hash) common.Hash

	GetBalance(addr common.Address) *uint256.Int
	AddBalance(addr common.Address, amount *uint256.Int, reason tracing.BalanceChangeReason) uint256.Int
	SubBalance(addr common.Address, amount *uint256.Int, reason tracing.BalanceChangeReason) uint256.Int

	Exist(addr common.Address) bool
	CreateAccount(addr common.Address)

	AddLog(log *ethtypes.Log)

	// Snapshot and RevertToSnapshot give precompiles all-or-nothing semantics:
	// any failure mid-operation reverts every tentative write.
	Snapshot() int
	RevertToSnapshot(int)
}

// BlockContext provides block-level information to precompiles.
type BlockContext interface {
	Number() uint64
	Timestamp() uint64
}

// AccessibleState is the execution context handed to a precompile Run.
type AccessibleState interface {
	GetStateDB() StateDB
	GetBlockContext() BlockContext
}

// StatefulPrecompiledContract is the interface every precompile in this
// suite implements.
type StatefulPrecompiledContract interface {
	Run(
		accessibleState AccessibleState,
		caller common.Address,
		addr common.Address,
		input []byte,
		suppliedGas uint64,
		readOnly bool,
	) (ret []byte, remainingGas uint64, err error)
}

// DeductGas checks that [suppliedGas] covers [requiredGas] and returns the
// remainder.
func DeductGas(suppliedGas uint64, requiredGas uint64) (uint64, error) {
	if suppliedGas < requiredGas {
		return 0, ErrOutOfGas
	}
	return suppliedGas - requiredGas, nil
}
