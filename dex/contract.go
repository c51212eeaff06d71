// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package dex

import (
	"encoding/binary"
	"math/big"

	"github.com/luxfi/geth/common"

	"github.com/luxfi/limitbook/contract"
)

// Function selectors (first 4 bytes of keccak256 of function signature)
var (
	SelectorInitialize   = [4]byte{0x1b, 0x3d, 0x84, 0x9e} // initialize(bytes,uint160)
	SelectorAddLiquidity = [4]byte{0x47, 0xe2, 0x0f, 0xb1} // addLiquidity(bytes,uint128)
	SelectorSwap         = [4]byte{0x84, 0xa5, 0x6e, 0x32} // swap(bytes,bool,int256,uint160)

	SelectorGetPool = [4]byte{0x06, 0x9c, 0xf2, 0xd4} // getPool(bytes)
	SelectorGetTick = [4]byte{0xf3, 0x0d, 0x37, 0xa2} // getTick(bytes)
)

// Calldata word offsets past the serialized pool key.
const (
	initArgsLen = PoolKeyEncodedLen + 32
	liqArgsLen  = PoolKeyEncodedLen + 32
	swapArgsLen = PoolKeyEncodedLen + 1 + 32 + 32
)

// PoolPrecompile is the stateful precompile entrypoint for the pool
// manager (LP-9010).
type PoolPrecompile struct {
	pm *PoolManager
}

// NewPoolPrecompile wraps [pm] as a precompiled contract.
func NewPoolPrecompile(pm *PoolManager) *PoolPrecompile {
	return &PoolPrecompile{pm: pm}
}

// PoolManager exposes the wrapped manager so sibling precompiles and
// hooks can wire against the same pool state.
func (p *PoolPrecompile) PoolManager() *PoolManager {
	return p.pm
}

// Run dispatches a pool call by selector. Mutating calls run under a
// state snapshot so a failed trade or hook reverts every tentative
// write.
func (p *PoolPrecompile) Run(
	accessibleState contract.AccessibleState,
	caller common.Address,
	addr common.Address,
	input []byte,
	suppliedGas uint64,
	readOnly bool,
) ([]byte, uint64, error) {
	stateDB := accessibleState.GetStateDB()

	if len(input) < 4 {
		return nil, suppliedGas, contract.ErrInvalidInput
	}

	var selector [4]byte
	copy(selector[:], input[:4])
	args := input[4:]

	switch selector {
	case SelectorInitialize:
		return p.initialize(stateDB, args, suppliedGas, readOnly)
	case SelectorAddLiquidity:
		return p.addLiquidity(stateDB, caller, args, suppliedGas, readOnly)
	case SelectorSwap:
		return p.swap(stateDB, caller, args, suppliedGas, readOnly)
	case SelectorGetPool:
		return p.getPool(stateDB, args, suppliedGas)
	case SelectorGetTick:
		return p.getTick(stateDB, args, suppliedGas)
	default:
		return nil, suppliedGas, contract.ErrInvalidInput
	}
}

func (p *PoolPrecompile) initialize(
	stateDB contract.StateDB,
	args []byte,
	suppliedGas uint64,
	readOnly bool,
) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, contract.ErrReadOnly
	}
	remainingGas, err := contract.DeductGas(suppliedGas, GasPoolCreate)
	if err != nil {
		return nil, 0, err
	}
	if len(args) < initArgsLen {
		return nil, remainingGas, contract.ErrInvalidInput
	}
	key, err := PoolKeyFromBytes(args[:PoolKeyEncodedLen])
	if err != nil {
		return nil, remainingGas, contract.ErrInvalidInput
	}
	sqrtPriceX96 := new(big.Int).SetBytes(args[PoolKeyEncodedLen:initArgsLen])

	snapshot := stateDB.Snapshot()
	tick, err := p.pm.Initialize(stateDB, key, sqrtPriceX96)
	if err != nil {
		stateDB.RevertToSnapshot(snapshot)
		return nil, remainingGas, err
	}

	var word common.Hash
	binary.BigEndian.PutUint32(word[28:32], uint32(tick))
	return word.Bytes(), remainingGas, nil
}

func (p *PoolPrecompile) addLiquidity(
	stateDB contract.StateDB,
	caller common.Address,
	args []byte,
	suppliedGas uint64,
	readOnly bool,
) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, contract.ErrReadOnly
	}
	remainingGas, err := contract.DeductGas(suppliedGas, GasSettlement)
	if err != nil {
		return nil, 0, err
	}
	if len(args) < liqArgsLen {
		return nil, remainingGas, contract.ErrInvalidInput
	}
	key, err := PoolKeyFromBytes(args[:PoolKeyEncodedLen])
	if err != nil {
		return nil, remainingGas, contract.ErrInvalidInput
	}
	liquidity := new(big.Int).SetBytes(args[PoolKeyEncodedLen:liqArgsLen])

	snapshot := stateDB.Snapshot()
	delta, err := p.pm.AddLiquidity(stateDB, caller, key, liquidity)
	if err != nil {
		stateDB.RevertToSnapshot(snapshot)
		return nil, remainingGas, err
	}
	return encodeBalanceDelta(delta), remainingGas, nil
}

func (p *PoolPrecompile) swap(
	stateDB contract.StateDB,
	caller common.Address,
	args []byte,
	suppliedGas uint64,
	readOnly bool,
) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, contract.ErrReadOnly
	}
	remainingGas, err := contract.DeductGas(suppliedGas, GasSwap+GasSettlement)
	if err != nil {
		return nil, 0, err
	}
	if len(args) < swapArgsLen {
		return nil, remainingGas, contract.ErrInvalidInput
	}
	key, err := PoolKeyFromBytes(args[:PoolKeyEncodedLen])
	if err != nil {
		return nil, remainingGas, contract.ErrInvalidInput
	}

	params := SwapParams{
		ZeroForOne:      args[PoolKeyEncodedLen] == 1,
		AmountSpecified: decodeSignedWord(args[PoolKeyEncodedLen+1 : PoolKeyEncodedLen+33]),
	}
	limit := new(big.Int).SetBytes(args[PoolKeyEncodedLen+33 : swapArgsLen])
	if limit.Sign() != 0 {
		params.SqrtPriceLimitX96 = limit
	}

	snapshot := stateDB.Snapshot()
	delta, err := p.pm.Swap(stateDB, caller, key, params)
	if err != nil {
		stateDB.RevertToSnapshot(snapshot)
		return nil, remainingGas, err
	}
	return encodeBalanceDelta(delta), remainingGas, nil
}

func (p *PoolPrecompile) getPool(
	stateDB contract.StateDB,
	args []byte,
	suppliedGas uint64,
) ([]byte, uint64, error) {
	remainingGas, err := contract.DeductGas(suppliedGas, GasPoolLookup)
	if err != nil {
		return nil, 0, err
	}
	if len(args) < PoolKeyEncodedLen {
		return nil, remainingGas, contract.ErrInvalidInput
	}
	key, err := PoolKeyFromBytes(args[:PoolKeyEncodedLen])
	if err != nil {
		return nil, remainingGas, contract.ErrInvalidInput
	}
	pool := p.pm.GetPool(stateDB, key.ID())

	ret := make([]byte, 96)
	pool.SqrtPriceX96.FillBytes(ret[0:32])
	binary.BigEndian.PutUint32(ret[60:64], uint32(pool.Tick))
	pool.Liquidity.FillBytes(ret[64:96])
	return ret, remainingGas, nil
}

func (p *PoolPrecompile) getTick(
	stateDB contract.StateDB,
	args []byte,
	suppliedGas uint64,
) ([]byte, uint64, error) {
	remainingGas, err := contract.DeductGas(suppliedGas, GasPoolLookup)
	if err != nil {
		return nil, 0, err
	}
	if len(args) < PoolKeyEncodedLen {
		return nil, remainingGas, contract.ErrInvalidInput
	}
	key, err := PoolKeyFromBytes(args[:PoolKeyEncodedLen])
	if err != nil {
		return nil, remainingGas, contract.ErrInvalidInput
	}
	tick, err := p.pm.CurrentTick(stateDB, key)
	if err != nil {
		return nil, remainingGas, err
	}

	var word common.Hash
	binary.BigEndian.PutUint32(word[28:32], uint32(tick))
	return word.Bytes(), remainingGas, nil
}

// Signed 256-bit words travel in two's complement form.

func decodeSignedWord(word []byte) *big.Int {
	v := new(big.Int).SetBytes(word)
	if len(word) == 32 && word[0]&0x80 != 0 {
		v.Sub(v, new(big.Int).Lsh(big.NewInt(1), 256))
	}
	return v
}

func encodeSignedWord(v *big.Int) []byte {
	if v.Sign() >= 0 {
		return common.BigToHash(v).Bytes()
	}
	wrapped := new(big.Int).Add(new(big.Int).Lsh(big.NewInt(1), 256), v)
	return common.BigToHash(wrapped).Bytes()
}

func encodeBalanceDelta(delta BalanceDelta) []byte {
	ret := make([]byte, 0, 64)
	ret = append(ret, encodeSignedWord(delta.Amount0)...)
	ret = append(ret, encodeSignedWord(delta.Amount1)...)
	return ret
}
