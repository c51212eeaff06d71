// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package limitorder

import (
	"encoding/binary"
	"math/big"

	"github.com/luxfi/geth/common"

	"github.com/luxfi/limitbook/contract"
	"github.com/luxfi/limitbook/dex"
)

// Calldata layouts. Mutating calls and tick-keyed views share a packed
// prefix: the serialized pool key, one direction byte, a big-endian
// int24 tick.
const (
	orderArgsLen  = dex.PoolKeyEncodedLen + 1 + 4 // bucket reference
	mutateArgsLen = orderArgsLen + 32             // bucket reference + amount word
	claimArgsLen  = 32                            // order identifier
	holderArgsLen = claimArgsLen + 32             // order identifier + padded holder
)

// BookPrecompile is the stateful precompile entrypoint for the order
// book (LP-9020).
type BookPrecompile struct {
	book *Book
}

// NewBookPrecompile wraps [book] as a precompiled contract.
func NewBookPrecompile(book *Book) *BookPrecompile {
	return &BookPrecompile{book: book}
}

// Run dispatches an order book call by selector. Mutating calls run
// under a state snapshot so any failure discards every tentative write,
// including writes made by nested fill trades.
func (p *BookPrecompile) Run(
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
	case SelectorPlace:
		return p.place(stateDB, caller, args, suppliedGas, readOnly)
	case SelectorCancel:
		return p.cancel(stateDB, caller, args, suppliedGas, readOnly)
	case SelectorRedeem:
		return p.redeem(stateDB, caller, args, suppliedGas, readOnly)

	case SelectorGetPending:
		return p.getPending(stateDB, args, suppliedGas)
	case SelectorGetClaimable:
		return p.getClaimable(stateDB, args, suppliedGas)
	case SelectorGetClaimBalance:
		return p.getClaimBalance(stateDB, args, suppliedGas)
	case SelectorGetClaimSupply:
		return p.getClaimSupply(stateDB, args, suppliedGas)
	case SelectorGetLastTick:
		return p.getLastTick(stateDB, args, suppliedGas)
	case SelectorGetOrderID:
		return p.getOrderID(args, suppliedGas)

	default:
		return nil, suppliedGas, contract.ErrInvalidInput
	}
}

// parseBucketRef decodes the shared (pool key, direction, tick) prefix.
func parseBucketRef(args []byte) (dex.PoolKey, bool, int32, error) {
	if len(args) < orderArgsLen {
		return dex.PoolKey{}, false, 0, contract.ErrInvalidInput
	}
	key, err := dex.PoolKeyFromBytes(args[:dex.PoolKeyEncodedLen])
	if err != nil || key.TickSpacing <= 0 {
		return dex.PoolKey{}, false, 0, contract.ErrInvalidInput
	}
	zeroForOne := args[dex.PoolKeyEncodedLen] == 1
	tick := int32(binary.BigEndian.Uint32(args[dex.PoolKeyEncodedLen+1 : orderArgsLen]))
	return key, zeroForOne, tick, nil
}

func parseAmount(args []byte) *big.Int {
	return new(big.Int).SetBytes(args[orderArgsLen:mutateArgsLen])
}

func tickWord(tick int32) []byte {
	var word common.Hash
	binary.BigEndian.PutUint32(word[28:32], uint32(tick))
	return word.Bytes()
}

func (p *BookPrecompile) place(
	stateDB contract.StateDB,
	caller common.Address,
	args []byte,
	suppliedGas uint64,
	readOnly bool,
) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, contract.ErrReadOnly
	}
	remainingGas, err := contract.DeductGas(suppliedGas, GasPlace)
	if err != nil {
		return nil, 0, err
	}
	if len(args) < mutateArgsLen {
		return nil, remainingGas, contract.ErrInvalidInput
	}
	key, zeroForOne, tick, err := parseBucketRef(args)
	if err != nil {
		return nil, remainingGas, err
	}

	snapshot := stateDB.Snapshot()
	normalized, err := p.book.Place(stateDB, caller, key, zeroForOne, tick, parseAmount(args))
	if err != nil {
		stateDB.RevertToSnapshot(snapshot)
		return nil, remainingGas, err
	}
	return tickWord(normalized), remainingGas, nil
}

func (p *BookPrecompile) cancel(
	stateDB contract.StateDB,
	caller common.Address,
	args []byte,
	suppliedGas uint64,
	readOnly bool,
) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, contract.ErrReadOnly
	}
	remainingGas, err := contract.DeductGas(suppliedGas, GasCancel)
	if err != nil {
		return nil, 0, err
	}
	if len(args) < mutateArgsLen {
		return nil, remainingGas, contract.ErrInvalidInput
	}
	key, zeroForOne, tick, err := parseBucketRef(args)
	if err != nil {
		return nil, remainingGas, err
	}

	snapshot := stateDB.Snapshot()
	if err := p.book.Cancel(stateDB, caller, key, zeroForOne, tick, parseAmount(args)); err != nil {
		stateDB.RevertToSnapshot(snapshot)
		return nil, remainingGas, err
	}
	return nil, remainingGas, nil
}

func (p *BookPrecompile) redeem(
	stateDB contract.StateDB,
	caller common.Address,
	args []byte,
	suppliedGas uint64,
	readOnly bool,
) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, contract.ErrReadOnly
	}
	remainingGas, err := contract.DeductGas(suppliedGas, GasRedeem)
	if err != nil {
		return nil, 0, err
	}
	if len(args) < mutateArgsLen {
		return nil, remainingGas, contract.ErrInvalidInput
	}
	key, zeroForOne, tick, err := parseBucketRef(args)
	if err != nil {
		return nil, remainingGas, err
	}

	snapshot := stateDB.Snapshot()
	payout, err := p.book.Redeem(stateDB, caller, key, zeroForOne, tick, parseAmount(args))
	if err != nil {
		stateDB.RevertToSnapshot(snapshot)
		return nil, remainingGas, err
	}
	return common.BigToHash(payout).Bytes(), remainingGas, nil
}

// View functions

func (p *BookPrecompile) getPending(
	stateDB contract.StateDB,
	args []byte,
	suppliedGas uint64,
) ([]byte, uint64, error) {
	remainingGas, err := contract.DeductGas(suppliedGas, GasView)
	if err != nil {
		return nil, 0, err
	}
	key, zeroForOne, tick, err := parseBucketRef(args)
	if err != nil {
		return nil, remainingGas, err
	}
	orderKey := OrderKey{
		PoolID:     key.ID(),
		Tick:       LowerUsableTick(tick, key.TickSpacing),
		ZeroForOne: zeroForOne,
	}
	pending := p.book.PendingVolume(stateDB, orderKey.ID())
	return common.BigToHash(pending).Bytes(), remainingGas, nil
}

func (p *BookPrecompile) getClaimable(
	stateDB contract.StateDB,
	args []byte,
	suppliedGas uint64,
) ([]byte, uint64, error) {
	remainingGas, err := contract.DeductGas(suppliedGas, GasView)
	if err != nil {
		return nil, 0, err
	}
	if len(args) < claimArgsLen {
		return nil, remainingGas, contract.ErrInvalidInput
	}
	var orderID [32]byte
	copy(orderID[:], args[:32])
	claimable := p.book.ClaimableOutput(stateDB, orderID)
	return common.BigToHash(claimable).Bytes(), remainingGas, nil
}

func (p *BookPrecompile) getClaimBalance(
	stateDB contract.StateDB,
	args []byte,
	suppliedGas uint64,
) ([]byte, uint64, error) {
	remainingGas, err := contract.DeductGas(suppliedGas, GasView)
	if err != nil {
		return nil, 0, err
	}
	if len(args) < holderArgsLen {
		return nil, remainingGas, contract.ErrInvalidInput
	}
	var orderID [32]byte
	copy(orderID[:], args[:32])
	holder := common.BytesToAddress(args[44:64])
	balance := p.book.Claims().BalanceOf(stateDB, orderID, holder)
	return common.BigToHash(balance).Bytes(), remainingGas, nil
}

func (p *BookPrecompile) getClaimSupply(
	stateDB contract.StateDB,
	args []byte,
	suppliedGas uint64,
) ([]byte, uint64, error) {
	remainingGas, err := contract.DeductGas(suppliedGas, GasView)
	if err != nil {
		return nil, 0, err
	}
	if len(args) < claimArgsLen {
		return nil, remainingGas, contract.ErrInvalidInput
	}
	var orderID [32]byte
	copy(orderID[:], args[:32])
	supply := p.book.ClaimSupply(stateDB, orderID)
	return common.BigToHash(supply).Bytes(), remainingGas, nil
}

// getLastTick returns a word whose first byte flags whether the pool
// has been observed at all and whose trailing 4 bytes carry the tick.
func (p *BookPrecompile) getLastTick(
	stateDB contract.StateDB,
	args []byte,
	suppliedGas uint64,
) ([]byte, uint64, error) {
	remainingGas, err := contract.DeductGas(suppliedGas, GasView)
	if err != nil {
		return nil, 0, err
	}
	if len(args) < dex.PoolKeyEncodedLen {
		return nil, remainingGas, contract.ErrInvalidInput
	}
	key, err := dex.PoolKeyFromBytes(args[:dex.PoolKeyEncodedLen])
	if err != nil {
		return nil, remainingGas, contract.ErrInvalidInput
	}
	tick, seen := p.book.LastTick(stateDB, key.ID())
	var word common.Hash
	if seen {
		word[0] = 1
		binary.BigEndian.PutUint32(word[28:32], uint32(tick))
	}
	return word.Bytes(), remainingGas, nil
}

// getOrderID exposes the identifier derivation as a pure view so anyone
// can compute a bucket's ID without side effects.
func (p *BookPrecompile) getOrderID(
	args []byte,
	suppliedGas uint64,
) ([]byte, uint64, error) {
	remainingGas, err := contract.DeductGas(suppliedGas, GasView)
	if err != nil {
		return nil, 0, err
	}
	key, zeroForOne, tick, err := parseBucketRef(args)
	if err != nil {
		return nil, remainingGas, err
	}
	orderID := OrderKey{
		PoolID:     key.ID(),
		Tick:       LowerUsableTick(tick, key.TickSpacing),
		ZeroForOne: zeroForOne,
	}.ID()
	return orderID[:], remainingGas, nil
}
