// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package limitorder implements resting limit orders layered on the DEX
// pool precompile. Depositors park volume at a normalized price tick;
// when market trades move the pool's price across that tick, the fill
// engine converts the resting volume through the pool and books the
// proceeds for pro-rata redemption by claim holders.
package limitorder

import (
	"encoding/binary"
	"errors"
	"math/big"

	"github.com/luxfi/geth/common"
	"github.com/zeebo/blake3"

	"github.com/luxfi/limitbook/dex"
)

// Precompile addresses (LP-9020, LP-9021).
const (
	LXBookAddress  = "0x0000000000000000000000000000000000009020"
	LXClaimAddress = "0x0000000000000000000000000000000000009021"
)

var (
	// BookAddr holds order principal and fill proceeds in custody.
	BookAddr = common.HexToAddress(LXBookAddress)

	// ClaimLedgerAddr is the storage domain of the claim token ledger.
	ClaimLedgerAddr = common.HexToAddress(LXClaimAddress)
)

// Gas costs for order book operations.
const (
	GasPlace  uint64 = 60_000
	GasCancel uint64 = 30_000
	GasRedeem uint64 = 30_000
	GasView   uint64 = 2_000
)

// Function selectors (first 4 bytes of keccak256 of function signature)
var (
	// Mutating functions
	SelectorPlace  = [4]byte{0xab, 0x2c, 0xdf, 0x31} // place(bytes,bool,int24,uint256)
	SelectorCancel = [4]byte{0x5f, 0x9a, 0x1e, 0x64} // cancel(bytes,bool,int24,uint256)
	SelectorRedeem = [4]byte{0xc4, 0x41, 0x77, 0x0b} // redeem(bytes,bool,int24,uint256)

	// View functions
	SelectorGetPending      = [4]byte{0x3d, 0x88, 0x2a, 0xe5} // getPending(bytes,bool,int24)
	SelectorGetClaimable    = [4]byte{0x90, 0x15, 0x6c, 0x2d} // getClaimable(bytes32)
	SelectorGetClaimBalance = [4]byte{0x12, 0xe7, 0x40, 0x9c} // getClaimBalance(bytes32,address)
	SelectorGetClaimSupply  = [4]byte{0x76, 0x03, 0xbd, 0xf8} // getClaimSupply(bytes32)
	SelectorGetLastTick     = [4]byte{0xe0, 0x5a, 0x31, 0x46} // getLastTick(bytes)
	SelectorGetOrderID      = [4]byte{0x28, 0xc9, 0x88, 0x7a} // getOrderId(bytes,bool,int24)
)

// Order book errors.
var (
	ErrZeroVolume       = errors.New("zero volume")
	ErrInvalidTick      = errors.New("tick out of range")
	ErrNothingToClaim   = errors.New("nothing to claim")
	ErrNotEnoughToClaim = errors.New("not enough to claim")
	ErrNotEnoughPending = errors.New("not enough pending volume")
)

// OrderKey identifies a resting order bucket. All deposits sharing a
// pool, normalized tick, and direction pool into one bucket and fill
// together.
type OrderKey struct {
	PoolID     [32]byte
	Tick       int32 // Normalized onto the pool's spacing grid
	ZeroForOne bool  // True sells currency0 for currency1
}

// ID derives the bucket identifier. It is a pure function of the key,
// so the same (pool, tick, direction) always yields the same ID and
// distinct keys collide only if blake3 does.
func (k OrderKey) ID() [32]byte {
	h := blake3.New()
	h.Write([]byte("ordr"))
	h.Write(k.PoolID[:])

	var tickBytes [4]byte
	binary.BigEndian.PutUint32(tickBytes[:], uint32(k.Tick))
	h.Write(tickBytes[:])

	if k.ZeroForOne {
		h.Write([]byte{1})
	} else {
		h.Write([]byte{0})
	}

	var id [32]byte
	copy(id[:], h.Sum(nil))
	return id
}

// InputCurrency returns the asset a depositor escrows when placing into
// this bucket.
func (k OrderKey) InputCurrency(key dex.PoolKey) dex.Currency {
	if k.ZeroForOne {
		return key.Currency0
	}
	return key.Currency1
}

// OutputCurrency returns the asset a fill produces for this bucket.
func (k OrderKey) OutputCurrency(key dex.PoolKey) dex.Currency {
	if k.ZeroForOne {
		return key.Currency1
	}
	return key.Currency0
}

// bigFromHash interprets a storage word as an unsigned integer.
func bigFromHash(h common.Hash) *big.Int {
	return new(big.Int).SetBytes(h[:])
}

// hashFromBig truncates an unsigned integer into a storage word.
// Callers keep values within 256 bits.
func hashFromBig(v *big.Int) common.Hash {
	return common.BigToHash(v)
}
