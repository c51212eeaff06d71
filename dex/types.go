// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package dex implements the Uniswap v4-style singleton pool manager this
// suite trades against. It owns pool price state, executes swaps that move
// the sqrt price and tick, squares custody balances for both asset legs, and
// dispatches trade notifications to registered hook contracts.
package dex

import (
	"encoding/binary"
	"errors"
	"math/big"

	"github.com/luxfi/geth/common"
	"github.com/zeebo/blake3"
)

// Precompile addresses for the pool components.
// LP-aligned format: 0x0000000000000000000000000000000000LPNUM
const (
	LXPoolAddress  = "0x0000000000000000000000000000000000009010" // LP-9010 LXPool (singleton AMM)
	LXHooksAddress = "0x0000000000000000000000000000000000009013" // LP-9013 LXHooks (hook registry)
)

// Gas costs for pool operations
const (
	GasPoolCreate     uint64 = 50_000 // Create new pool
	GasSwap           uint64 = 10_000 // Single swap
	GasHookCall       uint64 = 3_000  // Hook invocation
	GasSettlement     uint64 = 8_000  // Final settlement
	GasPoolLookup     uint64 = 100    // Pool state lookup
	GasNativeTransfer uint64 = 2_100  // Native transfer
)

// Pool fee tiers (basis points)
const (
	Fee001 uint24 = 100    // 0.01% - stablecoins
	Fee005 uint24 = 500    // 0.05% - stable pairs
	Fee030 uint24 = 3000   // 0.30% - standard
	Fee100 uint24 = 10000  // 1.00% - exotic pairs
	FeeMax uint24 = 100000 // 10% max fee
)

// Tick spacing for different fee tiers
const (
	TickSpacing001 int24 = 1
	TickSpacing005 int24 = 10
	TickSpacing030 int24 = 60
	TickSpacing100 int24 = 200
)

// Currency represents a token (native or ERC20)
// Address(0) represents the chain-native asset
type Currency struct {
	Address common.Address
}

// NativeCurrency is the chain-native asset (no wrapping needed)
var NativeCurrency = Currency{Address: common.Address{}}

// IsNative returns true if this currency is the chain-native asset
func (c Currency) IsNative() bool {
	return c.Address == common.Address{}
}

// ToBytes serializes currency for storage
func (c Currency) ToBytes() []byte {
	return c.Address.Bytes()
}

// CurrencyFromBytes deserializes currency from storage
func CurrencyFromBytes(data []byte) Currency {
	return Currency{Address: common.BytesToAddress(data)}
}

// PoolKey uniquely identifies a pool
// Sorted by currency address (currency0 < currency1)
type PoolKey struct {
	Currency0   Currency       // Lower address token
	Currency1   Currency       // Higher address token
	Fee         uint24         // Fee in basis points
	TickSpacing int24          // Tick spacing for usable price levels
	Hooks       common.Address // Hook contract address (zero = no hooks)
}

// ID computes the unique pool identifier
func (pk PoolKey) ID() [32]byte {
	h := blake3.New()
	h.Write(pk.Currency0.ToBytes())
	h.Write(pk.Currency1.ToBytes())

	var feeBytes [4]byte
	binary.BigEndian.PutUint32(feeBytes[:], uint32(pk.Fee))
	h.Write(feeBytes[1:]) // uint24

	var tickBytes [4]byte
	binary.BigEndian.PutUint32(tickBytes[:], uint32(pk.TickSpacing))
	h.Write(tickBytes[1:]) // int24

	h.Write(pk.Hooks.Bytes())

	var id [32]byte
	h.Digest().Read(id[:])
	return id
}

// PoolKeyEncodedLen is the length of a serialized pool key.
const PoolKeyEncodedLen = 20 + 20 + 4 + 4 + 20

// ToBytes serializes the pool key for calldata and storage.
func (pk PoolKey) ToBytes() []byte {
	data := make([]byte, PoolKeyEncodedLen)
	copy(data[0:20], pk.Currency0.ToBytes())
	copy(data[20:40], pk.Currency1.ToBytes())
	binary.BigEndian.PutUint32(data[40:44], uint32(pk.Fee))
	binary.BigEndian.PutUint32(data[44:48], uint32(pk.TickSpacing))
	copy(data[48:68], pk.Hooks.Bytes())
	return data
}

// PoolKeyFromBytes deserializes a pool key.
func PoolKeyFromBytes(data []byte) (PoolKey, error) {
	if len(data) < PoolKeyEncodedLen {
		return PoolKey{}, errors.New("invalid pool key data length")
	}
	pk := PoolKey{}
	pk.Currency0 = CurrencyFromBytes(data[0:20])
	pk.Currency1 = CurrencyFromBytes(data[20:40])
	pk.Fee = uint24(binary.BigEndian.Uint32(data[40:44]))
	pk.TickSpacing = int24(binary.BigEndian.Uint32(data[44:48]))
	pk.Hooks = common.BytesToAddress(data[48:68])
	return pk, nil
}

// BalanceDelta represents the net token changes realized by one trade.
// Positive = owed to the pool, Negative = owed to the trader.
type BalanceDelta struct {
	Amount0 *big.Int // Currency0 delta (positive = trader owes pool)
	Amount1 *big.Int // Currency1 delta (positive = trader owes pool)
}

// NewBalanceDelta creates a new balance delta
func NewBalanceDelta(amount0, amount1 *big.Int) BalanceDelta {
	return BalanceDelta{
		Amount0: new(big.Int).Set(amount0),
		Amount1: new(big.Int).Set(amount1),
	}
}

// ZeroBalanceDelta returns a zero balance delta
func ZeroBalanceDelta() BalanceDelta {
	return BalanceDelta{
		Amount0: big.NewInt(0),
		Amount1: big.NewInt(0),
	}
}

// Negate inverts the balance delta signs
func (bd BalanceDelta) Negate() BalanceDelta {
	return BalanceDelta{
		Amount0: new(big.Int).Neg(bd.Amount0),
		Amount1: new(big.Int).Neg(bd.Amount1),
	}
}

// IsZero returns true if both amounts are zero
func (bd BalanceDelta) IsZero() bool {
	return bd.Amount0.Sign() == 0 && bd.Amount1.Sign() == 0
}

// Pool represents the price state of a liquidity pool
type Pool struct {
	SqrtPriceX96 *big.Int // sqrt(price) * 2^96 (Q64.96)
	Tick         int24    // Current tick
	Liquidity    *big.Int // Aggregate liquidity (L)
}

// IsInitialized returns true if the pool has been initialized
func (p *Pool) IsInitialized() bool {
	return p.SqrtPriceX96 != nil && p.SqrtPriceX96.Sign() > 0
}

// NewPool creates a new uninitialized pool
func NewPool() *Pool {
	return &Pool{
		SqrtPriceX96: big.NewInt(0),
		Tick:         0,
		Liquidity:    big.NewInt(0),
	}
}

// SwapParams contains parameters for a swap
type SwapParams struct {
	ZeroForOne        bool     // true = sell currency0 for currency1
	AmountSpecified   *big.Int // Positive = exact input, Negative = exact output
	SqrtPriceLimitX96 *big.Int // Price limit (sqrt(price) * 2^96); nil = extreme bound
}

// Errors
var (
	ErrPoolNotInitialized     = errors.New("pool not initialized")
	ErrPoolAlreadyInitialized = errors.New("pool already initialized")
	ErrInvalidFee             = errors.New("invalid fee")
	ErrInvalidTickSpacing     = errors.New("invalid tick spacing")
	ErrCurrencyNotSorted      = errors.New("currencies not sorted")
	ErrInvalidSqrtPrice       = errors.New("invalid sqrt price")
	ErrInvalidPriceLimit      = errors.New("invalid price limit")
	ErrZeroSwapAmount         = errors.New("zero swap amount")
	ErrNoLiquidity            = errors.New("no liquidity in pool")
	ErrInsufficientBalance    = errors.New("insufficient token balance")
)

// Constants for math
var (
	Q96 = new(big.Int).Lsh(big.NewInt(1), 96)

	MinTick int24 = -887272
	MaxTick int24 = 887272

	MinSqrtRatio    = new(big.Int).SetUint64(4295128739)
	MaxSqrtRatio, _ = new(big.Int).SetString("1461446703485210103287273052203988822378723970342", 10)
)

// uint24 type alias for fees
type uint24 = uint32

// int24 type alias for ticks
type int24 = int32
