// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package dex

import (
	"encoding/binary"
	"fmt"
	"math/big"

	log "github.com/luxfi/log"
	"github.com/zeebo/blake3"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/limitbook/contract"
)

// PoolManagerAddr is the LXPool singleton address (LP-9010).
var PoolManagerAddr = common.HexToAddress(LXPoolAddress)

// Storage key prefixes for pool manager state
var (
	poolStatePrefix     = []byte("pool")
	poolLiquidityPrefix = []byte("pliq")
)

// PoolManager implements the singleton pool manager. All pools live in this
// single contract. Pool state resides entirely in StateDB storage so that a
// snapshot/revert of the StateDB is a full rollback; there is no write-back
// cache.
type PoolManager struct {
	hooks *HookRegistry
	log   log.Logger
}

// NewPoolManager creates a new pool manager instance
func NewPoolManager(logger log.Logger) *PoolManager {
	return &PoolManager{
		hooks: NewHookRegistry(),
		log:   logger,
	}
}

// Hooks returns the hook registry used for notification registration.
func (pm *PoolManager) Hooks() *HookRegistry {
	return pm.hooks
}

// makeStorageKey creates a storage key from prefix and identifier
func makeStorageKey(prefix []byte, id []byte) common.Hash {
	h := blake3.New()
	h.Write(prefix)
	h.Write(id)
	var key common.Hash
	h.Digest().Read(key[:])
	return key
}

// =========================================================================
// Pool state
// =========================================================================

// GetPool retrieves pool state from storage.
func (pm *PoolManager) GetPool(state contract.StateDB, poolId [32]byte) *Pool {
	pool := NewPool()

	sqrtPriceKey := makeStorageKey(poolStatePrefix, append(poolId[:], []byte("sqrtPrice")...))
	sqrtPriceHash := state.GetState(PoolManagerAddr, sqrtPriceKey)
	if sqrtPriceHash != (common.Hash{}) {
		pool.SqrtPriceX96 = new(big.Int).SetBytes(sqrtPriceHash[:])
	}

	tickKey := makeStorageKey(poolStatePrefix, append(poolId[:], []byte("tick")...))
	tickHash := state.GetState(PoolManagerAddr, tickKey)
	if tickHash != (common.Hash{}) {
		pool.Tick = int24(binary.BigEndian.Uint32(tickHash[28:32]))
	}

	liqKey := makeStorageKey(poolLiquidityPrefix, poolId[:])
	liqHash := state.GetState(PoolManagerAddr, liqKey)
	if liqHash != (common.Hash{}) {
		pool.Liquidity = new(big.Int).SetBytes(liqHash[:])
	}

	return pool
}

// setPool saves pool state to storage
func (pm *PoolManager) setPool(state contract.StateDB, poolId [32]byte, pool *Pool) {
	sqrtPriceKey := makeStorageKey(poolStatePrefix, append(poolId[:], []byte("sqrtPrice")...))
	var sqrtPriceHash common.Hash
	pool.SqrtPriceX96.FillBytes(sqrtPriceHash[:])
	state.SetState(PoolManagerAddr, sqrtPriceKey, sqrtPriceHash)

	tickKey := makeStorageKey(poolStatePrefix, append(poolId[:], []byte("tick")...))
	var tickHash common.Hash
	binary.BigEndian.PutUint32(tickHash[28:32], uint32(pool.Tick))
	state.SetState(PoolManagerAddr, tickKey, tickHash)

	liqKey := makeStorageKey(poolLiquidityPrefix, poolId[:])
	var liqHash common.Hash
	pool.Liquidity.FillBytes(liqHash[:])
	state.SetState(PoolManagerAddr, liqKey, liqHash)
}

// CurrentTick returns the pool's current price tick.
func (pm *PoolManager) CurrentTick(state contract.StateDB, key PoolKey) (int24, error) {
	pool := pm.GetPool(state, key.ID())
	if !pool.IsInitialized() {
		return 0, ErrPoolNotInitialized
	}
	return pool.Tick, nil
}

// =========================================================================
// Pool initialization
// =========================================================================

// Initialize creates and initializes a new pool.
// Returns the tick corresponding to the starting price.
func (pm *PoolManager) Initialize(
	state contract.StateDB,
	key PoolKey,
	sqrtPriceX96 *big.Int,
) (int24, error) {
	if !areCurrenciesSorted(key.Currency0, key.Currency1) {
		return 0, ErrCurrencyNotSorted
	}
	if key.Fee > FeeMax {
		return 0, ErrInvalidFee
	}
	if key.TickSpacing <= 0 {
		return 0, ErrInvalidTickSpacing
	}
	if sqrtPriceX96 == nil || sqrtPriceX96.Cmp(MinSqrtRatio) < 0 || sqrtPriceX96.Cmp(MaxSqrtRatio) > 0 {
		return 0, ErrInvalidSqrtPrice
	}

	poolId := key.ID()
	pool := pm.GetPool(state, poolId)
	if pool.IsInitialized() {
		return 0, ErrPoolAlreadyInitialized
	}

	tick := TickAtSqrtPrice(sqrtPriceX96)

	if pm.hooks.IsHookEnabled(key.Hooks, HookBeforeInitialize) {
		hook, _ := pm.hooks.Get(key.Hooks)
		if err := hook.BeforeInitialize(state, key, sqrtPriceX96); err != nil {
			return 0, fmt.Errorf("beforeInitialize hook: %w", err)
		}
	}

	pool.SqrtPriceX96 = new(big.Int).Set(sqrtPriceX96)
	pool.Tick = tick
	pool.Liquidity = big.NewInt(0)
	pm.setPool(state, poolId, pool)

	if pm.hooks.IsHookEnabled(key.Hooks, HookAfterInitialize) {
		hook, _ := pm.hooks.Get(key.Hooks)
		if err := hook.AfterInitialize(state, key, tick); err != nil {
			return 0, fmt.Errorf("afterInitialize hook: %w", err)
		}
	}

	pm.log.Debug("pool initialized", "pool", fmt.Sprintf("%x", poolId[:8]), "tick", tick)
	return tick, nil
}

// AddLiquidity increases the pool's aggregate liquidity, pulling both asset
// legs from [provider] into pool custody. The funding amounts correspond to
// reserves x = L*2^96/sqrtP and y = L*sqrtP/2^96 so that sqrt(x*y) = L.
func (pm *PoolManager) AddLiquidity(
	state contract.StateDB,
	provider common.Address,
	key PoolKey,
	liquidityDelta *big.Int,
) (BalanceDelta, error) {
	if liquidityDelta == nil || liquidityDelta.Sign() <= 0 {
		return ZeroBalanceDelta(), fmt.Errorf("%w: liquidity delta must be positive", contract.ErrInvalidInput)
	}

	poolId := key.ID()
	pool := pm.GetPool(state, poolId)
	if !pool.IsInitialized() {
		return ZeroBalanceDelta(), ErrPoolNotInitialized
	}

	amount0 := new(big.Int).Div(new(big.Int).Mul(liquidityDelta, Q96), pool.SqrtPriceX96)
	amount1 := new(big.Int).Div(new(big.Int).Mul(liquidityDelta, pool.SqrtPriceX96), Q96)

	if err := TransferCurrency(state, key.Currency0, provider, PoolManagerAddr, amount0); err != nil {
		return ZeroBalanceDelta(), err
	}
	if err := TransferCurrency(state, key.Currency1, provider, PoolManagerAddr, amount1); err != nil {
		return ZeroBalanceDelta(), err
	}

	pool.Liquidity = new(big.Int).Add(pool.Liquidity, liquidityDelta)
	pm.setPool(state, poolId, pool)

	return NewBalanceDelta(amount0, amount1), nil
}

// =========================================================================
// Swap execution
// =========================================================================

// Swap executes a trade against the pool, moving the sqrt price and tick,
// settling both asset legs against custody, and dispatching the
// trade-completed notification with the realized deltas.
func (pm *PoolManager) Swap(
	state contract.StateDB,
	sender common.Address,
	key PoolKey,
	params SwapParams,
) (BalanceDelta, error) {
	if params.AmountSpecified == nil || params.AmountSpecified.Sign() == 0 {
		return ZeroBalanceDelta(), ErrZeroSwapAmount
	}

	poolId := key.ID()
	pool := pm.GetPool(state, poolId)
	if !pool.IsInitialized() {
		return ZeroBalanceDelta(), ErrPoolNotInitialized
	}
	if pool.Liquidity.Sign() == 0 {
		return ZeroBalanceDelta(), ErrNoLiquidity
	}

	if pm.hooks.IsHookEnabled(key.Hooks, HookBeforeSwap) {
		hook, _ := pm.hooks.Get(key.Hooks)
		if err := hook.BeforeSwap(state, sender, key, params); err != nil {
			return ZeroBalanceDelta(), fmt.Errorf("beforeSwap hook: %w", err)
		}
	}

	newSqrtPrice, delta, err := computeSwapStep(pool.SqrtPriceX96, pool.Liquidity, params)
	if err != nil {
		return ZeroBalanceDelta(), err
	}

	pool.SqrtPriceX96 = newSqrtPrice
	pool.Tick = TickAtSqrtPrice(newSqrtPrice)
	pm.setPool(state, poolId, pool)

	// Square custody: positive delta is owed to the pool, negative to the
	// trader.
	if err := pm.settleLeg(state, sender, key.Currency0, delta.Amount0); err != nil {
		return ZeroBalanceDelta(), err
	}
	if err := pm.settleLeg(state, sender, key.Currency1, delta.Amount1); err != nil {
		return ZeroBalanceDelta(), err
	}

	pm.log.Debug("swap executed",
		"pool", fmt.Sprintf("%x", poolId[:8]),
		"sender", sender.Hex(),
		"zeroForOne", params.ZeroForOne,
		"tick", pool.Tick,
	)

	if pm.hooks.IsHookEnabled(key.Hooks, HookAfterSwap) {
		hook, _ := pm.hooks.Get(key.Hooks)
		if err := hook.AfterSwap(state, sender, key, params, delta); err != nil {
			return ZeroBalanceDelta(), fmt.Errorf("afterSwap hook: %w", err)
		}
	}

	return delta, nil
}

// settleLeg realizes one currency leg of a trade: Settle pulls what the
// trader owes into custody, Take pays out what the pool owes.
func (pm *PoolManager) settleLeg(state contract.StateDB, trader common.Address, c Currency, amount *big.Int) error {
	switch amount.Sign() {
	case 1:
		return pm.Settle(state, trader, c, amount)
	case -1:
		return pm.Take(state, c, trader, new(big.Int).Neg(amount))
	}
	return nil
}

// Settle pulls [amount] of [c] from [payer] into pool custody.
func (pm *PoolManager) Settle(state contract.StateDB, payer common.Address, c Currency, amount *big.Int) error {
	return TransferCurrency(state, c, payer, PoolManagerAddr, amount)
}

// Take pays [amount] of [c] out of pool custody to [to].
func (pm *PoolManager) Take(state contract.StateDB, c Currency, to common.Address, amount *big.Int) error {
	return TransferCurrency(state, c, PoolManagerAddr, to, amount)
}

// =========================================================================
// Swap math (constant aggregate liquidity)
// =========================================================================

// computeSwapStep derives the post-trade sqrt price from the specified
// amount, clamps it at the price limit, and returns the realized deltas
// (positive = trader owes pool). The price target rounds against the
// direction of movement, the input leg rounds up and the output leg
// rounds down, all in the pool's favor. An exact-input trade that does
// not hit the limit consumes its specified amount exactly, never more.
func computeSwapStep(sqrtPrice, liquidity *big.Int, params SwapParams) (*big.Int, BalanceDelta, error) {
	exactInput := params.AmountSpecified.Sign() > 0
	amountAbs := new(big.Int).Abs(params.AmountSpecified)

	limit := params.SqrtPriceLimitX96
	if params.ZeroForOne {
		if limit == nil {
			limit = new(big.Int).Add(MinSqrtRatio, big.NewInt(1))
		}
		if limit.Cmp(sqrtPrice) >= 0 || limit.Cmp(MinSqrtRatio) < 0 {
			return nil, ZeroBalanceDelta(), ErrInvalidPriceLimit
		}
	} else {
		if limit == nil {
			limit = new(big.Int).Sub(MaxSqrtRatio, big.NewInt(1))
		}
		if limit.Cmp(sqrtPrice) <= 0 || limit.Cmp(MaxSqrtRatio) > 0 {
			return nil, ZeroBalanceDelta(), ErrInvalidPriceLimit
		}
	}

	lQ96 := new(big.Int).Mul(liquidity, Q96)
	var target *big.Int
	clamped := false

	if params.ZeroForOne {
		if exactInput {
			// sqrtP' = L*sqrtP*Q96 / (L*Q96 + dx*sqrtP), rounded up so the
			// price never moves further than the specified input pays for.
			num := new(big.Int).Mul(lQ96, sqrtPrice)
			den := new(big.Int).Add(lQ96, new(big.Int).Mul(amountAbs, sqrtPrice))
			target = ceilDiv(num, den)
		} else {
			// sqrtP' = sqrtP - dy*Q96/L; the floored quotient under-moves,
			// so the delivered output never exceeds the requested amount.
			dy := new(big.Int).Div(new(big.Int).Mul(amountAbs, Q96), liquidity)
			target = new(big.Int).Sub(sqrtPrice, dy)
			if target.Sign() <= 0 {
				return nil, ZeroBalanceDelta(), ErrNoLiquidity
			}
		}
		if target.Cmp(limit) < 0 {
			target = new(big.Int).Set(limit)
			clamped = true
		}
	} else {
		if exactInput {
			// sqrtP' = sqrtP + dy*Q96/L; flooring dy under-moves, and the
			// full specified input is still charged below.
			dy := new(big.Int).Div(new(big.Int).Mul(amountAbs, Q96), liquidity)
			target = new(big.Int).Add(sqrtPrice, dy)
		} else {
			// sqrtP' = L*Q96*sqrtP / (L*Q96 - dx*sqrtP), floored toward the
			// current price so the delivered output never overshoots.
			den := new(big.Int).Sub(lQ96, new(big.Int).Mul(amountAbs, sqrtPrice))
			if den.Sign() <= 0 {
				return nil, ZeroBalanceDelta(), ErrNoLiquidity
			}
			num := new(big.Int).Mul(lQ96, sqrtPrice)
			target = num.Div(num, den)
		}
		if target.Cmp(limit) > 0 {
			target = new(big.Int).Set(limit)
			clamped = true
		}
	}

	// Realized amounts from the price move:
	//   |d0| = L*Q96*|sqrtP - sqrtP'| / (sqrtP*sqrtP')
	//   |d1| = L*|sqrtP - sqrtP'| / Q96
	// An unclamped exact-input trade consumes amountAbs by definition;
	// recomputing its input leg from the rounded target would let the
	// charge drift past the amount the trader specified.
	diffAbs := new(big.Int).Abs(new(big.Int).Sub(sqrtPrice, target))
	num0 := new(big.Int).Mul(lQ96, diffAbs)
	den0 := new(big.Int).Mul(sqrtPrice, target)
	num1 := new(big.Int).Mul(liquidity, diffAbs)

	var amount0, amount1 *big.Int
	if params.ZeroForOne {
		// token0 in, token1 out
		var in *big.Int
		if exactInput && !clamped {
			in = new(big.Int).Set(amountAbs)
		} else {
			in = ceilDiv(num0, den0)
			if exactInput && in.Cmp(amountAbs) > 0 {
				in = new(big.Int).Set(amountAbs)
			}
		}
		out := new(big.Int).Div(num1, Q96)
		amount0, amount1 = in, new(big.Int).Neg(out)
	} else {
		// token1 in, token0 out
		var in *big.Int
		if exactInput && !clamped {
			in = new(big.Int).Set(amountAbs)
		} else {
			in = ceilDiv(num1, Q96)
			if exactInput && in.Cmp(amountAbs) > 0 {
				in = new(big.Int).Set(amountAbs)
			}
		}
		out := new(big.Int).Div(num0, den0)
		amount0, amount1 = new(big.Int).Neg(out), in
	}

	return target, BalanceDelta{Amount0: amount0, Amount1: amount1}, nil
}

// ceilDiv divides nonnegative num by positive den, rounding up.
func ceilDiv(num, den *big.Int) *big.Int {
	q, r := new(big.Int).QuoRem(num, den, new(big.Int))
	if r.Sign() != 0 {
		q.Add(q, big.NewInt(1))
	}
	return q
}

// areCurrenciesSorted returns true if currencies are properly sorted.
// Uses bytes comparison for correct address ordering.
func areCurrenciesSorted(c0, c1 Currency) bool {
	for i := range c0.Address {
		if c0.Address[i] != c1.Address[i] {
			return c0.Address[i] < c1.Address[i]
		}
	}
	return false
}
