// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package limitorder

import (
	"fmt"
	"math/big"

	"github.com/luxfi/geth/common"

	"github.com/luxfi/limitbook/contract"
	"github.com/luxfi/limitbook/dex"
)

// The book consumes two pool notifications: pool initialization seeds
// the last observed tick, and trade completion drives the fill scan.
// The before-trade notifications stay disabled at registration.

// HookCapabilities is the capability set the book registers under.
const HookCapabilities = dex.HookAfterInitialize | dex.HookAfterSwap

// BeforeInitialize is not consumed.
func (b *Book) BeforeInitialize(contract.StateDB, dex.PoolKey, *big.Int) error {
	return nil
}

// AfterInitialize records the pool's starting tick, normalized onto the
// spacing grid, as the baseline for the first crossed-tick scan.
func (b *Book) AfterInitialize(state contract.StateDB, key dex.PoolKey, tick int32) error {
	b.setLastTick(state, key.ID(), LowerUsableTick(tick, key.TickSpacing))
	return nil
}

// BeforeSwap is not consumed.
func (b *Book) BeforeSwap(contract.StateDB, common.Address, dex.PoolKey, dex.SwapParams) error {
	return nil
}

// AfterSwap runs the crossed-tick fill scan for the traded pool. Trades
// the scan itself feeds into the pool re-enter here; those find their
// pool marked in progress and return as an inert no-fill instead of
// recursing.
func (b *Book) AfterSwap(
	state contract.StateDB,
	sender common.Address,
	key dex.PoolKey,
	params dex.SwapParams,
	delta dex.BalanceDelta,
) error {
	poolID := key.ID()
	if b.inProgress[poolID] {
		return nil
	}
	b.inProgress[poolID] = true
	defer delete(b.inProgress, poolID)

	return b.runFillScan(state, key)
}

// runFillScan walks the grid ticks between the last observed tick and
// the current one, filling the first resting bucket it finds, then
// rescans from the newly realized price until a pass crosses nothing.
// Each fill strictly shrinks one bucket and buckets cannot refill
// while the scan holds the pool, so the loop terminates once the
// crossed buckets are spent.
func (b *Book) runFillScan(state contract.StateDB, key dex.PoolKey) error {
	poolID := key.ID()

	for {
		current, err := b.pm.CurrentTick(state, key)
		if err != nil {
			return err
		}
		currentLower := LowerUsableTick(current, key.TickSpacing)

		last, seen := b.LastTick(state, poolID)
		if !seen {
			// Pool predates the book's registration. Baseline it now.
			b.setLastTick(state, poolID, currentLower)
			return nil
		}
		if currentLower == last {
			return nil
		}

		filled, err := b.fillFirstCrossed(state, key, last, currentLower)
		if err != nil {
			return err
		}
		if !filled {
			b.setLastTick(state, poolID, currentLower)
			return nil
		}
	}
}

// fillFirstCrossed scans the grid ticks from [last] to [currentLower]
// inclusive and fills the first bucket holding volume. A rising price
// fills buckets selling currency0 into the rise; a falling price fills
// the opposite side. Reports whether the scan should rerun from the
// newly realized price.
func (b *Book) fillFirstCrossed(state contract.StateDB, key dex.PoolKey, last, currentLower int32) (bool, error) {
	up := currentLower > last
	step := key.TickSpacing
	if !up {
		step = -step
	}

	for tick := last; ; tick += step {
		if up && tick > currentLower {
			return false, nil
		}
		if !up && tick < currentLower {
			return false, nil
		}

		orderKey := OrderKey{PoolID: key.ID(), Tick: tick, ZeroForOne: up}
		orderID := orderKey.ID()
		pending := b.PendingVolume(state, orderID)
		if pending.Sign() == 0 {
			continue
		}

		return b.fillBucket(state, key, orderKey, orderID, pending)
	}
}

// fillBucket trades the bucket's pending volume through the pool,
// decrements the bucket by the input the pool actually consumed, and
// banks the realized output for claim holders. The nested trade runs
// with the extreme price bound; the bucket converts at whatever price
// the pool realizes. Reports whether the bucket fully drained.
func (b *Book) fillBucket(
	state contract.StateDB,
	key dex.PoolKey,
	orderKey OrderKey,
	orderID [32]byte,
	pending *big.Int,
) (bool, error) {
	delta, err := b.pm.Swap(state, BookAddr, key, dex.SwapParams{
		ZeroForOne:      orderKey.ZeroForOne,
		AmountSpecified: new(big.Int).Set(pending),
	})
	if err != nil {
		return false, fmt.Errorf("fill trade at tick %d: %w", orderKey.Tick, err)
	}

	// Both legs come from the trade's actual delta rather than any
	// estimate. The consumed input normally equals the full pending
	// volume; it falls short only when the pool's absolute price bound
	// cut the trade off.
	var consumed, output *big.Int
	if orderKey.ZeroForOne {
		consumed = delta.Amount0
		output = new(big.Int).Neg(delta.Amount1)
	} else {
		consumed = delta.Amount1
		output = new(big.Int).Neg(delta.Amount0)
	}
	if consumed.Sign() < 0 || output.Sign() < 0 {
		return false, fmt.Errorf("fill trade at tick %d realized inverted deltas", orderKey.Tick)
	}
	if consumed.Cmp(pending) > 0 {
		return false, fmt.Errorf("fill trade at tick %d consumed %s of %s escrowed", orderKey.Tick, consumed, pending)
	}
	if consumed.Sign() == 0 {
		// Price bound reached with nothing consumed. Leave the bucket
		// pending so the scan terminates instead of re-trading in place.
		return false, nil
	}

	b.setPendingVolume(state, orderID, new(big.Int).Sub(pending, consumed))
	b.setClaimableOutput(state, orderID, new(big.Int).Add(b.ClaimableOutput(state, orderID), output))

	b.log.Info("order filled",
		"order", fmt.Sprintf("%x", orderID[:8]),
		"tick", orderKey.Tick,
		"zeroForOne", orderKey.ZeroForOne,
		"volumeIn", consumed.String(),
		"amountOut", output.String(),
	)
	emitOrderFilled(state, orderID, consumed, output)

	// A short fill means the pool's absolute bound cut the trade off;
	// reporting no fill ends the scan rather than re-trading in place.
	// The remainder stays pending for a later crossing.
	return consumed.Cmp(pending) == 0, nil
}
