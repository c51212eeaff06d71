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

// Place deposits [volume] of the input asset at [rawTick], normalized
// down onto the pool's spacing grid. The deposit joins the bucket for
// (pool, normalized tick, direction) and the caller is minted claim
// units equal to the deposited volume. Returns the normalized tick.
func (b *Book) Place(
	state contract.StateDB,
	caller common.Address,
	key dex.PoolKey,
	zeroForOne bool,
	rawTick int32,
	volume *big.Int,
) (int32, error) {
	if volume == nil || volume.Sign() <= 0 {
		return 0, ErrZeroVolume
	}
	// The grid tick is what the bucket lives at, so range-check the
	// normalized value too; a raw tick near the lower bound can
	// normalize below it.
	tick := LowerUsableTick(rawTick, key.TickSpacing)
	if !validTick(rawTick) || !validTick(tick) {
		return 0, fmt.Errorf("%w: %d", ErrInvalidTick, rawTick)
	}
	poolID := key.ID()
	if !b.pm.GetPool(state, poolID).IsInitialized() {
		return 0, dex.ErrPoolNotInitialized
	}

	orderKey := OrderKey{PoolID: poolID, Tick: tick, ZeroForOne: zeroForOne}
	orderID := orderKey.ID()

	// Escrow the principal before touching the books.
	if err := dex.TransferCurrency(state, orderKey.InputCurrency(key), caller, BookAddr, volume); err != nil {
		return 0, err
	}

	pending := b.PendingVolume(state, orderID)
	b.setPendingVolume(state, orderID, new(big.Int).Add(pending, volume))

	supply := b.ClaimSupply(state, orderID)
	b.setClaimSupply(state, orderID, new(big.Int).Add(supply, volume))
	b.claims.Mint(state, orderID, caller, volume)

	b.log.Debug("order placed",
		"order", fmt.Sprintf("%x", orderID[:8]),
		"owner", caller.Hex(),
		"tick", tick,
		"zeroForOne", zeroForOne,
		"volume", volume.String(),
	)
	emitOrderPlaced(state, orderID, caller, volume)

	return tick, nil
}

// Cancel withdraws [amount] of the caller's still-pending principal
// from the bucket at [rawTick]. Claims on a partially filled bucket can
// only be canceled against the unfilled remainder; the filled portion
// is redeemed instead.
func (b *Book) Cancel(
	state contract.StateDB,
	caller common.Address,
	key dex.PoolKey,
	zeroForOne bool,
	rawTick int32,
	amount *big.Int,
) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrZeroVolume
	}
	tick := LowerUsableTick(rawTick, key.TickSpacing)
	if !validTick(rawTick) || !validTick(tick) {
		return fmt.Errorf("%w: %d", ErrInvalidTick, rawTick)
	}

	poolID := key.ID()
	orderKey := OrderKey{PoolID: poolID, Tick: tick, ZeroForOne: zeroForOne}
	orderID := orderKey.ID()

	balance := b.claims.BalanceOf(state, orderID, caller)
	if balance.Sign() == 0 {
		return ErrNothingToClaim
	}
	if balance.Cmp(amount) < 0 {
		return ErrNotEnoughToClaim
	}

	pending := b.PendingVolume(state, orderID)
	if pending.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s pending", ErrNotEnoughPending, pending)
	}

	b.setPendingVolume(state, orderID, new(big.Int).Sub(pending, amount))
	b.setClaimSupply(state, orderID, new(big.Int).Sub(b.ClaimSupply(state, orderID), amount))
	if err := b.claims.Burn(state, orderID, caller, amount); err != nil {
		return err
	}

	if err := dex.TransferCurrency(state, orderKey.InputCurrency(key), BookAddr, caller, amount); err != nil {
		return err
	}

	b.log.Debug("order canceled",
		"order", fmt.Sprintf("%x", orderID[:8]),
		"owner", caller.Hex(),
		"volume", amount.String(),
	)
	emitOrderCanceled(state, orderID, caller, amount)

	return nil
}

// Redeem burns [claimAmount] of the caller's claim units against the
// bucket at [rawTick] and pays out the matching floor pro-rata share of
// its banked output. Rounding dust stays banked for the remaining
// holders; the final redeemer collects it.
func (b *Book) Redeem(
	state contract.StateDB,
	caller common.Address,
	key dex.PoolKey,
	zeroForOne bool,
	rawTick int32,
	claimAmount *big.Int,
) (*big.Int, error) {
	if claimAmount == nil || claimAmount.Sign() <= 0 {
		return nil, ErrZeroVolume
	}
	tick := LowerUsableTick(rawTick, key.TickSpacing)
	if !validTick(rawTick) || !validTick(tick) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTick, rawTick)
	}

	poolID := key.ID()
	orderKey := OrderKey{PoolID: poolID, Tick: tick, ZeroForOne: zeroForOne}
	orderID := orderKey.ID()

	claimable := b.ClaimableOutput(state, orderID)
	if claimable.Sign() == 0 {
		return nil, ErrNothingToClaim
	}

	balance := b.claims.BalanceOf(state, orderID, caller)
	if balance.Sign() == 0 {
		return nil, ErrNothingToClaim
	}
	if balance.Cmp(claimAmount) < 0 {
		return nil, ErrNotEnoughToClaim
	}

	// payout = claimAmount * claimable / supply, floored. Burning the
	// claims against the same supply keeps later redemptions whole.
	supply := b.ClaimSupply(state, orderID)
	payout := new(big.Int).Mul(claimAmount, claimable)
	payout.Div(payout, supply)

	b.setClaimableOutput(state, orderID, new(big.Int).Sub(claimable, payout))
	b.setClaimSupply(state, orderID, new(big.Int).Sub(supply, claimAmount))
	if err := b.claims.Burn(state, orderID, caller, claimAmount); err != nil {
		return nil, err
	}

	if payout.Sign() > 0 {
		if err := dex.TransferCurrency(state, orderKey.OutputCurrency(key), BookAddr, caller, payout); err != nil {
			return nil, err
		}
	}

	b.log.Debug("order redeemed",
		"order", fmt.Sprintf("%x", orderID[:8]),
		"owner", caller.Hex(),
		"claims", claimAmount.String(),
		"payout", payout.String(),
	)
	emitOrderRedeemed(state, orderID, caller, claimAmount, payout)

	return payout, nil
}
