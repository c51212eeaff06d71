// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package limitorder

import (
	"math/big"
	"testing"

	"github.com/luxfi/geth/common"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/limitbook/dex"
)

func TestScanAdvancesLastTickWithoutOrders(t *testing.T) {
	book, pm, state, key := newTestBook(t)

	marketTrade(t, pm, state, key, false, 2000)

	current, err := pm.CurrentTick(state, key)
	require.NoError(t, err)
	require.True(t, current >= 30 && current < 60, "trade must land between ticks 30 and 60, got %d", current)

	last, seen := book.LastTick(state, key.ID())
	require.True(t, seen)
	require.Equal(t, int32(30), last)
}

func TestFillDrainsBucketExactly(t *testing.T) {
	book, pm, state, key := newTestBook(t)
	fund(t, state, testToken0, testAlice, 100)

	_, err := book.Place(state, testAlice, key, true, 0, big.NewInt(100))
	require.NoError(t, err)

	bookOutBefore := dex.BalanceOfCurrency(state, testToken1, BookAddr)

	marketTrade(t, pm, state, key, false, 2000)

	orderID := OrderKey{PoolID: key.ID(), Tick: 0, ZeroForOne: true}.ID()
	require.Equal(t, int64(0), book.PendingVolume(state, orderID).Int64(), "bucket must drain fully")

	// Banked output equals the realized delta: exactly what the nested
	// trade paid into the book's custody.
	bookOutAfter := dex.BalanceOfCurrency(state, testToken1, BookAddr)
	realized := new(big.Int).Sub(bookOutAfter, bookOutBefore)
	require.True(t, realized.Sign() > 0)
	require.Equal(t, 0, book.ClaimableOutput(state, orderID).Cmp(realized))
}

func TestFillEscrowCoversTradeAcrossPrices(t *testing.T) {
	// A fill submits the bucket's pending volume as exact input and the
	// book escrowed exactly that much. Whatever the pool's price or
	// depth, the crossing market trade must complete, the bucket must
	// drain, and the book's custody must hold nothing but the banked
	// output. Rounding slack is invisible at price 1.0; deep pools far
	// from it are where the input leg can drift.
	tests := []struct {
		name       string
		priceTick  int32
		liquidity  *big.Int
		zeroForOne bool
		volume     int64
	}{
		{
			name:       "deep low-priced pool",
			priceTick:  -124290,
			liquidity:  new(big.Int).Exp(big.NewInt(10), big.NewInt(24), nil),
			zeroForOne: true,
			volume:     7,
		},
		{
			name:       "deep high-priced pool",
			priceTick:  124290,
			liquidity:  new(big.Int).Exp(big.NewInt(10), big.NewInt(24), nil),
			zeroForOne: false,
			volume:     7,
		},
		{
			name:       "deep pool at unit price",
			priceTick:  0,
			liquidity:  new(big.Int).Exp(big.NewInt(10), big.NewInt(12), nil),
			zeroForOne: true,
			volume:     5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			book, pm, state, key := newTestBookAt(t, dex.SqrtPriceAtTick(tt.priceTick), tt.liquidity)

			in, out := testToken0, testToken1
			if !tt.zeroForOne {
				in, out = out, in
			}
			fund(t, state, in, testAlice, tt.volume)

			tick, err := book.Place(state, testAlice, key, tt.zeroForOne, tt.priceTick, big.NewInt(tt.volume))
			require.NoError(t, err)
			require.Equal(t, tt.priceTick, tick)

			// Cross two spacings so the bucket sits inside the scan window.
			target := tt.priceTick + 2*key.TickSpacing
			if !tt.zeroForOne {
				target = tt.priceTick - 2*key.TickSpacing
			}
			tradeToTick(t, pm, state, key, tt.liquidity, target)

			orderID := OrderKey{PoolID: key.ID(), Tick: tick, ZeroForOne: tt.zeroForOne}.ID()
			require.Equal(t, int64(0), book.PendingVolume(state, orderID).Int64(), "bucket must drain")

			// No input principal may remain stranded at the book, and the
			// banked output must match its custody to the unit.
			require.Equal(t, int64(0), dex.BalanceOfCurrency(state, in, BookAddr).Int64())
			claimable := book.ClaimableOutput(state, orderID)
			require.Equal(t, 0, claimable.Cmp(dex.BalanceOfCurrency(state, out, BookAddr)))
		})
	}
}

func TestScanFillsOnlyCrossedBucket(t *testing.T) {
	book, pm, state, key := newTestBook(t)
	fund(t, state, testToken0, testAlice, 200)

	_, err := book.Place(state, testAlice, key, true, 0, big.NewInt(100))
	require.NoError(t, err)
	_, err = book.Place(state, testAlice, key, true, 60, big.NewInt(100))
	require.NoError(t, err)

	// Price moves up past tick 30 but short of tick 60.
	marketTrade(t, pm, state, key, false, 2000)

	id0 := OrderKey{PoolID: key.ID(), Tick: 0, ZeroForOne: true}.ID()
	id60 := OrderKey{PoolID: key.ID(), Tick: 60, ZeroForOne: true}.ID()

	require.Equal(t, int64(0), book.PendingVolume(state, id0).Int64())
	require.True(t, book.ClaimableOutput(state, id0).Sign() > 0)

	require.Equal(t, int64(100), book.PendingVolume(state, id60).Int64(), "uncrossed bucket must stay resting")
	require.Equal(t, int64(0), book.ClaimableOutput(state, id60).Int64())
}

func TestLargeTradeFillsBothBucketsInOneCall(t *testing.T) {
	book, pm, state, key := newTestBook(t)
	fund(t, state, testToken0, testAlice, 200)

	_, err := book.Place(state, testAlice, key, true, 0, big.NewInt(100))
	require.NoError(t, err)
	_, err = book.Place(state, testAlice, key, true, 60, big.NewInt(100))
	require.NoError(t, err)

	// One trade large enough to cross both resting ticks.
	marketTrade(t, pm, state, key, false, 4000)

	id0 := OrderKey{PoolID: key.ID(), Tick: 0, ZeroForOne: true}.ID()
	id60 := OrderKey{PoolID: key.ID(), Tick: 60, ZeroForOne: true}.ID()

	require.Equal(t, int64(0), book.PendingVolume(state, id0).Int64())
	require.Equal(t, int64(0), book.PendingVolume(state, id60).Int64())
	require.True(t, book.ClaimableOutput(state, id0).Sign() > 0)
	require.True(t, book.ClaimableOutput(state, id60).Sign() > 0)
}

func TestDownwardCrossingFillsOppositeSide(t *testing.T) {
	book, pm, state, key := newTestBook(t)
	fund(t, state, testToken1, testAlice, 100)

	// Sells currency1 into a falling price.
	_, err := book.Place(state, testAlice, key, false, -30, big.NewInt(100))
	require.NoError(t, err)

	marketTrade(t, pm, state, key, true, 2000)

	orderID := OrderKey{PoolID: key.ID(), Tick: -30, ZeroForOne: false}.ID()
	require.Equal(t, int64(0), book.PendingVolume(state, orderID).Int64())
	require.True(t, book.ClaimableOutput(state, orderID).Sign() > 0)
}

func TestCancelAfterFillOnlyAgainstPending(t *testing.T) {
	book, pm, state, key := newTestBook(t)
	fund(t, state, testToken0, testAlice, 100)

	_, err := book.Place(state, testAlice, key, true, 0, big.NewInt(100))
	require.NoError(t, err)

	marketTrade(t, pm, state, key, false, 2000)

	// The whole bucket filled; the claims are only redeemable now.
	err = book.Cancel(state, testAlice, key, true, 0, big.NewInt(10))
	require.ErrorIs(t, err, ErrNotEnoughPending)
}

func TestRedeemFullAfterFill(t *testing.T) {
	book, pm, state, key := newTestBook(t)
	fund(t, state, testToken0, testAlice, 100)

	_, err := book.Place(state, testAlice, key, true, 0, big.NewInt(100))
	require.NoError(t, err)

	marketTrade(t, pm, state, key, false, 2000)

	orderID := OrderKey{PoolID: key.ID(), Tick: 0, ZeroForOne: true}.ID()
	claimable := book.ClaimableOutput(state, orderID)
	require.True(t, claimable.Sign() > 0)

	payout, err := book.Redeem(state, testAlice, key, true, 0, big.NewInt(100))
	require.NoError(t, err)
	require.Equal(t, 0, payout.Cmp(claimable), "full redemption must return the entire banked output")
	require.Equal(t, 0, dex.BalanceOfCurrency(state, testToken1, testAlice).Cmp(claimable))
	require.Equal(t, int64(0), book.ClaimableOutput(state, orderID).Int64())
	require.Equal(t, int64(0), book.ClaimSupply(state, orderID).Int64())

	// Nothing left to redeem.
	_, err = book.Redeem(state, testAlice, key, true, 0, big.NewInt(1))
	require.ErrorIs(t, err, ErrNothingToClaim)
}

func TestPartialRedemptionOrderIndependent(t *testing.T) {
	runScenario := func(t *testing.T, firstAlice bool) *big.Int {
		book, pm, state, key := newTestBook(t)
		fund(t, state, testToken0, testAlice, 50)
		fund(t, state, testToken0, testBob, 50)

		_, err := book.Place(state, testAlice, key, true, 0, big.NewInt(50))
		require.NoError(t, err)
		_, err = book.Place(state, testBob, key, true, 0, big.NewInt(50))
		require.NoError(t, err)

		marketTrade(t, pm, state, key, false, 2000)

		orderID := OrderKey{PoolID: key.ID(), Tick: 0, ZeroForOne: true}.ID()
		claimable := book.ClaimableOutput(state, orderID)
		require.True(t, claimable.Sign() > 0)

		order := []struct {
			who    common.Address
			amount int64
		}{
			{testAlice, 50},
			{testBob, 50},
		}
		if !firstAlice {
			order[0], order[1] = order[1], order[0]
		}

		total := new(big.Int)
		for _, r := range order {
			payout, err := book.Redeem(state, r.who, key, true, 0, big.NewInt(r.amount))
			require.NoError(t, err)
			total.Add(total, payout)
		}

		require.Equal(t, 0, total.Cmp(claimable), "redeemers together must collect the whole banked output")
		return total
	}

	aliceFirst := runScenario(t, true)
	bobFirst := runScenario(t, false)
	require.Equal(t, 0, aliceFirst.Cmp(bobFirst))
}

func TestReentrantNotificationShortCircuits(t *testing.T) {
	book, _, state, key := newTestBook(t)
	fund(t, state, testToken0, testAlice, 100)

	_, err := book.Place(state, testAlice, key, true, 0, big.NewInt(100))
	require.NoError(t, err)

	// A notification for a pool already mid-scan is an inert no-fill.
	poolID := key.ID()
	book.inProgress[poolID] = true
	require.NoError(t, book.AfterSwap(state, testTrader, key, dex.SwapParams{}, dex.ZeroBalanceDelta()))
	delete(book.inProgress, poolID)

	orderID := OrderKey{PoolID: poolID, Tick: 0, ZeroForOne: true}.ID()
	require.Equal(t, int64(100), book.PendingVolume(state, orderID).Int64(), "guarded call must not fill")
}
