// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package dex

import (
	"math/big"
)

var (
	q192 = new(big.Int).Lsh(big.NewInt(1), 192)
	q384 = new(big.Int).Lsh(big.NewInt(1), 384)

	// tickBase is 1.0001 in Q192 fixed point.
	tickBase = new(big.Int).Div(
		new(big.Int).Mul(big.NewInt(10001), new(big.Int).Lsh(big.NewInt(1), 192)),
		big.NewInt(10000),
	)
)

// ratioAtTick returns 1.0001^|tick| in Q192 fixed point by square-and-multiply.
func ratioAtTick(absTick int24) *big.Int {
	result := new(big.Int).Set(q192)
	base := new(big.Int).Set(tickBase)

	for n := uint32(absTick); n > 0; n >>= 1 {
		if n&1 == 1 {
			result.Mul(result, base)
			result.Rsh(result, 192)
		}
		base.Mul(base, base)
		base.Rsh(base, 192)
	}
	return result
}

// SqrtPriceAtTick converts a tick to its sqrt price in Q64.96 format.
// sqrtPrice = sqrt(1.0001^tick) * 2^96. The map is strictly increasing in
// tick, which the crossing scan depends on.
func SqrtPriceAtTick(tick int24) *big.Int {
	if tick == 0 {
		return new(big.Int).Set(Q96)
	}

	absTick := tick
	if tick < 0 {
		absTick = -tick
	}

	ratio := ratioAtTick(absTick)
	if tick < 0 {
		ratio = new(big.Int).Div(q384, ratio)
	}

	// ratio is r*2^192; sqrt(r*2^384) = sqrt(r)*2^192, then Q192 -> Q96
	result := new(big.Int).Sqrt(new(big.Int).Lsh(ratio, 192))
	result.Rsh(result, 96)

	if result.Cmp(MinSqrtRatio) < 0 {
		return new(big.Int).Set(MinSqrtRatio)
	}
	if result.Cmp(MaxSqrtRatio) > 0 {
		return new(big.Int).Set(MaxSqrtRatio)
	}
	return result
}

// TickAtSqrtPrice converts a sqrt price to the greatest tick whose sqrt price
// is <= the given value, via binary search over SqrtPriceAtTick.
func TickAtSqrtPrice(sqrtPriceX96 *big.Int) int24 {
	if sqrtPriceX96 == nil || sqrtPriceX96.Sign() <= 0 {
		return 0
	}

	if sqrtPriceX96.Cmp(MinSqrtRatio) <= 0 {
		return MinTick
	}
	if sqrtPriceX96.Cmp(MaxSqrtRatio) >= 0 {
		return MaxTick
	}

	// SqrtPriceAtTick(tick) <= sqrtPriceX96 < SqrtPriceAtTick(tick+1)
	low := MinTick
	high := MaxTick

	for low < high {
		mid := low + (high-low+1)/2
		sqrtPriceMid := SqrtPriceAtTick(mid)

		if sqrtPriceMid.Cmp(sqrtPriceX96) <= 0 {
			low = mid
		} else {
			high = mid - 1
		}
	}

	return low
}
