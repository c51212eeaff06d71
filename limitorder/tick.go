// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package limitorder

import "github.com/luxfi/limitbook/dex"

// LowerUsableTick normalizes [tick] onto the pool's spacing grid by
// rounding toward negative infinity. Integer division in Go truncates
// toward zero, so negative ticks off the grid need one extra step down.
// The result is idempotent: a tick already on the grid maps to itself.
func LowerUsableTick(tick, tickSpacing int32) int32 {
	intervals := tick / tickSpacing
	if tick < 0 && tick%tickSpacing != 0 {
		intervals--
	}
	return intervals * tickSpacing
}

// validTick reports whether [tick] is a representable price level.
func validTick(tick int32) bool {
	return tick >= dex.MinTick && tick <= dex.MaxTick
}
