// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package registry documents the LP-numbered precompile addresses used by
// this suite.
package registry

import (
	"fmt"

	"github.com/luxfi/geth/common"
)

// ============================================================================
// PRECOMPILE ADDRESS SCHEME - Aligned with LP Numbering (LP-0099)
// ============================================================================
//
// All precompiles in this suite use trailing-significant 20-byte addresses:
//   Format: 0x0000000000000000000000000000000000PCII
//
// The address ends with the 16-bit LP number (PCII) for easy identification.
// The selector encodes:
//   0x 0000...0000 P C II
//                  │ │ └┴─ Item/function (8 bits)
//                  │ └──── Chain slot    (4 bits)
//                  └────── Family page   (4 bits, aligned with LP-Pxxx)
//
// This suite occupies the DEX/Markets page (P=9, LP-9xxx).

const (
	// Core DEX (LP-9010 series - Uniswap v4 style singleton PoolManager)
	LXPool  = "0x0000000000000000000000000000000000009010" // LP-9010 LXPool (singleton AMM)
	LXHooks = "0x0000000000000000000000000000000000009013" // LP-9013 LXHooks (hook registry)

	// Resting orders (LP-9020 series)
	LXBook  = "0x0000000000000000000000000000000000009020" // LP-9020 LXBook (resting limit orders over the AMM)
	LXClaim = "0x0000000000000000000000000000000000009021" // LP-9021 LXClaim (order claim ledger read surface)
)

// PrecompileAddress calculates address from (P, C, II) nibbles
// P = Family page (aligned with LP-Pxxx), C = Chain slot, II = Item
// Returns trailing-significant format: 0x0000000000000000000000000000000000PCII
func PrecompileAddress(p, c, ii uint8) common.Address {
	if p > 15 || c > 15 {
		return common.Address{}
	}
	// Build the 4-character selector: PCII (hex)
	selector := fmt.Sprintf("%x%x%02x", p, c, ii)
	// Pad with leading zeros to 40 hex chars (20 bytes)
	addr := "0000000000000000000000000000000000" + selector
	return common.HexToAddress("0x" + addr)
}

// PrecompileInfo contains metadata about a precompile
type PrecompileInfo struct {
	Address     string
	Name        string
	Description string
	GasBase     uint64
	LPRange     string
}

// AllPrecompiles lists the precompiles in this suite with their metadata
var AllPrecompiles = []PrecompileInfo{
	{LXPool, "LX_POOL", "Uniswap v4-style singleton AMM", 50000, "LP-9010"},
	{LXHooks, "LX_HOOKS", "Hook contract registry", 10000, "LP-9013"},
	{LXBook, "LX_BOOK", "Resting limit orders filled on tick crossings", 25000, "LP-9020"},
	{LXClaim, "LX_CLAIM", "Order claim ledger (mint/burn driven by LXBook)", 5000, "LP-9021"},
}

// GetPrecompileAddress returns the address for a precompile by name
func GetPrecompileAddress(name string) common.Address {
	for _, p := range AllPrecompiles {
		if p.Name == name {
			return common.HexToAddress(p.Address)
		}
	}
	return common.Address{}
}
