// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package limitorder

import (
	"math/big"

	"github.com/luxfi/geth/common"
	log "github.com/luxfi/log"
	"github.com/zeebo/blake3"

	"github.com/luxfi/limitbook/contract"
	"github.com/luxfi/limitbook/dex"
)

// Storage key prefixes under the book's address.
var (
	pendingPrefix   = []byte("pend") // orderID -> unfilled input volume
	claimablePrefix = []byte("cout") // orderID -> banked output awaiting redemption
	supplyPrefix    = []byte("csup") // orderID -> outstanding claim units
	lastTickPrefix  = []byte("last") // poolID -> last observed normalized tick
)

// Book is the limit order engine. It owns the accounting records for
// every order bucket, escrows principal and fill proceeds at BookAddr,
// and reacts to pool trade notifications by filling crossed buckets.
// All mutable state lives in the StateDB so a snapshot revert unwinds
// partial work.
type Book struct {
	pm     *dex.PoolManager
	claims ClaimLedger
	log    log.Logger

	// Pools with a fill pass in progress. Nested trade notifications
	// from the engine's own fills find their pool here and return
	// without filling.
	inProgress map[[32]byte]bool
}

// NewBook wires the order engine to its pool.
func NewBook(pm *dex.PoolManager, logger log.Logger) *Book {
	return &Book{
		pm:         pm,
		claims:     ClaimLedger{},
		log:        logger,
		inProgress: make(map[[32]byte]bool),
	}
}

// Claims exposes the ledger for read paths.
func (b *Book) Claims() ClaimLedger {
	return b.claims
}

func bookStorageKey(prefix []byte, id []byte) common.Hash {
	h := blake3.New()
	h.Write(prefix)
	h.Write(id)

	var key common.Hash
	copy(key[:], h.Sum(nil))
	return key
}

// =========================================================================
// Bucket accounting
// =========================================================================

// PendingVolume returns the unfilled input volume resting in a bucket.
func (b *Book) PendingVolume(state contract.StateDB, orderID [32]byte) *big.Int {
	return bigFromHash(state.GetState(BookAddr, bookStorageKey(pendingPrefix, orderID[:])))
}

func (b *Book) setPendingVolume(state contract.StateDB, orderID [32]byte, v *big.Int) {
	state.SetState(BookAddr, bookStorageKey(pendingPrefix, orderID[:]), hashFromBig(v))
}

// ClaimableOutput returns the banked fill proceeds of a bucket.
func (b *Book) ClaimableOutput(state contract.StateDB, orderID [32]byte) *big.Int {
	return bigFromHash(state.GetState(BookAddr, bookStorageKey(claimablePrefix, orderID[:])))
}

func (b *Book) setClaimableOutput(state contract.StateDB, orderID [32]byte, v *big.Int) {
	state.SetState(BookAddr, bookStorageKey(claimablePrefix, orderID[:]), hashFromBig(v))
}

// ClaimSupply returns the outstanding claim units on a bucket. While a
// bucket is unfilled this equals its pending volume; after fills it
// denominates each holder's pro-rata share of the banked output.
func (b *Book) ClaimSupply(state contract.StateDB, orderID [32]byte) *big.Int {
	return bigFromHash(state.GetState(BookAddr, bookStorageKey(supplyPrefix, orderID[:])))
}

func (b *Book) setClaimSupply(state contract.StateDB, orderID [32]byte, v *big.Int) {
	state.SetState(BookAddr, bookStorageKey(supplyPrefix, orderID[:]), hashFromBig(v))
}

// =========================================================================
// Last observed tick
// =========================================================================

// The stored word carries a set marker in its first byte so a recorded
// tick of zero is distinguishable from an unseen pool.

// LastTick returns the last normalized tick the engine observed for a
// pool, and whether one has been recorded.
func (b *Book) LastTick(state contract.StateDB, poolID [32]byte) (int32, bool) {
	word := state.GetState(BookAddr, bookStorageKey(lastTickPrefix, poolID[:]))
	if word[0] == 0 {
		return 0, false
	}
	return int32(word[28])<<24 | int32(word[29])<<16 | int32(word[30])<<8 | int32(word[31]), true
}

func (b *Book) setLastTick(state contract.StateDB, poolID [32]byte, tick int32) {
	var word common.Hash
	word[0] = 1
	word[28] = byte(tick >> 24)
	word[29] = byte(tick >> 16)
	word[30] = byte(tick >> 8)
	word[31] = byte(tick)
	state.SetState(BookAddr, bookStorageKey(lastTickPrefix, poolID[:]), word)
}
