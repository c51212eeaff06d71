// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package limitorder

import (
	"errors"
	"math/big"

	"github.com/luxfi/geth/common"
	"github.com/zeebo/blake3"

	"github.com/luxfi/limitbook/contract"
)

// ClaimLedger tracks per-holder claim balances for order buckets. Claim
// units map 1:1 to deposited principal. The ledger carries balances
// only; bucket-level supply lives with the book's accounting record, so
// the ledger imposes no accounting of its own. Only the order book
// mints and burns.
type ClaimLedger struct{}

func claimBalanceKey(orderID [32]byte, holder common.Address) common.Hash {
	h := blake3.New()
	h.Write([]byte("cbal"))
	h.Write(orderID[:])
	h.Write(holder.Bytes())

	var key common.Hash
	copy(key[:], h.Sum(nil))
	return key
}

// BalanceOf returns [holder]'s claim units on [orderID].
func (ClaimLedger) BalanceOf(state contract.StateDB, orderID [32]byte, holder common.Address) *big.Int {
	return bigFromHash(state.GetState(ClaimLedgerAddr, claimBalanceKey(orderID, holder)))
}

// Mint credits [amount] claim units on [orderID] to [holder].
func (cl ClaimLedger) Mint(state contract.StateDB, orderID [32]byte, holder common.Address, amount *big.Int) {
	bal := cl.BalanceOf(state, orderID, holder)
	state.SetState(ClaimLedgerAddr, claimBalanceKey(orderID, holder), hashFromBig(new(big.Int).Add(bal, amount)))
}

// Burn debits [amount] claim units on [orderID] from [holder].
func (cl ClaimLedger) Burn(state contract.StateDB, orderID [32]byte, holder common.Address, amount *big.Int) error {
	bal := cl.BalanceOf(state, orderID, holder)
	if bal.Cmp(amount) < 0 {
		return errors.New("claim burn exceeds balance")
	}
	state.SetState(ClaimLedgerAddr, claimBalanceKey(orderID, holder), hashFromBig(new(big.Int).Sub(bal, amount)))
	return nil
}
