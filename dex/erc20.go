// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package dex

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/core/tracing"
	"github.com/zeebo/blake3"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/limitbook/contract"
)

// Token balances live in the token contract's own storage, keyed by holder.
var tokenBalancePrefix = []byte("bal ")

func tokenBalanceKey(holder common.Address) common.Hash {
	h := blake3.New()
	h.Write(tokenBalancePrefix)
	h.Write(holder.Bytes())
	var key common.Hash
	h.Digest().Read(key[:])
	return key
}

// BalanceOfCurrency returns the holder's balance of the given asset, routing
// the native designator through the account balance.
func BalanceOfCurrency(state contract.StateDB, c Currency, holder common.Address) *big.Int {
	if c.IsNative() {
		return state.GetBalance(holder).ToBig()
	}
	raw := state.GetState(c.Address, tokenBalanceKey(holder))
	return new(big.Int).SetBytes(raw[:])
}

// TransferCurrency moves [amount] of [c] from [from] to [to]. A zero-address
// asset designator is the chain-native asset and moves through a raw value
// transfer instead of the token ledger.
func TransferCurrency(state contract.StateDB, c Currency, from, to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	if amount.Sign() < 0 {
		return fmt.Errorf("%w: negative transfer amount %s", contract.ErrInvalidInput, amount)
	}

	if c.IsNative() {
		amountU256, overflow := uint256.FromBig(amount)
		if overflow {
			return fmt.Errorf("%w: amount overflows u256", contract.ErrInvalidInput)
		}
		if state.GetBalance(from).Cmp(amountU256) < 0 {
			return fmt.Errorf("%w: native balance of %s below %s", ErrInsufficientBalance, from.Hex(), amount)
		}
		state.SubBalance(from, amountU256, tracing.BalanceChangeTransfer)
		state.AddBalance(to, amountU256, tracing.BalanceChangeTransfer)
		return nil
	}

	fromKey := tokenBalanceKey(from)
	fromRaw := state.GetState(c.Address, fromKey)
	fromBal := new(big.Int).SetBytes(fromRaw[:])
	if fromBal.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s holds %s of %s, need %s",
			ErrInsufficientBalance, from.Hex(), fromBal, c.Address.Hex(), amount)
	}

	toKey := tokenBalanceKey(to)
	toRaw := state.GetState(c.Address, toKey)
	toBal := new(big.Int).SetBytes(toRaw[:])

	var fromHash, toHash common.Hash
	fromBal.Sub(fromBal, amount).FillBytes(fromHash[:])
	toBal.Add(toBal, amount).FillBytes(toHash[:])
	state.SetState(c.Address, fromKey, fromHash)
	state.SetState(c.Address, toKey, toHash)
	return nil
}

// MintCurrency credits [amount] of a token asset to [to]. It exists for pool
// seeding and tests; native balances are credited through the StateDB.
func MintCurrency(state contract.StateDB, c Currency, to common.Address, amount *big.Int) error {
	if c.IsNative() {
		amountU256, overflow := uint256.FromBig(amount)
		if overflow {
			return fmt.Errorf("%w: amount overflows u256", contract.ErrInvalidInput)
		}
		state.AddBalance(to, amountU256, tracing.BalanceChangeTransfer)
		return nil
	}
	key := tokenBalanceKey(to)
	raw := state.GetState(c.Address, key)
	bal := new(big.Int).SetBytes(raw[:])

	var h common.Hash
	bal.Add(bal, amount).FillBytes(h[:])
	state.SetState(c.Address, key, h)
	return nil
}
