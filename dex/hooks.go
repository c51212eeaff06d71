// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package dex

import (
	"encoding/binary"
	"errors"
	"math/big"

	"github.com/luxfi/geth/common"

	"github.com/luxfi/limitbook/contract"
)

// HookFlags is a bitmap of the notifications a hook subscribes to.
type HookFlags uint16

const (
	HookBeforeInitialize HookFlags = 1 << iota
	HookAfterInitialize
	HookBeforeSwap
	HookAfterSwap
)

// Hook is a registered notification consumer. The pool manager dispatches
// each notification synchronously and only when the corresponding flag is
// set; everything else is disabled and never delivered.
type Hook interface {
	BeforeInitialize(state contract.StateDB, key PoolKey, sqrtPriceX96 *big.Int) error
	AfterInitialize(state contract.StateDB, key PoolKey, tick int24) error
	BeforeSwap(state contract.StateDB, sender common.Address, key PoolKey, params SwapParams) error
	// AfterSwap receives the trade's parameters and realized balance deltas
	// after the trade's price has settled.
	AfterSwap(state contract.StateDB, sender common.Address, key PoolKey, params SwapParams, delta BalanceDelta) error
}

// HookPermissions contains the flags derived from a hook address.
// Following the Uniswap v4 pattern, the hook address encodes capabilities.
type HookPermissions struct {
	BeforeInitialize bool
	AfterInitialize  bool
	BeforeSwap       bool
	AfterSwap        bool
}

// Hook errors
var (
	ErrHookNotRegistered  = errors.New("hook not registered")
	ErrHookInvalidAddress = errors.New("hook address doesn't match capabilities")
)

// EncodeHookPermissions encodes permissions into a HookFlags bitmap
func EncodeHookPermissions(p HookPermissions) HookFlags {
	var flags HookFlags

	if p.BeforeInitialize {
		flags |= HookBeforeInitialize
	}
	if p.AfterInitialize {
		flags |= HookAfterInitialize
	}
	if p.BeforeSwap {
		flags |= HookBeforeSwap
	}
	if p.AfterSwap {
		flags |= HookAfterSwap
	}

	return flags
}

// DecodeHookPermissions decodes a HookFlags bitmap into permissions
func DecodeHookPermissions(flags HookFlags) HookPermissions {
	return HookPermissions{
		BeforeInitialize: flags&HookBeforeInitialize != 0,
		AfterInitialize:  flags&HookAfterInitialize != 0,
		BeforeSwap:       flags&HookBeforeSwap != 0,
		AfterSwap:        flags&HookAfterSwap != 0,
	}
}

// GetHookPermissionsFromAddress extracts permissions from hook address
func GetHookPermissionsFromAddress(addr common.Address) HookPermissions {
	return DecodeHookPermissions(HookFlags(binary.BigEndian.Uint16(addr[0:2])))
}

// HasPermission checks if an address has a specific hook permission
func HasPermission(addr common.Address, flag HookFlags) bool {
	addrFlags := HookFlags(binary.BigEndian.Uint16(addr[0:2]))
	return addrFlags&flag != 0
}

// HookAddress builds an address in the DEX/markets page whose leading two
// bytes declare [flags] and whose trailing two bytes carry the LP item.
func HookAddress(flags HookFlags, lpItem uint16) common.Address {
	var addr common.Address
	binary.BigEndian.PutUint16(addr[0:2], uint16(flags))
	binary.BigEndian.PutUint16(addr[18:20], lpItem)
	return addr
}

// HookRegistry maps hook addresses to their registered implementations.
type HookRegistry struct {
	registeredHooks map[common.Address]Hook
}

// NewHookRegistry creates a new hook registry
func NewHookRegistry() *HookRegistry {
	return &HookRegistry{
		registeredHooks: make(map[common.Address]Hook),
	}
}

// RegisterHook registers a hook implementation at [addr]. The declared flags
// must match the capability bytes encoded in the address.
func (hr *HookRegistry) RegisterHook(addr common.Address, flags HookFlags, hook Hook) error {
	addrFlags := HookFlags(binary.BigEndian.Uint16(addr[0:2]))
	if addrFlags != flags {
		return ErrHookInvalidAddress
	}

	hr.registeredHooks[addr] = hook
	return nil
}

// Get returns the hook registered at [addr]
func (hr *HookRegistry) Get(addr common.Address) (Hook, bool) {
	hook, ok := hr.registeredHooks[addr]
	return hook, ok
}

// IsHookEnabled checks if a specific notification is enabled for an address
func (hr *HookRegistry) IsHookEnabled(addr common.Address, flag HookFlags) bool {
	if _, ok := hr.registeredHooks[addr]; !ok {
		return false
	}
	return HasPermission(addr, flag)
}
