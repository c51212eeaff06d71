// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package dex

import (
	"math/big"
	"testing"

	"github.com/luxfi/geth/common"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/limitbook/contract"
)

// noopHook counts notifications, for registry dispatch tests.
type noopHook struct {
	afterInitCalls int
	afterSwapCalls int
}

func (h *noopHook) BeforeInitialize(contract.StateDB, PoolKey, *big.Int) error { return nil }
func (h *noopHook) AfterInitialize(contract.StateDB, PoolKey, int32) error {
	h.afterInitCalls++
	return nil
}
func (h *noopHook) BeforeSwap(contract.StateDB, common.Address, PoolKey, SwapParams) error {
	return nil
}
func (h *noopHook) AfterSwap(contract.StateDB, common.Address, PoolKey, SwapParams, BalanceDelta) error {
	h.afterSwapCalls++
	return nil
}

func TestHookPermissionsRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		perms HookPermissions
	}{
		{"none", HookPermissions{}},
		{"after only", HookPermissions{AfterInitialize: true, AfterSwap: true}},
		{"before only", HookPermissions{BeforeInitialize: true, BeforeSwap: true}},
		{"all", HookPermissions{
			BeforeInitialize: true, AfterInitialize: true,
			BeforeSwap: true, AfterSwap: true,
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.perms, DecodeHookPermissions(EncodeHookPermissions(tt.perms)))
		})
	}
}

func TestHookAddressEncodesFlags(t *testing.T) {
	flags := HookAfterInitialize | HookAfterSwap
	addr := HookAddress(flags, 0x9020)

	require.Equal(t, HookPermissions{AfterInitialize: true, AfterSwap: true},
		GetHookPermissionsFromAddress(addr))
	require.True(t, HasPermission(addr, HookAfterInitialize))
	require.True(t, HasPermission(addr, HookAfterSwap))
	require.False(t, HasPermission(addr, HookBeforeSwap))
	require.False(t, HasPermission(addr, HookBeforeInitialize))
}

func TestRegisterHookValidatesAddress(t *testing.T) {
	registry := NewHookRegistry()
	hook := &noopHook{}

	// Address flags must match the declared capability set.
	wrongAddr := HookAddress(HookBeforeSwap, 1)
	err := registry.RegisterHook(wrongAddr, HookAfterSwap, hook)
	require.ErrorIs(t, err, ErrHookInvalidAddress)

	addr := HookAddress(HookAfterSwap, 1)
	require.NoError(t, registry.RegisterHook(addr, HookAfterSwap, hook))

	got, ok := registry.Get(addr)
	require.True(t, ok)
	require.Same(t, hook, got.(*noopHook))
}

func TestIsHookEnabled(t *testing.T) {
	registry := NewHookRegistry()
	hook := &noopHook{}

	addr := HookAddress(HookAfterInitialize|HookAfterSwap, 2)
	require.NoError(t, registry.RegisterHook(addr, HookAfterInitialize|HookAfterSwap, hook))

	require.True(t, registry.IsHookEnabled(addr, HookAfterSwap))
	require.True(t, registry.IsHookEnabled(addr, HookAfterInitialize))
	require.False(t, registry.IsHookEnabled(addr, HookBeforeSwap), "undeclared notification must stay disabled")

	// Unregistered addresses never dispatch, whatever their flag bytes say.
	stranger := HookAddress(HookAfterSwap, 3)
	require.False(t, registry.IsHookEnabled(stranger, HookAfterSwap))
}

func TestPoolDispatchesHookNotifications(t *testing.T) {
	pm, state := newTestPoolManager(t)
	hook := &noopHook{}

	addr := HookAddress(HookAfterInitialize|HookAfterSwap, 4)
	require.NoError(t, pm.Hooks().RegisterHook(addr, HookAfterInitialize|HookAfterSwap, hook))

	key := testPoolKey()
	key.Hooks = addr
	seedPool(t, pm, state, key, 1_000_000)
	require.Equal(t, 1, hook.afterInitCalls)

	require.NoError(t, MintCurrency(state, testToken0, testTrader, big.NewInt(1000)))
	_, err := pm.Swap(state, testTrader, key, SwapParams{
		ZeroForOne:      true,
		AmountSpecified: big.NewInt(1000),
	})
	require.NoError(t, err)
	require.Equal(t, 1, hook.afterSwapCalls)
}
