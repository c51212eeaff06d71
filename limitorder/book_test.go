// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package limitorder

import (
	"math/big"
	"testing"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/core/tracing"
	ethtypes "github.com/luxfi/geth/core/types"
	log "github.com/luxfi/log"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/limitbook/dex"
)

// MockStateDB implements contract.StateDB for testing. Snapshots deep
// copy the whole store so revert semantics match the real StateDB.
type MockStateDB struct {
	storage  map[common.Address]map[common.Hash]common.Hash
	balances map[common.Address]*uint256.Int
	logs     []*ethtypes.Log

	snapshots []mockSnapshot
}

type mockSnapshot struct {
	storage  map[common.Address]map[common.Hash]common.Hash
	balances map[common.Address]*uint256.Int
	logCount int
}

func NewMockStateDB() *MockStateDB {
	return &MockStateDB{
		storage:  make(map[common.Address]map[common.Hash]common.Hash),
		balances: make(map[common.Address]*uint256.Int),
	}
}

func (m *MockStateDB) GetState(addr common.Address, key common.Hash) common.Hash {
	if m.storage[addr] == nil {
		return common.Hash{}
	}
	return m.storage[addr][key]
}

func (m *MockStateDB) SetState(addr common.Address, key, value common.Hash) common.Hash {
	if m.storage[addr] == nil {
		m.storage[addr] = make(map[common.Hash]common.Hash)
	}
	prev := m.storage[addr][key]
	m.storage[addr][key] = value
	return prev
}

func (m *MockStateDB) GetBalance(addr common.Address) *uint256.Int {
	if bal, ok := m.balances[addr]; ok {
		return bal.Clone()
	}
	return uint256.NewInt(0)
}

func (m *MockStateDB) AddBalance(addr common.Address, amount *uint256.Int, _ tracing.BalanceChangeReason) uint256.Int {
	if m.balances[addr] == nil {
		m.balances[addr] = uint256.NewInt(0)
	}
	prev := m.balances[addr].Clone()
	m.balances[addr] = new(uint256.Int).Add(m.balances[addr], amount)
	return *prev
}

func (m *MockStateDB) SubBalance(addr common.Address, amount *uint256.Int, _ tracing.BalanceChangeReason) uint256.Int {
	if m.balances[addr] == nil {
		m.balances[addr] = uint256.NewInt(0)
	}
	prev := m.balances[addr].Clone()
	m.balances[addr] = new(uint256.Int).Sub(m.balances[addr], amount)
	return *prev
}

func (m *MockStateDB) Exist(common.Address) bool    { return true }
func (m *MockStateDB) CreateAccount(common.Address) {}
func (m *MockStateDB) AddLog(log *ethtypes.Log)     { m.logs = append(m.logs, log) }
func (m *MockStateDB) Logs() []*ethtypes.Log        { return m.logs }

func (m *MockStateDB) Snapshot() int {
	snap := mockSnapshot{
		storage:  make(map[common.Address]map[common.Hash]common.Hash, len(m.storage)),
		balances: make(map[common.Address]*uint256.Int, len(m.balances)),
		logCount: len(m.logs),
	}
	for addr, slots := range m.storage {
		copied := make(map[common.Hash]common.Hash, len(slots))
		for k, v := range slots {
			copied[k] = v
		}
		snap.storage[addr] = copied
	}
	for addr, bal := range m.balances {
		snap.balances[addr] = bal.Clone()
	}
	m.snapshots = append(m.snapshots, snap)
	return len(m.snapshots) - 1
}

func (m *MockStateDB) RevertToSnapshot(id int) {
	snap := m.snapshots[id]
	m.storage = snap.storage
	m.balances = snap.balances
	m.logs = m.logs[:snap.logCount]
	m.snapshots = m.snapshots[:id]
}

// Test fixtures

var (
	testToken0 = dex.Currency{Address: common.HexToAddress("0x1000000000000000000000000000000000000001")}
	testToken1 = dex.Currency{Address: common.HexToAddress("0x2000000000000000000000000000000000000002")}
	testAlice  = common.HexToAddress("0xaaaa000000000000000000000000000000000001")
	testBob    = common.HexToAddress("0xbbbb000000000000000000000000000000000002")
	testTrader = common.HexToAddress("0x9011E888251AB053B7bD1cdB598Db4f9DEd94714")
	testLP     = common.HexToAddress("0x5544332211005544332211005544332211005544")
)

const testLiquidity = 1_000_000

// newTestBook wires a fresh pool manager, book, and hook registration,
// initializes a spacing-30 pool at price 1.0 (tick 0), and funds it.
func newTestBook(t *testing.T) (*Book, *dex.PoolManager, *MockStateDB, dex.PoolKey) {
	t.Helper()

	logger := log.NewTestLogger(log.InfoLevel)
	pm := dex.NewPoolManager(logger)
	book := NewBook(pm, logger)
	require.NoError(t, pm.Hooks().RegisterHook(BookHookAddr, HookCapabilities, book))

	key := dex.PoolKey{
		Currency0:   testToken0,
		Currency1:   testToken1,
		Fee:         dex.Fee030,
		TickSpacing: 30,
		Hooks:       BookHookAddr,
	}
	state := NewMockStateDB()

	tick, err := pm.Initialize(state, key, new(big.Int).Set(dex.Q96))
	require.NoError(t, err)
	require.Equal(t, int32(0), tick)

	require.NoError(t, dex.MintCurrency(state, testToken0, testLP, big.NewInt(2*testLiquidity)))
	require.NoError(t, dex.MintCurrency(state, testToken1, testLP, big.NewInt(2*testLiquidity)))
	_, err = pm.AddLiquidity(state, testLP, key, big.NewInt(testLiquidity))
	require.NoError(t, err)

	return book, pm, state, key
}

// fund mints tokens for an order placer.
func fund(t *testing.T, state *MockStateDB, c dex.Currency, who common.Address, amount int64) {
	t.Helper()
	require.NoError(t, dex.MintCurrency(state, c, who, big.NewInt(amount)))
}

// newTestBookAt wires the same harness as newTestBook but initializes
// the spacing-30 pool at an arbitrary sqrt price and liquidity depth.
func newTestBookAt(t *testing.T, sqrtPrice, liquidity *big.Int) (*Book, *dex.PoolManager, *MockStateDB, dex.PoolKey) {
	t.Helper()

	logger := log.NewTestLogger(log.InfoLevel)
	pm := dex.NewPoolManager(logger)
	book := NewBook(pm, logger)
	require.NoError(t, pm.Hooks().RegisterHook(BookHookAddr, HookCapabilities, book))

	key := dex.PoolKey{
		Currency0:   testToken0,
		Currency1:   testToken1,
		Fee:         dex.Fee030,
		TickSpacing: 30,
		Hooks:       BookHookAddr,
	}
	state := NewMockStateDB()

	_, err := pm.Initialize(state, key, sqrtPrice)
	require.NoError(t, err)

	amount0 := new(big.Int).Div(new(big.Int).Mul(liquidity, dex.Q96), sqrtPrice)
	amount1 := new(big.Int).Div(new(big.Int).Mul(liquidity, sqrtPrice), dex.Q96)
	require.NoError(t, dex.MintCurrency(state, testToken0, testLP, amount0))
	require.NoError(t, dex.MintCurrency(state, testToken1, testLP, amount1))
	_, err = pm.AddLiquidity(state, testLP, key, liquidity)
	require.NoError(t, err)

	return book, pm, state, key
}

// tradeToTick pushes the pool price to roughly [targetTick] with one
// exact-input market trade sized from the constant-liquidity move.
func tradeToTick(t *testing.T, pm *dex.PoolManager, state *MockStateDB, key dex.PoolKey, liquidity *big.Int, targetTick int32) {
	t.Helper()

	pool := pm.GetPool(state, key.ID())
	target := dex.SqrtPriceAtTick(targetTick)

	var zeroForOne bool
	var amount *big.Int
	if target.Cmp(pool.SqrtPriceX96) > 0 {
		// dy = L * (target - sqrtP) / Q96
		amount = new(big.Int).Sub(target, pool.SqrtPriceX96)
		amount.Mul(amount, liquidity)
		amount.Div(amount, dex.Q96)
	} else {
		// dx = L * Q96 * (sqrtP - target) / (sqrtP * target)
		zeroForOne = true
		amount = new(big.Int).Sub(pool.SqrtPriceX96, target)
		amount.Mul(amount, new(big.Int).Mul(liquidity, dex.Q96))
		amount.Div(amount, new(big.Int).Mul(pool.SqrtPriceX96, target))
	}
	amount.Add(amount, big.NewInt(1))

	c := key.Currency1
	if zeroForOne {
		c = key.Currency0
	}
	require.NoError(t, dex.MintCurrency(state, c, testTrader, amount))
	_, err := pm.Swap(state, testTrader, key, dex.SwapParams{
		ZeroForOne:      zeroForOne,
		AmountSpecified: amount,
	})
	require.NoError(t, err)
}

// marketTrade pushes the pool price by trading as an outside party.
func marketTrade(t *testing.T, pm *dex.PoolManager, state *MockStateDB, key dex.PoolKey, zeroForOne bool, amount int64) {
	t.Helper()
	c := key.Currency1
	if zeroForOne {
		c = key.Currency0
	}
	fund(t, state, c, testTrader, amount)
	_, err := pm.Swap(state, testTrader, key, dex.SwapParams{
		ZeroForOne:      zeroForOne,
		AmountSpecified: big.NewInt(amount),
	})
	require.NoError(t, err)
}

func TestAfterInitializeSeedsLastTick(t *testing.T) {
	book, _, state, key := newTestBook(t)

	last, seen := book.LastTick(state, key.ID())
	require.True(t, seen, "initialization must seed the last observed tick")
	require.Equal(t, int32(0), last)
}

func TestLastTickRoundTrip(t *testing.T) {
	book, _, state, key := newTestBook(t)
	poolID := key.ID()

	for _, tick := range []int32{-887272, -60, -30, 0, 30, 887272} {
		book.setLastTick(state, poolID, tick)
		got, seen := book.LastTick(state, poolID)
		require.True(t, seen)
		require.Equal(t, tick, got)
	}
}

func TestLastTickUnseenPool(t *testing.T) {
	book, _, state, _ := newTestBook(t)

	_, seen := book.LastTick(state, [32]byte{0xff})
	require.False(t, seen)
}

func TestBucketAccountingRoundTrip(t *testing.T) {
	book, _, state, key := newTestBook(t)
	orderID := OrderKey{PoolID: key.ID(), Tick: 30, ZeroForOne: true}.ID()

	require.Equal(t, int64(0), book.PendingVolume(state, orderID).Int64())

	book.setPendingVolume(state, orderID, big.NewInt(123))
	book.setClaimableOutput(state, orderID, big.NewInt(456))
	book.setClaimSupply(state, orderID, big.NewInt(789))

	require.Equal(t, int64(123), book.PendingVolume(state, orderID).Int64())
	require.Equal(t, int64(456), book.ClaimableOutput(state, orderID).Int64())
	require.Equal(t, int64(789), book.ClaimSupply(state, orderID).Int64())
}

func TestClaimLedgerMintBurn(t *testing.T) {
	book, _, state, key := newTestBook(t)
	claims := book.Claims()
	orderID := OrderKey{PoolID: key.ID(), Tick: 0, ZeroForOne: true}.ID()

	claims.Mint(state, orderID, testAlice, big.NewInt(100))
	claims.Mint(state, orderID, testAlice, big.NewInt(50))
	require.Equal(t, int64(150), claims.BalanceOf(state, orderID, testAlice).Int64())
	require.Equal(t, int64(0), claims.BalanceOf(state, orderID, testBob).Int64())

	require.NoError(t, claims.Burn(state, orderID, testAlice, big.NewInt(150)))
	require.Equal(t, int64(0), claims.BalanceOf(state, orderID, testAlice).Int64())

	require.Error(t, claims.Burn(state, orderID, testAlice, big.NewInt(1)))
}
