package liquidity

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"cgiftledger/native/amount"
	"cgiftledger/native/rewards"
)

type mockEngineState struct {
	positions     map[string]*Position
	distributions []*rewards.Distribution
	seq           uint64
	claimErr      error
}

func newMockEngineState() *mockEngineState {
	return &mockEngineState{positions: make(map[string]*Position)}
}

func (m *mockEngineState) LiquidityPosition(id string) (*Position, bool, error) {
	position, ok := m.positions[id]
	if !ok {
		return nil, false, nil
	}
	return position.Clone(), true, nil
}

func (m *mockEngineState) PutLiquidityPosition(p *Position) error {
	m.positions[p.ID] = p.Clone()
	return nil
}

func (m *mockEngineState) DeleteLiquidityPosition(id string) error {
	delete(m.positions, id)
	return nil
}

func (m *mockEngineState) LiquidityPositionsByOwner(owner string) ([]*Position, error) {
	var out []*Position
	for _, position := range m.positions {
		if position.Owner == owner && position.Active {
			out = append(out, position.Clone())
		}
	}
	return out, nil
}

func (m *mockEngineState) ActiveLiquidityPositions() ([]*Position, error) {
	var out []*Position
	for _, position := range m.positions {
		if position.Active {
			out = append(out, position.Clone())
		}
	}
	return out, nil
}

func (m *mockEngineState) RecordLiquidityClaim(d *rewards.Distribution, settled *Position) error {
	if m.claimErr != nil {
		err := m.claimErr
		m.claimErr = nil
		return err
	}
	m.distributions = append(m.distributions, d)
	m.positions[settled.ID] = settled.Clone()
	return nil
}

func (m *mockEngineState) NextTxHash(kind string) (string, error) {
	m.seq++
	return fmt.Sprintf("0x%s-%d", kind, m.seq), nil
}

func newTestEngine(state *mockEngineState) (*Engine, *time.Time) {
	now := time.Unix(1_700_000_000, 0).UTC()
	clock := &now
	engine := NewEngine()
	engine.SetState(state)
	engine.SetNowFunc(func() time.Time { return *clock })
	return engine, clock
}

func TestAddAndRemoveLiquidity(t *testing.T) {
	state := newMockEngineState()
	engine, _ := newTestEngine(state)

	position, err := engine.AddLiquidity("alice", "0xpool", amount.MustParse("250"))
	require.NoError(t, err)
	require.True(t, position.Active)
	require.Equal(t, "0xpool", position.PoolAddress)

	// No lock gate: removal works immediately.
	receipt, err := engine.RemoveLiquidity("alice", position.ID, amount.MustParse("100"))
	require.NoError(t, err)
	require.False(t, receipt.Closed)
	require.Equal(t, "150.000000000000000000", receipt.Remaining.String())

	receipt, err = engine.RemoveLiquidity("alice", position.ID, amount.MustParse("150"))
	require.NoError(t, err)
	require.True(t, receipt.Closed)
	_, ok, err := state.LiquidityPosition(position.ID)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRemoveLiquidityValidation(t *testing.T) {
	state := newMockEngineState()
	engine, _ := newTestEngine(state)

	_, err := engine.AddLiquidity("alice", "0xpool", amount.Zero())
	require.ErrorIs(t, err, amount.ErrInvalidAmount)

	_, err = engine.RemoveLiquidity("alice", "missing", amount.MustParse("1"))
	require.ErrorIs(t, err, ErrPositionNotFound)

	position, err := engine.AddLiquidity("alice", "0xpool", amount.MustParse("10"))
	require.NoError(t, err)

	_, err = engine.RemoveLiquidity("bob", position.ID, amount.MustParse("1"))
	require.ErrorIs(t, err, ErrPositionNotFound)

	_, err = engine.RemoveLiquidity("alice", position.ID, amount.MustParse("11"))
	require.ErrorIs(t, err, ErrAmountExceedsBalance)
}

func TestAccrueAndClaimLifecycle(t *testing.T) {
	state := newMockEngineState()
	engine, clock := newTestEngine(state)

	position, err := engine.AddLiquidity("alice", "0xpool", amount.MustParse("1000"))
	require.NoError(t, err)

	*clock = clock.Add(1000 * time.Second)
	result, err := engine.Accrue()
	require.NoError(t, err)
	require.Equal(t, 1, result.Updated)

	// 1000 × 0.000023148/s × 1000s, no multiplier for LP positions.
	stored, _, err := state.LiquidityPosition(position.ID)
	require.NoError(t, err)
	require.Equal(t, "23.148000000000000000", stored.PendingRewards.String())

	receipt, err := engine.Claim("alice", position.ID)
	require.NoError(t, err)
	require.Equal(t, "23.148000000000000000", receipt.Claimed.String())
	require.Len(t, state.distributions, 1)
	require.Equal(t, rewards.TypeLiquidity, state.distributions[0].RewardType)
	require.Equal(t, "0xpool", state.distributions[0].PoolID)

	// Re-accrual at the same instant yields nothing further.
	_, err = engine.Accrue()
	require.NoError(t, err)
	stored, _, err = state.LiquidityPosition(position.ID)
	require.NoError(t, err)
	require.True(t, stored.PendingRewards.IsZero())

	_, err = engine.Claim("alice", position.ID)
	require.ErrorIs(t, err, ErrNothingToClaim)
}

func TestFailedClaimLeavesNoPayoutRecord(t *testing.T) {
	state := newMockEngineState()
	engine, clock := newTestEngine(state)

	position, err := engine.AddLiquidity("alice", "0xpool", amount.MustParse("1000"))
	require.NoError(t, err)
	*clock = clock.Add(1000 * time.Second)
	_, err = engine.Accrue()
	require.NoError(t, err)

	state.claimErr = fmt.Errorf("version mismatch")
	_, err = engine.Claim("alice", position.ID)
	require.Error(t, err)
	require.Empty(t, state.distributions)

	stored, _, err := state.LiquidityPosition(position.ID)
	require.NoError(t, err)
	require.Equal(t, "23.148000000000000000", stored.PendingRewards.String())

	// The retry pays the window exactly once.
	receipt, err := engine.Claim("alice", position.ID)
	require.NoError(t, err)
	require.Equal(t, "23.148000000000000000", receipt.Claimed.String())
	require.Len(t, state.distributions, 1)
}

func TestStats(t *testing.T) {
	state := newMockEngineState()
	engine, _ := newTestEngine(state)

	_, err := engine.AddLiquidity("alice", "0xpool", amount.MustParse("100"))
	require.NoError(t, err)
	_, err = engine.AddLiquidity("bob", "0xother", amount.MustParse("50"))
	require.NoError(t, err)

	stats, err := engine.Stats()
	require.NoError(t, err)
	require.Equal(t, 2, stats.TotalProviders)
	require.Equal(t, "150.000000000000000000", stats.TotalLPTokens.String())
}
