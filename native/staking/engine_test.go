package staking

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
	putErrFor     string
	claimErr      error
}

func newMockEngineState() *mockEngineState {
	return &mockEngineState{positions: make(map[string]*Position)}
}

func (m *mockEngineState) Position(id string) (*Position, bool, error) {
	position, ok := m.positions[id]
	if !ok {
		return nil, false, nil
	}
	return position.Clone(), true, nil
}

func (m *mockEngineState) PutPosition(p *Position) error {
	if m.putErrFor != "" && p.ID == m.putErrFor {
		return fmt.Errorf("simulated write failure")
	}
	m.positions[p.ID] = p.Clone()
	return nil
}

func (m *mockEngineState) DeletePosition(id string) error {
	delete(m.positions, id)
	return nil
}

func (m *mockEngineState) PositionsByOwner(owner string) ([]*Position, error) {
	var out []*Position
	for _, position := range m.positions {
		if position.Owner == owner && position.Active {
			out = append(out, position.Clone())
		}
	}
	return out, nil
}

func (m *mockEngineState) ActivePositions() ([]*Position, error) {
	var out []*Position
	for _, position := range m.positions {
		if position.Active {
			out = append(out, position.Clone())
		}
	}
	return out, nil
}

func (m *mockEngineState) RecordClaim(d *rewards.Distribution, settled *Position) error {
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

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestEngine(state *mockEngineState) (*Engine, *testClock) {
	clock := &testClock{now: time.Unix(1_700_000_000, 0).UTC()}
	engine := NewEngine()
	engine.SetState(state)
	engine.SetNowFunc(clock.Now)
	return engine, clock
}

func TestStakeThenFullUnstakeDeletesPosition(t *testing.T) {
	state := newMockEngineState()
	engine, clock := newTestEngine(state)

	position, err := engine.Stake("alice", amount.MustParse("1000"), "pool-1", 30)
	require.NoError(t, err)
	require.True(t, position.Active)
	require.True(t, position.RewardDebt.IsZero())
	require.True(t, position.PendingRewards.IsZero())
	require.Equal(t, clock.Now().AddDate(0, 0, 30), position.LockEnd)

	clock.Advance(31 * 24 * time.Hour)
	receipt, err := engine.Unstake("alice", position.ID, amount.MustParse("1000"))
	require.NoError(t, err)
	require.True(t, receipt.Closed)
	require.True(t, receipt.Remaining.IsZero())
	require.Equal(t, "1000.000000000000000000", receipt.Withdrawn.String())

	_, ok, err := state.Position(position.ID)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestPartialUnstakeKeepsPosition(t *testing.T) {
	state := newMockEngineState()
	engine, clock := newTestEngine(state)

	position, err := engine.Stake("alice", amount.MustParse("1000"), "pool-1", 0)
	require.NoError(t, err)

	clock.Advance(time.Second)
	receipt, err := engine.Unstake("alice", position.ID, amount.MustParse("400"))
	require.NoError(t, err)
	require.False(t, receipt.Closed)
	require.Equal(t, "600.000000000000000000", receipt.Remaining.String())

	stored, ok, err := state.Position(position.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "600.000000000000000000", stored.StakedAmount.String())
}

func TestUnstakeBeforeLockEndFails(t *testing.T) {
	state := newMockEngineState()
	engine, clock := newTestEngine(state)

	position, err := engine.Stake("alice", amount.MustParse("1000"), "pool-3", 90)
	require.NoError(t, err)

	clock.Advance(89 * 24 * time.Hour)
	_, err = engine.Unstake("alice", position.ID, amount.MustParse("1"))
	require.ErrorIs(t, err, ErrStillLocked)

	// Position and balance are unchanged.
	stored, ok, err := state.Position(position.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "1000.000000000000000000", stored.StakedAmount.String())
}

func TestUnstakeValidation(t *testing.T) {
	state := newMockEngineState()
	engine, clock := newTestEngine(state)

	_, err := engine.Unstake("alice", "missing", amount.MustParse("1"))
	require.ErrorIs(t, err, ErrPositionNotFound)

	position, err := engine.Stake("alice", amount.MustParse("100"), "pool-1", 0)
	require.NoError(t, err)
	clock.Advance(time.Second)

	_, err = engine.Unstake("bob", position.ID, amount.MustParse("1"))
	require.ErrorIs(t, err, ErrPositionNotFound)

	_, err = engine.Unstake("alice", position.ID, amount.MustParse("101"))
	require.ErrorIs(t, err, ErrAmountExceedsBalance)

	_, err = engine.Stake("alice", amount.Zero(), "pool-1", 0)
	require.ErrorIs(t, err, amount.ErrInvalidAmount)
}

func TestAccrueComputesTimeWeightedRewards(t *testing.T) {
	state := newMockEngineState()
	engine, clock := newTestEngine(state)

	base, err := engine.Stake("alice", amount.MustParse("1000"), "pool-1", 0)
	require.NoError(t, err)
	boosted, err := engine.Stake("bob", amount.MustParse("1000"), "pool-3", 90)
	require.NoError(t, err)

	clock.Advance(1000 * time.Second)
	result, err := engine.Accrue()
	require.NoError(t, err)
	require.Equal(t, 2, result.Updated)
	require.Equal(t, 0, result.Skipped)
	require.Equal(t, clock.Now(), result.CompletedAt)

	// 1000 staked × 0.000034722/s × 1000s = 34.722 at 1.00x.
	stored, _, err := state.Position(base.ID)
	require.NoError(t, err)
	require.Equal(t, "34.722000000000000000", stored.PendingRewards.String())

	// The 90-day lock doubles the accrual.
	stored, _, err = state.Position(boosted.ID)
	require.NoError(t, err)
	require.Equal(t, "69.444000000000000000", stored.PendingRewards.String())

	// Staked balance and claimed totals are untouched.
	require.Equal(t, "1000.000000000000000000", stored.StakedAmount.String())
	require.True(t, stored.RewardDebt.IsZero())
}

func TestAccrueIsIdempotentForSameInstant(t *testing.T) {
	state := newMockEngineState()
	engine, clock := newTestEngine(state)

	position, err := engine.Stake("alice", amount.MustParse("500"), "pool-1", 0)
	require.NoError(t, err)
	clock.Advance(100 * time.Second)

	_, err = engine.Accrue()
	require.NoError(t, err)
	first, _, err := state.Position(position.ID)
	require.NoError(t, err)

	// Re-running at the same instant replaces, not accumulates.
	_, err = engine.Accrue()
	require.NoError(t, err)
	second, _, err := state.Position(position.ID)
	require.NoError(t, err)
	require.Equal(t, first.PendingRewards.String(), second.PendingRewards.String())
}

func TestClaimThenReaccrueDoesNotDoublePay(t *testing.T) {
	state := newMockEngineState()
	engine, clock := newTestEngine(state)

	position, err := engine.Stake("alice", amount.MustParse("1000"), "pool-1", 0)
	require.NoError(t, err)
	clock.Advance(1000 * time.Second)

	_, err = engine.Accrue()
	require.NoError(t, err)

	receipt, err := engine.Claim("alice", position.ID)
	require.NoError(t, err)
	require.Equal(t, "34.722000000000000000", receipt.Claimed.String())
	require.NotEmpty(t, receipt.TxHash)
	require.Len(t, state.distributions, 1)
	require.Equal(t, rewards.TypeStaking, state.distributions[0].RewardType)
	require.True(t, state.distributions[0].Claimed)

	// Immediately re-running accrual yields zero pending: lifetime earnings
	// minus the claimed total.
	_, err = engine.Accrue()
	require.NoError(t, err)
	stored, _, err := state.Position(position.ID)
	require.NoError(t, err)
	require.True(t, stored.PendingRewards.IsZero())
	require.Equal(t, "34.722000000000000000", stored.RewardDebt.String())

	// After more time passes only the incremental window is claimable.
	clock.Advance(1000 * time.Second)
	_, err = engine.Accrue()
	require.NoError(t, err)
	stored, _, err = state.Position(position.ID)
	require.NoError(t, err)
	require.Equal(t, "34.722000000000000000", stored.PendingRewards.String())

	second, err := engine.Claim("alice", position.ID)
	require.NoError(t, err)
	require.NotEqual(t, receipt.TxHash, second.TxHash)

	stored, _, err = state.Position(position.ID)
	require.NoError(t, err)
	require.Equal(t, "69.444000000000000000", stored.RewardDebt.String())
}

func TestFailedClaimLeavesNoPayoutRecord(t *testing.T) {
	state := newMockEngineState()
	engine, clock := newTestEngine(state)

	position, err := engine.Stake("alice", amount.MustParse("1000"), "pool-1", 0)
	require.NoError(t, err)
	clock.Advance(1000 * time.Second)
	_, err = engine.Accrue()
	require.NoError(t, err)

	// A write conflict rejects the whole claim: no payout record, position
	// untouched.
	state.claimErr = fmt.Errorf("version mismatch")
	_, err = engine.Claim("alice", position.ID)
	require.Error(t, err)
	require.Empty(t, state.distributions)

	stored, _, err := state.Position(position.ID)
	require.NoError(t, err)
	require.Equal(t, "34.722000000000000000", stored.PendingRewards.String())
	require.True(t, stored.RewardDebt.IsZero())

	// The retry pays the window exactly once.
	receipt, err := engine.Claim("alice", position.ID)
	require.NoError(t, err)
	require.Equal(t, "34.722000000000000000", receipt.Claimed.String())
	require.Len(t, state.distributions, 1)

	stored, _, err = state.Position(position.ID)
	require.NoError(t, err)
	require.Equal(t, "34.722000000000000000", stored.RewardDebt.String())
}

func TestClaimWithNothingPendingFails(t *testing.T) {
	state := newMockEngineState()
	engine, _ := newTestEngine(state)

	position, err := engine.Stake("alice", amount.MustParse("1000"), "pool-1", 0)
	require.NoError(t, err)

	_, err = engine.Claim("alice", position.ID)
	require.ErrorIs(t, err, ErrNothingToClaim)
	require.Empty(t, state.distributions)
}

func TestAccrueSkipsFailingPositions(t *testing.T) {
	state := newMockEngineState()
	engine, clock := newTestEngine(state)

	broken, err := engine.Stake("alice", amount.MustParse("100"), "pool-1", 0)
	require.NoError(t, err)
	_, err = engine.Stake("bob", amount.MustParse("100"), "pool-1", 0)
	require.NoError(t, err)

	state.putErrFor = broken.ID
	clock.Advance(10 * time.Second)

	result, err := engine.Accrue()
	require.NoError(t, err)
	require.Equal(t, 1, result.Updated)
	require.Equal(t, 1, result.Skipped)
}

func TestVotingWeightAppliesLockMultiplier(t *testing.T) {
	engine := NewEngine()
	weight := engine.VotingWeight(&Position{
		StakedAmount:   amount.MustParse("1000"),
		LockPeriodDays: 90,
		Active:         true,
	})
	require.Equal(t, "2000.000000000000000000", weight.String())

	weight = engine.VotingWeight(&Position{
		StakedAmount:   amount.MustParse("1000"),
		LockPeriodDays: 30,
		Active:         true,
	})
	require.Equal(t, "1500.000000000000000000", weight.String())

	weight = engine.VotingWeight(&Position{
		StakedAmount:   amount.MustParse("1000"),
		LockPeriodDays: 7,
		Active:         true,
	})
	require.Equal(t, "1000.000000000000000000", weight.String())

	require.True(t, engine.VotingWeight(nil).IsZero())
}

func TestStatsAndPendingSummary(t *testing.T) {
	state := newMockEngineState()
	engine, clock := newTestEngine(state)

	_, err := engine.Stake("alice", amount.MustParse("300"), "pool-1", 0)
	require.NoError(t, err)
	_, err = engine.Stake("alice", amount.MustParse("200"), "pool-2", 30)
	require.NoError(t, err)
	_, err = engine.Stake("bob", amount.MustParse("100"), "pool-1", 0)
	require.NoError(t, err)

	stats, err := engine.Stats()
	require.NoError(t, err)
	require.Equal(t, "600.000000000000000000", stats.TotalStaked.String())
	require.Equal(t, 3, stats.TotalStakers)
	require.Equal(t, "200.000000000000000000", stats.AverageStake.String())

	clock.Advance(100 * time.Second)
	_, err = engine.Accrue()
	require.NoError(t, err)

	summary, err := engine.PendingRewards("alice")
	require.NoError(t, err)
	require.Len(t, summary.Positions, 2)
	// 300 × rate × 100s × 1.0 + 200 × rate × 100s × 1.5
	want := amount.MustParse("300").Mul(amount.MustParse("0.000034722")).MulInt(100).
		Add(amount.MustParse("200").Mul(amount.MustParse("0.000034722")).MulInt(100).MulBps(15_000))
	require.Equal(t, want.String(), summary.Total.String())
}

func TestMultiplierTierSelection(t *testing.T) {
	tiers := DefaultTiers()
	require.EqualValues(t, 20_000, MultiplierBps(tiers, 365))
	require.EqualValues(t, 20_000, MultiplierBps(tiers, 90))
	require.EqualValues(t, 15_000, MultiplierBps(tiers, 89))
	require.EqualValues(t, 15_000, MultiplierBps(tiers, 30))
	require.EqualValues(t, 10_000, MultiplierBps(tiers, 29))
	require.EqualValues(t, 10_000, MultiplierBps(tiers, 0))
	require.EqualValues(t, 10_000, MultiplierBps(nil, 90))
}
