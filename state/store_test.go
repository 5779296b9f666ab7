package state

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"cgiftledger/native/amount"
	"cgiftledger/native/fees"
	"cgiftledger/native/governance"
	"cgiftledger/native/liquidity"
	"cgiftledger/native/rewards"
	"cgiftledger/native/staking"
	"cgiftledger/native/token"
	"cgiftledger/storage"
)

type recordingSink struct {
	burns   []*token.Burn
	rewards []*rewards.Distribution
	fees    []*fees.Distribution
}

func (r *recordingSink) RecordBurn(b *token.Burn) error {
	r.burns = append(r.burns, b)
	return nil
}

func (r *recordingSink) RecordReward(d *rewards.Distribution) error {
	r.rewards = append(r.rewards, d)
	return nil
}

func (r *recordingSink) RecordFeeDistribution(d *fees.Distribution) error {
	r.fees = append(r.fees, d)
	return nil
}

func newTestStore() *Store {
	return NewStore(storage.NewMemDB())
}

func TestTokenVersionFence(t *testing.T) {
	store := newTestStore()

	tok := &token.Token{
		Symbol:      "CGIFT",
		TotalSupply: amount.MustParse("1000"),
	}
	require.NoError(t, store.PutToken(tok))

	stored, ok, err := store.Token("CGIFT")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(1), stored.Version)

	// A write based on the current read succeeds and bumps the version.
	updated := stored.Clone()
	updated.TotalSupply = amount.MustParse("900")
	require.NoError(t, store.PutToken(updated))

	// Replaying the same stale version is rejected.
	err = store.PutToken(updated)
	require.ErrorIs(t, err, ErrConcurrentModification)

	_, ok, err = store.Token("OTHER")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestStakingPositionRoundTrip(t *testing.T) {
	store := newTestStore()

	position := &staking.Position{
		ID:             "pos-1",
		Owner:          "alice",
		StakedAmount:   amount.MustParse("1000"),
		LockPeriodDays: 90,
		Active:         true,
		CreatedAt:      time.Unix(1_700_000_000, 0).UTC(),
	}
	require.NoError(t, store.PutPosition(position))
	require.NoError(t, store.PutPosition(&staking.Position{
		ID: "pos-2", Owner: "bob", StakedAmount: amount.MustParse("5"), Active: true,
	}))

	stored, ok, err := store.Position("pos-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "1000.000000000000000000", stored.StakedAmount.String())

	owned, err := store.PositionsByOwner("alice")
	require.NoError(t, err)
	require.Len(t, owned, 1)
	require.Equal(t, "pos-1", owned[0].ID)

	active, err := store.ActivePositions()
	require.NoError(t, err)
	require.Len(t, active, 2)

	require.NoError(t, store.DeletePosition("pos-1"))
	_, ok, err = store.Position("pos-1")
	require.NoError(t, err)
	require.False(t, ok)
	owned, err = store.PositionsByOwner("alice")
	require.NoError(t, err)
	require.Empty(t, owned)

	// Deleting a missing position is a no-op.
	require.NoError(t, store.DeletePosition("pos-1"))
}

func TestVotingPowerViewFiltersInactive(t *testing.T) {
	store := newTestStore()

	require.NoError(t, store.PutPosition(&staking.Position{
		ID: "a", Owner: "alice", StakedAmount: amount.MustParse("10"), Active: true,
	}))
	require.NoError(t, store.PutPosition(&staking.Position{
		ID: "b", Owner: "alice", StakedAmount: amount.MustParse("20"), Active: false, Version: 0,
	}))

	positions, err := store.ActiveStakingPositions("alice")
	require.NoError(t, err)
	require.Len(t, positions, 1)
	require.Equal(t, "a", positions[0].ID)
}

func TestNextTxHashUnique(t *testing.T) {
	store := newTestStore()

	seen := make(map[string]bool)
	for i := 0; i < 10; i++ {
		hash, err := store.NextTxHash("burn")
		require.NoError(t, err)
		require.True(t, strings.HasPrefix(hash, "0x"))
		require.Len(t, hash, 66)
		require.False(t, seen[hash])
		seen[hash] = true
	}
}

func TestProposalAndVoteRoundTrip(t *testing.T) {
	store := newTestStore()

	id, err := store.NextProposalID()
	require.NoError(t, err)
	require.Equal(t, uint64(1), id)
	id, err = store.NextProposalID()
	require.NoError(t, err)
	require.Equal(t, uint64(2), id)

	proposal := &governance.Proposal{
		ID:       id,
		Title:    "Raise the rate",
		Proposer: "alice",
		Status:   governance.ProposalStatusActive,
	}
	require.NoError(t, store.PutProposal(proposal))

	stored, ok, err := store.Proposal(id)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(1), stored.Version)

	stale := proposal.Clone()
	stale.Version = 5
	require.ErrorIs(t, store.PutProposal(stale), ErrConcurrentModification)

	require.NoError(t, store.RecordVote(&governance.Vote{
		ID: "v1", ProposalID: id, Voter: "alice",
		VotingPower: amount.MustParse("2000"), Support: true,
	}, stored))

	stored, _, err = store.Proposal(id)
	require.NoError(t, err)
	require.NoError(t, store.RecordVote(&governance.Vote{
		ID: "v2", ProposalID: id, Voter: "bob",
		VotingPower: amount.MustParse("300"),
	}, stored))

	vote, ok, err := store.Vote(id, "alice")
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, vote.Support)

	_, ok, err = store.Vote(id, "carol")
	require.NoError(t, err)
	require.False(t, ok)

	votes, err := store.ListVotes(id)
	require.NoError(t, err)
	require.Len(t, votes, 2)

	all, err := store.Proposals()
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestRecordsForwardToAuditSink(t *testing.T) {
	store := newTestStore()
	sink := &recordingSink{}
	store.SetAuditSink(sink)

	require.NoError(t, store.PutToken(&token.Token{
		Symbol: "CGIFT", TotalSupply: amount.MustParse("1000"),
	}))
	tok, _, err := store.Token("CGIFT")
	require.NoError(t, err)
	require.NoError(t, store.RecordBurn(tok, &token.Burn{
		ID: "b1", Symbol: "CGIFT", Amount: amount.MustParse("200"),
	}))

	require.NoError(t, store.PutPosition(&staking.Position{
		ID: "pos-1", Owner: "alice", StakedAmount: amount.MustParse("1000"), Active: true,
	}))
	position, _, err := store.Position("pos-1")
	require.NoError(t, err)
	require.NoError(t, store.RecordClaim(&rewards.Distribution{
		ID: "r1", Recipient: "alice", Amount: amount.MustParse("34"),
		RewardType: rewards.TypeStaking,
	}, position))

	require.NoError(t, store.AppendFeeDistribution(&fees.Distribution{
		ID: "f1", TotalFees: amount.MustParse("1000"),
	}))

	require.Len(t, sink.burns, 1)
	require.Len(t, sink.rewards, 1)
	require.Len(t, sink.fees, 1)
	require.Equal(t, "b1", sink.burns[0].ID)
}

// countKeys scans a key prefix directly so the atomicity tests can assert that
// a conflicted write queued nothing.
func countKeys(t *testing.T, store *Store, prefix string) int {
	t.Helper()
	it := store.db.NewIterator([]byte(prefix))
	defer it.Release()
	n := 0
	for it.Next() {
		n++
	}
	return n
}

func TestConflictedVoteWritesNothing(t *testing.T) {
	store := newTestStore()

	proposal := &governance.Proposal{
		ID: 1, Title: "Raise the rate", Proposer: "alice",
		Status: governance.ProposalStatusActive,
	}
	require.NoError(t, store.PutProposal(proposal))
	current, _, err := store.Proposal(1)
	require.NoError(t, err)

	stale := current.Clone()
	stale.Version = 7
	stale.VotesFor = amount.MustParse("2000")
	err = store.RecordVote(&governance.Vote{
		ID: "v1", ProposalID: 1, Voter: "alice",
		VotingPower: amount.MustParse("2000"), Support: true,
	}, stale)
	require.ErrorIs(t, err, ErrConcurrentModification)

	// Neither the ballot nor the tally landed.
	_, ok, err := store.Vote(1, "alice")
	require.NoError(t, err)
	require.False(t, ok)
	stored, _, err := store.Proposal(1)
	require.NoError(t, err)
	require.True(t, stored.VotesFor.IsZero())
	require.Equal(t, current.Version, stored.Version)

	// The retry with the fresh version lands both.
	fresh := stored.Clone()
	fresh.VotesFor = amount.MustParse("2000")
	require.NoError(t, store.RecordVote(&governance.Vote{
		ID: "v1", ProposalID: 1, Voter: "alice",
		VotingPower: amount.MustParse("2000"), Support: true,
	}, fresh))
	_, ok, err = store.Vote(1, "alice")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestConflictedClaimWritesNothing(t *testing.T) {
	store := newTestStore()
	sink := &recordingSink{}
	store.SetAuditSink(sink)

	require.NoError(t, store.PutPosition(&staking.Position{
		ID: "pos-1", Owner: "alice", StakedAmount: amount.MustParse("1000"),
		PendingRewards: amount.MustParse("34"), Active: true,
	}))
	current, _, err := store.Position("pos-1")
	require.NoError(t, err)

	stale := current.Clone()
	stale.Version = 7
	stale.PendingRewards = amount.Zero()
	err = store.RecordClaim(&rewards.Distribution{
		ID: "r1", Recipient: "alice", Amount: amount.MustParse("34"),
		RewardType: rewards.TypeStaking,
	}, stale)
	require.ErrorIs(t, err, ErrConcurrentModification)

	// No payout record, no sink forward, pending untouched.
	require.Zero(t, countKeys(t, store, "rewards/"))
	require.Empty(t, sink.rewards)
	stored, _, err := store.Position("pos-1")
	require.NoError(t, err)
	require.Equal(t, "34.000000000000000000", stored.PendingRewards.String())

	fresh := stored.Clone()
	fresh.PendingRewards = amount.Zero()
	require.NoError(t, store.RecordClaim(&rewards.Distribution{
		ID: "r1", Recipient: "alice", Amount: amount.MustParse("34"),
		RewardType: rewards.TypeStaking,
	}, fresh))
	require.Equal(t, 1, countKeys(t, store, "rewards/"))
	require.Len(t, sink.rewards, 1)
}

func TestConflictedLiquidityClaimWritesNothing(t *testing.T) {
	store := newTestStore()

	require.NoError(t, store.PutLiquidityPosition(&liquidity.Position{
		ID: "lp-1", Owner: "alice", LPTokenAmount: amount.MustParse("1000"),
		PendingRewards: amount.MustParse("23"), Active: true,
	}))
	current, _, err := store.LiquidityPosition("lp-1")
	require.NoError(t, err)

	stale := current.Clone()
	stale.Version = 7
	err = store.RecordLiquidityClaim(&rewards.Distribution{
		ID: "r1", Recipient: "alice", Amount: amount.MustParse("23"),
		RewardType: rewards.TypeLiquidity,
	}, stale)
	require.ErrorIs(t, err, ErrConcurrentModification)
	require.Zero(t, countKeys(t, store, "rewards/"))

	stored, _, err := store.LiquidityPosition("lp-1")
	require.NoError(t, err)
	require.Equal(t, "23.000000000000000000", stored.PendingRewards.String())
}

func TestConflictedBurnWritesNothing(t *testing.T) {
	store := newTestStore()
	sink := &recordingSink{}
	store.SetAuditSink(sink)

	require.NoError(t, store.PutToken(&token.Token{
		Symbol: "CGIFT", TotalSupply: amount.MustParse("1000"),
	}))
	current, _, err := store.Token("CGIFT")
	require.NoError(t, err)

	stale := current.Clone()
	stale.Version = 7
	stale.TotalSupply = amount.MustParse("800")
	err = store.RecordBurn(stale, &token.Burn{
		ID: "b1", Symbol: "CGIFT", Amount: amount.MustParse("200"),
	})
	require.ErrorIs(t, err, ErrConcurrentModification)

	// Supply untouched, no burn record, nothing forwarded.
	require.Zero(t, countKeys(t, store, "burns/"))
	require.Empty(t, sink.burns)
	stored, _, err := store.Token("CGIFT")
	require.NoError(t, err)
	require.Equal(t, "1000.000000000000000000", stored.TotalSupply.String())
	require.Equal(t, current.Version, stored.Version)

	fresh := stored.Clone()
	fresh.TotalSupply = amount.MustParse("800")
	require.NoError(t, store.RecordBurn(fresh, &token.Burn{
		ID: "b1", Symbol: "CGIFT", Amount: amount.MustParse("200"),
	}))
	require.Equal(t, 1, countKeys(t, store, "burns/"))
	require.Len(t, sink.burns, 1)
}
