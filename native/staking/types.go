package staking

import (
	"time"

	"cgiftledger/native/amount"
)

// Position is one user's stake in a pool. StakedAmount never goes negative;
// a position is deleted outright (not zeroed) when a withdrawal drains it.
//
// RewardDebt is the running total of all-time claimed rewards. PendingRewards
// always equals lifetime earnings minus RewardDebt, recomputed from scratch
// by every accrual run, so a re-run directly after a claim yields zero.
type Position struct {
	ID             string        `json:"id"`
	Owner          string        `json:"owner"`
	StakedAmount   amount.Amount `json:"staked_amount"`
	RewardDebt     amount.Amount `json:"reward_debt"`
	PendingRewards amount.Amount `json:"pending_rewards"`
	PoolID         string        `json:"pool_id"`
	LockPeriodDays uint32        `json:"lock_period_days"`
	LockEnd        time.Time     `json:"lock_end"`
	Active         bool          `json:"active"`
	CreatedAt      time.Time     `json:"created_at"`
	Version        uint64        `json:"version"`
}

// Clone returns a deep copy so callers never alias stored state.
func (p *Position) Clone() *Position {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}

// MultiplierTier maps a minimum lock period to a reward/voting multiplier in
// basis points of 1.00x (10_000 = 1.00x).
type MultiplierTier struct {
	MinLockDays   uint32
	MultiplierBps uint32
}

// DefaultTiers returns the standard lock tiers: 2.00x at 90+ days, 1.50x at
// 30+ days, 1.00x otherwise.
func DefaultTiers() []MultiplierTier {
	return []MultiplierTier{
		{MinLockDays: 90, MultiplierBps: 20_000},
		{MinLockDays: 30, MultiplierBps: 15_000},
		{MinLockDays: 0, MultiplierBps: 10_000},
	}
}

// MultiplierBps resolves the multiplier for the given lock period against the
// supplied tiers. Tiers are evaluated in order; the first tier whose
// MinLockDays the lock period meets wins, so callers list tiers descending.
// An empty tier list yields 1.00x.
func MultiplierBps(tiers []MultiplierTier, lockDays uint32) uint32 {
	for _, tier := range tiers {
		if lockDays >= tier.MinLockDays {
			return tier.MultiplierBps
		}
	}
	return 10_000
}

// Pool describes one entry of the static staking pool catalog.
type Pool struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	APY            string        `json:"apy"`
	LockPeriodDays uint32        `json:"lock_period_days"`
	MinStake       amount.Amount `json:"min_stake"`
}

// UnstakeReceipt is the success payload returned by Unstake.
type UnstakeReceipt struct {
	Withdrawn amount.Amount `json:"withdrawn"`
	Remaining amount.Amount `json:"remaining"`
	Closed    bool          `json:"closed"`
}

// ClaimReceipt is the success payload returned by Claim.
type ClaimReceipt struct {
	Claimed amount.Amount `json:"claimed"`
	TxHash  string        `json:"tx_hash"`
}

// AccrualResult summarises one batch accrual run. Positions that failed to
// update are skipped rather than aborting the run, so Updated may be lower
// than the number of active positions.
type AccrualResult struct {
	Updated     int       `json:"updated"`
	Skipped     int       `json:"skipped"`
	CompletedAt time.Time `json:"completed_at"`
}

// PositionRewards pairs a position with its claimable balance.
type PositionRewards struct {
	PositionID     string        `json:"position_id"`
	StakedAmount   amount.Amount `json:"staked_amount"`
	PendingRewards amount.Amount `json:"pending_rewards"`
}

// PendingSummary aggregates claimable rewards across an owner's positions.
type PendingSummary struct {
	Total     amount.Amount     `json:"total"`
	Positions []PositionRewards `json:"positions"`
}

// Stats aggregates the active staking book.
type Stats struct {
	TotalStaked  amount.Amount `json:"total_staked"`
	TotalStakers int           `json:"total_stakers"`
	AverageStake amount.Amount `json:"average_stake"`
}
