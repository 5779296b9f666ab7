package fees

import (
	"time"

	"cgiftledger/native/amount"
)

// burnReason is stamped on the supply-ledger record for the auto-burn share.
const burnReason = "Automatic fee burn"

// SplitPolicy divides collected fees into four buckets, each expressed in
// basis points of the total. The shares must sum to exactly 10000.
type SplitPolicy struct {
	StakingBps   uint32 `json:"staking_bps"`
	LiquidityBps uint32 `json:"liquidity_bps"`
	BurnBps      uint32 `json:"burn_bps"`
	TreasuryBps  uint32 `json:"treasury_bps"`
}

// DefaultSplitPolicy returns the standard 40/30/20/10 waterfall.
func DefaultSplitPolicy() SplitPolicy {
	return SplitPolicy{
		StakingBps:   4000,
		LiquidityBps: 3000,
		BurnBps:      2000,
		TreasuryBps:  1000,
	}
}

// Validate rejects policies whose shares do not cover the whole fee.
func (p SplitPolicy) Validate() error {
	if p.StakingBps+p.LiquidityBps+p.BurnBps+p.TreasuryBps != 10_000 {
		return ErrInvalidSplit
	}
	return nil
}

// Distribution is the immutable record of one waterfall run. The treasury
// share absorbs any rounding remainder so the four buckets always sum back to
// the total.
type Distribution struct {
	ID               string        `json:"id"`
	TotalFees        amount.Amount `json:"total_fees"`
	StakingRewards   amount.Amount `json:"staking_rewards"`
	LiquidityRewards amount.Amount `json:"liquidity_rewards"`
	BurnAmount       amount.Amount `json:"burn_amount"`
	TreasuryAmount   amount.Amount `json:"treasury_amount"`
	TxHash           string        `json:"tx_hash"`
	DistributedBy    string        `json:"distributed_by"`
	CreatedAt        time.Time     `json:"created_at"`
}
