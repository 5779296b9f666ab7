package liquidity

import (
	"time"

	"cgiftledger/native/amount"
)

// Position is one user's LP token deposit against a pool address. Unlike
// staking positions there is no lock gate: removals are permitted at any
// time. A removal that drains the position deletes the record.
type Position struct {
	ID             string        `json:"id"`
	Owner          string        `json:"owner"`
	PoolAddress    string        `json:"pool_address"`
	LPTokenAmount  amount.Amount `json:"lp_token_amount"`
	RewardDebt     amount.Amount `json:"reward_debt"`
	PendingRewards amount.Amount `json:"pending_rewards"`
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

// RemoveReceipt is the success payload returned by RemoveLiquidity.
type RemoveReceipt struct {
	Removed   amount.Amount `json:"removed"`
	Remaining amount.Amount `json:"remaining"`
	Closed    bool          `json:"closed"`
}

// ClaimReceipt is the success payload returned by Claim.
type ClaimReceipt struct {
	Claimed amount.Amount `json:"claimed"`
	TxHash  string        `json:"tx_hash"`
}

// AccrualResult summarises one batch accrual run.
type AccrualResult struct {
	Updated     int       `json:"updated"`
	Skipped     int       `json:"skipped"`
	CompletedAt time.Time `json:"completed_at"`
}

// Stats aggregates the active liquidity book.
type Stats struct {
	TotalProviders int           `json:"total_providers"`
	TotalLPTokens  amount.Amount `json:"total_lp_tokens"`
}
