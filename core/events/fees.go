package events

import (
	"cgiftledger/native/amount"
)

// TypeFeesDistributed is emitted after one fee waterfall run commits.
const TypeFeesDistributed = "fees.distributed"

// FeesDistributed captures the bucket split of one fee distribution.
type FeesDistributed struct {
	TotalFees        amount.Amount
	StakingRewards   amount.Amount
	LiquidityRewards amount.Amount
	BurnAmount       amount.Amount
	TreasuryAmount   amount.Amount
	TxHash           string
}

func (FeesDistributed) EventType() string { return TypeFeesDistributed }

// Attributes renders the event payload for downstream consumers.
func (e FeesDistributed) Attributes() map[string]string {
	return map[string]string{
		"totalFees": e.TotalFees.String(),
		"staking":   e.StakingRewards.String(),
		"liquidity": e.LiquidityRewards.String(),
		"burn":      e.BurnAmount.String(),
		"treasury":  e.TreasuryAmount.String(),
		"txHash":    e.TxHash,
	}
}
