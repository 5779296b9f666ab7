package config

import (
	"cgiftledger/native/amount"
	"cgiftledger/native/fees"
	"cgiftledger/native/governance"
	"cgiftledger/native/staking"
	"cgiftledger/native/token"
)

// Callers must Validate before using these conversions; they assume the
// amount fields parse.

// Genesis returns the token supply parameters.
func (e Economics) Genesis() token.Genesis {
	return token.Genesis{
		Symbol:            e.Symbol,
		Name:              e.Name,
		TotalSupply:       amount.MustParse(e.TotalSupply),
		CirculatingSupply: amount.MustParse(e.CirculatingSupply),
	}
}

// StakingParams returns the staking engine parameters.
func (e Economics) StakingParams() staking.Params {
	params := staking.Params{
		RewardRatePerSecond: amount.MustParse(e.StakingRatePerSecond),
		Tiers:               e.Tiers(),
	}
	for _, pool := range e.Pools {
		params.Pools = append(params.Pools, staking.Pool{ID: pool.ID, Name: pool.Name})
	}
	return params
}

// LiquidityRate returns the per-second liquidity mining factor.
func (e Economics) LiquidityRate() amount.Amount {
	return amount.MustParse(e.LiquidityRatePerSecond)
}

// Tiers returns the lock multiplier schedule.
func (e Economics) Tiers() []staking.MultiplierTier {
	tiers := make([]staking.MultiplierTier, 0, len(e.LockMultipliers))
	for _, tier := range e.LockMultipliers {
		tiers = append(tiers, staking.MultiplierTier{
			MinLockDays:   tier.MinLockDays,
			MultiplierBps: tier.MultiplierBps,
		})
	}
	return tiers
}

// GovernancePolicy returns the proposal admission and quorum thresholds.
func (e Economics) GovernancePolicy() governance.Policy {
	return governance.Policy{
		MinProposalPower: amount.MustParse(e.MinProposalPower),
		QuorumRequired:   amount.MustParse(e.QuorumRequired),
		Tiers:            e.Tiers(),
	}
}

// SplitPolicy returns the fee waterfall shares.
func (e Economics) SplitPolicy() fees.SplitPolicy {
	return fees.SplitPolicy{
		StakingBps:   e.StakingFeeShareBps,
		LiquidityBps: e.LiquidityFeeShareBps,
		BurnBps:      e.BurnFeeShareBps,
		TreasuryBps:  e.TreasuryFeeShareBps,
	}
}
