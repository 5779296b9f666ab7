package config

import (
	"fmt"
	"time"

	"cgiftledger/native/amount"
)

// Validate checks the configuration for values the daemon cannot start with.
func (c *Config) Validate() error {
	if _, err := time.ParseDuration(c.AccrualInterval); err != nil {
		return fmt.Errorf("config: AccrualInterval: %w", err)
	}
	switch c.AuditDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("config: AuditDriver must be sqlite or postgres, got %q", c.AuditDriver)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: LogLevel must be debug, info, warn, or error, got %q", c.LogLevel)
	}

	eco := c.Economics
	for name, value := range map[string]string{
		"TotalSupply":            eco.TotalSupply,
		"CirculatingSupply":      eco.CirculatingSupply,
		"StakingRatePerSecond":   eco.StakingRatePerSecond,
		"LiquidityRatePerSecond": eco.LiquidityRatePerSecond,
		"MinProposalPower":       eco.MinProposalPower,
		"QuorumRequired":         eco.QuorumRequired,
	} {
		if _, err := amount.Parse(value); err != nil {
			return fmt.Errorf("config: Economics.%s: %w", name, err)
		}
	}

	total := amount.MustParse(eco.TotalSupply)
	circulating := amount.MustParse(eco.CirculatingSupply)
	if circulating.Cmp(total) > 0 {
		return fmt.Errorf("config: Economics.CirculatingSupply %s exceeds TotalSupply %s",
			circulating, total)
	}

	sum := eco.StakingFeeShareBps + eco.LiquidityFeeShareBps +
		eco.BurnFeeShareBps + eco.TreasuryFeeShareBps
	if sum != 10_000 {
		return fmt.Errorf("config: Economics fee shares sum to %d bps, want 10000", sum)
	}

	for i, tier := range eco.LockMultipliers {
		if tier.MultiplierBps == 0 {
			return fmt.Errorf("config: Economics.LockMultipliers[%d]: MultiplierBps must be positive", i)
		}
	}
	return nil
}

// AccrualIntervalDuration returns the parsed accrual ticker interval.
func (c *Config) AccrualIntervalDuration() time.Duration {
	d, err := time.ParseDuration(c.AccrualInterval)
	if err != nil {
		return time.Minute
	}
	return d
}
