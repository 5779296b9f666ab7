package events

import (
	"strconv"
	"time"

	"cgiftledger/native/amount"
)

const (
	// TypeStaked is emitted when a new staking position is opened.
	TypeStaked = "staking.staked"
	// TypeUnstaked is emitted when a position is reduced or closed.
	TypeUnstaked = "staking.unstaked"
	// TypeRewardsAccrued is emitted after a batch accrual run completes.
	TypeRewardsAccrued = "staking.rewardsAccrued"
	// TypeRewardsClaimed is emitted when pending rewards are paid out.
	TypeRewardsClaimed = "staking.rewardsClaimed"
	// TypeLiquidityAdded is emitted when an LP position is opened.
	TypeLiquidityAdded = "liquidity.added"
	// TypeLiquidityRemoved is emitted when an LP position is reduced or closed.
	TypeLiquidityRemoved = "liquidity.removed"
)

// Staked captures a newly opened staking position.
type Staked struct {
	PositionID string
	Owner      string
	Amount     amount.Amount
	PoolID     string
	LockDays   uint32
	LockEnd    time.Time
}

func (Staked) EventType() string { return TypeStaked }

// Attributes renders the event payload for downstream consumers.
func (e Staked) Attributes() map[string]string {
	attrs := map[string]string{
		"position": e.PositionID,
		"owner":    e.Owner,
		"amount":   e.Amount.String(),
		"lockDays": strconv.FormatUint(uint64(e.LockDays), 10),
	}
	if e.PoolID != "" {
		attrs["pool"] = e.PoolID
	}
	if !e.LockEnd.IsZero() {
		attrs["lockEnd"] = strconv.FormatInt(e.LockEnd.Unix(), 10)
	}
	return attrs
}

// Unstaked captures a withdrawal from a staking position.
type Unstaked struct {
	PositionID string
	Owner      string
	Withdrawn  amount.Amount
	Remaining  amount.Amount
	Closed     bool
}

func (Unstaked) EventType() string { return TypeUnstaked }

// Attributes renders the event payload for downstream consumers.
func (e Unstaked) Attributes() map[string]string {
	return map[string]string{
		"position":  e.PositionID,
		"owner":     e.Owner,
		"withdrawn": e.Withdrawn.String(),
		"remaining": e.Remaining.String(),
		"closed":    strconv.FormatBool(e.Closed),
	}
}

// RewardsAccrued summarises one batch accrual run.
type RewardsAccrued struct {
	Kind        string
	Updated     int
	CompletedAt time.Time
}

func (RewardsAccrued) EventType() string { return TypeRewardsAccrued }

// Attributes renders the event payload for downstream consumers.
func (e RewardsAccrued) Attributes() map[string]string {
	return map[string]string{
		"kind":        e.Kind,
		"updated":     strconv.Itoa(e.Updated),
		"completedAt": strconv.FormatInt(e.CompletedAt.Unix(), 10),
	}
}

// RewardsClaimed captures a reward payout against a position.
type RewardsClaimed struct {
	PositionID string
	Recipient  string
	Amount     amount.Amount
	RewardType string
	TxHash     string
}

func (RewardsClaimed) EventType() string { return TypeRewardsClaimed }

// Attributes renders the event payload for downstream consumers.
func (e RewardsClaimed) Attributes() map[string]string {
	return map[string]string{
		"position":   e.PositionID,
		"recipient":  e.Recipient,
		"amount":     e.Amount.String(),
		"rewardType": e.RewardType,
		"txHash":     e.TxHash,
	}
}

// LiquidityAdded captures a newly opened LP position.
type LiquidityAdded struct {
	PositionID  string
	Owner       string
	PoolAddress string
	Amount      amount.Amount
}

func (LiquidityAdded) EventType() string { return TypeLiquidityAdded }

// Attributes renders the event payload for downstream consumers.
func (e LiquidityAdded) Attributes() map[string]string {
	return map[string]string{
		"position": e.PositionID,
		"owner":    e.Owner,
		"pool":     e.PoolAddress,
		"amount":   e.Amount.String(),
	}
}

// LiquidityRemoved captures a withdrawal from an LP position.
type LiquidityRemoved struct {
	PositionID string
	Owner      string
	Removed    amount.Amount
	Remaining  amount.Amount
	Closed     bool
}

func (LiquidityRemoved) EventType() string { return TypeLiquidityRemoved }

// Attributes renders the event payload for downstream consumers.
func (e LiquidityRemoved) Attributes() map[string]string {
	return map[string]string{
		"position":  e.PositionID,
		"owner":     e.Owner,
		"removed":   e.Removed.String(),
		"remaining": e.Remaining.String(),
		"closed":    strconv.FormatBool(e.Closed),
	}
}
