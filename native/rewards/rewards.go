package rewards

import (
	"time"

	"cgiftledger/native/amount"
)

// Type tags the origin of a reward distribution.
type Type string

const (
	// TypeStaking marks rewards earned by staking positions.
	TypeStaking Type = "staking"
	// TypeLiquidity marks rewards earned by liquidity positions.
	TypeLiquidity Type = "liquidity"
	// TypeGovernance marks payouts originating from governance directives.
	TypeGovernance Type = "governance"
)

// Valid reports whether the type is a supported reward category.
func (t Type) Valid() bool {
	switch t {
	case TypeStaking, TypeLiquidity, TypeGovernance:
		return true
	default:
		return false
	}
}

// String implements fmt.Stringer.
func (t Type) String() string { return string(t) }

// Distribution is the immutable audit record of one reward payout. Records
// are append-only; the TxHash doubles as an idempotency token and is never
// reused across distributions.
type Distribution struct {
	ID         string        `json:"id"`
	Recipient  string        `json:"recipient"`
	Amount     amount.Amount `json:"amount"`
	RewardType Type          `json:"reward_type"`
	PoolID     string        `json:"pool_id"`
	TxHash     string        `json:"tx_hash"`
	Claimed    bool          `json:"claimed"`
	CreatedAt  time.Time     `json:"created_at"`
}
