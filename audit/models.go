package audit

import (
	"time"
)

// Amounts are persisted as canonical 18-decimal strings so the relational
// store never loses fixed-point precision to a float column.

// RewardRecord mirrors one reward distribution for history queries.
type RewardRecord struct {
	ID         string    `gorm:"primaryKey;size:36"`
	Recipient  string    `gorm:"index;size:128"`
	Amount     string    `gorm:"size:64"`
	RewardType string    `gorm:"index;size:16"`
	PoolID     string    `gorm:"size:128"`
	TxHash     string    `gorm:"uniqueIndex;size:80"`
	Claimed    bool      `gorm:""`
	CreatedAt  time.Time `gorm:"index"`
}

// TableName pins the table name independent of gorm pluralisation rules.
func (RewardRecord) TableName() string { return "reward_distributions" }

// BurnRecord mirrors one supply burn.
type BurnRecord struct {
	ID        string    `gorm:"primaryKey;size:36"`
	Symbol    string    `gorm:"index;size:16"`
	Amount    string    `gorm:"size:64"`
	Reason    string    `gorm:"size:256"`
	TxHash    string    `gorm:"uniqueIndex;size:80"`
	BurnedBy  string    `gorm:"index;size:128"`
	CreatedAt time.Time `gorm:"index"`
}

func (BurnRecord) TableName() string { return "token_burns" }

// FeeRecord mirrors one fee waterfall run.
type FeeRecord struct {
	ID               string    `gorm:"primaryKey;size:36"`
	TotalFees        string    `gorm:"size:64"`
	StakingRewards   string    `gorm:"size:64"`
	LiquidityRewards string    `gorm:"size:64"`
	BurnAmount       string    `gorm:"size:64"`
	TreasuryAmount   string    `gorm:"size:64"`
	TxHash           string    `gorm:"uniqueIndex;size:80"`
	DistributedBy    string    `gorm:"index;size:128"`
	CreatedAt        time.Time `gorm:"index"`
}

func (FeeRecord) TableName() string { return "fee_distributions" }
