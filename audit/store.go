package audit

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"cgiftledger/native/amount"
	"cgiftledger/native/fees"
	"cgiftledger/native/rewards"
	"cgiftledger/native/token"
)

// Store keeps relational copies of append-only ledger records for paginated
// history and aggregate queries. The key-value store remains authoritative;
// this store only serves reads.
type Store struct {
	db *gorm.DB
}

// Open connects to the audit database and migrates the record tables. The
// driver is "sqlite" or "postgres"; for sqlite the DSN is a file path
// (":memory:" works for tests).
func Open(driver, dsn string) (*Store, error) {
	var dialector gorm.Dialector
	switch driver {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("audit: unsupported driver %q", driver)
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("audit: open %s: %w", driver, err)
	}
	if err := db.AutoMigrate(&RewardRecord{}, &BurnRecord{}, &FeeRecord{}); err != nil {
		return nil, fmt.Errorf("audit: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// RecordReward appends a reward distribution copy.
func (s *Store) RecordReward(d *rewards.Distribution) error {
	record := &RewardRecord{
		ID:         d.ID,
		Recipient:  d.Recipient,
		Amount:     d.Amount.String(),
		RewardType: d.RewardType.String(),
		PoolID:     d.PoolID,
		TxHash:     d.TxHash,
		Claimed:    d.Claimed,
		CreatedAt:  d.CreatedAt,
	}
	return s.db.Create(record).Error
}

// RecordBurn appends a burn copy.
func (s *Store) RecordBurn(b *token.Burn) error {
	record := &BurnRecord{
		ID:        b.ID,
		Symbol:    b.Symbol,
		Amount:    b.Amount.String(),
		Reason:    b.Reason,
		TxHash:    b.TxHash,
		BurnedBy:  b.BurnedBy,
		CreatedAt: b.CreatedAt,
	}
	return s.db.Create(record).Error
}

// RecordFeeDistribution appends a fee waterfall copy.
func (s *Store) RecordFeeDistribution(d *fees.Distribution) error {
	record := &FeeRecord{
		ID:               d.ID,
		TotalFees:        d.TotalFees.String(),
		StakingRewards:   d.StakingRewards.String(),
		LiquidityRewards: d.LiquidityRewards.String(),
		BurnAmount:       d.BurnAmount.String(),
		TreasuryAmount:   d.TreasuryAmount.String(),
		TxHash:           d.TxHash,
		DistributedBy:    d.DistributedBy,
		CreatedAt:        d.CreatedAt,
	}
	return s.db.Create(record).Error
}

// RewardHistory pages the recipient's reward records newest-first. An empty
// rewardType matches every type.
func (s *Store) RewardHistory(recipient, rewardType string, page, limit int) ([]*RewardRecord, int64, error) {
	page, limit = normalizePage(page, limit)
	query := s.db.Model(&RewardRecord{}).Where("recipient = ?", recipient)
	if rewardType != "" {
		query = query.Where("reward_type = ?", rewardType)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var records []*RewardRecord
	err := query.
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&records).Error
	return records, total, err
}

// BurnHistory pages all burn records newest-first.
func (s *Store) BurnHistory(page, limit int) ([]*BurnRecord, int64, error) {
	page, limit = normalizePage(page, limit)
	var total int64
	if err := s.db.Model(&BurnRecord{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var records []*BurnRecord
	err := s.db.
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&records).Error
	return records, total, err
}

// FeeHistory pages all fee distribution records newest-first.
func (s *Store) FeeHistory(page, limit int) ([]*FeeRecord, int64, error) {
	page, limit = normalizePage(page, limit)
	var total int64
	if err := s.db.Model(&FeeRecord{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var records []*FeeRecord
	err := s.db.
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&records).Error
	return records, total, err
}

// RewardStats sums the recipient's all-time rewards per type. Summation runs
// in Go over the canonical decimal strings because SQL numeric types cannot
// hold 18-decimal fixed point exactly.
func (s *Store) RewardStats(recipient string) (map[string]amount.Amount, error) {
	var records []*RewardRecord
	if err := s.db.Where("recipient = ?", recipient).Find(&records).Error; err != nil {
		return nil, err
	}
	stats := make(map[string]amount.Amount)
	for _, record := range records {
		amt, err := amount.Parse(record.Amount)
		if err != nil {
			return nil, fmt.Errorf("audit: corrupt amount on record %s: %w", record.ID, err)
		}
		current, ok := stats[record.RewardType]
		if !ok {
			current = amount.Zero()
		}
		stats[record.RewardType] = current.Add(amt)
	}
	return stats, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 10
	}
	return page, limit
}
