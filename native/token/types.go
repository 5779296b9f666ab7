package token

import (
	"time"

	"cgiftledger/native/amount"
)

// Token is the singleton-per-symbol supply record. The ledger maintains the
// identity totalSupply == circulatingSupply + treasuryReserve at every write;
// burnedAmount is a monotonically non-decreasing audit counter that sits
// outside the identity because burns shrink totalSupply.
type Token struct {
	Symbol            string        `json:"symbol"`
	Name              string        `json:"name"`
	TotalSupply       amount.Amount `json:"total_supply"`
	CirculatingSupply amount.Amount `json:"circulating_supply"`
	BurnedAmount      amount.Amount `json:"burned_amount"`
	TreasuryReserve   amount.Amount `json:"treasury_reserve"`
	Decimals          uint8         `json:"decimals"`
	Active            bool          `json:"active"`
	CreatedAt         time.Time     `json:"created_at"`
	Version           uint64        `json:"version"`
}

// Clone returns a deep copy so callers never alias the stored record.
func (t *Token) Clone() *Token {
	if t == nil {
		return nil
	}
	clone := *t
	return &clone
}

// Burn is the immutable audit record of one burn event.
type Burn struct {
	ID        string        `json:"id"`
	Symbol    string        `json:"symbol"`
	Amount    amount.Amount `json:"amount"`
	Reason    string        `json:"reason"`
	TxHash    string        `json:"tx_hash"`
	BurnedBy  string        `json:"burned_by"`
	CreatedAt time.Time     `json:"created_at"`
}

// BurnReceipt is the success payload returned by Ledger.Burn.
type BurnReceipt struct {
	Amount         amount.Amount `json:"amount"`
	NewTotalSupply amount.Amount `json:"new_total_supply"`
	TxHash         string        `json:"tx_hash"`
}

// Metrics carries the derived supply percentages. Percentages are integer
// floor values and zero when totalSupply is zero.
type Metrics struct {
	TotalSupply           amount.Amount `json:"total_supply"`
	CirculatingSupply     amount.Amount `json:"circulating_supply"`
	BurnedAmount          amount.Amount `json:"burned_amount"`
	TreasuryReserve       amount.Amount `json:"treasury_reserve"`
	BurnPercentage        uint64        `json:"burn_percentage"`
	CirculationPercentage uint64        `json:"circulation_percentage"`
}

// Genesis fixes the supply values used when the token record is first
// created. TreasuryReserve is derived as total minus circulating so the
// supply identity holds from initialization.
type Genesis struct {
	Symbol            string
	Name              string
	TotalSupply       amount.Amount
	CirculatingSupply amount.Amount
}
