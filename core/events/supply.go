package events

import (
	"cgiftledger/native/amount"
)

const (
	// TypeTokenBurned is emitted whenever supply is destroyed.
	TypeTokenBurned = "token.burned"
	// TypeTreasuryReserved is emitted when circulating supply moves into the
	// treasury reserve.
	TypeTreasuryReserved = "token.treasuryReserved"
)

// TokenBurned captures a supply burn.
type TokenBurned struct {
	Symbol         string
	Amount         amount.Amount
	NewTotalSupply amount.Amount
	Reason         string
	TxHash         string
}

func (TokenBurned) EventType() string { return TypeTokenBurned }

// Attributes renders the event payload for downstream consumers.
func (e TokenBurned) Attributes() map[string]string {
	attrs := map[string]string{
		"token":       e.Symbol,
		"amount":      e.Amount.String(),
		"totalSupply": e.NewTotalSupply.String(),
		"txHash":      e.TxHash,
	}
	if e.Reason != "" {
		attrs["reason"] = e.Reason
	}
	return attrs
}

// TreasuryReserved captures circulating supply moved into the treasury.
type TreasuryReserved struct {
	Symbol     string
	Amount     amount.Amount
	NewReserve amount.Amount
}

func (TreasuryReserved) EventType() string { return TypeTreasuryReserved }

// Attributes renders the event payload for downstream consumers.
func (e TreasuryReserved) Attributes() map[string]string {
	return map[string]string{
		"token":   e.Symbol,
		"amount":  e.Amount.String(),
		"reserve": e.NewReserve.String(),
	}
}
