package token

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"

	"cgiftledger/core/events"
	"cgiftledger/native/amount"
)

// ledgerState is the narrow persistence surface the supply ledger depends on.
type ledgerState interface {
	Token(symbol string) (*Token, bool, error)
	PutToken(t *Token) error
	RecordBurn(updated *Token, b *Burn) error
	NextTxHash(kind string) (string, error)
}

// Ledger tracks total, circulating, and burned supply for one token symbol
// under burn and treasury-reservation operations.
type Ledger struct {
	state   ledgerState
	emitter events.Emitter
	nowFn   func() time.Time
	genesis Genesis
}

// NewLedger constructs a supply ledger with default no-op dependencies and
// the provided genesis parameters.
func NewLedger(genesis Genesis) *Ledger {
	return &Ledger{
		emitter: events.NoopEmitter{},
		nowFn:   func() time.Time { return time.Now().UTC() },
		genesis: genesis,
	}
}

// SetState wires the ledger to its persistence backend.
func (l *Ledger) SetState(state ledgerState) { l.state = state }

// SetEmitter configures the event emitter. Nil resets to a no-op emitter.
func (l *Ledger) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		l.emitter = events.NoopEmitter{}
		return
	}
	l.emitter = emitter
}

// SetNowFunc overrides the time source. Nil restores the UTC clock.
func (l *Ledger) SetNowFunc(now func() time.Time) {
	if now == nil {
		l.nowFn = func() time.Time { return time.Now().UTC() }
		return
	}
	l.nowFn = now
}

func (l *Ledger) now() time.Time { return l.nowFn() }

func (l *Ledger) emit(evt events.Event) {
	if l.emitter != nil {
		l.emitter.Emit(evt)
	}
}

// Initialize creates the token record with genesis values when it does not
// exist yet. The operation is idempotent: an existing record is returned
// unchanged.
func (l *Ledger) Initialize() (*Token, error) {
	if l == nil || l.state == nil {
		return nil, ErrStateNotConfigured
	}
	existing, ok, err := l.state.Token(l.genesis.Symbol)
	if err != nil {
		return nil, err
	}
	if ok {
		return existing, nil
	}
	reserve, err := l.genesis.TotalSupply.Sub(l.genesis.CirculatingSupply)
	if err != nil {
		return nil, fmt.Errorf("token: circulating genesis exceeds total: %w", err)
	}
	created := &Token{
		Symbol:            l.genesis.Symbol,
		Name:              l.genesis.Name,
		TotalSupply:       l.genesis.TotalSupply,
		CirculatingSupply: l.genesis.CirculatingSupply,
		BurnedAmount:      amount.Zero(),
		TreasuryReserve:   reserve,
		Decimals:          amount.Decimals,
		Active:            true,
		CreatedAt:         l.now(),
	}
	if err := l.state.PutToken(created); err != nil {
		return nil, err
	}
	return created, nil
}

// Info returns the current token record.
func (l *Ledger) Info() (*Token, error) {
	if l == nil || l.state == nil {
		return nil, ErrStateNotConfigured
	}
	tok, ok, err := l.state.Token(l.genesis.Symbol)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrTokenNotFound
	}
	return tok, nil
}

// Burn destroys the supplied amount. Burns drain circulating supply first and
// spill into the treasury reserve, keeping the supply identity intact. The
// burned total only ever grows and an immutable audit record is appended with
// a fresh idempotency hash.
func (l *Ledger) Burn(caller string, amt amount.Amount, reason string) (*BurnReceipt, error) {
	if l == nil || l.state == nil {
		return nil, ErrStateNotConfigured
	}
	if amt.IsZero() {
		return nil, fmt.Errorf("%w: burn amount must be positive", amount.ErrInvalidAmount)
	}
	tok, err := l.Info()
	if err != nil {
		return nil, err
	}
	if amt.Cmp(tok.TotalSupply) > 0 {
		return nil, fmt.Errorf("%w: %s > %s", ErrBurnExceedsSupply, amt, tok.TotalSupply)
	}

	updated := tok.Clone()
	updated.TotalSupply, err = tok.TotalSupply.Sub(amt)
	if err != nil {
		return nil, err
	}
	if amt.Cmp(tok.CirculatingSupply) <= 0 {
		updated.CirculatingSupply, err = tok.CirculatingSupply.Sub(amt)
		if err != nil {
			return nil, err
		}
	} else {
		spill, err := amt.Sub(tok.CirculatingSupply)
		if err != nil {
			return nil, err
		}
		updated.CirculatingSupply = amount.Zero()
		updated.TreasuryReserve, err = tok.TreasuryReserve.Sub(spill)
		if err != nil {
			return nil, fmt.Errorf("%w: treasury cannot cover %s", ErrBurnExceedsSupply, spill)
		}
	}
	updated.BurnedAmount = tok.BurnedAmount.Add(amt)

	txHash, err := l.state.NextTxHash("burn")
	if err != nil {
		return nil, err
	}
	record := &Burn{
		ID:        uuid.NewString(),
		Symbol:    updated.Symbol,
		Amount:    amt,
		Reason:    strings.TrimSpace(reason),
		TxHash:    txHash,
		BurnedBy:  caller,
		CreatedAt: l.now(),
	}
	// Supply shrinkage and burn record commit together: a failed write must
	// not leave a reduced supply with no record, or vice versa.
	if err := l.state.RecordBurn(updated, record); err != nil {
		return nil, err
	}

	l.emit(events.TokenBurned{
		Symbol:         updated.Symbol,
		Amount:         amt,
		NewTotalSupply: updated.TotalSupply,
		Reason:         record.Reason,
		TxHash:         txHash,
	})
	return &BurnReceipt{Amount: amt, NewTotalSupply: updated.TotalSupply, TxHash: txHash}, nil
}

// ReserveTreasury moves the supplied amount from circulating supply into the
// treasury reserve. Total supply is unchanged.
func (l *Ledger) ReserveTreasury(amt amount.Amount) (*Token, error) {
	if l == nil || l.state == nil {
		return nil, ErrStateNotConfigured
	}
	if amt.IsZero() {
		return l.Info()
	}
	tok, err := l.Info()
	if err != nil {
		return nil, err
	}
	updated := tok.Clone()
	updated.CirculatingSupply, err = tok.CirculatingSupply.Sub(amt)
	if err != nil {
		return nil, err
	}
	updated.TreasuryReserve = tok.TreasuryReserve.Add(amt)
	if err := l.state.PutToken(updated); err != nil {
		return nil, err
	}
	l.emit(events.TreasuryReserved{
		Symbol:     updated.Symbol,
		Amount:     amt,
		NewReserve: updated.TreasuryReserve,
	})
	return updated, nil
}

// Metrics derives burn and circulation percentages from the current record.
func (l *Ledger) Metrics() (*Metrics, error) {
	tok, err := l.Info()
	if err != nil {
		return nil, err
	}
	metrics := &Metrics{
		TotalSupply:       tok.TotalSupply,
		CirculatingSupply: tok.CirculatingSupply,
		BurnedAmount:      tok.BurnedAmount,
		TreasuryReserve:   tok.TreasuryReserve,
	}
	if tok.TotalSupply.IsZero() {
		return metrics, nil
	}
	metrics.BurnPercentage = percentage(tok.BurnedAmount, tok.TotalSupply)
	metrics.CirculationPercentage = percentage(tok.CirculatingSupply, tok.TotalSupply)
	return metrics, nil
}

func percentage(part, whole amount.Amount) uint64 {
	scaled := new(big.Int).Mul(part.Units(), big.NewInt(100))
	return scaled.Quo(scaled, whole.Units()).Uint64()
}
