package fees

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"cgiftledger/core/events"
	"cgiftledger/native/amount"
	"cgiftledger/native/token"
)

// waterfallState is the persistence surface the fee waterfall depends on.
type waterfallState interface {
	AppendFeeDistribution(d *Distribution) error
	NextTxHash(kind string) (string, error)
}

// supplyLedger is the slice of the token ledger the waterfall needs: the
// burn share is destroyed and the treasury share is reserved as side effects
// of every distribution.
type supplyLedger interface {
	Burn(caller string, amt amount.Amount, reason string) (*token.BurnReceipt, error)
	ReserveTreasury(amt amount.Amount) (*token.Token, error)
}

// Waterfall splits collected protocol fees into staking rewards, liquidity
// rewards, an automatic burn, and a treasury reservation.
type Waterfall struct {
	state   waterfallState
	ledger  supplyLedger
	emitter events.Emitter
	nowFn   func() time.Time
	policy  SplitPolicy
}

// NewWaterfall constructs a fee waterfall with the default split and no-op
// dependencies.
func NewWaterfall() *Waterfall {
	return &Waterfall{
		emitter: events.NoopEmitter{},
		nowFn:   func() time.Time { return time.Now().UTC() },
		policy:  DefaultSplitPolicy(),
	}
}

// SetState wires the waterfall to its persistence backend.
func (w *Waterfall) SetState(state waterfallState) { w.state = state }

// SetLedger wires the waterfall to the supply ledger for burn and treasury
// side effects.
func (w *Waterfall) SetLedger(ledger supplyLedger) { w.ledger = ledger }

// SetEmitter configures the event emitter. Nil resets to a no-op emitter.
func (w *Waterfall) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		w.emitter = events.NoopEmitter{}
		return
	}
	w.emitter = emitter
}

// SetNowFunc overrides the time source. Nil restores the UTC clock.
func (w *Waterfall) SetNowFunc(now func() time.Time) {
	if now == nil {
		w.nowFn = func() time.Time { return time.Now().UTC() }
		return
	}
	w.nowFn = now
}

// SetPolicy replaces the split policy after validating it.
func (w *Waterfall) SetPolicy(policy SplitPolicy) error {
	if err := policy.Validate(); err != nil {
		return err
	}
	w.policy = policy
	return nil
}

// Policy returns the active split policy.
func (w *Waterfall) Policy() SplitPolicy { return w.policy }

func (w *Waterfall) emit(evt events.Event) {
	if w.emitter != nil {
		w.emitter.Emit(evt)
	}
}

// Distribute runs one waterfall pass over the collected total. The staking,
// liquidity, and burn shares are floor-scaled by their basis points and the
// treasury takes the exact remainder, so the buckets always reassemble the
// total. The burn executes against the supply ledger before the record is
// appended; a failed burn aborts the distribution.
func (w *Waterfall) Distribute(caller string, total amount.Amount) (*Distribution, error) {
	if w == nil || w.state == nil {
		return nil, ErrStateNotConfigured
	}
	if w.ledger == nil {
		return nil, ErrLedgerNotConfigured
	}
	if total.IsZero() {
		return nil, fmt.Errorf("%w: fee total must be positive", amount.ErrInvalidAmount)
	}

	staking := total.MulBps(w.policy.StakingBps)
	liquidity := total.MulBps(w.policy.LiquidityBps)
	burn := total.MulBps(w.policy.BurnBps)
	treasury := total
	for _, share := range []amount.Amount{staking, liquidity, burn} {
		remaining, err := treasury.Sub(share)
		if err != nil {
			return nil, err
		}
		treasury = remaining
	}

	if !burn.IsZero() {
		if _, err := w.ledger.Burn(caller, burn, burnReason); err != nil {
			return nil, fmt.Errorf("fees: auto-burn failed: %w", err)
		}
	}
	if _, err := w.ledger.ReserveTreasury(treasury); err != nil {
		return nil, fmt.Errorf("fees: treasury reservation failed: %w", err)
	}

	txHash, err := w.state.NextTxHash("fee-dist")
	if err != nil {
		return nil, err
	}
	record := &Distribution{
		ID:               uuid.NewString(),
		TotalFees:        total,
		StakingRewards:   staking,
		LiquidityRewards: liquidity,
		BurnAmount:       burn,
		TreasuryAmount:   treasury,
		TxHash:           txHash,
		DistributedBy:    caller,
		CreatedAt:        w.nowFn(),
	}
	if err := w.state.AppendFeeDistribution(record); err != nil {
		return nil, err
	}

	w.emit(events.FeesDistributed{
		TotalFees:        total,
		StakingRewards:   staking,
		LiquidityRewards: liquidity,
		BurnAmount:       burn,
		TreasuryAmount:   treasury,
		TxHash:           txHash,
	})
	return record, nil
}
