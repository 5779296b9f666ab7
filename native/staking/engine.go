package staking

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"cgiftledger/core/events"
	"cgiftledger/native/amount"
	"cgiftledger/native/rewards"
)

// engineState is the persistence surface the staking engine depends on. The
// engine holds no long-lived entity references; every operation reads the
// entities it needs, computes new state, and writes it back as one unit.
type engineState interface {
	Position(id string) (*Position, bool, error)
	PutPosition(p *Position) error
	DeletePosition(id string) error
	PositionsByOwner(owner string) ([]*Position, error)
	ActivePositions() ([]*Position, error)
	RecordClaim(d *rewards.Distribution, settled *Position) error
	NextTxHash(kind string) (string, error)
}

// Params captures the runtime economics applied by the engine. The reward
// rate is a per-second fixed-point factor; tiers are evaluated descending.
type Params struct {
	RewardRatePerSecond amount.Amount
	Tiers               []MultiplierTier
	Pools               []Pool
}

// DefaultParams returns the standard staking economics: ~12.5% APY base rate
// and the default lock tiers.
func DefaultParams() Params {
	return Params{
		RewardRatePerSecond: amount.MustParse("0.000034722"),
		Tiers:               DefaultTiers(),
	}
}

// Engine manages staking position lifecycle, reward accrual, and claims.
type Engine struct {
	state   engineState
	emitter events.Emitter
	nowFn   func() time.Time
	params  Params
	log     *slog.Logger
}

// NewEngine constructs a staking engine with default no-op dependencies.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() time.Time { return time.Now().UTC() },
		params:  DefaultParams(),
		log:     slog.Default(),
	}
}

// SetState wires the engine to its persistence backend.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetEmitter configures the event emitter. Nil resets to a no-op emitter.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source. Nil restores the UTC clock.
func (e *Engine) SetNowFunc(now func() time.Time) {
	if now == nil {
		e.nowFn = func() time.Time { return time.Now().UTC() }
		return
	}
	e.nowFn = now
}

// SetParams updates the runtime economics.
func (e *Engine) SetParams(params Params) {
	if params.RewardRatePerSecond.IsZero() {
		params.RewardRatePerSecond = DefaultParams().RewardRatePerSecond
	}
	if len(params.Tiers) == 0 {
		params.Tiers = DefaultTiers()
	}
	e.params = params
}

// SetLogger overrides the structured logger. Nil restores the default.
func (e *Engine) SetLogger(log *slog.Logger) {
	if log == nil {
		log = slog.Default()
	}
	e.log = log
}

func (e *Engine) now() time.Time { return e.nowFn() }

func (e *Engine) emit(evt events.Event) {
	if e.emitter != nil {
		e.emitter.Emit(evt)
	}
}

// Stake opens a new position for the owner. The amount must be positive; the
// lock end is lockDays from now and gates withdrawals until it elapses.
func (e *Engine) Stake(owner string, amt amount.Amount, poolID string, lockDays uint32) (*Position, error) {
	if e == nil || e.state == nil {
		return nil, ErrStateNotConfigured
	}
	if amt.IsZero() {
		return nil, fmt.Errorf("%w: stake amount must be positive", amount.ErrInvalidAmount)
	}
	now := e.now()
	position := &Position{
		ID:             uuid.NewString(),
		Owner:          owner,
		StakedAmount:   amt,
		RewardDebt:     amount.Zero(),
		PendingRewards: amount.Zero(),
		PoolID:         poolID,
		LockPeriodDays: lockDays,
		LockEnd:        now.AddDate(0, 0, int(lockDays)),
		Active:         true,
		CreatedAt:      now,
	}
	if err := e.state.PutPosition(position); err != nil {
		return nil, err
	}
	e.emit(events.Staked{
		PositionID: position.ID,
		Owner:      owner,
		Amount:     amt,
		PoolID:     poolID,
		LockDays:   lockDays,
		LockEnd:    position.LockEnd,
	})
	return position, nil
}

// Unstake withdraws the requested amount from the owner's position. The lock
// period must have elapsed and the amount must not exceed the staked balance.
// A withdrawal that drains the position exactly deletes the record.
func (e *Engine) Unstake(owner, positionID string, amt amount.Amount) (*UnstakeReceipt, error) {
	if e == nil || e.state == nil {
		return nil, ErrStateNotConfigured
	}
	position, err := e.ownedPosition(owner, positionID)
	if err != nil {
		return nil, err
	}
	if e.now().Before(position.LockEnd) {
		return nil, fmt.Errorf("%w until %s", ErrStillLocked, position.LockEnd.Format(time.RFC3339))
	}
	if amt.Cmp(position.StakedAmount) > 0 {
		return nil, fmt.Errorf("%w: %s > %s", ErrAmountExceedsBalance, amt, position.StakedAmount)
	}
	remaining, err := position.StakedAmount.Sub(amt)
	if err != nil {
		return nil, err
	}
	closed := remaining.IsZero()
	if closed {
		if err := e.state.DeletePosition(position.ID); err != nil {
			return nil, err
		}
	} else {
		updated := position.Clone()
		updated.StakedAmount = remaining
		if err := e.state.PutPosition(updated); err != nil {
			return nil, err
		}
	}
	e.emit(events.Unstaked{
		PositionID: position.ID,
		Owner:      owner,
		Withdrawn:  amt,
		Remaining:  remaining,
		Closed:     closed,
	})
	return &UnstakeReceipt{Withdrawn: amt, Remaining: remaining, Closed: closed}, nil
}

// Accrue recomputes pending rewards for every active position. Each position
// is processed independently; a failure on one is logged and skipped so the
// run still makes progress on the rest. Accrual overwrites PendingRewards
// with lifetime earnings minus all-time claimed and never touches the staked
// balance.
func (e *Engine) Accrue() (*AccrualResult, error) {
	if e == nil || e.state == nil {
		return nil, ErrStateNotConfigured
	}
	positions, err := e.state.ActivePositions()
	if err != nil {
		return nil, err
	}
	now := e.now()
	result := &AccrualResult{CompletedAt: now}
	for _, position := range positions {
		if position == nil || !position.Active {
			continue
		}
		updated := position.Clone()
		updated.PendingRewards = e.pendingAt(position, now)
		if err := e.state.PutPosition(updated); err != nil {
			result.Skipped++
			e.log.Warn("staking accrual skipped position",
				"position", position.ID, "err", err)
			continue
		}
		result.Updated++
	}
	e.emit(events.RewardsAccrued{
		Kind:        rewards.TypeStaking.String(),
		Updated:     result.Updated,
		CompletedAt: now,
	})
	return result, nil
}

// pendingAt computes the claimable balance at the given instant: staked ×
// rate × elapsed × multiplier, less the all-time claimed total, floored at
// zero. Elapsed time is measured from position creation.
func (e *Engine) pendingAt(position *Position, now time.Time) amount.Amount {
	elapsed := now.Unix() - position.CreatedAt.Unix()
	if elapsed <= 0 {
		return amount.Zero()
	}
	earned := position.StakedAmount.
		Mul(e.params.RewardRatePerSecond).
		MulInt(uint64(elapsed)).
		MulBps(MultiplierBps(e.params.Tiers, position.LockPeriodDays))
	pending, err := earned.Sub(position.RewardDebt)
	if err != nil {
		// Claimed total exceeds recomputed earnings (e.g. after a rate
		// reduction); nothing further is claimable.
		return amount.Zero()
	}
	return pending
}

// Claim pays out the position's pending rewards. An immutable distribution
// record is appended with a fresh idempotency hash, the claimed amount moves
// into the all-time claimed total, and pending resets to zero so the next
// accrual run cannot re-pay the same window.
func (e *Engine) Claim(owner, positionID string) (*ClaimReceipt, error) {
	if e == nil || e.state == nil {
		return nil, ErrStateNotConfigured
	}
	position, err := e.ownedPosition(owner, positionID)
	if err != nil {
		return nil, err
	}
	if position.PendingRewards.IsZero() {
		return nil, ErrNothingToClaim
	}
	claimed := position.PendingRewards
	txHash, err := e.state.NextTxHash("reward")
	if err != nil {
		return nil, err
	}
	record := &rewards.Distribution{
		ID:         uuid.NewString(),
		Recipient:  position.Owner,
		Amount:     claimed,
		RewardType: rewards.TypeStaking,
		PoolID:     position.PoolID,
		TxHash:     txHash,
		Claimed:    true,
		CreatedAt:  e.now(),
	}
	updated := position.Clone()
	updated.PendingRewards = amount.Zero()
	updated.RewardDebt = position.RewardDebt.Add(claimed)
	// Record and settled position commit together: a failed settlement must
	// not leave a payout record that pays the same window twice on retry.
	if err := e.state.RecordClaim(record, updated); err != nil {
		return nil, err
	}
	e.emit(events.RewardsClaimed{
		PositionID: position.ID,
		Recipient:  position.Owner,
		Amount:     claimed,
		RewardType: rewards.TypeStaking.String(),
		TxHash:     txHash,
	})
	return &ClaimReceipt{Claimed: claimed, TxHash: txHash}, nil
}

// Positions lists the owner's active positions, newest first.
func (e *Engine) Positions(owner string) ([]*Position, error) {
	if e == nil || e.state == nil {
		return nil, ErrStateNotConfigured
	}
	positions, err := e.state.PositionsByOwner(owner)
	if err != nil {
		return nil, err
	}
	sort.Slice(positions, func(i, j int) bool {
		return positions[i].CreatedAt.After(positions[j].CreatedAt)
	})
	return positions, nil
}

// PendingRewards aggregates the owner's claimable balance across positions.
func (e *Engine) PendingRewards(owner string) (*PendingSummary, error) {
	positions, err := e.Positions(owner)
	if err != nil {
		return nil, err
	}
	summary := &PendingSummary{Total: amount.Zero()}
	for _, position := range positions {
		summary.Total = summary.Total.Add(position.PendingRewards)
		summary.Positions = append(summary.Positions, PositionRewards{
			PositionID:     position.ID,
			StakedAmount:   position.StakedAmount,
			PendingRewards: position.PendingRewards,
		})
	}
	return summary, nil
}

// Stats aggregates the active staking book.
func (e *Engine) Stats() (*Stats, error) {
	if e == nil || e.state == nil {
		return nil, ErrStateNotConfigured
	}
	positions, err := e.state.ActivePositions()
	if err != nil {
		return nil, err
	}
	stats := &Stats{TotalStaked: amount.Zero(), AverageStake: amount.Zero()}
	for _, position := range positions {
		if position == nil || !position.Active {
			continue
		}
		stats.TotalStaked = stats.TotalStaked.Add(position.StakedAmount)
		stats.TotalStakers++
	}
	if stats.TotalStakers > 0 {
		average, err := stats.TotalStaked.DivInt(uint64(stats.TotalStakers))
		if err != nil {
			return nil, err
		}
		stats.AverageStake = average
	}
	return stats, nil
}

// Pools returns the configured pool catalog.
func (e *Engine) Pools() []Pool {
	pools := make([]Pool, len(e.params.Pools))
	copy(pools, e.params.Pools)
	return pools
}

// VotingWeight resolves the governance weight contributed by one position:
// staked amount scaled by the lock multiplier, no time component.
func (e *Engine) VotingWeight(position *Position) amount.Amount {
	if position == nil || !position.Active {
		return amount.Zero()
	}
	return position.StakedAmount.MulBps(MultiplierBps(e.params.Tiers, position.LockPeriodDays))
}

func (e *Engine) ownedPosition(owner, positionID string) (*Position, error) {
	position, ok, err := e.state.Position(positionID)
	if err != nil {
		return nil, err
	}
	// A foreign owner is reported as not-found rather than leaking that the
	// position exists.
	if !ok || position == nil || position.Owner != owner {
		return nil, fmt.Errorf("%w: %s", ErrPositionNotFound, positionID)
	}
	return position, nil
}
