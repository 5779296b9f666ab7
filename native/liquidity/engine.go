package liquidity

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

// engineState is the persistence surface the liquidity engine depends on.
type engineState interface {
	LiquidityPosition(id string) (*Position, bool, error)
	PutLiquidityPosition(p *Position) error
	DeleteLiquidityPosition(id string) error
	LiquidityPositionsByOwner(owner string) ([]*Position, error)
	ActiveLiquidityPositions() ([]*Position, error)
	RecordLiquidityClaim(d *rewards.Distribution, settled *Position) error
	NextTxHash(kind string) (string, error)
}

// Engine manages LP position lifecycle, reward accrual, and claims for
// liquidity mining. Rewards accrue flat (no lock multiplier): LP deposits
// carry no lock commitment to reward.
type Engine struct {
	state   engineState
	emitter events.Emitter
	nowFn   func() time.Time
	rate    amount.Amount
	log     *slog.Logger
}

// DefaultRewardRate is the per-second liquidity mining factor (~8.4% APY).
func DefaultRewardRate() amount.Amount {
	return amount.MustParse("0.000023148")
}

// NewEngine constructs a liquidity engine with default no-op dependencies.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() time.Time { return time.Now().UTC() },
		rate:    DefaultRewardRate(),
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

// SetRewardRate updates the per-second accrual factor. A zero rate restores
// the default.
func (e *Engine) SetRewardRate(rate amount.Amount) {
	if rate.IsZero() {
		rate = DefaultRewardRate()
	}
	e.rate = rate
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

// AddLiquidity opens a new LP position for the owner against a pool address.
func (e *Engine) AddLiquidity(owner, poolAddress string, amt amount.Amount) (*Position, error) {
	if e == nil || e.state == nil {
		return nil, ErrStateNotConfigured
	}
	if amt.IsZero() {
		return nil, fmt.Errorf("%w: LP token amount must be positive", amount.ErrInvalidAmount)
	}
	position := &Position{
		ID:             uuid.NewString(),
		Owner:          owner,
		PoolAddress:    poolAddress,
		LPTokenAmount:  amt,
		RewardDebt:     amount.Zero(),
		PendingRewards: amount.Zero(),
		Active:         true,
		CreatedAt:      e.now(),
	}
	if err := e.state.PutLiquidityPosition(position); err != nil {
		return nil, err
	}
	e.emit(events.LiquidityAdded{
		PositionID:  position.ID,
		Owner:       owner,
		PoolAddress: poolAddress,
		Amount:      amt,
	})
	return position, nil
}

// RemoveLiquidity withdraws LP tokens from the owner's position. There is no
// lock gate; a removal that drains the balance deletes the record.
func (e *Engine) RemoveLiquidity(owner, positionID string, amt amount.Amount) (*RemoveReceipt, error) {
	if e == nil || e.state == nil {
		return nil, ErrStateNotConfigured
	}
	position, err := e.ownedPosition(owner, positionID)
	if err != nil {
		return nil, err
	}
	if amt.Cmp(position.LPTokenAmount) > 0 {
		return nil, fmt.Errorf("%w: %s > %s", ErrAmountExceedsBalance, amt, position.LPTokenAmount)
	}
	remaining, err := position.LPTokenAmount.Sub(amt)
	if err != nil {
		return nil, err
	}
	closed := remaining.IsZero()
	if closed {
		if err := e.state.DeleteLiquidityPosition(position.ID); err != nil {
			return nil, err
		}
	} else {
		updated := position.Clone()
		updated.LPTokenAmount = remaining
		if err := e.state.PutLiquidityPosition(updated); err != nil {
			return nil, err
		}
	}
	e.emit(events.LiquidityRemoved{
		PositionID: position.ID,
		Owner:      owner,
		Removed:    amt,
		Remaining:  remaining,
		Closed:     closed,
	})
	return &RemoveReceipt{Removed: amt, Remaining: remaining, Closed: closed}, nil
}

// Accrue recomputes pending rewards for every active LP position. Failures
// on individual positions are logged and skipped; the run reports how many
// positions it actually updated.
func (e *Engine) Accrue() (*AccrualResult, error) {
	if e == nil || e.state == nil {
		return nil, ErrStateNotConfigured
	}
	positions, err := e.state.ActiveLiquidityPositions()
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
		if err := e.state.PutLiquidityPosition(updated); err != nil {
			result.Skipped++
			e.log.Warn("liquidity accrual skipped position",
				"position", position.ID, "err", err)
			continue
		}
		result.Updated++
	}
	e.emit(events.RewardsAccrued{
		Kind:        rewards.TypeLiquidity.String(),
		Updated:     result.Updated,
		CompletedAt: now,
	})
	return result, nil
}

func (e *Engine) pendingAt(position *Position, now time.Time) amount.Amount {
	elapsed := now.Unix() - position.CreatedAt.Unix()
	if elapsed <= 0 {
		return amount.Zero()
	}
	earned := position.LPTokenAmount.Mul(e.rate).MulInt(uint64(elapsed))
	pending, err := earned.Sub(position.RewardDebt)
	if err != nil {
		return amount.Zero()
	}
	return pending
}

// Claim pays out the position's pending rewards, mirroring the staking claim
// contract: an append-only distribution record, the claimed amount rolled
// into the all-time total, pending reset to zero.
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
	txHash, err := e.state.NextTxHash("liq-reward")
	if err != nil {
		return nil, err
	}
	record := &rewards.Distribution{
		ID:         uuid.NewString(),
		Recipient:  position.Owner,
		Amount:     claimed,
		RewardType: rewards.TypeLiquidity,
		PoolID:     position.PoolAddress,
		TxHash:     txHash,
		Claimed:    true,
		CreatedAt:  e.now(),
	}
	updated := position.Clone()
	updated.PendingRewards = amount.Zero()
	updated.RewardDebt = position.RewardDebt.Add(claimed)
	// Record and settled position commit together, matching the staking
	// claim contract.
	if err := e.state.RecordLiquidityClaim(record, updated); err != nil {
		return nil, err
	}
	e.emit(events.RewardsClaimed{
		PositionID: position.ID,
		Recipient:  position.Owner,
		Amount:     claimed,
		RewardType: rewards.TypeLiquidity.String(),
		TxHash:     txHash,
	})
	return &ClaimReceipt{Claimed: claimed, TxHash: txHash}, nil
}

// Positions lists the owner's active LP positions, newest first.
func (e *Engine) Positions(owner string) ([]*Position, error) {
	if e == nil || e.state == nil {
		return nil, ErrStateNotConfigured
	}
	positions, err := e.state.LiquidityPositionsByOwner(owner)
	if err != nil {
		return nil, err
	}
	sort.Slice(positions, func(i, j int) bool {
		return positions[i].CreatedAt.After(positions[j].CreatedAt)
	})
	return positions, nil
}

// Stats aggregates the active liquidity book.
func (e *Engine) Stats() (*Stats, error) {
	if e == nil || e.state == nil {
		return nil, ErrStateNotConfigured
	}
	positions, err := e.state.ActiveLiquidityPositions()
	if err != nil {
		return nil, err
	}
	stats := &Stats{TotalLPTokens: amount.Zero()}
	for _, position := range positions {
		if position == nil || !position.Active {
			continue
		}
		stats.TotalLPTokens = stats.TotalLPTokens.Add(position.LPTokenAmount)
		stats.TotalProviders++
	}
	return stats, nil
}

func (e *Engine) ownedPosition(owner, positionID string) (*Position, error) {
	position, ok, err := e.state.LiquidityPosition(positionID)
	if err != nil {
		return nil, err
	}
	if !ok || position == nil || position.Owner != owner {
		return nil, fmt.Errorf("%w: %s", ErrPositionNotFound, positionID)
	}
	return position, nil
}
