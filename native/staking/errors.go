package staking

import stderrors "errors"

var (
	// ErrPositionNotFound signals an unknown or foreign position id.
	ErrPositionNotFound = stderrors.New("staking: position not found")
	// ErrStillLocked rejects withdrawals before the lock period elapses.
	ErrStillLocked = stderrors.New("staking: tokens are still locked")
	// ErrAmountExceedsBalance rejects withdrawals above the staked balance.
	ErrAmountExceedsBalance = stderrors.New("staking: amount exceeds staked balance")
	// ErrNothingToClaim rejects claims when no rewards are pending.
	ErrNothingToClaim = stderrors.New("staking: nothing to claim")
	// ErrStateNotConfigured guards engine use before SetState wiring.
	ErrStateNotConfigured = stderrors.New("staking: state not configured")
)
