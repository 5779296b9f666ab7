package liquidity

import stderrors "errors"

var (
	// ErrPositionNotFound signals an unknown or foreign position id.
	ErrPositionNotFound = stderrors.New("liquidity: position not found")
	// ErrAmountExceedsBalance rejects removals above the LP token balance.
	ErrAmountExceedsBalance = stderrors.New("liquidity: amount exceeds LP balance")
	// ErrNothingToClaim rejects claims when no rewards are pending.
	ErrNothingToClaim = stderrors.New("liquidity: nothing to claim")
	// ErrStateNotConfigured guards engine use before SetState wiring.
	ErrStateNotConfigured = stderrors.New("liquidity: state not configured")
)
