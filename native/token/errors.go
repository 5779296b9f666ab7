package token

import stderrors "errors"

var (
	// ErrBurnExceedsSupply rejects burns larger than the current total supply.
	ErrBurnExceedsSupply = stderrors.New("token: burn exceeds total supply")
	// ErrTokenNotFound signals the token record has not been initialized.
	ErrTokenNotFound = stderrors.New("token: token not found")
	// ErrStateNotConfigured guards ledger use before SetState wiring.
	ErrStateNotConfigured = stderrors.New("token: state not configured")
)
