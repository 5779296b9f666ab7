package fees

import stderrors "errors"

var (
	// ErrInvalidSplit rejects split policies whose shares do not sum to 100%.
	ErrInvalidSplit = stderrors.New("fees: split shares must sum to 10000 bps")
	// ErrLedgerNotConfigured guards waterfall use before SetLedger wiring.
	ErrLedgerNotConfigured = stderrors.New("fees: supply ledger not configured")
	// ErrStateNotConfigured guards waterfall use before SetState wiring.
	ErrStateNotConfigured = stderrors.New("fees: state not configured")
)
