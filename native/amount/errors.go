package amount

import stderrors "errors"

var (
	// ErrInvalidAmount rejects malformed or non-positive decimal inputs.
	ErrInvalidAmount = stderrors.New("amount: invalid amount")
	// ErrUnderflow signals a subtraction that would produce a negative value.
	ErrUnderflow = stderrors.New("amount: underflow")
	// ErrDivisionByZero guards the integer division helpers.
	ErrDivisionByZero = stderrors.New("amount: division by zero")
)
