package governance

import stderrors "errors"

var (
	// ErrProposalNotFound signals an unknown proposal id.
	ErrProposalNotFound = stderrors.New("governance: proposal not found")
	// ErrProposalNotActive rejects operations that require an active proposal.
	ErrProposalNotActive = stderrors.New("governance: proposal not active")
	// ErrVotingClosed rejects ballots cast after the voting window elapsed.
	ErrVotingClosed = stderrors.New("governance: voting closed")
	// ErrDuplicateVote rejects a second ballot from the same voter.
	ErrDuplicateVote = stderrors.New("governance: duplicate vote")
	// ErrInsufficientVotingPower rejects proposals from under-powered proposers.
	ErrInsufficientVotingPower = stderrors.New("governance: insufficient voting power")
	// ErrProposalNotSucceeded rejects execution of proposals that did not pass.
	ErrProposalNotSucceeded = stderrors.New("governance: proposal not succeeded")
	// ErrNotProposer rejects cancellation by anyone but the proposer.
	ErrNotProposer = stderrors.New("governance: caller is not the proposer")
	// ErrVotingInProgress rejects finalization before the window closes.
	ErrVotingInProgress = stderrors.New("governance: voting still in progress")
	// ErrStateNotConfigured guards engine use before SetState wiring.
	ErrStateNotConfigured = stderrors.New("governance: state not configured")
)
