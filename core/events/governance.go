package events

import (
	"strconv"
	"time"

	"cgiftledger/native/amount"
)

const (
	// TypeProposalSubmitted is emitted when a new proposal is accepted.
	TypeProposalSubmitted = "gov.proposed"
	// TypeVoteCast is emitted when a voter records a ballot.
	TypeVoteCast = "gov.vote"
	// TypeProposalFinalized is emitted when the proposal outcome is decided.
	TypeProposalFinalized = "gov.finalized"
	// TypeProposalExecuted marks proposals whose payload has been applied.
	TypeProposalExecuted = "gov.executed"
	// TypeProposalCancelled marks proposals withdrawn by their proposer.
	TypeProposalCancelled = "gov.cancelled"
)

// ProposalSubmitted captures a newly admitted proposal.
type ProposalSubmitted struct {
	ProposalID uint64
	Proposer   string
	Title      string
	VotingEnd  time.Time
}

func (ProposalSubmitted) EventType() string { return TypeProposalSubmitted }

// Attributes renders the event payload for downstream consumers.
func (e ProposalSubmitted) Attributes() map[string]string {
	return map[string]string{
		"id":        strconv.FormatUint(e.ProposalID, 10),
		"proposer":  e.Proposer,
		"title":     e.Title,
		"votingEnd": strconv.FormatInt(e.VotingEnd.Unix(), 10),
	}
}

// VoteCast captures a recorded ballot and its snapshotted power.
type VoteCast struct {
	ProposalID uint64
	Voter      string
	Support    bool
	Power      amount.Amount
}

func (VoteCast) EventType() string { return TypeVoteCast }

// Attributes renders the event payload for downstream consumers.
func (e VoteCast) Attributes() map[string]string {
	return map[string]string{
		"id":      strconv.FormatUint(e.ProposalID, 10),
		"voter":   e.Voter,
		"support": strconv.FormatBool(e.Support),
		"power":   e.Power.String(),
	}
}

// ProposalFinalized captures a tallied outcome.
type ProposalFinalized struct {
	ProposalID   uint64
	Status       string
	VotesFor     amount.Amount
	VotesAgainst amount.Amount
}

func (ProposalFinalized) EventType() string { return TypeProposalFinalized }

// Attributes renders the event payload for downstream consumers.
func (e ProposalFinalized) Attributes() map[string]string {
	return map[string]string{
		"id":           strconv.FormatUint(e.ProposalID, 10),
		"status":       e.Status,
		"votesFor":     e.VotesFor.String(),
		"votesAgainst": e.VotesAgainst.String(),
	}
}

// ProposalExecuted marks a successful execution.
type ProposalExecuted struct {
	ProposalID uint64
	Caller     string
}

func (ProposalExecuted) EventType() string { return TypeProposalExecuted }

// Attributes renders the event payload for downstream consumers.
func (e ProposalExecuted) Attributes() map[string]string {
	return map[string]string{
		"id":     strconv.FormatUint(e.ProposalID, 10),
		"caller": e.Caller,
	}
}

// ProposalCancelled marks a proposer withdrawal.
type ProposalCancelled struct {
	ProposalID uint64
	Proposer   string
}

func (ProposalCancelled) EventType() string { return TypeProposalCancelled }

// Attributes renders the event payload for downstream consumers.
func (e ProposalCancelled) Attributes() map[string]string {
	return map[string]string{
		"id":       strconv.FormatUint(e.ProposalID, 10),
		"proposer": e.Proposer,
	}
}
