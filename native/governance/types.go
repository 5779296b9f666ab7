package governance

import (
	"time"

	"cgiftledger/native/amount"
)

// ProposalStatus enumerates the lifecycle phases a proposal transitions
// through: Pending → Active → {Succeeded, Defeated} → Executed, with
// Cancelled reachable from Pending or Active.
type ProposalStatus uint8

const (
	// ProposalStatusUnspecified indicates the proposal has not been
	// initialised and should not appear in state.
	ProposalStatusUnspecified ProposalStatus = iota
	// ProposalStatusPending marks proposals admitted but not yet open for
	// voting.
	ProposalStatusPending
	// ProposalStatusActive identifies proposals actively accepting votes.
	ProposalStatusActive
	// ProposalStatusSucceeded marks proposals that met quorum with a
	// majority in favour and are awaiting execution.
	ProposalStatusSucceeded
	// ProposalStatusDefeated marks proposals that failed quorum or the
	// majority requirement during the voting window.
	ProposalStatusDefeated
	// ProposalStatusExecuted indicates the proposal payload has been applied.
	ProposalStatusExecuted
	// ProposalStatusCancelled marks proposals withdrawn by their proposer.
	ProposalStatusCancelled
)

// StatusString provides a textual representation suitable for logs, events,
// and filters.
func (s ProposalStatus) StatusString() string {
	switch s {
	case ProposalStatusPending:
		return "pending"
	case ProposalStatusActive:
		return "active"
	case ProposalStatusSucceeded:
		return "succeeded"
	case ProposalStatusDefeated:
		return "defeated"
	case ProposalStatusExecuted:
		return "executed"
	case ProposalStatusCancelled:
		return "cancelled"
	default:
		return "unspecified"
	}
}

// ParseStatus resolves a textual status filter back to the enum. Unknown
// strings return ProposalStatusUnspecified.
func ParseStatus(s string) ProposalStatus {
	switch s {
	case "pending":
		return ProposalStatusPending
	case "active":
		return ProposalStatusActive
	case "succeeded":
		return ProposalStatusSucceeded
	case "defeated":
		return ProposalStatusDefeated
	case "executed":
		return ProposalStatusExecuted
	case "cancelled":
		return ProposalStatusCancelled
	default:
		return ProposalStatusUnspecified
	}
}

// Proposal captures the metadata, tallies, and state transitions of one
// governance proposal. Vote totals are fixed-point amounts of voting power,
// not ballot counts.
type Proposal struct {
	ID             uint64         `json:"id"`
	Title          string         `json:"title"`
	Description    string         `json:"description"`
	Proposer       string         `json:"proposer"`
	VotesFor       amount.Amount  `json:"votes_for"`
	VotesAgainst   amount.Amount  `json:"votes_against"`
	QuorumRequired amount.Amount  `json:"quorum_required"`
	Status         ProposalStatus `json:"status"`
	VotingStart    time.Time      `json:"voting_start"`
	VotingEnd      time.Time      `json:"voting_end"`
	ExecutionData  string         `json:"execution_data"`
	CreatedAt      time.Time      `json:"created_at"`
	Version        uint64         `json:"version"`
}

// Clone returns a deep copy so callers never alias stored state.
func (p *Proposal) Clone() *Proposal {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}

// Vote is a single participant's immutable ballot. VotingPower is a snapshot
// taken at cast time; later stake changes do not retroactively move tallies.
type Vote struct {
	ID          string        `json:"id"`
	ProposalID  uint64        `json:"proposal_id"`
	Voter       string        `json:"voter"`
	VotingPower amount.Amount `json:"voting_power"`
	Support     bool          `json:"support"`
	Reason      string        `json:"reason,omitempty"`
	CastAt      time.Time     `json:"cast_at"`
}

// Tally reports the outcome computation applied by Finalize.
type Tally struct {
	VotesFor     amount.Amount `json:"votes_for"`
	VotesAgainst amount.Amount `json:"votes_against"`
	Turnout      amount.Amount `json:"turnout"`
	Quorum       amount.Amount `json:"quorum"`
	MetQuorum    bool          `json:"met_quorum"`
	TotalBallots int           `json:"total_ballots"`
}

// VotingPowerResult pairs an address's derived power with the number of
// positions contributing to it.
type VotingPowerResult struct {
	VotingPower amount.Amount `json:"voting_power"`
	Positions   int           `json:"positions"`
}

// ProposalPage is one page of a newest-first proposal listing.
type ProposalPage struct {
	Proposals []*Proposal `json:"proposals"`
	Page      int         `json:"page"`
	Limit     int         `json:"limit"`
	Total     int         `json:"total"`
}
