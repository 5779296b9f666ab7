package governance

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"cgiftledger/core/events"
	"cgiftledger/native/amount"
	"cgiftledger/native/staking"
)

// proposalState is the persistence surface the governance engine depends on.
// Voting power is derived live from the staking book, never cached, so a
// stake change is reflected by the very next power query.
type proposalState interface {
	NextProposalID() (uint64, error)
	PutProposal(p *Proposal) error
	Proposal(id uint64) (*Proposal, bool, error)
	Proposals() ([]*Proposal, error)
	RecordVote(v *Vote, updated *Proposal) error
	Vote(proposalID uint64, voter string) (*Vote, bool, error)
	ListVotes(proposalID uint64) ([]*Vote, error)
	ActiveStakingPositions(owner string) ([]*staking.Position, error)
}

// Policy captures the runtime knobs that control proposal admission and
// outcome evaluation.
type Policy struct {
	MinProposalPower amount.Amount
	QuorumRequired   amount.Amount
	Tiers            []staking.MultiplierTier
}

// DefaultPolicy returns the standard thresholds: 1000 power to propose,
// 10000 combined weight for quorum, default lock tiers.
func DefaultPolicy() Policy {
	return Policy{
		MinProposalPower: amount.MustParse("1000"),
		QuorumRequired:   amount.MustParse("10000"),
		Tiers:            staking.DefaultTiers(),
	}
}

// Engine orchestrates voting power derivation, proposal admission, vote
// bookkeeping, and the proposal state machine.
type Engine struct {
	state   proposalState
	emitter events.Emitter
	nowFn   func() time.Time
	policy  Policy
}

// NewEngine constructs a governance engine with default no-op dependencies.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() time.Time { return time.Now().UTC() },
		policy:  DefaultPolicy(),
	}
}

// SetState wires the engine to its persistence backend.
func (e *Engine) SetState(state proposalState) { e.state = state }

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

// SetPolicy updates the runtime policy. Zero thresholds fall back to the
// defaults so a partially populated policy cannot disable admission checks.
func (e *Engine) SetPolicy(policy Policy) {
	defaults := DefaultPolicy()
	if policy.MinProposalPower.IsZero() {
		policy.MinProposalPower = defaults.MinProposalPower
	}
	if policy.QuorumRequired.IsZero() {
		policy.QuorumRequired = defaults.QuorumRequired
	}
	if len(policy.Tiers) == 0 {
		policy.Tiers = defaults.Tiers
	}
	e.policy = policy
}

func (e *Engine) now() time.Time { return e.nowFn() }

func (e *Engine) emit(evt events.Event) {
	if e.emitter != nil {
		e.emitter.Emit(evt)
	}
}

// VotingPower derives the address's current power: the sum over its active
// staking positions of stake scaled by the lock multiplier. The value is a
// point-in-time snapshot with no time component and is recomputed on every
// call.
func (e *Engine) VotingPower(addr string) (*VotingPowerResult, error) {
	if e == nil || e.state == nil {
		return nil, ErrStateNotConfigured
	}
	positions, err := e.state.ActiveStakingPositions(addr)
	if err != nil {
		return nil, err
	}
	total := amount.Zero()
	counted := 0
	for _, position := range positions {
		if position == nil || !position.Active {
			continue
		}
		weight := position.StakedAmount.MulBps(staking.MultiplierBps(e.policy.Tiers, position.LockPeriodDays))
		total = total.Add(weight)
		counted++
	}
	return &VotingPowerResult{VotingPower: total, Positions: counted}, nil
}

// SubmitProposal admits a new proposal after checking the proposer's voting
// power against the minimum threshold. Admitted proposals open for voting
// immediately: votingStart is stamped now and the caller supplies the end of
// the window.
func (e *Engine) SubmitProposal(proposer, title, description string, votingEnd time.Time, executionData string) (*Proposal, error) {
	if e == nil || e.state == nil {
		return nil, ErrStateNotConfigured
	}
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("governance: proposal title must not be empty")
	}
	now := e.now()
	if !votingEnd.After(now) {
		return nil, fmt.Errorf("governance: voting end %s is not in the future", votingEnd.Format(time.RFC3339))
	}
	power, err := e.VotingPower(proposer)
	if err != nil {
		return nil, err
	}
	if power.VotingPower.Cmp(e.policy.MinProposalPower) < 0 {
		return nil, fmt.Errorf("%w: %s < %s", ErrInsufficientVotingPower, power.VotingPower, e.policy.MinProposalPower)
	}

	id, err := e.state.NextProposalID()
	if err != nil {
		return nil, err
	}
	proposal := &Proposal{
		ID:             id,
		Title:          strings.TrimSpace(title),
		Description:    description,
		Proposer:       proposer,
		VotesFor:       amount.Zero(),
		VotesAgainst:   amount.Zero(),
		QuorumRequired: e.policy.QuorumRequired,
		Status:         ProposalStatusActive,
		VotingStart:    now,
		VotingEnd:      votingEnd,
		ExecutionData:  executionData,
		CreatedAt:      now,
	}
	if err := e.state.PutProposal(proposal); err != nil {
		return nil, err
	}
	e.emit(events.ProposalSubmitted{
		ProposalID: id,
		Proposer:   proposer,
		Title:      proposal.Title,
		VotingEnd:  votingEnd,
	})
	return proposal, nil
}

// CastVote records the voter's ballot on an active proposal. The voter's
// current power is snapshotted into the immutable vote record and added to
// the matching tally in the same operation. A voter gets exactly one ballot
// per proposal regardless of support value.
func (e *Engine) CastVote(voter string, proposalID uint64, support bool, reason string) (*Vote, error) {
	if e == nil || e.state == nil {
		return nil, ErrStateNotConfigured
	}
	proposal, err := e.proposal(proposalID)
	if err != nil {
		return nil, err
	}
	if proposal.Status != ProposalStatusActive {
		return nil, fmt.Errorf("%w: proposal %d is %s", ErrProposalNotActive, proposalID, proposal.Status.StatusString())
	}
	now := e.now()
	if now.After(proposal.VotingEnd) {
		return nil, fmt.Errorf("%w: proposal %d closed at %s", ErrVotingClosed, proposalID, proposal.VotingEnd.Format(time.RFC3339))
	}
	if _, exists, err := e.state.Vote(proposalID, voter); err != nil {
		return nil, err
	} else if exists {
		return nil, fmt.Errorf("%w: %s on proposal %d", ErrDuplicateVote, voter, proposalID)
	}

	power, err := e.VotingPower(voter)
	if err != nil {
		return nil, err
	}
	vote := &Vote{
		ID:          uuid.NewString(),
		ProposalID:  proposalID,
		Voter:       voter,
		VotingPower: power.VotingPower,
		Support:     support,
		Reason:      reason,
		CastAt:      now,
	}
	updated := proposal.Clone()
	if support {
		updated.VotesFor = proposal.VotesFor.Add(vote.VotingPower)
	} else {
		updated.VotesAgainst = proposal.VotesAgainst.Add(vote.VotingPower)
	}
	// Ballot and tally commit together: a conflicted tally write must not
	// leave a ballot behind that blocks the retry as a duplicate.
	if err := e.state.RecordVote(vote, updated); err != nil {
		return nil, err
	}

	e.emit(events.VoteCast{
		ProposalID: proposalID,
		Voter:      voter,
		Support:    support,
		Power:      vote.VotingPower,
	})
	return vote, nil
}

// Finalize closes the voting window and transitions the proposal to
// Succeeded or Defeated. The proposal must be Active and the voting end must
// have elapsed. Succeeded requires a strict majority in favour and combined
// turnout meeting quorum.
func (e *Engine) Finalize(proposalID uint64) (ProposalStatus, *Tally, error) {
	if e == nil || e.state == nil {
		return ProposalStatusUnspecified, nil, ErrStateNotConfigured
	}
	proposal, err := e.proposal(proposalID)
	if err != nil {
		return ProposalStatusUnspecified, nil, err
	}
	if proposal.Status != ProposalStatusActive {
		return proposal.Status, nil, fmt.Errorf("%w: proposal %d is %s", ErrProposalNotActive, proposalID, proposal.Status.StatusString())
	}
	if e.now().Before(proposal.VotingEnd) {
		return ProposalStatusUnspecified, nil, fmt.Errorf("%w: proposal %d open until %s", ErrVotingInProgress, proposalID, proposal.VotingEnd.Format(time.RFC3339))
	}

	votes, err := e.state.ListVotes(proposalID)
	if err != nil {
		return ProposalStatusUnspecified, nil, err
	}
	turnout := proposal.VotesFor.Add(proposal.VotesAgainst)
	tally := &Tally{
		VotesFor:     proposal.VotesFor,
		VotesAgainst: proposal.VotesAgainst,
		Turnout:      turnout,
		Quorum:       proposal.QuorumRequired,
		MetQuorum:    turnout.Cmp(proposal.QuorumRequired) >= 0,
		TotalBallots: len(votes),
	}

	status := ProposalStatusDefeated
	if tally.MetQuorum && proposal.VotesFor.Cmp(proposal.VotesAgainst) > 0 {
		status = ProposalStatusSucceeded
	}

	updated := proposal.Clone()
	updated.Status = status
	if err := e.state.PutProposal(updated); err != nil {
		return ProposalStatusUnspecified, nil, err
	}
	e.emit(events.ProposalFinalized{
		ProposalID:   proposalID,
		Status:       status.StatusString(),
		VotesFor:     proposal.VotesFor,
		VotesAgainst: proposal.VotesAgainst,
	})
	return status, tally, nil
}

// Execute applies a succeeded proposal and transitions it to the terminal
// Executed state. Replaying execution fails: an Executed proposal is no
// longer Succeeded.
func (e *Engine) Execute(caller string, proposalID uint64) (*Proposal, error) {
	if e == nil || e.state == nil {
		return nil, ErrStateNotConfigured
	}
	proposal, err := e.proposal(proposalID)
	if err != nil {
		return nil, err
	}
	if proposal.Status == ProposalStatusExecuted {
		return nil, fmt.Errorf("%w: proposal %d already executed", ErrProposalNotSucceeded, proposalID)
	}
	if proposal.Status != ProposalStatusSucceeded {
		return nil, fmt.Errorf("%w: proposal %d is %s", ErrProposalNotSucceeded, proposalID, proposal.Status.StatusString())
	}
	updated := proposal.Clone()
	updated.Status = ProposalStatusExecuted
	if err := e.state.PutProposal(updated); err != nil {
		return nil, err
	}
	e.emit(events.ProposalExecuted{ProposalID: proposalID, Caller: caller})
	return updated, nil
}

// Cancel withdraws a proposal before its outcome is decided. Only the
// proposer may cancel, and only while the proposal is Pending or Active.
func (e *Engine) Cancel(caller string, proposalID uint64) (*Proposal, error) {
	if e == nil || e.state == nil {
		return nil, ErrStateNotConfigured
	}
	proposal, err := e.proposal(proposalID)
	if err != nil {
		return nil, err
	}
	if proposal.Proposer != caller {
		return nil, fmt.Errorf("%w: proposal %d", ErrNotProposer, proposalID)
	}
	if proposal.Status != ProposalStatusPending && proposal.Status != ProposalStatusActive {
		return nil, fmt.Errorf("%w: proposal %d is %s", ErrProposalNotActive, proposalID, proposal.Status.StatusString())
	}
	updated := proposal.Clone()
	updated.Status = ProposalStatusCancelled
	if err := e.state.PutProposal(updated); err != nil {
		return nil, err
	}
	e.emit(events.ProposalCancelled{ProposalID: proposalID, Proposer: caller})
	return updated, nil
}

// Proposal returns one proposal with its votes.
func (e *Engine) Proposal(proposalID uint64) (*Proposal, []*Vote, error) {
	if e == nil || e.state == nil {
		return nil, nil, ErrStateNotConfigured
	}
	proposal, err := e.proposal(proposalID)
	if err != nil {
		return nil, nil, err
	}
	votes, err := e.state.ListVotes(proposalID)
	if err != nil {
		return nil, nil, err
	}
	return proposal, votes, nil
}

// Proposals lists proposals newest-first, optionally filtered by status.
// Page numbering starts at 1; a non-positive limit defaults to 10.
func (e *Engine) Proposals(status ProposalStatus, page, limit int) (*ProposalPage, error) {
	if e == nil || e.state == nil {
		return nil, ErrStateNotConfigured
	}
	all, err := e.state.Proposals()
	if err != nil {
		return nil, err
	}
	filtered := make([]*Proposal, 0, len(all))
	for _, proposal := range all {
		if proposal == nil {
			continue
		}
		if status != ProposalStatusUnspecified && proposal.Status != status {
			continue
		}
		filtered = append(filtered, proposal)
	}
	sort.Slice(filtered, func(i, j int) bool {
		if filtered[i].CreatedAt.Equal(filtered[j].CreatedAt) {
			return filtered[i].ID > filtered[j].ID
		}
		return filtered[i].CreatedAt.After(filtered[j].CreatedAt)
	})
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 10
	}
	start := (page - 1) * limit
	end := start + limit
	if start > len(filtered) {
		start = len(filtered)
	}
	if end > len(filtered) {
		end = len(filtered)
	}
	return &ProposalPage{
		Proposals: filtered[start:end],
		Page:      page,
		Limit:     limit,
		Total:     len(filtered),
	}, nil
}

func (e *Engine) proposal(id uint64) (*Proposal, error) {
	proposal, ok, err := e.state.Proposal(id)
	if err != nil {
		return nil, err
	}
	if !ok || proposal == nil {
		return nil, fmt.Errorf("%w: %d", ErrProposalNotFound, id)
	}
	return proposal, nil
}
