// Package round implements the state of a single consensus round.
//
// A Round is not safe for concurrent use; the engine serializes all access to it.
package round

import (
	"sort"
	"time"

	"github.com/icn-network/poc"
)

// Round is the state of one consensus round.
type Round struct {
	number   uint64
	phase    Phase
	proposer poc.DID
	block    *poc.Block
	votes    map[poc.DID]bool
	started  time.Time
}

// New returns a round in the Initializing phase.
func New(number uint64, started time.Time) *Round {
	return &Round{
		number:  number,
		phase:   Initializing,
		votes:   make(map[poc.DID]bool),
		started: started,
	}
}

// Number returns the round number.
func (r *Round) Number() uint64 { return r.number }

// Phase returns the current phase.
func (r *Round) Phase() Phase { return r.phase }

// Proposer returns the selected proposer, or the empty DID if none was selected.
func (r *Round) Proposer() poc.DID { return r.proposer }

// Block returns the proposed block, or nil.
func (r *Round) Block() *poc.Block { return r.block }

// Started returns the start time of the round.
func (r *Round) Started() time.Time { return r.started }

// Terminal returns true if the round has committed or failed.
func (r *Round) Terminal() bool { return r.phase.Terminal() }

func (r *Round) fire(t Trigger) error {
	next, err := r.phase.Next(t)
	if err != nil {
		return err
	}
	r.phase = next
	return nil
}

// SelectProposer sets the proposer and moves the round to the proposal phase.
func (r *Round) SelectProposer(did poc.DID) error {
	if err := r.fire(ProposerSelected); err != nil {
		return err
	}
	r.proposer = did
	return nil
}

// Propose attaches a block and moves the round to the voting phase.
// The block must have been validated by the caller.
func (r *Round) Propose(block *poc.Block) error {
	if err := r.fire(BlockAccepted); err != nil {
		return err
	}
	r.block = block
	return nil
}

// AddVote records a vote. Only the last vote of each voter counts.
// It returns false if the round is not in the voting phase.
func (r *Round) AddVote(voter poc.DID, approve bool) bool {
	if r.phase != VotingPhase {
		return false
	}
	r.votes[voter] = approve
	return true
}

// Vote returns the recorded vote of the voter.
func (r *Round) Vote(voter poc.DID) (approve, ok bool) {
	approve, ok = r.votes[voter]
	return approve, ok
}

// Voters returns the DIDs of all voters in lexicographic order.
func (r *Round) Voters() []poc.DID {
	voters := make([]poc.DID, 0, len(r.votes))
	for did := range r.votes {
		voters = append(voters, did)
	}
	sort.Slice(voters, func(i, j int) bool { return voters[i] < voters[j] })
	return voters
}

// Approvers returns the DIDs of the validators that approved the block, in lexicographic order.
func (r *Round) Approvers() []poc.DID {
	var approvers []poc.DID
	for _, did := range r.Voters() {
		if r.votes[did] {
			approvers = append(approvers, did)
		}
	}
	return approvers
}

// Tally is the reputation-weighted count of the votes in a round.
type Tally struct {
	Approve float64
	Reject  float64
}

// Participation returns the reputation of all voters.
func (t Tally) Participation() float64 {
	return t.Approve + t.Reject
}

// Tally sums the weights of the recorded votes. Votes are summed in DID order,
// so the result does not depend on the order in which votes arrived.
func (r *Round) Tally(weight func(poc.DID) float64) Tally {
	var t Tally
	for _, did := range r.Voters() {
		if r.votes[did] {
			t.Approve += weight(did)
		} else {
			t.Reject += weight(did)
		}
	}
	return t
}

// Commit moves the round from the voting phase to Committed.
func (r *Round) Commit() error {
	return r.fire(QuorumReached)
}

// Fail moves a non-terminal round to Failed.
func (r *Round) Fail() error {
	return r.fire(TimedOut)
}

// Majority is the default quorum fraction.
const Majority = 0.5

// tolerance absorbs rounding in summed reputations.
const tolerance = 1e-9

// HasQuorum reports whether approve reaches the quorum of total. With the Majority
// fraction, approve must be strictly more than half of total. Any other fraction is
// reached when approve meets or exceeds fraction of total.
func HasQuorum(approve, total, fraction float64) bool {
	if total <= 0 {
		return false
	}
	threshold := fraction * total
	if fraction == Majority {
		return approve > threshold
	}
	return approve >= threshold-tolerance
}
