package poc

import (
	"fmt"
	"time"
)

// Event is a lifecycle fact emitted by the consensus engine.
// Events are immutable once emitted and are delivered to subscribers in emission order.
type Event interface {
	// Header returns the sequence number, round and emission time of the event.
	Header() EventHeader
}

// EventHeader is embedded in every event.
type EventHeader struct {
	Seq   uint64    // Strictly increasing emission order, starting at 1.
	Round uint64    // The round the event belongs to.
	Time  time.Time // Wall-clock time of emission.
}

// Header returns the header itself. It makes every event type that embeds EventHeader an Event.
func (h EventHeader) Header() EventHeader {
	return h
}

// RoundStarted is emitted whenever a new round begins.
// Proposer is empty if no validator was eligible to propose.
type RoundStarted struct {
	EventHeader
	Proposer DID
	PrevHash Hash
}

func (e RoundStarted) String() string {
	return fmt.Sprintf("RoundStarted{ round: %d, proposer: %s, prev: %.8s }", e.Round, e.Proposer, e.PrevHash)
}

// BlockProposed is emitted when a valid block moves the round into its voting phase.
type BlockProposed struct {
	EventHeader
	Proposer  DID
	BlockHash Hash
	Height    uint64
}

func (e BlockProposed) String() string {
	return fmt.Sprintf("BlockProposed{ round: %d, proposer: %s, block: %.8s }", e.Round, e.Proposer, e.BlockHash)
}

// VoteReceived is emitted for every vote that is recorded in a round.
type VoteReceived struct {
	EventHeader
	Voter   DID
	Approve bool
	Weight  float64 // The voter's reputation at the time the vote was recorded.
}

func (e VoteReceived) String() string {
	return fmt.Sprintf("VoteReceived{ round: %d, voter: %s, approve: %t, weight: %.4f }", e.Round, e.Voter, e.Approve, e.Weight)
}

// RoundCompleted is emitted when a round commits its block.
type RoundCompleted struct {
	EventHeader
	BlockHash     Hash
	Height        uint64
	Approvers     []DID // Sorted.
	Duration      time.Duration
	Participation float64 // Reputation of all voters divided by total reputation.
	Approval      float64 // Reputation of approvers divided by total reputation.
}

func (e RoundCompleted) String() string {
	return fmt.Sprintf("RoundCompleted{ round: %d, block: %.8s, approvers: %v, duration: %v }", e.Round, e.BlockHash, e.Approvers, e.Duration)
}

// FailureReason describes why a round failed.
type FailureReason int

const (
	// NoProposer means that no validator was eligible to propose before the proposal timeout.
	NoProposer FailureReason = iota + 1
	// ProposalTimeout means that no valid block arrived before the proposal timeout.
	ProposalTimeout
	// VotingTimeout means that the quorum was not reached before the voting timeout.
	VotingTimeout
)

func (r FailureReason) String() string {
	switch r {
	case NoProposer:
		return "no eligible proposer"
	case ProposalTimeout:
		return "proposal timeout"
	case VotingTimeout:
		return "voting timeout"
	default:
		return fmt.Sprintf("FailureReason(%d)", int(r))
	}
}

// RoundFailed is emitted when a round ends without committing.
type RoundFailed struct {
	EventHeader
	Reason   FailureReason
	Proposer DID
}

func (e RoundFailed) String() string {
	return fmt.Sprintf("RoundFailed{ round: %d, reason: %v }", e.Round, e.Reason)
}

// ValidatorUpdate is emitted whenever a validator's reputation changes.
type ValidatorUpdate struct {
	EventHeader
	Validator  DID
	Delta      float64 // The applied change after clamping.
	Reputation float64 // The new reputation.
}

func (e ValidatorUpdate) String() string {
	return fmt.Sprintf("ValidatorUpdate{ round: %d, validator: %s, delta: %+.4f, reputation: %.4f }", e.Round, e.Validator, e.Delta, e.Reputation)
}
