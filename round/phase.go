package round

import (
	"fmt"

	"github.com/icn-network/poc"
)

// Phase is the lifecycle phase of a round.
type Phase int

const (
	// Initializing is the phase of a round that has no proposer yet.
	Initializing Phase = iota
	// ProposalPhase waits for the selected proposer's block.
	ProposalPhase
	// VotingPhase collects votes on the proposed block.
	VotingPhase
	// Committed is terminal: the block reached quorum.
	Committed
	// Failed is terminal: the round timed out.
	Failed
)

func (p Phase) String() string {
	switch p {
	case Initializing:
		return "Initializing"
	case ProposalPhase:
		return "ProposalPhase"
	case VotingPhase:
		return "VotingPhase"
	case Committed:
		return "Committed"
	case Failed:
		return "Failed"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// Terminal returns true for Committed and Failed.
func (p Phase) Terminal() bool {
	return p == Committed || p == Failed
}

// Trigger causes a phase transition.
type Trigger int

const (
	ProposerSelected Trigger = iota
	BlockAccepted
	QuorumReached
	TimedOut
)

func (t Trigger) String() string {
	switch t {
	case ProposerSelected:
		return "ProposerSelected"
	case BlockAccepted:
		return "BlockAccepted"
	case QuorumReached:
		return "QuorumReached"
	case TimedOut:
		return "TimedOut"
	default:
		return fmt.Sprintf("Trigger(%d)", int(t))
	}
}

// Next returns the phase that the trigger leads to from p.
// Terminal phases accept no triggers.
func (p Phase) Next(t Trigger) (Phase, error) {
	switch {
	case p == Initializing && t == ProposerSelected:
		return ProposalPhase, nil
	case p == ProposalPhase && t == BlockAccepted:
		return VotingPhase, nil
	case p == VotingPhase && t == QuorumReached:
		return Committed, nil
	case !p.Terminal() && t == TimedOut:
		return Failed, nil
	}
	return p, fmt.Errorf("%w: %v on %v", poc.ErrInvalidTransition, t, p)
}
