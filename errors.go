package poc

import "errors"

// Consensus errors
var (
	ErrProposalNotFound   = errors.New("proposal not found")
	ErrNotEligibleToVote  = errors.New("not eligible to vote")
	ErrNoEligibleProposer = errors.New("no eligible proposer")
	ErrUnknownValidator   = errors.New("unknown validator")
	ErrDuplicateValidator = errors.New("duplicate validator")
	ErrInvalidTransition  = errors.New("invalid phase transition")
	ErrInvalidBlock       = errors.New("invalid block")
	ErrInvalidGenesis     = errors.New("invalid genesis")
	ErrInvalidConfig      = errors.New("invalid configuration")
	ErrCooperativeFull    = errors.New("cooperative has reached its validator limit")
	ErrNotRunning         = errors.New("consensus engine is not running")
)
