package timeout

import (
	"time"

	"github.com/icn-network/poc"
)

// Durations computes the proposal and voting timeouts of a round.
// Every failed round multiplies both timeouts by the configured multiplier, up to the maximum.
// A committed round resets them to their base values.
type Durations struct {
	proposal time.Duration
	voting   time.Duration
	mul      float64
	max      time.Duration
	factor   float64
}

// NewDurations returns Durations for the given round configuration.
func NewDurations(cfg poc.RoundConfig) *Durations {
	return &Durations{
		proposal: cfg.ProposalTimeout,
		voting:   cfg.VotingTimeout,
		mul:      cfg.TimeoutMultiplier,
		max:      cfg.MaxTimeout,
		factor:   1,
	}
}

func (d *Durations) scale(base time.Duration) time.Duration {
	scaled := float64(base) * d.factor
	if d.max > 0 && scaled > float64(d.max) {
		return d.max
	}
	return time.Duration(scaled)
}

// Proposal returns the time a proposer has to deliver its block.
func (d *Durations) Proposal() time.Duration {
	return d.scale(d.proposal)
}

// Voting returns the time validators have to reach a quorum.
func (d *Durations) Voting() time.Duration {
	return d.scale(d.voting)
}

// RoundFailed increases the timeouts of the following rounds.
func (d *Durations) RoundFailed() {
	if d.mul <= 1 || d.max <= 0 {
		return
	}
	// stop growing once both timeouts are capped
	if d.scale(d.proposal) >= d.max && d.scale(d.voting) >= d.max {
		return
	}
	d.factor *= d.mul
}

// RoundCommitted resets the timeouts to their base values.
func (d *Durations) RoundCommitted() {
	d.factor = 1
}
