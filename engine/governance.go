package engine

import (
	"context"
	"fmt"
	"math"

	"github.com/icn-network/poc"
	"github.com/icn-network/poc/governance"
	"github.com/icn-network/poc/timeout"
)

type proposal struct {
	governance.Proposal
	applied bool
}

// SubmitProposal registers a governance proposal so that it can be applied once it is approved.
func (e *Engine) SubmitProposal(p governance.Proposal) error {
	if err := p.Validate(); err != nil {
		return err
	}
	e.mut.Lock()
	defer e.mut.Unlock()
	if _, ok := e.proposals[p.ID]; ok {
		return fmt.Errorf("%w: %s", governance.ErrDuplicateProposal, p.ID)
	}
	e.proposals[p.ID] = &proposal{Proposal: p}
	return nil
}

// ProcessApprovedProposal applies an approved proposal. Applying a proposal more than once
// has no further effect. It returns ErrProposalNotFound if the proposal was never submitted.
// If the change lets the approvals of the current round reach the quorum, the round commits.
func (e *Engine) ProcessApprovedProposal(ctx context.Context, id string) error {
	e.mut.Lock()
	p, ok := e.proposals[id]
	if !ok {
		e.mut.Unlock()
		return fmt.Errorf("%w: %s", poc.ErrProposalNotFound, id)
	}
	if p.applied {
		e.mut.Unlock()
		return nil
	}
	c, err := e.apply(p.Proposal)
	if err != nil {
		e.mut.Unlock()
		return fmt.Errorf("proposal %s: %w", id, err)
	}
	p.applied = true
	// a changed validator set may complete the quorum of the open round
	if e.commitOnQuorum() {
		e.logger.Infof("proposal %s completed the quorum of round %d", id, e.current.Number())
	}
	scale := e.cfg.Validator.ReputationScale
	e.mut.Unlock()

	e.logger.Infof("applied %v", p.Proposal)
	if rm := e.opts.reputation; rm != nil && c != nil {
		units := int64(math.Round(c.delta * float64(scale)))
		if units != 0 {
			if err := rm.UpdateReputation(ctx, c.did, units, poc.ReputationScope); err != nil {
				e.logger.Warnf("failed to update reputation of %s: %v", c.did, err)
			}
		}
	}
	return nil
}

// apply performs the change of a proposal. The caller must hold e.mut.
func (e *Engine) apply(p governance.Proposal) (*change, error) {
	var number uint64
	if e.current != nil {
		number = e.current.Number()
	}

	switch p.Kind {
	case governance.ReputationChange:
		before := e.registry.Reputation(p.Validator)
		after, err := e.registry.UpdateReputation(p.Validator, p.Delta)
		if err != nil {
			return nil, err
		}
		c := &change{did: p.Validator, delta: after - before, reputation: after}
		if c.delta != 0 {
			e.publisher.Publish(poc.ValidatorUpdate{
				EventHeader: e.header(number),
				Validator:   c.did,
				Delta:       c.delta,
				Reputation:  c.reputation,
			})
		}
		return c, nil

	case governance.ValidatorAdmission:
		limit := e.genesis.Governance.MaxValidatorsPerCooperative
		if limit > 0 && p.Cooperative != "" && e.registry.CountCooperative(p.Cooperative) >= limit {
			return nil, fmt.Errorf("%w: %q already runs %d validators", poc.ErrCooperativeFull, p.Cooperative, limit)
		}
		if err := e.registry.Register(p.Validator, p.Cooperative, p.Reputation); err != nil {
			return nil, err
		}
		rep := e.registry.Reputation(p.Validator)
		e.publisher.Publish(poc.ValidatorUpdate{
			EventHeader: e.header(number),
			Validator:   p.Validator,
			Delta:       rep,
			Reputation:  rep,
		})
		return nil, nil

	case governance.ParameterChange:
		next, err := governance.ApplyParameter(e.cfg, p.Parameter, p.Value)
		if err != nil {
			return nil, err
		}
		if next.Round != e.cfg.Round {
			e.durations = timeout.NewDurations(next.Round)
		}
		e.cfg = next
		return nil, nil
	}
	return nil, fmt.Errorf("unknown proposal kind %v", p.Kind)
}
