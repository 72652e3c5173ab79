package engine

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/multierr"

	"github.com/icn-network/poc"
	"github.com/icn-network/poc/round"
)

// checkRound returns an error unless number is the current, open round. The caller must hold e.mut.
func (e *Engine) checkRound(number uint64) error {
	if !e.running || e.stopping || e.current == nil {
		return fmt.Errorf("%w: %w", poc.ErrProposalNotFound, poc.ErrNotRunning)
	}
	if r := e.current; r.Number() != number || r.Terminal() {
		return fmt.Errorf("%w: round %d is not open (current round %d is in %v)",
			poc.ErrProposalNotFound, number, r.Number(), r.Phase())
	}
	return nil
}

// SubmitVote applies a vote to the current round.
//
// The vote is rejected with ErrProposalNotFound if its round is not the current, open round,
// and with ErrNotEligibleToVote if the voter is unknown, has too little reputation, or the
// signature is invalid. A vote that arrives before the round's block is rejected without error.
// Otherwise, the vote is recorded and the status is VoteAccepted if it completed the quorum
// and committed the round, or VotePending if the round is still open.
func (e *Engine) SubmitVote(ctx context.Context, vote poc.Vote) (poc.VoteStatus, error) {
	e.mut.Lock()
	err := e.checkRound(vote.Round)
	minReputation := e.cfg.Validator.MinReputation
	scale := e.cfg.Validator.ReputationScale
	e.mut.Unlock()
	if err != nil {
		return poc.VoteRejected, err
	}

	if err := e.checkVoter(ctx, vote, minReputation, scale); err != nil {
		return poc.VoteRejected, err
	}

	e.mut.Lock()
	defer e.mut.Unlock()

	// the round may have ended while the voter was checked
	if err := e.checkRound(vote.Round); err != nil {
		return poc.VoteRejected, err
	}
	r := e.current
	if !r.AddVote(vote.Voter, vote.Approve) {
		e.logger.Debugf("round %d: ignoring %v in %v", r.Number(), vote, r.Phase())
		return poc.VoteRejected, nil
	}
	if err := e.registry.MarkVoted(vote.Voter, r.Number()); err != nil {
		e.logger.Warn(err)
	}
	e.publisher.Publish(poc.VoteReceived{
		EventHeader: e.header(r.Number()),
		Voter:       vote.Voter,
		Approve:     vote.Approve,
		Weight:      e.registry.Reputation(vote.Voter),
	})

	if !e.commitOnQuorum() {
		return poc.VotePending, nil
	}
	return poc.VoteAccepted, nil
}

// commitOnQuorum commits the current round if it is voting and its approvals reach the quorum.
// The caller must hold e.mut.
func (e *Engine) commitOnQuorum() bool {
	r := e.current
	if e.stopping || r == nil || r.Phase() != round.VotingPhase {
		return false
	}
	tally := r.Tally(e.registry.Reputation)
	total := e.registry.TotalReputation()
	if !round.HasQuorum(tally.Approve, total, e.cfg.Round.QuorumFraction) {
		return false
	}
	e.commit(r, tally, total)
	return true
}

// checkVoter checks that the voter may vote. It is called without holding e.mut,
// since the reputation manager may be remote.
func (e *Engine) checkVoter(ctx context.Context, vote poc.Vote, minReputation float64, scale int64) error {
	if !e.registry.Contains(vote.Voter) {
		return fmt.Errorf("%w: %s is not a validator", poc.ErrNotEligibleToVote, vote.Voter)
	}
	if rep := e.registry.Reputation(vote.Voter); rep < minReputation {
		return fmt.Errorf("%w: reputation of %s is %.4f, need %.4f", poc.ErrNotEligibleToVote, vote.Voter, rep, minReputation)
	}
	if v := e.opts.verifier; v != nil && !v.Verify(vote.Voter, vote.SigningBytes(), vote.Signature) {
		return fmt.Errorf("%w: invalid signature by %s", poc.ErrNotEligibleToVote, vote.Voter)
	}
	if rm := e.opts.reputation; rm != nil {
		threshold := int64(math.Round(minReputation * float64(scale)))
		ok, err := rm.IsEligible(ctx, vote.Voter, threshold, poc.ReputationScope)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", poc.ErrNotEligibleToVote, vote.Voter, err)
		}
		if !ok {
			return fmt.Errorf("%w: %s is below the reputation threshold %d", poc.ErrNotEligibleToVote, vote.Voter, threshold)
		}
	}
	return nil
}

// SubmitBlock proposes a block for the current round.
//
// The block's height must be the number of the current, open round, or ErrProposalNotFound
// is returned. If the round is not waiting for a block, the error wraps ErrInvalidTransition.
// A block that fails validation is rejected with an error wrapping ErrInvalidBlock for every
// problem found, and the round keeps waiting for a valid block.
// If the engine runs a local validator, it approves the accepted block.
func (e *Engine) SubmitBlock(ctx context.Context, block *poc.Block, signature []byte) error {
	if err := e.acceptBlock(block, signature); err != nil {
		return err
	}
	e.voteLocally(ctx, block)
	return nil
}

func (e *Engine) acceptBlock(block *poc.Block, signature []byte) error {
	if block == nil {
		return fmt.Errorf("%w: nil block", poc.ErrInvalidBlock)
	}
	var sigErr error
	if v := e.opts.verifier; v != nil && !v.Verify(block.Proposer(), block.ToBytes(), signature) {
		sigErr = fmt.Errorf("%w: invalid signature by %s", poc.ErrInvalidBlock, block.Proposer())
	}

	e.mut.Lock()
	defer e.mut.Unlock()

	if err := e.checkRound(block.Height()); err != nil {
		return err
	}
	r := e.current
	if _, err := r.Phase().Next(round.BlockAccepted); err != nil {
		return fmt.Errorf("round %d: %w", r.Number(), err)
	}
	if err := multierr.Append(e.validateBlock(r, block), sigErr); err != nil {
		e.logger.Debugf("round %d: rejected %v: %v", r.Number(), block, err)
		return err
	}
	if err := r.Propose(block); err != nil {
		return err
	}

	e.timeouts.Schedule(r.Number(), r.Phase(), e.durations.Voting(), e.onTimeout)
	e.publisher.Publish(poc.BlockProposed{
		EventHeader: e.header(r.Number()),
		Proposer:    block.Proposer(),
		BlockHash:   block.Hash(),
		Height:      block.Height(),
	})
	return nil
}

// validateBlock checks a block against the current round and head. The caller must hold e.mut.
func (e *Engine) validateBlock(r *round.Round, block *poc.Block) (err error) {
	cfg := e.cfg.Round
	if block.Proposer() != r.Proposer() {
		err = multierr.Append(err, fmt.Errorf("%w: proposer %s was not selected in round %d",
			poc.ErrInvalidBlock, block.Proposer(), r.Number()))
	}
	if block.PrevHash() != e.head.hash {
		err = multierr.Append(err, fmt.Errorf("%w: previous hash %.8s does not match head %.8s",
			poc.ErrInvalidBlock, block.PrevHash(), e.head.hash))
	}
	if block.Timestamp().Before(e.head.timestamp) {
		err = multierr.Append(err, fmt.Errorf("%w: timestamp %v is before the previous block",
			poc.ErrInvalidBlock, block.Timestamp()))
	}
	drift := block.Timestamp().Sub(e.clock.Now())
	if drift < 0 {
		drift = -drift
	}
	if drift > cfg.MaxTimestampDrift {
		err = multierr.Append(err, fmt.Errorf("%w: timestamp %v is %v away from local time",
			poc.ErrInvalidBlock, block.Timestamp(), drift))
	}
	if block.PayloadSize() > cfg.MaxPayloadBytes {
		err = multierr.Append(err, fmt.Errorf("%w: payload of %d bytes exceeds %d",
			poc.ErrInvalidBlock, block.PayloadSize(), cfg.MaxPayloadBytes))
	}
	return err
}

// propose builds, submits and broadcasts the local validator's block.
func (e *Engine) propose(ctx context.Context, number uint64, prev poc.Hash, prevTime time.Time) {
	local := e.opts.local

	var payload []byte
	if local.payloads != nil {
		var err error
		payload, err = local.payloads.NextPayload(ctx, number)
		if err != nil {
			e.logger.Warnf("round %d: failed to get payload: %v", number, err)
			return
		}
	}
	timestamp := e.clock.Now()
	if timestamp.Before(prevTime) {
		timestamp = prevTime
	}
	block := poc.NewBlock(number, prev, timestamp, local.did, payload)

	var signature []byte
	if local.signer != nil {
		var err error
		signature, err = local.signer.Sign(block.ToBytes())
		if err != nil {
			e.logger.Warnf("round %d: failed to sign block: %v", number, err)
			return
		}
	}
	if err := e.acceptBlock(block, signature); err != nil {
		e.logger.Warnf("round %d: own block was rejected: %v", number, err)
		return
	}
	e.logger.Debugf("round %d: proposing %v", number, block)
	if b := e.opts.broadcaster; b != nil {
		if err := b.BroadcastProposal(ctx, block, signature); err != nil {
			e.logger.Warnf("round %d: failed to broadcast proposal: %v", number, err)
		}
	}
	e.voteLocally(ctx, block)
}

// voteLocally approves an accepted block on behalf of the local validator.
func (e *Engine) voteLocally(ctx context.Context, block *poc.Block) {
	local := e.opts.local
	if local == nil || !e.registry.Contains(local.did) {
		return
	}
	vote := poc.Vote{Round: block.Height(), Voter: local.did, Approve: true}
	if local.signer != nil {
		sig, err := local.signer.Sign(vote.SigningBytes())
		if err != nil {
			e.logger.Warnf("round %d: failed to sign vote: %v", vote.Round, err)
			return
		}
		vote.Signature = sig
	}
	status, err := e.SubmitVote(ctx, vote)
	if err != nil || status == poc.VoteRejected {
		e.logger.Debugf("round %d: own vote was not counted: %v", vote.Round, err)
		return
	}
	if b := e.opts.broadcaster; b != nil {
		if err := b.BroadcastVote(ctx, vote); err != nil {
			e.logger.Warnf("round %d: failed to broadcast vote: %v", vote.Round, err)
		}
	}
}
