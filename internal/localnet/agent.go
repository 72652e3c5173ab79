package localnet

import (
	"context"
	"errors"

	"github.com/benbjohnson/clock"

	"github.com/icn-network/poc"
	"github.com/icn-network/poc/crypto/eddsa"
	"github.com/icn-network/poc/engine"
	"github.com/icn-network/poc/logging"
	"github.com/icn-network/poc/publisher"
)

// agent simulates a remote validator. It proposes a block when it is selected
// and approves every block that the engine accepts.
type agent struct {
	did      poc.DID
	signer   *eddsa.Signer
	engine   *engine.Engine
	payloads poc.PayloadSource
	clock    clock.Clock
	logger   logging.Logger
	sub      *publisher.Subscription
}

func (a *agent) run(ctx context.Context) {
	defer a.sub.Unsubscribe()
	for {
		select {
		case e, ok := <-a.sub.C:
			if !ok {
				return
			}
			switch e := e.(type) {
			case poc.RoundStarted:
				if e.Proposer == a.did {
					a.propose(ctx, e)
				}
			case poc.BlockProposed:
				a.vote(ctx, e.Round)
			}
		case <-ctx.Done():
			return
		}
	}
}

func (a *agent) propose(ctx context.Context, e poc.RoundStarted) {
	payload, err := a.payloads.NextPayload(ctx, e.Round)
	if err != nil {
		a.logger.Debugf("round %d: no payload: %v", e.Round, err)
		return
	}
	block := poc.NewBlock(e.Round, e.PrevHash, a.clock.Now(), a.did, payload)
	sig, err := a.signer.Sign(block.ToBytes())
	if err != nil {
		a.logger.Warn(err)
		return
	}
	if err := a.engine.SubmitBlock(ctx, block, sig); err != nil {
		a.logger.Debugf("round %d: block was rejected: %v", e.Round, err)
	}
}

func (a *agent) vote(ctx context.Context, number uint64) {
	vote := poc.Vote{Round: number, Voter: a.did, Approve: true}
	sig, err := a.signer.Sign(vote.SigningBytes())
	if err != nil {
		a.logger.Warn(err)
		return
	}
	vote.Signature = sig
	if _, err := a.engine.SubmitVote(ctx, vote); err != nil && !errors.Is(err, poc.ErrProposalNotFound) {
		a.logger.Infof("round %d: vote was rejected: %v", number, err)
	}
}
