// Package engine implements the Proof of Cooperation consensus round engine.
//
// The engine runs one round at a time. In every round, a proposer is drawn from the
// validator registry, weighted by reputation. The proposer's block is put to a vote,
// and the round commits once the approvals carry strictly more than the configured
// fraction of the total reputation. Rounds that do not reach a quorum before their
// timeout fail, and the engine moves on to the next round.
//
// All round state is guarded by a single mutex. Timeouts, votes and blocks may arrive
// from any goroutine; the engine's loop goroutine only starts rounds and hands the
// results of finished rounds to the store and the reputation manager.
package engine

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"

	"github.com/icn-network/poc"
	"github.com/icn-network/poc/logging"
	"github.com/icn-network/poc/publisher"
	"github.com/icn-network/poc/registry"
	"github.com/icn-network/poc/round"
	"github.com/icn-network/poc/timeout"
)

type head struct {
	height    uint64
	hash      poc.Hash
	timestamp time.Time
	committed bool
}

type change struct {
	did        poc.DID
	delta      float64
	reputation float64
}

// outcome is the result of a finished round, handed from the round to the loop goroutine.
type outcome struct {
	round      uint64
	block      *poc.Block // nil if the round failed
	validators []poc.Validator
	changes    []change
	scale      int64
}

// validatorLoader is implemented by stores that can restore the validator set.
type validatorLoader interface {
	LastValidators(ctx context.Context) (height uint64, validators []poc.Validator, err error)
}

// RoundInfo describes the current round.
type RoundInfo struct {
	Number   uint64
	Phase    round.Phase
	Proposer poc.DID  // empty if no proposer was selected
	Block    poc.Hash // zero if no block was proposed
	Votes    int
	Started  time.Time
}

// Engine is the consensus round engine.
type Engine struct {
	genesis *poc.GenesisConfig
	opts    *engineOptions
	logger  logging.Logger
	clock   clock.Clock

	registry  *registry.Registry
	publisher *publisher.Publisher
	timeouts  *timeout.Controller

	lifecycle sync.Mutex // serializes Start and Stop
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	outcomes  chan outcome

	mut       sync.Mutex
	cfg       poc.Config
	durations *timeout.Durations
	current   *round.Round
	head      head
	seq       uint64
	running   bool
	stopping  bool
	proposals map[string]*proposal
}

// New returns an engine for the network described by genesis.
// It returns an error if the genesis configuration or cfg is invalid.
func New(genesis *poc.GenesisConfig, cfg poc.Config, opts ...Option) (*Engine, error) {
	if genesis == nil {
		return nil, fmt.Errorf("%w: missing genesis configuration", poc.ErrInvalidGenesis)
	}
	if err := multierr.Combine(genesis.Validate(), cfg.Validate()); err != nil {
		return nil, err
	}

	o := newDefaultOpts()
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		name := "engine"
		if o.local != nil {
			name = string(o.local.did)
		}
		o.logger = logging.New(name)
	}

	reg, err := registry.FromGenesis(genesis, o.sharedSeed)
	if err != nil {
		return nil, err
	}
	if o.local != nil && !reg.Contains(o.local.did) {
		o.logger.Infof("local validator %s is not in the genesis validator set", o.local.did)
	}

	return &Engine{
		genesis:   genesis,
		opts:      o,
		logger:    o.logger,
		clock:     o.clock,
		registry:  reg,
		publisher: publisher.New(cfg.Events, o.logger),
		timeouts:  timeout.New(o.clock),
		outcomes:  make(chan outcome, 1),
		cfg:       cfg,
		durations: timeout.NewDurations(cfg.Round),
		head:      head{hash: genesis.Hash(), timestamp: genesis.Timestamp.UTC()},
		proposals: make(map[string]*proposal),
	}, nil
}

// Start starts the round loop. If a store is configured, the engine resumes after
// the last committed block. Calling Start on a running engine does nothing.
// A stopped engine cannot be restarted.
func (e *Engine) Start(ctx context.Context) error {
	e.lifecycle.Lock()
	defer e.lifecycle.Unlock()

	e.mut.Lock()
	running, stopped := e.running, e.stopping
	e.mut.Unlock()
	if running {
		return nil
	}
	if stopped {
		return fmt.Errorf("%w: the engine was stopped", poc.ErrNotRunning)
	}

	first, err := e.resume(ctx)
	if err != nil {
		return err
	}

	loopCtx, cancel := context.WithCancel(ctx)
	e.mut.Lock()
	e.running = true
	e.cancel = cancel
	e.mut.Unlock()

	e.wg.Add(1)
	go e.run(loopCtx, first)
	e.logger.Infof("started at round %d with %d validators", first, e.registry.Len())
	return nil
}

// resume loads the last committed block and returns the number of the first round to run.
func (e *Engine) resume(ctx context.Context) (uint64, error) {
	store := e.opts.store
	if store == nil {
		return 0, nil
	}
	last, err := store.LastCommitted(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load last committed block: %w", err)
	}
	if last == nil {
		return 0, nil
	}
	if loader, ok := store.(validatorLoader); ok {
		height, validators, err := loader.LastValidators(ctx)
		if err != nil {
			return 0, fmt.Errorf("failed to load validators: %w", err)
		}
		if validators != nil && height == last.Height() {
			e.registry.Restore(validators)
		}
	}
	e.mut.Lock()
	e.head = head{height: last.Height(), hash: last.Hash(), timestamp: last.Timestamp(), committed: true}
	e.mut.Unlock()
	return last.Height() + 1, nil
}

// Stop cancels the current round and pending timeouts, and waits for the round loop to exit.
// No round commits after Stop has been called. All subscriptions are closed.
func (e *Engine) Stop() {
	e.lifecycle.Lock()
	defer e.lifecycle.Unlock()

	e.mut.Lock()
	if !e.running {
		e.mut.Unlock()
		return
	}
	e.stopping = true
	e.timeouts.Cancel()
	e.mut.Unlock()

	e.cancel()
	e.wg.Wait()

	e.mut.Lock()
	e.running = false
	e.mut.Unlock()
	e.publisher.Close()
	e.logger.Info("stopped")
}

func (e *Engine) run(ctx context.Context, number uint64) {
	defer e.wg.Done()
	for {
		e.startRound(ctx, number)
		select {
		case out := <-e.outcomes:
			e.finish(ctx, out)
			number = out.round + 1
		case <-ctx.Done():
			e.mut.Lock()
			e.stopping = true
			e.timeouts.Cancel()
			e.mut.Unlock()
			// a round may have committed just before the engine stopped
			select {
			case out := <-e.outcomes:
				e.finish(ctx, out)
			default:
			}
			return
		}
	}
}

// header returns the header of the next event. The caller must hold e.mut.
func (e *Engine) header(number uint64) poc.EventHeader {
	e.seq++
	return poc.EventHeader{Seq: e.seq, Round: number, Time: e.clock.Now()}
}

func (e *Engine) isLocal(did poc.DID) bool {
	return e.opts.local != nil && did != "" && did == e.opts.local.did
}

func (e *Engine) startRound(ctx context.Context, number uint64) {
	e.mut.Lock()
	if e.stopping {
		e.mut.Unlock()
		return
	}
	now := e.clock.Now()
	r := round.New(number, now)
	e.current = r

	proposer, err := e.registry.SelectProposer(number, now, e.cfg.Validator.ProposerCooldown)
	if err != nil {
		e.logger.Infof("round %d: %v", number, err)
		proposer = ""
	} else if err := r.SelectProposer(proposer); err != nil {
		e.logger.Debug(err)
	}

	// the timeout must be in place before anyone can observe the round
	e.timeouts.Schedule(number, r.Phase(), e.durations.Proposal(), e.onTimeout)
	e.publisher.Publish(poc.RoundStarted{
		EventHeader: e.header(number),
		Proposer:    proposer,
		PrevHash:    e.head.hash,
	})
	prev, prevTime := e.head.hash, e.head.timestamp
	e.mut.Unlock()

	e.logger.Debugf("round %d: started, proposer %q", number, proposer)
	if e.isLocal(proposer) {
		e.propose(ctx, number, prev, prevTime)
	}
}

// finish persists the result of a round. It runs on the loop goroutine, outside of e.mut.
func (e *Engine) finish(ctx context.Context, out outcome) {
	if out.block == nil {
		return
	}
	// the block is committed; persist it even if the engine is stopping
	ctx = context.WithoutCancel(ctx)
	if store := e.opts.store; store != nil {
		if err := store.SaveBlock(ctx, out.block); err != nil {
			e.logger.Errorf("failed to save block %v: %v", out.block, err)
		} else if err := store.SaveValidators(ctx, out.block.Height(), out.validators); err != nil {
			e.logger.Errorf("failed to save validators at height %d: %v", out.block.Height(), err)
		}
	}
	if rm := e.opts.reputation; rm != nil {
		for _, c := range out.changes {
			units := int64(math.Round(c.delta * float64(out.scale)))
			if units == 0 {
				continue
			}
			if err := rm.UpdateReputation(ctx, c.did, units, poc.ReputationScope); err != nil {
				e.logger.Warnf("failed to update reputation of %s: %v", c.did, err)
			}
		}
	}
}

func (e *Engine) onTimeout(number uint64, phase round.Phase) {
	e.mut.Lock()
	defer e.mut.Unlock()

	r := e.current
	if e.stopping || r == nil || r.Number() != number || r.Phase() != phase {
		e.logger.Debugf("ignoring stale timeout for round %d in %v", number, phase)
		return
	}
	var reason poc.FailureReason
	switch phase {
	case round.Initializing:
		reason = poc.NoProposer
	case round.ProposalPhase:
		reason = poc.ProposalTimeout
	default:
		reason = poc.VotingTimeout
	}
	e.fail(r, reason)
}

// fail ends the round without a block. The caller must hold e.mut.
func (e *Engine) fail(r *round.Round, reason poc.FailureReason) {
	if err := r.Fail(); err != nil {
		e.logger.Debug(err)
		return
	}
	e.timeouts.Cancel()
	e.durations.RoundFailed()
	e.publisher.Publish(poc.RoundFailed{
		EventHeader: e.header(r.Number()),
		Reason:      reason,
		Proposer:    r.Proposer(),
	})
	e.logger.Infof("round %d: failed: %v", r.Number(), reason)
	e.outcomes <- outcome{round: r.Number()}
}

// commit ends the round with its block. The caller must hold e.mut.
func (e *Engine) commit(r *round.Round, tally round.Tally, total float64) {
	if err := r.Commit(); err != nil {
		e.logger.Debug(err)
		return
	}
	e.timeouts.Cancel()
	now := e.clock.Now()
	block := r.Block()

	changes := e.settle(r, now)
	e.head = head{height: block.Height(), hash: block.Hash(), timestamp: block.Timestamp(), committed: true}
	e.durations.RoundCommitted()

	approvers := r.Approvers()
	e.publisher.Publish(poc.RoundCompleted{
		EventHeader:   e.header(r.Number()),
		BlockHash:     block.Hash(),
		Height:        block.Height(),
		Approvers:     approvers,
		Duration:      now.Sub(r.Started()),
		Participation: tally.Participation() / total,
		Approval:      tally.Approve / total,
	})
	for _, c := range changes {
		e.publisher.Publish(poc.ValidatorUpdate{
			EventHeader: e.header(r.Number()),
			Validator:   c.did,
			Delta:       c.delta,
			Reputation:  c.reputation,
		})
	}
	e.logger.Infof("round %d: committed %v with %d approvers", r.Number(), block, len(approvers))

	e.outcomes <- outcome{
		round:      r.Number(),
		block:      block,
		validators: e.registry.Snapshot(),
		changes:    changes,
		scale:      e.cfg.Validator.ReputationScale,
	}
}

// settle applies the reputation changes and performance counters of a committed round.
// The proposer earns the proposer reward, approvers earn the reward step, and everyone
// else, including validators that rejected the block, pays the penalty step.
// The caller must hold e.mut.
func (e *Engine) settle(r *round.Round, now time.Time) []change {
	cfg := e.cfg.Validator
	proposer := r.Proposer()

	var changes []change
	for _, did := range e.registry.DIDs() {
		approve, voted := r.Vote(did)
		var delta float64
		switch {
		case did == proposer:
			delta = cfg.ProposerReward
		case voted && approve:
			delta = cfg.RewardStep
		default:
			delta = -cfg.PenaltyStep
		}
		if !voted && did != proposer {
			if err := e.registry.RecordMiss(did); err != nil {
				e.logger.Warn(err)
			}
		}
		before := e.registry.Reputation(did)
		after, err := e.registry.UpdateReputation(did, delta)
		if err != nil {
			e.logger.Warn(err)
			continue
		}
		if applied := after - before; applied != 0 {
			changes = append(changes, change{did: did, delta: applied, reputation: after})
		}
	}
	if err := e.registry.MarkProposed(proposer, now); err != nil {
		e.logger.Warn(err)
	}
	return changes
}

// Subscribe returns a subscription to the engine's events.
func (e *Engine) Subscribe() *publisher.Subscription {
	return e.publisher.Subscribe()
}

// DroppedEvents returns the number of events that were dropped because a subscriber was too slow.
func (e *Engine) DroppedEvents() uint64 {
	return e.publisher.Dropped()
}

// Head returns the height and hash of the last committed block.
// Before the first commit, it returns height 0 and the genesis hash.
func (e *Engine) Head() (height uint64, hash poc.Hash) {
	e.mut.Lock()
	defer e.mut.Unlock()
	return e.head.height, e.head.hash
}

// CurrentRound returns a description of the current round.
func (e *Engine) CurrentRound() RoundInfo {
	e.mut.Lock()
	defer e.mut.Unlock()
	r := e.current
	if r == nil {
		return RoundInfo{}
	}
	info := RoundInfo{
		Number:   r.Number(),
		Phase:    r.Phase(),
		Proposer: r.Proposer(),
		Votes:    len(r.Voters()),
		Started:  r.Started(),
	}
	if b := r.Block(); b != nil {
		info.Block = b.Hash()
	}
	return info
}

// Validators returns a snapshot of the validator set, sorted by DID.
func (e *Engine) Validators() []poc.Validator {
	return e.registry.Snapshot()
}

// Config returns the current configuration, including approved parameter changes.
func (e *Engine) Config() poc.Config {
	e.mut.Lock()
	defer e.mut.Unlock()
	return e.cfg
}

// Genesis returns the genesis configuration of the network.
func (e *Engine) Genesis() *poc.GenesisConfig {
	return e.genesis
}
