// Package localnet runs a consensus engine together with simulated validators in a single process.
//
// The first validator of the genesis configuration, in DID order, is the engine's own
// validator. The other validators are simulated by agents that react to the engine's
// events. The last Silent validators never propose or vote.
package localnet

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/benbjohnson/clock"

	"github.com/icn-network/poc"
	"github.com/icn-network/poc/crypto/eddsa"
	"github.com/icn-network/poc/engine"
	"github.com/icn-network/poc/logging"
	"github.com/icn-network/poc/publisher"
	"github.com/icn-network/poc/store/memstore"
)

// Config describes a local network.
type Config struct {
	Genesis   *poc.GenesisConfig
	Consensus poc.Config
	// Store defaults to an in-memory store.
	Store       poc.Store
	Silent      int
	PayloadRate float64
	PayloadSize int
	SharedSeed  int64
	Clock       clock.Clock
	Logger      logging.Logger
}

// Stats summarizes a run.
type Stats struct {
	Committed     uint64
	Failed        uint64
	Height        uint64
	Proposals     uint64 // broadcast by the engine's own validator
	Votes         uint64 // broadcast by the engine's own validator
	DroppedEvents uint64
	Reputation    map[poc.DID]int64
}

func (s Stats) String() string {
	return fmt.Sprintf("Stats{ committed: %d, failed: %d, height: %d, proposals: %d, votes: %d, dropped events: %d }",
		s.Committed, s.Failed, s.Height, s.Proposals, s.Votes, s.DroppedEvents)
}

// loopback is the broadcaster of the engine's own validator. The agents observe
// the engine directly, so it only counts.
type loopback struct {
	proposals atomic.Uint64
	votes     atomic.Uint64
}

func (l *loopback) BroadcastProposal(context.Context, *poc.Block, []byte) error {
	l.proposals.Add(1)
	return nil
}

func (l *loopback) BroadcastVote(context.Context, poc.Vote) error {
	l.votes.Add(1)
	return nil
}

// Network is a local network.
type Network struct {
	cfg       Config
	logger    logging.Logger
	engine    *engine.Engine
	agents    []*agent
	ledger    *ledger
	loopback  *loopback
	sub       *publisher.Subscription
	committed uint64
	failed    uint64
}

// New creates a local network. Keys for all validators are generated.
func New(cfg Config) (*Network, error) {
	if cfg.Genesis == nil {
		return nil, fmt.Errorf("%w: missing genesis configuration", poc.ErrInvalidGenesis)
	}
	dids := make([]poc.DID, 0, len(cfg.Genesis.Validators))
	for _, v := range cfg.Genesis.Validators {
		dids = append(dids, v.DID)
	}
	sort.Slice(dids, func(i, j int) bool { return dids[i] < dids[j] })
	if cfg.Silent < 0 || cfg.Silent >= len(dids) {
		return nil, fmt.Errorf("%w: %d of %d validators cannot be silent", poc.ErrInvalidConfig, cfg.Silent, len(dids))
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.New("localnet")
	}
	if cfg.Store == nil {
		cfg.Store = memstore.New()
	}

	verifier := eddsa.NewVerifier()
	signers := make([]*eddsa.Signer, len(dids))
	for i, did := range dids {
		signer, err := eddsa.GenerateSigner()
		if err != nil {
			return nil, err
		}
		if err := verifier.Add(did, signer.PublicKey()); err != nil {
			return nil, err
		}
		signers[i] = signer
	}

	n := &Network{
		cfg:      cfg,
		logger:   cfg.Logger,
		ledger:   newLedger(cfg.Genesis, cfg.Consensus.Validator.ReputationScale),
		loopback: &loopback{},
	}
	source := newPayloads(cfg.PayloadSize, cfg.PayloadRate)

	eng, err := engine.New(cfg.Genesis, cfg.Consensus,
		engine.WithClock(cfg.Clock),
		engine.WithLogger(cfg.Logger.With("validator", dids[0])),
		engine.WithStore(cfg.Store),
		engine.WithReputationManager(n.ledger),
		engine.WithVerifier(verifier),
		engine.WithBroadcaster(n.loopback),
		engine.WithLocalValidator(dids[0], signers[0], source),
		engine.WithSharedSeed(cfg.SharedSeed),
	)
	if err != nil {
		return nil, err
	}
	n.engine = eng
	n.sub = eng.Subscribe()

	active := len(dids) - cfg.Silent
	for i := 1; i < active; i++ {
		n.agents = append(n.agents, &agent{
			did:      dids[i],
			signer:   signers[i],
			engine:   eng,
			payloads: source,
			clock:    cfg.Clock,
			logger:   cfg.Logger.With("validator", dids[i]),
			sub:      eng.Subscribe(),
		})
	}
	return n, nil
}

// Engine returns the engine of the network.
func (n *Network) Engine() *engine.Engine {
	return n.engine
}

// Run runs the network until ctx is canceled. A network can only run once.
func (n *Network) Run(ctx context.Context) (Stats, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	for _, a := range n.agents {
		wg.Add(1)
		go func(a *agent) {
			defer wg.Done()
			a.run(ctx)
		}(a)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		n.watch()
	}()

	if err := n.engine.Start(ctx); err != nil {
		cancel()
		n.sub.Unsubscribe()
		wg.Wait()
		return Stats{}, err
	}
	n.logger.Infof("running %d validators, %d of them silent", len(n.agents)+1+n.cfg.Silent, n.cfg.Silent)

	<-ctx.Done()
	n.engine.Stop()
	wg.Wait()
	return n.stats(), nil
}

// watch counts round outcomes until the engine stops.
func (n *Network) watch() {
	for e := range n.sub.C {
		switch e.(type) {
		case poc.RoundCompleted:
			n.committed++
		case poc.RoundFailed:
			n.failed++
		}
	}
}

func (n *Network) stats() Stats {
	height, _ := n.engine.Head()
	s := Stats{
		Committed:     n.committed,
		Failed:        n.failed,
		Height:        height,
		Proposals:     n.loopback.proposals.Load(),
		Votes:         n.loopback.votes.Load(),
		DroppedEvents: n.engine.DroppedEvents(),
		Reputation:    make(map[poc.DID]int64),
	}
	for _, v := range n.engine.Validators() {
		rep, err := n.ledger.GetReputation(context.Background(), v.DID, poc.ReputationScope)
		if err != nil {
			n.logger.Warn(err)
			continue
		}
		s.Reputation[v.DID] = rep
	}
	return s
}
