package engine

import (
	"github.com/benbjohnson/clock"

	"github.com/icn-network/poc"
	"github.com/icn-network/poc/logging"
)

type localValidator struct {
	did      poc.DID
	signer   poc.Signer
	payloads poc.PayloadSource
}

type engineOptions struct {
	logger      logging.Logger
	clock       clock.Clock
	store       poc.Store
	reputation  poc.ReputationManager
	verifier    poc.Verifier
	broadcaster poc.Broadcaster
	local       *localValidator
	sharedSeed  int64
}

func newDefaultOpts() *engineOptions {
	return &engineOptions{
		clock: clock.New(),
	}
}

// Option configures an Engine.
type Option func(*engineOptions)

// WithLogger sets the logger. By default, a logger named after the local validator is created.
func WithLogger(logger logging.Logger) Option {
	return func(o *engineOptions) {
		o.logger = logger
	}
}

// WithClock sets the clock used for timeouts and timestamps.
// Default: the wall clock.
func WithClock(clk clock.Clock) Option {
	return func(o *engineOptions) {
		o.clock = clk
	}
}

// WithStore sets the store that committed blocks and validator snapshots are written to.
// Without a store, nothing is persisted.
func WithStore(store poc.Store) Option {
	return func(o *engineOptions) {
		o.store = store
	}
}

// WithReputationManager makes the engine consult the reputation manager before counting a vote,
// and forward the reputation changes of every committed round to it.
func WithReputationManager(rm poc.ReputationManager) Option {
	return func(o *engineOptions) {
		o.reputation = rm
	}
}

// WithVerifier makes the engine verify the signatures of blocks and votes.
func WithVerifier(v poc.Verifier) Option {
	return func(o *engineOptions) {
		o.verifier = v
	}
}

// WithBroadcaster sets the broadcaster used to send the local validator's proposals and votes.
func WithBroadcaster(b poc.Broadcaster) Option {
	return func(o *engineOptions) {
		o.broadcaster = b
	}
}

// WithLocalValidator makes the engine participate as the given validator:
// it proposes a block when selected and approves valid blocks proposed by others.
// If payloads is nil, blocks have an empty payload.
func WithLocalValidator(did poc.DID, signer poc.Signer, payloads poc.PayloadSource) Option {
	return func(o *engineOptions) {
		o.local = &localValidator{did: did, signer: signer, payloads: payloads}
	}
}

// WithSharedSeed sets the seed of proposer selection. It must be the same on all nodes.
// Default: 0
func WithSharedSeed(seed int64) Option {
	return func(o *engineOptions) {
		o.sharedSeed = seed
	}
}
