package poc

import "context"

//go:generate mockgen -destination=internal/mocks/store_mock.go -package=mocks . Store

// Store durably records committed blocks and validator state.
// The engine calls it from its round loop, after a round has committed.
type Store interface {
	// LastCommitted returns the most recently committed block, or nil if nothing was committed yet.
	LastCommitted(ctx context.Context) (*Block, error)
	// SaveBlock records a committed block.
	SaveBlock(ctx context.Context, block *Block) error
	// SaveValidators records a snapshot of the validator set taken after the block at height committed.
	SaveValidators(ctx context.Context, height uint64, validators []Validator) error
}

//go:generate mockgen -destination=internal/mocks/reputation_mock.go -package=mocks . ReputationManager

// ReputationManager is the network-wide reputation service.
// Reputation values are integers on the manager's own scale.
type ReputationManager interface {
	// GetReputation returns the reputation of the participant in the given context.
	GetReputation(ctx context.Context, participant DID, scope string) (int64, error)
	// IsEligible returns true if the participant's reputation in the given context meets the threshold.
	IsEligible(ctx context.Context, participant DID, threshold int64, scope string) (bool, error)
	// UpdateReputation applies a change to the participant's reputation in the given context.
	UpdateReputation(ctx context.Context, participant DID, change int64, scope string) error
}

//go:generate mockgen -destination=internal/mocks/broadcaster_mock.go -package=mocks . Broadcaster

// Broadcaster delivers the engine's own proposals and votes to its peers.
type Broadcaster interface {
	BroadcastProposal(ctx context.Context, block *Block, signature []byte) error
	BroadcastVote(ctx context.Context, vote Vote) error
}

// Signer signs messages on behalf of the local validator.
type Signer interface {
	Sign(msg []byte) ([]byte, error)
}

// Verifier checks signatures made by validators.
type Verifier interface {
	// Verify returns true if sig is a valid signature of msg by the validator with the given DID.
	Verify(signer DID, msg, sig []byte) bool
}

// PayloadSource supplies the payload of blocks proposed by the local validator.
type PayloadSource interface {
	// NextPayload returns the payload for a block at the given height.
	NextPayload(ctx context.Context, height uint64) ([]byte, error)
}

// ReputationScope is the context name the engine uses when talking to the ReputationManager.
const ReputationScope = "consensus"
