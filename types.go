// Package poc defines the data types shared by the Proof of Cooperation consensus engine:
// validators, blocks, votes, lifecycle events, the genesis configuration and the
// interfaces of the collaborators the engine talks to.
package poc

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"time"
)

// DID is the decentralized identifier of a network participant.
// The engine treats it as an opaque string.
type DID string

// ToBytes returns the DID as a length-prefixed byte slice.
func (d DID) ToBytes() []byte {
	buf := make([]byte, 4, 4+len(d))
	binary.LittleEndian.PutUint32(buf, uint32(len(d)))
	return append(buf, d...)
}

// Hash is a SHA256 hash.
type Hash [32]byte

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// IsZero returns true if the hash has not been set.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// ParseHash decodes a hex encoded hash.
func ParseHash(s string) (h Hash, err error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, err
	}
	if len(b) != len(h) {
		return h, fmt.Errorf("hash must be %d bytes, got %d", len(h), len(b))
	}
	copy(h[:], b)
	return h, nil
}

// ClampReputation restricts a reputation score to the range [0, 1].
// NaN is treated as zero.
func ClampReputation(r float64) float64 {
	if math.IsNaN(r) {
		return 0
	}
	return math.Min(1, math.Max(0, r))
}

// Validator is a participant authorized to propose and vote on blocks.
type Validator struct {
	DID         DID
	Cooperative string
	// Reputation is always in the range [0, 1].
	Reputation float64
	// LastProposed is the time of the last committed block proposed by the validator.
	LastProposed *time.Time
	// LastVotedRound is the last round in which the validator's vote was counted.
	LastVotedRound *uint64

	ProposedBlocks    uint64
	MissedRounds      uint64
	ConsecutiveMisses uint64
}

// Clone returns a deep copy of the validator.
func (v Validator) Clone() Validator {
	if v.LastProposed != nil {
		t := *v.LastProposed
		v.LastProposed = &t
	}
	if v.LastVotedRound != nil {
		r := *v.LastVotedRound
		v.LastVotedRound = &r
	}
	return v
}

func (v Validator) String() string {
	return fmt.Sprintf("Validator{ did: %s, coop: %q, reputation: %.4f }", v.DID, v.Cooperative, v.Reputation)
}
