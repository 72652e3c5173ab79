package poc

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"time"
)

// Block is an immutable, proposed batch of transactions together with the metadata
// needed to chain it to the previously committed block.
type Block struct {
	// keep a copy of the hash to avoid hashing multiple times
	hash      Hash
	height    uint64
	prevHash  Hash
	timestamp time.Time
	proposer  DID
	payload   []byte
}

// NewBlock creates a new Block. The hash is derived from the other fields and cannot be set.
func NewBlock(height uint64, prevHash Hash, timestamp time.Time, proposer DID, payload []byte) *Block {
	b := &Block{
		height:    height,
		prevHash:  prevHash,
		timestamp: timestamp.UTC(),
		proposer:  proposer,
		payload:   append([]byte(nil), payload...),
	}
	// cache the hash immediately because it is too racy to do it in Hash()
	b.hash = sha256.Sum256(b.ToBytes())
	return b
}

func (b *Block) String() string {
	return fmt.Sprintf(
		"Block{ hash: %.8s prev: %.8s, proposer: %s, height: %d, payload: %dB }",
		b.hash.String(),
		b.prevHash.String(),
		b.proposer,
		b.height,
		len(b.payload),
	)
}

// Hash returns the hash of the Block.
func (b *Block) Hash() Hash {
	return b.hash
}

// Height returns the height of the block, which equals the round it was proposed in.
func (b *Block) Height() uint64 {
	return b.height
}

// PrevHash returns the hash of the previously committed block.
func (b *Block) PrevHash() Hash {
	return b.prevHash
}

// Timestamp returns the time at which the proposer created the block.
func (b *Block) Timestamp() time.Time {
	return b.timestamp
}

// Proposer returns the DID of the validator who proposed the block.
func (b *Block) Proposer() DID {
	return b.proposer
}

// Payload returns a copy of the opaque transaction and metadata payload.
func (b *Block) Payload() []byte {
	return append([]byte(nil), b.payload...)
}

// PayloadSize returns the length of the payload in bytes.
func (b *Block) PayloadSize() int {
	return len(b.payload)
}

// ToBytes returns the raw byte form of the Block, to be used for hashing and signing.
func (b *Block) ToBytes() []byte {
	buf := make([]byte, 0, 8+len(b.prevHash)+8+4+len(b.proposer)+len(b.payload))
	var u64 [8]byte
	binary.LittleEndian.PutUint64(u64[:], b.height)
	buf = append(buf, u64[:]...)
	buf = append(buf, b.prevHash[:]...)
	binary.LittleEndian.PutUint64(u64[:], uint64(b.timestamp.UnixNano()))
	buf = append(buf, u64[:]...)
	buf = append(buf, b.proposer.ToBytes()...)
	buf = append(buf, b.payload...)
	return buf
}
