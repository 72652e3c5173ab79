package poc

import (
	"encoding/binary"
	"fmt"
)

// Vote is cast by a validator to approve or reject the block proposed in a round.
// Votes are consumed into the round they belong to and are not persisted separately.
type Vote struct {
	Round     uint64 // The round that the vote is for.
	Voter     DID    // The validator who cast the vote.
	Approve   bool
	Signature []byte // Optional signature over SigningBytes.
}

// SigningBytes returns the bytes that the voter signs.
func (v Vote) SigningBytes() []byte {
	buf := make([]byte, 9, 9+4+len(v.Voter))
	binary.LittleEndian.PutUint64(buf, v.Round)
	if v.Approve {
		buf[8] = 1
	}
	return append(buf, v.Voter.ToBytes()...)
}

func (v Vote) String() string {
	return fmt.Sprintf("Vote{ round: %d, voter: %s, approve: %t }", v.Round, v.Voter, v.Approve)
}

// VoteStatus is the outcome of submitting a vote.
type VoteStatus int

const (
	// VoteRejected means the vote was not applied to any round.
	VoteRejected VoteStatus = iota
	// VotePending means the vote was recorded and the round is still open.
	VotePending
	// VoteAccepted means the vote completed the quorum and the round committed.
	VoteAccepted
)

func (s VoteStatus) String() string {
	switch s {
	case VoteRejected:
		return "Rejected"
	case VotePending:
		return "Pending"
	case VoteAccepted:
		return "Accepted"
	default:
		return fmt.Sprintf("VoteStatus(%d)", int(s))
	}
}
