// Package boltstore implements a block store on top of a bbolt database file.
package boltstore

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/icn-network/poc"
)

var _ poc.Store = (*Store)(nil)

var (
	blocksBucket     = []byte("blocks")
	validatorsBucket = []byte("validators")
)

// Store persists blocks and validator snapshots keyed by block height.
type Store struct {
	db *bbolt.DB
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open block store: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{blocksBucket, validatorsBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create buckets: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func heightKey(height uint64) []byte {
	var k [8]byte
	binary.BigEndian.PutUint64(k[:], height)
	return k[:]
}

type storedBlock struct {
	Hash      string    `json:"hash"`
	Height    uint64    `json:"height"`
	PrevHash  string    `json:"prev_hash"`
	Timestamp time.Time `json:"timestamp"`
	Proposer  poc.DID   `json:"proposer"`
	Payload   []byte    `json:"payload"`
}

func encodeBlock(b *poc.Block) ([]byte, error) {
	return json.Marshal(storedBlock{
		Hash:      b.Hash().String(),
		Height:    b.Height(),
		PrevHash:  b.PrevHash().String(),
		Timestamp: b.Timestamp(),
		Proposer:  b.Proposer(),
		Payload:   b.Payload(),
	})
}

func decodeBlock(data []byte) (*poc.Block, error) {
	var sb storedBlock
	if err := json.Unmarshal(data, &sb); err != nil {
		return nil, err
	}
	prev, err := poc.ParseHash(sb.PrevHash)
	if err != nil {
		return nil, fmt.Errorf("previous hash: %w", err)
	}
	b := poc.NewBlock(sb.Height, prev, sb.Timestamp, sb.Proposer, sb.Payload)
	if got := b.Hash().String(); got != sb.Hash {
		return nil, fmt.Errorf("block %d is corrupt: stored hash %.8s, computed %.8s", sb.Height, sb.Hash, got)
	}
	return b, nil
}

// LastCommitted returns the block with the greatest height, or nil if the store is empty.
func (s *Store) LastCommitted(ctx context.Context) (block *poc.Block, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	err = s.db.View(func(tx *bbolt.Tx) error {
		_, v := tx.Bucket(blocksBucket).Cursor().Last()
		if v == nil {
			return nil
		}
		block, err = decodeBlock(v)
		return err
	})
	return block, err
}

// Block returns the block at the given height.
func (s *Store) Block(ctx context.Context, height uint64) (block *poc.Block, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	err = s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(blocksBucket).Get(heightKey(height))
		if v == nil {
			return fmt.Errorf("no block at height %d", height)
		}
		block, err = decodeBlock(v)
		return err
	})
	return block, err
}

// SaveBlock stores the block under its height.
func (s *Store) SaveBlock(ctx context.Context, block *poc.Block) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := encodeBlock(block)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(blocksBucket).Put(heightKey(block.Height()), data)
	})
}

type storedValidator struct {
	DID               poc.DID    `json:"did"`
	Cooperative       string     `json:"cooperative,omitempty"`
	Reputation        float64    `json:"reputation"`
	LastProposed      *time.Time `json:"last_proposed,omitempty"`
	LastVotedRound    *uint64    `json:"last_voted_round,omitempty"`
	ProposedBlocks    uint64     `json:"proposed_blocks"`
	MissedRounds      uint64     `json:"missed_rounds"`
	ConsecutiveMisses uint64     `json:"consecutive_misses"`
}

// SaveValidators stores the validator snapshot taken at the given height.
func (s *Store) SaveValidators(ctx context.Context, height uint64, validators []poc.Validator) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	stored := make([]storedValidator, len(validators))
	for i, v := range validators {
		stored[i] = storedValidator(v)
	}
	data, err := json.Marshal(stored)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(validatorsBucket).Put(heightKey(height), data)
	})
}

// LastValidators returns the most recent validator snapshot and its height.
// It returns a nil slice if no snapshot was saved.
func (s *Store) LastValidators(ctx context.Context) (height uint64, validators []poc.Validator, err error) {
	if err := ctx.Err(); err != nil {
		return 0, nil, err
	}
	err = s.db.View(func(tx *bbolt.Tx) error {
		k, v := tx.Bucket(validatorsBucket).Cursor().Last()
		if v == nil {
			return nil
		}
		var stored []storedValidator
		if err := json.Unmarshal(v, &stored); err != nil {
			return err
		}
		height = binary.BigEndian.Uint64(k)
		validators = make([]poc.Validator, len(stored))
		for i, sv := range stored {
			validators[i] = poc.Validator(sv)
		}
		return nil
	})
	return height, validators, err
}
