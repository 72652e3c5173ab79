// Package memstore implements an in-memory block store.
package memstore

import (
	"context"
	"sync"

	"github.com/icn-network/poc"
)

var _ poc.Store = (*Store)(nil)

// Store keeps committed blocks and validator snapshots in memory.
type Store struct {
	mut        sync.Mutex
	blocks     []*poc.Block
	validators map[uint64][]poc.Validator
}

// New returns an empty store.
func New() *Store {
	return &Store{validators: make(map[uint64][]poc.Validator)}
}

// LastCommitted returns the last saved block, or nil.
func (s *Store) LastCommitted(_ context.Context) (*poc.Block, error) {
	s.mut.Lock()
	defer s.mut.Unlock()
	if len(s.blocks) == 0 {
		return nil, nil
	}
	return s.blocks[len(s.blocks)-1], nil
}

// SaveBlock appends a block.
func (s *Store) SaveBlock(ctx context.Context, block *poc.Block) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mut.Lock()
	defer s.mut.Unlock()
	s.blocks = append(s.blocks, block)
	return nil
}

// SaveValidators stores a copy of the validator snapshot taken at the given height.
func (s *Store) SaveValidators(ctx context.Context, height uint64, validators []poc.Validator) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	snapshot := make([]poc.Validator, len(validators))
	for i, v := range validators {
		snapshot[i] = v.Clone()
	}
	s.mut.Lock()
	defer s.mut.Unlock()
	s.validators[height] = snapshot
	return nil
}

// Blocks returns all saved blocks in the order they were saved.
func (s *Store) Blocks() []*poc.Block {
	s.mut.Lock()
	defer s.mut.Unlock()
	return append([]*poc.Block(nil), s.blocks...)
}

// Validators returns the snapshot saved at the given height.
func (s *Store) Validators(height uint64) ([]poc.Validator, bool) {
	s.mut.Lock()
	defer s.mut.Unlock()
	v, ok := s.validators[height]
	return v, ok
}
