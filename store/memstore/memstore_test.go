package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/icn-network/poc"
)

func TestStore(t *testing.T) {
	ctx := context.Background()
	s := New()

	if b, err := s.LastCommitted(ctx); b != nil || err != nil {
		t.Fatalf("empty store: got (%v, %v)", b, err)
	}

	b0 := poc.NewBlock(0, poc.Hash{1}, time.Unix(10, 0), "did:icn:a", []byte("x"))
	b2 := poc.NewBlock(2, b0.Hash(), time.Unix(20, 0), "did:icn:b", nil)
	for _, b := range []*poc.Block{b0, b2} {
		if err := s.SaveBlock(ctx, b); err != nil {
			t.Fatal(err)
		}
	}
	last, err := s.LastCommitted(ctx)
	if err != nil || last.Hash() != b2.Hash() {
		t.Errorf("LastCommitted = (%v, %v), want block at height 2", last, err)
	}

	validators := []poc.Validator{{DID: "did:icn:a", Reputation: 0.5}}
	if err := s.SaveValidators(ctx, 2, validators); err != nil {
		t.Fatal(err)
	}
	validators[0].Reputation = 0.9
	got, ok := s.Validators(2)
	if !ok || got[0].Reputation != 0.5 {
		t.Errorf("Validators(2) = %v, %t", got, ok)
	}
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := New()
	if err := s.SaveBlock(ctx, poc.NewBlock(0, poc.Hash{}, time.Now(), "did:icn:a", nil)); err == nil {
		t.Error("SaveBlock succeeded with a canceled context")
	}
	if len(s.Blocks()) != 0 {
		t.Error("block was saved")
	}
}
