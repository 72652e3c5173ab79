package boltstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/icn-network/poc"
)

func openStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "blocks.db")
	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	return s, path
}

func TestEmptyStore(t *testing.T) {
	s, _ := openStore(t)
	defer s.Close()

	b, err := s.LastCommitted(context.Background())
	if b != nil || err != nil {
		t.Errorf("LastCommitted on an empty store = (%v, %v)", b, err)
	}
	_, validators, err := s.LastValidators(context.Background())
	if validators != nil || err != nil {
		t.Errorf("LastValidators on an empty store = (%v, %v)", validators, err)
	}
}

func TestBlocksSurviveReopen(t *testing.T) {
	ctx := context.Background()
	s, path := openStore(t)

	b1 := poc.NewBlock(1, poc.Hash{7}, time.Unix(100, 5), "did:icn:a", []byte("payload"))
	b3 := poc.NewBlock(3, b1.Hash(), time.Unix(200, 0), "did:icn:b", nil)
	for _, b := range []*poc.Block{b1, b3} {
		if err := s.SaveBlock(ctx, b); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	last, err := s.LastCommitted(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if last.Hash() != b3.Hash() || last.Height() != 3 {
		t.Errorf("LastCommitted = %v, want %v", last, b3)
	}
	got, err := s.Block(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if got.Hash() != b1.Hash() || string(got.Payload()) != "payload" {
		t.Errorf("Block(1) = %v, want %v", got, b1)
	}
	if _, err := s.Block(ctx, 2); err == nil {
		t.Error("expected an error for a missing height")
	}
}

func TestValidatorSnapshots(t *testing.T) {
	ctx := context.Background()
	s, _ := openStore(t)
	defer s.Close()

	proposed := time.Unix(50, 0).UTC()
	round := uint64(4)
	snap := []poc.Validator{
		{DID: "did:icn:a", Cooperative: "coop-a", Reputation: 0.6, LastProposed: &proposed, ProposedBlocks: 2},
		{DID: "did:icn:b", Reputation: 0.4, LastVotedRound: &round, MissedRounds: 1},
	}
	if err := s.SaveValidators(ctx, 3, snap[:1]); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveValidators(ctx, 4, snap); err != nil {
		t.Fatal(err)
	}

	height, got, err := s.LastValidators(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if height != 4 || len(got) != 2 {
		t.Fatalf("LastValidators = (%d, %v)", height, got)
	}
	if !got[0].LastProposed.Equal(proposed) || got[0].ProposedBlocks != 2 || got[0].Cooperative != "coop-a" {
		t.Errorf("validator a = %+v", got[0])
	}
	if got[1].LastVotedRound == nil || *got[1].LastVotedRound != 4 || got[1].MissedRounds != 1 {
		t.Errorf("validator b = %+v", got[1])
	}
}
