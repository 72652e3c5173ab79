package registry

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/icn-network/poc"
)

func newRegistry(t *testing.T, reputations ...float64) *Registry {
	t.Helper()
	r := New(42)
	for i, rep := range reputations {
		did := poc.DID(fmt.Sprintf("did:icn:%c", 'a'+i))
		if err := r.Register(did, fmt.Sprintf("coop-%d", i%2), rep); err != nil {
			t.Fatal(err)
		}
	}
	return r
}

func TestRegisterDuplicate(t *testing.T) {
	r := newRegistry(t, 0.5)
	err := r.Register("did:icn:a", "coop-0", 0.3)
	if !errors.Is(err, poc.ErrDuplicateValidator) {
		t.Fatalf("expected ErrDuplicateValidator, got %v", err)
	}
	if r.Reputation("did:icn:a") != 0.5 {
		t.Error("duplicate registration changed the validator")
	}
}

func TestReputationIsClamped(t *testing.T) {
	r := newRegistry(t, 1.7, -0.2, 0.5)

	if got := r.Reputation("did:icn:a"); got != 1 {
		t.Errorf("registered reputation 1.7: got %v, want 1", got)
	}
	if got := r.Reputation("did:icn:b"); got != 0 {
		t.Errorf("registered reputation -0.2: got %v, want 0", got)
	}

	deltas := []float64{0.3, 0.3, -2, 0.05, 5}
	for _, d := range deltas {
		rep, err := r.UpdateReputation("did:icn:c", d)
		if err != nil {
			t.Fatal(err)
		}
		if rep < 0 || rep > 1 {
			t.Fatalf("reputation %v out of range after delta %v", rep, d)
		}
	}
	if got := r.Reputation("did:icn:c"); got != 1 {
		t.Errorf("got %v, want 1", got)
	}

	if err := r.SetReputation("did:icn:c", -1); err != nil {
		t.Fatal(err)
	}
	if got := r.Reputation("did:icn:c"); got != 0 {
		t.Errorf("got %v, want 0", got)
	}
}

func TestUnknownValidator(t *testing.T) {
	r := newRegistry(t, 0.5)
	if _, err := r.UpdateReputation("did:icn:z", 0.1); !errors.Is(err, poc.ErrUnknownValidator) {
		t.Errorf("UpdateReputation: expected ErrUnknownValidator, got %v", err)
	}
	if _, err := r.EligibleProposer("did:icn:z", time.Now(), 0); !errors.Is(err, poc.ErrUnknownValidator) {
		t.Errorf("EligibleProposer: expected ErrUnknownValidator, got %v", err)
	}
	if _, err := r.Get("did:icn:z"); !errors.Is(err, poc.ErrUnknownValidator) {
		t.Errorf("Get: expected ErrUnknownValidator, got %v", err)
	}
}

func TestEligibleProposerCooldown(t *testing.T) {
	clk := clock.NewMock()
	r := newRegistry(t, 0.5)
	cooldown := 10 * time.Second

	ok, err := r.EligibleProposer("did:icn:a", clk.Now(), cooldown)
	if err != nil || !ok {
		t.Fatalf("a validator that never proposed must be eligible (ok=%t, err=%v)", ok, err)
	}

	if err := r.MarkProposed("did:icn:a", clk.Now()); err != nil {
		t.Fatal(err)
	}
	clk.Add(cooldown - time.Millisecond)
	if ok, _ := r.EligibleProposer("did:icn:a", clk.Now(), cooldown); ok {
		t.Error("validator is eligible before its cooldown expired")
	}
	clk.Add(time.Millisecond)
	if ok, _ := r.EligibleProposer("did:icn:a", clk.Now(), cooldown); !ok {
		t.Error("validator is not eligible after its cooldown expired")
	}
}

func TestSelectProposerIsDeterministic(t *testing.T) {
	now := time.Unix(1700000000, 0)
	r1 := newRegistry(t, 0.25, 0.25, 0.25, 0.25)

	// same validators, registered in reverse order
	r2 := New(42)
	for _, v := range []poc.DID{"did:icn:d", "did:icn:c", "did:icn:b", "did:icn:a"} {
		if err := r2.Register(v, "", 0.25); err != nil {
			t.Fatal(err)
		}
	}

	for round := uint64(0); round < 50; round++ {
		p1, err := r1.SelectProposer(round, now, time.Second)
		if err != nil {
			t.Fatal(err)
		}
		p2, err := r2.SelectProposer(round, now, time.Second)
		if err != nil {
			t.Fatal(err)
		}
		again, _ := r1.SelectProposer(round, now, time.Second)
		if p1 != p2 || p1 != again {
			t.Fatalf("round %d: selections differ: %s, %s, %s", round, p1, p2, again)
		}
	}
}

func TestSelectProposerFavorsReputation(t *testing.T) {
	now := time.Unix(1700000000, 0)
	r := newRegistry(t, 0.95, 0.05)

	counts := make(map[poc.DID]int)
	for round := uint64(0); round < 1000; round++ {
		p, err := r.SelectProposer(round, now, 0)
		if err != nil {
			t.Fatal(err)
		}
		counts[p]++
	}
	if counts["did:icn:a"] <= counts["did:icn:b"] {
		t.Errorf("high reputation validator was not favored: %v", counts)
	}
}

func TestSelectProposerSkipsCooldown(t *testing.T) {
	clk := clock.NewMock()
	r := newRegistry(t, 0.5, 0.5, 0.5)
	cooldown := time.Minute

	if err := r.MarkProposed("did:icn:a", clk.Now()); err != nil {
		t.Fatal(err)
	}
	if err := r.MarkProposed("did:icn:b", clk.Now()); err != nil {
		t.Fatal(err)
	}
	for round := uint64(0); round < 20; round++ {
		p, err := r.SelectProposer(round, clk.Now(), cooldown)
		if err != nil {
			t.Fatal(err)
		}
		if p != "did:icn:c" {
			t.Fatalf("round %d: selected %s, which is in its cooldown", round, p)
		}
	}
}

func TestSelectProposerNoneEligible(t *testing.T) {
	r := newRegistry(t, 0, 0)
	_, err := r.SelectProposer(0, time.Now(), 0)
	if !errors.Is(err, poc.ErrNoEligibleProposer) {
		t.Errorf("expected ErrNoEligibleProposer, got %v", err)
	}
}

func TestSelectProposerTinyWeights(t *testing.T) {
	r := newRegistry(t, 1e-9, 1e-9)
	p, err := r.SelectProposer(3, time.Now(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if !r.Contains(p) {
		t.Errorf("selected unknown validator %s", p)
	}
}

func TestPerformanceCounters(t *testing.T) {
	r := newRegistry(t, 0.5)
	_ = r.RecordMiss("did:icn:a")
	_ = r.RecordMiss("did:icn:a")
	_ = r.MarkVoted("did:icn:a", 9)
	_ = r.RecordMiss("did:icn:a")

	v, err := r.Get("did:icn:a")
	if err != nil {
		t.Fatal(err)
	}
	if v.MissedRounds != 3 || v.ConsecutiveMisses != 1 {
		t.Errorf("missed=%d consecutive=%d, want 3 and 1", v.MissedRounds, v.ConsecutiveMisses)
	}
	if v.LastVotedRound == nil || *v.LastVotedRound != 9 {
		t.Errorf("LastVotedRound = %v, want 9", v.LastVotedRound)
	}
}

func TestSnapshotIsSortedCopy(t *testing.T) {
	r := newRegistry(t, 0.1, 0.2, 0.3)
	_ = r.MarkProposed("did:icn:b", time.Unix(5, 0))

	snap := r.Snapshot()
	if len(snap) != 3 || snap[0].DID != "did:icn:a" || snap[2].DID != "did:icn:c" {
		t.Fatalf("unexpected snapshot: %v", snap)
	}
	*snap[1].LastProposed = time.Unix(99, 0)
	v, _ := r.Get("did:icn:b")
	if !v.LastProposed.Equal(time.Unix(5, 0)) {
		t.Error("modifying the snapshot changed the registry")
	}
	if got := r.CountCooperative("coop-0"); got != 2 {
		t.Errorf("CountCooperative(coop-0) = %d, want 2", got)
	}
	if total := r.TotalReputation(); total < 0.599 || total > 0.601 {
		t.Errorf("TotalReputation = %v, want 0.6", total)
	}
}
