package poc

import (
	"errors"
	"testing"
	"time"

	"go.uber.org/multierr"
)

func testGenesis(n int) GenesisConfig {
	g := GenesisConfig{
		Timestamp:  time.Unix(1700000000, 0).UTC(),
		Governance: DefaultGovernanceParams(),
	}
	for i := 0; i < n; i++ {
		g.Validators = append(g.Validators, GenesisValidator{
			DID:         DID("did:icn:v" + string(rune('a'+i))),
			Cooperative: "coop-" + string(rune('a'+i)),
			Reputation:  0.25,
		})
	}
	return g
}

func TestGenesisValidate(t *testing.T) {
	g := testGenesis(4)
	if err := g.Validate(); err != nil {
		t.Fatalf("valid genesis rejected: %v", err)
	}
}

func TestGenesisBelowMinimum(t *testing.T) {
	g := testGenesis(3)
	err := g.Validate()
	if !errors.Is(err, ErrInvalidGenesis) {
		t.Fatalf("expected ErrInvalidGenesis, got %v", err)
	}
}

func TestGenesisReportsAllProblems(t *testing.T) {
	g := testGenesis(4)
	g.Validators[1].DID = g.Validators[0].DID
	g.Validators[2].Reputation = 1.5
	g.Validators[3].Cooperative = g.Validators[0].Cooperative
	g.Validators[1].Cooperative = g.Validators[0].Cooperative

	err := g.Validate()
	errs := multierr.Errors(err)
	if len(errs) != 3 {
		t.Fatalf("expected 3 errors, got %d: %v", len(errs), err)
	}
	if !errors.Is(err, ErrDuplicateValidator) {
		t.Error("expected ErrDuplicateValidator")
	}
	if !errors.Is(err, ErrCooperativeFull) {
		t.Error("expected ErrCooperativeFull")
	}
}

func TestGenesisHashIgnoresValidatorOrder(t *testing.T) {
	a := testGenesis(4)
	b := testGenesis(4)
	b.Validators[0], b.Validators[3] = b.Validators[3], b.Validators[0]
	if a.Hash() != b.Hash() {
		t.Error("genesis hash depends on validator order")
	}
	b.Validators[0].Reputation = 0.5
	if a.Hash() == b.Hash() {
		t.Error("genesis hash does not depend on reputation")
	}
}
