package engine_test

import (
	"context"
	"errors"
	"testing"

	"github.com/benbjohnson/clock"
	"github.com/golang/mock/gomock"

	"github.com/icn-network/poc"
	"github.com/icn-network/poc/engine"
	"github.com/icn-network/poc/governance"
	"github.com/icn-network/poc/internal/mocks"
	"github.com/icn-network/poc/logging"
	"github.com/icn-network/poc/round"
)

func newIdleEngine(t *testing.T, opts ...engine.Option) *engine.Engine {
	t.Helper()
	opts = append([]engine.Option{engine.WithClock(clock.NewMock()), engine.WithLogger(logging.NewNop())}, opts...)
	eng, err := engine.New(testGenesis(0.25, 0.25, 0.25, 0.25), testConfig(), opts...)
	if err != nil {
		t.Fatal(err)
	}
	return eng
}

func TestReputationChangeProposal(t *testing.T) {
	ctrl := gomock.NewController(t)
	rm := mocks.NewMockReputationManager(ctrl)
	rm.EXPECT().UpdateReputation(gomock.Any(), did(0), int64(-100), poc.ReputationScope).Return(nil)

	eng := newIdleEngine(t, engine.WithReputationManager(rm))
	sub := eng.Subscribe()
	ctx := context.Background()

	p := governance.Proposal{ID: "p1", Kind: governance.ReputationChange, Validator: did(0), Delta: -0.1}
	if err := eng.SubmitProposal(p); err != nil {
		t.Fatal(err)
	}
	if err := eng.SubmitProposal(p); !errors.Is(err, governance.ErrDuplicateProposal) {
		t.Errorf("expected ErrDuplicateProposal, got %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := eng.ProcessApprovedProposal(ctx, "p1"); err != nil {
			t.Fatalf("attempt %d: %v", i, err)
		}
	}
	if rep := reputations(eng)[did(0)]; !approx(rep, 0.15) {
		t.Errorf("reputation = %v, want 0.15", rep)
	}

	update, ok := (<-sub.C).(poc.ValidatorUpdate)
	if !ok || update.Validator != did(0) || !approx(update.Delta, -0.1) {
		t.Errorf("unexpected event %v", update)
	}
	if n := len(sub.C); n != 0 {
		t.Errorf("applying the proposal twice published %d more events", n)
	}

	if err := eng.ProcessApprovedProposal(ctx, "unknown"); !errors.Is(err, poc.ErrProposalNotFound) {
		t.Errorf("expected ErrProposalNotFound, got %v", err)
	}
}

func TestValidatorAdmissionProposal(t *testing.T) {
	eng := newIdleEngine(t)
	ctx := context.Background()

	full := governance.Proposal{ID: "full", Kind: governance.ValidatorAdmission, Validator: "did:icn:x", Cooperative: "coop-0", Reputation: 0.1}
	known := governance.Proposal{ID: "known", Kind: governance.ValidatorAdmission, Validator: did(1), Cooperative: "coop-9", Reputation: 0.1}
	ok := governance.Proposal{ID: "ok", Kind: governance.ValidatorAdmission, Validator: "did:icn:x", Cooperative: "coop-9", Reputation: 0.1}
	for _, p := range []governance.Proposal{full, known, ok} {
		if err := eng.SubmitProposal(p); err != nil {
			t.Fatal(err)
		}
	}

	if err := eng.ProcessApprovedProposal(ctx, "full"); !errors.Is(err, poc.ErrCooperativeFull) {
		t.Errorf("expected ErrCooperativeFull, got %v", err)
	}
	if err := eng.ProcessApprovedProposal(ctx, "known"); !errors.Is(err, poc.ErrDuplicateValidator) {
		t.Errorf("expected ErrDuplicateValidator, got %v", err)
	}
	if err := eng.ProcessApprovedProposal(ctx, "ok"); err != nil {
		t.Fatal(err)
	}
	if n := len(eng.Validators()); n != 5 {
		t.Errorf("got %d validators, want 5", n)
	}
}

func TestParameterChangeProposal(t *testing.T) {
	eng := newIdleEngine(t)
	ctx := context.Background()

	proposals := []governance.Proposal{
		{ID: "quorum", Kind: governance.ParameterChange, Parameter: "quorum-fraction", Value: "0.67"},
		{ID: "bad", Kind: governance.ParameterChange, Parameter: "quorum-fraction", Value: "2"},
	}
	for _, p := range proposals {
		if err := eng.SubmitProposal(p); err != nil {
			t.Fatal(err)
		}
	}
	if err := eng.SubmitProposal(governance.Proposal{ID: "x", Kind: governance.ParameterChange, Parameter: "nope"}); err == nil {
		t.Error("proposal for an unknown parameter was accepted")
	}

	if err := eng.ProcessApprovedProposal(ctx, "quorum"); err != nil {
		t.Fatal(err)
	}
	if q := eng.Config().Round.QuorumFraction; q != 0.67 {
		t.Errorf("quorum fraction = %v, want 0.67", q)
	}
	if err := eng.ProcessApprovedProposal(ctx, "bad"); !errors.Is(err, poc.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
	if q := eng.Config().Round.QuorumFraction; q != 0.67 {
		t.Errorf("rejected proposal changed the quorum fraction to %v", q)
	}
}

func TestReputationChangeCompletesQuorum(t *testing.T) {
	h := start(t, testGenesis(0.25, 0.25, 0.25, 0.25), testConfig())
	ctx := context.Background()

	started := expect[poc.RoundStarted](h)
	h.propose(started)
	for i := 0; i < 2; i++ {
		if got := h.vote(0, did(i), true); got != poc.VotePending {
			t.Fatalf("vote %d: got %v, want Pending", i, got)
		}
	}

	p := governance.Proposal{ID: "boost", Kind: governance.ReputationChange, Validator: did(0), Delta: 0.1}
	if err := h.engine.SubmitProposal(p); err != nil {
		t.Fatal(err)
	}
	if err := h.engine.ProcessApprovedProposal(ctx, "boost"); err != nil {
		t.Fatal(err)
	}

	update := expect[poc.ValidatorUpdate](h)
	if update.Validator != did(0) || !approx(update.Delta, 0.1) {
		t.Errorf("unexpected %v", update)
	}
	completed := expect[poc.RoundCompleted](h)
	if completed.Round != 0 || len(completed.Approvers) != 2 {
		t.Errorf("unexpected %v", completed)
	}
}

func TestReputationChangeBelowQuorum(t *testing.T) {
	h := start(t, testGenesis(0.25, 0.25, 0.25, 0.25), testConfig())
	ctx := context.Background()

	started := expect[poc.RoundStarted](h)
	h.propose(started)
	if got := h.vote(0, did(0), true); got != poc.VotePending {
		t.Fatalf("got %v, want Pending", got)
	}

	p := governance.Proposal{ID: "boost", Kind: governance.ReputationChange, Validator: did(0), Delta: 0.1}
	if err := h.engine.SubmitProposal(p); err != nil {
		t.Fatal(err)
	}
	if err := h.engine.ProcessApprovedProposal(ctx, "boost"); err != nil {
		t.Fatal(err)
	}
	expect[poc.ValidatorUpdate](h)
	h.expectQuiet()
	if info := h.engine.CurrentRound(); info.Number != 0 || info.Phase != round.VotingPhase {
		t.Errorf("round left voting: %+v", info)
	}
}
