package config_test

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/viper"

	"github.com/icn-network/poc"
	"github.com/icn-network/poc/internal/config"
)

func newViper() *viper.Viper {
	v := viper.New()
	config.Configure(v)
	return v
}

func TestDefaults(t *testing.T) {
	cfg, err := config.Load(newViper())
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(poc.DefaultConfig(), cfg.Consensus); diff != "" {
		t.Errorf("consensus config mismatch (-want +got):\n%s", diff)
	}
	if cfg.Validators != 4 || cfg.Duration != 10*time.Second {
		t.Errorf("unexpected node defaults: %+v", cfg)
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("POC_CONSENSUS_ROUND_VOTING_TIMEOUT", "7s")
	t.Setenv("POC_CONSENSUS_VALIDATOR_MIN_REPUTATION", "0.2")
	t.Setenv("POC_VALIDATORS", "9")

	cfg, err := config.Load(newViper())
	if err != nil {
		t.Fatal(err)
	}
	if got := cfg.Consensus.Round.VotingTimeout; got != 7*time.Second {
		t.Errorf("voting timeout = %v, want 7s", got)
	}
	if got := cfg.Consensus.Validator.MinReputation; got != 0.2 {
		t.Errorf("min reputation = %v, want 0.2", got)
	}
	if cfg.Validators != 9 {
		t.Errorf("validators = %d, want 9", cfg.Validators)
	}
}

func TestConfigFile(t *testing.T) {
	v := newViper()
	v.SetConfigType("yaml")
	file := `
validators: 7
silent: 2
consensus:
  round:
    quorum-fraction: 0.67
    proposal-timeout: 500ms
`
	if err := v.ReadConfig(strings.NewReader(file)); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(v)
	if err != nil {
		t.Fatal(err)
	}
	want := poc.DefaultConfig()
	want.Round.QuorumFraction = 0.67
	want.Round.ProposalTimeout = 500 * time.Millisecond
	if diff := cmp.Diff(want, cfg.Consensus); diff != "" {
		t.Errorf("consensus config mismatch (-want +got):\n%s", diff)
	}
	if cfg.Validators != 7 || cfg.Silent != 2 {
		t.Errorf("unexpected node config: %+v", cfg)
	}
}

func TestInvalidSettings(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  any
	}{
		{"quorum", "consensus.round.quorum-fraction", 0},
		{"no validators", "validators", 0},
		{"all silent", "silent", 4},
		{"negative rate", "payload-rate", -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newViper()
			v.Set(tt.key, tt.val)
			if _, err := config.Load(v); !errors.Is(err, poc.ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestGenesisFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "genesis.yaml")
	want := config.Testnet(5, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	if err := config.WriteGenesis(path, want); err != nil {
		t.Fatal(err)
	}
	got, err := config.LoadGenesis(path)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("genesis mismatch (-want +got):\n%s", diff)
	}
	if got.Hash() != want.Hash() {
		t.Error("genesis hash changed after a round trip")
	}
}

func TestDecodeGenesisErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want error
	}{
		{"unknown field", "validators: []\ncolour: blue\n", poc.ErrInvalidGenesis},
		{"too few validators", "governance:\n  min_validators: 2\nvalidators:\n  - did: did:icn:a\n    reputation: 0.5\n", poc.ErrInvalidGenesis},
		{"cooperative full", `governance:
  min_validators: 1
  max_validators_per_cooperative: 1
validators:
  - {did: did:icn:a, cooperative: c, reputation: 0.5}
  - {did: did:icn:b, cooperative: c, reputation: 0.5}
`, poc.ErrCooperativeFull},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := config.DecodeGenesis(strings.NewReader(tt.doc)); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestTestnet(t *testing.T) {
	g := config.Testnet(3, time.Now())
	if err := g.Validate(); err != nil {
		t.Fatal(err)
	}
	if g.Governance.MinValidators != 3 || len(g.Validators) != 3 {
		t.Errorf("unexpected genesis %+v", g)
	}
}
