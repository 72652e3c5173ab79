package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/multierr"

	"github.com/icn-network/poc"
)

// EnvPrefix is the prefix of environment variables that override settings.
// For example, POC_CONSENSUS_ROUND_VOTING_TIMEOUT sets consensus.round.voting-timeout.
const EnvPrefix = "poc"

// Node holds the settings of a pocnode process.
type Node struct {
	// Validators is the size of the generated test network. It is ignored if GenesisFile is set.
	Validators int
	// Silent is the number of simulated validators that never propose or vote.
	Silent      int
	Duration    time.Duration
	GenesisFile string
	// DataDir holds the block store. An empty DataDir keeps blocks in memory.
	DataDir             string
	MetricsAddr         string
	MeasurementInterval time.Duration
	// PayloadRate limits the blocks per second the simulated validators fill. Zero means no limit.
	PayloadRate float64
	PayloadSize int
	SharedSeed  int64

	Output        string
	CPUProfile    bool
	MemProfile    bool
	Trace         bool
	FgprofProfile bool

	Consensus poc.Config
}

// Configure sets the defaults of every setting and makes v read overrides from the environment.
func Configure(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("validators", 4)
	v.SetDefault("silent", 0)
	v.SetDefault("duration", 10*time.Second)
	v.SetDefault("payload-size", 64)
	v.SetDefault("measurement-interval", 0)

	d := poc.DefaultConfig()
	v.SetDefault("consensus.validator.min-reputation", d.Validator.MinReputation)
	v.SetDefault("consensus.validator.proposer-cooldown", d.Validator.ProposerCooldown)
	v.SetDefault("consensus.validator.reward-step", d.Validator.RewardStep)
	v.SetDefault("consensus.validator.penalty-step", d.Validator.PenaltyStep)
	v.SetDefault("consensus.validator.proposer-reward", d.Validator.ProposerReward)
	v.SetDefault("consensus.validator.reputation-scale", d.Validator.ReputationScale)
	v.SetDefault("consensus.round.proposal-timeout", d.Round.ProposalTimeout)
	v.SetDefault("consensus.round.voting-timeout", d.Round.VotingTimeout)
	v.SetDefault("consensus.round.timeout-multiplier", d.Round.TimeoutMultiplier)
	v.SetDefault("consensus.round.max-timeout", d.Round.MaxTimeout)
	v.SetDefault("consensus.round.quorum-fraction", d.Round.QuorumFraction)
	v.SetDefault("consensus.round.max-timestamp-drift", d.Round.MaxTimestampDrift)
	v.SetDefault("consensus.round.max-payload-bytes", d.Round.MaxPayloadBytes)
	v.SetDefault("consensus.events.channel-size", d.Events.ChannelSize)
	v.SetDefault("consensus.events.log-events", d.Events.LogEvents)
	v.SetDefault("consensus.metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("consensus.metrics.namespace", d.Metrics.Namespace)
}

// Load reads the node settings from v and validates them.
func Load(v *viper.Viper) (*Node, error) {
	var settings struct {
		Consensus poc.Config `mapstructure:"consensus"`
	}
	if err := v.Unmarshal(&settings); err != nil {
		return nil, fmt.Errorf("%w: %v", poc.ErrInvalidConfig, err)
	}

	cfg := &Node{
		Validators:          v.GetInt("validators"),
		Silent:              v.GetInt("silent"),
		Duration:            v.GetDuration("duration"),
		GenesisFile:         v.GetString("genesis"),
		DataDir:             v.GetString("data-dir"),
		MetricsAddr:         v.GetString("metrics-addr"),
		MeasurementInterval: v.GetDuration("measurement-interval"),
		PayloadRate:         v.GetFloat64("payload-rate"),
		PayloadSize:         v.GetInt("payload-size"),
		SharedSeed:          v.GetInt64("shared-seed"),
		Output:              v.GetString("output"),
		CPUProfile:          v.GetBool("cpu-profile"),
		MemProfile:          v.GetBool("mem-profile"),
		Trace:               v.GetBool("trace"),
		FgprofProfile:       v.GetBool("fgprof-profile"),
		Consensus:           settings.Consensus,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the node settings, including the consensus configuration.
func (n *Node) Validate() (err error) {
	err = n.Consensus.Validate()
	if n.GenesisFile == "" && n.Validators < 1 {
		err = multierr.Append(err, fmt.Errorf("%w: need at least one validator", poc.ErrInvalidConfig))
	}
	if n.Silent < 0 || (n.GenesisFile == "" && n.Silent >= n.Validators) {
		err = multierr.Append(err, fmt.Errorf("%w: silent validators must leave at least one active validator", poc.ErrInvalidConfig))
	}
	if n.PayloadRate < 0 || n.PayloadSize < 0 {
		err = multierr.Append(err, fmt.Errorf("%w: payload rate and size cannot be negative", poc.ErrInvalidConfig))
	}
	return err
}
