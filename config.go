package poc

import (
	"fmt"
	"math"
	"time"

	"go.uber.org/multierr"
)

// Config holds the configuration of the consensus engine.
type Config struct {
	Validator ValidatorConfig `mapstructure:"validator"`
	Round     RoundConfig     `mapstructure:"round"`
	Events    EventConfig     `mapstructure:"events"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// ValidatorConfig controls proposer selection and reputation bookkeeping.
type ValidatorConfig struct {
	// MinReputation is the reputation a validator needs to vote. Zero admits everyone.
	MinReputation float64 `mapstructure:"min-reputation"`
	// ProposerCooldown is the minimum time between two committed proposals of the same validator.
	ProposerCooldown time.Duration `mapstructure:"proposer-cooldown"`
	// RewardStep is added to the reputation of validators that approved a committed block.
	RewardStep float64 `mapstructure:"reward-step"`
	// PenaltyStep is subtracted from validators that rejected or did not vote on a committed block.
	PenaltyStep float64 `mapstructure:"penalty-step"`
	// ProposerReward is added to the reputation of the proposer of a committed block.
	ProposerReward float64 `mapstructure:"proposer-reward"`
	// ReputationScale converts reputation in [0, 1] to the integer scale of the reputation manager.
	ReputationScale int64 `mapstructure:"reputation-scale"`
}

// RoundConfig controls round timing and block acceptance.
type RoundConfig struct {
	ProposalTimeout time.Duration `mapstructure:"proposal-timeout"`
	VotingTimeout   time.Duration `mapstructure:"voting-timeout"`
	// TimeoutMultiplier scales both timeouts after every failed round. A commit resets them.
	TimeoutMultiplier float64       `mapstructure:"timeout-multiplier"`
	MaxTimeout        time.Duration `mapstructure:"max-timeout"`
	// QuorumFraction is the share of total reputation that approvals must reach.
	// Approvals must strictly exceed the default of one half, and meet any other fraction.
	QuorumFraction    float64       `mapstructure:"quorum-fraction"`
	MaxTimestampDrift time.Duration `mapstructure:"max-timestamp-drift"`
	MaxPayloadBytes   int           `mapstructure:"max-payload-bytes"`
}

// EventConfig controls the event publisher.
type EventConfig struct {
	// ChannelSize is the buffer size of every subscription.
	ChannelSize int `mapstructure:"channel-size"`
	// LogEvents mirrors every published event to the logger.
	LogEvents bool `mapstructure:"log-events"`
}

// MetricsConfig controls metrics collection.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Validator: ValidatorConfig{
			MinReputation:    0,
			ProposerCooldown: time.Second,
			RewardStep:       0.01,
			PenaltyStep:      0.01,
			ProposerReward:   0.02,
			ReputationScale:  1000,
		},
		Round: RoundConfig{
			ProposalTimeout:   2 * time.Second,
			VotingTimeout:     4 * time.Second,
			TimeoutMultiplier: 1.5,
			MaxTimeout:        30 * time.Second,
			QuorumFraction:    0.5,
			MaxTimestampDrift: time.Minute,
			MaxPayloadBytes:   1 << 20,
		},
		Events: EventConfig{
			ChannelSize: 1000,
			LogEvents:   true,
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "icn_consensus",
		},
	}
}

// Validate checks every section of the configuration and reports all problems.
func (c Config) Validate() error {
	return multierr.Combine(
		c.Validator.Validate(),
		c.Round.Validate(),
		c.Events.Validate(),
		c.Metrics.Validate(),
	)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...)
}

func inUnitRange(f float64) bool {
	return !math.IsNaN(f) && f >= 0 && f <= 1
}

// Validate checks the validator configuration.
func (c ValidatorConfig) Validate() (err error) {
	if !inUnitRange(c.MinReputation) {
		err = multierr.Append(err, invalid("min-reputation must be in [0, 1]"))
	}
	if c.ProposerCooldown < 0 {
		err = multierr.Append(err, invalid("proposer-cooldown cannot be negative"))
	}
	if !inUnitRange(c.RewardStep) || !inUnitRange(c.PenaltyStep) || !inUnitRange(c.ProposerReward) {
		err = multierr.Append(err, invalid("reputation steps must be in [0, 1]"))
	}
	if c.ReputationScale <= 0 {
		err = multierr.Append(err, invalid("reputation-scale must be positive"))
	}
	return err
}

// Validate checks the round configuration.
func (c RoundConfig) Validate() (err error) {
	if c.ProposalTimeout <= 0 {
		err = multierr.Append(err, invalid("proposal-timeout must be positive"))
	}
	if c.VotingTimeout <= 0 {
		err = multierr.Append(err, invalid("voting-timeout must be positive"))
	}
	if c.TimeoutMultiplier < 1 {
		err = multierr.Append(err, invalid("timeout-multiplier must be at least 1"))
	}
	if c.MaxTimeout < c.ProposalTimeout || c.MaxTimeout < c.VotingTimeout {
		err = multierr.Append(err, invalid("max-timeout must not be below the base timeouts"))
	}
	if math.IsNaN(c.QuorumFraction) || c.QuorumFraction <= 0 || c.QuorumFraction > 1 {
		err = multierr.Append(err, invalid("quorum-fraction must be in (0, 1]"))
	}
	if c.MaxTimestampDrift <= 0 {
		err = multierr.Append(err, invalid("max-timestamp-drift must be positive"))
	}
	if c.MaxPayloadBytes <= 0 {
		err = multierr.Append(err, invalid("max-payload-bytes must be positive"))
	}
	return err
}

// Validate checks the event configuration.
func (c EventConfig) Validate() error {
	if c.ChannelSize <= 0 {
		return invalid("channel-size must be greater than 0")
	}
	return nil
}

// Validate checks the metrics configuration.
func (c MetricsConfig) Validate() error {
	if c.Enabled && c.Namespace == "" {
		return invalid("metrics namespace cannot be empty")
	}
	return nil
}
