// Package governance defines the proposals that the network's governance process
// can approve and the consensus engine applies.
package governance

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"go.uber.org/multierr"

	"github.com/icn-network/poc"
)

// ErrDuplicateProposal is returned when a proposal with the same ID was already submitted.
var ErrDuplicateProposal = errors.New("duplicate proposal")

// Kind is the kind of change a proposal makes.
type Kind int

const (
	// ReputationChange adds Delta to the reputation of Validator.
	ReputationChange Kind = iota + 1
	// ValidatorAdmission registers Validator as a member of Cooperative with the given Reputation.
	ValidatorAdmission
	// ParameterChange sets the consensus parameter named Parameter to Value.
	ParameterChange
)

func (k Kind) String() string {
	switch k {
	case ReputationChange:
		return "ReputationChange"
	case ValidatorAdmission:
		return "ValidatorAdmission"
	case ParameterChange:
		return "ParameterChange"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Proposal is a governance decision. Which fields are used depends on Kind.
type Proposal struct {
	ID   string
	Kind Kind

	Validator   poc.DID
	Cooperative string
	Reputation  float64
	Delta       float64

	Parameter string
	Value     string
}

func (p Proposal) String() string {
	switch p.Kind {
	case ReputationChange:
		return fmt.Sprintf("Proposal{ id: %s, %v %s by %+.4f }", p.ID, p.Kind, p.Validator, p.Delta)
	case ValidatorAdmission:
		return fmt.Sprintf("Proposal{ id: %s, %v %s (%q) }", p.ID, p.Kind, p.Validator, p.Cooperative)
	default:
		return fmt.Sprintf("Proposal{ id: %s, %v %s=%s }", p.ID, p.Kind, p.Parameter, p.Value)
	}
}

// Validate checks that the proposal is well-formed.
func (p Proposal) Validate() (err error) {
	if p.ID == "" {
		err = multierr.Append(err, errors.New("proposal id is empty"))
	}
	switch p.Kind {
	case ReputationChange:
		if p.Validator == "" {
			err = multierr.Append(err, errors.New("reputation change without validator"))
		}
		if math.IsNaN(p.Delta) || math.IsInf(p.Delta, 0) {
			err = multierr.Append(err, fmt.Errorf("invalid reputation delta %v", p.Delta))
		}
	case ValidatorAdmission:
		if p.Validator == "" {
			err = multierr.Append(err, errors.New("admission without validator"))
		}
		if math.IsNaN(p.Reputation) || p.Reputation < 0 || p.Reputation > 1 {
			err = multierr.Append(err, fmt.Errorf("initial reputation must be in [0, 1], got %v", p.Reputation))
		}
	case ParameterChange:
		if _, ok := parameters[p.Parameter]; !ok {
			err = multierr.Append(err, fmt.Errorf("unknown parameter %q", p.Parameter))
		}
	default:
		err = multierr.Append(err, fmt.Errorf("unknown proposal kind %v", p.Kind))
	}
	return err
}

type setter func(cfg *poc.Config, value string) error

func durationSetter(field func(*poc.Config) *time.Duration) setter {
	return func(cfg *poc.Config, value string) error {
		d, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		*field(cfg) = d
		return nil
	}
}

func floatSetter(field func(*poc.Config) *float64) setter {
	return func(cfg *poc.Config, value string) error {
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		*field(cfg) = f
		return nil
	}
}

var parameters = map[string]setter{
	"min-reputation":      floatSetter(func(c *poc.Config) *float64 { return &c.Validator.MinReputation }),
	"proposer-cooldown":   durationSetter(func(c *poc.Config) *time.Duration { return &c.Validator.ProposerCooldown }),
	"reward-step":         floatSetter(func(c *poc.Config) *float64 { return &c.Validator.RewardStep }),
	"penalty-step":        floatSetter(func(c *poc.Config) *float64 { return &c.Validator.PenaltyStep }),
	"proposer-reward":     floatSetter(func(c *poc.Config) *float64 { return &c.Validator.ProposerReward }),
	"proposal-timeout":    durationSetter(func(c *poc.Config) *time.Duration { return &c.Round.ProposalTimeout }),
	"voting-timeout":      durationSetter(func(c *poc.Config) *time.Duration { return &c.Round.VotingTimeout }),
	"max-timeout":         durationSetter(func(c *poc.Config) *time.Duration { return &c.Round.MaxTimeout }),
	"timeout-multiplier":  floatSetter(func(c *poc.Config) *float64 { return &c.Round.TimeoutMultiplier }),
	"quorum-fraction":     floatSetter(func(c *poc.Config) *float64 { return &c.Round.QuorumFraction }),
	"max-timestamp-drift": durationSetter(func(c *poc.Config) *time.Duration { return &c.Round.MaxTimestampDrift }),
}

// ApplyParameter returns a copy of cfg with the named parameter set to value.
// The result is validated; an invalid configuration is never returned.
func ApplyParameter(cfg poc.Config, name, value string) (poc.Config, error) {
	set, ok := parameters[name]
	if !ok {
		return cfg, fmt.Errorf("%w: unknown parameter %q", poc.ErrInvalidConfig, name)
	}
	next := cfg
	if err := set(&next, value); err != nil {
		return cfg, fmt.Errorf("%w: %s: %v", poc.ErrInvalidConfig, name, err)
	}
	if err := next.Validate(); err != nil {
		return cfg, err
	}
	return next, nil
}
