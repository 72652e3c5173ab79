package poc

import (
	"errors"
	"testing"
	"time"

	"go.uber.org/multierr"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config is invalid: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		errs   int
	}{
		{name: "zero channel size", modify: func(c *Config) { c.Events.ChannelSize = 0 }, errs: 1},
		{name: "unanimous quorum", modify: func(c *Config) { c.Round.QuorumFraction = 1 }, errs: 0},
		{name: "quorum above one", modify: func(c *Config) { c.Round.QuorumFraction = 1.01 }, errs: 1},
		{name: "zero quorum", modify: func(c *Config) { c.Round.QuorumFraction = 0 }, errs: 1},
		{name: "negative cooldown", modify: func(c *Config) { c.Validator.ProposerCooldown = -time.Second }, errs: 1},
		{name: "max below base", modify: func(c *Config) { c.Round.MaxTimeout = time.Millisecond }, errs: 1},
		{name: "empty namespace", modify: func(c *Config) { c.Metrics.Namespace = "" }, errs: 1},
		{name: "disabled metrics without namespace", modify: func(c *Config) {
			c.Metrics.Enabled = false
			c.Metrics.Namespace = ""
		}, errs: 0},
		{name: "several sections", modify: func(c *Config) {
			c.Round.VotingTimeout = 0
			c.Validator.RewardStep = 2
			c.Events.ChannelSize = -1
		}, errs: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			if got := len(multierr.Errors(err)); got != tt.errs {
				t.Fatalf("got %d errors, want %d: %v", got, tt.errs, err)
			}
			if tt.errs > 0 && !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}
