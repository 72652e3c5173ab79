// Package config loads the settings of a pocnode process and reads and writes genesis files.
package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/icn-network/poc"
)

// DecodeGenesis decodes and validates a YAML genesis configuration.
// Unknown fields are an error.
func DecodeGenesis(r io.Reader) (*poc.GenesisConfig, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var g poc.GenesisConfig
	if err := dec.Decode(&g); err != nil {
		return nil, fmt.Errorf("%w: %v", poc.ErrInvalidGenesis, err)
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return &g, nil
}

// LoadGenesis reads a genesis file.
func LoadGenesis(path string) (*poc.GenesisConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DecodeGenesis(f)
}

// WriteGenesis writes a genesis file.
func WriteGenesis(path string, g *poc.GenesisConfig) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(g); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// Testnet returns the genesis configuration of a test network with n validators.
// Validators are paired into cooperatives and start with a reputation of 0.5.
func Testnet(n int, timestamp time.Time) *poc.GenesisConfig {
	gov := poc.DefaultGovernanceParams()
	if n < gov.MinValidators {
		gov.MinValidators = n
	}
	g := &poc.GenesisConfig{
		Timestamp:  timestamp.UTC().Truncate(time.Second),
		Governance: gov,
	}
	for i := 0; i < n; i++ {
		g.Validators = append(g.Validators, poc.GenesisValidator{
			DID:         poc.DID(fmt.Sprintf("did:icn:validator-%d", i+1)),
			Cooperative: fmt.Sprintf("coop-%d", i/2+1),
			Reputation:  0.5,
		})
	}
	return g
}
