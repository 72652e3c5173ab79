package poc

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"time"

	"go.uber.org/multierr"
)

// GenesisValidator describes a member of the initial validator set.
type GenesisValidator struct {
	DID         DID     `yaml:"did"`
	Cooperative string  `yaml:"cooperative"`
	Reputation  float64 `yaml:"reputation"`
	PublicKey   string  `yaml:"public_key,omitempty"`
}

// GovernanceParams are the network-wide governance parameters fixed at genesis.
type GovernanceParams struct {
	// MinValidators is the number of validators required for the network to start.
	MinValidators int `yaml:"min_validators"`
	// MaxValidatorsPerCooperative caps the number of validators a single cooperative may run.
	// Zero means no limit.
	MaxValidatorsPerCooperative int `yaml:"max_validators_per_cooperative"`
	// ElectionPeriod is the number of blocks between validator elections.
	ElectionPeriod uint64 `yaml:"election_period"`
}

// GenesisConfig bootstraps the validator registry and the chain.
type GenesisConfig struct {
	Timestamp  time.Time          `yaml:"timestamp"`
	Validators []GenesisValidator `yaml:"validators"`
	Governance GovernanceParams   `yaml:"governance"`
}

// DefaultGovernanceParams returns the governance parameters used by test networks.
func DefaultGovernanceParams() GovernanceParams {
	return GovernanceParams{
		MinValidators:               4,
		MaxValidatorsPerCooperative: 2,
		ElectionPeriod:              40320, // ~7 days with 15s blocks
	}
}

// Validate checks that the genesis configuration can start a network.
// All problems are reported, not just the first one.
func (g *GenesisConfig) Validate() (err error) {
	if g.Governance.MinValidators < 1 {
		err = multierr.Append(err, fmt.Errorf("%w: min_validators must be at least 1", ErrInvalidGenesis))
	}
	if len(g.Validators) < g.Governance.MinValidators {
		err = multierr.Append(err, fmt.Errorf("%w: %d validators cannot satisfy min_validators=%d",
			ErrInvalidGenesis, len(g.Validators), g.Governance.MinValidators))
	}
	seen := make(map[DID]struct{}, len(g.Validators))
	perCoop := make(map[string]int)
	for i, v := range g.Validators {
		if v.DID == "" {
			err = multierr.Append(err, fmt.Errorf("%w: validator %d has an empty did", ErrInvalidGenesis, i))
			continue
		}
		if _, ok := seen[v.DID]; ok {
			err = multierr.Append(err, fmt.Errorf("%w: %s", ErrDuplicateValidator, v.DID))
		}
		seen[v.DID] = struct{}{}
		if math.IsNaN(v.Reputation) || v.Reputation < 0 || v.Reputation > 1 {
			err = multierr.Append(err, fmt.Errorf("%w: reputation of %s must be in [0, 1], got %v",
				ErrInvalidGenesis, v.DID, v.Reputation))
		}
		if v.Cooperative != "" {
			perCoop[v.Cooperative]++
		}
	}
	if max := g.Governance.MaxValidatorsPerCooperative; max > 0 {
		coops := make([]string, 0, len(perCoop))
		for coop := range perCoop {
			coops = append(coops, coop)
		}
		sort.Strings(coops)
		for _, coop := range coops {
			if perCoop[coop] > max {
				err = multierr.Append(err, fmt.Errorf("%w: %q has %d validators (max %d)",
					ErrCooperativeFull, coop, perCoop[coop], max))
			}
		}
	}
	return err
}

// Hash returns the hash that the first block must reference as its previous hash.
func (g *GenesisConfig) Hash() Hash {
	validators := append([]GenesisValidator(nil), g.Validators...)
	sort.Slice(validators, func(i, j int) bool { return validators[i].DID < validators[j].DID })

	h := sha256.New()
	var u64 [8]byte
	binary.LittleEndian.PutUint64(u64[:], uint64(g.Timestamp.UnixNano()))
	h.Write(u64[:])
	for _, v := range validators {
		h.Write(v.DID.ToBytes())
		h.Write([]byte(v.Cooperative))
		binary.LittleEndian.PutUint64(u64[:], math.Float64bits(v.Reputation))
		h.Write(u64[:])
	}
	binary.LittleEndian.PutUint64(u64[:], uint64(g.Governance.MinValidators))
	h.Write(u64[:])
	binary.LittleEndian.PutUint64(u64[:], uint64(g.Governance.MaxValidatorsPerCooperative))
	h.Write(u64[:])
	binary.LittleEndian.PutUint64(u64[:], g.Governance.ElectionPeriod)
	h.Write(u64[:])

	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}
