// Package registry keeps track of the validator set and selects block proposers.
package registry

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	wr "github.com/mroth/weightedrand"

	"github.com/icn-network/poc"
)

// weightScale converts reputation to the integer weights used by the chooser.
const weightScale = 1e6

// Registry is the set of known validators. It is safe for concurrent use.
type Registry struct {
	mut        sync.RWMutex
	validators map[poc.DID]*poc.Validator
	sharedSeed int64
}

// New returns an empty registry. The shared seed must be equal on all nodes
// so that every node selects the same proposer for a round.
func New(sharedSeed int64) *Registry {
	return &Registry{
		validators: make(map[poc.DID]*poc.Validator),
		sharedSeed: sharedSeed,
	}
}

// FromGenesis returns a registry containing the validators of a validated genesis configuration.
func FromGenesis(genesis *poc.GenesisConfig, sharedSeed int64) (*Registry, error) {
	r := New(sharedSeed)
	for _, v := range genesis.Validators {
		if err := r.Register(v.DID, v.Cooperative, v.Reputation); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a validator. The reputation is clamped to [0, 1].
func (r *Registry) Register(did poc.DID, cooperative string, reputation float64) error {
	r.mut.Lock()
	defer r.mut.Unlock()
	if _, ok := r.validators[did]; ok {
		return fmt.Errorf("%w: %s", poc.ErrDuplicateValidator, did)
	}
	r.validators[did] = &poc.Validator{
		DID:         did,
		Cooperative: cooperative,
		Reputation:  poc.ClampReputation(reputation),
	}
	return nil
}

// Restore replaces the state of known validators with the given snapshot.
// Validators in the snapshot that are not registered are added.
func (r *Registry) Restore(validators []poc.Validator) {
	r.mut.Lock()
	defer r.mut.Unlock()
	for _, v := range validators {
		v = v.Clone()
		v.Reputation = poc.ClampReputation(v.Reputation)
		r.validators[v.DID] = &v
	}
}

func (r *Registry) get(did poc.DID) (*poc.Validator, error) {
	v, ok := r.validators[did]
	if !ok {
		return nil, fmt.Errorf("%w: %s", poc.ErrUnknownValidator, did)
	}
	return v, nil
}

// UpdateReputation adds delta to the reputation of the validator and returns the new, clamped, reputation.
func (r *Registry) UpdateReputation(did poc.DID, delta float64) (float64, error) {
	r.mut.Lock()
	defer r.mut.Unlock()
	v, err := r.get(did)
	if err != nil {
		return 0, err
	}
	v.Reputation = poc.ClampReputation(v.Reputation + delta)
	return v.Reputation, nil
}

// SetReputation overrides the reputation of the validator.
func (r *Registry) SetReputation(did poc.DID, reputation float64) error {
	r.mut.Lock()
	defer r.mut.Unlock()
	v, err := r.get(did)
	if err != nil {
		return err
	}
	v.Reputation = poc.ClampReputation(reputation)
	return nil
}

// MarkProposed records that the validator proposed a committed block at the given time.
func (r *Registry) MarkProposed(did poc.DID, at time.Time) error {
	r.mut.Lock()
	defer r.mut.Unlock()
	v, err := r.get(did)
	if err != nil {
		return err
	}
	v.LastProposed = &at
	v.ProposedBlocks++
	return nil
}

// MarkVoted records that the vote of the validator was counted in the given round.
func (r *Registry) MarkVoted(did poc.DID, round uint64) error {
	r.mut.Lock()
	defer r.mut.Unlock()
	v, err := r.get(did)
	if err != nil {
		return err
	}
	v.LastVotedRound = &round
	v.ConsecutiveMisses = 0
	return nil
}

// RecordMiss records that the validator did not vote in a committed round.
func (r *Registry) RecordMiss(did poc.DID) error {
	r.mut.Lock()
	defer r.mut.Unlock()
	v, err := r.get(did)
	if err != nil {
		return err
	}
	v.MissedRounds++
	v.ConsecutiveMisses++
	return nil
}

// Get returns a copy of the validator.
func (r *Registry) Get(did poc.DID) (poc.Validator, error) {
	r.mut.RLock()
	defer r.mut.RUnlock()
	v, err := r.get(did)
	if err != nil {
		return poc.Validator{}, err
	}
	return v.Clone(), nil
}

// Reputation returns the reputation of the validator, or 0 if it is unknown.
func (r *Registry) Reputation(did poc.DID) float64 {
	r.mut.RLock()
	defer r.mut.RUnlock()
	if v, ok := r.validators[did]; ok {
		return v.Reputation
	}
	return 0
}

// Contains returns true if the validator is registered.
func (r *Registry) Contains(did poc.DID) bool {
	r.mut.RLock()
	defer r.mut.RUnlock()
	_, ok := r.validators[did]
	return ok
}

// TotalReputation returns the sum of the reputation of all validators.
func (r *Registry) TotalReputation() float64 {
	r.mut.RLock()
	defer r.mut.RUnlock()
	total := 0.0
	for _, did := range r.sortedDIDs() {
		total += r.validators[did].Reputation
	}
	return total
}

// Len returns the number of validators.
func (r *Registry) Len() int {
	r.mut.RLock()
	defer r.mut.RUnlock()
	return len(r.validators)
}

// CountCooperative returns the number of validators run by the cooperative.
func (r *Registry) CountCooperative(cooperative string) int {
	r.mut.RLock()
	defer r.mut.RUnlock()
	n := 0
	for _, v := range r.validators {
		if v.Cooperative == cooperative {
			n++
		}
	}
	return n
}

// Snapshot returns copies of all validators, sorted by DID.
func (r *Registry) Snapshot() []poc.Validator {
	r.mut.RLock()
	defer r.mut.RUnlock()
	dids := r.sortedDIDs()
	out := make([]poc.Validator, 0, len(dids))
	for _, did := range dids {
		out = append(out, r.validators[did].Clone())
	}
	return out
}

// DIDs returns the DIDs of all validators in lexicographic order.
func (r *Registry) DIDs() []poc.DID {
	r.mut.RLock()
	defer r.mut.RUnlock()
	return r.sortedDIDs()
}

func (r *Registry) sortedDIDs() []poc.DID {
	dids := make([]poc.DID, 0, len(r.validators))
	for did := range r.validators {
		dids = append(dids, did)
	}
	sort.Slice(dids, func(i, j int) bool { return dids[i] < dids[j] })
	return dids
}

func canPropose(v *poc.Validator, now time.Time, cooldown time.Duration) bool {
	return v.LastProposed == nil || now.Sub(*v.LastProposed) >= cooldown
}

// EligibleProposer returns true if the validator has never proposed a committed block,
// or if its last proposal is at least cooldown old.
func (r *Registry) EligibleProposer(did poc.DID, now time.Time, cooldown time.Duration) (bool, error) {
	r.mut.RLock()
	defer r.mut.RUnlock()
	v, err := r.get(did)
	if err != nil {
		return false, err
	}
	return canPropose(v, now, cooldown), nil
}

// SelectProposer picks the proposer of a round by a reputation-weighted random draw
// among validators with positive reputation whose cooldown has expired.
// The draw is deterministic: it depends only on the shared seed, the round and the
// DIDs and reputations of the eligible validators.
func (r *Registry) SelectProposer(round uint64, now time.Time, cooldown time.Duration) (poc.DID, error) {
	r.mut.RLock()
	defer r.mut.RUnlock()

	var (
		eligible []poc.DID
		choices  []wr.Choice
		snapshot = fnv.New64a()
		buf      [8]byte
	)
	for _, did := range r.sortedDIDs() {
		v := r.validators[did]
		if v.Reputation <= 0 || !canPropose(v, now, cooldown) {
			continue
		}
		eligible = append(eligible, did)
		choices = append(choices, wr.Choice{Item: did, Weight: uint(v.Reputation * weightScale)})

		snapshot.Write(did.ToBytes())
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v.Reputation))
		snapshot.Write(buf[:])
	}
	if len(eligible) == 0 {
		return "", fmt.Errorf("%w in round %d", poc.ErrNoEligibleProposer, round)
	}

	seed := uint64(r.sharedSeed) + round + snapshot.Sum64()

	chooser, err := wr.NewChooser(choices...)
	if err != nil {
		// all weights rounded down to zero
		return eligible[seed%uint64(len(eligible))], nil
	}
	rnd := rand.New(rand.NewSource(int64(seed)))
	return chooser.PickSource(rnd).(poc.DID), nil
}
