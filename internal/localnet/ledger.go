package localnet

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/icn-network/poc"
)

var _ poc.ReputationManager = (*ledger)(nil)

// ledger is an in-memory reputation manager that mirrors the engine's reputation
// on an integer scale.
type ledger struct {
	mut    sync.Mutex
	scale  int64
	values map[poc.DID]int64
}

func newLedger(genesis *poc.GenesisConfig, scale int64) *ledger {
	l := &ledger{scale: scale, values: make(map[poc.DID]int64)}
	for _, v := range genesis.Validators {
		l.values[v.DID] = int64(math.Round(v.Reputation * float64(scale)))
	}
	return l
}

func (l *ledger) GetReputation(_ context.Context, participant poc.DID, _ string) (int64, error) {
	l.mut.Lock()
	defer l.mut.Unlock()
	v, ok := l.values[participant]
	if !ok {
		return 0, fmt.Errorf("%w: %s", poc.ErrUnknownValidator, participant)
	}
	return v, nil
}

func (l *ledger) IsEligible(ctx context.Context, participant poc.DID, threshold int64, scope string) (bool, error) {
	v, err := l.GetReputation(ctx, participant, scope)
	if err != nil {
		return false, err
	}
	return v >= threshold, nil
}

func (l *ledger) UpdateReputation(_ context.Context, participant poc.DID, change int64, _ string) error {
	l.mut.Lock()
	defer l.mut.Unlock()
	v := l.values[participant] + change
	if v < 0 {
		v = 0
	}
	if v > l.scale {
		v = l.scale
	}
	l.values[participant] = v
	return nil
}
