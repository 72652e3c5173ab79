package localnet

import (
	"context"
	"encoding/binary"
	"math/rand"

	"golang.org/x/time/rate"

	"github.com/icn-network/poc"
)

var _ poc.PayloadSource = (*payloads)(nil)

// payloads generates block payloads at a limited rate.
// The payload of a height is the same for every proposer.
type payloads struct {
	size    int
	limiter *rate.Limiter
}

// newPayloads returns a payload source that fills at most perSecond blocks per second.
// A rate of zero means no limit.
func newPayloads(size int, perSecond float64) *payloads {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	return &payloads{size: size, limiter: rate.NewLimiter(limit, 1)}
}

func (p *payloads) NextPayload(ctx context.Context, height uint64) ([]byte, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	if p.size == 0 {
		return nil, nil
	}
	data := make([]byte, p.size)
	rnd := rand.New(rand.NewSource(int64(height)))
	rnd.Read(data)
	if p.size >= 8 {
		binary.BigEndian.PutUint64(data, height)
	}
	return data, nil
}
