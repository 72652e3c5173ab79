// Package publisher fans out consensus events to subscribers.
//
// Publishing never blocks. Every subscriber has its own buffered channel;
// when a subscriber's buffer is full, the event is dropped for that subscriber
// and counted.
package publisher

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/icn-network/poc"
	"github.com/icn-network/poc/logging"
)

// Subscription is a stream of events.
type Subscription struct {
	// ID identifies the subscription in logs.
	ID uuid.UUID
	// C delivers events in emission order. It is closed when the subscription ends.
	C <-chan poc.Event

	c         chan poc.Event
	publisher *Publisher
}

// Unsubscribe ends the subscription and closes its channel.
func (s *Subscription) Unsubscribe() {
	s.publisher.remove(s.ID)
}

// Publisher delivers events to all subscribers.
type Publisher struct {
	logger    logging.Logger
	size      int
	logEvents bool

	mut         sync.RWMutex
	subscribers map[uuid.UUID]*Subscription
	closed      bool

	published atomic.Uint64
	dropped   atomic.Uint64
}

// New returns a publisher configured by cfg.
func New(cfg poc.EventConfig, logger logging.Logger) *Publisher {
	size := cfg.ChannelSize
	if size <= 0 {
		size = poc.DefaultConfig().Events.ChannelSize
	}
	return &Publisher{
		logger:      logger,
		size:        size,
		logEvents:   cfg.LogEvents,
		subscribers: make(map[uuid.UUID]*Subscription),
	}
}

// Subscribe returns a new subscription. It receives every event published after this call.
// Subscribing to a closed publisher returns a subscription whose channel is already closed.
func (p *Publisher) Subscribe() *Subscription {
	c := make(chan poc.Event, p.size)
	sub := &Subscription{ID: uuid.New(), C: c, c: c, publisher: p}

	p.mut.Lock()
	defer p.mut.Unlock()
	if p.closed {
		close(c)
		return sub
	}
	p.subscribers[sub.ID] = sub
	p.logger.Debugf("new subscription %s", sub.ID)
	return sub
}

func (p *Publisher) remove(id uuid.UUID) {
	p.mut.Lock()
	defer p.mut.Unlock()
	if sub, ok := p.subscribers[id]; ok {
		delete(p.subscribers, id)
		close(sub.c)
	}
}

// Publish delivers the event to every subscriber that has room for it.
// It is safe to call from multiple goroutines, but events from concurrent
// publishers have no defined relative order.
func (p *Publisher) Publish(event poc.Event) {
	p.published.Add(1)
	if p.logEvents {
		p.logger.Debug(event)
	}

	p.mut.RLock()
	defer p.mut.RUnlock()
	for id, sub := range p.subscribers {
		select {
		case sub.c <- event:
		default:
			n := p.dropped.Add(1)
			p.logger.Warnf("subscription %s is full, dropped %T (%d dropped in total)", id, event, n)
		}
	}
}

// Dropped returns the number of events that were dropped because a subscriber was full.
func (p *Publisher) Dropped() uint64 {
	return p.dropped.Load()
}

// Published returns the number of events published.
func (p *Publisher) Published() uint64 {
	return p.published.Load()
}

// Subscribers returns the number of active subscriptions.
func (p *Publisher) Subscribers() int {
	p.mut.RLock()
	defer p.mut.RUnlock()
	return len(p.subscribers)
}

// Close ends all subscriptions. Events published after Close are discarded.
func (p *Publisher) Close() {
	p.mut.Lock()
	defer p.mut.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	for id, sub := range p.subscribers {
		delete(p.subscribers, id)
		close(sub.c)
	}
}
