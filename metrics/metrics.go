// Package metrics exports the events of a consensus engine as Prometheus metrics.
//
// A Collector subscribes to the engine's events when it is created. Run consumes the
// subscription and updates the metrics until the engine stops or the context is canceled.
// If Run is given a measurement interval, it also logs a summary of the rounds that
// finished in every interval.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	"github.com/icn-network/poc"
	"github.com/icn-network/poc/logging"
	"github.com/icn-network/poc/publisher"
)

// Source is implemented by the consensus engine.
type Source interface {
	Subscribe() *publisher.Subscription
	DroppedEvents() uint64
}

// Collector turns engine events into metrics.
type Collector struct {
	logger logging.Logger
	sub    *publisher.Subscription

	rounds        *prometheus.CounterVec
	failures      *prometheus.CounterVec
	votes         *prometheus.CounterVec
	duration      prometheus.Histogram
	participation prometheus.Gauge
	approval      prometheus.Gauge
	height        prometheus.Gauge
	reputation    *prometheus.GaugeVec
	dropped       prometheus.CounterFunc

	// per interval, only touched by Run
	committed uint64
	failed    uint64
	stats     durationStats
}

// New creates the metrics of the given source and registers them with reg.
func New(cfg poc.MetricsConfig, reg prometheus.Registerer, src Source, logger logging.Logger) (*Collector, error) {
	ns := cfg.Namespace
	c := &Collector{
		logger: logger,
		rounds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "rounds_total",
			Help:      "Number of finished rounds by outcome.",
		}, []string{"outcome"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "round_failures_total",
			Help:      "Number of failed rounds by reason.",
		}, []string{"reason"}),
		votes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "votes_total",
			Help:      "Number of recorded votes.",
		}, []string{"approve"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "round_duration_seconds",
			Help:      "Time from the start of a round until it committed.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		participation: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "participation_ratio",
			Help:      "Share of the total reputation that voted in the last committed round.",
		}),
		approval: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "approval_ratio",
			Help:      "Share of the total reputation that approved the last committed block.",
		}),
		height: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "committed_height",
			Help:      "Height of the last committed block.",
		}),
		reputation: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "validator_reputation",
			Help:      "Current reputation of a validator.",
		}, []string{"validator"}),
		dropped: prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "dropped_events_total",
			Help:      "Number of events dropped because a subscriber was too slow.",
		}, func() float64 { return float64(src.DroppedEvents()) }),
	}

	var err error
	for _, col := range []prometheus.Collector{
		c.rounds, c.failures, c.votes, c.duration, c.participation,
		c.approval, c.height, c.reputation, c.dropped,
	} {
		err = multierr.Append(err, reg.Register(col))
	}
	if err != nil {
		return nil, err
	}
	c.sub = src.Subscribe()
	return c, nil
}

// Run consumes events until the source closes the subscription or ctx is canceled.
// If interval is positive, a summary is logged every interval.
func (c *Collector) Run(ctx context.Context, clk clock.Clock, interval time.Duration) {
	defer c.sub.Unsubscribe()

	var tick <-chan time.Time
	if interval > 0 {
		ticker := clk.Ticker(interval)
		defer ticker.Stop()
		tick = ticker.C
	}
	for {
		select {
		case e, ok := <-c.sub.C:
			if !ok {
				return
			}
			c.observe(e)
		case <-tick:
			c.tick()
		case <-ctx.Done():
			return
		}
	}
}

func (c *Collector) observe(e poc.Event) {
	switch e := e.(type) {
	case poc.RoundCompleted:
		c.rounds.WithLabelValues("committed").Inc()
		c.duration.Observe(e.Duration.Seconds())
		c.participation.Set(e.Participation)
		c.approval.Set(e.Approval)
		c.height.Set(float64(e.Height))
		c.committed++
		c.stats.add(e.Duration)
	case poc.RoundFailed:
		c.rounds.WithLabelValues("failed").Inc()
		c.failures.WithLabelValues(e.Reason.String()).Inc()
		c.failed++
	case poc.VoteReceived:
		if e.Approve {
			c.votes.WithLabelValues("true").Inc()
		} else {
			c.votes.WithLabelValues("false").Inc()
		}
	case poc.ValidatorUpdate:
		c.reputation.WithLabelValues(string(e.Validator)).Set(e.Reputation)
	}
}

func (c *Collector) tick() {
	mean, variance, count := c.stats.get()
	c.logger.Infow("round summary",
		"committed", c.committed,
		"failed", c.failed,
		"mean_duration_ms", mean,
		"duration_variance", variance,
		"samples", count,
	)
	c.committed = 0
	c.failed = 0
	c.stats.reset()
}

// Handler returns an HTTP handler that serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
