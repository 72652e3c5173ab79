package metrics

import (
	"context"
	"io"
	"math"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/icn-network/poc"
	"github.com/icn-network/poc/logging"
	"github.com/icn-network/poc/publisher"
)

type source struct {
	*publisher.Publisher
}

func (s source) DroppedEvents() uint64 { return s.Dropped() }

func newSource() source {
	return source{publisher.New(poc.EventConfig{ChannelSize: 16}, logging.NewNop())}
}

func TestCollector(t *testing.T) {
	src := newSource()
	reg := prometheus.NewRegistry()
	c, err := New(poc.MetricsConfig{Enabled: true, Namespace: "test"}, reg, src, logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}

	events := []poc.Event{
		poc.VoteReceived{Voter: "did:icn:a", Approve: true},
		poc.VoteReceived{Voter: "did:icn:b", Approve: false},
		poc.RoundCompleted{Height: 7, Duration: 500 * time.Millisecond, Participation: 0.8, Approval: 0.6},
		poc.ValidatorUpdate{Validator: "did:icn:a", Reputation: 0.42},
		poc.RoundFailed{Reason: poc.VotingTimeout},
		poc.RoundFailed{Reason: poc.NoProposer},
	}
	for _, e := range events {
		src.Publish(e)
	}
	src.Close()

	done := make(chan struct{})
	go func() {
		c.Run(context.Background(), clock.NewMock(), 0)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after the source closed")
	}

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"committed", testutil.ToFloat64(c.rounds.WithLabelValues("committed")), 1},
		{"failed", testutil.ToFloat64(c.rounds.WithLabelValues("failed")), 2},
		{"voting timeouts", testutil.ToFloat64(c.failures.WithLabelValues(poc.VotingTimeout.String())), 1},
		{"approvals", testutil.ToFloat64(c.votes.WithLabelValues("true")), 1},
		{"rejections", testutil.ToFloat64(c.votes.WithLabelValues("false")), 1},
		{"height", testutil.ToFloat64(c.height), 7},
		{"participation", testutil.ToFloat64(c.participation), 0.8},
		{"approval", testutil.ToFloat64(c.approval), 0.6},
		{"reputation", testutil.ToFloat64(c.reputation.WithLabelValues("did:icn:a")), 0.42},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
	if c.committed != 1 || c.failed != 2 {
		t.Errorf("interval counters = (%d, %d), want (1, 2)", c.committed, c.failed)
	}
}

func TestDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	cfg := poc.MetricsConfig{Namespace: "test"}
	if _, err := New(cfg, reg, newSource(), logging.NewNop()); err != nil {
		t.Fatal(err)
	}
	if _, err := New(cfg, reg, newSource(), logging.NewNop()); err == nil {
		t.Error("expected an error when registering the metrics twice")
	}
}

func TestHandlerServesDroppedEvents(t *testing.T) {
	src := source{publisher.New(poc.EventConfig{ChannelSize: 1}, logging.NewNop())}
	reg := prometheus.NewRegistry()
	if _, err := New(poc.MetricsConfig{Namespace: "test"}, reg, src, logging.NewNop()); err != nil {
		t.Fatal(err)
	}
	src.Publish(poc.RoundFailed{})
	src.Publish(poc.RoundFailed{})
	src.Publish(poc.RoundFailed{})

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "test_dropped_events_total 2") {
		t.Errorf("dropped events not exported:\n%s", body)
	}
}

func TestTickResetsSummary(t *testing.T) {
	src := newSource()
	c, err := New(poc.MetricsConfig{Namespace: "test"}, prometheus.NewRegistry(), src, logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	c.observe(poc.RoundCompleted{Duration: time.Second})
	c.observe(poc.RoundCompleted{Duration: 3 * time.Second})
	mean, variance, count := c.stats.get()
	if mean != 2000 || variance != 2e6 || count != 2 {
		t.Errorf("stats = (%v, %v, %v), want (2000, 2e6, 2)", mean, variance, count)
	}
	c.tick()
	if mean, variance, count := c.stats.get(); mean != 0 || !math.IsNaN(variance) || count != 0 || c.committed != 0 {
		t.Errorf("tick did not reset the summary: (%v, %v, %v)", mean, variance, count)
	}
}
