package flowgraph

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsCollectorsRegister(t *testing.T) {
	m := NewMetrics()
	reg := prometheus.NewRegistry()
	if err := reg.Register(multiCollector{m.Collectors()}); err != nil {
		t.Fatalf("register: %v", err)
	}
}

// multiCollector lets us register a slice of collectors as one.
type multiCollector struct{ cs []prometheus.Collector }

func (m multiCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, c := range m.cs {
		c.Describe(ch)
	}
}
func (m multiCollector) Collect(ch chan<- prometheus.Metric) {
	for _, c := range m.cs {
		c.Collect(ch)
	}
}

func TestMetricsObserverWork(t *testing.T) {
	m := NewMetrics()
	obs := NewMetricsObserver(m)

	obs.ObserveWork("source", 5*time.Millisecond, nil)
	obs.ObserveWork("source", 2*time.Millisecond, errors.New("boom"))

	if got := testutil.ToFloat64(m.WorkInvocations.WithLabelValues("source")); got != 2 {
		t.Errorf("expected 2 work invocations, got %v", got)
	}
	if got := testutil.ToFloat64(m.BlockErrors.WithLabelValues("source", "work")); got != 1 {
		t.Errorf("expected 1 block error, got %v", got)
	}
}

func TestMetricsObserverThroughput(t *testing.T) {
	m := NewMetrics()
	obs := NewMetricsObserver(m)

	obs.ObserveProduced("source", "out", 1024)
	obs.ObserveProduced("source", "out", 512)
	obs.ObserveConsumed("sink", "in", 1000)

	if got := testutil.ToFloat64(m.ItemsProduced.WithLabelValues("source", "out")); got != 1536 {
		t.Errorf("expected 1536 produced, got %v", got)
	}
	if got := testutil.ToFloat64(m.ItemsConsumed.WithLabelValues("sink", "in")); got != 1000 {
		t.Errorf("expected 1000 consumed, got %v", got)
	}
}

func TestMetricsUptime(t *testing.T) {
	m := NewMetrics()
	time.Sleep(5 * time.Millisecond)
	if m.Uptime() < 5*time.Millisecond {
		t.Errorf("expected uptime >= 5ms, got %v", m.Uptime())
	}

	m.Stop()
	frozen := m.Uptime()
	time.Sleep(5 * time.Millisecond)
	if m.Uptime() != frozen {
		t.Errorf("expected uptime frozen after Stop, got %v then %v", frozen, m.Uptime())
	}
}

func TestNoOpObserverDoesNotPanic(t *testing.T) {
	var o Observer = NoOpObserver{}
	o.ObserveWork("x", time.Millisecond, nil)
	o.ObserveProduced("x", "out", 1)
	o.ObserveConsumed("x", "in", 1)
	o.ObservePark("x", time.Millisecond)
}
