package block

import "time"

// Observer receives per-invocation timing and throughput observations from
// a Harness. Its method set matches flowgraph.Observer structurally so the
// root package's Prometheus-backed implementation satisfies this interface
// without internal/block importing the root package.
type Observer interface {
	ObserveWork(block string, dur time.Duration, err error)
	ObserveProduced(block, port string, n uint64)
	ObserveConsumed(block, port string, n uint64)
	ObservePark(block string, dur time.Duration)
}

type noopObserver struct{}

func (noopObserver) ObserveWork(string, time.Duration, error) {}
func (noopObserver) ObserveProduced(string, string, uint64)   {}
func (noopObserver) ObserveConsumed(string, string, uint64)   {}
func (noopObserver) ObservePark(string, time.Duration)        {}
