// Package blocks provides generic, non-DSP block kernels useful for
// testing and wiring together example flowgraphs: a slice-backed source
// and sink, a drop-everything sink, a zero-filling source, and a block
// that truncates a stream after N items.
package blocks

import (
	"context"
	"sync"

	"github.com/ehrlich-b/go-flowgraph"
)

// Source replays a fixed slice of items, one flowgraph run's worth, then
// finishes. It shards no locking — a block has exactly one harness
// goroutine calling Work, so there is never concurrent access to replay.
type Source[T any] struct {
	Out *flowgraph.Writer[T]

	items []T
	pos   int
}

// NewSource creates a source that replays items in order.
func NewSource[T any](items []T) *Source[T] {
	return &Source[T]{items: items}
}

func (s *Source[T]) Work(ctx context.Context, io *flowgraph.WorkIO, mio *flowgraph.MessageOutputs, meta *flowgraph.BlockMeta) error {
	if s.pos >= len(s.items) {
		io.Finished = true
		return nil
	}
	w, _ := s.Out.Slice()
	if len(w) == 0 {
		return nil
	}
	n := copy(w, s.items[s.pos:])
	s.pos += n
	return s.Out.Produce(uint64(n))
}

// Sink accumulates every item it receives, for tests to inspect afterward.
type Sink[T any] struct {
	In *flowgraph.Reader[T]

	mu   sync.Mutex
	seen []T
}

// NewSink creates an empty accumulating sink.
func NewSink[T any]() *Sink[T] { return &Sink[T]{} }

func (s *Sink[T]) Work(ctx context.Context, io *flowgraph.WorkIO, mio *flowgraph.MessageOutputs, meta *flowgraph.BlockMeta) error {
	got, _ := s.In.SliceWithTags()
	if len(got) == 0 {
		if s.In.Finished() {
			io.Finished = true
		}
		return nil
	}
	s.mu.Lock()
	s.seen = append(s.seen, got...)
	s.mu.Unlock()
	return s.In.Consume(uint64(len(got)))
}

// Items returns everything consumed so far.
func (s *Sink[T]) Items() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]T, len(s.seen))
	copy(out, s.seen)
	return out
}

// NullSource produces an endless stream of zero-valued items until its
// context is cancelled or Terminate is requested — useful as a load
// generator in backpressure tests.
type NullSource[T any] struct {
	Out *flowgraph.Writer[T]
}

func (s *NullSource[T]) Work(ctx context.Context, io *flowgraph.WorkIO, mio *flowgraph.MessageOutputs, meta *flowgraph.BlockMeta) error {
	w, _ := s.Out.Slice()
	if len(w) == 0 {
		return nil
	}
	return s.Out.Produce(uint64(len(w)))
}

// NullSink discards every item offered to it immediately, applying no
// backpressure — useful for isolating an upstream block's own throughput.
type NullSink[T any] struct {
	In *flowgraph.Reader[T]
}

func (s *NullSink[T]) Work(ctx context.Context, io *flowgraph.WorkIO, mio *flowgraph.MessageOutputs, meta *flowgraph.BlockMeta) error {
	got, _ := s.In.SliceWithTags()
	if len(got) == 0 {
		if s.In.Finished() {
			io.Finished = true
		}
		return nil
	}
	return s.In.Consume(uint64(len(got)))
}

// Head passes through at most N items from its input, then finishes,
// regardless of whether the upstream is still producing.
type Head[T any] struct {
	In  *flowgraph.Reader[T]
	Out *flowgraph.Writer[T]
	N   uint64

	passed uint64
}

// NewHead creates a block that passes through at most n items.
func NewHead[T any](n uint64) *Head[T] { return &Head[T]{N: n} }

func (h *Head[T]) Work(ctx context.Context, io *flowgraph.WorkIO, mio *flowgraph.MessageOutputs, meta *flowgraph.BlockMeta) error {
	if h.passed >= h.N {
		io.Finished = true
		return nil
	}
	got, _ := h.In.SliceWithTags()
	if len(got) == 0 {
		if h.In.Finished() {
			io.Finished = true
		}
		return nil
	}
	remaining := h.N - h.passed
	if uint64(len(got)) > remaining {
		got = got[:remaining]
	}

	w, _ := h.Out.Slice()
	if len(w) == 0 {
		return nil
	}
	if uint64(len(w)) < uint64(len(got)) {
		got = got[:len(w)]
	}
	n := copy(w, got)
	if err := h.Out.Produce(uint64(n)); err != nil {
		return err
	}
	h.passed += uint64(n)
	return h.In.Consume(uint64(n))
}
