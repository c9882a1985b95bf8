// Package block implements the block harness: the lifecycle state machine
// around a user kernel, its writer/reader stream handles, and its message
// mailbox.
package block

import (
	"context"

	"github.com/ehrlich-b/go-flowgraph/internal/buffer"
)

// Writer is the per-edge handle a block kernel uses to produce samples. A
// ring-backed Writer never blocks: Slice returns whatever is currently
// writable, which may be empty. A slab-backed Writer's Slice blocks until
// a free record is available. min_items discourages exposing slices smaller than a configured
// threshold, avoiding tiny downstream fragments.
type Writer[T any] struct {
	slice    func() ([]T, *buffer.TagWriter)
	produce  func(n uint64) error
	park     func(ctx context.Context)
	finish   func()
	minItems int
	finished bool

	observer        Observer
	blockName, port string
}

// SetObserver attaches the metrics observer Produce reports through, along
// with the block/port names it reports under. Called by Connect once the
// edge's owning block is known; a handle with no observer set reports to
// the no-op default.
func (w *Writer[T]) SetObserver(o Observer, blockName, port string) {
	if o == nil {
		o = noopObserver{}
	}
	w.observer, w.blockName, w.port = o, blockName, port
}

// Slice returns the currently writable span and a tag-append handle. If
// the span is shorter than MinItems, an empty slice is returned instead so
// the kernel does not fragment its output unnecessarily.
func (w *Writer[T]) Slice() ([]T, *buffer.TagWriter) {
	s, tw := w.slice()
	if len(s) < w.minItems {
		return s[:0], tw
	}
	return s, tw
}

// Produce commits n items; a no-op is not implied for n==0 on the writer
// side (unlike the reader), since a writer calling Produce(0) is simply a
// kernel that chose not to produce this invocation.
func (w *Writer[T]) Produce(n uint64) error {
	err := w.produce(n)
	if err == nil && n > 0 {
		w.observer.ObserveProduced(w.blockName, w.port, n)
	}
	return err
}

// ParkForSpace suspends the calling goroutine until space is available, all
// readers have finished draining, or ctx is done. Used by the harness, not
// kernels.
func (w *Writer[T]) ParkForSpace(ctx context.Context) { w.park(ctx) }

// Finish marks the writer finished; called automatically by the harness
// when the owning block terminates, never by kernel code directly.
func (w *Writer[T]) Finish() {
	if w.finished {
		return
	}
	w.finished = true
	w.finish()
}

// MinItems returns the configured lower bound on exposed writable spans.
func (w *Writer[T]) MinItems() int { return w.minItems }

// Reader is the per-edge handle a block kernel uses to consume samples.
type Reader[T any] struct {
	sliceWithTags func() ([]T, []buffer.Tag)
	consume       func(n uint64) error
	finished      func() bool
	park          func(ctx context.Context)
	minItems      int

	observer        Observer
	blockName, port string
}

// SetObserver attaches the metrics observer Consume reports through, along
// with the block/port names it reports under. Called by Connect once the
// edge's owning block is known; a handle with no observer set reports to
// the no-op default.
func (r *Reader[T]) SetObserver(o Observer, blockName, port string) {
	if o == nil {
		o = noopObserver{}
	}
	r.observer, r.blockName, r.port = o, blockName, port
}

// SliceWithTags may return an empty slice. On a ring-backed Reader it never
// blocks; on a slab-backed Reader it blocks until a record is ready or the
// slab is finished.
func (r *Reader[T]) SliceWithTags() ([]T, []buffer.Tag) {
	s, tags := r.sliceWithTags()
	if len(s) < r.minItems {
		return s[:0], nil
	}
	return s, tags
}

// Consume is a no-op if n == 0.
func (r *Reader[T]) Consume(n uint64) error {
	if n == 0 {
		return nil
	}
	err := r.consume(n)
	if err == nil {
		r.observer.ObserveConsumed(r.blockName, r.port, n)
	}
	return err
}

// Finished is true only after the kernel has consumed all remaining items
// of a finished upstream.
func (r *Reader[T]) Finished() bool { return r.finished() }

// ParkForData suspends the calling goroutine until new data, finish, ctx is
// done, or a spurious wake occurs.
func (r *Reader[T]) ParkForData(ctx context.Context) { r.park(ctx) }

// MinItems returns the configured lower bound on exposed readable spans.
func (r *Reader[T]) MinItems() int { return r.minItems }

// NewRingWriter adapts a buffer.Ring's producer side to a Writer handle.
func NewRingWriter[T any](ring *buffer.Ring[T], minItems int) *Writer[T] {
	return &Writer[T]{
		slice:    ring.WriterSlice,
		produce:  ring.Produce,
		park:     ring.ParkForSpace,
		finish:   ring.Finish,
		minItems: minItems,
		observer: noopObserver{},
	}
}

// NewRingReader adapts one of a buffer.Ring's fan-out reader cursors to a
// Reader handle.
func NewRingReader[T any](rd *buffer.Reader[T], minItems int) *Reader[T] {
	return &Reader[T]{
		sliceWithTags: rd.Slice,
		consume:       rd.Consume,
		finished:      rd.Finished,
		park:          rd.ParkForData,
		minItems:      minItems,
		observer:      noopObserver{},
	}
}

// NewSlabWriter adapts a buffer.Slab's producer side to a Writer handle.
// Slab buffers have no natural "min items" notion below a full record, so
// minItems is ignored for slab-backed writers.
func NewSlabWriter[T any](slab *buffer.Slab[T]) *Writer[T] {
	return &Writer[T]{
		slice: slab.WriterSlice,
		produce: func(n uint64) error {
			return slab.Produce(int(n))
		},
		park:     func(context.Context) {}, // WriterSlice itself blocks on the free channel
		finish:   slab.Finish,
		observer: noopObserver{},
	}
}

// NewSlabReader adapts a buffer.Slab's consumer side to a Reader handle.
func NewSlabReader[T any](slab *buffer.Slab[T]) *Reader[T] {
	return &Reader[T]{
		sliceWithTags: func() ([]T, []buffer.Tag) {
			s, tags, _ := slab.SliceWithTags()
			return s, tags
		},
		consume: func(n uint64) error {
			return slab.Consume(int(n))
		},
		finished: slab.Finished,
		park:     func(context.Context) {}, // SliceWithTags itself blocks on the ready channel
		observer: noopObserver{},
	}
}
