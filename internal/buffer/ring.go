package buffer

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/ehrlich-b/go-flowgraph/internal/pmt"
)

// Ring is an SPSC (with optional multi-reader fan-out) lock-free sample
// transport over a double-mapped Region. Produce/consume are O(1)
// amortized with zero copy on the fast path: because the backing Region
// double-maps its storage, every readable or writable span is a single
// contiguous slice regardless of where it straddles the physical wrap
// point.
//
// Cursors are monotonically increasing item counts (never taken modulo the
// capacity); indexing into the Region is done mod N at access time. This
// keeps the producer/consumer conservation property (total produced ==
// total consumed at termination) trivial to state and check.
type Ring[T any] struct {
	region   *Region
	capacity uint64 // items
	itemSize int

	w atomic.Uint64 // write cursor, advanced only by the writer

	finished atomic.Bool

	mu      sync.Mutex // guards tags and the reader set; never held across a park
	tags    tagQueue
	readers []*Reader[T]

	writerWaker waker
}

// waker implements the park/retry-with-double-check notify protocol: a
// side that finds no work stores itself here and is woken by the peer's
// next produce/consume.
type waker struct {
	ch chan struct{}
}

func newWaker() waker { return waker{ch: make(chan struct{}, 1)} }

func (w waker) wake() {
	select {
	case w.ch <- struct{}{}:
	default:
	}
}

// wait blocks until woken or ctx is done, whichever comes first. Taking ctx
// directly (rather than a bare channel) lets the caller race the wait
// against a deadline without spawning a helper goroutine per call.
func (w waker) wait(ctx context.Context) {
	select {
	case <-w.ch:
	case <-ctx.Done():
	}
}

// NewRing creates a ring of at least the given item capacity backed by a
// fresh double-mapped region. The region size is capacity items of T
// rounded up to a whole 4096-byte page, and the ring's actual capacity is
// every item that region holds, so it can exceed the requested capacity.
// An item size that does not divide the region size is rejected with
// ErrInvalidSize. tmpDir is forwarded to the backing region.
func NewRing[T any](capacity uint64, tmpDir string) (*Ring[T], error) {
	var zero T
	itemSize := int(unsafe.Sizeof(zero))
	if itemSize == 0 {
		return nil, fmt.Errorf("buffer: %w: zero-sized item type", ErrInvalidSize)
	}

	regionSize := roundUpToPage(int(capacity) * itemSize)
	if regionSize%itemSize != 0 {
		return nil, fmt.Errorf("buffer: %w: item size %d does not divide region size %d", ErrInvalidSize, itemSize, regionSize)
	}
	region, err := NewRegion(regionSize, tmpDir)
	if err != nil {
		return nil, err
	}
	actualCapacity := uint64(regionSize / itemSize)

	return &Ring[T]{
		region:      region,
		capacity:    actualCapacity,
		itemSize:    itemSize,
		writerWaker: newWaker(),
	}, nil
}

func roundUpToPage(n int) int {
	const page = 4096
	if n <= 0 {
		n = page
	}
	return ((n + page - 1) / page) * page
}

func (b *Ring[T]) items() []T {
	return unsafe.Slice((*T)(unsafe.Pointer(&b.region.Slice()[0])), 2*int(b.capacity))
}

// Close releases the backing region.
func (b *Ring[T]) Close() error { return b.region.Close() }

// slowestReaderCursor returns the minimum cursor across all readers, which
// bounds how much space the writer may reclaim (spec scenario E: fan-out).
func (b *Ring[T]) slowestReaderCursor() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.readers) == 0 {
		// No reader bound yet: nothing can be reclaimed, so the writer
		// sees no space (Connect binds a reader in the same call that
		// creates the ring, before the flowgraph starts).
		return b.w.Load()
	}
	min := b.readers[0].cursor.Load()
	for _, rd := range b.readers[1:] {
		if c := rd.cursor.Load(); c < min {
			min = c
		}
	}
	return min
}

// ---- Writer side ----

// WriterSlice returns the currently writable span and a tag-append handle.
// Never blocks; the returned slice may be empty if the ring (or the
// slowest reader) has no space.
func (b *Ring[T]) WriterSlice() ([]T, *TagWriter) {
	w := b.w.Load()
	r := b.slowestReaderCursor()
	free := b.capacity - (w - r)
	items := b.items()
	start := w % b.capacity
	tw := &TagWriter{add: func(relativeIndex uint64, v pmt.Value) {
		b.mu.Lock()
		b.tags.add(w+relativeIndex, v)
		b.mu.Unlock()
	}}
	return items[start : start+free], tw
}

// Produce advances the write cursor by n, publishing with release
// semantics (atomic store) and waking any parked reader.
func (b *Ring[T]) Produce(n uint64) error {
	w := b.w.Load()
	r := b.slowestReaderCursor()
	if n > b.capacity-(w-r) {
		return fmt.Errorf("buffer: %w: produce(%d) exceeds writable span", ErrInvalidCount, n)
	}
	b.w.Store(w + n)
	b.mu.Lock()
	for _, rd := range b.readers {
		rd.waker.wake()
	}
	b.mu.Unlock()
	return nil
}

// Finish marks the ring finished; readers observe Finished() once they
// drain the remaining items.
func (b *Ring[T]) Finish() {
	b.finished.Store(true)
	b.mu.Lock()
	for _, rd := range b.readers {
		rd.waker.wake()
	}
	b.mu.Unlock()
}

// TagWriter lets a writer attach tags at produced-relative indices. Tags at
// an index beyond the currently produced range are permitted and latch
// once that slot is produced.
type TagWriter struct {
	add func(relativeIndex uint64, v pmt.Value)
}

// AddTag attaches a tag at the given index relative to the write cursor in
// effect when this TagWriter was obtained.
func (t *TagWriter) AddTag(relativeIndex uint64, v pmt.Value) {
	t.add(relativeIndex, v)
}

// ---- Reader side ----

// Reader is one fan-out reader's independent cursor into a shared Ring.
type Reader[T any] struct {
	ring   *Ring[T]
	cursor atomic.Uint64
	waker  waker
}

// NewReader registers a new independent reader cursor on the ring (used for
// multi-reader fan-out edges). The reader starts at item 0.
func (b *Ring[T]) NewReader() *Reader[T] {
	rd := &Reader[T]{ring: b, waker: newWaker()}
	b.mu.Lock()
	b.readers = append(b.readers, rd)
	b.mu.Unlock()
	return rd
}

// Slice returns the reader's currently readable span and the tags within
// it, re-expressed relative to the reader's cursor.
func (rd *Reader[T]) Slice() ([]T, []Tag) {
	r := rd.cursor.Load()
	w := rd.ring.w.Load()
	items := rd.ring.items()
	start := r % rd.ring.capacity
	n := w - r
	rd.ring.mu.Lock()
	tags := rd.ring.tags.between(r, w)
	rd.ring.mu.Unlock()
	return items[start : start+n], tags
}

// Consume advances the reader's cursor by n, evicting tags below the
// slowest reader's cursor, and wakes a parked writer, which re-checks the
// slowest reader's cursor to see whether ring space was freed.
func (rd *Reader[T]) Consume(n uint64) error {
	r := rd.cursor.Load()
	w := rd.ring.w.Load()
	if n > w-r {
		return fmt.Errorf("buffer: %w: consume(%d) exceeds readable span", ErrInvalidCount, n)
	}
	rd.cursor.Store(r + n)

	rd.ring.mu.Lock()
	// Only the globally slowest reader's progress can retire tags.
	min := rd.ring.capacity + w // sentinel large value
	for _, other := range rd.ring.readers {
		if c := other.cursor.Load(); c < min {
			min = c
		}
	}
	rd.ring.tags.evictBelow(min)
	rd.ring.mu.Unlock()

	rd.ring.writerWaker.wake()
	return nil
}

// Finished reports true only once the writer has finished and this reader
// has drained every remaining item.
func (rd *Reader[T]) Finished() bool {
	return rd.ring.finished.Load() && rd.cursor.Load() == rd.ring.w.Load()
}

// ParkForData blocks the calling goroutine until new data, a finish signal,
// ctx is done, or a spurious wake occurs; callers must re-check state
// afterward (the standard park/retry double-check: this method itself
// re-checks once before parking to avoid a missed wakeup).
func (rd *Reader[T]) ParkForData(ctx context.Context) {
	r := rd.cursor.Load()
	w := rd.ring.w.Load()
	if w != r || rd.ring.finished.Load() {
		return
	}
	rd.waker.wait(ctx)
}

// ParkForSpace blocks the writer until the ring has space, all readers
// finished draining, or ctx is done.
func (b *Ring[T]) ParkForSpace(ctx context.Context) {
	w := b.w.Load()
	r := b.slowestReaderCursor()
	if b.capacity-(w-r) > 0 {
		return
	}
	b.writerWaker.wait(ctx)
}
