package buffer

import (
	"fmt"
	"sync"

	"github.com/ehrlich-b/go-flowgraph/internal/pmt"
)

// slabRecord is one owned carrier buffer in a Slab pool.
type slabRecord[T any] struct {
	storage []T
	used    int
	tags    []Tag
}

// Slab is the alternative stream transport built on a pool of fixed-size
// owned carrier buffers, handed off between writer and reader by moving a
// record between free/ready channels rather than by cursor advancement.
// Preferred when downstream expects whole frames (FFT-sized blocks), when
// a sink enforces minimum-buffer semantics, or when memory must be
// pre-pinned for a DMA/GPU queue.
type Slab[T any] struct {
	recordLen int
	pool      int

	free  chan *slabRecord[T]
	ready chan *slabRecord[T]

	mu       sync.Mutex
	finished bool

	writerHeld *slabRecord[T]
	readerHeld *slabRecord[T]
}

// NewSlab creates a slab buffer with `reserved` pre-allocated records, each
// able to carry up to recordLen items of T.
func NewSlab[T any](reserved, recordLen int) *Slab[T] {
	if reserved <= 0 {
		reserved = 1
	}
	s := &Slab[T]{
		recordLen: recordLen,
		pool:      reserved,
		free:      make(chan *slabRecord[T], reserved),
		ready:     make(chan *slabRecord[T], reserved),
	}
	for i := 0; i < reserved; i++ {
		s.free <- &slabRecord[T]{storage: make([]T, recordLen)}
	}
	return s
}

// ---- Writer side ----

// WriterSlice dequeues a free record if the writer holds none, blocking
// (suspending the calling goroutine) until one is available, and exposes
// its storage plus a tag-append handle.
func (s *Slab[T]) WriterSlice() ([]T, *TagWriter) {
	if s.writerHeld == nil {
		s.writerHeld = <-s.free
		s.writerHeld.used = 0
		s.writerHeld.tags = s.writerHeld.tags[:0]
	}
	rec := s.writerHeld
	tw := &TagWriter{add: func(relativeIndex uint64, v pmt.Value) {
		rec.tags = append(rec.tags, Tag{Index: relativeIndex, Value: v})
	}}
	return rec.storage, tw
}

// Produce records how many items were written, moves the held record to
// the ready queue, and returns. Each produced buffer ends its record: a
// partial write (n < recordLen) is not topped up later.
func (s *Slab[T]) Produce(n int) error {
	if s.writerHeld == nil {
		return fmt.Errorf("buffer: %w: produce with no held record", ErrInvalidCount)
	}
	if n > len(s.writerHeld.storage) {
		return fmt.Errorf("buffer: %w: produce(%d) exceeds record capacity %d", ErrInvalidCount, n, len(s.writerHeld.storage))
	}
	s.writerHeld.used = n
	rec := s.writerHeld
	s.writerHeld = nil
	s.ready <- rec
	return nil
}

// Finish marks the slab finished. A record the writer still holds is then
// submitted with a used count of 0: a held record has never been produced,
// so items written into it without a Produce call are not delivered.
func (s *Slab[T]) Finish() {
	s.mu.Lock()
	s.finished = true
	s.mu.Unlock()
	if s.writerHeld != nil && s.writerHeld.used == 0 && len(s.writerHeld.storage) > 0 {
		// Nothing was ever written into this held record at all; still
		// submit it so the reader's finished() check can observe drain
		// completion rather than a forever-held buffer.
		_ = s.Produce(s.writerHeld.used)
	}
	close(s.ready)
}

// ---- Reader side ----

// SliceWithTags dequeues a ready record if the reader holds none,
// suspending if empty and the slab is not finished, and returns its used
// items and tags.
func (s *Slab[T]) SliceWithTags() ([]T, []Tag, bool) {
	if s.readerHeld == nil {
		rec, ok := <-s.ready
		if !ok {
			return nil, nil, false
		}
		s.readerHeld = rec
	}
	rec := s.readerHeld
	return rec.storage[:rec.used], rec.tags, true
}

// Consume requires full-record consumption (n must equal the held
// record's used count) and returns the buffer to the free queue.
func (s *Slab[T]) Consume(n int) error {
	if s.readerHeld == nil {
		return fmt.Errorf("buffer: %w: consume with no held record", ErrInvalidCount)
	}
	if n != s.readerHeld.used {
		return fmt.Errorf("buffer: %w: consume(%d) must equal held record's used count %d", ErrInvalidCount, n, s.readerHeld.used)
	}
	rec := s.readerHeld
	s.readerHeld = nil
	s.free <- rec
	return nil
}

// Finished reports true once the slab is finished, no ready records
// remain, and the reader holds nothing outstanding.
func (s *Slab[T]) Finished() bool {
	s.mu.Lock()
	finished := s.finished
	s.mu.Unlock()
	return finished && s.readerHeld == nil && len(s.ready) == 0
}

// PoolSize returns P, the total record count — constant for the buffer's
// lifetime. Summed across {free, ready, writer-held, reader-held} this
// always equals PoolSize.
func (s *Slab[T]) PoolSize() int { return s.pool }
