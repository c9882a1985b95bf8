package buffer

import "github.com/ehrlich-b/go-flowgraph/internal/pmt"

// Tag pairs an absolute item index with a polymorphic value. The index is
// relative to the buffer's logical item-count origin (see tagQueue) until
// it is surfaced to a reader, at which point it is re-expressed relative to
// the reader's current cursor.
type Tag struct {
	Index uint64
	Value pmt.Value
}

// tagQueue is a small ordered collection of tags keyed by absolute item
// index. It supports appending at or beyond the current produced range
// (the tag latches once that slot is produced) and evicting everything
// below a watermark in time linear in the number of queued tags.
type tagQueue struct {
	tags []Tag
}

// add appends a tag; callers are expected to add tags in non-decreasing
// index order (the natural order of item production), but add tolerates
// out-of-order insertion by keeping the slice sorted.
func (q *tagQueue) add(index uint64, v pmt.Value) {
	t := Tag{Index: index, Value: v}
	n := len(q.tags)
	if n == 0 || q.tags[n-1].Index <= index {
		q.tags = append(q.tags, t)
		return
	}
	i := 0
	for i < n && q.tags[i].Index <= index {
		i++
	}
	q.tags = append(q.tags, Tag{})
	copy(q.tags[i+1:], q.tags[i:])
	q.tags[i] = t
}

// evictBelow discards every tag with Index < watermark.
func (q *tagQueue) evictBelow(watermark uint64) {
	i := 0
	for i < len(q.tags) && q.tags[i].Index < watermark {
		i++
	}
	if i == 0 {
		return
	}
	q.tags = append(q.tags[:0], q.tags[i:]...)
}

// between returns tags with lo <= Index < hi, re-expressed relative to lo.
func (q *tagQueue) between(lo, hi uint64) []Tag {
	var out []Tag
	for _, t := range q.tags {
		if t.Index >= lo && t.Index < hi {
			out = append(out, Tag{Index: t.Index - lo, Value: t.Value})
		}
	}
	return out
}
