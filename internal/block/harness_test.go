package block

import (
	"context"
	"testing"

	"github.com/ehrlich-b/go-flowgraph/internal/buffer"
	"github.com/ehrlich-b/go-flowgraph/internal/pmt"
	"github.com/stretchr/testify/require"
)

// countingSource produces exactly N items total across however many Work
// invocations it takes, then marks itself finished.
type countingSource struct {
	Out       *Writer[int32]
	remaining int
	nextVal   int32
}

func (s *countingSource) Work(ctx context.Context, io *WorkIO, mio *MessageOutputs, meta *Meta) error {
	if s.remaining == 0 {
		io.Finished = true
		return nil
	}
	w, _ := s.Out.Slice()
	if len(w) == 0 {
		return nil
	}
	n := len(w)
	if n > s.remaining {
		n = s.remaining
	}
	for i := 0; i < n; i++ {
		w[i] = s.nextVal
		s.nextVal++
	}
	s.remaining -= n
	return s.Out.Produce(uint64(n))
}

// drainSink consumes everything offered and counts it, finishing once its
// upstream reader reports Finished.
type drainSink struct {
	In    *Reader[int32]
	total int
}

func (s *drainSink) Work(ctx context.Context, io *WorkIO, mio *MessageOutputs, meta *Meta) error {
	got, _ := s.In.SliceWithTags()
	if len(got) == 0 {
		if s.In.Finished() {
			io.Finished = true
		}
		return nil
	}
	s.total += len(got)
	return s.In.Consume(uint64(len(got)))
}

func TestHarness_SourceLifecycle(t *testing.T) {
	ring, err := buffer.NewRing[int32](64, t.TempDir())
	require.NoError(t, err)
	defer ring.Close()

	src := &countingSource{remaining: 500}
	src.Out = NewRingWriter(ring, 1)

	meta := &Meta{ID: 1, Name: "source"}
	h := NewHarness(src, meta, 0)
	h.RegisterOutput(src.Out)

	rd := ring.NewReader()
	done := make(chan error, 1)
	go func() { done <- h.Run(context.Background()) }()

	total := 0
	for {
		got, _ := rd.Slice()
		if len(got) > 0 {
			total += len(got)
			require.NoError(t, rd.Consume(uint64(len(got))))
		} else if rd.Finished() {
			break
		}
	}
	require.NoError(t, <-done)
	require.Equal(t, 500, total)
	require.Equal(t, StateTerminated, h.State())
}

func TestHarness_SinkLifecycle(t *testing.T) {
	ring, err := buffer.NewRing[int32](64, t.TempDir())
	require.NoError(t, err)
	defer ring.Close()
	rd := ring.NewReader()

	sink := &drainSink{}
	sink.In = NewRingReader(rd, 1)

	meta := &Meta{ID: 2, Name: "sink"}
	h := NewHarness(sink, meta, 0)
	h.RegisterInput(sink.In)

	done := make(chan error, 1)
	go func() { done <- h.Run(context.Background()) }()

	w, _ := ring.WriterSlice()
	for i := range w[:100] {
		w[i] = int32(i)
	}
	require.NoError(t, ring.Produce(100))
	ring.Finish()

	require.NoError(t, <-done)
	require.Equal(t, 100, sink.total)
}

type echoBlock struct{}

func (echoBlock) Work(ctx context.Context, io *WorkIO, mio *MessageOutputs, meta *Meta) error {
	io.CallAgain = false
	return nil
}

func (echoBlock) MessagePorts() []MessagePort {
	return []MessagePort{{
		Name: "ping",
		Handler: func(ctx context.Context, meta *Meta, mio *MessageOutputs, v pmt.Value) (pmt.Value, error) {
			return pmt.I64(7), nil
		},
	}}
}

func TestHarness_MessageRoundTrip(t *testing.T) {
	meta := &Meta{ID: 3, Name: "echo"}
	h := NewHarness(echoBlock{}, meta, 0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Run(ctx) }()

	reply := make(chan Reply, 1)
	require.NoError(t, h.Mailbox().Post(context.Background(), Message{Port: "ping", Value: pmt.I64(1), Reply: reply}))

	r := <-reply
	require.NoError(t, r.Err)
	v, ok := r.Value.I64()
	require.True(t, ok)
	require.Equal(t, int64(7), v)

	cancel()
	<-done
}
