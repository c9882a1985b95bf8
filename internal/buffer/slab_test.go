package buffer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSlab_ConservationAcrossQueues(t *testing.T) {
	s := NewSlab[float32](4, 128)
	require.Equal(t, 4, s.PoolSize())

	w, _ := s.WriterSlice()
	require.Len(t, w, 128)
	for i := range w {
		w[i] = float32(i)
	}
	require.NoError(t, s.Produce(128))

	got, _, ok := s.SliceWithTags()
	require.True(t, ok)
	require.Len(t, got, 128)
	require.NoError(t, s.Consume(128))
}

func TestSlab_PartialRecordEndsTheRecord(t *testing.T) {
	s := NewSlab[int32](2, 64)

	w, _ := s.WriterSlice()
	require.Len(t, w, 64)
	require.NoError(t, s.Produce(10)) // partial record

	got, _, ok := s.SliceWithTags()
	require.True(t, ok)
	require.Len(t, got, 10)
	require.NoError(t, s.Consume(10))
}

func TestSlab_ConsumeRequiresFullRecord(t *testing.T) {
	s := NewSlab[int32](1, 32)

	_, _ = s.WriterSlice()
	require.NoError(t, s.Produce(32))

	_, _, ok := s.SliceWithTags()
	require.True(t, ok)
	err := s.Consume(16)
	require.ErrorIs(t, err, ErrInvalidCount)
}

func TestSlab_FinishDrainsThenReportsFinished(t *testing.T) {
	s := NewSlab[int32](1, 8)

	_, _ = s.WriterSlice()
	require.NoError(t, s.Produce(8))
	s.Finish()

	got, _, ok := s.SliceWithTags()
	require.True(t, ok)
	require.Len(t, got, 8)
	require.NoError(t, s.Consume(8))

	require.True(t, s.Finished())
}
