package buffer

import (
	"testing"

	"github.com/ehrlich-b/go-flowgraph/internal/pmt"
	"github.com/stretchr/testify/require"
)

func TestRing_ContiguousSlices(t *testing.T) {
	r, err := NewRing[float32](1024, t.TempDir())
	require.NoError(t, err)
	defer r.Close()

	rd := r.NewReader()

	w, _ := r.WriterSlice()
	require.GreaterOrEqual(t, len(w), 1000)
	for i := range w[:1000] {
		w[i] = float32(i + 1)
	}
	require.NoError(t, r.Produce(1000))

	got, _ := rd.Slice()
	require.Len(t, got, 1000)
	for i, v := range got {
		require.Equal(t, float32(i+1), v)
	}
	require.NoError(t, rd.Consume(1000))
}

func TestRing_ProduceConsumeConservation(t *testing.T) {
	r, err := NewRing[int32](64, t.TempDir())
	require.NoError(t, err)
	defer r.Close()

	rd := r.NewReader()

	var totalProduced, totalConsumed uint64
	for i := 0; i < 200; i++ {
		w, _ := r.WriterSlice()
		if len(w) == 0 {
			got, _ := rd.Slice()
			require.NoError(t, rd.Consume(uint64(len(got))))
			totalConsumed += uint64(len(got))
			continue
		}
		n := uint64(1)
		require.NoError(t, r.Produce(n))
		totalProduced += n
	}
	r.Finish()
	for !rd.Finished() {
		got, _ := rd.Slice()
		if len(got) == 0 {
			break
		}
		require.NoError(t, rd.Consume(uint64(len(got))))
		totalConsumed += uint64(len(got))
	}
	require.Equal(t, totalProduced, totalConsumed)
	require.True(t, rd.Finished())
}

func TestRing_TagSurvival(t *testing.T) {
	r, err := NewRing[int32](256, t.TempDir())
	require.NoError(t, err)
	defer r.Close()

	rd := r.NewReader()

	w, tw := r.WriterSlice()
	require.GreaterOrEqual(t, len(w), 100)
	tw.AddTag(50, pmt.NamedU64("burst", 30))
	require.NoError(t, r.Produce(100))

	got, tags := rd.Slice()
	require.Len(t, got, 100)
	require.Len(t, tags, 1)
	require.Equal(t, uint64(50), tags[0].Index)

	require.NoError(t, rd.Consume(40))
	_, tags = rd.Slice()
	require.Len(t, tags, 1)
	require.Equal(t, uint64(10), tags[0].Index)
	name, val, ok := tags[0].Value.Name()
	require.True(t, ok)
	require.Equal(t, "burst", name)
	u, ok := val.U64()
	require.True(t, ok)
	require.Equal(t, uint64(30), u)

	require.NoError(t, rd.Consume(11))
	_, tags = rd.Slice()
	require.Len(t, tags, 0)
}

func TestRing_InvalidCount(t *testing.T) {
	r, err := NewRing[byte](4096, t.TempDir())
	require.NoError(t, err)
	defer r.Close()

	w, _ := r.WriterSlice()
	err = r.Produce(uint64(len(w)) + 1)
	require.ErrorIs(t, err, ErrInvalidCount)
}

func TestRing_FanOutBoundedBySlowestReader(t *testing.T) {
	// 1024 int32 items fill exactly one 4096-byte page, so the ring's
	// capacity is not rounded up past the requested one.
	r, err := NewRing[int32](1024, t.TempDir())
	require.NoError(t, err)
	defer r.Close()

	a := r.NewReader()
	b := r.NewReader()

	w, _ := r.WriterSlice()
	require.Len(t, w, 1024)
	require.NoError(t, r.Produce(1024))

	require.NoError(t, a.Consume(1024))

	// b hasn't consumed anything, so the writer sees zero space even
	// though a has drained fully.
	w2, _ := r.WriterSlice()
	require.Len(t, w2, 0)

	require.NoError(t, b.Consume(1024))
	w3, _ := r.WriterSlice()
	require.Len(t, w3, 1024)
}
