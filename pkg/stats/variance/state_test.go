package variance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashank-93rao/varstats/pkg/stats/computed"
	"github.com/shashank-93rao/varstats/pkg/stats/strategy"
)

func TestStateConversions(t *testing.T) {
	s := NewValueAccumState[float64, float64](strategy.Real{}, 2)
	require.Equal(t, 2, s.Size())
	for _, x := range [][]float64{{1, 10}, {3, 10}} {
		require.NoError(t, s.Add(computed.Vector[float64](x)))
	}
	assert.Equal(t, uint64(2), s.Count())
	assert.Equal(t, []float64{4, 20}, s.Data())
	assert.Equal(t, []float64{10, 200}, s.Data2())

	require.ErrorIs(t, s.ConvertToSum(), ErrWrongMode)
	require.NoError(t, s.ConvertToMean())
	assert.Equal(t, MeanMode, s.Mode())
	assert.Equal(t, []float64{2, 10}, s.Data())
	assert.Equal(t, []float64{1, 0}, s.Data2())

	require.ErrorIs(t, s.ConvertToMean(), ErrWrongMode)
	require.ErrorIs(t, s.Add(computed.Vector[float64]{1, 1}), ErrWrongMode)

	require.NoError(t, s.ConvertToSum())
	assert.Equal(t, SumMode, s.Mode())
	assert.Equal(t, []float64{4, 20}, s.Data())
	assert.Equal(t, []float64{10, 200}, s.Data2())
}

func TestStateZeroCount(t *testing.T) {
	s := NewValueAccumState[complex128, strategy.ComplexOp](strategy.Elliptic{}, 3)
	require.NoError(t, s.ConvertToMean())
	assert.Equal(t, make([]complex128, 3), s.Data())
	assert.Equal(t, make([]strategy.ComplexOp, 3), s.Data2())
	require.NoError(t, s.ConvertToSum())
	assert.Equal(t, uint64(0), s.Count())
}

func TestStateResetAndClone(t *testing.T) {
	s := NewValueAccumState[float64, float64](strategy.Real{}, 1)
	require.NoError(t, s.Add(computed.Scalar(5.0)))
	c := s.Clone()
	s.Reset()
	assert.Equal(t, uint64(0), s.Count())
	assert.Equal(t, []float64{0}, s.Data())
	assert.Equal(t, uint64(1), c.Count())
	assert.Equal(t, []float64{5}, c.Data())

	require.ErrorIs(t, s.Add(computed.Vector[float64]{1, 2}), ErrSizeMismatch)
}

func TestStateMerge(t *testing.T) {
	a := NewValueAccumState[float64, float64](strategy.Real{}, 1)
	b := NewValueAccumState[float64, float64](strategy.Real{}, 1)
	require.NoError(t, a.Add(computed.Scalar(1.0)))
	require.NoError(t, b.Add(computed.Scalar(3.0)))
	require.NoError(t, a.Merge(b))
	require.NoError(t, a.ConvertToMean())
	assert.Equal(t, []float64{2}, a.Data())
	assert.Equal(t, []float64{1}, a.Data2())

	require.ErrorIs(t, a.Merge(b), ErrWrongMode)
	require.ErrorIs(t, b.Merge(NewValueAccumState[float64, float64](strategy.Real{}, 2)), ErrSizeMismatch)
}

func TestBundle(t *testing.T) {
	b := NewBundle[float64](2, 3)
	_, full := b.Push([]float64{1, 2})
	assert.False(t, full)
	_, full = b.Push([]float64{2, 4})
	assert.False(t, full)
	assert.Equal(t, 2, b.Count())
	mean, full := b.Push([]float64{3, 6})
	require.True(t, full)
	assert.InDeltaSlice(t, []float64{2, 4}, mean, 1e-12)
	assert.Equal(t, 0, b.Count())
	assert.Equal(t, 3, b.Capacity())
	assert.Equal(t, 2, b.Size())
}
