package computed

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func collect[T float64 | complex128](c Computed[T]) []T {
	out := make([]T, c.Size())
	for i := range out {
		out[i] = c.At(i)
	}
	return out
}

func TestAdapters(t *testing.T) {
	assert.Equal(t, []float64{2.5}, collect(Scalar(2.5)))
	assert.Equal(t, []float64{1, 2, 3}, collect[float64](Vector[float64]{1, 2, 3}))
	assert.Equal(t, []float64{0, 1, 4}, collect(Func(3, func(i int) float64 { return float64(i * i) })))
	assert.Equal(t, []float64{-1, 7}, collect(Reals([]int32{-1, 7})))
	assert.Equal(t, []float64{0.5}, collect(Reals([]float32{0.5})))
	assert.Equal(t, []complex128{complex(1, 2)}, collect(Complexes([]complex64{complex(1, 2)})))
	assert.Equal(t, []complex128{complex(3, 0)}, collect(Promote(Scalar(3.0))))
}
