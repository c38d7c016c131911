package variance

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashank-93rao/varstats/pkg/stats/computed"
	"github.com/shashank-93rao/varstats/pkg/stats/strategy"
)

const tolerance = 1e-9

func realSeries(n int, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	xs := make([]float64, n)
	for i := range xs {
		xs[i] = rng.NormFloat64()*3 + 1
	}
	return xs
}

func complexSeries(n int, seed int64) []complex128 {
	rng := rand.New(rand.NewSource(seed))
	zs := make([]complex128, n)
	for i := range zs {
		// anisotropic and correlated between the real and imaginary parts
		re := rng.NormFloat64()*2 + 0.5
		im := 0.5*re + rng.NormFloat64()*0.3 - 1
		zs[i] = complex(re, im)
	}
	return zs
}

func closedForm(xs []float64) (mean, variance float64) {
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	for _, x := range xs {
		variance += (x - mean) * (x - mean)
	}
	return mean, variance / float64(len(xs))
}

func TestExampleSequence(t *testing.T) {
	acc, err := NewRealAcc()
	require.NoError(t, err)
	for _, x := range []float64{2, 4, 4, 4, 5, 5, 7, 9} {
		require.NoError(t, acc.Accumulate(computed.Scalar(x)))
	}
	res, err := acc.Result()
	require.NoError(t, err)
	assert.Equal(t, uint64(8), res.Count())
	assert.Equal(t, []float64{5}, res.Mean())
	assert.Equal(t, []float64{4}, res.Var())
	assert.InDeltaSlice(t, []float64{math.Sqrt(0.5)}, res.StdError(), tolerance)
}

func TestRealMatchesClosedForm(t *testing.T) {
	cols := [][]float64{realSeries(1000, 1), realSeries(1000, 2), realSeries(1000, 3)}
	acc, err := NewRealAcc(WithBundleSize(4))
	require.NoError(t, err)
	for i := range cols[0] {
		require.NoError(t, acc.Add(cols[0][i], cols[1][i], cols[2][i]))
	}
	res, err := acc.Result()
	require.NoError(t, err)
	require.Equal(t, 3, res.Size())
	for j, col := range cols {
		mean, variance := closedForm(col)
		assert.InDelta(t, mean, res.Mean()[j], tolerance)
		assert.InDelta(t, variance, res.Var()[j], tolerance)
		assert.InDelta(t, math.Sqrt(variance/1000), res.StdError()[j], tolerance)
	}
}

func TestComplexMatchesClosedForm(t *testing.T) {
	zs := complexSeries(777, 4)
	re := make([]float64, len(zs))
	im := make([]float64, len(zs))
	for i, z := range zs {
		re[i], im[i] = real(z), imag(z)
	}
	mr, vr := closedForm(re)
	mi, vi := closedForm(im)
	var cov float64
	for i := range zs {
		cov += (re[i] - mr) * (im[i] - mi)
	}
	cov /= float64(len(zs))

	circ, err := NewCircularAcc()
	require.NoError(t, err)
	ell, err := NewEllipticAcc()
	require.NoError(t, err)
	for _, z := range zs {
		require.NoError(t, circ.Accumulate(computed.Scalar(z)))
		require.NoError(t, ell.Add(z))
	}

	cres, err := circ.Result()
	require.NoError(t, err)
	assert.InDelta(t, mr, real(cres.Mean()[0]), tolerance)
	assert.InDelta(t, mi, imag(cres.Mean()[0]), tolerance)
	assert.InDelta(t, vr+vi, cres.Var()[0], tolerance)

	eres, err := ell.Result()
	require.NoError(t, err)
	op := eres.Var()[0]
	assert.InDelta(t, vr, op.RR, tolerance)
	assert.InDelta(t, vi, op.II, tolerance)
	assert.InDelta(t, cov, op.RI, tolerance)
	assert.InDelta(t, cov, op.IR, tolerance)
	assert.InDelta(t, cres.Var()[0], op.Trace(), tolerance)
	assert.InDelta(t, math.Sqrt(vr/float64(len(zs))), eres.StdError()[0].RR, tolerance)
}

func TestRealSamplesAsComplex(t *testing.T) {
	xs := realSeries(100, 5)
	racc, err := NewRealAcc()
	require.NoError(t, err)
	circ, err := NewCircularAcc()
	require.NoError(t, err)
	for _, x := range xs {
		require.NoError(t, racc.Add(x))
		require.NoError(t, circ.Accumulate(computed.Promote(computed.Scalar(x))))
	}
	rres, err := racc.Result()
	require.NoError(t, err)
	cres, err := circ.Result()
	require.NoError(t, err)
	assert.InDelta(t, rres.Var()[0], cres.Var()[0], tolerance)
}

func TestLifecycle(t *testing.T) {
	acc, err := NewRealAcc()
	require.NoError(t, err)
	assert.False(t, acc.Initialized())
	_, err = acc.Count()
	assert.ErrorIs(t, err, ErrUninitialized)
	_, err = acc.Result()
	assert.ErrorIs(t, err, ErrUninitialized)
	_, err = acc.Finalize()
	assert.ErrorIs(t, err, ErrUninitialized)

	require.NoError(t, acc.Add(1, 2))
	assert.True(t, acc.Initialized())
	assert.Equal(t, 2, acc.Size())
	assert.ErrorIs(t, acc.Add(1), ErrSizeMismatch)

	require.NoError(t, acc.Add(3, 4))
	res, err := acc.Finalize()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), res.Count())
	assert.Equal(t, []float64{2, 3}, res.Mean())
	assert.False(t, acc.Valid())

	assert.ErrorIs(t, acc.Add(5, 6), ErrInvalid)
	_, err = acc.Result()
	assert.ErrorIs(t, err, ErrInvalid)
	_, err = acc.Count()
	assert.ErrorIs(t, err, ErrInvalid)

	acc.Reset()
	assert.True(t, acc.Valid())
	assert.False(t, acc.Initialized())
	require.NoError(t, acc.Add(7))
	n, err := acc.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)
}

func TestEmptySampleRejected(t *testing.T) {
	acc, err := NewRealAcc()
	require.NoError(t, err)
	assert.ErrorIs(t, acc.Add(), ErrSizeMismatch)
	assert.False(t, acc.Initialized())
}

func TestBundleSizeValidation(t *testing.T) {
	_, err := NewRealAcc(WithBundleSize(1))
	assert.ErrorIs(t, err, ErrBundleSize)
	_, err = NewRealAcc(WithSize(-1))
	assert.Error(t, err)
}

func TestResetOnPristineAccumulator(t *testing.T) {
	acc, err := NewRealAcc(WithSize(1), WithBundleSize(3))
	require.NoError(t, err)
	n, err := acc.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), n)

	before, err := acc.Result()
	require.NoError(t, err)
	acc.Reset()
	after, err := acc.Result()
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, 1, acc.Size())
}

func TestResetReproducesResult(t *testing.T) {
	xs := realSeries(333, 6)
	acc, err := NewRealAcc()
	require.NoError(t, err)
	run := func() *VarResult[float64, float64] {
		for _, x := range xs {
			require.NoError(t, acc.Add(x))
		}
		res, err := acc.Result()
		require.NoError(t, err)
		return res
	}
	first := run()
	levels := acc.Levels()
	acc.Reset()
	second := run()
	assert.Equal(t, first.Mean(), second.Mean())
	assert.Equal(t, first.Var(), second.Var())
	assert.Equal(t, first.Count(), second.Count())
	assert.Equal(t, levels, acc.Levels())
}

func TestResultDoesNotShareStorage(t *testing.T) {
	acc, err := NewRealAcc()
	require.NoError(t, err)
	require.NoError(t, acc.Add(1))
	res, err := acc.Result()
	require.NoError(t, err)
	require.NoError(t, acc.Add(3))
	assert.Equal(t, []float64{1}, res.Mean())
	assert.Equal(t, uint64(1), res.Count())

	res.Mean()[0] = 100
	assert.Equal(t, []float64{1}, res.Mean())
}

func TestBinningLevels(t *testing.T) {
	for _, n := range []int{1, 2, 15, 16, 100} {
		acc, err := NewRealAcc()
		require.NoError(t, err)
		for i := 0; i < n; i++ {
			require.NoError(t, acc.Add(float64(i)))
		}
		wantLevels := 1
		for n>>wantLevels > 0 {
			wantLevels++
		}
		require.Equal(t, wantLevels, acc.Levels(), "n=%d", n)
		for k := 0; k < acc.Levels(); k++ {
			res, err := acc.LevelResult(k)
			require.NoError(t, err)
			assert.Equal(t, uint64(n>>k), res.Count(), "n=%d level=%d", n, k)
		}
		fill, capacity := acc.Current()
		assert.Equal(t, n%2, fill)
		assert.Equal(t, DefaultBundleSize, capacity)
	}
}

func TestBinningLevelContents(t *testing.T) {
	acc, err := NewRealAcc(WithBundleSize(2))
	require.NoError(t, err)
	for x := 1; x <= 8; x++ {
		require.NoError(t, acc.Add(float64(x)))
	}
	lvl, err := acc.LevelResult(1)
	require.NoError(t, err)
	// bundle means 1.5, 3.5, 5.5, 7.5
	assert.Equal(t, uint64(4), lvl.Count())
	assert.InDelta(t, 4.5, lvl.Mean()[0], tolerance)
	assert.InDelta(t, 5.0, lvl.Var()[0], tolerance)

	_, err = acc.LevelResult(acc.Levels())
	assert.ErrorIs(t, err, ErrNoLevel)
	_, err = acc.LevelResult(-1)
	assert.ErrorIs(t, err, ErrNoLevel)
}

func TestBinningRevealsCorrelation(t *testing.T) {
	// an AR(1) chain has a stderror that grows with the binning level
	// until the bins are longer than the correlation time
	rng := rand.New(rand.NewSource(7))
	acc, err := NewRealAcc()
	require.NoError(t, err)
	x := 0.0
	for i := 0; i < 1<<14; i++ {
		x = 0.9*x + rng.NormFloat64()
		require.NoError(t, acc.Add(x))
	}
	raw, err := acc.LevelResult(0)
	require.NoError(t, err)
	coarse, err := acc.LevelResult(6)
	require.NoError(t, err)
	assert.Greater(t, coarse.StdError()[0], 2*raw.StdError()[0])
}

func TestClone(t *testing.T) {
	acc, err := NewEllipticAcc()
	require.NoError(t, err)
	zs := complexSeries(21, 8)
	for _, z := range zs[:11] {
		require.NoError(t, acc.Add(z))
	}
	c := acc.Clone()
	for _, z := range zs[11:] {
		require.NoError(t, acc.Add(z))
		require.NoError(t, c.Add(z))
	}
	require.Equal(t, acc.Levels(), c.Levels())
	for k := 0; k < acc.Levels(); k++ {
		a, err := acc.LevelResult(k)
		require.NoError(t, err)
		b, err := c.LevelResult(k)
		require.NoError(t, err)
		assert.Equal(t, a.Mean(), b.Mean())
		assert.Equal(t, a.Var(), b.Var())
	}
	assert.Equal(t, strategy.EllipticKind, c.Strategy().Kind())
}
