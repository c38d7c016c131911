package variance

import (
	"fmt"

	"github.com/shashank-93rao/varstats/pkg/stats/computed"
	"github.com/shashank-93rao/varstats/pkg/stats/strategy"
)

// DefaultBundleSize is the bundle capacity of accumulators built without
// WithBundleSize: every binning level halves the length of the series.
const DefaultBundleSize = 2

type phase int

const (
	uninitialized phase = iota
	accumulating
	invalid
)

// level is one series of the binning hierarchy. Level 0 receives the raw
// samples; level k+1 receives the bundle means of level k.
type level[T strategy.Scalar, V strategy.Element] struct {
	state  *ValueAccumState[T, V]
	bundle *Bundle[T]
}

func newLevel[T strategy.Scalar, V strategy.Element](s strategy.Strategy[T, V], size, bundleSize int) level[T, V] {
	return level[T, V]{
		state:  NewValueAccumState(s, size),
		bundle: NewBundle[T](size, bundleSize),
	}
}

type options struct {
	size       int
	bundleSize int
}

// Option configures a VarAcc.
type Option func(*options)

// WithSize fixes the sample size up front instead of taking it from the
// first sample.
func WithSize(n int) Option {
	return func(o *options) { o.size = n }
}

// WithBundleSize sets how many samples of one level make up one sample of
// the next.
func WithBundleSize(c int) Option {
	return func(o *options) { o.bundleSize = c }
}

// VarAcc accumulates the mean and variance of a stream of samples. Besides
// the raw series it keeps a chain of coarser series, each built from bundle
// means of the previous one, which an autocorrelation estimator can use to
// correct the naive error bars.
//
// A VarAcc must not be used from several goroutines at once.
type VarAcc[T strategy.Scalar, V strategy.Element] struct {
	strategy   strategy.Strategy[T, V]
	presized   int
	size       int
	bundleSize int
	levels     []level[T, V]
	scratch    []T
	phase      phase
}

// NewVarAcc creates an accumulator. Without WithSize the sample size is
// resolved by the first accumulated sample.
func NewVarAcc[T strategy.Scalar, V strategy.Element](s strategy.Strategy[T, V], opts ...Option) (*VarAcc[T, V], error) {
	o := options{bundleSize: DefaultBundleSize}
	for _, opt := range opts {
		opt(&o)
	}
	if o.bundleSize < 2 {
		return nil, fmt.Errorf("bundle size %d: %w", o.bundleSize, ErrBundleSize)
	}
	if o.size < 0 {
		return nil, fmt.Errorf("negative size %d: %w", o.size, ErrSizeMismatch)
	}
	a := &VarAcc[T, V]{
		strategy:   s,
		presized:   o.size,
		bundleSize: o.bundleSize,
	}
	a.Reset()
	return a, nil
}

func NewRealAcc(opts ...Option) (*VarAcc[float64, float64], error) {
	return NewVarAcc[float64, float64](strategy.Real{}, opts...)
}

func NewCircularAcc(opts ...Option) (*VarAcc[complex128, float64], error) {
	return NewVarAcc[complex128, float64](strategy.Circular{}, opts...)
}

func NewEllipticAcc(opts ...Option) (*VarAcc[complex128, strategy.ComplexOp], error) {
	return NewVarAcc[complex128, strategy.ComplexOp](strategy.Elliptic{}, opts...)
}

// Reset discards all samples and binning levels. An accumulator created
// with WithSize keeps its size; otherwise the size is resolved again by the
// next sample.
func (a *VarAcc[T, V]) Reset() {
	a.levels = nil
	a.size = 0
	a.scratch = nil
	a.phase = uninitialized
	if a.presized > 0 {
		a.init(a.presized)
	}
}

func (a *VarAcc[T, V]) init(size int) {
	a.size = size
	a.scratch = make([]T, size)
	a.levels = []level[T, V]{newLevel(a.strategy, size, a.bundleSize)}
	a.phase = accumulating
}

// Initialized reports whether the sample size is known.
func (a *VarAcc[T, V]) Initialized() bool { return a.phase != uninitialized }

// Valid reports whether the accumulator still owns its storage, that is,
// Finalize has not been called since the last Reset.
func (a *VarAcc[T, V]) Valid() bool { return a.phase != invalid }

// Size is the number of components per sample, 0 while uninitialized.
func (a *VarAcc[T, V]) Size() int { return a.size }

func (a *VarAcc[T, V]) BundleSize() int { return a.bundleSize }

func (a *VarAcc[T, V]) Strategy() strategy.Strategy[T, V] { return a.strategy }

// Accumulate adds one sample.
func (a *VarAcc[T, V]) Accumulate(src computed.Computed[T]) error {
	switch a.phase {
	case invalid:
		return fmt.Errorf("accumulate: %w", ErrInvalid)
	case uninitialized:
		if src.Size() < 1 {
			return fmt.Errorf("accumulate empty sample: %w", ErrSizeMismatch)
		}
		a.init(src.Size())
	}
	if src.Size() != a.size {
		return fmt.Errorf("accumulate sample of size %d into accumulator of size %d: %w", src.Size(), a.size, ErrSizeMismatch)
	}
	for i := range a.scratch {
		a.scratch[i] = src.At(i)
	}
	a.push(a.scratch)
	return nil
}

// Add accumulates the sample made of values.
func (a *VarAcc[T, V]) Add(values ...T) error {
	return a.Accumulate(computed.Vector[T](values))
}

// push feeds a sample into level 0 and carries completed bundles upwards,
// creating levels as they are first needed.
func (a *VarAcc[T, V]) push(sample []T) {
	for k := 0; ; k++ {
		lvl := a.levels[k]
		lvl.state.addValues(sample)
		mean, full := lvl.bundle.Push(sample)
		if !full {
			return
		}
		if k+1 == len(a.levels) {
			a.levels = append(a.levels, newLevel(a.strategy, a.size, a.bundleSize))
		}
		sample = mean
	}
}

func (a *VarAcc[T, V]) check() error {
	switch a.phase {
	case uninitialized:
		return ErrUninitialized
	case invalid:
		return ErrInvalid
	}
	return nil
}

// Count is the number of raw samples accumulated.
func (a *VarAcc[T, V]) Count() (uint64, error) {
	if err := a.check(); err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return a.levels[0].state.Count(), nil
}

// Current reports the fill and capacity of the raw-level bundle.
func (a *VarAcc[T, V]) Current() (fill, capacity int) {
	if len(a.levels) == 0 {
		return 0, a.bundleSize
	}
	b := a.levels[0].bundle
	return b.Count(), b.Capacity()
}

// Levels is the number of series in the binning hierarchy, including the
// raw one.
func (a *VarAcc[T, V]) Levels() int { return len(a.levels) }

// Result returns a snapshot of the raw series. The accumulator is left
// untouched and can keep accumulating.
func (a *VarAcc[T, V]) Result() (*VarResult[T, V], error) {
	return a.LevelResult(0)
}

// LevelResult returns a snapshot of binning level k. Level k holds
// Count()/BundleSize()^k samples, each the mean of BundleSize()^k
// consecutive raw samples.
func (a *VarAcc[T, V]) LevelResult(k int) (*VarResult[T, V], error) {
	if err := a.check(); err != nil {
		return nil, fmt.Errorf("result: %w", err)
	}
	if k < 0 || k >= len(a.levels) {
		return nil, fmt.Errorf("result: level %d of %d: %w", k, len(a.levels), ErrNoLevel)
	}
	state := a.levels[k].state.Clone()
	if err := state.ConvertToMean(); err != nil {
		return nil, err
	}
	return &VarResult[T, V]{state: state}, nil
}

// Finalize hands the raw series over to a result without copying it. The
// accumulator is invalid afterwards until Reset.
func (a *VarAcc[T, V]) Finalize() (*VarResult[T, V], error) {
	if err := a.check(); err != nil {
		return nil, fmt.Errorf("finalize: %w", err)
	}
	state := a.levels[0].state
	if err := state.ConvertToMean(); err != nil {
		return nil, err
	}
	a.levels = nil
	a.scratch = nil
	a.phase = invalid
	return &VarResult[T, V]{state: state}, nil
}

// Clone returns an independent copy, binning levels included.
func (a *VarAcc[T, V]) Clone() *VarAcc[T, V] {
	c := &VarAcc[T, V]{
		strategy:   a.strategy,
		presized:   a.presized,
		size:       a.size,
		bundleSize: a.bundleSize,
		phase:      a.phase,
	}
	if a.scratch != nil {
		c.scratch = make([]T, len(a.scratch))
	}
	for _, lvl := range a.levels {
		c.levels = append(c.levels, level[T, V]{state: lvl.state.Clone(), bundle: lvl.bundle.clone()})
	}
	return c
}
