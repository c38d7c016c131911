package variance

import (
	"fmt"

	"github.com/shashank-93rao/varstats/pkg/stats/computed"
	"github.com/shashank-93rao/varstats/pkg/stats/strategy"
)

// Mode is the interpretation of the columns of a ValueAccumState.
type Mode int

const (
	// SumMode: data is the sum of samples, data2 the sum of their
	// second-moment terms.
	SumMode Mode = iota
	// MeanMode: data is the sample mean, data2 the sample variance.
	MeanMode
)

func (m Mode) String() string {
	if m == MeanMode {
		return "mean"
	}
	return "sum"
}

// ValueAccumState is the storage shared by accumulators and results: a
// count and two columns of fixed size that hold either sums or mean and
// variance, depending on Mode.
type ValueAccumState[T strategy.Scalar, V strategy.Element] struct {
	strategy strategy.Strategy[T, V]
	count    uint64
	data     []T
	data2    []V
	mode     Mode
}

func NewValueAccumState[T strategy.Scalar, V strategy.Element](s strategy.Strategy[T, V], size int) *ValueAccumState[T, V] {
	return &ValueAccumState[T, V]{
		strategy: s,
		data:     make([]T, size),
		data2:    make([]V, size),
	}
}

// Reset zeroes the count and both columns and returns to SumMode.
func (s *ValueAccumState[T, V]) Reset() {
	var zero T
	var zero2 V
	for i := range s.data {
		s.data[i] = zero
		s.data2[i] = zero2
	}
	s.count = 0
	s.mode = SumMode
}

func (s *ValueAccumState[T, V]) Size() int { return len(s.data) }

func (s *ValueAccumState[T, V]) Count() uint64 { return s.count }

func (s *ValueAccumState[T, V]) SetCount(n uint64) { s.count = n }

func (s *ValueAccumState[T, V]) Mode() Mode { return s.mode }

func (s *ValueAccumState[T, V]) Strategy() strategy.Strategy[T, V] { return s.strategy }

// Data is the first column, sums or means. The slice is shared, not copied.
func (s *ValueAccumState[T, V]) Data() []T { return s.data }

// Data2 is the second column, second-moment sums or variances. The slice is
// shared, not copied.
func (s *ValueAccumState[T, V]) Data2() []V { return s.data2 }

// Add appends one sample. Valid only in SumMode.
func (s *ValueAccumState[T, V]) Add(src computed.Computed[T]) error {
	if s.mode != SumMode {
		return fmt.Errorf("add sample to %s state: %w", s.mode, ErrWrongMode)
	}
	if src.Size() != len(s.data) {
		return fmt.Errorf("add sample of size %d to state of size %d: %w", src.Size(), len(s.data), ErrSizeMismatch)
	}
	for i := range s.data {
		x := src.At(i)
		s.data[i] += x
		s.data2[i] = s.strategy.AddVar(s.data2[i], s.strategy.Term(x, x))
	}
	s.count++
	return nil
}

// addValues is Add for a sample already known to be of the right size.
func (s *ValueAccumState[T, V]) addValues(xs []T) {
	for i, x := range xs {
		s.data[i] += x
		s.data2[i] = s.strategy.AddVar(s.data2[i], s.strategy.Term(x, x))
	}
	s.count++
}

// ConvertToMean turns sums into mean and variance. A state with zero count
// converts to all-zero columns.
func (s *ValueAccumState[T, V]) ConvertToMean() error {
	if s.mode != SumMode {
		return fmt.Errorf("convert %s state to mean: %w", s.mode, ErrWrongMode)
	}
	s.mode = MeanMode
	if s.count == 0 {
		s.Reset()
		s.mode = MeanMode
		return nil
	}
	inv := 1 / float64(s.count)
	for i := range s.data {
		mean := strategy.Scale(s.data[i], inv)
		s.data[i] = mean
		s.data2[i] = s.strategy.SubVar(s.strategy.ScaleVar(s.data2[i], inv), s.strategy.Term(mean, mean))
	}
	return nil
}

// ConvertToSum is the inverse of ConvertToMean.
func (s *ValueAccumState[T, V]) ConvertToSum() error {
	if s.mode != MeanMode {
		return fmt.Errorf("convert %s state to sum: %w", s.mode, ErrWrongMode)
	}
	n := float64(s.count)
	for i := range s.data {
		mean := s.data[i]
		s.data2[i] = s.strategy.ScaleVar(s.strategy.AddVar(s.data2[i], s.strategy.Term(mean, mean)), n)
		s.data[i] = strategy.Scale(mean, n)
	}
	s.mode = SumMode
	return nil
}

// Merge adds the sums of other into s. Both must be in SumMode.
func (s *ValueAccumState[T, V]) Merge(other *ValueAccumState[T, V]) error {
	if s.mode != SumMode || other.mode != SumMode {
		return fmt.Errorf("merge %s state with %s state: %w", s.mode, other.mode, ErrWrongMode)
	}
	if len(s.data) != len(other.data) {
		return fmt.Errorf("merge state of size %d with size %d: %w", len(s.data), len(other.data), ErrSizeMismatch)
	}
	for i := range s.data {
		s.data[i] += other.data[i]
		s.data2[i] = s.strategy.AddVar(s.data2[i], other.data2[i])
	}
	s.count += other.count
	return nil
}

// Clone returns a deep copy.
func (s *ValueAccumState[T, V]) Clone() *ValueAccumState[T, V] {
	c := &ValueAccumState[T, V]{
		strategy: s.strategy,
		count:    s.count,
		data:     make([]T, len(s.data)),
		data2:    make([]V, len(s.data2)),
		mode:     s.mode,
	}
	copy(c.data, s.data)
	copy(c.data2, s.data2)
	return c
}
