// Package computed adapts the many shapes an observable can take into the
// single read interface consumed by accumulators.
package computed

import (
	"golang.org/x/exp/constraints"

	"github.com/shashank-93rao/varstats/pkg/stats/strategy"
)

// Computed is a sample of fixed size whose components can be read by index.
type Computed[T strategy.Scalar] interface {
	Size() int
	At(i int) T
}

type scalar[T strategy.Scalar] struct {
	x T
}

// Scalar views a single value as a sample of size one.
func Scalar[T strategy.Scalar](x T) Computed[T] {
	return scalar[T]{x: x}
}

func (s scalar[T]) Size() int { return 1 }

func (s scalar[T]) At(int) T { return s.x }

// Vector views a slice as a sample. The slice is not copied.
type Vector[T strategy.Scalar] []T

func (v Vector[T]) Size() int { return len(v) }

func (v Vector[T]) At(i int) T { return v[i] }

type fn[T strategy.Scalar] struct {
	n int
	f func(int) T
}

// Func is a derived sample whose i-th component is f(i).
func Func[T strategy.Scalar](n int, f func(i int) T) Computed[T] {
	return fn[T]{n: n, f: f}
}

func (c fn[T]) Size() int { return c.n }

func (c fn[T]) At(i int) T { return c.f(i) }

type reals[S constraints.Integer | constraints.Float] []S

// Reals reads an integer or floating point slice as float64 components.
func Reals[S constraints.Integer | constraints.Float](xs []S) Computed[float64] {
	return reals[S](xs)
}

func (r reals[S]) Size() int { return len(r) }

func (r reals[S]) At(i int) float64 { return float64(r[i]) }

type complexes[S constraints.Complex] []S

// Complexes reads a complex64 or complex128 slice as complex128 components.
func Complexes[S constraints.Complex](zs []S) Computed[complex128] {
	return complexes[S](zs)
}

func (c complexes[S]) Size() int { return len(c) }

func (c complexes[S]) At(i int) complex128 { return complex128(c[i]) }

type promoted struct {
	src Computed[float64]
}

// Promote views a real sample as a complex one with zero imaginary parts.
func Promote(src Computed[float64]) Computed[complex128] {
	return promoted{src: src}
}

func (p promoted) Size() int { return p.src.Size() }

func (p promoted) At(i int) complex128 { return complex(p.src.At(i), 0) }
