package strategy

import (
	"math"
	"math/cmplx"
)

// Circular is the rotation-invariant variance of complex samples,
// <|x - mean|^2>. The variance is real.
type Circular struct{}

var _ Strategy[complex128, float64] = Circular{}

func (Circular) Kind() Kind { return CircularKind }

func (Circular) Term(x, y complex128) float64 {
	return real(x * cmplx.Conj(y))
}

func (Circular) AddVar(a, b float64) float64 { return a + b }

func (Circular) SubVar(a, b float64) float64 { return a - b }

func (Circular) ScaleVar(v float64, f float64) float64 { return v * f }

func (Circular) StdError(v float64, count uint64) float64 {
	return stdError(v, count)
}

// ComplexOp is a real 2x2 matrix acting on (Re, Im) pairs. As a variance it
// is the covariance matrix of the real and imaginary parts:
//
//	| RR  RI |
//	| IR  II |
type ComplexOp struct {
	RR, RI, IR, II float64
}

// Outer returns the matrix (Re x, Im x)^T (Re y, Im y).
func Outer(x, y complex128) ComplexOp {
	return ComplexOp{
		RR: real(x) * real(y),
		RI: real(x) * imag(y),
		IR: imag(x) * real(y),
		II: imag(x) * imag(y),
	}
}

func (o ComplexOp) Add(p ComplexOp) ComplexOp {
	return ComplexOp{o.RR + p.RR, o.RI + p.RI, o.IR + p.IR, o.II + p.II}
}

func (o ComplexOp) Sub(p ComplexOp) ComplexOp {
	return ComplexOp{o.RR - p.RR, o.RI - p.RI, o.IR - p.IR, o.II - p.II}
}

func (o ComplexOp) Scale(f float64) ComplexOp {
	return ComplexOp{o.RR * f, o.RI * f, o.IR * f, o.II * f}
}

// Trace is the circular variance <|x - mean|^2>.
func (o ComplexOp) Trace() float64 {
	return o.RR + o.II
}

// Pseudo is the non-conjugated second moment <(x - mean)^2>.
func (o ComplexOp) Pseudo() complex128 {
	return complex(o.RR-o.II, o.RI+o.IR)
}

// Elliptic keeps the full covariance of complex samples, which captures
// anisotropic distributions that Circular averages away.
type Elliptic struct{}

var _ Strategy[complex128, ComplexOp] = Elliptic{}

func (Elliptic) Kind() Kind { return EllipticKind }

func (Elliptic) Term(x, y complex128) ComplexOp { return Outer(x, y) }

func (Elliptic) AddVar(a, b ComplexOp) ComplexOp { return a.Add(b) }

func (Elliptic) SubVar(a, b ComplexOp) ComplexOp { return a.Sub(b) }

func (Elliptic) ScaleVar(v ComplexOp, f float64) ComplexOp { return v.Scale(f) }

// StdError takes the signed square root of every entry over count, so the
// diagonal holds the standard errors of the real and imaginary parts.
func (Elliptic) StdError(v ComplexOp, count uint64) ComplexOp {
	if count <= 1 {
		return ComplexOp{}
	}
	n := float64(count)
	signed := func(x float64) float64 {
		return math.Copysign(math.Sqrt(math.Abs(x)/n), x)
	}
	return ComplexOp{
		RR: stdError(v.RR, count),
		RI: signed(v.RI),
		IR: signed(v.IR),
		II: stdError(v.II, count),
	}
}
